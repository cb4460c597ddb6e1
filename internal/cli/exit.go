package cli

import "fmt"

// Exit codes returned through ExitError.
const (
	exitGeneric   = 1
	exitToolError = 2
)

// ExitError carries a process exit code from RunE back to main.
type ExitError struct {
	Code    int
	Message string
}

func (e *ExitError) Error() string {
	return e.Message
}

func exitError(code int, format string, args ...any) *ExitError {
	return &ExitError{
		Code:    code,
		Message: fmt.Sprintf(format, args...),
	}
}
