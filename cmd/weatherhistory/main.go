package main

import (
	"context"
	"errors"
	"os"

	"github.com/kjstillabower/weather-history-tool/internal/cli"
	httphandler "github.com/kjstillabower/weather-history-tool/internal/http"
)

// Set via ldflags at build time.
var version = "dev"

func main() {
	httphandler.Version = version
	if err := cli.NewRootCmd(version).ExecuteContext(context.Background()); err != nil {
		var exitErr *cli.ExitError
		if errors.As(err, &exitErr) {
			os.Exit(exitErr.Code)
		}
		os.Exit(1)
	}
}
