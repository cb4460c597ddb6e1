package tool

import (
	"encoding/json"
)

// Result is either an upstream payload or an error descriptor. It marshals to
// the payload itself, or to {"error": "..."}. The zero Result is a failure.
type Result struct {
	ok      bool
	payload json.RawMessage
	errMsg  string
}

type errorBody struct {
	Error string `json:"error"`
}

// Success wraps a JSON payload. A nil payload marshals as null.
func Success(payload json.RawMessage) Result {
	return Result{ok: true, payload: payload}
}

// Failure builds an error descriptor carrying msg.
func Failure(msg string) Result {
	return Result{errMsg: msg}
}

// OK reports whether r carries a payload.
func (r Result) OK() bool {
	return r.ok
}

// Payload returns the upstream JSON, or nil for a failure.
func (r Result) Payload() json.RawMessage {
	return r.payload
}

// Err returns the error descriptor message, or "" on success.
func (r Result) Err() string {
	return r.errMsg
}

// MarshalJSON implements json.Marshaler.
func (r Result) MarshalJSON() ([]byte, error) {
	if !r.OK() {
		return json.Marshal(errorBody{Error: r.errMsg})
	}
	if len(r.payload) == 0 {
		return []byte("null"), nil
	}
	return r.payload, nil
}
