package wire

import (
	"bytes"
	"encoding/json"
	"errors"
	"strings"
)

// Envelope is one inbound command: {action, args}.
type Envelope struct {
	Action string          `json:"action"`
	Args   json.RawMessage `json:"args,omitempty"`
}

// emptyArgs stands in for missing or null args.
var emptyArgs = json.RawMessage(`{}`)

// ParseEnvelope decodes a request body. The body must be a JSON object with
// a non-blank string action; args must be an object when present. Missing
// or null args normalize to {}.
func ParseEnvelope(body []byte) (Envelope, error) {
	trimmed := bytes.TrimSpace(body)
	if len(trimmed) == 0 || trimmed[0] != '{' {
		return Envelope{}, InvalidEnvelope(errors.New("body is not a JSON object"))
	}

	var env Envelope
	if err := json.Unmarshal(trimmed, &env); err != nil {
		return Envelope{}, InvalidEnvelope(err)
	}
	if strings.TrimSpace(env.Action) == "" {
		return Envelope{}, InvalidEnvelope(errors.New("action is required"))
	}

	args := bytes.TrimSpace(env.Args)
	switch {
	case len(args) == 0 || bytes.Equal(args, []byte("null")):
		env.Args = emptyArgs
	case args[0] != '{':
		return Envelope{}, InvalidEnvelope(errors.New("args must be an object"))
	default:
		env.Args = json.RawMessage(args)
	}
	return env, nil
}

// Response is the uniform result shape. Data is omitted on failure.
type Response struct {
	OK      bool   `json:"ok"`
	Message string `json:"message"`
	Data    any    `json:"data,omitempty"`
}

// OK builds a success response carrying data.
func OK(data any) Response {
	return Response{OK: true, Message: "ok", Data: data}
}

// Fail builds a failure response from err. The message is never empty.
func Fail(err error) Response {
	msg := ""
	if err != nil {
		msg = err.Error()
	}
	if msg == "" {
		msg = string(KindOf(err))
	}
	if msg == "" {
		msg = string(KindDomain)
	}
	return Response{OK: false, Message: msg}
}
