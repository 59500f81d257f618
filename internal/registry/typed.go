package registry

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"reflect"

	"github.com/roach88/cadbridge/internal/docmodel"
	"github.com/roach88/cadbridge/internal/wire"
)

// Validator is implemented by request types that check themselves after
// decoding.
type Validator interface {
	Validate() error
}

// Typed builds a Builder from a typed handler. Args are decoded into R,
// validated when R (or *R) implements Validator, and captured by the
// returned UnitOfWork.
func Typed[R any](run func(ctx context.Context, tx docmodel.Tx, req R) (any, error)) Builder {
	return func(args json.RawMessage) (UnitOfWork, error) {
		var req R
		if err := DecodeArgs(args, &req); err != nil {
			return nil, err
		}
		if err := validate(&req); err != nil {
			return nil, err
		}
		return func(ctx context.Context, tx docmodel.Tx) (any, error) {
			return run(ctx, tx, req)
		}, nil
	}
}

func validate(req any) error {
	v, ok := req.(Validator)
	if !ok {
		return nil
	}
	if err := v.Validate(); err != nil {
		return asInvalidArguments(err)
	}
	return nil
}

// DecodeArgs decodes args into dst and turns JSON errors into
// InvalidArguments messages naming the offending field.
func DecodeArgs(args json.RawMessage, dst any) error {
	if len(bytes.TrimSpace(args)) == 0 {
		args = json.RawMessage(`{}`)
	}
	dec := json.NewDecoder(bytes.NewReader(args))
	if err := dec.Decode(dst); err != nil {
		return wire.Wrap(wire.KindInvalidArguments, err, describeDecodeError(err))
	}
	return nil
}

func describeDecodeError(err error) string {
	var typeErr *json.UnmarshalTypeError
	if errors.As(err, &typeErr) {
		field := typeErr.Field
		if field == "" {
			return "args have the wrong shape"
		}
		return fmt.Sprintf("%s must be %s", field, describeType(typeErr.Type))
	}
	var syntaxErr *json.SyntaxError
	if errors.As(err, &syntaxErr) {
		return "args are not valid JSON"
	}
	return err.Error()
}

func describeType(t reflect.Type) string {
	for t.Kind() == reflect.Pointer {
		t = t.Elem()
	}
	switch t.Kind() {
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64,
		reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
		return "an integer"
	case reflect.Float32, reflect.Float64:
		return "a number"
	case reflect.String:
		return "a string"
	case reflect.Bool:
		return "a boolean"
	case reflect.Slice, reflect.Array:
		return "an array"
	case reflect.Map, reflect.Struct:
		return "an object"
	default:
		return "a " + t.String()
	}
}

// Required returns an InvalidArguments error for a missing field.
func Required(field string) error {
	return wire.InvalidArguments(field + " is required")
}

// Invalid returns an InvalidArguments error with a formatted detail.
func Invalid(format string, args ...any) error {
	return wire.InvalidArguments(fmt.Sprintf(format, args...))
}
