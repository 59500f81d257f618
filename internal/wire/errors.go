package wire

import (
	"errors"
	"fmt"
	"net/http"
)

// Kind classifies a bridge failure.
type Kind string

const (
	// KindRouting indicates a bad method or path at the transport layer.
	KindRouting Kind = "RoutingError"

	// KindEnvelope indicates a malformed body or a missing action name.
	KindEnvelope Kind = "EnvelopeError"

	// KindUnknownAction indicates no builder is registered for the action.
	KindUnknownAction Kind = "UnknownAction"

	// KindInvalidArguments indicates the builder rejected the args.
	KindInvalidArguments Kind = "InvalidArguments"

	// Targeting failures.
	KindNoTargets        Kind = "NoTargets"
	KindCategoryNotFound Kind = "CategoryNotFound"
	KindViewNotFound     Kind = "ViewNotFound"
	KindElementNotFound  Kind = "ElementNotFound"

	// Parameter failures.
	KindParameterNotFound      Kind = "ParameterNotFound"
	KindParameterReadOnly      Kind = "ParameterReadOnly"
	KindValueParse             Kind = "ValueParseError"
	KindUnsupportedStorageKind Kind = "UnsupportedStorageKind"

	// KindDomain covers host business-rule violations and anything unclassified.
	KindDomain Kind = "DomainError"
)

// Family groups kinds the way callers usually branch on them.
type Family string

const (
	FamilyRouting   Family = "routing"
	FamilyEnvelope  Family = "envelope"
	FamilyDispatch  Family = "dispatch"
	FamilyTargeting Family = "targeting"
	FamilyParameter Family = "parameter"
	FamilyDomain    Family = "domain"
)

// Family returns the group a kind belongs to.
func (k Kind) Family() Family {
	switch k {
	case KindRouting:
		return FamilyRouting
	case KindEnvelope:
		return FamilyEnvelope
	case KindUnknownAction, KindInvalidArguments:
		return FamilyDispatch
	case KindNoTargets, KindCategoryNotFound, KindViewNotFound, KindElementNotFound:
		return FamilyTargeting
	case KindParameterNotFound, KindParameterReadOnly, KindValueParse, KindUnsupportedStorageKind:
		return FamilyParameter
	default:
		return FamilyDomain
	}
}

// Error is a classified bridge failure. Message is what the caller sees.
type Error struct {
	Kind    Kind
	Message string
	Err     error

	// status overrides the HTTP status derived from Kind (routing only).
	status int
}

// Error implements the error interface.
func (e *Error) Error() string {
	if e.Message != "" {
		return e.Message
	}
	if e.Err != nil {
		return e.Err.Error()
	}
	return string(e.Kind)
}

// Unwrap returns the underlying cause, if any.
func (e *Error) Unwrap() error {
	return e.Err
}

// Errorf builds a classified error with a formatted message.
func Errorf(kind Kind, format string, args ...any) *Error {
	return &Error{Kind: kind, Message: fmt.Sprintf(format, args...)}
}

// Wrap classifies err. The message defaults to err's text when msg is empty.
func Wrap(kind Kind, err error, msg string) *Error {
	if msg == "" && err != nil {
		msg = err.Error()
	}
	return &Error{Kind: kind, Message: msg, Err: err}
}

// NotFound is the routing failure for an unknown path.
func NotFound() *Error {
	return &Error{Kind: KindRouting, Message: "Not found", status: http.StatusNotFound}
}

// MethodNotAllowed is the routing failure for a non-POST request.
func MethodNotAllowed() *Error {
	return &Error{Kind: KindRouting, Message: "Method not allowed", status: http.StatusMethodNotAllowed}
}

// InvalidEnvelope is the failure for a body that is not {action, args}.
func InvalidEnvelope(cause error) *Error {
	return &Error{Kind: KindEnvelope, Message: "Invalid envelope. Expecting { action, args }.", Err: cause}
}

// UnknownAction is the dispatch failure for an unregistered name.
func UnknownAction(name string) *Error {
	return Errorf(KindUnknownAction, "Unknown action '%s'.", name)
}

// InvalidArguments is the dispatch failure for args a builder rejected.
func InvalidArguments(detail string) *Error {
	return &Error{Kind: KindInvalidArguments, Message: detail}
}

// NoTargets is the targeting failure for an empty target set.
func NoTargets() *Error {
	return &Error{Kind: KindNoTargets, Message: "No targets resolved"}
}

// KindOf returns the kind of err. Unclassified errors are domain errors;
// a nil error has no kind.
func KindOf(err error) Kind {
	if err == nil {
		return ""
	}
	var we *Error
	if errors.As(err, &we) {
		return we.Kind
	}
	return KindDomain
}

// IsKind reports whether err is classified as kind.
// Uses errors.As to handle wrapped errors.
func IsKind(err error, kind Kind) bool {
	return err != nil && KindOf(err) == kind
}

// Status maps err to the HTTP status the receiver writes.
//
// Malformed input (envelope, unknown action, bad args) is a 4xx. Failures
// raised while a job runs surface as 500, matching a host exception at the
// transport boundary.
func Status(err error) int {
	if err == nil {
		return http.StatusOK
	}
	var we *Error
	if errors.As(err, &we) && we.status != 0 {
		return we.status
	}
	switch KindOf(err).Family() {
	case FamilyRouting:
		return http.StatusNotFound
	case FamilyEnvelope, FamilyDispatch:
		return http.StatusBadRequest
	default:
		return http.StatusInternalServerError
	}
}
