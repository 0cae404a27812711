package gateway

import "errors"

// Kind tags a gateway failure per the error taxonomy the view layer
// dispatches on.
type Kind string

const (
	// KindValidation is a missing or malformed field, caught before any
	// network call.
	KindValidation Kind = "VALIDATION"
	// KindNetwork is a transport-level failure.
	KindNetwork Kind = "NETWORK"
	// KindServer is a non-2xx upstream response.
	KindServer Kind = "SERVER"
	// KindNotFound is a missing post in mock mode or a 404 upstream.
	KindNotFound Kind = "NOT_FOUND"
)

// Error is the only error type that crosses the gateway boundary.
type Error struct {
	Kind    Kind
	Message string
	Origin  error
}

func (e *Error) Error() string {
	if e.Origin != nil {
		return e.Message + ": " + e.Origin.Error()
	}
	return e.Message
}

func (e *Error) Unwrap() error { return e.Origin }

func newValidation(msg string) *Error {
	return &Error{Kind: KindValidation, Message: msg}
}

func newNetwork(msg string, origin error) *Error {
	return &Error{Kind: KindNetwork, Message: msg, Origin: origin}
}

func newServer(msg string) *Error {
	return &Error{Kind: KindServer, Message: msg}
}

func newNotFound(msg string) *Error {
	return &Error{Kind: KindNotFound, Message: msg}
}

// KindOf extracts the failure kind, or an empty Kind for foreign errors.
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return ""
}
