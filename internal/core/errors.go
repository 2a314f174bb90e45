package core

import (
	"errors"
	"fmt"
	"net/http"
)

// ErrorKind classifies failures so callers can branch without parsing messages.
type ErrorKind int

const (
	KindUnknown ErrorKind = iota
	KindProviderUnknown
	KindInvalidInput
	KindNotFound
	KindUpstream
	KindMalformed
	KindNetwork
)

func (k ErrorKind) String() string {
	switch k {
	case KindProviderUnknown:
		return "provider_unknown"
	case KindInvalidInput:
		return "invalid_input"
	case KindNotFound:
		return "not_found"
	case KindUpstream:
		return "upstream"
	case KindMalformed:
		return "malformed"
	case KindNetwork:
		return "network"
	}
	return "unknown"
}

// Error is the single failure type surfaced by adapters and facades.
// Its message keeps the "[Label] Op | status: detail" shape users see.
type Error struct {
	Kind     ErrorKind
	Provider Provider
	Op       string
	Status   int
	Detail   string
	Err      error
}

func (e *Error) Error() string {
	label := ""
	if e.Provider != "" {
		label = "[" + e.Provider.Label() + "] "
	}
	detail := e.Detail
	if detail == "" && e.Err != nil {
		detail = e.Err.Error()
	}
	switch {
	case e.Op != "" && e.Status > 0:
		return fmt.Sprintf("%s%s | %d: %s", label, e.Op, e.Status, detail)
	case e.Op != "":
		return fmt.Sprintf("%s%s | %s", label, e.Op, detail)
	case e.Status > 0:
		return fmt.Sprintf("%s%d: %s", label, e.Status, detail)
	}
	return label + detail
}

func (e *Error) Unwrap() error { return e.Err }

// HTTPStatus is the status a presentation layer should show for this error.
func (e *Error) HTTPStatus() int {
	if e.Status > 0 {
		return e.Status
	}
	switch e.Kind {
	case KindProviderUnknown, KindInvalidInput:
		return http.StatusBadRequest
	case KindNotFound:
		return http.StatusNotFound
	case KindUpstream, KindMalformed, KindNetwork:
		return http.StatusBadGateway
	}
	return http.StatusInternalServerError
}

// NotFound builds the 404 error adapters return when an entity is missing.
func NotFound(p Provider, op, detail string) *Error {
	return &Error{Kind: KindNotFound, Provider: p, Op: op, Status: http.StatusNotFound, Detail: detail}
}

// Upstream builds an error for a failed upstream response.
func Upstream(p Provider, op string, status int, detail string) *Error {
	kind := KindUpstream
	if status == http.StatusNotFound {
		kind = KindNotFound
	}
	return &Error{Kind: kind, Provider: p, Op: op, Status: status, Detail: detail}
}

// Malformed reports a successful response that lacks expected fields.
func Malformed(p Provider, op string, err error) *Error {
	return &Error{Kind: KindMalformed, Provider: p, Op: op, Status: http.StatusInternalServerError, Detail: "malformed response", Err: err}
}

// Network wraps a transport-level failure.
func Network(p Provider, op string, err error) *Error {
	return &Error{Kind: KindNetwork, Provider: p, Op: op, Err: err}
}

// UnknownProvider is returned by facades for an unrecognized alias.
func UnknownProvider(alias, detail string) *Error {
	if detail == "" {
		detail = "unknown provider"
	}
	return &Error{Kind: KindProviderUnknown, Detail: fmt.Sprintf("%s: %q", detail, alias)}
}

// InvalidInput reports a malformed identifier or argument.
func InvalidInput(p Provider, op string, err error) *Error {
	return &Error{Kind: KindInvalidInput, Provider: p, Op: op, Status: http.StatusBadRequest, Err: err}
}

// KindOf extracts the kind of the first *Error in err's chain.
func KindOf(err error) ErrorKind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return KindUnknown
}

// StatusOf extracts the presentation status of err, 500 when unstructured.
func StatusOf(err error) int {
	var e *Error
	if errors.As(err, &e) {
		return e.HTTPStatus()
	}
	return http.StatusInternalServerError
}

// IsNotFound reports whether err is a not-found failure.
func IsNotFound(err error) bool { return KindOf(err) == KindNotFound }
