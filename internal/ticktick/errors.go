package ticktick

import (
	"errors"
	"fmt"
	"time"
)

// Kind is the machine-readable discriminator for gateway errors. Every error
// that crosses the tool boundary carries exactly one Kind.
type Kind string

const (
	// KindInvalidArguments marks a caller mistake caught before any remote call.
	KindInvalidArguments Kind = "invalid_arguments"
	// KindAuthentication marks an invalid token or a failed refresh. Terminal:
	// recovering requires out-of-band re-authorization.
	KindAuthentication Kind = "authentication"
	// KindRateLimit marks retries exhausted under HTTP 429.
	KindRateLimit Kind = "rate_limit"
	// KindUpstream marks retries exhausted under HTTP 5xx.
	KindUpstream Kind = "upstream"
	// KindNetwork marks a transport-level failure after one retry.
	KindNetwork Kind = "network"
	// KindNotFound marks a remote 404 on a specific resource id.
	KindNotFound Kind = "not_found"
	// KindInvalidRequest marks any other remote 4xx; the payload was rejected.
	KindInvalidRequest Kind = "invalid_request"
	// KindUnknownTool marks a dispatch request for a tool that does not
	// exist. The MCP layer rejects unknown tool names before any handler
	// runs, so no handler in this repo produces it; the kind completes the
	// envelope taxonomy for clients that switch on it.
	KindUnknownTool Kind = "unknown_tool"
)

// Error is the gateway error type. Detail carries the remote error body when
// one was observed; RetryAfter carries the last backoff delay for rate-limit
// errors.
type Error struct {
	Kind       Kind
	Message    string
	Detail     string
	RetryAfter time.Duration
	Err        error
}

func (e *Error) Error() string {
	if e.Detail != "" {
		return fmt.Sprintf("%s: %s (%s)", e.Kind, e.Message, e.Detail)
	}
	return fmt.Sprintf("%s: %s", e.Kind, e.Message)
}

func (e *Error) Unwrap() error {
	return e.Err
}

// NewError creates a gateway error with the given kind and message.
func NewError(kind Kind, format string, args ...any) *Error {
	return &Error{Kind: kind, Message: fmt.Sprintf(format, args...)}
}

// KindOf returns the Kind of err, or KindUpstream if err is not a gateway
// error. Unwrapped transport errors must never leak past the tool boundary.
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return KindUpstream
}

// IsKind reports whether err is a gateway error of the given kind.
func IsKind(err error, kind Kind) bool {
	var e *Error
	return errors.As(err, &e) && e.Kind == kind
}
