package merrors

import (
	"errors"
	"fmt"
)

// MemError is the structured error type for mnemo. It carries enough
// context for logging, REST/JSON-RPC error bodies, and retry decisions.
type MemError struct {
	Kind Kind
	// Message is the human-readable error message.
	Message string
	// Severity controls whether the caller should abort or degrade.
	Severity Severity
	// Details contains additional context as key-value pairs.
	Details map[string]string
	// Cause is the underlying error, if any.
	Cause error
	// Retryable indicates the operation can be retried as-is.
	Retryable bool
	// Suggestion is an actionable hint for the caller.
	Suggestion string
}

// Error implements the error interface.
func (e *MemError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %s: %v", e.Kind, e.Message, e.Cause)
	}
	return fmt.Sprintf("%s: %s", e.Kind, e.Message)
}

// Unwrap exposes the cause for errors.Is/As.
func (e *MemError) Unwrap() error {
	return e.Cause
}

// Is matches another *MemError by Kind.
func (e *MemError) Is(target error) bool {
	t, ok := target.(*MemError)
	if !ok {
		return false
	}
	return e.Kind == t.Kind
}

// WithDetail attaches a key-value detail and returns the error for chaining.
func (e *MemError) WithDetail(key, value string) *MemError {
	if e.Details == nil {
		e.Details = make(map[string]string)
	}
	e.Details[key] = value
	return e
}

// WithSuggestion attaches an actionable suggestion and returns the error.
func (e *MemError) WithSuggestion(s string) *MemError {
	e.Suggestion = s
	return e
}

// New creates a MemError of the given kind.
func New(kind Kind, message string, cause error) *MemError {
	return &MemError{
		Kind:      kind,
		Message:   message,
		Severity:  severityForKind(kind),
		Cause:     cause,
		Retryable: retryableForKind(kind),
	}
}

// Wrap creates a MemError from an existing error, or returns nil if err is nil.
func Wrap(kind Kind, err error) *MemError {
	if err == nil {
		return nil
	}
	return New(kind, err.Error(), err)
}

// Storage, Index, Embedder, Config, NotFound, and Invalid are convenience
// constructors for the six taxonomy kinds.

func Storage(message string, cause error) *MemError { return New(KindStorage, message, cause) }
func Index(message string, cause error) *MemError    { return New(KindIndex, message, cause) }
func Embedder(message string, cause error) *MemError { return New(KindEmbedder, message, cause) }
func Config(message string, cause error) *MemError   { return New(KindConfig, message, cause) }
func NotFound(id string) *MemError {
	return New(KindNotFound, fmt.Sprintf("memory %q not found", id), nil)
}
func Invalid(message string) *MemError { return New(KindInvalid, message, nil) }

// IsRetryable reports whether err (or a wrapped MemError within it) is retryable.
func IsRetryable(err error) bool {
	var me *MemError
	if errors.As(err, &me) {
		return me.Retryable
	}
	return false
}

// KindOf extracts the Kind from err, or "" if err is not a *MemError.
func KindOf(err error) Kind {
	if me, ok := err.(*MemError); ok {
		return me.Kind
	}
	return ""
}
