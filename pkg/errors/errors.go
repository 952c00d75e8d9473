package errors

import (
	stderrors "errors"
	"fmt"
	"time"
)

// ErrorType represents the type of error
type ErrorType string

const (
	// TypeFetch represents network or HTTP failures on a page or detail request
	TypeFetch ErrorType = "fetch"
	// TypeParse represents markup that did not yield the expected structure
	TypeParse ErrorType = "parse"
	// TypeConfig represents rejected configuration
	TypeConfig ErrorType = "config"
	// TypeStore represents persistence write or read failures
	TypeStore ErrorType = "store"
)

// Error is the typed error carried through the ingestion pipeline.
type Error struct {
	Type    ErrorType
	Op      string
	Message string
	Err     error
	Time    time.Time
}

// Error implements the error interface
func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("[%s] %s: %s - %v", e.Type, e.Op, e.Message, e.Err)
	}
	return fmt.Sprintf("[%s] %s: %s", e.Type, e.Op, e.Message)
}

// Unwrap returns the underlying error
func (e *Error) Unwrap() error {
	return e.Err
}

// IsRetryable reports whether repeating the operation may succeed.
func (e *Error) IsRetryable() bool {
	return e.Type == TypeFetch
}

// New creates a new Error
func New(errType ErrorType, op, message string, err error) *Error {
	return &Error{
		Type:    errType,
		Op:      op,
		Message: message,
		Err:     err,
		Time:    time.Now(),
	}
}

// NewFetch creates a new fetch error
func NewFetch(op, message string, err error) *Error {
	return New(TypeFetch, op, message, err)
}

// NewParse creates a new parse error
func NewParse(op, message string, err error) *Error {
	return New(TypeParse, op, message, err)
}

// NewConfig creates a new configuration error
func NewConfig(message string) *Error {
	return New(TypeConfig, "config", message, nil)
}

// NewStore creates a new store error
func NewStore(op, message string, err error) *Error {
	return New(TypeStore, op, message, err)
}

// TypeOf returns the type of the first *Error in err's chain, or "".
func TypeOf(err error) ErrorType {
	var e *Error
	if stderrors.As(err, &e) {
		return e.Type
	}
	return ""
}

func IsFetch(err error) bool  { return TypeOf(err) == TypeFetch }
func IsParse(err error) bool  { return TypeOf(err) == TypeParse }
func IsConfig(err error) bool { return TypeOf(err) == TypeConfig }
func IsStore(err error) bool  { return TypeOf(err) == TypeStore }
