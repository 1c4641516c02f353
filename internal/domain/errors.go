package domain

import (
	"errors"
	"fmt"
)

var (
	ErrNotFound      = errors.New("not found")
	ErrUnauthorized  = errors.New("unauthorized")
	ErrQuotaExceeded = errors.New("quota exceeded")
)

// ValidationError reports malformed caller input.
type ValidationError struct {
	Field string
	Msg   string
	Err   error
}

func (e ValidationError) Error() string {
	if e.Field == "" {
		return e.Msg
	}
	return fmt.Sprintf("%s: %s", e.Field, e.Msg)
}

func (e ValidationError) Unwrap() error { return e.Err }

// ParseError means no JSON object could be pulled out of model output.
type ParseError struct {
	Reason string
	Err    error
}

func (e ParseError) Error() string {
	if e.Err != nil {
		return "parse: " + e.Reason + ": " + e.Err.Error()
	}
	return "parse: " + e.Reason
}

func (e ParseError) Unwrap() error { return e.Err }
