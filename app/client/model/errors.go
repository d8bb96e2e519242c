package model

import (
	"fmt"
)

// Error is a failed call as reported by the provider.
type Error struct {
	Model   string
	Code    int
	Message string
	Err     error
}

func (e *Error) Error() string {
	if e.Code > 0 {
		return fmt.Sprintf("%s: status %d: %s", e.Model, e.Code, e.Message)
	}

	return fmt.Sprintf("%s: %s", e.Model, e.Message)
}

func (e *Error) Unwrap() error {
	return e.Err
}

func (e *Error) StatusCode() int {
	return e.Code
}
