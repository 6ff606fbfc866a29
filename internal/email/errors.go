package email

import (
	"errors"
	"fmt"
)

// ErrMissingRecipient is returned when an email without a `to` address is
// dispatched.
var ErrMissingRecipient = errors.New("`to` address is required")

// ValidationError reports a field that fails a dispatch precondition.
type ValidationError struct {
	Field string
	Err   error
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("invalid field %s: %v", e.Field, e.Err)
}

func (e *ValidationError) Unwrap() error {
	return e.Err
}
