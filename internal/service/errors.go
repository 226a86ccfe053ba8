package service

import (
	"errors"
	"fmt"
)

// Sentinel errors let handlers pick the right HTTP status programmatically.
var (
	ErrDocumentNotFound = errors.New("document not found")
	ErrCustomerNotFound = errors.New("customer not found")
)

// ValidationError marks a request rejected before any store write. Field
// names the offending input so the client can attach the message to it.
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	if e.Field != "" {
		return fmt.Sprintf("%s: %s", e.Field, e.Message)
	}
	return e.Message
}

// IsValidation reports whether err is (or wraps) a ValidationError.
func IsValidation(err error) bool {
	var ve *ValidationError
	return errors.As(err, &ve)
}
