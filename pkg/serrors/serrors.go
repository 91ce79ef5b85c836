package serrors

import "fmt"

// BaseError is a coded error suitable for surfacing to API clients.
// Code is stable and machine-readable; Message is a human-readable default;
// Details carries optional free-form context.
type BaseError struct {
	Code    string
	Message string
	Details string
}

func (e *BaseError) Error() string {
	if e.Details == "" {
		return e.Message
	}
	return fmt.Sprintf("%s: %s", e.Message, e.Details)
}

func NewError(code, message, details string) *BaseError {
	return &BaseError{Code: code, Message: message, Details: details}
}
