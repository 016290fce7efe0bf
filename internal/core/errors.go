package core

import (
	"errors"
	"strings"
)

var (
	// ErrInvalidRequest is matched by every *ValidationError
	ErrInvalidRequest = errors.New("invalid request data")
	// ErrUnauthorized is returned when the credential is missing or rejected
	ErrUnauthorized = errors.New("unauthorized")
	// ErrMissingCredential narrows ErrUnauthorized to an absent Authorization header
	ErrMissingCredential = errors.New("missing authorization header")
	// ErrProfileNotFound is returned when a valid principal has no profile row
	ErrProfileNotFound = errors.New("user profile not found")
	// ErrClassifierUnavailable is returned when the LLM call fails
	ErrClassifierUnavailable = errors.New("classifier unavailable")
	// ErrPersistenceFailed is returned when a classified record could not be stored
	ErrPersistenceFailed = errors.New("failed to persist risk record")
	// ErrRecordNotFound is returned by record lookups that match nothing visible to the caller
	ErrRecordNotFound = errors.New("record not found")
)

// FieldError names one violated field of a request
type FieldError struct {
	Field   string `json:"field"`
	Message string `json:"message"`
}

// ValidationError carries every field violation found in a request
type ValidationError struct {
	Fields []FieldError
}

func (e *ValidationError) Error() string {
	parts := make([]string, 0, len(e.Fields))
	for _, f := range e.Fields {
		if f.Field == "" {
			parts = append(parts, f.Message)
			continue
		}
		parts = append(parts, f.Field+": "+f.Message)
	}
	return ErrInvalidRequest.Error() + ": " + strings.Join(parts, "; ")
}

// Is makes errors.Is(err, ErrInvalidRequest) hold for validation failures
func (e *ValidationError) Is(target error) bool {
	return target == ErrInvalidRequest
}
