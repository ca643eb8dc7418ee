package usecase

import (
	"errors"

	"github.com/xavierca1/prospect-crm/internal/entity"
)

const (
	CodeValidation = "VALIDATION_ERROR"
	CodeNotFound   = "NOT_FOUND"
	CodeConflict   = "CONFLICT"
	CodeDatabase   = "DATABASE_ERROR"
)

// DomainError is a rejection the caller can act on (bad input, missing row).
type DomainError struct {
	Code    string
	Message string
	Err     error
}

func (e *DomainError) Error() string {
	return e.Message
}

func (e *DomainError) Unwrap() error {
	return e.Err
}

func IsDomainError(err error) bool {
	var de *DomainError
	return errors.As(err, &de)
}

// TechnicalError is a gateway or infrastructure failure.
type TechnicalError struct {
	Code    string
	Message string
	Err     error
}

func (e *TechnicalError) Error() string {
	return e.Message
}

func (e *TechnicalError) Unwrap() error {
	return e.Err
}

func IsTechnicalError(err error) bool {
	var te *TechnicalError
	return errors.As(err, &te)
}

// ErrorCode returns the code carried by a DomainError or TechnicalError.
func ErrorCode(err error) string {
	var de *DomainError
	if errors.As(err, &de) {
		return de.Code
	}
	var te *TechnicalError
	if errors.As(err, &te) {
		return te.Code
	}
	return ""
}

// gatewayError classifies an error coming back from the persistence gateway.
func gatewayError(op string, err error) error {
	switch {
	case errors.Is(err, entity.ErrProspectNotFound):
		return &DomainError{Code: CodeNotFound, Message: op + ": prospect not found", Err: err}
	case errors.Is(err, entity.ErrConflict):
		return &DomainError{Code: CodeConflict, Message: op + ": " + entity.ErrConflict.Error(), Err: err}
	case errors.Is(err, entity.ErrInvalid):
		return &DomainError{Code: CodeValidation, Message: op + ": " + entity.ErrInvalid.Error(), Err: err}
	}
	return &TechnicalError{Code: CodeDatabase, Message: op + ": " + err.Error(), Err: err}
}

// PublicMessage is the text shown to API clients and in notices. Technical
// failures keep their detail in the logs only.
func PublicMessage(err error) string {
	var de *DomainError
	if errors.As(err, &de) {
		return de.Message
	}
	return "prospect store unavailable, try again later"
}
