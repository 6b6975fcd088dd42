package ngram

import (
	"errors"
	"fmt"
)

var (
	// ErrValidation is returned for malformed or out-of-range request parameters.
	ErrValidation = errors.New("invalid parameter")
	// ErrNoModelsLoaded is returned when the active set has no usable model.
	ErrNoModelsLoaded = errors.New("no models loaded")
	// ErrModelOrderUnavailable is returned when a random seed asks for an order
	// that no loaded model was trained with.
	ErrModelOrderUnavailable = errors.New("model order unavailable")
	// ErrTooLong is returned when a generated word exceeds the hard length limit.
	ErrTooLong = errors.New("generated word too long")
	// ErrModelNotFound is returned when a named corpus source does not exist.
	ErrModelNotFound = errors.New("model not found")
	// ErrParse is matched by every ParseError.
	ErrParse = errors.New("corpus parse error")
)

// ParseError describes a corpus that could not be read or parsed.
type ParseError struct {
	Source string
	Line   int
	Err    error
}

func (e *ParseError) Error() string {
	if e.Line > 0 {
		return fmt.Sprintf("parse %s line %d: %v", e.Source, e.Line, e.Err)
	}
	return fmt.Sprintf("parse %s: %v", e.Source, e.Err)
}

func (e *ParseError) Unwrap() error { return e.Err }

// Is makes errors.Is(err, ErrParse) true for any *ParseError.
func (e *ParseError) Is(target error) bool { return target == ErrParse }

func validationf(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrValidation, fmt.Sprintf(format, args...))
}
