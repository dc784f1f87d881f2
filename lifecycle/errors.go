package lifecycle

import (
	"errors"
	"strings"
)

var (
	ErrValidation        = errors.New("validation failed")
	ErrForbidden         = errors.New("forbidden")
	ErrInvalidTransition = errors.New("invalid transition")
	ErrConflict          = errors.New("request was changed concurrently")
	ErrNotFound          = errors.New("request not found")
	ErrTransient         = errors.New("store temporarily unavailable")
	ErrUnauthenticated   = errors.New("not authenticated")
)

// ValidationError 收集载荷里的所有问题，不只第一个
type ValidationError struct {
	Problems []string
}

func (e *ValidationError) Error() string {
	if len(e.Problems) == 0 {
		return ErrValidation.Error()
	}
	return ErrValidation.Error() + ": " + strings.Join(e.Problems, "; ")
}

func (e *ValidationError) Is(target error) bool { return target == ErrValidation }

func (e *ValidationError) add(p string) { e.Problems = append(e.Problems, p) }

func (e *ValidationError) orNil() error {
	if len(e.Problems) == 0 {
		return nil
	}
	return e
}
