// Package storage provides the data persistence layer for bimtally.
package storage

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/mbagrov/bimtally/internal/model"
	"github.com/mbagrov/bimtally/internal/service"
)

// Validation errors.
var (
	ErrNilContext   = errors.New("context cannot be nil")
	ErrEmptyString  = errors.New("string parameter cannot be empty")
	ErrNilParameter = errors.New("parameter cannot be nil")
	ErrInvalidMatch = errors.New("invalid cached match")
	ErrInvalidRun   = errors.New("invalid run record")
)

// validateContext ensures the context is not nil.
func validateContext(ctx context.Context) error {
	if ctx == nil {
		return ErrNilContext
	}
	return nil
}

// validateString ensures a string parameter is not empty.
func validateString(s string, paramName string) error {
	if strings.TrimSpace(s) == "" {
		return fmt.Errorf("%w: %s", ErrEmptyString, paramName)
	}
	return nil
}

// validateCachedMatch validates a match before persisting it.
func validateCachedMatch(match *service.CachedMatch) error {
	if match == nil {
		return fmt.Errorf("%w: match", ErrNilParameter)
	}
	if strings.TrimSpace(match.Name) == "" {
		return fmt.Errorf("%w: name is required", ErrInvalidMatch)
	}
	if strings.TrimSpace(match.Label) == "" {
		return fmt.Errorf("%w: label is required", ErrInvalidMatch)
	}
	return nil
}

// validateRun validates a run record before persisting it.
func validateRun(run *model.RunRecord) error {
	if run == nil {
		return fmt.Errorf("%w: run", ErrNilParameter)
	}
	if run.TolerancePct < 0 {
		return fmt.Errorf("%w: tolerance cannot be negative", ErrInvalidRun)
	}
	return nil
}
