package cline

import (
	"errors"
	"fmt"

	"github.com/strataseq/cline/groupby"
)

var (
	// ErrInvalidInput is returned when a feature column or grouping fails
	// validation before any aggregation happens.
	ErrInvalidInput = errors.New("invalid input")

	// ErrUnknownFeature is returned when a feature label is not present
	// in the matrix.
	ErrUnknownFeature = errors.New("unknown feature")

	// ErrNoReference is returned when a screen is requested but the
	// grouping carries no reference axis to correlate against.
	ErrNoReference = errors.New("no reference axis configured")
)

func translateError(err error) error {
	if err == nil {
		return nil
	}

	// Kernel validation errors unify under ErrInvalidInput.
	if errors.Is(err, groupby.ErrNoNonZero) || errors.Is(err, groupby.ErrNegativeValue) {
		return fmt.Errorf("%w: %w", ErrInvalidInput, err)
	}
	var lm *groupby.ErrLengthMismatch
	if errors.As(err, &lm) {
		return fmt.Errorf("%w: %w", ErrInvalidInput, err)
	}
	var ir *groupby.ErrIndexOutOfRange
	if errors.As(err, &ir) {
		return fmt.Errorf("%w: %w", ErrInvalidInput, err)
	}
	var gr *groupby.ErrGroupOutOfRange
	if errors.As(err, &gr) {
		return fmt.Errorf("%w: %w", ErrInvalidInput, err)
	}
	var ut *groupby.ErrUnknownTransform
	if errors.As(err, &ut) {
		return fmt.Errorf("%w: %w", ErrInvalidInput, err)
	}

	return err
}
