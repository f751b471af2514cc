package groupby

import (
	"errors"
	"fmt"
)

var (
	// ErrNoNonZero is returned when a log10 aggregation is requested for a
	// vector with no non-zero entries: the pseudo-count (min non-zero / 10)
	// is undefined for an empty non-zero set.
	ErrNoNonZero = errors.New("groupby: log transform requires at least one non-zero value")

	// ErrNegativeValue is returned when a log10 aggregation encounters a
	// negative observation.
	ErrNegativeValue = errors.New("groupby: log transform requires non-negative values")
)

// ErrLengthMismatch indicates that an observation vector does not cover
// the same samples as the grouping.
type ErrLengthMismatch struct {
	Want int // samples in the grouping
	Got  int // logical length of the vector
}

func (e *ErrLengthMismatch) Error() string {
	return fmt.Sprintf("groupby: vector covers %d samples, grouping covers %d", e.Got, e.Want)
}

// ErrIndexOutOfRange indicates a sparse entry pointing outside the
// sample range of the grouping.
type ErrIndexOutOfRange struct {
	Index int
	Len   int
}

func (e *ErrIndexOutOfRange) Error() string {
	return fmt.Sprintf("groupby: sparse index %d out of range [0, %d)", e.Index, e.Len)
}

// ErrGroupOutOfRange indicates a group assignment outside [0, NumGroups).
type ErrGroupOutOfRange struct {
	Group     int
	NumGroups int
	Sample    int
}

func (e *ErrGroupOutOfRange) Error() string {
	return fmt.Sprintf("groupby: sample %d assigned to group %d, want [0, %d)", e.Sample, e.Group, e.NumGroups)
}

// ErrUnknownTransform indicates an unsupported transform value.
type ErrUnknownTransform struct {
	Transform Transform
}

func (e *ErrUnknownTransform) Error() string {
	return fmt.Sprintf("groupby: unknown transform: %d", e.Transform)
}
