package domain

import "errors"

// Sentinel errors shared by the operator, walk and extraction modules.
// Return them wrapped with fmt.Errorf("ctx: %w", ErrX); match with errors.Is.
var (
	// ErrShape is returned when a matrix is not square, is empty, or its size
	// does not match the declared node count.
	ErrShape = errors.New("qmashup: invalid matrix shape")

	// ErrAsymmetry is returned when an adjacency or operator fails the
	// symmetric check within tolerance.
	ErrAsymmetry = errors.New("qmashup: matrix is not symmetric within tolerance")

	// ErrDegenerateInput is returned for structurally unusable graphs, e.g. an
	// isolated node (zero degree row).
	ErrDegenerateInput = errors.New("qmashup: degenerate graph input")

	// ErrNonFinite is returned when NaN or ±Inf appears in an input matrix.
	ErrNonFinite = errors.New("qmashup: NaN or Inf encountered")

	// ErrInvalidParameter is returned for out-of-range walk or extraction
	// parameters (λ outside [0,1], dt <= 0, start index out of range, ...).
	ErrInvalidParameter = errors.New("qmashup: invalid parameter")

	// ErrExhaustedTrajectory is returned by strict path extraction when the
	// trajectory ends before the requested path length is reached.
	ErrExhaustedTrajectory = errors.New("qmashup: trajectory exhausted before path length reached")

	// ErrNotFound is returned by repositories for missing graphs or runs.
	ErrNotFound = errors.New("qmashup: not found")
)

// IsValidation reports whether err is caused by caller-supplied input and
// should be surfaced as a client error.
func IsValidation(err error) bool {
	return errors.Is(err, ErrShape) ||
		errors.Is(err, ErrAsymmetry) ||
		errors.Is(err, ErrDegenerateInput) ||
		errors.Is(err, ErrNonFinite) ||
		errors.Is(err, ErrInvalidParameter) ||
		errors.Is(err, ErrExhaustedTrajectory)
}
