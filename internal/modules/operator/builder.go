// Package operator derives the Hermitian operator (Hamiltonian) that drives the
// quantum walk from a segment-compatibility graph.
//
// Two base forms are supported: the adjacency matrix itself (optionally
// negated) and the graph Laplacian D - A. A diagonal "bio" perturbation can be
// layered on top with a deterministic seed so that runs with and without the
// perturbation can be compared node for node.
package operator

import (
	"fmt"

	"gonum.org/v1/gonum/mat"

	"github.com/epoch-iith/qmashup/internal/domain"
)

// Mode selects the base operator derived from the adjacency matrix
type Mode string

const (
	// ModeLaplacian builds H = D - A
	ModeLaplacian Mode = "laplacian"
	// ModeAdjacency builds H = A (or -A with NegateAdjacency)
	ModeAdjacency Mode = "adjacency"
)

// Options configures Build. The same Options value must be used for every
// operator that takes part in a comparison; only Bio.Strength may differ.
type Options struct {
	Mode            Mode      `json:"mode"`
	NegateAdjacency bool      `json:"negate_adjacency"` // adjacency mode only
	Bio             BioParams `json:"bio"`
}

// Validate checks the option values
func (o Options) Validate() error {
	switch o.Mode {
	case ModeLaplacian, ModeAdjacency:
	default:
		return fmt.Errorf("%w: unknown operator mode %q", domain.ErrInvalidParameter, o.Mode)
	}
	return o.Bio.Validate()
}

// WithoutBio returns a copy of the options with the perturbation switched off
func (o Options) WithoutBio() Options {
	o.Bio.Strength = 0
	return o
}

// Build derives the operator H from adjacency a.
//
// Laplacian mode requires every node to have positive degree and fails with
// domain.ErrDegenerateInput otherwise. Shape and symmetry violations fail with
// domain.ErrShape and domain.ErrAsymmetry before anything is allocated.
func Build(a mat.Matrix, opts Options) (*mat.SymDense, error) {
	if err := opts.Validate(); err != nil {
		return nil, err
	}
	if err := CheckAdjacency(a, opts.Mode == ModeLaplacian); err != nil {
		return nil, err
	}

	n, _ := a.Dims()
	h := mat.NewSymDense(n, nil)

	switch opts.Mode {
	case ModeLaplacian:
		for i := 0; i < n; i++ {
			degree := 0.0
			for j := 0; j < n; j++ {
				degree += a.At(i, j)
			}
			for j := i; j < n; j++ {
				if i == j {
					h.SetSym(i, i, degree-a.At(i, i))
					continue
				}
				// Average the pair so a within-tolerance asymmetry cannot leak in
				h.SetSym(i, j, -0.5*(a.At(i, j)+a.At(j, i)))
			}
		}
	case ModeAdjacency:
		sign := 1.0
		if opts.NegateAdjacency {
			sign = -1.0
		}
		for i := 0; i < n; i++ {
			for j := i; j < n; j++ {
				h.SetSym(i, j, sign*0.5*(a.At(i, j)+a.At(j, i)))
			}
		}
	}

	if opts.Bio.Strength > 0 {
		diag, err := BioDiagonal(n, opts.Bio.Source, opts.Bio.Seed)
		if err != nil {
			return nil, err
		}
		for i, v := range diag {
			h.SetSym(i, i, h.At(i, i)+opts.Bio.Strength*v)
		}
	}

	if err := CheckSymmetric(h, SymmetryTolerance); err != nil {
		return nil, fmt.Errorf("operator postcondition: %w", err)
	}

	return h, nil
}

// BuildPair builds the reference operator (no perturbation) and the perturbed
// operator from one Options value so both share mode and sign convention.
func BuildPair(a mat.Matrix, opts Options) (base, perturbed *mat.SymDense, err error) {
	base, err = Build(a, opts.WithoutBio())
	if err != nil {
		return nil, nil, fmt.Errorf("failed to build base operator: %w", err)
	}
	perturbed, err = Build(a, opts)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to build perturbed operator: %w", err)
	}
	return base, perturbed, nil
}
