// Package pathing turns a probability trajectory into an ordered path of
// graph nodes, one pick per time step, with a short FIFO memory that keeps
// recently chosen nodes out of the candidate set.
package pathing

import (
	"fmt"

	"github.com/epoch-iith/qmashup/internal/domain"
)

// Selection chooses how a node is picked from a masked row
type Selection string

const (
	// SelectArgmax picks the most probable node; ties go to the lowest index
	SelectArgmax Selection = "argmax"
	// SelectSample draws from the renormalised masked row with a seeded source
	SelectSample Selection = "sample"
)

// ShortPathPolicy decides what happens when the trajectory runs out before
// the requested length is reached
type ShortPathPolicy string

const (
	// ShortPathTruncate returns the shorter path flagged as truncated
	ShortPathTruncate ShortPathPolicy = "truncate"
	// ShortPathError fails with domain.ErrExhaustedTrajectory
	ShortPathError ShortPathPolicy = "error"
)

const (
	DefaultMemoryWindow = 3
	TopCandidates       = 5
)

// Options configures Extract
type Options struct {
	Length       int       `json:"length"`        // L >= 1
	Selection    Selection `json:"selection"`     // Defaults to argmax
	MemoryWindow int       `json:"memory_window"` // 0 disables the memory
	Seed         uint64    `json:"seed"`          // Sample mode only
	// Horizon caps the number of trajectory rows considered; 0 uses all rows
	Horizon   int             `json:"horizon,omitempty"`
	ShortPath ShortPathPolicy `json:"short_path"` // Defaults to truncate
}

// DefaultOptions returns argmax selection with the default memory window
func DefaultOptions(length int) Options {
	return Options{
		Length:       length,
		Selection:    SelectArgmax,
		MemoryWindow: DefaultMemoryWindow,
		ShortPath:    ShortPathTruncate,
	}
}

// Validate checks the options against a trajectory over n nodes
func (o Options) Validate(n int) error {
	if o.Length < 1 {
		return fmt.Errorf("%w: path length must be >= 1, got %d", domain.ErrInvalidParameter, o.Length)
	}
	switch o.Selection {
	case "", SelectArgmax, SelectSample:
	default:
		return fmt.Errorf("%w: unknown selection %q", domain.ErrInvalidParameter, o.Selection)
	}
	if o.MemoryWindow < 0 || o.MemoryWindow >= n {
		return fmt.Errorf("%w: memory window %d must be in [0,%d)", domain.ErrInvalidParameter, o.MemoryWindow, n)
	}
	if o.Horizon < 0 {
		return fmt.Errorf("%w: horizon must be >= 0, got %d", domain.ErrInvalidParameter, o.Horizon)
	}
	switch o.ShortPath {
	case "", ShortPathTruncate, ShortPathError:
	default:
		return fmt.Errorf("%w: unknown short path policy %q", domain.ErrInvalidParameter, o.ShortPath)
	}
	return nil
}
