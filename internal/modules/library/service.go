package library

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/epoch-iith/qmashup/internal/domain"
	"github.com/epoch-iith/qmashup/internal/modules/operator"
)

// Service imports graphs and serves them to the walk
type Service struct {
	repo *Repository
	log  zerolog.Logger
}

// NewService creates a library service
func NewService(repo *Repository, log zerolog.Logger) *Service {
	return &Service{
		repo: repo,
		log:  log.With().Str("service", "library").Logger(),
	}
}

// Import validates a graph and its segments and stores them.
//
// Segment i becomes node i; the segment count must equal the adjacency size.
// A graph at or above DenseThreshold is stored but logged as too dense.
func (s *Service) Import(ctx context.Context, req ImportRequest) (*Graph, error) {
	name := strings.TrimSpace(req.Name)
	if name == "" {
		return nil, fmt.Errorf("%w: graph name is required", domain.ErrInvalidParameter)
	}

	a, err := operator.FromRows(req.Adjacency)
	if err != nil {
		return nil, err
	}
	if req.Symmetrize {
		a = Symmetrize(a)
	}
	if err := ValidateAdjacency(a); err != nil {
		return nil, err
	}

	n, _ := a.Dims()
	if len(req.Segments) != n {
		return nil, fmt.Errorf("%w: %d segments for %d graph nodes", domain.ErrShape, len(req.Segments), n)
	}

	featurized := make([]domain.FeaturizedSegment, len(req.Segments))
	for i, in := range req.Segments {
		raw := domain.RawSegment{
			ID:          in.ID,
			ParentGroup: in.ParentGroup,
			Start:       in.Start,
			End:         in.End,
			AudioRef:    in.AudioRef,
		}
		featurized[i], err = domain.NewFeaturizedSegment(raw, in.Features, in.Key)
		if err != nil {
			return nil, fmt.Errorf("segment %d: %w", i, err)
		}
	}
	nodes, err := domain.NodesFromSegments(featurized)
	if err != nil {
		return nil, err
	}

	stats := ComputeStats(a)
	if stats.Dense() {
		s.log.Warn().
			Str("name", name).
			Float64("density", stats.Density).
			Float64("threshold", DenseThreshold).
			Msg("Graph is dense, walk selection will be weak")
	}

	g := &Graph{
		ID:        uuid.New().String(),
		Name:      name,
		Adjacency: a,
		Nodes:     nodes,
		Stats:     stats,
		CreatedAt: time.Now().UTC().Truncate(time.Second),
	}
	if err := s.repo.Create(ctx, g); err != nil {
		return nil, err
	}

	s.log.Info().
		Str("graph_id", g.ID).
		Str("name", name).
		Int("nodes", n).
		Int("edges", stats.Edges).
		Float64("avg_degree", stats.AvgDegree).
		Msg("Graph imported")

	return g, nil
}

// Get returns a stored graph
func (s *Service) Get(ctx context.Context, id string) (*Graph, error) {
	return s.repo.Get(ctx, id)
}

// List returns summaries of all stored graphs
func (s *Service) List(ctx context.Context) ([]GraphSummary, error) {
	return s.repo.List(ctx)
}

// Delete removes a stored graph
func (s *Service) Delete(ctx context.Context, id string) error {
	if err := s.repo.Delete(ctx, id); err != nil {
		return err
	}
	s.log.Info().Str("graph_id", id).Msg("Graph deleted")
	return nil
}

// Spectrum builds the operator of a stored graph and returns its eigenvalues
func (s *Service) Spectrum(ctx context.Context, id string, opts operator.Options) (operator.Spectrum, error) {
	g, err := s.repo.Get(ctx, id)
	if err != nil {
		return operator.Spectrum{}, err
	}
	h, err := operator.Build(g.Adjacency, opts)
	if err != nil {
		return operator.Spectrum{}, err
	}
	return operator.ComputeSpectrum(h)
}
