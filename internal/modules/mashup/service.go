package mashup

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"

	"github.com/epoch-iith/qmashup/internal/config"
	"github.com/epoch-iith/qmashup/internal/domain"
	"github.com/epoch-iith/qmashup/internal/modules/diagnostics"
	"github.com/epoch-iith/qmashup/internal/modules/library"
	"github.com/epoch-iith/qmashup/internal/modules/operator"
	"github.com/epoch-iith/qmashup/internal/modules/pathing"
	"github.com/epoch-iith/qmashup/internal/modules/quantum"
)

// GraphSource loads graphs from the library
type GraphSource interface {
	Get(ctx context.Context, id string) (*library.Graph, error)
}

// Exporter uploads run artifacts and returns where they were stored
type Exporter interface {
	Export(ctx context.Context, artifact *Artifact) (string, error)
}

// Service generates and serves mashup runs
type Service struct {
	graphs    GraphSource
	repo      *Repository
	engine    *quantum.Engine
	extractor *pathing.Extractor
	exporter  Exporter
	walk      config.WalkConfig
	audio     config.AudioConfig
	log       zerolog.Logger
}

// NewService creates a mashup service
func NewService(
	graphs GraphSource,
	repo *Repository,
	engine *quantum.Engine,
	extractor *pathing.Extractor,
	walk config.WalkConfig,
	audio config.AudioConfig,
	log zerolog.Logger,
) *Service {
	return &Service{
		graphs:    graphs,
		repo:      repo,
		engine:    engine,
		extractor: extractor,
		walk:      walk,
		audio:     audio,
		log:       log.With().Str("service", "mashup").Logger(),
	}
}

// SetExporter enables run export (for dependency injection)
func (s *Service) SetExporter(exporter Exporter) {
	s.exporter = exporter
}

// Generate runs the full pipeline for one request: resolve parameters, build
// the unperturbed and perturbed operators from one options value, evolve
// both concurrently, extract and compare paths, build the stitch plan and
// persist the run. An export failure is logged and leaves the run stored
// without an export key.
func (s *Service) Generate(ctx context.Context, req Request) (*Run, error) {
	began := time.Now()
	variant := req.Variant
	if variant == "" {
		variant = VariantApp
	}

	run, err := s.generate(ctx, req)
	if err != nil {
		runsTotal.WithLabelValues(variant, "error").Inc()
		return nil, err
	}

	runsTotal.WithLabelValues(run.Params.Variant, "ok").Inc()
	runDuration.WithLabelValues(run.Params.Variant).Observe(time.Since(began).Seconds())
	return run, nil
}

func (s *Service) generate(ctx context.Context, req Request) (*Run, error) {
	params, err := Resolve(req, s.walk)
	if err != nil {
		return nil, err
	}

	g, err := s.graphs.Get(ctx, params.GraphID)
	if err != nil {
		return nil, err
	}
	if params.Start >= g.Size() {
		return nil, fmt.Errorf("%w: start index %d outside [0,%d)", domain.ErrInvalidParameter, params.Start, g.Size())
	}

	base, perturbed, err := operator.BuildPair(g.Adjacency, params.Operator)
	if err != nil {
		return nil, err
	}

	var bioTraj, baseTraj *quantum.Trajectory
	eg, egCtx := errgroup.WithContext(ctx)
	eg.Go(func() error {
		if err := egCtx.Err(); err != nil {
			return err
		}
		t, err := s.engine.Evolve(perturbed, params.Start, params.Walk)
		if err != nil {
			return fmt.Errorf("perturbed evolution: %w", err)
		}
		bioTraj = t
		return nil
	})
	eg.Go(func() error {
		if err := egCtx.Err(); err != nil {
			return err
		}
		t, err := s.engine.Evolve(base, params.Start, params.Walk)
		if err != nil {
			return fmt.Errorf("base evolution: %w", err)
		}
		baseTraj = t
		return nil
	})
	if err := eg.Wait(); err != nil {
		return nil, err
	}

	path, err := s.extractor.Extract(bioTraj, g.Adjacency, baseTraj, params.Path)
	if err != nil {
		return nil, err
	}
	baseline, err := s.extractor.Extract(baseTraj, g.Adjacency, nil, params.Path)
	if err != nil {
		return nil, err
	}

	trajectories, err := diagnostics.CompareTrajectories(baseTraj, bioTraj)
	if err != nil {
		return nil, err
	}
	groups, err := diagnostics.GroupTransitions(path.Nodes, g.Groups())
	if err != nil {
		return nil, err
	}
	greedy, err := pathing.Greedy(g.Adjacency, pathing.GreedyOptions{
		Start:  params.Start,
		Length: len(path.Nodes),
		Keys:   g.Keys(),
	})
	if err != nil {
		return nil, err
	}
	stitch, err := BuildStitchPlan(path.Nodes, g.Nodes, s.audio)
	if err != nil {
		return nil, err
	}

	run := &Run{
		ID:        uuid.New().String(),
		Params:    params,
		CreatedAt: time.Now().UTC().Truncate(time.Second),
		Path:      *path,
		Baseline:  baseline.Nodes,
		Report: Report{
			Divergence:   diagnostics.ComparePaths(path.Nodes, baseline.Nodes),
			Trajectories: *trajectories,
			Groups:       *groups,
			Greedy:       greedy,
		},
		Stitch: stitch,
	}

	if err := s.repo.Save(ctx, run, bioTraj, baseTraj); err != nil {
		return nil, err
	}

	if params.Export {
		s.export(ctx, run, bioTraj, baseTraj)
	}

	s.log.Info().
		Str("run_id", run.ID).
		Str("graph_id", params.GraphID).
		Str("variant", params.Variant).
		Int("start", params.Start).
		Float64("noise", params.Walk.Noise).
		Float64("bio", params.Operator.Bio.Strength).
		Int("length", len(path.Nodes)).
		Bool("truncated", path.Truncated).
		Int("first_divergence", run.Report.Divergence.FirstDivergence).
		Float64("mean_l1", trajectories.MeanL1).
		Msg("Mashup generated")

	return run, nil
}

func (s *Service) export(ctx context.Context, run *Run, bio, base *quantum.Trajectory) {
	if s.exporter == nil {
		s.log.Warn().Str("run_id", run.ID).Msg("Export requested but no bucket is configured")
		return
	}
	key, err := s.exporter.Export(ctx, NewArtifact(run, bio, base))
	if err != nil {
		s.log.Error().Err(err).Str("run_id", run.ID).Msg("Failed to export run")
		return
	}
	if err := s.repo.SetExportKey(ctx, run.ID, key); err != nil {
		s.log.Error().Err(err).Str("run_id", run.ID).Msg("Failed to record export key")
		return
	}
	run.ExportKey = key
}

// Get returns a stored run
func (s *Service) Get(ctx context.Context, id string) (*Run, error) {
	return s.repo.Get(ctx, id)
}

// List returns recent runs, newest first
func (s *Service) List(ctx context.Context, limit int) ([]RunSummary, error) {
	return s.repo.List(ctx, limit)
}

// Trajectory returns a stored trajectory of a run (TrajectoryBio or TrajectoryBase)
func (s *Service) Trajectory(ctx context.Context, id, kind string) (*quantum.Trajectory, error) {
	if kind != TrajectoryBio && kind != TrajectoryBase {
		return nil, fmt.Errorf("%w: unknown trajectory kind %q", domain.ErrInvalidParameter, kind)
	}
	return s.repo.Trajectory(ctx, id, kind)
}

// Trace returns one node's smoothed probability over a stored trajectory
func (s *Service) Trace(ctx context.Context, id, kind string, node, period int) (*diagnostics.Trace, error) {
	traj, err := s.Trajectory(ctx, id, kind)
	if err != nil {
		return nil, err
	}
	return diagnostics.NodeTrace(traj, node, period)
}

// PurgeOlderThan deletes runs older than maxAge
func (s *Service) PurgeOlderThan(ctx context.Context, maxAge time.Duration) (int64, error) {
	cutoff := time.Now().Add(-maxAge)
	n, err := s.repo.DeleteOlderThan(ctx, cutoff)
	if err != nil {
		return 0, err
	}
	runsDeleted.Add(float64(n))
	s.log.Info().
		Int64("deleted", n).
		Time("cutoff", cutoff).
		Msg("Old runs purged")
	return n, nil
}
