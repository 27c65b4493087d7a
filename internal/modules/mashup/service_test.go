package mashup

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/epoch-iith/qmashup/internal/config"
	"github.com/epoch-iith/qmashup/internal/database"
	"github.com/epoch-iith/qmashup/internal/domain"
	"github.com/epoch-iith/qmashup/internal/modules/library"
	"github.com/epoch-iith/qmashup/internal/modules/pathing"
	"github.com/epoch-iith/qmashup/internal/modules/quantum"
	testutil "github.com/epoch-iith/qmashup/internal/testing"
)

var testAudio = config.AudioConfig{SampleRate: 22050, CrossfadeMS: 80}

type fixture struct {
	service *Service
	repo    *Repository
	runsDB  *database.DB
	graphID string
}

type fakeExporter struct {
	artifacts []*Artifact
	err       error
}

func (f *fakeExporter) Export(_ context.Context, artifact *Artifact) (string, error) {
	if f.err != nil {
		return "", f.err
	}
	f.artifacts = append(f.artifacts, artifact)
	return "runs/" + artifact.Run.ID + ".msgpack", nil
}

// ringImport builds an n-node ring whose segments alternate between two songs
func ringImport(n int) library.ImportRequest {
	rows := make([][]float64, n)
	for i := range rows {
		rows[i] = make([]float64, n)
	}
	segments := make([]library.SegmentInput, n)
	for i := 0; i < n; i++ {
		j := (i + 1) % n
		rows[i][j] = 1
		rows[j][i] = 1
		segments[i] = library.SegmentInput{
			ID:          fmt.Sprintf("seg_%02d", i),
			ParentGroup: fmt.Sprintf("song_%d", i%2),
			Start:       float64(i),
			End:         float64(i) + 1,
			AudioRef:    fmt.Sprintf("segments/seg_%02d.wav", i),
		}
	}
	return library.ImportRequest{Name: "ring", Adjacency: rows, Segments: segments}
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	log := zerolog.New(nil).Level(zerolog.Disabled)

	libDB, cleanupLib := testutil.NewTestDB(t, database.NameLibrary)
	t.Cleanup(cleanupLib)
	runsDB, cleanupRuns := testutil.NewTestDB(t, database.NameRuns)
	t.Cleanup(cleanupRuns)

	graphs := library.NewService(library.NewRepository(libDB.Conn(), log), log)
	g, err := graphs.Import(context.Background(), ringImport(8))
	require.NoError(t, err)

	repo := NewRepository(runsDB.Conn(), log)
	svc := NewService(graphs, repo, quantum.NewEngine(log), pathing.NewExtractor(log), testWalk, testAudio, log)
	return &fixture{service: svc, repo: repo, runsDB: runsDB, graphID: g.ID}
}

func TestService_Generate(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	run, err := f.service.Generate(ctx, Request{GraphID: f.graphID, Start: 0})
	require.NoError(t, err)

	assert.NotEmpty(t, run.ID)
	assert.Equal(t, VariantApp, run.Params.Variant)
	assert.Len(t, run.Path.Nodes, 20)
	assert.False(t, run.Path.Truncated)
	assert.Len(t, run.Baseline, 20)
	assert.Equal(t, 20, run.Report.Divergence.Compared)
	assert.Len(t, run.Report.Trajectories.L1, 150)
	// The greedy baseline never revisits, so it stops once the ring is covered
	assert.Len(t, run.Report.Greedy, 8)
	assert.Equal(t, 0, run.Report.Greedy[0])

	require.Len(t, run.Stitch.Segments, 20)
	assert.Equal(t, 1764, run.Stitch.CrossfadeSamples)
	for i, seg := range run.Stitch.Segments {
		assert.Equal(t, run.Path.Nodes[i], seg.Node)
		assert.Equal(t, fmt.Sprintf("segments/seg_%02d.wav", seg.Node), seg.AudioRef)
	}

	// No node repeats within the memory window
	for i := range run.Path.Nodes {
		for j := max(0, i-3); j < i; j++ {
			assert.NotEqual(t, run.Path.Nodes[j], run.Path.Nodes[i], "step %d repeats step %d", i, j)
		}
	}

	stored, err := f.service.Get(ctx, run.ID)
	require.NoError(t, err)
	assert.Equal(t, run.Path.Nodes, stored.Path.Nodes)
	assert.Equal(t, run.Baseline, stored.Baseline)
	assert.Equal(t, run.Params, stored.Params)
	assert.Equal(t, run.CreatedAt, stored.CreatedAt)
	assert.Equal(t, run.Stitch, stored.Stitch)
	assert.Equal(t, run.Report.Divergence.FirstDivergence, stored.Report.Divergence.FirstDivergence)
	require.Len(t, stored.Path.Steps, 20)
	assert.Nil(t, stored.Path.Steps[0].Similarity)
	assert.NotNil(t, stored.Path.Steps[1].Similarity)
	assert.InDelta(t, run.Path.Steps[5].Probability, stored.Path.Steps[5].Probability, 1e-12)
	assert.Equal(t, run.Path.Steps[5].Candidates, stored.Path.Steps[5].Candidates)
}

func TestService_GenerateDeterministic(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	for _, req := range []Request{
		{GraphID: f.graphID, Start: 3},
		{GraphID: f.graphID, Start: 3, Selection: pathing.SelectSample, Seed: 7},
		{GraphID: f.graphID, Start: 1, Variant: VariantDecoherence, Noise: ptr(0.8)},
	} {
		first, err := f.service.Generate(ctx, req)
		require.NoError(t, err)
		second, err := f.service.Generate(ctx, req)
		require.NoError(t, err)

		assert.NotEqual(t, first.ID, second.ID)
		assert.Equal(t, first.Path.Nodes, second.Path.Nodes)
		assert.Equal(t, first.Baseline, second.Baseline)
	}
}

func TestService_GenerateWithoutBio(t *testing.T) {
	f := newFixture(t)

	run, err := f.service.Generate(context.Background(), Request{GraphID: f.graphID, Bio: ptr(0.0)})
	require.NoError(t, err)

	assert.True(t, run.Report.Divergence.Identical())
	assert.Equal(t, -1, run.Report.Divergence.FirstDivergence)
	assert.InDelta(t, 0, run.Report.Trajectories.MeanL1, 1e-12)
	for _, s := range run.Path.Steps {
		assert.InDelta(t, 0, s.BioInfluence, 1e-12)
	}
}

func TestService_GenerateExactHorizon(t *testing.T) {
	f := newFixture(t)

	run, err := f.service.Generate(context.Background(), Request{
		GraphID: f.graphID,
		Variant: VariantExact,
		Length:  80,
	})
	require.NoError(t, err)

	assert.Len(t, run.Path.Nodes, 60)
	assert.True(t, run.Path.Truncated)
	assert.Equal(t, 80, run.Path.Requested)

	_, err = f.service.Generate(context.Background(), Request{
		GraphID:   f.graphID,
		Variant:   VariantExact,
		Length:    80,
		ShortPath: pathing.ShortPathError,
	})
	assert.ErrorIs(t, err, domain.ErrExhaustedTrajectory)
}

func TestService_GenerateErrors(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	_, err := f.service.Generate(ctx, Request{GraphID: "missing"})
	assert.ErrorIs(t, err, domain.ErrNotFound)

	_, err = f.service.Generate(ctx, Request{GraphID: f.graphID, Start: 8})
	assert.ErrorIs(t, err, domain.ErrInvalidParameter)

	_, err = f.service.Generate(ctx, Request{GraphID: f.graphID, MemoryWindow: ptr(8)})
	assert.ErrorIs(t, err, domain.ErrInvalidParameter)

	// A dt large enough to overflow the amplitudes
	_, err = f.service.Generate(ctx, Request{GraphID: f.graphID, Dt: 1e308})
	assert.ErrorIs(t, err, domain.ErrNonFinite)
	_, err = f.service.Generate(ctx, Request{GraphID: f.graphID, Dt: 1e308, Selection: pathing.SelectSample, Seed: 3})
	assert.ErrorIs(t, err, domain.ErrNonFinite)

	runs, err := f.service.List(ctx, 0)
	require.NoError(t, err)
	assert.Empty(t, runs)
}

func TestService_Export(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	// Without an exporter the run is stored unexported
	run, err := f.service.Generate(ctx, Request{GraphID: f.graphID, Export: true})
	require.NoError(t, err)
	assert.Empty(t, run.ExportKey)

	exporter := &fakeExporter{}
	f.service.SetExporter(exporter)

	run, err = f.service.Generate(ctx, Request{GraphID: f.graphID, Export: true})
	require.NoError(t, err)
	require.Len(t, exporter.artifacts, 1)
	assert.Equal(t, "runs/"+run.ID+".msgpack", run.ExportKey)
	assert.Len(t, exporter.artifacts[0].Bio, 150*8)

	stored, err := f.service.Get(ctx, run.ID)
	require.NoError(t, err)
	assert.Equal(t, run.ExportKey, stored.ExportKey)

	// Not requested
	_, err = f.service.Generate(ctx, Request{GraphID: f.graphID})
	require.NoError(t, err)
	assert.Len(t, exporter.artifacts, 1)

	// Upload failures keep the run
	exporter.err = errors.New("bucket unavailable")
	run, err = f.service.Generate(ctx, Request{GraphID: f.graphID, Export: true})
	require.NoError(t, err)
	assert.Empty(t, run.ExportKey)
	_, err = f.service.Get(ctx, run.ID)
	assert.NoError(t, err)
}

func TestService_TrajectoryAndTrace(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	run, err := f.service.Generate(ctx, Request{GraphID: f.graphID, Start: 2})
	require.NoError(t, err)

	traj, err := f.service.Trajectory(ctx, run.ID, TrajectoryBio)
	require.NoError(t, err)
	steps, nodes := traj.Dims()
	assert.Equal(t, 150, steps)
	assert.Equal(t, 8, nodes)
	assert.NoError(t, traj.Validate(quantum.RowSumTolerance))
	assert.Equal(t, 1.0, traj.At(0, 2))

	_, err = f.service.Trajectory(ctx, run.ID, "other")
	assert.ErrorIs(t, err, domain.ErrInvalidParameter)
	_, err = f.service.Trajectory(ctx, "missing", TrajectoryBase)
	assert.ErrorIs(t, err, domain.ErrNotFound)

	trace, err := f.service.Trace(ctx, run.ID, TrajectoryBase, 2, 0)
	require.NoError(t, err)
	assert.Len(t, trace.Raw, 150)
	assert.Equal(t, 0, trace.PeakStep)

	_, err = f.service.Trace(ctx, run.ID, TrajectoryBase, 8, 0)
	assert.ErrorIs(t, err, domain.ErrInvalidParameter)
}

func TestService_PurgeOlderThan(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	old, err := f.service.Generate(ctx, Request{GraphID: f.graphID})
	require.NoError(t, err)
	recent, err := f.service.Generate(ctx, Request{GraphID: f.graphID})
	require.NoError(t, err)

	_, err = f.runsDB.Conn().Exec("UPDATE runs SET created_at = ? WHERE id = ?",
		time.Now().Add(-48*time.Hour).Unix(), old.ID)
	require.NoError(t, err)

	n, err := f.service.PurgeOlderThan(ctx, 24*time.Hour)
	require.NoError(t, err)
	assert.Equal(t, int64(1), n)

	_, err = f.service.Get(ctx, old.ID)
	assert.ErrorIs(t, err, domain.ErrNotFound)
	_, err = f.service.Trajectory(ctx, old.ID, TrajectoryBio)
	assert.ErrorIs(t, err, domain.ErrNotFound)

	runs, err := f.service.List(ctx, 10)
	require.NoError(t, err)
	require.Len(t, runs, 1)
	assert.Equal(t, recent.ID, runs[0].ID)
	assert.Equal(t, 20, runs[0].Length)
}
