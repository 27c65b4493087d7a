package mashup

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/rs/zerolog"
	"github.com/vmihailenco/msgpack/v5"

	"github.com/epoch-iith/qmashup/internal/database"
	"github.com/epoch-iith/qmashup/internal/domain"
	"github.com/epoch-iith/qmashup/internal/modules/diagnostics"
	"github.com/epoch-iith/qmashup/internal/modules/pathing"
	"github.com/epoch-iith/qmashup/internal/modules/quantum"
)

// Repository persists runs in runs.db
type Repository struct {
	db  *sql.DB
	log zerolog.Logger
}

// NewRepository creates a run repository
func NewRepository(db *sql.DB, log zerolog.Logger) *Repository {
	return &Repository{
		db:  db,
		log: log.With().Str("repository", "runs").Logger(),
	}
}

// Save stores a run with its per-step diagnostics and both trajectories
func (r *Repository) Save(ctx context.Context, run *Run, bio, base *quantum.Trajectory) error {
	params, err := msgpack.Marshal(run.Params)
	if err != nil {
		return fmt.Errorf("failed to encode params: %w", err)
	}
	report, err := msgpack.Marshal(run.Report)
	if err != nil {
		return fmt.Errorf("failed to encode report: %w", err)
	}
	stitch, err := msgpack.Marshal(run.Stitch)
	if err != nil {
		return fmt.Errorf("failed to encode stitch plan: %w", err)
	}
	path, err := json.Marshal(run.Path.Nodes)
	if err != nil {
		return fmt.Errorf("failed to encode path: %w", err)
	}
	baseline, err := json.Marshal(run.Baseline)
	if err != nil {
		return fmt.Errorf("failed to encode baseline: %w", err)
	}

	return database.WithTransaction(r.db, func(tx *sql.Tx) error {
		_, err := tx.ExecContext(ctx, `
			INSERT INTO runs (id, graph_id, variant, params, requested, path, baseline_path, truncated,
				report, stitch, first_divergence, divergence_fraction, mean_l1, entropy_shift, export_key, created_at)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		`, run.ID, run.Params.GraphID, run.Params.Variant, params, run.Path.Requested,
			string(path), string(baseline), boolToInt(run.Path.Truncated), report, stitch,
			run.Report.Divergence.FirstDivergence, run.Report.Divergence.Fraction,
			run.Report.Trajectories.MeanL1, run.Report.Trajectories.EntropyShift,
			run.ExportKey, run.CreatedAt.Unix())
		if err != nil {
			return fmt.Errorf("failed to insert run %s: %w", run.ID, err)
		}

		if err := insertSteps(ctx, tx, run); err != nil {
			return err
		}

		for kind, traj := range map[string]*quantum.Trajectory{TrajectoryBio: bio, TrajectoryBase: base} {
			if traj == nil {
				continue
			}
			steps, nodes := traj.Dims()
			data, err := msgpack.Marshal(traj.RawData())
			if err != nil {
				return fmt.Errorf("failed to encode %s trajectory: %w", kind, err)
			}
			if _, err := tx.ExecContext(ctx, `
				INSERT INTO trajectories (run_id, kind, steps, nodes, data) VALUES (?, ?, ?, ?, ?)
			`, run.ID, kind, steps, nodes, data); err != nil {
				return fmt.Errorf("failed to insert %s trajectory: %w", kind, err)
			}
		}
		return nil
	})
}

func insertSteps(ctx context.Context, tx *sql.Tx, run *Run) error {
	stmt, err := tx.PrepareContext(ctx, `
		INSERT INTO run_steps (run_id, step, t, node, segment_id, probability, similarity, bio_influence, candidates, degenerate)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`)
	if err != nil {
		return fmt.Errorf("failed to prepare step insert: %w", err)
	}
	defer stmt.Close()

	for i, s := range run.Path.Steps {
		candidates, err := json.Marshal(s.Candidates)
		if err != nil {
			return fmt.Errorf("failed to encode candidates: %w", err)
		}
		var similarity sql.NullFloat64
		if s.Similarity != nil {
			similarity = sql.NullFloat64{Float64: *s.Similarity, Valid: true}
		}
		segmentID := ""
		if i < len(run.Stitch.Segments) {
			segmentID = run.Stitch.Segments[i].SegmentID
		}
		if _, err := stmt.ExecContext(ctx, run.ID, s.Step, s.Time, s.Node, segmentID,
			s.Probability, similarity, s.BioInfluence, string(candidates), boolToInt(s.Degenerate)); err != nil {
			return fmt.Errorf("failed to insert step %d: %w", s.Step, err)
		}
	}
	return nil
}

// Get loads a run with its steps. Returns domain.ErrNotFound for unknown ids.
func (r *Repository) Get(ctx context.Context, id string) (*Run, error) {
	var (
		run                    = &Run{ID: id}
		params, report, stitch []byte
		path, baseline         string
		truncated              int
		created                int64
	)
	err := r.db.QueryRowContext(ctx, `
		SELECT params, requested, path, baseline_path, truncated, report, stitch, export_key, created_at
		FROM runs WHERE id = ?
	`, id).Scan(&params, &run.Path.Requested, &path, &baseline, &truncated, &report, &stitch, &run.ExportKey, &created)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("run %s: %w", id, domain.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get run %s: %w", id, err)
	}

	if err := msgpack.Unmarshal(params, &run.Params); err != nil {
		return nil, fmt.Errorf("failed to decode params of run %s: %w", id, err)
	}
	if err := msgpack.Unmarshal(report, &run.Report); err != nil {
		return nil, fmt.Errorf("failed to decode report of run %s: %w", id, err)
	}
	if err := msgpack.Unmarshal(stitch, &run.Stitch); err != nil {
		return nil, fmt.Errorf("failed to decode stitch plan of run %s: %w", id, err)
	}
	if err := json.Unmarshal([]byte(path), &run.Path.Nodes); err != nil {
		return nil, fmt.Errorf("failed to decode path of run %s: %w", id, err)
	}
	if err := json.Unmarshal([]byte(baseline), &run.Baseline); err != nil {
		return nil, fmt.Errorf("failed to decode baseline of run %s: %w", id, err)
	}
	run.Path.Truncated = truncated != 0
	run.CreatedAt = time.Unix(created, 0).UTC()

	run.Path.Steps, err = r.steps(ctx, id)
	if err != nil {
		return nil, err
	}
	return run, nil
}

func (r *Repository) steps(ctx context.Context, id string) ([]pathing.Step, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT step, t, node, probability, similarity, bio_influence, candidates, degenerate
		FROM run_steps WHERE run_id = ? ORDER BY step
	`, id)
	if err != nil {
		return nil, fmt.Errorf("failed to get steps of run %s: %w", id, err)
	}
	defer rows.Close()

	steps := []pathing.Step{}
	for rows.Next() {
		var (
			s          pathing.Step
			similarity sql.NullFloat64
			candidates string
			degenerate int
		)
		if err := rows.Scan(&s.Step, &s.Time, &s.Node, &s.Probability, &similarity,
			&s.BioInfluence, &candidates, &degenerate); err != nil {
			return nil, fmt.Errorf("failed to scan step: %w", err)
		}
		if similarity.Valid {
			v := similarity.Float64
			s.Similarity = &v
		}
		s.Candidates = []diagnostics.Candidate{}
		if err := json.Unmarshal([]byte(candidates), &s.Candidates); err != nil {
			return nil, fmt.Errorf("failed to decode candidates: %w", err)
		}
		s.Degenerate = degenerate != 0
		steps = append(steps, s)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating steps: %w", err)
	}
	return steps, nil
}

// Trajectory loads one stored trajectory of a run
func (r *Repository) Trajectory(ctx context.Context, id, kind string) (*quantum.Trajectory, error) {
	var (
		steps, nodes int
		blob         []byte
	)
	err := r.db.QueryRowContext(ctx, `
		SELECT steps, nodes, data FROM trajectories WHERE run_id = ? AND kind = ?
	`, id, kind).Scan(&steps, &nodes, &blob)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%s trajectory of run %s: %w", kind, id, domain.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get trajectory of run %s: %w", id, err)
	}

	var data []float64
	if err := msgpack.Unmarshal(blob, &data); err != nil {
		return nil, fmt.Errorf("failed to decode trajectory of run %s: %w", id, err)
	}
	return quantum.FromRaw(steps, nodes, data)
}

// List returns the most recent runs, newest first. limit <= 0 returns all.
func (r *Repository) List(ctx context.Context, limit int) ([]RunSummary, error) {
	query := `
		SELECT id, graph_id, variant, path, truncated, first_divergence, divergence_fraction,
			mean_l1, entropy_shift, export_key, created_at
		FROM runs ORDER BY created_at DESC, id`
	args := []interface{}{}
	if limit > 0 {
		query += " LIMIT ?"
		args = append(args, limit)
	}

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list runs: %w", err)
	}
	defer rows.Close()

	summaries := []RunSummary{}
	for rows.Next() {
		var (
			s         RunSummary
			path      string
			truncated int
			created   int64
		)
		if err := rows.Scan(&s.ID, &s.GraphID, &s.Variant, &path, &truncated, &s.FirstDivergence,
			&s.DivergenceFraction, &s.MeanL1, &s.EntropyShift, &s.ExportKey, &created); err != nil {
			r.log.Warn().Err(err).Msg("Failed to scan run row")
			continue
		}
		var nodes []int
		if err := json.Unmarshal([]byte(path), &nodes); err != nil {
			r.log.Warn().Err(err).Str("run_id", s.ID).Msg("Failed to decode run path")
		}
		s.Length = len(nodes)
		s.Truncated = truncated != 0
		s.CreatedAt = time.Unix(created, 0).UTC()
		summaries = append(summaries, s)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating runs: %w", err)
	}
	return summaries, nil
}

// SetExportKey records where a run was exported to
func (r *Repository) SetExportKey(ctx context.Context, id, key string) error {
	res, err := r.db.ExecContext(ctx, "UPDATE runs SET export_key = ? WHERE id = ?", key, id)
	if err != nil {
		return fmt.Errorf("failed to set export key of run %s: %w", id, err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return fmt.Errorf("run %s: %w", id, domain.ErrNotFound)
	}
	return nil
}

// DeleteOlderThan removes runs created before cutoff and returns how many
// were deleted. Steps and trajectories go with them by cascade.
func (r *Repository) DeleteOlderThan(ctx context.Context, cutoff time.Time) (int64, error) {
	res, err := r.db.ExecContext(ctx, "DELETE FROM runs WHERE created_at < ?", cutoff.Unix())
	if err != nil {
		return 0, fmt.Errorf("failed to delete runs older than %s: %w", cutoff.Format(time.RFC3339), err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("failed to count deleted runs: %w", err)
	}
	return n, nil
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}
