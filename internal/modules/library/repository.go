package library

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/rs/zerolog"
	"github.com/vmihailenco/msgpack/v5"
	"gonum.org/v1/gonum/mat"

	"github.com/epoch-iith/qmashup/internal/database"
	"github.com/epoch-iith/qmashup/internal/domain"
)

// Repository persists graphs in library.db
type Repository struct {
	db  *sql.DB
	log zerolog.Logger
}

// NewRepository creates a graph repository
func NewRepository(db *sql.DB, log zerolog.Logger) *Repository {
	return &Repository{
		db:  db,
		log: log.With().Str("repository", "library").Logger(),
	}
}

// matrixBlob is the msgpack layout of a stored square matrix
type matrixBlob struct {
	N    int       `msgpack:"n"`
	Data []float64 `msgpack:"data"`
}

func encodeMatrix(m *mat.Dense) ([]byte, error) {
	n, _ := m.Dims()
	data := make([]float64, 0, n*n)
	for i := 0; i < n; i++ {
		data = append(data, m.RawRowView(i)...)
	}
	return msgpack.Marshal(matrixBlob{N: n, Data: data})
}

func decodeMatrix(raw []byte) (*mat.Dense, error) {
	var blob matrixBlob
	if err := msgpack.Unmarshal(raw, &blob); err != nil {
		return nil, err
	}
	if blob.N <= 0 || len(blob.Data) != blob.N*blob.N {
		return nil, fmt.Errorf("%w: stored matrix has %d values for n=%d", domain.ErrShape, len(blob.Data), blob.N)
	}
	return mat.NewDense(blob.N, blob.N, blob.Data), nil
}

// Create stores a graph and its nodes in one transaction
func (r *Repository) Create(ctx context.Context, g *Graph) error {
	blob, err := encodeMatrix(g.Adjacency)
	if err != nil {
		return fmt.Errorf("failed to encode adjacency: %w", err)
	}

	return database.WithTransaction(r.db, func(tx *sql.Tx) error {
		_, err := tx.ExecContext(ctx, `
			INSERT INTO graphs (id, name, node_count, adjacency, avg_degree, min_degree, max_degree, density, created_at)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
		`, g.ID, g.Name, len(g.Nodes), blob,
			g.Stats.AvgDegree, g.Stats.MinDegree, g.Stats.MaxDegree, g.Stats.Density,
			g.CreatedAt.Unix())
		if err != nil {
			return fmt.Errorf("failed to insert graph %s: %w", g.ID, err)
		}

		stmt, err := tx.PrepareContext(ctx, `
			INSERT INTO segments (graph_id, node_index, segment_id, parent_group, audio_ref, musical_key)
			VALUES (?, ?, ?, ?, ?, ?)
		`)
		if err != nil {
			return fmt.Errorf("failed to prepare segment insert: %w", err)
		}
		defer stmt.Close()

		for _, n := range g.Nodes {
			if _, err := stmt.ExecContext(ctx, g.ID, n.Index, n.SegmentID, n.ParentGroup, n.AudioRef, n.Key); err != nil {
				return fmt.Errorf("failed to insert segment %s: %w", n.SegmentID, err)
			}
		}
		return nil
	})
}

// Get loads a graph with its adjacency and nodes.
// Returns domain.ErrNotFound when the id is unknown.
func (r *Repository) Get(ctx context.Context, id string) (*Graph, error) {
	var (
		g       = &Graph{ID: id}
		blob    []byte
		created int64
		count   int
	)
	err := r.db.QueryRowContext(ctx, `
		SELECT name, node_count, adjacency, avg_degree, min_degree, max_degree, density, created_at
		FROM graphs WHERE id = ?
	`, id).Scan(&g.Name, &count, &blob,
		&g.Stats.AvgDegree, &g.Stats.MinDegree, &g.Stats.MaxDegree, &g.Stats.Density, &created)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("graph %s: %w", id, domain.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get graph %s: %w", id, err)
	}

	g.Adjacency, err = decodeMatrix(blob)
	if err != nil {
		return nil, fmt.Errorf("failed to decode adjacency of graph %s: %w", id, err)
	}
	g.CreatedAt = time.Unix(created, 0).UTC()
	g.Stats = ComputeStats(g.Adjacency)

	rows, err := r.db.QueryContext(ctx, `
		SELECT node_index, segment_id, parent_group, audio_ref, musical_key
		FROM segments WHERE graph_id = ? ORDER BY node_index
	`, id)
	if err != nil {
		return nil, fmt.Errorf("failed to get segments of graph %s: %w", id, err)
	}
	defer rows.Close()

	for rows.Next() {
		var n domain.GraphNode
		if err := rows.Scan(&n.Index, &n.SegmentID, &n.ParentGroup, &n.AudioRef, &n.Key); err != nil {
			return nil, fmt.Errorf("failed to scan segment: %w", err)
		}
		g.Nodes = append(g.Nodes, n)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating segments: %w", err)
	}

	if len(g.Nodes) != count {
		r.log.Warn().
			Str("graph_id", id).
			Int("expected", count).
			Int("found", len(g.Nodes)).
			Msg("Segment count does not match graph size")
		return nil, fmt.Errorf("%w: graph %s has %d segments for %d nodes", domain.ErrShape, id, len(g.Nodes), count)
	}

	return g, nil
}

// List returns graph summaries, newest first
func (r *Repository) List(ctx context.Context) ([]GraphSummary, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT id, name, node_count, avg_degree, min_degree, max_degree, density, created_at
		FROM graphs ORDER BY created_at DESC, id
	`)
	if err != nil {
		return nil, fmt.Errorf("failed to list graphs: %w", err)
	}
	defer rows.Close()

	summaries := []GraphSummary{}
	for rows.Next() {
		var (
			s       GraphSummary
			created int64
		)
		if err := rows.Scan(&s.ID, &s.Name, &s.Stats.Nodes,
			&s.Stats.AvgDegree, &s.Stats.MinDegree, &s.Stats.MaxDegree, &s.Stats.Density, &created); err != nil {
			r.log.Warn().Err(err).Msg("Failed to scan graph row")
			continue
		}
		s.Stats.Edges = int(s.Stats.AvgDegree*float64(s.Stats.Nodes)+0.5) / 2
		s.CreatedAt = time.Unix(created, 0).UTC()
		summaries = append(summaries, s)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating graphs: %w", err)
	}

	return summaries, nil
}

// Delete removes a graph and, by cascade, its segments
func (r *Repository) Delete(ctx context.Context, id string) error {
	res, err := r.db.ExecContext(ctx, "DELETE FROM graphs WHERE id = ?", id)
	if err != nil {
		return fmt.Errorf("failed to delete graph %s: %w", id, err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return fmt.Errorf("graph %s: %w", id, domain.ErrNotFound)
	}
	return nil
}
