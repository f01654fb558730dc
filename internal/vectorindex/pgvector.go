package vectorindex

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/pgvector/pgvector-go"
	"github.com/rs/zerolog/log"
)

// PGVector is the Index backed by the vector_points table in Postgres.
type PGVector struct {
	db        *pgxpool.Pool
	dimension int
}

func NewPGVector(pool *pgxpool.Pool, dimension int) *PGVector {
	return &PGVector{db: pool, dimension: dimension}
}

// EnsureCollection checks the embedding column created by migrations. An
// empty table is resized to the configured dimension; a populated one with a
// different dimension is an error, since its vectors would have to be
// re-embedded.
func (p *PGVector) EnsureCollection(ctx context.Context) error {
	var typmod int
	err := p.db.QueryRow(ctx,
		`SELECT atttypmod FROM pg_attribute
		 WHERE attrelid = 'vector_points'::regclass AND attname = 'embedding'`,
	).Scan(&typmod)
	if err != nil {
		return fmt.Errorf("inspect vector_points: %w", err)
	}
	if typmod == p.dimension {
		return nil
	}

	var populated bool
	if err := p.db.QueryRow(ctx, `SELECT EXISTS (SELECT 1 FROM vector_points)`).Scan(&populated); err != nil {
		return fmt.Errorf("inspect vector_points: %w", err)
	}
	if populated {
		return fmt.Errorf("%w: vector_points.embedding has %d, configured %d", ErrDimensionMismatch, typmod, p.dimension)
	}

	resize := fmt.Sprintf(`ALTER TABLE vector_points ALTER COLUMN embedding TYPE vector(%d)`, p.dimension)
	if _, err := p.db.Exec(ctx, resize); err != nil {
		return fmt.Errorf("resize vector_points to %d: %w", p.dimension, err)
	}
	log.Info().Int("from", typmod).Int("to", p.dimension).Msg("resized empty vector_points table")
	return nil
}

func (p *PGVector) Upsert(ctx context.Context, points []Point) error {
	if len(points) == 0 {
		return nil
	}
	if err := checkDimensions(points, p.dimension); err != nil {
		return err
	}

	batch := &pgx.Batch{}
	for _, pt := range points {
		batch.Queue(
			`INSERT INTO vector_points (id, user_id, library_item_id, chunk_index, text_chunk, embedding)
			 VALUES ($1::uuid, $2, $3, $4, $5, $6)
			 ON CONFLICT (id) DO UPDATE SET
				text_chunk = EXCLUDED.text_chunk,
				embedding = EXCLUDED.embedding`,
			pt.ID, pt.Payload.UserID, pt.Payload.LibraryItemID, pt.Payload.ChunkIndex, pt.Payload.TextChunk,
			pgvector.NewVector(pt.Vector),
		)
	}

	br := p.db.SendBatch(ctx, batch)
	defer br.Close()
	for range points {
		if _, err := br.Exec(); err != nil {
			return fmt.Errorf("pgvector upsert: %w", err)
		}
	}
	return nil
}

func (p *PGVector) Search(ctx context.Context, req SearchRequest) ([]ScoredPoint, error) {
	if req.Filter.IsEmpty() {
		return nil, ErrEmptyFilter
	}
	if len(req.Vector) != p.dimension {
		return nil, fmt.Errorf("%w: query has %d, index expects %d", ErrDimensionMismatch, len(req.Vector), p.dimension)
	}

	// The owner filter is materialized first so ranking is an exact scan over
	// one document's points and never loses matches to an approximate index.
	where, args := filterClause(req.Filter, 2)
	query := `WITH owned AS MATERIALIZED (
			SELECT id, user_id, library_item_id, chunk_index, text_chunk, embedding
			FROM vector_points
			WHERE ` + where + `
		)
		SELECT id::text, user_id, library_item_id, chunk_index, text_chunk,
		       1 - (embedding <=> $1) AS score
		FROM owned
		ORDER BY embedding <=> $1, chunk_index
		LIMIT ` + fmt.Sprintf("$%d", len(args)+2)

	args = append([]any{pgvector.NewVector(req.Vector)}, args...)
	args = append(args, req.Limit)

	rows, err := p.db.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("pgvector search: %w", err)
	}
	defer rows.Close()

	hits := make([]ScoredPoint, 0, req.Limit)
	for rows.Next() {
		var hit ScoredPoint
		var score float64
		if err := rows.Scan(&hit.ID, &hit.Payload.UserID, &hit.Payload.LibraryItemID,
			&hit.Payload.ChunkIndex, &hit.Payload.TextChunk, &score); err != nil {
			return nil, err
		}
		hit.Score = float32(score)
		hits = append(hits, hit)
	}
	return hits, rows.Err()
}

func (p *PGVector) DeleteByFilter(ctx context.Context, filter Filter) error {
	if filter.IsEmpty() {
		return ErrEmptyFilter
	}

	where, args := filterClause(filter, 1)
	if _, err := p.db.Exec(ctx, `DELETE FROM vector_points WHERE `+where, args...); err != nil {
		return fmt.Errorf("pgvector delete: %w", err)
	}
	return nil
}

// filterClause renders the conjunction with placeholders starting at $first.
func filterClause(f Filter, first int) (string, []any) {
	clause := ""
	args := make([]any, 0, 3)
	add := func(column, op string, value any) {
		if clause != "" {
			clause += " AND "
		}
		clause += fmt.Sprintf("%s %s $%d", column, op, first+len(args))
		args = append(args, value)
	}
	if f.UserID != 0 {
		add("user_id", "=", f.UserID)
	}
	if f.LibraryItemID != 0 {
		add("library_item_id", "=", f.LibraryItemID)
	}
	if f.FromChunk > 0 {
		add("chunk_index", ">=", f.FromChunk)
	}
	return clause, args
}
