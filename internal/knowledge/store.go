package knowledge

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/pgvector/pgvector-go"

	"github.com/koopa0/recall/internal/retrieval"
)

// Store persists chunks in PostgreSQL with pgvector, one physical table per
// source category so partition searches never scan each other's rows.
//
// Store is safe for concurrent use by multiple goroutines.
type Store struct {
	pool   *pgxpool.Pool
	logger *slog.Logger
}

// NewStore creates a chunk Store.
func NewStore(pool *pgxpool.Pool, logger *slog.Logger) (*Store, error) {
	if pool == nil {
		return nil, fmt.Errorf("pool is required")
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Store{pool: pool, logger: logger}, nil
}

// tableFor maps a category to its table. The whitelist doubles as SQL
// injection protection: table names are interpolated into queries and must
// never come from input.
func tableFor(category retrieval.SourceCategory) (string, error) {
	switch category {
	case retrieval.SourceUser:
		return "user_chunks", nil
	case retrieval.SourceAssistant:
		return "assistant_chunks", nil
	default:
		return "", fmt.Errorf("unknown source category %q", category)
	}
}

// Insert writes all records in one transaction and returns their generated
// ids. Either every chunk of a message lands or none do.
func (s *Store) Insert(ctx context.Context, category retrieval.SourceCategory, records []retrieval.Record) ([]string, error) {
	table, err := tableFor(category)
	if err != nil {
		return nil, err
	}
	if len(records) == 0 {
		return nil, nil
	}

	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return nil, fmt.Errorf("beginning transaction: %w", err)
	}
	defer func() {
		if rbErr := tx.Rollback(ctx); rbErr != nil && !errors.Is(rbErr, pgx.ErrTxClosed) {
			s.logger.Debug("transaction rollback", "error", rbErr)
		}
	}()

	sql := fmt.Sprintf(`INSERT INTO %s (content, embedding) VALUES ($1, $2) RETURNING id`, table)
	ids := make([]string, 0, len(records))
	for _, r := range records {
		var id string
		if err := tx.QueryRow(ctx, sql, r.Text, pgvector.NewVector(r.Embedding)).Scan(&id); err != nil {
			return nil, fmt.Errorf("inserting chunk into %s: %w", table, err)
		}
		ids = append(ids, id)
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, fmt.Errorf("committing %d chunks: %w", len(ids), err)
	}
	return ids, nil
}

// Search returns chunks whose cosine similarity to vector exceeds
// minSimilarity, best first, at most limit rows. pgvector's <=> operator is
// cosine distance; similarity is 1 - distance.
func (s *Store) Search(ctx context.Context, category retrieval.SourceCategory, vector []float32, limit int, minSimilarity float64) ([]retrieval.Match, error) {
	table, err := tableFor(category)
	if err != nil {
		return nil, err
	}
	if limit <= 0 {
		return nil, fmt.Errorf("limit must be positive, got %d", limit)
	}

	sql := fmt.Sprintf(
		`SELECT content, 1 - (embedding <=> $1) AS similarity
		 FROM %s
		 WHERE 1 - (embedding <=> $1) > $2
		 ORDER BY embedding <=> $1
		 LIMIT $3`, table)

	rows, err := s.pool.Query(ctx, sql, pgvector.NewVector(vector), minSimilarity, limit)
	if err != nil {
		return nil, fmt.Errorf("searching %s: %w", table, err)
	}
	defer rows.Close()

	var matches []retrieval.Match
	for rows.Next() {
		var m retrieval.Match
		if err := rows.Scan(&m.Text, &m.Similarity); err != nil {
			return nil, fmt.Errorf("scanning %s row: %w", table, err)
		}
		matches = append(matches, m)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("reading %s rows: %w", table, err)
	}
	return matches, nil
}

// Count reports how many chunks a partition holds. Used by the health
// endpoint and tests.
func (s *Store) Count(ctx context.Context, category retrieval.SourceCategory) (int64, error) {
	table, err := tableFor(category)
	if err != nil {
		return 0, err
	}
	var n int64
	if err := s.pool.QueryRow(ctx, fmt.Sprintf(`SELECT count(*) FROM %s`, table)).Scan(&n); err != nil {
		return 0, fmt.Errorf("counting %s: %w", table, err)
	}
	return n, nil
}
