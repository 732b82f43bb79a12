package postgres

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/FranksOps/sift/internal/storage"
	"github.com/jackc/pgx/v5/pgxpool"
)

// ensure postgresBackend implements storage.Backend
var _ storage.Backend = (*postgresBackend)(nil)

type postgresBackend struct {
	pool *pgxpool.Pool
}

const schema = `
CREATE TABLE IF NOT EXISTS searches (
	id TEXT PRIMARY KEY,
	title TEXT NOT NULL,
	category TEXT NOT NULL,
	pages INTEGER NOT NULL,
	failed INTEGER NOT NULL,
	blocked INTEGER NOT NULL,
	records JSONB NOT NULL,
	duration_ms BIGINT NOT NULL,
	created_at TIMESTAMPTZ NOT NULL
);
CREATE INDEX IF NOT EXISTS searches_created_at ON searches (created_at);
`

// New creates a new Postgres-backed storage.Backend.
func New(ctx context.Context, dsn string) (storage.Backend, error) {
	pool, err := pgxpool.New(ctx, dsn)
	if err != nil {
		return nil, fmt.Errorf("open postgres: %w", err)
	}

	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("ping postgres: %w", err)
	}

	if _, err := pool.Exec(ctx, schema); err != nil {
		pool.Close()
		return nil, fmt.Errorf("create schema: %w", err)
	}

	return &postgresBackend{pool: pool}, nil
}

func (b *postgresBackend) Save(ctx context.Context, record *storage.SearchRecord) error {
	recordsJSON, err := json.Marshal(record.Records)
	if err != nil {
		return fmt.Errorf("encode records: %w", err)
	}

	query := `
	INSERT INTO searches (
		id, title, category, pages, failed, blocked, records, duration_ms, created_at
	) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
	`

	_, err = b.pool.Exec(ctx, query,
		record.ID,
		record.Title,
		record.Category,
		record.Pages,
		record.Failed,
		record.Blocked,
		recordsJSON,
		record.Duration.Milliseconds(),
		record.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("insert search %s: %w", record.ID, err)
	}

	return nil
}

func (b *postgresBackend) Query(ctx context.Context, filter storage.Filter) ([]*storage.SearchRecord, error) {
	query := `SELECT id, title, category, pages, failed, blocked, records, duration_ms, created_at FROM searches WHERE 1=1`
	args := []any{}
	paramCount := 1

	if filter.Category != "" {
		query += fmt.Sprintf(` AND lower(category) = lower($%d)`, paramCount)
		args = append(args, filter.Category)
		paramCount++
	}
	if filter.Title != "" {
		query += fmt.Sprintf(` AND strpos(lower(title), lower($%d)) > 0`, paramCount)
		args = append(args, filter.Title)
		paramCount++
	}
	if filter.Since != nil {
		query += fmt.Sprintf(` AND created_at >= $%d`, paramCount)
		args = append(args, *filter.Since)
		paramCount++
	}

	query += ` ORDER BY created_at DESC`

	if filter.Limit > 0 {
		query += fmt.Sprintf(` LIMIT $%d`, paramCount)
		args = append(args, filter.Limit)
		paramCount++
	}
	if filter.Offset > 0 {
		query += fmt.Sprintf(` OFFSET $%d`, paramCount)
		args = append(args, filter.Offset)
	}

	rows, err := b.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query searches: %w", err)
	}
	defer rows.Close()

	results := []*storage.SearchRecord{}
	for rows.Next() {
		var r storage.SearchRecord
		var recordsJSON []byte
		var durationMs int64

		err := rows.Scan(
			&r.ID, &r.Title, &r.Category, &r.Pages, &r.Failed, &r.Blocked,
			&recordsJSON, &durationMs, &r.CreatedAt,
		)
		if err != nil {
			return nil, fmt.Errorf("scan search: %w", err)
		}

		r.Duration = time.Duration(durationMs) * time.Millisecond
		if err := json.Unmarshal(recordsJSON, &r.Records); err != nil {
			return nil, fmt.Errorf("decode records of %s: %w", r.ID, err)
		}

		results = append(results, &r)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate searches: %w", err)
	}

	return results, nil
}

func (b *postgresBackend) Close() error {
	b.pool.Close()
	return nil
}
