package build

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/hoclieu/examgen/internal/exam"
)

const dbTimeout = 5 * time.Second

// PostgresStore is a PostgreSQL-backed Store implementation.
type PostgresStore struct {
	pool *pgxpool.Pool
}

// NewPostgresStore creates a PostgreSQL-backed build store.
func NewPostgresStore(pool *pgxpool.Pool) (*PostgresStore, error) {
	if pool == nil {
		return nil, fmt.Errorf("pool is nil")
	}
	return &PostgresStore{pool: pool}, nil
}

// EnsureSchema creates the builds table if it does not exist.
func (s *PostgresStore) EnsureSchema(ctx context.Context) error {
	_, err := s.pool.Exec(ctx, `
		CREATE TABLE IF NOT EXISTS builds (
			id         TEXT PRIMARY KEY,
			title      TEXT NOT NULL,
			template   TEXT NOT NULL DEFAULT '',
			grade      INT NOT NULL,
			subject    TEXT NOT NULL,
			semester   TEXT NOT NULL,
			seed       BIGINT NOT NULL,
			point_diff DOUBLE PRECISION NOT NULL,
			slots      JSONB NOT NULL,
			warnings   JSONB NOT NULL,
			created_at TIMESTAMPTZ NOT NULL DEFAULT now()
		)`)
	if err != nil {
		return fmt.Errorf("create builds table: %w", err)
	}
	return nil
}

func (s *PostgresStore) SaveBuild(ctx context.Context, res *Result) (string, error) {
	ctx, cancel := context.WithTimeout(ctx, dbTimeout)
	defer cancel()

	id := res.ID
	if id == "" {
		id = generateID()
	}
	createdAt := res.CreatedAt
	if createdAt.IsZero() {
		createdAt = time.Now()
	}

	slots, err := json.Marshal(res.Slots)
	if err != nil {
		return "", fmt.Errorf("marshal slots: %w", err)
	}
	warnings := res.Warnings
	if warnings == nil {
		warnings = []string{}
	}
	warningsJSON, err := json.Marshal(warnings)
	if err != nil {
		return "", fmt.Errorf("marshal warnings: %w", err)
	}

	_, err = s.pool.Exec(ctx, `
		INSERT INTO builds (id, title, template, grade, subject, semester, seed, point_diff, slots, warnings, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9::jsonb, $10::jsonb, $11)`,
		id, res.Title, res.Template,
		res.Scope.Grade, res.Scope.Subject, res.Scope.Semester,
		res.Seed, res.PointDiff,
		string(slots), string(warningsJSON), createdAt,
	)
	if err != nil {
		return "", fmt.Errorf("insert build: %w", err)
	}
	return id, nil
}

func (s *PostgresStore) GetBuild(ctx context.Context, id string) (*Result, error) {
	ctx, cancel := context.WithTimeout(ctx, dbTimeout)
	defer cancel()

	var (
		res          Result
		slotsJSON    []byte
		warningsJSON []byte
	)
	err := s.pool.QueryRow(ctx, `
		SELECT id, title, template, grade, subject, semester, seed, point_diff, slots, warnings, created_at
		FROM builds WHERE id = $1`, id,
	).Scan(&res.ID, &res.Title, &res.Template,
		&res.Scope.Grade, &res.Scope.Subject, &res.Scope.Semester,
		&res.Seed, &res.PointDiff, &slotsJSON, &warningsJSON, &res.CreatedAt)
	if err != nil {
		return nil, fmt.Errorf("build not found: %s: %w", id, err)
	}

	if err := json.Unmarshal(slotsJSON, &res.Slots); err != nil {
		return nil, fmt.Errorf("decode slots for build %s: %w", id, err)
	}
	if err := json.Unmarshal(warningsJSON, &res.Warnings); err != nil {
		return nil, fmt.Errorf("decode warnings for build %s: %w", id, err)
	}
	return &res, nil
}

func (s *PostgresStore) ListBuilds(ctx context.Context, limit int) ([]Summary, error) {
	ctx, cancel := context.WithTimeout(ctx, dbTimeout)
	defer cancel()

	if limit <= 0 {
		limit = 50
	}
	rows, err := s.pool.Query(ctx, `
		SELECT id, title, grade, subject, semester,
		       jsonb_array_length(warnings), created_at
		FROM builds ORDER BY created_at DESC LIMIT $1`, limit)
	if err != nil {
		return nil, fmt.Errorf("list builds: %w", err)
	}
	defer rows.Close()

	var summaries []Summary
	for rows.Next() {
		var (
			sum   Summary
			scope exam.Scope
		)
		if err := rows.Scan(&sum.ID, &sum.Title,
			&scope.Grade, &scope.Subject, &scope.Semester,
			&sum.Warnings, &sum.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan build row: %w", err)
		}
		sum.Scope = scope
		summaries = append(summaries, sum)
	}
	return summaries, rows.Err()
}
