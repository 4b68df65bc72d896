package bank

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/hoclieu/examgen/internal/exam"
)

const dbTimeout = 5 * time.Second

// PostgresStore is a PostgreSQL-backed question bank.
type PostgresStore struct {
	pool *pgxpool.Pool
}

// NewPostgresStore wraps a pgx pool as a bank store.
func NewPostgresStore(pool *pgxpool.Pool) (*PostgresStore, error) {
	if pool == nil {
		return nil, fmt.Errorf("pool is nil")
	}
	return &PostgresStore{pool: pool}, nil
}

// EnsureSchema creates the questions table when it does not exist.
func (s *PostgresStore) EnsureSchema(ctx context.Context) error {
	_, err := s.pool.Exec(ctx, `
		CREATE TABLE IF NOT EXISTS questions (
			question_id   TEXT PRIMARY KEY,
			grade         INT NOT NULL,
			subject       TEXT NOT NULL,
			semester      TEXT NOT NULL,
			topic         TEXT NOT NULL,
			lesson        TEXT NOT NULL,
			yccd          TEXT NOT NULL DEFAULT '',
			qtype         TEXT NOT NULL,
			tt27_level    INT NOT NULL,
			stem          TEXT NOT NULL DEFAULT '',
			answer        TEXT NOT NULL DEFAULT '',
			options       JSONB,
			marking_guide TEXT NOT NULL DEFAULT '',
			created_at    TIMESTAMPTZ NOT NULL DEFAULT NOW()
		)`)
	if err != nil {
		return fmt.Errorf("create questions table: %w", err)
	}
	return nil
}

// Upsert inserts or replaces records by question_id.
func (s *PostgresStore) Upsert(ctx context.Context, records []exam.Record) error {
	ctx, cancel := context.WithTimeout(ctx, dbTimeout)
	defer cancel()

	for _, r := range records {
		var options any
		if r.Options != nil {
			encoded, err := json.Marshal(r.Options)
			if err != nil {
				return fmt.Errorf("encode options for %s: %w", r.QuestionID, err)
			}
			options = encoded
		}
		_, err := s.pool.Exec(ctx,
			`INSERT INTO questions
			   (question_id, grade, subject, semester, topic, lesson, yccd,
			    qtype, tt27_level, stem, answer, options, marking_guide)
			 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13)
			 ON CONFLICT (question_id) DO UPDATE SET
			   grade = EXCLUDED.grade,
			   subject = EXCLUDED.subject,
			   semester = EXCLUDED.semester,
			   topic = EXCLUDED.topic,
			   lesson = EXCLUDED.lesson,
			   yccd = EXCLUDED.yccd,
			   qtype = EXCLUDED.qtype,
			   tt27_level = EXCLUDED.tt27_level,
			   stem = EXCLUDED.stem,
			   answer = EXCLUDED.answer,
			   options = EXCLUDED.options,
			   marking_guide = EXCLUDED.marking_guide`,
			r.QuestionID, r.Grade, r.Subject, r.Semester, r.Topic, r.Lesson,
			r.YCCD, string(r.QType), int(r.Level), r.Stem, r.Answer, options,
			r.MarkingGuide,
		)
		if err != nil {
			return fmt.Errorf("upsert question %s: %w", r.QuestionID, err)
		}
	}
	return nil
}

// Load reads every stored record into a validated Bank.
func (s *PostgresStore) Load(ctx context.Context) (*exam.Bank, error) {
	ctx, cancel := context.WithTimeout(ctx, dbTimeout)
	defer cancel()

	rows, err := s.pool.Query(ctx,
		`SELECT question_id, grade, subject, semester, topic, lesson, yccd,
		        qtype, tt27_level, stem, answer, options, marking_guide
		 FROM questions
		 ORDER BY question_id`)
	if err != nil {
		return nil, fmt.Errorf("query questions: %w", err)
	}
	defer rows.Close()

	var records []exam.Record
	for rows.Next() {
		var r exam.Record
		var qtype string
		var level int
		var options []byte
		if err := rows.Scan(
			&r.QuestionID, &r.Grade, &r.Subject, &r.Semester, &r.Topic,
			&r.Lesson, &r.YCCD, &qtype, &level, &r.Stem, &r.Answer,
			&options, &r.MarkingGuide,
		); err != nil {
			return nil, fmt.Errorf("scan question: %w", err)
		}
		r.QType = exam.QType(qtype)
		r.Level = exam.Level(level)
		if len(options) > 0 {
			if err := json.Unmarshal(options, &r.Options); err != nil {
				return nil, fmt.Errorf("decode options for %s: %w", r.QuestionID, err)
			}
		}
		records = append(records, r)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate questions: %w", err)
	}

	return exam.NewBank(records)
}
