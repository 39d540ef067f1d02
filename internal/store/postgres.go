package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/lib/pq"

	"qna-agents/internal/answer"
)

type PostgresStore struct {
	db *sql.DB
}

func NewPostgres(dsn string) (*PostgresStore, error) {
	db, err := sql.Open("pgx", dsn)
	if err != nil {
		return nil, err
	}
	s := &PostgresStore{db: db}
	if err := s.migrate(context.Background()); err != nil {
		_ = db.Close()
		return nil, err
	}
	return s, nil
}

func (s *PostgresStore) migrate(ctx context.Context) error {
	// Serialize DDL across replicas.
	const lockID = 723114001

	conn, err := s.db.Conn(ctx)
	if err != nil {
		return fmt.Errorf("failed to get migration connection: %w", err)
	}
	defer conn.Close()

	if _, err := conn.ExecContext(ctx, `SELECT pg_advisory_lock($1)`, lockID); err != nil {
		return fmt.Errorf("failed to acquire migration lock: %w", err)
	}
	defer func() {
		_, _ = conn.ExecContext(context.Background(), `SELECT pg_advisory_unlock($1)`, lockID)
	}()

	stmts := []string{
		`CREATE TABLE IF NOT EXISTS predictions (
			id UUID PRIMARY KEY,
			session_id UUID NOT NULL,
			question TEXT NOT NULL,
			paragraph TEXT NOT NULL,
			status TEXT NOT NULL,
			candidates JSONB NOT NULL DEFAULT '[]',
			answers TEXT[] NOT NULL DEFAULT '{}',
			best JSONB,
			error TEXT,
			duration_ms BIGINT,
			created_at TIMESTAMPTZ DEFAULT now()
		);`,
		`CREATE INDEX IF NOT EXISTS predictions_session_idx ON predictions (session_id, created_at DESC);`,
	}
	for _, stmt := range stmts {
		if _, err := conn.ExecContext(ctx, stmt); err != nil {
			return err
		}
	}
	return nil
}

func (s *PostgresStore) SavePrediction(ctx context.Context, p Prediction) error {
	if p.ID == uuid.Nil {
		p.ID = uuid.New()
	}
	if p.Candidates == nil {
		p.Candidates = []answer.Candidate{}
	}
	cands, err := json.Marshal(p.Candidates)
	if err != nil {
		return fmt.Errorf("encode candidates: %w", err)
	}
	var best []byte
	if p.Best != nil {
		if best, err = json.Marshal(p.Best); err != nil {
			return fmt.Errorf("encode best: %w", err)
		}
	}
	_, err = s.db.ExecContext(ctx, `
		INSERT INTO predictions (id, session_id, question, paragraph, status, candidates, answers, best, error, duration_ms)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, NULLIF($9, ''), $10)`,
		p.ID, p.SessionID, p.Question, p.Paragraph, p.Status, cands, pq.Array(answerTexts(p)), nullJSON(best), p.Error, p.DurationMs)
	return err
}

func (s *PostgresStore) GetPrediction(ctx context.Context, id uuid.UUID) (Prediction, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT id, session_id, question, paragraph, status, candidates, answers, best, COALESCE(error, ''), COALESCE(duration_ms, 0), created_at
		FROM predictions WHERE id = $1`, id)
	p, err := scanPrediction(row)
	if errors.Is(err, sql.ErrNoRows) {
		return Prediction{}, ErrNotFound
	}
	return p, err
}

// ListPredictions returns the newest predictions of a session first.
func (s *PostgresStore) ListPredictions(ctx context.Context, sessionID uuid.UUID, opts ListOptions) ([]Prediction, error) {
	limit := opts.Limit
	if limit <= 0 {
		limit = 20
	}
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, session_id, question, paragraph, status, candidates, answers, best, COALESCE(error, ''), COALESCE(duration_ms, 0), created_at
		FROM predictions
		WHERE session_id = $1 AND ($3 = '' OR $3 = ANY(answers))
		ORDER BY created_at DESC
		LIMIT $2`, sessionID, limit, opts.Answer)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []Prediction
	for rows.Next() {
		p, err := scanPrediction(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, p)
	}
	return out, rows.Err()
}

func (s *PostgresStore) Close() error {
	return s.db.Close()
}

type scanner interface {
	Scan(dest ...any) error
}

func scanPrediction(row scanner) (Prediction, error) {
	var (
		p         Prediction
		cands     []byte
		best      []byte
		createdAt time.Time
	)
	if err := row.Scan(&p.ID, &p.SessionID, &p.Question, &p.Paragraph, &p.Status, &cands, pq.Array(&p.Answers), &best, &p.Error, &p.DurationMs, &createdAt); err != nil {
		return Prediction{}, err
	}
	if err := json.Unmarshal(cands, &p.Candidates); err != nil {
		return Prediction{}, fmt.Errorf("decode candidates: %w", err)
	}
	if len(best) > 0 {
		var b answer.Candidate
		if err := json.Unmarshal(best, &b); err != nil {
			return Prediction{}, fmt.Errorf("decode best: %w", err)
		}
		p.Best = &b
	}
	p.CreatedAt = createdAt
	return p, nil
}

// answerTexts is the searchable answers column. It defaults to the
// candidate texts in model order.
func answerTexts(p Prediction) []string {
	if p.Answers != nil {
		return p.Answers
	}
	texts := make([]string, len(p.Candidates))
	for i, c := range p.Candidates {
		texts[i] = c.Text
	}
	return texts
}

func nullJSON(b []byte) any {
	if len(b) == 0 {
		return nil
	}
	return b
}
