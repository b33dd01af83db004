package postgres

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v4"
	"github.com/jackc/pgx/v4/pgxpool"

	"interview-quiz-service/internal/domain"
)

// AttemptStore keeps attempts in quiz_attempts with the answer mapping in a
// JSONB column next to the attempt it decodes.
type AttemptStore struct {
	pool *pgxpool.Pool
}

func NewAttemptStore(pool *pgxpool.Pool) *AttemptStore {
	return &AttemptStore{pool: pool}
}

func (s *AttemptStore) Save(ctx context.Context, attempt domain.Attempt) error {
	ids, err := json.Marshal(attempt.QuestionIDs)
	if err != nil {
		return fmt.Errorf("marshal question ids: %w", err)
	}
	mapping, err := json.Marshal(attempt.AnswerMapping)
	if err != nil {
		return fmt.Errorf("marshal mapping: %w", err)
	}
	_, err = s.pool.Exec(ctx, `INSERT INTO quiz_attempts (id, user_id, role_id, question_ids, answer_mapping, retry_of, created_at)
		VALUES ($1, $2, $3, $4::jsonb, $5::jsonb, $6, $7)
		ON CONFLICT (id) DO UPDATE SET question_ids=EXCLUDED.question_ids, answer_mapping=EXCLUDED.answer_mapping`,
		attempt.ID, attempt.UserID, attempt.RoleID, string(ids), string(mapping), attempt.RetryOf, attempt.CreatedAt)
	if err != nil {
		return fmt.Errorf("save attempt: %w", err)
	}
	return nil
}

func (s *AttemptStore) Get(ctx context.Context, attemptID string) (domain.Attempt, error) {
	var (
		attempt        domain.Attempt
		rawIDs, rawMap []byte
		completedAt    *time.Time
		score          *int
	)
	err := s.pool.QueryRow(ctx, `SELECT id, user_id, role_id, question_ids, answer_mapping, retry_of, created_at, completed_at, score
		FROM quiz_attempts WHERE id=$1`, attemptID).
		Scan(&attempt.ID, &attempt.UserID, &attempt.RoleID, &rawIDs, &rawMap, &attempt.RetryOf, &attempt.CreatedAt, &completedAt, &score)
	if errors.Is(err, pgx.ErrNoRows) {
		return domain.Attempt{}, domain.ErrAttemptNotFound
	}
	if err != nil {
		return domain.Attempt{}, fmt.Errorf("load attempt: %w", err)
	}
	if err := json.Unmarshal(rawIDs, &attempt.QuestionIDs); err != nil {
		return domain.Attempt{}, fmt.Errorf("unmarshal question ids: %w", err)
	}
	if err := json.Unmarshal(rawMap, &attempt.AnswerMapping); err != nil {
		return domain.Attempt{}, fmt.Errorf("unmarshal mapping: %w", err)
	}
	attempt.CompletedAt = completedAt
	attempt.Score = score
	return attempt, nil
}

func (s *AttemptStore) Complete(ctx context.Context, attemptID string, score int, at time.Time) error {
	tag, err := s.pool.Exec(ctx, `UPDATE quiz_attempts SET completed_at=$2, score=$3 WHERE id=$1 AND completed_at IS NULL`,
		attemptID, at, score)
	if err != nil {
		return fmt.Errorf("complete attempt: %w", err)
	}
	if tag.RowsAffected() == 1 {
		return nil
	}

	var exists bool
	if err := s.pool.QueryRow(ctx, `SELECT EXISTS (SELECT 1 FROM quiz_attempts WHERE id=$1)`, attemptID).Scan(&exists); err != nil {
		return fmt.Errorf("complete attempt: %w", err)
	}
	if !exists {
		return domain.ErrAttemptNotFound
	}
	return domain.ErrAlreadySubmitted
}
