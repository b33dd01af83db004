package postgres

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"

	"github.com/jackc/pgx/v4"
	"github.com/jackc/pgx/v4/pgxpool"

	"interview-quiz-service/internal/domain"
)

// QuestionLoader reads and writes questions in Postgres. Answers live in a
// JSONB column in their canonical order.
type QuestionLoader struct {
	pool *pgxpool.Pool
}

func NewQuestionLoader(pool *pgxpool.Pool) *QuestionLoader {
	return &QuestionLoader{pool: pool}
}

func (l *QuestionLoader) GetQuestions(ctx context.Context, ids []string) ([]domain.Question, error) {
	if len(ids) == 0 {
		return []domain.Question{}, nil
	}
	rows, err := l.pool.Query(ctx, `SELECT id, role_id, text, explanation, answers FROM questions WHERE id = ANY($1)`, ids)
	if err != nil {
		return nil, fmt.Errorf("load questions: %w", err)
	}
	found, err := scanQuestions(rows)
	if err != nil {
		return nil, err
	}

	byID := make(map[string]domain.Question, len(found))
	for _, q := range found {
		byID[q.ID] = q
	}
	out := make([]domain.Question, 0, len(ids))
	for _, id := range ids {
		if q, ok := byID[id]; ok {
			out = append(out, q)
		}
	}
	return out, nil
}

func (l *QuestionLoader) ListByRole(ctx context.Context, roleID string) ([]domain.Question, error) {
	rows, err := l.pool.Query(ctx, `SELECT id, role_id, text, explanation, answers FROM questions
		WHERE $1 = '' OR role_id = $1 ORDER BY created_at, id`, roleID)
	if err != nil {
		return nil, fmt.Errorf("list questions: %w", err)
	}
	return scanQuestions(rows)
}

func (l *QuestionLoader) ListCorpus(ctx context.Context) ([]domain.CorpusEntry, error) {
	rows, err := l.pool.Query(ctx, `SELECT id, text FROM questions ORDER BY created_at, id`)
	if err != nil {
		return nil, fmt.Errorf("list corpus: %w", err)
	}
	defer rows.Close()

	corpus := []domain.CorpusEntry{}
	for rows.Next() {
		var e domain.CorpusEntry
		if err := rows.Scan(&e.ID, &e.Question); err != nil {
			return nil, fmt.Errorf("scan corpus: %w", err)
		}
		corpus = append(corpus, e)
	}
	return corpus, rows.Err()
}

// SaveQuestions upserts all questions in one transaction.
func (l *QuestionLoader) SaveQuestions(ctx context.Context, questions []domain.Question) error {
	tx, err := l.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin: %w", err)
	}
	defer tx.Rollback(ctx)

	for _, q := range questions {
		answers := append([]domain.Answer(nil), q.Answers...)
		sort.SliceStable(answers, func(i, j int) bool { return answers[i].Order < answers[j].Order })
		raw, err := json.Marshal(answers)
		if err != nil {
			return fmt.Errorf("marshal answers: %w", err)
		}
		if _, err := tx.Exec(ctx, `INSERT INTO questions (id, role_id, text, explanation, answers)
			VALUES ($1, $2, $3, $4, $5::jsonb)
			ON CONFLICT (id) DO UPDATE SET role_id=EXCLUDED.role_id, text=EXCLUDED.text,
				explanation=EXCLUDED.explanation, answers=EXCLUDED.answers`,
			q.ID, q.RoleID, q.Text, q.Explanation, string(raw)); err != nil {
			return fmt.Errorf("save question %s: %w", q.ID, err)
		}
	}
	return tx.Commit(ctx)
}

func scanQuestions(rows pgx.Rows) ([]domain.Question, error) {
	defer rows.Close()

	questions := []domain.Question{}
	for rows.Next() {
		var (
			q   domain.Question
			raw []byte
		)
		if err := rows.Scan(&q.ID, &q.RoleID, &q.Text, &q.Explanation, &raw); err != nil {
			return nil, fmt.Errorf("scan question: %w", err)
		}
		if err := json.Unmarshal(raw, &q.Answers); err != nil {
			return nil, fmt.Errorf("unmarshal answers: %w", err)
		}
		sort.SliceStable(q.Answers, func(i, j int) bool { return q.Answers[i].Order < q.Answers[j].Order })
		questions = append(questions, q)
	}
	return questions, rows.Err()
}
