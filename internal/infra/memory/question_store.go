package memory

import (
	"context"
	"sort"
	"sync"

	"interview-quiz-service/internal/domain"
)

// QuestionStore is a map-backed QuestionLoader (useful for tests/demos).
type QuestionStore struct {
	mu        sync.RWMutex
	questions map[string]domain.Question
	order     []string
}

func NewQuestionStore(questions ...domain.Question) *QuestionStore {
	s := &QuestionStore{questions: make(map[string]domain.Question)}
	_ = s.SaveQuestions(context.Background(), questions)
	return s
}

func (s *QuestionStore) GetQuestions(_ context.Context, ids []string) ([]domain.Question, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]domain.Question, 0, len(ids))
	for _, id := range ids {
		if q, ok := s.questions[id]; ok {
			out = append(out, clone(q))
		}
	}
	return out, nil
}

func (s *QuestionStore) ListByRole(_ context.Context, roleID string) ([]domain.Question, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := []domain.Question{}
	for _, id := range s.order {
		q := s.questions[id]
		if roleID == "" || q.RoleID == roleID {
			out = append(out, clone(q))
		}
	}
	return out, nil
}

func (s *QuestionStore) ListCorpus(_ context.Context) ([]domain.CorpusEntry, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]domain.CorpusEntry, 0, len(s.order))
	for _, id := range s.order {
		out = append(out, domain.CorpusEntry{ID: id, Question: s.questions[id].Text})
	}
	return out, nil
}

// SaveQuestions upserts by id.
func (s *QuestionStore) SaveQuestions(_ context.Context, questions []domain.Question) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, q := range questions {
		if _, exists := s.questions[q.ID]; !exists {
			s.order = append(s.order, q.ID)
		}
		s.questions[q.ID] = clone(q)
	}
	return nil
}

// clone copies the answers and sorts them by Order.
func clone(q domain.Question) domain.Question {
	q.Answers = append([]domain.Answer(nil), q.Answers...)
	sort.SliceStable(q.Answers, func(i, j int) bool { return q.Answers[i].Order < q.Answers[j].Order })
	return q
}
