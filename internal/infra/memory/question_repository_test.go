package memory

import (
	"context"
	"testing"
	"time"

	"interview-quiz-service/internal/domain"
)

func TestQuestionRepositoryCachesCorpus(t *testing.T) {
	loader := &countingLoader{QuestionLoader: NewQuestionStore(sampleQuestions()...)}
	repo := NewQuestionRepository(loader, time.Minute)
	ctx := context.Background()

	if _, err := repo.ListCorpus(ctx); err != nil {
		t.Fatalf("list corpus: %v", err)
	}
	if loader.corpusCalls != 1 {
		t.Fatalf("expected loader once, got %d", loader.corpusCalls)
	}

	if _, err := repo.ListCorpus(ctx); err != nil {
		t.Fatalf("list corpus 2: %v", err)
	}
	if loader.corpusCalls != 1 {
		t.Fatalf("expected cache hit, loader calls %d", loader.corpusCalls)
	}

	if err := repo.SaveQuestions(ctx, []domain.Question{{ID: "q3", Text: "What is a channel?"}}); err != nil {
		t.Fatalf("save: %v", err)
	}
	corpus, err := repo.ListCorpus(ctx)
	if err != nil {
		t.Fatalf("list corpus 3: %v", err)
	}
	if loader.corpusCalls != 2 || len(corpus) != 3 {
		t.Fatalf("expected invalidation after save, calls=%d corpus=%d", loader.corpusCalls, len(corpus))
	}
}

func TestQuestionRepositoryExpires(t *testing.T) {
	loader := &countingLoader{QuestionLoader: NewQuestionStore(sampleQuestions()...)}
	repo := NewQuestionRepository(loader, time.Minute)
	now := time.Now()
	repo.clock = func() time.Time { return now }
	ctx := context.Background()

	_, _ = repo.ListByRole(ctx, "backend")
	now = now.Add(2 * time.Minute)
	questions, err := repo.ListByRole(ctx, "backend")
	if err != nil {
		t.Fatalf("list by role: %v", err)
	}
	if loader.roleCalls != 2 {
		t.Fatalf("expected reload after ttl, got %d calls", loader.roleCalls)
	}
	if len(questions) != 1 || questions[0].ID != "q1" {
		t.Fatalf("expected backend question only, got %+v", questions)
	}
}

func TestQuestionStoreSortsAnswers(t *testing.T) {
	store := NewQuestionStore(domain.Question{
		ID: "q9",
		Answers: []domain.Answer{
			{Content: "second", Order: 1},
			{Content: "first", Order: 0, IsCorrect: true},
		},
	})
	got, _ := store.GetQuestions(context.Background(), []string{"missing", "q9"})
	if len(got) != 1 || got[0].Answers[0].Content != "first" {
		t.Fatalf("expected answers ordered by Order, got %+v", got)
	}
}

type countingLoader struct {
	QuestionLoader
	corpusCalls int
	roleCalls   int
}

func (l *countingLoader) ListCorpus(ctx context.Context) ([]domain.CorpusEntry, error) {
	l.corpusCalls++
	return l.QuestionLoader.ListCorpus(ctx)
}

func (l *countingLoader) ListByRole(ctx context.Context, roleID string) ([]domain.Question, error) {
	l.roleCalls++
	return l.QuestionLoader.ListByRole(ctx, roleID)
}

func sampleQuestions() []domain.Question {
	return []domain.Question{
		{
			ID:     "q1",
			RoleID: "backend",
			Text:   "What is a goroutine?",
			Answers: []domain.Answer{
				{Content: "A lightweight thread", IsCorrect: true, Order: 0},
				{Content: "A package manager", Order: 1},
			},
		},
		{
			ID:     "q2",
			RoleID: "frontend",
			Text:   "What does useEffect do?",
			Answers: []domain.Answer{
				{Content: "Runs side effects", IsCorrect: true, Order: 0},
				{Content: "Styles components", Order: 1},
			},
		},
	}
}
