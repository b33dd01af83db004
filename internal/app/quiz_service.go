package app

import (
	"context"
	"fmt"
	"math/rand"
	"time"

	"github.com/google/uuid"

	"interview-quiz-service/internal/domain"
	"interview-quiz-service/internal/logger"
	"interview-quiz-service/internal/quizmap"
)

// QuestionRepository loads and stores question records (Postgres, SQLite,
// in-memory, optionally behind a cache). Answers come back ordered by their
// Order field.
type QuestionRepository interface {
	// GetQuestions returns the questions found for ids, in ids order.
	GetQuestions(ctx context.Context, ids []string) ([]domain.Question, error)
	ListByRole(ctx context.Context, roleID string) ([]domain.Question, error)
	ListCorpus(ctx context.Context) ([]domain.CorpusEntry, error)
	SaveQuestions(ctx context.Context, questions []domain.Question) error
}

// AttemptStore persists attempts together with their answer mapping, keyed by
// attempt id.
type AttemptStore interface {
	Save(ctx context.Context, attempt domain.Attempt) error
	Get(ctx context.Context, attemptID string) (domain.Attempt, error)
	// Complete marks the attempt graded. It returns domain.ErrAlreadySubmitted
	// if that already happened.
	Complete(ctx context.Context, attemptID string, score int, at time.Time) error
}

// CreateQuizRequest selects questions either explicitly or by role.
type CreateQuizRequest struct {
	RoleID      string   `json:"roleId"`
	QuestionIDs []string `json:"questionIds"`
	Count       int      `json:"count"`
}

// QuizView is what a client receives for a new or retried attempt.
type QuizView struct {
	AttemptID string              `json:"attemptId"`
	RetryOf   string              `json:"retryOf,omitempty"`
	Questions []domain.UIQuestion `json:"questions"`
}

type QuizOption func(*QuizService)

// WithRand overrides the per-request generator factory.
func WithRand(f func() *rand.Rand) QuizOption { return func(s *QuizService) { s.newRand = f } }

// WithClock is used by tests for deterministic timestamps.
func WithClock(now func() time.Time) QuizOption { return func(s *QuizService) { s.now = now } }

func WithDefaultCount(n int) QuizOption { return func(s *QuizService) { s.defaultCount = n } }

func WithLogger(l *logger.Logger) QuizOption { return func(s *QuizService) { s.log = l } }

// QuizService contains the quiz attempt use cases.
type QuizService struct {
	questions    QuestionRepository
	attempts     AttemptStore
	log          *logger.Logger
	newRand      func() *rand.Rand
	now          func() time.Time
	newID        func() string
	defaultCount int
}

func NewQuizService(questions QuestionRepository, attempts AttemptStore, opts ...QuizOption) *QuizService {
	s := &QuizService{
		questions:    questions,
		attempts:     attempts,
		log:          logger.Nop(),
		newRand:      quizmap.NewRand,
		now:          time.Now,
		newID:        uuid.NewString,
		defaultCount: 10,
	}
	for _, o := range opts {
		o(s)
	}
	return s
}

// CreateQuiz draws a question set, shuffles it and stores the attempt with its
// answer mapping.
func (s *QuizService) CreateQuiz(ctx context.Context, userID string, req CreateQuizRequest) (QuizView, error) {
	rng := s.newRand()

	var (
		questions []domain.Question
		err       error
	)
	if len(req.QuestionIDs) > 0 {
		questions, err = s.questions.GetQuestions(ctx, uniqueIDs(req.QuestionIDs))
	} else {
		questions, err = s.questions.ListByRole(ctx, req.RoleID)
		if err == nil {
			questions = draw(rng, questions, s.count(req.Count))
		}
	}
	if err != nil {
		return QuizView{}, fmt.Errorf("load questions: %w", err)
	}
	if len(questions) == 0 {
		return QuizView{}, domain.ErrNoQuestions
	}
	return s.present(ctx, rng, userID, req.RoleID, "", questions)
}

// RetryQuiz re-shuffles the original question set of a previous attempt into a
// new attempt.
func (s *QuizService) RetryQuiz(ctx context.Context, userID, attemptID string) (QuizView, error) {
	prev, err := s.ownedAttempt(ctx, userID, attemptID)
	if err != nil {
		return QuizView{}, err
	}
	questions, err := s.questions.GetQuestions(ctx, prev.QuestionIDs)
	if err != nil {
		return QuizView{}, fmt.Errorf("load questions: %w", err)
	}
	if len(questions) == 0 {
		return QuizView{}, domain.ErrNoQuestions
	}
	return s.present(ctx, s.newRand(), userID, prev.RoleID, prev.ID, questions)
}

// SubmitQuiz decodes shuffled selections through the stored mapping and grades
// them against freshly loaded ground truth.
func (s *QuizService) SubmitQuiz(ctx context.Context, userID, attemptID string, answers []domain.SubmittedAnswer) (domain.QuizResult, error) {
	attempt, err := s.ownedAttempt(ctx, userID, attemptID)
	if err != nil {
		return domain.QuizResult{}, err
	}
	if attempt.Completed() {
		return domain.QuizResult{}, domain.ErrAlreadySubmitted
	}

	decoded := s.decode(attempt, answers)

	questions, err := s.questions.GetQuestions(ctx, attempt.QuestionIDs)
	if err != nil {
		return domain.QuizResult{}, fmt.Errorf("load ground truth: %w", err)
	}
	score := quizmap.Grade(questions, decoded)

	if err := s.attempts.Complete(ctx, attempt.ID, score.Correct, s.now()); err != nil {
		return domain.QuizResult{}, err
	}
	s.log.Info("quiz submitted", "attemptId", attempt.ID, "userId", userID, "score", score.Correct, "total", score.Total)

	return domain.QuizResult{
		AttemptID: attempt.ID,
		Score:     score.Correct,
		Total:     score.Total,
		Results:   score.Results,
	}, nil
}

// CheckAnswer grades one question of an open attempt without completing it.
func (s *QuizService) CheckAnswer(ctx context.Context, userID, attemptID string, answer domain.SubmittedAnswer) (domain.AnswerResult, error) {
	attempt, err := s.ownedAttempt(ctx, userID, attemptID)
	if err != nil {
		return domain.AnswerResult{}, err
	}
	if !contains(attempt.QuestionIDs, answer.QuestionID) {
		return domain.AnswerResult{}, domain.ErrQuestionNotFound
	}

	questions, err := s.questions.GetQuestions(ctx, []string{answer.QuestionID})
	if err != nil {
		return domain.AnswerResult{}, fmt.Errorf("load ground truth: %w", err)
	}
	if len(questions) == 0 {
		return domain.AnswerResult{}, domain.ErrQuestionNotFound
	}

	decoded := s.decode(attempt, []domain.SubmittedAnswer{answer})
	score := quizmap.Grade(questions, decoded)
	return domain.AnswerResult{
		QuestionID:  answer.QuestionID,
		Correct:     score.Correct == 1,
		Explanation: questions[0].Explanation,
	}, nil
}

func (s *QuizService) present(ctx context.Context, rng *rand.Rand, userID, roleID, retryOf string, questions []domain.Question) (QuizView, error) {
	ids := make([]string, 0, len(questions))
	for _, q := range questions {
		ids = append(ids, q.ID)
	}

	p := quizmap.ProcessQuizSet(rng, questions)
	attempt := domain.Attempt{
		ID:            s.newID(),
		UserID:        userID,
		RoleID:        roleID,
		QuestionIDs:   ids,
		AnswerMapping: p.AnswerMapping,
		RetryOf:       retryOf,
		CreatedAt:     s.now(),
	}
	if err := s.attempts.Save(ctx, attempt); err != nil {
		return QuizView{}, fmt.Errorf("save attempt: %w", err)
	}
	s.log.Debug("quiz attempt created", "attemptId", attempt.ID, "userId", userID, "questions", len(ids), "retryOf", retryOf)

	return QuizView{AttemptID: attempt.ID, RetryOf: retryOf, Questions: p.QuestionsForUI}, nil
}

func (s *QuizService) decode(attempt domain.Attempt, answers []domain.SubmittedAnswer) []domain.SubmittedAnswer {
	decoded, missing := quizmap.DecodeSubmittedAnswers(answers, attempt.AnswerMapping)
	for _, qid := range missing {
		s.log.Warn("answer mapping missing, using submitted indexes as-is", "attemptId", attempt.ID, "questionId", qid)
	}
	return decoded
}

func (s *QuizService) ownedAttempt(ctx context.Context, userID, attemptID string) (domain.Attempt, error) {
	attempt, err := s.attempts.Get(ctx, attemptID)
	if err != nil {
		return domain.Attempt{}, err
	}
	if attempt.UserID != userID {
		return domain.Attempt{}, domain.ErrForbidden
	}
	return attempt, nil
}

func (s *QuizService) count(requested int) int {
	if requested > 0 {
		return requested
	}
	return s.defaultCount
}

func draw(rng *rand.Rand, questions []domain.Question, count int) []domain.Question {
	out := quizmap.Shuffle(rng, questions)
	if count < len(out) {
		out = out[:count]
	}
	return out
}

// uniqueIDs drops repeated ids, keeping first-seen order. The answer mapping
// is keyed by question id, so a question may appear only once per attempt.
func uniqueIDs(ids []string) []string {
	seen := make(map[string]struct{}, len(ids))
	out := make([]string, 0, len(ids))
	for _, id := range ids {
		if _, ok := seen[id]; ok {
			continue
		}
		seen[id] = struct{}{}
		out = append(out, id)
	}
	return out
}

func contains(ids []string, id string) bool {
	for _, v := range ids {
		if v == id {
			return true
		}
	}
	return false
}
