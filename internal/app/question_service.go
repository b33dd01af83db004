package app

import (
	"context"
	"fmt"
	"math"
	"strings"

	"github.com/google/uuid"

	"interview-quiz-service/internal/dedupe"
	"interview-quiz-service/internal/domain"
	"interview-quiz-service/internal/logger"
)

// ImportRequest is a generated batch of questions for a role. Requested is the
// number of questions that were asked for; it defaults to len(Questions).
type ImportRequest struct {
	RoleID    string            `json:"roleId"`
	Requested int               `json:"requested"`
	Questions []domain.Question `json:"questions"`
}

// SkippedQuestion explains why a batch entry was not stored.
type SkippedQuestion struct {
	Index   int            `json:"index"`
	Reason  string         `json:"reason"`
	Matches []dedupe.Match `json:"matches,omitempty"`
}

type ImportResult struct {
	Accepted []domain.Question `json:"accepted"`
	Skipped  []SkippedQuestion `json:"skipped"`
}

// QuestionService runs duplicate checks and question imports.
type QuestionService struct {
	questions      QuestionRepository
	detector       *dedupe.Detector
	minAcceptRatio float64
	log            *logger.Logger
	newID          func() string
}

func NewQuestionService(questions QuestionRepository, detector *dedupe.Detector, minAcceptRatio float64, log *logger.Logger) *QuestionService {
	if detector == nil {
		detector = dedupe.New()
	}
	if log == nil {
		log = logger.Nop()
	}
	return &QuestionService{
		questions:      questions,
		detector:       detector,
		minAcceptRatio: minAcceptRatio,
		log:            log,
		newID:          uuid.NewString,
	}
}

// CheckDuplicates scores candidates against every stored question. A corpus
// failure fails the whole call.
func (s *QuestionService) CheckDuplicates(ctx context.Context, candidates []string) ([]dedupe.Result, error) {
	corpus, err := s.questions.ListCorpus(ctx)
	if err != nil {
		return nil, fmt.Errorf("load corpus: %w", err)
	}
	return s.detector.FindDuplicates(candidates, corpus), nil
}

// ImportBatch stores the valid, non-duplicate questions of a batch. The batch
// is rejected as a whole when fewer than MinAcceptRatio of the requested count
// survive.
func (s *QuestionService) ImportBatch(ctx context.Context, req ImportRequest) (ImportResult, error) {
	corpus, err := s.questions.ListCorpus(ctx)
	if err != nil {
		return ImportResult{}, fmt.Errorf("load corpus: %w", err)
	}

	result := ImportResult{Accepted: []domain.Question{}, Skipped: []SkippedQuestion{}}
	for i, q := range req.Questions {
		if err := validate(q); err != nil {
			result.Skipped = append(result.Skipped, SkippedQuestion{Index: i, Reason: err.Error()})
			continue
		}
		if matches := s.detector.Match(q.Text, corpus); len(matches) > 0 {
			result.Skipped = append(result.Skipped, SkippedQuestion{Index: i, Reason: "duplicate", Matches: matches})
			continue
		}

		q.ID = s.newID()
		if q.RoleID == "" {
			q.RoleID = req.RoleID
		}
		q.Answers = append([]domain.Answer(nil), q.Answers...)
		for pos := range q.Answers {
			q.Answers[pos].Order = pos
		}
		result.Accepted = append(result.Accepted, q)
		// later entries of the same batch must not repeat earlier ones
		corpus = append(corpus, domain.CorpusEntry{ID: q.ID, Question: q.Text})
	}

	requested := req.Requested
	if requested <= 0 {
		requested = len(req.Questions)
	}
	need := int(math.Ceil(s.minAcceptRatio * float64(requested)))
	if len(result.Accepted) == 0 || len(result.Accepted) < need {
		s.log.Warn("question batch rejected", "roleId", req.RoleID, "accepted", len(result.Accepted), "requested", requested, "need", need)
		return result, fmt.Errorf("%w: kept %d of %d requested, need %d", domain.ErrBatchRejected, len(result.Accepted), requested, need)
	}

	if err := s.questions.SaveQuestions(ctx, result.Accepted); err != nil {
		return ImportResult{}, fmt.Errorf("save questions: %w", err)
	}
	s.log.Info("question batch imported", "roleId", req.RoleID, "accepted", len(result.Accepted), "skipped", len(result.Skipped))
	return result, nil
}

func validate(q domain.Question) error {
	if strings.TrimSpace(q.Text) == "" {
		return fmt.Errorf("%w: empty text", domain.ErrInvalidQuestion)
	}
	if len(q.Answers) == 0 {
		return fmt.Errorf("%w: no answers", domain.ErrInvalidQuestion)
	}
	if q.CorrectCount() == 0 {
		return fmt.Errorf("%w: no correct answer", domain.ErrInvalidQuestion)
	}
	return nil
}
