// Package quizmap shuffles question sets for presentation and keeps the index
// mapping needed to grade submissions against the original answer order.
package quizmap

import (
	"math/rand"
	"sort"
	"time"

	"interview-quiz-service/internal/domain"
)

// NewRand returns a generator seeded from the clock. *rand.Rand is not safe
// for concurrent use, so callers create one per request.
func NewRand() *rand.Rand {
	return rand.New(rand.NewSource(time.Now().UnixNano()))
}

// Shuffle returns a uniformly permuted copy of seq (Durstenfeld's
// Fisher-Yates). seq is left untouched.
func Shuffle[T any](rng *rand.Rand, seq []T) []T {
	out := make([]T, len(seq))
	copy(out, seq)
	for i := len(out) - 1; i > 0; i-- {
		j := rng.Intn(i + 1)
		out[i], out[j] = out[j], out[i]
	}
	return out
}

// ShuffleAnswersWithMapping reorders answers and returns mapping where
// mapping[newIndex] = originalIndex.
func ShuffleAnswersWithMapping(rng *rand.Rand, answers []domain.Answer) ([]domain.Answer, []int) {
	indexes := make([]int, len(answers))
	for i := range indexes {
		indexes[i] = i
	}
	mapping := Shuffle(rng, indexes)

	shuffled := make([]domain.Answer, len(mapping))
	for k, original := range mapping {
		shuffled[k] = answers[original]
	}
	return shuffled, mapping
}

// Presentation is the per-request output of ProcessQuizSet. AnswerMapping must
// be persisted by the caller against the attempt it was generated for;
// QuestionsForUI is the only part that may reach a client.
type Presentation struct {
	Questions      []domain.Question
	AnswerMapping  domain.AnswerMapping
	QuestionsForUI []domain.UIQuestion
}

// ProcessQuizSet shuffles question order and, independently, each question's
// answers. Retries must pass the original question set again, never a
// previous presentation.
func ProcessQuizSet(rng *rand.Rand, questions []domain.Question) Presentation {
	ordered := Shuffle(rng, questions)

	p := Presentation{
		Questions:      make([]domain.Question, 0, len(ordered)),
		AnswerMapping:  make(domain.AnswerMapping, len(ordered)),
		QuestionsForUI: make([]domain.UIQuestion, 0, len(ordered)),
	}
	for _, q := range ordered {
		if len(q.Answers) > 0 {
			answers, mapping := ShuffleAnswersWithMapping(rng, q.Answers)
			q.Answers = answers
			p.AnswerMapping[q.ID] = mapping
		}
		p.Questions = append(p.Questions, q)
		p.QuestionsForUI = append(p.QuestionsForUI, toUI(q))
	}
	return p
}

func toUI(q domain.Question) domain.UIQuestion {
	answers := make([]domain.UIAnswer, 0, len(q.Answers))
	for _, a := range q.Answers {
		answers = append(answers, domain.UIAnswer{Content: a.Content})
	}
	return domain.UIQuestion{
		ID:      q.ID,
		Text:    q.Text,
		Answers: answers,
		// cardinality only; identity of the correct answers stays server side
		IsMultipleChoice: q.CorrectCount() > 1,
	}
}

// DecodeSubmittedAnswers translates shuffled indexes to original indexes.
// Indexes outside a question's mapping are dropped. Submissions for questions
// with no mapping pass through unchanged and their ids are returned so the
// caller can report the integrity problem.
func DecodeSubmittedAnswers(submitted []domain.SubmittedAnswer, mapping domain.AnswerMapping) ([]domain.SubmittedAnswer, []string) {
	decoded := make([]domain.SubmittedAnswer, 0, len(submitted))
	var missing []string
	for _, s := range submitted {
		m, ok := mapping[s.QuestionID]
		if !ok {
			missing = append(missing, s.QuestionID)
			decoded = append(decoded, s)
			continue
		}
		indexes := make([]int, 0, len(s.AnswerIndex))
		for _, i := range s.AnswerIndex {
			if i < 0 || i >= len(m) {
				continue
			}
			indexes = append(indexes, m[i])
		}
		decoded = append(decoded, domain.SubmittedAnswer{QuestionID: s.QuestionID, AnswerIndex: indexes})
	}
	return decoded, missing
}

// CorrectIndexes re-sorts ground truth by its canonical order field and
// returns the positions of the correct answers.
func CorrectIndexes(answers []domain.Answer) []int {
	sorted := make([]domain.Answer, len(answers))
	copy(sorted, answers)
	sort.SliceStable(sorted, func(i, j int) bool { return sorted[i].Order < sorted[j].Order })

	correct := []int{}
	for i, a := range sorted {
		if a.IsCorrect {
			correct = append(correct, i)
		}
	}
	return correct
}

// ExactMatch reports whether given selects exactly the correct set. Repeated
// indexes in given count against it.
func ExactMatch(given, correct []int) bool {
	if len(given) != len(correct) {
		return false
	}
	set := make(map[int]struct{}, len(given))
	for _, i := range given {
		set[i] = struct{}{}
	}
	if len(set) != len(correct) {
		return false
	}
	for _, i := range correct {
		if _, ok := set[i]; !ok {
			return false
		}
	}
	return true
}

// Score is the outcome of Grade.
type Score struct {
	Correct int
	Total   int
	Results []domain.QuestionResult
}

// Grade scores decoded submissions against freshly loaded questions. Every
// question counts toward the total, answered or not.
func Grade(questions []domain.Question, decoded []domain.SubmittedAnswer) Score {
	given := make(map[string][]int, len(decoded))
	for _, d := range decoded {
		given[d.QuestionID] = d.AnswerIndex
	}

	score := Score{Total: len(questions), Results: make([]domain.QuestionResult, 0, len(questions))}
	for _, q := range questions {
		correct := CorrectIndexes(q.Answers)
		selected, answered := given[q.ID]
		if !answered {
			selected = []int{}
		}
		ok := len(correct) > 0 && ExactMatch(selected, correct)
		if ok {
			score.Correct++
		}
		score.Results = append(score.Results, domain.QuestionResult{
			QuestionID:     q.ID,
			Correct:        ok,
			Given:          selected,
			CorrectIndexes: correct,
			Explanation:    q.Explanation,
		})
	}
	return score
}
