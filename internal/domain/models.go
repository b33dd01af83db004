package domain

import "time"

// Answer is one option of a question. Its position in Question.Answers is the
// original index; Order is the canonical order field kept by the store.
type Answer struct {
	Content   string `json:"content" yaml:"content"`
	IsCorrect bool   `json:"isCorrect" yaml:"isCorrect"`
	Order     int    `json:"order" yaml:"order"`
}

// Question is the server-side, correctness-labeled question record.
type Question struct {
	ID          string   `json:"id" yaml:"id"`
	RoleID      string   `json:"roleId" yaml:"roleId"`
	Text        string   `json:"text" yaml:"text"`
	Explanation string   `json:"explanation,omitempty" yaml:"explanation"`
	Answers     []Answer `json:"answers" yaml:"answers"`
}

// CorrectCount returns how many answers are marked correct.
func (q Question) CorrectCount() int {
	n := 0
	for _, a := range q.Answers {
		if a.IsCorrect {
			n++
		}
	}
	return n
}

// UIAnswer is the only answer shape that is ever sent to clients.
type UIAnswer struct {
	Content string `json:"content"`
}

// UIQuestion is a client-safe question: answers are reordered and stripped of
// correctness flags.
type UIQuestion struct {
	ID               string     `json:"id"`
	Text             string     `json:"text"`
	Answers          []UIAnswer `json:"answers"`
	IsMultipleChoice bool       `json:"isMultipleChoice"`
}

// AnswerMapping translates shuffled answer indexes back to original indexes,
// keyed by question id: mapping[newIndex] = originalIndex.
type AnswerMapping map[string][]int

// SubmittedAnswer is a client selection for one question.
type SubmittedAnswer struct {
	QuestionID  string `json:"questionId"`
	AnswerIndex []int  `json:"answerIndex"`
}

// CorpusEntry is an existing question text used for duplicate detection.
type CorpusEntry struct {
	ID       string `json:"id"`
	Question string `json:"question"`
}

// Attempt is one generated presentation of a question set. The mapping is
// owned by the attempt and must be persisted with it to decode submissions.
type Attempt struct {
	ID            string        `json:"id"`
	UserID        string        `json:"userId"`
	RoleID        string        `json:"roleId,omitempty"`
	QuestionIDs   []string      `json:"questionIds"`
	AnswerMapping AnswerMapping `json:"answerMapping"`
	RetryOf       string        `json:"retryOf,omitempty"`
	CreatedAt     time.Time     `json:"createdAt"`
	CompletedAt   *time.Time    `json:"completedAt,omitempty"`
	Score         *int          `json:"score,omitempty"`
}

// Completed reports whether the attempt has already been graded.
func (a Attempt) Completed() bool {
	return a.CompletedAt != nil
}

// QuestionResult is the graded outcome of a single question.
type QuestionResult struct {
	QuestionID     string `json:"questionId"`
	Correct        bool   `json:"correct"`
	Given          []int  `json:"given"`
	CorrectIndexes []int  `json:"correctIndexes"`
	Explanation    string `json:"explanation,omitempty"`
}

// QuizResult summarizes a graded attempt.
type QuizResult struct {
	AttemptID string           `json:"attemptId"`
	Score     int              `json:"score"`
	Total     int              `json:"total"`
	Results   []QuestionResult `json:"results"`
}

// AnswerResult is the practice-mode feedback for a single question.
type AnswerResult struct {
	QuestionID  string `json:"questionId"`
	Correct     bool   `json:"correct"`
	Explanation string `json:"explanation,omitempty"`
}
