// Package dedupe flags proposed questions that look like existing ones using a
// cheap token-overlap heuristic. Scores are advisory, not a hard constraint.
package dedupe

import (
	"math"
	"regexp"
	"sort"
	"strings"

	"interview-quiz-service/internal/domain"
)

const (
	// DefaultThreshold is the score a match must exceed to be reported.
	DefaultThreshold = 0.5
	// DefaultLimit caps the matches reported per candidate.
	DefaultLimit = 5

	minTokenLen = 3
)

var (
	nonWord    = regexp.MustCompile(`[^\w\s\p{Z}]`)
	whitespace = regexp.MustCompile(`[\s\p{Z}]+`)
)

// Match is an existing question similar to a candidate.
type Match struct {
	ID         string  `json:"id"`
	Question   string  `json:"question"`
	Similarity float64 `json:"similarity"`
}

// Result is the duplicate verdict for one candidate.
type Result struct {
	QuestionIndex    int     `json:"questionIndex"`
	IsDuplicate      bool    `json:"isDuplicate"`
	SimilarQuestions []Match `json:"similarQuestions"`
}

type Option func(*Detector)

func WithThreshold(t float64) Option { return func(d *Detector) { d.threshold = t } }
func WithLimit(n int) Option         { return func(d *Detector) { d.limit = n } }

// Detector scores candidates against a corpus.
type Detector struct {
	threshold float64
	limit     int
}

func New(opts ...Option) *Detector {
	d := &Detector{threshold: DefaultThreshold, limit: DefaultLimit}
	for _, o := range opts {
		o(d)
	}
	if d.limit <= 0 {
		d.limit = DefaultLimit
	}
	return d
}

// FindDuplicates scores every candidate against every corpus entry. Results
// are returned in candidate order.
func (d *Detector) FindDuplicates(candidates []string, corpus []domain.CorpusEntry) []Result {
	results := make([]Result, 0, len(candidates))
	for i, candidate := range candidates {
		matches := d.Match(candidate, corpus)
		results = append(results, Result{
			QuestionIndex:    i,
			IsDuplicate:      len(matches) > 0,
			SimilarQuestions: matches,
		})
	}
	return results
}

// Match returns corpus entries scoring above the threshold, best first.
func (d *Detector) Match(candidate string, corpus []domain.CorpusEntry) []Match {
	matches := []Match{}
	for _, entry := range corpus {
		s := Similarity(candidate, entry.Question)
		if s > d.threshold {
			matches = append(matches, Match{ID: entry.ID, Question: entry.Question, Similarity: s})
		}
	}
	sort.SliceStable(matches, func(i, j int) bool { return matches[i].Similarity > matches[j].Similarity })
	if len(matches) > d.limit {
		matches = matches[:d.limit]
	}
	return matches
}

// Similarity returns a score in [0,1] for two question texts.
func Similarity(a, b string) float64 {
	s1, s2 := normalize(a), normalize(b)
	if s1 == s2 {
		return 1
	}
	if strings.Contains(s1, s2) || strings.Contains(s2, s1) {
		shorter, longer := len(s1), len(s2)
		if shorter > longer {
			shorter, longer = longer, shorter
		}
		return float64(shorter) / float64(longer)
	}

	w1, w2 := tokens(s1), tokens(s2)
	if len(w1) == 0 || len(w2) == 0 {
		return 0
	}

	union := make(map[string]struct{}, len(w1)+len(w2))
	for w := range w1 {
		union[w] = struct{}{}
	}
	for w := range w2 {
		union[w] = struct{}{}
	}

	var matches, weighted float64
	for w := range union {
		_, in1 := w1[w]
		_, in2 := w2[w]
		if in1 && in2 {
			matches++
			// longer shared words carry more signal
			weighted += math.Max(1, float64(len(w))/4)
		}
	}
	n := float64(len(union))
	return math.Max(matches/n, weighted/(2*n))
}

func normalize(s string) string {
	s = strings.ToLower(s)
	s = nonWord.ReplaceAllString(s, "")
	s = whitespace.ReplaceAllString(s, " ")
	return strings.TrimSpace(s)
}

func tokens(s string) map[string]struct{} {
	out := make(map[string]struct{})
	for _, w := range strings.Fields(s) {
		if len(w) >= minTokenLen {
			out[w] = struct{}{}
		}
	}
	return out
}
