package quizmap

import (
	"encoding/json"
	"math/rand"
	"reflect"
	"sort"
	"strings"
	"testing"

	"interview-quiz-service/internal/domain"
)

func TestShufflePermutation(t *testing.T) {
	rng := rand.New(rand.NewSource(1))
	for _, n := range []int{0, 1, 2, 7, 50} {
		in := make([]int, n)
		for i := range in {
			in[i] = i * 3
		}
		orig := append([]int(nil), in...)

		out := Shuffle(rng, in)
		if len(out) != n {
			t.Fatalf("n=%d: expected len %d, got %d", n, n, len(out))
		}
		if !reflect.DeepEqual(in, orig) {
			t.Fatalf("n=%d: input was mutated", n)
		}
		sorted := append([]int(nil), out...)
		sort.Ints(sorted)
		if !reflect.DeepEqual(sorted, orig) {
			t.Fatalf("n=%d: output is not a permutation: %v", n, out)
		}
	}
}

func TestShuffleReachesEveryPermutation(t *testing.T) {
	rng := rand.New(rand.NewSource(42))
	seen := map[string]int{}
	for i := 0; i < 6000; i++ {
		out := Shuffle(rng, []string{"a", "b", "c"})
		seen[strings.Join(out, "")]++
	}
	if len(seen) != 6 {
		t.Fatalf("expected all 6 permutations, got %v", seen)
	}
	for perm, count := range seen {
		if count < 700 {
			t.Fatalf("permutation %s looks under-sampled: %d", perm, count)
		}
	}
}

func TestShuffleAnswersWithMappingIsBijective(t *testing.T) {
	rng := rand.New(rand.NewSource(7))
	for n := 0; n <= 6; n++ {
		answers := make([]domain.Answer, n)
		for i := range answers {
			answers[i] = domain.Answer{Content: string(rune('A' + i)), Order: i}
		}

		shuffled, mapping := ShuffleAnswersWithMapping(rng, answers)
		if len(mapping) != n || len(shuffled) != n {
			t.Fatalf("n=%d: bad lengths mapping=%d shuffled=%d", n, len(mapping), len(shuffled))
		}
		seen := make([]bool, n)
		for _, original := range mapping {
			if original < 0 || original >= n || seen[original] {
				t.Fatalf("n=%d: mapping is not a bijection: %v", n, mapping)
			}
			seen[original] = true
		}

		restored := make([]domain.Answer, n)
		for k, original := range mapping {
			restored[original] = shuffled[k]
		}
		if !reflect.DeepEqual(restored, answers) {
			t.Fatalf("n=%d: restore mismatch: %v vs %v", n, restored, answers)
		}
	}
}

func TestShuffleAnswersEdgeCases(t *testing.T) {
	rng := rand.New(rand.NewSource(3))

	shuffled, mapping := ShuffleAnswersWithMapping(rng, nil)
	if len(shuffled) != 0 || len(mapping) != 0 {
		t.Fatalf("expected empty results, got %v %v", shuffled, mapping)
	}

	one := []domain.Answer{{Content: "only", IsCorrect: true}}
	shuffled, mapping = ShuffleAnswersWithMapping(rng, one)
	if !reflect.DeepEqual(mapping, []int{0}) || shuffled[0].Content != "only" {
		t.Fatalf("expected identity for one answer, got %v %v", shuffled, mapping)
	}
}

func TestProcessQuizSetNeverLeaksCorrectness(t *testing.T) {
	p := ProcessQuizSet(rand.New(rand.NewSource(11)), sampleQuestions())

	if len(p.QuestionsForUI) != 3 || len(p.Questions) != 3 {
		t.Fatalf("expected 3 questions, got %d/%d", len(p.QuestionsForUI), len(p.Questions))
	}
	raw, err := json.Marshal(p.QuestionsForUI)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	if strings.Contains(string(raw), "isCorrect") || strings.Contains(string(raw), "order") {
		t.Fatalf("ui payload leaks answer metadata: %s", raw)
	}

	for _, q := range p.QuestionsForUI {
		switch q.ID {
		case "q-multi":
			if !q.IsMultipleChoice {
				t.Fatalf("expected q-multi to be multiple choice")
			}
		case "q-single":
			if q.IsMultipleChoice {
				t.Fatalf("expected q-single to be single choice")
			}
		}
	}
}

func TestProcessQuizSetMappingMatchesPresentation(t *testing.T) {
	questions := sampleQuestions()
	byID := map[string]domain.Question{}
	for _, q := range questions {
		byID[q.ID] = q
	}

	p := ProcessQuizSet(rand.New(rand.NewSource(5)), questions)
	for i, q := range p.Questions {
		ui := p.QuestionsForUI[i]
		if ui.ID != q.ID {
			t.Fatalf("ui order diverges at %d", i)
		}
		mapping, ok := p.AnswerMapping[q.ID]
		if len(q.Answers) == 0 {
			if ok {
				t.Fatalf("question without answers should not get a mapping")
			}
			continue
		}
		original := byID[q.ID].Answers
		for k, a := range ui.Answers {
			if a.Content != original[mapping[k]].Content {
				t.Fatalf("%s: shuffled %d does not map to original %d", q.ID, k, mapping[k])
			}
		}
	}
}

func TestProcessQuizSetRetryIsIndependent(t *testing.T) {
	questions := make([]domain.Question, 8)
	for i := range questions {
		questions[i] = domain.Question{ID: string(rune('a' + i))}
	}
	rng := rand.New(rand.NewSource(99))

	differ := 0
	const trials = 200
	for i := 0; i < trials; i++ {
		first := ProcessQuizSet(rng, questions)
		retry := ProcessQuizSet(rng, questions)
		if order(first) != order(retry) {
			differ++
		}
	}
	if differ < trials*9/10 {
		t.Fatalf("expected retries to reorder nearly always, differed %d/%d", differ, trials)
	}
}

func TestRoundTripGrading(t *testing.T) {
	tests := []struct {
		name    string
		answers []domain.Answer
		pick    []string
		want    []int
	}{
		{
			name: "single correct",
			answers: []domain.Answer{
				{Content: "A", Order: 0},
				{Content: "B", IsCorrect: true, Order: 1},
			},
			pick: []string{"B"},
			want: []int{1},
		},
		{
			name: "multi correct",
			answers: []domain.Answer{
				{Content: "A", IsCorrect: true, Order: 0},
				{Content: "B", Order: 1},
				{Content: "C", IsCorrect: true, Order: 2},
				{Content: "D", Order: 3},
			},
			pick: []string{"A", "C"},
			want: []int{0, 2},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			for seed := int64(0); seed < 20; seed++ {
				q := domain.Question{ID: "q1", Answers: tt.answers}
				p := ProcessQuizSet(rand.New(rand.NewSource(seed)), []domain.Question{q})

				var selected []int
				for k, a := range p.QuestionsForUI[0].Answers {
					for _, want := range tt.pick {
						if a.Content == want {
							selected = append(selected, k)
						}
					}
				}
				decoded, missing := DecodeSubmittedAnswers([]domain.SubmittedAnswer{{QuestionID: "q1", AnswerIndex: selected}}, p.AnswerMapping)
				if len(missing) != 0 {
					t.Fatalf("unexpected missing mappings: %v", missing)
				}
				got := append([]int(nil), decoded[0].AnswerIndex...)
				sort.Ints(got)
				if !reflect.DeepEqual(got, tt.want) {
					t.Fatalf("seed %d: decoded %v, want %v", seed, got, tt.want)
				}

				score := Grade([]domain.Question{q}, decoded)
				if score.Correct != 1 {
					t.Fatalf("seed %d: expected graded correct, got %+v", seed, score)
				}
			}
		})
	}
}

func TestDecodeSubmittedAnswersFallbacks(t *testing.T) {
	mapping := domain.AnswerMapping{"q1": {2, 0, 1}}
	decoded, missing := DecodeSubmittedAnswers([]domain.SubmittedAnswer{
		{QuestionID: "q1", AnswerIndex: []int{0, 5, -1}},
		{QuestionID: "q2", AnswerIndex: []int{1}},
	}, mapping)

	if !reflect.DeepEqual(decoded[0].AnswerIndex, []int{2}) {
		t.Fatalf("expected out-of-range indexes dropped, got %v", decoded[0].AnswerIndex)
	}
	if !reflect.DeepEqual(decoded[1].AnswerIndex, []int{1}) {
		t.Fatalf("expected pass-through for unmapped question, got %v", decoded[1].AnswerIndex)
	}
	if !reflect.DeepEqual(missing, []string{"q2"}) {
		t.Fatalf("expected q2 reported missing, got %v", missing)
	}
}

func TestExactMatch(t *testing.T) {
	tests := []struct {
		name    string
		given   []int
		correct []int
		want    bool
	}{
		{name: "exact match", given: []int{0, 2}, correct: []int{0, 2}, want: true},
		{name: "order does not matter", given: []int{2, 0}, correct: []int{0, 2}, want: true},
		{name: "missing index", given: []int{0}, correct: []int{0, 2}, want: false},
		{name: "extra index", given: []int{0, 1, 2}, correct: []int{0, 2}, want: false},
		{name: "duplicate index", given: []int{0, 0}, correct: []int{0, 2}, want: false},
		{name: "nothing selected", given: nil, correct: []int{1}, want: false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := ExactMatch(tt.given, tt.correct); got != tt.want {
				t.Errorf("ExactMatch() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestCorrectIndexesUsesCanonicalOrder(t *testing.T) {
	answers := []domain.Answer{
		{Content: "C", IsCorrect: true, Order: 2},
		{Content: "A", IsCorrect: true, Order: 0},
		{Content: "B", Order: 1},
	}
	if got := CorrectIndexes(answers); !reflect.DeepEqual(got, []int{0, 2}) {
		t.Fatalf("expected [0 2], got %v", got)
	}
}

func TestGradeCountsUnansweredAsWrong(t *testing.T) {
	questions := sampleQuestions()
	score := Grade(questions, []domain.SubmittedAnswer{{QuestionID: "q-single", AnswerIndex: []int{1}}})
	if score.Total != 3 || score.Correct != 1 {
		t.Fatalf("expected 1/3, got %d/%d", score.Correct, score.Total)
	}
	for _, r := range score.Results {
		if r.QuestionID == "q-multi" && (r.Correct || r.Given == nil) {
			t.Fatalf("unanswered question should be wrong with empty selection: %+v", r)
		}
	}
}

func order(p Presentation) string {
	var b strings.Builder
	for _, q := range p.Questions {
		b.WriteString(q.ID)
	}
	return b.String()
}

func sampleQuestions() []domain.Question {
	return []domain.Question{
		{
			ID:   "q-single",
			Text: "Which status code means Not Found?",
			Answers: []domain.Answer{
				{Content: "200", Order: 0},
				{Content: "404", IsCorrect: true, Order: 1},
				{Content: "500", Order: 2},
			},
		},
		{
			ID:   "q-multi",
			Text: "Which are HTTP methods?",
			Answers: []domain.Answer{
				{Content: "GET", IsCorrect: true, Order: 0},
				{Content: "FETCH", Order: 1},
				{Content: "POST", IsCorrect: true, Order: 2},
				{Content: "SEND", Order: 3},
			},
		},
		{ID: "q-empty", Text: "Describe REST."},
	}
}
