package memory

import (
	"context"
	"math/rand"
	"sync"
	"time"

	"golang.org/x/sync/singleflight"

	"interview-quiz-service/internal/domain"
)

// QuestionLoader reads and writes question content in a backing store.
type QuestionLoader interface {
	GetQuestions(ctx context.Context, ids []string) ([]domain.Question, error)
	ListByRole(ctx context.Context, roleID string) ([]domain.Question, error)
	ListCorpus(ctx context.Context) ([]domain.CorpusEntry, error)
	SaveQuestions(ctx context.Context, questions []domain.Question) error
}

// QuestionRepository caches role listings and the duplicate corpus with TTL to
// avoid repeated full scans. Lookups by id always go to the loader so grading
// sees current ground truth.
type QuestionRepository struct {
	loader QuestionLoader
	ttl    time.Duration
	clock  func() time.Time
	sf     singleflight.Group
	rnd    *rand.Rand
	rndMu  sync.Mutex

	mu    sync.RWMutex
	cache map[string]cachedValue
}

type cachedValue struct {
	value     interface{}
	expiresAt time.Time
}

func NewQuestionRepository(loader QuestionLoader, ttl time.Duration) *QuestionRepository {
	return &QuestionRepository{
		loader: loader,
		ttl:    ttl,
		clock:  time.Now,
		rnd:    rand.New(rand.NewSource(time.Now().UnixNano())),
		cache:  make(map[string]cachedValue),
	}
}

func (r *QuestionRepository) GetQuestions(ctx context.Context, ids []string) ([]domain.Question, error) {
	return r.loader.GetQuestions(ctx, ids)
}

func (r *QuestionRepository) ListByRole(ctx context.Context, roleID string) ([]domain.Question, error) {
	v, err := r.cached(ctx, "role:"+roleID, func(ctx context.Context) (interface{}, error) {
		return r.loader.ListByRole(ctx, roleID)
	})
	if err != nil {
		return nil, err
	}
	questions := v.([]domain.Question)
	return append([]domain.Question(nil), questions...), nil
}

func (r *QuestionRepository) ListCorpus(ctx context.Context) ([]domain.CorpusEntry, error) {
	v, err := r.cached(ctx, "corpus", func(ctx context.Context) (interface{}, error) {
		return r.loader.ListCorpus(ctx)
	})
	if err != nil {
		return nil, err
	}
	corpus := v.([]domain.CorpusEntry)
	return append([]domain.CorpusEntry(nil), corpus...), nil
}

// SaveQuestions writes through and drops every cached listing.
func (r *QuestionRepository) SaveQuestions(ctx context.Context, questions []domain.Question) error {
	if err := r.loader.SaveQuestions(ctx, questions); err != nil {
		return err
	}
	r.mu.Lock()
	r.cache = make(map[string]cachedValue)
	r.mu.Unlock()
	return nil
}

func (r *QuestionRepository) cached(ctx context.Context, key string, load func(context.Context) (interface{}, error)) (interface{}, error) {
	now := r.clock()

	r.mu.RLock()
	if entry, ok := r.cache[key]; ok && entry.expiresAt.After(now) {
		r.mu.RUnlock()
		return entry.value, nil
	}
	r.mu.RUnlock()

	result, err, _ := r.sf.Do(key, func() (interface{}, error) {
		now := r.clock()
		r.mu.RLock()
		if entry, ok := r.cache[key]; ok && entry.expiresAt.After(now) {
			r.mu.RUnlock()
			return entry.value, nil
		}
		r.mu.RUnlock()

		value, err := load(ctx)
		if err != nil {
			return nil, err
		}

		r.mu.Lock()
		r.cache[key] = cachedValue{
			value:     value,
			expiresAt: now.Add(r.ttlWithJitter()),
		}
		r.mu.Unlock()
		return value, nil
	})
	if err != nil {
		return nil, err
	}
	return result, nil
}

func (r *QuestionRepository) ttlWithJitter() time.Duration {
	if r.ttl <= 0 {
		return 0
	}
	// add up to 10% jitter to spread expirations
	jitterMax := int64(r.ttl) / 10
	r.rndMu.Lock()
	defer r.rndMu.Unlock()
	return r.ttl + time.Duration(r.rnd.Int63n(jitterMax+1))
}
