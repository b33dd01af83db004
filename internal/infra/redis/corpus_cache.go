package redis

import (
	"context"
	"math/rand"
	"sort"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
	"golang.org/x/sync/singleflight"

	"interview-quiz-service/internal/domain"
)

// QuestionLoader fetches question content from a backing store.
type QuestionLoader interface {
	GetQuestions(ctx context.Context, ids []string) ([]domain.Question, error)
	ListByRole(ctx context.Context, roleID string) ([]domain.Question, error)
	ListCorpus(ctx context.Context) ([]domain.CorpusEntry, error)
	SaveQuestions(ctx context.Context, questions []domain.Question) error
}

// CorpusCache keeps the duplicate-detection corpus in a Redis hash and falls
// back to the loader on a miss. Everything else is delegated.
// Corpus is stored as: HSET questions:corpus {questionID} {text}
type CorpusCache struct {
	QuestionLoader

	client *redis.Client
	ttl    time.Duration
	sf     singleflight.Group
	rnd    *rand.Rand
	rndMu  sync.Mutex
}

func NewCorpusCache(client *redis.Client, loader QuestionLoader, ttl time.Duration) *CorpusCache {
	return &CorpusCache{
		QuestionLoader: loader,
		client:         client,
		ttl:            ttl,
		rnd:            rand.New(rand.NewSource(time.Now().UnixNano())),
	}
}

func (c *CorpusCache) ListCorpus(ctx context.Context) ([]domain.CorpusEntry, error) {
	cached, err := c.client.HGetAll(ctx, corpusKey).Result()
	if err == nil && len(cached) > 0 {
		return buildCorpus(cached), nil
	}

	result, err, _ := c.sf.Do(corpusKey, func() (interface{}, error) {
		// Re-check cache in case another goroutine filled it.
		cached, err := c.client.HGetAll(ctx, corpusKey).Result()
		if err == nil && len(cached) > 0 {
			return buildCorpus(cached), nil
		}

		corpus, err := c.QuestionLoader.ListCorpus(ctx)
		if err != nil {
			return nil, err
		}
		if len(corpus) == 0 {
			return corpus, nil
		}

		fields := make(map[string]interface{}, len(corpus))
		for _, e := range corpus {
			fields[e.ID] = e.Question
		}
		pipe := c.client.TxPipeline()
		pipe.HSet(ctx, corpusKey, fields)
		if ttl := c.ttlWithJitter(); ttl > 0 {
			pipe.Expire(ctx, corpusKey, ttl)
		}
		_, _ = pipe.Exec(ctx)

		return corpus, nil
	})
	if err != nil {
		return nil, err
	}
	return result.([]domain.CorpusEntry), nil
}

// SaveQuestions writes through to the loader and drops the cached corpus.
func (c *CorpusCache) SaveQuestions(ctx context.Context, questions []domain.Question) error {
	if err := c.QuestionLoader.SaveQuestions(ctx, questions); err != nil {
		return err
	}
	return c.Invalidate(ctx)
}

func (c *CorpusCache) Invalidate(ctx context.Context) error {
	return c.client.Del(ctx, corpusKey).Err()
}

const corpusKey = "questions:corpus"

func buildCorpus(cached map[string]string) []domain.CorpusEntry {
	corpus := make([]domain.CorpusEntry, 0, len(cached))
	for id, text := range cached {
		corpus = append(corpus, domain.CorpusEntry{ID: id, Question: text})
	}
	sort.Slice(corpus, func(i, j int) bool { return corpus[i].ID < corpus[j].ID })
	return corpus
}

func (c *CorpusCache) ttlWithJitter() time.Duration {
	if c.ttl <= 0 {
		return 0
	}
	jitterMax := int64(c.ttl) / 10
	c.rndMu.Lock()
	defer c.rndMu.Unlock()
	return c.ttl + time.Duration(c.rnd.Int63n(jitterMax+1))
}
