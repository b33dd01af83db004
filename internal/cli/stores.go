package cli

import (
	"context"
	"time"

	"github.com/jackc/pgx/v4/pgxpool"
	"github.com/redis/go-redis/v9"

	"interview-quiz-service/internal/app"
	"interview-quiz-service/internal/config"
	"interview-quiz-service/internal/domain"
	"interview-quiz-service/internal/infra/memory"
	"interview-quiz-service/internal/infra/postgres"
	infraredis "interview-quiz-service/internal/infra/redis"
	"interview-quiz-service/internal/infra/sqlite"
	"interview-quiz-service/internal/logger"
)

// stores holds the backends selected by config. close releases them.
type stores struct {
	loader   memory.QuestionLoader
	pool     *pgxpool.Pool
	redis    *redis.Client
	cleanups []func()
}

func (s *stores) close() {
	for i := len(s.cleanups) - 1; i >= 0; i-- {
		s.cleanups[i]()
	}
}

// openStores picks the question backend: Postgres, then SQLite, then the
// built-in sample set.
func openStores(ctx context.Context, cfg config.Config, log *logger.Logger) (*stores, error) {
	s := &stores{}

	switch {
	case cfg.Postgres.URL != "":
		pool, err := pgxpool.Connect(ctx, cfg.Postgres.URL)
		if err != nil {
			return nil, err
		}
		s.pool = pool
		s.cleanups = append(s.cleanups, pool.Close)
		s.loader = postgres.NewQuestionLoader(pool)
		log.Info("questions backed by postgres")
	case cfg.SQLite.Path != "":
		db, err := sqlite.Open(cfg.SQLite.Path)
		if err != nil {
			return nil, err
		}
		if err := sqlite.AutoMigrate(db); err != nil {
			return nil, err
		}
		if sqlDB, err := db.DB(); err == nil {
			s.cleanups = append(s.cleanups, func() { _ = sqlDB.Close() })
		}
		s.loader = sqlite.NewQuestionLoader(db)
		log.Info("questions backed by sqlite", "path", cfg.SQLite.Path)
	default:
		s.loader = memory.NewQuestionStore(sampleQuestions()...)
		log.Warn("no database configured, serving built-in sample questions")
	}

	if cfg.Redis.Addr != "" {
		s.redis = redis.NewClient(&redis.Options{
			Addr:     cfg.Redis.Addr,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		})
		s.cleanups = append(s.cleanups, func() { _ = s.redis.Close() })
	}
	return s, nil
}

// questionRepository puts the configured cache in front of the loader.
func (s *stores) questionRepository(cfg config.Config) app.QuestionRepository {
	ttl := config.TTLDuration(cfg.Quiz.TTL, 10*time.Minute)
	if s.redis != nil {
		return infraredis.NewCorpusCache(s.redis, s.loader, ttl)
	}
	return memory.NewQuestionRepository(s.loader, ttl)
}

// attemptStore prefers Redis (mapping as a hash with TTL), then Postgres.
func (s *stores) attemptStore(cfg config.Config) app.AttemptStore {
	switch {
	case s.redis != nil:
		return infraredis.NewAttemptStore(s.redis, config.TTLDuration(cfg.Redis.TTL, 24*time.Hour))
	case s.pool != nil:
		return postgres.NewAttemptStore(s.pool)
	default:
		return memory.NewAttemptStore()
	}
}

// sampleQuestions keeps the service usable without any database.
func sampleQuestions() []domain.Question {
	return []domain.Question{
		{
			ID:          "sample-go-1",
			RoleID:      "backend",
			Text:        "Which statement about goroutines is true?",
			Explanation: "Goroutines are multiplexed onto OS threads by the Go scheduler.",
			Answers: []domain.Answer{
				{Content: "They are scheduled by the Go runtime", IsCorrect: true, Order: 0},
				{Content: "Each one maps to a dedicated OS thread", Order: 1},
				{Content: "They cannot communicate with each other", Order: 2},
				{Content: "They require explicit memory allocation", Order: 3},
			},
		},
		{
			ID:          "sample-go-2",
			RoleID:      "backend",
			Text:        "Which of these are safe ways to share state between goroutines?",
			Explanation: "Channels and mutexes both synchronize access; a plain global does not.",
			Answers: []domain.Answer{
				{Content: "Channels", IsCorrect: true, Order: 0},
				{Content: "sync.Mutex", IsCorrect: true, Order: 1},
				{Content: "An unguarded global variable", Order: 2},
			},
		},
		{
			ID:          "sample-fe-1",
			RoleID:      "frontend",
			Text:        "What does the dependency array of useEffect control?",
			Explanation: "The effect re-runs only when a listed dependency changes.",
			Answers: []domain.Answer{
				{Content: "When the effect re-runs", IsCorrect: true, Order: 0},
				{Content: "The order of rendering children", Order: 1},
				{Content: "Which CSS classes are applied", Order: 2},
			},
		},
	}
}
