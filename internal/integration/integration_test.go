package integration

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"testing"
	"time"

	"github.com/jackc/pgx/v4/pgxpool"
	goredis "github.com/redis/go-redis/v9"
	tc "github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/wait"
	"github.com/uptrace/bun"
	"github.com/uptrace/bun/dialect/pgdialect"
	"github.com/uptrace/bun/driver/pgdriver"
	"github.com/uptrace/bun/migrate"

	"interview-quiz-service/internal/app"
	"interview-quiz-service/internal/domain"
	pgstore "interview-quiz-service/internal/infra/postgres"
	pgmigrations "interview-quiz-service/internal/infra/postgres/migrations"
	infraredis "interview-quiz-service/internal/infra/redis"
)

func TestQuizEndToEnd(t *testing.T) {
	ctx := context.Background()
	requireDocker(t)

	pgURL, pgCleanup := startPostgres(t, ctx)
	defer pgCleanup()
	redisURL, redisCleanup := startRedis(t, ctx)
	defer redisCleanup()

	migrateDB(t, ctx, pgURL)

	pool, err := pgxpool.Connect(ctx, pgURL)
	if err != nil {
		t.Fatalf("connect pg: %v", err)
	}
	defer pool.Close()

	redisClient, err := redisClientFromURL(redisURL)
	if err != nil {
		t.Fatalf("redis client: %v", err)
	}
	defer redisClient.Close()

	questions := infraredis.NewCorpusCache(redisClient, pgstore.NewQuestionLoader(pool), 5*time.Minute)
	imports := app.NewQuestionService(questions, nil, 0.5, nil)

	imported, err := imports.ImportBatch(ctx, app.ImportRequest{RoleID: "backend", Questions: sampleQuestions()})
	if err != nil {
		t.Fatalf("import: %v", err)
	}
	if len(imported.Accepted) != 2 {
		t.Fatalf("expected 2 accepted questions, got %+v", imported)
	}

	dupes, err := imports.CheckDuplicates(ctx, []string{"What is 2 + 2?"})
	if err != nil {
		t.Fatalf("check duplicates: %v", err)
	}
	if !dupes[0].IsDuplicate || dupes[0].SimilarQuestions[0].Similarity != 1 {
		t.Fatalf("expected imported question to be reported, got %+v", dupes[0])
	}

	for name, attempts := range map[string]app.AttemptStore{
		"postgres": pgstore.NewAttemptStore(pool),
		"redis":    infraredis.NewAttemptStore(redisClient, 5*time.Minute),
	} {
		t.Run(name, func(t *testing.T) {
			service := app.NewQuizService(questions, attempts)
			view, err := service.CreateQuiz(ctx, "u1", app.CreateQuizRequest{RoleID: "backend"})
			if err != nil {
				t.Fatalf("create: %v", err)
			}
			if len(view.Questions) != 2 {
				t.Fatalf("expected 2 questions, got %d", len(view.Questions))
			}

			answers := make([]domain.SubmittedAnswer, 0, len(view.Questions))
			for _, q := range view.Questions {
				answers = append(answers, domain.SubmittedAnswer{QuestionID: q.ID, AnswerIndex: pick(q, "4", "Channels", "sync.Mutex")})
			}
			result, err := service.SubmitQuiz(ctx, "u1", view.AttemptID, answers)
			if err != nil {
				t.Fatalf("submit: %v", err)
			}
			if result.Score != 2 || result.Total != 2 {
				t.Fatalf("expected 2/2, got %+v", result)
			}
			if _, err := service.SubmitQuiz(ctx, "u1", view.AttemptID, answers); !errors.Is(err, domain.ErrAlreadySubmitted) {
				t.Fatalf("expected already submitted, got %v", err)
			}
		})
	}
}

func pick(q domain.UIQuestion, contents ...string) []int {
	var out []int
	for i, a := range q.Answers {
		for _, c := range contents {
			if a.Content == c {
				out = append(out, i)
			}
		}
	}
	return out
}

func startPostgres(t *testing.T, ctx context.Context) (string, func()) {
	t.Helper()
	req := tc.ContainerRequest{
		Image:        "postgres:15-alpine",
		Env:          map[string]string{"POSTGRES_USER": "quiz", "POSTGRES_PASSWORD": "quizpass", "POSTGRES_DB": "quizdb"},
		ExposedPorts: []string{"5432/tcp"},
		WaitingFor:   wait.ForLog("database system is ready to accept connections").WithOccurrence(2).WithStartupTimeout(60 * time.Second),
	}
	container, err := tc.GenericContainer(ctx, tc.GenericContainerRequest{
		ContainerRequest: req,
		Started:          true,
	})
	if err != nil {
		if strings.Contains(err.Error(), "Cannot connect to the Docker daemon") {
			t.Skipf("docker not available: %v", err)
		}
		t.Fatalf("start postgres: %v", err)
	}
	host, err := container.Host(ctx)
	if err != nil {
		t.Fatalf("host: %v", err)
	}
	port, err := container.MappedPort(ctx, "5432/tcp")
	if err != nil {
		t.Fatalf("port: %v", err)
	}
	dsn := fmt.Sprintf("postgres://quiz:quizpass@%s:%s/quizdb?sslmode=disable", host, port.Port())
	return dsn, func() {
		_ = container.Terminate(ctx)
	}
}

func startRedis(t *testing.T, ctx context.Context) (string, func()) {
	t.Helper()
	req := tc.ContainerRequest{
		Image:        "redis:7-alpine",
		ExposedPorts: []string{"6379/tcp"},
		WaitingFor:   wait.ForListeningPort("6379/tcp").WithStartupTimeout(30 * time.Second),
	}
	container, err := tc.GenericContainer(ctx, tc.GenericContainerRequest{
		ContainerRequest: req,
		Started:          true,
	})
	if err != nil {
		if strings.Contains(err.Error(), "Cannot connect to the Docker daemon") {
			t.Skipf("docker not available: %v", err)
		}
		t.Fatalf("start redis: %v", err)
	}
	host, err := container.Host(ctx)
	if err != nil {
		t.Fatalf("redis host: %v", err)
	}
	port, err := container.MappedPort(ctx, "6379/tcp")
	if err != nil {
		t.Fatalf("redis port: %v", err)
	}
	url := fmt.Sprintf("redis://%s:%s", host, port.Port())
	return url, func() {
		_ = container.Terminate(ctx)
	}
}

func migrateDB(t *testing.T, ctx context.Context, dsn string) {
	t.Helper()
	sqldb := sql.OpenDB(pgdriver.NewConnector(pgdriver.WithDSN(dsn)))
	db := bun.NewDB(sqldb, pgdialect.New())
	defer db.Close()

	migrator := migrate.NewMigrator(db, pgmigrations.Migrations)
	if err := migrator.Init(ctx); err != nil {
		t.Fatalf("migrator init: %v", err)
	}
	if _, err := migrator.Migrate(ctx); err != nil {
		t.Fatalf("migrate: %v", err)
	}
}

func sampleQuestions() []domain.Question {
	return []domain.Question{
		{
			Text:        "What is 2 + 2?",
			Explanation: "Basic arithmetic.",
			Answers: []domain.Answer{
				{Content: "3"},
				{Content: "4", IsCorrect: true},
				{Content: "5"},
			},
		},
		{
			Text: "Which primitives synchronize goroutines?",
			Answers: []domain.Answer{
				{Content: "Channels", IsCorrect: true},
				{Content: "sync.Mutex", IsCorrect: true},
				{Content: "fmt.Println"},
			},
		},
	}
}

func redisClientFromURL(url string) (*goredis.Client, error) {
	opts, err := goredis.ParseURL(url)
	if err != nil {
		return nil, err
	}
	return goredis.NewClient(&goredis.Options{
		Addr:     opts.Addr,
		Password: opts.Password,
		DB:       opts.DB,
	}), nil
}

func requireDocker(t *testing.T) {
	t.Helper()
	if _, err := tc.NewDockerProvider(); err != nil {
		t.Skipf("docker not available: %v", err)
	}
}
