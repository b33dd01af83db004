package http

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"

	"interview-quiz-service/internal/app"
	"interview-quiz-service/internal/domain"
	"interview-quiz-service/internal/logger"
)

// UserHeader carries the caller identity set by the upstream identity provider.
const UserHeader = "X-User-Id"

type ctxKey struct{}

// Server bundles the HTTP and websocket handlers of the quiz service.
type Server struct {
	quizzes   *app.QuizService
	questions *app.QuestionService
	log       *logger.Logger
	ws        *WSHandler
}

func NewServer(quizzes *app.QuizService, questions *app.QuestionService, log *logger.Logger) *Server {
	if log == nil {
		log = logger.Nop()
	}
	return &Server{
		quizzes:   quizzes,
		questions: questions,
		log:       log,
		ws:        NewWSHandler(quizzes, log),
	}
}

// Router builds the chi routes. allowedOrigins feeds the CORS middleware.
func (s *Server) Router(allowedOrigins []string) http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID, middleware.RealIP, middleware.Recoverer)
	r.Use(s.requestLog)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   allowedOrigins,
		AllowedMethods:   []string{"GET", "POST", "OPTIONS"},
		AllowedHeaders:   []string{"Content-Type", UserHeader},
		ExposedHeaders:   []string{"Content-Length"},
		AllowCredentials: true,
		MaxAge:           300,
	}))

	r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte("ok"))
	})
	r.Get("/ws", s.ws.ServeWS)

	r.Route("/api", func(r chi.Router) {
		r.Use(requireUser)
		r.Post("/quizzes", s.createQuiz)
		r.Post("/quizzes/{attemptID}/retry", s.retryQuiz)
		r.Post("/quizzes/{attemptID}/submit", s.submitQuiz)
		r.Post("/questions/check-duplicates", s.checkDuplicates)
		r.Post("/questions/batch", s.importBatch)
	})
	return r
}

func (s *Server) requestLog(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		start := time.Now()
		next.ServeHTTP(ww, r)
		s.log.Debug("http request",
			"method", r.Method,
			"path", r.URL.Path,
			"status", ww.Status(),
			"duration", time.Since(start),
			"requestId", middleware.GetReqID(r.Context()),
		)
	})
}

func requireUser(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		userID := r.Header.Get(UserHeader)
		if userID == "" {
			respondError(w, http.StatusUnauthorized, "missing "+UserHeader)
			return
		}
		next.ServeHTTP(w, r.WithContext(context.WithValue(r.Context(), ctxKey{}, userID)))
	})
}

func userFrom(ctx context.Context) string {
	id, _ := ctx.Value(ctxKey{}).(string)
	return id
}

func respondJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if v != nil {
		_ = json.NewEncoder(w).Encode(v)
	}
}

type errorBody struct {
	Error string `json:"error"`
}

func respondError(w http.ResponseWriter, status int, msg string) {
	respondJSON(w, status, errorBody{Error: msg})
}

// statusFor maps use case errors to an HTTP status and a client-safe message.
func statusFor(err error) (int, string) {
	switch {
	case errors.Is(err, domain.ErrAttemptNotFound), errors.Is(err, domain.ErrQuestionNotFound):
		return http.StatusNotFound, err.Error()
	case errors.Is(err, domain.ErrForbidden):
		return http.StatusForbidden, err.Error()
	case errors.Is(err, domain.ErrAlreadySubmitted):
		return http.StatusConflict, err.Error()
	case errors.Is(err, domain.ErrNoQuestions), errors.Is(err, domain.ErrInvalidQuestion):
		return http.StatusBadRequest, err.Error()
	case errors.Is(err, domain.ErrBatchRejected):
		return http.StatusUnprocessableEntity, err.Error()
	default:
		return http.StatusInternalServerError, "internal error"
	}
}

func (s *Server) fail(w http.ResponseWriter, r *http.Request, err error) {
	status, msg := statusFor(err)
	if status == http.StatusInternalServerError {
		s.log.Error("request failed", "path", r.URL.Path, "requestId", middleware.GetReqID(r.Context()), "error", err)
	}
	respondError(w, status, msg)
}
