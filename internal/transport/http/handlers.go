package http

import (
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"

	"interview-quiz-service/internal/app"
	"interview-quiz-service/internal/dedupe"
	"interview-quiz-service/internal/domain"
)

type submitRequest struct {
	Answers []domain.SubmittedAnswer `json:"answers"`
}

type duplicateRequest struct {
	Questions json.RawMessage `json:"questions"`
}

type duplicateResponse struct {
	Results []dedupe.Result `json:"results"`
}

type batchResponse struct {
	app.ImportResult
	Error string `json:"error,omitempty"`
}

func (s *Server) createQuiz(w http.ResponseWriter, r *http.Request) {
	var req app.CreateQuizRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	view, err := s.quizzes.CreateQuiz(r.Context(), userFrom(r.Context()), req)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	respondJSON(w, http.StatusCreated, view)
}

func (s *Server) retryQuiz(w http.ResponseWriter, r *http.Request) {
	view, err := s.quizzes.RetryQuiz(r.Context(), userFrom(r.Context()), chi.URLParam(r, "attemptID"))
	if err != nil {
		s.fail(w, r, err)
		return
	}
	respondJSON(w, http.StatusCreated, view)
}

func (s *Server) submitQuiz(w http.ResponseWriter, r *http.Request) {
	var req submitRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	result, err := s.quizzes.SubmitQuiz(r.Context(), userFrom(r.Context()), chi.URLParam(r, "attemptID"), req.Answers)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, result)
}

// checkDuplicates accepts {"questions": [...]} and rejects anything that is
// not a non-empty array of strings.
func (s *Server) checkDuplicates(w http.ResponseWriter, r *http.Request) {
	var req duplicateRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	var candidates []string
	if len(req.Questions) == 0 || json.Unmarshal(req.Questions, &candidates) != nil || candidates == nil {
		respondError(w, http.StatusBadRequest, "questions must be an array of strings")
		return
	}
	if len(candidates) == 0 {
		respondError(w, http.StatusBadRequest, "questions must not be empty")
		return
	}
	results, err := s.questions.CheckDuplicates(r.Context(), candidates)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, duplicateResponse{Results: results})
}

func (s *Server) importBatch(w http.ResponseWriter, r *http.Request) {
	var req app.ImportRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if len(req.Questions) == 0 {
		respondError(w, http.StatusBadRequest, "questions must not be empty")
		return
	}
	result, err := s.questions.ImportBatch(r.Context(), req)
	if err != nil {
		status, msg := statusFor(err)
		if status == http.StatusUnprocessableEntity {
			// the caller needs the skip reasons to regenerate
			respondJSON(w, status, batchResponse{ImportResult: result, Error: msg})
			return
		}
		s.fail(w, r, err)
		return
	}
	respondJSON(w, http.StatusCreated, batchResponse{ImportResult: result})
}
