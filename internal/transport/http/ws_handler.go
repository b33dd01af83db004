package http

import (
	"context"
	"encoding/json"
	"net/http"
	"strconv"
	"time"

	"github.com/gorilla/websocket"

	"interview-quiz-service/internal/app"
	"interview-quiz-service/internal/domain"
	"interview-quiz-service/internal/logger"
)

// WSHandler serves the practice channel: one quiz attempt per connection,
// with per-question feedback before the final submit.
type WSHandler struct {
	service  *app.QuizService
	log      *logger.Logger
	upgrader websocket.Upgrader
}

func NewWSHandler(service *app.QuizService, log *logger.Logger) *WSHandler {
	return &WSHandler{
		service: service,
		log:     log,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin:     func(r *http.Request) bool { return true },
		},
	}
}

const writeWait = 10 * time.Second

type inboundMessage struct {
	Type    string          `json:"type"`
	Payload json.RawMessage `json:"payload"`
}

type answerPayload struct {
	QuestionID  string `json:"questionId"`
	AnswerIndex []int  `json:"answerIndex"`
}

type submitPayload struct {
	Answers []domain.SubmittedAnswer `json:"answers"`
}

type outboundMessage[T any] struct {
	Type    string `json:"type"`
	Payload T      `json:"payload"`
}

type errorPayload struct {
	Message string `json:"message"`
}

// ServeWS upgrades the request and starts a practice attempt. With attemptId
// the attempt is retried (fresh shuffle of the same questions); otherwise a
// new quiz is drawn for roleId.
func (h *WSHandler) ServeWS(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	userID := q.Get("userId")
	attemptID := q.Get("attemptId")
	roleID := q.Get("roleId")
	if userID == "" || (attemptID == "" && roleID == "") {
		http.Error(w, "missing userId, or attemptId/roleId", http.StatusBadRequest)
		return
	}
	count, _ := strconv.Atoi(q.Get("count"))

	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.log.Warn("ws upgrade failed", "error", err)
		return
	}
	defer conn.Close()
	// hijacked connections keep the server's deadlines
	_ = conn.SetReadDeadline(time.Time{})

	ctx := r.Context()
	view, err := h.start(ctx, userID, attemptID, roleID, count)
	if err != nil {
		_ = conn.SetWriteDeadline(time.Now().Add(writeWait))
		_ = conn.WriteJSON(outboundMessage[errorPayload]{Type: "error", Payload: errorPayload{Message: wsMessage(err)}})
		return
	}
	h.serve(ctx, conn, userID, view)
}

// wsConn is the part of *websocket.Conn a practice session uses.
type wsConn interface {
	ReadJSON(v any) error
	WriteJSON(v any) error
	SetWriteDeadline(t time.Time) error
	Close() error
}

func (h *WSHandler) serve(ctx context.Context, conn wsConn, userID string, view app.QuizView) {
	log := h.log.With("attemptId", view.AttemptID, "userId", userID)
	log.Debug("practice session opened")

	send := make(chan outboundMessage[any], 16)
	writerDone := make(chan struct{})

	// single writer; gorilla connections do not support concurrent writes
	go func() {
		defer close(writerDone)
		for msg := range send {
			_ = conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := conn.WriteJSON(msg); err != nil {
				log.Warn("ws write error", "error", err)
				// unblocks ReadJSON in the reader
				_ = conn.Close()
				return
			}
		}
	}()

	// push reports false once the writer is gone.
	push := func(msg outboundMessage[any]) bool {
		select {
		case send <- msg:
			return true
		case <-writerDone:
			return false
		}
	}

	ok := push(outboundMessage[any]{Type: "quiz", Payload: view})
	for ok {
		var inbound inboundMessage
		if err := conn.ReadJSON(&inbound); err != nil {
			break
		}
		switch inbound.Type {
		case "answer":
			var payload answerPayload
			if err := json.Unmarshal(inbound.Payload, &payload); err != nil {
				ok = push(errorMessage("invalid answer payload"))
				continue
			}
			res, err := h.service.CheckAnswer(ctx, userID, view.AttemptID, domain.SubmittedAnswer{
				QuestionID:  payload.QuestionID,
				AnswerIndex: payload.AnswerIndex,
			})
			if err != nil {
				h.report(log, err)
				ok = push(errorMessage(wsMessage(err)))
				continue
			}
			ok = push(outboundMessage[any]{Type: "answerResult", Payload: res})
		case "submit":
			var payload submitPayload
			if err := json.Unmarshal(inbound.Payload, &payload); err != nil {
				ok = push(errorMessage("invalid submit payload"))
				continue
			}
			res, err := h.service.SubmitQuiz(ctx, userID, view.AttemptID, payload.Answers)
			if err != nil {
				h.report(log, err)
				ok = push(errorMessage(wsMessage(err)))
				continue
			}
			ok = push(outboundMessage[any]{Type: "quizResult", Payload: res})
		default:
			ok = push(errorMessage("unsupported message type"))
		}
	}

	close(send)
	<-writerDone
	log.Debug("practice session closed")
}

func (h *WSHandler) start(ctx context.Context, userID, attemptID, roleID string, count int) (app.QuizView, error) {
	if attemptID != "" {
		return h.service.RetryQuiz(ctx, userID, attemptID)
	}
	return h.service.CreateQuiz(ctx, userID, app.CreateQuizRequest{RoleID: roleID, Count: count})
}

func (h *WSHandler) report(log *logger.Logger, err error) {
	if status, _ := statusFor(err); status == http.StatusInternalServerError {
		log.Error("practice request failed", "error", err)
	}
}

func errorMessage(msg string) outboundMessage[any] {
	return outboundMessage[any]{Type: "error", Payload: errorPayload{Message: msg}}
}

func wsMessage(err error) string {
	_, msg := statusFor(err)
	return msg
}
