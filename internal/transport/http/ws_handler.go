package http

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"quiz-arena/internal/app"
	"quiz-arena/internal/domain"
	"quiz-arena/internal/identity"
)

type WSHandler struct {
	service  *app.MatchService
	ids      *identity.Service
	log      *zap.Logger
	upgrader websocket.Upgrader
}

func NewWSHandler(service *app.MatchService, ids *identity.Service, log *zap.Logger) *WSHandler {
	if log == nil {
		log = zap.NewNop()
	}
	return &WSHandler{
		service: service,
		ids:     ids,
		log:     log,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin:     func(r *http.Request) bool { return true },
		},
	}
}

type inboundMessage struct {
	Type    string          `json:"type"`
	Payload json.RawMessage `json:"payload"`
}

type readyPayload struct {
	Ready bool `json:"ready"`
}

type answerPayload struct {
	QuestionID string `json:"questionId"`
	Option     string `json:"option"`
	// SentAt is the client clock in unix milliseconds; recorded, never trusted.
	SentAt int64 `json:"sentAt"`
}

type joinedPayload struct {
	Room        string             `json:"room"`
	Participant domain.Participant `json:"participant"`
}

type answerAccepted struct {
	QuestionID string `json:"questionId"`
	ReceiptSeq uint64 `json:"receiptSeq"`
	LatencyMs  int64  `json:"latencyMs"`
}

type outboundMessage[T any] struct {
	Type    string `json:"type"`
	Payload T      `json:"payload"`
}

type errorPayload struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

// ServeWS upgrades HTTP requests to websockets and wires them into the match use cases.
func (h *WSHandler) ServeWS(w http.ResponseWriter, r *http.Request) {
	code := r.URL.Query().Get("code")
	if code == "" {
		http.Error(w, "missing code", http.StatusBadRequest)
		return
	}
	id, err := h.ids.FromRequest(r)
	if err != nil {
		http.Error(w, err.Error(), http.StatusUnauthorized)
		return
	}

	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.log.Warn("ws upgrade failed", zap.Error(err))
		return
	}
	defer conn.Close()

	// room actions outlive the request context so a closing socket still
	// reaches the room as a disconnect
	ctx := context.WithoutCancel(r.Context())
	log := h.log.With(zap.String("room", code), zap.String("user", id.UserID))

	joined, err := h.service.JoinRoom(ctx, code, id)
	if err != nil {
		logAction(log, "join", err)
		_ = conn.WriteJSON(outboundMessage[errorPayload]{Type: "error", Payload: toErrorPayload(err)})
		return
	}
	left := false
	defer func() {
		if !left {
			_ = h.service.Disconnect(ctx, code, id.UserID)
		}
	}()

	updates, cancel, err := h.service.Subscribe(ctx, code)
	if err != nil {
		logAction(log, "subscribe", err)
		_ = conn.WriteJSON(outboundMessage[errorPayload]{Type: "error", Payload: toErrorPayload(err)})
		return
	}
	defer cancel()

	send := make(chan outboundMessage[any], 16)
	send <- outboundMessage[any]{Type: "joined", Payload: joinedPayload{Room: code, Participant: joined}}
	closeSignals := make(chan struct{})
	writerDone := make(chan struct{})
	updatesDone := make(chan struct{})
	// ordered keeps a reply ahead of the room events its own action caused
	var ordered sync.Mutex

	go func() {
		defer close(writerDone)
		for msg := range send {
			if err := conn.WriteJSON(msg); err != nil {
				log.Debug("ws write error", zap.Error(err))
				return
			}
		}
	}()

	go func() {
		defer close(updatesDone)
		for {
			select {
			case update, ok := <-updates:
				if !ok {
					// room disposed; unblock the reader
					_ = conn.SetReadDeadline(time.Now())
					return
				}
				ordered.Lock()
				select {
				case send <- outboundMessage[any]{Type: string(update.Type), Payload: update}:
					ordered.Unlock()
				case <-closeSignals:
					ordered.Unlock()
					return
				case <-writerDone:
					ordered.Unlock()
					return
				}
			case <-closeSignals:
				return
			}
		}
	}()

	log.Info("participant connected")

	for !left {
		var inbound inboundMessage
		if err := conn.ReadJSON(&inbound); err != nil {
			break
		}
		ordered.Lock()
		reply := h.handle(ctx, log, code, id.UserID, inbound)
		if inbound.Type == "leave" && reply.Type != "error" {
			left = true
		}
		if reply.Type != "" {
			select {
			case send <- reply:
			case <-writerDone:
			}
		}
		ordered.Unlock()
	}

	close(closeSignals)
	<-updatesDone
	close(send)
	<-writerDone
	log.Info("participant disconnected", zap.Bool("left", left))
}

func (h *WSHandler) handle(ctx context.Context, log *zap.Logger, code, userID string, inbound inboundMessage) outboundMessage[any] {
	var err error
	switch inbound.Type {
	case "ready":
		var payload readyPayload
		if err := json.Unmarshal(inbound.Payload, &payload); err != nil {
			return errorMessage(errors.New("invalid ready payload"))
		}
		err = h.service.MarkReady(ctx, code, userID, payload.Ready)
	case "start":
		err = h.service.StartMatch(ctx, code, userID)
	case "advance":
		err = h.service.Advance(ctx, code, userID)
	case "leave":
		err = h.service.LeaveRoom(ctx, code, userID)
	case "answer":
		var payload answerPayload
		if err := json.Unmarshal(inbound.Payload, &payload); err != nil {
			return errorMessage(errors.New("invalid answer payload"))
		}
		var sentAt time.Time
		if payload.SentAt > 0 {
			sentAt = time.UnixMilli(payload.SentAt)
		}
		receipt, err := h.service.SubmitAnswer(ctx, code, userID, payload.QuestionID, payload.Option, sentAt)
		if err != nil {
			logAction(log, inbound.Type, err)
			return errorMessage(err)
		}
		return outboundMessage[any]{Type: "answerAccepted", Payload: answerAccepted{
			QuestionID: receipt.QuestionID,
			ReceiptSeq: receipt.ReceiptSeq,
			LatencyMs:  receipt.Latency.Milliseconds(),
		}}
	default:
		return errorMessage(errors.New("unsupported message type"))
	}
	if err != nil {
		logAction(log, inbound.Type, err)
		return errorMessage(err)
	}
	return outboundMessage[any]{}
}

// logAction keeps ordinary player mistakes out of the warning stream.
func logAction(log *zap.Logger, action string, err error) {
	if domain.IsRejection(err) {
		log.Debug("action rejected", zap.String("action", action), zap.Error(err))
		return
	}
	log.Warn("action failed", zap.String("action", action), zap.Error(err))
}

func errorMessage(err error) outboundMessage[any] {
	return outboundMessage[any]{Type: "error", Payload: toErrorPayload(err)}
}

func toErrorPayload(err error) errorPayload {
	return errorPayload{Code: errorCode(err), Message: err.Error()}
}

// errorCode gives clients a stable machine readable reason.
func errorCode(err error) string {
	codes := []struct {
		err  error
		code string
	}{
		{domain.ErrRoomNotFound, "room_not_found"},
		{domain.ErrParticipantNotFound, "not_participant"},
		{domain.ErrInvalidSettings, "invalid_settings"},
		{domain.ErrInsufficientQuestions, "insufficient_questions"},
		{domain.ErrQuestionsUnavailable, "questions_unavailable"},
		{domain.ErrCodeSpaceExhausted, "code_space_exhausted"},
		{domain.ErrRoomFull, "room_full"},
		{domain.ErrAlreadyStarted, "already_started"},
		{domain.ErrNotHost, "not_host"},
		{domain.ErrNotReady, "not_ready"},
		{domain.ErrWrongPhase, "wrong_phase"},
		{domain.ErrAlreadyAnswered, "already_answered"},
		{domain.ErrStaleQuestion, "stale_question"},
		{domain.ErrInvalidOption, "invalid_option"},
		{domain.ErrRoomClosed, "room_closed"},
		{domain.ErrUnauthenticated, "unauthenticated"},
	}
	for _, c := range codes {
		if errors.Is(err, c.err) {
			return c.code
		}
	}
	return "bad_request"
}
