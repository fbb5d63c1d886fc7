package http

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"go.uber.org/zap"

	"quiz-arena/internal/app"
	"quiz-arena/internal/domain"
	"quiz-arena/internal/identity"
	"quiz-arena/internal/logging"
)

// NewRouter wires the REST endpoints and the websocket endpoint.
func NewRouter(service *app.MatchService, ids *identity.Service, log *zap.Logger, allowedOrigins []string) http.Handler {
	if len(allowedOrigins) == 0 {
		allowedOrigins = []string{"*"}
	}
	rooms := &roomHandler{service: service, log: log}
	ws := NewWSHandler(service, ids, log)

	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.Recoverer)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: allowedOrigins,
		AllowedMethods: []string{"GET", "POST", "OPTIONS"},
		AllowedHeaders: []string{"Accept", "Authorization", "Content-Type"},
		MaxAge:         300,
	}))

	r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("ok"))
	})
	r.Get("/ws", ws.ServeWS)

	r.Route("/rooms", func(r chi.Router) {
		r.Use(logging.RequestLogger(log))
		r.Get("/", rooms.list)
		r.Get("/{code}", rooms.get)
		r.With(ids.Middleware).Post("/", rooms.create)
	})
	return r
}

type roomHandler struct {
	service *app.MatchService
	log     *zap.Logger
}

func (h *roomHandler) create(w http.ResponseWriter, r *http.Request) {
	host, _ := identity.FromContext(r.Context())
	var settings domain.RoomSettings
	if err := json.NewDecoder(r.Body).Decode(&settings); err != nil {
		writeError(w, http.StatusBadRequest, errors.New("invalid room settings payload"))
		return
	}
	info, err := h.service.CreateRoom(r.Context(), host, settings)
	if err != nil {
		logAction(h.log.With(zap.String("host", host.UserID)), "create", err)
		writeError(w, statusFor(err), err)
		return
	}
	writeJSON(w, http.StatusCreated, info)
}

func (h *roomHandler) list(w http.ResponseWriter, r *http.Request) {
	rooms, err := h.service.ListPublic(r.Context())
	if err != nil {
		writeError(w, statusFor(err), err)
		return
	}
	if rooms == nil {
		rooms = []domain.RoomInfo{}
	}
	writeJSON(w, http.StatusOK, rooms)
}

func (h *roomHandler) get(w http.ResponseWriter, r *http.Request) {
	info, err := h.service.Lookup(r.Context(), chi.URLParam(r, "code"))
	if err != nil {
		writeError(w, statusFor(err), err)
		return
	}
	writeJSON(w, http.StatusOK, info)
}

func statusFor(err error) int {
	switch {
	case errors.Is(err, domain.ErrRoomNotFound):
		return http.StatusNotFound
	case errors.Is(err, domain.ErrInvalidSettings):
		return http.StatusBadRequest
	case errors.Is(err, domain.ErrInsufficientQuestions):
		return http.StatusUnprocessableEntity
	case errors.Is(err, domain.ErrQuestionsUnavailable):
		return http.StatusBadGateway
	case errors.Is(err, domain.ErrUnauthenticated):
		return http.StatusUnauthorized
	case errors.Is(err, domain.ErrCodeSpaceExhausted), errors.Is(err, domain.ErrRoomClosed):
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}

func writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}

func writeError(w http.ResponseWriter, status int, err error) {
	writeJSON(w, status, errorPayload{Code: errorCode(err), Message: err.Error()})
}
