package http

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"live-quiz-service/internal/app"
	"live-quiz-service/internal/domain"
)

const adminSecretHeader = "X-Admin-Secret"

type registerRequest struct {
	Name     string `json:"name" validate:"required,max=64"`
	Identity string `json:"identity" validate:"required,max=254"`
}

type answerRequest struct {
	Identity    string `json:"identity" validate:"required"`
	QuestionID  string `json:"questionId" validate:"required"`
	OptionIndex int    `json:"optionIndex"`
	ElapsedMs   int64  `json:"elapsedMs"`
}

type loginRequest struct {
	Secret string `json:"secret" validate:"required"`
}

type startRequest struct {
	SessionID int `json:"sessionId" validate:"required"`
}

// RESTHandler mirrors the websocket operations over plain HTTP.
type RESTHandler struct {
	engine  *app.Engine
	auth    *app.Authenticator
	archive app.ResultArchive
}

func NewRESTHandler(engine *app.Engine, auth *app.Authenticator, archive app.ResultArchive) *RESTHandler {
	return &RESTHandler{engine: engine, auth: auth, archive: archive}
}

// Routes mounts the API under r.
func (h *RESTHandler) Routes(r chi.Router) {
	r.Get("/state", h.handleState)
	r.Get("/leaderboard", h.handleLeaderboard)
	r.Get("/participants", h.handleParticipants)
	r.Post("/participants", h.handleRegister)
	r.Get("/sessions", h.handleSessions)
	r.Post("/answers", h.handleAnswer)
	r.Get("/results", h.handleResults)

	r.Route("/admin", func(r chi.Router) {
		r.Post("/login", h.handleLogin)
		r.Group(func(r chi.Router) {
			r.Use(h.requireAdmin)
			r.Get("/answers", h.handleAnswers)
			r.Get("/sessions/{sessionID}", h.handleSessionDetail)
			r.Post("/start", h.handleStart)
			r.Post("/next", h.handleCommand(app.CommandNext))
			r.Post("/end", h.handleCommand(app.CommandEnd))
			r.Post("/reset", h.handleCommand(app.CommandReset))
		})
	})
}

func (h *RESTHandler) handleState(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, h.engine.Snapshot())
}

func (h *RESTHandler) handleLeaderboard(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, h.engine.Leaderboard())
}

func (h *RESTHandler) handleParticipants(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, h.engine.Participants())
}

func (h *RESTHandler) handleSessions(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, h.engine.Snapshot().Sessions)
}

func (h *RESTHandler) handleRegister(w http.ResponseWriter, r *http.Request) {
	var req registerRequest
	if err := readJSON(r, &req); err != nil {
		writeBadRequest(w, err)
		return
	}
	p, err := h.engine.RegisterParticipant(req.Name, req.Identity)
	switch {
	case errors.Is(err, domain.ErrAlreadyRegistered):
		writeJSON(w, http.StatusOK, registeredPayload{Participant: p, Existing: true})
	case err != nil:
		writeError(w, err)
	default:
		writeJSON(w, http.StatusCreated, registeredPayload{Participant: p})
	}
}

func (h *RESTHandler) handleAnswer(w http.ResponseWriter, r *http.Request) {
	var req answerRequest
	if err := readJSON(r, &req); err != nil {
		writeBadRequest(w, err)
		return
	}
	res, err := h.engine.SubmitAnswer(req.Identity, req.QuestionID, req.OptionIndex, req.ElapsedMs)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, res)
}

func (h *RESTHandler) handleResults(w http.ResponseWriter, r *http.Request) {
	records, err := h.archive.Leaderboards(r.Context())
	if err != nil {
		writeError(w, err)
		return
	}
	if records == nil {
		records = []domain.LeaderboardRecord{}
	}
	writeJSON(w, http.StatusOK, records)
}

func (h *RESTHandler) handleLogin(w http.ResponseWriter, r *http.Request) {
	var req loginRequest
	if err := readJSON(r, &req); err != nil {
		writeBadRequest(w, err)
		return
	}
	if err := h.auth.PromoteToAdmin(req.Secret); err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]bool{"admin": true})
}

func (h *RESTHandler) handleAnswers(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, h.engine.Answers())
}

// handleSessionDetail returns a catalog session with its correct answers.
func (h *RESTHandler) handleSessionDetail(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.Atoi(chi.URLParam(r, "sessionID"))
	if err != nil {
		writeBadRequest(w, err)
		return
	}
	session, ok := h.engine.Catalog().Session(id)
	if !ok {
		writeJSON(w, http.StatusNotFound, errorPayload{Code: "unknown_session", Message: "session not in catalog"})
		return
	}
	writeJSON(w, http.StatusOK, session)
}

func (h *RESTHandler) handleStart(w http.ResponseWriter, r *http.Request) {
	var req startRequest
	if err := readJSON(r, &req); err != nil {
		writeBadRequest(w, err)
		return
	}
	h.dispatch(w, app.Command{Kind: app.CommandStart, SessionID: req.SessionID, Admin: true})
}

func (h *RESTHandler) handleCommand(kind app.CommandKind) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		h.dispatch(w, app.Command{Kind: kind, Admin: true})
	}
}

func (h *RESTHandler) dispatch(w http.ResponseWriter, cmd app.Command) {
	snap, err := h.engine.Dispatch(cmd)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, snap)
}

// requireAdmin checks the admin secret header on every privileged request.
func (h *RESTHandler) requireAdmin(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if err := h.auth.PromoteToAdmin(r.Header.Get(adminSecretHeader)); err != nil {
			writeError(w, domain.ErrAdminRequired)
			return
		}
		next.ServeHTTP(w, r)
	})
}
