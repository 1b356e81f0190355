// Package api exposes the narrative engine over HTTP.
package api

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"sync"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/google/uuid"

	"github.com/maraval/faeweave/internal/character"
	"github.com/maraval/faeweave/internal/db"
	"github.com/maraval/faeweave/internal/engine"
	"github.com/maraval/faeweave/internal/llm"
	mw "github.com/maraval/faeweave/internal/middleware"
	"github.com/maraval/faeweave/internal/prompt"
	"github.com/maraval/faeweave/internal/scene"
	"github.com/maraval/faeweave/internal/validation"
	"github.com/maraval/faeweave/internal/worldbook"
)

// historyDisplayWindow is how many trailing entries the history endpoint
// returns.
const historyDisplayWindow = 10

// Server handles HTTP requests.
type Server struct {
	router      chi.Router
	db          *db.DB
	gen         engine.Generator
	book        *worldbook.Book
	defaults    llm.Options
	sessions    map[string]*engine.Session
	sessionsMu  sync.RWMutex
	rateLimiter *mw.RateLimiter
	auth        *mw.Auth
}

// NewServer creates the API server.
func NewServer(database *db.DB, gen engine.Generator, book *worldbook.Book, defaults llm.Options, auth *mw.Auth) *Server {
	if book == nil {
		book = worldbook.Default()
	}
	s := &Server{
		router:      chi.NewRouter(),
		db:          database,
		gen:         gen,
		book:        book,
		defaults:    defaults.Normalize(),
		sessions:    make(map[string]*engine.Session),
		rateLimiter: mw.NewRateLimiter(10, 5),
		auth:        auth,
	}

	s.setupRoutes()
	return s
}

func (s *Server) setupRoutes() {
	s.router.Use(middleware.Logger)
	s.router.Use(middleware.Recoverer)
	s.router.Use(middleware.SetHeader("Content-Type", "application/json"))
	s.router.Use(s.rateLimiter.Middleware)
	s.router.Use(mw.SecurityHeaders)
	s.router.Use(mw.MaxBodySize(64 * 1024))
	s.router.Use(s.auth.Middleware)

	s.router.Get("/api/worldbook", s.getWorldbook)
	s.router.Post("/api/sessions", s.createSession)
	s.router.Get("/api/sessions", s.listSessions)

	s.router.Route("/api/sessions/{id}", func(r chi.Router) {
		r.Get("/", s.getSession)
		r.Post("/begin", s.begin)
		r.Post("/advance", s.advance)
		r.Post("/restart", s.restart)
		r.Post("/save", s.saveSession)
		r.Get("/export", s.exportSession)
		r.Get("/history", s.getHistory)
	})
}

// ServeHTTP implements http.Handler.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.router.ServeHTTP(w, r)
}

// Response wraps API responses.
type Response struct {
	Success bool   `json:"success"`
	Data    any    `json:"data,omitempty"`
	Error   string `json:"error,omitempty"`

	// Raw carries the verbatim backend text on parse failures so the
	// player can inspect what the model actually said.
	Raw string `json:"raw,omitempty"`
}

func writeJSON(w http.ResponseWriter, status int, data any) {
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}

func writeError(w http.ResponseWriter, status int, message string) {
	if status >= 500 {
		message = "Internal server error"
	}
	writeJSON(w, status, Response{Success: false, Error: message})
}

// session resolves the URL's session, enforcing ID format and ownership. On
// a cold cache it falls back to the database.
func (s *Server) session(w http.ResponseWriter, r *http.Request) (*engine.Session, bool) {
	id := chi.URLParam(r, "id")
	if err := validation.ValidateSessionID(id); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid session ID")
		return nil, false
	}

	userID := mw.UserID(r)
	if userID == "" {
		writeError(w, http.StatusUnauthorized, "Missing user ID")
		return nil, false
	}

	isOwner, err := s.db.IsOwner(id, userID)
	if err != nil || !isOwner {
		writeError(w, http.StatusForbidden, "Access denied")
		return nil, false
	}

	s.sessionsMu.RLock()
	sess, ok := s.sessions[id]
	s.sessionsMu.RUnlock()
	if ok {
		return sess, true
	}

	player, history, err := s.db.LoadSession(id)
	if err != nil {
		writeError(w, http.StatusNotFound, "Session not found")
		return nil, false
	}

	sess, err = engine.LoadSession(id, player, history, engine.Config{
		Generator: s.gen,
		Options:   s.defaults,
		Worldbook: s.book,
	})
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to load session")
		return nil, false
	}

	s.sessionsMu.Lock()
	s.sessions[id] = sess
	s.sessionsMu.Unlock()
	return sess, true
}

// getWorldbook returns the character creation option sets.
func (s *Server) getWorldbook(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, Response{
		Success: true,
		Data: map[string]any{
			"courts":     s.book.Courts,
			"archetypes": s.book.Archetypes,
		},
	})
}

// createSession creates a character and its session.
func (s *Server) createSession(w http.ResponseWriter, r *http.Request) {
	var req struct {
		character.CreationInput
		Model       string   `json:"model"`
		Temperature *float64 `json:"temperature"`
		MaxTokens   *int     `json:"max_tokens"`
	}

	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	if err := validation.ValidateName(req.Name); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	opts := s.defaults
	if req.Model != "" {
		opts.Model = req.Model
	}
	if req.Temperature != nil {
		if err := validation.ValidateTemperature(*req.Temperature); err != nil {
			writeError(w, http.StatusBadRequest, err.Error())
			return
		}
		opts.Temperature = *req.Temperature
	}
	if req.MaxTokens != nil {
		if err := validation.ValidateMaxTokens(*req.MaxTokens); err != nil {
			writeError(w, http.StatusBadRequest, err.Error())
			return
		}
		opts.MaxTokens = *req.MaxTokens
	}

	state, err := character.New(req.CreationInput, s.book)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	// Session IDs are generated server-side; the client is not trusted to
	// pick them.
	sessionID := uuid.New().String()

	sess, err := engine.NewSession(sessionID, state, engine.Config{
		Generator: s.gen,
		Options:   opts,
		Worldbook: s.book,
	})
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to create session")
		return
	}

	userID := mw.UserID(r)
	if userID == "" {
		userID = mw.PublicUser
	}
	if err := s.db.SaveOwnership(sessionID, userID); err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to save session")
		return
	}
	if err := s.db.SaveSession(sessionID, state, nil); err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to save session")
		return
	}

	s.sessionsMu.Lock()
	s.sessions[sessionID] = sess
	s.sessionsMu.Unlock()

	writeJSON(w, http.StatusCreated, Response{
		Success: true,
		Data:    sess.Info(),
	})
}

// listSessions lists the sessions owned by the user.
func (s *Server) listSessions(w http.ResponseWriter, r *http.Request) {
	userID := mw.UserID(r)
	if userID == "" {
		writeError(w, http.StatusUnauthorized, "Missing user ID")
		return
	}

	ids, err := s.db.UserSessions(userID)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to list sessions")
		return
	}

	writeJSON(w, http.StatusOK, Response{Success: true, Data: ids})
}

// getSession returns the session's state and current scene.
func (s *Server) getSession(w http.ResponseWriter, r *http.Request) {
	sess, ok := s.session(w, r)
	if !ok {
		return
	}

	writeJSON(w, http.StatusOK, Response{
		Success: true,
		Data: map[string]any{
			"info":          sess.Info(),
			"player":        sess.State(),
			"current_scene": sess.CurrentScene(),
		},
	})
}

// begin requests the opening scene.
func (s *Server) begin(w http.ResponseWriter, r *http.Request) {
	sess, ok := s.session(w, r)
	if !ok {
		return
	}

	result, err := sess.Begin(r.Context())
	if err != nil {
		s.writeAdvanceError(w, sess, err)
		return
	}

	writeJSON(w, http.StatusOK, Response{Success: true, Data: result})
}

// advance runs one scene transition from player input.
func (s *Server) advance(w http.ResponseWriter, r *http.Request) {
	sess, ok := s.session(w, r)
	if !ok {
		return
	}

	var req struct {
		Input string `json:"input"`
		// Kind is "choice" for a selected option, anything else is a
		// free-text custom action.
		Kind string `json:"kind"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body")
		return
	}
	if err := validation.ValidatePlayerInput(req.Input); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	kind := prompt.KindFreeText
	if req.Kind == "choice" {
		kind = prompt.KindChoice
	}

	result, err := sess.Advance(r.Context(), req.Input, kind)
	if err != nil {
		s.writeAdvanceError(w, sess, err)
		return
	}

	writeJSON(w, http.StatusOK, Response{Success: true, Data: result})
}

// writeAdvanceError maps engine failures to HTTP statuses, preserving the
// raw backend text for parse failures.
func (s *Server) writeAdvanceError(w http.ResponseWriter, sess *engine.Session, err error) {
	status := http.StatusBadGateway
	switch {
	case errors.Is(err, engine.ErrInvalidPhase):
		status = http.StatusConflict
	case llm.IsKind(err, llm.ErrRateLimited):
		status = http.StatusTooManyRequests
	case llm.IsKind(err, llm.ErrTimeout):
		status = http.StatusGatewayTimeout
	case llm.IsKind(err, llm.ErrAuth):
		status = http.StatusBadGateway
	}

	resp := Response{Success: false, Error: err.Error()}

	var schemaErr *scene.SchemaError
	if errors.As(err, &schemaErr) || errors.Is(err, scene.ErrNoJSONFound) || errors.Is(err, scene.ErrMalformed) {
		status = http.StatusUnprocessableEntity
		if failure := sess.LastFailure(); failure != nil {
			resp.Raw = failure.Raw
		}
	}

	slog.Warn("advance failed", "session", sess.ID, "error", err)
	writeJSON(w, status, resp)
}

// restart clears the story and resets the character to its creation state.
func (s *Server) restart(w http.ResponseWriter, r *http.Request) {
	sess, ok := s.session(w, r)
	if !ok {
		return
	}

	sess.Restart()
	writeJSON(w, http.StatusOK, Response{Success: true, Data: sess.Info()})
}

// saveSession persists the session.
func (s *Server) saveSession(w http.ResponseWriter, r *http.Request) {
	sess, ok := s.session(w, r)
	if !ok {
		return
	}

	snap := sess.ExportStory()
	if err := s.db.SaveSession(sess.ID, snap.Player, snap.History); err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to save session")
		return
	}

	writeJSON(w, http.StatusOK, Response{Success: true, Data: "Session saved"})
}

// exportSession yields the {player, history} snapshot.
func (s *Server) exportSession(w http.ResponseWriter, r *http.Request) {
	sess, ok := s.session(w, r)
	if !ok {
		return
	}

	writeJSON(w, http.StatusOK, Response{Success: true, Data: sess.ExportStory()})
}

// getHistory returns the recent story, most-recent-last.
func (s *Server) getHistory(w http.ResponseWriter, r *http.Request) {
	sess, ok := s.session(w, r)
	if !ok {
		return
	}

	writeJSON(w, http.StatusOK, Response{
		Success: true,
		Data: map[string]any{
			"info":    sess.Info(),
			"history": sess.History(historyDisplayWindow),
		},
	})
}
