// Package http exposes casting and sessions as a JSON API over chi.
package http

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strconv"
	"strings"

	"github.com/aretw0/hexcast/internal/logging"
	"github.com/aretw0/hexcast/pkg/content"
	"github.com/aretw0/hexcast/pkg/domain"
	"github.com/aretw0/hexcast/pkg/iching"
	"github.com/aretw0/hexcast/pkg/ports"
	"github.com/aretw0/hexcast/pkg/session"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
)

// UserHeader carries the authenticated user id, set by the fronting gateway.
const UserHeader = "X-User-ID"

// maxBodyBytes caps request bodies.
const maxBodyBytes = 1 << 20

// Server holds the dependencies of the API handlers.
type Server struct {
	manager *session.Manager
	content *content.Store
	history ports.HistoryStore
	streams *StreamManager
	metrics http.Handler
	version string
	logger  *slog.Logger
}

// Option configures the Server.
type Option func(*Server)

// WithContent enables the hexagram text endpoints.
func WithContent(store *content.Store) Option {
	return func(s *Server) {
		s.content = store
	}
}

// WithHistory enables the history endpoints.
func WithHistory(history ports.HistoryStore) Option {
	return func(s *Server) {
		s.history = history
	}
}

// WithStreams shares a StreamManager; one is created otherwise.
func WithStreams(streams *StreamManager) Option {
	return func(s *Server) {
		s.streams = streams
	}
}

// WithMetricsHandler mounts h at /metrics.
func WithMetricsHandler(h http.Handler) Option {
	return func(s *Server) {
		s.metrics = h
	}
}

// WithVersion sets the version reported by /info.
func WithVersion(v string) Option {
	return func(s *Server) {
		s.version = v
	}
}

// WithLogger sets a structured logger.
func WithLogger(logger *slog.Logger) Option {
	return func(s *Server) {
		s.logger = logger
	}
}

// NewHandler creates the HTTP handler for the API.
func NewHandler(manager *session.Manager, opts ...Option) http.Handler {
	s := &Server{
		manager: manager,
		version: "dev",
		logger:  logging.NewNop(),
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.streams == nil {
		s.streams = NewStreamManager(s.logger)
	}

	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.Recoverer)
	r.Use(s.logRequests)
	r.Use(enableCORS)

	r.Get("/healthz", s.GetHealth)
	r.Get("/info", s.GetInfo)
	if s.metrics != nil {
		r.Method(http.MethodGet, "/metrics", s.metrics)
	}

	r.Get("/hexagrams", s.ListHexagrams)
	r.Get("/hexagrams/{number}", s.GetHexagram)
	r.Get("/hexagrams/{number}/lines/{line}", s.GetLine)
	r.Post("/cast", s.Cast)

	r.Route("/sessions", func(r chi.Router) {
		r.Get("/", s.ListSessions)
		r.Post("/", s.CreateSession)
		r.Route("/{id}", func(r chi.Router) {
			r.Get("/", s.GetSession)
			r.Delete("/", s.DeleteSession)
			r.Post("/tosses", s.AddTosses)
			r.Put("/intention", s.SetIntention)
			r.Post("/evaluate", s.Evaluate)
			r.Post("/reset", s.Reset)
			r.Get("/events", s.SubscribeEvents)
		})
	})

	r.Get("/history", s.ListHistory)
	r.Post("/history", s.CreateHistory)
	return r
}

func enableCORS(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Methods", "GET, POST, PUT, DELETE, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type, Accept-Language, "+UserHeader)
		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusOK)
			return
		}
		next.ServeHTTP(w, r)
	})
}

func (s *Server) logRequests(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		next.ServeHTTP(ww, r)
		s.logger.Debug("HTTP request",
			"method", r.Method,
			"path", r.URL.Path,
			"status", ww.Status(),
			"request_id", middleware.GetReqID(r.Context()),
		)
	})
}

// callerFrom reads the authenticated identity of the request.
func callerFrom(r *http.Request) domain.Caller {
	return domain.Caller{UserID: strings.TrimSpace(r.Header.Get(UserHeader))}
}

// localeFrom prefers ?lang= and falls back to Accept-Language.
func (s *Server) localeFrom(r *http.Request) string {
	if lang := r.URL.Query().Get("lang"); lang != "" {
		if s.content != nil {
			return s.content.Resolve(lang)
		}
		return lang
	}
	if s.content != nil {
		return s.content.ResolveAcceptLanguage(r.Header.Get("Accept-Language"))
	}
	return ""
}

func decodeBody(r *http.Request, v any) error {
	dec := json.NewDecoder(io.LimitReader(r.Body, maxBodyBytes))
	dec.DisallowUnknownFields()
	if err := dec.Decode(v); err != nil {
		if errors.Is(err, io.EOF) {
			return nil // empty body
		}
		return domain.NewInvalidInput("body", nil, err.Error())
	}
	return nil
}

// GetHealth handles GET /healthz.
func (s *Server) GetHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, s.logger, http.StatusOK, map[string]string{"status": "ok"})
}

// GetInfo handles GET /info.
func (s *Server) GetInfo(w http.ResponseWriter, r *http.Request) {
	resp := map[string]any{
		"app":     "hexcast-http",
		"version": strings.TrimSpace(s.version),
	}
	if s.content != nil {
		resp["locales"] = s.content.Locales()
		resp["default_locale"] = s.content.Default()
	}
	writeJSON(w, s.logger, http.StatusOK, resp)
}

type hexagramSummary struct {
	Number  int            `json:"number"`
	Name    string         `json:"name"`
	Title   string         `json:"title"`
	Pattern domain.Pattern `json:"pattern"`
	Lower   string         `json:"lower"`
	Upper   string         `json:"upper"`
}

func summarize(h domain.Hexagram) hexagramSummary {
	return hexagramSummary{
		Number:  h.Number,
		Name:    h.Name,
		Title:   h.Title,
		Pattern: h.Pattern,
		Lower:   h.Lower.Name,
		Upper:   h.Upper.Name,
	}
}

// ListHexagrams handles GET /hexagrams.
func (s *Server) ListHexagrams(w http.ResponseWriter, r *http.Request) {
	all := iching.Hexagrams()
	out := make([]hexagramSummary, 0, len(all))
	for _, h := range all {
		out = append(out, summarize(h))
	}
	writeJSON(w, s.logger, http.StatusOK, out)
}

type hexagramResponse struct {
	Hexagram domain.Hexagram               `json:"hexagram"`
	Text     *domain.LocalizedHexagramText `json:"text,omitempty"`
}

func pathInt(r *http.Request, name string) (int, error) {
	raw := chi.URLParam(r, name)
	n, err := strconv.Atoi(raw)
	if err != nil {
		return 0, domain.NewInvalidInput(name, raw, "must be an integer")
	}
	return n, nil
}

// GetHexagram handles GET /hexagrams/{number}.
func (s *Server) GetHexagram(w http.ResponseWriter, r *http.Request) {
	n, err := pathInt(r, "number")
	if err != nil {
		writeError(w, s.logger, err)
		return
	}
	h, err := iching.HexagramByNumber(n)
	if err != nil {
		writeError(w, s.logger, err)
		return
	}
	resp := hexagramResponse{Hexagram: h}
	if s.content != nil {
		text, err := s.content.Text(n, s.localeFrom(r))
		if err != nil {
			writeError(w, s.logger, err)
			return
		}
		resp.Text = &text
	}
	writeJSON(w, s.logger, http.StatusOK, resp)
}

// GetLine handles GET /hexagrams/{number}/lines/{line}.
func (s *Server) GetLine(w http.ResponseWriter, r *http.Request) {
	if s.content == nil {
		writeError(w, s.logger, fmt.Errorf("%w: no content loaded", domain.ErrNotFound))
		return
	}
	n, err := pathInt(r, "number")
	if err != nil {
		writeError(w, s.logger, err)
		return
	}
	line, err := pathInt(r, "line")
	if err != nil {
		writeError(w, s.logger, err)
		return
	}
	text, err := s.content.LineText(n, line, s.localeFrom(r))
	if err != nil {
		writeError(w, s.logger, err)
		return
	}
	writeJSON(w, s.logger, http.StatusOK, text)
}

type castRequest struct {
	// Tosses holds manual entries such as "HTT" or "3,2,2"; empty draws at random.
	Tosses []string `json:"tosses,omitempty"`
	Seed   *uint64  `json:"seed,omitempty"`
}

type castResponse struct {
	Tosses  []domain.Toss  `json:"tosses"`
	Reading domain.Reading `json:"reading"`
}

// Cast handles POST /cast, a one-shot cast without a session.
func (s *Server) Cast(w http.ResponseWriter, r *http.Request) {
	var req castRequest
	if err := decodeBody(r, &req); err != nil {
		writeError(w, s.logger, err)
		return
	}

	var tosses []domain.Toss
	if len(req.Tosses) > 0 {
		for i, raw := range req.Tosses {
			t, err := iching.ParseToss(raw)
			if err != nil {
				writeError(w, s.logger, fmt.Errorf("toss %d: %w", i+1, err))
				return
			}
			tosses = append(tosses, t)
		}
	} else {
		var src iching.RandomSource
		if req.Seed != nil {
			src = iching.NewSeededSource(*req.Seed)
		}
		resolver := iching.NewResolver(src)
		for len(tosses) < domain.NumberOfTosses {
			tosses = append(tosses, resolver.Toss())
		}
	}

	reading, err := iching.Cast(tosses)
	if err != nil {
		writeError(w, s.logger, err)
		return
	}
	writeJSON(w, s.logger, http.StatusOK, castResponse{Tosses: tosses, Reading: reading})
}

type createSessionRequest struct {
	ID        string      `json:"id,omitempty"`
	Mode      domain.Mode `json:"mode,omitempty"`
	Intention string      `json:"intention,omitempty"`
	Locale    string      `json:"locale,omitempty"`
}

// CreateSession handles POST /sessions: creates the session and starts casting.
func (s *Server) CreateSession(w http.ResponseWriter, r *http.Request) {
	var req createSessionRequest
	if err := decodeBody(r, &req); err != nil {
		writeError(w, s.logger, err)
		return
	}
	if req.Mode != "" && !req.Mode.Valid() {
		writeError(w, s.logger, domain.NewInvalidInput("mode", req.Mode, "must be manual or automatic"))
		return
	}
	locale := req.Locale
	if locale == "" {
		locale = s.localeFrom(r)
	} else if s.content != nil {
		locale = s.content.Resolve(locale)
	}

	created, err := s.manager.Create(r.Context(), req.ID)
	if err != nil {
		writeError(w, s.logger, err)
		return
	}
	state, err := s.change(r.Context(), created.ID, func(ctx context.Context, sess *session.Session) error {
		sess.SetLocale(locale)
		return sess.Start(req.Mode, req.Intention)
	})
	if err != nil {
		writeError(w, s.logger, err)
		return
	}
	w.Header().Set("Location", "/sessions/"+state.ID)
	writeJSON(w, s.logger, http.StatusCreated, state)
}

// ListSessions handles GET /sessions.
func (s *Server) ListSessions(w http.ResponseWriter, r *http.Request) {
	ids, err := s.manager.List(r.Context())
	if err != nil {
		writeError(w, s.logger, err)
		return
	}
	if ids == nil {
		ids = []string{}
	}
	writeJSON(w, s.logger, http.StatusOK, ids)
}

// GetSession handles GET /sessions/{id}.
func (s *Server) GetSession(w http.ResponseWriter, r *http.Request) {
	state, err := s.manager.Load(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, s.logger, err)
		return
	}
	writeJSON(w, s.logger, http.StatusOK, state)
}

// DeleteSession handles DELETE /sessions/{id}.
func (s *Server) DeleteSession(w http.ResponseWriter, r *http.Request) {
	if err := s.manager.Delete(r.Context(), chi.URLParam(r, "id")); err != nil {
		writeError(w, s.logger, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

type tossRequest struct {
	Draws  []int  `json:"draws,omitempty"`  // three raw values, e.g. [3,2,2]
	Toss   string `json:"toss,omitempty"`   // "HTT" or "3,2,2"
	Random bool   `json:"random,omitempty"` // draw one toss
	All    bool   `json:"all,omitempty"`    // draw every remaining toss
}

// AddTosses handles POST /sessions/{id}/tosses.
func (s *Server) AddTosses(w http.ResponseWriter, r *http.Request) {
	var req tossRequest
	if err := decodeBody(r, &req); err != nil {
		writeError(w, s.logger, err)
		return
	}

	s.respond(w, r, func(ctx context.Context, sess *session.Session) error {
		switch {
		case req.All:
			_, err := sess.CastRandom()
			return err
		case req.Random:
			_, _, err := sess.TossRandom()
			return err
		case req.Toss != "":
			t, err := iching.ParseToss(req.Toss)
			if err != nil {
				return err
			}
			_, err = sess.AddToss(t)
			return err
		case req.Draws != nil:
			_, err := sess.AddDraws(req.Draws...)
			return err
		default:
			return domain.NewInvalidInput("body", nil, "one of draws, toss, random or all is required")
		}
	})
}

type intentionRequest struct {
	Intention string `json:"intention"`
}

// SetIntention handles PUT /sessions/{id}/intention.
func (s *Server) SetIntention(w http.ResponseWriter, r *http.Request) {
	var req intentionRequest
	if err := decodeBody(r, &req); err != nil {
		writeError(w, s.logger, err)
		return
	}
	s.respond(w, r, func(ctx context.Context, sess *session.Session) error {
		return sess.SetIntention(req.Intention)
	})
}

// Evaluate handles POST /sessions/{id}/evaluate. Clients may call it as often
// as they like; each guarded effect fires once per flow.
func (s *Server) Evaluate(w http.ResponseWriter, r *http.Request) {
	caller := callerFrom(r)
	s.respond(w, r, func(ctx context.Context, sess *session.Session) error {
		_, err := sess.Evaluate(ctx, caller)
		return err
	})
}

// Reset handles POST /sessions/{id}/reset.
func (s *Server) Reset(w http.ResponseWriter, r *http.Request) {
	s.respond(w, r, func(ctx context.Context, sess *session.Session) error {
		sess.Reset()
		return nil
	})
}

// change runs fn through the manager and broadcasts the resulting diff.
func (s *Server) change(ctx context.Context, id string, fn func(context.Context, *session.Session) error) (*domain.SessionState, error) {
	var before *domain.SessionState
	state, err := s.manager.Do(ctx, id, func(ctx context.Context, sess *session.Session) error {
		before = sess.Snapshot()
		return fn(ctx, sess)
	})
	if state != nil {
		if diff := domain.Diff(before, state); diff != nil {
			if bytes, mErr := json.Marshal(diff); mErr == nil {
				s.streams.Broadcast(id, string(bytes))
			}
		}
	}
	return state, err
}

type sessionResponse struct {
	*domain.SessionState
	Error string `json:"error,omitempty"`
}

// respond applies fn and answers with the new state. When fn fails the state
// is still included, since the session stays valid.
func (s *Server) respond(w http.ResponseWriter, r *http.Request, fn func(context.Context, *session.Session) error) {
	state, err := s.change(r.Context(), chi.URLParam(r, "id"), fn)
	if err != nil && state == nil {
		writeError(w, s.logger, err)
		return
	}
	if err != nil {
		s.logger.Debug("Session operation rejected", "session_id", state.ID, "err", err)
		writeJSON(w, s.logger, statusFor(err), sessionResponse{SessionState: state, Error: err.Error()})
		return
	}
	writeJSON(w, s.logger, http.StatusOK, state)
}

// SubscribeEvents handles GET /sessions/{id}/events (SSE). Each message is a
// JSON domain.SessionDiff.
func (s *Server) SubscribeEvents(w http.ResponseWriter, r *http.Request) {
	flusher, ok := w.(http.Flusher)
	if !ok {
		http.Error(w, "Streaming not supported", http.StatusInternalServerError)
		return
	}
	sessionID := chi.URLParam(r, "id")
	state, err := s.manager.Load(r.Context(), sessionID)
	if err != nil {
		writeError(w, s.logger, err)
		return
	}

	ch, cancel := s.streams.Subscribe(sessionID)
	defer cancel()

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")

	fmt.Fprintf(w, "event: ping\ndata: connected\n\n")
	if initial, err := json.Marshal(domain.Diff(nil, state)); err == nil {
		fmt.Fprintf(w, "data: %s\n\n", initial)
	}
	flusher.Flush()
	s.logger.Info("SSE: Subscribing to Session Updates", "session_id", sessionID)

	for {
		select {
		case <-r.Context().Done():
			s.logger.Info("SSE Client Disconnected", "session_id", sessionID)
			return
		case msg, ok := <-ch:
			if !ok {
				return
			}
			fmt.Fprintf(w, "data: %s\n\n", msg)
			flusher.Flush()
		}
	}
}

// ListHistory handles GET /history for the calling user.
func (s *Server) ListHistory(w http.ResponseWriter, r *http.Request) {
	if s.history == nil {
		writeError(w, s.logger, fmt.Errorf("%w: history is disabled", domain.ErrNotFound))
		return
	}
	caller := callerFrom(r)
	if !caller.Authenticated() {
		writeError(w, s.logger, domain.ErrUnauthenticated)
		return
	}
	entries, err := s.history.List(r.Context(), caller.UserID)
	if err != nil {
		writeError(w, s.logger, err)
		return
	}
	writeJSON(w, s.logger, http.StatusOK, entries)
}

type historyRequest struct {
	Intention      string      `json:"intention"`
	Tosses         []int       `json:"tosses"`
	Hexagram       int         `json:"hexagram"`
	Mode           domain.Mode `json:"mode"`
	Interpretation string      `json:"interpretation"`
}

// CreateHistory handles POST /history. The owner is always the caller.
func (s *Server) CreateHistory(w http.ResponseWriter, r *http.Request) {
	if s.history == nil {
		writeError(w, s.logger, fmt.Errorf("%w: history is disabled", domain.ErrNotFound))
		return
	}
	caller := callerFrom(r)
	if !caller.Authenticated() {
		writeError(w, s.logger, domain.ErrUnauthenticated)
		return
	}
	var req historyRequest
	if err := decodeBody(r, &req); err != nil {
		writeError(w, s.logger, err)
		return
	}
	id, err := s.history.Create(r.Context(), domain.HistoryRecord{
		UserID:         caller.UserID,
		Intention:      req.Intention,
		Tosses:         req.Tosses,
		Hexagram:       req.Hexagram,
		Mode:           req.Mode,
		Interpretation: req.Interpretation,
	})
	if err != nil {
		writeError(w, s.logger, err)
		return
	}
	writeJSON(w, s.logger, http.StatusCreated, map[string]string{"id": id})
}
