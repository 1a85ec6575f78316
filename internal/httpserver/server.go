// internal/httpserver/server.go
//
// HTTP server wiring for the pairs backend.
// Responsibilities:
//   - Router + middleware (JSON, CORS, timeouts, panic recovery, request IDs, access log).
//   - Public endpoints: "/", "/health", "/metrics", "/daily".
//   - Session endpoints: POST /session, DELETE /session, POST /session/play,
//     POST /session/click, GET /session/state, GET /session/ws.
//   - One session loop per player, started on POST /session and stopped on
//     delete, replacement or idle sweep.
//
// Notes:
//   - The session id travels in a signed JWT cookie (or bearer header); the
//     game state itself never leaves the server.
//   - Play and click are rate limited per client IP.
//   - A daily session shuffles from the day's shared seed; its first cleared
//     round is recorded on the in-memory daily leaderboard.
//   - The websocket route sits outside the request timeout because it is long-lived.

package httpserver

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/gorilla/websocket"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog/hlog"
	"github.com/rs/zerolog/log"

	"github.com/robalobadob/pairs/internal/config"
	"github.com/robalobadob/pairs/internal/daily"
	"github.com/robalobadob/pairs/internal/pairs"
	"github.com/robalobadob/pairs/internal/session"
	"github.com/robalobadob/pairs/internal/store"
)

// Option customizes a Server.
type Option func(*Server)

// WithSessionOptions passes opts to every session the server creates.
func WithSessionOptions(opts ...session.Option) Option {
	return func(s *Server) { s.sessOpts = append(s.sessOpts, opts...) }
}

// Server bundles router, session store and the context session loops run under.
type Server struct {
	r        *chi.Mux
	cfg      config.Config
	store    store.Store
	upgrader websocket.Upgrader
	limiter  *limiter
	sessOpts []session.Option
	daily    *daily.Leaderboard

	ctx    context.Context
	cancel context.CancelFunc
}

// New constructs a Server, installs middleware, and registers routes.
func New(cfg config.Config, st store.Store, opts ...Option) *Server {
	ctx, cancel := context.WithCancel(context.Background())
	s := &Server{
		r:       chi.NewRouter(),
		cfg:     cfg,
		store:   st,
		limiter: newLimiter(cfg.RateLimitRPS, cfg.RateLimitBurst),
		daily:   daily.NewLeaderboard(dailyKeepDays),
		ctx:     ctx,
		cancel:  cancel,
	}
	s.upgrader = websocket.Upgrader{
		ReadBufferSize:  1024,
		WriteBufferSize: 1024,
		CheckOrigin:     s.checkOrigin,
	}
	for _, opt := range opts {
		opt(s)
	}

	// --- middleware ---
	s.r.Use(chimw.RequestID)             // add X-Request-ID
	s.r.Use(chimw.RealIP)                // set RemoteAddr from X-Forwarded-For etc.
	s.r.Use(hlog.NewHandler(log.Logger)) // request-scoped zerolog logger
	s.r.Use(hlog.AccessHandler(accessLog))
	s.r.Use(chimw.Recoverer)        // recover from panics
	s.r.Use(cors(cfg.ClientOrigin)) // credentials-friendly CORS

	// JSON 404 for easier debugging
	s.r.NotFound(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, `{"error":"not_found","path":"`+r.URL.Path+`"}`, http.StatusNotFound)
	})

	// --- long-lived stream ---
	s.r.With(s.withSession).Get("/session/ws", s.handleWS)

	s.r.Group(func(r chi.Router) {
		r.Use(chimw.Timeout(10 * time.Second)) // bound handler time
		r.Use(jsonContentType)                 // default JSON responses

		// --- diagnostics ---
		r.Get("/", func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusOK)
			_, _ = w.Write([]byte(`{"service":"pairs","endpoints":["/health","/metrics","POST /session","POST /session/play","POST /session/click","GET /session/state","GET /session/ws","GET /daily"]}`))
		})
		r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusOK)
			_, _ = w.Write([]byte(`{"ok":true}`))
		})
		r.Handle("/metrics", promhttp.Handler())

		// --- daily deal ---
		r.Get("/daily", s.handleDailyLeaderboard)

		// --- sessions ---
		r.Route("/session", func(r chi.Router) {
			r.Post("/", s.handleNewSession)
			r.Group(func(r chi.Router) {
				r.Use(s.withSession)
				r.Delete("/", s.handleEndSession)
				r.Get("/state", s.handleState)
				r.With(s.limiter.middleware).Post("/play", s.handlePlay)
				r.With(s.limiter.middleware).Post("/click", s.handleClick)
			})
		})
	})

	return s
}

// Router exposes the internal router (useful for tests).
func (s *Server) Router() chi.Router { return s.r }

// Close stops every session loop started by this server.
func (s *Server) Close() { s.cancel() }

// SweepLoop evicts sessions idle longer than the configured TTL every interval
// until ctx is cancelled.
func (s *Server) SweepLoop(ctx context.Context, interval time.Duration) {
	t := time.NewTicker(interval)
	defer t.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case now := <-t.C:
			if n := s.store.Sweep(ctx, now.Add(-s.cfg.SessionTTL)); n > 0 {
				log.Info().Int("evicted", n).Int("remaining", s.store.Len()).Msg("idle sessions swept")
			}
		}
	}
}

func accessLog(r *http.Request, status, size int, d time.Duration) {
	hlog.FromRequest(r).Debug().
		Str("method", r.Method).
		Str("path", r.URL.Path).
		Int("status", status).
		Int("size", size).
		Dur("duration", d).
		Msg("request")
}

// ----------------------------- SESSIONS -------------------------------------

const dailyKeepDays = 7

type newSessionReq struct {
	Daily bool `json:"daily"` // shuffle from today's shared seed
}

type newSessionRes struct {
	SessionID string `json:"sessionId"`
	Daily     string `json:"daily,omitempty"` // date key of the daily deal
}

// handleNewSession starts an idle session loop and hands back its token.
func (s *Server) handleNewSession(w http.ResponseWriter, r *http.Request) {
	var req newSessionReq
	_ = json.NewDecoder(r.Body).Decode(&req) // empty body means a regular session

	id := store.NewID()
	res := newSessionRes{SessionID: id}
	opts := s.sessOpts
	if req.Daily {
		now := time.Now()
		res.Daily = daily.DateKey(now)
		opts = append(append([]session.Option{}, s.sessOpts...), s.dailyOptions(id, now)...)
	}

	sess, err := session.New(id, session.Config{
		Game:          s.cfg.Game(),
		TickInterval:  s.cfg.TickInterval,
		MismatchDelay: s.cfg.MismatchDelay,
	}, newHub(), opts...)
	if err != nil {
		hlog.FromRequest(r).Error().Err(err).Msg("create session")
		http.Error(w, `{"error":"session_failed"}`, http.StatusInternalServerError)
		return
	}

	token, exp, err := s.signSession(id)
	if err != nil {
		http.Error(w, `{"error":"sign_failed"}`, http.StatusInternalServerError)
		return
	}
	if err := s.store.Save(r.Context(), sess); err != nil {
		http.Error(w, `{"error":"save_failed"}`, http.StatusInternalServerError)
		return
	}
	go func() {
		if err := sess.Run(s.ctx); err != nil && !errors.Is(err, context.Canceled) {
			log.Error().Err(err).Str("session", id).Msg("session loop stopped")
		}
	}()

	hlog.FromRequest(r).Info().Str("session", id).Bool("daily", req.Daily).Msg("session created")
	setSessionCookie(w, token, exp, r.TLS != nil)
	w.WriteHeader(http.StatusCreated)
	_ = json.NewEncoder(w).Encode(res)
}

// dailyOptions seeds the session with the day's shuffle and records its first win.
func (s *Server) dailyOptions(id string, now time.Time) []session.Option {
	date := daily.DateKey(now)
	return []session.Option{
		session.WithRand(pairs.NewRand(daily.Seed(now, s.cfg.DailySalt))),
		session.WithRoundWon(func(round uint64, elapsed time.Duration) {
			if round != 1 {
				return
			}
			if s.daily.Insert(daily.Result{SessionID: id, Date: date, ElapsedMs: elapsed.Milliseconds()}) {
				log.Info().Str("session", id).Str("date", date).Dur("elapsed", elapsed).Msg("daily result recorded")
			}
		}),
	}
}

type dailyRes struct {
	Date    string         `json:"date"`
	Results []daily.Result `json:"results"`
}

// handleDailyLeaderboard lists the fastest clears of a daily deal (today by default).
func (s *Server) handleDailyLeaderboard(w http.ResponseWriter, r *http.Request) {
	date := r.URL.Query().Get("date")
	if date == "" {
		date = daily.DateKey(time.Now())
	}
	limit := 10
	if v := r.URL.Query().Get("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n <= 0 || n > 100 {
			http.Error(w, `{"error":"bad_limit"}`, http.StatusBadRequest)
			return
		}
		limit = n
	}
	_ = json.NewEncoder(w).Encode(dailyRes{Date: date, Results: s.daily.Top(date, limit)})
}

func (s *Server) handleEndSession(w http.ResponseWriter, r *http.Request) {
	_ = s.store.Delete(r.Context(), sessionFrom(r).ID)
	clearSessionCookie(w)
	_ = json.NewEncoder(w).Encode(map[string]bool{"ok": true})
}

func (s *Server) handleState(w http.ResponseWriter, r *http.Request) {
	s.respondState(w, r, sessionFrom(r))
}

func (s *Server) handlePlay(w http.ResponseWriter, r *http.Request) {
	s.dispatch(w, r, session.PlayAgainRequested{})
}

type clickReq struct {
	Index *int `json:"index"`
}

func (s *Server) handleClick(w http.ResponseWriter, r *http.Request) {
	var req clickReq
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.Index == nil {
		http.Error(w, `{"error":"bad_json"}`, http.StatusBadRequest)
		return
	}
	s.dispatch(w, r, session.TileClicked{Index: *req.Index})
}

// dispatch queues ev and answers with the state after the loop has applied it.
// The snapshot request is queued behind ev, so the reply reflects ev.
func (s *Server) dispatch(w http.ResponseWriter, r *http.Request, ev session.Event) {
	sess := sessionFrom(r)
	if err := sess.Dispatch(r.Context(), ev); err != nil {
		writeSessionErr(w, err)
		return
	}
	s.respondState(w, r, sess)
}

func (s *Server) respondState(w http.ResponseWriter, r *http.Request, sess *session.Session) {
	snap, err := sess.Snapshot(r.Context())
	if err != nil {
		writeSessionErr(w, err)
		return
	}
	_ = json.NewEncoder(w).Encode(snap)
}

func writeSessionErr(w http.ResponseWriter, err error) {
	if errors.Is(err, session.ErrClosed) {
		http.Error(w, `{"error":"session_closed"}`, http.StatusGone)
		return
	}
	http.Error(w, `{"error":"timeout"}`, http.StatusServiceUnavailable)
}
