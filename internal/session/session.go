// internal/session/session.go
//
// Session driver: owns one game.Game and serializes everything that touches it.
// Responsibilities:
//   - Run a single event loop goroutine that applies inbound events in order.
//   - Produce timer ticks from a clock ticker while a round is running.
//   - Schedule the mismatch revert on a clock timer tagged with the round id,
//     and cancel it when a new round starts.
//   - Record round/click metrics.
//
// Notes:
//   - The ticker and revert timer are only created, read and stopped by the loop,
//     so stopping them is synchronous and idempotent.
//   - The clock is injectable; tests drive it with clock.NewMock().

package session

import (
	"context"
	"errors"
	"fmt"
	"math/rand/v2"
	"sync"
	"sync/atomic"
	"time"

	"github.com/benbjohnson/clock"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/robalobadob/pairs/internal/game"
	"github.com/robalobadob/pairs/internal/metrics"
	"github.com/robalobadob/pairs/internal/pairs"
)

// ErrClosed is returned when an event is sent to a stopped session.
var ErrClosed = errors.New("session closed")

const eventBuffer = 64

// Config holds the engine settings plus loop timing.
type Config struct {
	Game          game.Config
	TickInterval  time.Duration // timer cadence, default 100ms
	MismatchDelay time.Duration // pause before reverting a mismatch, default 500ms
}

// Option customizes a Session.
type Option func(*Session)

// WithClock replaces the wall clock.
func WithClock(c clock.Clock) Option { return func(s *Session) { s.clk = c } }

// WithRand replaces the board shuffling source.
func WithRand(r *rand.Rand) Option { return func(s *Session) { s.rng = r } }

// WithRoundWon registers fn to run on the loop each time a round is won.
func WithRoundWon(fn func(round uint64, elapsed time.Duration)) Option {
	return func(s *Session) { s.onWin = fn }
}

// Session is one player's game plus the loop that drives it.
type Session struct {
	ID string

	cfg    Config
	clk    clock.Clock
	rng    *rand.Rand
	game   *game.Game
	sink   game.Sink
	onWin  func(round uint64, elapsed time.Duration)
	log    zerolog.Logger
	events chan Event

	done      chan struct{}
	closeOnce sync.Once
	lastSeen  atomic.Int64 // unix nanos of the last dispatched event

	// loop-owned
	ticker      *clock.Ticker
	revert      *clock.Timer
	revertRound uint64
}

// New validates cfg and builds an idle session. Call Run to start the loop.
func New(id string, cfg Config, sink game.Sink, opts ...Option) (*Session, error) {
	if cfg.TickInterval == 0 {
		cfg.TickInterval = 100 * time.Millisecond
	}
	if cfg.MismatchDelay == 0 {
		cfg.MismatchDelay = 500 * time.Millisecond
	}
	if cfg.TickInterval < 0 || cfg.MismatchDelay < 0 {
		return nil, fmt.Errorf("%w: negative session timing", pairs.ErrInvalidArgument)
	}

	s := &Session{
		ID:     id,
		cfg:    cfg,
		sink:   sink,
		clk:    clock.New(),
		log:    log.With().Str("session", id).Logger(),
		events: make(chan Event, eventBuffer),
		done:   make(chan struct{}),
	}
	for _, opt := range opts {
		opt(s)
	}

	g, err := game.New(cfg.Game, s.rng, sink)
	if err != nil {
		return nil, err
	}
	s.game = g
	s.touch()
	return s, nil
}

// Run processes events until ctx is cancelled or Close is called.
func (s *Session) Run(ctx context.Context) error {
	defer s.stopTicker()
	defer s.cancelRevert()

	for {
		var tickC, revertC <-chan time.Time
		if s.ticker != nil {
			tickC = s.ticker.C
		}
		if s.revert != nil {
			revertC = s.revert.C
		}

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-s.done:
			return nil
		case ev := <-s.events:
			s.handle(ev)
		case <-tickC:
			s.game.Tick(s.cfg.TickInterval)
		case <-revertC:
			s.revert = nil
			s.resolve(s.revertRound)
		}
	}
}

// Dispatch queues ev for the loop.
func (s *Session) Dispatch(ctx context.Context, ev Event) error {
	select {
	case <-s.done:
		return ErrClosed
	default:
	}
	s.touch()
	select {
	case s.events <- ev:
		return nil
	case <-s.done:
		return ErrClosed
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Snapshot returns a copy of the game state as seen by the loop.
func (s *Session) Snapshot(ctx context.Context) (game.Snapshot, error) {
	req := snapshotRequest{reply: make(chan game.Snapshot, 1)}
	if err := s.Dispatch(ctx, req); err != nil {
		return game.Snapshot{}, err
	}
	select {
	case snap := <-req.reply:
		return snap, nil
	case <-s.done:
		return game.Snapshot{}, ErrClosed
	case <-ctx.Done():
		return game.Snapshot{}, ctx.Err()
	}
}

// Close stops the loop. Safe to call more than once.
func (s *Session) Close() {
	s.closeOnce.Do(func() { close(s.done) })
}

// Done is closed once the session stops.
func (s *Session) Done() <-chan struct{} { return s.done }

// Sink returns the effect sink the session was built with.
func (s *Session) Sink() game.Sink { return s.sink }

// LastSeen returns when the session last received an event.
func (s *Session) LastSeen() time.Time {
	return time.Unix(0, s.lastSeen.Load())
}

func (s *Session) touch() { s.lastSeen.Store(s.clk.Now().UnixNano()) }

func (s *Session) handle(ev Event) {
	switch e := ev.(type) {
	case PlayAgainRequested:
		s.startRound()
	case TileClicked:
		s.click(e.Index)
	case TimerTick:
		s.game.Tick(e.Delta)
	case snapshotRequest:
		e.reply <- s.game.Snapshot()
	}
}

func (s *Session) startRound() {
	s.cancelRevert()
	s.stopTicker()
	if err := s.game.StartRound(); err != nil {
		s.log.Error().Err(err).Msg("start round")
		return
	}
	s.ticker = s.clk.Ticker(s.cfg.TickInterval)
	metrics.RoundsStarted.Inc()
	s.log.Info().Uint64("round", s.game.Round()).Int("pairs", s.game.UniqueCount()).Msg("round started")
}

func (s *Session) click(index int) {
	out := s.game.ClickTile(index)
	metrics.Clicks.WithLabelValues(string(out)).Inc()

	switch out {
	case game.OutcomeIgnored:
		s.log.Debug().Int("index", index).Str("phase", string(s.game.Phase())).Msg("click ignored")
	case game.OutcomeMismatch:
		s.scheduleRevert()
	case game.OutcomeRoundWon:
		s.stopTicker()
		elapsed := s.game.Elapsed()
		metrics.RoundsCompleted.Inc()
		metrics.RoundDuration.Observe(elapsed.Seconds())
		s.log.Info().Uint64("round", s.game.Round()).Dur("elapsed", elapsed).Msg("round won")
		if s.onWin != nil {
			s.onWin(s.game.Round(), elapsed)
		}
	}
}

func (s *Session) scheduleRevert() {
	s.cancelRevert()
	s.revert = s.clk.Timer(s.cfg.MismatchDelay)
	s.revertRound = s.game.Round()
}

func (s *Session) resolve(round uint64) {
	if !s.game.ResolveMismatch(round) {
		metrics.StaleReverts.Inc()
		s.log.Debug().Uint64("round", round).Uint64("current", s.game.Round()).Msg("stale revert dropped")
	}
}

func (s *Session) stopTicker() {
	if s.ticker != nil {
		s.ticker.Stop()
		s.ticker = nil
	}
}

func (s *Session) cancelRevert() {
	if s.revert != nil {
		s.revert.Stop()
		s.revert = nil
	}
}
