// internal/game/engine.go
//
// Core state machine for a single pairs board.
// Responsibilities:
//   - Deal a new board per round from the pair generator.
//   - Resolve tile clicks: first pick, re-click, match, mismatch.
//   - Track match count and the round timer (elapsed + running flag).
//   - Emit render effects for every visible change.
//
// Notes:
//   - Game is not safe for concurrent use; the session driver serializes calls.
//   - A mismatch leaves the game in PhaseResolving. The driver is expected to call
//     ResolveMismatch with the round id once the mismatch delay has elapsed.
//     Calls carrying an older round id are dropped.

package game

import (
	"fmt"
	"math/rand/v2"
	"time"

	"github.com/samber/lo"

	"github.com/robalobadob/pairs/internal/pairs"
	"github.com/robalobadob/pairs/internal/symbols"
)

// DefaultUniqueCount is the number of pairs on a classic board.
const DefaultUniqueCount = 8

// Game holds one player's board and round state.
type Game struct {
	cfg  Config
	rng  *rand.Rand
	sink Sink

	round   uint64        // incremented on every StartRound
	phase   Phase         // state machine position
	tiles   []Tile        // current board
	pending int           // first pick, -1 when none
	second  int           // mismatched second pick while resolving, -1 otherwise
	matches int           // pairs found this round
	elapsed time.Duration // round timer
	running bool          // whether Tick advances the timer
}

// New validates cfg and returns an idle game.
// A nil rng gets a randomly seeded source; a nil sink discards effects.
func New(cfg Config, rng *rand.Rand, sink Sink) (*Game, error) {
	if err := pairs.Validate(cfg.Pool, cfg.UniqueCount); err != nil {
		return nil, fmt.Errorf("game config: %w", err)
	}
	if rng == nil {
		rng = pairs.NewRand(0)
	}
	if sink == nil {
		sink = Discard
	}
	cfg.Pool = append([]Symbol(nil), cfg.Pool...)
	return &Game{
		cfg:     cfg,
		rng:     rng,
		sink:    sink,
		phase:   PhaseIdle,
		pending: -1,
		second:  -1,
	}, nil
}

// StartRound deals a fresh board and restarts the timer. Valid from any phase.
func (g *Game) StartRound() error {
	syms, err := pairs.Generate(g.rng, g.cfg.Pool, g.cfg.UniqueCount)
	if err != nil {
		return err
	}

	g.round++
	g.tiles = lo.Map(syms, func(s Symbol, i int) Tile {
		return Tile{Index: i, Symbol: s, State: TileHidden}
	})
	g.pending, g.second = -1, -1
	g.matches = 0
	g.elapsed = 0
	g.running = true
	g.phase = PhaseFirstPick

	g.emit(Effect{Type: EffectShowRoundActive})
	g.emit(Effect{Type: EffectRenderBoard, Tiles: g.views()})
	g.emitElapsed()
	return nil
}

// ClickTile applies a tile click and reports what happened.
//
// Ignored when: the index is out of range, the tile is already matched,
// no round is active, a mismatch is being resolved, or the tile is the
// pending first pick.
func (g *Game) ClickTile(index int) Outcome {
	if index < 0 || index >= len(g.tiles) {
		return OutcomeIgnored
	}
	t := &g.tiles[index]
	if t.State == TileMatched {
		return OutcomeIgnored
	}

	switch g.phase {
	case PhaseFirstPick:
		t.State = TileSelected
		g.pending = index
		g.phase = PhaseSecondPick
		g.emit(Effect{Type: EffectHighlightTile, Index: index, Display: t.Symbol})
		return OutcomeSelected

	case PhaseSecondPick:
		if index == g.pending {
			return OutcomeIgnored
		}
		first := &g.tiles[g.pending]
		if first.Symbol == t.Symbol {
			first.State, t.State = TileMatched, TileMatched
			g.matches++
			g.emit(Effect{Type: EffectSetTileMatched, Index: first.Index, Display: symbols.SolvedMark})
			g.emit(Effect{Type: EffectSetTileMatched, Index: index, Display: symbols.SolvedMark})
			g.pending = -1
			if g.matches == g.cfg.UniqueCount {
				g.StopRound()
				return OutcomeRoundWon
			}
			g.phase = PhaseFirstPick
			return OutcomeMatched
		}

		t.State = TileSelected
		g.second = index
		g.phase = PhaseResolving
		g.emit(Effect{Type: EffectHighlightTile, Index: index, Display: t.Symbol})
		return OutcomeMismatch
	}
	return OutcomeIgnored
}

// ResolveMismatch flips the two mismatched tiles back to hidden.
// It returns false, changing nothing, when round is not the current round
// or no mismatch is pending.
func (g *Game) ResolveMismatch(round uint64) bool {
	if round != g.round || g.phase != PhaseResolving {
		return false
	}
	for _, i := range []int{g.pending, g.second} {
		g.tiles[i].State = TileHidden
		g.emit(Effect{Type: EffectResetTileStyle, Index: i, Display: g.hiddenDisplay(g.tiles[i])})
	}
	g.pending, g.second = -1, -1
	g.phase = PhaseFirstPick
	return true
}

// Tick advances the round timer by delta. No-op while the timer is stopped.
func (g *Game) Tick(delta time.Duration) bool {
	if !g.running || delta <= 0 {
		return false
	}
	g.elapsed += delta
	g.emitElapsed()
	return true
}

// StopRound stops the timer and ends the round. Safe to call repeatedly.
func (g *Game) StopRound() {
	if !g.phase.Active() {
		return
	}
	g.running = false
	g.pending, g.second = -1, -1
	g.phase = PhaseEnded
	g.emit(Effect{Type: EffectShowRoundEnd})
}

// Round returns the current round id (0 before the first round).
func (g *Game) Round() uint64 { return g.round }

// Phase returns the state machine position.
func (g *Game) Phase() Phase { return g.phase }

// Matches returns the number of pairs found this round.
func (g *Game) Matches() int { return g.matches }

// Elapsed returns the round timer value.
func (g *Game) Elapsed() time.Duration { return g.elapsed }

// TimerRunning reports whether Tick currently advances the timer.
func (g *Game) TimerRunning() bool { return g.running }

// UniqueCount returns the configured number of pairs per board.
func (g *Game) UniqueCount() int { return g.cfg.UniqueCount }

// Tiles returns a copy of the board.
func (g *Game) Tiles() []Tile { return append([]Tile(nil), g.tiles...) }

// Snapshot returns a copy of the state suitable for serialization.
func (g *Game) Snapshot() Snapshot {
	s := Snapshot{
		Round:       g.round,
		Phase:       g.phase,
		Matches:     g.matches,
		UniqueCount: g.cfg.UniqueCount,
		Elapsed:     g.elapsed.Seconds(),
		Running:     g.running,
		Tiles:       g.views(),
	}
	if g.pending >= 0 {
		p := g.pending
		s.Pending = &p
	}
	return s
}

// FormatElapsed renders the timer the way the board header shows it.
func FormatElapsed(d time.Duration) string {
	return fmt.Sprintf("Time Elapsed: %.1f seconds", d.Seconds())
}

func (g *Game) views() []TileView {
	return lo.Map(g.tiles, func(t Tile, _ int) TileView {
		v := TileView{Index: t.Index, Style: t.State}
		switch t.State {
		case TileMatched:
			v.Display = symbols.SolvedMark
		case TileSelected:
			v.Display = t.Symbol
		default:
			v.Display = g.hiddenDisplay(t)
		}
		return v
	})
}

func (g *Game) hiddenDisplay(t Tile) string {
	if g.cfg.FaceUp {
		return t.Symbol
	}
	return ""
}

func (g *Game) emitElapsed() {
	g.emit(Effect{Type: EffectUpdateElapsed, Seconds: g.elapsed.Seconds(), Text: FormatElapsed(g.elapsed)})
}

func (g *Game) emit(e Effect) {
	e.Round = g.round
	g.sink.Emit(e)
}
