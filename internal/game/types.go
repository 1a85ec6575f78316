// internal/game/types.go
//
// Core type definitions for the pairs game engine.
// Defines:
//   - TileState / Phase: tile display state and round state machine phase.
//   - Tile / TileView: a board slot and its presentation-safe projection.
//   - Effect / Sink: outbound render effects and their consumer.
//   - Outcome: result of a click, used by the driver to schedule follow-ups.

package game

// Symbol is a hidden tile value. Only equality matters.
type Symbol = string

// TileState is the display state of a single tile.
type TileState string

const (
	TileHidden   TileState = "hidden"
	TileSelected TileState = "selected"
	TileMatched  TileState = "matched"
)

// Phase is the round state machine position.
type Phase string

const (
	PhaseIdle       Phase = "idle"                // no board yet
	PhaseFirstPick  Phase = "waiting_first_pick"  // round active, no pending selection
	PhaseSecondPick Phase = "waiting_second_pick" // round active, one tile pending
	PhaseResolving  Phase = "resolving"           // two mismatched tiles shown, revert pending
	PhaseEnded      Phase = "round_ended"         // all pairs found or round stopped
)

// Active reports whether tiles may still change in this phase.
func (p Phase) Active() bool {
	return p == PhaseFirstPick || p == PhaseSecondPick || p == PhaseResolving
}

// Tile is one board position.
type Tile struct {
	Index  int       // stable position 0..N-1
	Symbol Symbol    // hidden value
	State  TileState // current display state
}

// TileView is what the presentation layer is allowed to see of a tile.
type TileView struct {
	Index   int       `json:"index"`
	Display string    `json:"display"` // symbol, solved mark, or "" while hidden
	Style   TileState `json:"style"`
}

// EffectType names an outbound render effect.
type EffectType string

const (
	EffectRenderBoard     EffectType = "render_board"
	EffectHighlightTile   EffectType = "highlight_tile"
	EffectSetTileMatched  EffectType = "set_tile_matched"
	EffectResetTileStyle  EffectType = "reset_tile_style"
	EffectUpdateElapsed   EffectType = "update_elapsed_display"
	EffectShowRoundEnd    EffectType = "show_round_end"
	EffectShowRoundActive EffectType = "show_round_active"
)

// Effect is a single instruction for the presentation layer.
// Only the fields relevant to Type are set.
type Effect struct {
	Type    EffectType `json:"type"`
	Round   uint64     `json:"round"`
	Index   int        `json:"index"`
	Display string     `json:"display,omitempty"`
	Tiles   []TileView `json:"tiles,omitempty"`
	Seconds float64    `json:"seconds,omitempty"`
	Text    string     `json:"text,omitempty"`
}

// Sink consumes effects. Emit is called from the goroutine driving the game
// and must not block for long.
type Sink interface {
	Emit(Effect)
}

// SinkFunc adapts a function to Sink.
type SinkFunc func(Effect)

func (f SinkFunc) Emit(e Effect) { f(e) }

// Discard drops every effect.
var Discard Sink = SinkFunc(func(Effect) {})

// Outcome reports what a click did.
type Outcome string

const (
	OutcomeIgnored  Outcome = "ignored"
	OutcomeSelected Outcome = "selected"
	OutcomeMatched  Outcome = "matched"
	OutcomeMismatch Outcome = "mismatch"
	OutcomeRoundWon Outcome = "round_won"
)

// Config holds the engine settings.
type Config struct {
	UniqueCount int      // number of distinct symbols per board
	Pool        []Symbol // symbols to draw from
	FaceUp      bool     // render hidden tiles with their symbol visible
}

// Snapshot is a read-only copy of the game state.
type Snapshot struct {
	Round       uint64     `json:"round"`
	Phase       Phase      `json:"phase"`
	Matches     int        `json:"matches"`
	UniqueCount int        `json:"uniqueCount"`
	Elapsed     float64    `json:"elapsedSeconds"`
	Running     bool       `json:"timerRunning"`
	Pending     *int       `json:"pending,omitempty"`
	Tiles       []TileView `json:"tiles"`
}
