package session

import (
	"time"

	"github.com/robalobadob/pairs/internal/game"
)

// Event is an inbound message for the session loop.
type Event interface{ event() }

// PlayAgainRequested deals a new round.
type PlayAgainRequested struct{}

// TileClicked reports a click on the tile at Index.
type TileClicked struct{ Index int }

// TimerTick advances the round timer by Delta.
type TimerTick struct{ Delta time.Duration }

// snapshotRequest asks the loop for a copy of the game state.
type snapshotRequest struct{ reply chan game.Snapshot }

func (PlayAgainRequested) event() {}
func (TileClicked) event()        {}
func (TimerTick) event()          {}
func (snapshotRequest) event()    {}
