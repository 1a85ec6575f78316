// internal/symbols/symbols.go
//
// Symbol pool management for the game engine.
//
// Load behavior:
//   1. If a path is given (SYMBOLS_FILE), read one symbol per line from it.
//   2. Otherwise fall back to the embedded animal emoji list.
//
// Lines are trimmed; blank lines and "#" comments are skipped; repeated
// symbols are collapsed so the pool never holds the same value twice.

package symbols

import (
	"errors"
	"fmt"
	"os"

	"github.com/samber/lo"

	"github.com/robalobadob/pairs/assets"
)

// SolvedMark replaces a tile's symbol once its pair has been found.
const SolvedMark = "✅"

// ErrEmptyPool is returned when no usable symbols were found.
var ErrEmptyPool = errors.New("symbols: pool is empty")

// Load returns the symbol pool from path, or the embedded default when path is empty.
func Load(path string) ([]string, error) {
	var (
		list []string
		err  error
	)
	if path != "" {
		list, err = readFile(path)
	} else {
		list, err = assets.AnimalsList()
	}
	if err != nil {
		return nil, err
	}

	pool := lo.Uniq(lo.Filter(list, func(s string, _ int) bool { return s != SolvedMark }))
	if len(pool) == 0 {
		return nil, ErrEmptyPool
	}
	return pool, nil
}

// Default returns the embedded pool.
func Default() []string {
	pool, err := Load("")
	if err != nil {
		panic(fmt.Sprintf("symbols: embedded pool unreadable: %v", err))
	}
	return pool
}

func readFile(path string) ([]string, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open symbols file: %w", err)
	}
	defer f.Close()
	return assets.ReadLines(f)
}
