package daily

import (
	"sort"
	"sync"

	"github.com/samber/lo"
)

// Result is one session's first clear of a daily board.
type Result struct {
	SessionID string `json:"sessionId"`
	Date      string `json:"date"`
	ElapsedMs int64  `json:"elapsedMs"`
}

// Leaderboard keeps daily results in memory, fastest first.
// Only the first result per session and date is kept.
type Leaderboard struct {
	mu     sync.Mutex
	byDate map[string][]Result
	keep   int // dates retained; older ones are dropped on insert
}

// NewLeaderboard retains results for the most recent keep dates (minimum 1).
func NewLeaderboard(keep int) *Leaderboard {
	if keep < 1 {
		keep = 1
	}
	return &Leaderboard{byDate: make(map[string][]Result), keep: keep}
}

// Insert records r and reports whether it was new.
func (l *Leaderboard) Insert(r Result) bool {
	l.mu.Lock()
	defer l.mu.Unlock()

	rows := l.byDate[r.Date]
	if lo.ContainsBy(rows, func(old Result) bool { return old.SessionID == r.SessionID }) {
		return false
	}
	i := sort.Search(len(rows), func(i int) bool { return rows[i].ElapsedMs > r.ElapsedMs })
	rows = append(rows, Result{})
	copy(rows[i+1:], rows[i:])
	rows[i] = r
	l.byDate[r.Date] = rows
	l.prune()
	return true
}

// Top returns up to limit results for date, fastest first.
func (l *Leaderboard) Top(date string, limit int) []Result {
	l.mu.Lock()
	defer l.mu.Unlock()
	rows := l.byDate[date]
	if limit <= 0 || limit > len(rows) {
		limit = len(rows)
	}
	out := make([]Result, limit)
	copy(out, rows[:limit])
	return out
}

// prune drops the oldest dates beyond keep. DateKey strings sort chronologically.
func (l *Leaderboard) prune() {
	if len(l.byDate) <= l.keep {
		return
	}
	dates := lo.Keys(l.byDate)
	sort.Strings(dates)
	for _, d := range dates[:len(dates)-l.keep] {
		delete(l.byDate, d)
	}
}
