package daily

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDateKeyUTC(t *testing.T) {
	loc := time.FixedZone("UTC+10", 10*3600)
	ts := time.Date(2026, 3, 2, 5, 0, 0, 0, loc)
	assert.Equal(t, "2026-03-01", DateKey(ts))
}

func TestSeedStablePerDay(t *testing.T) {
	morning := time.Date(2026, 3, 1, 1, 0, 0, 0, time.UTC)
	evening := time.Date(2026, 3, 1, 23, 0, 0, 0, time.UTC)
	next := morning.Add(24 * time.Hour)

	assert.Equal(t, Seed(morning, "s"), Seed(evening, "s"))
	assert.NotEqual(t, Seed(morning, "s"), Seed(next, "s"))
	assert.NotEqual(t, Seed(morning, "s"), Seed(morning, "other"))
	assert.NotZero(t, Seed(morning, ""))
}

func TestLeaderboardOrdersAndDedupes(t *testing.T) {
	lb := NewLeaderboard(2)
	require.True(t, lb.Insert(Result{SessionID: "a", Date: "2026-03-01", ElapsedMs: 9000}))
	require.True(t, lb.Insert(Result{SessionID: "b", Date: "2026-03-01", ElapsedMs: 4000}))
	require.True(t, lb.Insert(Result{SessionID: "c", Date: "2026-03-01", ElapsedMs: 6000}))
	assert.False(t, lb.Insert(Result{SessionID: "a", Date: "2026-03-01", ElapsedMs: 1000}))

	top := lb.Top("2026-03-01", 2)
	require.Len(t, top, 2)
	assert.Equal(t, "b", top[0].SessionID)
	assert.Equal(t, "c", top[1].SessionID)

	assert.Len(t, lb.Top("2026-03-01", 0), 3)
	assert.Empty(t, lb.Top("1999-01-01", 5))
}

func TestLeaderboardPrunesOldDates(t *testing.T) {
	lb := NewLeaderboard(2)
	lb.Insert(Result{SessionID: "a", Date: "2026-03-01", ElapsedMs: 1})
	lb.Insert(Result{SessionID: "a", Date: "2026-03-02", ElapsedMs: 1})
	lb.Insert(Result{SessionID: "a", Date: "2026-03-03", ElapsedMs: 1})

	assert.Empty(t, lb.Top("2026-03-01", 0))
	assert.Len(t, lb.Top("2026-03-02", 0), 1)
	assert.Len(t, lb.Top("2026-03-03", 0), 1)
}
