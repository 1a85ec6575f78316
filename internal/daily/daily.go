// internal/daily/daily.go
//
// Daily deal: one board layout per UTC day, shared by every player who asks for it.
// The shuffle seed is HMAC(salt, YYYY-MM-DD), so the layout cannot be predicted
// without the salt but is stable for the whole day.

package daily

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/binary"
	"time"
)

// DateKey returns YYYY-MM-DD in UTC.
func DateKey(t time.Time) string {
	return t.UTC().Format("2006-01-02")
}

// Seed returns the shuffle seed for the day containing t.
// Never returns 0, which pairs.NewRand treats as "random".
func Seed(t time.Time, salt string) uint64 {
	h := hmac.New(sha256.New, []byte(salt))
	h.Write([]byte(DateKey(t)))
	sum := h.Sum(nil)
	// first 8 bytes are plenty of entropy for a shuffle seed
	n := binary.BigEndian.Uint64(sum[:8])
	if n == 0 {
		n = 1
	}
	return n
}
