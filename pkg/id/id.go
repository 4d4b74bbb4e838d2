// Package id issues time-sortable identifiers for order attempts, strategy
// runs and simulated tickets.
package id

import (
	cryptoRand "crypto/rand"
	"encoding/binary"
	"io"
	"math/rand"
	"sync"
	"time"

	"github.com/oklog/ulid/v2"
)

var (
	mu   sync.Mutex
	mono io.Reader
)

func init() {
	var seed int64
	_ = binary.Read(cryptoRand.Reader, binary.LittleEndian, &seed)
	if seed == 0 {
		seed = time.Now().UnixNano()
	}

	// Monotonic keeps IDs minted in the same millisecond increasing.
	mono = ulid.Monotonic(rand.New(rand.NewSource(seed)), 0)
}

// New returns a ULID string stamped with the current time.
func New() string {
	return At(time.Now())
}

// At returns a ULID whose timestamp component is t. Journal rows keyed this
// way sort by the time the event happened, not the time it was recorded.
func At(t time.Time) string {
	if t.Unix() <= 0 {
		t = time.Now()
	}

	mu.Lock()
	defer mu.Unlock()

	id, err := ulid.New(ulid.Timestamp(t.UTC()), mono)
	if err != nil {
		// Monotonic entropy overflowed within one millisecond.
		id = ulid.MustNew(ulid.Timestamp(t.UTC()), cryptoRand.Reader)
	}
	return id.String()
}

// Time extracts the timestamp from an ID produced by New or At.
func Time(s string) (time.Time, error) {
	u, err := ulid.ParseStrict(s)
	if err != nil {
		return time.Time{}, err
	}
	return ulid.Time(u.Time()).UTC(), nil
}
