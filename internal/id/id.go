// Package id issues the identifiers stamped on positions and trades. They
// are ULIDs, so a journal query ordered by id is also ordered by creation
// time.
package id

import (
	"crypto/rand"
	"sync"
	"time"

	"github.com/oklog/ulid/v2"
)

var (
	mu sync.Mutex
	// Monotonic entropy keeps ids strictly increasing even when several are
	// minted within the same millisecond.
	entropy = ulid.Monotonic(rand.Reader, 0)
)

// New mints a fresh id.
func New() string {
	mu.Lock()
	defer mu.Unlock()
	return ulid.MustNew(ulid.Timestamp(time.Now().UTC()), entropy).String()
}
