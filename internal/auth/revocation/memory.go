// Package revocation keeps logged-out refresh token ids until their expiry.
package revocation

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"
)

// Memory is a process-local revocation list. It is safe for concurrent use
// and purges expired entries opportunistically on writes.
type Memory struct {
	mu      sync.Mutex
	entries map[string]time.Time
	writes  uint64
	purgeN  uint64
	now     func() time.Time
}

func NewMemory(purgeEvery int, now func() time.Time) *Memory {
	if purgeEvery <= 0 {
		purgeEvery = 1024
	}
	if now == nil {
		now = time.Now
	}
	return &Memory{
		entries: make(map[string]time.Time, 64),
		purgeN:  uint64(purgeEvery),
		now:     now,
	}
}

func (m *Memory) Revoke(_ context.Context, jti, _ string, until time.Time) error {
	jti = strings.TrimSpace(jti)
	if jti == "" {
		return fmt.Errorf("revocation: empty jti")
	}
	m.mu.Lock()
	defer m.mu.Unlock()

	m.writes++
	if m.writes%m.purgeN == 0 {
		m.purgeLocked(m.now())
	}
	m.entries[jti] = until
	return nil
}

func (m *Memory) IsRevoked(_ context.Context, jti string) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	until, ok := m.entries[strings.TrimSpace(jti)]
	return ok && until.After(m.now()), nil
}

func (m *Memory) purgeLocked(now time.Time) {
	for k, until := range m.entries {
		if !until.After(now) {
			delete(m.entries, k)
		}
	}
}
