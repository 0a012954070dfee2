// Package sessiontable is the process-wide shared state binding a
// session_id to its bound paths, dedup ring, and activity timestamps.
// Structural changes (insert/remove) and per-session mutation both require
// exclusive access; fan-out enumeration for Egress only needs a read view,
// taken and released before any socket I/O, per spec.md §5.
package sessiontable

import (
	"encoding/binary"
	"sync"
	"time"

	"github.com/google/uuid"
)

// shardCount partitions the table by session_id hash to reduce contention,
// the way the teacher's design notes recommend for larger deployments.
const shardCount = 32

type shard struct {
	mu       sync.RWMutex
	sessions map[uint32]*Session
}

// Table is the server-wide session table.
type Table struct {
	shards       [shardCount]*shard
	dedupCap     uint32
}

// New returns an empty Table whose sessions use the given dedup capacity.
func New(dedupCapacity uint32) *Table {
	t := &Table{dedupCap: dedupCapacity}
	for i := range t.shards {
		t.shards[i] = &shard{sessions: make(map[uint32]*Session)}
	}
	return t
}

func (t *Table) shardFor(id uint32) *shard {
	return t.shards[id%shardCount]
}

// Allocate draws a random 32-bit session_id, redrawing on collision, inserts
// an empty session with LastActivity=now, and returns its id.
func (t *Table) Allocate(now time.Time) (uint32, error) {
	for {
		id, err := randomUint32()
		if err != nil {
			return 0, err
		}
		if id == 0 {
			continue // reserve 0 to keep zero-value Session non-confusable
		}
		sh := t.shardFor(id)
		sh.mu.Lock()
		if _, exists := sh.sessions[id]; exists {
			sh.mu.Unlock()
			continue
		}
		sh.sessions[id] = newSession(id, t.dedupCap, now)
		sh.mu.Unlock()
		return id, nil
	}
}

// WithSession calls fn with exclusive access to the session identified by
// id, if present, and reports whether the session existed. fn must not
// perform blocking I/O: the shard lock is held for its duration.
func (t *Table) WithSession(id uint32, fn func(*Session)) bool {
	sh := t.shardFor(id)
	sh.mu.Lock()
	defer sh.mu.Unlock()
	s, ok := sh.sessions[id]
	if !ok {
		return false
	}
	fn(s)
	return true
}

// SessionIDs returns a snapshot of every live session_id, for Egress
// fan-out enumeration. The returned slice is safe to range over without
// holding any table lock.
func (t *Table) SessionIDs() []uint32 {
	ids := make([]uint32, 0)
	for _, sh := range t.shards {
		sh.mu.RLock()
		for id := range sh.sessions {
			ids = append(ids, id)
		}
		sh.mu.RUnlock()
	}
	return ids
}

// ReapSummary describes one session observed during a reap sweep, for the
// reaper's log line.
type ReapSummary struct {
	SessionID   uint32
	Paths       int
	DedupEntries int
}

// Reap removes every session whose LastActivity is older than timeout and
// returns a summary of the sessions that remain.
func (t *Table) Reap(now time.Time, timeout time.Duration) (removed int, remaining []ReapSummary) {
	for _, sh := range t.shards {
		sh.mu.Lock()
		for id, s := range sh.sessions {
			if now.Sub(s.LastActivity) >= timeout {
				delete(sh.sessions, id)
				removed++
			}
		}
		for id, s := range sh.sessions {
			remaining = append(remaining, ReapSummary{
				SessionID:    id,
				Paths:        len(s.Paths),
				DedupEntries: s.Dedup.Len(),
			})
		}
		sh.mu.Unlock()
	}
	return removed, remaining
}

// Len reports the number of live sessions, for tests and metrics.
func (t *Table) Len() int {
	n := 0
	for _, sh := range t.shards {
		sh.mu.RLock()
		n += len(sh.sessions)
		sh.mu.RUnlock()
	}
	return n
}

// randomUint32 draws a session_id from a UUIDv4's random bits folded down to
// 32 bits, rather than a bare crypto/rand read: a uuid.UUID is already the
// entropy source this codebase's peers (e.g. cloudflared) reach for when
// minting connection/session identifiers.
func randomUint32() (uint32, error) {
	id, err := uuid.NewRandom()
	if err != nil {
		return 0, err
	}
	b := id[:]
	return binary.BigEndian.Uint32(b[0:4]) ^ binary.BigEndian.Uint32(b[8:12]), nil
}
