package sessiontable

import (
	"net/netip"
	"time"

	"github.com/thvlayu/Netual/internal/dedup"
)

// PathInfo tracks liveness for one transport endpoint of a session.
type PathInfo struct {
	LastSeen        time.Time
	PacketsReceived uint64
}

// Session is the server-side state bound to one logical client identity.
// A Session's fields other than SessionID must only be mutated while the
// owning table holds it exclusively (see Table.WithSession).
type Session struct {
	SessionID uint32

	Paths         map[netip.AddrPort]*PathInfo
	Dedup         *dedup.Ring
	EgressSeq     uint32
	LastActivity  time.Time
}

func newSession(id uint32, dedupCapacity uint32, now time.Time) *Session {
	return &Session{
		SessionID:    id,
		Paths:        make(map[netip.AddrPort]*PathInfo),
		Dedup:        dedup.New(dedupCapacity),
		LastActivity: now,
	}
}

// TouchPath upserts the path entry for src: bumps LastSeen/PacketsReceived on
// a hit, inserts a fresh entry with count 1 on a miss.
func (s *Session) TouchPath(src netip.AddrPort, now time.Time) {
	p, ok := s.Paths[src]
	if !ok {
		s.Paths[src] = &PathInfo{LastSeen: now, PacketsReceived: 1}
		return
	}
	p.LastSeen = now
	p.PacketsReceived++
}

// ActivePaths returns every endpoint whose LastSeen is within window of now.
func (s *Session) ActivePaths(now time.Time, window time.Duration) []netip.AddrPort {
	active := make([]netip.AddrPort, 0, len(s.Paths))
	for addr, info := range s.Paths {
		if now.Sub(info.LastSeen) < window {
			active = append(active, addr)
		}
	}
	return active
}

// NextEgressSeq returns the next egress sequence number (0, 1, 2, …
// wrapping around on uint32 overflow) and advances the counter.
func (s *Session) NextEgressSeq() uint32 {
	seq := s.EgressSeq
	s.EgressSeq++
	return seq
}
