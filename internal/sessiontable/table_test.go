package sessiontable

import (
	"net/netip"
	"testing"
	"time"
)

func TestAllocateReturnsUniqueLiveSession(t *testing.T) {
	tbl := New(100)
	id, err := tbl.Allocate(time.Now())
	if err != nil {
		t.Fatalf("Allocate() error: %v", err)
	}
	found := tbl.WithSession(id, func(s *Session) {
		if s.SessionID != id {
			t.Errorf("session SessionID = %d, want %d", s.SessionID, id)
		}
		if len(s.Paths) != 0 {
			t.Errorf("new session should have no paths")
		}
	})
	if !found {
		t.Fatalf("WithSession(%d) reported session not found", id)
	}
}

func TestWithSessionUnknownIDReturnsFalse(t *testing.T) {
	tbl := New(100)
	found := tbl.WithSession(999, func(*Session) {})
	if found {
		t.Fatalf("WithSession on an unallocated id should return false")
	}
}

func TestTouchPathUpsertsAndCounts(t *testing.T) {
	tbl := New(100)
	id, _ := tbl.Allocate(time.Now())
	addr := netip.MustParseAddrPort("1.2.3.4:5000")
	now := time.Now()

	tbl.WithSession(id, func(s *Session) { s.TouchPath(addr, now) })
	tbl.WithSession(id, func(s *Session) { s.TouchPath(addr, now.Add(time.Second)) })

	tbl.WithSession(id, func(s *Session) {
		p := s.Paths[addr]
		if p == nil {
			t.Fatalf("path %v missing after TouchPath", addr)
		}
		if p.PacketsReceived != 2 {
			t.Errorf("PacketsReceived = %d, want 2", p.PacketsReceived)
		}
	})
}

func TestActivePathsWindow(t *testing.T) {
	tbl := New(100)
	id, _ := tbl.Allocate(time.Now())
	now := time.Now()
	recent := netip.MustParseAddrPort("1.1.1.1:1")
	stale := netip.MustParseAddrPort("2.2.2.2:2")

	tbl.WithSession(id, func(s *Session) {
		s.TouchPath(recent, now)
		s.TouchPath(stale, now.Add(-30*time.Second))
	})

	var active []netip.AddrPort
	tbl.WithSession(id, func(s *Session) {
		active = s.ActivePaths(now, 10*time.Second)
	})
	if len(active) != 1 || active[0] != recent {
		t.Errorf("ActivePaths() = %v, want only %v", active, recent)
	}
}

func TestNextEgressSeqStartsAtZeroAndIncrements(t *testing.T) {
	tbl := New(100)
	id, _ := tbl.Allocate(time.Now())
	var seqs []uint32
	tbl.WithSession(id, func(s *Session) {
		seqs = append(seqs, s.NextEgressSeq(), s.NextEgressSeq(), s.NextEgressSeq())
	})
	want := []uint32{0, 1, 2}
	for i := range want {
		if seqs[i] != want[i] {
			t.Errorf("seqs[%d] = %d, want %d", i, seqs[i], want[i])
		}
	}
}

func TestReapRemovesExpiredSessions(t *testing.T) {
	tbl := New(100)
	now := time.Now()
	id, _ := tbl.Allocate(now.Add(-200 * time.Second))

	removed, remaining := tbl.Reap(now, 120*time.Second)
	if removed != 1 {
		t.Fatalf("Reap() removed = %d, want 1", removed)
	}
	for _, r := range remaining {
		if r.SessionID == id {
			t.Fatalf("session %d should have been reaped", id)
		}
	}
	if tbl.WithSession(id, func(*Session) {}) {
		t.Fatalf("reaped session %d is still present", id)
	}
}

func TestReapKeepsLiveSessions(t *testing.T) {
	tbl := New(100)
	now := time.Now()
	id, _ := tbl.Allocate(now)

	removed, _ := tbl.Reap(now, 120*time.Second)
	if removed != 0 {
		t.Fatalf("Reap() removed = %d, want 0", removed)
	}
	if !tbl.WithSession(id, func(*Session) {}) {
		t.Fatalf("live session %d should not have been reaped", id)
	}
}
