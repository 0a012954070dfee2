package ingress

import (
	"net/netip"
	"testing"
	"time"

	"github.com/thvlayu/Netual/internal/framing"
	"github.com/thvlayu/Netual/internal/sessiontable"
	"github.com/thvlayu/Netual/internal/tunif"
)

type nopLogger struct{}

func (nopLogger) Printf(string, ...any) {}

func wellFormedIPv4(n int) []byte {
	p := make([]byte, n)
	if n > 0 {
		p[0] = 0x45 // version 4, IHL 5
	}
	return p
}

func TestRegisterAndForward(t *testing.T) {
	tbl := sessiontable.New(100)
	id, _ := tbl.Allocate(time.Now())
	iface := tunif.NewFake("netual0")
	fwd := New(nil, tbl, iface, nopLogger{}, 0)

	src := netip.MustParseAddrPort("10.1.1.1:4000")
	payload := wellFormedIPv4(40)
	frame := framing.Encode(nil, id, 0, payload)

	fwd.handle(frame, src)

	written := iface.Written()
	if len(written) != 1 || len(written[0]) != 40 {
		t.Fatalf("Written() = %v, want one 40-byte write", written)
	}

	tbl.WithSession(id, func(s *sessiontable.Session) {
		if len(s.Paths) != 1 {
			t.Errorf("Paths len = %d, want 1", len(s.Paths))
		}
		if p := s.Paths[src]; p == nil || p.PacketsReceived != 1 {
			t.Errorf("path for %v missing or wrong count", src)
		}
		if s.Dedup.Len() != 1 {
			t.Errorf("Dedup.Len() = %d, want 1", s.Dedup.Len())
		}
	})
}

func TestDedupAcrossTwoPaths(t *testing.T) {
	tbl := sessiontable.New(100)
	id, _ := tbl.Allocate(time.Now())
	iface := tunif.NewFake("netual0")
	fwd := New(nil, tbl, iface, nopLogger{}, 0)

	a := netip.MustParseAddrPort("10.1.1.1:1")
	b := netip.MustParseAddrPort("10.1.1.2:2")
	payload := wellFormedIPv4(40)
	frame := framing.Encode(nil, id, 7, payload)

	fwd.handle(frame, a)
	fwd.handle(frame, b)

	if len(iface.Written()) != 1 {
		t.Fatalf("Written() len = %d, want 1", len(iface.Written()))
	}
	tbl.WithSession(id, func(s *sessiontable.Session) {
		if len(s.Paths) != 2 {
			t.Errorf("Paths len = %d, want 2", len(s.Paths))
		}
	})
}

func TestUnknownSessionDropped(t *testing.T) {
	tbl := sessiontable.New(100)
	iface := tunif.NewFake("netual0")
	fwd := New(nil, tbl, iface, nopLogger{}, 0)

	frame := framing.Encode(nil, 12345, 0, wellFormedIPv4(40))
	fwd.handle(frame, netip.MustParseAddrPort("1.1.1.1:1"))

	if len(iface.Written()) != 0 {
		t.Fatalf("Written() len = %d, want 0", len(iface.Written()))
	}
}

func TestShortDatagramDropped(t *testing.T) {
	tbl := sessiontable.New(100)
	id, _ := tbl.Allocate(time.Now())
	iface := tunif.NewFake("netual0")
	fwd := New(nil, tbl, iface, nopLogger{}, 0)

	fwd.handle([]byte{1, 2, 3}, netip.MustParseAddrPort("1.1.1.1:1"))

	if len(iface.Written()) != 0 {
		t.Fatalf("Written() len = %d, want 0", len(iface.Written()))
	}
	tbl.WithSession(id, func(s *sessiontable.Session) {
		if len(s.Paths) != 0 {
			t.Errorf("short datagram should not have touched any path")
		}
	})
}

func TestKeepaliveNotForwarded(t *testing.T) {
	tbl := sessiontable.New(100)
	id, _ := tbl.Allocate(time.Now())
	iface := tunif.NewFake("netual0")
	fwd := New(nil, tbl, iface, nopLogger{}, 0)

	frame := framing.Encode(nil, id, 1, []byte{0xAA})
	fwd.handle(frame, netip.MustParseAddrPort("1.1.1.1:1"))

	if len(iface.Written()) != 0 {
		t.Fatalf("keepalive payload should not be forwarded")
	}
	tbl.WithSession(id, func(s *sessiontable.Session) {
		if s.Dedup.Len() != 1 {
			t.Errorf("keepalive should still enter the dedup set")
		}
	})
}

func TestOutOfOrderIngressBothForwarded(t *testing.T) {
	tbl := sessiontable.New(100)
	id, _ := tbl.Allocate(time.Now())
	iface := tunif.NewFake("netual0")
	fwd := New(nil, tbl, iface, nopLogger{}, 0)

	src := netip.MustParseAddrPort("1.1.1.1:1")
	fwd.handle(framing.Encode(nil, id, 5, wellFormedIPv4(40)), src)
	fwd.handle(framing.Encode(nil, id, 3, wellFormedIPv4(40)), src)

	if len(iface.Written()) != 2 {
		t.Fatalf("Written() len = %d, want 2", len(iface.Written()))
	}
	tbl.WithSession(id, func(s *sessiontable.Session) {
		if s.Dedup.Len() != 2 {
			t.Errorf("Dedup.Len() = %d, want 2", s.Dedup.Len())
		}
	})
}
