// Package ingress implements the client → interface forwarding loop of
// spec.md §4.5: receive one datagram from the tunnel socket, validate and
// decode its header, deduplicate against the owning session, and forward
// the payload to the virtual interface.
package ingress

import (
	"net/netip"
	"time"

	"github.com/thvlayu/Netual/internal/framing"
	"github.com/thvlayu/Netual/internal/metrics"
	"github.com/thvlayu/Netual/internal/sessiontable"
	"github.com/thvlayu/Netual/internal/telemetry"
	"github.com/thvlayu/Netual/internal/tunif"
)

// minForwardLen is the minimum viable IPv4 packet length; payloads at or
// below this are accepted for liveness/dedup purposes but not forwarded.
const minForwardLen = 20

// Transport is the receive half of the tunnel socket.
type Transport interface {
	ReadFromUDPAddrPort(b []byte) (n int, addr netip.AddrPort, err error)
}

// Forwarder runs the ingress loop.
type Forwarder struct {
	transport Transport
	table     *sessiontable.Table
	iface     tunif.Device
	logger    telemetry.Logger
	maxDatagram int
}

// New constructs a Forwarder. maxDatagram bounds the receive buffer; 65535
// (max UDP payload) is a safe default if 0 is passed.
func New(transport Transport, table *sessiontable.Table, iface tunif.Device, logger telemetry.Logger, maxDatagram int) *Forwarder {
	if maxDatagram == 0 {
		maxDatagram = 65535
	}
	return &Forwarder{transport: transport, table: table, iface: iface, logger: logger, maxDatagram: maxDatagram}
}

// Run loops until Read returns an error (e.g. the socket was closed).
func (f *Forwarder) Run() error {
	buf := make([]byte, f.maxDatagram)
	for {
		n, src, err := f.transport.ReadFromUDPAddrPort(buf)
		if err != nil {
			return err
		}
		f.handle(buf[:n], src)
	}
}

// handle processes one datagram. It never blocks on the interface write
// while holding the session exclusively: the session lock is released
// before f.iface.Write is called.
func (f *Forwarder) handle(datagram []byte, src netip.AddrPort) {
	if len(datagram) < framing.HeaderLen {
		return
	}
	frame, err := framing.Decode(datagram)
	if err != nil {
		return
	}

	now := time.Now()
	var forward []byte

	found := f.table.WithSession(frame.SessionID, func(s *sessiontable.Session) {
		s.TouchPath(src, now)
		s.LastActivity = now

		if !s.Dedup.Accept(frame.Seq) {
			metrics.DedupSuppressed.Inc()
			return // duplicate: already served as a liveness beacon above
		}
		metrics.DedupAccepted.Inc()
		if len(frame.Payload) > minForwardLen {
			forward = append([]byte(nil), frame.Payload...)
		}
	})

	if !found {
		f.logger.Printf("ingress: dropping datagram for unknown session %d from %s", frame.SessionID, src)
		return
	}

	if forward == nil {
		return
	}
	if _, err := f.iface.Write(forward); err != nil {
		f.logger.Printf("ingress: failed to write to interface: %v", err)
	}
}
