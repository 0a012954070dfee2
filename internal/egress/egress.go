// Package egress implements the interface → client forwarding loop of
// spec.md §4.6: read one IP packet from the virtual interface and fan it
// out, stamped with a fresh per-session egress_seq, to every currently
// active path of every live session. The core maintains no authoritative
// ip → session_id mapping (see spec.md §9); this is the documented coarse
// approximation, not an oversight.
package egress

import (
	"net/netip"
	"time"

	"golang.org/x/net/ipv4"

	"github.com/thvlayu/Netual/internal/framing"
	"github.com/thvlayu/Netual/internal/metrics"
	"github.com/thvlayu/Netual/internal/sessiontable"
	"github.com/thvlayu/Netual/internal/telemetry"
	"github.com/thvlayu/Netual/internal/tunif"
)

const minIPv4Len = 20

// Transport is the send half of the tunnel socket.
type Transport interface {
	WriteToUDPAddrPort(b []byte, addr netip.AddrPort) (int, error)
}

// Forwarder runs the egress loop.
type Forwarder struct {
	iface      tunif.Device
	transport  Transport
	table      *sessiontable.Table
	logger     telemetry.Logger
	pathWindow time.Duration

	// frameBuf is reused across sessions within a single handle() call (and
	// across calls): Run is the sole caller, so reuse here is race-free and
	// avoids a fresh allocation per live session on every packet.
	frameBuf []byte
}

// New constructs a Forwarder. window is the configured PATH_ACTIVE_WINDOW.
func New(iface tunif.Device, transport Transport, table *sessiontable.Table, logger telemetry.Logger, window time.Duration) *Forwarder {
	return &Forwarder{iface: iface, transport: transport, table: table, logger: logger, pathWindow: window}
}

// Run loops until Read returns an error (e.g. the interface was closed).
func (f *Forwarder) Run() error {
	buf := make([]byte, 65535)
	for {
		n, err := f.iface.Read(buf)
		if err != nil {
			return err
		}
		f.handle(buf[:n])
	}
}

func (f *Forwarder) handle(packet []byte) {
	if len(packet) < minIPv4Len {
		return
	}
	hdr, err := ipv4.ParseHeader(packet)
	if err != nil || hdr.Version != 4 {
		return
	}

	now := time.Now()
	for _, id := range f.table.SessionIDs() {
		var seq uint32
		var active []netip.AddrPort
		found := f.table.WithSession(id, func(s *sessiontable.Session) {
			active = s.ActivePaths(now, f.pathWindow)
			if len(active) == 0 {
				return
			}
			// egress_seq advances only when at least one path is active,
			// so a session with no active path consumes no sequence
			// number. A send that later fails still consumes it.
			seq = s.NextEgressSeq()
		})
		if !found || len(active) == 0 {
			continue
		}

		f.frameBuf = framing.Encode(f.frameBuf, id, seq, packet)
		frame := f.frameBuf
		for _, addr := range active {
			if _, err := f.transport.WriteToUDPAddrPort(frame, addr); err != nil {
				f.logger.Printf("egress: failed to send to %s for session %d: %v", addr, id, err)
				continue
			}
			metrics.EgressDelivered.Inc()
		}
	}
}
