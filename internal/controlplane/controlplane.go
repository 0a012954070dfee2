// Package controlplane implements the connection-oriented REGISTER handshake
// described in spec.md §4.4/§6: a TCP listener that allocates a fresh
// session_id per request and replies "SESSION_ID:<n>\n". I/O errors on one
// connection never affect the listener loop, matching the teacher's
// per-connection isolation in its registration handlers.
package controlplane

import (
	"fmt"
	"net"
	"strings"
	"time"

	"github.com/thvlayu/Netual/internal/metrics"
	"github.com/thvlayu/Netual/internal/sessiontable"
	"github.com/thvlayu/Netual/internal/telemetry"
)

// registerToken is the recognized request prefix, per spec.md §4.4.
const registerToken = "REGISTER"

// readTimeout bounds how long a single connection's handshake is allowed to
// take before the control plane gives up on it.
const readTimeout = 10 * time.Second

// ControlPlane accepts REGISTER requests and allocates sessions.
type ControlPlane struct {
	listener net.Listener
	table    *sessiontable.Table
	logger   telemetry.Logger
}

// New constructs a ControlPlane bound to bind (e.g. "0.0.0.0:9998").
func New(bind string, table *sessiontable.Table, logger telemetry.Logger) (*ControlPlane, error) {
	ln, err := net.Listen("tcp", bind)
	if err != nil {
		return nil, fmt.Errorf("control plane: failed to listen on %s: %w", bind, err)
	}
	return &ControlPlane{listener: ln, table: table, logger: logger}, nil
}

// Addr returns the listener's bound address, useful in tests using ":0".
func (c *ControlPlane) Addr() net.Addr { return c.listener.Addr() }

// Close stops accepting new connections.
func (c *ControlPlane) Close() error { return c.listener.Close() }

// Serve accepts connections until the listener is closed. It always returns
// a non-nil error (net.ErrClosed on a clean shutdown).
func (c *ControlPlane) Serve() error {
	for {
		conn, err := c.listener.Accept()
		if err != nil {
			return err
		}
		go c.handle(conn)
	}
}

func (c *ControlPlane) handle(conn net.Conn) {
	defer func() { _ = conn.Close() }()

	_ = conn.SetReadDeadline(time.Now().Add(readTimeout))

	// The request is a bare initial send, not a delimited line: read
	// whatever the client wrote in its first write and inspect the prefix,
	// per spec.md §4.4/§6 ("additional trailing bytes ignored").
	buf := make([]byte, 64)
	n, err := conn.Read(buf)
	if err != nil && n == 0 {
		c.logger.Printf("control plane: read error from %s: %v", conn.RemoteAddr(), err)
		return
	}

	if !strings.HasPrefix(strings.TrimSpace(string(buf[:n])), registerToken) {
		c.logger.Printf("control plane: ignoring unrecognized request from %s: %q", conn.RemoteAddr(), buf[:n])
		return
	}

	id, allocErr := c.table.Allocate(time.Now())
	if allocErr != nil {
		c.logger.Printf("control plane: failed to allocate session for %s: %v", conn.RemoteAddr(), allocErr)
		return
	}

	metrics.SessionsAllocated.Inc()

	if _, err := fmt.Fprintf(conn, "SESSION_ID:%d\n", id); err != nil {
		c.logger.Printf("control plane: write error to %s: %v", conn.RemoteAddr(), err)
	}
}
