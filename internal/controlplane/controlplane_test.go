package controlplane

import (
	"bufio"
	"fmt"
	"net"
	"strings"
	"testing"
	"time"

	"github.com/thvlayu/Netual/internal/sessiontable"
	"github.com/thvlayu/Netual/internal/telemetry"
)

type nopLogger struct{}

func (nopLogger) Printf(string, ...any) {}

func TestRegisterAllocatesSession(t *testing.T) {
	tbl := sessiontable.New(100)
	cp, err := New("127.0.0.1:0", tbl, nopLogger{})
	if err != nil {
		t.Fatalf("New() error: %v", err)
	}
	defer func() { _ = cp.Close() }()
	go func() { _ = cp.Serve() }()

	conn, err := net.Dial("tcp", cp.Addr().String())
	if err != nil {
		t.Fatalf("Dial() error: %v", err)
	}
	defer func() { _ = conn.Close() }()

	_, _ = fmt.Fprint(conn, "REGISTER\n")

	_ = conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	line, err := bufio.NewReader(conn).ReadString('\n')
	if err != nil {
		t.Fatalf("ReadString() error: %v", err)
	}
	line = strings.TrimSpace(line)
	if !strings.HasPrefix(line, "SESSION_ID:") {
		t.Fatalf("response = %q, want prefix SESSION_ID:", line)
	}

	var id uint32
	if _, err := fmt.Sscanf(line, "SESSION_ID:%d", &id); err != nil {
		t.Fatalf("failed to parse session id from %q: %v", line, err)
	}
	if tbl.Len() != 1 {
		t.Fatalf("table.Len() = %d, want 1", tbl.Len())
	}
}

func TestUnrecognizedRequestGetsNoResponse(t *testing.T) {
	tbl := sessiontable.New(100)
	cp, err := New("127.0.0.1:0", tbl, nopLogger{})
	if err != nil {
		t.Fatalf("New() error: %v", err)
	}
	defer func() { _ = cp.Close() }()
	go func() { _ = cp.Serve() }()

	conn, err := net.Dial("tcp", cp.Addr().String())
	if err != nil {
		t.Fatalf("Dial() error: %v", err)
	}
	defer func() { _ = conn.Close() }()

	_, _ = fmt.Fprint(conn, "GARBAGE\n")

	_ = conn.SetReadDeadline(time.Now().Add(200 * time.Millisecond))
	buf := make([]byte, 16)
	_, err = conn.Read(buf)
	if err == nil {
		t.Fatalf("expected no response for an unrecognized request")
	}
	if tbl.Len() != 0 {
		t.Fatalf("table.Len() = %d, want 0", tbl.Len())
	}
}
