// Package metrics exposes the server's Prometheus counters and an optional
// /metrics HTTP endpoint, gated by config.MetricsBind being non-empty (see
// spec.md §6). The metric set itself — a namespaced counter/gauge pair per
// concern, registered in an init-time var block — follows the pattern this
// codebase's peers use for their own session/connection metrics.
package metrics

import (
	"context"
	"errors"
	"net"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "netual"

var (
	ActiveSessions = prometheus.NewGauge(prometheus.GaugeOpts{
		Namespace: namespace,
		Subsystem: "session",
		Name:      "active",
		Help:      "Number of sessions present in the session table at the last reaper sweep.",
	})
	SessionsAllocated = prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: namespace,
		Subsystem: "session",
		Name:      "allocated_total",
		Help:      "Total number of sessions allocated by the control plane.",
	})
	SessionsReaped = prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: namespace,
		Subsystem: "session",
		Name:      "reaped_total",
		Help:      "Total number of sessions removed by the reaper for exceeding the idle timeout.",
	})
	DedupAccepted = prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: namespace,
		Subsystem: "dedup",
		Name:      "accepted_total",
		Help:      "Total number of ingress datagrams accepted as non-duplicate.",
	})
	DedupSuppressed = prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: namespace,
		Subsystem: "dedup",
		Name:      "suppressed_total",
		Help:      "Total number of ingress datagrams suppressed as duplicates.",
	})
	EgressDelivered = prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: namespace,
		Subsystem: "egress",
		Name:      "delivered_total",
		Help:      "Total number of UDP datagrams sent to client paths by the egress forwarder.",
	})
)

func init() {
	prometheus.MustRegister(
		ActiveSessions,
		SessionsAllocated,
		SessionsReaped,
		DedupAccepted,
		DedupSuppressed,
		EgressDelivered,
	)
}

// Server serves the /metrics endpoint on the configured bind address.
type Server struct {
	httpServer *http.Server
}

// NewServer constructs a Server bound to addr. addr must be non-empty;
// callers should skip constructing a Server entirely when metrics are
// disabled (config.MetricsBind == "").
func NewServer(addr string) *Server {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())
	return &Server{httpServer: &http.Server{Addr: addr, Handler: mux}}
}

// Run listens and serves until ctx is canceled, at which point it shuts
// down gracefully within a short grace period.
func (s *Server) Run(ctx context.Context) error {
	ln, err := net.Listen("tcp", s.httpServer.Addr)
	if err != nil {
		return err
	}

	errCh := make(chan error, 1)
	go func() { errCh <- s.httpServer.Serve(ln) }()

	select {
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		return s.httpServer.Shutdown(shutdownCtx)
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	}
}
