package main

import (
	"context"
	"fmt"
	"log"
	"net"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/thvlayu/Netual/internal/config"
	"github.com/thvlayu/Netual/internal/controlplane"
	"github.com/thvlayu/Netual/internal/egress"
	"github.com/thvlayu/Netual/internal/ingress"
	"github.com/thvlayu/Netual/internal/metrics"
	"github.com/thvlayu/Netual/internal/reaper"
	"github.com/thvlayu/Netual/internal/sessiontable"
	"github.com/thvlayu/Netual/internal/telemetry"
	"github.com/thvlayu/Netual/internal/tunif"
)

func serveCmd(configPath *string) *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Run the tunnel server",
		Args:  cobra.NoArgs,
		RunE: func(_ *cobra.Command, _ []string) error {
			return serve(*configPath)
		},
	}
}

func serve(configPath string) error {
	var resolver config.Resolver
	if configPath != "" {
		resolver = config.NewResolverWithPath(configPath)
	} else {
		resolver = config.NewResolver()
	}

	mgr, err := config.NewManagerWithResolver(resolver)
	if err != nil {
		return fmt.Errorf("serve: %w", err)
	}
	cfg, err := mgr.Load()
	if err != nil {
		return fmt.Errorf("serve: %w", err)
	}

	logger := telemetry.NewStdLogger(log.Default())
	if _, ok := telemetry.ParseLevel(cfg.LogLevel); !ok {
		return fmt.Errorf("serve: invalid log_level %q", cfg.LogLevel)
	}

	iface, err := tunif.Open(tunif.Params{
		Name:    cfg.IfaceName,
		Address: cfg.IfaceAddress,
		Netmask: cfg.IfaceNetmask,
		MTU:     tunif.DefaultMTU,
	})
	if err != nil {
		return fmt.Errorf("serve: failed to open interface: %w", err)
	}
	defer func() { _ = iface.Close() }()

	tunnelAddr, err := net.ResolveUDPAddr("udp", cfg.TunnelBind)
	if err != nil {
		return fmt.Errorf("serve: invalid tunnel_bind %q: %w", cfg.TunnelBind, err)
	}
	udpConn, err := net.ListenUDP("udp", tunnelAddr)
	if err != nil {
		return fmt.Errorf("serve: failed to bind tunnel socket on %s: %w", cfg.TunnelBind, err)
	}
	defer func() { _ = udpConn.Close() }()

	table := sessiontable.New(cfg.DedupCapacity)

	cp, err := controlplane.New(cfg.ControlBind, table, logger)
	if err != nil {
		return fmt.Errorf("serve: %w", err)
	}
	defer func() { _ = cp.Close() }()

	in := ingress.New(udpConn, table, iface, logger, 0)
	out := egress.New(iface, udpConn, table, logger, cfg.PathActiveWindow)
	reap := reaper.New(table, logger, cfg.ReapInterval, cfg.SessionTimeout)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	g, gCtx := errgroup.WithContext(ctx)

	g.Go(func() error { return cp.Serve() })
	g.Go(func() error { return in.Run() })
	g.Go(func() error { return out.Run() })
	g.Go(func() error { return reap.Run(gCtx) })

	if cfg.MetricsBind != "" {
		ms := metrics.NewServer(cfg.MetricsBind)
		g.Go(func() error { return ms.Run(gCtx) })
	}

	g.Go(func() error {
		<-gCtx.Done()
		_ = cp.Close()
		_ = udpConn.Close()
		_ = iface.Close()
		return gCtx.Err()
	})

	logger.Printf("netuald: serving tunnel=%s control=%s iface=%s", cfg.TunnelBind, cfg.ControlBind, cfg.IfaceName)

	if err := g.Wait(); err != nil && gCtx.Err() == nil {
		return fmt.Errorf("serve: %w", err)
	}
	return nil
}
