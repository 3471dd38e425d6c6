//go:build linux

package main

import (
	"context"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/spf13/cobra"

	"github.com/lattice-net/uconet/internal/driver/dummy"
	"github.com/lattice-net/uconet/internal/driver/loopback"
	"github.com/lattice-net/uconet/internal/ipv4"
	"github.com/lattice-net/uconet/internal/metrics"
	"github.com/lattice-net/uconet/internal/netcore"
)

var (
	verbose       bool
	metricsEnable bool
	metricsAddr   string
	transmitEvery time.Duration
	transmitBody  string

	// set by LDFLAGS
	version = "dev"
	commit  = "none"
)

func main() {
	root := &cobra.Command{
		Use:   "uconetd",
		Short: "runs the device/protocol/IRQ dispatch engine demo",
		RunE:  run,
	}
	root.Flags().BoolVarP(&verbose, "verbose", "v", false, "enable debug logging")
	root.Flags().BoolVar(&metricsEnable, "metrics-enable", false, "enable prometheus metrics")
	root.Flags().StringVar(&metricsAddr, "metrics-addr", "localhost:0", "address to listen on for prometheus metrics")
	root.Flags().DurationVar(&transmitEvery, "transmit-interval", 2*time.Second, "interval between demo loopback transmits")
	root.Flags().StringVar(&transmitBody, "transmit-body", "Hello, World", "payload transmitted on the demo loop")

	if err := root.Execute(); err != nil {
		slog.Error("uconetd: fatal", "error", err)
		os.Exit(1)
	}
}

func run(cmd *cobra.Command, _ []string) (err error) {
	opts := &slog.HandlerOptions{}
	if verbose {
		opts.Level = slog.LevelDebug
	}
	slog.SetDefault(slog.New(slog.NewJSONHandler(os.Stdout, opts)))

	if metricsEnable {
		if err := serveMetrics(metricsAddr); err != nil {
			return fmt.Errorf("starting metrics server: %w", err)
		}
	}

	// The demo loop's own termination is intentionally decoupled from the
	// engine's internal SIGHUP terminate signal: SIGINT/SIGTERM stop this
	// process's main goroutine, while the engine shuts its interrupt
	// goroutine down separately via engine.Shutdown below.
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	engine := netcore.NewEngine()
	if err := engine.Init(); err != nil {
		return fmt.Errorf("initializing engine: %w", err)
	}

	ipv4.Register(engine)

	dummyHandle, _, err := dummy.New(engine)
	if err != nil {
		return fmt.Errorf("registering dummy device: %w", err)
	}

	loopbackHandle, _, err := loopback.New(engine)
	if err != nil {
		return fmt.Errorf("registering loopback device: %w", err)
	}

	if err := engine.Run(); err != nil {
		return fmt.Errorf("starting engine: %w", err)
	}
	defer func() {
		if shutdownErr := engine.Shutdown(); shutdownErr != nil {
			slog.Error("uconetd: engine shutdown failed", "error", shutdownErr)
			if err == nil {
				err = fmt.Errorf("shutting down engine: %w", shutdownErr)
			}
		}
	}()

	slog.Info("uconetd: running", "version", version, "commit", commit)

	clock := clockwork.NewRealClock()
	ticker := clock.NewTicker(transmitEvery)
	defer ticker.Stop()

	if err := engine.Output(dummyHandle, 0x0800, []byte(transmitBody), nil); err != nil {
		slog.Error("uconetd: dummy transmit failed", "error", err)
	}

	for {
		select {
		case <-ctx.Done():
			slog.Info("uconetd: shutting down")
			return nil
		case <-ticker.Chan():
			if err := engine.Output(loopbackHandle, ipv4.ProtocolType, []byte(transmitBody), nil); err != nil {
				slog.Error("uconetd: loopback transmit failed", "error", err)
			}
		}
	}
}

func serveMetrics(addr string) error {
	listener, err := net.Listen("tcp", addr)
	if err != nil {
		return err
	}
	mux := http.NewServeMux()
	mux.Handle("/metrics", metrics.Handler())

	go func() {
		slog.Info("uconetd: metrics server started", "address", listener.Addr().String())
		if err := http.Serve(listener, mux); err != nil {
			slog.Error("uconetd: metrics server stopped", "error", err)
		}
	}()
	return nil
}
