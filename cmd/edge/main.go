// Command edge runs the gateway edge process: it terminates player
// WebSocket connections, dispatches their client messages, and fans out
// messages published on the upstream bus to every connection.
package main

import (
	"context"
	"flag"
	"os"
	"os/signal"
	"runtime"
	"syscall"
	"time"

	_ "go.uber.org/automaxprocs"

	"github.com/adred-codev/gatecodec/internal/broadcast"
	"github.com/adred-codev/gatecodec/internal/config"
	"github.com/adred-codev/gatecodec/internal/edge"
	"github.com/adred-codev/gatecodec/internal/logging"
)

func main() {
	debug := flag.Bool("debug", false, "enable debug logging (overrides LOG_LEVEL)")
	flag.Parse()

	cfg, err := config.Load(nil)
	if err != nil {
		panic("failed to load configuration: " + err.Error())
	}
	if *debug {
		cfg.LogLevel = "debug"
	}

	logger := logging.New(logging.Config{Level: cfg.LogLevel, Format: cfg.LogFormat})

	// automaxprocs sets GOMAXPROCS from the container's CPU cgroup limit. It
	// rounds down (e.g. 1.5 cores -> 1), which is correct for the Go
	// scheduler even though the resource guard uses the precise fractional
	// limit for its own CPU-percent math.
	logger.Info().Int("gomaxprocs", runtime.GOMAXPROCS(0)).Msg("starting edge process")

	cfg.Print()
	cfg.Log(logger)

	srv := edge.New(cfg, logger)
	if err := srv.Start(); err != nil {
		logger.Fatal().Err(err).Msg("failed to start edge server")
	}

	bcast, err := broadcast.Connect(broadcastConfig(cfg), srv, srv.Guard(), logger)
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to connect to message bus")
	}

	ctx, cancel := context.WithCancel(context.Background())
	if err := bcast.Start(ctx); err != nil {
		logger.Fatal().Err(err).Msg("failed to subscribe to broadcast subject")
	}

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)
	<-sigCh

	logger.Info().Msg("shutdown signal received")
	cancel()
	bcast.Stop()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 35*time.Second)
	defer shutdownCancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error().Err(err).Msg("error during shutdown")
	}
}

func broadcastConfig(cfg *config.Config) broadcast.Config {
	bc := broadcast.DefaultConfig()
	bc.URL = cfg.NATSURL
	bc.Subject = cfg.BroadcastSubject
	return bc
}
