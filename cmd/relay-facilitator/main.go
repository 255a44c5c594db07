package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/rs/zerolog"

	"github.com/Abdullah1738/relay-facilitator/internal/api"
	"github.com/Abdullah1738/relay-facilitator/internal/broker"
	"github.com/Abdullah1738/relay-facilitator/internal/chain"
	"github.com/Abdullah1738/relay-facilitator/internal/config"
	"github.com/Abdullah1738/relay-facilitator/internal/events"
	"github.com/Abdullah1738/relay-facilitator/internal/facilitator"
	"github.com/Abdullah1738/relay-facilitator/internal/publisher"
	"github.com/Abdullah1738/relay-facilitator/internal/relay"
)

func main() {
	cfg, err := config.FromFlags()
	if err != nil {
		l := zerolog.New(os.Stderr)
		l.Fatal().Err(err).Msg("config")
	}
	logger := newLogger(cfg, os.Stderr)

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	ln, err := net.Listen("tcp", cfg.ListenAddr)
	if err != nil {
		logger.Fatal().Err(err).Str("addr", cfg.ListenAddr).Msg("listen")
	}
	if err := run(ctx, cfg, logger, ln); err != nil {
		logger.Fatal().Err(err).Msg("relay-facilitator")
	}
}

// run serves on ln until ctx is done, then drains the event publisher.
func run(ctx context.Context, cfg config.Config, logger zerolog.Logger, ln net.Listener) error {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	var sink events.Sink = events.Discard
	br, err := broker.Open(ctx, broker.Config{Driver: cfg.BrokerDriver, URL: cfg.BrokerURL, Topic: cfg.BrokerTopic})
	if err != nil {
		_ = ln.Close()
		return fmt.Errorf("broker init: %w", err)
	}
	var pubDone chan struct{}
	if br != nil {
		defer func() { _ = br.Close() }()

		pub, err := publisher.New(br, publisher.Config{QueueSize: cfg.EventQueueSize, Logger: logger})
		if err != nil {
			_ = ln.Close()
			return fmt.Errorf("publisher init: %w", err)
		}
		sink = pub
		pubDone = make(chan struct{})
		go func() {
			defer close(pubDone)
			if err := pub.Run(ctx); err != nil && ctx.Err() == nil {
				logger.Error().Err(err).Msg("publisher stopped")
			}
			logger.Info().Interface("stats", pub.Stats()).Msg("publisher drained")
		}()
	}
	waitPublisher := func() {
		cancel()
		if pubDone != nil {
			<-pubDone
		}
	}

	var prober chain.Prober
	if cfg.SolanaRPCURL != "" {
		cc, err := chain.New(cfg.SolanaRPCURL)
		if err != nil {
			_ = ln.Close()
			waitPublisher()
			return fmt.Errorf("chain init: %w", err)
		}
		defer func() { _ = cc.Close() }()
		prober = cc
	}

	fac, err := facilitator.New(facilitator.Options{
		Config: cfg,
		Relay:  relay.New(cfg),
		Chain:  prober,
		Events: sink,
		Logger: logger,
	})
	if err != nil {
		_ = ln.Close()
		waitPublisher()
		return fmt.Errorf("facilitator init: %w", err)
	}

	apiServer, err := api.New(fac,
		api.WithLogger(logger),
		api.WithMaxBodyBytes(cfg.MaxBodyBytes),
		api.WithCORSOrigins(cfg.CORSOrigins),
	)
	if err != nil {
		_ = ln.Close()
		waitPublisher()
		return fmt.Errorf("api init: %w", err)
	}

	srv := &http.Server{
		Handler:           apiServer.Handler(),
		ReadHeaderTimeout: 5 * time.Second,
	}

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = srv.Shutdown(shutdownCtx)
	}()

	logger.Info().
		Str("addr", ln.Addr().String()).
		Str("network", cfg.Network).
		Bool("mock_mode", cfg.MockMode).
		Str("broker", cfg.BrokerDriver).
		Msg("listening")
	if cfg.MockMode {
		logger.Warn().Msg("mock mode: relay calls are simulated and relay errors are returned to clients")
	}

	err = srv.Serve(ln)
	waitPublisher()
	if err != nil && !errors.Is(err, http.ErrServerClosed) {
		return fmt.Errorf("http: %w", err)
	}
	return nil
}

func newLogger(cfg config.Config, w io.Writer) zerolog.Logger {
	level, err := zerolog.ParseLevel(strings.ToLower(strings.TrimSpace(cfg.LogLevel)))
	if err != nil || level == zerolog.NoLevel {
		level = zerolog.InfoLevel
	}
	if strings.EqualFold(cfg.LogFormat, "pretty") {
		w = zerolog.ConsoleWriter{Out: w, TimeFormat: time.RFC3339}
	}
	return zerolog.New(w).Level(level).With().
		Timestamp().
		Str("service", facilitator.ServiceName).
		Logger()
}
