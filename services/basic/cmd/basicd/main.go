package main

import (
	"context"
	"math/rand"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"basicd/pkg/bus"
	"basicd/pkg/telemetry"
	"basicd/services/basic/internal/batch"
	"basicd/services/basic/internal/config"
	"basicd/services/basic/internal/httpapi"
	"basicd/services/basic/internal/simulate"
)

const serviceName = "basicd"

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	_ = godotenv.Load()

	zerolog.TimeFieldFormat = zerolog.TimeFormatUnix
	log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr})

	cfg, err := config.Load(ctx)
	if err != nil {
		log.Fatal().Err(err).Msg("load config")
	}

	shutdownTelemetry, traceMiddleware, err := telemetry.Init(ctx, serviceName, cfg.OTLPEndpoint)
	if err != nil {
		log.Fatal().Err(err).Msg("init telemetry")
	}
	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := shutdownTelemetry(shutdownCtx); err != nil {
			log.Error().Err(err).Msg("shutdown telemetry")
		}
	}()

	profile := simulate.DefaultProfile()
	if cfg.SimProfile != "" {
		profile, err = simulate.LoadProfile(cfg.SimProfile)
		if err != nil {
			log.Fatal().Err(err).Str("path", cfg.SimProfile).Msg("load sim profile")
		}
	} else {
		profile.MinDelay = cfg.SimMinDelay
		profile.MaxDelay = cfg.SimMaxDelay
		profile.FailureRate = cfg.SimFailureRate
	}

	sim, err := simulate.New(profile, rand.New(rand.NewSource(time.Now().UnixNano())))
	if err != nil {
		log.Fatal().Err(err).Msg("create simulator")
	}

	orch, err := batch.NewOrchestrator(sim, log.Logger)
	if err != nil {
		log.Fatal().Err(err).Msg("create orchestrator")
	}

	var eventBus *bus.Bus
	if cfg.NATSURL != "" {
		eventBus, err = bus.New(cfg.NATSURL)
		if err != nil {
			log.Fatal().Err(err).Msg("connect nats")
		}
		defer eventBus.Close()
		log.Info().Str("url", cfg.NATSURL).Msg("mirroring envelopes to nats")
	}

	api, err := httpapi.New(orch, eventBus, cfg.MaxProcesses, log.Logger)
	if err != nil {
		log.Fatal().Err(err).Msg("create api")
	}

	srv := &http.Server{
		Addr:              cfg.Addr,
		Handler:           traceMiddleware(api.Routes(cfg.AllowedOrigins)),
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		log.Info().Str("addr", cfg.Addr).Msg("starting basicd")
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal().Err(err).Msg("http server")
		}
	}()

	<-ctx.Done()

	log.Info().Dur("grace", cfg.ShutdownGrace).Msg("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownGrace)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("shutdown server")
	}
	log.Info().Msg("shutdown complete")
}
