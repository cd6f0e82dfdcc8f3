// main package for the tts-gateway.
package main

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"github.com/book-expert/logger"
	"github.com/nats-io/nats.go"

	"github.com/book-expert/tts-gateway/internal/audiocache"
	"github.com/book-expert/tts-gateway/internal/config"
	"github.com/book-expert/tts-gateway/internal/core"
	"github.com/book-expert/tts-gateway/internal/dispatch"
	"github.com/book-expert/tts-gateway/internal/gateway"
	"github.com/book-expert/tts-gateway/internal/persona"
	"github.com/book-expert/tts-gateway/internal/synth"
)

// Defaults applied when the configuration leaves fields unset.
const (
	defaultPort           = 3001
	defaultTimeoutSeconds = 60
	defaultServiceName    = "tts-gateway"
	defaultCacheDir       = "audio_cache"
	readHeaderTimeout     = 10 * time.Second
	shutdownTimeout       = 15 * time.Second
	bootstrapLogFileName  = "tts-gateway-bootstrap.log"
	gatewayLogFileName    = "tts-gateway.log"
)

// ErrUnknownCacheBackend indicates an unrecognized cache.backend value.
var ErrUnknownCacheBackend = errors.New("unknown cache backend")

func setupLogger(logPath, fileName string) (*logger.Logger, error) {
	log, err := logger.New(logPath, fileName)
	if err != nil {
		return nil, fmt.Errorf("failed to create logger: %w", err)
	}

	return log, nil
}

// newAudioStore builds the configured cache store. The filesystem store is
// the default; "nats" selects the shared JetStream object-store backend.
func newAudioStore(cfg *config.Config, log *logger.Logger) (core.AudioStore, error) {
	backend := cfg.Cache.Backend
	if backend == "" {
		backend = config.CacheBackendFS
	}

	switch backend {
	case config.CacheBackendFS:
		cacheDir := cfg.Cache.Dir
		if cacheDir == "" {
			cacheDir = defaultCacheDir
		}

		store, err := audiocache.NewFSStore(cacheDir)
		if err != nil {
			return nil, fmt.Errorf("failed to create filesystem cache: %w", err)
		}

		log.Info("Audio cache: filesystem store at %s", cacheDir)

		return store, nil
	case config.CacheBackendNATS:
		natsConnection, err := nats.Connect(cfg.NATS.URL)
		if err != nil {
			return nil, fmt.Errorf("failed to connect to NATS at %s: %w", cfg.NATS.URL, err)
		}

		jetstreamContext, err := natsConnection.JetStream()
		if err != nil {
			return nil, fmt.Errorf("failed to create JetStream context: %w", err)
		}

		store, err := audiocache.NewNATSStore(jetstreamContext, cfg.NATS.Bucket)
		if err != nil {
			return nil, fmt.Errorf("failed to create NATS cache: %w", err)
		}

		log.Info("Audio cache: NATS object store bucket %s", cfg.NATS.Bucket)

		return store, nil
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownCacheBackend, backend)
	}
}

func run() error {
	// 1. Create a temporary logger for the bootstrap process.
	bootstrapLog, err := setupLogger(os.TempDir(), bootstrapLogFileName)
	if err != nil {
		fmt.Fprintf(os.Stderr, "FATAL: Failed to create bootstrap logger: %v\n", err)

		return err
	}

	bootstrapLog.Info("Bootstrap logger created.")

	// 2. Load configuration using the central configurator.
	cfg, err := config.Load(bootstrapLog)
	if err != nil {
		bootstrapLog.Error("Failed to load configuration: %v", err)

		return fmt.Errorf("failed to load configuration: %w", err)
	}

	bootstrapLog.Info("Configuration loaded successfully.")

	// 3. Initialize the final logger based on the loaded configuration.
	finalLog, err := setupLogger(cfg.Paths.BaseLogsDir, gatewayLogFileName)
	if err != nil {
		bootstrapLog.Error("Failed to create final logger: %v", err)

		return fmt.Errorf("failed to create final logger: %w", err)
	}

	defer func() {
		closeErr := finalLog.Close()
		if closeErr != nil {
			fmt.Fprintf(os.Stderr, "error closing final logger: %v\n", closeErr)
		}
	}()

	return serve(cfg, finalLog)
}

func serve(cfg *config.Config, log *logger.Logger) error {
	store, err := newAudioStore(cfg, log)
	if err != nil {
		return err
	}

	timeoutSeconds := cfg.Backend.TimeoutSeconds
	if timeoutSeconds <= 0 {
		timeoutSeconds = defaultTimeoutSeconds
	}

	synthClient := synth.NewClient(cfg.Backend.URL, time.Duration(timeoutSeconds)*time.Second)
	resolver := persona.New(cfg.Persona.Default)
	dispatcher := dispatch.New(resolver, store, synthClient, log)

	serviceName := cfg.Server.ServiceName
	if serviceName == "" {
		serviceName = defaultServiceName
	}

	server := gateway.New(dispatcher, resolver, serviceName, log)

	port := cfg.Server.Port
	if port == 0 {
		port = defaultPort
	}

	address := net.JoinHostPort(cfg.Server.Host, strconv.Itoa(port))

	httpServer := &http.Server{
		Addr:              address,
		Handler:           server.Handler(),
		ReadHeaderTimeout: readHeaderTimeout,
	}

	shutdownCtx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	serveErr := make(chan error, 1)

	go func() {
		serveErr <- httpServer.ListenAndServe()
	}()

	log.System("TTS gateway listening on %s (backend: %s)", address, cfg.Backend.URL)

	select {
	case err := <-serveErr:
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("http server failed: %w", err)
		}

		return nil
	case <-shutdownCtx.Done():
		log.System("Shutdown signal received, draining connections.")

		ctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()

		err := httpServer.Shutdown(ctx)
		if err != nil {
			return fmt.Errorf("graceful shutdown failed: %w", err)
		}

		return nil
	}
}

func main() {
	err := run()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Service exited with error: %v\n", err)
		os.Exit(1)
	}
}
