// main package for the synth-service
package main

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/book-expert/logger"
	"github.com/book-expert/synth-service/internal/config"
	"github.com/book-expert/synth-service/internal/objectstore"
	"github.com/book-expert/synth-service/internal/studio"
	"github.com/book-expert/synth-service/internal/synth"
	"github.com/book-expert/synth-service/internal/worker"
	"github.com/joho/godotenv"
	"github.com/nats-io/nats.go"
)

const (
	bootstrapLogFile = "synth-service-bootstrap.log"
	serviceLogFile   = "synth-service.log"
	natsClientName   = "synth-service"
)

func setupLogger(logPath, fileName string) (*logger.Logger, error) {
	log, err := logger.New(logPath, fileName)
	if err != nil {
		return nil, fmt.Errorf("failed to create logger in %s: %w", logPath, err)
	}

	return log, nil
}

// loadEnvironment reads an optional .env file so configurator overrides can be set locally.
func loadEnvironment(log *logger.Logger) error {
	err := godotenv.Load()
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil
		}

		return fmt.Errorf("failed to load .env file: %w", err)
	}

	log.Info("Loaded environment overrides from .env")

	return nil
}

func newSynthesizer(cfg *config.Config, log *logger.Logger) *synth.Synthesizer {
	opts := []synth.Option{synth.WithLogger(log)}
	if cfg.Synth.FixedSeed {
		opts = append(opts, synth.WithSeed(cfg.Synth.Seed))
	}

	return synth.New(opts...)
}

func serve(ctx context.Context, cfg *config.Config, log *logger.Logger) error {
	natsConnection, err := nats.Connect(cfg.NATS.URL, nats.Name(natsClientName))
	if err != nil {
		return fmt.Errorf("failed to connect to NATS at %s: %w", cfg.NATS.URL, err)
	}
	defer natsConnection.Close()

	jetstreamContext, err := natsConnection.JetStream()
	if err != nil {
		return fmt.Errorf("failed to create JetStream context: %w", err)
	}

	store, err := objectstore.New(jetstreamContext, cfg.NATS.AudioObjectStoreBucket)
	if err != nil {
		return fmt.Errorf("failed to open asset store: %w", err)
	}

	synthesizer := newSynthesizer(cfg, log)
	renderer := studio.New(synthesizer, synthesizer.Format(), store, log, cfg.Synth.Workers, cfg.Synth.MaxAlbumTracks)

	natsWorker, err := worker.NewNatsWorker(
		natsConnection,
		worker.Subjects{
			Request:    cfg.NATS.SynthesisRequestSubject,
			QueueGroup: cfg.NATS.SynthesisQueueGroup,
			Rendered:   cfg.NATS.ProjectRenderedSubject,
		},
		renderer,
		time.Duration(cfg.Synth.TimeoutSeconds)*time.Second,
		log,
	)
	if err != nil {
		return fmt.Errorf("failed to create worker: %w", err)
	}

	log.System("Synth-Service successfully initialized. Listening for jobs on subject: %s",
		cfg.NATS.SynthesisRequestSubject)

	return natsWorker.Run(ctx)
}

func run() error {
	// 1. Create a temporary logger for the bootstrap process
	bootstrapLog, err := setupLogger(os.TempDir(), bootstrapLogFile)
	if err != nil {
		// If bootstrap logger fails, we can only print to stderr
		fmt.Fprintf(os.Stderr, "FATAL: Failed to create bootstrap logger: %v\n", err)

		return err
	}

	bootstrapLog.Info("Bootstrap logger created.")

	envErr := loadEnvironment(bootstrapLog)
	if envErr != nil {
		bootstrapLog.Error("Failed to load environment: %v", envErr)

		return envErr
	}

	// 2. Load configuration using the central configurator
	cfg, err := config.Load(bootstrapLog)
	if err != nil {
		bootstrapLog.Error("Failed to load configuration: %v", err)

		return fmt.Errorf("failed to load configuration: %w", err)
	}

	bootstrapLog.Info("Configuration loaded successfully.")

	// 3. Initialize the final logger based on the loaded configuration
	finalLog, err := setupLogger(cfg.Paths.BaseLogsDir, serviceLogFile)
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

	// 4. Serve until interrupted
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	serveErr := serve(ctx, cfg, finalLog)
	if serveErr != nil {
		finalLog.Error("Service stopped with error: %v", serveErr)

		return serveErr
	}

	finalLog.System("Synth-Service shut down cleanly.")

	return nil
}

func main() {
	err := run()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Service exited with error: %v\n", err)
		os.Exit(1)
	}
}
