package main

import (
	"context"
	"embed"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"chat-duo/httpapi"
	"chat-duo/internal"
	"chat-duo/moderation"
	"chat-duo/realtime"
	"chat-duo/repositories"
	"chat-duo/search"
	"chat-duo/services"
	"chat-duo/workers"

	"github.com/Netflix/go-env"
	"github.com/blugelabs/bluge"
	"github.com/dgraph-io/badger/v4"
	"github.com/joho/godotenv"
	"github.com/mama165/sdk-go/logs"
)

//go:embed censored.txt
var censoredFS embed.FS

// Exit codes to provide meaningful status to the operating system or service manager (e.g., systemd).
const (
	exitOK      = 0
	exitRuntime = 1
	exitConfig  = 2
)

func main() {
	// main is a thin wrapper: call run() and translate its outcome into an
	// OS exit code, keeping defers in run() effective.
	code, err := run()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Server terminated with error: %v\n", err)
	}
	os.Exit(code)
}

func run() (int, error) {
	// 1. Configuration & logger
	_ = godotenv.Load()
	var config internal.Config
	if _, err := env.UnmarshalFromEnviron(&config); err != nil {
		return exitConfig, fmt.Errorf("config error: %w", err)
	}
	maskingChar, err := internal.CharacterRune(config.CharReplacement)
	if err != nil {
		return exitConfig, err
	}

	logger := logs.GetLoggerFromString(config.LogLevel)
	ctx := context.Background()

	// 2. Stores (BadgerDB + Bluge)
	db, err := badger.Open(buildBadgerOpts(config, logger, ctx))
	if err != nil {
		return exitRuntime, fmt.Errorf("database opening failed: %w", err)
	}
	defer func() {
		logger.Info("Closing BadgerDB...")
		_ = db.Close()
	}()

	blugeWriter, err := bluge.OpenWriter(bluge.DefaultConfig(config.BlugeFilepath))
	if err != nil {
		return exitRuntime, fmt.Errorf("failed to open bluge writer: %w", err)
	}
	defer func() {
		logger.Info("Closing Bluge...")
		_ = blugeWriter.Close()
	}()

	if logger.Enabled(ctx, slog.LevelDebug) {
		logger.Info("Debug Badger inspector available",
			"url", fmt.Sprintf("http://localhost:%d/inspect", config.DebugPort))
	}

	// 3. Moderation
	censoredWords, err := loadCensoredWords()
	if err != nil {
		return exitRuntime, fmt.Errorf("failed to load censored words: %w", err)
	}
	moderator, err := moderation.NewModerator(censoredWords, maskingChar)
	if err != nil {
		return exitRuntime, fmt.Errorf("failed to build moderator: %w", err)
	}

	// 4. Core wiring
	registry := realtime.NewRegistry()
	notifier := realtime.NewNotifier(registry, logger)
	conversationRepository := repositories.NewConversationRepository(db, logger)
	messageRepository := repositories.NewMessageRepository(db, logger)
	userRepository := repositories.NewUserRepository(db)
	messageIndex := search.NewMessageIndex(blugeWriter, logger)

	messagingService := services.NewMessagingService(
		conversationRepository, messageRepository, userRepository,
		notifier, messageIndex, &moderator, logger,
	)
	userService := services.NewUserService(userRepository)

	monitor := workers.NewHealthMonitor(logger, config.MetricInterval)
	supervisor := workers.NewSupervisor(logger, config.RestartInterval).Add(monitor)

	// 5. Context & signals
	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	supervisorDone := make(chan struct{})
	go func() {
		logger.Info("Starting supervisor...")
		supervisor.Run(ctx)
		close(supervisorDone)
	}()

	if logger.Enabled(ctx, slog.LevelDebug) {
		internal.StartDebugServer(db, config.DebugPort, "/inspect", nil, monitor.Snapshot)
	}

	// 6. HTTP server
	api := httpapi.NewServer(messagingService, userService, registry,
		monitor.Snapshot, logger, config.ConnectionBufferSize)
	srv := &http.Server{
		Addr:    fmt.Sprintf("%s:%d", config.Host, config.Port),
		Handler: api.Routes(),
	}

	errChan := make(chan error, 1)
	go func() {
		logger.Info("Starting HTTP server", "address", srv.Addr, "at", time.Now().UTC())
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errChan <- fmt.Errorf("http server error: %w", err)
		}
	}()

	// 7. Wait for stop or error
	select {
	case <-ctx.Done():
		logger.Info("Shutdown signal received")
	case err := <-errChan:
		return exitRuntime, err
	}

	// 8. Graceful shutdown: stop accepting requests, then stop the workers.
	logger.Info("Shutting down gracefully...")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	_ = srv.Shutdown(shutdownCtx)
	supervisor.Stop()
	<-supervisorDone
	logger.Info("Program stopped cleanly")

	return exitOK, nil
}

func buildBadgerOpts(config internal.Config, logger *slog.Logger, ctx context.Context) badger.Options {
	options := badger.DefaultOptions(config.BadgerFilepath)
	if logger.Enabled(ctx, slog.LevelDebug) {
		options = options.WithLoggingLevel(badger.DEBUG).
			WithBypassLockGuard(true)
	} else {
		options = options.WithLoggingLevel(badger.INFO)
	}
	return options
}

func loadCensoredWords() ([]string, error) {
	raw, err := censoredFS.ReadFile("censored.txt")
	if err != nil {
		return nil, err
	}
	var words []string
	for _, line := range strings.Split(string(raw), "\n") {
		line = strings.TrimSpace(line)
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		words = append(words, line)
	}
	return words, nil
}
