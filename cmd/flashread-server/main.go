// Package main provides the headless reader server entry point.
package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/exec"
	"os/signal"
	"syscall"
	"time"

	"github.com/alecthomas/kingpin/v2"
	"github.com/cockroachdb/errors"
	"github.com/joho/godotenv"
	zlog "github.com/rs/zerolog/log"
	"golang.org/x/net/http2"
	"golang.org/x/net/http2/h2c"

	apiconnect "github.com/osa030/flashread/internal/api/connect"
	"github.com/osa030/flashread/internal/app/session"
	"github.com/osa030/flashread/internal/app/source"
	"github.com/osa030/flashread/internal/infra/config"
	"github.com/osa030/flashread/internal/infra/logger"
)

var (
	app        = kingpin.New("flashread-server", "flashread reading session server")
	configPath = app.Flag("config", "Path to config file").Default("config/flashread.yaml").String()
	verbose    = app.Flag("verbose", "Enable verbose (DEBUG) logging").Short('v').Bool()
	logfile    = app.Flag("logfile", "Path to log file (default: stdout)").String()
	textFile   = app.Flag("text", "Text file to load at startup").String()
)

func main() {
	// Load .env file if it exists (errors are ignored)
	_ = godotenv.Load()

	kingpin.MustParse(app.Parse(os.Args[1:]))

	// Initialize logger
	loggerConfig := logger.Config{
		Output: "stdout",
		Level:  "info",
	}
	if *verbose {
		loggerConfig.Level = "debug"
	}
	if *logfile != "" {
		loggerConfig.Output = *logfile
	}
	closer, err := logger.Init(loggerConfig)
	if err != nil {
		panic(fmt.Sprintf("Failed to initialize logger: %v", err))
	}
	defer closer.Close()

	// Load config
	zlog.Info().Msgf("Loading config from %s", *configPath)
	cfg, err := config.LoadOrDefault(*configPath)
	if err != nil {
		zlog.Fatal().Msgf("Failed to load config: %v", err)
	}

	if err := run(cfg); err != nil {
		zlog.Error().Msgf("Server error: %v", err)
		os.Exit(1)
	}
}

// run executes the main server logic. Using a separate function ensures
// defer statements are executed even when returning with an error.
func run(cfg *config.Config) error {
	if err := cfg.RequireControlToken(); err != nil {
		return err
	}

	// Fetch is reachable over RPC, so local files are only served from a base_dir.
	chain, err := source.NewChainFromConfig(cfg, source.RequireConfinedFiles())
	if err != nil {
		return errors.Wrap(err, "failed to create source providers")
	}

	sessionMgr, err := session.NewManager(cfg, chain)
	if err != nil {
		return errors.Wrap(err, "failed to create session manager")
	}

	if *textFile != "" {
		if err := preload(sessionMgr, *textFile); err != nil {
			sessionMgr.Close()
			return errors.Wrapf(err, "failed to load %s", *textFile)
		}
	}

	// Create RPC service
	readerService := apiconnect.NewReaderService(sessionMgr, cfg)
	mux := http.NewServeMux()
	path, handler := apiconnect.NewReaderServiceHandler(readerService)
	mux.Handle(path, handler)

	// Create server with h2c (HTTP/2 cleartext) support
	server := &http.Server{
		Addr:    cfg.Server.Addr,
		Handler: h2c.NewHandler(mux, &http2.Server{}),
	}

	// Channel to capture server startup errors
	serverErrCh := make(chan error, 1)
	serverStartedCh := make(chan struct{})

	go func() {
		zlog.Info().Msgf("Starting server: addr=%s", cfg.Server.Addr)
		close(serverStartedCh)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			serverErrCh <- err
		}
	}()

	// Wait for server to start listening
	<-serverStartedCh
	time.Sleep(100 * time.Millisecond)

	// Execute startup hook if configured (after server is running)
	executeHooks(cfg.Server.Hooks.OnStarted, "on_started", cfg.Server.Addr)

	// Wait for shutdown signal, session end, or server error
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	select {
	case <-sigCh:
		zlog.Info().Msg("Received shutdown signal...")
		if err := sessionMgr.Pause(); err != nil {
			zlog.Error().Msgf("Failed to pause session: %v", err)
		}
	case <-sessionMgr.Done():
		zlog.Info().Msg("Session ended, shutting down...")
	case err := <-serverErrCh:
		sessionMgr.Close()
		return errors.Wrap(err, "server error")
	}

	// Graceful shutdown
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	// Close session manager first to terminate active streams
	sessionMgr.Close()

	if err := server.Shutdown(shutdownCtx); err != nil {
		zlog.Error().Msgf("Failed to shutdown server: %v", err)
	}

	zlog.Info().Msg("Server stopped")

	executeHooks(cfg.Server.Hooks.OnStopped, "on_stopped", cfg.Server.Addr)

	return nil
}

// preload reads the startup text file. The operator names it on the command
// line, so it is not confined to a base_dir.
func preload(sessionMgr *session.Manager, path string) error {
	fp, err := source.NewFileProvider(nil)
	if err != nil {
		return err
	}
	text, err := fp.Fetch(context.Background(), source.Request{URL: path})
	if err != nil {
		return err
	}
	return sessionMgr.LoadText(text)
}

// executeHooks runs a list of shell commands. FLASHREAD_STAGE and
// FLASHREAD_ADDR are exported to each command.
func executeHooks(hooks []string, stage, addr string) {
	if len(hooks) == 0 {
		return
	}

	zlog.Info().Msgf("Executing %s hooks (%d commands)", stage, len(hooks))

	for _, hook := range hooks {
		zlog.Info().Msgf("Executing hook: %s", hook)
		// sh -c allows redirection and pipes
		cmd := exec.Command("sh", "-c", hook)
		cmd.Stdout = os.Stdout
		cmd.Stderr = os.Stderr
		cmd.Env = append(os.Environ(), "FLASHREAD_STAGE="+stage, "FLASHREAD_ADDR="+addr)

		if err := cmd.Run(); err != nil {
			zlog.Error().Err(err).Msgf("Failed to execute hook: %s", hook)
		}
	}
}
