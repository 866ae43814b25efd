package main

import (
	"errors"
	"flag"
	"fmt"
	"net"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"github.com/agrisense/farm-recommender/internal/config"
	"github.com/agrisense/farm-recommender/internal/logging"
	"github.com/agrisense/farm-recommender/internal/server"
)

var version = "dev"

func main() {
	// Parse command-line flags
	port := flag.Int("port", 0, "HTTP server port (overrides config)")
	modelsDir := flag.String("models-dir", "", "Directory containing trained model artifacts")
	dataDir := flag.String("data-dir", "", "Directory containing the training dataset and history")
	configPath := flag.String("config", "", "Path to a config file")
	showVersion := flag.Bool("version", false, "Show version and exit")
	flag.Parse()

	if *showVersion {
		fmt.Printf("Farm Recommender v%s\n", version)
		os.Exit(0)
	}

	cfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load configuration: %v\n", err)
		os.Exit(1)
	}
	cfg.Version = version

	logging.Init(logging.Config{Level: cfg.LogLevel, Format: cfg.LogFormat})

	// Flags take priority over config file and environment.
	if *port != 0 {
		cfg.Port = *port
	}
	if *modelsDir != "" {
		cfg.ModelsDir = *modelsDir
	}
	if *dataDir != "" {
		cfg.DataDir = *dataDir
	}

	// When no explicit directories are given and an installed model pack is
	// recorded in settings, serve from the pack.
	if *modelsDir == "" || *dataDir == "" {
		settings, err := config.LoadSettings()
		if err != nil {
			logging.Warn().Err(err).Msg("could not load settings")
		} else if settings.ModelPackPath != "" {
			packModels := filepath.Join(settings.ModelPackPath, server.ModelsSubdir)
			if _, err := os.Stat(packModels); err == nil {
				if *modelsDir == "" {
					cfg.ModelsDir = packModels
				}
				if *dataDir == "" {
					cfg.DataDir = filepath.Join(settings.ModelPackPath, server.DataSubdir)
				}
				logging.Info().Str("path", settings.ModelPackPath).Msg("using installed model pack")
			} else {
				logging.Warn().Str("path", settings.ModelPackPath).Msg("saved model pack path no longer exists")
			}
		}
	}

	// Find an available port (try up to 10 ports starting from the requested one)
	availablePort, err := findAvailablePort(cfg.Port, 10)
	if err != nil {
		logging.Fatal().Err(err).Msg("failed to find available port")
	}
	if availablePort != cfg.Port {
		logging.Warn().Int("requested", cfg.Port).Int("using", availablePort).Msg("port in use")
		cfg.Port = availablePort
	}

	logging.Info().
		Str("version", version).
		Int("port", cfg.Port).
		Str("models_dir", cfg.ModelsDir).
		Str("data_dir", cfg.DataDir).
		Msg("farm recommender starting")

	srv, err := server.New(cfg)
	if err != nil {
		logging.Fatal().Err(err).Msg("failed to create server")
	}

	// Graceful shutdown on SIGINT/SIGTERM
	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)

	errCh := make(chan error, 1)
	go func() {
		errCh <- srv.Start()
	}()

	select {
	case err := <-errCh:
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			logging.Fatal().Err(err).Msg("server error")
		}
	case sig := <-stop:
		logging.Info().Str("signal", sig.String()).Msg("shutting down")
		if err := srv.Stop(); err != nil {
			logging.Error().Err(err).Msg("error during shutdown")
		}
	}
}

// findAvailablePort finds an available port, starting from the given port.
// If the port is in use, it tries subsequent ports up to maxAttempts times.
func findAvailablePort(startPort int, maxAttempts int) (int, error) {
	for i := 0; i < maxAttempts; i++ {
		port := startPort + i
		addr := fmt.Sprintf(":%d", port)
		listener, err := net.Listen("tcp", addr)
		if err == nil {
			listener.Close()
			return port, nil
		}
	}
	return 0, fmt.Errorf("no available port found after %d attempts starting from %d", maxAttempts, startPort)
}
