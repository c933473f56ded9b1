package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"cv-go/internal/config"
	"cv-go/internal/server"
)

const shutdownTimeout = 10 * time.Second

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

var rootCmd = &cobra.Command{
	Use:           "cv-server",
	Short:         "File store for cv push and pull",
	Args:          cobra.NoArgs,
	SilenceUsage:  true,
	SilenceErrors: true,
	RunE:          run,
}

// loadConfig reads the config file and applies flags that were set
// explicitly on the command line.
func loadConfig(cmd *cobra.Command) (*config.ServerConfig, error) {
	path, _ := cmd.Flags().GetString("config")
	cfg, err := config.ReadServerConfig(path)
	if err != nil {
		return nil, err
	}

	overrides := map[string]*string{
		"addr":         &cfg.Addr,
		"storage-root": &cfg.StorageRoot,
		"api-key":      &cfg.APIKey,
		"header-name":  &cfg.HeaderName,
		"log-level":    &cfg.LogLevel,
		"log-format":   &cfg.LogFormat,
	}
	for name, dst := range overrides {
		if cmd.Flags().Changed(name) {
			*dst, _ = cmd.Flags().GetString(name)
		}
	}
	if key := os.Getenv("CV_SERVER_API_KEY"); key != "" && !cmd.Flags().Changed("api-key") {
		cfg.APIKey = key
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}
	return cfg, nil
}

func run(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}

	logger, err := server.NewLogger(cfg.LogLevel, cfg.LogFormat)
	if err != nil {
		return fmt.Errorf("creating logger: %w", err)
	}
	defer logger.Sync()

	srv, err := server.New(cfg, logger)
	if err != nil {
		return fmt.Errorf("creating server: %w", err)
	}

	httpServer := &http.Server{
		Addr:              cfg.Addr,
		Handler:           srv.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	errCh := make(chan error, 1)
	go func() {
		logger.Info("server listening",
			zap.String("addr", cfg.Addr),
			zap.String("storage_root", cfg.StorageRoot))
		if err := httpServer.ListenAndServe(); !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		if err != nil {
			return fmt.Errorf("server error: %w", err)
		}
		return nil
	case <-ctx.Done():
	}

	logger.Info("shutting down...")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("shutting down: %w", err)
	}
	return nil
}

func init() {
	defaults := config.NewServerConfig()
	f := rootCmd.Flags()
	f.String("config", "", "Path to the server TOML config")
	f.String("addr", defaults.Addr, "Listen address")
	f.String("storage-root", defaults.StorageRoot, "Directory holding stored files")
	f.String("api-key", "", "Pre-shared key required on /files requests (or CV_SERVER_API_KEY)")
	f.String("header-name", defaults.HeaderName, "Header carrying the API key")
	f.String("log-level", defaults.LogLevel, "Log level: debug, info, warn, error")
	f.String("log-format", defaults.LogFormat, "Log format: json or console")
}
