package cli

import (
	"context"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/lmittmann/tint"
	"github.com/spf13/cobra"
	"github.com/vietddude/stylelog"

	"github.com/vietddude/honeywatch/internal/control"
	"github.com/vietddude/honeywatch/internal/core/config"
)

var (
	cfgPath string
	isDebug bool
)

var rootCmd = &cobra.Command{
	Use:   "honeywatch",
	Short: "DEX honeypot watcher",
	Long: `honeywatch subscribes to a DEX factory's PairCreated events, screens every
new base-asset pair for honeypot signals and either blacklists the token or
submits a mitigation transaction through a helper contract.`,
	Run: runGuard,
}

func Execute() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().StringVar(&cfgPath, "config", "config.yaml", "config file (default is config.yaml)")
	rootCmd.PersistentFlags().BoolVar(&isDebug, "debug", false, "enable debug logging")
}

// loadConfig reads .env and the config file and sets up logging.
func loadConfig() *config.AppConfig {
	_ = godotenv.Load()

	cfg, err := config.Load(cfgPath)
	if err != nil {
		stylelog.InitDefault()
		slog.Error("Failed to load config", "error", err)
		os.Exit(1)
	}

	setupLogging(cfg.Logging, isDebug)
	return cfg
}

func setupLogging(cfg config.LoggingConfig, debug bool) {
	level := logLevel(cfg.Level, debug)
	if cfg.Format == "json" {
		slog.SetDefault(newJSONLogger(os.Stderr, level))
		return
	}
	stylelog.InitDefault(&tint.Options{
		Level:      level,
		TimeFormat: time.RFC3339,
	})
}

func logLevel(level string, debug bool) slog.Level {
	switch {
	case debug || level == "debug":
		return slog.LevelDebug
	case level == "warn":
		return slog.LevelWarn
	case level == "error":
		return slog.LevelError
	}
	return slog.LevelInfo
}

// newJSONLogger is used for log collectors that expect one JSON object per line.
func newJSONLogger(w io.Writer, level slog.Level) *slog.Logger {
	return slog.New(slog.NewJSONHandler(w, &slog.HandlerOptions{Level: level}))
}

func runGuard(cmd *cobra.Command, args []string) {
	cfg := loadConfig()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	app, err := control.NewGuard(ctx, cfg)
	if err != nil {
		slog.Error("Failed to initialize guard", "error", err)
		os.Exit(1)
	}

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	if err := app.Start(ctx); err != nil {
		slog.Error("Failed to start guard", "error", err)
		os.Exit(1)
	}

	slog.Info("honeywatch started", "config", cfgPath, "port", cfg.Server.Port)

	sig := <-sigChan
	slog.Info("Received signal, shutting down...", "signal", sig)

	// A mitigation in flight may wait up to deadline_window + confirm_grace.
	grace := cfg.Mitigation.DeadlineWindow + cfg.Mitigation.ConfirmGrace + 15*time.Second
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), grace)
	defer shutdownCancel()

	go func() {
		<-sigChan
		slog.Warn("Second signal, exiting without waiting")
		os.Exit(1)
	}()

	if err := app.Stop(shutdownCtx); err != nil {
		slog.Error("Error during shutdown", "error", err)
		os.Exit(1)
	}
}
