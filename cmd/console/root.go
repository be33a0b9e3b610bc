package main

import (
	"encoding/json"
	"fmt"
	"io"
	"log/slog"

	"github.com/spf13/cobra"

	"bitor-console/internal/config"
	"bitor-console/internal/settings"
)

// app carries what every subcommand needs once flags are parsed
type app struct {
	cfgFile string
	cfg     *config.Config
	logger  *slog.Logger
}

func newRootCmd() *cobra.Command {
	a := &app{}

	rootCmd := &cobra.Command{
		Use:   "bitor-console",
		Short: "Bitor console backend",
		Long: `bitor-console serves the console's settings API and live settings stream,
forwards backend messages to Telegram, and manages stored preferences.`,
		SilenceUsage: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load(a.cfgFile)
			if err != nil {
				return fmt.Errorf("failed to load config: %w", err)
			}
			a.cfg = cfg
			a.logger = newLogger(cfg.Logging, cmd.ErrOrStderr())
			slog.SetDefault(a.logger)
			return nil
		},
	}

	rootCmd.PersistentFlags().StringVar(&a.cfgFile, "config", "", "config file (default: ./config.yaml, ./configs, /etc/bitor-console)")

	rootCmd.AddCommand(a.serveCmd())
	rootCmd.AddCommand(a.settingsCmd())
	rootCmd.AddCommand(a.scanCmd())
	rootCmd.AddCommand(a.messagesCmd())

	return rootCmd
}

func newLogger(cfg config.LoggingConfig, w io.Writer) *slog.Logger {
	var logLevel slog.Level
	switch cfg.Level {
	case "debug":
		logLevel = slog.LevelDebug
	case "warn":
		logLevel = slog.LevelWarn
	case "error":
		logLevel = slog.LevelError
	default:
		logLevel = slog.LevelInfo
	}

	opts := &slog.HandlerOptions{
		Level: logLevel,
	}

	var handler slog.Handler
	if cfg.JSONFormat {
		handler = slog.NewJSONHandler(w, opts)
	} else {
		handler = slog.NewTextHandler(w, opts)
	}
	return slog.New(handler)
}

func (a *app) openRepository() (*settings.SQLiteRepository, error) {
	repo, err := settings.NewSQLiteRepository(a.cfg.Database.Path, a.cfg.Settings.DefaultSettings())
	if err != nil {
		return nil, fmt.Errorf("failed to open settings database: %w", err)
	}
	return repo, nil
}

func printJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
