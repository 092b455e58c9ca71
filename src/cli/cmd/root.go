package cmd

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/spf13/cobra"

	_ "github.com/sofmeright/packwright/src/build/engines"
	"github.com/sofmeright/packwright/src/config"
	"github.com/sofmeright/packwright/src/ctxlog"
)

var (
	cfgFile string
	envFile string
	verbose bool
	cfg     *config.Config
)

var rootCmd = &cobra.Command{
	Use:   "packwright",
	Short: "Build standalone executables from Python projects",
	Long: `packwright validates Python sources and projects, analyzes their
dependencies, and drives a packaging backend (PyInstaller or Nuitka) to
produce standalone executables, one at a time or in parallel batches.`,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		// Skip config loading for commands that don't need it.
		if cmd.Name() == "version" {
			return nil
		}
		loaded, warnings, err := loadConfig(cfgFile, envFile, os.Getenv)
		if err != nil {
			return err
		}
		cfg = loaded
		logger := newLogger(cmd.ErrOrStderr(), cfg.Log, verbose)
		slog.SetDefault(logger)
		for _, w := range warnings {
			logger.Warn("config", "problem", w)
		}
		return nil
	},
	SilenceUsage:  true,
	SilenceErrors: true,
}

func init() {
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default: "+config.DefaultConfigFile+")")
	rootCmd.PersistentFlags().StringVar(&envFile, "env-file", ".env", "dotenv file with "+config.EnvPrefix+"* overrides")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "verbose output")
}

// Execute runs the root command. SIGINT and SIGTERM cancel the context,
// which kills any running backend.
func Execute() error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	if err := rootCmd.ExecuteContext(ctx); err != nil {
		fmt.Fprintln(os.Stderr, err)
		return err
	}
	return nil
}

// loadConfig layers file, dotenv/environment and the settings store, then
// normalizes the result.
func loadConfig(path, dotenv string, getenv func(string) string) (*config.Config, []string, error) {
	if err := config.LoadEnv(dotenv); err != nil {
		return nil, nil, fmt.Errorf("loading env file: %w", err)
	}
	raw, err := config.Load(path)
	if err != nil {
		return nil, nil, fmt.Errorf("loading config: %w", err)
	}
	warnings := raw.ApplyEnv(getenv)
	if raw.SettingsFile != "" {
		s, err := config.ReadSettings(raw.SettingsFile)
		if err != nil {
			warnings = append(warnings, fmt.Sprintf("settings_file: %v", err))
		} else {
			raw.ApplySettings(s)
		}
	}
	validated, more := config.Validate(*raw)
	return &validated, append(warnings, more...), nil
}

func newLogger(w io.Writer, lc config.LogConfig, verbose bool) *slog.Logger {
	opts := &slog.HandlerOptions{Level: parseLevel(lc.Level)}
	if verbose {
		opts.Level = slog.LevelDebug
	}
	if lc.Format == "json" {
		return slog.New(slog.NewJSONHandler(w, opts))
	}
	return slog.New(slog.NewTextHandler(w, opts))
}

func parseLevel(s string) slog.Level {
	switch strings.ToLower(s) {
	case "debug":
		return slog.LevelDebug
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

// commandContext returns the command's context with the default logger attached.
func commandContext(cmd *cobra.Command) context.Context {
	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}
	return ctxlog.WithLogger(ctx, slog.Default())
}
