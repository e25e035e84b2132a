package cmd

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/andresmejia3/moodring/internal/config"
	"github.com/andresmejia3/moodring/internal/store"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
)

// Options holds shared configuration for the sampling commands
type Options struct {
	Frames  int
	Delay   string
	Device  string
	Decoder string
	Preview bool
	Format  string
	Backend string
	Cascade string
	MinFace int
}

var (
	// DB is the optional session history store; nil when no database is configured
	DB *store.Store
	// appConfig is resolved once per invocation in PersistentPreRunE
	appConfig config.Config
	// v merges flags, MOODRING_* env vars and the optional config file
	v          = config.New()
	configFile string
	logger     = logrus.New()
)

// Version is the application version.
const Version = "0.1.0"

// silentError carries an exit status for failures that were already reported
// on stdout (bare "unknown" or an {"error": ...} object).
type silentError struct{ error }

func (e silentError) Unwrap() error { return e.error }

var rootCmd = &cobra.Command{
	Use:           "moodring",
	Short:         "Webcam and video emotion sampler with majority-vote aggregation",
	Version:       Version, // This enables the --version flag
	SilenceErrors: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		if err := config.LoadDotEnv(); err != nil {
			return err
		}
		if err := config.ReadFile(v, configFile); err != nil {
			return err
		}
		var err error
		appConfig, err = config.Load(v)
		if err != nil {
			return err
		}

		logger.SetOutput(os.Stderr)
		logger.SetLevel(appConfig.LogLevel)

		if appConfig.DBURL == "" {
			return nil
		}
		// Use the command's context (which will be cancellable) for the connection
		DB, err = store.New(cmd.Context(), appConfig.DBURL)
		if err != nil {
			if cmd.Annotations["needs-db"] == "true" {
				return fmt.Errorf("failed to connect to database: %w", err)
			}
			logger.WithError(err).Warn("session history disabled: database unavailable")
			DB = nil
		}
		return nil
	},
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		if DB != nil {
			// Use Background here because the main context might be cancelled already (due to Ctrl+C)
			// and we still need to send the "Close" command to the DB.
			DB.Close(context.Background())
		}
	},
}

func Execute() {
	// Create a context that listens for Ctrl+C (SIGINT) or Kill (SIGTERM)
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// This tells Cobra not to print the version in the help text, which is cleaner.
	rootCmd.SetVersionTemplate(`{{printf "%s\n" .Version}}`)

	if err := rootCmd.ExecuteContext(ctx); err != nil {
		var silent silentError
		switch {
		case errors.As(err, &silent):
		case errors.Is(err, context.Canceled):
			fmt.Fprintln(os.Stderr, "🛑 Interrupted")
		default:
			fmt.Fprintln(os.Stderr, err)
		}
		stop()
		os.Exit(1)
	}
}

func init() {
	pf := rootCmd.PersistentFlags()
	pf.StringVar(&configFile, "config", "", "Optional config file (yaml, toml or json)")
	pf.String("db", "", "PostgreSQL connection string for session history (default: POSTGRES_* env, otherwise disabled)")
	pf.String("log-level", "info", "Log level: debug, info, warn, error")
	pf.String("classifier", "deepface", "Emotion classifier: deepface (Python worker) or http")
	pf.String("classifier-url", "", "Base URL of the HTTP emotion service")
	pf.String("worker-script", "", "Path to the DeepFace worker script (default: python/emotion_worker.py)")
	pf.String("python", "python3", "Python interpreter for the DeepFace worker")
	pf.String("worker-timeout", "60s", "Timeout for the classifier to analyze a single frame")
	pf.Bool("debug", false, "Enable worker debug output")

	// Flags take precedence over MOODRING_* env vars and the config file.
	if err := v.BindPFlags(pf); err != nil {
		panic(err)
	}
}
