package config

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/andresmejia3/moodring/internal/classify"
	"github.com/joho/godotenv"
	"github.com/sirupsen/logrus"
	"github.com/spf13/viper"
)

// EnvPrefix namespaces environment overrides, e.g. MOODRING_CLASSIFIER_URL.
const EnvPrefix = "MOODRING"

// Config is the resolved runtime configuration shared by all commands.
type Config struct {
	DBURL      string
	LogLevel   logrus.Level
	Classifier classify.Config
	// Cascade is the Haar cascade XML for the presence command; empty means search
	// the usual OpenCV install locations.
	Cascade string
}

// New returns a viper instance wired for MOODRING_* env vars, with dashes in
// keys mapped to underscores.
func New() *viper.Viper {
	v := viper.New()
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	v.AutomaticEnv()
	v.SetDefault("log-level", "info")
	v.SetDefault("classifier", "deepface")
	v.SetDefault("worker-timeout", "60s")
	return v
}

// LoadDotEnv reads a .env file from the working directory if one exists.
func LoadDotEnv() error {
	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("failed to read .env: %w", err)
	}
	return nil
}

// ReadFile merges a YAML/TOML/JSON config file into v. An empty path is a no-op.
func ReadFile(v *viper.Viper, path string) error {
	if path == "" {
		return nil
	}
	v.SetConfigFile(path)
	if err := v.ReadInConfig(); err != nil {
		return fmt.Errorf("failed to read config %s: %w", path, err)
	}
	return nil
}

// Load resolves the configuration from flags, environment and config file.
func Load(v *viper.Viper) (Config, error) {
	level, err := logrus.ParseLevel(v.GetString("log-level"))
	if err != nil {
		return Config{}, fmt.Errorf("invalid log level: %w", err)
	}

	timeout, err := time.ParseDuration(v.GetString("worker-timeout"))
	if err != nil {
		return Config{}, fmt.Errorf("invalid worker-timeout format (use '30s', '500ms'): %w", err)
	}
	if timeout < 0 {
		return Config{}, fmt.Errorf("worker-timeout must not be negative, got %s", timeout)
	}

	cfg := Config{
		DBURL:    ResolveDBURL(v.GetString("db")),
		LogLevel: level,
		Cascade:  v.GetString("cascade"),
		Classifier: classify.Config{
			Kind:        v.GetString("classifier"),
			URL:         v.GetString("classifier-url"),
			Script:      v.GetString("worker-script"),
			Python:      v.GetString("python"),
			ReadTimeout: timeout,
			Debug:       v.GetBool("debug"),
		},
	}
	return cfg, nil
}

// ResolveDBURL returns the explicit connection string, or builds one from the
// POSTGRES_* environment. Session history is disabled when both are absent.
func ResolveDBURL(explicit string) string {
	if explicit != "" {
		return explicit
	}
	host := os.Getenv("POSTGRES_HOST")
	if host == "" {
		return ""
	}
	user := os.Getenv("POSTGRES_USER")
	pass := os.Getenv("POSTGRES_PASSWORD")
	name := os.Getenv("POSTGRES_DB")
	port := os.Getenv("POSTGRES_PORT")
	if port == "" {
		port = "5432"
	}
	return fmt.Sprintf("postgres://%s:%s@%s:%s/%s", user, pass, host, port, name)
}
