package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestResolveDBURL(t *testing.T) {
	t.Setenv("POSTGRES_HOST", "")
	assert.Equal(t, "", ResolveDBURL(""), "history is disabled without a database")
	assert.Equal(t, "postgres://x", ResolveDBURL("postgres://x"))

	t.Setenv("POSTGRES_HOST", "db")
	t.Setenv("POSTGRES_USER", "mood")
	t.Setenv("POSTGRES_PASSWORD", "secret")
	t.Setenv("POSTGRES_DB", "moodring")
	t.Setenv("POSTGRES_PORT", "")
	assert.Equal(t, "postgres://mood:secret@db:5432/moodring", ResolveDBURL(""))

	t.Setenv("POSTGRES_PORT", "6543")
	assert.Equal(t, "postgres://mood:secret@db:6543/moodring", ResolveDBURL(""))
}

func TestLoadDefaults(t *testing.T) {
	t.Setenv("POSTGRES_HOST", "")
	cfg, err := Load(New())
	require.NoError(t, err)
	assert.Equal(t, logrus.InfoLevel, cfg.LogLevel)
	assert.Equal(t, "deepface", cfg.Classifier.Kind)
	assert.Equal(t, 60*time.Second, cfg.Classifier.ReadTimeout)
	assert.Empty(t, cfg.Cascade)
	assert.Empty(t, cfg.DBURL)
}

func TestLoadEnvOverrides(t *testing.T) {
	t.Setenv("MOODRING_CLASSIFIER", "http")
	t.Setenv("MOODRING_CLASSIFIER_URL", "http://fer:5005")
	t.Setenv("MOODRING_WORKER_TIMEOUT", "5s")
	t.Setenv("MOODRING_LOG_LEVEL", "debug")
	t.Setenv("MOODRING_CASCADE", "/opt/cv/haarcascade_frontalface_default.xml")

	cfg, err := Load(New())
	require.NoError(t, err)
	assert.Equal(t, "http", cfg.Classifier.Kind)
	assert.Equal(t, "http://fer:5005", cfg.Classifier.URL)
	assert.Equal(t, 5*time.Second, cfg.Classifier.ReadTimeout)
	assert.Equal(t, "/opt/cv/haarcascade_frontalface_default.xml", cfg.Cascade)
	assert.Equal(t, logrus.DebugLevel, cfg.LogLevel)
}

func TestLoadInvalid(t *testing.T) {
	tests := []struct {
		name string
		key  string
		val  string
	}{
		{"Bad log level", "log-level", "loud"},
		{"Bad timeout", "worker-timeout", "soon"},
		{"Negative timeout", "worker-timeout", "-1s"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			v := New()
			v.Set(tt.key, tt.val)
			_, err := Load(v)
			assert.Error(t, err)
		})
	}
}

func TestReadFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "moodring.yaml")
	require.NoError(t, os.WriteFile(path, []byte("classifier: http\nclassifier-url: http://localhost:5005\n"), 0644))

	v := New()
	require.NoError(t, ReadFile(v, path))
	require.NoError(t, ReadFile(v, ""))

	cfg, err := Load(v)
	require.NoError(t, err)
	assert.Equal(t, "http", cfg.Classifier.Kind)
	assert.Equal(t, "http://localhost:5005", cfg.Classifier.URL)

	assert.Error(t, ReadFile(New(), filepath.Join(t.TempDir(), "missing.yaml")))
}
