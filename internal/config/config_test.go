package config

import (
	"context"
	"os"
	"path/filepath"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"
)

func TestLoadDefaultsWhenFileMissing(t *testing.T) {
	cfg, err := Load(filepath.Join(t.TempDir(), "absent.yaml"))
	require.NoError(t, err)
	assert.Equal(t, ":8080", cfg.Server.Addr)
	assert.Equal(t, "gemini-2.0-flash", cfg.LLM.Model)
	assert.Equal(t, 5, cfg.Retrieval.Limit)
}

func TestLoadFileOverridesDefaults(t *testing.T) {
	path := filepath.Join(t.TempDir(), "tutord.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
server:
  addr: ":9999"
llm:
  model: gemini-2.0-pro
  timeout: 45s
retrieval:
  syllabus: ordinary
logging:
  level: debug
`), 0644))

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, ":9999", cfg.Server.Addr)
	assert.Equal(t, "gemini-2.0-pro", cfg.LLM.Model)
	assert.Equal(t, 45*time.Second, cfg.LLM.Timeout)
	assert.Equal(t, "ordinary", cfg.Retrieval.Syllabus)
	assert.Equal(t, "debug", cfg.Logging.Level)
	// Untouched sections keep their defaults.
	assert.Equal(t, "data/tutor.db", cfg.Database.Path)
}

func TestLoadMalformedFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "tutord.yaml")
	require.NoError(t, os.WriteFile(path, []byte("server: [not a map"), 0644))

	_, err := Load(path)
	assert.Error(t, err)
}

func TestEnvOverridesWinOverFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "tutord.yaml")
	require.NoError(t, os.WriteFile(path, []byte("llm:\n  model: from-file\n"), 0644))

	t.Setenv("AITUTOR_LLM_MODEL", "from-env")
	t.Setenv("GEMINI_API_KEY", "sekrit")
	t.Setenv("AITUTOR_LOG_LEVEL", "warn")

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "from-env", cfg.LLM.Model)
	assert.Equal(t, "sekrit", cfg.LLM.APIKey)
	assert.Equal(t, "warn", cfg.Logging.Level)
}

func TestWatcherReloadsOnWrite(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "tutord.yaml")
	require.NoError(t, os.WriteFile(path, []byte("llm:\n  model: before\n"), 0644))

	var reloaded atomic.Value
	w := NewWatcher(path, zaptest.NewLogger(t), func(cfg Config) {
		reloaded.Store(cfg.LLM.Model)
	})

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	done := make(chan error, 1)
	go func() { done <- w.Run(ctx) }()

	// Give the watcher a moment to establish the directory watch.
	time.Sleep(100 * time.Millisecond)
	require.NoError(t, os.WriteFile(path, []byte("llm:\n  model: after\n"), 0644))

	require.Eventually(t, func() bool {
		v, _ := reloaded.Load().(string)
		return v == "after"
	}, 3*time.Second, 20*time.Millisecond)

	cancel()
	assert.NoError(t, <-done)
}

func TestWatcherIgnoresOtherFiles(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "tutord.yaml")
	require.NoError(t, os.WriteFile(path, []byte("llm:\n  model: stable\n"), 0644))

	var calls atomic.Int32
	w := NewWatcher(path, zaptest.NewLogger(t), func(Config) { calls.Add(1) })

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	done := make(chan error, 1)
	go func() { done <- w.Run(ctx) }()

	time.Sleep(100 * time.Millisecond)
	require.NoError(t, os.WriteFile(filepath.Join(dir, "unrelated.txt"), []byte("x"), 0644))
	time.Sleep(200 * time.Millisecond)

	assert.Zero(t, calls.Load())
	cancel()
	assert.NoError(t, <-done)
}
