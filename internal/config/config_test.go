package config

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"memory-loop/internal/logs"
	"memory-loop/internal/store"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	dir := t.TempDir()
	p := filepath.Join(dir, "config.yaml")
	require.NoError(t, os.WriteFile(p, []byte(content), 0o600))
	return p
}

func TestLoad_Defaults(t *testing.T) {
	p := writeConfig(t, "log:\n  level: debug\n")

	cfg, err := Load(p)
	require.NoError(t, err)

	assert.Equal(t, store.DefaultTTL, cfg.Store.TTL)
	assert.Equal(t, store.DefaultCapacity, cfg.Store.Capacity)
	assert.Equal(t, DefaultSnapshotPath, cfg.Snapshot.Path)
	assert.Equal(t, DefaultAutosaveInterval, cfg.Snapshot.AutosaveInterval)
	assert.Equal(t, time.Duration(0), cfg.Sweep.Interval)
	assert.Equal(t, DefaultLogBuffer, cfg.Log.Buffer)
	assert.Equal(t, logs.DEBUG, cfg.Log.ParsedLevel())
}

func TestLoad_Full(t *testing.T) {
	p := writeConfig(t, `store:
  ttl: 10m
  capacity: 500
snapshot:
  path: /var/lib/memloop/state.json
  autosave_interval: 30s
sweep:
  interval: 1m
log:
  level: WARN
  buffer: 50
`)
	cfg, err := Load(p)
	require.NoError(t, err)

	assert.Equal(t, 10*time.Minute, cfg.Store.TTL)
	assert.Equal(t, 500, cfg.Store.Capacity)
	assert.Equal(t, "/var/lib/memloop/state.json", cfg.Snapshot.Path)
	assert.Equal(t, 30*time.Second, cfg.Snapshot.AutosaveInterval)
	assert.Equal(t, time.Minute, cfg.Sweep.Interval)
	assert.Equal(t, logs.WARN, cfg.Log.ParsedLevel())
	assert.Equal(t, 50, cfg.Log.Buffer)
}

func TestLoad_ZeroIntervalsDisable(t *testing.T) {
	p := writeConfig(t, `snapshot:
  autosave_interval: 0s
sweep:
  interval: 0s
`)
	cfg, err := Load(p)
	require.NoError(t, err)

	assert.Zero(t, cfg.Snapshot.AutosaveInterval)
	assert.Zero(t, cfg.Sweep.Interval)
}

func TestLoad_Validation(t *testing.T) {
	cases := map[string]struct {
		yaml string
		want string
	}{
		"zero capacity":     {"store:\n  capacity: 0\n", "store.capacity"},
		"negative ttl":      {"store:\n  ttl: -1s\n", "store.ttl"},
		"empty path":        {"snapshot:\n  path: \"\"\n", "snapshot.path"},
		"negative autosave": {"snapshot:\n  autosave_interval: -5s\n", "snapshot.autosave_interval"},
		"negative sweep":    {"sweep:\n  interval: -1m\n", "sweep.interval"},
		"unknown level":     {"log:\n  level: chatty\n", "log.level"},
		"zero buffer":       {"log:\n  buffer: 0\n", "log.buffer"},
	}

	for name, tc := range cases {
		t.Run(name, func(t *testing.T) {
			_, err := Load(writeConfig(t, tc.yaml))
			require.Error(t, err)
			assert.Contains(t, err.Error(), tc.want)
			assert.True(t, strings.HasPrefix(err.Error(), "config:"))
		})
	}
}

func TestLoad_InvalidYAML(t *testing.T) {
	_, err := Load(writeConfig(t, "store: [unterminated\n"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "parse yaml")
}

func TestLoad_MissingFile(t *testing.T) {
	missing := filepath.Join(t.TempDir(), "nope.yaml")

	_, err := Load(missing)
	require.Error(t, err)

	cfg, err := LoadOrDefault(missing)
	require.NoError(t, err)
	assert.Equal(t, Default(), cfg)
}

func TestWatch_ReloadsOnWrite(t *testing.T) {
	p := writeConfig(t, "store:\n  capacity: 10\n")
	logger := logs.NewLogger(50, logs.DEBUG)

	var (
		mu   sync.Mutex
		seen []*Config
	)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	done := make(chan error, 1)
	go func() {
		done <- Watch(ctx, p, logger, func(cfg *Config) {
			mu.Lock()
			seen = append(seen, cfg)
			mu.Unlock()
		})
	}()

	// Wait until the watcher is registered before writing.
	require.Eventually(t, func() bool {
		for _, e := range logger.GetLast(50) {
			if e.Message == "config: watching for changes" {
				return true
			}
		}
		return false
	}, time.Second, 5*time.Millisecond)

	// An invalid write is ignored.
	require.NoError(t, os.WriteFile(p, []byte("store:\n  capacity: 0\n"), 0o600))
	require.NoError(t, os.WriteFile(p, []byte("store:\n  capacity: 20\n"), 0o600))

	assert.Eventually(t, func() bool {
		mu.Lock()
		defer mu.Unlock()
		for _, cfg := range seen {
			if cfg.Store.Capacity == 20 {
				return true
			}
		}
		return false
	}, 2*time.Second, 10*time.Millisecond)

	mu.Lock()
	for _, cfg := range seen {
		assert.NotEqual(t, 0, cfg.Store.Capacity, "invalid config must never be delivered")
	}
	mu.Unlock()

	cancel()
	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(time.Second):
		t.Fatal("Watch did not return after cancel")
	}
}

func TestWatch_ReloadsAfterRenameSave(t *testing.T) {
	p := writeConfig(t, "store:\n  capacity: 10\n")
	logger := logs.NewLogger(50, logs.DEBUG)

	var (
		mu         sync.Mutex
		capacities []int
	)
	sawCapacity := func(want int) func() bool {
		return func() bool {
			mu.Lock()
			defer mu.Unlock()
			for _, c := range capacities {
				if c == want {
					return true
				}
			}
			return false
		}
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	done := make(chan error, 1)
	go func() {
		done <- Watch(ctx, p, logger, func(cfg *Config) {
			mu.Lock()
			capacities = append(capacities, cfg.Store.Capacity)
			mu.Unlock()
		})
	}()

	require.Eventually(t, func() bool {
		for _, e := range logger.GetLast(50) {
			if e.Message == "config: watching for changes" {
				return true
			}
		}
		return false
	}, time.Second, 5*time.Millisecond)

	// Editor-style save: write a sibling temp file and rename it over p.
	tmp := filepath.Join(filepath.Dir(p), ".config.yaml.swp")
	require.NoError(t, os.WriteFile(tmp, []byte("store:\n  capacity: 30\n"), 0o600))
	require.NoError(t, os.Rename(tmp, p))

	assert.Eventually(t, sawCapacity(30), 2*time.Second, 10*time.Millisecond)

	// The watch survives the replaced inode.
	require.NoError(t, os.WriteFile(p, []byte("store:\n  capacity: 40\n"), 0o600))

	assert.Eventually(t, sawCapacity(40), 2*time.Second, 10*time.Millisecond)

	// Unrelated files in the same directory are ignored.
	require.NoError(t, os.WriteFile(filepath.Join(filepath.Dir(p), "other.yaml"), []byte("store:\n  capacity: 50\n"), 0o600))
	time.Sleep(100 * time.Millisecond)
	assert.False(t, sawCapacity(50)())

	cancel()
	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(time.Second):
		t.Fatal("Watch did not return after cancel")
	}
}

func TestWatch_MissingFile(t *testing.T) {
	err := Watch(context.Background(), filepath.Join(t.TempDir(), "nope.yaml"), logs.NewLogger(10, logs.DEBUG), func(*Config) {})
	assert.Error(t, err)
}
