package config

import (
	"context"
	"os"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestWatcherReloadsOnWrite(t *testing.T) {
	path := writeConfig(t, "configVersion: 1\n")

	var mu sync.Mutex
	var got []*Config
	w, err := NewWatcher(path, func(cfg *Config) error {
		mu.Lock()
		defer mu.Unlock()
		got = append(got, cfg)
		return nil
	}, WithDebounce(10*time.Millisecond))
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	require.NoError(t, w.Start(ctx))

	require.NoError(t, os.WriteFile(path, []byte(sampleYAML), 0o600))

	assert.Eventually(t, func() bool {
		mu.Lock()
		defer mu.Unlock()
		return len(got) > 0 && len(got[len(got)-1].Redirect.URLRewriteRules) == 2
	}, 5*time.Second, 20*time.Millisecond)

	cancel()
	w.Wait()
	require.NotNil(t, w.applied())
}

func TestWatcherKeepsPreviousOnInvalidConfig(t *testing.T) {
	path := writeConfig(t, sampleYAML)

	var applied int
	var errs []error
	w, err := NewWatcher(path, func(cfg *Config) error {
		applied++
		return nil
	}, WithErrorFunc(func(err error) { errs = append(errs, err) }))
	require.NoError(t, err)
	t.Cleanup(func() { _ = w.Close() })

	w.Reload()
	require.Equal(t, 1, applied)
	previous := w.applied()

	require.NoError(t, os.WriteFile(path, []byte("configVersion: 3\n"), 0o600))
	w.Reload()

	assert.Equal(t, 1, applied)
	assert.Len(t, errs, 1)
	assert.Same(t, previous, w.applied())
}

func TestNewWatcherRequiresCallback(t *testing.T) {
	_, err := NewWatcher("config.yaml", nil)
	assert.Error(t, err)
}
