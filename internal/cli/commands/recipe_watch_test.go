package commands

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/leapstack-labs/leapmix/internal/cli/output"
	logtest "github.com/leapstack-labs/leapmix/internal/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// lockedBuffer is written by the watch goroutine and read by the test.
type lockedBuffer struct {
	mu  sync.Mutex
	buf bytes.Buffer
}

func (b *lockedBuffer) Write(p []byte) (int, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.Write(p)
}

func (b *lockedBuffer) String() string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.String()
}

func TestWatchRecipes_ReloadsOnChange(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "recipes")
	require.NoError(t, os.MkdirAll(dir, 0o755))
	file := filepath.Join(dir, "search.star")
	require.NoError(t, os.WriteFile(file, []byte(`pipeline(name = "search_cost", source = "cost_micros", aggregation = "SUM", steps = [divide_by(1000000)])
`), 0o644))

	cfg := testConfig(t, output.ModeJSON)
	cfg.Recipes = dir
	stdout, stderr := &lockedBuffer{}, &lockedBuffer{}
	c := &CommandContext{
		Cfg:      cfg,
		Logger:   logtest.NewTestLogger(t),
		Renderer: output.NewRendererWithTTY(stdout, stderr, false, output.ModeJSON),
	}

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- watchRecipes(ctx, c, []string{dir}) }()

	require.Eventually(t, func() bool {
		return strings.Contains(stdout.String(), "Watching for changes")
	}, 5*time.Second, 10*time.Millisecond)
	assert.Contains(t, stdout.String(), "search_cost")
	assert.NotContains(t, stdout.String(), "social_spend")

	require.NoError(t, os.WriteFile(file, []byte(`pipeline(name = "social_spend", source = "spend", aggregation = "SUM", steps = [round(2)])
`), 0o644))

	assert.Eventually(t, func() bool {
		return strings.Contains(stdout.String(), "social_spend")
	}, 5*time.Second, 20*time.Millisecond)

	cancel()
	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("watchRecipes did not stop after cancel")
	}
}
