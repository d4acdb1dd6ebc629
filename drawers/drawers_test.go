package drawers

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"nami/config"
	"nami/director"
	"nami/logs"
)

// collector is a Sink that remembers everything pushed to it.
type collector struct {
	mu    sync.Mutex
	items []string
}

func (c *collector) sink(html string) {
	c.mu.Lock()
	c.items = append(c.items, html)
	c.mu.Unlock()
}

func (c *collector) all() []string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]string(nil), c.items...)
}

func (c *collector) contains(s string) func() bool {
	return func() bool {
		for _, item := range c.all() {
			if strings.Contains(item, s) {
				return true
			}
		}
		return false
	}
}

type countingDrawer struct {
	starts, stops int
}

func (d *countingDrawer) Start(context.Context, Sink) error { d.starts++; return nil }
func (d *countingDrawer) Stop()                             { d.stops++ }

func TestRegistry_OpenCloseIdempotent(t *testing.T) {
	registry := NewRegistry(logs.Discard())
	var built []*countingDrawer
	registry.Register("x", func() Lifecycle {
		d := &countingDrawer{}
		built = append(built, d)
		return d
	})

	opened, err := registry.Open(context.Background(), "c1", "x", func(string) {})
	require.NoError(t, err)
	assert.True(t, opened)

	opened, err = registry.Open(context.Background(), "c1", "x", func(string) {})
	require.NoError(t, err)
	assert.False(t, opened, "second open is a no-op")
	require.Len(t, built, 1)
	assert.Equal(t, 1, built[0].starts)
	assert.True(t, registry.IsOpen("c1", "x"))
	assert.False(t, registry.IsOpen("c2", "x"))

	closed, err := registry.Close("c1", "x")
	require.NoError(t, err)
	assert.True(t, closed)
	assert.Equal(t, 1, built[0].stops)

	closed, err = registry.Close("c1", "x")
	require.NoError(t, err)
	assert.False(t, closed, "closing a closed drawer is a no-op")
	assert.Equal(t, 1, built[0].stops)
}

func TestRegistry_UnknownDrawer(t *testing.T) {
	registry := NewRegistry(logs.Discard())
	_, err := registry.Open(context.Background(), "c1", "nope", func(string) {})
	assert.ErrorIs(t, err, ErrUnknownDrawer)
	_, err = registry.Close("c1", "nope")
	assert.ErrorIs(t, err, ErrUnknownDrawer)
}

func TestRegistry_CloseAllOnlyTouchesThatClient(t *testing.T) {
	registry := NewRegistry(logs.Discard())
	drawers := map[string]*countingDrawer{}
	for _, id := range []string{"a", "b"} {
		registry.Register(id, func() Lifecycle { return &countingDrawer{} })
	}
	registry.Register("tracked", func() Lifecycle {
		d := &countingDrawer{}
		drawers["tracked"] = d
		return d
	})

	for _, id := range []string{"a", "b"} {
		_, err := registry.Open(context.Background(), "c1", id, func(string) {})
		require.NoError(t, err)
	}
	_, err := registry.Open(context.Background(), "c2", "tracked", func(string) {})
	require.NoError(t, err)

	assert.Equal(t, []string{"a", "b"}, registry.OpenIDs("c1"))
	assert.Equal(t, 2, registry.CloseAll("c1"))
	assert.Empty(t, registry.OpenIDs("c1"))
	assert.Equal(t, 0, registry.CloseAll("c1"))
	assert.True(t, registry.IsOpen("c2", "tracked"))
	assert.Equal(t, 0, drawers["tracked"].stops)
	assert.Equal(t, []string{"a", "b", "tracked"}, registry.IDs())
}

func TestFragmentLoader_Embedded(t *testing.T) {
	loader := NewFragmentLoader("", logs.Discard())
	for _, id := range []string{THREAD_STATS, PROMPT_DEBUG, TEST_RUNNER} {
		fragment, err := loader.Load(id)
		require.NoError(t, err, id)
		assert.Contains(t, fragment, `id="drawer-`+id+`"`)
		assert.Contains(t, fragment, `id="drawer-`+id+`-body"`)
	}
	require.NoError(t, loader.Watch(context.Background()))

	_, err := loader.Load("missing")
	assert.Error(t, err)
	_, err = loader.Load("../secrets")
	assert.ErrorIs(t, err, ErrUnknownDrawer)
}

func TestFragmentLoader_DirSanitizesAndReloads(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "custom.html")
	require.NoError(t, os.WriteFile(path, []byte(`<section id="drawer-custom" onclick="x()"><script>bad()</script>v1</section>`), 0o644))

	loader := NewFragmentLoader(dir, logs.Discard())
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	require.NoError(t, loader.Watch(ctx))

	fragment, err := loader.Load("custom")
	require.NoError(t, err)
	assert.Contains(t, fragment, "v1")
	assert.NotContains(t, fragment, "onclick")
	assert.NotContains(t, fragment, "bad()")

	require.NoError(t, os.WriteFile(path, []byte(`<section id="drawer-custom">v2</section>`), 0o644))
	assert.Eventually(t, func() bool {
		fragment, err := loader.Load("custom")
		return err == nil && strings.Contains(fragment, "v2")
	}, 2*time.Second, 20*time.Millisecond)
}

type fakeDirector struct {
	mu        sync.Mutex
	statsErr  error
	testRuns  int
	sizeCalls int
}

func (f *fakeDirector) ThreadStats(context.Context) (*director.ThreadStats, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.statsErr != nil {
		return nil, f.statsErr
	}
	current := "Pending: User asked 'why?'"
	return &director.ThreadStats{TotalThreads: 4, ActiveThreads: 1, CurrentThread: &current}, nil
}

func (f *fakeDirector) PromptDebug(context.Context) (*director.PromptDebug, error) {
	return &director.PromptDebug{FormattedContext: "**Scene** is <b>combat</b>", DetailMode: "minimal", Scene: "COMBAT", MemoryCount: 3}, nil
}

func (f *fakeDirector) PromptSize(context.Context) (*director.PromptSize, error) {
	f.mu.Lock()
	f.sizeCalls++
	f.mu.Unlock()
	return &director.PromptSize{CharCount: 120, EstimatedTokens: 30}, nil
}

func (f *fakeDirector) RunTests(context.Context) (*director.TestReport, error) {
	f.mu.Lock()
	f.testRuns++
	f.mu.Unlock()
	return &director.TestReport{
		Total: 2, Passed: 1, Warned: 1, PassRate: 50,
		Results: []director.TestResult{
			{Name: "Thread creation", Result: "✅ PASS"},
			{Name: "Directive visibility", Result: "⚠️ WARN"},
		},
	}, nil
}

func newDefaults(client Director) *Registry {
	registry := NewRegistry(logs.Discard())
	cfg := config.DrawersConfig{ThreadStatsInterval: 10 * time.Millisecond, PromptDebugInterval: 10 * time.Millisecond}
	RegisterDefaults(registry, NewFragmentLoader("", logs.Discard()), client, cfg, logs.Discard())
	return registry
}

func TestThreadStatsDrawer_PollsUntilClosed(t *testing.T) {
	client := &fakeDirector{}
	registry := newDefaults(client)
	out := &collector{}

	_, err := registry.Open(context.Background(), "c1", THREAD_STATS, out.sink)
	require.NoError(t, err)
	assert.Eventually(t, out.contains("Pending: User asked"), time.Second, 5*time.Millisecond)
	assert.Contains(t, out.all()[0], `id="drawer-thread-stats"`, "shell is pushed first")

	client.mu.Lock()
	client.statsErr = errors.New("director down")
	client.mu.Unlock()
	assert.Eventually(t, out.contains("director down"), time.Second, 5*time.Millisecond)

	_, err = registry.Close("c1", THREAD_STATS)
	require.NoError(t, err)
	n := len(out.all())
	time.Sleep(50 * time.Millisecond)
	assert.Len(t, out.all(), n, "no pushes after close")
}

func TestPromptDebugDrawer_RendersMarkdown(t *testing.T) {
	client := &fakeDirector{}
	registry := newDefaults(client)
	out := &collector{}

	_, err := registry.Open(context.Background(), "c1", PROMPT_DEBUG, out.sink)
	require.NoError(t, err)
	defer registry.CloseAll("c1")

	assert.Eventually(t, out.contains("<strong>Scene</strong>"), time.Second, 5*time.Millisecond)
	assert.True(t, out.contains("COMBAT")())
	assert.True(t, out.contains("<dd>30</dd>")())
}

func TestTestRunnerDrawer_RunsOnce(t *testing.T) {
	client := &fakeDirector{}
	registry := newDefaults(client)
	out := &collector{}

	_, err := registry.Open(context.Background(), "c1", TEST_RUNNER, out.sink)
	require.NoError(t, err)
	assert.Eventually(t, out.contains("1/2 passed"), time.Second, 5*time.Millisecond)
	assert.True(t, out.contains(`test-result pass`)())
	assert.True(t, out.contains(`test-result warn`)())

	time.Sleep(30 * time.Millisecond)
	client.mu.Lock()
	assert.Equal(t, 1, client.testRuns)
	client.mu.Unlock()
	_, err = registry.Close("c1", TEST_RUNNER)
	require.NoError(t, err)
}

func TestPlaceholder(t *testing.T) {
	assert.Equal(t, `<section id="drawer-thread-stats" class="drawer-slot"></section>`, Placeholder(THREAD_STATS))
}
