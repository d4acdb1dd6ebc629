package drawers

import (
	"context"
	"fmt"
	"html/template"
	"log/slog"
	"strings"
	"sync"
	"time"

	"nami/config"
	"nami/director"
	"nami/markup"
)

const (
	THREAD_STATS = "thread-stats"
	PROMPT_DEBUG = "prompt-debug"
	TEST_RUNNER  = "test-runner"
)

// Director is the subset of the director's http api the drawers read.
type Director interface {
	ThreadStats(ctx context.Context) (*director.ThreadStats, error)
	PromptDebug(ctx context.Context) (*director.PromptDebug, error)
	PromptSize(ctx context.Context) (*director.PromptSize, error)
	RunTests(ctx context.Context) (*director.TestReport, error)
}

var bodies = template.Must(template.New("").Funcs(template.FuncMap{
	"markdown":    markup.Markdown,
	"resultClass": resultClass,
}).ParseFS(embedded, "templates/*.gohtml"))

func resultClass(r director.TestResult) string {
	switch {
	case strings.Contains(r.Result, "PASS"):
		return "pass"
	case strings.Contains(r.Result, "FAIL"):
		return "fail"
	default:
		return "warn"
	}
}

// Placeholder is the empty slot a closed drawer morphs back into.
func Placeholder(id string) string {
	return fmt.Sprintf(`<section id="drawer-%s" class="drawer-slot"></section>`, template.HTMLEscapeString(id))
}

// RegisterDefaults registers the thread stats, prompt debug and test runner drawers.
func RegisterDefaults(registry *Registry, loader *FragmentLoader, client Director, cfg config.DrawersConfig, logger *slog.Logger) {
	registry.Register(THREAD_STATS, func() Lifecycle {
		return newPoller(THREAD_STATS, cfg.ThreadStatsInterval, loader, logger, func(ctx context.Context) (string, error) {
			stats, err := client.ThreadStats(ctx)
			if err != nil {
				return "", err
			}
			return render("thread-stats.body", stats)
		})
	})

	registry.Register(PROMPT_DEBUG, func() Lifecycle {
		return newPoller(PROMPT_DEBUG, cfg.PromptDebugInterval, loader, logger, func(ctx context.Context) (string, error) {
			debug, err := client.PromptDebug(ctx)
			if err != nil {
				return "", err
			}
			// Size is a nice-to-have, the context itself is what the operator is looking for.
			size, err := client.PromptSize(ctx)
			if err != nil {
				logger.Warn("prompt size", "error", err)
				size = nil
			}
			return render("prompt-debug.body", struct {
				Debug *director.PromptDebug
				Size  *director.PromptSize
			}{debug, size})
		})
	})

	registry.Register(TEST_RUNNER, func() Lifecycle {
		return newPoller(TEST_RUNNER, 0, loader, logger, func(ctx context.Context) (string, error) {
			report, err := client.RunTests(ctx)
			if err != nil {
				return "", err
			}
			return render("test-runner.body", report)
		})
	})
}

func render(name string, data any) (string, error) {
	var sb strings.Builder
	if err := bodies.ExecuteTemplate(&sb, name, data); err != nil {
		return "", fmt.Errorf("render %s: %w", name, err)
	}
	return sb.String(), nil
}

func renderError(id string, err error) string {
	html, renderErr := render("drawer.error", struct {
		ID  string
		Err string
	}{id, err.Error()})
	if renderErr != nil {
		return ""
	}
	return html
}

// poller pushes the drawer shell once, then a freshly rendered body on every interval. An interval of zero renders a
// single time.
type poller struct {
	id       string
	interval time.Duration
	loader   *FragmentLoader
	logger   *slog.Logger
	body     func(ctx context.Context) (string, error)

	mu     sync.Mutex
	cancel context.CancelFunc
	done   chan struct{}
}

func newPoller(id string, interval time.Duration, loader *FragmentLoader, logger *slog.Logger, body func(ctx context.Context) (string, error)) *poller {
	return &poller{
		id:       id,
		interval: interval,
		loader:   loader,
		logger:   logger,
		body:     body,
	}
}

func (p *poller) Start(ctx context.Context, sink Sink) error {
	shell, err := p.loader.Load(p.id)
	if err != nil {
		return err
	}

	p.mu.Lock()
	defer p.mu.Unlock()
	if p.cancel != nil {
		return nil
	}
	ctx, p.cancel = context.WithCancel(ctx)
	p.done = make(chan struct{})

	sink(shell)
	go p.loop(ctx, sink)
	return nil
}

func (p *poller) Stop() {
	p.mu.Lock()
	cancel, done := p.cancel, p.done
	p.mu.Unlock()
	if cancel == nil {
		return
	}
	cancel()
	<-done
}

func (p *poller) loop(ctx context.Context, sink Sink) {
	defer close(p.done)

	p.refresh(ctx, sink)
	if p.interval <= 0 {
		return
	}

	ticker := time.NewTicker(p.interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			p.refresh(ctx, sink)
		}
	}
}

func (p *poller) refresh(ctx context.Context, sink Sink) {
	html, err := p.body(ctx)
	if ctx.Err() != nil {
		return
	}
	if err != nil {
		p.logger.Warn("drawer refresh", "drawer", p.id, "error", err)
		html = renderError(p.id, err)
	}
	if html != "" {
		sink(html)
	}
}
