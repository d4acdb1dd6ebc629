package web

import (
	"context"
	"encoding/json"
	"fmt"
	"html/template"
	"log/slog"
	"net/http"
	"strings"

	ds "github.com/starfederation/datastar-go/datastar"

	"nami/drawers"
	"nami/drivers"
	"nami/events"
	"nami/markup"
	"nami/models"
	"nami/store"
	"nami/utils"
	assets "nami/web"
)

type Dashboard struct {
	templates *template.Template

	registry   *store.Registry
	dispatcher *store.Dispatcher
	eventHub   *events.EventHub
	sender     drivers.Sender
	drawers    *drawers.Registry
	sessions   *Sessions
	logger     *slog.Logger

	// drawerCtx outlives the request that opens a drawer.
	drawerCtx context.Context
}

// FeedView is one feed panel as the templates see it.
type FeedView struct {
	Key     string
	Title   string
	Entries []models.FeedEntry
}

type DashboardOptions struct {
	Registry   *store.Registry
	Dispatcher *store.Dispatcher
	EventHub   *events.EventHub
	Sender     drivers.Sender
	Drawers    *drawers.Registry
	Sessions   *Sessions
	Logger     *slog.Logger
	DrawerCtx  context.Context
}

func NewDashboard(opts DashboardOptions) (dashboard *Dashboard, err error) {
	dashboard = &Dashboard{
		registry:   opts.Registry,
		dispatcher: opts.Dispatcher,
		eventHub:   opts.EventHub,
		sender:     opts.Sender,
		drawers:    opts.Drawers,
		sessions:   opts.Sessions,
		logger:     opts.Logger,
		drawerCtx:  opts.DrawerCtx,
	}
	if dashboard.drawerCtx == nil {
		dashboard.drawerCtx = context.Background()
	}
	templates := template.New("").Funcs(template.FuncMap{
		"keyToTitle": func(s string) string { return strings.Replace(s, "-", " ", -1) },
		"markdown":   markup.Markdown,
		"stateClass": models.StateClass,
		"round":      utils.RoundToXDp,
	})
	dashboard.templates, err = templates.ParseFS(assets.Templates, "templates/dashboard/*.gohtml")
	return dashboard, err
}

func (d *Dashboard) Templates() *template.Template {
	return d.templates
}

func (d *Dashboard) Handlers() map[string]func(w http.ResponseWriter, r *http.Request) {
	return map[string]func(w http.ResponseWriter, r *http.Request){
		"POST /controls/streamer":      d.SetStreamerHandler,
		"POST /controls/context":       d.SetContextHandler,
		"POST /controls/streamer-lock": d.StreamerLockHandler,
		"POST /controls/context-lock":  d.ContextLockHandler,
		"POST /drawers/{id}/open":      d.OpenDrawerHandler,
		"POST /drawers/{id}/close":     d.CloseDrawerHandler,
		"GET /api/snapshot":            d.SnapshotHandler,
		"POST /api/events":             d.InjectEventHandler,
	}
}

func (d *Dashboard) Data() map[string]interface{} {
	feeds := make([]FeedView, 0, len(store.FeedTitles))
	for _, f := range store.FeedTitles {
		entries, _, err := d.registry.Feed(f.Key)
		if err != nil {
			d.logger.Error("feed snapshot", "feed", f.Key, "error", err)
			continue
		}
		feeds = append(feeds, FeedView{f.Key, f.Title, entries})
	}
	chart, _ := d.registry.Chart()
	director, _ := d.registry.Director()

	return map[string]interface{}{
		"feeds":    feeds,
		"chart":    chart,
		"director": director,
		"drawers":  d.drawers.IDs(),
		"signals":  initialSignals(director),
	}
}

func initialSignals(director models.DirectorState) string {
	signals, _ := json.Marshal(controlSignals{
		Streamer:       director.CurrentStreamer,
		ManualContext:  director.ManualContext,
		StreamerLocked: director.StreamerLocked,
		ContextLocked:  director.ContextLocked,
	})
	return string(signals)
}

// OnTick patches feed panels, the director panel and the interest chart when their version moved.
func (d *Dashboard) OnTick(sse *ds.ServerSentEventGenerator, rendered map[string]uint64) error {
	writer := strings.Builder{}

	for _, f := range store.FeedTitles {
		entries, version, err := d.registry.Feed(f.Key)
		if err != nil {
			return err
		}
		if last, ok := rendered[f.Key]; ok && last == version {
			continue
		}
		if err := d.templates.ExecuteTemplate(&writer, "feed", FeedView{f.Key, f.Title, entries}); err != nil {
			d.logger.Error("executing feed template", "feed", f.Key, "error", err)
			continue
		}
		rendered[f.Key] = version
	}

	director, version := d.registry.Director()
	if last, ok := rendered[store.DIRECTOR_PANEL]; !ok || last != version {
		if err := d.templates.ExecuteTemplate(&writer, "director", director); err != nil {
			d.logger.Error("executing director template", "error", err)
		} else {
			rendered[store.DIRECTOR_PANEL] = version
		}
	}

	chart, version := d.registry.Chart()
	if last, ok := rendered[store.INTEREST_CHART]; !ok || last != version {
		if err := d.templates.ExecuteTemplate(&writer, "chart.latest", chart); err != nil {
			d.logger.Error("executing chart template", "error", err)
		}
		script, err := buildChartUpdateFunction(chart)
		if err != nil {
			return err
		}
		if err := sse.ExecuteScript(script); err != nil {
			return err
		}
		rendered[store.INTEREST_CHART] = version
	}

	if writer.Len() > 0 {
		if err := sse.PatchElements(writer.String()); err != nil {
			return err
		}
	}

	return nil
}

// buildChartUpdateFunction calls the page's sc() with the whole series. Labels carry chat text, so they go through
// json encoding, which also escapes anything that could close the script element.
func buildChartUpdateFunction(chart store.ChartView) (string, error) {
	labels, err := json.Marshal(chart.Labels)
	if err != nil {
		return "", err
	}
	scores, err := json.Marshal(chart.Scores)
	if err != nil {
		return "", err
	}
	key, err := json.Marshal(chart.Key)
	if err != nil {
		return "", err
	}
	return fmt.Sprintf(`sc(%s,%s,%s,%g,%g)`, key, labels, scores, chart.Min, chart.Max), nil
}
