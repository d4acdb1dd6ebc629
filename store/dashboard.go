package store

import (
	"errors"
	"fmt"
	"sync"

	"nami/config"
	"nami/models"
)

const DASHBOARD_FRAMERATE = 10

const (
	VISION_FEED = "vision"
	SPOKEN_FEED = "spoken"
	AUDIO_FEED  = "audio"
	CHAT_FEED   = "chat"
)

const (
	INTEREST_CHART = "interest"
	DIRECTOR_PANEL = "director"
)

var ErrUnknownFeed = errors.New("unknown feed")

// FeedTitles are the panel headings, in layout order.
var FeedTitles = []struct {
	Key   string
	Title string
}{
	{VISION_FEED, "Vision"},
	{SPOKEN_FEED, "Spoken Word"},
	{AUDIO_FEED, "Audio Transcript"},
	{CHAT_FEED, "Chat & Replies"},
}

// Registry owns one feed per named channel, the interest chart and the director panel state. Every mutation bumps
// the version of what it touched so renderers can skip panels that have not changed.
type Registry struct {
	mu       sync.RWMutex
	feeds    map[string]*models.BoundedFeed
	chart    *models.Chart
	director models.DirectorState
	versions map[string]uint64
}

func NewRegistry(capacities config.FeedsConfig) (*Registry, error) {
	r := &Registry{
		feeds:    make(map[string]*models.BoundedFeed),
		versions: make(map[string]uint64),
	}

	feedCapacities := map[string]int{
		VISION_FEED: capacities.Vision,
		SPOKEN_FEED: capacities.Spoken,
		AUDIO_FEED:  capacities.Audio,
		CHAT_FEED:   capacities.Chat,
	}
	for key, capacity := range feedCapacities {
		feed, err := models.NewBoundedFeed(key, capacity)
		if err != nil {
			return nil, err
		}
		r.feeds[key] = feed
	}

	series, err := models.NewScoreSeries(INTEREST_CHART, capacities.Interest, 0, 1)
	if err != nil {
		return nil, err
	}
	r.chart = models.NewChart(
		INTEREST_CHART,
		"Interest",
		series,
		[]models.ColourStop{
			{"0%", "#92FE9D"},
			{"100%", "#00C9FF"},
		},
	)

	return r, nil
}

// AppendEntry applies the feed identity rule to the named feed.
func (r *Registry) AppendEntry(key string, entry models.FeedEntry) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	feed, ok := r.feeds[key]
	if !ok {
		return fmt.Errorf("append to %q: %w", key, ErrUnknownFeed)
	}
	feed.Append(entry)
	r.versions[key]++
	return nil
}

func (r *Registry) RecordScore(label string, score float64) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.chart.Series().Record(label, score)
	r.versions[INTEREST_CHART]++
}

func (r *Registry) SetDirectorState(state models.DirectorState) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.director = state
	r.versions[DIRECTOR_PANEL]++
}

func (r *Registry) ApplySuggestion(suggestion models.ContextSuggestion) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.director.Apply(suggestion)
	r.versions[DIRECTOR_PANEL]++
}

// Feed returns a snapshot of the named feed and the version it was taken at.
func (r *Registry) Feed(key string) ([]models.FeedEntry, uint64, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	feed, ok := r.feeds[key]
	if !ok {
		return nil, 0, fmt.Errorf("snapshot %q: %w", key, ErrUnknownFeed)
	}
	return feed.Snapshot(), r.versions[key], nil
}

// ChartView is everything needed to draw the interest chart, copied out under the lock.
type ChartView struct {
	Key       string              `json:"key"`
	Title     string              `json:"title"`
	Colours   []models.ColourStop `json:"-"`
	Capacity  int                 `json:"capacity"`
	Min       float64             `json:"min"`
	Max       float64             `json:"max"`
	Labels    []string            `json:"labels"`
	Scores    []float64           `json:"scores"`
	SvgPoints string              `json:"-"`
	Latest    models.ScorePoint   `json:"latest"`
}

// ViewBox is the svg viewBox that SvgPoints is laid out in.
func (v ChartView) ViewBox() string {
	width := max(v.Capacity-1, 1)
	return fmt.Sprintf("0 %g %d %g", v.Min, width, v.Max-v.Min)
}

func (r *Registry) Chart() (ChartView, uint64) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	series := r.chart.Series()
	labels, scores := series.Snapshot()
	return ChartView{
		Key:       r.chart.Key(),
		Title:     r.chart.Title(),
		Colours:   r.chart.Colours(),
		Capacity:  series.Capacity(),
		Min:       series.Min(),
		Max:       series.Max(),
		Labels:    labels,
		Scores:    scores,
		SvgPoints: r.chart.SvgPoints(),
		Latest:    series.Latest(),
	}, r.versions[INTEREST_CHART]
}

func (r *Registry) Director() (models.DirectorState, uint64) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.director, r.versions[DIRECTOR_PANEL]
}

// Versions returns a copy of the current version of every panel.
func (r *Registry) Versions() map[string]uint64 {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make(map[string]uint64, len(r.versions))
	for k, v := range r.versions {
		out[k] = v
	}
	return out
}

// DashboardSnapshot is the whole dashboard state at one instant.
type DashboardSnapshot struct {
	Feeds    map[string][]models.FeedEntry `json:"feeds"`
	Interest ChartView                     `json:"interest"`
	Director models.DirectorState          `json:"director"`
	Versions map[string]uint64             `json:"versions"`
}

func (r *Registry) Snapshot() DashboardSnapshot {
	r.mu.RLock()
	defer r.mu.RUnlock()

	snap := DashboardSnapshot{
		Feeds:    make(map[string][]models.FeedEntry, len(r.feeds)),
		Director: r.director,
		Versions: make(map[string]uint64, len(r.versions)),
	}
	for key, feed := range r.feeds {
		snap.Feeds[key] = feed.Snapshot()
	}
	for k, v := range r.versions {
		snap.Versions[k] = v
	}
	series := r.chart.Series()
	labels, scores := series.Snapshot()
	snap.Interest = ChartView{
		Key:      r.chart.Key(),
		Title:    r.chart.Title(),
		Capacity: series.Capacity(),
		Min:      series.Min(),
		Max:      series.Max(),
		Labels:   labels,
		Scores:   scores,
		Latest:   series.Latest(),
	}
	return snap
}
