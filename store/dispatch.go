package store

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"sync/atomic"

	"nami/events"
	"nami/models"
)

const SCORE_LABEL_MAX_RUNES = 32

// Dispatcher is the single event-processing context: it validates each inbound event and applies it to the registry,
// one at a time, in arrival order.
type Dispatcher struct {
	registry *Registry
	logger   *slog.Logger

	applied  atomic.Uint64
	rejected atomic.Uint64
}

func NewDispatcher(registry *Registry, logger *slog.Logger) *Dispatcher {
	return &Dispatcher{registry: registry, logger: logger}
}

// Run applies events until ctx is done or the channel closes.
func (d *Dispatcher) Run(ctx context.Context, in <-chan *events.Event) {
	for {
		select {
		case <-ctx.Done():
			return
		case event, ok := <-in:
			if !ok {
				return
			}
			if err := d.Apply(event); err != nil {
				d.logger.Warn("rejected event", "event", event.Name, "error", err)
			}
		}
	}
}

// Apply validates one event and folds it into the registry. Invalid events leave the registry untouched.
func (d *Dispatcher) Apply(event *events.Event) error {
	payload, err := events.Decode(event)
	if err != nil {
		d.rejected.Add(1)
		return err
	}

	switch p := payload.(type) {
	case events.ContextUpdate:
		err = d.applyContext(event.Name, p)
	case events.ChatMessage:
		content := p.Message
		if p.Username != "" {
			content = fmt.Sprintf("%s: %s", p.Username, p.Message)
		}
		err = d.registry.AppendEntry(CHAT_FEED, models.FeedEntry{Content: content, Kind: "chat"})
	case events.BotReply:
		err = d.registry.AppendEntry(CHAT_FEED, replyEntry(p))
	case events.ScoredEvent:
		d.registry.RecordScore(ScoreLabel(p.Source, p.Text), p.Score)
	case models.DirectorState:
		d.registry.SetDirectorState(p)
	case models.ContextSuggestion:
		d.registry.ApplySuggestion(p)
	default:
		err = fmt.Errorf("no handler for %s: %w", event.Name, events.ErrMalformedEvent)
	}
	if err != nil {
		d.rejected.Add(1)
		return err
	}

	d.applied.Add(1)
	d.logger.Debug("applied event", "event", event.Name)
	return nil
}

func (d *Dispatcher) applyContext(name string, p events.ContextUpdate) error {
	switch name {
	case events.VISION_CONTEXT:
		return d.registry.AppendEntry(VISION_FEED, models.FeedEntry{Content: p.Context})
	case events.SPOKEN_WORD_CONTEXT:
		return d.registry.AppendEntry(SPOKEN_FEED, models.FeedEntry{Content: p.Context})
	default:
		return d.registry.AppendEntry(AUDIO_FEED, models.FeedEntry{ID: p.SessionID, Content: p.Context, Partial: p.Partial})
	}
}

func (d *Dispatcher) Applied() uint64 {
	return d.applied.Load()
}

func (d *Dispatcher) Rejected() uint64 {
	return d.rejected.Load()
}

func replyEntry(p events.BotReply) models.FeedEntry {
	if !p.Censored {
		return models.FeedEntry{Content: p.Reply, Kind: "reply"}
	}
	content := p.Reply
	if p.CensorshipReason != "" {
		content = fmt.Sprintf("%s [censored: %s]", content, p.CensorshipReason)
	} else {
		content += " [censored]"
	}
	return models.FeedEntry{Content: content, Kind: "censored"}
}

// ScoreLabel builds the chart label "SOURCE: text", cut to SCORE_LABEL_MAX_RUNES.
func ScoreLabel(source, text string) string {
	text = strings.TrimSpace(text)
	label := source
	switch {
	case source == "":
		label = text
	case text != "":
		label = source + ": " + text
	}

	runes := []rune(label)
	if len(runes) > SCORE_LABEL_MAX_RUNES {
		return string(runes[:SCORE_LABEL_MAX_RUNES-1]) + "…"
	}
	return label
}
