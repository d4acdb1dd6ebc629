package store

import (
	"context"
	"encoding/json"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"nami/config"
	"nami/events"
	"nami/logs"
	"nami/models"
)

func newTestRegistry(t *testing.T) *Registry {
	t.Helper()
	r, err := NewRegistry(config.DefaultConfig().Feeds)
	require.NoError(t, err)
	return r
}

func frame(name, data string) *events.Event {
	return &events.Event{Name: name, Data: json.RawMessage(data)}
}

func feedContents(t *testing.T, r *Registry, key string) []string {
	t.Helper()
	entries, _, err := r.Feed(key)
	require.NoError(t, err)
	out := make([]string, len(entries))
	for i, e := range entries {
		out[i] = e.Content
	}
	return out
}

func TestNewRegistry_RejectsBadCapacity(t *testing.T) {
	capacities := config.DefaultConfig().Feeds
	capacities.Interest = 0
	_, err := NewRegistry(capacities)
	assert.ErrorIs(t, err, models.ErrInvalidCapacity)
}

func TestRegistry_CapacitiesArePerChannel(t *testing.T) {
	r := newTestRegistry(t)
	for i := 0; i < 150; i++ {
		require.NoError(t, r.AppendEntry(VISION_FEED, models.FeedEntry{Content: fmt.Sprint(i)}))
		require.NoError(t, r.AppendEntry(CHAT_FEED, models.FeedEntry{Content: fmt.Sprint(i)}))
		r.RecordScore(fmt.Sprint(i), 0.5)
	}

	assert.Len(t, feedContents(t, r, VISION_FEED), 20)
	assert.Len(t, feedContents(t, r, CHAT_FEED), 100)
	view, _ := r.Chart()
	assert.Len(t, view.Labels, 50)
	assert.Len(t, view.Scores, 50)
}

func TestRegistry_UnknownFeed(t *testing.T) {
	r := newTestRegistry(t)
	assert.ErrorIs(t, r.AppendEntry("nope", models.FeedEntry{}), ErrUnknownFeed)
	_, _, err := r.Feed("nope")
	assert.ErrorIs(t, err, ErrUnknownFeed)
}

func TestRegistry_VersionsTrackMutations(t *testing.T) {
	r := newTestRegistry(t)
	require.NoError(t, r.AppendEntry(AUDIO_FEED, models.FeedEntry{ID: "s1", Content: "a", Partial: true}))
	require.NoError(t, r.AppendEntry(AUDIO_FEED, models.FeedEntry{ID: "s1", Content: "ab", Partial: true}))
	r.SetDirectorState(models.DirectorState{Mood: "Happy"})

	v := r.Versions()
	assert.Equal(t, uint64(2), v[AUDIO_FEED])
	assert.Equal(t, uint64(1), v[DIRECTOR_PANEL])
	assert.Zero(t, v[VISION_FEED])

	v[AUDIO_FEED] = 99
	assert.Equal(t, uint64(2), r.Versions()[AUDIO_FEED])
}

func TestDispatcher_AppliesEachChannel(t *testing.T) {
	r := newTestRegistry(t)
	d := NewDispatcher(r, logs.Discard())

	require.NoError(t, d.Apply(frame(events.VISION_CONTEXT, `{"context":"a cat on screen"}`)))
	require.NoError(t, d.Apply(frame(events.SPOKEN_WORD_CONTEXT, `{"context":"nami said hi"}`)))
	require.NoError(t, d.Apply(frame(events.AUDIO_CONTEXT, `{"context":"hel","session_id":"s1","is_partial":true}`)))
	require.NoError(t, d.Apply(frame(events.AUDIO_CONTEXT, `{"context":"hello","session_id":"s1","is_partial":false}`)))
	require.NoError(t, d.Apply(frame(events.TWITCH_MESSAGE, `{"username":"bob","message":"hi nami"}`)))
	require.NoError(t, d.Apply(frame(events.BOT_REPLY, `{"reply":"hi bob"}`)))
	require.NoError(t, d.Apply(frame(events.BOT_REPLY, `{"reply":"***","is_censored":true,"censorship_reason":"profanity"}`)))
	require.NoError(t, d.Apply(frame(events.EVENT_SCORED, `{"score":0.9,"source":"TWITCH_MENTION","text":"hi nami"}`)))
	require.NoError(t, d.Apply(frame(events.DIRECTOR_STATE, `{"mood":"Happy","current_streamer":"peepingotter"}`)))
	require.NoError(t, d.Apply(frame(events.AI_CONTEXT_SUGGESTION, `{"streamer":"other","context":"speedrun","streamer_locked":true}`)))

	assert.Equal(t, []string{"a cat on screen"}, feedContents(t, r, VISION_FEED))
	assert.Equal(t, []string{"nami said hi"}, feedContents(t, r, SPOKEN_FEED))
	assert.Equal(t, []string{"hello"}, feedContents(t, r, AUDIO_FEED))
	assert.Equal(t, []string{"bob: hi nami", "hi bob", "*** [censored: profanity]"}, feedContents(t, r, CHAT_FEED))

	chat, _, err := r.Feed(CHAT_FEED)
	require.NoError(t, err)
	assert.Equal(t, "censored", chat[2].Kind)

	view, _ := r.Chart()
	assert.Equal(t, []string{"TWITCH_MENTION: hi nami"}, view.Labels)
	assert.Equal(t, []float64{0.9}, view.Scores)

	state, _ := r.Director()
	assert.Equal(t, "Happy", state.Mood)
	assert.Equal(t, "peepingotter", state.CurrentStreamer)
	assert.Equal(t, "speedrun", state.ManualContext)
	assert.True(t, state.StreamerLocked)

	assert.Equal(t, uint64(10), d.Applied())
	assert.Zero(t, d.Rejected())
}

func TestDispatcher_MalformedEventsLeaveRegistryUntouched(t *testing.T) {
	r := newTestRegistry(t)
	d := NewDispatcher(r, logs.Discard())
	before := r.Snapshot()

	assert.ErrorIs(t, d.Apply(frame(events.AUDIO_CONTEXT, `{"session_id":"s1"}`)), events.ErrMalformedEvent)
	assert.ErrorIs(t, d.Apply(frame(events.EVENT_SCORED, `{"source":"X"}`)), events.ErrMalformedEvent)
	assert.ErrorIs(t, d.Apply(frame("mystery", `{}`)), events.ErrMalformedEvent)

	assert.Equal(t, before, r.Snapshot())
	assert.Equal(t, uint64(3), d.Rejected())
}

func TestDispatcher_RunDrainsInOrder(t *testing.T) {
	r := newTestRegistry(t)
	d := NewDispatcher(r, logs.Discard())

	in := make(chan *events.Event, 4)
	in <- frame(events.AUDIO_CONTEXT, `{"context":"a","session_id":"s1","is_partial":true}`)
	in <- frame(events.AUDIO_CONTEXT, `{"context":"ab","session_id":"s1","is_partial":true}`)
	in <- frame(events.AUDIO_CONTEXT, `{"context":"c","session_id":"s2"}`)
	in <- frame(events.AUDIO_CONTEXT, `{"bad":true}`)
	close(in)

	done := make(chan struct{})
	go func() {
		d.Run(context.Background(), in)
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("dispatcher did not return after channel closed")
	}

	assert.Equal(t, []string{"ab", "c"}, feedContents(t, r, AUDIO_FEED))
}

func TestScoreLabel(t *testing.T) {
	assert.Equal(t, "VISUAL_CHANGE", ScoreLabel("VISUAL_CHANGE", "  "))
	assert.Equal(t, "hello", ScoreLabel("", "hello"))
	assert.Equal(t, "TWITCH_CHAT: short", ScoreLabel("TWITCH_CHAT", "short"))

	long := ScoreLabel("TWITCH_CHAT", "this message is definitely longer than the label limit")
	assert.Equal(t, SCORE_LABEL_MAX_RUNES, len([]rune(long)))
	assert.Equal(t, "…", string([]rune(long)[SCORE_LABEL_MAX_RUNES-1:]))
}

func TestChartView_ViewBox(t *testing.T) {
	r := newTestRegistry(t)
	chart, _ := r.Chart()
	assert.Equal(t, "0 0 49 1", chart.ViewBox())
	assert.Equal(t, "0 0 1 1", ChartView{Capacity: 1, Min: 0, Max: 1}.ViewBox())
}

func TestRegistry_ApplySuggestionSeedsLocks(t *testing.T) {
	r := newTestRegistry(t)
	r.ApplySuggestion(models.ContextSuggestion{StreamerLocked: true})

	streamer := "someone"
	r.ApplySuggestion(models.ContextSuggestion{Streamer: &streamer, StreamerLocked: true})

	state, version := r.Director()
	assert.True(t, state.StreamerLocked)
	assert.False(t, state.ContextLocked)
	assert.Empty(t, state.CurrentStreamer)
	assert.Equal(t, uint64(2), version)
}
