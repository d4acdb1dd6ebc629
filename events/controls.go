package events

import (
	"encoding/json"
	"fmt"
	"strings"
)

// Control frames flow from the operator back to the director.
const (
	SET_STREAMER       = "set_streamer"
	SET_MANUAL_CONTEXT = "set_manual_context"
	SET_STREAMER_LOCK  = "set_streamer_lock"
	SET_CONTEXT_LOCK   = "set_context_lock"
)

func SetStreamer(streamerID string) (*Event, error) {
	streamerID = strings.TrimSpace(streamerID)
	if streamerID == "" {
		return nil, fmt.Errorf("%s: empty streamer id: %w", SET_STREAMER, ErrMalformedEvent)
	}
	return control(SET_STREAMER, struct {
		StreamerID string `json:"streamer_id"`
	}{streamerID})
}

// SetManualContext sets the operator's free-text context. An empty context clears it.
func SetManualContext(context string) (*Event, error) {
	return control(SET_MANUAL_CONTEXT, struct {
		Context string `json:"context"`
	}{strings.TrimSpace(context)})
}

func SetStreamerLock(locked bool) (*Event, error) {
	return control(SET_STREAMER_LOCK, lock{locked})
}

func SetContextLock(locked bool) (*Event, error) {
	return control(SET_CONTEXT_LOCK, lock{locked})
}

type lock struct {
	Locked bool `json:"locked"`
}

func control(name string, payload any) (*Event, error) {
	data, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("encode %s: %w", name, err)
	}
	return &Event{Name: name, Data: data}, nil
}
