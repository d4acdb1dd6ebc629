package events

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"

	"nami/models"
)

const (
	VISION_CONTEXT        = "vision_context"
	SPOKEN_WORD_CONTEXT   = "spoken_word_context"
	AUDIO_CONTEXT         = "audio_context"
	TWITCH_MESSAGE        = "twitch_message"
	BOT_REPLY             = "bot_reply"
	EVENT_SCORED          = "event_scored"
	DIRECTOR_STATE        = "director_state"
	AI_CONTEXT_SUGGESTION = "ai_context_suggestion"
)

var ErrMalformedEvent = errors.New("malformed event")

// ContextUpdate is the payload of the log-style channels (vision, spoken word, audio).
type ContextUpdate struct {
	Context   string
	SessionID string
	Partial   bool
}

type ChatMessage struct {
	Username string
	Message  string
}

type BotReply struct {
	Reply            string
	Prompt           string
	Censored         bool
	CensorshipReason string
	FilteredArea     string
}

type ScoredEvent struct {
	Score  float64
	Source string
	Text   string
}

type contextWire struct {
	Context   *string `json:"context"`
	SessionID string  `json:"session_id"`
	IsPartial bool    `json:"is_partial"`
}

type chatWire struct {
	Username string  `json:"username"`
	Message  *string `json:"message"`
}

type replyWire struct {
	Reply            *string `json:"reply"`
	Prompt           string  `json:"prompt"`
	IsCensored       bool    `json:"is_censored"`
	CensorshipReason *string `json:"censorship_reason"`
	FilteredArea     *string `json:"filtered_area"`
}

type scoreWire struct {
	Score  *float64 `json:"score"`
	Source string   `json:"source"`
	Text   string   `json:"text"`
}

// ParseFrame decodes one transport frame of the form {"event": "...", "data": {...}}.
func ParseFrame(frame []byte) (*Event, error) {
	var e Event
	if err := json.Unmarshal(frame, &e); err != nil {
		return nil, fmt.Errorf("decode frame: %w: %w", ErrMalformedEvent, err)
	}
	if e.Name == "" {
		return nil, fmt.Errorf("frame has no event name: %w", ErrMalformedEvent)
	}
	return &e, nil
}

// Decode validates an event's payload and returns one of ContextUpdate, ChatMessage, BotReply, ScoredEvent,
// models.DirectorState or models.ContextSuggestion. Anything that fails validation wraps ErrMalformedEvent.
func Decode(e *Event) (any, error) {
	data := bytes.TrimSpace(e.Data)
	if len(data) == 0 || bytes.Equal(data, []byte("null")) {
		return nil, fmt.Errorf("%s has no data: %w", e.Name, ErrMalformedEvent)
	}

	switch e.Name {
	case VISION_CONTEXT, SPOKEN_WORD_CONTEXT, AUDIO_CONTEXT:
		var w contextWire
		if err := unmarshal(e.Name, data, &w); err != nil {
			return nil, err
		}
		if w.Context == nil {
			return nil, missing(e.Name, "context")
		}
		return ContextUpdate{*w.Context, w.SessionID, w.IsPartial}, nil
	case TWITCH_MESSAGE:
		var w chatWire
		if err := unmarshal(e.Name, data, &w); err != nil {
			return nil, err
		}
		if w.Message == nil {
			return nil, missing(e.Name, "message")
		}
		return ChatMessage{w.Username, *w.Message}, nil
	case BOT_REPLY:
		var w replyWire
		if err := unmarshal(e.Name, data, &w); err != nil {
			return nil, err
		}
		if w.Reply == nil {
			return nil, missing(e.Name, "reply")
		}
		return BotReply{*w.Reply, w.Prompt, w.IsCensored, deref(w.CensorshipReason), deref(w.FilteredArea)}, nil
	case EVENT_SCORED:
		var w scoreWire
		if err := unmarshal(e.Name, data, &w); err != nil {
			return nil, err
		}
		if w.Score == nil {
			return nil, missing(e.Name, "score")
		}
		return ScoredEvent{*w.Score, w.Source, w.Text}, nil
	case DIRECTOR_STATE:
		var state models.DirectorState
		if err := unmarshal(e.Name, data, &state); err != nil {
			return nil, err
		}
		return state, nil
	case AI_CONTEXT_SUGGESTION:
		var suggestion models.ContextSuggestion
		if err := unmarshal(e.Name, data, &suggestion); err != nil {
			return nil, err
		}
		return suggestion, nil
	default:
		return nil, fmt.Errorf("unknown event %q: %w", e.Name, ErrMalformedEvent)
	}
}

func unmarshal(name string, data []byte, v any) error {
	if err := json.Unmarshal(data, v); err != nil {
		return fmt.Errorf("decode %s: %w: %w", name, ErrMalformedEvent, err)
	}
	return nil
}

func missing(name, field string) error {
	return fmt.Errorf("%s missing %q: %w", name, field, ErrMalformedEvent)
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}
