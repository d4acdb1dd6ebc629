package models

import "fmt"

// DirectorState is the panel state pushed by the director on every summary tick. It is replaced wholesale.
type DirectorState struct {
	Summary           string        `json:"summary"`
	RawContext        string        `json:"raw_context"`
	Prediction        string        `json:"prediction"`
	Mood              string        `json:"mood"`
	ConversationState string        `json:"conversation_state"`
	Flow              string        `json:"flow"`
	Intent            string        `json:"intent"`
	ActiveUser        *UserProfile  `json:"active_user"`
	Memories          []Memory      `json:"memories"`
	Directive         *Directive    `json:"directive"`
	Adaptive          AdaptiveState `json:"adaptive"`
	ManualContext     string        `json:"manual_context"`
	CurrentStreamer   string        `json:"current_streamer"`
	StreamerLocked    bool          `json:"streamer_locked"`
	ContextLocked     bool          `json:"context_locked"`
}

type UserProfile struct {
	Username     string       `json:"username"`
	Nickname     string       `json:"nickname"`
	Relationship Relationship `json:"relationship"`
	Facts        []any        `json:"facts"`
	Opinions     []any        `json:"nami_opinions"`
}

type Relationship struct {
	Tier     string  `json:"tier"`
	Affinity float64 `json:"affinity"`
	Vibe     string  `json:"vibe"`
}

type Memory struct {
	Source string  `json:"source"`
	Text   string  `json:"text"`
	Score  float64 `json:"score"`
	// Type is either "memory" or "narrative".
	Type string `json:"type"`
}

type Directive struct {
	Objective       string   `json:"objective"`
	Tone            string   `json:"tone"`
	Constraints     []string `json:"constraints"`
	TopicFocus      string   `json:"topic_focus"`
	SuggestedAction string   `json:"suggested_action"`
	Reasoning       string   `json:"reasoning"`
}

type AdaptiveState struct {
	Threshold     float64       `json:"threshold"`
	State         string        `json:"state"`
	ChatVelocity  float64       `json:"chat_velocity"`
	Energy        float64       `json:"energy"`
	SocialBattery SocialBattery `json:"social_battery"`
	CurrentGoal   string        `json:"current_goal"`
	CurrentScene  string        `json:"current_scene"`
}

type SocialBattery struct {
	Current float64 `json:"current"`
	Max     float64 `json:"max"`
	Percent float64 `json:"percent"`
}

// ContextSuggestion is what the director's context inference proposes for the streamer and manual context fields.
type ContextSuggestion struct {
	Streamer       *string `json:"streamer"`
	Context        *string `json:"context"`
	StreamerLocked bool    `json:"streamer_locked"`
	ContextLocked  bool    `json:"context_locked"`
}

// Apply folds a suggestion into the state. Locked fields are never overwritten by a suggestion.
func (d *DirectorState) Apply(s ContextSuggestion) {
	d.StreamerLocked = s.StreamerLocked
	d.ContextLocked = s.ContextLocked
	if s.Streamer != nil && !d.StreamerLocked {
		d.CurrentStreamer = *s.Streamer
	}
	if s.Context != nil && !d.ContextLocked {
		d.ManualContext = *s.Context
	}
}

// StateClass turns an enum name like WAITING_FOR_RESPONSE into a css class like state-waiting-for-response.
func StateClass(prefix, state string) string {
	if state == "" {
		return fmt.Sprintf("%s-unknown", prefix)
	}
	out := make([]rune, 0, len(state))
	for _, r := range state {
		switch {
		case r >= 'A' && r <= 'Z':
			out = append(out, r+('a'-'A'))
		case r >= 'a' && r <= 'z', r >= '0' && r <= '9':
			out = append(out, r)
		default:
			out = append(out, '-')
		}
	}
	return fmt.Sprintf("%s-%s", prefix, string(out))
}
