package models

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewScoreSeries_RejectsNonPositiveCapacity(t *testing.T) {
	s, err := NewScoreSeries("interest", 0, 0, 1)
	assert.Nil(t, s)
	assert.ErrorIs(t, err, ErrInvalidCapacity)
}

func TestScoreSeries_StaysInLockstep(t *testing.T) {
	s, err := NewScoreSeries("interest", 50, 0, 1)
	require.NoError(t, err)

	for i := 0; i < 137; i++ {
		s.Record(fmt.Sprintf("l%d", i), float64(i)/137)
		labels, scores := s.Snapshot()
		require.Equal(t, len(labels), len(scores))
		require.LessOrEqual(t, len(labels), 50)
	}

	labels, scores := s.Snapshot()
	assert.Equal(t, "l87", labels[0])
	assert.Equal(t, "l136", labels[49])
	assert.InDelta(t, 87.0/137, scores[0], 1e-9)
}

func TestScoreSeries_KeepsRawValues(t *testing.T) {
	s, err := NewScoreSeries("interest", 3, 0, 1)
	require.NoError(t, err)

	s.Record("low", -0.5)
	s.Record("high", 1.7)

	_, scores := s.Snapshot()
	assert.Equal(t, []float64{-0.5, 1.7}, scores)
	assert.Equal(t, ScorePoint{"high", 1.7}, s.Latest())
}

func TestScoreSeries_Points(t *testing.T) {
	s, err := NewScoreSeries("interest", 2, 0, 1)
	require.NoError(t, err)

	s.Record("a", 0.1)
	s.Record("b", 0.2)
	s.Record("c", 0.3)

	assert.Equal(t, []ScorePoint{{"b", 0.2}, {"c", 0.3}}, s.Points())
}

func TestChart_SvgPointsClipsToBounds(t *testing.T) {
	s, err := NewScoreSeries("interest", 4, 0, 1)
	require.NoError(t, err)
	s.Record("a", 0.25)
	s.Record("b", 2)
	s.Record("c", -1)

	c := NewChart("interest", "Interest", s, nil)
	assert.Equal(t, "0,0.750 1,0.000 2,1.000", c.SvgPoints())
}

func TestStateClass(t *testing.T) {
	assert.Equal(t, "state-waiting-for-response", StateClass("state", "WAITING_FOR_RESPONSE"))
	assert.Equal(t, "mood-happy", StateClass("mood", "Happy"))
	assert.Equal(t, "flow-unknown", StateClass("flow", ""))
}

func TestDirectorState_ApplyRespectsLocks(t *testing.T) {
	streamer, context := "someone", "new context"
	d := DirectorState{CurrentStreamer: "peepingotter", ManualContext: "old"}

	d.Apply(ContextSuggestion{Streamer: &streamer, Context: &context, StreamerLocked: true})
	assert.Equal(t, "peepingotter", d.CurrentStreamer)
	assert.Equal(t, "new context", d.ManualContext)

	d.Apply(ContextSuggestion{Streamer: &streamer})
	assert.Equal(t, "someone", d.CurrentStreamer)
	assert.False(t, d.StreamerLocked)
}
