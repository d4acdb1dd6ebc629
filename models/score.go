package models

import "fmt"

type ScorePoint struct {
	Label string  `json:"label"`
	Score float64 `json:"score"`
}

// ScoreSeries holds two parallel bounded sequences of labels and scores. Both sequences are always the same length.
type ScoreSeries struct {
	// key identifies the chart this series feeds.
	key string
	// capacity is the maximum number of retained pairs.
	capacity int
	// labels and scores are evicted together, oldest first.
	labels []string
	scores []float64
	// min and max are the display bounds of the y-axis. Values outside them are kept as-is.
	min float64
	max float64
}

func NewScoreSeries(key string, capacity int, min, max float64) (*ScoreSeries, error) {
	if capacity <= 0 {
		return nil, fmt.Errorf("series %q capacity %d: %w", key, capacity, ErrInvalidCapacity)
	}
	return &ScoreSeries{
		key,
		capacity,
		make([]string, 0, capacity),
		make([]float64, 0, capacity),
		min,
		max,
	}, nil
}

func (s *ScoreSeries) Key() string {
	return s.key
}

func (s *ScoreSeries) Capacity() int {
	return s.capacity
}

func (s *ScoreSeries) Min() float64 {
	return s.min
}

func (s *ScoreSeries) Max() float64 {
	return s.max
}

func (s *ScoreSeries) Len() int {
	return len(s.labels)
}

// Record appends a (label, score) pair, evicting the oldest pair from both sequences when over capacity.
func (s *ScoreSeries) Record(label string, score float64) {
	if len(s.labels) == s.capacity {
		copy(s.labels, s.labels[1:])
		copy(s.scores, s.scores[1:])
		s.labels[len(s.labels)-1] = label
		s.scores[len(s.scores)-1] = score
		return
	}
	s.labels = append(s.labels, label)
	s.scores = append(s.scores, score)
}

// Snapshot returns copies of both sequences.
func (s *ScoreSeries) Snapshot() (labels []string, scores []float64) {
	labels = make([]string, len(s.labels))
	scores = make([]float64, len(s.scores))
	copy(labels, s.labels)
	copy(scores, s.scores)
	return labels, scores
}

// Points zips the snapshot into pairs, oldest first.
func (s *ScoreSeries) Points() []ScorePoint {
	points := make([]ScorePoint, len(s.labels))
	for i := range s.labels {
		points[i] = ScorePoint{s.labels[i], s.scores[i]}
	}
	return points
}

func (s *ScoreSeries) Latest() ScorePoint {
	if len(s.labels) == 0 {
		return ScorePoint{}
	}
	return ScorePoint{s.labels[len(s.labels)-1], s.scores[len(s.scores)-1]}
}
