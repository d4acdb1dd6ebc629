package models

import (
	"strconv"
	"strings"
)

type ColourStop struct {
	Offset string // e.g. "0%", "50%", "100%"
	Color  string // e.g. "#ff0000"
}

type Chart struct {
	// key is the identifier and doubles as the element id prefix in the ui.
	key string
	// title is shown above the chart.
	title string
	// series holds the data points shown in this chart.
	series *ScoreSeries
	// colours is treated as a vertical gradient where low values get the first colour and high values the last.
	colours []ColourStop
}

func NewChart(
	key string,
	title string,
	series *ScoreSeries,
	colours []ColourStop,
) *Chart {
	return &Chart{
		key,
		title,
		series,
		colours,
	}
}

func (c *Chart) Key() string {
	return c.key
}

func (c *Chart) Title() string {
	return c.title
}

func (c *Chart) Series() *ScoreSeries {
	return c.series
}

func (c *Chart) Colours() []ColourStop {
	return c.colours
}

// SvgPoints lays the series out as an svg polyline "points" attribute in a viewBox of (capacity-1) x (max-min).
// The y-axis is flipped so higher scores draw higher; scores outside [min, max] are clipped to the box.
func (c *Chart) SvgPoints() string {
	_, scores := c.series.Snapshot()
	lo, hi := c.series.Min(), c.series.Max()

	var b strings.Builder
	for i, score := range scores {
		if score < lo {
			score = lo
		}
		if score > hi {
			score = hi
		}
		if i > 0 {
			b.WriteByte(' ')
		}
		b.WriteString(strconv.Itoa(i))
		b.WriteByte(',')
		b.WriteString(strconv.FormatFloat(hi+lo-score, 'f', 3, 64))
	}
	return b.String()
}
