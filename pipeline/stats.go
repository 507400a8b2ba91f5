package pipeline

import (
	"fmt"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/montanaflynn/stats"
)

// Stats counts what happened to the trajectory records of a run.
type Stats struct {
	Records              int
	Matched              int
	Unmatched            int
	Attempts             int
	Written              int
	InsufficientParallax int
	// Parallax holds, per attempt, the smaller of the two end frame distances in meters.
	Parallax []float64
}

// ParallaxSummary describes the distribution of Stats.Parallax.
type ParallaxSummary struct {
	Min    float64
	Median float64
	P90    float64
	Max    float64
}

// ParallaxSummary summarizes the parallax of every attempt. It returns false before the first
// attempt.
func (s Stats) ParallaxSummary() (ParallaxSummary, bool) {
	if len(s.Parallax) == 0 {
		return ParallaxSummary{}, false
	}
	data := stats.Float64Data(s.Parallax)
	var sum ParallaxSummary
	var err error
	if sum.Min, err = data.Min(); err != nil {
		return ParallaxSummary{}, false
	}
	if sum.Max, err = data.Max(); err != nil {
		return ParallaxSummary{}, false
	}
	if sum.Median, err = data.Median(); err != nil {
		return ParallaxSummary{}, false
	}
	if sum.P90, err = data.Percentile(90); err != nil {
		return ParallaxSummary{}, false
	}
	return sum, true
}

func (s Stats) keysAndValues() []interface{} {
	kv := []interface{}{
		"records", s.Records,
		"matched", s.Matched,
		"unmatched", s.Unmatched,
		"attempts", s.Attempts,
		"insufficient_parallax", s.InsufficientParallax,
		"written", s.Written,
	}
	if sum, ok := s.ParallaxSummary(); ok {
		kv = append(kv, "parallax_median", sum.Median, "parallax_p90", sum.P90)
	}
	return kv
}

// String renders the counters as a table.
func (s Stats) String() string {
	t := table.NewWriter()
	t.AppendHeader(table.Row{"Stage", "Count"})
	t.AppendRows([]table.Row{
		{"pose records", s.Records},
		{"matched captures", s.Matched},
		{"unmatched captures", s.Unmatched},
		{"triplet attempts", s.Attempts},
		{"insufficient parallax", s.InsufficientParallax},
		{"written", s.Written},
	})
	if sum, ok := s.ParallaxSummary(); ok {
		t.AppendFooter(table.Row{
			"parallax (m)",
			fmt.Sprintf("min %.4f, median %.4f, p90 %.4f, max %.4f", sum.Min, sum.Median, sum.P90, sum.Max),
		})
	}
	return t.Render()
}
