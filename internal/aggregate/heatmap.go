package aggregate

import (
	"math"
	"time"

	"github.com/stefur/tempapp/internal/modules/temps/types"
)

// HeatmapCell is the mean temperature of one day/hour slot. Valid is false
// for slots without readings (for example hours later than the last fetch).
type HeatmapCell struct {
	Mean  float64 `json:"mean"`
	Count int     `json:"count"`
	Valid bool    `json:"valid"`
}

// HeatmapGrid is a days x 24 hours matrix; Cells[d][h].
type HeatmapGrid struct {
	Days  []time.Time     `json:"days"`
	Cells [][]HeatmapCell `json:"cells"`
}

// Heatmap averages readings into a grid of `days` local days starting at
// the day containing `from`. Readings outside the grid are ignored.
func Heatmap(readings []types.Reading, from time.Time, days int, loc *time.Location) HeatmapGrid {
	if loc == nil {
		loc = time.UTC
	}
	if days < 0 {
		days = 0
	}
	first := Truncate(from, Day, loc)
	grid := HeatmapGrid{
		Days:  make([]time.Time, days),
		Cells: make([][]HeatmapCell, days),
	}
	index := make(map[int64]int, days)
	for d := 0; d < days; d++ {
		day := first.AddDate(0, 0, d)
		grid.Days[d] = day
		grid.Cells[d] = make([]HeatmapCell, 24)
		index[day.UnixNano()] = d
	}

	sums := make([][]float64, days)
	for d := range sums {
		sums[d] = make([]float64, 24)
	}
	for _, r := range readings {
		d, ok := index[Truncate(r.Time, Day, loc).UnixNano()]
		if !ok {
			continue
		}
		h := r.Time.In(loc).Hour()
		sums[d][h] += r.Temp
		grid.Cells[d][h].Count++
	}
	for d := range grid.Cells {
		for h := range grid.Cells[d] {
			c := &grid.Cells[d][h]
			if c.Count == 0 {
				continue
			}
			c.Mean = sums[d][h] / float64(c.Count)
			c.Valid = true
		}
	}
	return grid
}

// Range returns the lowest and highest valid cell mean.
func (g HeatmapGrid) Range() (lo, hi float64, ok bool) {
	lo, hi = math.Inf(1), math.Inf(-1)
	for _, row := range g.Cells {
		for _, c := range row {
			if !c.Valid {
				continue
			}
			ok = true
			lo = math.Min(lo, c.Mean)
			hi = math.Max(hi, c.Mean)
		}
	}
	if !ok {
		return 0, 0, false
	}
	return lo, hi, true
}
