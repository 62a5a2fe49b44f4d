// Package aggregate groups temperature readings into hour and day buckets.
package aggregate

import (
	"math"
	"sort"
	"time"

	"github.com/stefur/tempapp/internal/modules/temps/types"
)

type Granularity int

const (
	Hour Granularity = iota
	Day
)

func (g Granularity) String() string {
	switch g {
	case Hour:
		return "hour"
	case Day:
		return "day"
	default:
		return "unknown"
	}
}

// Bucket summarises the readings of one floor (or the whole house) within
// one truncated time slot.
type Bucket struct {
	Start time.Time `json:"start"`
	Floor string    `json:"floor"`
	Mean  float64   `json:"mean"`
	Std   float64   `json:"std"`
	Min   float64   `json:"min"`
	Max   float64   `json:"max"`
	Count int       `json:"count"`
}

// Truncate floors t to the start of its hour or its local day in loc. Hours
// are cut on the instant, so the repeated hour at the end of summer time
// yields two buckets.
func Truncate(t time.Time, g Granularity, loc *time.Location) time.Time {
	if loc == nil {
		loc = time.UTC
	}
	lt := t.In(loc)
	switch g {
	case Day:
		return time.Date(lt.Year(), lt.Month(), lt.Day(), 0, 0, 0, 0, loc)
	default:
		return lt.Add(-time.Duration(lt.Minute())*time.Minute -
			time.Duration(lt.Second())*time.Second -
			time.Duration(lt.Nanosecond()))
	}
}

type bucketKey struct {
	start int64
	floor string
}

// ByFloor groups readings by (truncated time, floor). Output is sorted by
// start then floor.
func ByFloor(readings []types.Reading, g Granularity, loc *time.Location) []Bucket {
	return group(readings, g, loc, func(r types.Reading) string { return r.Floor })
}

// Overall groups readings by truncated time only; every bucket is labelled
// types.HouseLabel.
func Overall(readings []types.Reading, g Granularity, loc *time.Location) []Bucket {
	return group(readings, g, loc, func(types.Reading) string { return types.HouseLabel })
}

func group(readings []types.Reading, g Granularity, loc *time.Location, floorOf func(types.Reading) string) []Bucket {
	temps := make(map[bucketKey][]float64)
	starts := make(map[bucketKey]time.Time)
	for _, r := range readings {
		start := Truncate(r.Time, g, loc)
		k := bucketKey{start: start.UnixNano(), floor: floorOf(r)}
		if _, ok := starts[k]; !ok {
			starts[k] = start
		}
		temps[k] = append(temps[k], r.Temp)
	}

	out := make([]Bucket, 0, len(temps))
	for k, vals := range temps {
		mean, std := MeanStd(vals)
		lo, hi := minMax(vals)
		out = append(out, Bucket{
			Start: starts[k],
			Floor: k.floor,
			Mean:  mean,
			Std:   std,
			Min:   lo,
			Max:   hi,
			Count: len(vals),
		})
	}
	sort.Slice(out, func(i, j int) bool {
		if !out[i].Start.Equal(out[j].Start) {
			return out[i].Start.Before(out[j].Start)
		}
		return out[i].Floor < out[j].Floor
	})
	return out
}

// MeanStd returns the arithmetic mean and the sample standard deviation.
// The deviation is 0 when fewer than two values are given.
func MeanStd(vals []float64) (mean, std float64) {
	if len(vals) == 0 {
		return 0, 0
	}
	var sum float64
	for _, v := range vals {
		sum += v
	}
	mean = sum / float64(len(vals))
	if len(vals) < 2 {
		return mean, 0
	}
	var sq float64
	for _, v := range vals {
		d := v - mean
		sq += d * d
	}
	return mean, math.Sqrt(sq / float64(len(vals)-1))
}

func minMax(vals []float64) (lo, hi float64) {
	lo, hi = math.Inf(1), math.Inf(-1)
	for _, v := range vals {
		lo = math.Min(lo, v)
		hi = math.Max(hi, v)
	}
	return lo, hi
}

// Floors returns the distinct floor labels in sorted order.
func Floors(readings []types.Reading) []string {
	seen := make(map[string]struct{})
	for _, r := range readings {
		seen[r.Floor] = struct{}{}
	}
	out := make([]string, 0, len(seen))
	for f := range seen {
		out = append(out, f)
	}
	sort.Strings(out)
	return out
}

// SplitByFloor returns the buckets of each floor, keeping their order.
func SplitByFloor(buckets []Bucket) map[string][]Bucket {
	out := make(map[string][]Bucket)
	for _, b := range buckets {
		out[b.Floor] = append(out[b.Floor], b)
	}
	return out
}

// Range returns the lowest and highest value among readings. ok is false
// when there are none.
func Range(readings []types.Reading) (lo, hi float64, ok bool) {
	if len(readings) == 0 {
		return 0, 0, false
	}
	vals := make([]float64, len(readings))
	for i, r := range readings {
		vals[i] = r.Temp
	}
	lo, hi = minMax(vals)
	return lo, hi, true
}

// Round1 rounds to one decimal, the precision shown on the dashboard.
func Round1(v float64) float64 {
	return math.Round(v*10) / 10
}
