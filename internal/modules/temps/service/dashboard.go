package service

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"time"

	"github.com/stefur/tempapp/internal/aggregate"
	"github.com/stefur/tempapp/internal/cache"
	"github.com/stefur/tempapp/internal/colormap"
	"github.com/stefur/tempapp/internal/modules/temps/repository"
	"github.com/stefur/tempapp/internal/modules/temps/types"
	"github.com/stefur/tempapp/internal/utils"
)

func (s *Service) Floors(ctx context.Context) ([]string, error) {
	floors, err := s.repository.GetFloors(ctx)
	if err != nil {
		return nil, err
	}
	if floors == nil {
		floors = []string{}
	}
	return floors, nil
}

// latestHour returns the newest stored timestamp truncated to its local hour.
func (s *Service) latestHour(ctx context.Context) (latest, hour time.Time, err error) {
	latest, err = s.repository.GetLatestTime(ctx)
	if err != nil {
		return time.Time{}, time.Time{}, err
	}
	latest = latest.In(s.loc)
	return latest, aggregate.Truncate(latest, aggregate.Hour, s.loc), nil
}

// Status returns the tiles for the hour containing at. A zero at selects the
// latest stored hour. Selectable hours are the latest hour and the 24 before
// it.
func (s *Service) Status(ctx context.Context, at time.Time) (types.Status, error) {
	latest, last, err := s.latestHour(ctx)
	if err != nil {
		return types.Status{}, err
	}
	first := last.Add(-dayHours * time.Hour)

	selected := last
	if !at.IsZero() {
		selected = aggregate.Truncate(at, aggregate.Hour, s.loc)
		if selected.Before(first) || selected.After(last) {
			return types.Status{}, fmt.Errorf("%w: %s not in [%s, %s]", ErrOutOfRange,
				selected.Format(time.RFC3339), first.Format(time.RFC3339), last.Format(time.RFC3339))
		}
	}

	options := make([]time.Time, 0, dayHours+1)
	for h := first; !h.After(last); h = h.Add(time.Hour) {
		options = append(options, h)
	}

	readings, err := s.repository.GetReadings(ctx, selected, selected.Add(time.Hour), "")
	if err != nil {
		return types.Status{}, err
	}
	buckets := aggregate.ByFloor(readings, aggregate.Hour, s.loc)
	tiles := make([]types.Tile, 0, len(buckets))
	for _, b := range buckets {
		tiles = append(tiles, newTile(b.Floor, b.Mean))
	}

	return types.Status{
		Selected:  selected,
		Latest:    latest,
		Heading:   utils.StatusHeading(selected),
		Options:   options,
		Tiles:     tiles,
		LastFetch: s.lastFetch(ctx),
	}, nil
}

// lastFetch returns the newest recorded batch, or nil when none is stored
// or it cannot be read.
func (s *Service) lastFetch(ctx context.Context) *types.Batch {
	batch, err := s.repository.GetLastBatch(ctx)
	if errors.Is(err, repository.ErrNoData) {
		return nil
	}
	if err != nil {
		s.logger.Warn("last fetch batch unavailable", "error", err)
		return nil
	}
	batch.Time = batch.Time.In(s.loc)
	return &batch
}

func newTile(floor string, mean float64) types.Tile {
	temp := aggregate.Round1(mean)
	colors := colormap.DetermineColors(temp)
	return types.Tile{
		Floor:      floor,
		Temp:       temp,
		Label:      utils.DecimalComma(temp),
		Background: colors.Background,
		Foreground: colors.Foreground,
	}
}

// Day returns the last 24 hours up to and including the latest stored hour.
func (s *Service) Day(ctx context.Context) (types.Day, error) {
	_, last, err := s.latestHour(ctx)
	if err != nil {
		return types.Day{}, err
	}
	from := last.Add(-dayHours * time.Hour)
	to := last.Add(time.Hour)

	readings, err := s.repository.GetReadings(ctx, from, to, "")
	if err != nil {
		return types.Day{}, err
	}

	house := aggregate.Overall(readings, aggregate.Hour, s.loc)
	perFloor := aggregate.SplitByFloor(aggregate.ByFloor(readings, aggregate.Hour, s.loc))
	floors := aggregate.Floors(readings)

	hours := make([]types.DayHour, 0, len(house))
	for i, b := range house {
		label := b.Start.Format("15:04")
		if i == 0 {
			label = utils.HourDayLabel(b.Start)
		}
		h := types.DayHour{
			Start:     b.Start,
			Label:     label,
			HouseMean: aggregate.Round1(b.Mean),
			Min:       b.Min,
			Max:       b.Max,
		}
		for _, f := range floors {
			for _, fb := range perFloor[f] {
				if fb.Start.Equal(b.Start) {
					h.Floors = append(h.Floors, types.FloorPoint{Floor: f, Temp: aggregate.Round1(fb.Mean)})
					break
				}
			}
		}
		hours = append(hours, h)
	}

	day := types.Day{From: from, To: to, Floors: floors, Hours: hours}
	scale := colormap.Scale{Min: colormap.ComfortMin, Max: colormap.ComfortMax}
	if lo, hi, ok := aggregate.Range(readings); ok {
		scale = colormap.ScaleForRange(lo, hi)
	}
	day.AxisMin, day.AxisMax = scale.Min, scale.Max
	return day, nil
}

// Heatmap returns the hour-by-day grid from local midnight six days before
// the latest day through the end of the latest day. floor is a stored floor
// label, or empty or the house label for all floors.
func (s *Service) Heatmap(ctx context.Context, floor string) (types.Heatmap, error) {
	if floor == "" {
		floor = types.HouseLabel
	}
	floors, err := s.Floors(ctx)
	if err != nil {
		return types.Heatmap{}, err
	}
	if floor != types.HouseLabel && !slices.Contains(floors, floor) {
		return types.Heatmap{}, fmt.Errorf("%w: %q", ErrUnknownFloor, floor)
	}

	latest, _, err := s.latestHour(ctx)
	if err != nil {
		return types.Heatmap{}, err
	}

	key := cache.Key("heatmap", floor, cache.TimeKey(latest))
	hm, err := cache.GetOrCompute(ctx, s.cache, s.logger, key, s.ttl, func(ctx context.Context) (types.Heatmap, error) {
		return s.computeHeatmap(ctx, latest, floor)
	})
	if err != nil {
		return types.Heatmap{}, err
	}
	hm.Choices = append([]string{types.HouseLabel}, floors...)
	return hm, nil
}

func (s *Service) computeHeatmap(ctx context.Context, latest time.Time, floor string) (types.Heatmap, error) {
	lastDay := aggregate.Truncate(latest, aggregate.Day, s.loc)
	from := lastDay.AddDate(0, 0, -(heatmapDays - 1))
	to := lastDay.AddDate(0, 0, 1)

	filter := floor
	if filter == types.HouseLabel {
		filter = ""
	}
	readings, err := s.repository.GetReadings(ctx, from, to, filter)
	if err != nil {
		return types.Heatmap{}, err
	}

	grid := aggregate.Heatmap(readings, from, heatmapDays, s.loc)
	for d := range grid.Cells {
		for h := range grid.Cells[d] {
			grid.Cells[d][h].Mean = aggregate.Round1(grid.Cells[d][h].Mean)
		}
	}
	scale := colormap.Scale{Min: colormap.ComfortMin, Max: colormap.ComfortMax}
	if lo, hi, ok := grid.Range(); ok {
		scale = colormap.ScaleForRange(lo, hi)
	}

	days := make([]types.HeatmapDay, len(grid.Days))
	for d, date := range grid.Days {
		cells := make([]types.HeatmapCell, len(grid.Cells[d]))
		for h, c := range grid.Cells[d] {
			cells[h] = types.HeatmapCell{Hour: h, Temp: c.Mean, Valid: c.Valid}
			if !c.Valid {
				continue
			}
			colors := colormap.MapWithin(scale, c.Mean)
			cells[h].Label = utils.DecimalComma(c.Mean)
			cells[h].Background = colors.Background
			cells[h].Foreground = colors.Foreground
		}
		days[d] = types.HeatmapDay{
			Date:  date,
			ISO:   date.Format(time.DateOnly),
			Label: utils.SwedishDay(date),
			Cells: cells,
		}
	}

	return types.Heatmap{
		Floor:    floor,
		From:     from,
		To:       to,
		ScaleMin: scale.Min,
		ScaleMax: scale.Max,
		Days:     days,
	}, nil
}

// DailyDefaults returns the default long-term range: one month back from
// the latest stored day.
func (s *Service) DailyDefaults(ctx context.Context) (from, to time.Time, err error) {
	latest, _, err := s.latestHour(ctx)
	if err != nil {
		return time.Time{}, time.Time{}, err
	}
	from, to = s.dailyDefaults(latest)
	return from, to, nil
}

func (s *Service) dailyDefaults(latest time.Time) (from, to time.Time) {
	to = aggregate.Truncate(latest, aggregate.Day, s.loc)
	return to.AddDate(0, -1, 0), to
}

// Daily returns per-day, per-floor statistics for the local days from..to,
// both inclusive. Zero values select the defaults; a lone to is preceded by
// the default one-month span.
func (s *Service) Daily(ctx context.Context, from, to time.Time) (types.Daily, error) {
	latest, _, err := s.latestHour(ctx)
	if err != nil {
		return types.Daily{}, err
	}
	defFrom, defTo := s.dailyDefaults(latest)
	switch {
	case from.IsZero() && to.IsZero():
		from, to = defFrom, defTo
	case from.IsZero():
		from = aggregate.Truncate(to, aggregate.Day, s.loc).AddDate(0, -1, 0)
	case to.IsZero():
		to = defTo
	}
	from = aggregate.Truncate(from, aggregate.Day, s.loc)
	to = aggregate.Truncate(to, aggregate.Day, s.loc)
	if from.After(to) {
		return types.Daily{}, fmt.Errorf("%w: %s > %s", ErrInvalidRange, from.Format(time.DateOnly), to.Format(time.DateOnly))
	}

	count, err := s.repository.GetReadingsCount(ctx, from, to.AddDate(0, 0, 1))
	if err != nil {
		return types.Daily{}, err
	}
	daily := types.Daily{From: from, To: to, Floors: []string{}, Series: map[string][]types.DailyPoint{}}
	if count > 0 {
		key := cache.Key("daily", from.Format(time.DateOnly), to.Format(time.DateOnly), cache.TimeKey(latest))
		daily, err = cache.GetOrCompute(ctx, s.cache, s.logger, key, s.ttl, func(ctx context.Context) (types.Daily, error) {
			return s.computeDaily(ctx, from, to)
		})
		if err != nil {
			return types.Daily{}, err
		}
	}
	daily.Readings = count
	daily.DefaultFrom, daily.DefaultTo = defFrom, defTo
	return daily, nil
}

func (s *Service) computeDaily(ctx context.Context, from, to time.Time) (types.Daily, error) {
	readings, err := s.repository.GetReadings(ctx, from, to.AddDate(0, 0, 1), "")
	if err != nil {
		return types.Daily{}, err
	}

	perFloor := aggregate.SplitByFloor(aggregate.ByFloor(readings, aggregate.Day, s.loc))
	floors := aggregate.Floors(readings)
	series := make(map[string][]types.DailyPoint, len(floors))
	for _, f := range floors {
		buckets := perFloor[f]
		rolling := aggregate.Rolling(aggregate.Means(buckets), rollingWindow)
		points := make([]types.DailyPoint, len(buckets))
		for i, b := range buckets {
			mean := aggregate.Round1(b.Mean)
			points[i] = types.DailyPoint{
				Day:      b.Start,
				Label:    utils.SwedishDate(b.Start),
				Floor:    f,
				Mean:     mean,
				Std:      b.Std,
				StdPlus:  aggregate.Round1(mean + b.Std),
				StdMinus: aggregate.Round1(mean - b.Std),
				Rolling:  aggregate.Round1(rolling[i].Mean),
				Count:    b.Count,
			}
		}
		series[f] = points
	}

	return types.Daily{From: from, To: to, Floors: floors, Series: series}, nil
}

// Colors maps an arbitrary temperature to its tile colours.
func (s *Service) Colors(temp float64) (colormap.ColorPair, error) {
	return colormap.DetermineColorsChecked(temp)
}
