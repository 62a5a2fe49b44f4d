package controller

import (
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/stefur/tempapp/internal/colormap"
	"github.com/stefur/tempapp/internal/modules/temps/repository"
	"github.com/stefur/tempapp/internal/modules/temps/service"
	"github.com/stefur/tempapp/internal/utils"
)

// localMinuteLayout is what <select> and datetime-local inputs submit.
const localMinuteLayout = "2006-01-02T15:04"

// parseTimeQuery reads an RFC3339 or local "2006-01-02T15:04" value. A
// missing parameter yields the zero time.
func parseTimeQuery(r *http.Request, key string, loc *time.Location) (time.Time, error) {
	s := strings.TrimSpace(r.URL.Query().Get(key))
	if s == "" {
		return time.Time{}, nil
	}
	if t, err := time.Parse(time.RFC3339, s); err == nil {
		return t, nil
	}
	t, err := time.ParseInLocation(localMinuteLayout, s, loc)
	if err != nil {
		return time.Time{}, fmt.Errorf("invalid '%s' (expected RFC3339 or %s)", key, localMinuteLayout)
	}
	return t, nil
}

// parseDateQuery reads a "2006-01-02" value as local midnight.
func parseDateQuery(r *http.Request, key string, loc *time.Location) (time.Time, error) {
	s := strings.TrimSpace(r.URL.Query().Get(key))
	if s == "" {
		return time.Time{}, nil
	}
	t, err := time.ParseInLocation(time.DateOnly, s, loc)
	if err != nil {
		return time.Time{}, fmt.Errorf("invalid '%s' (expected %s)", key, time.DateOnly)
	}
	return t, nil
}

// parseRangeQuery reads from/to dates and rejects from > to.
func parseRangeQuery(r *http.Request, loc *time.Location) (from, to time.Time, err error) {
	if from, err = parseDateQuery(r, "from", loc); err != nil {
		return time.Time{}, time.Time{}, err
	}
	if to, err = parseDateQuery(r, "to", loc); err != nil {
		return time.Time{}, time.Time{}, err
	}
	if !from.IsZero() && !to.IsZero() && from.After(to) {
		return time.Time{}, time.Time{}, errors.New("'from' must be <= 'to'")
	}
	return from, to, nil
}

// parseTempQuery accepts a decimal point or a decimal comma.
func parseTempQuery(r *http.Request) (float64, error) {
	s := strings.TrimSpace(r.URL.Query().Get("temp"))
	if s == "" {
		return 0, errors.New("missing 'temp'")
	}
	v, err := strconv.ParseFloat(strings.Replace(s, ",", ".", 1), 64)
	if err != nil {
		return 0, errors.New("invalid 'temp' (expected number)")
	}
	return v, nil
}

// writeServiceError maps service and repository errors to HTTP statuses.
func writeServiceError(w http.ResponseWriter, op string, err error) {
	switch {
	case errors.Is(err, repository.ErrNoData):
		utils.WriteError(w, http.StatusNotFound, "no readings stored")
	case errors.Is(err, service.ErrOutOfRange),
		errors.Is(err, service.ErrInvalidRange),
		errors.Is(err, service.ErrUnknownFloor),
		errors.Is(err, colormap.ErrInvalidInput):
		utils.WriteError(w, http.StatusBadRequest, err.Error())
	default:
		slog.Error(op+" failed", "error", err)
		utils.WriteError(w, http.StatusInternalServerError, "failed to load "+op)
	}
}

func dateValue(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.Format(time.DateOnly)
}
