package controller

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"time"

	"github.com/stefur/tempapp/internal/modules/temps/repository"
	"github.com/stefur/tempapp/internal/modules/temps/views"
	"github.com/stefur/tempapp/internal/utils"
)

func (c *tempsControllerImpl) handleDashboard(w http.ResponseWriter, r *http.Request) {
	at, err := parseTimeQuery(r, "time", c.service.Location())
	if err != nil {
		utils.WriteError(w, http.StatusBadRequest, err.Error())
		return
	}
	floor := r.URL.Query().Get("floor")

	data, err := c.dashboardData(r.Context(), at, floor)
	if errors.Is(err, repository.ErrNoData) {
		data, err = &views.DashboardData{Empty: true}, nil
	}
	if err != nil {
		writeServiceError(w, "dashboard", err)
		return
	}

	if err := utils.WriteHTML(w, func(out io.Writer) error { return views.RenderDashboard(out, data) }); err != nil {
		slog.Error("dashboard template render failed", "error", err)
		utils.WriteError(w, http.StatusInternalServerError, "failed to render page")
	}
}

func (c *tempsControllerImpl) dashboardData(ctx context.Context, at time.Time, floor string) (*views.DashboardData, error) {
	status, err := c.service.Status(ctx, at)
	if err != nil {
		return nil, err
	}
	day, err := c.service.Day(ctx)
	if err != nil {
		return nil, err
	}
	heatmap, err := c.service.Heatmap(ctx, floor)
	if err != nil {
		return nil, err
	}
	return &views.DashboardData{Status: status, Day: day, Heatmap: heatmap}, nil
}

func (c *tempsControllerImpl) handleLongterm(w http.ResponseWriter, r *http.Request) {
	from, to, err := parseRangeQuery(r, c.service.Location())
	if err != nil {
		utils.WriteError(w, http.StatusBadRequest, err.Error())
		return
	}

	data := &views.LongtermData{}
	daily, err := c.service.Daily(r.Context(), from, to)
	switch {
	case errors.Is(err, repository.ErrNoData):
		data.Empty = true
	case err != nil:
		writeServiceError(w, "long-term series", err)
		return
	default:
		data.Daily = daily
		data.From = dateValue(daily.From)
		data.To = dateValue(daily.To)
	}

	if err := utils.WriteHTML(w, func(out io.Writer) error { return views.RenderLongterm(out, data) }); err != nil {
		slog.Error("longterm template render failed", "error", err)
		utils.WriteError(w, http.StatusInternalServerError, "failed to render page")
	}
}

func (c *tempsControllerImpl) handleStatusPartial(w http.ResponseWriter, r *http.Request) {
	at, err := parseTimeQuery(r, "time", c.service.Location())
	if err != nil {
		utils.WriteError(w, http.StatusBadRequest, err.Error())
		return
	}

	status, err := c.service.Status(r.Context(), at)
	if err != nil && !errors.Is(err, repository.ErrNoData) {
		writeServiceError(w, "status", err)
		return
	}

	if err := utils.WriteHTML(w, func(out io.Writer) error { return views.RenderStatusPartial(out, &status) }); err != nil {
		slog.Error("status partial render failed", "error", err)
		utils.WriteError(w, http.StatusInternalServerError, "failed to render")
	}
}

func (c *tempsControllerImpl) handleFloors(w http.ResponseWriter, r *http.Request) {
	floors, err := c.service.Floors(r.Context())
	if err != nil {
		writeServiceError(w, "floors", err)
		return
	}
	utils.WriteJSON(w, http.StatusOK, floors)
}

func (c *tempsControllerImpl) handleStatus(w http.ResponseWriter, r *http.Request) {
	at, err := parseTimeQuery(r, "time", c.service.Location())
	if err != nil {
		utils.WriteError(w, http.StatusBadRequest, err.Error())
		return
	}
	status, err := c.service.Status(r.Context(), at)
	if err != nil {
		writeServiceError(w, "status", err)
		return
	}
	utils.WriteJSON(w, http.StatusOK, status)
}

func (c *tempsControllerImpl) handleDay(w http.ResponseWriter, r *http.Request) {
	day, err := c.service.Day(r.Context())
	if err != nil {
		writeServiceError(w, "day", err)
		return
	}
	utils.WriteJSON(w, http.StatusOK, day)
}

func (c *tempsControllerImpl) handleHeatmap(w http.ResponseWriter, r *http.Request) {
	heatmap, err := c.service.Heatmap(r.Context(), r.URL.Query().Get("floor"))
	if err != nil {
		writeServiceError(w, "heatmap", err)
		return
	}
	utils.WriteJSON(w, http.StatusOK, heatmap)
}

func (c *tempsControllerImpl) handleDaily(w http.ResponseWriter, r *http.Request) {
	from, to, err := parseRangeQuery(r, c.service.Location())
	if err != nil {
		utils.WriteError(w, http.StatusBadRequest, err.Error())
		return
	}
	daily, err := c.service.Daily(r.Context(), from, to)
	if err != nil {
		writeServiceError(w, "daily", err)
		return
	}
	utils.WriteJSON(w, http.StatusOK, daily)
}

type colorsResponse struct {
	Temp       float64 `json:"temp"`
	Background string  `json:"background"`
	Foreground string  `json:"foreground"`
}

func (c *tempsControllerImpl) handleColors(w http.ResponseWriter, r *http.Request) {
	temp, err := parseTempQuery(r)
	if err != nil {
		utils.WriteError(w, http.StatusBadRequest, err.Error())
		return
	}
	colors, err := c.service.Colors(temp)
	if err != nil {
		writeServiceError(w, "colors", err)
		return
	}
	utils.WriteJSON(w, http.StatusOK, colorsResponse{Temp: temp, Background: colors.Background, Foreground: colors.Foreground})
}
