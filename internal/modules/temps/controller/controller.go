package controller

import (
	"context"
	"net/http"
	"time"

	"github.com/stefur/tempapp/internal/colormap"
	"github.com/stefur/tempapp/internal/modules/temps/types"
)

// TempsService is the read side the handlers need.
type TempsService interface {
	Floors(ctx context.Context) ([]string, error)
	Status(ctx context.Context, at time.Time) (types.Status, error)
	Day(ctx context.Context) (types.Day, error)
	Heatmap(ctx context.Context, floor string) (types.Heatmap, error)
	Daily(ctx context.Context, from, to time.Time) (types.Daily, error)
	Colors(temp float64) (colormap.ColorPair, error)
	Location() *time.Location
}

type TempsController interface {
	RegisterRoutes(mux *http.ServeMux)
}

type tempsControllerImpl struct {
	service TempsService
}

func NewTempsController(service TempsService) TempsController {
	return &tempsControllerImpl{service: service}
}

func (c *tempsControllerImpl) RegisterRoutes(mux *http.ServeMux) {
	mux.HandleFunc("GET /{$}", c.handleDashboard)
	mux.HandleFunc("GET /longterm", c.handleLongterm)
	mux.HandleFunc("GET /partials/status", c.handleStatusPartial)

	mux.HandleFunc("GET /api/v1/floors", c.handleFloors)
	mux.HandleFunc("GET /api/v1/status", c.handleStatus)
	mux.HandleFunc("GET /api/v1/day", c.handleDay)
	mux.HandleFunc("GET /api/v1/heatmap", c.handleHeatmap)
	mux.HandleFunc("GET /api/v1/daily", c.handleDaily)
	mux.HandleFunc("GET /api/v1/colors", c.handleColors)
}
