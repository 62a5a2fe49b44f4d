package temps

import (
	"database/sql"
	"net/http"

	"github.com/stefur/tempapp/internal/modules/temps/controller"
	"github.com/stefur/tempapp/internal/modules/temps/repository"
	"github.com/stefur/tempapp/internal/modules/temps/service"
	"github.com/stefur/tempapp/internal/mqtt"
)

// RegisterFeature wires the temps module onto mux. subscriber is nil when
// MQTT ingest is disabled.
func RegisterFeature(mux *http.ServeMux, db *sql.DB, opts service.Options, subscriber mqtt.ReadingSubscriber) *service.Service {
	tempsRepository := repository.NewRepository(db)
	tempsService := service.NewService(tempsRepository, opts)
	if subscriber != nil {
		tempsService.Register(subscriber)
	}
	tempsController := controller.NewTempsController(tempsService)
	tempsController.RegisterRoutes(mux)
	return tempsService
}
