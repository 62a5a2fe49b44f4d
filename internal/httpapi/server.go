package httpapi

import (
	"net/http"
	"time"

	"github.com/stefur/tempapp/internal/config"
)

func NewServer(cfg config.Config, mux *http.ServeMux) *http.Server {
	return &http.Server{
		Addr:              cfg.HTTPAddr,
		Handler:           wrap(mux),
		ReadHeaderTimeout: 10 * time.Second,
	}
}
