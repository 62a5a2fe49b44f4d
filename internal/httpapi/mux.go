package httpapi

import (
	"database/sql"
	"net/http"
)

// NewMux returns a mux with /healthz and, when staticDir is set, /static/.
// mqtt may be nil when MQTT is disabled.
func NewMux(db *sql.DB, staticDir string, mqtt ConnectionChecker) *http.ServeMux {
	mux := http.NewServeMux()
	registerHealthcheck(mux, db, mqtt)
	if staticDir != "" {
		mux.Handle("GET /static/", http.StripPrefix("/static/", http.FileServer(http.Dir(staticDir))))
	}
	return mux
}
