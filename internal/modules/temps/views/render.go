package views

import (
	"embed"
	"errors"
	"html/template"
	"io"
	"io/fs"
	"time"

	"github.com/stefur/tempapp/internal/modules/temps/types"
	"github.com/stefur/tempapp/internal/utils"
)

//go:embed templates
var viewsFS embed.FS

var dashboardTmpl *template.Template

var funcs = template.FuncMap{
	"comma": utils.DecimalComma,
	"hhmm":  func(t time.Time) string { return t.Format("15:04") },
	"hourValue": func(t time.Time) string {
		return t.Format("2006-01-02T15:04")
	},
	"hourLabel": utils.HourDayLabel,
	"sameTime":  func(a, b time.Time) bool { return a.Equal(b) },
	"floorTemp": floorTemp,
}

// floorTemp returns the formatted temperature of floor in h, or "–" when the
// floor reported nothing that hour.
func floorTemp(h types.DayHour, floor string) string {
	for _, p := range h.Floors {
		if p.Floor == floor {
			return utils.DecimalComma(p.Temp)
		}
	}
	return "–"
}

// loadTemplatesFromFS loads dashboard templates from the given fs and dir.
// Used by LoadTemplates and by tests to simulate failure scenarios.
func loadTemplatesFromFS(fsys fs.FS, dir string) error {
	sub, err := fs.Sub(fsys, dir)
	if err != nil {
		return err
	}
	tmpl, err := template.New("").Funcs(funcs).ParseFS(sub, "*.html", "partials/*.html")
	if err != nil {
		return err
	}
	dashboardTmpl = tmpl
	return nil
}

// LoadTemplates loads embedded dashboard templates. Call during startup before
// serving requests; if it returns an error, do not start the server.
func LoadTemplates() error {
	return loadTemplatesFromFS(viewsFS, "templates")
}

// DashboardData is the view model for the front page. Empty is set when no
// readings are stored yet.
type DashboardData struct {
	Empty   bool
	Status  types.Status
	Day     types.Day
	Heatmap types.Heatmap
}

// LongtermData is the view model for the long-term page. From and To are the
// date input values (2006-01-02).
type LongtermData struct {
	Empty bool
	Daily types.Daily
	From  string
	To    string
}

func RenderDashboard(w io.Writer, data *DashboardData) error {
	if dashboardTmpl == nil {
		return errors.New("dashboard template not loaded: call views.LoadTemplates during startup")
	}
	return dashboardTmpl.ExecuteTemplate(w, "dashboard.html", data)
}

func RenderLongterm(w io.Writer, data *LongtermData) error {
	if dashboardTmpl == nil {
		return errors.New("longterm template not loaded: call views.LoadTemplates during startup")
	}
	return dashboardTmpl.ExecuteTemplate(w, "longterm.html", data)
}

// RenderStatusPartial executes only the status tiles partial into w.
// Use for HTMX fragment refresh when another hour is selected.
func RenderStatusPartial(w io.Writer, data *types.Status) error {
	if dashboardTmpl == nil {
		return errors.New("dashboard template not loaded: call views.LoadTemplates during startup")
	}
	return dashboardTmpl.ExecuteTemplate(w, "partials/status.html", data)
}
