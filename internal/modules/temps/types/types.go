package types

import "time"

// HouseLabel names the whole-house series (all floors together).
const HouseLabel = "Huset"

// Reading is one temperature sample for one floor. Readings are immutable
// once stored.
type Reading struct {
	Time  time.Time `json:"time"`
	Floor string    `json:"floor"`
	Temp  float64   `json:"temp"`
}

// ReadingMessage is the MQTT payload carrying a single reading.
type ReadingMessage struct {
	Entity  string    `json:"entity,omitempty"`
	Floor   string    `json:"floor"`
	Time    time.Time `json:"time"`
	Temp    float64   `json:"temp"`
	BatchID string    `json:"batch_id,omitempty"`
}

// Reading converts the message to a storable reading.
func (m ReadingMessage) Reading() Reading {
	return Reading{Time: m.Time, Floor: m.Floor, Temp: m.Temp}
}

// Batch records one run of the acquisition job.
type Batch struct {
	ID       string    `json:"id"`
	Time     time.Time `json:"time"`
	Source   string    `json:"source"`
	Readings int       `json:"readings"`
}

// Tile is one floor's temperature at the selected hour, with the colours it
// is drawn in.
type Tile struct {
	Floor      string  `json:"floor"`
	Temp       float64 `json:"temp"`
	Label      string  `json:"label"`
	Background string  `json:"background"`
	Foreground string  `json:"foreground"`
}

// Status is the "hour by hour" panel: tiles for the selected hour and the
// hours that may be selected (oldest first, latest last).
type Status struct {
	Selected time.Time   `json:"selected"`
	Latest   time.Time   `json:"latest"`
	Heading  string      `json:"heading"`
	Options  []time.Time `json:"options"`
	Tiles    []Tile      `json:"tiles"`

	// LastFetch is nil until the acquisition job has recorded a batch in
	// this store.
	LastFetch *Batch `json:"last_fetch,omitempty"`
}

type FloorPoint struct {
	Floor string  `json:"floor"`
	Temp  float64 `json:"temp"`
}

// DayHour is one hour of the last-24-hours view: the house mean plus the
// min/max connector and the individual floors.
type DayHour struct {
	Start     time.Time    `json:"start"`
	Label     string       `json:"label"`
	HouseMean float64      `json:"house_mean"`
	Min       float64      `json:"min"`
	Max       float64      `json:"max"`
	Floors    []FloorPoint `json:"floors"`
}

type Day struct {
	From    time.Time `json:"from"`
	To      time.Time `json:"to"`
	Floors  []string  `json:"floors"`
	Hours   []DayHour `json:"hours"`
	AxisMin float64   `json:"axis_min"`
	AxisMax float64   `json:"axis_max"`
}

type HeatmapCell struct {
	Hour       int     `json:"hour"`
	Temp       float64 `json:"temp"`
	Valid      bool    `json:"valid"`
	Label      string  `json:"label,omitempty"`
	Background string  `json:"background,omitempty"`
	Foreground string  `json:"foreground,omitempty"`
}

type HeatmapDay struct {
	Date  time.Time     `json:"date"`
	ISO   string        `json:"iso"`
	Label string        `json:"label"`
	Cells []HeatmapCell `json:"cells"`
}

// Heatmap is the seven-day hour-by-hour grid for one floor or the whole
// house.
type Heatmap struct {
	Floor    string       `json:"floor"`
	Choices  []string     `json:"choices"`
	From     time.Time    `json:"from"`
	To       time.Time    `json:"to"`
	ScaleMin float64      `json:"scale_min"`
	ScaleMax float64      `json:"scale_max"`
	Days     []HeatmapDay `json:"days"`
}

// DailyPoint is one floor on one day of the long-term series. Mean and the
// std band are rounded to one decimal.
type DailyPoint struct {
	Day      time.Time `json:"day"`
	Label    string    `json:"label"`
	Floor    string    `json:"floor"`
	Mean     float64   `json:"mean"`
	Std      float64   `json:"std"`
	StdPlus  float64   `json:"std_plus"`
	StdMinus float64   `json:"std_minus"`
	Rolling  float64   `json:"rolling_mean"`
	Count    int       `json:"count"`
}

type Daily struct {
	From        time.Time               `json:"from"`
	To          time.Time               `json:"to"`
	DefaultFrom time.Time               `json:"default_from"`
	DefaultTo   time.Time               `json:"default_to"`
	Floors      []string                `json:"floors"`
	Series      map[string][]DailyPoint `json:"series"`
	Readings    int                     `json:"readings"`
}
