// Package homeassistant reads sensor states from a home automation server's
// REST API.
package homeassistant

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"math"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"
)

// ErrUnavailable is returned when a sensor reports no usable value.
var ErrUnavailable = errors.New("sensor unavailable")

// Client reads one sensor at a time.
type Client interface {
	// Temperature returns the floor label (the sensor's friendly name) and
	// the current temperature rounded to one decimal.
	Temperature(ctx context.Context, entity string) (SensorState, error)
}

// SensorState is the decoded subset of a state object.
type SensorState struct {
	Entity      string
	Floor       string
	Temp        float64
	LastUpdated time.Time
}

type stateResponse struct {
	EntityID    string    `json:"entity_id"`
	State       string    `json:"state"`
	LastUpdated time.Time `json:"last_updated"`
	Attributes  struct {
		FriendlyName string `json:"friendly_name"`
	} `json:"attributes"`
}

type Options struct {
	BaseURL string
	Token   string
	Headers map[string]string
	Timeout time.Duration
}

type restClient struct {
	baseURL    string
	headers    http.Header
	httpClient *http.Client
	logger     *slog.Logger
}

func NewClient(opts Options, logger *slog.Logger) Client {
	if logger == nil {
		logger = slog.Default()
	}
	timeout := opts.Timeout
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	h := make(http.Header)
	for k, v := range opts.Headers {
		h.Set(k, v)
	}
	if opts.Token != "" {
		h.Set("Authorization", "Bearer "+opts.Token)
	}
	if h.Get("Accept") == "" {
		h.Set("Accept", "application/json")
	}
	return &restClient{
		baseURL:    strings.TrimRight(opts.BaseURL, "/"),
		headers:    h,
		httpClient: &http.Client{Timeout: timeout},
		logger:     logger,
	}
}

func (c *restClient) Temperature(ctx context.Context, entity string) (SensorState, error) {
	start := time.Now()
	u := c.baseURL + "/api/states/sensor." + url.PathEscape(entity)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return SensorState{}, fmt.Errorf("create request for %s: %w", entity, err)
	}
	req.Header = c.headers.Clone()

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return SensorState{}, fmt.Errorf("get %s: %w", entity, err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return SensorState{}, fmt.Errorf("get %s: status %d: %s", entity, resp.StatusCode, strings.TrimSpace(string(body)))
	}

	var sr stateResponse
	if err := json.NewDecoder(resp.Body).Decode(&sr); err != nil {
		return SensorState{}, fmt.Errorf("decode %s: %w", entity, err)
	}

	st, err := parseState(entity, sr)
	if err != nil {
		return SensorState{}, err
	}
	c.logger.Debug("sensor read",
		"entity", entity,
		"floor", st.Floor,
		"temp", st.Temp,
		"duration_ms", time.Since(start).Milliseconds())
	return st, nil
}

func parseState(entity string, sr stateResponse) (SensorState, error) {
	floor := strings.TrimSpace(sr.Attributes.FriendlyName)
	if floor == "" {
		return SensorState{}, fmt.Errorf("%s: missing friendly_name", entity)
	}
	raw := strings.TrimSpace(sr.State)
	switch raw {
	case "", "unknown", "unavailable":
		return SensorState{}, fmt.Errorf("%s: state %q: %w", entity, raw, ErrUnavailable)
	}
	v, err := strconv.ParseFloat(raw, 64)
	if err != nil {
		return SensorState{}, fmt.Errorf("%s: parse state %q: %w", entity, raw, err)
	}
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return SensorState{}, fmt.Errorf("%s: state %q: %w", entity, raw, ErrUnavailable)
	}
	return SensorState{
		Entity:      entity,
		Floor:       floor,
		Temp:        math.Round(v*10) / 10,
		LastUpdated: sr.LastUpdated,
	}, nil
}
