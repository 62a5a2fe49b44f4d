package service

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/stefur/tempapp/internal/homeassistant"
	"github.com/stefur/tempapp/internal/modules/temps/repository"
	"github.com/stefur/tempapp/internal/modules/temps/types"
)

const fetchSource = "fetch"

// ReadingPublisher forwards stored readings, typically over MQTT.
type ReadingPublisher interface {
	PublishReading(msg types.ReadingMessage) error
}

type FetcherOptions struct {
	Sensors  []string
	Location *time.Location
	// Publisher is optional.
	Publisher ReadingPublisher
	Logger    *slog.Logger
	Now       func() time.Time
}

// Fetcher runs one acquisition batch: read every sensor, then append all
// readings under a single timestamp.
type Fetcher struct {
	client     homeassistant.Client
	repository repository.TempsRepository
	publisher  ReadingPublisher
	sensors    []string
	loc        *time.Location
	logger     *slog.Logger
	now        func() time.Time
	newID      func() string
}

type FetchResult struct {
	BatchID  string          `json:"batch_id"`
	Time     time.Time       `json:"time"`
	Readings []types.Reading `json:"readings"`
	Inserted int             `json:"inserted"`
}

func NewFetcher(client homeassistant.Client, repository repository.TempsRepository, opts FetcherOptions) *Fetcher {
	f := &Fetcher{
		client:     client,
		repository: repository,
		publisher:  opts.Publisher,
		sensors:    append([]string(nil), opts.Sensors...),
		loc:        opts.Location,
		logger:     opts.Logger,
		now:        opts.Now,
		newID:      uuid.NewString,
	}
	if f.loc == nil {
		f.loc = time.UTC
	}
	if f.logger == nil {
		f.logger = slog.Default()
	}
	if f.now == nil {
		f.now = time.Now
	}
	return f
}

// Run fetches every sensor in order and stores the batch. The first sensor
// error aborts the run before anything is written. Publishing is best
// effort: failures are logged and do not fail the run.
func (f *Fetcher) Run(ctx context.Context) (FetchResult, error) {
	if len(f.sensors) == 0 {
		return FetchResult{}, fmt.Errorf("no sensors configured")
	}
	now := f.now().In(f.loc)
	batchID := f.newID()
	logger := f.logger.With("batch_id", batchID)

	readings := make([]types.Reading, 0, len(f.sensors))
	entities := make(map[string]string, len(f.sensors))
	for _, entity := range f.sensors {
		st, err := f.client.Temperature(ctx, entity)
		if err != nil {
			return FetchResult{}, fmt.Errorf("fetch %s: %w", entity, err)
		}
		if other, dup := entities[st.Floor]; dup {
			return FetchResult{}, fmt.Errorf("fetch %s: floor %q already reported by %s", entity, st.Floor, other)
		}
		entities[st.Floor] = entity
		readings = append(readings, types.Reading{Time: now, Floor: st.Floor, Temp: st.Temp})
		logger.Debug("sensor fetched", "entity", entity, "floor", st.Floor, "temp", st.Temp)
	}

	inserted, err := f.repository.InsertReadings(ctx, readings)
	if err != nil {
		return FetchResult{}, fmt.Errorf("store readings: %w", err)
	}

	batch := types.Batch{ID: batchID, Time: now, Source: fetchSource, Readings: inserted}
	if err := f.repository.InsertBatch(ctx, batch); err != nil {
		logger.Warn("failed to record fetch batch", "error", err)
	}

	if f.publisher != nil {
		for i, r := range readings {
			msg := types.ReadingMessage{
				Entity:  f.sensors[i],
				Floor:   r.Floor,
				Time:    r.Time,
				Temp:    r.Temp,
				BatchID: batchID,
			}
			if err := f.publisher.PublishReading(msg); err != nil {
				logger.Warn("failed to publish reading", "entity", msg.Entity, "error", err)
			}
		}
	}

	logger.Info("fetch batch stored",
		"time", now,
		"sensors", len(f.sensors),
		"inserted", inserted,
	)
	return FetchResult{BatchID: batchID, Time: now, Readings: readings, Inserted: inserted}, nil
}
