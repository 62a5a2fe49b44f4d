package service

import (
	"errors"
	"log/slog"
	"time"

	"github.com/stefur/tempapp/internal/cache"
	"github.com/stefur/tempapp/internal/modules/temps/repository"
	"github.com/stefur/tempapp/internal/mqtt"
)

var (
	// ErrOutOfRange means a requested hour lies outside the selectable window.
	ErrOutOfRange = errors.New("time outside selectable window")
	// ErrInvalidRange means a date range ends before it starts.
	ErrInvalidRange = errors.New("from must not be after to")
	// ErrUnknownFloor means a floor filter names no stored floor.
	ErrUnknownFloor = errors.New("unknown floor")
)

const (
	heatmapDays   = 7
	rollingWindow = 7
	dayHours      = 24
)

type Options struct {
	Cache    cache.Cache
	CacheTTL time.Duration
	Location *time.Location
	Logger   *slog.Logger
}

type Service struct {
	repository repository.TempsRepository
	cache      cache.Cache
	ttl        time.Duration
	loc        *time.Location
	logger     *slog.Logger
}

func NewService(repository repository.TempsRepository, opts Options) *Service {
	s := &Service{
		repository: repository,
		cache:      opts.Cache,
		ttl:        opts.CacheTTL,
		loc:        opts.Location,
		logger:     opts.Logger,
	}
	if s.cache == nil {
		s.cache = cache.NewNoop()
	}
	if s.ttl <= 0 {
		s.ttl = 5 * time.Minute
	}
	if s.loc == nil {
		s.loc = time.UTC
	}
	if s.logger == nil {
		s.logger = slog.Default()
	}
	return s
}

// Location is the zone buckets and labels are computed in.
func (s *Service) Location() *time.Location {
	return s.loc
}

// Register attaches the ingest handler to an MQTT subscriber.
func (s *Service) Register(subscriber mqtt.ReadingSubscriber) {
	registerMQTTHandler(subscriber, s.repository, s.logger)
}
