package repository

import (
	"context"
	"database/sql"
	_ "embed"
	"errors"
	"fmt"
	"log/slog"
	"math"
	"time"

	"github.com/stefur/tempapp/internal/modules/temps/types"
)

//go:embed sql/get-floors.sql
var getFloorsSQL string

//go:embed sql/get-latest-time.sql
var getLatestTimeSQL string

//go:embed sql/get-readings.sql
var getReadingsSQL string

//go:embed sql/get-readings-count.sql
var getReadingsCountSQL string

//go:embed sql/insert-reading.sql
var insertReadingSQL string

//go:embed sql/insert-fetch-batch.sql
var insertFetchBatchSQL string

//go:embed sql/get-last-batch.sql
var getLastBatchSQL string

// TimeLayout is the stored timestamp format. It is fixed width and always
// UTC, so string comparison in SQL follows time order.
const TimeLayout = "2006-01-02T15:04:05.000Z"

// ErrNoData is returned when the store holds no readings yet.
var ErrNoData = errors.New("no readings stored")

type TempsRepository interface {
	GetFloors(ctx context.Context) ([]string, error)
	GetLatestTime(ctx context.Context) (time.Time, error)
	// GetReadings returns readings with from <= ts < to, ordered by time
	// then floor. An empty floor matches every floor.
	GetReadings(ctx context.Context, from, to time.Time, floor string) ([]types.Reading, error)
	GetReadingsCount(ctx context.Context, from, to time.Time) (int, error)
	// InsertReadings stores readings in one transaction and reports how many
	// were new. Readings already stored for the same floor and time are
	// skipped.
	InsertReadings(ctx context.Context, readings []types.Reading) (int, error)
	InsertBatch(ctx context.Context, batch types.Batch) error
	GetLastBatch(ctx context.Context) (types.Batch, error)
}

type repositoryImpl struct {
	db *sql.DB
}

func NewRepository(db *sql.DB) TempsRepository {
	return &repositoryImpl{db: db}
}

func FormatTime(t time.Time) string {
	return t.UTC().Format(TimeLayout)
}

func parseTime(s string) (time.Time, error) {
	t, err := time.Parse(TimeLayout, s)
	if err == nil {
		return t, nil
	}
	t, err2 := time.Parse(time.RFC3339Nano, s)
	if err2 != nil {
		return time.Time{}, fmt.Errorf("parse timestamp %q: %w; RFC3339Nano: %w", s, err, err2)
	}
	return t.UTC(), nil
}

func (r *repositoryImpl) GetFloors(ctx context.Context) ([]string, error) {
	rows, err := r.db.QueryContext(ctx, getFloorsSQL)
	if err != nil {
		return nil, fmt.Errorf("query floors: %w", err)
	}
	defer func() {
		if err := rows.Close(); err != nil {
			slog.Error("close floors rows", "error", err)
		}
	}()
	var out []string
	for rows.Next() {
		var f string
		if err := rows.Scan(&f); err != nil {
			return nil, err
		}
		out = append(out, f)
	}
	return out, rows.Err()
}

func (r *repositoryImpl) GetLatestTime(ctx context.Context) (time.Time, error) {
	var ts sql.NullString
	if err := r.db.QueryRowContext(ctx, getLatestTimeSQL).Scan(&ts); err != nil {
		return time.Time{}, fmt.Errorf("query latest time: %w", err)
	}
	if !ts.Valid {
		return time.Time{}, ErrNoData
	}
	return parseTime(ts.String)
}

func (r *repositoryImpl) GetReadings(ctx context.Context, from, to time.Time, floor string) ([]types.Reading, error) {
	rows, err := r.db.QueryContext(ctx, getReadingsSQL, FormatTime(from), FormatTime(to), floor)
	if err != nil {
		return nil, fmt.Errorf("query readings: %w", err)
	}
	defer func() {
		if err := rows.Close(); err != nil {
			slog.Error("close readings rows", "error", err)
		}
	}()
	return scanReadings(rows)
}

func (r *repositoryImpl) GetReadingsCount(ctx context.Context, from, to time.Time) (int, error) {
	var n int
	err := r.db.QueryRowContext(ctx, getReadingsCountSQL, FormatTime(from), FormatTime(to)).Scan(&n)
	if err != nil {
		return 0, fmt.Errorf("count readings: %w", err)
	}
	return n, nil
}

func scanReadings(rows *sql.Rows) ([]types.Reading, error) {
	var out []types.Reading
	for rows.Next() {
		var rec types.Reading
		var ts string
		if err := rows.Scan(&rec.Floor, &ts, &rec.Temp); err != nil {
			return nil, err
		}
		t, err := parseTime(ts)
		if err != nil {
			return nil, err
		}
		rec.Time = t
		out = append(out, rec)
	}
	return out, rows.Err()
}

func validateReading(rd types.Reading) error {
	if rd.Floor == "" {
		return errors.New("floor is required")
	}
	if rd.Time.IsZero() {
		return errors.New("time is required")
	}
	if math.IsNaN(rd.Temp) || math.IsInf(rd.Temp, 0) {
		return fmt.Errorf("temp must be finite: %v", rd.Temp)
	}
	return nil
}

func (r *repositoryImpl) InsertReadings(ctx context.Context, readings []types.Reading) (int, error) {
	for _, rd := range readings {
		if err := validateReading(rd); err != nil {
			return 0, fmt.Errorf("invalid reading for %q: %w", rd.Floor, err)
		}
	}
	if len(readings) == 0 {
		return 0, nil
	}

	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, fmt.Errorf("begin tx: %w", err)
	}
	defer func() {
		// No-op after a successful commit.
		_ = tx.Rollback()
	}()

	stmt, err := tx.PrepareContext(ctx, insertReadingSQL)
	if err != nil {
		return 0, fmt.Errorf("prepare insert reading: %w", err)
	}
	defer func() {
		if err := stmt.Close(); err != nil {
			slog.Error("close insert statement", "error", err)
		}
	}()

	inserted := 0
	for _, rd := range readings {
		res, err := stmt.ExecContext(ctx, rd.Floor, FormatTime(rd.Time), rd.Temp)
		if err != nil {
			return 0, fmt.Errorf("insert reading %q: %w", rd.Floor, err)
		}
		n, err := res.RowsAffected()
		if err != nil {
			return 0, fmt.Errorf("rows affected: %w", err)
		}
		inserted += int(n)
	}

	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("commit readings: %w", err)
	}
	return inserted, nil
}

func (r *repositoryImpl) InsertBatch(ctx context.Context, batch types.Batch) error {
	_, err := r.db.ExecContext(ctx, insertFetchBatchSQL, batch.ID, FormatTime(batch.Time), batch.Source, batch.Readings)
	if err != nil {
		return fmt.Errorf("insert fetch batch: %w", err)
	}
	return nil
}

func (r *repositoryImpl) GetLastBatch(ctx context.Context) (types.Batch, error) {
	var b types.Batch
	var ts string
	err := r.db.QueryRowContext(ctx, getLastBatchSQL).Scan(&b.ID, &ts, &b.Source, &b.Readings)
	if errors.Is(err, sql.ErrNoRows) {
		return types.Batch{}, ErrNoData
	}
	if err != nil {
		return types.Batch{}, fmt.Errorf("query last batch: %w", err)
	}
	b.Time, err = parseTime(ts)
	if err != nil {
		return types.Batch{}, err
	}
	return b, nil
}
