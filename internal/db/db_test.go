package db

import (
	"context"
	"log/slog"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stefur/tempapp/internal/config"
)

func TestBuildDSN(t *testing.T) {
	dir := t.TempDir()
	tests := []struct {
		name       string
		cfg        config.Config
		wantPrefix string
		wantSuffix string
	}{
		{
			name:       "explicit dsn wins",
			cfg:        config.Config{DSN: "file::memory:?cache=shared", Path: "ignored.db"},
			wantPrefix: "file::memory:?cache=shared",
			wantSuffix: "cache=shared",
		},
		{
			name:       "plain path",
			cfg:        config.Config{Path: filepath.Join(dir, "a", "temps.db")},
			wantPrefix: "file:" + filepath.Join(dir, "a", "temps.db") + "?",
			wantSuffix: "_journal_mode=WAL",
		},
		{
			name:       "file uri with params",
			cfg:        config.Config{Path: "file:" + filepath.Join(dir, "b.db") + "?mode=rwc"},
			wantPrefix: "file:" + filepath.Join(dir, "b.db") + "?mode=rwc&",
			wantSuffix: "_journal_mode=WAL",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := buildDSN(tt.cfg)
			if err != nil {
				t.Fatalf("buildDSN() error = %v", err)
			}
			if !strings.HasPrefix(got, tt.wantPrefix) || !strings.HasSuffix(got, tt.wantSuffix) {
				t.Errorf("buildDSN() = %q, want prefix %q and suffix %q", got, tt.wantPrefix, tt.wantSuffix)
			}
		})
	}

	if _, err := buildDSN(config.Config{}); err == nil {
		t.Error("buildDSN() with no path: error = nil")
	}
}

func TestOpen(t *testing.T) {
	for _, logSQL := range []bool{false, true} {
		cfg := config.Config{
			Driver:       "sqlite3",
			Path:         filepath.Join(t.TempDir(), "data", "temps.db"),
			MaxOpenConns: 1,
			MaxIdleConns: 1,
			LogSQL:       logSQL,
		}
		db, err := Open(context.Background(), cfg, slog.New(&captureHandler{}))
		if err != nil {
			t.Fatalf("Open(logSQL=%v) error = %v", logSQL, err)
		}
		if _, err := db.Exec(`CREATE TABLE t (id INTEGER)`); err != nil {
			t.Errorf("exec: %v", err)
		}
		if err := Close(db); err != nil {
			t.Errorf("Close() error = %v", err)
		}
	}
	if err := Close(nil); err != nil {
		t.Errorf("Close(nil) error = %v", err)
	}
}
