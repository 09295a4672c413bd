package main

import (
	"bytes"
	"context"
	"errors"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/rickgao/warplog/internal/config"
	"github.com/rickgao/warplog/internal/interchange"
	"github.com/rickgao/warplog/internal/model"
	"github.com/rickgao/warplog/internal/store"
)

func TestRun_CommandErrors(t *testing.T) {
	tests := []struct {
		name    string
		args    []string
		wantErr string
	}{
		{"no command", nil, "no command given"},
		{"unknown command", []string{"frobnicate"}, `unknown command "frobnicate"`},
		{"missing config", []string{"--config", "does-not-exist.yaml", "batches"}, "load config"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := run(tt.args)
			if err == nil {
				t.Fatalf("run(%v) expected error, got nil", tt.args)
			}
			if !strings.Contains(err.Error(), tt.wantErr) {
				t.Errorf("run(%v) error = %q, want it to contain %q", tt.args, err.Error(), tt.wantErr)
			}
		})
	}
}

func TestWriteBatches(t *testing.T) {
	var buf bytes.Buffer
	writeBatches(&buf, []model.GachaRecordBatch{
		{BatchID: 2, Count: 5, RegionTimeZone: -5, Lang: "en-us", Source: "warplog_1.0.0", Timestamp: 1717243200},
		{BatchID: 1, Count: 137, RegionTimeZone: 8, Lang: "en-us", Source: "otherapp_2.1", Timestamp: 0},
	})

	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	if len(lines) != 3 {
		t.Fatalf("got %d lines, want 3:\n%s", len(lines), buf.String())
	}
	if !strings.HasPrefix(lines[0], "BATCH") {
		t.Errorf("header = %q", lines[0])
	}
	for _, want := range []string{"2", "5", "-5", "warplog_1.0.0", "2024-06-01T12:00:00Z"} {
		if !strings.Contains(lines[1], want) {
			t.Errorf("row %q missing %q", lines[1], want)
		}
	}
	if !strings.Contains(lines[2], "+8") {
		t.Errorf("row %q missing %q", lines[2], "+8")
	}
}

func TestNewLogger(t *testing.T) {
	logger := newLogger(config.LogConfig{Level: "warn", Format: "json"})
	ctx := context.Background()
	if logger.Enabled(ctx, slog.LevelInfo) {
		t.Error("info enabled at warn level")
	}
	if !logger.Enabled(ctx, slog.LevelWarn) {
		t.Error("warn disabled at warn level")
	}
}

func TestExportFile(t *testing.T) {
	ctx := context.Background()
	repo := store.NewMemory()
	item := model.GachaRecordItem{
		ID: "1700000000000000001", UID: "100000001", GachaID: "2003", GachaType: model.RegularWarp,
		ItemID: "20000", Count: "1", Time: "2024-01-15 12:00:00", Name: "Arrows",
		Lang: "en", ItemType: "Light Cone", RankType: "3",
	}
	batch := model.GachaRecordBatch{BatchID: 1, UID: "100000001", Lang: "en", RegionTimeZone: 8, Source: "test"}
	if _, err := repo.InsertGachaRecords(ctx, []model.GachaRecordItem{item}, batch, store.InsertIgnore); err != nil {
		t.Fatalf("seed: %v", err)
	}
	e := interchange.NewExporter(repo, nil)
	dir := t.TempDir()

	t.Run("writes archive", func(t *testing.T) {
		path := filepath.Join(dir, "out.json")
		if err := exportFile(ctx, e, path, "100000001", interchange.FormatSRGF); err != nil {
			t.Fatalf("exportFile() error = %v", err)
		}
		data, err := os.ReadFile(path)
		if err != nil {
			t.Fatalf("read export: %v", err)
		}
		if !strings.Contains(string(data), item.ID) {
			t.Errorf("export missing record %s:\n%s", item.ID, data)
		}
	})

	t.Run("export error is returned", func(t *testing.T) {
		err := exportFile(ctx, e, filepath.Join(dir, "empty.json"), "999", interchange.FormatUIGF)
		if !errors.Is(err, interchange.ErrNoRecords) {
			t.Errorf("exportFile() error = %v, want ErrNoRecords", err)
		}
	})

	t.Run("unwritable path", func(t *testing.T) {
		err := exportFile(ctx, e, filepath.Join(dir, "missing", "out.json"), "100000001", interchange.FormatSRGF)
		if err == nil {
			t.Error("exportFile() expected error for missing directory, got nil")
		}
	})
}
