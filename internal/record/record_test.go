package record_test

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/narradeck/narradeck/internal/record"
)

// ── staleness ─────────────────────────────────────────────────────────────────

func TestStale(t *testing.T) {
	tests := []struct {
		name    string
		stored  float64
		current float64
		want    bool
	}{
		{"exact match", 120.5, 120.5, false},
		{"within epsilon", 120.5, 120.5004, false},
		{"beyond epsilon", 120.5, 120.51, true},
		{"content changed", 120.5, 95.0, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := record.Record{Elapsed: 118, PlannedTotal: tt.stored}
			if got := record.Stale(rec, tt.current); got != tt.want {
				t.Errorf("Stale(%v vs %v): got %v, want %v", tt.stored, tt.current, got, tt.want)
			}
		})
	}
}

// ── file store ────────────────────────────────────────────────────────────────

func TestFileStore_RoundTrip(t *testing.T) {
	ctx := context.Background()
	store := record.NewFileStore(filepath.Join(t.TempDir(), "records.json"))

	rec := record.Record{Elapsed: 118.3, PlannedTotal: 120.5}
	if err := store.Save(ctx, "demo", rec); err != nil {
		t.Fatalf("Save: %v", err)
	}

	got, err := store.Load(ctx, "demo")
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if got != rec {
		t.Errorf("Load: got %+v, want %+v", got, rec)
	}
}

func TestFileStore_LoadMissing(t *testing.T) {
	ctx := context.Background()
	store := record.NewFileStore(filepath.Join(t.TempDir(), "records.json"))

	_, err := store.Load(ctx, "never-saved")
	if !errors.Is(err, record.ErrNotFound) {
		t.Errorf("Load: got %v, want ErrNotFound", err)
	}
}

func TestFileStore_SaveReplaces(t *testing.T) {
	ctx := context.Background()
	store := record.NewFileStore(filepath.Join(t.TempDir(), "records.json"))

	if err := store.Save(ctx, "demo", record.Record{Elapsed: 100, PlannedTotal: 110}); err != nil {
		t.Fatalf("Save: %v", err)
	}
	if err := store.Save(ctx, "demo", record.Record{Elapsed: 105, PlannedTotal: 110}); err != nil {
		t.Fatalf("Save: %v", err)
	}

	got, err := store.Load(ctx, "demo")
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if got.Elapsed != 105 {
		t.Errorf("Elapsed: got %v, want 105", got.Elapsed)
	}
}

func TestFileStore_Delete(t *testing.T) {
	ctx := context.Background()
	store := record.NewFileStore(filepath.Join(t.TempDir(), "records.json"))

	if err := store.Save(ctx, "demo", record.Record{Elapsed: 1, PlannedTotal: 2}); err != nil {
		t.Fatalf("Save: %v", err)
	}
	if err := store.Delete(ctx, "demo"); err != nil {
		t.Fatalf("Delete: %v", err)
	}
	if _, err := store.Load(ctx, "demo"); !errors.Is(err, record.ErrNotFound) {
		t.Errorf("Load after Delete: got %v, want ErrNotFound", err)
	}

	// Deleting twice, or deleting an absent record, is not an error.
	if err := store.Delete(ctx, "demo"); err != nil {
		t.Errorf("second Delete: %v", err)
	}
}

func TestFileStore_IsolatedKeys(t *testing.T) {
	ctx := context.Background()
	store := record.NewFileStore(filepath.Join(t.TempDir(), "records.json"))

	if err := store.Save(ctx, "a", record.Record{Elapsed: 1, PlannedTotal: 10}); err != nil {
		t.Fatalf("Save: %v", err)
	}
	if err := store.Save(ctx, "b", record.Record{Elapsed: 2, PlannedTotal: 20}); err != nil {
		t.Fatalf("Save: %v", err)
	}
	if err := store.Delete(ctx, "a"); err != nil {
		t.Fatalf("Delete: %v", err)
	}

	got, err := store.Load(ctx, "b")
	if err != nil {
		t.Fatalf("Load(b): %v", err)
	}
	if got.Elapsed != 2 {
		t.Errorf("Load(b): got %+v", got)
	}
}

func TestFileStore_CorruptFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "records.json")
	if err := os.WriteFile(path, []byte("{not json"), 0o644); err != nil {
		t.Fatalf("writing corrupt file: %v", err)
	}

	store := record.NewFileStore(path)
	_, err := store.Load(context.Background(), "demo")
	if err == nil || errors.Is(err, record.ErrNotFound) {
		t.Errorf("corrupt file should surface a parse error, got %v", err)
	}
}
