package filestore

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"godecide/domain/core"
	"godecide/domain/decision"
)

func testRecord(t *testing.T, name string) *decision.ProblemRecord {
	t.Helper()
	f, err := decision.NewFlatFrame(decision.DefaultLimits(), decision.DefaultConfig(), []int{2, 3})
	if err != nil {
		t.Fatalf("NewFlatFrame failed: %v", err)
	}
	s := decision.Statement{Alt: 1, Node: 1, Lo: 0.2, Hi: 0.6}
	if err := f.AddStatement(decision.P, s); err != nil {
		t.Fatalf("AddStatement failed: %v", err)
	}
	rec, err := f.Snapshot()
	if err != nil {
		t.Fatalf("Snapshot failed: %v", err)
	}
	rec.ID = core.ProblemID(core.NewID())
	rec.Name = name
	return rec
}

// TestSaveLoadRoundTrip tests that a stored problem comes back intact
func TestSaveLoadRoundTrip(t *testing.T) {
	store, err := New(t.TempDir())
	if err != nil {
		t.Fatalf("New failed: %v", err)
	}
	ctx := context.Background()

	rec := testRecord(t, "pricing")
	if err := store.Save(ctx, rec); err != nil {
		t.Fatalf("Save failed: %v", err)
	}
	if rec.CreatedAt.IsZero() || rec.UpdatedAt.IsZero() {
		t.Fatalf("Expected timestamps to be set on save")
	}

	got, err := store.Load(ctx, rec.ID)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if got.Name != "pricing" {
		t.Errorf("Expected name pricing, got %s", got.Name)
	}
	if got.Fingerprint != rec.Fingerprint {
		t.Errorf("Fingerprint changed across storage")
	}
	if len(got.P.Statements) != 1 || got.P.Statements[0].Hi != 0.6 {
		t.Errorf("Statements not preserved: %+v", got.P.Statements)
	}

	// the loaded record must rebuild into a working frame
	f, err := decision.FromSnapshot(got)
	if err != nil {
		t.Fatalf("FromSnapshot failed: %v", err)
	}
	if err := f.Attach(); err != nil {
		t.Fatalf("Attach of restored frame failed: %v", err)
	}
}

// TestSaveUpdatesTimestamp tests upsert behavior
func TestSaveUpdatesTimestamp(t *testing.T) {
	store, err := New(t.TempDir())
	if err != nil {
		t.Fatalf("New failed: %v", err)
	}
	ctx := context.Background()

	rec := testRecord(t, "v1")
	if err := store.Save(ctx, rec); err != nil {
		t.Fatalf("Save failed: %v", err)
	}
	created, updated := rec.CreatedAt, rec.UpdatedAt

	time.Sleep(2 * time.Millisecond)
	rec.Name = "v2"
	if err := store.Save(ctx, rec); err != nil {
		t.Fatalf("Second save failed: %v", err)
	}
	if !rec.UpdatedAt.After(updated) {
		t.Errorf("Expected UpdatedAt to advance")
	}
	if rec.CreatedAt != created {
		t.Errorf("Expected CreatedAt to stay put")
	}

	got, err := store.Load(ctx, rec.ID)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if got.Name != "v2" {
		t.Errorf("Expected updated name, got %s", got.Name)
	}
}

// TestListOrdering tests that listings come newest first and skip junk
func TestListOrdering(t *testing.T) {
	dir := t.TempDir()
	store, err := New(dir)
	if err != nil {
		t.Fatalf("New failed: %v", err)
	}
	ctx := context.Background()

	first := testRecord(t, "older")
	if err := store.Save(ctx, first); err != nil {
		t.Fatalf("Save failed: %v", err)
	}
	time.Sleep(2 * time.Millisecond)
	second := testRecord(t, "newer")
	if err := store.Save(ctx, second); err != nil {
		t.Fatalf("Save failed: %v", err)
	}

	// a stray unreadable file must not break the listing
	if err := os.WriteFile(filepath.Join(dir, "junk.json"), []byte("{nope"), 0644); err != nil {
		t.Fatalf("WriteFile failed: %v", err)
	}

	infos, err := store.List(ctx)
	if err != nil {
		t.Fatalf("List failed: %v", err)
	}
	if len(infos) != 2 {
		t.Fatalf("Expected 2 problems, got %d", len(infos))
	}
	if infos[0].Name != "newer" || infos[1].Name != "older" {
		t.Errorf("Expected newest first, got %s then %s", infos[0].Name, infos[1].Name)
	}
	if infos[0].Alternatives != 2 {
		t.Errorf("Expected 2 alternatives, got %d", infos[0].Alternatives)
	}
}

// TestMissingProblem tests not-found reporting
func TestMissingProblem(t *testing.T) {
	store, err := New(t.TempDir())
	if err != nil {
		t.Fatalf("New failed: %v", err)
	}
	ctx := context.Background()

	if _, err := store.Load(ctx, "nope"); !errors.Is(err, core.ErrNoFile) {
		t.Errorf("Expected file-not-found, got %v", err)
	}
	if _, err := store.Load(ctx, "nope"); !errors.Is(err, core.ErrNotFound) {
		t.Errorf("Expected not-found in chain, got %v", err)
	}
	if err := store.Delete(ctx, "nope"); !errors.Is(err, core.ErrNoFile) {
		t.Errorf("Expected file-not-found on delete, got %v", err)
	}
	if err := store.Save(ctx, &decision.ProblemRecord{}); !errors.Is(err, core.ErrInput) {
		t.Errorf("Expected input error for missing ID, got %v", err)
	}
}

// TestDeleteRemovesFile tests removal end to end
func TestDeleteRemovesFile(t *testing.T) {
	store, err := New(t.TempDir())
	if err != nil {
		t.Fatalf("New failed: %v", err)
	}
	ctx := context.Background()

	rec := testRecord(t, "doomed")
	if err := store.Save(ctx, rec); err != nil {
		t.Fatalf("Save failed: %v", err)
	}
	if err := store.Delete(ctx, rec.ID); err != nil {
		t.Fatalf("Delete failed: %v", err)
	}
	if _, err := store.Load(ctx, rec.ID); !errors.Is(err, core.ErrNotFound) {
		t.Errorf("Expected not-found after delete, got %v", err)
	}
	infos, err := store.List(ctx)
	if err != nil {
		t.Fatalf("List failed: %v", err)
	}
	if len(infos) != 0 {
		t.Errorf("Expected empty listing, got %d", len(infos))
	}
}
