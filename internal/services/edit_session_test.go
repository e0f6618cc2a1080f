package services

import (
	"context"
	"testing"

	"distance-request-service/internal/adapters/store"
	"distance-request-service/internal/domain"
)

func seededMemory(t *testing.T, waypoints domain.WaypointSet) (*store.Memory, *domain.Transaction) {
	t.Helper()
	mem := store.NewMemory(nil)
	tx := &domain.Transaction{TransactionID: "t1", ReportID: "r1", Comment: domain.Comment{Waypoints: waypoints}}
	if err := mem.Put(context.Background(), tx, true); err != nil {
		t.Fatalf("seed: %v", err)
	}
	return mem, tx
}

func TestEditSessionRestoresUnsavedEdit(t *testing.T) {
	ctx := context.Background()
	mem, tx := seededMemory(t, domain.WaypointSet{stopA, stopB})

	edit := NewEditSession(mem, "t1")
	if err := edit.Begin(ctx, tx); err != nil {
		t.Fatalf("begin: %v", err)
	}
	if err := mem.UpdateWaypoints(ctx, "t1", domain.WaypointSet{stopA, stopC}, true); err != nil {
		t.Fatalf("update: %v", err)
	}

	state, err := edit.End(ctx)
	if err != nil {
		t.Fatalf("end: %v", err)
	}
	if state != EditDiscarded {
		t.Fatalf("expected discarded, got %s", state)
	}

	got, _ := mem.Get(ctx, "t1")
	if !got.Waypoints().Equal(domain.WaypointSet{stopA, stopB}) {
		t.Fatalf("expected the backup to be restored, got %v", got.Waypoints())
	}

	// A second End must not restore again; the backup is already consumed.
	state, err = edit.End(ctx)
	if err != nil || state != EditDiscarded {
		t.Fatalf("expected a settled discarded session, got %s, %v", state, err)
	}
}

func TestEditSessionKeepsSavedEdit(t *testing.T) {
	ctx := context.Background()
	mem, tx := seededMemory(t, domain.WaypointSet{stopA, stopB})

	edit := NewEditSession(mem, "t1")
	if err := edit.Begin(ctx, tx); err != nil {
		t.Fatalf("begin: %v", err)
	}
	if err := mem.UpdateWaypoints(ctx, "t1", domain.WaypointSet{stopA, stopC}, true); err != nil {
		t.Fatalf("update: %v", err)
	}
	edit.MarkSaved()

	state, err := edit.End(ctx)
	if err != nil {
		t.Fatalf("end: %v", err)
	}
	if state != EditSaved {
		t.Fatalf("expected saved, got %s", state)
	}
	if mem.HasBackup("t1") {
		t.Fatal("expected the backup to be discarded")
	}

	got, _ := mem.Get(ctx, "t1")
	if !got.Waypoints().SameLocations(domain.WaypointSet{stopA, stopC}) {
		t.Fatalf("expected the edit to be kept, got %v", got.Waypoints())
	}
}

func TestEditSessionBeginTwice(t *testing.T) {
	ctx := context.Background()
	mem, tx := seededMemory(t, domain.WaypointSet{stopA, stopB})

	edit := NewEditSession(mem, "t1")
	if err := edit.Begin(ctx, tx); err != nil {
		t.Fatalf("begin: %v", err)
	}
	if err := edit.Begin(ctx, tx); err == nil {
		t.Fatal("expected a second begin to fail")
	}
	if edit.State() != EditEditing {
		t.Fatalf("expected editing, got %s", edit.State())
	}
}

func TestEditSessionEndWithoutBegin(t *testing.T) {
	mem, _ := seededMemory(t, nil)
	state, err := NewEditSession(mem, "t1").End(context.Background())
	if err != nil || state != EditIdle {
		t.Fatalf("expected an idle no-op, got %s, %v", state, err)
	}
}
