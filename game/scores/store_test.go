package scores

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/wricardo/resource-rush/game/service"
)

func openTestStore(t *testing.T) *Store {
	t.Helper()
	store, err := Open(filepath.Join(t.TempDir(), "nested", "scores.db"))
	if err != nil {
		t.Fatalf("Open() failed: %v", err)
	}
	t.Cleanup(func() { store.Close() })
	return store
}

func TestStoreOpenClose(t *testing.T) {
	dbPath := filepath.Join(t.TempDir(), "a", "b", "scores.db")

	store, err := Open(dbPath)
	if err != nil {
		t.Fatalf("Open() failed: %v", err)
	}
	if _, err := os.Stat(dbPath); os.IsNotExist(err) {
		t.Error("Database file was not created")
	}
	if err := store.Close(); err != nil {
		t.Errorf("Close() failed: %v", err)
	}

	// Reopening runs the migration again on an existing schema
	store, err = Open(dbPath)
	if err != nil {
		t.Fatalf("Reopen failed: %v", err)
	}
	store.Close()
}

func TestStoreSaveRun(t *testing.T) {
	store := openTestStore(t)
	ctx := context.Background()

	run := &service.RunRecord{
		RunID:     "run-1",
		SessionID: "ab12",
		ConfigID:  "classic",
		Outcome:   service.OutcomeGameOver,
		Level:     3,
		MaxLevels: 8,
		Resources: 7,
		Moves:     61,
	}
	if err := store.SaveRun(ctx, run); err != nil {
		t.Fatalf("SaveRun() failed: %v", err)
	}
	if run.ID == 0 {
		t.Error("Expected SaveRun to set the record ID")
	}
	if run.FinishedAt.IsZero() {
		t.Error("Expected SaveRun to stamp FinishedAt")
	}

	dup := *run
	dup.ID = 0
	dup.Level = 8
	if err := store.SaveRun(ctx, &dup); err != nil {
		t.Fatalf("Duplicate SaveRun() failed: %v", err)
	}

	runs, err := store.TopRuns(ctx, "classic", 10)
	if err != nil {
		t.Fatalf("TopRuns() failed: %v", err)
	}
	if len(runs) != 1 {
		t.Fatalf("Expected the duplicate run id to be ignored, got %d runs", len(runs))
	}
	got := runs[0]
	if got.RunID != "run-1" || got.SessionID != "ab12" || got.Level != 3 || got.Resources != 7 || got.Moves != 61 {
		t.Errorf("Unexpected stored run: %+v", got)
	}
	if got.FinishedAt.UnixMilli() != run.FinishedAt.UnixMilli() {
		t.Errorf("Expected FinishedAt %v, got %v", run.FinishedAt, got.FinishedAt)
	}

	if err := store.SaveRun(ctx, nil); !errors.Is(err, ErrNilRun) {
		t.Errorf("Expected ErrNilRun, got %v", err)
	}
}

func TestStoreTopRunsOrdering(t *testing.T) {
	store := openTestStore(t)
	ctx := context.Background()
	base := time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC)

	runs := []*service.RunRecord{
		{RunID: "deep-loss", ConfigID: "classic", Outcome: service.OutcomeGameOver, Level: 7, Resources: 20, Moves: 100},
		{RunID: "slow-win", ConfigID: "classic", Outcome: service.OutcomeVictory, Level: 8, Resources: 30, Moves: 200},
		{RunID: "fast-win", ConfigID: "classic", Outcome: service.OutcomeVictory, Level: 8, Resources: 30, Moves: 150},
		{RunID: "shallow-loss", ConfigID: "classic", Outcome: service.OutcomeGameOver, Level: 2, Resources: 4, Moves: 40},
		{RunID: "other-config", ConfigID: "easy", Outcome: service.OutcomeVictory, Level: 5, Resources: 9, Moves: 60},
	}
	for i, run := range runs {
		run.SessionID = "s1"
		run.MaxLevels = 8
		run.FinishedAt = base.Add(time.Duration(i) * time.Minute)
		if err := store.SaveRun(ctx, run); err != nil {
			t.Fatalf("SaveRun(%s) failed: %v", run.RunID, err)
		}
	}

	tests := []struct {
		name     string
		configID string
		limit    int
		want     []string
	}{
		{"classic ranking", "classic", 10, []string{"fast-win", "slow-win", "deep-loss", "shallow-loss"}},
		{"limit", "classic", 2, []string{"fast-win", "slow-win"}},
		{"all configs", "", 3, []string{"fast-win", "slow-win", "other-config"}},
		{"unknown config", "nope", 10, nil},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := store.TopRuns(ctx, tt.configID, tt.limit)
			if err != nil {
				t.Fatalf("TopRuns() failed: %v", err)
			}
			if len(got) != len(tt.want) {
				t.Fatalf("Expected %d runs, got %d", len(tt.want), len(got))
			}
			for i, id := range tt.want {
				if got[i].RunID != id {
					t.Errorf("Position %d: expected %s, got %s", i, id, got[i].RunID)
				}
			}
		})
	}
}

func TestStoreBestLevel(t *testing.T) {
	store := openTestStore(t)
	ctx := context.Background()

	level, err := store.BestLevel(ctx, "classic")
	if err != nil {
		t.Fatalf("BestLevel() failed: %v", err)
	}
	if level != 0 {
		t.Errorf("Expected 0 with no runs, got %d", level)
	}

	for i, l := range []int{2, 6, 4} {
		run := &service.RunRecord{
			RunID:    string(rune('a' + i)),
			ConfigID: "classic",
			Outcome:  service.OutcomeGameOver,
			Level:    l,
		}
		if err := store.SaveRun(ctx, run); err != nil {
			t.Fatalf("SaveRun() failed: %v", err)
		}
	}

	level, err = store.BestLevel(ctx, "classic")
	if err != nil {
		t.Fatalf("BestLevel() failed: %v", err)
	}
	if level != 6 {
		t.Errorf("Expected best level 6, got %d", level)
	}
}
