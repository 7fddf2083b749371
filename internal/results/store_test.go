package results

import (
	"context"
	"path/filepath"
	"testing"

	"reprobench/internal/score"
)

func record(runID, paperID, taskID string, passed bool) Record {
	return Record{
		RunID:   runID,
		PaperID: paperID,
		TaskID:  taskID,
		Passed:  passed,
		Verdict: score.Verdict{Passed: passed},
	}
}

func TestFileStoreAppendAndRun(t *testing.T) {
	ctx := context.Background()
	store := NewFile(filepath.Join(t.TempDir(), "results.jsonl"))

	run := NewRunID()
	other := NewRunID()
	if run == other {
		t.Fatal("run ids must be unique")
	}

	for _, rec := range []Record{
		record(run, "gw_cosmo", "load_events", true),
		record(run, "gw_cosmo", "hubble", true),
		record(run, "exo_transit", "depth", false),
		record(other, "gw_cosmo", "hubble", false),
	} {
		if err := store.Append(ctx, rec); err != nil {
			t.Fatalf("Append: %v", err)
		}
	}

	recs, err := store.Run(ctx, run)
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if len(recs) != 3 {
		t.Fatalf("run has %d records, want 3", len(recs))
	}
	if recs[0].TaskID != "load_events" || recs[1].TaskID != "hubble" {
		t.Fatalf("records out of append order: %+v", recs)
	}
	if recs[0].CreatedAt.IsZero() {
		t.Fatal("CreatedAt was not stamped")
	}
}

func TestPaperPassedAggregate(t *testing.T) {
	ctx := context.Background()
	store := NewFile(filepath.Join(t.TempDir(), "results.jsonl"))
	run := NewRunID()

	// No records yet: not passed, not present.
	passed, err := store.PaperPassed(ctx, run, "gw_cosmo")
	if err != nil {
		t.Fatalf("PaperPassed: %v", err)
	}
	if passed {
		t.Fatal("paper with no records must not pass")
	}
	has, err := store.HasPaper(ctx, run, "gw_cosmo")
	if err != nil {
		t.Fatalf("HasPaper: %v", err)
	}
	if has {
		t.Fatal("HasPaper on empty store")
	}

	for _, rec := range []Record{
		record(run, "gw_cosmo", "a", true),
		record(run, "gw_cosmo", "b", true),
		record(run, "exo_transit", "a", true),
		record(run, "exo_transit", "b", false),
	} {
		if err := store.Append(ctx, rec); err != nil {
			t.Fatalf("Append: %v", err)
		}
	}

	passed, err = store.PaperPassed(ctx, run, "gw_cosmo")
	if err != nil {
		t.Fatalf("PaperPassed: %v", err)
	}
	if !passed {
		t.Fatal("all tasks passed; paper must pass")
	}

	passed, err = store.PaperPassed(ctx, run, "exo_transit")
	if err != nil {
		t.Fatalf("PaperPassed: %v", err)
	}
	if passed {
		t.Fatal("one failing task must fail the paper")
	}

	has, err = store.HasPaper(ctx, run, "exo_transit")
	if err != nil {
		t.Fatalf("HasPaper: %v", err)
	}
	if !has {
		t.Fatal("HasPaper should see recorded paper")
	}
}

func TestAppendRequiresIdentifiers(t *testing.T) {
	store := NewFile(filepath.Join(t.TempDir(), "results.jsonl"))
	err := store.Append(context.Background(), Record{PaperID: "p", TaskID: "t"})
	if err == nil {
		t.Fatal("expected an error for a record without run_id")
	}
}
