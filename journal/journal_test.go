package journal

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	_ "modernc.org/sqlite"

	"github.com/hazyhaar/xdswitch/dbopen"
	"github.com/hazyhaar/xdswitch/mode"
	"github.com/hazyhaar/xdswitch/modewriter"
	"github.com/hazyhaar/xdswitch/reconcile"
)

func testJournal(t *testing.T) *Journal {
	t.Helper()
	return New(dbopen.OpenMemory(t, dbopen.WithSchema(Schema)), nil)
}

func TestRecordAndRecent(t *testing.T) {
	ctx := context.Background()
	j := testJournal(t)
	base := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	j.now = func() time.Time { return base }

	j.RecordReconcile(ctx, reconcile.Result{
		Site: "https://a.example", Stored: mode.Off, Observed: mode.Debug, Mode: mode.Debug, Corrected: true,
	}, nil)

	j.now = func() time.Time { return base.Add(time.Second) }
	j.RecordApply(ctx, modewriter.Change{TabID: "t1", Site: "https://a.example", Mode: mode.Profile},
		errors.New("reload: tab gone"))

	entries, err := j.Recent(ctx, 10)
	if err != nil {
		t.Fatal(err)
	}
	if len(entries) != 2 {
		t.Fatalf("entries = %d, want 2", len(entries))
	}

	apply := entries[0]
	if apply.Kind != "apply" || apply.TabID != "t1" || apply.Mode != "profile" {
		t.Errorf("entries[0] = %+v", apply)
	}
	if !strings.HasPrefix(apply.ID, "chg_") || apply.Error == "" {
		t.Errorf("entries[0] id/error = %q/%q", apply.ID, apply.Error)
	}

	rec := entries[1]
	if rec.Kind != "reconcile" || !rec.Corrected || rec.Stored != "off" || rec.Observed != "debug" {
		t.Errorf("entries[1] = %+v", rec)
	}
	if !rec.At.Equal(base) {
		t.Errorf("At = %v, want %v", rec.At, base)
	}
}

func TestRecent_Limit(t *testing.T) {
	ctx := context.Background()
	j := testJournal(t)
	for i := 0; i < 5; i++ {
		j.RecordReconcile(ctx, reconcile.Result{Site: "https://a.example"}, nil)
	}
	entries, err := j.Recent(ctx, 3)
	if err != nil {
		t.Fatal(err)
	}
	if len(entries) != 3 {
		t.Fatalf("entries = %d, want 3", len(entries))
	}
}

func TestCleanup(t *testing.T) {
	ctx := context.Background()
	j := testJournal(t)
	now := time.Now()

	j.now = func() time.Time { return now.Add(-10 * 24 * time.Hour) }
	j.RecordApply(ctx, modewriter.Change{Site: "old"}, nil)
	j.now = func() time.Time { return now }
	j.RecordApply(ctx, modewriter.Change{Site: "new"}, nil)

	if err := j.Cleanup(ctx, 7); err != nil {
		t.Fatal(err)
	}
	entries, _ := j.Recent(ctx, 10)
	if len(entries) != 1 || entries[0].Site != "new" {
		t.Fatalf("after cleanup: %+v", entries)
	}
}

func TestRecordWithoutSchemaDoesNotPanic(t *testing.T) {
	j := New(dbopen.OpenMemory(t), nil)
	j.RecordReconcile(context.Background(), reconcile.Result{Site: "x"}, nil)
	j.RecordApply(context.Background(), modewriter.Change{Site: "x"}, nil)
}
