package database

import (
	"context"
	"testing"
	"time"

	"github.com/arturlm/jusbr/internal/model"
)

func openTestStore(t *testing.T) *Store {
	t.Helper()
	store, err := Open(t.TempDir(), DefaultOptions())
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() {
		if err := store.Close(); err != nil {
			t.Error(err)
		}
	})
	return store
}

func TestQueryLifecycle(t *testing.T) {
	t.Parallel()
	store := openTestStore(t)
	ctx := context.Background()

	query := &model.Query{ID: "q1", SearchTerm: "12345678900", Status: model.QueryQueued}
	if err := store.CreateQuery(ctx, query); err != nil {
		t.Fatal(err)
	}

	got, err := store.GetQuery(ctx, "q1")
	if err != nil {
		t.Fatal(err)
	}
	if got == nil {
		t.Fatal("query not found after create")
	}
	if got.Status != model.QueryQueued || got.ResultCount != 0 {
		t.Errorf("fresh query = %+v", got)
	}

	if err := store.UpdateQueryStatus(ctx, "q1", model.QueryRunning); err != nil {
		t.Fatal(err)
	}
	got, err = store.GetQuery(ctx, "q1")
	if err != nil {
		t.Fatal(err)
	}
	if got.Status != model.QueryRunning {
		t.Errorf("status = %s, want running", got.Status)
	}

	missing, err := store.GetQuery(ctx, "nope")
	if err != nil {
		t.Fatal(err)
	}
	if missing != nil {
		t.Errorf("missing query = %+v, want nil", missing)
	}
}

func TestAddQueryResultsAccumulates(t *testing.T) {
	t.Parallel()
	store := openTestStore(t)
	ctx := context.Background()

	if err := store.CreateQuery(ctx, &model.Query{ID: "q1", SearchTerm: "x", Status: model.QueryRunning}); err != nil {
		t.Fatal(err)
	}

	for _, delta := range []int{3, 0, 4} {
		if err := store.AddQueryResults(ctx, "q1", delta); err != nil {
			t.Fatal(err)
		}
	}

	got, err := store.GetQuery(ctx, "q1")
	if err != nil {
		t.Fatal(err)
	}
	if got.ResultCount != 7 {
		t.Errorf("ResultCount = %d, want 7 (additive)", got.ResultCount)
	}
}

func TestCrawlTaskLifecycle(t *testing.T) {
	t.Parallel()
	store := openTestStore(t)
	ctx := context.Background()

	task := &model.CrawlTask{ID: "t1", QueryID: "q1", Tribunal: model.TRF3, Status: model.TaskRunning}
	if err := store.CreateCrawlTask(ctx, task); err != nil {
		t.Fatal(err)
	}

	finished := time.Date(2026, 8, 29, 12, 0, 0, 0, time.UTC)
	task.Status = model.TaskFailed
	task.Attempts = 5
	task.LastError = "result rows or banner: wait timed out"
	task.FinishedAt = &finished
	if err := store.UpdateCrawlTask(ctx, task); err != nil {
		t.Fatal(err)
	}

	tasks, err := store.ListCrawlTasks(ctx, "q1")
	if err != nil {
		t.Fatal(err)
	}
	if len(tasks) != 1 {
		t.Fatalf("len(tasks) = %d, want 1", len(tasks))
	}
	got := tasks[0]
	if got.Status != model.TaskFailed || got.Attempts != 5 {
		t.Errorf("task = %+v", got)
	}
	if got.LastError == "" {
		t.Error("LastError not persisted")
	}
	if got.FinishedAt == nil || !got.FinishedAt.Equal(finished) {
		t.Errorf("FinishedAt = %v, want %v", got.FinishedAt, finished)
	}
}

func TestHasNonFailedTerminalTask(t *testing.T) {
	t.Parallel()
	store := openTestStore(t)
	ctx := context.Background()

	addTask := func(id string, tribunal model.Tribunal, status model.TaskStatus) {
		t.Helper()
		if err := store.CreateCrawlTask(ctx, &model.CrawlTask{
			ID: id, QueryID: "q1", Tribunal: tribunal, Status: status,
		}); err != nil {
			t.Fatal(err)
		}
	}
	addTask("t1", model.TRF1, model.TaskDone)
	addTask("t2", model.TRF2, model.TaskFailed)
	addTask("t3", model.TRF3, model.TaskRunning)

	tests := []struct {
		tribunal model.Tribunal
		want     bool
	}{
		{model.TRF1, true},  // done blocks re-enqueue
		{model.TRF2, false}, // failed never blocks
		{model.TRF3, false}, // running is not terminal
		{model.TRF4, false}, // never attempted
	}
	for _, tt := range tests {
		got, err := store.HasNonFailedTerminalTask(ctx, "q1", tt.tribunal)
		if err != nil {
			t.Fatal(err)
		}
		if got != tt.want {
			t.Errorf("%s: got %v, want %v", tt.tribunal, got, tt.want)
		}
	}
}

func TestAllTasksTerminal(t *testing.T) {
	t.Parallel()
	store := openTestStore(t)
	ctx := context.Background()

	terminal, err := store.AllTasksTerminal(ctx, "q1")
	if err != nil {
		t.Fatal(err)
	}
	if terminal {
		t.Error("query with zero tasks must not be terminal")
	}

	if err := store.CreateCrawlTask(ctx, &model.CrawlTask{ID: "t1", QueryID: "q1", Tribunal: model.TRF1, Status: model.TaskDone}); err != nil {
		t.Fatal(err)
	}
	if err := store.CreateCrawlTask(ctx, &model.CrawlTask{ID: "t2", QueryID: "q1", Tribunal: model.TRF2, Status: model.TaskRunning}); err != nil {
		t.Fatal(err)
	}

	terminal, err = store.AllTasksTerminal(ctx, "q1")
	if err != nil {
		t.Fatal(err)
	}
	if terminal {
		t.Error("running task must keep the query non-terminal")
	}

	running := &model.CrawlTask{ID: "t2", QueryID: "q1", Tribunal: model.TRF2, Status: model.TaskFailed}
	if err := store.UpdateCrawlTask(ctx, running); err != nil {
		t.Fatal(err)
	}

	terminal, err = store.AllTasksTerminal(ctx, "q1")
	if err != nil {
		t.Fatal(err)
	}
	if !terminal {
		t.Error("done + failed tasks must make the query terminal")
	}
}

func TestUpsertProcessRecordIdempotent(t *testing.T) {
	t.Parallel()
	store := openTestStore(t)
	ctx := context.Background()

	detail := model.DetailedProcessData{
		Process: model.ProcessData{ProcessNumber: "0008323-52.2018.4.01.3202", Subject: "Aposentadoria"},
	}
	if err := store.UpsertProcessRecord(ctx, "q1", model.TRF1, "00083235220184013202", detail); err != nil {
		t.Fatal(err)
	}

	detail.Process.Subject = "Aposentadoria por Idade"
	if err := store.UpsertProcessRecord(ctx, "q2", model.TRF1, "00083235220184013202", detail); err != nil {
		t.Fatal(err)
	}

	records, err := store.ListProcessRecords(ctx, "q2")
	if err != nil {
		t.Fatal(err)
	}
	if len(records) != 1 {
		t.Fatalf("len(records) = %d, want 1 (upsert must not duplicate)", len(records))
	}
	if records[0].Detail.Process.Subject != "Aposentadoria por Idade" {
		t.Errorf("payload not refreshed: %q", records[0].Detail.Process.Subject)
	}

	// The row moved to the latest query.
	old, err := store.ListProcessRecords(ctx, "q1")
	if err != nil {
		t.Fatal(err)
	}
	if len(old) != 0 {
		t.Errorf("stale query still owns %d records", len(old))
	}

	count, err := store.CountProcessRecords(ctx, "q2")
	if err != nil {
		t.Fatal(err)
	}
	if count != 1 {
		t.Errorf("count = %d, want 1", count)
	}
}
