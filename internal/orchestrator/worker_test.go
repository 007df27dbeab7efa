package orchestrator

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/arturlm/jusbr/internal/browser"
	"github.com/arturlm/jusbr/internal/database"
	"github.com/arturlm/jusbr/internal/model"
	"github.com/arturlm/jusbr/internal/portal"
	"github.com/arturlm/jusbr/internal/queue"
)

// fakeRunner emits canned results or fails with a fixed error.
type fakeRunner struct {
	results []model.DetailedProcessData
	err     error
	calls   int
}

func (f *fakeRunner) Run(_ context.Context, _ model.Tribunal, _ string, emit func(model.DetailedProcessData) error) error {
	f.calls++
	if f.err != nil {
		return f.err
	}
	for _, detail := range f.results {
		if err := emit(detail); err != nil {
			return err
		}
	}
	return nil
}

// flakyRunner emits its results on every attempt but fails the first
// failures calls, the shape of a portal that answers and then hangs.
type flakyRunner struct {
	results  []model.DetailedProcessData
	failures int
	calls    int
}

func (f *flakyRunner) Run(_ context.Context, _ model.Tribunal, _ string, emit func(model.DetailedProcessData) error) error {
	f.calls++
	for _, detail := range f.results {
		if err := emit(detail); err != nil {
			return err
		}
	}
	if f.calls <= f.failures {
		return browser.ErrWaitTimeout
	}
	return nil
}

// tribunalRunner routes each tribunal to its own canned outcome.
type tribunalRunner struct {
	results map[model.Tribunal][]model.DetailedProcessData
	errs    map[model.Tribunal]error
}

func (f *tribunalRunner) Run(_ context.Context, tribunal model.Tribunal, _ string, emit func(model.DetailedProcessData) error) error {
	for _, detail := range f.results[tribunal] {
		if err := emit(detail); err != nil {
			return err
		}
	}
	return f.errs[tribunal]
}

func detailFor(processNumber string) model.DetailedProcessData {
	return model.DetailedProcessData{
		Process: model.ProcessData{
			ProcessNumber: processNumber,
			Subject:       "DIREITO ADMINISTRATIVO",
		},
	}
}

// enqueueSingle seeds one query with one published task and returns its
// delivery plus the consumer channel, so tests observing republished
// attempts reuse the same consumer.
func enqueueSingle(t *testing.T, store *database.Store, q *queue.Memory) (queue.Delivery, <-chan queue.Delivery) {
	t.Helper()
	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)

	createTestQuery(t, store, "q1", testCaseNumber)
	if _, err := New(store, q, q, nil).EnqueueCrawlsForQuery(ctx, "q1", testCaseNumber, false); err != nil {
		t.Fatal(err)
	}
	deliveries, err := q.Consume(ctx, model.TRF1)
	if err != nil {
		t.Fatal(err)
	}
	select {
	case d := <-deliveries:
		return d, deliveries
	case <-time.After(2 * time.Second):
		t.Fatal("no delivery")
		return queue.Delivery{}, nil
	}
}

func TestWorkerHandleSuccessStoresResultsAndFinalizes(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	store := newTestStore(t)
	q := newTestQueue(t)
	delivery, _ := enqueueSingle(t, store, q)

	runner := &fakeRunner{results: []model.DetailedProcessData{
		detailFor(testCaseNumber),
		detailFor("0008324-37.2018.4.01.3202"),
	}}
	w := NewWorker(store, q, q, runner, DefaultRetryPolicy(), nil)
	w.handle(ctx, delivery)

	tasks, err := store.ListCrawlTasks(ctx, "q1")
	if err != nil {
		t.Fatal(err)
	}
	if len(tasks) != 1 || tasks[0].Status != model.TaskDone {
		t.Fatalf("tasks = %+v, want one done task", tasks)
	}
	if tasks[0].FinishedAt == nil {
		t.Error("FinishedAt not set on done task")
	}

	records, err := store.ListProcessRecords(ctx, "q1")
	if err != nil {
		t.Fatal(err)
	}
	if len(records) != 2 {
		t.Errorf("stored %d process records, want 2", len(records))
	}

	query, err := store.GetQuery(ctx, "q1")
	if err != nil {
		t.Fatal(err)
	}
	if query.Status != model.QueryDone {
		t.Errorf("query status = %q, want done", query.Status)
	}
	if query.ResultCount != 2 {
		t.Errorf("query result count = %d, want 2", query.ResultCount)
	}
}

func TestWorkerHandlePortalRefusalCompletesEmpty(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	store := newTestStore(t)
	q := newTestQueue(t)
	delivery, _ := enqueueSingle(t, store, q)

	runner := &fakeRunner{err: &portal.PortalError{Message: "Nenhum processo encontrado"}}
	w := NewWorker(store, q, q, runner, DefaultRetryPolicy(), nil)
	w.handle(ctx, delivery)

	tasks, err := store.ListCrawlTasks(ctx, "q1")
	if err != nil {
		t.Fatal(err)
	}
	if len(tasks) != 1 || tasks[0].Status != model.TaskDone {
		t.Fatalf("tasks = %+v, want one done task", tasks)
	}
	if tasks[0].LastError == "" {
		t.Error("refusal reason not recorded on task")
	}

	query, err := store.GetQuery(ctx, "q1")
	if err != nil {
		t.Fatal(err)
	}
	if query.Status != model.QueryDone {
		t.Errorf("query status = %q, want done", query.Status)
	}
	if query.ResultCount != 0 {
		t.Errorf("query result count = %d, want 0", query.ResultCount)
	}
	// A refusal is terminal: the task must not be retried.
	if runner.calls != 1 {
		t.Errorf("runner called %d times, want 1", runner.calls)
	}
}

func TestWorkerHandleRetriesUntilExhausted(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	store := newTestStore(t)
	q := newTestQueue(t)
	delivery, deliveries := enqueueSingle(t, store, q)

	runner := &fakeRunner{err: browser.ErrWaitTimeout}
	policy := RetryPolicy{MaxAttempts: 3} // nil Backoff keeps the test fast
	w := NewWorker(store, q, q, runner, policy, nil)

	w.handle(ctx, delivery)
	for attempt := 2; attempt <= policy.MaxAttempts; attempt++ {
		select {
		case next := <-deliveries:
			if next.Task.Attempt != attempt {
				t.Fatalf("republished attempt = %d, want %d", next.Task.Attempt, attempt)
			}
			w.handle(ctx, next)
		case <-time.After(2 * time.Second):
			t.Fatalf("attempt %d never republished", attempt)
		}
	}
	if runner.calls != policy.MaxAttempts {
		t.Errorf("runner called %d times, want %d", runner.calls, policy.MaxAttempts)
	}

	tasks, err := store.ListCrawlTasks(ctx, "q1")
	if err != nil {
		t.Fatal(err)
	}
	if len(tasks) != 1 || tasks[0].Status != model.TaskFailed {
		t.Fatalf("tasks = %+v, want one failed task", tasks)
	}
	if tasks[0].Attempts != policy.MaxAttempts {
		t.Errorf("recorded attempts = %d, want %d", tasks[0].Attempts, policy.MaxAttempts)
	}
	if tasks[0].LastError == "" {
		t.Error("failure reason not recorded on task")
	}

	// The query still finalizes; the failure stays visible on the task.
	query, err := store.GetQuery(ctx, "q1")
	if err != nil {
		t.Fatal(err)
	}
	if query.Status != model.QueryDone {
		t.Errorf("query status = %q, want done", query.Status)
	}
}

func TestWorkerHandleRetryDoesNotInflateResultCount(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	store := newTestStore(t)
	q := newTestQueue(t)
	delivery, deliveries := enqueueSingle(t, store, q)

	// The first attempt persists both processes and then times out; the
	// retry re-emits the same two and succeeds. The upsert dedupes the
	// rows, and only the successful attempt may count.
	runner := &flakyRunner{
		results: []model.DetailedProcessData{
			detailFor(testCaseNumber),
			detailFor("0008324-37.2018.4.01.3202"),
		},
		failures: 1,
	}
	w := NewWorker(store, q, q, runner, RetryPolicy{MaxAttempts: 3}, nil)

	w.handle(ctx, delivery)
	select {
	case next := <-deliveries:
		w.handle(ctx, next)
	case <-time.After(2 * time.Second):
		t.Fatal("retry never republished")
	}
	if runner.calls != 2 {
		t.Fatalf("runner called %d times, want 2", runner.calls)
	}

	tasks, err := store.ListCrawlTasks(ctx, "q1")
	if err != nil {
		t.Fatal(err)
	}
	if len(tasks) != 1 || tasks[0].Status != model.TaskDone {
		t.Fatalf("tasks = %+v, want one done task", tasks)
	}

	records, err := store.ListProcessRecords(ctx, "q1")
	if err != nil {
		t.Fatal(err)
	}
	if len(records) != 2 {
		t.Errorf("stored %d process records, want 2", len(records))
	}

	query, err := store.GetQuery(ctx, "q1")
	if err != nil {
		t.Fatal(err)
	}
	if query.ResultCount != 2 {
		t.Errorf("query result count = %d, want 2", query.ResultCount)
	}
}

func TestWorkerHandleNonRetryableErrorFailsImmediately(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	store := newTestStore(t)
	q := newTestQueue(t)
	delivery, _ := enqueueSingle(t, store, q)

	runner := &fakeRunner{err: errors.New("malformed results table")}
	w := NewWorker(store, q, q, runner, DefaultRetryPolicy(), nil)
	w.handle(ctx, delivery)

	if runner.calls != 1 {
		t.Errorf("runner called %d times, want 1", runner.calls)
	}
	tasks, err := store.ListCrawlTasks(ctx, "q1")
	if err != nil {
		t.Fatal(err)
	}
	if len(tasks) != 1 || tasks[0].Status != model.TaskFailed {
		t.Fatalf("tasks = %+v, want one failed task", tasks)
	}
}

func TestWorkerRunFanInWithPartialFailures(t *testing.T) {
	t.Parallel()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	store := newTestStore(t)
	q := newTestQueue(t)

	createTestQuery(t, store, "q1", testCPF)
	if _, err := New(store, q, q, nil).EnqueueCrawlsForQuery(ctx, "q1", testCPF, false); err != nil {
		t.Fatal(err)
	}

	// Four tribunals succeed with varying counts, two fail terminally —
	// TRF2 after persisting a partial record. The query still finishes,
	// and only the successful tasks' counts add up.
	runner := &tribunalRunner{
		results: map[model.Tribunal][]model.DetailedProcessData{
			model.TRF1: {detailFor("0008323-52.2018.4.01.3202")},
			model.TRF2: {detailFor("0008323-52.2018.4.02.5101")},
			model.TRF3: {
				detailFor("0008323-52.2018.4.03.6100"),
				detailFor("0008324-37.2018.4.03.6100"),
			},
			model.TRF4: {detailFor("0008323-52.2018.4.04.7000")},
		},
		errs: map[model.Tribunal]error{
			model.TRF2: errors.New("malformed results table"),
			model.TRF5: errors.New("malformed results table"),
		},
	}
	w := NewWorker(store, q, q, runner, RetryPolicy{MaxAttempts: 1}, nil)

	done := make(chan error, 1)
	go func() { done <- w.Run(ctx, model.AllTribunals()) }()

	deadline := time.After(5 * time.Second)
	for {
		query, err := store.GetQuery(context.Background(), "q1")
		if err != nil {
			t.Fatal(err)
		}
		if query.Status.IsTerminal() {
			break
		}
		select {
		case <-deadline:
			t.Fatal("query never finished")
		case <-time.After(10 * time.Millisecond):
		}
	}
	cancel()
	<-done

	tasks, err := store.ListCrawlTasks(context.Background(), "q1")
	if err != nil {
		t.Fatal(err)
	}
	if len(tasks) != len(model.AllTribunals()) {
		t.Fatalf("stored %d tasks, want %d", len(tasks), len(model.AllTribunals()))
	}
	statuses := map[model.Tribunal]model.TaskStatus{}
	for _, task := range tasks {
		statuses[task.Tribunal] = task.Status
	}
	for _, tribunal := range []model.Tribunal{model.TRF1, model.TRF3, model.TRF4, model.TRF6} {
		if statuses[tribunal] != model.TaskDone {
			t.Errorf("%s status = %q, want done", tribunal, statuses[tribunal])
		}
	}
	for _, tribunal := range []model.Tribunal{model.TRF2, model.TRF5} {
		if statuses[tribunal] != model.TaskFailed {
			t.Errorf("%s status = %q, want failed", tribunal, statuses[tribunal])
		}
	}

	// Partial tribunal failures never fail the query itself.
	query, err := store.GetQuery(context.Background(), "q1")
	if err != nil {
		t.Fatal(err)
	}
	if query.Status != model.QueryDone {
		t.Errorf("query status = %q, want done", query.Status)
	}
	// 1 (trf1) + 2 (trf3) + 1 (trf4); TRF2's partial record is stored
	// but its failed task contributes nothing to the counter.
	if query.ResultCount != 4 {
		t.Errorf("query result count = %d, want 4", query.ResultCount)
	}
}

func TestWorkerRunConsumesUntilCancelled(t *testing.T) {
	t.Parallel()

	ctx, cancel := context.WithCancel(context.Background())
	store := newTestStore(t)
	q := newTestQueue(t)

	createTestQuery(t, store, "q1", testCaseNumber)
	if _, err := New(store, q, q, nil).EnqueueCrawlsForQuery(ctx, "q1", testCaseNumber, false); err != nil {
		t.Fatal(err)
	}

	runner := &fakeRunner{results: []model.DetailedProcessData{detailFor(testCaseNumber)}}
	w := NewWorker(store, q, q, runner, DefaultRetryPolicy(), nil)

	done := make(chan error, 1)
	go func() { done <- w.Run(ctx, []model.Tribunal{model.TRF1}) }()

	deadline := time.After(2 * time.Second)
	for {
		query, err := store.GetQuery(context.Background(), "q1")
		if err != nil {
			t.Fatal(err)
		}
		if query.Status == model.QueryDone {
			break
		}
		select {
		case <-deadline:
			t.Fatal("query never finished")
		case <-time.After(10 * time.Millisecond):
		}
	}

	cancel()
	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("worker did not stop on cancel")
	}
}

func TestDefaultRetryPolicyBackoffGrows(t *testing.T) {
	t.Parallel()

	policy := DefaultRetryPolicy()
	if policy.MaxAttempts != 5 {
		t.Errorf("MaxAttempts = %d, want 5", policy.MaxAttempts)
	}
	if got := policy.delay(1); got != 10*time.Second {
		t.Errorf("delay(1) = %v, want 10s", got)
	}
	if got := policy.delay(3); got != 30*time.Second {
		t.Errorf("delay(3) = %v, want 30s", got)
	}
	if got := (RetryPolicy{MaxAttempts: 1}).delay(1); got != 0 {
		t.Errorf("nil Backoff delay = %v, want 0", got)
	}
}
