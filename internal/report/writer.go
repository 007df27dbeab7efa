package report

import (
	"context"
	"fmt"
	"io"

	"github.com/arturlm/jusbr/internal/database"
	"github.com/arturlm/jusbr/internal/model"
)

// QueryReport aggregates everything stored for one query.
type QueryReport struct {
	Query     model.Query              `json:"query"`
	Tasks     []model.CrawlTask        `json:"tasks"`
	Processes []database.ProcessRecord `json:"processes"`
}

// Build assembles a QueryReport from the store.
func Build(ctx context.Context, store *database.Store, queryID string) (*QueryReport, error) {
	query, err := store.GetQuery(ctx, queryID)
	if err != nil {
		return nil, err
	}
	if query == nil {
		return nil, fmt.Errorf("query %s not found", queryID)
	}

	tasks, err := store.ListCrawlTasks(ctx, queryID)
	if err != nil {
		return nil, err
	}
	processes, err := store.ListProcessRecords(ctx, queryID)
	if err != nil {
		return nil, err
	}
	return &QueryReport{Query: *query, Tasks: tasks, Processes: processes}, nil
}

// TasksByStatus counts the query's tasks per terminal state.
func (r *QueryReport) TasksByStatus() (done, failed, running int) {
	for _, task := range r.Tasks {
		switch task.Status {
		case model.TaskDone:
			done++
		case model.TaskFailed:
			failed++
		default:
			running++
		}
	}
	return done, failed, running
}

// ProcessesByTribunal groups the stored processes per tribunal,
// preserving tribunal fan-out order.
func (r *QueryReport) ProcessesByTribunal() map[model.Tribunal][]database.ProcessRecord {
	out := make(map[model.Tribunal][]database.ProcessRecord)
	for _, record := range r.Processes {
		out[record.Tribunal] = append(out[record.Tribunal], record)
	}
	return out
}

// Writer renders a QueryReport to its configured destination.
type Writer interface {
	// Write outputs the report and returns the number of bytes written.
	Write(report *QueryReport) (int, error)
}

// MultiWriter writes to several Writers in sequence, stopping at the
// first error. Useful for writing to both terminal and file.
type MultiWriter struct {
	writers []Writer
}

// NewMultiWriter creates a Writer that writes to all provided Writers.
func NewMultiWriter(writers ...Writer) *MultiWriter {
	return &MultiWriter{writers: writers}
}

// Write outputs the report to all configured Writers. It returns the
// total bytes written.
func (m *MultiWriter) Write(report *QueryReport) (int, error) {
	var total int
	for _, w := range m.writers {
		n, err := w.Write(report)
		total += n
		if err != nil {
			return total, err
		}
	}
	return total, nil
}

// baseWriter carries the shared output destination.
type baseWriter struct {
	output io.Writer
}

func newBaseWriter(output io.Writer) baseWriter {
	return baseWriter{output: output}
}
