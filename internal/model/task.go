package model

import "time"

// TaskStatus is the lifecycle state of one tribunal's crawl task.
type TaskStatus string

// Crawl task states. A task is terminal once done, or failed after
// exhausting its retry budget.
const (
	TaskRunning TaskStatus = "running"
	TaskDone    TaskStatus = "done"
	TaskFailed  TaskStatus = "failed"
)

// IsTerminal reports whether the task reached a final state.
func (s TaskStatus) IsTerminal() bool {
	return s == TaskDone || s == TaskFailed
}

// CrawlTask is one tribunal's unit of work within a query's fan-out. It is
// created when the orchestrator fans out a query and mutated only by the
// task executing for that tribunal.
type CrawlTask struct {
	ID         string     `json:"id"`
	QueryID    string     `json:"query_id"`
	Tribunal   Tribunal   `json:"tribunal"`
	Status     TaskStatus `json:"status"`
	Attempts   int        `json:"attempts"`
	LastError  string     `json:"last_error,omitempty"`
	StartedAt  time.Time  `json:"started_at"`
	FinishedAt *time.Time `json:"finished_at,omitempty"`
}

// QueryStatus is the aggregate state of a user query.
type QueryStatus string

// Query states. Transitions are owned exclusively by the orchestrator once
// crawling starts; the API layer only ever creates queued queries.
const (
	QueryQueued  QueryStatus = "queued"
	QueryRunning QueryStatus = "running"
	QueryDone    QueryStatus = "done"
	QueryFailed  QueryStatus = "failed"
)

// IsTerminal reports whether the query reached a final state.
func (s QueryStatus) IsTerminal() bool {
	return s == QueryDone || s == QueryFailed
}

// Query is a user search fanned out across tribunals. ResultCount
// accumulates additively as each tribunal's task persists its results;
// tasks complete out of order and independently, so it is only ever
// incremented, never overwritten.
type Query struct {
	ID          string      `json:"id"`
	SearchTerm  string      `json:"search_term"`
	Status      QueryStatus `json:"status"`
	ResultCount int         `json:"result_count"`
	CreatedAt   time.Time   `json:"created_at"`
	UpdatedAt   time.Time   `json:"updated_at"`
}
