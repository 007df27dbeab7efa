// Package orchestrator fans user queries out into per-tribunal crawl
// tasks and drives workers that execute them.
//
// A query for a person identifier targets every federal regional court;
// a query for a unified case number targets only the court encoded in
// the number. Each target becomes one crawl task published to the task
// queue under the tribunal's routing key. Workers consume one tribunal
// each, run the tribunal's portal adapters inside a pooled browser
// session, and persist results as they stream in. Task completion is
// tracked with a group counter so that whichever task finishes last
// finalizes the query.
//
// Failures are split into two classes. A portal refusal (the portal
// answered but reported the search invalid or empty) completes the task
// with no results and is never retried. Infrastructure failures such as
// navigation timeouts or a dead browser are retried with the configured
// RetryPolicy and fail the task only after the attempt budget is spent.
package orchestrator
