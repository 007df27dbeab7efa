// Package queue distributes crawl tasks to workers. Tasks are routed by
// tribunal so each worker consumes exactly the courts it is provisioned
// for, and a group store counts down a query's outstanding tasks so the
// last one to finish can trigger finalization.
//
// Two implementations are provided: a Redis-backed queue for distributed
// deployments and an in-process queue for inline mode and tests.
package queue
