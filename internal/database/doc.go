// Package database provides SQLite-based storage for crawl state.
//
// This package implements the Store, which holds:
//   - Queries: user searches and their accumulated result counts
//   - Crawl tasks: one record per tribunal in a query's fan-out
//   - Process records: extracted cases, deduplicated per tribunal
//
// Design decision: We use SQLite (via modernc.org/sqlite) instead of other
// databases because:
// 1. No external dependencies - the database is a single file
// 2. CGO-free implementation allows easy cross-compilation
// 3. Sufficient performance for our use case
// 4. WAL mode provides good concurrent read performance
package database
