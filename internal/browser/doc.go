// Package browser wraps a Chrome DevTools session behind the navigation
// primitives the portal adapters need: navigate, wait-for-condition, fill,
// click, AJAX form submission with view-state threading, window handle
// tracking, and download capture.
//
// It also provides the per-tribunal session pool. Each tribunal owns one
// long-lived session guarded by a mutex, so two crawl tasks for the same
// tribunal never drive the same browser concurrently, while tasks for
// different tribunals run fully in parallel.
package browser
