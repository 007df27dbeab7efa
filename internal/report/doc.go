// Package report renders a query's crawl outcome: the per-tribunal
// task results and every stored process, in human-readable text,
// Markdown or JSON.
//
// Writers implement the Writer interface so formats can be used
// interchangeably and composed for multi-destination output.
package report
