// Package api exposes the query HTTP interface: submitting a search,
// polling its status and reading the crawled processes. Crawling itself
// happens in workers; the API only creates queries, fans them out and
// reads stored state.
package api
