// Package model defines the domain records exchanged between the crawl
// engine, the orchestrator, and persistence.
//
// All record types are plain values: they carry no behavior beyond
// validation and equality, and they hold no references to sessions,
// adapters, or storage. Records produced by the extraction grammar are
// treated as immutable by convention; nothing mutates them after parsing.
package model
