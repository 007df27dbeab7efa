// Package extract implements the extraction grammar: pure, side-effect-free
// functions that turn portal HTML fragments and text tokens into domain
// records.
//
// Nothing in this package performs I/O. Adapters capture HTML snapshots
// through the navigation session and hand them here; this keeps every
// parsing rule testable against literal fixtures, which matters because
// the portals render inconsistent markup with many special cases.
package extract
