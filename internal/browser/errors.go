package browser

import "errors"

// Navigation errors. The orchestrator's retry policy keys off these:
// timeouts and unusable sessions are retried, blocked downloads are
// recorded as soft failures on the attachment.
var (
	// ErrWaitTimeout is returned when a wait condition never became true
	// within its timeout. It aborts only the current task, never the
	// whole query.
	ErrWaitTimeout = errors.New("wait condition timed out")

	// ErrSessionUnusable is returned when the browser no longer responds.
	// The session pool evicts the session and the task retries against a
	// fresh one.
	ErrSessionUnusable = errors.New("browser session is unusable")

	// ErrDownloadBlocked is returned when no file appeared in the download
	// directory before the timeout, typically an access-denied or login
	// redirect. Callers record the attachment with nil content instead of
	// failing the extraction.
	ErrDownloadBlocked = errors.New("download produced no file")

	// ErrNoNewWindow is returned when a click that should open a detail
	// window produced none.
	ErrNoNewWindow = errors.New("no new window appeared")
)
