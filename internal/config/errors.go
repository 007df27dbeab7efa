package config

import "errors"

// Validation errors returned by Config.Validate. Sentinel errors so
// callers can branch with errors.Is while still getting a readable
// message.
var (
	// ErrInvalidWaitTimeout is returned when the portal wait timeout is
	// not positive. Portals render asynchronously; a zero timeout would
	// fail every wait immediately.
	ErrInvalidWaitTimeout = errors.New("invalid wait timeout: must be positive")

	// ErrInvalidDownloadTimeout is returned when the attachment download
	// timeout is not positive.
	ErrInvalidDownloadTimeout = errors.New("invalid download timeout: must be positive")

	// ErrInvalidMaxAttempts is returned when the retry budget is not
	// positive. Every task needs at least one attempt.
	ErrInvalidMaxAttempts = errors.New("invalid max attempts: must be positive")

	// ErrInvalidListenAddr is returned when the API listen address is
	// empty.
	ErrInvalidListenAddr = errors.New("invalid listen address: must not be empty")

	// ErrInvalidRedisAddr is returned when Redis mode is selected without
	// a server address.
	ErrInvalidRedisAddr = errors.New("invalid redis address: must not be empty when redis queue is enabled")

	// ErrProxyListRequired is returned when proxy selection is enabled
	// without a candidate list file.
	ErrProxyListRequired = errors.New("proxy selection enabled but no proxy list file configured")

	// ErrInvalidTribunal is returned when the worker tribunal filter
	// names an unknown court.
	ErrInvalidTribunal = errors.New("invalid tribunal in worker filter")
)
