package portal

// PortalError carries a message the portal itself displayed: a "no
// results" banner, a rejected search, an access restriction. These are
// terminal answers from the portal, not transient failures, so tasks
// that hit one record an empty result instead of retrying.
type PortalError struct {
	Message string
}

// Error implements error with the portal's own words.
func (e *PortalError) Error() string { return e.Message }
