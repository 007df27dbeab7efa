package extract

import (
	"errors"
	"fmt"
)

// Parsing errors.
//
// ErrUnparsableDate and ErrMalformedRow are hard errors: an unrecognized
// date or row shape means a portal changed its rendering and silent nulls
// would corrupt stored records.
var (
	// ErrUnparsableDate is returned for a timestamp in neither of the two
	// portal-native textual formats.
	ErrUnparsableDate = errors.New("unrecognized date format")

	// ErrMalformedRow is returned when a table row does not have the
	// structure the grammar expects.
	ErrMalformedRow = errors.New("malformed table row")

	// ErrMissingField is returned when a detail header lacks a required
	// property.
	ErrMissingField = errors.New("missing header field")
)

// UnclassifiedDocumentError reports a party-document token that contains
// digits but matches no known identifier pattern. It indicates a new,
// unhandled portal text pattern and is raised loudly rather than coerced
// to an unknown document, so it surfaces during adapter maintenance
// instead of corrupting data.
type UnclassifiedDocumentError struct {
	// Token is the offending text as rendered by the portal.
	Token string
}

// Error implements the error interface.
func (e *UnclassifiedDocumentError) Error() string {
	return fmt.Sprintf("cannot classify party document %q", e.Token)
}
