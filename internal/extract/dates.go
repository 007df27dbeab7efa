package extract

import (
	"fmt"
	"strings"
	"time"
)

// The portals render timestamps in exactly two textual shapes. The two are
// disambiguated by their separator, never by trial parsing, because the
// day/month order differs between them.
const (
	layoutISO        = "2006-01-02 15:04:05"
	layoutBR         = "02/01/2006 15:04:05"
	layoutISODateOnly = "2006-01-02"
	layoutBRDateOnly  = "02/01/2006"
)

// ParseDateTime parses a portal timestamp in either YYYY-MM-DD HH:MM:SS or
// DD/MM/YYYY HH:MM:SS form. Trailing decorations after the seconds are
// ignored. An unrecognized shape is a hard error.
func ParseDateTime(s string) (time.Time, error) {
	s = strings.TrimSpace(s)
	if len(s) < len(layoutISO) {
		return time.Time{}, fmt.Errorf("%q: %w", s, ErrUnparsableDate)
	}
	head := s[:len(layoutISO)]
	switch {
	case strings.Count(head, "-") == 2 && strings.Count(head, ":") == 2:
		return parseAs(layoutISO, head)
	case strings.Count(head, "/") == 2 && strings.Count(head, ":") == 2:
		return parseAs(layoutBR, head)
	default:
		return time.Time{}, fmt.Errorf("%q: %w", s, ErrUnparsableDate)
	}
}

// ParseDate parses a portal date in either YYYY-MM-DD or DD/MM/YYYY form,
// ignoring any time suffix.
func ParseDate(s string) (time.Time, error) {
	s = strings.TrimSpace(s)
	if len(s) < len(layoutISODateOnly) {
		return time.Time{}, fmt.Errorf("%q: %w", s, ErrUnparsableDate)
	}
	head := s[:len(layoutISODateOnly)]
	switch {
	case strings.Count(head, "-") == 2:
		return parseAs(layoutISODateOnly, head)
	case strings.Count(head, "/") == 2:
		return parseAs(layoutBRDateOnly, head)
	default:
		return time.Time{}, fmt.Errorf("%q: %w", s, ErrUnparsableDate)
	}
}

func parseAs(layout, s string) (time.Time, error) {
	t, err := time.Parse(layout, s)
	if err != nil {
		return time.Time{}, fmt.Errorf("%q: %w", s, ErrUnparsableDate)
	}
	return t, nil
}
