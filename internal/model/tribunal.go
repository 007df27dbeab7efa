package model

import (
	"fmt"
	"strconv"
)

// Tribunal identifies one of the regional federal courts targeted by the
// crawler. It is used as the routing key for crawl tasks and as the key
// for browser session ownership.
type Tribunal string

// The six regional federal courts. A person search fans out to all of
// them; a case-number search resolves to exactly one via
// TribunalFromProcessNumber.
const (
	TRF1 Tribunal = "trf1"
	TRF2 Tribunal = "trf2"
	TRF3 Tribunal = "trf3"
	TRF4 Tribunal = "trf4"
	TRF5 Tribunal = "trf5"
	TRF6 Tribunal = "trf6"
)

// AllTribunals returns every crawl target in fan-out order.
func AllTribunals() []Tribunal {
	return []Tribunal{TRF1, TRF2, TRF3, TRF4, TRF5, TRF6}
}

// ParseTribunal validates a tribunal name as received from queue payloads
// or CLI flags.
func ParseTribunal(s string) (Tribunal, error) {
	for _, t := range AllTribunals() {
		if string(t) == s {
			return t, nil
		}
	}
	return "", fmt.Errorf("unknown tribunal %q", s)
}

// String returns the tribunal name (e.g. "trf1").
func (t Tribunal) String() string { return string(t) }

// TribunalFromProcessNumber derives the target tribunal from a unified
// case number. The national numbering scheme encodes the court in digits
// 14..15 (zero-based) of the 20-digit number; only values 1 through 6 map
// to a federal regional court.
func TribunalFromProcessNumber(processNumber string) (Tribunal, error) {
	digits := OnlyDigits(processNumber)
	if len(digits) != 20 {
		return "", fmt.Errorf("process number %q: %w", processNumber, ErrInvalidTerm)
	}
	n, err := strconv.Atoi(digits[14:16])
	if err != nil || n < 1 || n > 6 {
		return "", fmt.Errorf("process number %q encodes no federal regional court: %w", processNumber, ErrInvalidTerm)
	}
	return Tribunal(fmt.Sprintf("trf%d", n)), nil
}

// Grade names a deployment instance of a portal for a tribunal. Most
// tribunals expose separate first- and second-instance portals that are
// queried independently.
type Grade string

// Known portal instances.
const (
	GradePJe1   Grade = "pje1g"
	GradePJe2   Grade = "pje2g"
	GradeEproc1 Grade = "eproc1g"
	GradeEproc2 Grade = "eproc2g"
)
