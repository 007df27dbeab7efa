package model

import (
	"errors"
	"fmt"
	"strings"
)

// ErrInvalidTerm is returned when a search term is neither an 11-digit
// person identifier nor a 20-digit case number. Adapters fail fast on it
// before touching any portal.
var ErrInvalidTerm = errors.New("search term is neither a person identifier nor a case number")

// TermKind classifies a search term.
type TermKind int

// Search term kinds.
const (
	// TermPerson is an 11-digit person identifier (CPF).
	TermPerson TermKind = iota + 1
	// TermCaseNumber is a 20-digit unified case number.
	TermCaseNumber
)

// ClassifyTerm decides whether term is a person identifier or a case
// number by digit count, ignoring punctuation. Any other length is an
// ErrInvalidTerm.
func ClassifyTerm(term string) (TermKind, error) {
	switch len(OnlyDigits(term)) {
	case 11:
		return TermPerson, nil
	case 20:
		return TermCaseNumber, nil
	default:
		return 0, fmt.Errorf("term %q: %w", term, ErrInvalidTerm)
	}
}

// OnlyDigits strips every non-digit rune from s.
func OnlyDigits(s string) string {
	var b strings.Builder
	b.Grow(len(s))
	for _, r := range s {
		if r >= '0' && r <= '9' {
			b.WriteRune(r)
		}
	}
	return b.String()
}

// FormatCPF renders an 11-digit person identifier in the punctuated form
// the portals expect in their search inputs (000.000.000-00).
func FormatCPF(cpf string) string {
	o := OnlyDigits(cpf)
	if len(o) != 11 {
		return cpf
	}
	return fmt.Sprintf("%s.%s.%s-%s", o[0:3], o[3:6], o[6:9], o[9:])
}

// FormatProcessNumber renders a 20-digit case number in the unified
// punctuated form (0000000-00.0000.0.00.0000).
func FormatProcessNumber(processNumber string) string {
	o := OnlyDigits(processNumber)
	if len(o) != 20 {
		return processNumber
	}
	return fmt.Sprintf("%s-%s.%s.%s.%s.%s", o[0:7], o[7:9], o[9:13], o[13:14], o[14:16], o[16:])
}
