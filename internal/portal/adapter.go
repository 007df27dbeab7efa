package portal

import (
	"context"
	"fmt"
	"strings"

	"github.com/arturlm/jusbr/internal/browser"
	"github.com/arturlm/jusbr/internal/model"
)

// Emit receives one fully extracted case. Adapters call it as soon as a
// case is complete so results survive even when a later case in the same
// crawl fails.
type Emit func(model.DetailedProcessData) error

// Adapter crawls one portal for a search term, driving the shared
// browser session and emitting every case it can fully extract.
type Adapter interface {
	// Name identifies the portal in logs and task errors.
	Name() string
	Tribunal() model.Tribunal
	Grade() model.Grade
	Crawl(ctx context.Context, sess *browser.Session, term string, emit Emit) error
}

// searchValue formats a raw term the way the portals' input masks expect
// it: punctuated CPF for person terms, punctuated unified number for
// case terms.
func searchValue(term string) (model.TermKind, string, error) {
	kind, err := model.ClassifyTerm(term)
	if err != nil {
		return 0, "", err
	}
	digits := model.OnlyDigits(term)
	switch kind {
	case model.TermPerson:
		return kind, model.FormatCPF(digits), nil
	case model.TermCaseNumber:
		return kind, model.FormatProcessNumber(digits), nil
	}
	return 0, "", fmt.Errorf("unhandled term kind %d: %w", kind, model.ErrInvalidTerm)
}

// escapeColons escapes JSF component ids for use in CSS selectors.
func escapeColons(id string) string {
	return strings.ReplaceAll(id, ":", `\:`)
}
