package extract

import (
	"fmt"
	"strings"

	"github.com/PuerkitoBio/goquery"

	"github.com/arturlm/jusbr/internal/model"
)

// ParseMovementRow parses one movement table row from its two columns: a
// timestamp+description column and an optional document column. An empty
// document column yields zero attachments, never a placeholder.
func ParseMovementRow(timeCol, docCol string) (model.Movement, error) {
	createdRaw, description, found := strings.Cut(strings.TrimSpace(timeCol), " - ")
	if !found {
		return model.Movement{}, fmt.Errorf("movement cell %q: %w", timeCol, ErrMalformedRow)
	}
	createdAt, err := ParseDateTime(createdRaw)
	if err != nil {
		return model.Movement{}, err
	}

	m := model.Movement{
		CreatedAt:   createdAt,
		Description: strings.TrimSpace(description),
	}

	docCol = strings.TrimSpace(docCol)
	if docCol == "" {
		return m, nil
	}

	dateRaw, ref, found := strings.Cut(docCol, " - ")
	if !found {
		return model.Movement{}, fmt.Errorf("movement document cell %q: %w", docCol, ErrMalformedRow)
	}
	date, err := ParseDateTime(dateRaw)
	if err != nil {
		return model.Movement{}, err
	}
	m.Attachments = append(m.Attachments, model.MovementAttachment{
		Date: date,
		Ref:  strings.TrimSpace(ref),
	})
	return m, nil
}

// ParseMovementsTable parses every row of a movements table body,
// preserving portal-native order.
func ParseMovementsTable(tbodyHTML string) ([]model.Movement, error) {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(tbodyHTML))
	if err != nil {
		return nil, fmt.Errorf("parse movements table: %w", err)
	}

	var movements []model.Movement
	var parseErr error
	doc.Find("tr").EachWithBreak(func(_ int, row *goquery.Selection) bool {
		cells := row.Find("td")
		if cells.Length() == 0 {
			return true
		}
		timeCol := cells.Eq(0).Text()
		docCol := ""
		if cells.Length() > 1 {
			docCol = cells.Eq(1).Text()
		}
		m, err := ParseMovementRow(timeCol, docCol)
		if err != nil {
			parseErr = err
			return false
		}
		movements = append(movements, m)
		return true
	})
	if parseErr != nil {
		return nil, parseErr
	}
	return movements, nil
}
