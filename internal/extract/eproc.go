package extract

import (
	"fmt"
	"strings"

	"github.com/PuerkitoBio/goquery"

	"github.com/arturlm/jusbr/internal/model"
)

// subjectUnavailable fills the subject column some listings leave blank.
const subjectUnavailable = "Assunto não disponível"

// ParseEprocResultRows parses the server-rendered result table of an
// eproc search: one plain row per case with number, plaintiff, defendant,
// subject and last-update columns. Header rows carry th cells and are
// skipped.
func ParseEprocResultRows(tableHTML string) ([]model.SimpleProcessData, error) {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(tableHTML))
	if err != nil {
		return nil, fmt.Errorf("parse eproc result table: %w", err)
	}
	table := doc.Find("table").First()
	if table.Length() == 0 {
		return nil, fmt.Errorf("eproc result table missing: %w", ErrMissingField)
	}

	var rows []model.SimpleProcessData
	var parseErr error
	table.Find("tr").EachWithBreak(func(_ int, row *goquery.Selection) bool {
		if row.Find("th").Length() > 0 || strings.TrimSpace(row.Text()) == "" {
			return true
		}
		cells := row.Find("td")
		if cells.Length() < 4 {
			parseErr = fmt.Errorf("eproc result row has %d cells: %w", cells.Length(), ErrMalformedRow)
			return false
		}

		data := model.SimpleProcessData{
			ProcessNumber: strings.TrimSpace(cells.Eq(0).Text()),
			Plaintiff:     strings.TrimSpace(cells.Eq(1).Text()),
			Defendant:     strings.TrimSpace(cells.Eq(2).Text()),
			Subject:       strings.TrimSpace(cells.Eq(3).Text()),
		}
		if data.Subject == "" {
			data.Subject = subjectUnavailable
		}
		if cells.Length() > 4 {
			if updated := strings.TrimSpace(cells.Eq(4).Text()); updated != "" {
				when, err := ParseDateTime(updated)
				if err != nil {
					parseErr = err
					return false
				}
				data.LastUpdate = when
			}
		}
		rows = append(rows, data)
		return true
	})
	if parseErr != nil {
		return nil, parseErr
	}
	return rows, nil
}

// ParseEprocParties parses the parties-and-representatives table of an
// eproc case view. The header row names the role of each column and the
// body cells list one participant per line, each line following the
// shared party grammar.
func ParseEprocParties(tableHTML string) ([]model.Party, error) {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(tableHTML))
	if err != nil {
		return nil, fmt.Errorf("parse eproc parties: %w", err)
	}

	var roles []string
	doc.Find("tr").First().Find("th").Each(func(_ int, th *goquery.Selection) {
		roles = append(roles, strings.TrimSpace(th.Text()))
	})

	var parties []model.Party
	var parseErr error
	doc.Find("tr").EachWithBreak(func(i int, row *goquery.Selection) bool {
		if i == 0 || row.Find("th").Length() > 0 {
			return true
		}
		row.Find("td").EachWithBreak(func(col int, cell *goquery.Selection) bool {
			role := ""
			if col < len(roles) {
				role = roles[col]
			}
			for _, line := range nonEmptyLines(cell.Text()) {
				party, err := parseEprocParticipant(line, role)
				if err != nil {
					parseErr = err
					return false
				}
				parties = append(parties, party)
			}
			return true
		})
		return parseErr == nil
	})
	if parseErr != nil {
		return nil, parseErr
	}
	return parties, nil
}

// parseEprocParticipant parses one "NAME (CPF: 000.000.000-00)" line. The
// parenthesis and document are optional; the role comes from the column
// header, not the line itself.
func parseEprocParticipant(line, role string) (model.Party, error) {
	name, rest, found := strings.Cut(line, " (")
	party := model.Party{Name: strings.TrimSpace(name), Role: role}
	if !found {
		return party, nil
	}

	doc, err := ClassifyDocument(strings.TrimSuffix(strings.TrimSpace(rest), ")"))
	if err != nil {
		return model.Party{}, err
	}
	if doc.Kind != model.DocumentUnknown || doc.Value != "" {
		party.Documents = append(party.Documents, doc)
	}
	return party, nil
}

// ParseEprocMovements parses the events table of an eproc case view:
// event number, timestamp, description and the acting user per row, in
// the portal's newest-first order.
func ParseEprocMovements(tableHTML string) ([]model.Movement, error) {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(tableHTML))
	if err != nil {
		return nil, fmt.Errorf("parse eproc movements: %w", err)
	}

	var movements []model.Movement
	var parseErr error
	doc.Find("tr").EachWithBreak(func(_ int, row *goquery.Selection) bool {
		if row.Find("th").Length() > 0 || strings.TrimSpace(row.Text()) == "" {
			return true
		}
		cells := row.Find("td")
		if cells.Length() < 3 {
			parseErr = fmt.Errorf("eproc event row has %d cells: %w", cells.Length(), ErrMalformedRow)
			return false
		}
		when, err := ParseDateTime(strings.TrimSpace(cells.Eq(1).Text()))
		if err != nil {
			parseErr = err
			return false
		}
		movements = append(movements, model.Movement{
			CreatedAt:   when,
			Description: strings.TrimSpace(cells.Eq(2).Text()),
		})
		return true
	})
	if parseErr != nil {
		return nil, parseErr
	}
	return movements, nil
}
