package extract

import (
	"fmt"
	"strings"

	"github.com/PuerkitoBio/goquery"

	"github.com/arturlm/jusbr/internal/model"
)

// ParseSimpleRow parses one search-result row. The second cell packs three
// lines (judicial class, "ABV number - subject", "plaintiff X defendant");
// the third cell renders "status (timestamp)".
func ParseSimpleRow(row *goquery.Selection) (model.SimpleProcessData, error) {
	cells := row.Find("td")
	if cells.Length() < 3 {
		return model.SimpleProcessData{}, fmt.Errorf("result row has %d cells: %w", cells.Length(), ErrMalformedRow)
	}

	info := cells.Eq(1)
	lines := nonEmptyLines(info.Text())
	if len(lines) < 3 {
		return model.SimpleProcessData{}, fmt.Errorf("result row info cell %q: %w", info.Text(), ErrMalformedRow)
	}

	// The bold fragment carries "ABV number - subject"; fall back to the
	// middle line when the portal drops the markup but keeps the text.
	titled := strings.TrimSpace(info.Find("b").First().Text())
	if titled == "" {
		titled = lines[1]
	}
	firstPart, subject, found := strings.Cut(titled, " - ")
	if !found {
		return model.SimpleProcessData{}, fmt.Errorf("result row title %q: %w", titled, ErrMalformedRow)
	}
	classAbv, processNumber, found := strings.Cut(strings.TrimSpace(firstPart), " ")
	if !found {
		return model.SimpleProcessData{}, fmt.Errorf("result row title %q: %w", titled, ErrMalformedRow)
	}

	plaintiff, defendant, found := strings.Cut(lines[len(lines)-1], " X ")
	if !found {
		return model.SimpleProcessData{}, fmt.Errorf("result row parties %q: %w", lines[len(lines)-1], ErrMalformedRow)
	}

	statusText := strings.TrimSpace(cells.Eq(2).Text())
	i := strings.LastIndex(statusText, "(")
	if i < 0 {
		return model.SimpleProcessData{}, fmt.Errorf("result row status %q: %w", statusText, ErrMalformedRow)
	}
	lastUpdate, err := ParseDateTime(strings.Trim(statusText[i:], "() "))
	if err != nil {
		return model.SimpleProcessData{}, err
	}

	return model.SimpleProcessData{
		ProcessClass:    lines[0],
		ProcessClassAbv: strings.TrimSpace(classAbv),
		ProcessNumber:   strings.TrimSpace(processNumber),
		Subject:         strings.TrimSpace(subject),
		Plaintiff:       strings.TrimSpace(plaintiff),
		Defendant:       strings.TrimSpace(defendant),
		Status:          strings.TrimSpace(statusText[:i]),
		LastUpdate:      lastUpdate,
	}, nil
}

// ParseResultRows parses every row of a search-result table body.
func ParseResultRows(tbodyHTML string) ([]model.SimpleProcessData, error) {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(tbodyHTML))
	if err != nil {
		return nil, fmt.Errorf("parse result table: %w", err)
	}

	var rows []model.SimpleProcessData
	var parseErr error
	doc.Find("tr").EachWithBreak(func(_ int, row *goquery.Selection) bool {
		if strings.TrimSpace(row.Text()) == "" {
			return true
		}
		data, err := ParseSimpleRow(row)
		if err != nil {
			parseErr = err
			return false
		}
		rows = append(rows, data)
		return true
	})
	if parseErr != nil {
		return nil, parseErr
	}
	return rows, nil
}

// nonEmptyLines splits s on newlines and drops blank lines after trimming.
func nonEmptyLines(s string) []string {
	var lines []string
	for _, line := range strings.Split(s, "\n") {
		if line = strings.TrimSpace(line); line != "" {
			lines = append(lines, line)
		}
	}
	return lines
}
