package extract

import (
	"fmt"
	"strings"

	"github.com/PuerkitoBio/goquery"

	"github.com/arturlm/jusbr/internal/model"
)

// ParseAttachmentRows parses the documents grid of a case detail view
// into attachment metadata. The first cell's anchor renders an icon line
// followed by "timestamp - description"; content is filled in later by
// whoever performs the downloads.
func ParseAttachmentRows(tbodyHTML string) ([]model.Attachment, error) {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(tbodyHTML))
	if err != nil {
		return nil, fmt.Errorf("parse attachments table: %w", err)
	}

	var attachments []model.Attachment
	var parseErr error
	doc.Find("tr").EachWithBreak(func(_ int, row *goquery.Selection) bool {
		if strings.TrimSpace(row.Text()) == "" {
			return true
		}
		anchor := row.Find("td").First().Find("a").First()
		lines := nonEmptyLines(anchor.Text())
		if len(lines) == 0 {
			parseErr = fmt.Errorf("attachment row without label: %w", ErrMalformedRow)
			return false
		}
		label := lines[len(lines)-1]

		rawDate, description, found := strings.Cut(label, " - ")
		if !found {
			parseErr = fmt.Errorf("attachment label %q: %w", label, ErrMalformedRow)
			return false
		}
		createdAt, err := ParseDateTime(strings.TrimSpace(rawDate))
		if err != nil {
			parseErr = err
			return false
		}

		attachments = append(attachments, model.Attachment{
			CreatedAt:   createdAt,
			Description: strings.TrimSpace(description),
		})
		return true
	})
	if parseErr != nil {
		return nil, parseErr
	}
	return attachments, nil
}
