package extract

import (
	"fmt"
	"strings"

	"github.com/PuerkitoBio/goquery"

	"github.com/arturlm/jusbr/internal/model"
)

// civilNameMarker splits a legal name from the "also known as" alias some
// portals render inline with it.
const civilNameMarker = " registrado(a) civilmente como "

// ParseParty parses one party line as rendered by the portals:
//
//	name - doc1 - doc2 - ... - lastDoc (role)
//
// optionally followed, inside the role segment, by a newline-delimited
// alias. Splitting is on the literal " - " separator; the last segment is
// split again on " (" to isolate the role from the final document.
func ParseParty(line string) (model.Party, error) {
	parts := strings.Split(strings.TrimSpace(line), " - ")

	last := parts[len(parts)-1]
	lastDoc, roleRaw, found := strings.Cut(last, " (")
	if !found {
		return model.Party{}, fmt.Errorf("party line %q has no role segment: %w", line, ErrMalformedRow)
	}

	role := strings.TrimSpace(strings.ReplaceAll(roleRaw, ")", ""))
	other := ""
	if i := strings.LastIndex(role, "\n"); i >= 0 {
		other = strings.TrimSpace(role[i+1:])
		role = strings.TrimSpace(role[:i])
	}

	var docTokens []string
	name := strings.TrimSpace(parts[0])
	if len(parts) > 1 {
		docTokens = append(docTokens, parts[1:len(parts)-1]...)
		docTokens = append(docTokens, strings.TrimSpace(lastDoc))
	} else {
		// Lines without any document render as "name (role)".
		name = strings.TrimSpace(lastDoc)
	}

	if o, n, found := strings.Cut(name, civilNameMarker); found {
		other, name = strings.TrimSpace(o), strings.TrimSpace(n)
	}

	documents := make([]model.DocumentParty, 0, len(docTokens))
	for _, token := range docTokens {
		doc, err := ClassifyDocument(token)
		if err != nil {
			return model.Party{}, err
		}
		documents = append(documents, doc)
	}

	return model.Party{
		Name:      name,
		Role:      role,
		OtherName: other,
		Documents: documents,
	}, nil
}

// ParsePartyRows parses every row of a party table body. Each row's first
// cell holds one party line.
func ParsePartyRows(tbodyHTML string) ([]model.Party, error) {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(tbodyHTML))
	if err != nil {
		return nil, fmt.Errorf("parse party table: %w", err)
	}

	var parties []model.Party
	var parseErr error
	doc.Find("tr").EachWithBreak(func(_ int, row *goquery.Selection) bool {
		text := strings.TrimSpace(row.Find("td").First().Text())
		if text == "" {
			return true
		}
		party, err := ParseParty(text)
		if err != nil {
			parseErr = err
			return false
		}
		parties = append(parties, party)
		return true
	})
	if parseErr != nil {
		return nil, parseErr
	}
	return parties, nil
}
