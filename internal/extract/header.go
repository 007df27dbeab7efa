package extract

import (
	"fmt"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"golang.org/x/text/unicode/norm"

	"github.com/arturlm/jusbr/internal/model"
)

// Header labels as the portals render them. Lookup goes through
// normalizeLabel so that composition differences and non-breaking spaces
// in the portal markup do not break field resolution.
const (
	labelProcessNumber     = "Número Processo"
	labelDistributionDate  = "Data da Distribuição"
	labelJudicialClass     = "Classe Judicial"
	labelSubject           = "Assunto"
	labelJurisdiction      = "Jurisdição"
	labelCollegiateEntity  = "Órgão Julgador Colegiado"
	labelJudgeEntity       = "Órgão Julgador"
	labelReferencedProcess = "Processo referência"
)

// ParseProcessHeader extracts the case header fields from a detail view.
// selector addresses the property spans of the header grid; each span
// holds a div.name / div.value pair. Some portals render a span with an
// empty name whose value div packs both the label and the value; those
// are recovered by splitting the packed text on its first newline.
func ParseProcessHeader(detailHTML, selector string) (model.ProcessData, error) {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(detailHTML))
	if err != nil {
		return model.ProcessData{}, fmt.Errorf("parse detail header: %w", err)
	}

	fields := map[string]string{}
	doc.Find(selector).Each(func(_ int, span *goquery.Selection) {
		name := normalizeLabel(span.Find("div > div.name").First().Text())
		value := strings.TrimSpace(span.Find("div > div.value").First().Text())
		if name != "" {
			fields[name] = value
			return
		}
		packed := span.Find("div > div.value > div").First().Text()
		key, val, found := strings.Cut(strings.TrimSpace(packed), "\n")
		if !found {
			return
		}
		val = strings.ReplaceAll(strings.TrimSpace(val), "\t", "")
		val = strings.ReplaceAll(val, "\n\n", " - ")
		fields[normalizeLabel(key)] = val
	})

	required := func(label string) (string, error) {
		v, ok := fields[normalizeLabel(label)]
		if !ok || v == "" {
			return "", fmt.Errorf("%q: %w", label, ErrMissingField)
		}
		return v, nil
	}

	processNumber, err := required(labelProcessNumber)
	if err != nil {
		return model.ProcessData{}, err
	}
	distRaw, err := required(labelDistributionDate)
	if err != nil {
		return model.ProcessData{}, err
	}
	distributionDate, err := ParseDate(distRaw)
	if err != nil {
		return model.ProcessData{}, err
	}
	judicialClass, err := required(labelJudicialClass)
	if err != nil {
		return model.ProcessData{}, err
	}
	subject, err := required(labelSubject)
	if err != nil {
		return model.ProcessData{}, err
	}
	jurisdiction, err := required(labelJurisdiction)
	if err != nil {
		return model.ProcessData{}, err
	}

	return model.ProcessData{
		ProcessNumber:           processNumber,
		DistributionDate:        distributionDate,
		JudicialClass:           judicialClass,
		Subject:                 subject,
		Jurisdiction:            jurisdiction,
		JudgeEntity:             fields[normalizeLabel(labelJudgeEntity)],
		CollegiateJudgeEntity:   fields[normalizeLabel(labelCollegiateEntity)],
		ReferencedProcessNumber: fields[normalizeLabel(labelReferencedProcess)],
	}, nil
}

// normalizeLabel canonicalizes a header label for map lookup: NFC
// composition, non-breaking spaces to plain spaces, trimmed.
func normalizeLabel(s string) string {
	s = norm.NFC.String(s)
	s = strings.ReplaceAll(s, " ", " ")
	return strings.TrimSpace(s)
}
