package extract

import (
	"strings"

	"github.com/arturlm/jusbr/internal/model"
)

// ClassifyDocument classifies a free-text identifier token rendered next
// to a party name.
//
// The classification is total over the shapes the portals produce:
//   - a "CPF" marker or an 11-character digit/asterisk mask → cpf
//   - a "CNPJ" marker or a 14-character digit/asterisk mask → cnpj
//   - an "OAB" marker → oab
//   - no digits at all → unknown (a valid terminal value, not an error)
//   - digits in any other shape → UnclassifiedDocumentError
//
// Asterisks count as masked digits because the portals redact part of the
// identifier for unauthenticated visitors.
func ClassifyDocument(token string) (model.DocumentParty, error) {
	upper := strings.ToUpper(strings.TrimSpace(token))

	switch {
	case strings.Contains(upper, "CPF"):
		return model.DocumentParty{Kind: model.DocumentCPF, Value: stripMarker(upper, "CPF")}, nil
	case strings.Contains(upper, "CNPJ"):
		return model.DocumentParty{Kind: model.DocumentCNPJ, Value: stripMarker(upper, "CNPJ")}, nil
	case strings.Contains(upper, "OAB"):
		return model.DocumentParty{Kind: model.DocumentOAB, Value: strings.TrimSpace(strings.ReplaceAll(upper, "OAB", ""))}, nil
	}

	if masked := stripMarker(upper, ""); maskedDigits(masked) {
		switch len(masked) {
		case 11:
			return model.DocumentParty{Kind: model.DocumentCPF, Value: masked}, nil
		case 14:
			return model.DocumentParty{Kind: model.DocumentCNPJ, Value: masked}, nil
		}
	}

	if strings.ContainsAny(upper, "0123456789") {
		return model.DocumentParty{}, &UnclassifiedDocumentError{Token: token}
	}
	return model.DocumentParty{Kind: model.DocumentUnknown, Value: upper}, nil
}

// stripMarker removes the kind marker and the punctuation the portals mix
// into identifier renderings.
func stripMarker(s, marker string) string {
	if marker != "" {
		s = strings.ReplaceAll(s, marker, "")
	}
	for _, p := range []string{".", "-", "/", ":", "(", ")", " "} {
		s = strings.ReplaceAll(s, p, "")
	}
	return strings.TrimSpace(s)
}

// maskedDigits reports whether s is non-empty and made solely of digits
// and redaction asterisks.
func maskedDigits(s string) bool {
	if s == "" {
		return false
	}
	for _, r := range s {
		if (r < '0' || r > '9') && r != '*' {
			return false
		}
	}
	return true
}
