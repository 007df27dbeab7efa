package model

// DocumentKind tags the identifier type attached to a case party.
type DocumentKind string

// Document kinds inferred from the text surrounding a party name.
// Unknown is a valid terminal value for tokens that carry no digits at
// all; it is not an error.
const (
	DocumentCPF     DocumentKind = "cpf"
	DocumentCNPJ    DocumentKind = "cnpj"
	DocumentOAB     DocumentKind = "oab"
	DocumentUnknown DocumentKind = "unknown"
)

// DocumentParty is a tagged party identifier as rendered by a portal,
// e.g. {cpf, "12345678900"}.
type DocumentParty struct {
	Kind  DocumentKind `json:"kind"`
	Value string       `json:"value"`
}

// Equal reports whether two document identifiers are identical.
func (d DocumentParty) Equal(o DocumentParty) bool {
	return d.Kind == o.Kind && d.Value == o.Value
}

// Party is one participant of a case as extracted from a party table row.
// OtherName captures the "registered civilly as" alias some portals render
// inline with the legal name.
type Party struct {
	Name      string          `json:"name"`
	Role      string          `json:"role"`
	OtherName string          `json:"other_name,omitempty"`
	Documents []DocumentParty `json:"documents"`
}

// Equal reports whether two parties are element-wise identical. It is the
// comparison the pagination loop uses to detect a portal re-serving its
// last page.
func (p Party) Equal(o Party) bool {
	if p.Name != o.Name || p.Role != o.Role || p.OtherName != o.OtherName {
		return false
	}
	if len(p.Documents) != len(o.Documents) {
		return false
	}
	for i := range p.Documents {
		if !p.Documents[i].Equal(o.Documents[i]) {
			return false
		}
	}
	return true
}

// CaseParty groups the parties of a case by standing.
type CaseParty struct {
	Active  []Party `json:"active"`
	Passive []Party `json:"passive"`
	Others  []Party `json:"others"`
}
