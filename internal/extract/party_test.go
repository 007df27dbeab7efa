package extract

import (
	"errors"
	"testing"

	"github.com/arturlm/jusbr/internal/model"
)

// TestParseParty tests the party-line grammar.
func TestParseParty(t *testing.T) {
	t.Parallel()

	t.Run("name, single document and role", func(t *testing.T) {
		t.Parallel()

		party, err := ParseParty("John Doe - CPF: 12345678900 (AUTOR)")
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if party.Name != "John Doe" {
			t.Errorf("name = %q", party.Name)
		}
		if party.Role != "AUTOR" {
			t.Errorf("role = %q", party.Role)
		}
		want := []model.DocumentParty{{Kind: model.DocumentCPF, Value: "12345678900"}}
		if len(party.Documents) != 1 || !party.Documents[0].Equal(want[0]) {
			t.Errorf("documents = %+v, want %+v", party.Documents, want)
		}
	})

	t.Run("multiple documents", func(t *testing.T) {
		t.Parallel()

		party, err := ParseParty("ADVOCACIA LTDA - CNPJ: 12.345.678/0001-95 - OAB SP123456 (ADVOGADO)")
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if len(party.Documents) != 2 {
			t.Fatalf("documents = %+v, want 2 entries", party.Documents)
		}
		if party.Documents[0].Kind != model.DocumentCNPJ || party.Documents[1].Kind != model.DocumentOAB {
			t.Errorf("document kinds = %q, %q", party.Documents[0].Kind, party.Documents[1].Kind)
		}
	})

	t.Run("civil registration alias", func(t *testing.T) {
		t.Parallel()

		party, err := ParseParty("Maria Silva registrado(a) civilmente como Maria Souza - CPF: 12345678900 (RÉ)")
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if party.Name != "Maria Souza" {
			t.Errorf("name = %q, want civil name", party.Name)
		}
		if party.OtherName != "Maria Silva" {
			t.Errorf("other name = %q", party.OtherName)
		}
	})

	t.Run("newline-delimited alias in role segment", func(t *testing.T) {
		t.Parallel()

		party, err := ParseParty("John Doe - CPF: 12345678900 (AUTOR)\nJohnny")
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if party.Role != "AUTOR" {
			t.Errorf("role = %q", party.Role)
		}
		if party.OtherName != "Johnny" {
			t.Errorf("other name = %q", party.OtherName)
		}
	})

	t.Run("no documents at all", func(t *testing.T) {
		t.Parallel()

		party, err := ParseParty("MINISTÉRIO PÚBLICO FEDERAL (FISCAL DA LEI)")
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if party.Name != "MINISTÉRIO PÚBLICO FEDERAL" {
			t.Errorf("name = %q", party.Name)
		}
		if len(party.Documents) != 0 {
			t.Errorf("documents = %+v, want none", party.Documents)
		}
	})

	t.Run("missing role segment is malformed", func(t *testing.T) {
		t.Parallel()

		if _, err := ParseParty("John Doe - CPF: 12345678900"); !errors.Is(err, ErrMalformedRow) {
			t.Errorf("error = %v, want ErrMalformedRow", err)
		}
	})

	t.Run("unclassifiable document propagates", func(t *testing.T) {
		t.Parallel()

		_, err := ParseParty("John Doe - RG 9876543 (AUTOR)")
		var docErr *UnclassifiedDocumentError
		if !errors.As(err, &docErr) {
			t.Errorf("error = %v, want UnclassifiedDocumentError", err)
		}
	})
}

// TestParsePartyRows tests extraction from a party table body fragment.
func TestParsePartyRows(t *testing.T) {
	t.Parallel()

	html := `<table><tbody>
		<tr><td>John Doe - CPF: 12345678900 (AUTOR)</td></tr>
		<tr><td></td></tr>
		<tr><td>UNIÃO FEDERAL - CNPJ: 00.000.000/0001-91 (RÉ)</td></tr>
	</tbody></table>`

	parties, err := ParsePartyRows(html)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(parties) != 2 {
		t.Fatalf("parties = %+v, want 2 entries", parties)
	}
	if parties[1].Name != "UNIÃO FEDERAL" {
		t.Errorf("second party name = %q", parties[1].Name)
	}
}
