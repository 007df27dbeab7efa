package extract

import (
	"errors"
	"testing"
)

// TestParseMovementRow tests the two-column movement grammar.
func TestParseMovementRow(t *testing.T) {
	t.Parallel()

	t.Run("movement with document", func(t *testing.T) {
		t.Parallel()

		m, err := ParseMovementRow(
			"17/04/2023 10:30:00 - Juntada de petição",
			"17/04/2023 10:31:02 - PET 12345",
		)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if m.Description != "Juntada de petição" {
			t.Errorf("description = %q", m.Description)
		}
		if len(m.Attachments) != 1 {
			t.Fatalf("attachments = %+v, want 1 entry", m.Attachments)
		}
		if m.Attachments[0].Ref != "PET 12345" {
			t.Errorf("attachment ref = %q", m.Attachments[0].Ref)
		}
	})

	t.Run("empty document column means zero attachments", func(t *testing.T) {
		t.Parallel()

		m, err := ParseMovementRow("17/04/2023 10:30:00 - Conclusos para despacho", "  ")
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if len(m.Attachments) != 0 {
			t.Errorf("attachments = %+v, want none", m.Attachments)
		}
	})

	t.Run("description keeps its own separators", func(t *testing.T) {
		t.Parallel()

		m, err := ParseMovementRow("17/04/2023 10:30:00 - Remessa - destino: TRF", "")
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if m.Description != "Remessa - destino: TRF" {
			t.Errorf("description = %q", m.Description)
		}
	})

	t.Run("bad timestamp is a hard error", func(t *testing.T) {
		t.Parallel()

		if _, err := ParseMovementRow("yesterday - Juntada", ""); !errors.Is(err, ErrUnparsableDate) {
			t.Errorf("error = %v, want ErrUnparsableDate", err)
		}
	})
}

// TestParseMovementsTable tests order preservation over a table fragment.
func TestParseMovementsTable(t *testing.T) {
	t.Parallel()

	html := `<table><tbody>
		<tr><td>18/04/2023 09:00:00 - Sentença publicada</td><td>18/04/2023 09:00:05 - SENT 1</td></tr>
		<tr><td>17/04/2023 10:30:00 - Conclusos</td><td></td></tr>
	</tbody></table>`

	movements, err := ParseMovementsTable(html)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(movements) != 2 {
		t.Fatalf("movements = %+v, want 2 entries", movements)
	}
	// Portal-native order is preserved, never re-sorted.
	if movements[0].Description != "Sentença publicada" || movements[1].Description != "Conclusos" {
		t.Errorf("order not preserved: %q, %q", movements[0].Description, movements[1].Description)
	}
	if len(movements[1].Attachments) != 0 {
		t.Errorf("second movement attachments = %+v, want none", movements[1].Attachments)
	}
}
