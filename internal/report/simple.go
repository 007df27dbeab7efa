package report

import (
	"fmt"
	"io"
	"strings"

	"github.com/arturlm/jusbr/internal/model"
)

// SimpleWriter outputs human-readable text for terminal display. Plain
// ASCII so the output pipes cleanly to files and other tools.
type SimpleWriter struct {
	baseWriter

	// verbose adds the party and movement listing per process.
	verbose bool
}

// SimpleWriterOption configures a SimpleWriter.
type SimpleWriterOption func(*SimpleWriter)

// WithVerbose enables per-process party and movement details.
func WithVerbose(verbose bool) SimpleWriterOption {
	return func(w *SimpleWriter) { w.verbose = verbose }
}

// NewSimpleWriter creates a SimpleWriter that outputs to the given
// writer.
func NewSimpleWriter(output io.Writer, opts ...SimpleWriterOption) *SimpleWriter {
	w := &SimpleWriter{baseWriter: newBaseWriter(output)}
	for _, opt := range opts {
		opt(w)
	}
	return w
}

// Write implements Writer.
func (w *SimpleWriter) Write(report *QueryReport) (int, error) {
	var b strings.Builder

	b.WriteString("Query: " + report.Query.ID + "\n")
	b.WriteString("Search term: " + report.Query.SearchTerm + "\n")
	b.WriteString("Status: " + string(report.Query.Status) + "\n")
	fmt.Fprintf(&b, "Processes found: %d\n\n", report.Query.ResultCount)

	b.WriteString("Tribunal tasks:\n")
	if len(report.Tasks) == 0 {
		b.WriteString("  (none)\n")
	}
	for _, task := range report.Tasks {
		fmt.Fprintf(&b, "  %-5s %-8s attempts=%d", task.Tribunal, task.Status, task.Attempts)
		if task.LastError != "" {
			b.WriteString("  " + task.LastError)
		}
		b.WriteString("\n")
	}
	b.WriteString("\n")

	byTribunal := report.ProcessesByTribunal()
	for _, tribunal := range model.AllTribunals() {
		records := byTribunal[tribunal]
		if len(records) == 0 {
			continue
		}
		fmt.Fprintf(&b, "%s (%d processes):\n", tribunal, len(records))
		for _, record := range records {
			detail := record.Detail
			fmt.Fprintf(&b, "  %s  %s\n", record.ProcessNumber, detail.Process.JudicialClass)
			fmt.Fprintf(&b, "    subject: %s\n", detail.Process.Subject)
			fmt.Fprintf(&b, "    movements: %d, attachments: %d\n",
				len(detail.Movements), len(detail.Attachments))
			if w.verbose {
				writeParties(&b, "active", detail.CaseParties.Active)
				writeParties(&b, "passive", detail.CaseParties.Passive)
				writeParties(&b, "others", detail.CaseParties.Others)
			}
		}
		b.WriteString("\n")
	}

	if len(report.Processes) == 0 {
		b.WriteString("No processes found for this query.\n")
	}
	return io.WriteString(w.output, b.String())
}

func writeParties(b *strings.Builder, group string, parties []model.Party) {
	if len(parties) == 0 {
		return
	}
	fmt.Fprintf(b, "    %s:\n", group)
	for _, party := range parties {
		fmt.Fprintf(b, "      %s (%s)\n", party.Name, party.Role)
	}
}
