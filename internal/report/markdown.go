package report

import (
	"io"
	"strconv"

	"github.com/nao1215/markdown"
	"github.com/nao1215/markdown/mermaid/piechart"

	"github.com/arturlm/jusbr/internal/database"
	"github.com/arturlm/jusbr/internal/model"
)

// MarkdownWriter renders reports as GitHub Flavored Markdown, for
// sharing crawl outcomes outside the terminal.
type MarkdownWriter struct {
	baseWriter
}

// NewMarkdownWriter creates a MarkdownWriter that outputs to the given
// writer.
func NewMarkdownWriter(output io.Writer) *MarkdownWriter {
	return &MarkdownWriter{baseWriter: newBaseWriter(output)}
}

// Write implements Writer.
func (w *MarkdownWriter) Write(report *QueryReport) (int, error) {
	md := markdown.NewMarkdown(w.output)

	w.writeHeader(md, report)
	w.writeTasks(md, report)
	w.writeProcesses(md, report)
	w.writeFooter(md)

	return len(md.String()), md.Build()
}

func (w *MarkdownWriter) writeHeader(md *markdown.Markdown, report *QueryReport) {
	md.H1("Crawl Report")
	md.PlainText("")

	md.Table(markdown.TableSet{
		Header: []string{"Property", "Value"},
		Rows: [][]string{
			{"Query", "`" + report.Query.ID + "`"},
			{"Search Term", "`" + report.Query.SearchTerm + "`"},
			{"Status", statusText(report)},
			{"Processes Found", strconv.Itoa(report.Query.ResultCount)},
			{"Created", report.Query.CreatedAt.Format("2006-01-02 15:04:05 MST")},
		},
	})
	md.PlainText("")
}

func statusText(report *QueryReport) string {
	done, failed, running := report.TasksByStatus()
	switch {
	case running > 0:
		return "⏳ Running"
	case failed > 0 && done == 0:
		return "❌ Failed"
	case failed > 0:
		return "⚠️ Done (partial)"
	default:
		return "✅ Done"
	}
}

func (w *MarkdownWriter) writeTasks(md *markdown.Markdown, report *QueryReport) {
	md.H2("Tribunal Tasks")
	md.PlainText("")

	if len(report.Tasks) == 0 {
		md.PlainText("No crawl tasks recorded.")
		md.PlainText("")
		return
	}

	rows := make([][]string, len(report.Tasks))
	for i, task := range report.Tasks {
		finished := "-"
		if task.FinishedAt != nil {
			finished = task.FinishedAt.Format("2006-01-02 15:04:05")
		}
		lastError := task.LastError
		if lastError == "" {
			lastError = "-"
		}
		rows[i] = []string{
			task.Tribunal.String(),
			string(task.Status),
			strconv.Itoa(task.Attempts),
			finished,
			truncateString(lastError, 60),
		}
	}
	md.Table(markdown.TableSet{
		Header: []string{"Tribunal", "Status", "Attempts", "Finished", "Last Error"},
		Rows:   rows,
	})
	md.PlainText("")

	_, failed, running := report.TasksByStatus()
	switch {
	case running > 0:
		md.Note("Some tribunals are still being crawled; results below are partial.")
	case failed > 0:
		md.Warningf("%d tribunal task(s) failed after exhausting retries.", failed)
	default:
		md.Tip("All tribunal tasks completed.")
	}
	md.PlainText("")
}

func (w *MarkdownWriter) writeProcesses(md *markdown.Markdown, report *QueryReport) {
	md.H2("Processes")
	md.PlainText("")

	if len(report.Processes) == 0 {
		md.PlainText("No processes found for this query.")
		md.PlainText("")
		return
	}

	byTribunal := report.ProcessesByTribunal()
	if len(byTribunal) > 1 {
		w.writePieChart(md, byTribunal)
	}

	for _, tribunal := range model.AllTribunals() {
		records := byTribunal[tribunal]
		if len(records) == 0 {
			continue
		}

		md.H3(tribunal.String())
		md.PlainText("")

		rows := make([][]string, len(records))
		for i, record := range records {
			detail := record.Detail
			rows[i] = []string{
				"`" + record.ProcessNumber + "`",
				truncateString(detail.Process.JudicialClass, 40),
				truncateString(detail.Process.Subject, 50),
				strconv.Itoa(len(detail.Movements)),
				strconv.Itoa(len(detail.Attachments)),
			}
		}
		md.Table(markdown.TableSet{
			Header: []string{"Process", "Class", "Subject", "Movements", "Attachments"},
			Rows:   rows,
		})
		md.PlainText("")
	}
}

func (w *MarkdownWriter) writePieChart(md *markdown.Markdown, byTribunal map[model.Tribunal][]database.ProcessRecord) {
	chart := piechart.NewPieChart(
		io.Discard,
		piechart.WithTitle("Processes per Tribunal"),
		piechart.WithShowData(true),
	)
	for _, tribunal := range model.AllTribunals() {
		if n := len(byTribunal[tribunal]); n > 0 {
			chart.LabelAndIntValue(tribunal.String(), uint64(n))
		}
	}

	md.PlainText("")
	md.CodeBlocks(markdown.SyntaxHighlightMermaid, chart.String())
	md.PlainText("")
}

func (w *MarkdownWriter) writeFooter(md *markdown.Markdown) {
	md.HorizontalRule()
	md.PlainText("")
	md.PlainText("*Report generated by jusbr*")
}

// truncateString truncates a string to maxLen characters with ellipsis.
func truncateString(s string, maxLen int) string {
	if len(s) <= maxLen {
		return s
	}
	if maxLen <= 3 {
		return s[:maxLen]
	}
	return s[:maxLen-3] + "..."
}
