package report

import (
	"bytes"
	"context"
	"encoding/json"
	"strings"
	"testing"
	"time"

	"github.com/arturlm/jusbr/internal/database"
	"github.com/arturlm/jusbr/internal/model"
)

func sampleReport() *QueryReport {
	finished := time.Date(2026, 3, 10, 14, 0, 0, 0, time.UTC)
	return &QueryReport{
		Query: model.Query{
			ID:          "q1",
			SearchTerm:  "0008323-52.2018.4.01.3202",
			Status:      model.QueryDone,
			ResultCount: 2,
			CreatedAt:   time.Date(2026, 3, 10, 13, 0, 0, 0, time.UTC),
		},
		Tasks: []model.CrawlTask{
			{ID: "t1", QueryID: "q1", Tribunal: model.TRF1, Status: model.TaskDone, Attempts: 1, FinishedAt: &finished},
			{ID: "t2", QueryID: "q1", Tribunal: model.TRF4, Status: model.TaskFailed, Attempts: 5, LastError: "wait timed out", FinishedAt: &finished},
		},
		Processes: []database.ProcessRecord{
			{
				ID:            1,
				QueryID:       "q1",
				Tribunal:      model.TRF1,
				ProcessNumber: "0008323-52.2018.4.01.3202",
				Detail: model.DetailedProcessData{
					Process: model.ProcessData{
						ProcessNumber: "0008323-52.2018.4.01.3202",
						JudicialClass: "PROCEDIMENTO COMUM CÍVEL",
						Subject:       "DIREITO ADMINISTRATIVO",
					},
					CaseParties: model.CaseParty{
						Active:  []model.Party{{Name: "MARIA DA SILVA", Role: "AUTOR"}},
						Passive: []model.Party{{Name: "UNIÃO FEDERAL", Role: "REU"}},
					},
					Movements: []model.Movement{
						{Description: "Distribuído por sorteio"},
						{Description: "Juntada de petição"},
					},
				},
			},
			{
				ID:            2,
				QueryID:       "q1",
				Tribunal:      model.TRF1,
				ProcessNumber: "0008324-37.2018.4.01.3202",
				Detail: model.DetailedProcessData{
					Process: model.ProcessData{
						ProcessNumber: "0008324-37.2018.4.01.3202",
						JudicialClass: "MANDADO DE SEGURANÇA",
						Subject:       "DIREITO TRIBUTÁRIO",
					},
				},
			},
		},
	}
}

func TestTasksByStatus(t *testing.T) {
	t.Parallel()

	report := sampleReport()
	report.Tasks = append(report.Tasks, model.CrawlTask{Status: model.TaskRunning})

	done, failed, running := report.TasksByStatus()
	if done != 1 || failed != 1 || running != 1 {
		t.Errorf("TasksByStatus() = (%d, %d, %d), want (1, 1, 1)", done, failed, running)
	}
}

func TestSimpleWriter(t *testing.T) {
	t.Parallel()

	var buf bytes.Buffer
	n, err := NewSimpleWriter(&buf).Write(sampleReport())
	if err != nil {
		t.Fatal(err)
	}
	if n != buf.Len() {
		t.Errorf("Write() = %d bytes, buffer has %d", n, buf.Len())
	}

	out := buf.String()
	for _, want := range []string{
		"Query: q1",
		"Processes found: 2",
		"trf1", "trf4", "wait timed out",
		"0008323-52.2018.4.01.3202",
		"movements: 2, attachments: 0",
	} {
		if !strings.Contains(out, want) {
			t.Errorf("output missing %q:\n%s", want, out)
		}
	}
	if strings.Contains(out, "MARIA DA SILVA") {
		t.Error("party details printed without verbose")
	}
}

func TestSimpleWriterVerbose(t *testing.T) {
	t.Parallel()

	var buf bytes.Buffer
	if _, err := NewSimpleWriter(&buf, WithVerbose(true)).Write(sampleReport()); err != nil {
		t.Fatal(err)
	}

	out := buf.String()
	if !strings.Contains(out, "MARIA DA SILVA (AUTOR)") {
		t.Errorf("verbose output missing active party:\n%s", out)
	}
	if !strings.Contains(out, "UNIÃO FEDERAL (REU)") {
		t.Errorf("verbose output missing passive party:\n%s", out)
	}
}

func TestJSONWriter(t *testing.T) {
	t.Parallel()

	var buf bytes.Buffer
	if _, err := NewJSONWriter(&buf, WithPrettyPrint()).Write(sampleReport()); err != nil {
		t.Fatal(err)
	}

	var decoded QueryReport
	if err := json.Unmarshal(buf.Bytes(), &decoded); err != nil {
		t.Fatalf("output is not valid JSON: %v", err)
	}
	if decoded.Query.ID != "q1" {
		t.Errorf("decoded query ID = %q, want q1", decoded.Query.ID)
	}
	if len(decoded.Processes) != 2 {
		t.Errorf("decoded %d processes, want 2", len(decoded.Processes))
	}
}

func TestMarkdownWriter(t *testing.T) {
	t.Parallel()

	var buf bytes.Buffer
	if _, err := NewMarkdownWriter(&buf).Write(sampleReport()); err != nil {
		t.Fatal(err)
	}

	out := buf.String()
	for _, want := range []string{
		"# Crawl Report",
		"## Tribunal Tasks",
		"## Processes",
		"### trf1",
		"0008323-52.2018.4.01.3202",
		"wait timed out",
	} {
		if !strings.Contains(out, want) {
			t.Errorf("markdown missing %q:\n%s", want, out)
		}
	}
}

func TestMarkdownWriterEmptyReport(t *testing.T) {
	t.Parallel()

	report := &QueryReport{Query: model.Query{ID: "q1", Status: model.QueryDone}}

	var buf bytes.Buffer
	if _, err := NewMarkdownWriter(&buf).Write(report); err != nil {
		t.Fatal(err)
	}

	out := buf.String()
	if !strings.Contains(out, "No crawl tasks recorded.") {
		t.Errorf("markdown missing empty-tasks note:\n%s", out)
	}
	if !strings.Contains(out, "No processes found for this query.") {
		t.Errorf("markdown missing empty-processes note:\n%s", out)
	}
}

func TestMultiWriter(t *testing.T) {
	t.Parallel()

	var a, b bytes.Buffer
	mw := NewMultiWriter(NewSimpleWriter(&a), NewJSONWriter(&b))

	if _, err := mw.Write(sampleReport()); err != nil {
		t.Fatal(err)
	}
	if a.Len() == 0 || b.Len() == 0 {
		t.Errorf("multiwriter outputs = (%d, %d) bytes, want both non-empty", a.Len(), b.Len())
	}
}

func TestBuild(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	store, err := database.Open(t.TempDir(), database.DefaultOptions())
	if err != nil {
		t.Fatal(err)
	}
	defer store.Close() //nolint:errcheck

	query := &model.Query{ID: "q1", SearchTerm: "12345678909", Status: model.QueryDone}
	if err := store.CreateQuery(ctx, query); err != nil {
		t.Fatal(err)
	}
	task := &model.CrawlTask{ID: "t1", QueryID: "q1", Tribunal: model.TRF1, Status: model.TaskDone, Attempts: 1}
	if err := store.CreateCrawlTask(ctx, task); err != nil {
		t.Fatal(err)
	}
	detail := model.DetailedProcessData{Process: model.ProcessData{ProcessNumber: "0008323-52.2018.4.01.3202"}}
	if err := store.UpsertProcessRecord(ctx, "q1", model.TRF1, detail.Process.ProcessNumber, detail); err != nil {
		t.Fatal(err)
	}

	report, err := Build(ctx, store, "q1")
	if err != nil {
		t.Fatal(err)
	}
	if report.Query.ID != "q1" || len(report.Tasks) != 1 || len(report.Processes) != 1 {
		t.Errorf("Build() = query %q, %d tasks, %d processes", report.Query.ID, len(report.Tasks), len(report.Processes))
	}

	if _, err := Build(ctx, store, "missing"); err == nil {
		t.Error("Build() for unknown query = nil, want error")
	}
}
