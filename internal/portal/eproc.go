package portal

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/arturlm/jusbr/internal/browser"
	"github.com/arturlm/jusbr/internal/captcha"
	"github.com/arturlm/jusbr/internal/extract"
	"github.com/arturlm/jusbr/internal/model"
)

// Eproc crawls a server-rendered eproc portal. Everything happens in the
// home window: the search form posts a full page, result rows link to
// detail pages, and detail pages are plain tables. Input fields carry
// session-generated ids, so they are located by position inside the
// form's data area.
type Eproc struct {
	cfg    Config
	solver captcha.Solver
	logger *slog.Logger
}

// NewEproc builds an adapter for one eproc portal record.
func NewEproc(cfg Config, solver captcha.Solver, logger *slog.Logger) *Eproc {
	if solver == nil {
		solver = captcha.Disabled{}
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Eproc{cfg: cfg, solver: solver, logger: logger}
}

// Name implements Adapter.
func (e *Eproc) Name() string { return fmt.Sprintf("%s-%s", e.cfg.Tribunal, e.cfg.Grade) }

// Tribunal implements Adapter.
func (e *Eproc) Tribunal() model.Tribunal { return e.cfg.Tribunal }

// Grade implements Adapter.
func (e *Eproc) Grade() model.Grade { return e.cfg.Grade }

// Crawl implements Adapter.
func (e *Eproc) Crawl(ctx context.Context, sess *browser.Session, term string, emit Emit) error {
	if err := sess.Goto(ctx, e.cfg.SearchURL()); err != nil {
		return err
	}
	if err := e.search(ctx, sess, term); err != nil {
		return err
	}

	rows, err := e.resultRows(ctx, sess)
	if err != nil {
		return err
	}
	e.logger.Info("search finished", "portal", e.Name(), "results", len(rows))

	for i := range rows {
		detail, err := e.crawlDetail(ctx, sess, i, rows[i])
		if err != nil {
			if hardFailure(err) {
				return err
			}
			e.logger.Warn("case skipped",
				"portal", e.Name(), "process_number", rows[i].ProcessNumber, "error", err)
		} else if err := emit(detail); err != nil {
			return err
		}

		// Detail navigation replaces the listing; restore it from the
		// browser history before the next row.
		if i < len(rows)-1 {
			if err := e.returnToListing(ctx, sess); err != nil {
				return err
			}
		}
	}
	return nil
}

func (e *Eproc) search(ctx context.Context, sess *browser.Session, term string) error {
	kind, value, err := searchValue(term)
	if err != nil {
		return err
	}

	el := e.cfg.Eproc
	index := el.ProcessInputIndex
	if kind == model.TermPerson {
		index = el.CPFInputIndex
	}
	inputID, err := e.inputIDAt(ctx, sess, index)
	if err != nil {
		return err
	}
	if err := sess.Fill(ctx, inputID, value); err != nil {
		return err
	}

	if err := e.solveCaptcha(ctx, sess); err != nil {
		return err
	}
	return sess.Click(ctx, el.SearchButton)
}

// inputIDAt resolves the id of the n-th input inside the form data area.
func (e *Eproc) inputIDAt(ctx context.Context, sess *browser.Session, index int) (string, error) {
	js := fmt.Sprintf(`(() => {
		const inputs = document.getElementById(%q).getElementsByTagName('input');
		return %d < inputs.length ? inputs[%d].id : '';
	})()`, e.cfg.Eproc.DataArea, index, index)

	var id string
	if err := sess.Eval(ctx, js, &id); err != nil {
		return "", err
	}
	if id == "" {
		return "", fmt.Errorf("search form input %d missing: %w", index, browser.ErrWaitTimeout)
	}
	return id, nil
}

// solveCaptcha inspects the captcha area and clears whichever challenge
// the portal chose for this session: a distorted image or a Cloudflare
// Turnstile widget.
func (e *Eproc) solveCaptcha(ctx context.Context, sess *browser.Session) error {
	el := e.cfg.Eproc

	var kind string
	detectJS := fmt.Sprintf(`(() => {
		const div = document.getElementById(%q);
		if (!div) return 'none';
		if (div.getElementsByTagName('img').length > 0) return 'image';
		const inner = div.getElementsByTagName('div')[0];
		if (inner && inner.className.includes('cf-turnstile')) return 'turnstile';
		return 'none';
	})()`, el.CaptchaDiv)
	if err := sess.Eval(ctx, detectJS, &kind); err != nil {
		return err
	}

	switch kind {
	case "image":
		return e.solveImage(ctx, sess)
	case "turnstile":
		return e.solveTurnstile(ctx, sess)
	default:
		return nil
	}
}

func (e *Eproc) solveImage(ctx context.Context, sess *browser.Session) error {
	el := e.cfg.Eproc
	image, err := sess.ScreenshotQuery(ctx, "#"+el.CaptchaDiv+" img")
	if err != nil {
		return err
	}
	code, err := e.solver.SolveImage(ctx, image)
	if err != nil {
		return err
	}

	js := fmt.Sprintf(`(() => {
		const input = document.getElementById(%q).getElementsByTagName('input')[0];
		if (!input) return false;
		input.value = %q;
		input.dispatchEvent(new Event('input', {bubbles: true}));
		return true;
	})()`, el.CaptchaDiv, code)
	var ok bool
	if err := sess.Eval(ctx, js, &ok); err != nil {
		return err
	}
	if !ok {
		return fmt.Errorf("captcha answer field missing: %w", browser.ErrWaitTimeout)
	}
	return nil
}

// solveTurnstile fetches a solver token for the widget's site key and
// plants it in the response field the form posts.
func (e *Eproc) solveTurnstile(ctx context.Context, sess *browser.Session) error {
	el := e.cfg.Eproc

	var siteKey string
	keyJS := fmt.Sprintf(
		`document.getElementById(%q).getElementsByTagName('div')[0].dataset.sitekey ?? ''`,
		el.CaptchaDiv)
	if err := sess.Eval(ctx, keyJS, &siteKey); err != nil {
		return err
	}
	if siteKey == "" {
		return fmt.Errorf("turnstile widget without site key: %w", browser.ErrWaitTimeout)
	}

	token, err := e.solver.SolveInteractive(ctx, siteKey, e.cfg.SearchURL())
	if err != nil {
		return err
	}

	plantJS := fmt.Sprintf(`(() => {
		let field = document.querySelector('[name="cf-turnstile-response"]');
		if (!field) {
			field = document.createElement('input');
			field.type = 'hidden';
			field.name = 'cf-turnstile-response';
			document.forms[0].appendChild(field);
		}
		field.value = %q;
		return true;
	})()`, token)
	var ok bool
	return sess.Eval(ctx, plantJS, &ok)
}

// resultRows waits for the answer area and parses the result table. An
// answer without a table is the portal's refusal text and surfaces as a
// PortalError.
func (e *Eproc) resultRows(ctx context.Context, sess *browser.Session) ([]model.SimpleProcessData, error) {
	el := e.cfg.Eproc

	var state int
	stateJS := fmt.Sprintf(`(() => {
		const area = document.getElementById(%q);
		if (!area) return 0;
		if (area.getElementsByTagName('table').length > 0) return 1;
		return area.textContent.trim() !== '' ? 2 : 0;
	})()`, el.TableArea)

	if err := sess.WaitFor(ctx, "result table or notice", 0, func(context.Context) (bool, error) {
		if err := sess.Eval(ctx, stateJS, &state); err != nil {
			return false, err
		}
		return state != 0, nil
	}); err != nil {
		return nil, err
	}

	if state == 2 {
		notice, err := sess.Text(ctx, el.TableArea)
		if err != nil {
			return nil, err
		}
		return nil, &PortalError{Message: strings.TrimSpace(notice)}
	}

	area, err := sess.HTML(ctx, el.TableArea)
	if err != nil {
		return nil, err
	}
	return extract.ParseEprocResultRows(area)
}

// crawlDetail follows a result row into its case page and assembles the
// detail from the parties and events tables. Header fields the listing
// already provided are carried over; eproc detail pages do not repeat
// them in a parseable form.
func (e *Eproc) crawlDetail(ctx context.Context, sess *browser.Session, row int, listed model.SimpleProcessData) (model.DetailedProcessData, error) {
	el := e.cfg.Eproc

	if err := e.clickResultRow(ctx, sess, row); err != nil {
		return model.DetailedProcessData{}, err
	}
	if err := sess.WaitFor(ctx, "case detail", 0, func(context.Context) (bool, error) {
		var ready bool
		js := fmt.Sprintf(`document.getElementById(%q) !== null`, el.PartiesTable)
		if err := sess.Eval(ctx, js, &ready); err != nil {
			return false, err
		}
		return ready, nil
	}); err != nil {
		return model.DetailedProcessData{}, err
	}

	partiesHTML, err := sess.HTML(ctx, el.PartiesTable)
	if err != nil {
		return model.DetailedProcessData{}, err
	}
	parties, err := extract.ParseEprocParties(partiesHTML)
	if err != nil {
		return model.DetailedProcessData{}, err
	}

	eventsHTML, err := sess.HTML(ctx, el.EventsTable)
	if err != nil {
		return model.DetailedProcessData{}, err
	}
	movements, err := extract.ParseEprocMovements(eventsHTML)
	if err != nil {
		return model.DetailedProcessData{}, err
	}

	return model.DetailedProcessData{
		Process: model.ProcessData{
			ProcessNumber: listed.ProcessNumber,
			Subject:       listed.Subject,
		},
		CaseParties: groupPartiesByRole(parties),
		Movements:   movements,
	}, nil
}

func (e *Eproc) clickResultRow(ctx context.Context, sess *browser.Session, row int) error {
	el := e.cfg.Eproc
	js := fmt.Sprintf(`(() => {
		const table = document.getElementById(%q).getElementsByTagName('table')[0];
		if (!table) return false;
		const rows = Array.from(table.getElementsByTagName('tr'))
			.filter(r => r.getElementsByTagName('th').length === 0 && r.textContent.trim() !== '');
		if (%d >= rows.length) return false;
		const cell = rows[%d].cells[0];
		const a = cell.querySelector('a');
		(a || cell).click();
		return true;
	})()`, el.TableArea, row, row)

	var clicked bool
	if err := sess.Eval(ctx, js, &clicked); err != nil {
		return err
	}
	if !clicked {
		return fmt.Errorf("result row %d not present: %w", row, extract.ErrMalformedRow)
	}
	return nil
}

// returnToListing walks the browser history back to the result table.
func (e *Eproc) returnToListing(ctx context.Context, sess *browser.Session) error {
	var ok bool
	if err := sess.Eval(ctx, `(() => { history.back(); return true; })()`, &ok); err != nil {
		return err
	}
	el := e.cfg.Eproc
	return sess.WaitFor(ctx, "listing restored", 0, func(context.Context) (bool, error) {
		var ready bool
		js := fmt.Sprintf(`(() => {
			const area = document.getElementById(%q);
			return !!area && area.getElementsByTagName('table').length > 0;
		})()`, el.TableArea)
		if err := sess.Eval(ctx, js, &ready); err != nil {
			return false, err
		}
		return ready, nil
	})
}

// groupPartiesByRole splits a flat participant list into the case poles
// by the role the portal printed over each column.
func groupPartiesByRole(parties []model.Party) model.CaseParty {
	var grouped model.CaseParty
	for _, party := range parties {
		switch normalizeRole(party.Role) {
		case "AUTOR", "EXEQUENTE", "REQUERENTE", "IMPETRANTE", "RECORRENTE", "APELANTE":
			grouped.Active = append(grouped.Active, party)
		case "REU", "RÉU", "EXECUTADO", "REQUERIDO", "IMPETRADO", "RECORRIDO", "APELADO":
			grouped.Passive = append(grouped.Passive, party)
		default:
			grouped.Others = append(grouped.Others, party)
		}
	}
	return grouped
}

func normalizeRole(role string) string {
	return strings.ToUpper(strings.TrimSpace(role))
}
