package portal

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strconv"
	"strings"

	"github.com/PuerkitoBio/goquery"

	"github.com/arturlm/jusbr/internal/browser"
	"github.com/arturlm/jusbr/internal/captcha"
	"github.com/arturlm/jusbr/internal/extract"
	"github.com/arturlm/jusbr/internal/model"
)

// PJE crawls a JSF/Seam consultation portal. The search form and the
// result listing live in the home window; each case detail opens in its
// own window, and party pagination inside the detail goes through JSF
// partial posts that must thread the current view-state token.
type PJE struct {
	cfg    Config
	solver captcha.Solver
	logger *slog.Logger
}

// NewPJE builds an adapter for one pje portal record.
func NewPJE(cfg Config, solver captcha.Solver, logger *slog.Logger) *PJE {
	if solver == nil {
		solver = captcha.Disabled{}
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &PJE{cfg: cfg, solver: solver, logger: logger}
}

// Name implements Adapter.
func (p *PJE) Name() string { return fmt.Sprintf("%s-%s", p.cfg.Tribunal, p.cfg.Grade) }

// Tribunal implements Adapter.
func (p *PJE) Tribunal() model.Tribunal { return p.cfg.Tribunal }

// Grade implements Adapter.
func (p *PJE) Grade() model.Grade { return p.cfg.Grade }

// Crawl implements Adapter.
func (p *PJE) Crawl(ctx context.Context, sess *browser.Session, term string, emit Emit) error {
	if err := sess.Goto(ctx, p.cfg.SearchURL()); err != nil {
		return err
	}
	if err := p.search(ctx, sess, term); err != nil {
		return err
	}

	rows, err := p.resultRows(ctx, sess)
	if err != nil {
		return err
	}
	p.logger.Info("search finished", "portal", p.Name(), "results", len(rows))

	for i := range rows {
		detail, err := p.crawlDetail(ctx, sess, i)
		if err != nil {
			if hardFailure(err) {
				return err
			}
			p.logger.Warn("case skipped",
				"portal", p.Name(), "process_number", rows[i].ProcessNumber, "error", err)
			continue
		}
		if err := emit(detail); err != nil {
			return err
		}
	}
	return nil
}

// hardFailure reports whether an error should abort the whole crawl
// instead of skipping the current case. Session-level failures taint
// every later interaction; anything else is a per-case defect.
func hardFailure(err error) bool {
	return errors.Is(err, browser.ErrSessionUnusable) ||
		errors.Is(err, browser.ErrWaitTimeout) ||
		errors.Is(err, context.Canceled) ||
		errors.Is(err, context.DeadlineExceeded)
}

// search fills the form for the term, clears the captcha when the portal
// has one, and submits.
func (p *PJE) search(ctx context.Context, sess *browser.Session, term string) error {
	kind, value, err := searchValue(term)
	if err != nil {
		return err
	}

	el := p.cfg.PJE
	switch kind {
	case model.TermPerson:
		if el.CPFToggle != "" {
			if err := p.toggleCPFMode(ctx, sess); err != nil {
				return err
			}
		}
		if err := sess.Fill(ctx, el.CPFInput, value); err != nil {
			return err
		}
	case model.TermCaseNumber:
		if err := sess.Fill(ctx, el.ProcessNumberInput, value); err != nil {
			return err
		}
	}

	if p.cfg.Captcha == CaptchaImage {
		if err := p.solveImageCaptcha(ctx, sess); err != nil {
			return err
		}
	}
	return sess.Click(ctx, el.SearchButton)
}

// toggleCPFMode switches the search form into CPF mode and waits until
// the field unlocks.
func (p *PJE) toggleCPFMode(ctx context.Context, sess *browser.Session) error {
	el := p.cfg.PJE
	if err := sess.Click(ctx, el.CPFToggle); err != nil {
		return err
	}
	return sess.WaitFor(ctx, "cpf input enabled", 0, func(context.Context) (bool, error) {
		var enabled bool
		js := fmt.Sprintf(
			`(() => { const el = document.getElementById(%q); return !!el && !el.disabled; })()`,
			el.CPFInput)
		if err := sess.Eval(ctx, js, &enabled); err != nil {
			return false, err
		}
		return enabled, nil
	})
}

func (p *PJE) solveImageCaptcha(ctx context.Context, sess *browser.Session) error {
	el := p.cfg.PJE
	image, err := sess.Screenshot(ctx, el.CaptchaImage)
	if err != nil {
		return err
	}
	code, err := p.solver.SolveImage(ctx, image)
	if err != nil {
		return err
	}
	return sess.Fill(ctx, el.CaptchaInput, code)
}

// resultStateJS builds the predicate polled after a search submit:
// 1 when the listing has rows, 2 when the portal shows an error banner,
// 3 when the portal announces zero results as plain page text — TRF5
// renders "Foram encontrados: 0 resultados" instead of a banner, so
// waiting on rows or a banner alone would time out there.
func resultStateJS(el PJEElements) string {
	return fmt.Sprintf(`(() => {
		const table = document.getElementById(%q);
		if (table && table.getElementsByTagName('tr').length > 0) return 1;
		const banner = document.querySelector(%q);
		if (banner && banner.offsetParent !== null && banner.textContent.trim() !== '') return 2;
		if (%q !== '' && document.body && document.body.innerText.includes(%q)) return 3;
		return 0;
	})()`, el.ResultTable, "."+el.ErrorBannerClass, el.ZeroResultsText, el.ZeroResultsText)
}

// resultRows waits until the portal answers with result rows, an error
// banner, or a zero-results notice, and parses the rows. A banner or
// notice is the portal's final word on the search and surfaces as a
// PortalError.
func (p *PJE) resultRows(ctx context.Context, sess *browser.Session) ([]model.SimpleProcessData, error) {
	el := p.cfg.PJE
	stateJS := resultStateJS(el)

	var state int
	err := sess.WaitFor(ctx, "result rows or banner", 0, func(context.Context) (bool, error) {
		if err := sess.Eval(ctx, stateJS, &state); err != nil {
			return false, err
		}
		return state != 0, nil
	})
	if err != nil {
		return nil, err
	}

	switch state {
	case 2:
		var banner string
		bannerJS := fmt.Sprintf(`document.querySelector(%q).textContent.trim()`, "."+el.ErrorBannerClass)
		if err := sess.Eval(ctx, bannerJS, &banner); err != nil {
			return nil, err
		}
		return nil, &PortalError{Message: banner}
	case 3:
		return nil, &PortalError{Message: el.ZeroResultsText}
	}

	tbody, err := sess.HTML(ctx, el.ResultTable)
	if err != nil {
		return nil, err
	}
	return extract.ParseResultRows(tbody)
}

// crawlDetail opens the i-th result row in its own window, extracts the
// full case, and returns to the listing.
func (p *PJE) crawlDetail(ctx context.Context, sess *browser.Session, row int) (model.DetailedProcessData, error) {
	el := p.cfg.PJE
	if err := clickRowCell(ctx, sess, el.ResultTable, row, 0); err != nil {
		return model.DetailedProcessData{}, err
	}
	if err := sess.SwitchToNewWindow(ctx); err != nil {
		return model.DetailedProcessData{}, err
	}

	detail, err := p.extractDetail(ctx, sess)
	closeErr := sess.CloseCurrentWindow(ctx)
	if err != nil {
		return model.DetailedProcessData{}, err
	}
	if closeErr != nil {
		return model.DetailedProcessData{}, closeErr
	}
	return detail, nil
}

func (p *PJE) extractDetail(ctx context.Context, sess *browser.Session) (model.DetailedProcessData, error) {
	el := p.cfg.PJE

	if err := sess.WaitFor(ctx, "detail header", 0, func(context.Context) (bool, error) {
		var ready bool
		js := fmt.Sprintf(`document.getElementById(%q) !== null`, el.MovementsTable)
		if err := sess.Eval(ctx, js, &ready); err != nil {
			return false, err
		}
		return ready, nil
	}); err != nil {
		return model.DetailedProcessData{}, err
	}

	page, err := sess.PageHTML(ctx)
	if err != nil {
		return model.DetailedProcessData{}, err
	}
	process, err := extract.ParseProcessHeader(page, el.HeaderSelector)
	if err != nil {
		return model.DetailedProcessData{}, err
	}

	parties, err := p.extractCaseParties(ctx, sess)
	if err != nil {
		return model.DetailedProcessData{}, err
	}
	movements, err := p.extractMovements(ctx, sess)
	if err != nil {
		return model.DetailedProcessData{}, err
	}
	attachments, err := p.extractAttachments(ctx, sess)
	if err != nil {
		return model.DetailedProcessData{}, err
	}

	return model.DetailedProcessData{
		Process:     process,
		CaseParties: parties,
		Movements:   movements,
		Attachments: attachments,
	}, nil
}

func (p *PJE) extractCaseParties(ctx context.Context, sess *browser.Session) (model.CaseParty, error) {
	el := p.cfg.PJE
	active, err := p.extractParties(ctx, sess, el.ActivePartyBinding)
	if err != nil {
		return model.CaseParty{}, err
	}
	passive, err := p.extractParties(ctx, sess, el.PassivePartyBinding)
	if err != nil {
		return model.CaseParty{}, err
	}
	parties := model.CaseParty{Active: active, Passive: passive}

	if p.cfg.SupportsOtherParties && el.OtherPartyBinding != "" {
		others, err := p.extractParties(ctx, sess, el.OtherPartyBinding)
		if err != nil {
			return model.CaseParty{}, err
		}
		parties.Others = others
	}
	return parties, nil
}

// extractParties reads the first page of a party pole from the rendered
// table and pulls the remaining pages through JSF partial posts.
func (p *PJE) extractParties(ctx context.Context, sess *browser.Session, binding string) ([]model.Party, error) {
	tableID := partyTableID(binding)
	tbody, err := sess.HTML(ctx, tableID)
	if err != nil {
		return nil, err
	}
	first, err := extract.ParsePartyRows(tbody)
	if err != nil {
		return nil, err
	}

	return paginate(ctx, first, p.cfg.PageSize, model.Party.Equal,
		func(ctx context.Context, page int) ([]model.Party, error) {
			return p.fetchPartyPage(ctx, sess, binding, tableID, page)
		})
}

func (p *PJE) fetchPartyPage(ctx context.Context, sess *browser.Session, binding, tableID string, page int) ([]model.Party, error) {
	pageBinding, err := partyPageBinding(binding)
	if err != nil {
		return nil, err
	}
	viewState, err := sess.ViewState(ctx)
	if err != nil {
		return nil, err
	}

	body, err := sess.Submit(ctx, p.cfg.PJE.DetailForm, map[string]string{
		"AJAXREQUEST":           "_viewRoot",
		binding:                 binding,
		"javax.faces.ViewState": viewState,
		"ajaxSingle":            pageBinding,
		pageBinding:             strconv.Itoa(page),
		"AJAX:EVENTS_COUNT":     "1",
	})
	if err != nil {
		return nil, err
	}

	doc, err := goquery.NewDocumentFromReader(strings.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("parse party page %d: %w", page, err)
	}
	sel := doc.Find("tbody#" + escapeColons(tableID)).First()
	if sel.Length() == 0 {
		return nil, nil
	}
	fragment, err := goquery.OuterHtml(sel)
	if err != nil {
		return nil, fmt.Errorf("parse party page %d: %w", page, err)
	}
	return extract.ParsePartyRows(fragment)
}

// extractMovements walks the movements grid page by page. The page input
// is incremented and the grid is only re-read after its first row
// changes, which is the portal's signal that the partial render landed.
func (p *PJE) extractMovements(ctx context.Context, sess *browser.Session) ([]model.Movement, error) {
	el := p.cfg.PJE

	quantity, err := p.movementsQuantity(ctx, sess)
	if err != nil {
		return nil, err
	}

	var movements []model.Movement
	for len(movements) < quantity {
		tbody, err := sess.HTML(ctx, el.MovementsTable)
		if err != nil {
			return nil, err
		}
		rows, err := extract.ParseMovementsTable(tbody)
		if err != nil {
			return nil, err
		}
		if len(rows) == 0 {
			break
		}
		movements = append(movements, rows...)
		if len(movements) >= quantity {
			break
		}

		marker, err := firstRowText(ctx, sess, el.MovementsTable)
		if err != nil {
			return nil, err
		}
		current, err := sess.Value(ctx, el.MovementsPageInput)
		if err != nil {
			return nil, err
		}
		pageNum, err := strconv.Atoi(strings.TrimSpace(current))
		if err != nil {
			return nil, fmt.Errorf("movements page input %q: %w", current, extract.ErrMalformedRow)
		}
		if err := setPageInput(ctx, sess, el.MovementsPageInput, strconv.Itoa(pageNum+1)); err != nil {
			return nil, err
		}

		if err := sess.WaitFor(ctx, "movements page advanced", 0, func(context.Context) (bool, error) {
			now, err := firstRowText(ctx, sess, el.MovementsTable)
			if err != nil {
				return false, err
			}
			return now != marker, nil
		}); err != nil {
			return nil, err
		}
	}
	return movements, nil
}

func (p *PJE) movementsQuantity(ctx context.Context, sess *browser.Session) (int, error) {
	js := fmt.Sprintf(
		`document.getElementById(%q).querySelector('.pull-right').textContent`,
		p.cfg.PJE.MovementsPanel)
	var text string
	if err := sess.Eval(ctx, js, &text); err != nil {
		return 0, err
	}
	quantity, err := strconv.Atoi(model.OnlyDigits(text))
	if err != nil {
		return 0, fmt.Errorf("movements quantity %q: %w", text, extract.ErrMalformedRow)
	}
	return quantity, nil
}

// extractAttachments walks the documents grid. Every row yields two
// downloads, the document itself and its filing protocol, each opening
// in a throwaway window. A blocked download keeps the row with nil
// content rather than failing the case.
func (p *PJE) extractAttachments(ctx context.Context, sess *browser.Session) ([]model.Attachment, error) {
	el := p.cfg.PJE
	tbody, err := sess.HTML(ctx, el.AttachmentsTable)
	if err != nil {
		return nil, err
	}
	attachments, err := extract.ParseAttachmentRows(tbody)
	if err != nil {
		return nil, err
	}

	for i := range attachments {
		content, sum, err := p.download(ctx, sess, i, 0, true)
		if err != nil {
			if hardFailure(err) {
				return nil, err
			}
			p.logger.Warn("attachment download blocked",
				"portal", p.Name(), "description", attachments[i].Description, "error", err)
		}
		attachments[i].Content = content
		attachments[i].MD5 = sum

		protocol, protocolSum, err := p.download(ctx, sess, i, 1, false)
		if err != nil {
			if hardFailure(err) {
				return nil, err
			}
			p.logger.Warn("protocol download blocked",
				"portal", p.Name(), "description", attachments[i].Description, "error", err)
		}
		attachments[i].ProtocolContent = protocol
		attachments[i].ProtocolMD5 = protocolSum
	}
	return attachments, nil
}

// download clicks a cell of an attachments row, follows the window it
// opens, optionally triggers the in-page PDF export, and drains the
// download directory.
func (p *PJE) download(ctx context.Context, sess *browser.Session, row, cell int, clickExport bool) ([]byte, string, error) {
	el := p.cfg.PJE
	if err := clickRowCell(ctx, sess, el.AttachmentsTable, row, cell); err != nil {
		return nil, "", err
	}
	if err := sess.SwitchToNewWindow(ctx); err != nil {
		return nil, "", err
	}
	if clickExport {
		if err := sess.Click(ctx, el.AttachmentDownload); err != nil {
			_ = sess.CloseCurrentWindow(ctx)
			return nil, "", browser.ErrDownloadBlocked
		}
	}
	content, sum, err := sess.DownloadAndClear(ctx, 0)
	if errors.Is(err, browser.ErrDownloadBlocked) {
		return nil, "", err
	}
	return content, sum, err
}

// clickRowCell clicks the anchor of one table cell, or the cell itself
// when it has no anchor.
func clickRowCell(ctx context.Context, sess *browser.Session, tableID string, row, cell int) error {
	js := fmt.Sprintf(`(() => {
		const rows = document.getElementById(%q).getElementsByTagName('tr');
		if (%d >= rows.length) return false;
		const cell = rows[%d].cells[%d];
		const a = cell.querySelector('a');
		(a || cell).click();
		return true;
	})()`, tableID, row, row, cell)

	var clicked bool
	if err := sess.Eval(ctx, js, &clicked); err != nil {
		return err
	}
	if !clicked {
		return fmt.Errorf("row %d not present in %s: %w", row, tableID, extract.ErrMalformedRow)
	}
	return nil
}

// firstRowText reads the text of a table's first cell, used to detect a
// partial re-render.
func firstRowText(ctx context.Context, sess *browser.Session, tableID string) (string, error) {
	js := fmt.Sprintf(`(() => {
		const rows = document.getElementById(%q).getElementsByTagName('tr');
		return rows.length ? rows[0].cells[0].textContent : '';
	})()`, tableID)
	var text string
	err := sess.Eval(ctx, js, &text)
	return text, err
}

// setPageInput writes a pagination input and fires the change event the
// JSF component listens on.
func setPageInput(ctx context.Context, sess *browser.Session, id, value string) error {
	js := fmt.Sprintf(`(() => {
		const el = document.getElementById(%q);
		el.value = %q;
		el.dispatchEvent(new Event('change', {bubbles: true}));
		return true;
	})()`, id, value)
	var ok bool
	return sess.Eval(ctx, js, &ok)
}

// partyTableID maps a party pole's paginator binding to the id of its
// rendered table body.
func partyTableID(binding string) string {
	parts := strings.Split(binding, ":")
	return strings.Join(parts[:len(parts)-1], ":") + ":tb"
}

// partyPageBinding derives the page-number parameter of a paginator
// binding: the component numbered one past the binding itself.
func partyPageBinding(binding string) (string, error) {
	parts := strings.Split(binding, ":")
	last := parts[len(parts)-1]
	n, err := strconv.Atoi(model.OnlyDigits(last))
	if err != nil {
		return "", fmt.Errorf("party binding %q has no component number", binding)
	}
	return binding + ":j_id" + strconv.Itoa(n+1), nil
}
