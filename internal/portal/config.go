package portal

import "github.com/arturlm/jusbr/internal/model"

// CaptchaKind names the challenge a portal puts before its search form.
type CaptchaKind string

const (
	CaptchaNone      CaptchaKind = "none"
	CaptchaImage     CaptchaKind = "image"
	CaptchaTurnstile CaptchaKind = "turnstile"
)

// Config describes one portal: a tribunal, a degree of jurisdiction, and
// the addresses and element bindings its markup exposes. Adapters are
// generic over these records; a new portal variant is a new record, not
// new code.
type Config struct {
	Tribunal model.Tribunal
	Grade    model.Grade

	BaseURL    string
	SearchPath string

	// PageSize is the row count of a full listing page; pagination stops
	// on the first page shorter than this.
	PageSize int

	Captcha CaptchaKind

	// SupportsOtherParties is set when the portal renders a third party
	// group beyond the active and passive poles.
	SupportsOtherParties bool

	PJE   PJEElements
	Eproc EprocElements
}

// SearchURL is the absolute address of the portal's search form.
func (c Config) SearchURL() string { return c.BaseURL + c.SearchPath }

// PJEElements binds a pje portal's JSF component tree: the DOM ids and
// AJAX bindings of the search form and the detail window.
type PJEElements struct {
	CPFInput           string
	CPFToggle          string
	ProcessNumberInput string
	SearchButton       string
	ErrorBannerClass   string
	ResultTable        string

	// ZeroResultsText is a plain-text notice some installations render
	// instead of an error banner when a search matches nothing. Empty
	// disables the check.
	ZeroResultsText string

	CaptchaImage string
	CaptchaInput string

	// DetailForm is the JSF form of the detail window; partial posts for
	// party pagination go through it.
	DetailForm     string
	HeaderSelector string

	ActivePartyBinding  string
	PassivePartyBinding string
	OtherPartyBinding   string

	MovementsPanel     string
	MovementsTable     string
	MovementsPageInput string

	AttachmentsTable   string
	AttachmentDownload string
}

// EprocElements binds an eproc portal's fixed element ids. Input fields
// carry session-generated ids, so they are located by position inside
// the data area instead.
type EprocElements struct {
	DataArea     string
	SearchButton string
	CaptchaDiv   string
	TableArea    string

	ProcessInputIndex int
	CPFInputIndex     int

	PartiesTable string
	EventsTable  string
}

// pjeSearchElements is the search form shared by every pje consultation
// portal.
func pjeSearchElements() PJEElements {
	return PJEElements{
		CPFInput:           "fPP:dpDec:documentoParte",
		ProcessNumberInput: "fPP:numProcesso-inputNumeroProcessoDecoration:numProcesso-inputNumeroProcesso",
		SearchButton:       "fPP:searchProcessos",
		ErrorBannerClass:   "alert-danger",
		ResultTable:        "fPP:processosTable:tb",
	}
}

func pjeTRF1(grade model.Grade, baseURL string) Config {
	el := pjeSearchElements()
	el.DetailForm = "j_id136"
	el.HeaderSelector = `div#j_id136\:processoTrfViewView\:j_id139_body > table > tbody > tr > td > span`
	el.ActivePartyBinding = "j_id136:processoPartesPoloAtivoResumidoTableBinding:j_id325"
	el.PassivePartyBinding = "j_id136:processoPartesPoloPassivoResumidoTableBinding:j_id390"
	el.OtherPartyBinding = "j_id136:processoParteOutrosInteressadosResumidoTableBinding:j_id455"
	el.MovementsPanel = "j_id136:processoEventoPanel_body"
	el.MovementsTable = "j_id136:processoEvento:tb"
	el.MovementsPageInput = "j_id136:j_id546:j_id547Input"
	el.AttachmentsTable = "j_id136:processoDocumentoGridTab:tb"
	el.AttachmentDownload = "j_id42:downloadPDF"

	return Config{
		Tribunal:             model.TRF1,
		Grade:                grade,
		BaseURL:              baseURL,
		SearchPath:           "/consultapublica/ConsultaPublica/listView.seam",
		PageSize:             10,
		Captcha:              CaptchaNone,
		SupportsOtherParties: true,
		PJE:                  el,
	}
}

func pjeTRF3(grade model.Grade, baseURL string) Config {
	el := pjeSearchElements()
	el.DetailForm = "j_id145"
	el.HeaderSelector = `div#j_id145\:processoTrfViewView\:j_id148_body > table > tbody > tr > td > span`
	el.ActivePartyBinding = "j_id145:processoPartesPoloAtivoResumidoList:j_id336"
	el.PassivePartyBinding = "j_id145:processoPartesPoloPassivoResumidoList:j_id400"
	el.MovementsPanel = "j_id145:processoEventoPanel_body"
	el.MovementsTable = "j_id145:processoEvento:tb"
	el.MovementsPageInput = "j_id145:j_id556:j_id557Input"
	el.AttachmentsTable = "j_id145:processoDocumentoGridTab:tb"
	el.AttachmentDownload = "j_id39:downloadPDF"

	return Config{
		Tribunal:   model.TRF3,
		Grade:      grade,
		BaseURL:    baseURL,
		SearchPath: "/pje/ConsultaPublica/listView.seam",
		PageSize:   10,
		Captcha:    CaptchaNone,
		PJE:        el,
	}
}

func pjeTRF6(grade model.Grade, baseURL string) Config {
	el := pjeSearchElements()
	el.DetailForm = "j_id141"
	el.HeaderSelector = `div#j_id141\:processoTrfViewView\:j_id144_body > table > tbody > tr > td > span`
	el.ActivePartyBinding = "j_id141:processoPartesPoloAtivoResumidoList:j_id328"
	el.PassivePartyBinding = "j_id141:processoPartesPoloPassivoResumidoList:j_id392"
	el.MovementsPanel = "j_id141:processoEventoPanel_body"
	el.MovementsTable = "j_id141:processoEvento:tb"
	el.MovementsPageInput = "j_id141:j_id541:j_id542Input"
	el.AttachmentsTable = "j_id141:processoDocumentoGridTab:tb"
	el.AttachmentDownload = "j_id39:downloadPDF"

	return Config{
		Tribunal:   model.TRF6,
		Grade:      grade,
		BaseURL:    baseURL,
		SearchPath: "/consultapublica/ConsultaPublica/listView.seam",
		PageSize:   10,
		Captcha:    CaptchaNone,
		PJE:        el,
	}
}

// pjeTRF5 is the TRF5 public consultation portal. It guards the search
// form with an image captcha and requires the CPF search mode to be
// toggled on before the field accepts input.
func pjeTRF5() Config {
	return Config{
		Tribunal:   model.TRF5,
		Grade:      model.GradePJe1,
		BaseURL:    "https://pje.trf5.jus.br",
		SearchPath: "/pje/ConsultaPublica/listView.seam",
		PageSize:   10,
		Captcha:    CaptchaImage,
		PJE: PJEElements{
			CPFInput:           "consultaPublicaForm:numeroCPFCNPJ:numeroCPFCNPJRadioCPFCNPJ:numeroCPFCNPJCPF",
			CPFToggle:          "consultaPublicaForm:numeroCPFCNPJ:numeroCPFCNPJRadioCPFCNPJ:j_id229",
			ProcessNumberInput: "consultaPublicaForm:Processo:ProcessoDecoration:Processo",
			SearchButton:       "consultaPublicaForm:pesq",
			ErrorBannerClass:   "alert-danger",
			ResultTable:        "consultaPublicaList2:tb",
			ZeroResultsText:    "Foram encontrados: 0 resultados",
			CaptchaImage:       "consultaPublicaForm:captcha:captchaImg",
			CaptchaInput:       "consultaPublicaForm:captcha:j_id268:verifyCaptcha",
			DetailForm:         "j_id140",
			HeaderSelector:     `div#j_id140\:processoTrfViewView\:j_id143_body > table > tbody > tr > td > span`,

			ActivePartyBinding:  "j_id140:processoPartesPoloAtivoResumidoList:j_id545",
			PassivePartyBinding: "j_id140:processoPartesPoloPassivoResumidoList:j_id609",
			MovementsPanel:      "j_id140:processoEventoPanel_body",
			MovementsTable:      "j_id140:processoEvento:tb",
			MovementsPageInput:  "j_id140:j_id545:j_id546Input",
			AttachmentsTable:    "j_id140:processoDocumentoGridTab:tb",
			AttachmentDownload:  "j_id39:downloadPDF",
		},
	}
}

// eprocConfig builds a record for an eproc portal; the element set is
// identical across installations.
func eprocConfig(tribunal model.Tribunal, grade model.Grade, baseURL string) Config {
	return Config{
		Tribunal:   tribunal,
		Grade:      grade,
		BaseURL:    baseURL,
		SearchPath: "/eproc/externo_controlador.php?acao=processo_consulta_publica",
		PageSize:   50,
		Captcha:    CaptchaTurnstile,
		Eproc: EprocElements{
			DataArea:          "divInfraAreaDados",
			SearchButton:      "sbmNovo",
			CaptchaDiv:        "divInfraCaptcha",
			TableArea:         "divInfraAreaTabela",
			ProcessInputIndex: 0,
			CPFInputIndex:     9,
			PartiesTable:      "tblPartesERepresentantes",
			EventsTable:       "tblEventos",
		},
	}
}
