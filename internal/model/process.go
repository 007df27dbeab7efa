package model

import "time"

// SimpleProcessData is one row of a search-result listing. It is produced
// by the extraction grammar and used to drive detail navigation; it is
// never persisted directly.
type SimpleProcessData struct {
	ProcessClass    string    `json:"process_class"`
	ProcessClassAbv string    `json:"process_class_abv"`
	ProcessNumber   string    `json:"process_number"`
	Subject         string    `json:"subject"`
	Plaintiff       string    `json:"plaintiff"`
	Defendant       string    `json:"defendant"`
	Status          string    `json:"status"`
	LastUpdate      time.Time `json:"last_update"`
}

// ProcessData holds the header fields of a single case detail view.
type ProcessData struct {
	ProcessNumber    string    `json:"process_number"`
	DistributionDate time.Time `json:"distribution_date"`
	Jurisdiction     string    `json:"jurisdiction"`
	JudicialClass    string    `json:"judicial_class"`
	Subject          string    `json:"subject"`
	JudgeEntity      string    `json:"judge_entity,omitempty"`

	// Optional fields only some portals render.
	CollegiateJudgeEntity   string `json:"collegiate_judge_entity,omitempty"`
	AssignedJudge           string `json:"assigned_judge,omitempty"`
	ReferencedProcessNumber string `json:"referenced_process_number,omitempty"`
}

// DetailedProcessData is the unit of work produced per case and handed to
// persistence.
type DetailedProcessData struct {
	Process     ProcessData  `json:"process"`
	CaseParties CaseParty    `json:"case_parties"`
	Movements   []Movement   `json:"movements"`
	Attachments []Attachment `json:"attachments,omitempty"`
}
