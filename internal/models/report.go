package models

import "time"

// Interpretation carries static analyst guidance attached to a dimension.
type Interpretation struct {
	WhyMatters           []string `json:"why_matters"`
	InnocentExplanations []string `json:"innocent_explanations"`
	WhatWeChecked        []string `json:"what_we_checked"`
}

// DimensionResult is the output of one analyzer unit. Constructed fresh per
// analysis request and immutable once returned.
type DimensionResult struct {
	Dimension      string         `json:"dimension"`
	Title          string         `json:"title"`
	Question       string         `json:"question,omitempty"`
	Rating         Rating         `json:"rating"`
	Summary        string         `json:"summary"`
	Evidence       []Evidence     `json:"evidence"`
	RatingLogic    string         `json:"rating_logic,omitempty"`
	WhatToAsk      []string       `json:"what_to_ask,omitempty"`
	Interpretation Interpretation `json:"interpretation,omitempty"`
	Disclaimer     string         `json:"disclaimer,omitempty"`
	Error          string         `json:"error,omitempty"`
}

// CompanyProfile is the subset of registry profile fields surfaced in reports.
type CompanyProfile struct {
	CompanyNumber    string         `json:"company_number"`
	CompanyName      string         `json:"company_name"`
	CompanyStatus    string         `json:"company_status"`
	Type             string         `json:"type"`
	DateOfCreation   string         `json:"date_of_creation"`
	RegisteredOffice map[string]any `json:"registered_office_address"`
	SICCodes         []string       `json:"sic_codes"`
}

// ReportMetadata records request bookkeeping for a finished report.
type ReportMetadata struct {
	ReportID       string    `json:"report_id"`
	AnalyzedAt     time.Time `json:"analyzed_at"`
	ElapsedSeconds float64   `json:"elapsed_seconds"`
}

// CompanyReport aggregates the company profile with all six dimension
// results. Built once per request; never cached (profile overdue flags are
// time-sensitive).
type CompanyReport struct {
	Profile    CompanyProfile             `json:"company_profile"`
	Dimensions map[string]DimensionResult `json:"dimensions"`
	Metadata   ReportMetadata             `json:"metadata"`
}

// Stream message types emitted by the incremental analysis variant.
const (
	StreamTypeProfile   = "profile"
	StreamTypeDimension = "dimension"
	StreamTypeError     = "error"
	StreamTypeComplete  = "complete"
)

// StreamMessage is one event in the streaming analysis flow. The profile
// message is always first and the complete sentinel always last; dimension
// messages arrive in completion order.
type StreamMessage struct {
	Type    string `json:"type"`
	Data    any    `json:"data,omitempty"`
	Message string `json:"message,omitempty"`
}
