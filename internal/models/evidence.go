package models

// Confidence labels how an evidence item was derived.
type Confidence string

const (
	// ConfidenceVerified marks facts read directly from registry records.
	ConfidenceVerified Confidence = "verified"
	// ConfidenceInferred marks facts derived from a heuristic correlation
	// that could have an innocent explanation.
	ConfidenceInferred Confidence = "inferred"
)

// Severity captures the weight of a single evidence item.
type Severity string

const (
	SeverityNone   Severity = "none"
	SeverityLow    Severity = "low"
	SeverityMedium Severity = "medium"
	SeverityHigh   Severity = "high"
)

// Rating is the verdict for one behavioural dimension.
type Rating string

const (
	RatingClean       Rating = "clean"
	RatingInvestigate Rating = "investigate"
	RatingRedFlag     Rating = "red_flag"
)

// Evidence is one observed fact feeding a dimension rating. Each item
// belongs to exactly one dimension's evidence list.
type Evidence struct {
	Confidence  Confidence     `json:"confidence"`
	Severity    Severity       `json:"severity"`
	Type        string         `json:"type"`
	Description string         `json:"description"`
	Details     map[string]any `json:"details,omitempty"`
	Disclaimer  string         `json:"disclaimer,omitempty"`
	Source      string         `json:"source"`
	Link        string         `json:"link,omitempty"`
}
