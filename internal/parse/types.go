package parse

import "errors"

var (
	// ErrInvalidRequest marks caller errors: empty text or malformed overrides.
	ErrInvalidRequest = errors.New("invalid parse request")
	// ErrModelsUnavailable is returned when the model registry cannot serve.
	ErrModelsUnavailable = errors.New("models unavailable")
	// ErrAllStrategiesFailed is returned when no strategy produced a candidate.
	ErrAllStrategiesFailed = errors.New("all parse strategies failed")
	// ErrNoCanonicalTree is returned when no candidate carries a tree.
	ErrNoCanonicalTree = errors.New("no candidate produced a tree")
	// ErrStrategyTimeout marks a strategy that exceeded its time budget.
	ErrStrategyTimeout = errors.New("strategy timed out")
)

// Source tells which tagged sequence a candidate was produced from.
type Source string

const (
	SourceBaseline Source = "baseline"
	SourceOverlay  Source = "overlay"
)

// Request is one parse request.
type Request struct {
	Text      string
	Overrides TagOverrides
}

// Candidate is the result of one strategy. It carries a tree, dependencies
// or both, never neither.
type Candidate struct {
	Strategy     string   `json:"strategy"`
	Tree         string   `json:"tree,omitempty"`
	Dependencies string   `json:"dependencies,omitempty"`
	Tags         []string `json:"tags,omitempty"`
	Source       Source   `json:"source"`
}

// Response is the aggregated parse result.
type Response struct {
	Tree         string      `json:"tree"`
	Dependencies string      `json:"dependencies"`
	Strategy     string      `json:"strategy"`
	Tags         []string    `json:"tags"`
	Alternates   []Candidate `json:"alternates"`

	// Complete is set when every planned strategy produced a candidate.
	Complete bool `json:"-"`
}

// Simple is the unarbitrated tree and dependencies of the PCFG strategy.
type Simple struct {
	Tree         string `json:"tree"`
	Dependencies string `json:"dependencies"`
}
