package syncer

import (
	"time"

	"github.com/ppiankov/cissync/internal/bundle"
)

// Action is what happened to a single policy during a run.
type Action string

// Per-policy outcomes.
const (
	ActionCreated Action = "created"
	ActionSkipped Action = "skipped"
	ActionFailed  Action = "failed"
)

// Outcome records what happened to one policy.
type Outcome struct {
	Name     string          `json:"name"`
	Category bundle.Category `json:"category"`
	Action   Action          `json:"action"`
	PolicyID string          `json:"policyId,omitempty"`
	Error    string          `json:"error,omitempty"`
}

// Result is the tally of one sync run.
// Invariant: Processed == Created + Skipped + Failed.
type Result struct {
	StartedAt time.Time     `json:"startedAt"`
	Duration  time.Duration `json:"duration"`
	DryRun    bool          `json:"dryRun"`
	Processed int           `json:"processed"`
	Created   int           `json:"created"`
	Skipped   int           `json:"skipped"`
	Failed    int           `json:"failed"`
	Outcomes  []Outcome     `json:"outcomes"`
}
