package domain

import "time"

// Action is the verb an authorization request asks about.
type Action string

const (
	ActionRead   Action = "read"
	ActionWrite  Action = "write"
	ActionDelete Action = "delete"
)

// UserContext is the caller identity an authorization decision is made
// for, normally lifted straight out of validated access-token claims.
type UserContext struct {
	UserID      string   `json:"user_id"`
	Roles       []Role   `json:"roles,omitempty"`
	Permissions []string `json:"permissions,omitempty"`
	Groups      []string `json:"groups,omitempty"`
}

// Resource identifies the target of an action. Owner and Group are
// populated when the caller attached richer context upstream; the
// fallback rule uses them for the owner and group-member checks.
type Resource struct {
	Type  string `json:"type"`
	ID    string `json:"id,omitempty"`
	Owner string `json:"owner,omitempty"`
	Group string `json:"group,omitempty"`
}

// PolicyInput is the record sent to the policy engine for evaluation.
type PolicyInput struct {
	User     UserContext `json:"user"`
	Action   Action      `json:"action"`
	Resource Resource    `json:"resource"`
}

// DecisionSource tags which tier produced a decision, so callers and
// tests can tell a remote policy verdict from the local fallback rule.
type DecisionSource string

const (
	DecisionSourceRemote   DecisionSource = "remote"
	DecisionSourceFallback DecisionSource = "fallback"
)

// Decision is the outcome of one authorization call. Decisions are
// produced fresh per call and never cached.
type Decision struct {
	Allow    bool
	Reason   string
	Metadata map[string]any
	Source   DecisionSource
}

// DecisionRecord is the audit form of a decision, emitted to the audit
// sink before the result is returned to the caller.
type DecisionRecord struct {
	ID       string // ULID
	UserID   string
	Action   Action
	Resource Resource
	Allow    bool
	Reason   string
	Metadata map[string]any
	Source   DecisionSource
	At       time.Time
}
