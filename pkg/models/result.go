package models

import (
	"fmt"
	"time"
)

// PhaseResult summarizes one account's import or export phase within a pass.
type PhaseResult struct {
	AccountID string        `json:"account_id"`
	Direction SyncDirection `json:"direction"`
	Created   int           `json:"created"`
	Updated   int           `json:"updated"`
	Deleted   int           `json:"deleted"`
	Archived  int           `json:"archived"`
	Conflicts int           `json:"conflicts"`
	Errors    []string      `json:"errors,omitempty"`
}

// PhaseKey identifies a phase result within a pass.
func PhaseKey(direction SyncDirection, accountID string) string {
	if direction == DirectionExternalToLocal {
		return fmt.Sprintf("import:%s", accountID)
	}
	return fmt.Sprintf("export:%s", accountID)
}

// PassResult is the outcome of one full bidirectional pass.
type PassResult struct {
	StartedAt  time.Time               `json:"started_at"`
	FinishedAt time.Time               `json:"finished_at"`
	Partial    bool                    `json:"partial"`
	Phases     map[string]*PhaseResult `json:"phases"`
}

// TotalErrors counts errors across all phases.
func (r *PassResult) TotalErrors() int {
	n := 0
	for _, p := range r.Phases {
		n += len(p.Errors)
	}
	return n
}
