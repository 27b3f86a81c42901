package models

import (
	"time"

	"github.com/samber/lo"
)

// MutationOutcome is the final state of a mutation in a report
type MutationOutcome string

const (
	OutcomePlanned MutationOutcome = "planned"
	OutcomeApplied MutationOutcome = "applied"
	OutcomeSkipped MutationOutcome = "skipped"
	OutcomeFailed  MutationOutcome = "failed"
)

// MutationResult records what happened to one mutation
type MutationResult struct {
	Mutation    Mutation        `json:"mutation"`
	Outcome     MutationOutcome `json:"outcome"`
	TxHash      string          `json:"txHash,omitempty"`
	BlockNumber uint64          `json:"blockNumber,omitempty"`
	GasUsed     uint64          `json:"gasUsed,omitempty"`
	ErrorKind   string          `json:"errorKind,omitempty"`
	Reason      string          `json:"reason,omitempty"`
	Err         error           `json:"-"`
}

// ReadFailure records a tuple whose current state could not be read
type ReadFailure struct {
	Key       RoleKey `json:"key"`
	ErrorKind string  `json:"errorKind"`
	Reason    string  `json:"reason"`
	Err       error   `json:"-"`
}

// RoleReport is the structured output of a reconciliation run
type RoleReport struct {
	RunID        string           `json:"runId"`
	DryRun       bool             `json:"dryRun"`
	StartedAt    time.Time        `json:"startedAt"`
	FinishedAt   time.Time        `json:"finishedAt"`
	Checked      int              `json:"checked"`
	Results      []MutationResult `json:"results"`
	ReadFailures []ReadFailure    `json:"readFailures,omitempty"`
}

// CountByOutcome counts results per outcome
func (r *RoleReport) CountByOutcome() map[MutationOutcome]int {
	return lo.CountValuesBy(r.Results, func(res MutationResult) MutationOutcome { return res.Outcome })
}

// ByChain groups results by chain id, preserving order within each chain
func (r *RoleReport) ByChain() map[uint64][]MutationResult {
	return lo.GroupBy(r.Results, func(res MutationResult) uint64 { return res.Mutation.Contract.ChainID })
}

// HasFailures reports whether any read or mutation failed
func (r *RoleReport) HasFailures() bool {
	return len(r.ReadFailures) > 0 || lo.SomeBy(r.Results, func(res MutationResult) bool {
		return res.Outcome == OutcomeFailed
	})
}
