// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

// Package state holds the immutable and mutable data types threaded through
// one Controlled Iterative Repair run: the phase enum, the plan/test/analysis
// records produced by each role, and SharedState, the single mutable object
// the Orchestrator owns for the lifetime of a run.
package state

import "fmt"

// RepairPhase is one state of the CIR state machine.
type RepairPhase string

const (
	PhaseReproduce     RepairPhase = "REPRODUCE"
	PhaseRepairAnalyze RepairPhase = "REPAIR_ANALYZE"
	PhaseRepairPatch   RepairPhase = "REPAIR_PATCH"
	PhaseValidate      RepairPhase = "VALIDATE"
)

// AllPhases returns the four repair phases in their canonical ADVANCE order.
func AllPhases() []RepairPhase {
	return []RepairPhase{PhaseReproduce, PhaseRepairAnalyze, PhaseRepairPatch, PhaseValidate}
}

// Decision is a Mediator verdict.
type Decision string

const (
	DecisionSuccess Decision = "SUCCESS"
	DecisionFail    Decision = "FAIL"
	DecisionAdvance Decision = "ADVANCE"
	DecisionRetry   Decision = "RETRY"
	DecisionReplan  Decision = "REPLAN"
)

// StateMachine validates the legal RepairPhase transitions reachable via an
// ADVANCE decision. RETRY (self-loop), REPLAN (always to REPRODUCE) and the
// terminal decisions SUCCESS/FAIL are not modeled here since they do not
// depend on the adjacency table — only ADVANCE has phase-specific targets.
type StateMachine struct {
	advanceTo map[RepairPhase]RepairPhase
}

// ErrInvalidTransition is returned when an ADVANCE target is not the phase's
// designated successor.
type ErrInvalidTransition struct {
	From, To RepairPhase
}

func (e *ErrInvalidTransition) Error() string {
	return fmt.Sprintf("invalid ADVANCE transition: %s -> %s", e.From, e.To)
}

// NewStateMachine builds the fixed CIR adjacency table.
func NewStateMachine() *StateMachine {
	return &StateMachine{
		advanceTo: map[RepairPhase]RepairPhase{
			PhaseReproduce:     PhaseRepairAnalyze,
			PhaseRepairAnalyze: PhaseRepairPatch,
			PhaseRepairPatch:   PhaseValidate,
		},
	}
}

// NextOnAdvance returns the phase ADVANCE moves to from the given phase, and
// false if the phase has no ADVANCE successor (VALIDATE only produces
// SUCCESS, RETRY, or REPLAN — never ADVANCE).
func (sm *StateMachine) NextOnAdvance(from RepairPhase) (RepairPhase, bool) {
	next, ok := sm.advanceTo[from]
	return next, ok
}

// ValidateAdvance returns an error if advancing from `from` to `to` is not a
// legal transition in the CIR state machine.
func (sm *StateMachine) ValidateAdvance(from, to RepairPhase) error {
	next, ok := sm.advanceTo[from]
	if !ok || next != to {
		return &ErrInvalidTransition{From: from, To: to}
	}
	return nil
}

// DefaultStateMachine is the package-level singleton shared by callers that
// don't need a distinct instance.
var DefaultStateMachine = NewStateMachine()
