package domain

import (
	"fmt"
	"maps"
	"time"
)

// ApprovalCell holds one party's decision for one stage.
type ApprovalCell struct {
	Status    ApprovalStatus `json:"status"`
	UpdatedBy string         `json:"updated_by,omitempty"`
	UpdatedAt time.Time      `json:"updated_at,omitzero"`
}

// ApprovalStage is a dual-party approval: one admin cell and one client cell.
// Tasks and financial transactions share this type so the rules cannot drift apart.
type ApprovalStage struct {
	Admin  ApprovalCell `json:"admin"`
	Client ApprovalCell `json:"client"`
}

// NewApprovalStage returns a stage with both cells pending.
func NewApprovalStage() ApprovalStage {
	return ApprovalStage{
		Admin:  ApprovalCell{Status: ApprovalPending},
		Client: ApprovalCell{Status: ApprovalPending},
	}
}

// FullyApproved reports whether both parties approved the stage.
// A fully approved stage is locked: neither cell may be revoked.
func (s ApprovalStage) FullyApproved() bool {
	return s.Admin.Status == ApprovalApproved && s.Client.Status == ApprovalApproved
}

// Cell returns the cell owned by party.
func (s ApprovalStage) Cell(party Party) ApprovalCell {
	if party == PartyClient {
		return s.Client
	}
	return s.Admin
}

func (s *ApprovalStage) setCell(party Party, cell ApprovalCell) {
	if party == PartyClient {
		s.Client = cell
		return
	}
	s.Admin = cell
}

// ApprovalMatrix tracks the approval stages of one task or transaction.
type ApprovalMatrix struct {
	Stages map[Stage]ApprovalStage `json:"stages"`
}

// NewApprovalMatrix returns a matrix with every given stage pending.
func NewApprovalMatrix(stages ...Stage) ApprovalMatrix {
	m := ApprovalMatrix{Stages: make(map[Stage]ApprovalStage, len(stages))}
	for _, s := range stages {
		m.Stages[s] = NewApprovalStage()
	}
	return m
}

// NewTaskApprovals returns the start and completion stages used by tasks.
func NewTaskApprovals() ApprovalMatrix {
	return NewApprovalMatrix(StageStart, StageCompletion)
}

// Stage returns the named stage and whether the matrix tracks it.
func (m ApprovalMatrix) Stage(stage Stage) (ApprovalStage, bool) {
	s, ok := m.Stages[stage]
	return s, ok
}

// FullyApproved reports whether the named stage exists and both parties approved it.
func (m ApprovalMatrix) FullyApproved(stage Stage) bool {
	s, ok := m.Stages[stage]
	return ok && s.FullyApproved()
}

// AllApproved reports whether every tracked stage is fully approved.
// An empty matrix is never considered approved.
func (m ApprovalMatrix) AllApproved() bool {
	if len(m.Stages) == 0 {
		return false
	}
	for _, s := range m.Stages {
		if !s.FullyApproved() {
			return false
		}
	}
	return true
}

// Clone returns a deep copy of the matrix.
func (m ApprovalMatrix) Clone() ApprovalMatrix {
	return ApprovalMatrix{Stages: maps.Clone(m.Stages)}
}

// ApprovalCommand is a request to change one approval cell.
type ApprovalCommand struct {
	Stage  Stage
	Party  Party
	Action ApprovalAction
	Actor  Actor
	At     time.Time
}

// StageFullyApproved is emitted when a command moves a stage from not fully approved to fully approved.
type StageFullyApproved struct {
	Stage Stage
	At    time.Time
}

// ApprovalOutcome is the result of applying a command: the new matrix and at most one event.
type ApprovalOutcome struct {
	Matrix ApprovalMatrix
	Event  *StageFullyApproved
}

// Apply validates cmd against the matrix and returns the resulting matrix.
// The receiver is never modified.
//
// Rules:
//   - approve/reject may only be issued by the party owning the cell, and only while the cell is pending
//     (repeating the recorded decision is a no-op)
//   - revoke may only be issued by an admin and resets the cell to pending
//   - nothing may change a stage once both parties approved it
func (m ApprovalMatrix) Apply(cmd ApprovalCommand) (ApprovalOutcome, error) {
	stage, ok := m.Stages[cmd.Stage]
	if !ok {
		return ApprovalOutcome{}, fmt.Errorf("%w: %s", ErrUnknownStage, cmd.Stage)
	}
	if cmd.Party != PartyAdmin && cmd.Party != PartyClient {
		return ApprovalOutcome{}, fmt.Errorf("%w: %s", ErrInvalidParty, cmd.Party)
	}

	wasApproved := stage.FullyApproved()
	cell := stage.Cell(cmd.Party)

	switch cmd.Action {
	case ActionApprove, ActionReject:
		actorParty, isParty := cmd.Actor.Role.Party()
		if !isParty || actorParty != cmd.Party {
			return ApprovalOutcome{}, fmt.Errorf("%w: %s may not decide for the %s party", ErrForbidden, cmd.Actor.Role, cmd.Party)
		}
		target := ApprovalApproved
		if cmd.Action == ActionReject {
			target = ApprovalRejected
		}
		if cell.Status == target {
			return ApprovalOutcome{Matrix: m.Clone()}, nil
		}
		if wasApproved {
			return ApprovalOutcome{}, ErrStageLocked
		}
		if cell.Status != ApprovalPending {
			return ApprovalOutcome{}, fmt.Errorf("%w: %s %s is %s", ErrCellAlreadyDecided, cmd.Stage, cmd.Party, cell.Status)
		}
		cell = ApprovalCell{Status: target, UpdatedBy: cmd.Actor.ID, UpdatedAt: cmd.At}

	case ActionRevoke:
		if !cmd.Actor.IsAdmin() {
			return ApprovalOutcome{}, fmt.Errorf("%w: only an admin may revoke", ErrForbidden)
		}
		if wasApproved {
			return ApprovalOutcome{}, ErrStageLocked
		}
		cell = ApprovalCell{Status: ApprovalPending, UpdatedBy: cmd.Actor.ID, UpdatedAt: cmd.At}

	default:
		return ApprovalOutcome{}, fmt.Errorf("%w: %s", ErrInvalidApprovalAction, cmd.Action)
	}

	next := m.Clone()
	stage.setCell(cmd.Party, cell)
	next.Stages[cmd.Stage] = stage

	out := ApprovalOutcome{Matrix: next}
	if !wasApproved && stage.FullyApproved() {
		out.Event = &StageFullyApproved{Stage: cmd.Stage, At: cmd.At}
	}
	return out, nil
}
