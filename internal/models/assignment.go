package models

import (
	"time"
)

// Role identifies a named editorial responsibility
type Role string

const (
	RoleRefChecker        Role = "ref_checker"
	RoleFormatting        Role = "formatting"
	RoleFirstEditor       Role = "first_editor"
	RoleSecondEditor      Role = "second_editor"
	RoleFinalReviewEditor Role = "final_review_editor"
	RolePublisher         Role = "publisher"

	// RoleBlocked is the synthetic role representing "work paused
	// pending resolution of blocking conditions".
	RoleBlocked Role = "blocked"
)

// EditorialSequence is the ordered list of mandatory editorial stages a
// document moves through on its way to publication.
var EditorialSequence = []Role{
	RoleRefChecker,
	RoleFormatting,
	RoleFirstEditor,
	RoleSecondEditor,
	RoleFinalReviewEditor,
	RolePublisher,
}

// AssignmentState represents the state of an assignment
type AssignmentState string

const (
	AssignmentAssigned      AssignmentState = "assigned"
	AssignmentInProgress    AssignmentState = "in_progress"
	AssignmentDone          AssignmentState = "done"
	AssignmentWithdrawn     AssignmentState = "withdrawn"
	AssignmentClosedForHold AssignmentState = "closed_for_hold"
)

// InactiveAssignmentStates are the terminal assignment states. An
// assignment in any other state counts as active, and at most one
// active assignment may exist per (person, document, role).
var InactiveAssignmentStates = []AssignmentState{
	AssignmentDone,
	AssignmentWithdrawn,
	AssignmentClosedForHold,
}

// Active reports whether the state is non-terminal
func (s AssignmentState) Active() bool {
	for _, t := range InactiveAssignmentStates {
		if s == t {
			return false
		}
	}
	return true
}

// Assignment binds a person and a role to a document
type Assignment struct {
	ID        string          `json:"id" db:"id"`
	RfcID     int64           `json:"rfc_id" db:"rfc_id"`
	PersonID  *int64          `json:"person_id,omitempty" db:"person_id"`
	Role      Role            `json:"role" db:"role_slug"`
	State     AssignmentState `json:"state" db:"state"`
	Comment   string          `json:"comment,omitempty" db:"comment"`
	CreatedAt time.Time       `json:"created_at" db:"created_at"`
	UpdatedAt time.Time       `json:"updated_at" db:"updated_at"`
}

// RoleRecord is a catalog entry for a role slug
type RoleRecord struct {
	Slug        Role   `json:"slug" db:"slug"`
	Name        string `json:"name" db:"name"`
	Description string `json:"description,omitempty" db:"description"`
}
