package models

import (
	"time"
)

// Relationship is the type of an edge between a document and another
// document-to-be or an external draft.
type Relationship string

const (
	// RelRefQueue marks a normative reference to a document currently
	// in the production queue.
	RelRefQueue Relationship = "refqueue"
	// RelMissRef marks a normative reference to a document still in
	// draft state.
	RelMissRef Relationship = "missref"

	// Escalating "reference not received" tiers
	RelNotReceived   Relationship = "not-received"
	RelNotReceived2G Relationship = "not-received-2g"
	RelNotReceived3G Relationship = "not-received-3g"

	RelObsoletes Relationship = "obsoletes"
	RelUpdates   Relationship = "updates"
)

// NotReceivedRelationships lists the escalation tiers in precedence
// order; the evaluator reports the first tier present.
var NotReceivedRelationships = []Relationship{
	RelNotReceived,
	RelNotReceived2G,
	RelNotReceived3G,
}

// RelatedDocument is a typed edge from a document-to-be to another
// document-to-be or to an external draft.
type RelatedDocument struct {
	ID              int64        `json:"id" db:"id"`
	SourceRfcID     int64        `json:"source_rfc_id" db:"source_rfc_id"`
	TargetRfcID     *int64       `json:"target_rfc_id,omitempty" db:"target_rfc_id"`
	TargetDraftName string       `json:"target_draft_name,omitempty" db:"target_draft_name"`
	Relationship    Relationship `json:"relationship" db:"relationship"`
}

// ActionHolder is someone who must act on a document before editorial
// work can continue; active while completed is unset.
type ActionHolder struct {
	ID        int64      `json:"id" db:"id"`
	RfcID     int64      `json:"rfc_id" db:"rfc_id"`
	PersonID  int64      `json:"person_id" db:"person_id"`
	Completed *time.Time `json:"completed,omitempty" db:"completed"`
}

// Active reports whether the holder still needs to act
func (a *ActionHolder) Active() bool {
	return a.Completed == nil
}

// FinalApproval is a publication approval request from a titlepage
// author or organizational body; active until approved.
type FinalApproval struct {
	ID          string     `json:"id" db:"id"`
	RfcID       int64      `json:"rfc_id" db:"rfc_id"`
	Approver    string     `json:"approver" db:"approver"`
	RequestedAt time.Time  `json:"requested_at" db:"requested_at"`
	Approved    *time.Time `json:"approved,omitempty" db:"approved"`
}

// Active reports whether the approval is still pending
func (f *FinalApproval) Active() bool {
	return f.Approved == nil
}

// RfcAuthor captures the titlepage name of an author as it appears on
// the published document.
type RfcAuthor struct {
	ID            int64  `json:"id" db:"id"`
	RfcID         int64  `json:"rfc_id" db:"rfc_id"`
	TitlepageName string `json:"titlepage_name" db:"titlepage_name"`
	Order         int    `json:"order" db:"author_order"`
}
