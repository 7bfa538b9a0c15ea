package models

import (
	"time"
)

// BlockingReason names a condition that pauses editorial work on a
// document. The values form a fixed catalog; the evaluator only ever
// emits slugs from this set.
type BlockingReason string

const (
	ReasonActionHolderActive           BlockingReason = "actionholder_active"
	ReasonLabelStreamHold              BlockingReason = "label_stream_hold"
	ReasonLabelExtRefHold              BlockingReason = "label_extref_hold"
	ReasonLabelAuthorInputRequired     BlockingReason = "label_author_input_required"
	ReasonLabelIANAHold                BlockingReason = "label_iana_hold"
	ReasonReferenceNotReceived         BlockingReason = "ref_not_received"
	ReasonReferenceNotReceived2G       BlockingReason = "ref_not_received_2g"
	ReasonReferenceNotReceived3G       BlockingReason = "ref_not_received_3g"
	ReasonRefqueueFirstEditIncomplete  BlockingReason = "refqueue_first_edit_incomplete"
	ReasonRefqueueSecondEditIncomplete BlockingReason = "refqueue_second_edit_incomplete"
	ReasonRefqueuePublishIncomplete    BlockingReason = "refqueue_publish_incomplete"
	ReasonFinalApprovalPending         BlockingReason = "final_approval_pending"
	ReasonToolsIssue                   BlockingReason = "tools_issue"
)

// BlockingReasonRecord is a catalog entry for a blocking reason
type BlockingReasonRecord struct {
	Slug        BlockingReason `json:"slug" db:"slug"`
	Name        string         `json:"name" db:"name"`
	Description string         `json:"description,omitempty" db:"description"`
}

// RfcBlockingReason links a document to a currently- or previously-
// active blocking reason. Records are resolved by timestamping, never
// deleted; at most one unresolved record exists per (rfc, reason).
type RfcBlockingReason struct {
	ID       int64          `json:"id" db:"id"`
	RfcID    int64          `json:"rfc_id" db:"rfc_id"`
	Reason   BlockingReason `json:"reason" db:"reason_slug"`
	Since    time.Time      `json:"since" db:"since"`
	Resolved *time.Time     `json:"resolved,omitempty" db:"resolved"`
}

// Active reports whether the reason is still unresolved
func (r *RfcBlockingReason) Active() bool {
	return r.Resolved == nil
}
