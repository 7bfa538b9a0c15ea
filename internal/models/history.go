package models

import (
	"encoding/json"
	"time"
)

// HistoryEntityType identifies which entity a history entry belongs to
type HistoryEntityType string

const (
	HistoryRfc             HistoryEntityType = "rfc"
	HistoryAssignment      HistoryEntityType = "assignment"
	HistoryAuthor          HistoryEntityType = "author"
	HistoryRelatedDocument HistoryEntityType = "related_document"
	HistoryAdditionalEmail HistoryEntityType = "additional_email"
	HistoryClusterMember   HistoryEntityType = "cluster_member"
	HistorySubseriesMember HistoryEntityType = "subseries_member"
	HistoryBlockingReason  HistoryEntityType = "blocking_reason"
)

// TrackedEntityTypes are the history streams the notification poller
// scans for changes to in-progress documents.
var TrackedEntityTypes = []HistoryEntityType{
	HistoryRfc,
	HistoryAssignment,
	HistoryAuthor,
	HistoryRelatedDocument,
	HistoryAdditionalEmail,
	HistoryClusterMember,
	HistorySubseriesMember,
}

// ChangeType tags a history entry with the kind of mutation
type ChangeType string

const (
	ChangeCreated ChangeType = "created"
	ChangeUpdated ChangeType = "updated"
	ChangeDeleted ChangeType = "deleted"
)

// HistoryEntry is one row of the append-only audit trail. Every
// mutation of a tracked entity writes an entry in the same transaction,
// so "when did X enter state Y" is always answerable and the poller can
// diff against a checkpoint.
type HistoryEntry struct {
	ID          int64             `json:"id" db:"id"`
	EntityType  HistoryEntityType `json:"entity_type" db:"entity_type"`
	EntityID    string            `json:"entity_id" db:"entity_id"`
	RfcID       *int64            `json:"rfc_id,omitempty" db:"rfc_id"`
	ChangeType  ChangeType        `json:"change_type" db:"change_type"`
	State       string            `json:"state,omitempty" db:"state"`
	Payload     json.RawMessage   `json:"payload,omitempty" db:"payload"`
	HistoryDate time.Time         `json:"history_date" db:"history_date"`
}
