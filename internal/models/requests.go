package models

import (
	"time"
)

// IntakeRequest is the payload for bringing a draft into the pipeline
type IntakeRequest struct {
	DraftName string   `json:"draft_name" binding:"required"`
	Title     string   `json:"title"`
	StdLevel  string   `json:"std_level"`
	Labels    []string `json:"labels"`
}

// DocumentDetail is a document together with its assignment ledger and
// any unresolved blocking reasons.
type DocumentDetail struct {
	Rfc             *RfcToBe             `json:"rfc"`
	Assignments     []*Assignment        `json:"assignments"`
	BlockingReasons []*RfcBlockingReason `json:"blocking_reasons,omitempty"`
	Blocked         bool                 `json:"blocked"`
}

// PipelineMetrics is a point-in-time summary of pipeline state
type PipelineMetrics struct {
	Dispositions  map[Disposition]int `json:"dispositions"`
	ActiveBlocked int                 `json:"active_blocked"`
	GeneratedAt   time.Time           `json:"generated_at"`
}

// TaskResult reports the outcome of a manually triggered task run
type TaskResult struct {
	Task        string `json:"task"`
	Transitions int    `json:"transitions,omitempty"`
	Message     string `json:"message,omitempty"`
}
