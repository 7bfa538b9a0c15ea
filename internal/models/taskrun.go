package models

import (
	"time"
)

// TaskRun is the singleton-per-task checkpoint record used by polling
// tasks. A partial unique index on (task_name) WHERE is_running makes
// "only one running instance" a storage-layer invariant, so the guard
// holds across independent processes.
type TaskRun struct {
	TaskName  string    `json:"task_name" db:"task_name"`
	LastRunAt time.Time `json:"last_run_at" db:"last_run_at"`
	IsRunning bool      `json:"is_running" db:"is_running"`
}

// Task names with persisted checkpoints
const (
	TaskProcessRfcChanges = "process_rfc_changes"
)
