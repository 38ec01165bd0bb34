package syncer

import "time"

// SyncState is the process-wide record of synchronization health. It is
// owned by the Coordinator, which is its only writer; everyone else sees
// copies via Snapshot.
type SyncState struct {
	InProgress        bool
	LastCompletedAt   time.Time
	ConsecutiveErrors int
	DataSource        string
	LastScheduledTick time.Time
}

// Snapshot is a point-in-time copy of SyncState plus the projected next
// scheduled run.
type Snapshot struct {
	InProgress        bool      `json:"in_progress"`
	LastCompletedAt   time.Time `json:"last_completed_at"`
	ConsecutiveErrors int       `json:"consecutive_errors"`
	DataSource        string    `json:"data_source"`
	NextSyncEstimate  time.Time `json:"next_sync_estimate"`
}
