package audit

import "time"

// Entry is a single append-only audit record.
type Entry struct {
	ID      int64          `json:"id"`
	ActorID int64          `json:"actor_id"`
	Action  string         `json:"action"`
	Details map[string]any `json:"details"`
	At      time.Time      `json:"at"`
}

// Record is the write-side shape handed to the recorder.
type Record struct {
	ActorID  int64
	Action   string
	TargetID int64
	Details  map[string]any
}
