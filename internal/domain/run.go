package domain

import "time"

// RunState enumerates cycle run milestones.
type RunState string

const (
	RunPending   RunState = "pending"
	RunRunning   RunState = "running"
	RunSucceeded RunState = "succeeded"
	RunFailed    RunState = "failed"
)

// CycleRun is a single execution of the pipeline. Only the most recent
// terminal run is retained, for status queries; nothing is persisted.
type CycleRun struct {
	ID            string
	Genre         string
	State         RunState
	StartedAt     time.Time
	FinishedAt    time.Time
	Selection     *RankedSelection
	MediaPath     string
	ThumbnailPath string
	FinalPath     string
	Published     bool
	Error         string
}

// Status is the schedule state plus the last run's terminal summary.
type Status struct {
	LoopActive bool
	Delay      time.Duration
	Genre      string
	Platform   string
	LastRun    *CycleRun
}
