package catalog

import "time"

// Status is the terminal or in-flight state of an extraction run.
type Status string

const (
	StatusRunning   Status = "running"
	StatusCompleted Status = "completed"
	StatusCancelled Status = "cancelled"
	StatusRejected  Status = "rejected"
	StatusFailed    Status = "failed"
)

// IsTerminal reports whether the run has stopped.
func (s Status) IsTerminal() bool {
	return s != StatusRunning && s != ""
}

// Run records one extraction of one video.
type Run struct {
	ID           int64
	RunID        string
	VideoPath    string
	StartedAt    time.Time
	FinishedAt   time.Time
	Status       Status
	Frames       int
	KeyFrames    int
	Threshold    float64
	Metric       string
	ErrorMessage string
}

// Elapsed is the wall time between start and finish, or 0 while running.
func (r Run) Elapsed() time.Duration {
	if r.FinishedAt.IsZero() {
		return 0
	}
	return r.FinishedAt.Sub(r.StartedAt)
}

// KeyFrame records one exported key frame of a run.
type KeyFrame struct {
	RunID      string
	Ordinal    int
	FrameIndex int
	Start      time.Duration
	End        time.Duration
	Quality    float64
	ImagePath  string
	SHA256     string
}

// Description is a cached vision description keyed by image digest and model.
type Description struct {
	SHA256       string
	Model        string
	Summary      string
	OnScreenText string
	CreatedAt    time.Time
}
