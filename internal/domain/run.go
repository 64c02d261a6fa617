package domain

import "time"

// RunStatus represents the status of a preparation run.
// Values include RunStatusPending, RunStatusRunning, RunStatusCompleted, and RunStatusFailed.
type RunStatus string

const (
	RunStatusPending   RunStatus = "pending"
	RunStatusRunning   RunStatus = "running"
	RunStatusCompleted RunStatus = "completed"
	RunStatusFailed    RunStatus = "failed"
)

// Run kinds recorded by the command-line tools.
const (
	RunKindPrepare  = "prepare"
	RunKindProcess  = "process"
	RunKindGenerate = "generate"
	RunKindValidate = "validate"
	RunKindPublish  = "publish"
)

// PrepRun represents one invocation of a preparation command and its
// progress counters.
type PrepRun struct {
	ID          string     `gorm:"type:text;primaryKey" json:"id"`
	Kind        string     `gorm:"type:text;not null;index" json:"kind"`
	Status      RunStatus  `gorm:"default:pending" json:"status"`
	Total       int        `gorm:"default:0" json:"total"`
	Processed   int        `gorm:"default:0" json:"processed"`
	Skipped     int        `gorm:"default:0" json:"skipped"`
	Failed      int        `gorm:"default:0" json:"failed"`
	Params      string     `gorm:"type:text" json:"params,omitempty"`
	ErrorLog    string     `json:"error_log,omitempty"`
	StartedAt   *time.Time `json:"started_at,omitempty"`
	CompletedAt *time.Time `json:"completed_at,omitempty"`
	CreatedAt   time.Time  `json:"created_at"`
	UpdatedAt   time.Time  `json:"updated_at"`
}

// TableName returns the database table name for PrepRun.
func (PrepRun) TableName() string {
	return "prep_runs"
}
