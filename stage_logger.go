package pipeshell

import (
	"context"
	"time"
)

// StageLogEntry records what one stage of an execution did
type StageLogEntry struct {
	ExecutionID string         `json:"execution_id"`
	Index       int            `json:"index"`
	Command     string         `json:"command"`
	Args        map[string]any `json:"args"`
	Items       int            `json:"items"`
	Error       string         `json:"error,omitempty"`
	StartTime   time.Time      `json:"start_time"`
	Duration    float64        `json:"duration"`
}

// StageLogger defines a simple stage logging interface
type StageLogger interface {
	// LogStage records a settled stage
	LogStage(ctx context.Context, entry *StageLogEntry) error

	// GetStageHistory retrieves the stage log for an execution
	GetStageHistory(ctx context.Context, executionID string) ([]*StageLogEntry, error)
}
