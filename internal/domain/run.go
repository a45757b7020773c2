package domain

import (
	"context"
	"errors"
	"time"
)

var ErrRunNotFound = errors.New("run not found")

// Run is one recorded execution of a prompt version against a model.
// Runs are append-only and are the unit of quota accounting.
type Run struct {
	ID              string
	ProjectID       string
	PromptID        string
	PromptVersionID string
	ExperimentID    string
	Model           string
	Input           map[string]any
	Output          map[string]any
	TokensIn        int64
	TokensOut       int64
	Cost            float64
	LatencyMS       int64
	Success         bool
	Flags           map[string]any
	CreatedAt       time.Time
}

type RunFilter struct {
	ProjectID    string
	PromptID     string
	ExperimentID string
	From         time.Time
	To           time.Time
	Limit        int
	Offset       int
}

type RunStats struct {
	Count        int64
	SuccessCount int64
	AvgLatencyMS float64
	TokensIn     int64
	TokensOut    int64
}

func (s RunStats) SuccessRate() float64 {
	if s.Count == 0 {
		return 0
	}
	return float64(s.SuccessCount) / float64(s.Count)
}

type VariantStats struct {
	PromptVersionID string
	Count           int64
	SuccessCount    int64
	AvgLatencyMS    float64
	TokensIn        int64
	TokensOut       int64
}

type RunStore interface {
	CreateRun(ctx context.Context, run Run) error
	GetRun(ctx context.Context, id string) (Run, error)
	ListRuns(ctx context.Context, filter RunFilter) ([]Run, error)
	GetRunStats(ctx context.Context, filter RunFilter) (RunStats, error)
	GetVariantStats(ctx context.Context, experimentID string) ([]VariantStats, error)

	// SumTokensInForOrganization totals input tokens across all runs under
	// the organization's projects within the window. Output tokens are not
	// counted toward quota.
	SumTokensInForOrganization(ctx context.Context, organizationID string, from, to time.Time) (int64, error)
}

type RecordRunParams struct {
	ProjectID       string
	OrganizationID  string
	PromptID        string
	PromptVersionID string
	ExperimentID    string
	Model           string
	Input           map[string]any
	Output          map[string]any
	TokensIn        int64
	TokensOut       int64
	Cost            float64
	LatencyMS       int64
	Success         bool
	Flags           map[string]any
}

type RunManager interface {
	RecordRun(ctx context.Context, params RecordRunParams) (Run, error)
	GetRun(ctx context.Context, organizationID, runID string) (Run, error)
	ListRuns(ctx context.Context, organizationID string, filter RunFilter) ([]Run, error)
	GetStats(ctx context.Context, organizationID string, filter RunFilter) (RunStats, error)
}
