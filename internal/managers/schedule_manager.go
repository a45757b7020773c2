package managers

import (
	"context"
	"fmt"
	"time"

	"github.com/robfig/cron/v3"

	"github.com/promptdeck/promptdeck/internal/domain"
)

const (
	defaultPreviewCount = 5
	maxPreviewCount     = 100
)

type scheduleManager struct{}

func NewScheduleManager() domain.ScheduleManager {
	return &scheduleManager{}
}

// PreviewSchedule computes the next fire times of a standard five-field
// cron expression. Nothing is persisted or scheduled.
func (m *scheduleManager) PreviewSchedule(ctx context.Context, params domain.SchedulePreviewParams) ([]time.Time, error) {
	schedule, err := cron.ParseStandard(params.Expression)
	if err != nil {
		return nil, fmt.Errorf("%w: %s", domain.ErrInvalidCronExpression, err)
	}

	count := params.Count
	if count <= 0 {
		count = defaultPreviewCount
	}
	if count > maxPreviewCount {
		count = maxPreviewCount
	}

	from := params.From
	if from.IsZero() {
		from = time.Now()
	}

	times := make([]time.Time, 0, count)
	next := from
	for i := 0; i < count; i++ {
		next = schedule.Next(next)
		times = append(times, next)
	}

	return times, nil
}
