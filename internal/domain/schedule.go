package domain

import (
	"context"
	"errors"
	"time"
)

var ErrInvalidCronExpression = errors.New("invalid cron expression")

type SchedulePreviewParams struct {
	Expression string
	Count      int
	From       time.Time
}

// ScheduleManager computes future fire times for cron expressions. There
// is no background scheduler; previews are request-response only.
type ScheduleManager interface {
	PreviewSchedule(ctx context.Context, params SchedulePreviewParams) ([]time.Time, error)
}
