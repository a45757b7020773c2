package managers

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/promptdeck/promptdeck/internal/domain"
)

func TestScheduleManager_PreviewHourly(t *testing.T) {
	manager := NewScheduleManager()

	from := time.Date(2025, time.March, 10, 14, 30, 0, 0, time.UTC)

	times, err := manager.PreviewSchedule(context.Background(), domain.SchedulePreviewParams{
		Expression: "0 * * * *",
		Count:      3,
		From:       from,
	})
	require.NoError(t, err)
	require.Len(t, times, 3)
	assert.Equal(t, time.Date(2025, time.March, 10, 15, 0, 0, 0, time.UTC), times[0])
	assert.Equal(t, time.Date(2025, time.March, 10, 16, 0, 0, 0, time.UTC), times[1])
	assert.Equal(t, time.Date(2025, time.March, 10, 17, 0, 0, 0, time.UTC), times[2])
}

func TestScheduleManager_PreviewDefaultsToFiveTimes(t *testing.T) {
	manager := NewScheduleManager()

	times, err := manager.PreviewSchedule(context.Background(), domain.SchedulePreviewParams{
		Expression: "*/15 * * * *",
	})
	require.NoError(t, err)
	assert.Len(t, times, 5)

	for i := 1; i < len(times); i++ {
		assert.True(t, times[i].After(times[i-1]))
	}
}

func TestScheduleManager_PreviewClampsCount(t *testing.T) {
	manager := NewScheduleManager()

	times, err := manager.PreviewSchedule(context.Background(), domain.SchedulePreviewParams{
		Expression: "* * * * *",
		Count:      100000,
		From:       time.Date(2025, time.March, 10, 0, 0, 0, 0, time.UTC),
	})
	require.NoError(t, err)
	assert.Len(t, times, 100)
}

func TestScheduleManager_PreviewRejectsInvalidExpression(t *testing.T) {
	manager := NewScheduleManager()

	_, err := manager.PreviewSchedule(context.Background(), domain.SchedulePreviewParams{
		Expression: "every five minutes",
	})
	assert.ErrorIs(t, err, domain.ErrInvalidCronExpression)

	_, err = manager.PreviewSchedule(context.Background(), domain.SchedulePreviewParams{
		Expression: "61 * * * *",
	})
	assert.ErrorIs(t, err, domain.ErrInvalidCronExpression)
}

func TestScheduleManager_PreviewDailyAtMidnight(t *testing.T) {
	manager := NewScheduleManager()

	from := time.Date(2025, time.December, 31, 23, 0, 0, 0, time.UTC)

	times, err := manager.PreviewSchedule(context.Background(), domain.SchedulePreviewParams{
		Expression: "0 0 * * *",
		Count:      2,
		From:       from,
	})
	require.NoError(t, err)
	require.Len(t, times, 2)
	assert.Equal(t, time.Date(2026, time.January, 1, 0, 0, 0, 0, time.UTC), times[0])
	assert.Equal(t, time.Date(2026, time.January, 2, 0, 0, 0, 0, time.UTC), times[1])
}
