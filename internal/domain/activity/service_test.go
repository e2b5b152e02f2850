package activity_test

import (
	"context"
	"errors"
	"testing"

	"github.com/civicwatch/civicwatch/internal/domain/activity"
	"github.com/civicwatch/civicwatch/internal/repository/mocks"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

func TestActivityService_LogAndList(t *testing.T) {
	ctx := context.Background()

	repo := &mocks.ActivityRepository{}
	reportID := "r1"
	entry := &activity.ActivityEntry{
		ActorID:      "admin1",
		ReportID:     &reportID,
		ActivityType: activity.TypeStatusChanged,
		Outcome:      activity.OutcomeSuccess,
		Summary:      "marked r1 cleaned",
	}

	repo.On("Log", ctx, entry).Return(nil)
	repo.On("List", ctx, activity.ListActivityOptions{ReportID: &reportID, Limit: 50}).
		Return([]activity.ActivityEntry{*entry}, nil)

	svc := activity.NewService(repo, nil)
	require.NoError(t, svc.LogActivity(ctx, entry))
	require.False(t, entry.CreatedAt.IsZero())

	entries, err := svc.GetRecentActivity(ctx, activity.ListActivityOptions{ReportID: &reportID})
	require.NoError(t, err)
	require.Len(t, entries, 1)
	repo.AssertExpectations(t)
}

func TestActivityService_LogRejectsIncompleteEntry(t *testing.T) {
	svc := activity.NewService(&mocks.ActivityRepository{}, nil)

	require.ErrorIs(t, svc.LogActivity(context.Background(), nil), activity.ErrInvalidInput)
	require.ErrorIs(t, svc.LogActivity(context.Background(), &activity.ActivityEntry{
		ActivityType: activity.TypeLocationCleanup,
	}), activity.ErrInvalidInput)
}

func TestActivityService_LogWrapsRepositoryError(t *testing.T) {
	ctx := context.Background()
	repo := &mocks.ActivityRepository{}
	repo.On("Log", ctx, mock.Anything).Return(errors.New("disk full"))

	svc := activity.NewService(repo, nil)
	err := svc.LogActivity(ctx, &activity.ActivityEntry{
		ActivityType: activity.TypeReportSubmitted,
		Outcome:      activity.OutcomeFailure,
		Summary:      "submit failed",
	})
	require.ErrorContains(t, err, "logging activity")
}
