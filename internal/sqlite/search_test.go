package sqlite

import (
	"context"
	"testing"

	"github.com/civicwatch/civicwatch/internal/domain/report"
	"github.com/stretchr/testify/require"
)

func TestSearchRepository_Search(t *testing.T) {
	db := NewTestDB(t)
	ctx := context.Background()

	repo := NewReportRepository(db)
	require.NoError(t, repo.Create(ctx, &report.Document{
		ID: "r1", OwnerID: "u1", Type: "noise",
		Description: stringPtr("Unique generator noise"), Location: stringPtr("Ikeja"),
	}))
	require.NoError(t, repo.Create(ctx, &report.Document{
		ID: "r2", OwnerID: "u1", Type: "crowd",
		Description: stringPtr("Market crowd"), Location: stringPtr("Yaba"),
	}))

	searchRepo := NewSearchRepository(db)
	results, err := searchRepo.Search(ctx, "unique", report.SearchOptions{})
	require.NoError(t, err)
	require.Len(t, results, 1)
	require.Equal(t, "r1", results[0].Report.ID)
	require.Equal(t, report.CategoryNoise, results[0].Report.Category)
	require.Contains(t, results[0].Snippet, "[Unique]")

	results, err = searchRepo.Search(ctx, "yaba", report.SearchOptions{})
	require.NoError(t, err)
	require.Len(t, results, 1)
	require.Equal(t, "r2", results[0].Report.ID)
}

func TestSearchRepository_Filters(t *testing.T) {
	db := NewTestDB(t)
	ctx := context.Background()

	repo := NewReportRepository(db)
	require.NoError(t, repo.Create(ctx, &report.Document{
		ID: "r1", OwnerID: "u1", Type: "noise", Description: stringPtr("Shared term"),
	}))
	require.NoError(t, repo.Create(ctx, &report.Document{
		ID: "r2", OwnerID: "u2", Type: "noise", Description: stringPtr("Shared term"),
	}))
	require.NoError(t, repo.UpdateStatus(ctx, "r2", report.StatusResolved))

	searchRepo := NewSearchRepository(db)

	results, err := searchRepo.Search(ctx, "shared", report.SearchOptions{})
	require.NoError(t, err)
	require.Len(t, results, 2)

	results, err = searchRepo.Search(ctx, "shared", report.SearchOptions{OwnerID: "u1"})
	require.NoError(t, err)
	require.Len(t, results, 1)
	require.Equal(t, "r1", results[0].Report.ID)

	results, err = searchRepo.Search(ctx, "shared", report.SearchOptions{Statuses: []report.Status{report.StatusResolved}})
	require.NoError(t, err)
	require.Len(t, results, 1)
	require.Equal(t, "r2", results[0].Report.ID)

	results, err = searchRepo.Search(ctx, "shared", report.SearchOptions{Limit: 1})
	require.NoError(t, err)
	require.Len(t, results, 1)
}
