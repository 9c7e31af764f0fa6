package reports_test

import (
	"context"
	"testing"

	"github.com/mmdatafocus/returns_backend/models"
	"github.com/mmdatafocus/returns_backend/models/reports"
	"github.com/mmdatafocus/returns_backend/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const cachedPeriod = "2026-01-A"

func openCachedStore(t *testing.T) {
	t.Helper()
	testutil.StartRedis(t)
	t.Setenv("ENABLE_REPORT_CACHE", "true")
	testutil.OpenDB(t)
}

func TestMatrixCacheFollowsSubmissions(t *testing.T) {
	openCachedStore(t)
	ctx := context.Background()
	s := testutil.CreateStore(t, "中野店", "2017")
	products := testutil.CreateProducts(t, "ダンボールA")

	before, err := reports.Aggregate(ctx, cachedPeriod)
	require.NoError(t, err)
	assert.Equal(t, 0, before.GrandTotal)

	_, err = models.SubmitReports(ctx, s.ID, cachedPeriod, []*models.LineItem{{ProductId: products[0].ID, Quantity: 7}})
	require.NoError(t, err)

	after, err := reports.Aggregate(ctx, cachedPeriod)
	require.NoError(t, err)
	assert.Equal(t, 7, after.GrandTotal)
}

// A reader that took its key before a submission and stored its view after
// the invalidation must not be served to anyone reading after the submission.
func TestMatrixCacheIgnoresViewsReadBeforeSubmission(t *testing.T) {
	openCachedStore(t)
	ctx := context.Background()
	s := testutil.CreateStore(t, "中野店", "2017")
	products := testutil.CreateProducts(t, "ダンボールA")

	staleKey, ok := models.ReportCacheKey(cachedPeriod, "ReturnMatrix:"+cachedPeriod)
	require.True(t, ok)
	stale, err := reports.Aggregate(ctx, cachedPeriod)
	require.NoError(t, err)

	_, err = models.SubmitReports(ctx, s.ID, cachedPeriod, []*models.LineItem{{ProductId: products[0].ID, Quantity: 4}})
	require.NoError(t, err)
	models.SetCachedReport(cachedPeriod, staleKey, stale)

	freshKey, ok := models.ReportCacheKey(cachedPeriod, "ReturnMatrix:"+cachedPeriod)
	require.True(t, ok)
	assert.NotEqual(t, staleKey, freshKey)
	var dest reports.ReturnMatrix
	assert.False(t, models.GetCachedReport(cachedPeriod, freshKey, &dest))

	matrix, err := reports.Aggregate(ctx, cachedPeriod)
	require.NoError(t, err)
	assert.Equal(t, 4, matrix.GrandTotal)

	facts, err := models.GetStoreReports(ctx, s.ID, cachedPeriod)
	require.NoError(t, err)
	require.Len(t, facts, 1)
	assert.Equal(t, 4, facts[0].Quantity)
}

func TestMatrixCacheFollowsCatalogChanges(t *testing.T) {
	openCachedStore(t)
	ctx := context.Background()
	testutil.CreateStore(t, "中野店", "2017")
	products := testutil.CreateProducts(t, "ダンボールA")

	matrix, err := reports.Aggregate(ctx, cachedPeriod)
	require.NoError(t, err)
	require.Len(t, matrix.Products, 1)
	assert.Equal(t, "ダンボールA", matrix.Products[0].Name)

	_, err = models.RenameProduct(ctx, products[0].ID, "ダンボールA(大)")
	require.NoError(t, err)
	testutil.CreateProducts(t, "化粧箱B")

	matrix, err = reports.Aggregate(ctx, cachedPeriod)
	require.NoError(t, err)
	require.Len(t, matrix.Products, 2)
	names := []string{matrix.Products[0].Name, matrix.Products[1].Name}
	assert.Contains(t, names, "ダンボールA(大)")
	assert.Contains(t, names, "化粧箱B")
}
