package models_test

import (
	"context"
	"errors"
	"testing"

	"github.com/mmdatafocus/returns_backend/config"
	"github.com/mmdatafocus/returns_backend/models"
	"github.com/mmdatafocus/returns_backend/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testPeriod = "2026-01-A"

func storeFacts(t *testing.T, storeId int, period string) []*models.Report {
	t.Helper()
	var facts []*models.Report
	require.NoError(t, config.GetDB().Where("store_id = ? AND period = ?", storeId, period).Order("product_id").Find(&facts).Error)
	return facts
}

func TestSubmitReportsNakanoScenario(t *testing.T) {
	testutil.OpenDB(t)
	ctx := context.Background()
	nakano := testutil.CreateStore(t, "中野店", "2017")
	products := testutil.CreateProducts(t, "ダンボールA", "化粧箱B")
	boxA, boxB := products[0], products[1]

	result, err := models.SubmitReports(ctx, nakano.ID, testPeriod, []*models.LineItem{
		{ProductId: boxA.ID, Quantity: 3, Category: string(models.DefectCategoryShippingDamage)},
		{ProductId: boxB.ID, Quantity: 0},
	})
	require.NoError(t, err)
	require.Len(t, result.Reports, 1)
	assert.Equal(t, 3, result.TotalQuantity)

	facts := storeFacts(t, nakano.ID, testPeriod)
	require.Len(t, facts, 1)
	assert.Equal(t, boxA.ID, facts[0].ProductId)
	assert.Equal(t, 3, facts[0].Quantity)
	require.NotNil(t, facts[0].DefectCategory)
	assert.Equal(t, models.DefectCategoryShippingDamage, *facts[0].DefectCategory)
	assert.Equal(t, "", facts[0].Comment)

	_, err = models.SubmitReports(ctx, nakano.ID, testPeriod, []*models.LineItem{
		{ProductId: boxA.ID, Quantity: 5},
	})
	require.NoError(t, err)

	facts = storeFacts(t, nakano.ID, testPeriod)
	require.Len(t, facts, 1)
	assert.Equal(t, 5, facts[0].Quantity)
	assert.Nil(t, facts[0].DefectCategory)
}

func TestSubmitReportsReplacesEverything(t *testing.T) {
	testutil.OpenDB(t)
	ctx := context.Background()
	store := testutil.CreateStore(t, "新宿店", "2018")
	other := testutil.CreateStore(t, "渋谷店", "2019")
	products := testutil.CreateProducts(t, "A", "B", "C")

	_, err := models.SubmitReports(ctx, store.ID, testPeriod, []*models.LineItem{
		{ProductId: products[0].ID, Quantity: 1},
		{ProductId: products[1].ID, Quantity: 2},
	})
	require.NoError(t, err)
	_, err = models.SubmitReports(ctx, other.ID, testPeriod, []*models.LineItem{
		{ProductId: products[0].ID, Quantity: 7},
	})
	require.NoError(t, err)
	_, err = models.SubmitReports(ctx, store.ID, "2026-01-B", []*models.LineItem{
		{ProductId: products[2].ID, Quantity: 4},
	})
	require.NoError(t, err)

	_, err = models.SubmitReports(ctx, store.ID, testPeriod, []*models.LineItem{
		{ProductId: products[2].ID, Quantity: 9, Comment: "箱潰れ"},
	})
	require.NoError(t, err)

	facts := storeFacts(t, store.ID, testPeriod)
	require.Len(t, facts, 1)
	assert.Equal(t, products[2].ID, facts[0].ProductId)
	assert.Equal(t, "箱潰れ", facts[0].Comment)

	// other stores and other periods are untouched
	assert.Len(t, storeFacts(t, other.ID, testPeriod), 1)
	assert.Len(t, storeFacts(t, store.ID, "2026-01-B"), 1)

	// an empty submission clears the period
	result, err := models.SubmitReports(ctx, store.ID, testPeriod, nil)
	require.NoError(t, err)
	assert.Empty(t, result.Reports)
	assert.Empty(t, storeFacts(t, store.ID, testPeriod))
}

func TestSubmitReportsIsIdempotent(t *testing.T) {
	testutil.OpenDB(t)
	ctx := context.Background()
	store := testutil.CreateStore(t, "池袋店", "2020")
	products := testutil.CreateProducts(t, "A", "B")
	items := []*models.LineItem{
		{ProductId: products[0].ID, Quantity: 2, Category: string(models.DefectCategoryOther), Comment: "x"},
		{ProductId: products[1].ID, Quantity: 6},
	}

	_, err := models.SubmitReports(ctx, store.ID, testPeriod, items)
	require.NoError(t, err)
	first := storeFacts(t, store.ID, testPeriod)
	_, err = models.SubmitReports(ctx, store.ID, testPeriod, items)
	require.NoError(t, err)
	second := storeFacts(t, store.ID, testPeriod)

	require.Len(t, second, len(first))
	for i := range first {
		assert.Equal(t, first[i].ProductId, second[i].ProductId)
		assert.Equal(t, first[i].Quantity, second[i].Quantity)
		assert.Equal(t, first[i].Comment, second[i].Comment)
		assert.Equal(t, first[i].DefectCategory, second[i].DefectCategory)
	}
}

func TestSubmitReportsRejectsInvalidInput(t *testing.T) {
	testutil.OpenDB(t)
	ctx := context.Background()
	store := testutil.CreateStore(t, "中野店", "2017")
	admin := testutil.CreateAdmin(t)
	products := testutil.CreateProducts(t, "A")
	_, err := models.SubmitReports(ctx, store.ID, testPeriod, []*models.LineItem{{ProductId: products[0].ID, Quantity: 1}})
	require.NoError(t, err)

	cases := []struct {
		name    string
		storeId int
		period  string
		items   []*models.LineItem
		want    error
	}{
		{"bad period", store.ID, "2026-1-A", nil, models.ErrInvalidPeriod},
		{"unknown store", 9999, testPeriod, nil, models.ErrUnknownStore},
		{"hq is not a store", admin.ID, testPeriod, nil, models.ErrUnknownStore},
		{"negative quantity", store.ID, testPeriod, []*models.LineItem{{ProductId: products[0].ID, Quantity: -1}}, models.ErrInvalidQuantity},
		{"duplicate product", store.ID, testPeriod, []*models.LineItem{{ProductId: products[0].ID, Quantity: 1}, {ProductId: products[0].ID, Quantity: 2}}, models.ErrDuplicateLineItem},
		{"unknown category", store.ID, testPeriod, []*models.LineItem{{ProductId: products[0].ID, Quantity: 1, Category: "破損"}}, models.ErrInvalidCategory},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := models.SubmitReports(ctx, tc.storeId, tc.period, tc.items)
			assert.True(t, errors.Is(err, tc.want), "got %v", err)
		})
	}

	// failed submissions leave the previous state in place
	facts := storeFacts(t, store.ID, testPeriod)
	require.Len(t, facts, 1)
	assert.Equal(t, 1, facts[0].Quantity)
}

func TestSubmitReportsUnknownProductPolicy(t *testing.T) {
	testutil.OpenDB(t)
	ctx := context.Background()
	store := testutil.CreateStore(t, "中野店", "2017")
	products := testutil.CreateProducts(t, "A")
	items := []*models.LineItem{
		{ProductId: products[0].ID, Quantity: 2},
		{ProductId: 4242, Quantity: 1},
	}

	t.Setenv("UNKNOWN_PRODUCT_POLICY", "skip")
	result, err := models.SubmitReports(ctx, store.ID, testPeriod, items)
	require.NoError(t, err)
	assert.Equal(t, []int{4242}, result.SkippedProductIds)
	assert.Len(t, storeFacts(t, store.ID, testPeriod), 1)

	_, err = models.SubmitReports(ctx, store.ID, testPeriod, []*models.LineItem{{ProductId: products[0].ID, Quantity: 8}, {ProductId: 4242, Quantity: 1}},
		models.SubmitOptions{UnknownProductPolicy: config.UnknownProductFail})
	assert.True(t, errors.Is(err, models.ErrUnknownProduct), "got %v", err)

	facts := storeFacts(t, store.ID, testPeriod)
	require.Len(t, facts, 1)
	assert.Equal(t, 2, facts[0].Quantity)
}

func TestSubmitReportsClosedPeriod(t *testing.T) {
	testutil.OpenDB(t)
	store := testutil.CreateStore(t, "中野店", "2017")
	admin := testutil.CreateAdmin(t)
	products := testutil.CreateProducts(t, "A")
	ctx := testutil.SessionContext(admin)

	lock, err := models.ClosePeriod(ctx, testPeriod)
	require.NoError(t, err)
	assert.Equal(t, admin.ID, lock.ClosedBy)

	// closing twice keeps the first lock
	_, err = models.ClosePeriod(ctx, testPeriod)
	require.NoError(t, err)

	_, err = models.SubmitReports(context.Background(), store.ID, testPeriod, []*models.LineItem{{ProductId: products[0].ID, Quantity: 1}})
	assert.True(t, errors.Is(err, models.ErrPeriodClosed), "got %v", err)

	require.NoError(t, models.ReopenPeriod(ctx, testPeriod))
	_, err = models.SubmitReports(context.Background(), store.ID, testPeriod, []*models.LineItem{{ProductId: products[0].ID, Quantity: 1}})
	require.NoError(t, err)

	assert.True(t, errors.Is(models.ReopenPeriod(ctx, testPeriod), models.ErrRecordNotFound))
}

func TestSubmitReportsWritesOutboxEvent(t *testing.T) {
	t.Setenv("PUBSUB_TOPIC", "returns-events")
	t.Setenv("PUBSUB_PROJECT_ID", "test-project")
	testutil.OpenDB(t)
	store := testutil.CreateStore(t, "中野店", "2017")
	products := testutil.CreateProducts(t, "A", "B")

	_, err := models.SubmitReports(context.Background(), store.ID, testPeriod, []*models.LineItem{
		{ProductId: products[0].ID, Quantity: 2},
		{ProductId: products[1].ID, Quantity: 3},
	})
	require.NoError(t, err)

	var events []models.ReportEvent
	require.NoError(t, config.GetDB().Find(&events).Error)
	require.Len(t, events, 1)
	assert.Equal(t, models.ReportEventSubmitted, events[0].EventType)
	assert.Equal(t, "2017", events[0].StoreCode)
	assert.Equal(t, 5, events[0].TotalQuantity)
	assert.Equal(t, 2, events[0].LineCount)
	assert.Equal(t, models.OutboxPublishStatusPending, events[0].PublishStatus)
}
