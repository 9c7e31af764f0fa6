package reports_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/mmdatafocus/returns_backend/models"
	"github.com/mmdatafocus/returns_backend/models/reports"
	"github.com/mmdatafocus/returns_backend/testutil"
	"github.com/mmdatafocus/returns_backend/utils"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func store(id int, name string, code string) *models.Account {
	return &models.Account{ID: id, Name: name, Role: models.AccountRoleStore, StoreCode: utils.NilIfEmpty(code)}
}

func fact(id int, storeId int, productId int, qty int) *models.Report {
	return &models.Report{ID: id, StoreId: storeId, ProductId: productId, Period: "2026-01-A", Quantity: qty}
}

func mustPeriod(t *testing.T, s string) models.Period {
	t.Helper()
	p, err := models.ParsePeriod(s)
	require.NoError(t, err)
	return p
}

func TestBuildReturnMatrix(t *testing.T) {
	stores := []*models.Account{
		store(3, "渋谷店", "2019"),
		store(1, "中野店", "2017"),
		store(2, "新宿店", "2018"),
		{ID: 9, Name: "本部", Role: models.AccountRoleHQ},
	}
	products := []*models.Product{{ID: 20, Name: "ダンボールA"}, {ID: 10, Name: "化粧箱B"}}
	facts := []*models.Report{
		fact(1, 1, 20, 3),
		fact(2, 3, 20, 1),
		fact(3, 3, 10, 4),
		fact(4, 7, 20, 5), // store no longer listed
	}

	m, err := reports.BuildReturnMatrix(mustPeriod(t, "2026-01-A"), stores, products, facts)
	require.NoError(t, err)

	assert.Equal(t, "2026-01-A", m.Period)
	assert.Equal(t, "2026年1月 前半", m.PeriodLabel)
	require.Len(t, m.Rows, 3)
	assert.Equal(t, "2017", m.Rows[0].Store.Code)
	assert.Equal(t, "2018", m.Rows[1].Store.Code)
	assert.Equal(t, "2019", m.Rows[2].Store.Code)
	assert.Equal(t, 20, m.Products[0].ID)

	assert.Equal(t, []int{3, 0}, m.Rows[0].Cells)
	assert.Equal(t, "3", m.Rows[0].TotalLabel)
	assert.Equal(t, []int{0, 0}, m.Rows[1].Cells)
	assert.Equal(t, 0, m.Rows[1].Total)
	assert.Equal(t, "-", m.Rows[1].TotalLabel)
	assert.Equal(t, []int{1, 4}, m.Rows[2].Cells)
	assert.Equal(t, 5, m.Rows[2].Total)

	assert.Equal(t, []int{4, 4}, m.ColumnTotals)
	// the grand total covers every fact of the period
	assert.Equal(t, 13, m.GrandTotal)
	assert.Equal(t, 3, m.StoreCount)
	assert.Equal(t, 3, m.ReportingStores)
	assert.InDelta(t, 1.0, m.Coverage, 1e-9)

	assert.Equal(t, 2, m.RowIndex(3))
	assert.Equal(t, -1, m.RowIndex(9))
	assert.Equal(t, 1, m.ColumnIndex(10))
}

func TestBuildReturnMatrixEmpty(t *testing.T) {
	m, err := reports.BuildReturnMatrix(mustPeriod(t, "2026-02-B"), nil, nil, nil)
	require.NoError(t, err)
	assert.Empty(t, m.Rows)
	assert.Zero(t, m.Coverage)
	assert.Zero(t, m.GrandTotal)

	m, err = reports.BuildReturnMatrix(mustPeriod(t, "2026-02-B"),
		[]*models.Account{store(1, "中野店", "2017"), store(2, "新宿店", "2018")},
		[]*models.Product{{ID: 1, Name: "A"}},
		[]*models.Report{fact(1, 2, 1, 2)})
	require.NoError(t, err)
	assert.Equal(t, 1, m.ReportingStores)
	assert.InDelta(t, 0.5, m.Coverage, 1e-9)
}

func TestBuildReturnMatrixUniquenessViolation(t *testing.T) {
	_, err := reports.BuildReturnMatrix(mustPeriod(t, "2026-01-A"),
		[]*models.Account{store(1, "中野店", "2017")},
		[]*models.Product{{ID: 1, Name: "A"}},
		[]*models.Report{fact(1, 1, 1, 2), fact(2, 1, 1, 3)})
	assert.True(t, errors.Is(err, models.ErrUniquenessViolation), "got %v", err)
}

func TestBuildDetailRowsFollowsMatrixOrder(t *testing.T) {
	stores := []*models.Account{store(2, "新宿店", "2018"), store(1, "中野店", "2017")}
	products := []*models.Product{{ID: 5, Name: "A"}, {ID: 4, Name: "B"}}
	facts := []*models.Report{fact(1, 2, 4, 1), fact(2, 1, 4, 2), fact(3, 2, 5, 3), fact(4, 1, 99, 1)}

	m, err := reports.BuildReturnMatrix(mustPeriod(t, "2026-01-A"), stores, products, facts)
	require.NoError(t, err)
	rows := reports.BuildDetailRows(m, facts)
	require.Len(t, rows, 3)
	assert.Equal(t, []int{2, 3, 1}, []int{rows[0].ReportId, rows[1].ReportId, rows[2].ReportId})
	assert.Equal(t, "中野店", rows[0].StoreName)
	assert.Equal(t, "B", rows[0].ProductName)
}

func TestAggregate(t *testing.T) {
	testutil.OpenDB(t)
	ctx := context.Background()
	nakano := testutil.CreateStore(t, "中野店", "2017")
	shinjuku := testutil.CreateStore(t, "新宿店", "2018")
	testutil.CreateStore(t, "渋谷店", "2019")
	products := testutil.CreateProducts(t, "ダンボールA", "化粧箱B")

	_, err := models.SubmitReports(ctx, nakano.ID, "2026-01-A", []*models.LineItem{
		{ProductId: products[0].ID, Quantity: 3, Category: string(models.DefectCategoryShippingDamage)},
	})
	require.NoError(t, err)
	_, err = models.SubmitReports(ctx, shinjuku.ID, "2026-01-A", []*models.LineItem{
		{ProductId: products[0].ID, Quantity: 2},
		{ProductId: products[1].ID, Quantity: 6},
	})
	require.NoError(t, err)
	_, err = models.SubmitReports(ctx, shinjuku.ID, "2026-01-B", []*models.LineItem{
		{ProductId: products[1].ID, Quantity: 100},
	})
	require.NoError(t, err)

	m, facts, err := reports.AggregateWithFacts(ctx, "2026-01-A")
	require.NoError(t, err)
	assert.Len(t, facts, 3)
	assert.Equal(t, 11, m.GrandTotal)
	assert.Equal(t, []int{5, 6}, m.ColumnTotals)
	assert.Equal(t, 2, m.ReportingStores)
	assert.Equal(t, 3, m.StoreCount)
	assert.Equal(t, "-", m.Rows[2].TotalLabel)
	assert.False(t, m.Closed)

	_, err = models.ClosePeriod(ctx, "2026-01-A")
	require.NoError(t, err)
	m, err = reports.Aggregate(ctx, "2026-01-A")
	require.NoError(t, err)
	assert.True(t, m.Closed)

	cell, err := reports.CellDetail(ctx, "2026-01-A", nakano.ID, products[0].ID)
	require.NoError(t, err)
	require.Len(t, cell, 1)
	assert.Equal(t, 3, cell[0].Quantity)

	empty, err := reports.CellDetail(ctx, "2026-01-A", nakano.ID, products[1].ID)
	require.NoError(t, err)
	assert.Empty(t, empty)

	_, err = reports.Aggregate(ctx, "2026-13-A")
	assert.True(t, errors.Is(err, models.ErrInvalidPeriod))
}

func TestExportReturnMatrix(t *testing.T) {
	stores := []*models.Account{store(1, "中野店", "2017"), store(2, "新宿店", "2018")}
	products := []*models.Product{{ID: 1, Name: "ダンボールA"}, {ID: 2, Name: "化粧箱B"}}
	reported := time.Date(2026, 1, 5, 1, 2, 3, 0, time.UTC)
	facts := []*models.Report{fact(1, 1, 1, 3)}
	facts[0].CreatedAt = reported
	category := models.DefectCategoryShippingDamage
	facts[0].DefectCategory = &category
	facts[0].Comment = "角潰れ"

	m, err := reports.BuildReturnMatrix(mustPeriod(t, "2026-01-A"), stores, products, facts)
	require.NoError(t, err)
	jst := time.FixedZone("JST", 9*60*60)
	f, err := reports.ExportReturnMatrix(m, reports.BuildDetailRows(m, facts), jst)
	require.NoError(t, err)
	defer f.Close()

	assert.Equal(t, []string{"集計マトリクス", "詳細リスト"}, f.GetSheetList())

	rows, err := f.GetRows("集計マトリクス")
	require.NoError(t, err)
	// header, two stores, total row
	require.Len(t, rows, 4)
	assert.Equal(t, []string{"店舗名", "店舗コード", "ダンボールA", "化粧箱B", "合計"}, rows[0])
	assert.Equal(t, []string{"中野店", "2017", "3", "0", "3"}, rows[1])
	assert.Equal(t, []string{"新宿店", "2018", "0", "0", "-"}, rows[2])
	assert.Equal(t, []string{"全体総計", "---", "3", "0", "3"}, rows[3])

	details, err := f.GetRows("詳細リスト")
	require.NoError(t, err)
	require.Len(t, details, 2)
	assert.Equal(t, []string{"中野店", "2017", "ダンボールA", "3", "配送時破損", "角潰れ", "2026/1/5 10:02:03"}, details[1])

	width, err := f.GetColWidth("詳細リスト", "F")
	require.NoError(t, err)
	assert.Equal(t, 40.0, width)

	assert.Equal(t, "返品報告_2026-01-A.xlsx", reports.ExportFileName("2026-01-A"))
}
