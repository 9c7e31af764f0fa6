package reports

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/mmdatafocus/returns_backend/models"
	"github.com/mmdatafocus/returns_backend/utils"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
)

const emptyTotalLabel = "-"

type MatrixStore struct {
	ID   int    `json:"id"`
	Name string `json:"name"`
	Code string `json:"code"`
}

type MatrixProduct struct {
	ID   int    `json:"id"`
	Name string `json:"name"`
}

type MatrixRow struct {
	Store      MatrixStore `json:"store"`
	Cells      []int       `json:"cells"`
	Total      int         `json:"total"`
	TotalLabel string      `json:"total_label"`
}

// ReturnMatrix is the HQ view of a period: stores by products.
type ReturnMatrix struct {
	Period          string          `json:"period"`
	PeriodLabel     string          `json:"period_label"`
	Closed          bool            `json:"closed"`
	Products        []MatrixProduct `json:"products"`
	Rows            []*MatrixRow    `json:"rows"`
	ColumnTotals    []int           `json:"column_totals"`
	GrandTotal      int             `json:"grand_total"`
	ReportingStores int             `json:"reporting_stores"`
	StoreCount      int             `json:"store_count"`
	Coverage        float64         `json:"coverage"`
	GeneratedAt     time.Time       `json:"generated_at"`
}

// RowIndex returns the row position of storeId, or -1.
func (m *ReturnMatrix) RowIndex(storeId int) int {
	for i, row := range m.Rows {
		if row.Store.ID == storeId {
			return i
		}
	}
	return -1
}

// ColumnIndex returns the column position of productId, or -1.
func (m *ReturnMatrix) ColumnIndex(productId int) int {
	for i, p := range m.Products {
		if p.ID == productId {
			return i
		}
	}
	return -1
}

// BuildReturnMatrix projects facts onto stores and products. Stores are sorted
// by code; products keep the order given. Two facts on one cell fail with
// ErrUniquenessViolation.
func BuildReturnMatrix(period models.Period, stores []*models.Account, products []*models.Product, facts []*models.Report) (*ReturnMatrix, error) {
	sorted := make([]*models.Account, 0, len(stores))
	for _, s := range stores {
		if s != nil && s.IsStore() {
			sorted = append(sorted, s)
		}
	}
	sort.SliceStable(sorted, func(i, j int) bool {
		ci, cj := sorted[i].StoreCodeValue(), sorted[j].StoreCodeValue()
		if ci != cj {
			return ci < cj
		}
		return sorted[i].ID < sorted[j].ID
	})

	matrix := &ReturnMatrix{
		Period:       period.String(),
		PeriodLabel:  period.Label(),
		Products:     make([]MatrixProduct, 0, len(products)),
		Rows:         make([]*MatrixRow, 0, len(sorted)),
		ColumnTotals: make([]int, len(products)),
		StoreCount:   len(sorted),
		GeneratedAt:  time.Now().UTC(),
	}
	columns := make(map[int]int, len(products))
	for i, p := range products {
		columns[p.ID] = i
		matrix.Products = append(matrix.Products, MatrixProduct{ID: p.ID, Name: p.Name})
	}
	rows := make(map[int]*MatrixRow, len(sorted))
	for _, s := range sorted {
		row := &MatrixRow{
			Store: MatrixStore{ID: s.ID, Name: s.Name, Code: s.StoreCodeValue()},
			Cells: make([]int, len(products)),
		}
		rows[s.ID] = row
		matrix.Rows = append(matrix.Rows, row)
	}

	type cellKey struct{ store, product int }
	seen := make(map[cellKey]bool, len(facts))
	reporting := make(map[int]bool)
	for _, fact := range facts {
		key := cellKey{fact.StoreId, fact.ProductId}
		if seen[key] {
			return nil, fmt.Errorf("%w: store %d product %d period %s", models.ErrUniquenessViolation, fact.StoreId, fact.ProductId, matrix.Period)
		}
		seen[key] = true
		reporting[fact.StoreId] = true
		matrix.GrandTotal += fact.Quantity

		row, ok := rows[fact.StoreId]
		if !ok {
			continue
		}
		col, ok := columns[fact.ProductId]
		if !ok {
			continue
		}
		row.Cells[col] = fact.Quantity
		row.Total += fact.Quantity
		matrix.ColumnTotals[col] += fact.Quantity
	}

	for _, row := range matrix.Rows {
		row.TotalLabel = totalLabel(row.Total)
	}
	matrix.ReportingStores = len(reporting)
	if matrix.StoreCount > 0 {
		matrix.Coverage = float64(matrix.ReportingStores) / float64(matrix.StoreCount)
	}
	return matrix, nil
}

func totalLabel(total int) string {
	if total == 0 {
		return emptyTotalLabel
	}
	return fmt.Sprint(total)
}

// Aggregate builds the matrix for period from the current catalog and ledger.
func Aggregate(ctx context.Context, period string) (*ReturnMatrix, error) {
	matrix, _, err := aggregate(ctx, period, false)
	return matrix, err
}

// AggregateWithFacts also returns the facts the matrix was built from, as the
// exporter needs both from the same read.
func AggregateWithFacts(ctx context.Context, period string) (*ReturnMatrix, []*models.Report, error) {
	return aggregate(ctx, period, true)
}

func aggregate(ctx context.Context, period string, withFacts bool) (*ReturnMatrix, []*models.Report, error) {
	ctx, span := otel.Tracer("returns_backend/reports").Start(ctx, "Aggregate")
	defer span.End()
	span.SetAttributes(attribute.String("period", period))
	started := time.Now()
	p, err := models.ParsePeriod(period)
	if err != nil {
		return nil, nil, err
	}
	key, cacheable := models.ReportCacheKey(p.String(), matrixCacheKey(p.String()))
	if cacheable && !withFacts {
		var cached ReturnMatrix
		if ok := models.GetCachedReport(p.String(), key, &cached); ok {
			return &cached, nil, nil
		}
	}

	stores, err := models.ListStores(ctx)
	if err != nil {
		return nil, nil, err
	}
	products, err := models.ListProducts(ctx)
	if err != nil {
		return nil, nil, err
	}
	facts, err := models.GetReportsByPeriod(ctx, p.String())
	if err != nil {
		return nil, nil, err
	}
	closed, err := models.IsPeriodClosed(ctx, p.String())
	if err != nil {
		return nil, nil, err
	}
	matrix, err := BuildReturnMatrix(p, stores, products, facts)
	if err != nil {
		return nil, nil, err
	}
	matrix.Closed = closed
	span.SetAttributes(attribute.Int("facts", len(facts)), attribute.Int("stores", matrix.StoreCount))

	models.SetCachedReport(p.String(), key, matrix)
	logSlowReport(ctx, "Aggregate", started, map[string]any{"period": p.String(), "facts": len(facts)})
	return matrix, facts, nil
}

// CellDetail is the drill-down behind one matrix cell. Normally zero or one fact.
func CellDetail(ctx context.Context, period string, storeId int, productId int) ([]*models.Report, error) {
	facts, err := models.GetCellReports(ctx, period, storeId, productId)
	if err != nil {
		return nil, err
	}
	if len(facts) > 1 {
		return facts, fmt.Errorf("%w: store %d product %d period %s", models.ErrUniquenessViolation, storeId, productId, period)
	}
	return facts, nil
}

// DetailRow is one fact with display names, ordered like the matrix.
type DetailRow struct {
	ReportId    int       `json:"report_id"`
	StoreId     int       `json:"store_id"`
	StoreName   string    `json:"store_name"`
	StoreCode   string    `json:"store_code"`
	ProductId   int       `json:"product_id"`
	ProductName string    `json:"product_name"`
	Quantity    int       `json:"quantity"`
	Category    string    `json:"category"`
	Comment     string    `json:"comment"`
	ImageRef    string    `json:"image_ref"`
	ReportedAt  time.Time `json:"reported_at"`
}

// BuildDetailRows orders facts by matrix row then column. Facts outside the
// matrix are dropped.
func BuildDetailRows(matrix *ReturnMatrix, facts []*models.Report) []*DetailRow {
	type positioned struct {
		row, col int
		detail   *DetailRow
	}
	rowIdx := make(map[int]int, len(matrix.Rows))
	for i, row := range matrix.Rows {
		rowIdx[row.Store.ID] = i
	}
	colIdx := make(map[int]int, len(matrix.Products))
	for i, p := range matrix.Products {
		colIdx[p.ID] = i
	}

	items := make([]positioned, 0, len(facts))
	for _, fact := range facts {
		r, ok := rowIdx[fact.StoreId]
		if !ok {
			continue
		}
		c, ok := colIdx[fact.ProductId]
		if !ok {
			continue
		}
		store := matrix.Rows[r].Store
		items = append(items, positioned{row: r, col: c, detail: &DetailRow{
			ReportId:    fact.ID,
			StoreId:     store.ID,
			StoreName:   store.Name,
			StoreCode:   store.Code,
			ProductId:   fact.ProductId,
			ProductName: matrix.Products[c].Name,
			Quantity:    fact.Quantity,
			Category:    string(utils.DereferencePtr(fact.DefectCategory)),
			Comment:     fact.Comment,
			ImageRef:    fact.ImageRef,
			ReportedAt:  fact.CreatedAt,
		}})
	}
	sort.SliceStable(items, func(i, j int) bool {
		if items[i].row != items[j].row {
			return items[i].row < items[j].row
		}
		return items[i].col < items[j].col
	})
	rows := make([]*DetailRow, 0, len(items))
	for _, it := range items {
		rows = append(rows, it.detail)
	}
	return rows
}
