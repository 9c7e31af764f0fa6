package models

import (
	"context"
	"fmt"

	"github.com/mmdatafocus/returns_backend/utils"
)

// ReportDraft is the store's editable form for a period: one row per catalog
// product, prefilled with what was last submitted.
type ReportDraft struct {
	StoreId     int         `json:"store_id"`
	StoreName   string      `json:"store_name"`
	StoreCode   string      `json:"store_code"`
	Period      string      `json:"period"`
	PeriodLabel string      `json:"period_label"`
	Closed      bool        `json:"closed"`
	Rows        []*DraftRow `json:"rows"`
}

type DraftRow struct {
	ProductId   int    `json:"product_id"`
	ProductName string `json:"product_name"`
	Quantity    int    `json:"quantity"`
	Category    string `json:"category"`
	Comment     string `json:"comment"`
	ImageRef    string `json:"image_ref"`
	ImageUrl    string `json:"image_url,omitempty"`
}

func BuildReportDraft(ctx context.Context, storeId int, period string) (*ReportDraft, error) {
	p, err := ParsePeriod(period)
	if err != nil {
		return nil, err
	}
	store, err := GetAccount(ctx, storeId)
	if err != nil {
		if err == ErrRecordNotFound {
			return nil, fmt.Errorf("%w: %d", ErrUnknownStore, storeId)
		}
		return nil, err
	}
	if !store.IsStore() {
		return nil, fmt.Errorf("%w: %d", ErrUnknownStore, storeId)
	}
	products, err := ListProducts(ctx)
	if err != nil {
		return nil, err
	}
	reports, err := GetStoreReports(ctx, storeId, period)
	if err != nil {
		return nil, err
	}
	closed, err := IsPeriodClosed(ctx, period)
	if err != nil {
		return nil, err
	}

	byProduct := make(map[int]*Report, len(reports))
	for _, r := range reports {
		byProduct[r.ProductId] = r
	}
	draft := &ReportDraft{
		StoreId:     store.ID,
		StoreName:   store.Name,
		StoreCode:   store.StoreCodeValue(),
		Period:      p.String(),
		PeriodLabel: p.Label(),
		Closed:      closed,
		Rows:        make([]*DraftRow, 0, len(products)),
	}
	for _, product := range products {
		row := &DraftRow{ProductId: product.ID, ProductName: product.Name}
		if r, ok := byProduct[product.ID]; ok {
			row.Quantity = r.Quantity
			row.Category = string(utils.DereferencePtr(r.DefectCategory))
			row.Comment = r.Comment
			row.ImageRef = r.ImageRef
			if r.ImageRef != "" {
				row.ImageUrl = utils.BuildObjectAccessURL(r.ImageRef)
			}
		}
		draft.Rows = append(draft.Rows, row)
	}
	return draft, nil
}

// LineItems turns the edited draft back into a submission.
func (d *ReportDraft) LineItems() []*LineItem {
	items := make([]*LineItem, 0, len(d.Rows))
	for _, row := range d.Rows {
		if row == nil {
			continue
		}
		items = append(items, &LineItem{
			ProductId: row.ProductId,
			Quantity:  row.Quantity,
			Category:  row.Category,
			Comment:   row.Comment,
			ImageRef:  row.ImageRef,
		})
	}
	return items
}
