package models

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/mmdatafocus/returns_backend/config"
	"github.com/mmdatafocus/returns_backend/utils"
	"github.com/sirupsen/logrus"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// LineItem is one row of a store's submission.
type LineItem struct {
	ProductId int    `json:"product_id"`
	Quantity  int    `json:"quantity"`
	Category  string `json:"category"`
	Comment   string `json:"comment"`
	ImageRef  string `json:"image_ref"`
}

type SubmitOptions struct {
	// UnknownProductPolicy overrides UNKNOWN_PRODUCT_POLICY when set.
	UnknownProductPolicy string
}

// SubmissionResult is the store's state for the period after the replace.
type SubmissionResult struct {
	StoreId           int       `json:"store_id"`
	Period            string    `json:"period"`
	Reports           []*Report `json:"reports"`
	SkippedProductIds []int     `json:"skipped_product_ids"`
	TotalQuantity     int       `json:"total_quantity"`
}

const (
	reportLockTTL  = 30 * time.Second
	reportLockWait = 5 * time.Second
)

// afterFactsDeleted runs inside the submission transaction, after the old
// facts are gone and before the new ones are inserted. Tests only.
var afterFactsDeleted func(storeId int, period string)

func reportLockKey(storeId int, period string) string {
	return "lock:report:" + strconv.Itoa(storeId) + ":" + period
}

// normalizeLineItems validates the submission and keeps only positive lines.
func normalizeLineItems(items []*LineItem) ([]*Report, error) {
	seen := make(map[int]bool, len(items))
	var facts []*Report
	for _, item := range items {
		if item == nil {
			continue
		}
		if item.Quantity < 0 {
			return nil, fmt.Errorf("%w: product %d has quantity %d", ErrInvalidQuantity, item.ProductId, item.Quantity)
		}
		if item.Quantity == 0 {
			continue
		}
		if seen[item.ProductId] {
			return nil, fmt.Errorf("%w: product %d", ErrDuplicateLineItem, item.ProductId)
		}
		seen[item.ProductId] = true
		category, err := ParseDefectCategory(item.Category)
		if err != nil {
			return nil, err
		}
		imageRef := strings.TrimSpace(item.ImageRef)
		if imageRef != "" && !utils.IsValidObjectKey(imageRef) {
			return nil, fmt.Errorf("%w: image reference %q", ErrInvalidInput, imageRef)
		}
		facts = append(facts, &Report{
			ProductId:      item.ProductId,
			Quantity:       item.Quantity,
			DefectCategory: category,
			Comment:        item.Comment,
			ImageRef:       imageRef,
		})
	}
	return facts, nil
}

// SubmitReports replaces everything storeId reported for period with items.
// Lines with zero quantity are dropped; an empty submission clears the period.
// The delete and insert commit together or not at all.
func SubmitReports(ctx context.Context, storeId int, period string, items []*LineItem, opts ...SubmitOptions) (*SubmissionResult, error) {
	ctx, span := otel.Tracer("returns_backend/models").Start(ctx, "SubmitReports")
	defer span.End()
	span.SetAttributes(attribute.Int("store_id", storeId), attribute.String("period", period), attribute.Int("line_items", len(items)))

	result, err := submitReports(ctx, storeId, period, items, opts...)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
	}
	return result, err
}

func submitReports(ctx context.Context, storeId int, period string, items []*LineItem, opts ...SubmitOptions) (*SubmissionResult, error) {
	if _, err := ParsePeriod(period); err != nil {
		return nil, err
	}
	policy := config.UnknownProductPolicy()
	if len(opts) > 0 && opts[0].UnknownProductPolicy != "" {
		policy = opts[0].UnknownProductPolicy
	}
	facts, err := normalizeLineItems(items)
	if err != nil {
		return nil, err
	}

	db := config.GetDB()
	if db == nil {
		return nil, ErrStorageUnavailable
	}
	logger := config.GetLogger()

	// the row lock below serializes writers; redis only keeps them off the database
	lock, lockErr := utils.TryKeyLock(ctx, reportLockKey(storeId, period), reportLockTTL, reportLockWait)
	if lockErr != nil {
		logger.WithFields(logrus.Fields{
			"field":    "SubmitReports",
			"store_id": storeId,
			"period":   period,
		}).Warn("redis lock unavailable, relying on row lock: " + lockErr.Error())
	}
	defer lock.Release(ctx)

	result := &SubmissionResult{
		StoreId:           storeId,
		Period:            period,
		SkippedProductIds: []int{},
	}
	err = db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var store Account
		if err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).
			Where("id = ? AND role = ?", storeId, AccountRoleStore).
			Take(&store).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return fmt.Errorf("%w: %d", ErrUnknownStore, storeId)
			}
			return err
		}

		closed, err := isPeriodClosedTx(tx, period)
		if err != nil {
			return err
		}
		if closed {
			return fmt.Errorf("%w: %s", ErrPeriodClosed, period)
		}

		productIds := make([]int, 0, len(facts))
		for _, fact := range facts {
			productIds = append(productIds, fact.ProductId)
		}
		existing, err := utils.ExistingIds[Product](ctx, tx, productIds)
		if err != nil {
			return err
		}
		kept := facts[:0]
		for _, fact := range facts {
			if existing[fact.ProductId] {
				fact.StoreId = storeId
				fact.Period = period
				kept = append(kept, fact)
				continue
			}
			if policy == config.UnknownProductFail {
				return fmt.Errorf("%w: %d", ErrUnknownProduct, fact.ProductId)
			}
			result.SkippedProductIds = append(result.SkippedProductIds, fact.ProductId)
		}

		if err := tx.Where("store_id = ? AND period = ?", storeId, period).Delete(&Report{}).Error; err != nil {
			return err
		}
		if afterFactsDeleted != nil {
			afterFactsDeleted(storeId, period)
		}
		if len(kept) > 0 {
			if err := tx.Create(&kept).Error; err != nil {
				return err
			}
		}

		total := 0
		for _, fact := range kept {
			total += fact.Quantity
		}
		result.Reports = kept
		result.TotalQuantity = total

		if config.PubSubEnabled() {
			cid, _ := utils.GetCorrelationIdFromContext(ctx)
			if err := tx.Create(&ReportEvent{
				EventType:     ReportEventSubmitted,
				StoreId:       storeId,
				StoreCode:     store.StoreCodeValue(),
				Period:        period,
				TotalQuantity: total,
				LineCount:     len(kept),
				PublishStatus: OutboxPublishStatusPending,
				CorrelationId: cid,
			}).Error; err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return nil, storageErr(err)
	}

	InvalidatePeriodCache(period)
	if result.Reports == nil {
		result.Reports = []*Report{}
	}
	sort.Slice(result.Reports, func(i, j int) bool {
		return result.Reports[i].ProductId < result.Reports[j].ProductId
	})

	fields := logrus.Fields{
		"field":          "SubmitReports",
		"store_id":       storeId,
		"period":         period,
		"lines":          len(result.Reports),
		"total_quantity": result.TotalQuantity,
	}
	if len(result.SkippedProductIds) > 0 {
		fields["skipped_product_ids"] = result.SkippedProductIds
		logger.WithFields(fields).Warn("submission skipped unknown products")
	} else {
		logger.WithFields(fields).Info("submission reconciled")
	}
	return result, nil
}
