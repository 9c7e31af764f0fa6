package main

import (
	"fmt"
	"net/http"
	"net/url"

	"github.com/gin-gonic/gin"
	"github.com/mmdatafocus/returns_backend/config"
	"github.com/mmdatafocus/returns_backend/middlewares"
	"github.com/mmdatafocus/returns_backend/models"
	"github.com/mmdatafocus/returns_backend/models/reports"
	"github.com/mmdatafocus/returns_backend/utils"
)

func sessionStoreId(c *gin.Context) int {
	accountId, _ := utils.GetAccountIdFromContext(c.Request.Context())
	return accountId
}

func getStoreDraftHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		draft, err := models.BuildReportDraft(c.Request.Context(), sessionStoreId(c), c.Param("period"))
		if err != nil {
			respondError(c, err)
			return
		}
		c.JSON(http.StatusOK, draft)
	}
}

// submitReportsRequest carries either plain line items or the edited draft rows.
type submitReportsRequest struct {
	Items []*models.LineItem `json:"items"`
	Rows  []*models.DraftRow `json:"rows"`
}

func submitStoreReportsHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		var req submitReportsRequest
		if !bindJSON(c, &req) {
			return
		}
		items := req.Items
		if req.Rows != nil {
			draft := models.ReportDraft{Rows: req.Rows}
			items = draft.LineItems()
		}
		result, err := models.SubmitReports(c.Request.Context(), sessionStoreId(c), c.Param("period"), items)
		if err != nil {
			respondError(c, err)
			return
		}
		c.JSON(http.StatusOK, result)
	}
}

func listPeriodsHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		periods, err := models.ListReportedPeriods(c.Request.Context())
		if err != nil {
			respondError(c, err)
			return
		}
		closed, err := models.ListClosedPeriods(c.Request.Context())
		if err != nil {
			respondError(c, err)
			return
		}
		c.JSON(http.StatusOK, gin.H{"reported": periods, "closed": closed})
	}
}

func matrixHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		matrix, err := reports.Aggregate(c.Request.Context(), c.Param("period"))
		if err != nil {
			respondError(c, err)
			return
		}
		c.JSON(http.StatusOK, matrix)
	}
}

func detailsHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		matrix, facts, err := reports.AggregateWithFacts(c.Request.Context(), c.Param("period"))
		if err != nil {
			respondError(c, err)
			return
		}
		type detailWithImage struct {
			*reports.DetailRow
			ImageUrl string `json:"image_url,omitempty"`
		}
		rows := reports.BuildDetailRows(matrix, facts)
		out := make([]detailWithImage, 0, len(rows))
		for _, row := range rows {
			out = append(out, detailWithImage{DetailRow: row, ImageUrl: utils.BuildObjectAccessURL(row.ImageRef)})
		}
		c.JSON(http.StatusOK, out)
	}
}

func cellDetailHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		storeId, ok := intParam(c, "storeId")
		if !ok {
			return
		}
		productId, ok := intParam(c, "productId")
		if !ok {
			return
		}
		ctx := c.Request.Context()
		facts, err := reports.CellDetail(ctx, c.Param("period"), storeId, productId)
		if err != nil {
			respondError(c, err)
			return
		}
		for _, fact := range facts {
			if store, err := middlewares.GetAccount(ctx, fact.StoreId); err == nil {
				fact.Store = store
			}
			if product, err := middlewares.GetProduct(ctx, fact.ProductId); err == nil {
				fact.Product = product
			}
		}
		c.JSON(http.StatusOK, facts)
	}
}

func exportHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		period := c.Param("period")
		matrix, facts, err := reports.AggregateWithFacts(c.Request.Context(), period)
		if err != nil {
			respondError(c, err)
			return
		}
		f, err := reports.ExportReturnMatrix(matrix, reports.BuildDetailRows(matrix, facts), config.ReportLocation())
		if err != nil {
			respondError(c, err)
			return
		}
		defer f.Close()

		filename := reports.ExportFileName(matrix.Period)
		c.Header("Content-Type", reports.ExcelContentType)
		c.Header("Content-Disposition", fmt.Sprintf("attachment; filename=\"returns_%s.xlsx\"; filename*=UTF-8''%s", matrix.Period, url.PathEscape(filename)))
		c.Status(http.StatusOK)
		if err := f.Write(c.Writer); err != nil {
			_ = c.Error(err)
		}
	}
}

func closePeriodHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		lock, err := models.ClosePeriod(c.Request.Context(), c.Param("period"))
		if err != nil {
			respondError(c, err)
			return
		}
		c.JSON(http.StatusOK, lock)
	}
}

func reopenPeriodHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		if err := models.ReopenPeriod(c.Request.Context(), c.Param("period")); err != nil {
			respondError(c, err)
			return
		}
		c.Status(http.StatusNoContent)
	}
}
