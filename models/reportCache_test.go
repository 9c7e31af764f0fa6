package models_test

import (
	"testing"

	"github.com/mmdatafocus/returns_backend/models"
	"github.com/stretchr/testify/assert"
)

func TestReportCacheKeyWithoutRedis(t *testing.T) {
	t.Setenv("ENABLE_REPORT_CACHE", "true")
	key, ok := models.ReportCacheKey(testPeriod, "ReturnMatrix:"+testPeriod)
	assert.False(t, ok)
	assert.Empty(t, key)

	var dest map[string]any
	models.SetCachedReport(testPeriod, key, map[string]any{"grand_total": 1})
	assert.False(t, models.GetCachedReport(testPeriod, key, &dest))
}
