package models

import (
	"fmt"
	"strconv"

	"github.com/mmdatafocus/returns_backend/config"
)

/*
caches:
	ReportCachePeriods          set of periods with cached views
	ReportCacheKeys:$period     set of cached keys for the period
	ReportCacheGen:$period      bumped on every write to the period
	ReportCacheGen:all          bumped on every catalog change
*/

const (
	reportCachePeriodsKey       = "ReportCachePeriods"
	reportCacheGenerationAllKey = "ReportCacheGen:all"
)

func reportCacheKeysKey(period string) string {
	return "ReportCacheKeys:" + period
}

func reportCacheGenerationKey(period string) string {
	return "ReportCacheGen:" + period
}

func cacheGeneration(key string) (int64, error) {
	val, ok, err := config.GetRedisValue(key)
	if err != nil || !ok {
		return 0, err
	}
	return strconv.ParseInt(val, 10, 64)
}

// ReportCacheKey stamps base with the current cache generations of period and
// of the catalog. Take it before reading the database: a view read before a
// write is then stored under a key no reader after the write asks for.
// The second result is false when caching is off.
func ReportCacheKey(period string, base string) (string, bool) {
	if !config.ReportCacheEnabled() || config.GetRedisDB() == nil {
		return "", false
	}
	all, err := cacheGeneration(reportCacheGenerationAllKey)
	if err != nil {
		config.LogError(config.GetLogger(), "reportCache.go", "ReportCacheKey", "cacheGeneration", period, err)
		return "", false
	}
	gen, err := cacheGeneration(reportCacheGenerationKey(period))
	if err != nil {
		config.LogError(config.GetLogger(), "reportCache.go", "ReportCacheKey", "cacheGeneration", period, err)
		return "", false
	}
	return fmt.Sprintf("%s@%d.%d", base, all, gen), true
}

// catalogCacheKey stamps base with the catalog generation, for caches that
// change only with stores and products. Empty when it cannot be read.
func catalogCacheKey(base string) string {
	if config.GetRedisDB() == nil {
		return ""
	}
	all, err := cacheGeneration(reportCacheGenerationAllKey)
	if err != nil {
		config.LogError(config.GetLogger(), "reportCache.go", "catalogCacheKey", "cacheGeneration", base, err)
		return ""
	}
	return fmt.Sprintf("%s@%d", base, all)
}

// GetCachedReport reads a cached view of period into dest.
func GetCachedReport(period string, key string, dest any) bool {
	if key == "" || !config.ReportCacheEnabled() {
		return false
	}
	ok, err := config.GetRedisObject(key, dest)
	if err != nil {
		config.LogError(config.GetLogger(), "reportCache.go", "GetCachedReport", "GetRedisObject", key, err)
		return false
	}
	return ok
}

// SetCachedReport stores a view of period under a key from ReportCacheKey and
// tracks it for invalidation.
func SetCachedReport(period string, key string, obj any) {
	if key == "" || !config.ReportCacheEnabled() {
		return
	}
	logger := config.GetLogger()
	if err := config.SetRedisObject(key, obj, config.ReportCacheTTL()); err != nil {
		config.LogError(logger, "reportCache.go", "SetCachedReport", "SetRedisObject", key, err)
		return
	}
	if err := config.AddRedisSet(reportCacheKeysKey(period), key); err != nil {
		config.LogError(logger, "reportCache.go", "SetCachedReport", "AddRedisSet", key, err)
	}
	if err := config.AddRedisSet(reportCachePeriodsKey, period); err != nil {
		config.LogError(logger, "reportCache.go", "SetCachedReport", "AddRedisSet", period, err)
	}
}

// InvalidatePeriodCache retires every cached view of period, store and admin alike.
func InvalidatePeriodCache(period string) {
	logger := config.GetLogger()
	if _, err := config.IncrRedisKey(reportCacheGenerationKey(period)); err != nil {
		config.LogError(logger, "reportCache.go", "InvalidatePeriodCache", "IncrRedisKey", period, err)
	}
	keys, err := config.GetRedisSetMembers(reportCacheKeysKey(period))
	if err != nil {
		config.LogError(logger, "reportCache.go", "InvalidatePeriodCache", "GetRedisSetMembers", period, err)
		return
	}
	keys = append(keys, reportCacheKeysKey(period))
	if err := config.RemoveRedisKey(keys...); err != nil {
		config.LogError(logger, "reportCache.go", "InvalidatePeriodCache", "RemoveRedisKey", period, err)
	}
}

// InvalidateAllReportCaches runs after catalog changes, which affect every period.
func InvalidateAllReportCaches() {
	logger := config.GetLogger()
	if _, err := config.IncrRedisKey(reportCacheGenerationAllKey); err != nil {
		config.LogError(logger, "reportCache.go", "InvalidateAllReportCaches", "IncrRedisKey", nil, err)
	}
	periods, err := config.GetRedisSetMembers(reportCachePeriodsKey)
	if err != nil {
		config.LogError(logger, "reportCache.go", "InvalidateAllReportCaches", "GetRedisSetMembers", nil, err)
		return
	}
	for _, period := range periods {
		InvalidatePeriodCache(period)
	}
	if err := config.RemoveRedisKey(reportCachePeriodsKey); err != nil {
		config.LogError(logger, "reportCache.go", "InvalidateAllReportCaches", "RemoveRedisKey", nil, err)
	}
}
