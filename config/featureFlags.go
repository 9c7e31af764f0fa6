package config

import (
	"os"
	"strings"
	"time"
)

const (
	UnknownProductSkip = "skip"
	UnknownProductFail = "fail"
)

// UnknownProductPolicy decides what a submission does with a line whose product
// no longer exists: "skip" drops the line, "fail" rejects the whole submission.
//
// Set via env:
// - UNKNOWN_PRODUCT_POLICY=skip|fail (default skip)
func UnknownProductPolicy() string {
	v := strings.ToLower(strings.TrimSpace(os.Getenv("UNKNOWN_PRODUCT_POLICY")))
	if v == UnknownProductFail {
		return UnknownProductFail
	}
	return UnknownProductSkip
}

// ReportCacheEnabled turns on the Redis cache for period matrices.
//
// Set via env:
// - ENABLE_REPORT_CACHE=true
// - REPORT_CACHE_TTL_SECONDS=120
func ReportCacheEnabled() bool {
	return boolFromEnv("ENABLE_REPORT_CACHE")
}

func ReportCacheTTL() time.Duration {
	return time.Duration(intFromEnv("REPORT_CACHE_TTL_SECONDS", 120)) * time.Second
}

// ReportLocation is the wall clock used to pick the current half-month period
// and to print timestamps in exports.
//
// Set via env:
// - REPORT_TIMEZONE (default Asia/Tokyo)
func ReportLocation() *time.Location {
	name := strings.TrimSpace(os.Getenv("REPORT_TIMEZONE"))
	if name == "" {
		name = "Asia/Tokyo"
	}
	loc, err := time.LoadLocation(name)
	if err != nil {
		return time.FixedZone("JST", 9*60*60)
	}
	return loc
}

// TokenLifespan returns TOKEN_HOUR_LIFESPAN hours (default 12).
func TokenLifespan() time.Duration {
	return time.Duration(intFromEnv("TOKEN_HOUR_LIFESPAN", 12)) * time.Hour
}
