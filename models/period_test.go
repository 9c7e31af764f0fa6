package models_test

import (
	"errors"
	"testing"
	"time"

	"github.com/mmdatafocus/returns_backend/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParsePeriod(t *testing.T) {
	p, err := models.ParsePeriod("2026-01-A")
	require.NoError(t, err)
	assert.Equal(t, 2026, p.Year)
	assert.Equal(t, time.January, p.Month)
	assert.Equal(t, "2026-01-A", p.String())
	assert.Equal(t, "2026年1月 前半", p.Label())

	for _, bad := range []string{"", "2026-1-A", "2026-13-A", "2026-00-B", "2026-01-C", "2026-01-a", " 2026-01-A"} {
		_, err := models.ParsePeriod(bad)
		assert.True(t, errors.Is(err, models.ErrInvalidPeriod), "expected ErrInvalidPeriod for %q", bad)
	}
}

func TestPeriodAt(t *testing.T) {
	jst := time.FixedZone("JST", 9*60*60)
	cases := []struct {
		at   time.Time
		want string
	}{
		{time.Date(2026, 1, 1, 0, 0, 0, 0, jst), "2026-01-A"},
		{time.Date(2026, 1, 15, 23, 59, 59, 0, jst), "2026-01-A"},
		{time.Date(2026, 1, 16, 0, 0, 0, 0, jst), "2026-01-B"},
		{time.Date(2026, 2, 28, 12, 0, 0, 0, jst), "2026-02-B"},
		// 15th 20:00 UTC is already the 16th in Tokyo
		{time.Date(2026, 3, 15, 20, 0, 0, 0, time.UTC), "2026-03-B"},
	}
	for _, tc := range cases {
		assert.Equal(t, tc.want, models.PeriodAt(tc.at, jst).String(), tc.at.String())
	}
}

func TestPeriodNavigation(t *testing.T) {
	p, err := models.ParsePeriod("2025-12-B")
	require.NoError(t, err)
	assert.Equal(t, "2026-01-A", p.Next().String())
	assert.Equal(t, "2025-12-A", p.Previous().String())

	first, err := models.ParsePeriod("2026-01-A")
	require.NoError(t, err)
	assert.Equal(t, "2025-12-B", first.Previous().String())

	century := models.Period{Year: 2000, Month: time.January, Half: 'A'}.Previous()
	back, err := models.ParsePeriod(century.String())
	require.NoError(t, err)
	assert.Equal(t, "1999-12-B", back.String())
	assert.Equal(t, century, back)

	feb, err := models.ParsePeriod("2024-02-B")
	require.NoError(t, err)
	start, end := feb.Range(time.UTC)
	assert.Equal(t, 16, start.Day())
	assert.Equal(t, 29, end.Day())
}
