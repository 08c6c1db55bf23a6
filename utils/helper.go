package utils

import (
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

func NewTrue() *bool {
	b := true
	return &b
}

func NewFalse() *bool {
	b := false
	return &b
}

func DereferencePtr[T any](ptr *T, defaults ...T) T {
	if ptr != nil {
		return *ptr
	}
	var def T
	if len(defaults) > 0 {
		def = defaults[0]
	}
	return def
}

func NilIfEmpty(s string) *string {
	if strings.TrimSpace(s) == "" {
		return nil
	}
	return &s
}

func UniqueSlice[T comparable](slice []T) []T {
	seen := make(map[T]struct{}, len(slice))
	result := make([]T, 0, len(slice))
	for _, v := range slice {
		if _, ok := seen[v]; ok {
			continue
		}
		seen[v] = struct{}{}
		result = append(result, v)
	}
	return result
}

// TruncateToDay drops the time-of-day portion, keeping the location.
func TruncateToDay(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, t.Location())
}

// StartOfDay / EndOfDay bound the calendar date of t:
// [date 00:00:00, date 23:59:59.999999999].
func StartOfDay(t time.Time) time.Time {
	return TruncateToDay(t)
}

func EndOfDay(t time.Time) time.Time {
	return TruncateToDay(t).AddDate(0, 0, 1).Add(-time.Nanosecond)
}

func SameDay(a, b time.Time) bool {
	ay, am, ad := a.Date()
	by, bm, bd := b.Date()
	return ay == by && am == bm && ad == bd
}

func GetLastDaysRange(days int) (time.Time, time.Time) {
	now := time.Now()
	return StartOfDay(now.AddDate(0, 0, -days)), EndOfDay(now)
}

var decimalCleaner = regexp.MustCompile(`[^\d.\-]`)

// ParseDecimal accepts formatted money strings ("20,000", "$ 1,234.50").
func ParseDecimal(value string) (decimal.Decimal, error) {
	cleaned := decimalCleaner.ReplaceAllString(strings.TrimSpace(value), "")
	return decimal.NewFromString(cleaned)
}

// TimeAgo renders a coarse human-readable age for alert listings.
func TimeAgo(t time.Time, now time.Time) string {
	span := now.Sub(t)
	switch {
	case span < time.Hour:
		return strconv.Itoa(int(span.Minutes())) + "m ago"
	case span < 24*time.Hour:
		return strconv.Itoa(int(span.Hours())) + "h ago"
	default:
		return strconv.Itoa(int(span.Hours()/24)) + "d ago"
	}
}
