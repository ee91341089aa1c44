// internal/service/report/aggregator.go
package report

import (
	"sort"
	"time"

	"mattepass-service/internal/domain/redemption"
	"mattepass-service/internal/domain/report"
	"mattepass-service/internal/pkg/clock"
)

// Aggregate buckets redemptions in [start, end) by UTC calendar day.
// Only days with at least one redemption appear, in ascending order.
func Aggregate(records []redemption.Redemption, start, end time.Time) []report.DayBucket {
	byDay := map[string]*report.DayBucket{}
	for _, r := range records {
		if r.RedeemedAt.Before(start) || !r.RedeemedAt.Before(end) {
			continue
		}
		key := r.RedeemedAt.UTC().Format(report.DateLayout)
		b, ok := byDay[key]
		if !ok {
			b = &report.DayBucket{Date: key}
			byDay[key] = b
		}
		b.ItemA += r.ItemAQuantity
		b.ItemB += r.ItemBQuantity
		b.Redemptions++
	}

	buckets := make([]report.DayBucket, 0, len(byDay))
	for _, b := range byDay {
		buckets = append(buckets, *b)
	}
	sort.Slice(buckets, func(i, j int) bool { return buckets[i].Date < buckets[j].Date })
	return buckets
}

// Summarize totals redemptions in [start, end).
func Summarize(records []redemption.Redemption, start, end time.Time) report.Summary {
	var s report.Summary
	for _, r := range records {
		if r.RedeemedAt.Before(start) || !r.RedeemedAt.Before(end) {
			continue
		}
		s.TotalRedemptions++
		s.TotalItemA += r.ItemAQuantity
		s.TotalItemB += r.ItemBQuantity
	}
	return s
}

// Trailing returns one bucket per day for the days ending on today, zero-filled.
func Trailing(records []redemption.Redemption, today time.Time, days int) []report.DayBucket {
	if days <= 0 {
		return []report.DayBucket{}
	}
	last := clock.StartOfDay(today)
	first := last.AddDate(0, 0, -(days - 1))

	filled := Aggregate(records, first, last.AddDate(0, 0, 1))
	byDate := make(map[string]report.DayBucket, len(filled))
	for _, b := range filled {
		byDate[b.Date] = b
	}

	out := make([]report.DayBucket, 0, days)
	for d := first; !d.After(last); d = d.AddDate(0, 0, 1) {
		key := d.Format(report.DateLayout)
		b, ok := byDate[key]
		if !ok {
			b = report.DayBucket{Date: key}
		}
		out = append(out, b)
	}
	return out
}

// StartOfWeek returns the Monday of t's ISO week at midnight UTC.
func StartOfWeek(t time.Time) time.Time {
	day := clock.StartOfDay(t)
	offset := (int(day.Weekday()) + 6) % 7
	return day.AddDate(0, 0, -offset)
}

// StartOfMonth returns the first day of t's month at midnight UTC.
func StartOfMonth(t time.Time) time.Time {
	y, m, _ := t.UTC().Date()
	return time.Date(y, m, 1, 0, 0, 0, 0, time.UTC)
}
