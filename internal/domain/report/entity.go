// internal/domain/report/entity.go
package report

// DateLayout is the calendar date format used in report periods and buckets.
const DateLayout = "2006-01-02"

type Summary struct {
	TotalRedemptions int `json:"total_redemptions"`
	TotalItemA       int `json:"total_item_a"`
	TotalItemB       int `json:"total_item_b"`
}

// DayBucket aggregates one UTC calendar day.
type DayBucket struct {
	Date        string `json:"date"`
	ItemA       int    `json:"item_a"`
	ItemB       int    `json:"item_b"`
	Redemptions int    `json:"redemptions"`
}

type Period struct {
	StartDate string `json:"start_date"`
	EndDate   string `json:"end_date"`
}

type VendorReport struct {
	VendorID       int64       `json:"vendor_id"`
	VendorName     string      `json:"vendor_name"`
	Period         Period      `json:"period"`
	Summary        Summary     `json:"summary"`
	DailyBreakdown []DayBucket `json:"daily_breakdown"`
}

type PeriodTotals struct {
	Period
	Summary
}

type Dashboard struct {
	Today      PeriodTotals `json:"today"`
	Week       PeriodTotals `json:"week"`
	Month      PeriodTotals `json:"month"`
	DailyChart []DayBucket  `json:"daily_chart"`
}
