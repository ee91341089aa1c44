// internal/service/report/report_service.go
package report

import (
	"context"
	"fmt"
	"time"

	"mattepass-service/internal/domain/auth"
	"mattepass-service/internal/domain/redemption"
	"mattepass-service/internal/domain/report"
	"mattepass-service/internal/pkg/clock"
	xerrors "mattepass-service/internal/pkg/errors"

	"go.uber.org/zap"
)

const chartDays = 7

type RedemptionReader interface {
	ListByVendorBetween(ctx context.Context, vendorID *int64, from, to time.Time) ([]redemption.Redemption, error)
	ListDetailedByVendorBetween(ctx context.Context, vendorID int64, from, to time.Time) ([]redemption.VendorRedemption, error)
}

type VendorDirectory interface {
	FindByID(ctx context.Context, id int64) (*auth.User, error)
	ListByRole(ctx context.Context, role auth.Role) ([]auth.User, error)
}

type ReportService struct {
	redemptions RedemptionReader
	users       VendorDirectory
	clock       clock.Clock
	logger      *zap.Logger
}

func NewReportService(redemptions RedemptionReader, users VendorDirectory, clk clock.Clock, logger *zap.Logger) *ReportService {
	return &ReportService{
		redemptions: redemptions,
		users:       users,
		clock:       clk,
		logger:      logger,
	}
}

// Range resolves inclusive report dates. Empty start defaults to the first of the month,
// empty end to today.
func (s *ReportService) Range(startStr, endStr string) (time.Time, time.Time, error) {
	today := clock.StartOfDay(s.clock.Now())

	start := StartOfMonth(today)
	if startStr != "" {
		d, err := time.Parse(report.DateLayout, startStr)
		if err != nil {
			return time.Time{}, time.Time{}, fmt.Errorf("%w: start_date must be YYYY-MM-DD", xerrors.ErrInvalidInput)
		}
		start = d
	}

	end := today
	if endStr != "" {
		d, err := time.Parse(report.DateLayout, endStr)
		if err != nil {
			return time.Time{}, time.Time{}, fmt.Errorf("%w: end_date must be YYYY-MM-DD", xerrors.ErrInvalidInput)
		}
		end = d
	}

	if end.Before(start) {
		return time.Time{}, time.Time{}, fmt.Errorf("%w: end_date is before start_date", xerrors.ErrInvalidInput)
	}
	return start, end, nil
}

// VendorReport summarises one vendor's redemptions between two inclusive dates.
func (s *ReportService) VendorReport(ctx context.Context, vendorID int64, start, end time.Time) (*report.VendorReport, error) {
	start, end = clock.StartOfDay(start), clock.StartOfDay(end)
	if end.Before(start) {
		return nil, fmt.Errorf("%w: end_date is before start_date", xerrors.ErrInvalidInput)
	}

	vendor, err := s.vendor(ctx, vendorID)
	if err != nil {
		return nil, err
	}

	until := end.AddDate(0, 0, 1)
	records, err := s.redemptions.ListByVendorBetween(ctx, &vendor.ID, start, until)
	if err != nil {
		return nil, fmt.Errorf("failed to load redemptions: %w", err)
	}
	return buildReport(vendor, records, start, end), nil
}

// AllVendorsReport builds a report for every vendor over the same period.
func (s *ReportService) AllVendorsReport(ctx context.Context, start, end time.Time) ([]report.VendorReport, error) {
	start, end = clock.StartOfDay(start), clock.StartOfDay(end)
	if end.Before(start) {
		return nil, fmt.Errorf("%w: end_date is before start_date", xerrors.ErrInvalidInput)
	}

	vendors, err := s.users.ListByRole(ctx, auth.RoleVendor)
	if err != nil {
		return nil, fmt.Errorf("failed to list vendors: %w", err)
	}

	records, err := s.redemptions.ListByVendorBetween(ctx, nil, start, end.AddDate(0, 0, 1))
	if err != nil {
		return nil, fmt.Errorf("failed to load redemptions: %w", err)
	}

	byVendor := map[int64][]redemption.Redemption{}
	for _, r := range records {
		byVendor[r.VendorID] = append(byVendor[r.VendorID], r)
	}

	reports := make([]report.VendorReport, 0, len(vendors))
	for i := range vendors {
		reports = append(reports, *buildReport(&vendors[i], byVendor[vendors[i].ID], start, end))
	}
	return reports, nil
}

// Dashboard returns today, week-to-date and month-to-date totals plus a zero-filled weekly chart.
func (s *ReportService) Dashboard(ctx context.Context, vendorID int64) (*report.Dashboard, error) {
	today := clock.StartOfDay(s.clock.Now())
	tomorrow := today.AddDate(0, 0, 1)
	weekStart := StartOfWeek(today)
	monthStart := StartOfMonth(today)
	chartStart := today.AddDate(0, 0, -(chartDays - 1))

	from := monthStart
	for _, t := range []time.Time{weekStart, chartStart} {
		if t.Before(from) {
			from = t
		}
	}

	records, err := s.redemptions.ListByVendorBetween(ctx, &vendorID, from, tomorrow)
	if err != nil {
		return nil, fmt.Errorf("failed to load redemptions: %w", err)
	}

	totals := func(start time.Time) report.PeriodTotals {
		return report.PeriodTotals{
			Period: report.Period{
				StartDate: start.Format(report.DateLayout),
				EndDate:   today.Format(report.DateLayout),
			},
			Summary: Summarize(records, start, tomorrow),
		}
	}

	return &report.Dashboard{
		Today:      totals(today),
		Week:       totals(weekStart),
		Month:      totals(monthStart),
		DailyChart: Trailing(records, today, chartDays),
	}, nil
}

// DailyRedemptions lists what a vendor handed out on one UTC day, newest first.
func (s *ReportService) DailyRedemptions(ctx context.Context, vendorID int64, dateStr string) (*redemption.DailyRedemptions, error) {
	date := clock.StartOfDay(s.clock.Now())
	if dateStr != "" {
		d, err := time.Parse(report.DateLayout, dateStr)
		if err != nil {
			return nil, fmt.Errorf("%w: date must be YYYY-MM-DD", xerrors.ErrInvalidInput)
		}
		date = d
	}

	list, err := s.redemptions.ListDetailedByVendorBetween(ctx, vendorID, date, date.AddDate(0, 0, 1))
	if err != nil {
		return nil, fmt.Errorf("failed to load redemptions: %w", err)
	}

	out := &redemption.DailyRedemptions{
		Date:             date.Format(report.DateLayout),
		TotalRedemptions: len(list),
		Redemptions:      list,
	}
	for _, r := range list {
		out.TotalItemA += r.ItemAQuantity
		out.TotalItemB += r.ItemBQuantity
	}
	return out, nil
}

func (s *ReportService) vendor(ctx context.Context, vendorID int64) (*auth.User, error) {
	u, err := s.users.FindByID(ctx, vendorID)
	if err != nil {
		if xerrors.Is(err, xerrors.ErrNotFound) {
			return nil, xerrors.ErrNotFound
		}
		return nil, fmt.Errorf("failed to load vendor: %w", err)
	}
	if u.Role != auth.RoleVendor {
		return nil, xerrors.ErrNotFound
	}
	return u, nil
}

func buildReport(vendor *auth.User, records []redemption.Redemption, start, end time.Time) *report.VendorReport {
	until := end.AddDate(0, 0, 1)
	return &report.VendorReport{
		VendorID:   vendor.ID,
		VendorName: vendor.Username,
		Period: report.Period{
			StartDate: start.Format(report.DateLayout),
			EndDate:   end.Format(report.DateLayout),
		},
		Summary:        Summarize(records, start, until),
		DailyBreakdown: Aggregate(records, start, until),
	}
}
