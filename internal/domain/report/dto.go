// internal/domain/report/dto.go
package report

type ReportFilters struct {
	StartDate string `form:"start_date"`
	EndDate   string `form:"end_date"`
	VendorID  *int64 `form:"vendor_id"`
}
