// Package export renders the SaaS analytics rollup as downloadable files.
package export

import (
	"encoding/csv"
	"fmt"
	"io"

	"github.com/xuri/excelize/v2"

	"github.com/jeremiasmarinho/techlog-clinic-os-sub000/internal/repo"
)

var header = []string{"clinic_id", "name", "slug", "status", "plan_tier", "users", "leads", "appointments", "revenue", "created_at"}

func rowValues(r repo.AnalyticsRow) []string {
	return []string{
		fmt.Sprintf("%d", r.ClinicID),
		r.ClinicName,
		r.Slug,
		r.Status,
		r.PlanTier,
		fmt.Sprintf("%d", r.Users),
		fmt.Sprintf("%d", r.Leads),
		fmt.Sprintf("%d", r.Appointments),
		fmt.Sprintf("%.2f", r.Revenue),
		r.CreatedAt.Format("2006-01-02"),
	}
}

// WriteCSV streams the analytics rows as CSV.
func WriteCSV(w io.Writer, rows []repo.AnalyticsRow) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(header); err != nil {
		return err
	}
	for _, r := range rows {
		if err := cw.Write(rowValues(r)); err != nil {
			return err
		}
	}
	cw.Flush()
	return cw.Error()
}

// WriteXLSX renders the same rows as a single-sheet workbook.
func WriteXLSX(w io.Writer, rows []repo.AnalyticsRow) error {
	f := excelize.NewFile()
	defer f.Close()

	const sheet = "Clinics"
	f.SetSheetName(f.GetSheetName(0), sheet)

	for col, h := range header {
		cell, err := excelize.CoordinatesToCellName(col+1, 1)
		if err != nil {
			return err
		}
		if err := f.SetCellValue(sheet, cell, h); err != nil {
			return err
		}
	}
	for i, r := range rows {
		for col, v := range rowValues(r) {
			cell, err := excelize.CoordinatesToCellName(col+1, i+2)
			if err != nil {
				return err
			}
			if err := f.SetCellValue(sheet, cell, v); err != nil {
				return err
			}
		}
	}
	return f.Write(w)
}
