package attendance

import (
	"encoding/csv"
	"fmt"
	"io"
	"strconv"
	"time"

	"github.com/kozaktomas/staff-attendance/internal/database"
)

// ExportHeader is the first row written by ExportCSV.
var ExportHeader = []string{"Date", "Staff ID", "Name", "Department", "Time In", "Status", "Confidence"}

// ExportCSV writes attendance records as CSV, one row per record in the given order.
// Mark times are rendered in loc (UTC when nil).
func ExportCSV(w io.Writer, records []database.AttendanceRecord, loc *time.Location) error {
	if loc == nil {
		loc = time.UTC
	}

	cw := csv.NewWriter(w)
	if err := cw.Write(ExportHeader); err != nil {
		return fmt.Errorf("write header: %w", err)
	}
	for _, r := range records {
		row := []string{
			r.Date,
			r.StaffID,
			r.StaffName,
			r.Department,
			r.MarkedAt.In(loc).Format(time.TimeOnly),
			string(r.Status),
			strconv.FormatFloat(r.Confidence, 'f', 4, 64),
		}
		if err := cw.Write(row); err != nil {
			return fmt.Errorf("write record %s: %w", r.ID, err)
		}
	}
	cw.Flush()
	return cw.Error()
}

// ExportFilename returns the download name for a date range export.
func ExportFilename(from, to string) string {
	if from == to {
		return fmt.Sprintf("attendance-%s.csv", from)
	}
	return fmt.Sprintf("attendance-%s_%s.csv", from, to)
}
