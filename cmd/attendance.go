package cmd

import (
	"context"
	"fmt"
	"io"
	"os"
	"text/tabwriter"
	"time"

	"github.com/kozaktomas/staff-attendance/internal/attendance"
	"github.com/kozaktomas/staff-attendance/internal/config"
	"github.com/kozaktomas/staff-attendance/internal/constants"
	"github.com/kozaktomas/staff-attendance/internal/database"
	"github.com/kozaktomas/staff-attendance/internal/facematch"
	"github.com/spf13/cobra"
)

var attendanceCmd = &cobra.Command{
	Use:   "attendance",
	Short: "Mark and report staff attendance",
}

var attendanceMarkCmd = &cobra.Command{
	Use:   "mark <image>",
	Short: "Mark attendance for the staff member in a photo",
	Args:  cobra.ExactArgs(1),
	RunE:  runAttendanceMark,
}

var attendanceListCmd = &cobra.Command{
	Use:   "list",
	Short: "List attendance of one day",
	RunE:  runAttendanceList,
}

var attendanceStatsCmd = &cobra.Command{
	Use:   "stats",
	Short: "Show present, late and absent counts for one day",
	RunE:  runAttendanceStats,
}

var attendanceExportCmd = &cobra.Command{
	Use:   "export",
	Short: "Export attendance as CSV",
	Long: `Export attendance between --from and --to (inclusive) as CSV.

Examples:
  # Today's attendance to stdout
  staff-attendance attendance export

  # One month to a file
  staff-attendance attendance export --from 2026-10-01 --to 2026-10-31 --output october.csv`,
	RunE: runAttendanceExport,
}

func init() {
	rootCmd.AddCommand(attendanceCmd)
	attendanceCmd.AddCommand(attendanceMarkCmd, attendanceListCmd, attendanceStatsCmd, attendanceExportCmd)

	attendanceListCmd.Flags().String("date", "", "Date (YYYY-MM-DD, default today)")
	attendanceListCmd.Flags().Bool("json", false, "Output as JSON")
	attendanceStatsCmd.Flags().String("date", "", "Date (YYYY-MM-DD, default today)")
	attendanceStatsCmd.Flags().Bool("json", false, "Output as JSON")
	attendanceExportCmd.Flags().String("from", "", "First date (YYYY-MM-DD, default today)")
	attendanceExportCmd.Flags().String("to", "", "Last date (YYYY-MM-DD, default --from)")
	attendanceExportCmd.Flags().StringP("output", "o", "", "Output file (default stdout)")
}

// attendanceWindow parses the configured window, used for dates and timezones.
func attendanceWindow(cfg *config.Config) (attendance.Window, error) {
	window, err := attendance.ParseWindow(cfg.Policy.Attendance)
	if err != nil {
		return attendance.Window{}, fmt.Errorf("invalid attendance window: %w", err)
	}
	return window, nil
}

// resolveDate validates a YYYY-MM-DD flag value, defaulting to fallback.
func resolveDate(value, fallback string) (string, error) {
	if value == "" {
		return fallback, nil
	}
	if _, err := time.Parse(database.DateLayout, value); err != nil {
		return "", fmt.Errorf("invalid date %q, expected YYYY-MM-DD", value)
	}
	return value, nil
}

func runAttendanceMark(cmd *cobra.Command, args []string) error {
	ctx := context.Background()
	cfg := config.Load()

	data, err := os.ReadFile(args[0])
	if err != nil {
		return fmt.Errorf("failed to read %s: %w", args[0], err)
	}

	s, err := connectPostgres(cfg)
	if err != nil {
		return err
	}
	defer s.Close()

	service, err := newService(ctx, cfg, s)
	if err != nil {
		return err
	}

	result, err := service.Mark(ctx, data)
	if err != nil {
		if result != nil && result.Recognition != nil && result.Recognition.Identity != nil {
			fmt.Printf("Recognized %s (%s)\n", result.Recognition.Identity.ID, result.Recognition.Identity.Name)
		}
		return err
	}

	record := result.Record
	fmt.Printf("Attendance marked for %s (%s)\n", record.StaffName, record.StaffID)
	fmt.Printf("  Date:       %s\n", record.Date)
	fmt.Printf("  Time in:    %s\n", record.MarkedAt.Format(time.TimeOnly))
	fmt.Printf("  Status:     %s\n", record.Status)
	fmt.Printf("  Confidence: %.1f%%\n", facematch.ConfidencePercent(record.Confidence))
	return nil
}

func runAttendanceList(cmd *cobra.Command, args []string) error {
	ctx := context.Background()
	cfg := config.Load()

	window, err := attendanceWindow(cfg)
	if err != nil {
		return err
	}
	date, err := resolveDate(mustGetString(cmd, "date"), window.Today(time.Now()))
	if err != nil {
		return err
	}

	s, err := connectPostgres(cfg)
	if err != nil {
		return err
	}
	defer s.Close()

	records, err := s.attendance.ListByDate(ctx, date)
	if err != nil {
		return fmt.Errorf("failed to list attendance: %w", err)
	}

	if mustGetBool(cmd, "json") {
		if records == nil {
			records = []database.AttendanceRecord{}
		}
		return outputJSON(records)
	}

	if len(records) == 0 {
		fmt.Printf("No attendance recorded on %s.\n", date)
		return nil
	}
	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "TIME IN\tSTAFF ID\tNAME\tDEPARTMENT\tSTATUS\tCONFIDENCE")
	for _, r := range records {
		fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\t%.1f%%\n",
			r.MarkedAt.In(window.Zone()).Format(time.TimeOnly), r.StaffID, r.StaffName, r.Department,
			r.Status, facematch.ConfidencePercent(r.Confidence))
	}
	w.Flush()
	fmt.Printf("\n%d staff marked on %s\n", len(records), date)
	return nil
}

func runAttendanceStats(cmd *cobra.Command, args []string) error {
	ctx := context.Background()
	cfg := config.Load()

	window, err := attendanceWindow(cfg)
	if err != nil {
		return err
	}
	date, err := resolveDate(mustGetString(cmd, "date"), window.Today(time.Now()))
	if err != nil {
		return err
	}

	s, err := connectPostgres(cfg)
	if err != nil {
		return err
	}
	defer s.Close()

	stats, err := s.attendance.Stats(ctx, date)
	if err != nil {
		return fmt.Errorf("failed to compute stats: %w", err)
	}
	if mustGetBool(cmd, "json") {
		return outputJSON(stats)
	}

	fmt.Printf("Attendance on %s\n", stats.Date)
	fmt.Printf("  Enrolled: %d\n", stats.Total)
	fmt.Printf("  Present:  %d\n", stats.Present)
	fmt.Printf("  Late:     %d\n", stats.Late)
	fmt.Printf("  Absent:   %d\n", stats.Absent)
	return nil
}

func runAttendanceExport(cmd *cobra.Command, args []string) error {
	ctx := context.Background()
	cfg := config.Load()

	window, err := attendanceWindow(cfg)
	if err != nil {
		return err
	}
	from, err := resolveDate(mustGetString(cmd, "from"), window.Today(time.Now()))
	if err != nil {
		return err
	}
	to, err := resolveDate(mustGetString(cmd, "to"), from)
	if err != nil {
		return err
	}
	fromT, _ := time.Parse(database.DateLayout, from)
	toT, _ := time.Parse(database.DateLayout, to)
	if toT.Before(fromT) {
		return fmt.Errorf("--from %s is after --to %s", from, to)
	}
	if toT.Sub(fromT) > constants.MaxExportDays*24*time.Hour {
		return fmt.Errorf("range exceeds %d days", constants.MaxExportDays)
	}

	s, err := connectPostgres(cfg)
	if err != nil {
		return err
	}
	defer s.Close()

	records, err := s.attendance.ListByRange(ctx, from, to)
	if err != nil {
		return fmt.Errorf("failed to export attendance: %w", err)
	}

	var out io.Writer = os.Stdout
	outputPath := mustGetString(cmd, "output")
	if outputPath != "" {
		f, err := os.Create(outputPath)
		if err != nil {
			return fmt.Errorf("failed to create %s: %w", outputPath, err)
		}
		defer f.Close()
		out = f
	}

	if err := attendance.ExportCSV(out, records, window.Zone()); err != nil {
		return fmt.Errorf("failed to write CSV: %w", err)
	}
	if outputPath != "" {
		fmt.Printf("Exported %d records to %s\n", len(records), outputPath)
	}
	return nil
}
