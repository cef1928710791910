package cmd

import (
	"context"
	"fmt"
	"os"
	"text/tabwriter"

	"github.com/kozaktomas/staff-attendance/internal/attendance"
	"github.com/kozaktomas/staff-attendance/internal/config"
	"github.com/kozaktomas/staff-attendance/internal/database"
	"github.com/spf13/cobra"
)

var holidaysCmd = &cobra.Command{
	Use:   "holidays",
	Short: "Manage days without attendance",
}

var holidaysListCmd = &cobra.Command{
	Use:   "list",
	Short: "List upcoming holidays",
	RunE:  runHolidaysList,
}

var holidaysAddCmd = &cobra.Command{
	Use:   "add <date> <name>",
	Short: "Declare a holiday",
	Long: `Declare a holiday. Attendance cannot be marked on it.

Examples:
  staff-attendance attendance holidays add 2026-11-08 "Diwali"`,
	Args: cobra.ExactArgs(2),
	RunE: runHolidaysAdd,
}

var holidaysRemoveCmd = &cobra.Command{
	Use:   "remove <date>",
	Short: "Remove a holiday",
	Args:  cobra.ExactArgs(1),
	RunE:  runHolidaysRemove,
}

func init() {
	attendanceCmd.AddCommand(holidaysCmd)
	holidaysCmd.AddCommand(holidaysListCmd, holidaysAddCmd, holidaysRemoveCmd)

	holidaysListCmd.Flags().Int("days", attendance.DefaultHolidayHorizon, "Days ahead of today to include")
	holidaysListCmd.Flags().Bool("json", false, "Output as JSON")
}

// holidayService builds a service that only manages holidays; no gallery is loaded.
func holidayService(cfg *config.Config) (*attendance.Service, *stores, error) {
	window, err := attendanceWindow(cfg)
	if err != nil {
		return nil, nil, err
	}
	s, err := connectPostgres(cfg)
	if err != nil {
		return nil, nil, err
	}
	service := attendance.NewService(attendance.Options{Holidays: s.holidays, Window: window})
	return service, s, nil
}

func runHolidaysList(cmd *cobra.Command, args []string) error {
	service, s, err := holidayService(config.Load())
	if err != nil {
		return err
	}
	defer s.Close()

	days := mustGetInt(cmd, "days")
	holidays, err := service.UpcomingHolidays(context.Background(), days)
	if err != nil {
		return fmt.Errorf("failed to list holidays: %w", err)
	}

	if mustGetBool(cmd, "json") {
		if holidays == nil {
			holidays = []database.Holiday{}
		}
		return outputJSON(holidays)
	}
	if len(holidays) == 0 {
		fmt.Printf("No holidays in the next %d days.\n", days)
		return nil
	}
	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "DATE\tNAME\tADDED BY")
	for _, h := range holidays {
		fmt.Fprintf(w, "%s\t%s\t%s\n", h.Date, h.Name, h.CreatedBy)
	}
	return w.Flush()
}

func runHolidaysAdd(cmd *cobra.Command, args []string) error {
	service, s, err := holidayService(config.Load())
	if err != nil {
		return err
	}
	defer s.Close()

	holiday, err := service.AddHoliday(context.Background(), args[0], args[1], "cli")
	if err != nil {
		return err
	}
	fmt.Printf("Holiday added: %s (%s)\n", holiday.Date, holiday.Name)
	return nil
}

func runHolidaysRemove(cmd *cobra.Command, args []string) error {
	service, s, err := holidayService(config.Load())
	if err != nil {
		return err
	}
	defer s.Close()

	if err := service.RemoveHoliday(context.Background(), args[0]); err != nil {
		return err
	}
	fmt.Printf("Holiday removed: %s\n", args[0])
	return nil
}
