package cmd

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"sync/atomic"
	"text/tabwriter"
	"time"

	"github.com/kozaktomas/staff-attendance/internal/attendance"
	"github.com/kozaktomas/staff-attendance/internal/config"
	"github.com/kozaktomas/staff-attendance/internal/constants"
	"github.com/kozaktomas/staff-attendance/internal/database"
	"github.com/kozaktomas/staff-attendance/internal/database/mariadb"
	"github.com/kozaktomas/staff-attendance/internal/facematch"
	"github.com/schollz/progressbar/v3"
	"github.com/spf13/cobra"
)

var staffCmd = &cobra.Command{
	Use:   "staff",
	Short: "Manage enrolled staff",
}

var staffListCmd = &cobra.Command{
	Use:   "list",
	Short: "List enrolled staff",
	RunE:  runStaffList,
}

var staffEnrollCmd = &cobra.Command{
	Use:   "enroll <staff-id> <name> <image>...",
	Short: "Enroll a staff member from one or more face photos",
	Long: `Enroll a staff member from one or more face photos.

Every photo is encoded separately; photos that fail the quality check are
skipped and the remaining encodings are averaged into one reference encoding.
Enrolling an existing ID replaces its encoding.

Examples:
  staff-attendance staff enroll T001 "Anita Sharma" anita1.jpg anita2.jpg
  staff-attendance staff enroll T002 "Ravi Kumar" photos/ravi/*.jpg --department Science`,
	Args: cobra.MinimumNArgs(3),
	RunE: runStaffEnroll,
}

var staffDeleteCmd = &cobra.Command{
	Use:   "delete <staff-id>...",
	Short: "Delete staff members (attendance history is kept)",
	Args:  cobra.MinimumNArgs(1),
	RunE:  runStaffDelete,
}

var staffImportCmd = &cobra.Command{
	Use:   "import",
	Short: "Import staff encodings from the legacy MariaDB database",
	Long: `Import staff and their stored face encodings from the legacy MariaDB
attendance database (LEGACY_DATABASE_URL). Rows carrying several encodings
are averaged. Existing staff with the same ID are replaced.`,
	RunE: runStaffImport,
}

func init() {
	rootCmd.AddCommand(staffCmd)
	staffCmd.AddCommand(staffListCmd, staffEnrollCmd, staffDeleteCmd, staffImportCmd)

	staffListCmd.Flags().Bool("json", false, "Output as JSON")
	staffListCmd.Flags().String("search", "", "Filter by name")

	staffEnrollCmd.Flags().String("department", "", "Department")
	staffEnrollCmd.Flags().String("email", "", "Email address")
	staffEnrollCmd.Flags().Bool("json", false, "Output as JSON")

	staffImportCmd.Flags().Int("concurrency", constants.WorkerPoolSize, "Number of parallel writes")
	staffImportCmd.Flags().String("model", "legacy", "Model name recorded for imported encodings")
	staffImportCmd.Flags().Bool("dry-run", false, "Read and validate the legacy rows without writing")
}

func runStaffList(cmd *cobra.Command, args []string) error {
	ctx := context.Background()
	jsonOutput := mustGetBool(cmd, "json")
	search := mustGetString(cmd, "search")

	s, err := connectPostgres(config.Load())
	if err != nil {
		return err
	}
	defer s.Close()

	var staff []database.StoredIdentity
	if search != "" {
		staff, err = s.staff.SearchByName(ctx, search)
	} else {
		staff, err = s.staff.List(ctx)
	}
	if err != nil {
		return fmt.Errorf("failed to list staff: %w", err)
	}

	if jsonOutput {
		type staffRow struct {
			ID          string `json:"id"`
			Name        string `json:"name"`
			Department  string `json:"department,omitempty"`
			Email       string `json:"email,omitempty"`
			SampleCount int    `json:"sample_count"`
			Model       string `json:"model,omitempty"`
		}
		rows := make([]staffRow, 0, len(staff))
		for _, st := range staff {
			rows = append(rows, staffRow{st.ID, st.Name, st.Department, st.Email, st.SampleCount, st.Model})
		}
		return outputJSON(rows)
	}

	if len(staff) == 0 {
		fmt.Println("No staff enrolled.")
		return nil
	}

	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "ID\tNAME\tDEPARTMENT\tSAMPLES\tUPDATED")
	fmt.Fprintln(w, "--\t----\t----------\t-------\t-------")
	for _, st := range staff {
		fmt.Fprintf(w, "%s\t%s\t%s\t%d\t%s\n", st.ID, st.Name, st.Department, st.SampleCount, st.UpdatedAt.Format(time.DateTime))
	}
	w.Flush()
	fmt.Printf("\nTotal: %d staff\n", len(staff))
	return nil
}

func runStaffEnroll(cmd *cobra.Command, args []string) error {
	ctx := context.Background()
	cfg := config.Load()
	jsonOutput := mustGetBool(cmd, "json")

	paths := args[2:]
	if len(paths) > constants.MaxEnrollmentImages {
		return fmt.Errorf("at most %d images per enrollment", constants.MaxEnrollmentImages)
	}
	images := make([][]byte, 0, len(paths))
	for _, path := range paths {
		data, err := os.ReadFile(path)
		if err != nil {
			return fmt.Errorf("failed to read %s: %w", path, err)
		}
		images = append(images, data)
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

	result, err := service.Enroll(ctx, attendance.EnrollRequest{
		ID:         args[0],
		Name:       args[1],
		Department: mustGetString(cmd, "department"),
		Email:      mustGetString(cmd, "email"),
		Images:     images,
	})
	if jsonOutput && result != nil {
		if outErr := outputJSON(result); outErr != nil {
			return outErr
		}
	} else if result != nil {
		for _, report := range result.Images {
			status := "skipped"
			if report.Used {
				status = "used"
			}
			fmt.Printf("  %-7s %s: %s\n", status, filepath.Base(paths[report.Index]), report.Reason)
		}
	}
	if err != nil {
		return fmt.Errorf("enrollment failed: %w", err)
	}

	if !jsonOutput {
		fmt.Printf("\nEnrolled %s (%s) from %d of %d images\n",
			result.Identity.ID, result.Identity.Name, result.Identity.SampleCount, len(images))
		if d := result.Duplicate; d != nil {
			fmt.Printf("Warning: encoding is close to %s (%s), distance %.3f\n", d.StaffID, d.Name, d.Distance)
		}
	}
	return nil
}

func runStaffDelete(cmd *cobra.Command, args []string) error {
	ctx := context.Background()

	s, err := connectPostgres(config.Load())
	if err != nil {
		return err
	}
	defer s.Close()

	ids := make([]string, 0, len(args))
	for _, id := range args {
		ids = append(ids, facematch.NormalizeStaffID(id))
	}
	deleted, err := s.staff.DeleteMany(ctx, ids)
	if err != nil {
		return fmt.Errorf("failed to delete staff: %w", err)
	}
	fmt.Printf("Deleted %d of %d staff members\n", deleted, len(ids))
	return nil
}

// ImportResult summarizes a legacy import
type ImportResult struct {
	Read     int    `json:"read"`
	Imported int    `json:"imported"`
	Skipped  int    `json:"skipped"`
	Errors   int    `json:"errors"`
	Duration string `json:"duration"`
}

func runStaffImport(cmd *cobra.Command, args []string) error {
	ctx := context.Background()
	cfg := config.Load()
	concurrency := max(1, mustGetInt(cmd, "concurrency"))
	model := mustGetString(cmd, "model")
	dryRun := mustGetBool(cmd, "dry-run")
	startTime := time.Now()

	fmt.Println("Connecting to legacy MariaDB database...")
	legacy, err := mariadb.NewPool(cfg.Legacy.DatabaseURL)
	if err != nil {
		return err
	}
	defer legacy.Close()

	teachers, err := legacy.ListTeachers(ctx)
	if err != nil {
		if errors.Is(err, mariadb.ErrLegacyTableMissing) {
			return fmt.Errorf("%w: check LEGACY_DATABASE_URL", err)
		}
		return err
	}
	if len(teachers) == 0 {
		fmt.Println("No legacy staff found.")
		return nil
	}
	fmt.Printf("Found %d legacy staff\n\n", len(teachers))

	s, err := connectPostgres(cfg)
	if err != nil {
		return err
	}
	defer s.Close()

	bar := progressbar.NewOptions(len(teachers),
		progressbar.OptionSetDescription("Importing staff"),
		progressbar.OptionShowCount(),
		progressbar.OptionShowIts(),
		progressbar.OptionSetItsString("staff"),
		progressbar.OptionShowElapsedTimeOnFinish(),
		progressbar.OptionFullWidth(),
	)

	var imported, skipped, errorCount int64
	sem := make(chan struct{}, concurrency)
	var wg sync.WaitGroup
	var logMu sync.Mutex
	var problems []string

	for _, teacher := range teachers {
		wg.Add(1)
		go func(t mariadb.LegacyTeacher) {
			defer wg.Done()
			defer bar.Add(1)

			sem <- struct{}{}
			defer func() { <-sem }()

			identity, err := t.ToIdentity(model)
			if err != nil {
				atomic.AddInt64(&skipped, 1)
				logMu.Lock()
				problems = append(problems, fmt.Sprintf("%s: %v", t.TeacherID, err))
				logMu.Unlock()
				return
			}
			if dryRun {
				atomic.AddInt64(&imported, 1)
				return
			}
			if err := s.staff.Save(ctx, identity); err != nil {
				atomic.AddInt64(&errorCount, 1)
				logMu.Lock()
				problems = append(problems, fmt.Sprintf("%s: %v", t.TeacherID, err))
				logMu.Unlock()
				return
			}
			atomic.AddInt64(&imported, 1)
		}(teacher)
	}
	wg.Wait()
	fmt.Println()

	result := ImportResult{
		Read:     len(teachers),
		Imported: int(imported),
		Skipped:  int(skipped),
		Errors:   int(errorCount),
		Duration: formatDuration(time.Since(startTime)),
	}

	if dryRun {
		fmt.Println("\nDry run complete, nothing was written.")
	} else {
		fmt.Println("\nImport complete!")
	}
	fmt.Printf("  Read:     %d\n", result.Read)
	fmt.Printf("  Imported: %d\n", result.Imported)
	if result.Skipped > 0 {
		fmt.Printf("  Skipped:  %d\n", result.Skipped)
	}
	if result.Errors > 0 {
		fmt.Printf("  Errors:   %d\n", result.Errors)
	}
	fmt.Printf("  Duration: %s\n", result.Duration)
	for _, p := range problems {
		fmt.Printf("  - %s\n", p)
	}

	if result.Errors > 0 {
		return fmt.Errorf("%d staff failed to import", result.Errors)
	}
	return nil
}
