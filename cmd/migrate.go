package cmd

import (
	"context"
	"fmt"

	"github.com/kozaktomas/staff-attendance/internal/config"
	"github.com/spf13/cobra"
)

var migrateCmd = &cobra.Command{
	Use:   "migrate",
	Short: "Apply pending database migrations",
	RunE:  runMigrate,
}

func init() {
	rootCmd.AddCommand(migrateCmd)
}

func runMigrate(cmd *cobra.Command, args []string) error {
	s, err := connectPostgres(config.Load())
	if err != nil {
		return err
	}
	defer s.Close()

	versions, err := s.pool.MigrationsApplied(context.Background())
	if err != nil {
		return err
	}
	fmt.Printf("Database schema is up to date (%d migrations applied)\n", len(versions))
	for _, v := range versions {
		fmt.Printf("  %s\n", v)
	}
	return nil
}
