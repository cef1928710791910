package cmd

import (
	"fmt"
	"os"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
)

var rootCmd = &cobra.Command{
	Use:   "staff-attendance",
	Short: "Face recognition attendance tracker for school staff",
	Long: `Staff Attendance marks school staff present by matching a face photo
against the enrolled staff gallery. Enrollment, matching and attendance
reports are available from the command line and through the web server.`,
}

func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func init() {
	cobra.OnInitialize(initConfig)
}

func initConfig() {
	// .env file is optional, don't fail if not found
	_ = godotenv.Load()
}
