package cmd

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/kozaktomas/staff-attendance/internal/config"
	"github.com/kozaktomas/staff-attendance/internal/database/postgres"
	"github.com/kozaktomas/staff-attendance/internal/encoder"
	"github.com/kozaktomas/staff-attendance/internal/web"
	"github.com/spf13/cobra"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the web server",
	Long: `Start the Staff Attendance web server.
The server hosts the kiosk page that marks attendance from the camera,
and the authenticated API for enrollment, reports and settings.`,
	RunE: runServe,
}

func init() {
	rootCmd.AddCommand(serveCmd)

	serveCmd.Flags().Int("port", 8080, "Port to listen on")
	serveCmd.Flags().String("host", "0.0.0.0", "Host to bind to")
	serveCmd.Flags().String("session-secret", "", "Secret for signing session cookies (defaults to WEB_SESSION_SECRET)")
}

// resolveServeHostPort resolves port, host and session secret from flags and environment variables.
func resolveServeHostPort(cmd *cobra.Command, cfg *config.Config) (int, string) {
	port := mustGetInt(cmd, "port")
	host := mustGetString(cmd, "host")

	if secret := mustGetString(cmd, "session-secret"); secret != "" {
		cfg.Web.SessionSecret = secret
	}
	if envPort := os.Getenv("WEB_PORT"); envPort != "" {
		fmt.Sscanf(envPort, "%d", &port)
	}
	if envHost := os.Getenv("WEB_HOST"); envHost != "" {
		host = envHost
	}
	return port, host
}

// checkEncoder reports whether the embedding server answers; the server still starts without it.
func checkEncoder(ctx context.Context, cfg *config.Config) {
	if cfg.Encoder.Demo {
		fmt.Println("Using demo face encoder (EMBEDDING_DEMO=true)")
		return
	}
	client := encoder.NewClient(cfg.Encoder.URL, 5*time.Second)
	if err := client.Health(ctx); err != nil {
		fmt.Printf("Warning: embedding server at %s is not reachable: %v\n", client.BaseURL(), err)
		return
	}
	fmt.Printf("Embedding server ready at %s\n", client.BaseURL())
}

func runServe(cmd *cobra.Command, args []string) error {
	cfg := config.Load()
	ctx := context.Background()

	fmt.Printf("Connecting to PostgreSQL database...\n")
	s, err := connectPostgres(cfg)
	if err != nil {
		return err
	}
	defer s.Close()

	service, err := newService(ctx, cfg, s)
	if err != nil {
		return err
	}
	fmt.Printf("Staff gallery loaded with %d enrolled staff\n", service.Matcher().Registry().Len())
	checkEncoder(ctx, cfg)

	if cfg.Web.AdminPassword == "" {
		fmt.Println("Warning: WEB_ADMIN_PASSWORD is not set, admin login is disabled")
	}

	port, host := resolveServeHostPort(cmd, cfg)
	server := web.NewServer(web.Options{
		Config:      cfg,
		Service:     service,
		Identities:  s.staff,
		Attendance:  s.attendance,
		SessionRepo: postgres.NewSessionRepository(s.pool),
		Host:        host,
		Port:        port,
	})
	fmt.Printf("Session persistence enabled (PostgreSQL)\n")

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)

	go func() {
		<-sigChan
		fmt.Println("\nShutting down...")

		shutdownCtx, shutdownCancel := context.WithTimeout(ctx, 30*time.Second)
		defer shutdownCancel()

		if err := server.Shutdown(shutdownCtx); err != nil {
			fmt.Printf("Error during shutdown: %v\n", err)
		}
	}()

	fmt.Printf("Starting Staff Attendance on http://%s:%d\n", host, port)
	fmt.Println("Press Ctrl+C to stop")

	if err := server.Start(); err != nil {
		return fmt.Errorf("starting server: %w", err)
	}
	return nil
}
