package config

import (
	_ "embed"
	"os"
	"strconv"
	"time"

	"github.com/kozaktomas/staff-attendance/internal/constants"
	"gopkg.in/yaml.v3"
)

//go:embed defaults.yaml
var defaultsYAML []byte

type Config struct {
	Database DatabaseConfig
	Legacy   LegacyConfig
	Encoder  EncoderConfig
	Web      WebConfig
	Policy   PolicyConfig
}

type DatabaseConfig struct {
	URL             string        // PostgreSQL connection URL
	MaxOpenConns    int           // Maximum open connections (default 25)
	MaxIdleConns    int           // Maximum idle connections (default 5)
	ConnMaxLifetime time.Duration // Maximum connection lifetime (default 1h)
}

type LegacyConfig struct {
	DatabaseURL string // MariaDB DSN of the legacy attendance database (e.g., attendance:secret@tcp(mariadb:3306)/attendance)
}

type EncoderConfig struct {
	URL          string        // defaults to http://localhost:8000
	Timeout      time.Duration // defaults to 30s
	MaxImageSize int           // longest side in pixels before upload, defaults to 1280
	Demo         bool          // use the deterministic demo encoder instead of the server
}

type WebConfig struct {
	AdminUsername  string
	AdminPassword  string
	SessionSecret  string
	AllowedOrigins string // comma-separated, read by middleware.CORS
}

// PolicyConfig holds the matching and attendance policy from defaults.yaml.
type PolicyConfig struct {
	Matching   MatchingPolicy   `yaml:"matching"`
	Attendance AttendancePolicy `yaml:"attendance"`
	Enrollment EnrollmentPolicy `yaml:"enrollment"`
}

type MatchingPolicy struct {
	ConfidenceThreshold float64 `yaml:"confidence_threshold"`
}

type AttendancePolicy struct {
	Timezone         string `yaml:"timezone"`
	Start            string `yaml:"start"` // HH:MM local time
	End              string `yaml:"end"`   // HH:MM local time
	LateAfterMinutes int    `yaml:"late_after_minutes"`
	WeekendsClosed   bool   `yaml:"weekends_closed"`
}

type EnrollmentPolicy struct {
	MaxSamples       int  `yaml:"max_samples"`
	DuplicateWarning bool `yaml:"duplicate_warning"`
}

// Location resolves the attendance timezone, falling back to UTC for unknown names.
func (p AttendancePolicy) Location() *time.Location {
	if p.Timezone == "" {
		return time.UTC
	}
	loc, err := time.LoadLocation(p.Timezone)
	if err != nil {
		return time.UTC
	}
	return loc
}

// envInt reads an environment variable and parses it as a positive integer.
// Returns the default value if the env var is unset, empty, or invalid.
func envInt(key string, defaultVal int) int {
	s := os.Getenv(key)
	if s == "" {
		return defaultVal
	}
	if n, err := strconv.Atoi(s); err == nil && n > 0 {
		return n
	}
	return defaultVal
}

// envFloat reads an environment variable as a float, keeping defaultVal when unset or invalid.
func envFloat(key string, defaultVal float64) float64 {
	s := os.Getenv(key)
	if s == "" {
		return defaultVal
	}
	if f, err := strconv.ParseFloat(s, 64); err == nil {
		return f
	}
	return defaultVal
}

// envDuration reads an environment variable as a time.Duration ("30s", "2m").
func envDuration(key string, defaultVal time.Duration) time.Duration {
	s := os.Getenv(key)
	if s == "" {
		return defaultVal
	}
	if d, err := time.ParseDuration(s); err == nil && d > 0 {
		return d
	}
	return defaultVal
}

// envBool reads an environment variable as a bool ("1", "true", ...).
func envBool(key string, defaultVal bool) bool {
	s := os.Getenv(key)
	if s == "" {
		return defaultVal
	}
	if b, err := strconv.ParseBool(s); err == nil {
		return b
	}
	return defaultVal
}

// envString returns the environment variable or defaultVal when it is unset or empty.
func envString(key, defaultVal string) string {
	if s := os.Getenv(key); s != "" {
		return s
	}
	return defaultVal
}

// loadPolicy parses the embedded defaults and applies environment overrides.
func loadPolicy() PolicyConfig {
	var policy PolicyConfig
	if err := yaml.Unmarshal(defaultsYAML, &policy); err != nil {
		// This is an embedded file so this error should never happen in practice
		panic("failed to unmarshal embedded defaults.yaml: " + err.Error())
	}

	policy.Matching.ConfidenceThreshold = envFloat("CONFIDENCE_THRESHOLD", policy.Matching.ConfidenceThreshold)
	policy.Attendance.Timezone = envString("ATTENDANCE_TIMEZONE", policy.Attendance.Timezone)
	policy.Attendance.Start = envString("ATTENDANCE_START", policy.Attendance.Start)
	policy.Attendance.End = envString("ATTENDANCE_END", policy.Attendance.End)
	policy.Attendance.LateAfterMinutes = envInt("ATTENDANCE_LATE_AFTER_MINUTES", policy.Attendance.LateAfterMinutes)
	policy.Attendance.WeekendsClosed = envBool("ATTENDANCE_WEEKENDS_CLOSED", policy.Attendance.WeekendsClosed)
	policy.Enrollment.MaxSamples = envInt("ENROLLMENT_MAX_SAMPLES", policy.Enrollment.MaxSamples)
	return policy
}

func Load() *Config {
	return &Config{
		Database: DatabaseConfig{
			URL:             os.Getenv("DATABASE_URL"),
			MaxOpenConns:    envInt("DATABASE_MAX_OPEN_CONNS", 25),
			MaxIdleConns:    envInt("DATABASE_MAX_IDLE_CONNS", 5),
			ConnMaxLifetime: envDuration("DATABASE_CONN_MAX_LIFETIME", time.Hour),
		},
		Legacy: LegacyConfig{
			DatabaseURL: os.Getenv("LEGACY_DATABASE_URL"),
		},
		Encoder: EncoderConfig{
			URL:          os.Getenv("EMBEDDING_URL"),
			Timeout:      envDuration("EMBEDDING_TIMEOUT", 30*time.Second),
			MaxImageSize: envInt("EMBEDDING_MAX_IMAGE_SIZE", constants.MaxImageSize),
			Demo:         envBool("EMBEDDING_DEMO", false),
		},
		Web: WebConfig{
			AdminUsername:  envString("WEB_ADMIN_USERNAME", "admin"),
			AdminPassword:  os.Getenv("WEB_ADMIN_PASSWORD"),
			SessionSecret:  os.Getenv("WEB_SESSION_SECRET"),
			AllowedOrigins: os.Getenv("WEB_ALLOWED_ORIGINS"),
		},
		Policy: loadPolicy(),
	}
}
