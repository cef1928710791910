//go:build integration

package postgres

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/kozaktomas/staff-attendance/internal/config"
	"github.com/kozaktomas/staff-attendance/internal/database"
	"github.com/kozaktomas/staff-attendance/internal/web/middleware"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/wait"
)

func setupTestContainer(t *testing.T) (*Pool, func()) {
	ctx := context.Background()

	req := testcontainers.ContainerRequest{
		Image:        "pgvector/pgvector:pg16",
		ExposedPorts: []string{"5432/tcp"},
		Env: map[string]string{
			"POSTGRES_USER":     "test",
			"POSTGRES_PASSWORD": "test",
			"POSTGRES_DB":       "testdb",
		},
		WaitingFor: wait.ForLog("database system is ready to accept connections").
			WithOccurrence(2).
			WithStartupTimeout(60 * time.Second),
	}

	container, err := testcontainers.GenericContainer(ctx, testcontainers.GenericContainerRequest{
		ContainerRequest: req,
		Started:          true,
	})
	if err != nil {
		t.Skipf("Docker not available or container failed to start, skipping integration test: %v", err)
		return nil, func() {}
	}

	host, err := container.Host(ctx)
	if err != nil {
		t.Fatalf("Failed to get container host: %v", err)
	}

	port, err := container.MappedPort(ctx, "5432")
	if err != nil {
		t.Fatalf("Failed to get container port: %v", err)
	}

	cfg := &config.DatabaseConfig{
		URL:          fmt.Sprintf("postgres://test:test@%s:%s/testdb?sslmode=disable", host, port.Port()),
		MaxOpenConns: 5,
		MaxIdleConns: 2,
	}

	pool, err := NewPool(cfg)
	if err != nil {
		container.Terminate(ctx)
		t.Fatalf("Failed to create pool: %v", err)
	}

	if _, err := pool.Migrate(ctx); err != nil {
		pool.Close()
		container.Terminate(ctx)
		t.Fatalf("Failed to run migrations: %v", err)
	}

	cleanup := func() {
		pool.Close()
		container.Terminate(ctx)
	}

	return pool, cleanup
}

func testEncoding(seed float32) []float32 {
	e := make([]float32, 128)
	for i := range e {
		e[i] = seed + float32(i)/1000
	}
	return e
}

func TestStaffRepository(t *testing.T) {
	pool, cleanup := setupTestContainer(t)
	if pool == nil {
		return
	}
	defer cleanup()

	ctx := context.Background()
	repo := NewStaffRepository(pool)

	t.Run("SaveAndGet", func(t *testing.T) {
		identity := &database.StoredIdentity{
			ID:          "T001",
			Name:        "Anita Šarmá",
			Department:  "Mathematics",
			Email:       "anita@school.test",
			Encoding:    testEncoding(0.1),
			SampleCount: 3,
			Model:       "dlib",
		}
		if err := repo.Save(ctx, identity); err != nil {
			t.Fatalf("Failed to save staff: %v", err)
		}
		if identity.CreatedAt.IsZero() {
			t.Error("CreatedAt not filled by Save")
		}

		got, err := repo.Get(ctx, "T001")
		if err != nil {
			t.Fatalf("Failed to get staff: %v", err)
		}
		if got == nil {
			t.Fatal("Expected staff, got nil")
		}
		if got.Name != "Anita Šarmá" || got.SampleCount != 3 {
			t.Errorf("Unexpected staff: %+v", got)
		}
		if len(got.Encoding) != 128 {
			t.Errorf("Expected 128 dimensions, got %d", len(got.Encoding))
		}

		missing, err := repo.Get(ctx, "nope")
		if err != nil || missing != nil {
			t.Errorf("Expected nil, nil for missing staff, got %v, %v", missing, err)
		}
	})

	t.Run("Upsert", func(t *testing.T) {
		if err := repo.Save(ctx, &database.StoredIdentity{
			ID: "T001", Name: "Anita Sharma", Encoding: testEncoding(0.2), SampleCount: 5,
		}); err != nil {
			t.Fatalf("Failed to upsert staff: %v", err)
		}
		count, _ := repo.Count(ctx)
		if count != 1 {
			t.Errorf("Expected 1 staff after upsert, got %d", count)
		}
		got, _ := repo.Get(ctx, "T001")
		if got.SampleCount != 5 {
			t.Errorf("Expected SampleCount 5, got %d", got.SampleCount)
		}
	})

	t.Run("SearchByName", func(t *testing.T) {
		repo.Save(ctx, &database.StoredIdentity{ID: "T002", Name: "Jiří Novák", Encoding: testEncoding(0.3)})

		results, err := repo.SearchByName(ctx, "novak")
		if err != nil {
			t.Fatalf("Failed to search: %v", err)
		}
		if len(results) != 1 || results[0].ID != "T002" {
			t.Errorf("Expected [T002], got %+v", results)
		}
	})

	t.Run("ListAndGetMany", func(t *testing.T) {
		all, err := repo.List(ctx)
		if err != nil {
			t.Fatalf("Failed to list: %v", err)
		}
		if len(all) != 2 || all[0].ID != "T001" || all[1].ID != "T002" {
			t.Errorf("Expected [T001 T002] in order, got %d rows", len(all))
		}

		some, err := repo.GetMany(ctx, []string{"T002", "T404"})
		if err != nil {
			t.Fatalf("Failed to get many: %v", err)
		}
		if len(some) != 1 || some[0].ID != "T002" {
			t.Errorf("Expected [T002], got %+v", some)
		}
	})

	t.Run("Delete", func(t *testing.T) {
		if err := repo.Delete(ctx, "T002"); err != nil {
			t.Fatalf("Failed to delete: %v", err)
		}
		if err := repo.Delete(ctx, "T002"); !errors.Is(err, database.ErrNotFound) {
			t.Errorf("Expected ErrNotFound, got %v", err)
		}
		n, err := repo.DeleteMany(ctx, []string{"T001", "T404"})
		if err != nil || n != 1 {
			t.Errorf("DeleteMany = %d, %v; want 1, nil", n, err)
		}
	})
}

func TestAttendanceRepository(t *testing.T) {
	pool, cleanup := setupTestContainer(t)
	if pool == nil {
		return
	}
	defer cleanup()

	ctx := context.Background()
	staff := NewStaffRepository(pool)
	repo := NewAttendanceRepository(pool)

	identity := &database.StoredIdentity{ID: "T001", Name: "Anita Sharma", Department: "Maths", Encoding: testEncoding(0.1)}
	if err := staff.Save(ctx, identity); err != nil {
		t.Fatalf("Failed to save staff: %v", err)
	}
	staff.Save(ctx, &database.StoredIdentity{ID: "T002", Name: "Ravi Kumar", Encoding: testEncoding(0.5)})

	loc := time.FixedZone("IST", 5*3600+1800)
	markedAt := time.Date(2026, 3, 2, 9, 5, 0, 0, loc)

	t.Run("MarkOncePerDay", func(t *testing.T) {
		record := database.NewAttendanceRecord(identity, markedAt, 0.82, database.StatusPresent)
		if err := repo.Mark(ctx, record); err != nil {
			t.Fatalf("Failed to mark: %v", err)
		}

		again := database.NewAttendanceRecord(identity, markedAt.Add(time.Hour), 0.9, database.StatusLate)
		if err := repo.Mark(ctx, again); !errors.Is(err, database.ErrAlreadyMarked) {
			t.Errorf("Expected ErrAlreadyMarked, got %v", err)
		}

		has, err := repo.HasMarked(ctx, "T001", "2026-03-02")
		if err != nil || !has {
			t.Errorf("HasMarked = %v, %v; want true, nil", has, err)
		}
	})

	t.Run("ListAndStats", func(t *testing.T) {
		next := database.NewAttendanceRecord(identity, markedAt.AddDate(0, 0, 1), 0.7, database.StatusLate)
		if err := repo.Mark(ctx, next); err != nil {
			t.Fatalf("Failed to mark: %v", err)
		}

		day, err := repo.ListByDate(ctx, "2026-03-02")
		if err != nil {
			t.Fatalf("Failed to list by date: %v", err)
		}
		if len(day) != 1 || day[0].StaffName != "Anita Sharma" || day[0].Date != "2026-03-02" {
			t.Errorf("Unexpected records: %+v", day)
		}

		rangeRecords, err := repo.ListByRange(ctx, "2026-03-01", "2026-03-31")
		if err != nil {
			t.Fatalf("Failed to list range: %v", err)
		}
		if len(rangeRecords) != 2 {
			t.Errorf("Expected 2 records in range, got %d", len(rangeRecords))
		}

		dates, err := repo.Dates(ctx)
		if err != nil {
			t.Fatalf("Failed to list dates: %v", err)
		}
		if len(dates) != 2 || dates[0] != "2026-03-03" {
			t.Errorf("Expected newest-first dates, got %v", dates)
		}

		stats, err := repo.Stats(ctx, "2026-03-03")
		if err != nil {
			t.Fatalf("Failed to get stats: %v", err)
		}
		if stats.Total != 2 || stats.Late != 1 || stats.Present != 0 || stats.Absent != 1 {
			t.Errorf("Unexpected stats: %+v", stats)
		}
	})
}

func TestSessionRepository(t *testing.T) {
	pool, cleanup := setupTestContainer(t)
	if pool == nil {
		return
	}
	defer cleanup()

	ctx := context.Background()
	repo := NewSessionRepository(pool)
	now := time.Now()

	live := &middleware.Session{ID: "live", Username: "admin", CreatedAt: now, ExpiresAt: now.Add(time.Hour)}
	stale := &middleware.Session{ID: "stale", Username: "admin", CreatedAt: now.Add(-2 * time.Hour), ExpiresAt: now.Add(-time.Hour)}
	if err := repo.Save(ctx, live); err != nil {
		t.Fatalf("Failed to save session: %v", err)
	}
	if err := repo.Save(ctx, stale); err != nil {
		t.Fatalf("Failed to save session: %v", err)
	}

	got, err := repo.Get(ctx, "live")
	if err != nil || got == nil || got.Username != "admin" {
		t.Errorf("Get(live) = %+v, %v", got, err)
	}
	expired, err := repo.Get(ctx, "stale")
	if err != nil || expired != nil {
		t.Errorf("Get(stale) = %+v, %v; want nil, nil", expired, err)
	}

	n, err := repo.DeleteExpired(ctx)
	if err != nil || n != 1 {
		t.Errorf("DeleteExpired = %d, %v; want 1, nil", n, err)
	}
}

func TestHolidayRepository(t *testing.T) {
	pool, cleanup := setupTestContainer(t)
	if pool == nil {
		return
	}
	defer cleanup()

	ctx := context.Background()
	repo := NewHolidayRepository(pool)

	diwali := &database.Holiday{Date: "2026-11-08", Name: "Diwali", CreatedBy: "admin"}
	if err := repo.Add(ctx, diwali); err != nil {
		t.Fatalf("Failed to add holiday: %v", err)
	}
	if diwali.CreatedAt.IsZero() {
		t.Error("expected CreatedAt to be set from the database")
	}
	if err := repo.Add(ctx, &database.Holiday{Date: "2026-11-08", Name: "Again"}); !errors.Is(err, database.ErrHolidayExists) {
		t.Errorf("duplicate Add error = %v, want ErrHolidayExists", err)
	}
	if err := repo.Add(ctx, &database.Holiday{Date: "2026-10-20", Name: "Dussehra"}); err != nil {
		t.Fatalf("Failed to add holiday: %v", err)
	}

	got, err := repo.Get(ctx, "2026-11-08")
	if err != nil || got == nil || got.Name != "Diwali" || got.CreatedBy != "admin" {
		t.Errorf("Get = %+v, %v", got, err)
	}
	none, err := repo.Get(ctx, "2026-11-09")
	if err != nil || none != nil {
		t.Errorf("Get(no holiday) = %+v, %v; want nil, nil", none, err)
	}

	list, err := repo.ListRange(ctx, "2026-10-01", "2026-12-31")
	if err != nil {
		t.Fatalf("Failed to list holidays: %v", err)
	}
	if len(list) != 2 || list[0].Date != "2026-10-20" || list[1].Date != "2026-11-08" {
		t.Errorf("ListRange = %+v", list)
	}

	if err := repo.Remove(ctx, "2026-10-20"); err != nil {
		t.Fatalf("Failed to remove holiday: %v", err)
	}
	if err := repo.Remove(ctx, "2026-10-20"); !errors.Is(err, database.ErrNotFound) {
		t.Errorf("second Remove error = %v, want ErrNotFound", err)
	}
}

func TestSettingsRepository(t *testing.T) {
	pool, cleanup := setupTestContainer(t)
	if pool == nil {
		return
	}
	defer cleanup()

	ctx := context.Background()
	repo := NewSettingsRepository(pool)

	var threshold float64
	ok, err := repo.Load(ctx, "confidence_threshold", &threshold)
	if err != nil || ok {
		t.Fatalf("Load(unsaved) = %v, %v; want false, nil", ok, err)
	}

	for _, v := range []float64{0.7, 0.65} {
		if err := repo.Save(ctx, "confidence_threshold", v); err != nil {
			t.Fatalf("Failed to save setting: %v", err)
		}
	}
	ok, err = repo.Load(ctx, "confidence_threshold", &threshold)
	if err != nil || !ok || threshold != 0.65 {
		t.Errorf("Load = %v (%v, %v), want 0.65", threshold, ok, err)
	}

	type window struct {
		Start string `json:"start"`
		End   string `json:"end"`
	}
	if err := repo.Save(ctx, "attendance_window", window{Start: "08:30", End: "09:15"}); err != nil {
		t.Fatalf("Failed to save setting: %v", err)
	}
	var w window
	if ok, err := repo.Load(ctx, "attendance_window", &w); err != nil || !ok || w.End != "09:15" {
		t.Errorf("Load(window) = %+v (%v, %v)", w, ok, err)
	}
}

func TestMigrations(t *testing.T) {
	pool, cleanup := setupTestContainer(t)
	if pool == nil {
		return
	}
	defer cleanup()

	applied, err := pool.MigrationsApplied(context.Background())
	if err != nil {
		t.Fatalf("Failed to get applied migrations: %v", err)
	}

	expectedMigrations := []string{
		"001_create_staff.sql",
		"002_create_attendance.sql",
		"003_create_sessions.sql",
		"004_create_holidays_settings.sql",
	}

	if len(applied) != len(expectedMigrations) {
		t.Errorf("Expected %d migrations, got %d", len(expectedMigrations), len(applied))
	}

	for i, expected := range expectedMigrations {
		if i < len(applied) && applied[i] != expected {
			t.Errorf("Migration %d: expected '%s', got '%s'", i, expected, applied[i])
		}
	}
}

func TestMigrateIsIdempotent(t *testing.T) {
	pool, cleanup := setupTestContainer(t)
	if pool == nil {
		return
	}
	defer cleanup()

	applied, err := pool.Migrate(context.Background())
	if err != nil {
		t.Fatalf("second Migrate failed: %v", err)
	}
	if len(applied) != 0 {
		t.Errorf("second Migrate applied %v, want nothing", applied)
	}
}
