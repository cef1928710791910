package postgres

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/kozaktomas/staff-attendance/internal/database"
)

// AttendanceRepository provides PostgreSQL-backed attendance log storage.
type AttendanceRepository struct {
	pool *Pool
}

// NewAttendanceRepository creates a new PostgreSQL attendance repository.
func NewAttendanceRepository(pool *Pool) *AttendanceRepository {
	return &AttendanceRepository{pool: pool}
}

const attendanceColumns = `id, staff_id, staff_name, department, to_char(date, 'YYYY-MM-DD'), marked_at, confidence, status`

// Mark stores a record. The (staff_id, date) unique key enforces one mark per day.
func (r *AttendanceRepository) Mark(ctx context.Context, record *database.AttendanceRecord) error {
	query := `
		INSERT INTO attendance (id, staff_id, staff_name, department, date, marked_at, confidence, status)
		VALUES ($1, $2, $3, $4, $5::date, $6, $7, $8)
		ON CONFLICT (staff_id, date) DO NOTHING
	`

	result, err := r.pool.Exec(ctx, query,
		record.ID,
		record.StaffID,
		record.StaffName,
		record.Department,
		record.Date,
		record.MarkedAt,
		record.Confidence,
		string(record.Status),
	)
	if err != nil {
		return fmt.Errorf("mark attendance: %w", err)
	}
	n, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("getting rows affected: %w", err)
	}
	if n == 0 {
		return database.ErrAlreadyMarked
	}
	return nil
}

// ListByDate returns the records of one day ordered by mark time.
func (r *AttendanceRepository) ListByDate(ctx context.Context, date string) ([]database.AttendanceRecord, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT `+attendanceColumns+` FROM attendance WHERE date = $1::date ORDER BY marked_at, staff_id`, date)
	if err != nil {
		return nil, fmt.Errorf("query attendance: %w", err)
	}
	defer rows.Close()

	return scanRecords(rows)
}

// ListByRange returns records with from <= date <= to.
func (r *AttendanceRepository) ListByRange(ctx context.Context, from, to string) ([]database.AttendanceRecord, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT `+attendanceColumns+` FROM attendance
		WHERE date BETWEEN $1::date AND $2::date
		ORDER BY date, marked_at, staff_id
	`, from, to)
	if err != nil {
		return nil, fmt.Errorf("query attendance range: %w", err)
	}
	defer rows.Close()

	return scanRecords(rows)
}

// HasMarked checks whether a staff member has a record for the day.
func (r *AttendanceRepository) HasMarked(ctx context.Context, staffID, date string) (bool, error) {
	var exists bool
	err := r.pool.QueryRow(ctx,
		"SELECT EXISTS(SELECT 1 FROM attendance WHERE staff_id = $1 AND date = $2::date)", staffID, date,
	).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("check attendance exists: %w", err)
	}
	return exists, nil
}

// Dates returns the distinct days with records, newest first.
func (r *AttendanceRepository) Dates(ctx context.Context) ([]string, error) {
	rows, err := r.pool.Query(ctx, "SELECT DISTINCT to_char(date, 'YYYY-MM-DD') AS d FROM attendance ORDER BY d DESC")
	if err != nil {
		return nil, fmt.Errorf("query attendance dates: %w", err)
	}
	defer rows.Close()

	var dates []string
	for rows.Next() {
		var d string
		if err := rows.Scan(&d); err != nil {
			return nil, fmt.Errorf("scan date: %w", err)
		}
		dates = append(dates, d)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate dates: %w", err)
	}
	return dates, nil
}

// Stats summarizes one day against the current staff count.
func (r *AttendanceRepository) Stats(ctx context.Context, date string) (*database.AttendanceStats, error) {
	var enrolled int
	if err := r.pool.QueryRow(ctx, "SELECT COUNT(*) FROM staff").Scan(&enrolled); err != nil {
		return nil, fmt.Errorf("count staff: %w", err)
	}

	records, err := r.ListByDate(ctx, date)
	if err != nil {
		return nil, err
	}
	return database.ComputeStats(date, enrolled, records), nil
}

func scanRecords(rows *sql.Rows) ([]database.AttendanceRecord, error) {
	var records []database.AttendanceRecord
	for rows.Next() {
		var rec database.AttendanceRecord
		var status string
		err := rows.Scan(
			&rec.ID,
			&rec.StaffID,
			&rec.StaffName,
			&rec.Department,
			&rec.Date,
			&rec.MarkedAt,
			&rec.Confidence,
			&status,
		)
		if err != nil {
			return nil, fmt.Errorf("scan attendance: %w", err)
		}
		rec.Status = database.AttendanceStatus(status)
		records = append(records, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate attendance: %w", err)
	}
	return records, nil
}
