package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/kozaktomas/staff-attendance/internal/database"
)

// HolidayRepository stores manually declared holidays.
type HolidayRepository struct {
	pool *Pool
}

func NewHolidayRepository(pool *Pool) *HolidayRepository {
	return &HolidayRepository{pool: pool}
}

var _ database.HolidayStore = (*HolidayRepository)(nil)

const holidayColumns = `to_char(date, 'YYYY-MM-DD'), name, created_by, created_at`

// Add stores a holiday. The date primary key allows one holiday per day.
func (r *HolidayRepository) Add(ctx context.Context, h *database.Holiday) error {
	err := r.pool.QueryRow(ctx, `
		INSERT INTO holidays (date, name, created_by)
		VALUES ($1::date, $2, $3)
		ON CONFLICT (date) DO NOTHING
		RETURNING created_at`,
		h.Date, h.Name, h.CreatedBy).Scan(&h.CreatedAt)
	switch {
	case errors.Is(err, sql.ErrNoRows):
		return database.ErrHolidayExists
	case err != nil:
		return fmt.Errorf("add holiday: %w", err)
	}
	return nil
}

func (r *HolidayRepository) Remove(ctx context.Context, date string) error {
	result, err := r.pool.Exec(ctx, "DELETE FROM holidays WHERE date = $1::date", date)
	if err != nil {
		return fmt.Errorf("remove holiday: %w", err)
	}
	n, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("getting rows affected: %w", err)
	}
	if n == 0 {
		return database.ErrNotFound
	}
	return nil
}

// Get returns the holiday on date, or nil.
func (r *HolidayRepository) Get(ctx context.Context, date string) (*database.Holiday, error) {
	var h database.Holiday
	err := r.pool.QueryRow(ctx, `SELECT `+holidayColumns+` FROM holidays WHERE date = $1::date`, date).
		Scan(&h.Date, &h.Name, &h.CreatedBy, &h.CreatedAt)
	switch {
	case errors.Is(err, sql.ErrNoRows):
		return nil, nil
	case err != nil:
		return nil, fmt.Errorf("get holiday: %w", err)
	}
	return &h, nil
}

// ListRange returns holidays with from <= date <= to, earliest first.
func (r *HolidayRepository) ListRange(ctx context.Context, from, to string) ([]database.Holiday, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT `+holidayColumns+` FROM holidays WHERE date BETWEEN $1::date AND $2::date ORDER BY date`, from, to)
	if err != nil {
		return nil, fmt.Errorf("query holidays: %w", err)
	}
	defer rows.Close()

	var holidays []database.Holiday
	for rows.Next() {
		var h database.Holiday
		if err := rows.Scan(&h.Date, &h.Name, &h.CreatedBy, &h.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan holiday: %w", err)
		}
		holidays = append(holidays, h)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate holidays: %w", err)
	}
	return holidays, nil
}
