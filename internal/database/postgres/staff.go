package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/kozaktomas/staff-attendance/internal/database"
	"github.com/kozaktomas/staff-attendance/internal/facematch"
	"github.com/lib/pq"
	"github.com/pgvector/pgvector-go"
)

// StaffRepository provides PostgreSQL-backed storage of enrolled staff.
type StaffRepository struct {
	pool *Pool
}

// NewStaffRepository creates a new PostgreSQL staff repository.
func NewStaffRepository(pool *Pool) *StaffRepository {
	return &StaffRepository{pool: pool}
}

const staffColumns = `id, name, department, email, encoding, sample_count, model, created_at, updated_at`

// Get retrieves a staff member by ID, returns nil if not found.
func (r *StaffRepository) Get(ctx context.Context, id string) (*database.StoredIdentity, error) {
	row := r.pool.QueryRow(ctx, `SELECT `+staffColumns+` FROM staff WHERE id = $1`, id)

	identity, err := scanIdentity(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get staff: %w", err)
	}
	return &identity, nil
}

// List returns all staff ordered by ID.
func (r *StaffRepository) List(ctx context.Context) ([]database.StoredIdentity, error) {
	rows, err := r.pool.Query(ctx, `SELECT `+staffColumns+` FROM staff ORDER BY id`)
	if err != nil {
		return nil, fmt.Errorf("query staff: %w", err)
	}
	defer rows.Close()

	return scanIdentities(rows)
}

// GetMany returns the staff with the given IDs, ordered by ID. Unknown IDs are ignored.
func (r *StaffRepository) GetMany(ctx context.Context, ids []string) ([]database.StoredIdentity, error) {
	if len(ids) == 0 {
		return nil, nil
	}
	rows, err := r.pool.Query(ctx, `SELECT `+staffColumns+` FROM staff WHERE id = ANY($1) ORDER BY id`, pq.Array(ids))
	if err != nil {
		return nil, fmt.Errorf("query staff by IDs: %w", err)
	}
	defer rows.Close()

	return scanIdentities(rows)
}

// Count returns the number of enrolled staff.
func (r *StaffRepository) Count(ctx context.Context) (int, error) {
	var count int
	if err := r.pool.QueryRow(ctx, "SELECT COUNT(*) FROM staff").Scan(&count); err != nil {
		return 0, fmt.Errorf("count staff: %w", err)
	}
	return count, nil
}

// SearchByName returns staff whose normalized name contains the normalized query.
func (r *StaffRepository) SearchByName(ctx context.Context, query string) ([]database.StoredIdentity, error) {
	// normalized_name is written by Save with facematch.NormalizePersonName.
	needle := facematch.NormalizePersonName(query)

	rows, err := r.pool.Query(ctx,
		`SELECT `+staffColumns+` FROM staff WHERE strpos(normalized_name, $1) > 0 ORDER BY id`, needle)
	if err != nil {
		return nil, fmt.Errorf("search staff: %w", err)
	}
	defer rows.Close()

	return scanIdentities(rows)
}

// Save inserts or replaces a staff member. CreatedAt and UpdatedAt are filled from the database.
func (r *StaffRepository) Save(ctx context.Context, identity *database.StoredIdentity) error {
	if len(identity.Encoding) == 0 {
		return facematch.ErrEmptyEncoding
	}

	query := `
		INSERT INTO staff (id, name, normalized_name, department, email, encoding, dim, sample_count, model)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		ON CONFLICT (id) DO UPDATE SET
			name = EXCLUDED.name,
			normalized_name = EXCLUDED.normalized_name,
			department = EXCLUDED.department,
			email = EXCLUDED.email,
			encoding = EXCLUDED.encoding,
			dim = EXCLUDED.dim,
			sample_count = EXCLUDED.sample_count,
			model = EXCLUDED.model,
			updated_at = NOW()
		RETURNING created_at, updated_at
	`

	vec := pgvector.NewVector(identity.Encoding)
	err := r.pool.QueryRow(ctx, query,
		identity.ID,
		identity.Name,
		facematch.NormalizePersonName(identity.Name),
		identity.Department,
		identity.Email,
		vec,
		len(identity.Encoding),
		identity.SampleCount,
		identity.Model,
	).Scan(&identity.CreatedAt, &identity.UpdatedAt)
	if err != nil {
		return fmt.Errorf("save staff: %w", err)
	}
	return nil
}

// Delete removes a staff member. Attendance rows are kept.
func (r *StaffRepository) Delete(ctx context.Context, id string) error {
	result, err := r.pool.Exec(ctx, "DELETE FROM staff WHERE id = $1", id)
	if err != nil {
		return fmt.Errorf("delete staff: %w", err)
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

// DeleteMany removes several staff members and returns how many existed.
func (r *StaffRepository) DeleteMany(ctx context.Context, ids []string) (int64, error) {
	if len(ids) == 0 {
		return 0, nil
	}
	result, err := r.pool.Exec(ctx, "DELETE FROM staff WHERE id = ANY($1)", pq.Array(ids))
	if err != nil {
		return 0, fmt.Errorf("delete staff: %w", err)
	}
	n, err := result.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("getting rows affected: %w", err)
	}
	return n, nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanIdentity(row rowScanner) (database.StoredIdentity, error) {
	var identity database.StoredIdentity
	var vec pgvector.Vector
	err := row.Scan(
		&identity.ID,
		&identity.Name,
		&identity.Department,
		&identity.Email,
		&vec,
		&identity.SampleCount,
		&identity.Model,
		&identity.CreatedAt,
		&identity.UpdatedAt,
	)
	if err != nil {
		return identity, err
	}
	identity.Encoding = vec.Slice()
	return identity, nil
}

func scanIdentities(rows *sql.Rows) ([]database.StoredIdentity, error) {
	var identities []database.StoredIdentity
	for rows.Next() {
		identity, err := scanIdentity(rows)
		if err != nil {
			return nil, fmt.Errorf("scan staff: %w", err)
		}
		identities = append(identities, identity)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate staff: %w", err)
	}
	return identities, nil
}
