package mariadb

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/go-sql-driver/mysql"
	"github.com/kozaktomas/staff-attendance/internal/database"
	"github.com/kozaktomas/staff-attendance/internal/facematch"
)

// LegacyTeacher is one row of the legacy teachers table.
type LegacyTeacher struct {
	TeacherID  string
	Name       string
	Department string
	Email      string
	Encodings  []facematch.Encoding
}

// ErrLegacyTableMissing is returned when the DSN points at a database without a teachers table.
var ErrLegacyTableMissing = errors.New("legacy teachers table not found")

// mysqlErrNoSuchTable is ER_NO_SUCH_TABLE.
const mysqlErrNoSuchTable = 1146

// ListTeachers reads every legacy teacher ordered by teacher_id.
// The face_encoding column holds either one JSON list of floats or a JSON list of lists
// when several samples were stored.
func (p *Pool) ListTeachers(ctx context.Context) ([]LegacyTeacher, error) {
	query := `
		SELECT teacher_id, name, COALESCE(department, ''), COALESCE(email, ''), face_encoding
		FROM teachers
		ORDER BY teacher_id
	`

	rows, err := p.db.QueryContext(ctx, query)
	if err != nil {
		var mysqlErr *mysql.MySQLError
		if errors.As(err, &mysqlErr) && mysqlErr.Number == mysqlErrNoSuchTable {
			return nil, ErrLegacyTableMissing
		}
		return nil, fmt.Errorf("query teachers: %w", err)
	}
	defer rows.Close()

	var teachers []LegacyTeacher
	for rows.Next() {
		var t LegacyTeacher
		var raw sql.RawBytes
		if err := rows.Scan(&t.TeacherID, &t.Name, &t.Department, &t.Email, &raw); err != nil {
			return nil, fmt.Errorf("scan row: %w", err)
		}
		encodings, err := DecodeEncodings(raw)
		if err != nil {
			return nil, fmt.Errorf("teacher %s: %w", t.TeacherID, err)
		}
		t.Encodings = encodings
		teachers = append(teachers, t)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate rows: %w", err)
	}

	return teachers, nil
}

// DecodeEncodings parses a legacy face_encoding value: [e1, e2, ...] or [[...], [...]].
// NULL or empty values decode to no encodings.
func DecodeEncodings(raw []byte) ([]facematch.Encoding, error) {
	trimmed := strings.TrimSpace(string(raw))
	if trimmed == "" || trimmed == "null" {
		return nil, nil
	}

	var nested [][]float32
	if err := json.Unmarshal([]byte(trimmed), &nested); err == nil {
		encodings := make([]facematch.Encoding, 0, len(nested))
		for _, e := range nested {
			if len(e) > 0 {
				encodings = append(encodings, facematch.Encoding(e))
			}
		}
		return encodings, nil
	}

	var flat []float32
	if err := json.Unmarshal([]byte(trimmed), &flat); err != nil {
		return nil, fmt.Errorf("decode face encoding: %w", err)
	}
	if len(flat) == 0 {
		return nil, nil
	}
	return []facematch.Encoding{flat}, nil
}

// ToIdentity averages the legacy row's encodings into a staff identity.
// Returns facematch.ErrEmptyEncodingSet when the row carries no encodings.
func (t LegacyTeacher) ToIdentity(model string) (*database.StoredIdentity, error) {
	avg, err := facematch.AverageEncodings(t.Encodings)
	if err != nil {
		return nil, err
	}
	return &database.StoredIdentity{
		ID:          facematch.NormalizeStaffID(t.TeacherID),
		Name:        strings.TrimSpace(t.Name),
		Department:  strings.TrimSpace(t.Department),
		Email:       strings.TrimSpace(t.Email),
		Encoding:    avg,
		SampleCount: len(t.Encodings),
		Model:       model,
	}, nil
}
