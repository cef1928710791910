// Package mock provides mock implementations of database interfaces for testing.
package mock

import (
	"context"
	"encoding/json"
	"sort"
	"strings"
	"sync"

	"github.com/kozaktomas/staff-attendance/internal/database"
	"github.com/kozaktomas/staff-attendance/internal/facematch"
)

// MockIdentityStore is a mock implementation of database.IdentityWriter
type MockIdentityStore struct {
	mu         sync.RWMutex
	identities map[string]*database.StoredIdentity

	// Error injection
	GetError    error
	ListError   error
	CountError  error
	SearchError error
	SaveError   error
	DeleteError error
}

// NewMockIdentityStore creates a new mock identity store
func NewMockIdentityStore() *MockIdentityStore {
	return &MockIdentityStore{
		identities: make(map[string]*database.StoredIdentity),
	}
}

// AddIdentity adds a staff member to the mock store
func (m *MockIdentityStore) AddIdentity(identity database.StoredIdentity) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.identities[identity.ID] = &identity
}

// Get retrieves a staff member by ID
func (m *MockIdentityStore) Get(ctx context.Context, id string) (*database.StoredIdentity, error) {
	if m.GetError != nil {
		return nil, m.GetError
	}
	m.mu.RLock()
	defer m.mu.RUnlock()
	identity, ok := m.identities[id]
	if !ok {
		return nil, nil
	}
	cp := *identity
	return &cp, nil
}

// List returns all staff ordered by ID
func (m *MockIdentityStore) List(ctx context.Context) ([]database.StoredIdentity, error) {
	if m.ListError != nil {
		return nil, m.ListError
	}
	m.mu.RLock()
	defer m.mu.RUnlock()

	results := make([]database.StoredIdentity, 0, len(m.identities))
	for _, identity := range m.identities {
		results = append(results, *identity)
	}
	sort.Slice(results, func(i, j int) bool { return results[i].ID < results[j].ID })
	return results, nil
}

// Count returns the number of staff
func (m *MockIdentityStore) Count(ctx context.Context) (int, error) {
	if m.CountError != nil {
		return 0, m.CountError
	}
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.identities), nil
}

// SearchByName returns staff whose normalized name contains the normalized query
func (m *MockIdentityStore) SearchByName(ctx context.Context, query string) ([]database.StoredIdentity, error) {
	if m.SearchError != nil {
		return nil, m.SearchError
	}
	all, err := m.List(ctx)
	if err != nil {
		return nil, err
	}
	needle := facematch.NormalizePersonName(query)
	var results []database.StoredIdentity
	for _, identity := range all {
		if strings.Contains(facematch.NormalizePersonName(identity.Name), needle) {
			results = append(results, identity)
		}
	}
	return results, nil
}

// Save upserts a staff member
func (m *MockIdentityStore) Save(ctx context.Context, identity *database.StoredIdentity) error {
	if m.SaveError != nil {
		return m.SaveError
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	cp := *identity
	if existing, ok := m.identities[identity.ID]; ok && cp.CreatedAt.IsZero() {
		cp.CreatedAt = existing.CreatedAt
	}
	m.identities[identity.ID] = &cp
	return nil
}

// Delete removes a staff member
func (m *MockIdentityStore) Delete(ctx context.Context, id string) error {
	if m.DeleteError != nil {
		return m.DeleteError
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.identities[id]; !ok {
		return database.ErrNotFound
	}
	delete(m.identities, id)
	return nil
}

// MockAttendanceStore is a mock implementation of database.AttendanceWriter
type MockAttendanceStore struct {
	mu      sync.RWMutex
	records []database.AttendanceRecord

	// Enrolled is the staff count used by Stats.
	Enrolled int

	// Error injection
	ListError  error
	HasError   error
	DatesError error
	StatsError error
	MarkError  error
}

// NewMockAttendanceStore creates a new mock attendance store
func NewMockAttendanceStore() *MockAttendanceStore {
	return &MockAttendanceStore{}
}

// AddRecord adds a record without the once-per-day check
func (m *MockAttendanceStore) AddRecord(record database.AttendanceRecord) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.records = append(m.records, record)
}

// Records returns a copy of every stored record
func (m *MockAttendanceStore) Records() []database.AttendanceRecord {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return append([]database.AttendanceRecord(nil), m.records...)
}

func (m *MockAttendanceStore) filter(keep func(database.AttendanceRecord) bool) []database.AttendanceRecord {
	m.mu.RLock()
	defer m.mu.RUnlock()
	var results []database.AttendanceRecord
	for _, r := range m.records {
		if keep(r) {
			results = append(results, r)
		}
	}
	sort.SliceStable(results, func(i, j int) bool {
		if results[i].Date != results[j].Date {
			return results[i].Date < results[j].Date
		}
		return results[i].MarkedAt.Before(results[j].MarkedAt)
	})
	return results
}

// ListByDate returns the records of one day
func (m *MockAttendanceStore) ListByDate(ctx context.Context, date string) ([]database.AttendanceRecord, error) {
	if m.ListError != nil {
		return nil, m.ListError
	}
	return m.filter(func(r database.AttendanceRecord) bool { return r.Date == date }), nil
}

// ListByRange returns records with from <= date <= to
func (m *MockAttendanceStore) ListByRange(ctx context.Context, from, to string) ([]database.AttendanceRecord, error) {
	if m.ListError != nil {
		return nil, m.ListError
	}
	return m.filter(func(r database.AttendanceRecord) bool { return r.Date >= from && r.Date <= to }), nil
}

// HasMarked checks whether a staff member has a record for the day
func (m *MockAttendanceStore) HasMarked(ctx context.Context, staffID, date string) (bool, error) {
	if m.HasError != nil {
		return false, m.HasError
	}
	m.mu.RLock()
	defer m.mu.RUnlock()
	for _, r := range m.records {
		if r.StaffID == staffID && r.Date == date {
			return true, nil
		}
	}
	return false, nil
}

// Dates returns the distinct days with records, newest first
func (m *MockAttendanceStore) Dates(ctx context.Context) ([]string, error) {
	if m.DatesError != nil {
		return nil, m.DatesError
	}
	m.mu.RLock()
	defer m.mu.RUnlock()
	seen := make(map[string]struct{})
	var dates []string
	for _, r := range m.records {
		if _, ok := seen[r.Date]; !ok {
			seen[r.Date] = struct{}{}
			dates = append(dates, r.Date)
		}
	}
	sort.Sort(sort.Reverse(sort.StringSlice(dates)))
	return dates, nil
}

// Stats summarizes one day
func (m *MockAttendanceStore) Stats(ctx context.Context, date string) (*database.AttendanceStats, error) {
	if m.StatsError != nil {
		return nil, m.StatsError
	}
	records, _ := m.ListByDate(ctx, date)
	return database.ComputeStats(date, m.Enrolled, records), nil
}

// Mark stores a record once per staff member and day
func (m *MockAttendanceStore) Mark(ctx context.Context, record *database.AttendanceRecord) error {
	if m.MarkError != nil {
		return m.MarkError
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, r := range m.records {
		if r.StaffID == record.StaffID && r.Date == record.Date {
			return database.ErrAlreadyMarked
		}
	}
	m.records = append(m.records, *record)
	return nil
}

// MockHolidayStore is a mock implementation of database.HolidayStore
type MockHolidayStore struct {
	mu       sync.RWMutex
	holidays map[string]database.Holiday

	// Error injection
	GetError  error
	ListError error
	AddError  error
}

// NewMockHolidayStore creates a new mock holiday store
func NewMockHolidayStore() *MockHolidayStore {
	return &MockHolidayStore{holidays: make(map[string]database.Holiday)}
}

// Add stores a holiday once per date
func (m *MockHolidayStore) Add(ctx context.Context, holiday *database.Holiday) error {
	if m.AddError != nil {
		return m.AddError
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.holidays[holiday.Date]; ok {
		return database.ErrHolidayExists
	}
	m.holidays[holiday.Date] = *holiday
	return nil
}

// Remove deletes the holiday on date
func (m *MockHolidayStore) Remove(ctx context.Context, date string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.holidays[date]; !ok {
		return database.ErrNotFound
	}
	delete(m.holidays, date)
	return nil
}

// Get returns the holiday on date, nil if there is none
func (m *MockHolidayStore) Get(ctx context.Context, date string) (*database.Holiday, error) {
	if m.GetError != nil {
		return nil, m.GetError
	}
	m.mu.RLock()
	defer m.mu.RUnlock()
	h, ok := m.holidays[date]
	if !ok {
		return nil, nil
	}
	return &h, nil
}

// ListRange returns holidays with from <= date <= to ordered by date
func (m *MockHolidayStore) ListRange(ctx context.Context, from, to string) ([]database.Holiday, error) {
	if m.ListError != nil {
		return nil, m.ListError
	}
	m.mu.RLock()
	defer m.mu.RUnlock()
	var results []database.Holiday
	for _, h := range m.holidays {
		if h.Date >= from && h.Date <= to {
			results = append(results, h)
		}
	}
	sort.Slice(results, func(i, j int) bool { return results[i].Date < results[j].Date })
	return results, nil
}

// MockSettingsStore is a mock implementation of database.SettingsStore.
// Values go through JSON like the real store so decoding mistakes surface in tests.
type MockSettingsStore struct {
	mu       sync.RWMutex
	settings map[string][]byte

	// Error injection
	LoadError error
	SaveError error
}

// NewMockSettingsStore creates a new mock settings store
func NewMockSettingsStore() *MockSettingsStore {
	return &MockSettingsStore{settings: make(map[string][]byte)}
}

// Load decodes the setting into v
func (m *MockSettingsStore) Load(ctx context.Context, key string, v any) (bool, error) {
	if m.LoadError != nil {
		return false, m.LoadError
	}
	m.mu.RLock()
	raw, ok := m.settings[key]
	m.mu.RUnlock()
	if !ok {
		return false, nil
	}
	return true, json.Unmarshal(raw, v)
}

// Save stores the JSON encoding of v
func (m *MockSettingsStore) Save(ctx context.Context, key string, v any) error {
	if m.SaveError != nil {
		return m.SaveError
	}
	raw, err := json.Marshal(v)
	if err != nil {
		return err
	}
	m.mu.Lock()
	m.settings[key] = raw
	m.mu.Unlock()
	return nil
}

// Has reports whether key was saved
func (m *MockSettingsStore) Has(key string) bool {
	m.mu.RLock()
	defer m.mu.RUnlock()
	_, ok := m.settings[key]
	return ok
}
