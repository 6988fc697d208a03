package service

import (
	"context"
	"database/sql"
	"sort"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/clinic-attendance-api/internal/dto"
	"github.com/noah-isme/clinic-attendance-api/internal/models"
	appErrors "github.com/noah-isme/clinic-attendance-api/pkg/errors"
)

type fakeEmployeeRepo struct {
	mu        sync.Mutex
	employees map[string]*models.Employee
	divisions map[string]*models.Division
}

func newFakeEmployeeRepo(employees ...models.Employee) *fakeEmployeeRepo {
	repo := &fakeEmployeeRepo{employees: map[string]*models.Employee{}, divisions: map[string]*models.Division{}}
	for i := range employees {
		e := employees[i]
		repo.employees[e.ID] = &e
	}
	return repo
}

func (f *fakeEmployeeRepo) List(ctx context.Context, filter models.EmployeeFilter) ([]models.Employee, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []models.Employee
	for _, e := range f.employees {
		if filter.ActiveOnly && !e.Active {
			continue
		}
		if filter.RosteredOnly && !e.IsRostered {
			continue
		}
		if filter.DivisionID != nil && (e.DivisionID == nil || *e.DivisionID != *filter.DivisionID) {
			continue
		}
		out = append(out, *e)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out, nil
}

func (f *fakeEmployeeRepo) FindByID(ctx context.Context, id string) (*models.Employee, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if e, ok := f.employees[id]; ok {
		copy := *e
		return &copy, nil
	}
	return nil, sql.ErrNoRows
}

func (f *fakeEmployeeRepo) FindActiveByID(ctx context.Context, id string) (*models.Employee, error) {
	e, err := f.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if !e.Active {
		return nil, sql.ErrNoRows
	}
	return e, nil
}

func (f *fakeEmployeeRepo) Create(ctx context.Context, employee *models.Employee) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	copy := *employee
	f.employees[employee.ID] = &copy
	return nil
}

func (f *fakeEmployeeRepo) UpdatePIN(ctx context.Context, id, pinHash string, updatedAt time.Time) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	e, ok := f.employees[id]
	if !ok {
		return sql.ErrNoRows
	}
	e.PinHash = pinHash
	e.UpdatedAt = updatedAt
	return nil
}

func (f *fakeEmployeeRepo) Deactivate(ctx context.Context, id string, updatedAt time.Time) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	e, ok := f.employees[id]
	if !ok || !e.Active {
		return sql.ErrNoRows
	}
	e.Active = false
	e.UpdatedAt = updatedAt
	return nil
}

func (f *fakeEmployeeRepo) FindDivision(ctx context.Context, id string) (*models.Division, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if d, ok := f.divisions[id]; ok {
		copy := *d
		return &copy, nil
	}
	return nil, sql.ErrNoRows
}

func (f *fakeEmployeeRepo) ListDivisions(ctx context.Context, activeOnly bool) ([]models.Division, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []models.Division
	for _, d := range f.divisions {
		if activeOnly && !d.Active {
			continue
		}
		out = append(out, *d)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out, nil
}

type fakeAudit struct {
	mu   sync.Mutex
	logs []*models.AuditLog
}

func (f *fakeAudit) CreateAuditLog(ctx context.Context, log *models.AuditLog) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.logs = append(f.logs, log)
	return nil
}

func (f *fakeAudit) actions() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]string, len(f.logs))
	for i, l := range f.logs {
		out[i] = l.Action
	}
	return out
}

// employeeWithPIN builds an active employee; hashing is done once per PIN.
func employeeWithPIN(t *testing.T, id, name, pin string) models.Employee {
	t.Helper()
	hash, err := HashPIN(pin)
	require.NoError(t, err)
	return models.Employee{ID: id, Name: name, PinHash: hash, Active: true}
}

func TestHashAndVerifyPIN(t *testing.T) {
	hash, err := HashPIN("123456")
	require.NoError(t, err)
	assert.True(t, VerifyPIN(hash, "123456"))
	assert.False(t, VerifyPIN(hash, "654321"))
	assert.False(t, VerifyPIN(hash, "12345"))
	assert.False(t, VerifyPIN("", "123456"))

	for _, bad := range []string{"12345", "1234567", "12a456", " 123456"} {
		_, err := HashPIN(bad)
		assert.ErrorIs(t, err, ErrInvalidPIN, bad)
	}
}

func TestEmployeeServiceCreate(t *testing.T) {
	repo := newFakeEmployeeRepo()
	repo.divisions["div-1"] = &models.Division{ID: "div-1", Name: "Nursing", Active: true}
	audit := &fakeAudit{}
	svc := NewEmployeeService(repo, audit, nil, nil)

	division := "div-1"
	employee, err := svc.Create(context.Background(), dto.CreateEmployeeRequest{Name: "  Ana  ", PIN: "246810", DivisionID: &division, IsRostered: true}, RequestMeta{ActorID: "mgr-1"})
	require.NoError(t, err)
	assert.Equal(t, "Ana", employee.Name)
	assert.True(t, employee.Active)
	assert.True(t, VerifyPIN(employee.PinHash, "246810"))
	assert.Equal(t, []string{models.AuditActionEmployeeCreate}, audit.actions())

	missing := "div-x"
	_, err = svc.Create(context.Background(), dto.CreateEmployeeRequest{Name: "Budi", PIN: "246810", DivisionID: &missing}, RequestMeta{})
	assert.ErrorIs(t, err, appErrors.ErrNotFound)

	_, err = svc.Create(context.Background(), dto.CreateEmployeeRequest{Name: "Budi", PIN: "2468"}, RequestMeta{})
	assert.ErrorIs(t, err, ErrInvalidPIN)
}

func TestEmployeeServiceListActiveSkipsInactive(t *testing.T) {
	repo := newFakeEmployeeRepo(
		models.Employee{ID: "e2", Name: "Budi", Active: true},
		models.Employee{ID: "e1", Name: "Ana", Active: true},
		models.Employee{ID: "e3", Name: "Citra", Active: false},
	)
	svc := NewEmployeeService(repo, nil, nil, nil)

	list, err := svc.ListActive(context.Background())
	require.NoError(t, err)
	assert.Equal(t, []dto.KioskEmployee{{ID: "e1", Name: "Ana"}, {ID: "e2", Name: "Budi"}}, list)
}

func TestEmployeeServiceListDivisions(t *testing.T) {
	repo := newFakeEmployeeRepo()
	repo.divisions["d2"] = &models.Division{ID: "d2", Name: "Pharmacy", Active: true}
	repo.divisions["d1"] = &models.Division{ID: "d1", Name: "Front Desk", Active: true}
	repo.divisions["d3"] = &models.Division{ID: "d3", Name: "Closed Wing", Active: false}
	svc := NewEmployeeService(repo, nil, nil, nil)

	divisions, err := svc.ListDivisions(context.Background())
	require.NoError(t, err)
	require.Len(t, divisions, 2)
	assert.Equal(t, "Front Desk", divisions[0].Name)
	assert.Equal(t, "Pharmacy", divisions[1].Name)
}

func TestEmployeeServiceResetPINAndDeactivate(t *testing.T) {
	repo := newFakeEmployeeRepo(employeeWithPIN(t, "e1", "Ana", "111111"))
	audit := &fakeAudit{}
	svc := NewEmployeeService(repo, audit, nil, nil)
	ctx := context.Background()

	require.NoError(t, svc.ResetPIN(ctx, "e1", dto.ResetPINRequest{PIN: "222222"}, RequestMeta{ActorID: "mgr"}))
	stored, _ := repo.FindByID(ctx, "e1")
	assert.True(t, VerifyPIN(stored.PinHash, "222222"))

	err := svc.ResetPIN(ctx, "nope", dto.ResetPINRequest{PIN: "222222"}, RequestMeta{})
	assert.ErrorIs(t, err, appErrors.ErrNotFound)

	require.NoError(t, svc.Deactivate(ctx, "e1", RequestMeta{ActorID: "mgr"}))
	assert.ErrorIs(t, svc.Deactivate(ctx, "e1", RequestMeta{}), appErrors.ErrNotFound)
	assert.Equal(t, []string{models.AuditActionEmployeePINReset, models.AuditActionEmployeeDeactivate}, audit.actions())
}
