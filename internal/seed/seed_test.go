package seed

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/clinic-attendance-api/internal/models"
	"github.com/noah-isme/clinic-attendance-api/internal/service"
)

type memStore struct {
	divisions map[string]string
	employees []models.Employee
	templates []models.ShiftTemplate
	users     map[string]*models.User
	grants    map[string]bool
}

func newMemStore() *memStore {
	return &memStore{divisions: map[string]string{}, users: map[string]*models.User{}, grants: map[string]bool{}}
}

func (m *memStore) UpsertDivision(ctx context.Context, d *models.Division) error {
	if id, ok := m.divisions[d.Name]; ok {
		d.ID = id
		return nil
	}
	d.ID = fmt.Sprintf("div-%d", len(m.divisions)+1)
	m.divisions[d.Name] = d.ID
	return nil
}

func (m *memStore) List(ctx context.Context, filter models.EmployeeFilter) ([]models.Employee, error) {
	var out []models.Employee
	for _, e := range m.employees {
		if filter.DivisionID == nil || (e.DivisionID != nil && *e.DivisionID == *filter.DivisionID) {
			out = append(out, e)
		}
	}
	return out, nil
}

func (m *memStore) Create(ctx context.Context, e *models.Employee) error {
	m.employees = append(m.employees, *e)
	return nil
}

func (m *memStore) ListTemplates(ctx context.Context, divisionID string, activeOnly bool) ([]models.ShiftTemplate, error) {
	var out []models.ShiftTemplate
	for _, t := range m.templates {
		if t.DivisionID == divisionID {
			out = append(out, t)
		}
	}
	return out, nil
}

func (m *memStore) CreateTemplate(ctx context.Context, tpl *models.ShiftTemplate) error {
	m.templates = append(m.templates, *tpl)
	return nil
}

type memUsers struct{ *memStore }

func (u memUsers) Create(ctx context.Context, user *models.User) error {
	if existing, ok := u.users[user.Email]; ok {
		user.ID = existing.ID
	} else {
		user.ID = fmt.Sprintf("user-%d", len(u.users)+1)
	}
	u.users[user.Email] = user
	return nil
}

func (u memUsers) GrantRosterEditor(ctx context.Context, userID, divisionID string) error {
	u.grants[userID+"/"+divisionID] = true
	return nil
}

func TestExampleFixtureApplies(t *testing.T) {
	fx, err := Load(filepath.Join("..", "..", "configs", "seed.example.yaml"))
	require.NoError(t, err)

	store := newMemStore()
	seeder := NewSeeder(store, store, memUsers{store}, nil)

	sum, err := seeder.Apply(context.Background(), fx)
	require.NoError(t, err)
	assert.Equal(t, Summary{Divisions: 2, Templates: 4, Employees: 5, Users: 2, Grants: 1}, sum)

	lead := store.users["frontdesk.lead@clinic.local"]
	require.NotNil(t, lead)
	assert.True(t, store.grants[lead.ID+"/"+store.divisions["Front Desk"]])

	for _, e := range store.employees {
		if e.Name == "Citra Dewi" {
			assert.False(t, e.IsRostered)
		}
		if e.Name == "Ana Lestari" {
			assert.True(t, service.VerifyPIN(e.PinHash, "111111"))
		}
	}

	again, err := seeder.Apply(context.Background(), fx)
	require.NoError(t, err)
	assert.Zero(t, again.Templates)
	assert.Zero(t, again.Employees)
	assert.Len(t, store.employees, 5)
}

func TestParseRejectsBadFixtures(t *testing.T) {
	cases := map[string]string{
		"unknown key":      "divisions:\n  - name: A\n    colour: red\n",
		"reversed shift":   "divisions:\n  - name: A\n    templates:\n      - { name: X, start: \"22:00\", end: \"06:00\" }\n",
		"bad role":         "users:\n  - { email: a@b.c, name: A, password: longenough, role: ADMIN }\n",
		"unknown division": "users:\n  - { email: a@b.c, name: A, password: longenough, role: ROSTER_EDITOR, editor_of: [Ghost] }\n",
	}
	for name, raw := range cases {
		t.Run(name, func(t *testing.T) {
			_, err := Parse([]byte(raw))
			assert.Error(t, err)
		})
	}
}

func TestApplyRejectsShortPIN(t *testing.T) {
	fx, err := Parse([]byte("divisions:\n  - name: A\n    employees:\n      - { name: X, pin: \"12\" }\n"))
	require.NoError(t, err)
	store := newMemStore()
	_, err = NewSeeder(store, store, memUsers{store}, nil).Apply(context.Background(), fx)
	assert.Error(t, err)
}

func TestLoadMissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "nope.yaml"))
	assert.ErrorIs(t, err, os.ErrNotExist)
}
