// Package seed loads a YAML fixture describing divisions, shift templates,
// kiosk employees and back-office users, and writes it idempotently.
package seed

import (
	"bytes"
	"context"
	"fmt"
	"os"
	"strings"

	"go.uber.org/zap"
	"gopkg.in/yaml.v3"

	"github.com/noah-isme/clinic-attendance-api/internal/models"
	"github.com/noah-isme/clinic-attendance-api/internal/service"
)

// Fixture is the root of a seed file.
type Fixture struct {
	Divisions []DivisionFixture `yaml:"divisions"`
	Users     []UserFixture     `yaml:"users"`
}

type DivisionFixture struct {
	Name      string            `yaml:"name"`
	Templates []TemplateFixture `yaml:"templates"`
	Employees []EmployeeFixture `yaml:"employees"`
}

type TemplateFixture struct {
	Name  string `yaml:"name"`
	Start string `yaml:"start"`
	End   string `yaml:"end"`
}

type EmployeeFixture struct {
	Name string `yaml:"name"`
	PIN  string `yaml:"pin"`
	// Rostered defaults to true; false marks staff who never get shifts.
	Rostered *bool `yaml:"rostered"`
}

type UserFixture struct {
	Email    string          `yaml:"email"`
	Name     string          `yaml:"name"`
	Password string          `yaml:"password"`
	Role     models.UserRole `yaml:"role"`
	// EditorOf lists division names the user may roster.
	EditorOf []string `yaml:"editor_of"`
}

// Load reads and validates a fixture. Unknown keys are rejected so typos
// do not silently drop data.
func Load(path string) (*Fixture, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read seed file: %w", err)
	}
	return Parse(raw)
}

// Parse decodes and validates fixture YAML.
func Parse(raw []byte) (*Fixture, error) {
	dec := yaml.NewDecoder(bytes.NewReader(raw))
	dec.KnownFields(true)
	var fx Fixture
	if err := dec.Decode(&fx); err != nil {
		return nil, fmt.Errorf("parse seed file: %w", err)
	}
	if err := fx.validate(); err != nil {
		return nil, err
	}
	return &fx, nil
}

func (f *Fixture) validate() error {
	divisions := make(map[string]struct{}, len(f.Divisions))
	for _, d := range f.Divisions {
		if strings.TrimSpace(d.Name) == "" {
			return fmt.Errorf("division without name")
		}
		divisions[d.Name] = struct{}{}
		for _, t := range d.Templates {
			start, err := models.ParseTimeOfDay(t.Start)
			if err != nil {
				return fmt.Errorf("template %s/%s: start: %w", d.Name, t.Name, err)
			}
			end, err := models.ParseTimeOfDay(t.End)
			if err != nil {
				return fmt.Errorf("template %s/%s: end: %w", d.Name, t.Name, err)
			}
			if end <= start {
				return fmt.Errorf("template %s/%s: end must be after start", d.Name, t.Name)
			}
		}
	}
	for _, u := range f.Users {
		if u.Role != models.RoleManager && u.Role != models.RoleRosterEditor {
			return fmt.Errorf("user %s: unknown role %q", u.Email, u.Role)
		}
		for _, name := range u.EditorOf {
			if _, ok := divisions[name]; !ok {
				return fmt.Errorf("user %s: unknown division %q", u.Email, name)
			}
		}
	}
	return nil
}

type divisionStore interface {
	UpsertDivision(ctx context.Context, division *models.Division) error
	List(ctx context.Context, filter models.EmployeeFilter) ([]models.Employee, error)
	Create(ctx context.Context, employee *models.Employee) error
}

type templateStore interface {
	ListTemplates(ctx context.Context, divisionID string, activeOnly bool) ([]models.ShiftTemplate, error)
	CreateTemplate(ctx context.Context, tpl *models.ShiftTemplate) error
}

type userStore interface {
	Create(ctx context.Context, user *models.User) error
	GrantRosterEditor(ctx context.Context, userID, divisionID string) error
}

// Summary counts rows written by Apply.
type Summary struct {
	Divisions int
	Templates int
	Employees int
	Users     int
	Grants    int
}

// Seeder writes fixtures through the repositories.
type Seeder struct {
	divisions divisionStore
	templates templateStore
	users     userStore
	logger    *zap.Logger
}

// NewSeeder constructs a Seeder.
func NewSeeder(divisions divisionStore, templates templateStore, users userStore, logger *zap.Logger) *Seeder {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Seeder{divisions: divisions, templates: templates, users: users, logger: logger}
}

// Apply writes fx. Divisions and users are upserted; templates and
// employees are matched by name within their division and only created
// when missing, so re-running a fixture is safe.
func (s *Seeder) Apply(ctx context.Context, fx *Fixture) (Summary, error) {
	var sum Summary
	divisionIDs := make(map[string]string, len(fx.Divisions))

	for _, d := range fx.Divisions {
		division := &models.Division{Name: d.Name, Active: true}
		if err := s.divisions.UpsertDivision(ctx, division); err != nil {
			return sum, err
		}
		divisionIDs[d.Name] = division.ID
		sum.Divisions++

		created, err := s.seedTemplates(ctx, division.ID, d.Templates)
		if err != nil {
			return sum, err
		}
		sum.Templates += created

		created, err = s.seedEmployees(ctx, division.ID, d.Employees)
		if err != nil {
			return sum, err
		}
		sum.Employees += created
	}

	for _, u := range fx.Users {
		hash, err := service.HashPassword(u.Password)
		if err != nil {
			return sum, fmt.Errorf("user %s: %w", u.Email, err)
		}
		user := &models.User{
			Email:        strings.ToLower(strings.TrimSpace(u.Email)),
			PasswordHash: hash,
			FullName:     u.Name,
			Role:         u.Role,
			Active:       true,
		}
		if err := s.users.Create(ctx, user); err != nil {
			return sum, err
		}
		sum.Users++
		for _, name := range u.EditorOf {
			if err := s.users.GrantRosterEditor(ctx, user.ID, divisionIDs[name]); err != nil {
				return sum, err
			}
			sum.Grants++
		}
	}
	return sum, nil
}

func (s *Seeder) seedTemplates(ctx context.Context, divisionID string, fixtures []TemplateFixture) (int, error) {
	existing, err := s.templates.ListTemplates(ctx, divisionID, false)
	if err != nil {
		return 0, err
	}
	have := make(map[string]struct{}, len(existing))
	for _, t := range existing {
		have[t.Name] = struct{}{}
	}
	created := 0
	for _, t := range fixtures {
		if _, ok := have[t.Name]; ok {
			continue
		}
		tpl := &models.ShiftTemplate{
			DivisionID: divisionID,
			Name:       t.Name,
			StartTime:  models.MustTimeOfDay(t.Start),
			EndTime:    models.MustTimeOfDay(t.End),
			Active:     true,
		}
		if err := s.templates.CreateTemplate(ctx, tpl); err != nil {
			return created, err
		}
		created++
	}
	return created, nil
}

func (s *Seeder) seedEmployees(ctx context.Context, divisionID string, fixtures []EmployeeFixture) (int, error) {
	existing, err := s.divisions.List(ctx, models.EmployeeFilter{DivisionID: &divisionID})
	if err != nil {
		return 0, err
	}
	have := make(map[string]struct{}, len(existing))
	for _, e := range existing {
		have[e.Name] = struct{}{}
	}
	created := 0
	for _, e := range fixtures {
		if _, ok := have[e.Name]; ok {
			s.logger.Debug("employee exists, skipping", zap.String("name", e.Name))
			continue
		}
		hash, err := service.HashPIN(e.PIN)
		if err != nil {
			return created, fmt.Errorf("employee %s: %w", e.Name, err)
		}
		rostered := true
		if e.Rostered != nil {
			rostered = *e.Rostered
		}
		div := divisionID
		if err := s.divisions.Create(ctx, &models.Employee{
			Name:       e.Name,
			PinHash:    hash,
			Active:     true,
			DivisionID: &div,
			IsRostered: rostered,
		}); err != nil {
			return created, err
		}
		created++
	}
	return created, nil
}
