package service

import (
	"context"
	"database/sql"
	"io"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"

	"github.com/noah-isme/schoolhub-api/internal/models"
	"github.com/noah-isme/schoolhub-api/internal/policy"
	"github.com/noah-isme/schoolhub-api/internal/repository"
)

const (
	testSchoolID  = "school-1"
	testAdminID   = "admin-1"
	testTeacherID = "teacher-1"
	testStudentID = "student-1"
	testPassword  = "secret123"
)

var (
	fixedNow = time.Date(2024, 3, 15, 9, 30, 0, 0, time.UTC)

	hashOnce   sync.Once
	cachedHash string
)

func testPasswordHash(t *testing.T) string {
	t.Helper()
	hashOnce.Do(func() {
		h, err := bcrypt.GenerateFromPassword([]byte(testPassword), bcrypt.MinCost)
		require.NoError(t, err)
		cachedHash = string(h)
	})
	return cachedHash
}

type mockSchoolRepo struct {
	mu      sync.Mutex
	items   map[string]*models.School
	saves   int
	saveErr error
	order   []string
}

func newMockSchoolRepo(schools ...*models.School) *mockSchoolRepo {
	repo := &mockSchoolRepo{items: map[string]*models.School{}}
	for _, s := range schools {
		repo.items[s.ID] = s.Clone()
		repo.order = append(repo.order, s.ID)
	}
	return repo
}

func (m *mockSchoolRepo) Create(ctx context.Context, exec sqlx.ExtContext, school *models.School) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	school.Version = 1
	m.items[school.ID] = school.Clone()
	m.order = append(m.order, school.ID)
	return nil
}

func (m *mockSchoolRepo) FindByID(ctx context.Context, id string) (*models.School, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if s, ok := m.items[id]; ok {
		return s.Clone(), nil
	}
	return nil, sql.ErrNoRows
}

func (m *mockSchoolRepo) List(ctx context.Context) ([]models.SchoolSummary, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]models.SchoolSummary, 0, len(m.order))
	for _, id := range m.order {
		if s, ok := m.items[id]; ok {
			out = append(out, models.SchoolSummary{ID: s.ID, Name: s.Name, Logo: s.Logo})
		}
	}
	return out, nil
}

func (m *mockSchoolRepo) ExistsByName(ctx context.Context, name, excludeID string) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for id, s := range m.items {
		if id != excludeID && strings.EqualFold(s.Name, name) {
			return true, nil
		}
	}
	return false, nil
}

func (m *mockSchoolRepo) FindByMemberEmail(ctx context.Context, role models.Role, email string) ([]models.School, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]models.School, 0)
	for _, id := range m.order {
		s, ok := m.items[id]
		if !ok {
			continue
		}
		found := false
		switch role {
		case models.RoleTeacher:
			for _, t := range s.Teachers {
				found = found || t.Email == email
			}
		case models.RoleStudent:
			for _, st := range s.Students {
				found = found || st.Email == email
			}
		}
		if found {
			out = append(out, *s.Clone())
		}
	}
	return out, nil
}

func (m *mockSchoolRepo) Save(ctx context.Context, school *models.School) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.saveErr != nil {
		return m.saveErr
	}
	stored, ok := m.items[school.ID]
	if !ok || stored.Version != school.Version {
		return repository.ErrStaleVersion
	}
	school.Version++
	m.items[school.ID] = school.Clone()
	m.saves++
	return nil
}

func (m *mockSchoolRepo) Delete(ctx context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.items[id]; !ok {
		return sql.ErrNoRows
	}
	delete(m.items, id)
	return nil
}

func (m *mockSchoolRepo) stored(id string) *models.School {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.items[id].Clone()
}

type mockUserRepo struct {
	items map[string]*models.User
}

func newMockUserRepo(users ...*models.User) *mockUserRepo {
	repo := &mockUserRepo{items: map[string]*models.User{}}
	for _, u := range users {
		cp := *u
		repo.items[u.ID] = &cp
	}
	return repo
}

func (m *mockUserRepo) Create(ctx context.Context, exec sqlx.ExtContext, user *models.User) error {
	if user.ID == "" {
		user.ID = "generated-admin"
	}
	cp := *user
	m.items[user.ID] = &cp
	return nil
}

func (m *mockUserRepo) FindByID(ctx context.Context, id string) (*models.User, error) {
	if u, ok := m.items[id]; ok {
		cp := *u
		return &cp, nil
	}
	return nil, sql.ErrNoRows
}

func (m *mockUserRepo) FindByEmail(ctx context.Context, email string) (*models.User, error) {
	for _, u := range m.items {
		if strings.EqualFold(u.Email, email) {
			cp := *u
			return &cp, nil
		}
	}
	return nil, sql.ErrNoRows
}

func (m *mockUserRepo) ExistsByEmail(ctx context.Context, email string) (bool, error) {
	_, err := m.FindByEmail(ctx, email)
	return err == nil, nil
}

func (m *mockUserRepo) SetResetOTP(ctx context.Context, id string, hash *string, expiry *time.Time) error {
	u, ok := m.items[id]
	if !ok {
		return sql.ErrNoRows
	}
	u.ResetOTPHash, u.ResetOTPExpiry = hash, expiry
	return nil
}

func (m *mockUserRepo) ResetPassword(ctx context.Context, id, passwordHash string) error {
	u, ok := m.items[id]
	if !ok {
		return sql.ErrNoRows
	}
	u.PasswordHash = passwordHash
	u.ResetOTPHash, u.ResetOTPExpiry = nil, nil
	return nil
}

type mockImages struct {
	saved   []string
	deleted []string
	err     error
}

func (m *mockImages) SaveImage(kind string, r io.Reader) (string, error) {
	if m.err != nil {
		return "", m.err
	}
	if _, err := io.ReadAll(r); err != nil {
		return "", err
	}
	name := kind + "/file-" + string(rune('a'+len(m.saved))) + ".png"
	m.saved = append(m.saved, name)
	return name, nil
}

func (m *mockImages) Delete(name string) error {
	m.deleted = append(m.deleted, name)
	return nil
}

// seedSchool has subjects Math and Science, classes 10A (Math, Science) and
// 10B (Math), one teacher in 10A and one student in 10A.
func seedSchool(t *testing.T) *models.School {
	t.Helper()
	hash := testPasswordHash(t)
	created := fixedNow.Add(-24 * time.Hour)
	return &models.School{
		ID:   testSchoolID,
		Name: "Green Valley High",
		Subjects: models.SubjectList{
			{Name: "Math", CreatedAt: created, UpdatedAt: created},
			{Name: "Science", CreatedAt: created, UpdatedAt: created},
		},
		Classes: models.ClassList{
			{Name: "10A", Subjects: []string{"Math", "Science"}, CreatedAt: created, UpdatedAt: created},
			{Name: "10B", Subjects: []string{"Math"}, CreatedAt: created, UpdatedAt: created},
		},
		Teachers: models.TeacherList{
			{ID: testTeacherID, Name: "Tina Teach", Email: "tina@school.test", PasswordHash: hash, Classes: []string{"10A"}},
		},
		Students: models.StudentList{
			{ID: testStudentID, Name: "Sam Student", FatherName: "Sid", Email: "sam@school.test", PasswordHash: hash, Classes: []string{"10A"}},
		},
		Version:   1,
		CreatedAt: created,
		UpdatedAt: created,
	}
}

func seedAdmin(t *testing.T) *models.User {
	return &models.User{ID: testAdminID, Email: "admin@school.test", PasswordHash: testPasswordHash(t), Role: models.RoleAdmin, SchoolID: testSchoolID}
}

type fixture struct {
	schools *mockSchoolRepo
	users   *mockUserRepo
	auth    *policy.Authorizer
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	schools := newMockSchoolRepo(seedSchool(t))
	users := newMockUserRepo(seedAdmin(t))
	return &fixture{schools: schools, users: users, auth: policy.NewAuthorizer(schools, users, zap.NewNop())}
}

func adminActor() *models.Actor {
	return &models.Actor{ID: testAdminID, Role: models.RoleAdmin, SchoolID: testSchoolID}
}

func teacherActor() *models.Actor {
	return &models.Actor{ID: testTeacherID, Role: models.RoleTeacher, SchoolID: testSchoolID}
}

func studentActor() *models.Actor {
	return &models.Actor{ID: testStudentID, Role: models.RoleStudent, SchoolID: testSchoolID}
}

func clock() func() time.Time {
	return func() time.Time { return fixedNow }
}
