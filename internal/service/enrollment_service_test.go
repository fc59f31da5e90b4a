package service

import (
	"context"
	"database/sql"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/uniwatch/uniwatch-api/internal/models"
	appErrors "github.com/uniwatch/uniwatch-api/pkg/errors"
)

type mockEnrollmentRepo struct {
	enrollments map[string]models.Enrollment
	created     *models.Enrollment
	deleted     []string
}

func enrollKey(classID, studentID string) string { return classID + ":" + studentID }

func (m *mockEnrollmentRepo) FindByClassAndStudent(ctx context.Context, classID, studentID string) (*models.Enrollment, error) {
	if e, ok := m.enrollments[enrollKey(classID, studentID)]; ok {
		return &e, nil
	}
	return nil, sql.ErrNoRows
}

func (m *mockEnrollmentRepo) ExistsByClassAndStudent(ctx context.Context, classID, studentID string) (bool, error) {
	_, ok := m.enrollments[enrollKey(classID, studentID)]
	return ok, nil
}

func (m *mockEnrollmentRepo) ListByClass(ctx context.Context, classID string) ([]models.EnrollmentDetail, error) {
	var out []models.EnrollmentDetail
	for _, e := range m.enrollments {
		if e.ClassID == classID {
			out = append(out, models.EnrollmentDetail{Enrollment: e})
		}
	}
	return out, nil
}

func (m *mockEnrollmentRepo) Create(ctx context.Context, enrollment *models.Enrollment) error {
	if m.enrollments == nil {
		m.enrollments = map[string]models.Enrollment{}
	}
	if enrollment.ID == "" {
		enrollment.ID = "enr-new"
	}
	m.enrollments[enrollKey(enrollment.ClassID, enrollment.StudentID)] = *enrollment
	m.created = enrollment
	return nil
}

func (m *mockEnrollmentRepo) DeleteWithAttendance(ctx context.Context, classID, studentID string) error {
	m.deleted = append(m.deleted, enrollKey(classID, studentID))
	delete(m.enrollments, enrollKey(classID, studentID))
	return nil
}

type mockUserReader struct {
	users map[string]models.User
}

func (m *mockUserReader) FindByID(ctx context.Context, id string) (*models.User, error) {
	if u, ok := m.users[id]; ok {
		return &u, nil
	}
	return nil, sql.ErrNoRows
}

type mockProfileReader struct {
	profiles map[string]models.FacialProfileDetail
}

func (m *mockProfileReader) FindDetailByStudent(ctx context.Context, studentID string) (*models.FacialProfileDetail, error) {
	if p, ok := m.profiles[studentID]; ok {
		return &p, nil
	}
	return nil, sql.ErrNoRows
}

type mockClassStatusRepo struct {
	classes  map[string]models.Class
	statuses []models.TrainingStatus
}

func (m *mockClassStatusRepo) FindByID(ctx context.Context, id string) (*models.Class, error) {
	if c, ok := m.classes[id]; ok {
		return &c, nil
	}
	return nil, sql.ErrNoRows
}

func (m *mockClassStatusRepo) UpdateTrainingStatus(ctx context.Context, id string, status, expect models.TrainingStatus) error {
	if c, ok := m.classes[id]; ok {
		if expect == "" || c.TrainingStatus == expect {
			c.TrainingStatus = status
			m.classes[id] = c
		}
	}
	m.statuses = append(m.statuses, status)
	return nil
}

type mockPersonRegistry struct {
	nextPersonID string
	created      []string
	deleted      []string
	faces        []string
	failAddFace  bool
}

func (m *mockPersonRegistry) CreatePerson(ctx context.Context, groupID, name string) (string, error) {
	if m.nextPersonID == "" {
		m.nextPersonID = "person-new"
	}
	m.created = append(m.created, name)
	return m.nextPersonID, nil
}

func (m *mockPersonRegistry) DeletePerson(ctx context.Context, groupID, personID string) error {
	m.deleted = append(m.deleted, personID)
	return nil
}

func (m *mockPersonRegistry) AddFace(ctx context.Context, groupID, personID, imageURL string) error {
	if m.failAddFace {
		return errors.New("face rejected")
	}
	m.faces = append(m.faces, imageURL)
	return nil
}

func activeStudent(id string) models.User {
	return models.User{ID: id, Role: models.RoleStudent, FirstName: "Ada", LastName: "Lovelace", Active: true}
}

func profileWith(urls ...string) models.FacialProfileDetail {
	detail := models.FacialProfileDetail{FacialProfile: models.FacialProfile{ID: "prof-1"}}
	for _, u := range urls {
		detail.Images = append(detail.Images, models.UploadedImage{URL: u})
	}
	return detail
}

func TestEnrollmentServiceEnrollRegistersFacesAndResetsTraining(t *testing.T) {
	repo := &mockEnrollmentRepo{}
	users := &mockUserReader{users: map[string]models.User{"stu-1": activeStudent("stu-1")}}
	profiles := &mockProfileReader{profiles: map[string]models.FacialProfileDetail{"stu-1": profileWith("https://cdn/a.jpg", "https://cdn/b.jpg")}}
	classes := &mockClassStatusRepo{classes: map[string]models.Class{"class-1": {ID: "class-1", TrainingStatus: models.TrainingStatusTrained}}}
	registry := &mockPersonRegistry{nextPersonID: "person-42"}
	svc := NewEnrollmentService(repo, users, profiles, classes, registry, zap.NewNop())

	enrollment, err := svc.Enroll(context.Background(), "class-1", "stu-1")
	require.NoError(t, err)
	assert.Equal(t, "person-42", enrollment.PersonID)
	assert.Equal(t, []string{"https://cdn/a.jpg", "https://cdn/b.jpg"}, registry.faces)
	assert.Equal(t, models.TrainingStatusUntrained, classes.classes["class-1"].TrainingStatus)
}

func TestEnrollmentServiceEnrollRequiresProfileImages(t *testing.T) {
	users := &mockUserReader{users: map[string]models.User{"stu-1": activeStudent("stu-1")}}
	profiles := &mockProfileReader{profiles: map[string]models.FacialProfileDetail{"stu-1": profileWith()}}
	classes := &mockClassStatusRepo{classes: map[string]models.Class{"class-1": {ID: "class-1"}}}
	registry := &mockPersonRegistry{}
	svc := NewEnrollmentService(&mockEnrollmentRepo{}, users, profiles, classes, registry, nil)

	_, err := svc.Enroll(context.Background(), "class-1", "stu-1")
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrPreconditionFailed.Code, appErrors.FromError(err).Code)
	assert.Empty(t, registry.created)
}

func TestEnrollmentServiceEnrollMissingProfileIsPrecondition(t *testing.T) {
	users := &mockUserReader{users: map[string]models.User{"stu-1": activeStudent("stu-1")}}
	classes := &mockClassStatusRepo{classes: map[string]models.Class{"class-1": {ID: "class-1"}}}
	svc := NewEnrollmentService(&mockEnrollmentRepo{}, users, &mockProfileReader{}, classes, &mockPersonRegistry{}, nil)

	_, err := svc.Enroll(context.Background(), "class-1", "stu-1")
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrPreconditionFailed.Code, appErrors.FromError(err).Code)
}

func TestEnrollmentServiceEnrollDuplicateConflicts(t *testing.T) {
	repo := &mockEnrollmentRepo{enrollments: map[string]models.Enrollment{
		enrollKey("class-1", "stu-1"): {ID: "enr-1", ClassID: "class-1", StudentID: "stu-1"},
	}}
	users := &mockUserReader{users: map[string]models.User{"stu-1": activeStudent("stu-1")}}
	classes := &mockClassStatusRepo{classes: map[string]models.Class{"class-1": {ID: "class-1"}}}
	svc := NewEnrollmentService(repo, users, &mockProfileReader{}, classes, &mockPersonRegistry{}, nil)

	_, err := svc.Enroll(context.Background(), "class-1", "stu-1")
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrConflict.Code, appErrors.FromError(err).Code)
}

func TestEnrollmentServiceEnrollCleansUpPersonOnFaceFailure(t *testing.T) {
	users := &mockUserReader{users: map[string]models.User{"stu-1": activeStudent("stu-1")}}
	profiles := &mockProfileReader{profiles: map[string]models.FacialProfileDetail{"stu-1": profileWith("https://cdn/a.jpg")}}
	classes := &mockClassStatusRepo{classes: map[string]models.Class{"class-1": {ID: "class-1"}}}
	registry := &mockPersonRegistry{nextPersonID: "person-42", failAddFace: true}
	svc := NewEnrollmentService(&mockEnrollmentRepo{}, users, profiles, classes, registry, zap.NewNop())

	_, err := svc.Enroll(context.Background(), "class-1", "stu-1")
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrService.Code, appErrors.FromError(err).Code)
	assert.Equal(t, []string{"person-42"}, registry.deleted)
}

func TestEnrollmentServiceUnenrollPurgesHistoryAndResetsTraining(t *testing.T) {
	repo := &mockEnrollmentRepo{enrollments: map[string]models.Enrollment{
		enrollKey("class-1", "stu-1"): {ID: "enr-1", ClassID: "class-1", StudentID: "stu-1", PersonID: "person-42"},
	}}
	classes := &mockClassStatusRepo{classes: map[string]models.Class{"class-1": {ID: "class-1", TrainingStatus: models.TrainingStatusTrained}}}
	registry := &mockPersonRegistry{}
	svc := NewEnrollmentService(repo, &mockUserReader{}, &mockProfileReader{}, classes, registry, zap.NewNop())

	require.NoError(t, svc.Unenroll(context.Background(), "class-1", "stu-1"))
	assert.Equal(t, []string{"person-42"}, registry.deleted)
	assert.Equal(t, []string{"class-1:stu-1"}, repo.deleted)
	assert.Equal(t, models.TrainingStatusUntrained, classes.classes["class-1"].TrainingStatus)
}

func TestEnrollmentServiceUnenrollUnknownEnrollment(t *testing.T) {
	svc := NewEnrollmentService(&mockEnrollmentRepo{}, &mockUserReader{}, &mockProfileReader{}, &mockClassStatusRepo{}, &mockPersonRegistry{}, nil)

	err := svc.Unenroll(context.Background(), "class-1", "stu-ghost")
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrNotFound.Code, appErrors.FromError(err).Code)
}
