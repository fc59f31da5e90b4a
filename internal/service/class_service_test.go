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

type mockClassRepo struct {
	classes    map[string]models.Class
	identities map[string]bool
	deleted    []string
	statuses   []models.TrainingStatus
}

func (m *mockClassRepo) FindByID(ctx context.Context, id string) (*models.Class, error) {
	if c, ok := m.classes[id]; ok {
		return &c, nil
	}
	return nil, sql.ErrNoRows
}

func (m *mockClassRepo) FindDetailByID(ctx context.Context, id string) (*models.ClassDetail, error) {
	if c, ok := m.classes[id]; ok {
		return &models.ClassDetail{Class: c}, nil
	}
	return nil, sql.ErrNoRows
}

func (m *mockClassRepo) ListByTeacher(ctx context.Context, teacherID string) ([]models.Class, error) {
	var out []models.Class
	for _, c := range m.classes {
		if c.TeacherID == teacherID {
			out = append(out, c)
		}
	}
	return out, nil
}

func (m *mockClassRepo) ListByStudent(ctx context.Context, studentID string) ([]models.Class, error) {
	return nil, nil
}

func (m *mockClassRepo) ExistsIdentity(ctx context.Context, name string, number int, section string, semester models.Semester, year int, teacherID string) (bool, error) {
	return m.identities[name], nil
}

func (m *mockClassRepo) Create(ctx context.Context, class *models.Class) error {
	if m.classes == nil {
		m.classes = map[string]models.Class{}
	}
	if class.ID == "" {
		class.ID = "class-new"
	}
	m.classes[class.ID] = *class
	return nil
}

func (m *mockClassRepo) UpdateTrainingStatus(ctx context.Context, id string, status, expect models.TrainingStatus) error {
	if c, ok := m.classes[id]; ok {
		if expect == "" || c.TrainingStatus == expect {
			c.TrainingStatus = status
			m.classes[id] = c
		}
	}
	m.statuses = append(m.statuses, status)
	return nil
}

func (m *mockClassRepo) Delete(ctx context.Context, id string) error {
	m.deleted = append(m.deleted, id)
	delete(m.classes, id)
	return nil
}

type mockGroupRegistry struct {
	created  []string
	deleted  []string
	failNext bool
}

func (m *mockGroupRegistry) CreateGroup(ctx context.Context, groupID, name string) error {
	if m.failNext {
		return errors.New("group create failed")
	}
	m.created = append(m.created, groupID)
	return nil
}

func (m *mockGroupRegistry) DeleteGroup(ctx context.Context, groupID string) error {
	m.deleted = append(m.deleted, groupID)
	return nil
}

type mockScheduler struct {
	scheduled []string
	err       error
}

func (m *mockScheduler) Schedule(classID string) error {
	if m.err != nil {
		return m.err
	}
	m.scheduled = append(m.scheduled, classID)
	return nil
}

func validClassRequest() CreateClassRequest {
	return CreateClassRequest{Name: "Operating Systems", Number: 451, Section: "001", Semester: models.SemesterFall, Year: 2026}
}

func TestClassServiceCreateProvisionsGroup(t *testing.T) {
	repo := &mockClassRepo{}
	registry := &mockGroupRegistry{}
	svc := NewClassService(repo, &mockRoster{}, registry, &mockScheduler{}, nil, zap.NewNop())

	class, err := svc.Create(context.Background(), "teacher-1", validClassRequest())
	require.NoError(t, err)
	assert.Equal(t, models.TrainingStatusUntrained, class.TrainingStatus)
	assert.Equal(t, "teacher-1", class.TeacherID)
	assert.Equal(t, []string{class.ID}, registry.created)
}

func TestClassServiceCreateDuplicateConflicts(t *testing.T) {
	repo := &mockClassRepo{identities: map[string]bool{"Operating Systems": true}}
	svc := NewClassService(repo, &mockRoster{}, &mockGroupRegistry{}, &mockScheduler{}, nil, nil)

	_, err := svc.Create(context.Background(), "teacher-1", validClassRequest())
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrConflict.Code, appErrors.FromError(err).Code)
}

func TestClassServiceCreateRollsBackOnGroupFailure(t *testing.T) {
	repo := &mockClassRepo{}
	registry := &mockGroupRegistry{failNext: true}
	svc := NewClassService(repo, &mockRoster{}, registry, &mockScheduler{}, nil, zap.NewNop())

	_, err := svc.Create(context.Background(), "teacher-1", validClassRequest())
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrService.Code, appErrors.FromError(err).Code)
	assert.Len(t, repo.deleted, 1)
}

func TestClassServiceCreateRejectsBadSemester(t *testing.T) {
	svc := NewClassService(&mockClassRepo{}, &mockRoster{}, &mockGroupRegistry{}, &mockScheduler{}, nil, nil)

	req := validClassRequest()
	req.Semester = "WINTER"
	_, err := svc.Create(context.Background(), "teacher-1", req)
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrValidation.Code, appErrors.FromError(err).Code)
}

func TestClassServiceTrainMovesToTrainingAndSchedules(t *testing.T) {
	repo := &mockClassRepo{classes: map[string]models.Class{"class-1": {ID: "class-1", TrainingStatus: models.TrainingStatusUntrained}}}
	roster := &mockRoster{byClass: map[string][]models.EnrollmentDetail{"class-1": {
		{Enrollment: models.Enrollment{StudentID: "stu-1"}},
	}}}
	scheduler := &mockScheduler{}
	svc := NewClassService(repo, roster, &mockGroupRegistry{}, scheduler, nil, zap.NewNop())

	class, err := svc.Train(context.Background(), "class-1")
	require.NoError(t, err)
	assert.Equal(t, models.TrainingStatusTraining, class.TrainingStatus)
	assert.Equal(t, []string{"class-1"}, scheduler.scheduled)
}

func TestClassServiceTrainEmptyRosterIsPrecondition(t *testing.T) {
	repo := &mockClassRepo{classes: map[string]models.Class{"class-1": {ID: "class-1"}}}
	svc := NewClassService(repo, &mockRoster{}, &mockGroupRegistry{}, &mockScheduler{}, nil, nil)

	_, err := svc.Train(context.Background(), "class-1")
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrPreconditionFailed.Code, appErrors.FromError(err).Code)
}

func TestClassServiceTrainWhileTrainingConflicts(t *testing.T) {
	repo := &mockClassRepo{classes: map[string]models.Class{"class-1": {ID: "class-1", TrainingStatus: models.TrainingStatusTraining}}}
	svc := NewClassService(repo, &mockRoster{}, &mockGroupRegistry{}, &mockScheduler{}, nil, nil)

	_, err := svc.Train(context.Background(), "class-1")
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrConflict.Code, appErrors.FromError(err).Code)
}

func TestClassServiceTrainRevertsWhenScheduleFails(t *testing.T) {
	repo := &mockClassRepo{classes: map[string]models.Class{"class-1": {ID: "class-1", TrainingStatus: models.TrainingStatusUntrained}}}
	roster := &mockRoster{byClass: map[string][]models.EnrollmentDetail{"class-1": {
		{Enrollment: models.Enrollment{StudentID: "stu-1"}},
	}}}
	svc := NewClassService(repo, roster, &mockGroupRegistry{}, &mockScheduler{err: errors.New("queue stopped")}, nil, zap.NewNop())

	_, err := svc.Train(context.Background(), "class-1")
	require.Error(t, err)
	assert.Equal(t, models.TrainingStatusUntrained, repo.classes["class-1"].TrainingStatus)
}

func TestClassServiceDeleteDropsGroupBestEffort(t *testing.T) {
	repo := &mockClassRepo{classes: map[string]models.Class{"class-1": {ID: "class-1"}}}
	registry := &mockGroupRegistry{}
	svc := NewClassService(repo, &mockRoster{}, registry, &mockScheduler{}, nil, zap.NewNop())

	require.NoError(t, svc.Delete(context.Background(), "class-1"))
	assert.Equal(t, []string{"class-1"}, repo.deleted)
	assert.Equal(t, []string{"class-1"}, registry.deleted)
}
