package handler

import (
	"bytes"
	"context"
	"database/sql"
	"encoding/json"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/uniwatch/uniwatch-api/internal/models"
	"github.com/uniwatch/uniwatch-api/internal/service"
	"github.com/uniwatch/uniwatch-api/pkg/config"
	"github.com/uniwatch/uniwatch-api/pkg/storage"
)

type lectureRepoMock struct {
	lectures   map[string]models.Lecture
	saved      []models.StudentAttendance
	overridden []models.AttendanceCorrection
}

func (m *lectureRepoMock) CreateWithAttendance(ctx context.Context, lecture *models.Lecture, images []models.UploadedImage, attendance []models.StudentAttendance) error {
	if lecture.ID == "" {
		lecture.ID = "lec-1"
	}
	if m.lectures == nil {
		m.lectures = map[string]models.Lecture{}
	}
	m.lectures[lecture.ID] = *lecture
	m.saved = attendance
	return nil
}

func (m *lectureRepoMock) FindByID(ctx context.Context, id string) (*models.Lecture, error) {
	if l, ok := m.lectures[id]; ok {
		return &l, nil
	}
	return nil, sql.ErrNoRows
}

func (m *lectureRepoMock) FindDetailByID(ctx context.Context, id string) (*models.LectureDetail, error) {
	l, err := m.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}
	return &models.LectureDetail{Lecture: *l}, nil
}

func (m *lectureRepoMock) ListByClass(ctx context.Context, classID string) ([]models.Lecture, error) {
	return nil, nil
}

func (m *lectureRepoMock) OverrideAttendance(ctx context.Context, lectureID string, corrections []models.AttendanceCorrection) error {
	m.overridden = corrections
	return nil
}

func (m *lectureRepoMock) Delete(ctx context.Context, id string) error { return nil }

type classReaderMock struct {
	class models.Class
	err   error
}

func (m *classReaderMock) FindByID(ctx context.Context, id string) (*models.Class, error) {
	if m.err != nil {
		return nil, m.err
	}
	return &m.class, nil
}

type rosterMock struct {
	roster []models.EnrollmentDetail
}

func (m *rosterMock) ListByClass(ctx context.Context, classID string) ([]models.EnrollmentDetail, error) {
	return m.roster, nil
}

type blobStoreMock struct{}

func (blobStoreMock) Put(ctx context.Context, data []byte, filename string) (*storage.Blob, error) {
	return &storage.Blob{Name: "blob-1", URL: "https://cdn/blob-1"}, nil
}

func (blobStoreMock) Delete(ctx context.Context, name string) error { return nil }

type identifierMock struct {
	ids []string
}

func (m *identifierMock) DetectAndIdentify(ctx context.Context, groupID string, imageURLs []string) ([]string, error) {
	return m.ids, nil
}

func newLectureService(repo *lectureRepoMock, classes *classReaderMock, roster *rosterMock, ids []string) *service.LectureService {
	uploads := config.UploadsConfig{MaxFileSizeBytes: 1 << 20, AllowedMIMEs: []string{"image/jpeg", "image/png"}}
	return service.NewLectureService(repo, classes, roster, blobStoreMock{}, &identifierMock{ids: ids}, nil, uploads, nil)
}

func multipartBody(t *testing.T, field, filename, contentType string, data []byte) (*bytes.Buffer, string) {
	t.Helper()
	body := &bytes.Buffer{}
	writer := multipart.NewWriter(body)
	header := make(map[string][]string)
	header["Content-Disposition"] = []string{`form-data; name="` + field + `"; filename="` + filename + `"`}
	header["Content-Type"] = []string{contentType}
	part, err := writer.CreatePart(header)
	require.NoError(t, err)
	_, err = part.Write(data)
	require.NoError(t, err)
	require.NoError(t, writer.Close())
	return body, writer.FormDataContentType()
}

func TestLectureHandlerRecordCreatesLecture(t *testing.T) {
	gin.SetMode(gin.TestMode)
	repo := &lectureRepoMock{}
	classes := &classReaderMock{class: models.Class{ID: "class-1", TrainingStatus: models.TrainingStatusTrained}}
	roster := &rosterMock{roster: []models.EnrollmentDetail{
		{Enrollment: models.Enrollment{StudentID: "stu-1", PersonID: "person-1"}},
	}}
	h := NewLectureHandler(newLectureService(repo, classes, roster, []string{"person-1"}), nil)

	router := gin.New()
	router.POST("/classes/:id/lectures", h.Record)

	body, contentType := multipartBody(t, "images", "room.jpg", "image/jpeg", []byte{0xff, 0xd8})
	req := httptest.NewRequest(http.MethodPost, "/classes/class-1/lectures", body)
	req.Header.Set("Content-Type", contentType)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusCreated, w.Code)
	require.Len(t, repo.saved, 1)
	assert.True(t, repo.saved[0].Present)
}

func TestLectureHandlerRecordUntrainedClassIs412(t *testing.T) {
	gin.SetMode(gin.TestMode)
	classes := &classReaderMock{class: models.Class{ID: "class-1", TrainingStatus: models.TrainingStatusUntrained}}
	h := NewLectureHandler(newLectureService(&lectureRepoMock{}, classes, &rosterMock{}, nil), nil)

	router := gin.New()
	router.POST("/classes/:id/lectures", h.Record)

	body, contentType := multipartBody(t, "images", "room.jpg", "image/jpeg", []byte{0xff, 0xd8})
	req := httptest.NewRequest(http.MethodPost, "/classes/class-1/lectures", body)
	req.Header.Set("Content-Type", contentType)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusPreconditionFailed, w.Code)
	assert.Contains(t, w.Body.String(), "RECOGNIZER_NOT_READY")
}

func TestLectureHandlerRecordRejectsBadType(t *testing.T) {
	gin.SetMode(gin.TestMode)
	classes := &classReaderMock{class: models.Class{ID: "class-1", TrainingStatus: models.TrainingStatusTrained}}
	h := NewLectureHandler(newLectureService(&lectureRepoMock{}, classes, &rosterMock{}, nil), nil)

	router := gin.New()
	router.POST("/classes/:id/lectures", h.Record)

	body, contentType := multipartBody(t, "images", "notes.txt", "text/plain", []byte("hello"))
	req := httptest.NewRequest(http.MethodPost, "/classes/class-1/lectures", body)
	req.Header.Set("Content-Type", contentType)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestLectureHandlerOverride(t *testing.T) {
	gin.SetMode(gin.TestMode)
	repo := &lectureRepoMock{lectures: map[string]models.Lecture{"lec-1": {ID: "lec-1"}}}
	h := NewLectureHandler(newLectureService(repo, &classReaderMock{}, &rosterMock{}, nil), nil)

	router := gin.New()
	router.PATCH("/lectures/:lectureId/attendance", h.Override)

	present := true
	payload, _ := json.Marshal(overrideRequest{Corrections: []overrideCorrection{
		{StudentID: "stu-1", Present: &present},
	}})
	req := httptest.NewRequest(http.MethodPatch, "/lectures/lec-1/attendance", bytes.NewReader(payload))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusOK, w.Code)
	require.Len(t, repo.overridden, 1)
	assert.Equal(t, "stu-1", repo.overridden[0].StudentID)
	assert.True(t, repo.overridden[0].Present)
}

func TestLectureHandlerOverrideMissingPresentIs400(t *testing.T) {
	gin.SetMode(gin.TestMode)
	repo := &lectureRepoMock{lectures: map[string]models.Lecture{"lec-1": {ID: "lec-1"}}}
	h := NewLectureHandler(newLectureService(repo, &classReaderMock{}, &rosterMock{}, nil), nil)

	router := gin.New()
	router.PATCH("/lectures/:lectureId/attendance", h.Override)

	req := httptest.NewRequest(http.MethodPatch, "/lectures/lec-1/attendance", bytes.NewReader([]byte(`{"corrections":[{"student_id":"stu-1"}]}`)))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusBadRequest, w.Code)
}
