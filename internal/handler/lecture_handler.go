package handler

import (
	"io"
	"mime/multipart"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/uniwatch/uniwatch-api/internal/models"
	"github.com/uniwatch/uniwatch-api/internal/service"
	appErrors "github.com/uniwatch/uniwatch-api/pkg/errors"
	"github.com/uniwatch/uniwatch-api/pkg/response"
)

// LectureHandler exposes lecture recording and attendance endpoints.
type LectureHandler struct {
	service *service.LectureService
	metrics *service.MetricsService
}

// NewLectureHandler constructs a lecture handler.
func NewLectureHandler(svc *service.LectureService, metrics *service.MetricsService) *LectureHandler {
	return &LectureHandler{service: svc, metrics: metrics}
}

type overrideCorrection struct {
	StudentID string `json:"student_id" binding:"required"`
	Present   *bool  `json:"present" binding:"required"`
}

type overrideRequest struct {
	Corrections []overrideCorrection `json:"corrections" binding:"required,min=1,dive"`
}

// Record accepts a multipart upload of lecture photos under the "images"
// field and runs the attendance pipeline.
func (h *LectureHandler) Record(c *gin.Context) {
	form, err := c.MultipartForm()
	if err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid multipart payload"))
		return
	}
	files := form.File["images"]
	uploads, err := readUploads(files)
	if err != nil {
		response.Error(c, err)
		return
	}

	detail, err := h.service.Record(c.Request.Context(), c.Param("id"), uploads)
	if err != nil {
		response.Error(c, err)
		return
	}
	if h.metrics != nil {
		h.metrics.LectureRecorded()
	}
	response.Created(c, detail)
}

// List returns a class's lectures.
func (h *LectureHandler) List(c *gin.Context) {
	lectures, err := h.service.ListByClass(c.Request.Context(), c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, lectures, nil)
}

// Get returns one lecture with images and attendance.
func (h *LectureHandler) Get(c *gin.Context) {
	detail, err := h.service.Get(c.Request.Context(), c.Param("lectureId"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, detail, nil)
}

// Override applies manual presence corrections to an existing lecture.
func (h *LectureHandler) Override(c *gin.Context) {
	var req overrideRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid payload"))
		return
	}
	corrections := make([]models.AttendanceCorrection, 0, len(req.Corrections))
	for _, correction := range req.Corrections {
		corrections = append(corrections, models.AttendanceCorrection{
			StudentID: correction.StudentID,
			Present:   *correction.Present,
		})
	}
	detail, err := h.service.Override(c.Request.Context(), c.Param("lectureId"), corrections)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, detail, nil)
}

// Delete removes a lecture and its attendance rows.
func (h *LectureHandler) Delete(c *gin.Context) {
	if err := h.service.Delete(c.Request.Context(), c.Param("lectureId")); err != nil {
		response.Error(c, err)
		return
	}
	response.NoContent(c)
}

// readUploads drains multipart file headers into memory. Per-file size
// limits are enforced by the service layer.
func readUploads(files []*multipart.FileHeader) ([]service.ImageUpload, error) {
	uploads := make([]service.ImageUpload, 0, len(files))
	for _, header := range files {
		file, err := header.Open()
		if err != nil {
			return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "unreadable upload")
		}
		data, err := io.ReadAll(file)
		file.Close()
		if err != nil {
			return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "unreadable upload")
		}
		uploads = append(uploads, service.ImageUpload{
			Filename:    header.Filename,
			ContentType: header.Header.Get("Content-Type"),
			Data:        data,
		})
	}
	return uploads, nil
}
