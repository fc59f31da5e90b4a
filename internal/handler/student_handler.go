package handler

import (
	"mime/multipart"
	"net/http"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/uniwatch/uniwatch-api/internal/service"
	appErrors "github.com/uniwatch/uniwatch-api/pkg/errors"
	"github.com/uniwatch/uniwatch-api/pkg/response"
)

// StudentHandler exposes the student directory and facial profile endpoints.
type StudentHandler struct {
	students *service.StudentService
	profiles *service.ProfileService
}

// NewStudentHandler constructs a student handler.
func NewStudentHandler(students *service.StudentService, profiles *service.ProfileService) *StudentHandler {
	return &StudentHandler{students: students, profiles: profiles}
}

// List returns active students matching the optional search term.
func (h *StudentHandler) List(c *gin.Context) {
	search := strings.TrimSpace(c.Query("search"))
	page, _ := strconv.Atoi(c.DefaultQuery("page", "1"))
	pageSize, _ := strconv.Atoi(c.DefaultQuery("limit", "20"))

	students, pagination, err := h.students.List(c.Request.Context(), search, page, pageSize)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, students, pagination)
}

// Get returns one student.
func (h *StudentHandler) Get(c *gin.Context) {
	student, err := h.students.Get(c.Request.Context(), c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, student, nil)
}

// GetProfile returns the student's facial profile with its images.
func (h *StudentHandler) GetProfile(c *gin.Context) {
	detail, err := h.profiles.Get(c.Request.Context(), c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, detail, nil)
}

// AddProfileImage uploads one face image under the "image" multipart field.
func (h *StudentHandler) AddProfileImage(c *gin.Context) {
	header, err := c.FormFile("image")
	if err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "image file is required"))
		return
	}
	uploads, err := readUploads([]*multipart.FileHeader{header})
	if err != nil {
		response.Error(c, err)
		return
	}

	detail, err := h.profiles.AddImage(c.Request.Context(), c.Param("id"), uploads[0])
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, detail)
}

// RemoveProfileImage detaches one image from the student's profile.
func (h *StudentHandler) RemoveProfileImage(c *gin.Context) {
	if err := h.profiles.RemoveImage(c.Request.Context(), c.Param("id"), c.Param("imageId")); err != nil {
		response.Error(c, err)
		return
	}
	response.NoContent(c)
}
