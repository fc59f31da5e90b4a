package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/uniwatch/uniwatch-api/internal/models"
	"github.com/uniwatch/uniwatch-api/internal/service"
	appErrors "github.com/uniwatch/uniwatch-api/pkg/errors"
	"github.com/uniwatch/uniwatch-api/pkg/response"
)

// ClassHandler exposes class lifecycle endpoints.
type ClassHandler struct {
	service *service.ClassService
}

// NewClassHandler constructs a class handler.
func NewClassHandler(svc *service.ClassService) *ClassHandler {
	return &ClassHandler{service: svc}
}

// List returns the caller's classes: owned classes for teachers, enrolled
// classes for students.
func (h *ClassHandler) List(c *gin.Context) {
	claims := claimsFromContext(c)
	if claims == nil {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}

	var (
		classes []models.Class
		err     error
	)
	if claims.Role == models.RoleStudent {
		classes, err = h.service.ListForStudent(c.Request.Context(), claims.UserID)
	} else {
		classes, err = h.service.ListForTeacher(c.Request.Context(), claims.UserID)
	}
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, classes, nil)
}

// Get returns one class with teacher info.
func (h *ClassHandler) Get(c *gin.Context) {
	detail, err := h.service.Get(c.Request.Context(), c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, detail, nil)
}

// Create registers a new class owned by the caller.
func (h *ClassHandler) Create(c *gin.Context) {
	claims := claimsFromContext(c)
	if claims == nil {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}
	var req service.CreateClassRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid payload"))
		return
	}
	class, err := h.service.Create(c.Request.Context(), claims.UserID, req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, class)
}

// Train starts recognizer training for the class roster.
func (h *ClassHandler) Train(c *gin.Context) {
	class, err := h.service.Train(c.Request.Context(), c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusAccepted, class, nil)
}

// Delete removes a class and everything recorded under it.
func (h *ClassHandler) Delete(c *gin.Context) {
	if err := h.service.Delete(c.Request.Context(), c.Param("id")); err != nil {
		response.Error(c, err)
		return
	}
	response.NoContent(c)
}
