package handler

import (
	"fmt"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/uniwatch/uniwatch-api/internal/service"
	"github.com/uniwatch/uniwatch-api/pkg/response"
)

// ReportHandler exposes attendance report endpoints.
type ReportHandler struct {
	service *service.ReportService
}

// NewReportHandler constructs a report handler.
func NewReportHandler(svc *service.ReportService) *ReportHandler {
	return &ReportHandler{service: svc}
}

// ClassSummary returns per-student attendance totals for a class.
func (h *ReportHandler) ClassSummary(c *gin.Context) {
	report, err := h.service.ClassSummary(c.Request.Context(), c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, report, nil)
}

// StudentSummary returns one student's record across a class's lectures.
func (h *ReportHandler) StudentSummary(c *gin.Context) {
	rows, err := h.service.StudentSummary(c.Request.Context(), c.Param("id"), c.Param("studentId"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, rows, nil)
}

// ExportCSV streams the class attendance matrix as a CSV download.
func (h *ReportHandler) ExportCSV(c *gin.Context) {
	raw, err := h.service.ExportClassCSV(c.Request.Context(), c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	filename := fmt.Sprintf("attendance-%s.csv", c.Param("id"))
	c.Header("Content-Disposition", fmt.Sprintf("attachment; filename=%q", filename))
	c.Data(http.StatusOK, "text/csv", raw)
}

// ExportPDF streams the class attendance matrix as a PDF download.
func (h *ReportHandler) ExportPDF(c *gin.Context) {
	raw, err := h.service.ExportClassPDF(c.Request.Context(), c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	filename := fmt.Sprintf("attendance-%s.pdf", c.Param("id"))
	c.Header("Content-Disposition", fmt.Sprintf("attachment; filename=%q", filename))
	c.Data(http.StatusOK, "application/pdf", raw)
}
