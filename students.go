package main

import (
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/buretifund/bursary_backend/config"
	"github.com/buretifund/bursary_backend/models"
	"github.com/buretifund/bursary_backend/utils"
	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"
	"github.com/shopspring/decimal"
	"github.com/xuri/excelize/v2"
)

// respondError maps domain errors to HTTP. Validation problems are the
// caller's to fix and are never logged as server faults.
func respondError(c *gin.Context, moduleName string, funcName string, err error) {
	if ve, ok := utils.AsValidationError(err); ok {
		c.JSON(http.StatusBadRequest, gin.H{"errors": map[string]string(ve)})
		return
	}
	if ce, ok := utils.AsConflictError(err); ok {
		c.JSON(http.StatusConflict, gin.H{"detail": ce.Detail})
		return
	}
	if errors.Is(err, utils.ErrorRecordNotFound) {
		c.JSON(http.StatusNotFound, gin.H{"detail": "record not found"})
		return
	}
	var data map[string]any
	if requestId, ok := utils.GetCorrelationIdFromContext(c.Request.Context()); ok {
		data = map[string]any{"requestId": requestId}
	}
	config.LogError(config.GetLogger(), moduleName, funcName, c.FullPath(), data, err)
	c.JSON(http.StatusInternalServerError, gin.H{"detail": "internal server error"})
}

func bindJSON(c *gin.Context, dest any) bool {
	if err := c.ShouldBindJSON(dest); err != nil {
		var ve validator.ValidationErrors
		if errors.As(err, &ve) {
			c.JSON(http.StatusBadRequest, gin.H{"errors": utils.ProcessValidationErrors(err)})
		} else {
			c.JSON(http.StatusBadRequest, gin.H{"detail": "invalid request body"})
		}
		return false
	}
	return true
}

func idParam(c *gin.Context) (int, bool) {
	id, err := strconv.Atoi(c.Param("id"))
	if err != nil || id <= 0 {
		c.JSON(http.StatusBadRequest, gin.H{"detail": "invalid id"})
		return 0, false
	}
	return id, true
}

func studentFilterFromQuery(c *gin.Context) models.StudentFilter {
	filter := models.StudentFilter{
		Name:           c.Query("name"),
		RegistrationNo: c.Query("registration_no"),
		Institution:    c.Query("institution"),
		Ward:           models.Ward(c.Query("ward")),
		EducationLevel: models.EducationLevel(c.Query("education_level")),
		Status:         models.AllocationStatus(c.Query("status")),
		SmsStatus:      models.SmsStatus(c.Query("sms_status")),
		Year:           models.StudyYear(c.Query("year")),
		Search:         c.Query("search"),
	}
	if v := c.Query("min_amount"); v != "" {
		if d, err := decimal.NewFromString(v); err == nil {
			filter.MinAmount = &d
		}
	}
	if v := c.Query("max_amount"); v != "" {
		if d, err := decimal.NewFromString(v); err == nil {
			filter.MaxAmount = &d
		}
	}
	if v := c.Query("date_applied_after"); v != "" {
		if t, err := time.Parse("2006-01-02", v); err == nil {
			filter.AppliedAfter = &t
		}
	}
	if v := c.Query("date_applied_before"); v != "" {
		if t, err := time.Parse("2006-01-02", v); err == nil {
			filter.AppliedBefore = &t
		}
	}
	if v := c.Query("limit"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			filter.Limit = n
		}
	}
	if v := c.Query("offset"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			filter.Offset = n
		}
	}
	return filter
}

func listStudentsHandler(c *gin.Context) {
	students, err := models.ListStudents(c.Request.Context(), studentFilterFromQuery(c))
	if err != nil {
		respondError(c, "students.go", "listStudentsHandler", err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"results": students, "count": len(students)})
}

func createStudentHandler(c *gin.Context) {
	var input models.NewStudent
	if !bindJSON(c, &input) {
		return
	}
	student, err := models.CreateStudent(c.Request.Context(), &input)
	if err != nil {
		respondError(c, "students.go", "createStudentHandler", err)
		return
	}
	c.JSON(http.StatusCreated, student)
}

func getStudentHandler(c *gin.Context) {
	id, ok := idParam(c)
	if !ok {
		return
	}
	student, err := models.GetStudent(c.Request.Context(), id)
	if err != nil {
		respondError(c, "students.go", "getStudentHandler", err)
		return
	}
	c.JSON(http.StatusOK, student)
}

func updateStudentHandler(c *gin.Context) {
	id, ok := idParam(c)
	if !ok {
		return
	}
	var input models.NewStudent
	if !bindJSON(c, &input) {
		return
	}
	student, err := models.UpdateStudent(c.Request.Context(), id, &input)
	if err != nil {
		respondError(c, "students.go", "updateStudentHandler", err)
		return
	}
	c.JSON(http.StatusOK, student)
}

func deleteStudentHandler(c *gin.Context) {
	id, ok := idParam(c)
	if !ok {
		return
	}
	if err := models.DeleteStudent(c.Request.Context(), id); err != nil {
		respondError(c, "students.go", "deleteStudentHandler", err)
		return
	}
	c.Status(http.StatusNoContent)
}

func approveStudentHandler(c *gin.Context) {
	id, ok := idParam(c)
	if !ok {
		return
	}
	student, err := models.TransitionStatus(c.Request.Context(), id, models.AllocationStatusApproved, "")
	if err != nil {
		respondError(c, "students.go", "approveStudentHandler", err)
		return
	}
	c.JSON(http.StatusOK, student)
}

type rejectRequest struct {
	Reason string `json:"reason"`
}

func rejectStudentHandler(c *gin.Context) {
	id, ok := idParam(c)
	if !ok {
		return
	}
	var req rejectRequest
	if !bindJSON(c, &req) {
		return
	}
	student, err := models.TransitionStatus(c.Request.Context(), id, models.AllocationStatusRejected, req.Reason)
	if err != nil {
		respondError(c, "students.go", "rejectStudentHandler", err)
		return
	}
	c.JSON(http.StatusOK, student)
}

func disburseStudentHandler(c *gin.Context) {
	id, ok := idParam(c)
	if !ok {
		return
	}
	student, err := models.TransitionStatus(c.Request.Context(), id, models.AllocationStatusDisbursed, "")
	if err != nil {
		respondError(c, "students.go", "disburseStudentHandler", err)
		return
	}
	c.JSON(http.StatusOK, student)
}

func studentStatisticsHandler(c *gin.Context) {
	stats, err := models.GetStudentStatistics(c.Request.Context())
	if err != nil {
		respondError(c, "students.go", "studentStatisticsHandler", err)
		return
	}
	c.JSON(http.StatusOK, stats)
}

func exportStudentsHandler(c *gin.Context) {
	students, err := models.ListStudents(c.Request.Context(), studentFilterFromQuery(c))
	if err != nil {
		respondError(c, "students.go", "exportStudentsHandler", err)
		return
	}

	f := excelize.NewFile()
	defer f.Close()
	sheet := "Students"
	f.SetSheetName("Sheet1", sheet)

	headers := []string{
		"ID", "Name", "Registration No", "Phone", "Guardian Phone",
		"Education Level", "Institution", "Course", "Year", "Ward",
		"Amount", "Status", "SMS Status", "Date Applied", "Date Processed",
	}
	for i, h := range headers {
		cell, _ := excelize.CoordinatesToCellName(i+1, 1)
		f.SetCellValue(sheet, cell, h)
	}

	for row, s := range students {
		processed := ""
		if s.DateProcessed != nil {
			processed = s.DateProcessed.Format("2006-01-02")
		}
		values := []any{
			s.ID, s.Name, s.RegistrationNo, s.Phone, s.GuardianPhone,
			s.EducationLevel.Display(), s.Institution, s.Course, string(s.Year), string(s.Ward),
			s.Amount.StringFixed(2), s.Status.Display(), s.SmsStatus.Display(),
			s.DateApplied.Format("2006-01-02"), processed,
		}
		for col, v := range values {
			cell, _ := excelize.CoordinatesToCellName(col+1, row+2)
			f.SetCellValue(sheet, cell, v)
		}
	}

	filename := fmt.Sprintf("students-%s.xlsx", time.Now().Format("2006-01-02"))
	c.Header("Content-Disposition", fmt.Sprintf("attachment; filename=%q", filename))
	c.Header("Content-Type", "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet")
	if err := f.Write(c.Writer); err != nil {
		config.LogError(config.GetLogger(), "students.go", "exportStudentsHandler", "excelize.Write", nil, err)
	}
}
