package handlers

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/xuanlam2007/scholium/internal/controller/middleware"
	"github.com/xuanlam2007/scholium/internal/model"
	"github.com/xuanlam2007/scholium/internal/service"
)

type homeworkRequest struct {
	SubjectID    *int64    `json:"subject_id"`
	Title        string    `json:"title" binding:"required,max=200"`
	Description  string    `json:"description" binding:"max=2000"`
	DueDate      time.Time `json:"due_date" binding:"required"`
	HomeworkType string    `json:"homework_type" binding:"omitempty,oneof=homework test project"`
	StartTime    *string   `json:"start_time" binding:"omitempty,clock"`
	EndTime      *string   `json:"end_time" binding:"omitempty,clock"`
}

func (r homeworkRequest) input() service.HomeworkInput {
	return service.HomeworkInput{
		SubjectID:    r.SubjectID,
		Title:        r.Title,
		Description:  r.Description,
		DueDate:      r.DueDate,
		HomeworkType: model.HomeworkType(r.HomeworkType),
		StartTime:    r.StartTime,
		EndTime:      r.EndTime,
	}
}

type subjectRequest struct {
	Name  string `json:"name" binding:"required,max=100"`
	Color string `json:"color" binding:"omitempty,hexcolor"`
}

// ============ Задания ============

// ListHomework GET /api/scholiums/:id/homework
func (h *Handlers) ListHomework(c *gin.Context) {
	id, ok := paramID(c, "id")
	if !ok {
		return
	}
	list, err := h.homework.List(c.Request.Context(), id, middleware.UserID(c))
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"homework": list})
}

// UpcomingHomework GET /api/scholiums/:id/homework/upcoming
func (h *Handlers) UpcomingHomework(c *gin.Context) {
	id, ok := paramID(c, "id")
	if !ok {
		return
	}
	list, err := h.homework.Upcoming(c.Request.Context(), id, middleware.UserID(c), h.now())
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"homework": list})
}

// CreateHomework POST /api/scholiums/:id/homework
func (h *Handlers) CreateHomework(c *gin.Context) {
	id, ok := paramID(c, "id")
	if !ok {
		return
	}
	var req homeworkRequest
	if !bindJSON(c, &req) {
		return
	}
	hw, err := h.homework.Create(c.Request.Context(), id, middleware.UserID(c), req.input())
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusCreated, hw)
}

// UpdateHomework PUT /api/scholiums/:id/homework/:hid
func (h *Handlers) UpdateHomework(c *gin.Context) {
	id, ok := paramID(c, "id")
	if !ok {
		return
	}
	homeworkID, ok := paramID(c, "hid")
	if !ok {
		return
	}
	var req homeworkRequest
	if !bindJSON(c, &req) {
		return
	}
	hw, err := h.homework.Update(c.Request.Context(), id, homeworkID, middleware.UserID(c), req.input())
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, hw)
}

// DeleteHomework DELETE /api/scholiums/:id/homework/:hid
func (h *Handlers) DeleteHomework(c *gin.Context) {
	id, ok := paramID(c, "id")
	if !ok {
		return
	}
	homeworkID, ok := paramID(c, "hid")
	if !ok {
		return
	}
	if err := h.homework.Delete(c.Request.Context(), id, homeworkID, middleware.UserID(c)); err != nil {
		h.fail(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

// ToggleCompletion POST /api/scholiums/:id/homework/:hid/completion
func (h *Handlers) ToggleCompletion(c *gin.Context) {
	id, ok := paramID(c, "id")
	if !ok {
		return
	}
	homeworkID, ok := paramID(c, "hid")
	if !ok {
		return
	}
	completed, err := h.homework.ToggleCompletion(c.Request.Context(), id, homeworkID, middleware.UserID(c))
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"completed": completed})
}

// ============ Предметы ============

// ListSubjects GET /api/scholiums/:id/subjects
func (h *Handlers) ListSubjects(c *gin.Context) {
	id, ok := paramID(c, "id")
	if !ok {
		return
	}
	list, err := h.subjects.List(c.Request.Context(), id, middleware.UserID(c))
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"subjects": list})
}

// CreateSubject POST /api/scholiums/:id/subjects
func (h *Handlers) CreateSubject(c *gin.Context) {
	id, ok := paramID(c, "id")
	if !ok {
		return
	}
	var req subjectRequest
	if !bindJSON(c, &req) {
		return
	}
	subject, err := h.subjects.Create(c.Request.Context(), id, middleware.UserID(c), req.Name, req.Color)
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusCreated, subject)
}

// UpdateSubject PUT /api/scholiums/:id/subjects/:sid
func (h *Handlers) UpdateSubject(c *gin.Context) {
	id, ok := paramID(c, "id")
	if !ok {
		return
	}
	subjectID, ok := paramID(c, "sid")
	if !ok {
		return
	}
	var req subjectRequest
	if !bindJSON(c, &req) {
		return
	}
	subject, err := h.subjects.Update(c.Request.Context(), id, subjectID, middleware.UserID(c), req.Name, req.Color)
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, subject)
}

// DeleteSubject DELETE /api/scholiums/:id/subjects/:sid
func (h *Handlers) DeleteSubject(c *gin.Context) {
	id, ok := paramID(c, "id")
	if !ok {
		return
	}
	subjectID, ok := paramID(c, "sid")
	if !ok {
		return
	}
	if err := h.subjects.Delete(c.Request.Context(), id, subjectID, middleware.UserID(c)); err != nil {
		h.fail(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}
