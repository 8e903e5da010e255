package handlers

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/xuanlam2007/scholium/internal/controller/common"
	"github.com/xuanlam2007/scholium/internal/controller/middleware"
	"github.com/xuanlam2007/scholium/internal/model"
	"github.com/xuanlam2007/scholium/internal/service"
	"github.com/xuanlam2007/scholium/internal/timeslot"
)

type replaceSlotsRequest struct {
	Slots []model.TimeSlot `json:"slots" binding:"required"`
}

type editSlotRequest struct {
	Field string `json:"field" binding:"required,oneof=start end"`
	Value string `json:"value" binding:"required"`
}

func slotIndex(c *gin.Context) (int, bool) {
	index, err := strconv.Atoi(c.Param("index"))
	if err != nil || index < 0 {
		badRequest(c, "invalid index")
		return 0, false
	}
	return index, true
}

// requireMember общий шаг чтения: только участники видят данные группы
func (h *Handlers) requireMember(c *gin.Context, scholiumID int64) bool {
	member, err := h.members.CheckMembership(c.Request.Context(), scholiumID, middleware.UserID(c))
	if err != nil {
		h.fail(c, err)
		return false
	}
	if !member {
		h.fail(c, service.ErrNotMember)
		return false
	}
	return true
}

func (h *Handlers) respondSlots(c *gin.Context, slots []model.TimeSlot, err error) {
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"slots": slots})
}

// GetSlots GET /api/scholiums/:id/timeslots
func (h *Handlers) GetSlots(c *gin.Context) {
	id, ok := paramID(c, "id")
	if !ok || !h.requireMember(c, id) {
		return
	}
	c.JSON(http.StatusOK, gin.H{"slots": h.timeSlots.GetSlots(c.Request.Context(), id)})
}

// ReplaceSlots PUT /api/scholiums/:id/timeslots
func (h *Handlers) ReplaceSlots(c *gin.Context) {
	id, ok := paramID(c, "id")
	if !ok {
		return
	}
	var req replaceSlotsRequest
	if !bindJSON(c, &req) {
		return
	}
	slots, err := h.timeSlots.ReplaceSlots(c.Request.Context(), id, req.Slots, middleware.UserID(c))
	h.respondSlots(c, slots, err)
}

// AddSlot POST /api/scholiums/:id/timeslots
func (h *Handlers) AddSlot(c *gin.Context) {
	id, ok := paramID(c, "id")
	if !ok {
		return
	}
	slots, err := h.timeSlots.AddSlot(c.Request.Context(), id, middleware.UserID(c))
	h.respondSlots(c, slots, err)
}

// EditSlot PATCH /api/scholiums/:id/timeslots/:index
func (h *Handlers) EditSlot(c *gin.Context) {
	id, ok := paramID(c, "id")
	if !ok {
		return
	}
	index, ok := slotIndex(c)
	if !ok {
		return
	}
	var req editSlotRequest
	if !bindJSON(c, &req) {
		return
	}
	slots, err := h.timeSlots.EditSlot(c.Request.Context(), id, index, timeslot.Field(req.Field), req.Value, middleware.UserID(c))
	h.respondSlots(c, slots, err)
}

// RemoveSlot DELETE /api/scholiums/:id/timeslots/:index
func (h *Handlers) RemoveSlot(c *gin.Context) {
	id, ok := paramID(c, "id")
	if !ok {
		return
	}
	index, ok := slotIndex(c)
	if !ok {
		return
	}
	slots, err := h.timeSlots.RemoveSlot(c.Request.Context(), id, index, middleware.UserID(c))
	h.respondSlots(c, slots, err)
}

// Timetable GET /api/scholiums/:id/timetable.png
func (h *Handlers) Timetable(c *gin.Context) {
	id, ok := paramID(c, "id")
	if !ok {
		return
	}
	ctx := c.Request.Context()
	actor := middleware.UserID(c)

	details, err := h.scholiums.Details(ctx, id, actor)
	if err != nil {
		h.fail(c, err)
		return
	}
	homework, err := h.homework.List(ctx, id, actor)
	if err != nil {
		h.fail(c, err)
		return
	}
	subjects, err := h.subjects.List(ctx, id, actor)
	if err != nil {
		h.fail(c, err)
		return
	}

	png, err := common.GenerateTimetableImage(common.Timetable{
		Title:    details.Name,
		Week:     h.now(),
		Slots:    details.Slots,
		Homework: homework,
		Subjects: subjects,
	})
	if err != nil {
		h.fail(c, err)
		return
	}
	c.Data(http.StatusOK, "image/png", png)
}
