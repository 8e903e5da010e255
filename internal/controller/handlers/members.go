package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/xuanlam2007/scholium/internal/controller/middleware"
	"github.com/xuanlam2007/scholium/internal/model"
)

type permissionsRequest struct {
	CanAddHomework   *bool `json:"can_add_homework" binding:"required"`
	CanCreateSubject *bool `json:"can_create_subject" binding:"required"`
}

type cohostRequest struct {
	IsCohost *bool `json:"is_cohost" binding:"required"`
}

// Membership GET /api/scholiums/:id/membership. Не-участник получает member=false, не 403.
func (h *Handlers) Membership(c *gin.Context) {
	id, ok := paramID(c, "id")
	if !ok {
		return
	}
	member, err := h.members.CheckMembership(c.Request.Context(), id, middleware.UserID(c))
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"member": member})
}

// ListMembers GET /api/scholiums/:id/members
func (h *Handlers) ListMembers(c *gin.Context) {
	id, ok := paramID(c, "id")
	if !ok {
		return
	}
	members, err := h.members.List(c.Request.Context(), id, middleware.UserID(c))
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"members": members})
}

// QuitScholium DELETE /api/scholiums/:id/members/me
func (h *Handlers) QuitScholium(c *gin.Context) {
	id, ok := paramID(c, "id")
	if !ok {
		return
	}
	if err := h.members.Quit(c.Request.Context(), id, middleware.UserID(c)); err != nil {
		h.fail(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

// RemoveMember DELETE /api/members/:memberId
func (h *Handlers) RemoveMember(c *gin.Context) {
	memberID, ok := paramID(c, "memberId")
	if !ok {
		return
	}
	if err := h.members.Remove(c.Request.Context(), memberID, middleware.UserID(c)); err != nil {
		h.fail(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

// UpdatePermissions PUT /api/members/:memberId/permissions
func (h *Handlers) UpdatePermissions(c *gin.Context) {
	memberID, ok := paramID(c, "memberId")
	if !ok {
		return
	}
	var req permissionsRequest
	if !bindJSON(c, &req) {
		return
	}
	perms := model.Permissions{
		CanAddHomework:   *req.CanAddHomework,
		CanCreateSubject: *req.CanCreateSubject,
	}
	if err := h.members.UpdatePermissions(c.Request.Context(), memberID, middleware.UserID(c), perms); err != nil {
		h.fail(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

// SetCohost PUT /api/members/:memberId/cohost
func (h *Handlers) SetCohost(c *gin.Context) {
	memberID, ok := paramID(c, "memberId")
	if !ok {
		return
	}
	var req cohostRequest
	if !bindJSON(c, &req) {
		return
	}
	if err := h.members.SetCohost(c.Request.Context(), memberID, middleware.UserID(c), *req.IsCohost); err != nil {
		h.fail(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}
