package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/xuanlam2007/scholium/internal/controller/middleware"
)

type scholiumNameRequest struct {
	Name string `json:"name" binding:"required,max=100"`
}

type joinRequest struct {
	AccessID string `json:"access_id" binding:"required,len=8,alphanum"`
}

type transferHostRequest struct {
	UserID string `json:"user_id" binding:"required,uuid"`
}

// CreateScholium POST /api/scholiums
func (h *Handlers) CreateScholium(c *gin.Context) {
	var req scholiumNameRequest
	if !bindJSON(c, &req) {
		return
	}
	details, err := h.scholiums.Create(c.Request.Context(), middleware.UserID(c), req.Name)
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusCreated, details)
}

// ListScholiums GET /api/scholiums
func (h *Handlers) ListScholiums(c *gin.Context) {
	list, err := h.scholiums.ListForUser(c.Request.Context(), middleware.UserID(c))
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"scholiums": list})
}

// JoinScholium POST /api/scholiums/join
func (h *Handlers) JoinScholium(c *gin.Context) {
	var req joinRequest
	if !bindJSON(c, &req) {
		return
	}
	scholium, err := h.scholiums.Join(c.Request.Context(), middleware.UserID(c), req.AccessID)
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, scholium)
}

// GetScholium GET /api/scholiums/:id
func (h *Handlers) GetScholium(c *gin.Context) {
	id, ok := paramID(c, "id")
	if !ok {
		return
	}
	details, err := h.scholiums.Details(c.Request.Context(), id, middleware.UserID(c))
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, details)
}

// RenameScholium PATCH /api/scholiums/:id
func (h *Handlers) RenameScholium(c *gin.Context) {
	id, ok := paramID(c, "id")
	if !ok {
		return
	}
	var req scholiumNameRequest
	if !bindJSON(c, &req) {
		return
	}
	if err := h.scholiums.Rename(c.Request.Context(), id, middleware.UserID(c), req.Name); err != nil {
		h.fail(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

// RenewAccessID POST /api/scholiums/:id/access-id
func (h *Handlers) RenewAccessID(c *gin.Context) {
	id, ok := paramID(c, "id")
	if !ok {
		return
	}
	accessID, err := h.scholiums.RenewAccessID(c.Request.Context(), id, middleware.UserID(c))
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"access_id": accessID})
}

// DeleteScholium DELETE /api/scholiums/:id
func (h *Handlers) DeleteScholium(c *gin.Context) {
	id, ok := paramID(c, "id")
	if !ok {
		return
	}
	if err := h.scholiums.Delete(c.Request.Context(), id, middleware.UserID(c)); err != nil {
		h.fail(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

// TransferHost POST /api/scholiums/:id/host
func (h *Handlers) TransferHost(c *gin.Context) {
	id, ok := paramID(c, "id")
	if !ok {
		return
	}
	var req transferHostRequest
	if !bindJSON(c, &req) {
		return
	}
	newHost, err := uuid.Parse(req.UserID)
	if err != nil {
		badRequest(c, "invalid user_id")
		return
	}
	if err := h.members.TransferHost(c.Request.Context(), id, middleware.UserID(c), newHost); err != nil {
		h.fail(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}
