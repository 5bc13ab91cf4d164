package api

import (
	"fmt"
	"net/http"

	"receiving-service/internal/models"
	"receiving-service/internal/reconcile"
	"receiving-service/internal/workflow"

	"github.com/gin-gonic/gin"
)

// ResolveRequest carries a typed or scanned code
type ResolveRequest struct {
	Code string `json:"code"`
}

func (h *Handler) session(c *gin.Context) (*workflow.Session, bool) {
	s, err := h.sessions.Get(c.Param("id"))
	if err != nil {
		h.respondError(c, "Session not found", err)
		return nil, false
	}
	return s, true
}

func (h *Handler) createSession(c *gin.Context) {
	s := h.sessions.Create()
	c.JSON(http.StatusCreated, s.View())
}

func (h *Handler) getSession(c *gin.Context) {
	s, ok := h.session(c)
	if !ok {
		return
	}

	resp := gin.H{"session": s.View()}
	if h.scans != nil {
		if st, found := h.scans.Status(s.ID); found {
			resp["scan"] = st
		}
	}
	c.JSON(http.StatusOK, resp)
}

func (h *Handler) deleteSession(c *gin.Context) {
	if err := h.sessions.Remove(c.Param("id")); err != nil {
		h.respondError(c, "Session not found", err)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"status": "closed",
	})
}

func (h *Handler) resolve(c *gin.Context) {
	s, ok := h.session(c)
	if !ok {
		return
	}

	var req ResolveRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"error":   "Invalid request body",
			"details": err.Error(),
		})
		return
	}

	if _, err := s.Resolve(c.Request.Context(), req.Code); err != nil {
		h.respondSessionError(c, s, "Product not found", err)
		return
	}
	c.JSON(http.StatusOK, s.View())
}

func (h *Handler) recompute(c *gin.Context) {
	s, ok := h.session(c)
	if !ok {
		return
	}

	var form reconcile.Form
	if err := c.ShouldBindJSON(&form); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"error":   "Invalid request body",
			"details": err.Error(),
		})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"qty_accepted": s.Recompute(form),
	})
}

func (h *Handler) selectRecord(c *gin.Context) {
	s, ok := h.session(c)
	if !ok {
		return
	}
	id, ok := parseID(c, "recordID")
	if !ok {
		return
	}

	if _, err := s.Select(c.Request.Context(), id); err != nil {
		h.respondSessionError(c, s, "Import record not found", err)
		return
	}
	c.JSON(http.StatusOK, s.View())
}

func (h *Handler) commit(c *gin.Context) {
	s, ok := h.session(c)
	if !ok {
		return
	}

	var form reconcile.Form
	if err := c.ShouldBindJSON(&form); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"error":   "Invalid request body",
			"details": err.Error(),
		})
		return
	}

	record, err := s.Commit(c.Request.Context(), form, c.GetHeader("Idempotency-Key"))
	if err != nil {
		h.respondSessionError(c, s, "Commit rejected", err)
		return
	}

	c.JSON(http.StatusCreated, gin.H{
		"record":  models.ListedRecord{ImportRecord: record, Status: record.Status()},
		"session": s.View(),
	})
}

func (h *Handler) deleteSelected(c *gin.Context) {
	s, ok := h.session(c)
	if !ok {
		return
	}

	if err := s.DeleteSelected(c.Request.Context()); err != nil {
		h.respondSessionError(c, s, "Delete rejected", err)
		return
	}
	c.JSON(http.StatusOK, s.View())
}

func (h *Handler) clearSession(c *gin.Context) {
	s, ok := h.session(c)
	if !ok {
		return
	}
	s.Clear()
	c.JSON(http.StatusOK, s.View())
}

func (h *Handler) startScan(c *gin.Context) {
	s, ok := h.session(c)
	if !ok {
		return
	}
	if h.scans == nil {
		h.respondError(c, "Scanner unavailable", fmt.Errorf("no capture device configured: %w", models.ErrResourceUnavailable))
		return
	}

	if err := h.scans.Start(s.ID, s); err != nil {
		h.respondError(c, "Scan not started", err)
		return
	}
	c.JSON(http.StatusAccepted, gin.H{
		"status": "scanning",
	})
}

func (h *Handler) scanStatus(c *gin.Context) {
	s, ok := h.session(c)
	if !ok {
		return
	}
	if h.scans == nil {
		h.respondError(c, "Scanner unavailable", fmt.Errorf("no capture device configured: %w", models.ErrResourceUnavailable))
		return
	}

	st, found := h.scans.Status(s.ID)
	if !found {
		c.JSON(http.StatusNotFound, gin.H{
			"error": "No scan for session",
		})
		return
	}
	c.JSON(http.StatusOK, st)
}

func (h *Handler) cancelScan(c *gin.Context) {
	s, ok := h.session(c)
	if !ok {
		return
	}
	if h.scans == nil {
		h.respondError(c, "Scanner unavailable", fmt.Errorf("no capture device configured: %w", models.ErrResourceUnavailable))
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"cancelled": h.scans.Cancel(s.ID),
	})
}

// respondSessionError reports err together with the session's current state
func (h *Handler) respondSessionError(c *gin.Context, s *workflow.Session, message string, err error) {
	h.respondErrorWith(c, message, err, gin.H{"session": s.View()})
}
