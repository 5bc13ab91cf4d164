package api

import (
	"net/http"

	"receiving-service/internal/models"
	"receiving-service/internal/reconcile"

	"github.com/gin-gonic/gin"
)

func (h *Handler) listImports(c *gin.Context) {
	records, err := h.ledger.ListAll(c.Request.Context())
	if err != nil {
		h.respondError(c, "Failed to list import records", err)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"records": models.WithStatus(records),
	})
}

func (h *Handler) getImport(c *gin.Context) {
	id, ok := parseID(c, "id")
	if !ok {
		return
	}

	record, err := h.ledger.Get(c.Request.Context(), id)
	if err != nil {
		h.respondError(c, "Import record not found", err)
		return
	}
	c.JSON(http.StatusOK, models.ListedRecord{ImportRecord: *record, Status: record.Status()})
}

func (h *Handler) updateImport(c *gin.Context) {
	id, ok := parseID(c, "id")
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

	record, err := h.ledger.UpdateFromForm(c.Request.Context(), id, form)
	if err != nil {
		h.respondError(c, "Failed to update import record", err)
		return
	}
	c.JSON(http.StatusOK, models.ListedRecord{ImportRecord: record, Status: record.Status()})
}

func (h *Handler) deleteImport(c *gin.Context) {
	id, ok := parseID(c, "id")
	if !ok {
		return
	}

	if err := h.ledger.Delete(c.Request.Context(), id); err != nil {
		h.respondError(c, "Failed to delete import record", err)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"status":    "deleted",
		"record_id": id,
	})
}
