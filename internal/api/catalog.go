package api

import (
	"bytes"
	"errors"
	"io"
	"net/http"

	"receiving-service/internal/export"
	"receiving-service/internal/models"
	"receiving-service/internal/reconcile"
	"receiving-service/internal/util"

	"github.com/gin-gonic/gin"
)

// ProductFields are the editable attributes of a product
type ProductFields struct {
	SKU   string `json:"sku"`
	Brand string `json:"brand"`
	Name  string `json:"name"`
}

// WipeRequest carries the shared wipe passphrase
type WipeRequest struct {
	Passphrase string `json:"passphrase"`
}

func (h *Handler) getProduct(c *gin.Context) {
	product, err := h.catalog.FindByBarcode(c.Request.Context(), c.Param("barcode"))
	if err != nil {
		h.respondError(c, "Product not found", err)
		return
	}
	c.JSON(http.StatusOK, product)
}

func (h *Handler) createProduct(c *gin.Context) {
	var req models.Product
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"error":   "Invalid request body",
			"details": err.Error(),
		})
		return
	}

	outcome, err := h.catalog.CreateProduct(c.Request.Context(), req)
	if err != nil {
		h.respondError(c, "Failed to create product", err)
		return
	}

	status := http.StatusCreated
	if outcome == models.OutcomeIgnored {
		status = http.StatusOK
	}
	c.JSON(status, gin.H{
		"outcome": outcome,
		"barcode": req.Barcode,
	})
}

func (h *Handler) updateProduct(c *gin.Context) {
	var req ProductFields
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"error":   "Invalid request body",
			"details": err.Error(),
		})
		return
	}

	product := models.Product{Barcode: c.Param("barcode"), SKU: req.SKU, Brand: req.Brand, Name: req.Name}
	if err := h.catalog.UpdateProduct(c.Request.Context(), product); err != nil {
		h.respondError(c, "Failed to update product", err)
		return
	}

	updated, _ := reconcile.ValidateProduct(product)
	c.JSON(http.StatusOK, updated)
}

// importProducts accepts a CSV either as the "file" form field or as the raw body
func (h *Handler) importProducts(c *gin.Context) {
	var body io.Reader = c.Request.Body
	if fh, err := c.FormFile("file"); err == nil {
		f, err := fh.Open()
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{
				"error":   "Invalid upload",
				"details": err.Error(),
			})
			return
		}
		defer f.Close()
		body = f
	}

	summary, err := h.catalog.ImportCSV(c.Request.Context(), body)
	if err != nil {
		if summary == nil {
			c.JSON(http.StatusBadRequest, gin.H{
				"error":   "Invalid CSV",
				"details": err.Error(),
			})
			return
		}
		h.respondError(c, "Product import failed", err)
		return
	}
	c.JSON(http.StatusOK, summary)
}

func (h *Handler) wipe(c *gin.Context) {
	var req WipeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"error":   "Invalid request body",
			"details": err.Error(),
		})
		return
	}

	res, err := h.catalog.WipeAll(c.Request.Context(), req.Passphrase)
	if err != nil {
		h.respondError(c, "Wipe refused", err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"products_removed": res.Products,
		"records_removed":  res.Records,
	})
}

func (h *Handler) exportImports(c *gin.Context) {
	format, err := export.ParseFormat(c.Query("format"))
	if err != nil {
		h.respondError(c, "Invalid export format", err)
		return
	}

	records, err := h.ledger.ListAll(c.Request.Context())
	if err != nil {
		h.respondError(c, "Failed to list import records", err)
		return
	}

	var buf bytes.Buffer
	if err := export.Write(&buf, format, records); err != nil {
		if errors.Is(err, models.ErrNothingToExport) {
			util.ExportsTotal.WithLabelValues(string(format), "empty").Inc()
			c.JSON(http.StatusOK, gin.H{
				"message": "nothing to export",
			})
			return
		}
		util.ExportsTotal.WithLabelValues(string(format), "error").Inc()
		h.respondError(c, "Export failed", err)
		return
	}

	util.ExportsTotal.WithLabelValues(string(format), "ok").Inc()
	c.Header("Content-Disposition", `attachment; filename="`+format.FileName()+`"`)
	c.Data(http.StatusOK, format.ContentType(), buf.Bytes())
}
