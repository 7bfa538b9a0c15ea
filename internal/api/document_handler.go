package api

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"

	"github.com/kesara/purple/internal/models"
	"github.com/kesara/purple/internal/service"
)

// DocumentHandler handles document endpoints
type DocumentHandler struct {
	services *service.Services
	log      zerolog.Logger
}

// NewDocumentHandler creates a new DocumentHandler
func NewDocumentHandler(services *service.Services, log zerolog.Logger) *DocumentHandler {
	return &DocumentHandler{
		services: services,
		log:      log.With().Str("handler", "document").Logger(),
	}
}

// Intake handles POST /v1/documents
func (h *DocumentHandler) Intake(c *gin.Context) {
	var req models.IntakeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	rfc, err := h.services.Document.Intake(c.Request.Context(), &req)
	if err != nil {
		h.log.Error().Err(err).Str("draft_name", req.DraftName).Msg("Intake failed")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to create document"})
		return
	}
	c.JSON(http.StatusCreated, rfc)
}

// Get handles GET /v1/documents/:id
func (h *DocumentHandler) Get(c *gin.Context) {
	id, ok := documentID(c)
	if !ok {
		return
	}

	detail, err := h.services.Document.Get(c.Request.Context(), id)
	if err != nil {
		if errors.Is(err, service.ErrDocumentNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "Document not found"})
			return
		}
		h.log.Error().Err(err).Int64("rfc_id", id).Msg("Get document failed")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to load document"})
		return
	}
	c.JSON(http.StatusOK, detail)
}

// AddLabel handles POST /v1/documents/:id/labels
func (h *DocumentHandler) AddLabel(c *gin.Context) {
	id, ok := documentID(c)
	if !ok {
		return
	}

	var req struct {
		Slug string `json:"slug" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	if err := h.services.Document.AddLabel(c.Request.Context(), id, req.Slug); err != nil {
		h.labelError(c, id, req.Slug, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"label": req.Slug, "added": true})
}

// RemoveLabel handles DELETE /v1/documents/:id/labels/:slug
func (h *DocumentHandler) RemoveLabel(c *gin.Context) {
	id, ok := documentID(c)
	if !ok {
		return
	}
	slug := c.Param("slug")

	if err := h.services.Document.RemoveLabel(c.Request.Context(), id, slug); err != nil {
		h.labelError(c, id, slug, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"label": slug, "added": false})
}

func (h *DocumentHandler) labelError(c *gin.Context, id int64, slug string, err error) {
	if errors.Is(err, service.ErrDocumentNotFound) {
		c.JSON(http.StatusNotFound, gin.H{"error": "Document not found"})
		return
	}
	h.log.Error().Err(err).Int64("rfc_id", id).Str("label", slug).Msg("Label change failed")
	c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to change label"})
}

func documentID(c *gin.Context) (int64, bool) {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid document id"})
		return 0, false
	}
	return id, true
}
