package api

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"

	"github.com/kesara/purple/internal/models"
	"github.com/kesara/purple/internal/service"
)

// TaskHandler handles manual task triggers and the text index
type TaskHandler struct {
	services *service.Services
	log      zerolog.Logger
}

// NewTaskHandler creates a new TaskHandler
func NewTaskHandler(services *service.Services, log zerolog.Logger) *TaskHandler {
	return &TaskHandler{
		services: services,
		log:      log.With().Str("handler", "task").Logger(),
	}
}

// Reconcile handles POST /v1/tasks/reconcile
func (h *TaskHandler) Reconcile(c *gin.Context) {
	if err := h.services.Blocking.ReconcileAll(c.Request.Context()); err != nil {
		h.log.Error().Err(err).Msg("Manual reconciliation failed")
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, models.TaskResult{Task: "reconcile", Message: "completed"})
}

// Notify handles POST /v1/tasks/notify
func (h *TaskHandler) Notify(c *gin.Context) {
	if err := h.services.Notify.PollAndNotify(c.Request.Context()); err != nil {
		h.log.Error().Err(err).Msg("Manual poll failed")
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, models.TaskResult{Task: "notify", Message: "completed"})
}

// Index handles GET /v1/index/rfc-index.txt
func (h *TaskHandler) Index(c *gin.Context) {
	c.Header("Content-Type", "text/plain; charset=utf-8")
	c.Status(http.StatusOK)
	if err := h.services.Index.WriteIndex(c.Request.Context(), c.Writer); err != nil {
		h.log.Error().Err(err).Msg("Index rendering failed")
	}
}
