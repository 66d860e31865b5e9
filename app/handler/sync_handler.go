package handler

import (
	"errors"
	"net/http"
	"strconv"

	"jfrhub/internal/service"
	"jfrhub/pkg/logger"

	"github.com/gin-gonic/gin"
)

// SyncHandler exposes workspace synchronization state and a manual trigger
type SyncHandler struct {
	sessionService *service.SessionService
	replicator     *service.ReplicatorService
}

// NewSyncHandler creates sync handler
func NewSyncHandler(sessionService *service.SessionService, replicator *service.ReplicatorService) *SyncHandler {
	return &SyncHandler{
		sessionService: sessionService,
		replicator:     replicator,
	}
}

// ListWorkspaces lists all workspaces
// @Summary List workspaces
// @Produce json
// @Router /workspaces [get]
func (h *SyncHandler) ListWorkspaces(c *gin.Context) {
	workspaces, err := h.sessionService.ListWorkspaces(c.Request.Context())
	if err != nil {
		logger.ErrorCtx(c.Request.Context(), "failed to list workspaces: %v", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to list workspaces"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"workspaces": workspaces})
}

// ListProjects lists the projects of a workspace
// @Summary List projects of a workspace
// @Produce json
// @Param workspace_id path string true "Workspace ID"
// @Router /workspaces/{workspace_id}/projects [get]
func (h *SyncHandler) ListProjects(c *gin.Context) {
	workspaceID := c.Param("workspace_id")
	projects, err := h.sessionService.ListProjects(c.Request.Context(), workspaceID)
	if err != nil {
		if errors.Is(err, service.ErrWorkspaceNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "workspace not found"})
			return
		}
		logger.ErrorCtx(c.Request.Context(), "failed to list projects, workspace_id: %s, error: %v", workspaceID, err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to list projects"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"projects": projects})
}

// ListEvents lists the newest events of a workspace
// @Summary List workspace events
// @Produce json
// @Param workspace_id path string true "Workspace ID"
// @Param limit query int false "Maximum number of events"
// @Router /workspaces/{workspace_id}/events [get]
func (h *SyncHandler) ListEvents(c *gin.Context) {
	workspaceID := c.Param("workspace_id")
	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "100"))

	events, err := h.sessionService.ListEvents(c.Request.Context(), workspaceID, limit)
	if err != nil {
		if errors.Is(err, service.ErrWorkspaceNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "workspace not found"})
			return
		}
		logger.ErrorCtx(c.Request.Context(), "failed to list events, workspace_id: %s, error: %v", workspaceID, err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to list events"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"events": events})
}

// TriggerReplication runs an inbox replication pass immediately
// @Summary Trigger replication
// @Produce json
// @Router /sync/replicate [post]
func (h *SyncHandler) TriggerReplication(c *gin.Context) {
	replicated, err := h.replicator.Replicate(c.Request.Context())
	if err != nil {
		logger.ErrorCtx(c.Request.Context(), "manual replication failed: %v", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"replicated": replicated})
}
