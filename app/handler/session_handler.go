package handler

import (
	"errors"
	"net/http"
	"strconv"

	"jfrhub/internal/service"
	"jfrhub/pkg/logger"
	"jfrhub/pkg/repository"

	"github.com/gin-gonic/gin"
)

// SessionHandler handles recording session operations
type SessionHandler struct {
	sessionService *service.SessionService
	compression    *service.CompressionService
}

// NewSessionHandler creates session handler
func NewSessionHandler(sessionService *service.SessionService, compression *service.CompressionService) *SessionHandler {
	return &SessionHandler{
		sessionService: sessionService,
		compression:    compression,
	}
}

// ListSessions lists the sessions of a project with derived status
// @Summary List sessions of a project
// @Produce json
// @Param project_id path string true "Project ID"
// @Param with_files query bool false "Include file listings"
// @Router /projects/{project_id}/sessions [get]
func (h *SessionHandler) ListSessions(c *gin.Context) {
	projectID := c.Param("project_id")
	withFiles := c.DefaultQuery("with_files", "false") == "true"

	sessions, err := h.sessionService.ListSessions(c.Request.Context(), projectID, withFiles)
	if err != nil {
		logger.ErrorCtx(c.Request.Context(), "failed to list sessions, project_id: %s, error: %v", projectID, err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to list sessions"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"sessions": sessions})
}

// GetSession gets one session with files
// @Summary Get session detail
// @Produce json
// @Param session_id path string true "Session ID"
// @Router /sessions/{session_id} [get]
func (h *SessionHandler) GetSession(c *gin.Context) {
	sessionID := c.Param("session_id")
	session, err := h.sessionService.GetSession(c.Request.Context(), sessionID)
	if err != nil {
		if errors.Is(err, repository.ErrSessionNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "session not found"})
			return
		}
		logger.ErrorCtx(c.Request.Context(), "failed to get session, session_id: %s, error: %v", sessionID, err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to get session"})
		return
	}
	c.JSON(http.StatusOK, session)
}

// DeleteSession requests deletion of a session through the event log
// @Summary Delete session
// @Param session_id path string true "Session ID"
// @Router /sessions/{session_id} [delete]
func (h *SessionHandler) DeleteSession(c *gin.Context) {
	sessionID := c.Param("session_id")
	if err := h.sessionService.DeleteSession(c.Request.Context(), sessionID); err != nil {
		if errors.Is(err, repository.ErrSessionNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "session not found"})
			return
		}
		logger.ErrorCtx(c.Request.Context(), "failed to delete session, session_id: %s, error: %v", sessionID, err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "session deletion requested"})
}

// CompressSession compresses one session on demand
// @Summary Compress session recordings
// @Param session_id path string true "Session ID"
// @Router /sessions/{session_id}/compress [post]
func (h *SessionHandler) CompressSession(c *gin.Context) {
	sessionID := c.Param("session_id")
	if err := h.compression.CompressSession(c.Request.Context(), sessionID); err != nil {
		if errors.Is(err, repository.ErrSessionNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "session not found"})
			return
		}
		logger.ErrorCtx(c.Request.Context(), "failed to compress session, session_id: %s, error: %v", sessionID, err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "session compressed"})
}

// ListMessages lists operator messages of a project
// @Summary List project messages
// @Produce json
// @Param project_id path string true "Project ID"
// @Router /projects/{project_id}/messages [get]
func (h *SessionHandler) ListMessages(c *gin.Context) {
	projectID := c.Param("project_id")
	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "50"))

	messages, err := h.sessionService.ListMessages(c.Request.Context(), projectID, limit)
	if err != nil {
		logger.ErrorCtx(c.Request.Context(), "failed to list messages, project_id: %s, error: %v", projectID, err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to list messages"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"messages": messages})
}
