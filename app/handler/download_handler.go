package handler

import (
	"errors"
	"io"
	"net/http"

	"jfrhub/internal/model"
	"jfrhub/pkg/download"
	"jfrhub/pkg/logger"
	"jfrhub/pkg/repository"

	"github.com/gin-gonic/gin"
)

// DownloadHandler handles download task operations including SSE progress
// streaming.
type DownloadHandler struct {
	manager *download.Manager
}

// NewDownloadHandler creates download handler
func NewDownloadHandler(manager *download.Manager) *DownloadHandler {
	return &DownloadHandler{manager: manager}
}

// CreateTaskRequest request body for creating a download task
type CreateTaskRequest struct {
	SessionID string   `json:"session_id" binding:"required"`
	FileIDs   []string `json:"file_ids"`
	Merge     bool     `json:"merge"`
}

// CreateTask creates and starts a download task
// @Summary Create download task
// @Accept json
// @Produce json
// @Router /downloads [post]
func (h *DownloadHandler) CreateTask(c *gin.Context) {
	var req CreateTaskRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	task, err := h.manager.CreateTask(c.Request.Context(), req.SessionID, req.FileIDs, req.Merge)
	if err != nil {
		if errors.Is(err, repository.ErrSessionNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "session not found"})
			return
		}
		logger.ErrorCtx(c.Request.Context(), "failed to create download task: %v", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	if err := h.manager.StartDownload(task.ID); err != nil {
		logger.ErrorCtx(c.Request.Context(), "failed to start download, task_id: %s, error: %v", task.ID, err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	c.JSON(http.StatusAccepted, gin.H{"task_id": task.ID})
}

// Progress gets a progress snapshot
// @Summary Get download progress
// @Produce json
// @Param task_id path string true "Task ID"
// @Router /downloads/{task_id} [get]
func (h *DownloadHandler) Progress(c *gin.Context) {
	taskID := c.Param("task_id")
	progress, ok := h.manager.GetProgress(taskID)
	if !ok {
		c.JSON(http.StatusNotFound, gin.H{"error": "task not found"})
		return
	}
	c.JSON(http.StatusOK, progress)
}

// StreamProgress streams progress snapshots over Server-Sent Events until the
// task reaches a terminal status or the client disconnects.
// @Summary Stream download progress (SSE)
// @Produce text/event-stream
// @Param task_id path string true "Task ID"
// @Router /downloads/{task_id}/stream [get]
func (h *DownloadHandler) StreamProgress(c *gin.Context) {
	taskID := c.Param("task_id")

	updates := make(chan model.DownloadProgress, 16)
	listenerID, err := h.manager.AddProgressListener(taskID, func(p model.DownloadProgress) {
		select {
		case updates <- p:
		default:
			// A slow client drops intermediate snapshots, never blocks the
			// download workers.
		}
	})
	if err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "task not found"})
		return
	}
	defer h.manager.RemoveProgressListener(taskID, listenerID)

	c.Stream(func(w io.Writer) bool {
		select {
		case progress := <-updates:
			c.SSEvent("progress", progress)
			return !progress.Status.IsTerminal()
		case <-c.Request.Context().Done():
			return false
		}
	})
}

// Cancel cancels a download task
// @Summary Cancel download task
// @Produce json
// @Param task_id path string true "Task ID"
// @Router /downloads/{task_id}/cancel [post]
func (h *DownloadHandler) Cancel(c *gin.Context) {
	taskID := c.Param("task_id")
	if _, ok := h.manager.GetProgress(taskID); !ok {
		c.JSON(http.StatusNotFound, gin.H{"error": "task not found"})
		return
	}
	if !h.manager.CancelDownload(taskID) {
		c.JSON(http.StatusConflict, gin.H{"error": "task is not cancellable"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "task cancelled"})
}

// Result serves the downloaded file of a completed merge task
// @Summary Download merged result
// @Produce application/octet-stream
// @Param task_id path string true "Task ID"
// @Router /downloads/{task_id}/result [get]
func (h *DownloadHandler) Result(c *gin.Context) {
	taskID := c.Param("task_id")
	task := h.manager.Task(taskID)
	if task == nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "task not found"})
		return
	}
	if task.Status() != model.DownloadCompleted {
		c.JSON(http.StatusConflict, gin.H{"error": "task is not completed"})
		return
	}
	c.FileAttachment(task.ResultPath(), "merged-recording.jfr")
}
