package router

import (
	"jfrhub/app/handler"
	"jfrhub/app/middleware"

	"github.com/gin-gonic/gin"
)

// Router wires the HTTP surface
type Router struct {
	syncHandler     *handler.SyncHandler
	sessionHandler  *handler.SessionHandler
	downloadHandler *handler.DownloadHandler
}

// NewRouter creates a new Router
func NewRouter(syncHandler *handler.SyncHandler, sessionHandler *handler.SessionHandler, downloadHandler *handler.DownloadHandler) *Router {
	return &Router{
		syncHandler:     syncHandler,
		sessionHandler:  sessionHandler,
		downloadHandler: downloadHandler,
	}
}

// Setup sets up routes
func (r *Router) Setup(engine *gin.Engine) {
	engine.Use(middleware.Recovery())
	engine.Use(middleware.Logger())

	api := engine.Group("/api/v1")
	api.Use(middleware.AuthMiddleware())
	{
		// Workspace synchronization surface
		api.GET("/workspaces", r.syncHandler.ListWorkspaces)
		api.GET("/workspaces/:workspace_id/projects", r.syncHandler.ListProjects)
		api.GET("/workspaces/:workspace_id/events", r.syncHandler.ListEvents)
		api.POST("/sync/replicate", r.syncHandler.TriggerReplication)

		// Recording sessions
		api.GET("/projects/:project_id/sessions", r.sessionHandler.ListSessions)
		api.GET("/projects/:project_id/messages", r.sessionHandler.ListMessages)
		api.GET("/sessions/:session_id", r.sessionHandler.GetSession)
		api.DELETE("/sessions/:session_id", r.sessionHandler.DeleteSession)
		api.POST("/sessions/:session_id/compress", r.sessionHandler.CompressSession)

		// Download tasks
		downloads := api.Group("/downloads")
		{
			downloads.POST("", r.downloadHandler.CreateTask)
			downloads.GET("/:task_id", r.downloadHandler.Progress)
			downloads.GET("/:task_id/stream", r.downloadHandler.StreamProgress)
			downloads.POST("/:task_id/cancel", r.downloadHandler.Cancel)
			downloads.GET("/:task_id/result", r.downloadHandler.Result)
		}
	}

	engine.GET("/healthz", func(c *gin.Context) {
		c.JSON(200, gin.H{"status": "ok"})
	})
}
