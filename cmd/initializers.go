package main

import (
	"fmt"
	"net/http"
	"time"

	"jfrhub/app/handler"
	"jfrhub/app/router"
	"jfrhub/internal/jobs"
	"jfrhub/internal/service"
	"jfrhub/internal/service/consumer"
	"jfrhub/pkg/config"
	"jfrhub/pkg/download"
	"jfrhub/pkg/folderqueue"
	"jfrhub/pkg/logger"
	"jfrhub/pkg/repository"
	mysqlstore "jfrhub/pkg/store/mysql"
	redisstore "jfrhub/pkg/store/redis"

	"github.com/gin-gonic/gin"
)

// initConfig initializes configuration
func (app *Application) initConfig() error {
	if err := config.Init(); err != nil {
		return err
	}
	app.config = config.GlobalConfig
	return nil
}

// initLogger initializes logging
func (app *Application) initLogger() error {
	if err := logger.Init(); err != nil {
		return err
	}
	app.registerCleanup(func() {
		logger.Sync()
		logger.InfoCtx(app.ctx, "Logging system has been closed")
	})
	return nil
}

// initMySQL initializes MySQL
func (app *Application) initMySQL() error {
	dsn := fmt.Sprintf("%s:%s@tcp(%s:%d)/%s?charset=utf8mb4&parseTime=True&loc=UTC",
		app.config.MySQL.User,
		app.config.MySQL.Password,
		app.config.MySQL.Host,
		app.config.MySQL.Port,
		app.config.MySQL.Database,
	)

	repo, err := mysqlstore.NewRepository(dsn)
	if err != nil {
		return err
	}

	app.mysqlRepo = repo
	app.registerCleanup(func() {
		repo.Close()
		logger.InfoCtx(app.ctx, "MySQL connection has been closed")
	})

	return nil
}

// initRedis initializes Redis. Redis only backs the distributed job locks, so
// a missing configuration degrades to single-instance mode instead of failing
// startup.
func (app *Application) initRedis() error {
	if app.config.Redis.Addr == "" {
		logger.InfoCtx(app.ctx, "Redis not configured, background job locks run in single-instance mode")
		return nil
	}

	client, err := redisstore.NewRedisClient(app.config)
	if err != nil {
		return err
	}

	app.redisClient = client
	app.registerCleanup(func() {
		client.Close()
		logger.InfoCtx(app.ctx, "Redis connection has been closed")
	})

	return nil
}

// initInbox initializes the shared filesystem inbox
func (app *Application) initInbox() error {
	queue, err := folderqueue.NewQueue(app.config.Inbox.Dir)
	if err != nil {
		return err
	}
	app.inboxQueue = queue

	if app.config.Inbox.WatchEnabled {
		watcher, err := folderqueue.NewWatcher(queue)
		if err != nil {
			// The periodic replicator still drains the inbox without it.
			logger.WarnCtx(app.ctx, "failed to start inbox watcher, falling back to polling only: %v", err)
			return nil
		}
		app.inboxWatcher = watcher
		app.registerCleanup(func() {
			watcher.Close()
			logger.InfoCtx(app.ctx, "Inbox watcher has been closed")
		})
	}

	return nil
}

// initStorage initializes the recording repository storage
func (app *Application) initStorage() error {
	grace := time.Duration(app.config.Jobs.SessionGracePeriodMinutes) * time.Minute
	if grace <= 0 {
		grace = 10 * time.Minute
	}

	app.repoStorage = repository.NewFilesystemStorage(app.config.Inbox.WorkspacesDir, app.mysqlRepo.Session, grace)
	return nil
}

// initServices initializes service layer
func (app *Application) initServices() error {
	app.replicationTrigger = jobs.NewSchedulerTrigger()
	app.syncTrigger = jobs.NewSchedulerTrigger()

	// The consumer chain applies replicated events to server state.
	chain := consumer.NewChain(consumer.Stores{
		Projects:  app.mysqlRepo.Project,
		Instances: app.mysqlRepo.Instance,
		Sessions:  app.mysqlRepo.Session,
		Files:     app.repoStorage,
	})

	app.replicatorService = service.NewReplicatorService(
		app.inboxQueue,
		app.mysqlRepo.Workspace,
		app.mysqlRepo.EventLog,
		app.syncTrigger,
	)

	app.synchronizerService = service.NewSynchronizerService(
		app.mysqlRepo.Workspace,
		app.mysqlRepo.EventLog,
		app.mysqlRepo.ConsumerOffset,
		chain,
	)

	app.detectorService = service.NewDetectorService(
		app.mysqlRepo.Workspace,
		app.mysqlRepo.Project,
		app.mysqlRepo.Session,
		app.mysqlRepo.Message,
		app.mysqlRepo.EventLog,
		app.repoStorage,
	)

	app.compressionService = service.NewCompressionService(
		app.mysqlRepo.Workspace,
		app.mysqlRepo.Project,
		app.repoStorage,
	)

	app.retentionService = service.NewRetentionService(
		app.mysqlRepo.Workspace,
		app.mysqlRepo.Project,
		app.mysqlRepo.Session,
		app.mysqlRepo.Instance,
		app.mysqlRepo.EventLog,
		app.mysqlRepo.Message,
		app.inboxQueue,
		app.syncTrigger,
		app.retentionPolicy(),
	)

	app.sessionService = service.NewSessionService(
		app.mysqlRepo.Workspace,
		app.mysqlRepo.Project,
		app.mysqlRepo.EventLog,
		app.mysqlRepo.Message,
		app.repoStorage,
		app.syncTrigger,
	)

	return nil
}

// retentionPolicy builds the retention policy from configuration
func (app *Application) retentionPolicy() service.RetentionPolicy {
	days := func(n, fallback int) time.Duration {
		if n <= 0 {
			n = fallback
		}
		return time.Duration(n) * 24 * time.Hour
	}

	processedTTL := time.Duration(app.config.Inbox.RetainProcessedHours) * time.Hour
	if processedTTL <= 0 {
		processedTTL = 24 * time.Hour
	}

	return service.RetentionPolicy{
		SessionTTL:   days(app.config.Jobs.SessionRetentionDays, 30),
		InstanceTTL:  days(app.config.Jobs.InstanceRetentionDays, 14),
		EventTTL:     days(app.config.Jobs.EventRetentionDays, 30),
		MessageTTL:   days(app.config.Jobs.MessageRetentionDays, 30),
		ProcessedTTL: processedTTL,
	}
}

// initDownloadManager initializes the download task manager
func (app *Application) initDownloadManager() error {
	opts := download.Options{
		TempDir:          app.config.Downloads.TempDir,
		Parallelism:      app.config.Downloads.Parallelism,
		CompletedTaskTTL: time.Duration(app.config.Downloads.CompletedTaskTTLMinutes) * time.Minute,
		SweepInterval:    time.Duration(app.config.Downloads.CleanupIntervalMinutes) * time.Minute,
	}

	app.downloadManager = download.NewManager(app.repoStorage, opts)
	return nil
}

// initHandlers initializes handler layer
func (app *Application) initHandlers() error {
	app.syncHandler = handler.NewSyncHandler(app.sessionService, app.replicatorService)
	app.sessionHandler = handler.NewSessionHandler(app.sessionService, app.compressionService)
	app.downloadHandler = handler.NewDownloadHandler(app.downloadManager)
	return nil
}

// initHTTPServer initializes HTTP server
func (app *Application) initHTTPServer() error {
	// Initialize router
	r := router.NewRouter(app.syncHandler, app.sessionHandler, app.downloadHandler)

	// Set Gin mode
	gin.SetMode(app.config.Server.Mode)

	// Create Gin engine
	app.ginEngine = gin.New()
	app.ginEngine.Use(gin.Recovery())

	// Setup routes
	r.Setup(app.ginEngine)

	// Create HTTP server
	app.httpServer = &http.Server{
		Addr:    fmt.Sprintf(":%d", app.config.Server.Port),
		Handler: app.ginEngine,
	}

	return nil
}
