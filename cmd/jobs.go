package main

import (
	"context"
	"fmt"
	"time"

	"github.com/go-redis/redis/v8"

	"jfrhub/internal/jobs"
	"jfrhub/internal/service"
	"jfrhub/pkg/dlock"
	"jfrhub/pkg/logger"
)

func (app *Application) initJobs() error {
	if app.replicatorService == nil || app.synchronizerService == nil {
		logger.WarnCtx(app.ctx, "Service layer not fully initialized yet, skipping background task registration")
		return nil
	}

	manager := jobs.NewManager(app.ctx)

	replicatorInterval := secondsOrDefault(app.config.Jobs.ReplicatorPeriodSeconds, 30*time.Second)
	synchronizerInterval := secondsOrDefault(app.config.Jobs.SynchronizerPeriodSeconds, 30*time.Second)
	detectorInterval := secondsOrDefault(app.config.Jobs.DetectorPeriodSeconds, time.Minute)
	compressionInterval := secondsOrDefault(app.config.Jobs.CompressionPeriodSeconds, 5*time.Minute)
	retentionInterval := time.Duration(app.config.Jobs.RetentionPeriodHours) * time.Hour
	if retentionInterval <= 0 {
		retentionInterval = time.Hour
	}

	// Create distributed locks to prevent multiple replicas from executing
	// write-heavy maintenance tasks simultaneously. If Redis is unavailable,
	// locks will automatically downgrade to single-instance mode.
	var redisClient *redis.Client
	if app.redisClient != nil {
		redisClient = app.redisClient.GetClient()
	}

	compressionLock := dlock.NewRedisDistributedLock(redisClient, "compression:repository-lock")
	sessionRetentionLock := dlock.NewRedisDistributedLock(redisClient, "retention:session-lock")
	instanceRetentionLock := dlock.NewRedisDistributedLock(redisClient, "retention:instance-lock")
	dataRetentionLock := dlock.NewRedisDistributedLock(redisClient, "retention:data-lock")

	// Sync pipeline: inbox replication feeds the event log, the synchronizer
	// applies it. Both expose a trigger so new inbox files and session
	// deletions take effect without waiting for the next tick.
	manager.Register(newReplicatorJob(replicatorInterval, app.replicatorService, app.replicationTrigger))
	manager.Register(newSynchronizerJob(synchronizerInterval, app.synchronizerService, app.syncTrigger))

	// Lifecycle maintenance
	manager.Register(newDetectorJob(detectorInterval, app.detectorService))
	manager.Register(newCompressionJob(compressionInterval, app.compressionService, compressionLock))

	// Retention with locks
	manager.Register(newSessionRetentionJob(retentionInterval, app.retentionService, sessionRetentionLock))
	manager.Register(newInstanceRetentionJob(retentionInterval, app.retentionService, instanceRetentionLock))
	manager.Register(newDataRetentionJob(24*time.Hour, app.retentionService, dataRetentionLock))

	app.jobsManager = manager
	return nil
}

func secondsOrDefault(n int, fallback time.Duration) time.Duration {
	if n <= 0 {
		return fallback
	}
	return time.Duration(n) * time.Second
}

// replicatorJob drains the filesystem inbox into the workspace event log.
type replicatorJob struct {
	interval          time.Duration
	replicatorService *service.ReplicatorService
	trigger           *jobs.SchedulerTrigger
}

func newReplicatorJob(interval time.Duration, svc *service.ReplicatorService, trigger *jobs.SchedulerTrigger) jobs.Job {
	return &replicatorJob{
		interval:          interval,
		replicatorService: svc,
		trigger:           trigger,
	}
}

func (j *replicatorJob) Name() string {
	return "inbox-replicator"
}

func (j *replicatorJob) Interval() time.Duration {
	return j.interval
}

func (j *replicatorJob) Trigger() *jobs.SchedulerTrigger {
	return j.trigger
}

func (j *replicatorJob) Run(ctx context.Context) error {
	if j.replicatorService == nil {
		return fmt.Errorf("replicator service not configured")
	}

	_, err := j.replicatorService.Replicate(ctx)
	return err
}

// synchronizerJob applies replicated events to projects, instances and
// sessions. Triggered runs share the job goroutine, so a trigger can never
// race a periodic tick.
type synchronizerJob struct {
	interval            time.Duration
	synchronizerService *service.SynchronizerService
	trigger             *jobs.SchedulerTrigger
}

func newSynchronizerJob(interval time.Duration, svc *service.SynchronizerService, trigger *jobs.SchedulerTrigger) jobs.Job {
	return &synchronizerJob{
		interval:            interval,
		synchronizerService: svc,
		trigger:             trigger,
	}
}

func (j *synchronizerJob) Name() string {
	return "project-synchronizer"
}

func (j *synchronizerJob) Interval() time.Duration {
	return j.interval
}

func (j *synchronizerJob) Trigger() *jobs.SchedulerTrigger {
	return j.trigger
}

func (j *synchronizerJob) Run(ctx context.Context) error {
	if j.synchronizerService == nil {
		return fmt.Errorf("synchronizer service not configured")
	}

	return j.synchronizerService.Synchronize(ctx)
}

// detectorJob finishes sessions that went quiet and reports crashed instances.
// It runs on every replica: finishing is first-wins in the database and the
// emitted events are deduplicated, so no lock is needed.
type detectorJob struct {
	interval        time.Duration
	detectorService *service.DetectorService
}

func newDetectorJob(interval time.Duration, svc *service.DetectorService) jobs.Job {
	return &detectorJob{
		interval:        interval,
		detectorService: svc,
	}
}

func (j *detectorJob) Name() string {
	return "session-detector"
}

func (j *detectorJob) Interval() time.Duration {
	return j.interval
}

func (j *detectorJob) Run(ctx context.Context) error {
	if j.detectorService == nil {
		return fmt.Errorf("detector service not configured")
	}

	return j.detectorService.Detect(ctx)
}

// compressionJob compresses finished recordings in the shared repository.
type compressionJob struct {
	interval           time.Duration
	compressionService *service.CompressionService
	distributedLock    dlock.DistributedLock
}

func newCompressionJob(interval time.Duration, svc *service.CompressionService, lock dlock.DistributedLock) jobs.Job {
	return &compressionJob{
		interval:           interval,
		compressionService: svc,
		distributedLock:    lock,
	}
}

func (j *compressionJob) Name() string {
	return "recording-compression"
}

func (j *compressionJob) Interval() time.Duration {
	return j.interval
}

func (j *compressionJob) Run(ctx context.Context) error {
	if j.compressionService == nil {
		return fmt.Errorf("compression service not configured")
	}

	// Try to acquire distributed lock
	if j.distributedLock != nil {
		acquired, err := j.distributedLock.TryLock(ctx)
		if err != nil || !acquired {
			logger.DebugCtx(ctx, "another instance is running recording compression, skipping this cycle")
			return nil
		}
		defer j.distributedLock.Unlock(ctx)
	}

	logger.DebugCtx(ctx, "running recording compression job")
	return j.compressionService.Compress(ctx)
}

// sessionRetentionJob emits deletion events for sessions past their TTL.
type sessionRetentionJob struct {
	interval         time.Duration
	retentionService *service.RetentionService
	distributedLock  dlock.DistributedLock
}

func newSessionRetentionJob(interval time.Duration, svc *service.RetentionService, lock dlock.DistributedLock) jobs.Job {
	return &sessionRetentionJob{
		interval:         interval,
		retentionService: svc,
		distributedLock:  lock,
	}
}

func (j *sessionRetentionJob) Name() string {
	return "session-retention"
}

func (j *sessionRetentionJob) Interval() time.Duration {
	return j.interval
}

func (j *sessionRetentionJob) Run(ctx context.Context) error {
	if j.retentionService == nil {
		return fmt.Errorf("retention service not configured")
	}

	// Try to acquire distributed lock
	if j.distributedLock != nil {
		acquired, err := j.distributedLock.TryLock(ctx)
		if err != nil || !acquired {
			logger.DebugCtx(ctx, "another instance is running session retention, skipping this cycle")
			return nil
		}
		defer j.distributedLock.Unlock(ctx)
	}

	logger.DebugCtx(ctx, "running session retention job")
	return j.retentionService.CleanSessions(ctx)
}

// instanceRetentionJob removes finished instances past their TTL.
type instanceRetentionJob struct {
	interval         time.Duration
	retentionService *service.RetentionService
	distributedLock  dlock.DistributedLock
}

func newInstanceRetentionJob(interval time.Duration, svc *service.RetentionService, lock dlock.DistributedLock) jobs.Job {
	return &instanceRetentionJob{
		interval:         interval,
		retentionService: svc,
		distributedLock:  lock,
	}
}

func (j *instanceRetentionJob) Name() string {
	return "instance-retention"
}

func (j *instanceRetentionJob) Interval() time.Duration {
	return j.interval
}

func (j *instanceRetentionJob) Run(ctx context.Context) error {
	if j.retentionService == nil {
		return fmt.Errorf("retention service not configured")
	}

	if j.distributedLock != nil {
		acquired, err := j.distributedLock.TryLock(ctx)
		if err != nil || !acquired {
			return nil
		}
		defer j.distributedLock.Unlock(ctx)
	}

	return j.retentionService.CleanInstances(ctx)
}

// dataRetentionJob ages out old events, messages and acknowledged inbox files
// daily.
type dataRetentionJob struct {
	interval         time.Duration
	retentionService *service.RetentionService
	distributedLock  dlock.DistributedLock
}

func newDataRetentionJob(interval time.Duration, svc *service.RetentionService, lock dlock.DistributedLock) jobs.Job {
	return &dataRetentionJob{
		interval:         interval,
		retentionService: svc,
		distributedLock:  lock,
	}
}

func (j *dataRetentionJob) Name() string {
	return "data-retention"
}

func (j *dataRetentionJob) Interval() time.Duration {
	return j.interval
}

func (j *dataRetentionJob) AlignToInterval() bool {
	return true
}

func (j *dataRetentionJob) Run(ctx context.Context) error {
	if j.retentionService == nil {
		return fmt.Errorf("retention service not configured")
	}

	if j.distributedLock != nil {
		acquired, err := j.distributedLock.TryLock(ctx)
		if err != nil || !acquired {
			return nil
		}
		defer j.distributedLock.Unlock(ctx)
	}

	return j.retentionService.CleanData(ctx)
}
