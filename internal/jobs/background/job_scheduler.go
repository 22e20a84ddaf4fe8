package background

import (
	"context"
	"sync"
	"time"

	"channelgate/internal/jobs"

	"github.com/go-co-op/gocron/v2"
	"go.uber.org/zap"
)

// JobScheduler manages the service's periodic background jobs.
type JobScheduler struct {
	scheduler gocron.Scheduler
	expiry    *jobs.ExpiryReconciler
	logger    *zap.Logger
	registered   map[string]gocron.Job
	mu        sync.RWMutex
}

// NewJobScheduler creates a scheduler with the expiry sweep registered.
// sweepInterval is how often lapsed subscriptions are demoted and revoked.
func NewJobScheduler(expiry *jobs.ExpiryReconciler, sweepInterval time.Duration, logger *zap.Logger) (*JobScheduler, error) {
	scheduler, err := gocron.NewScheduler()
	if err != nil {
		return nil, err
	}

	js := &JobScheduler{
		scheduler: scheduler,
		expiry:    expiry,
		logger:    logger,
		registered:   make(map[string]gocron.Job),
	}

	// Singleton mode with reschedule: if a sweep overruns the interval the
	// next tick is skipped, never run concurrently with the active sweep.
	expiryJob, err := scheduler.NewJob(
		gocron.DurationJob(sweepInterval),
		gocron.NewTask(js.expiry.Sweep, context.Background()),
		gocron.WithName("subscription-expiry-sweep"),
		gocron.WithSingletonMode(gocron.LimitModeReschedule),
	)
	if err != nil {
		return nil, err
	}
	js.registered["expiry-sweep"] = expiryJob

	logger.Info("registered background jobs", zap.Int("count", len(js.registered)))
	return js, nil
}

// Start starts the job scheduler
func (js *JobScheduler) Start() {
	js.logger.Info("starting background job scheduler")
	js.scheduler.Start()
}

// Stop stops scheduling further sweeps; an in-flight sweep completes on its own.
func (js *JobScheduler) Stop() error {
	js.logger.Info("stopping background job scheduler")
	return js.scheduler.Shutdown()
}

// AddJob adds a custom job to the scheduler
func (js *JobScheduler) AddJob(name string, interval time.Duration, taskFn interface{}, params ...interface{}) error {
	js.mu.Lock()
	defer js.mu.Unlock()

	job, err := js.scheduler.NewJob(
		gocron.DurationJob(interval),
		gocron.NewTask(taskFn, params...),
		gocron.WithName(name),
	)
	if err != nil {
		return err
	}

	js.registered[name] = job
	return nil
}

// JobNames returns the names of the registered jobs, for diagnostics.
func (js *JobScheduler) JobNames() []string {
	js.mu.RLock()
	defer js.mu.RUnlock()

	names := make([]string, 0, len(js.registered))
	for name := range js.registered {
		names = append(names, name)
	}
	return names
}
