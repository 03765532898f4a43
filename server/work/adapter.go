package work

import (
	"errors"
	"fmt"
	"time"

	"github.com/Daskott/kavach/server/models"
	"github.com/go-co-op/gocron"
)

const MAX_CONCURRENCY = 2

type WorkerPoolAdapter struct {
	cronScheduler *gocron.Scheduler
	pool          *WorkerPool
}

func NewWorkerAdapter(timeZone string) (*WorkerPoolAdapter, error) {
	location, err := time.LoadLocation(timeZone)
	if err != nil {
		return nil, fmt.Errorf("invalid time zone %q: %v", timeZone, err)
	}

	cronScheduler := gocron.NewScheduler(location)
	cronScheduler.TagsUnique()

	return &WorkerPoolAdapter{
		cronScheduler: cronScheduler,
		pool:          newWorkerPool(MAX_CONCURRENCY),
	}, nil
}

// Start starts the cron scheduler & worker pool
func (adapter *WorkerPoolAdapter) Start() {
	logg.Info("Starting cron scheduler & worker pool")
	adapter.cronScheduler.StartAsync()
	adapter.pool.start()
}

// Stop stops the cron scheduler & worker pool
func (adapter *WorkerPoolAdapter) Stop() {
	logg.Info("Stopping cron scheduler & worker pool")
	adapter.cronScheduler.Stop()
	adapter.pool.stop()
}

// Register binds a name to a handler.
func (adapter *WorkerPoolAdapter) Register(name string, handler Handler) error {
	return adapter.pool.registerHandler(name, handler)
}

// Perform sends a new job to the queue, to be executed as soon as a worker is available.
// A job whose name is already enqueued or in-progress is dropped.
func (adapter *WorkerPoolAdapter) Perform(job JobParams) error {
	err := adapter.pool.enqueue(job)
	if errors.Is(err, models.ErrDuplicateJob) {
		logg.Debugf("Duplicate job already in queue for: %v", job.Name)
		return nil
	}

	if err != nil {
		return fmt.Errorf("error enqueuing job: %v, %v", job.Name, err)
	}

	logg.Infof("Enqueued job: %v", job.Name)
	return nil
}

// PeriodicallyPerform runs 'fn' on the 'cronExpression' schedule. 'fn'
// typically enqueues jobs through Perform.
func (adapter *WorkerPoolAdapter) PeriodicallyPerform(cronExpression, tag string, fn func()) error {
	_, err := adapter.cronScheduler.Cron(cronExpression).Tag(tag).Do(fn)
	if err != nil {
		return fmt.Errorf("unable to schedule %v: %v", tag, err)
	}
	return nil
}

func (adapter *WorkerPoolAdapter) RemovePeriodicJob(tag string) error {
	return adapter.cronScheduler.RemoveByTag(tag)
}
