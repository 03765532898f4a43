package work

import (
	"time"

	"github.com/Daskott/kavach/server/logger"
	"github.com/Daskott/kavach/server/models"
)

// requeuer moves jobs that stayed in-progress for too long back to the queue.
type requeuer struct {
	stuckAfterMinutes uint
	stopChan          chan struct{}
	doneChan          chan struct{}
}

func newRequeuer(stuckAfterMinutes uint) *requeuer {
	return &requeuer{
		stuckAfterMinutes: stuckAfterMinutes,
	}
}

func (r *requeuer) start() {
	r.stopChan = make(chan struct{})
	r.doneChan = make(chan struct{})
	go r.loop()
}

func (r *requeuer) stop() {
	close(r.stopChan)
	<-r.doneChan
}

func (r *requeuer) loop() {
	defer close(r.doneChan)

	// At some point we may need an exponential back-off,
	// but for now keep it simple
	sleepBackOff := 5 * time.Second
	rateLimiter := time.NewTicker(DefaultTickerDuration)
	defer rateLimiter.Stop()

	r.logInfof("starting")
	for {
		select {
		case <-r.stopChan:
			r.logInfof("stopping")
			return
		case <-rateLimiter.C:
			job, err := models.OldestJobLastUpdated(r.stuckAfterMinutes, models.IN_PROGRESS_JOB)
			if models.IsRecordNotFound(err) {
				rateLimiter.Reset(sleepBackOff)
				continue
			}

			if err != nil {
				r.logError(err)
				rateLimiter.Reset(TickerDurationOnError)
				continue
			}

			r.requeue(job)
			rateLimiter.Reset(DefaultTickerDuration)
		}
	}
}

func (r *requeuer) requeue(job *models.Job) {
	jobStatus, err := models.FindJobStatus(models.ENQUEUED_JOB)
	if err != nil {
		r.logError(err)
		return
	}

	err = job.Update(map[string]interface{}{
		"claimed":       false,
		"job_status_id": jobStatus.ID,
	})
	if err != nil {
		r.logError(err)
		return
	}

	r.logInfof("job with id=%v requeued", job.ID)
}

func (r *requeuer) logInfof(template string, args ...interface{}) {
	prefix := logger.Yellow("[job requeuer] ")
	logg.Infof(prefix+template, args...)
}

func (r *requeuer) logError(err error) {
	prefix := logger.Red("[job requeuer] ")
	logg.Errorf("%v%v", prefix, err)
}
