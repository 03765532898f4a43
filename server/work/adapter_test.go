package work

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/Daskott/kavach/server/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPerform(t *testing.T) {
	models.InitializeTestDb()

	adapter, err := NewWorkerAdapter("UTC")
	require.Nil(t, err)

	var token atomic.Value
	err = adapter.Register("render_qr_artifact", func(ctx context.Context, args map[string]interface{}) error {
		token.Store(args["token"])
		return nil
	})
	require.Nil(t, err)

	err = adapter.Perform(JobParams{
		Name:    "render:abc",
		Handler: "render_qr_artifact",
		Args:    map[string]interface{}{"token": "abc"},
	})
	assert.Nil(t, err)

	// A second enqueue of the same name is dropped quietly
	err = adapter.Perform(JobParams{Name: "render:abc", Handler: "render_qr_artifact"})
	assert.Nil(t, err)

	adapter.Start()
	defer adapter.Stop()

	assert.Eventually(t, func() bool {
		return token.Load() == "abc"
	}, 5*time.Second, 20*time.Millisecond)

	assert.Eventually(t, func() bool {
		stats, err := models.CurrentJobsStats()
		return err == nil && stats.SuccessfulJobCount == 1
	}, 5*time.Second, 20*time.Millisecond)
}

func TestFailingJobBecomesDead(t *testing.T) {
	models.InitializeTestDb()

	adapter, err := NewWorkerAdapter("UTC")
	require.Nil(t, err)

	var runs int32
	err = adapter.Register("always_fails", func(ctx context.Context, args map[string]interface{}) error {
		atomic.AddInt32(&runs, 1)
		return errors.New("storage unavailable")
	})
	require.Nil(t, err)

	require.Nil(t, adapter.Perform(JobParams{Name: "doomed", Handler: "always_fails"}))

	adapter.Start()
	defer adapter.Stop()

	assert.Eventually(t, func() bool {
		stats, err := models.CurrentJobsStats()
		return err == nil && stats.DeadJobCount == 1
	}, 10*time.Second, 20*time.Millisecond)

	assert.Equal(t, int32(MAX_FAILS), atomic.LoadInt32(&runs))

	jobs, _, err := models.FetchJobs(models.DEAD_JOB, 1)
	require.Nil(t, err)
	require.Len(t, jobs, 1)
	assert.Equal(t, "storage unavailable", jobs[0].LastError)
}

func TestRegisterDuplicateHandler(t *testing.T) {
	adapter, err := NewWorkerAdapter("UTC")
	require.Nil(t, err)

	noop := func(ctx context.Context, args map[string]interface{}) error { return nil }
	assert.Nil(t, adapter.Register("noop", noop))
	assert.ErrorIs(t, adapter.Register("noop", noop), ErrDuplicateHandler)
}

func TestPerformRequiresNameAndHandler(t *testing.T) {
	models.InitializeTestDb()

	adapter, err := NewWorkerAdapter("UTC")
	require.Nil(t, err)

	assert.NotNil(t, adapter.Perform(JobParams{Name: " ", Handler: "noop"}))
}

func TestNewWorkerAdapterRejectsUnknownTimeZone(t *testing.T) {
	_, err := NewWorkerAdapter("Mars/Olympus_Mons")
	assert.NotNil(t, err)
}

func TestPeriodicallyPerform(t *testing.T) {
	adapter, err := NewWorkerAdapter("UTC")
	require.Nil(t, err)

	assert.NotNil(t, adapter.PeriodicallyPerform("not a cron", "sweep", func() {}))
	assert.Nil(t, adapter.PeriodicallyPerform("*/5 * * * *", "sweep", func() {}))
	assert.Nil(t, adapter.RemovePeriodicJob("sweep"))
}
