package models

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCreateUniqueJobByName(t *testing.T) {
	InitializeTestDb()

	err := CreateUniqueJobByName("render:abc", "render_qr_artifact", `{"token":"abc"}`)
	require.Nil(t, err)

	err = CreateUniqueJobByName("render:abc", "render_qr_artifact", `{"token":"abc"}`)
	assert.ErrorIs(t, err, ErrDuplicateJob)

	job, err := NextJob(ENQUEUED_JOB, false)
	require.Nil(t, err)
	assert.Equal(t, "render:abc", job.Name)

	claimed, err := job.MarkAsClaimed()
	assert.Nil(t, err)
	assert.True(t, claimed)

	// Claiming twice fails
	claimed, err = job.MarkAsClaimed()
	assert.Nil(t, err)
	assert.False(t, claimed)

	// Still a duplicate while in progress
	err = CreateUniqueJobByName("render:abc", "render_qr_artifact", `{"token":"abc"}`)
	assert.ErrorIs(t, err, ErrDuplicateJob)
}

func TestOldestJobLastUpdated(t *testing.T) {
	InitializeTestDb()

	require.Nil(t, CreateUniqueJobByName("render:stuck", "render_qr_artifact", "{}"))
	job, err := NextJob(ENQUEUED_JOB, false)
	require.Nil(t, err)

	_, err = job.MarkAsClaimed()
	require.Nil(t, err)

	_, err = OldestJobLastUpdated(10, IN_PROGRESS_JOB)
	assert.True(t, IsRecordNotFound(err), "freshly claimed jobs are not stuck")

	stale := time.Now().UTC().Add(-time.Hour)
	require.Nil(t, db.Model(&Job{}).Where("id = ?", job.ID).UpdateColumn("updated_at", stale).Error)

	stuck, err := OldestJobLastUpdated(10, IN_PROGRESS_JOB)
	require.Nil(t, err)
	assert.Equal(t, job.ID, stuck.ID)
}

func TestCurrentJobsStats(t *testing.T) {
	InitializeTestDb()

	require.Nil(t, CreateUniqueJobByName("a", "h", "{}"))
	require.Nil(t, CreateUniqueJobByName("b", "h", "{}"))

	stats, err := CurrentJobsStats()
	require.Nil(t, err)
	assert.Equal(t, int64(2), stats.EnqueuedJobCount)
	assert.Equal(t, int64(0), stats.DeadJobCount)

	jobs, paging, err := FetchJobs(ENQUEUED_JOB, 1)
	require.Nil(t, err)
	assert.Len(t, jobs, 2)
	assert.Equal(t, int64(2), paging.Total)
	assert.Equal(t, ENQUEUED_JOB, jobs[0].JobStatus.Name)
}
