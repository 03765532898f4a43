package models

import (
	"errors"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

const JOB_STATUS_JOIN = "INNER JOIN job_statuses ON job_statuses.id = jobs.job_status_id AND job_statuses.name = ?"

var ErrDuplicateJob = errors.New("job with the given name already exists in queue")

type Job struct {
	BaseModel
	Fails       int        `json:"fails"`
	Name        string     `json:"name" gorm:"index"`
	Handler     string     `json:"handler"`
	Args        string     `json:"args"`
	LastError   string     `json:"lastError"`
	Claimed     bool       `json:"claimed" gorm:"not null;default:false"`
	JobStatusID uuid.UUID  `json:"jobStatusId" gorm:"type:uuid;index"`
	JobStatus   *JobStatus `json:"status,omitempty"`
}

// MarkAsClaimed moves an unclaimed job to in-progress. It returns false when
// another worker claimed it first.
func (job *Job) MarkAsClaimed() (bool, error) {
	inProgressStatus, err := FindJobStatus(IN_PROGRESS_JOB)
	if err != nil {
		return false, err
	}

	res := db.Model(&Job{}).Where("id = ? AND claimed = ?", job.ID, false).Updates(map[string]interface{}{
		"claimed":       true,
		"job_status_id": inProgressStatus.ID,
	})

	if res.Error != nil {
		return false, res.Error
	}

	return res.RowsAffected > 0, nil
}

func (job *Job) Update(data map[string]interface{}) error {
	return db.Model(job).Updates(data).Error
}

// CreateUniqueJobByName enqueues a job unless one with the same name is
// already enqueued or in-progress, in which case ErrDuplicateJob is returned.
func CreateUniqueJobByName(name string, handler string, args string) error {
	queuedJobStatuses := []JobStatus{}
	err := db.Where("name IN ?", []string{ENQUEUED_JOB, IN_PROGRESS_JOB}).Find(&queuedJobStatuses).Error
	if err != nil {
		return err
	}

	var enqueuedJobStatus JobStatus
	statusIDs := []uuid.UUID{}
	for _, jobStatus := range queuedJobStatuses {
		statusIDs = append(statusIDs, jobStatus.ID)
		if jobStatus.Name == ENQUEUED_JOB {
			enqueuedJobStatus = jobStatus
		}
	}

	if enqueuedJobStatus.ID == uuid.Nil {
		return errors.New("job statuses are not seeded")
	}

	var count int64
	err = db.Model(&Job{}).Where("name = ? AND job_status_id IN ?", name, statusIDs).Count(&count).Error
	if err != nil {
		return err
	}

	if count > 0 {
		return ErrDuplicateJob
	}

	return db.Create(&Job{
		Name:        name,
		Handler:     handler,
		Args:        args,
		JobStatusID: enqueuedJobStatus.ID,
	}).Error
}

// NextJob returns the oldest job in status with the given claimed flag.
func NextJob(status string, claimed bool) (*Job, error) {
	job := Job{}
	err := db.Joins(JOB_STATUS_JOIN, status).Where("jobs.claimed = ?", claimed).
		Order("jobs.created_at").First(&job).Error
	if err != nil {
		return nil, err
	}

	return &job, nil
}

func FetchJobs(status string, page int) ([]Job, *Paging, error) {
	var total int64
	jobs := []Job{}

	countQuery := db.Model(&Job{})
	listQuery := db.Scopes(paginate(page, MAX_PAGE_SIZE)).Preload("JobStatus")
	if status != "" {
		countQuery = countQuery.Joins(JOB_STATUS_JOIN, status)
		listQuery = listQuery.Joins(JOB_STATUS_JOIN, status)
	}

	err := countQuery.Count(&total).Error
	if err != nil {
		return nil, nil, err
	}

	err = listQuery.Order("jobs.created_at desc").Find(&jobs).Error
	if err != nil {
		return nil, nil, err
	}

	return jobs, newPaging(int64(page), MAX_PAGE_SIZE, total), nil
}

func CurrentJobsStats() (*JobsStats, error) {
	stats := JobsStats{}

	counts := map[string]*int64{
		ENQUEUED_JOB:    &stats.EnqueuedJobCount,
		IN_PROGRESS_JOB: &stats.InProgressJobCount,
		SUCCESSFUL_JOB:  &stats.SuccessfulJobCount,
		DEAD_JOB:        &stats.DeadJobCount,
	}

	for status, count := range counts {
		err := db.Model(&Job{}).Joins(JOB_STATUS_JOIN, status).Count(count).Error
		if err != nil {
			return nil, err
		}
	}

	return &stats, nil
}

// OldestJobLastUpdated returns the job in status that has not been touched
// for at least 'minutesAgo' minutes.
func OldestJobLastUpdated(minutesAgo uint, status string) (*Job, error) {
	jobStatus, err := FindJobStatus(status)
	if err != nil {
		return nil, err
	}

	cutoff := time.Now().UTC().Add(-time.Duration(minutesAgo) * time.Minute)

	job := Job{}
	err = db.Where("job_status_id = ? AND updated_at <= ?", jobStatus.ID, cutoff).
		Order("updated_at").First(&job).Error
	if err != nil {
		return nil, err
	}

	return &job, nil
}

func IsRecordNotFound(err error) bool {
	return errors.Is(err, gorm.ErrRecordNotFound)
}
