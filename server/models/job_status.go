package models

const (
	ENQUEUED_JOB    = "enqueued"
	IN_PROGRESS_JOB = "in-progress"
	SUCCESSFUL_JOB  = "successful"
	DEAD_JOB        = "dead"
)

var JobStatusNameMap = map[string]bool{
	ENQUEUED_JOB:    true,
	IN_PROGRESS_JOB: true,
	SUCCESSFUL_JOB:  true,
	DEAD_JOB:        true,
}

type JobsStats struct {
	EnqueuedJobCount   int64 `json:"enqueuedJobCount"`
	InProgressJobCount int64 `json:"inProgressJobCount"`
	SuccessfulJobCount int64 `json:"successfulJobCount"`
	DeadJobCount       int64 `json:"deadJobCount"`
}

type JobStatus struct {
	BaseModel
	Name string `json:"name" gorm:"uniqueIndex"`
	Jobs []Job  `json:"-" gorm:"constraint:OnUpdate:CASCADE,OnDelete:SET NULL;"`
}

func FindJobStatus(name string) (*JobStatus, error) {
	jobStatus := JobStatus{}
	err := db.Select("id", "name").First(&jobStatus, "name = ?", name).Error
	if err != nil {
		return nil, err
	}

	return &jobStatus, nil
}
