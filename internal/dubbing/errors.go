package dubbing

import "fmt"

// JobError is the single structured failure of a job.
type JobError struct {
	Stage string
	JobID string
	Err   error
}

func (e *JobError) Error() string {
	return fmt.Sprintf("dub job %s failed at %s: %v", e.JobID, e.Stage, e.Err)
}

func (e *JobError) Unwrap() error {
	return e.Err
}
