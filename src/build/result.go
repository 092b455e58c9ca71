package build

import "time"

// BuildResult is the outcome of one job. Success is true exactly when
// Status is Success; cancellation is reported as Failed with
// Kind == KindCancelled.
type BuildResult struct {
	JobID      string
	Source     string
	Format     Format
	Success    bool
	Status     Status
	Kind       ErrorKind
	OutputPath string
	Error      string
	Log        string
	Duration   time.Duration
}

func succeeded(job BuildJob, outputPath, log string, d time.Duration) *BuildResult {
	return &BuildResult{
		JobID:      job.ID,
		Source:     job.Source,
		Format:     job.Format,
		Success:    true,
		Status:     Success,
		OutputPath: outputPath,
		Log:        log,
		Duration:   d,
	}
}

// Failure returns a failed result for job. Callers outside the runner use
// it to record jobs that never reached a runner.
func Failure(job BuildJob, err error, log string, d time.Duration) *BuildResult {
	msg := "unknown error"
	if err != nil {
		msg = err.Error()
	}
	return &BuildResult{
		JobID:    job.ID,
		Source:   job.Source,
		Format:   job.Format,
		Status:   Failed,
		Kind:     KindOf(err),
		Error:    msg,
		Log:      log,
		Duration: d,
	}
}

// WithLogHeader returns a copy of r whose log is prefixed by header. All
// other fields are preserved.
func (r *BuildResult) WithLogHeader(header string) *BuildResult {
	out := *r
	out.Log = header + r.Log
	return &out
}
