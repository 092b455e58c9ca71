package build

import (
	"time"

	"github.com/google/uuid"
)

// DefaultTimeout bounds a backend run when neither the job nor the runner
// sets one.
const DefaultTimeout = 10 * time.Minute

// BuildJob is one requested build. Treat it as a value: runners copy what
// they need and never modify it.
type BuildJob struct {
	ID            string
	Source        string
	Format        Format
	ExtraArgs     []string
	SpecFile      string
	HiddenImports []string
	Timeout       time.Duration
}

// JobOption customizes NewJob.
type JobOption func(*BuildJob)

// WithExtraArgs appends backend arguments.
func WithExtraArgs(args ...string) JobOption {
	return func(j *BuildJob) { j.ExtraArgs = append(j.ExtraArgs, args...) }
}

// WithSpecFile builds from a pre-authored backend spec file.
func WithSpecFile(path string) JobOption {
	return func(j *BuildJob) { j.SpecFile = path }
}

// WithHiddenImports adds modules to the spec file's hidden imports before
// the build runs. Only meaningful together with WithSpecFile.
func WithHiddenImports(names ...string) JobOption {
	return func(j *BuildJob) { j.HiddenImports = append(j.HiddenImports, names...) }
}

// WithTimeout bounds the backend run.
func WithTimeout(d time.Duration) JobOption {
	return func(j *BuildJob) { j.Timeout = d }
}

// NewJob returns a job with a fresh ID.
func NewJob(source string, format Format, opts ...JobOption) BuildJob {
	j := BuildJob{
		ID:     uuid.NewString(),
		Source: source,
		Format: format,
	}
	for _, o := range opts {
		o(&j)
	}
	return j
}
