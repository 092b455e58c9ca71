// Package batch runs many build jobs over a bounded worker pool.
package batch

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/sofmeright/packwright/src/build"
	"github.com/sofmeright/packwright/src/ctxlog"
	"github.com/sofmeright/packwright/src/source"
)

// Status strings reported on a Result.
const (
	StatusCompleted = "completed"
	StatusNoFiles   = "no valid files found"
)

// Executor runs one job at a time. *build.Runner implements it.
type Executor interface {
	Run(ctx context.Context, job build.BuildJob) *build.BuildResult
}

// Progress is called once per job in completion order.
type Progress func(path string, completed, total int)

// Orchestrator fans jobs out to executors. Each worker owns one executor
// for its whole lifetime.
type Orchestrator struct {
	NewRunner func() Executor
	Source    *source.Validator
}

// Result aggregates one batch.
type Result struct {
	Total      int
	Successful int
	Failed     int
	// Results holds one entry per counted input, keyed by source path.
	Results map[string]*build.BuildResult
	// Order lists source paths in completion order.
	Order    []string
	Duration time.Duration
	Status   string
}

// RunAll builds jobs with at most maxConcurrency executors alive at once.
// Individual job failures are reported in the result; the only error is an
// invalid pool size.
func (o *Orchestrator) RunAll(ctx context.Context, jobs []build.BuildJob, maxConcurrency int, onProgress Progress) (*Result, error) {
	if maxConcurrency < 1 {
		return nil, fmt.Errorf("batch: max concurrency must be at least 1, got %d", maxConcurrency)
	}
	if o.NewRunner == nil {
		return nil, fmt.Errorf("batch: no runner factory configured")
	}
	start := time.Now()
	log := ctxlog.FromContext(ctx)

	seen := make(map[string]bool, len(jobs))
	unique := make([]build.BuildJob, 0, len(jobs))
	for _, j := range jobs {
		if seen[j.Source] {
			log.Warn("duplicate source dropped from batch", "source", j.Source)
			continue
		}
		seen[j.Source] = true
		unique = append(unique, j)
	}

	res := &Result{
		Total:   len(unique),
		Results: make(map[string]*build.BuildResult, len(unique)),
	}
	if res.Total == 0 {
		res.Status = StatusNoFiles
		res.Duration = time.Since(start)
		return res, nil
	}

	record := func(r *build.BuildResult) {
		res.Results[r.Source] = r
		res.Order = append(res.Order, r.Source)
		if r.Success {
			res.Successful++
		} else {
			res.Failed++
		}
		if onProgress != nil {
			onProgress(r.Source, len(res.Order), res.Total)
		}
	}

	validator := o.Source
	if validator == nil {
		validator = source.New()
	}
	valid := make([]build.BuildJob, 0, len(unique))
	for _, j := range unique {
		if err := validator.Check(ctx, j.Source); err != nil {
			log.Warn("skipping invalid source", "source", j.Source, "error", err)
			record(build.Failure(j, build.Wrap(build.KindInputInvalid, err, "invalid source %q", j.Source), "", 0))
			continue
		}
		valid = append(valid, j)
	}

	queue := make(chan build.BuildJob)
	results := make(chan *build.BuildResult)
	locks := build.NewPathLocks()

	var g errgroup.Group
	workers := min(maxConcurrency, len(valid))
	for i := 0; i < workers; i++ {
		g.Go(func() error {
			var runner Executor
			for job := range queue {
				if runner == nil {
					runner = o.spawn(locks)
				}
				results <- runOne(ctx, runner, job)
			}
			return nil
		})
	}
	go func() {
		defer close(queue)
		for _, j := range valid {
			queue <- j
		}
	}()
	go func() {
		_ = g.Wait()
		close(results)
	}()

	for r := range results {
		record(r)
	}

	res.Duration = time.Since(start)
	res.Status = StatusCompleted
	if res.Failed > 0 {
		res.Status = fmt.Sprintf("completed with %d failures", res.Failed)
	}
	log.Info("batch finished", "total", res.Total, "successful", res.Successful, "failed", res.Failed, "duration", res.Duration.Round(time.Millisecond))
	return res, nil
}

// spawn creates a worker's executor, sharing the batch's path locks with
// process runners that have none of their own.
func (o *Orchestrator) spawn(locks *build.PathLocks) Executor {
	ex := o.NewRunner()
	if r, ok := ex.(*build.Runner); ok && r.Locks == nil {
		r.Locks = locks
	}
	return ex
}

// runOne contains a panicking executor to the job that triggered it.
func runOne(ctx context.Context, ex Executor, job build.BuildJob) (res *build.BuildResult) {
	start := time.Now()
	defer func() {
		if p := recover(); p != nil {
			ctxlog.FromContext(ctx).Error("build panicked", "source", job.Source, "panic", p)
			res = build.Failure(job, build.Errorf(build.KindUnexpected, "unexpected error: %v", p), "", time.Since(start))
		}
	}()
	res = ex.Run(ctx, job)
	if res == nil {
		res = build.Failure(job, build.Errorf(build.KindUnexpected, "runner returned no result"), "", time.Since(start))
	}
	return res
}

// SuccessRate is the share of successful builds in percent.
func (r *Result) SuccessRate() float64 {
	if r.Total == 0 {
		return 0
	}
	return 100 * float64(r.Successful) / float64(r.Total)
}

// Paths returns the result keys sorted.
func (r *Result) Paths() []string {
	paths := make([]string, 0, len(r.Results))
	for p := range r.Results {
		paths = append(paths, p)
	}
	sort.Strings(paths)
	return paths
}

// Summary renders a plain-text report of the batch.
func (r *Result) Summary() string {
	var b strings.Builder
	fmt.Fprintf(&b, "Batch build %s\n", r.Status)
	fmt.Fprintf(&b, "Total: %d  Successful: %d  Failed: %d  Success rate: %.1f%%  Duration: %s\n",
		r.Total, r.Successful, r.Failed, r.SuccessRate(), r.Duration.Round(time.Millisecond))
	for _, p := range r.Paths() {
		res := r.Results[p]
		if res.Success {
			fmt.Fprintf(&b, "  OK    %s -> %s\n", p, res.OutputPath)
		} else {
			fmt.Fprintf(&b, "  FAIL  %s: %s\n", p, firstLine(res.Error))
		}
	}
	return b.String()
}

func firstLine(s string) string {
	line, _, _ := strings.Cut(s, "\n")
	return line
}
