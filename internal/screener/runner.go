package screener

import (
	"context"
	"fmt"
	"sync"

	"go.uber.org/zap"
)

// Job is one scan to run: a mode plus its criteria.
type Job struct {
	Mode     Mode
	Criteria Criteria
}

func (j Job) String() string {
	return fmt.Sprintf("%s/%d symbols", j.Mode, len(j.Criteria.Symbols))
}

// JobResult pairs a Job with its outcome.
type JobResult struct {
	Job    Job
	Report *Report
	Err    error
}

// BatchResult aggregates a batch of scans.
type BatchResult struct {
	Total     int
	Succeeded int
	Synthetic int
	Failed    int
	Errors    []string
}

// Runner executes scan jobs on a bounded worker pool. The scanner's
// shared rate limiter still paces provider traffic, so concurrency here
// never exceeds the provider budget.
type Runner struct {
	scanner *Scanner
	workers int
	logger  *zap.Logger
}

func NewRunner(scanner *Scanner, workers int, logger *zap.Logger) *Runner {
	if workers < 1 {
		workers = 1
	}
	return &Runner{
		scanner: scanner,
		workers: workers,
		logger:  logger,
	}
}

// Execute runs all jobs and collects their reports. Individual job
// failures are recorded, not propagated.
func (r *Runner) Execute(ctx context.Context, jobs []Job) (*BatchResult, []JobResult, error) {
	batch := &BatchResult{Total: len(jobs)}
	if len(jobs) == 0 {
		return batch, nil, nil
	}

	jobCh := make(chan Job, len(jobs))
	resultCh := make(chan JobResult, len(jobs))

	var wg sync.WaitGroup
	for i := 0; i < r.workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			r.worker(ctx, jobCh, resultCh)
		}()
	}

	go func() {
		for _, job := range jobs {
			select {
			case <-ctx.Done():
				return
			case jobCh <- job:
			}
		}
		close(jobCh)
	}()

	go func() {
		wg.Wait()
		close(resultCh)
	}()

	var results []JobResult
	for res := range resultCh {
		results = append(results, res)
		switch {
		case res.Err != nil:
			batch.Failed++
			batch.Errors = append(batch.Errors, fmt.Sprintf("%s: %v", res.Job, res.Err))
		case res.Report.Synthetic:
			batch.Succeeded++
			batch.Synthetic++
		default:
			batch.Succeeded++
		}
	}

	return batch, results, nil
}

func (r *Runner) worker(ctx context.Context, jobs <-chan Job, results chan<- JobResult) {
	for job := range jobs {
		select {
		case <-ctx.Done():
			return
		default:
		}

		report, err := r.scanner.Scan(ctx, job.Mode, &job.Criteria)
		if err != nil {
			r.logger.Debug("scan job failed", zap.String("job", job.String()), zap.Error(err))
		}

		select {
		case <-ctx.Done():
			return
		case results <- JobResult{Job: job, Report: report, Err: err}:
		}
	}
}
