package core

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/santiagomed/chef/logger"
	"github.com/santiagomed/chef/recipe"
)

// ErrRunAborted wraps a panic that escaped the step loop. It is the only
// failure the retry policy acts on; absent images are not failures.
var ErrRunAborted = errors.New("image run aborted")

type ImageFetcher interface {
	FetchStepImage(ctx context.Context, title string) recipe.ImageResult
}

// Results receives each step result as soon as it is known.
type Results interface {
	Set(index int, result recipe.ImageResult) error
}

type ProgressFunc func(completed int)

// Runner fetches step images strictly one at a time, waiting a fixed delay
// between requests so the image service is never hit concurrently.
type Runner struct {
	fetcher ImageFetcher
	delay   time.Duration
	logger  logger.Logger
}

func NewRunner(fetcher ImageFetcher, delay time.Duration, l logger.Logger) *Runner {
	if l == nil {
		l = logger.NewNullLogger()
	}
	return &Runner{
		fetcher: fetcher,
		delay:   delay,
		logger:  l,
	}
}

// Run requests an image for every instruction in index order. dst and
// onProgress may be nil. The returned slice always has len(instructions)
// entries; failed steps are absent and never stop the run.
func (r *Runner) Run(ctx context.Context, instructions []recipe.Instruction, dst Results, onProgress ProgressFunc) (results []recipe.ImageResult, err error) {
	results = make([]recipe.ImageResult, len(instructions))
	if len(instructions) == 0 {
		return results, nil
	}

	defer func() {
		if p := recover(); p != nil {
			r.logger.Error(fmt.Sprintf("Image run panicked: %v", p))
			err = fmt.Errorf("%w: %v", ErrRunAborted, p)
		}
	}()

	r.logger.Debug(fmt.Sprintf("Starting image run for %d steps", len(instructions)))
	for i, instr := range instructions {
		if err := ctx.Err(); err != nil {
			r.logger.Info(fmt.Sprintf("Image run cancelled before step %d", instr.Step))
			return results, err
		}

		startTime := time.Now()
		res := r.fetch(ctx, instr.Title)
		if err := ctx.Err(); err != nil {
			return results, err
		}

		results[i] = res
		if dst != nil {
			if err := dst.Set(i, res); err != nil {
				r.logger.Debug(fmt.Sprintf("Dropping result for step %d: %v", instr.Step, err))
				return results, err
			}
		}
		r.logger.Debug(fmt.Sprintf("Step %d image %s in %v", instr.Step, outcome(res), time.Since(startTime)))

		if onProgress != nil {
			onProgress(i + 1)
		}

		if i < len(instructions)-1 {
			if err := sleep(ctx, r.delay); err != nil {
				return results, err
			}
		}
	}

	r.logger.Debug("Image run completed")
	return results, nil
}

// fetch shields the run from a fetcher that panics; that step is absent.
func (r *Runner) fetch(ctx context.Context, title string) (res recipe.ImageResult) {
	defer func() {
		if p := recover(); p != nil {
			r.logger.WithField("title", title).Warn(fmt.Sprintf("image fetch panicked: %v", p))
			res = recipe.Absent
		}
	}()
	return r.fetcher.FetchStepImage(ctx, title)
}

func outcome(res recipe.ImageResult) string {
	if res.Ok() {
		return "fetched"
	}
	return "missing"
}

func sleep(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
