package core

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/santiagomed/chef/logger"
	"github.com/santiagomed/chef/recipe"
)

var (
	ErrEngineStopped = errors.New("engine stopped")
	ErrEngineBusy    = errors.New("engine queue full")
)

type runRequest struct {
	ctx          context.Context
	cancel       context.CancelFunc
	handle       *RunHandle
	instructions []recipe.Instruction
	resultChan   chan error
	createdAt    time.Time
}

// Engine restarts the image pipeline whenever a new instruction list
// arrives. Runs execute one at a time on a single worker; submitting a new
// list cancels the run in flight and resets the state before returning.
type Engine struct {
	runner *Runner
	retry  *RetryPolicy
	state  *PipelineState
	pub    ProgressPublisher
	logger logger.Logger

	mu           sync.Mutex
	baseCtx      context.Context
	cancel       context.CancelFunc
	requests     chan runRequest
	workerWG     sync.WaitGroup
	shutdownChan chan struct{}
	stopped      bool
}

func NewEngine(runner *Runner, retry *RetryPolicy, state *PipelineState, pub ProgressPublisher, l logger.Logger) *Engine {
	if l == nil {
		l = logger.NewNullLogger()
	}
	if pub == nil {
		pub = &DefaultProgressPublisher{}
	}
	if retry == nil {
		retry = NewRetryPolicy(1, BackoffConfig{}, l)
	}
	return &Engine{
		runner:       runner,
		retry:        retry,
		state:        state,
		pub:          pub,
		logger:       l,
		baseCtx:      context.Background(),
		requests:     make(chan runRequest, 100),
		shutdownChan: make(chan struct{}),
	}
}

func (e *Engine) State() *PipelineState {
	return e.state
}

func (e *Engine) Start(ctx context.Context) {
	e.mu.Lock()
	e.baseCtx = ctx
	e.mu.Unlock()

	e.workerWG.Add(1)
	go e.worker(ctx)
}

// Submit supersedes any previous run and queues a new one. The returned
// channel yields nil on completion, ErrSuperseded if a newer Submit replaced
// this one, or the error that exhausted the retry policy.
func (e *Engine) Submit(instructions []recipe.Instruction) <-chan error {
	resultChan := make(chan error, 1)

	e.mu.Lock()
	defer e.mu.Unlock()

	if e.stopped {
		resultChan <- ErrEngineStopped
		close(resultChan)
		return resultChan
	}

	if e.cancel != nil {
		e.cancel()
		e.cancel = nil
	}

	handle := e.state.Begin(len(instructions))
	if len(instructions) == 0 {
		e.logger.Debug("Empty instruction list, nothing to fetch")
		e.pub.PublishDone(handle.ID(), nil)
		resultChan <- nil
		close(resultChan)
		return resultChan
	}

	ctx, cancel := context.WithCancel(e.baseCtx)
	req := runRequest{
		ctx:          ctx,
		cancel:       cancel,
		handle:       handle,
		instructions: append([]recipe.Instruction(nil), instructions...),
		resultChan:   resultChan,
		createdAt:    time.Now(),
	}

	select {
	case e.requests <- req:
		e.cancel = cancel
	default:
		cancel()
		handle.Finish()
		e.logger.Warn("Image run queue is full, dropping request")
		resultChan <- ErrEngineBusy
		close(resultChan)
	}
	return resultChan
}

func (e *Engine) worker(ctx context.Context) {
	defer e.workerWG.Done()
	for {
		select {
		case req := <-e.requests:
			err := e.execute(req)
			req.resultChan <- err
			close(req.resultChan)
		case <-ctx.Done():
			return
		case <-e.shutdownChan:
			return
		}
	}
}

func (e *Engine) execute(req runRequest) error {
	defer req.cancel()

	handle := req.handle
	log := e.logger.WithField("run", handle.ID())

	if !handle.Current() {
		log.Debug("Skipping superseded run")
		return ErrSuperseded
	}

	log.Info(fmt.Sprintf("Starting image run for %d steps (queued %v)", len(req.instructions), time.Since(req.createdAt)))
	startTime := time.Now()

	err := e.retry.Do(req.ctx, func(ctx context.Context, attempt int) error {
		if attempt > 1 {
			next, err := handle.Restart()
			if err != nil {
				return err
			}
			handle = next
			log.Info(fmt.Sprintf("Retrying image run, attempt %d as %s", attempt, handle.ID()))
		}

		_, err := e.runner.Run(ctx, req.instructions, handle, func(completed int) {
			if !handle.Progress(completed) {
				return
			}
			idx := completed - 1
			res, _ := handle.Result(idx)
			e.pub.PublishProgress(Progress{
				RunID:     handle.ID(),
				Index:     idx,
				Step:      req.instructions[idx].Step,
				Completed: completed,
				Total:     handle.Total(),
				Result:    res,
			})
		})
		return err
	})

	if !handle.Current() {
		log.Info("Image run superseded")
		return ErrSuperseded
	}
	handle.Finish()

	if err != nil {
		log.Error(fmt.Sprintf("Image run failed after %v: %v", time.Since(startTime), err))
	} else {
		log.Info(fmt.Sprintf("Image run completed in %v", time.Since(startTime)))
	}
	e.pub.PublishDone(handle.ID(), err)
	return err
}

// Cancel stops the run in flight without starting a new one.
func (e *Engine) Cancel() {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.cancel != nil {
		e.cancel()
		e.cancel = nil
	}
}

func (e *Engine) Shutdown(timeout time.Duration) {
	e.mu.Lock()
	if e.stopped {
		e.mu.Unlock()
		return
	}
	e.stopped = true
	if e.cancel != nil {
		e.cancel()
		e.cancel = nil
	}
	close(e.shutdownChan)
	e.mu.Unlock()

	done := make(chan struct{})
	go func() {
		e.workerWG.Wait()
		close(done)
	}()

	select {
	case <-done:
		e.logger.Info("Image worker shut down gracefully")
	case <-time.After(timeout):
		e.logger.Warn("Shutdown timed out, image worker may still be running")
	}

	for {
		select {
		case req := <-e.requests:
			req.cancel()
			req.handle.Finish()
			req.resultChan <- ErrEngineStopped
			close(req.resultChan)
		default:
			return
		}
	}
}
