package core

import (
	"errors"
	"fmt"
	"sync"

	"github.com/google/uuid"
	"github.com/santiagomed/chef/config"
	"github.com/santiagomed/chef/recipe"
)

var (
	// ErrSuperseded is returned to a run whose instruction list has been
	// replaced. It is not a failure and is never retried.
	ErrSuperseded      = errors.New("run superseded")
	ErrIndexOutOfRange = errors.New("result index out of range")
)

type Phase int

const (
	Idle Phase = iota
	Running
)

func (p Phase) String() string {
	switch p {
	case Idle:
		return "idle"
	case Running:
		return "running"
	default:
		return fmt.Sprintf("Phase(%d)", int(p))
	}
}

// RevealMode controls when step images become visible while a run is active.
type RevealMode int

const (
	// RevealIncremental shows each image as soon as its step completes.
	RevealIncremental RevealMode = iota
	// RevealBatch keeps every step pending until the whole run is idle.
	RevealBatch
)

func ParseRevealMode(s string) (RevealMode, error) {
	switch s {
	case config.RevealIncremental, "":
		return RevealIncremental, nil
	case config.RevealBatch:
		return RevealBatch, nil
	default:
		return RevealIncremental, fmt.Errorf("unknown reveal mode %q", s)
	}
}

// PipelineState owns the per-step image results of the current run. Only a
// RunHandle for the current epoch may write to it.
type PipelineState struct {
	mu        sync.RWMutex
	reveal    RevealMode
	epoch     uint64
	runID     string
	phase     Phase
	results   []recipe.ImageResult
	completed int
}

func NewPipelineState(reveal RevealMode) *PipelineState {
	return &PipelineState{
		reveal:  reveal,
		results: []recipe.ImageResult{},
	}
}

// Begin discards the previous run and starts a new one sized for n
// instructions. An empty run stays Idle.
func (s *PipelineState) Begin(n int) *RunHandle {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.beginLocked(n)
}

func (s *PipelineState) beginLocked(n int) *RunHandle {
	s.epoch++
	s.runID = uuid.NewString()
	s.results = make([]recipe.ImageResult, n)
	s.completed = 0
	s.phase = Idle
	if n > 0 {
		s.phase = Running
	}
	return &RunHandle{state: s, epoch: s.epoch, id: s.runID, total: n}
}

func (s *PipelineState) Phase() Phase {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.phase
}

func (s *PipelineState) Snapshot() Snapshot {
	s.mu.RLock()
	defer s.mu.RUnlock()
	results := make([]recipe.ImageResult, len(s.results))
	copy(results, s.results)
	return Snapshot{
		RunID:     s.runID,
		Phase:     s.phase,
		Completed: s.completed,
		Results:   results,
		Reveal:    s.reveal,
	}
}

// RunHandle is the write access a single run has to the state.
type RunHandle struct {
	state *PipelineState
	epoch uint64
	id    string
	total int
}

func (h *RunHandle) ID() string { return h.id }

func (h *RunHandle) Total() int { return h.total }

// Current reports whether no newer run has started since this one.
func (h *RunHandle) Current() bool {
	h.state.mu.RLock()
	defer h.state.mu.RUnlock()
	return h.state.epoch == h.epoch
}

// Set stores the result for instruction index i. The epoch is checked before
// the bounds so a stale run can never land in a newer, shorter array.
func (h *RunHandle) Set(i int, r recipe.ImageResult) error {
	s := h.state
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.epoch != h.epoch {
		return ErrSuperseded
	}
	if i < 0 || i >= len(s.results) {
		return fmt.Errorf("%w: %d of %d", ErrIndexOutOfRange, i, len(s.results))
	}
	s.results[i] = r
	return nil
}

// Result reads back what this run stored at index i.
func (h *RunHandle) Result(i int) (recipe.ImageResult, bool) {
	s := h.state
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.epoch != h.epoch || i < 0 || i >= len(s.results) {
		return recipe.Absent, false
	}
	return s.results[i], true
}

// Progress counts one more attempted step. It returns false for a stale run.
func (h *RunHandle) Progress(completed int) bool {
	s := h.state
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.epoch != h.epoch {
		return false
	}
	if s.completed < len(s.results) {
		s.completed++
	}
	return true
}

func (h *RunHandle) Finish() {
	s := h.state
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.epoch == h.epoch {
		s.phase = Idle
	}
}

// Restart begins a fresh run of the same size for a retry attempt.
func (h *RunHandle) Restart() (*RunHandle, error) {
	s := h.state
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.epoch != h.epoch {
		return nil, ErrSuperseded
	}
	return s.beginLocked(h.total), nil
}

// Snapshot is a read-only copy of the state for the display layer.
type Snapshot struct {
	RunID     string
	Phase     Phase
	Completed int
	Results   []recipe.ImageResult
	Reveal    RevealMode
}

func (s Snapshot) Total() int {
	return len(s.Results)
}

// StepView is what the display should show for one step.
type StepView struct {
	Pending bool
	Image   recipe.ImageResult
}

// ImageURL falls back to placeholder for steps that finished without an image.
func (v StepView) ImageURL(placeholder string) string {
	if v.Pending {
		return ""
	}
	if v.Image.Ok() {
		return v.Image.URL
	}
	return placeholder
}

func (s Snapshot) View(i int) StepView {
	if i < 0 || i >= len(s.Results) {
		return StepView{}
	}
	if s.Phase == Running && (s.Reveal == RevealBatch || i >= s.Completed) {
		return StepView{Pending: true}
	}
	return StepView{Image: s.Results[i]}
}
