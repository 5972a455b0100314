package core

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/santiagomed/chef/recipe"
	"github.com/stretchr/testify/mock"
)

// MockFetcher is a mock implementation of the image service client
type MockFetcher struct {
	mock.Mock
}

func (m *MockFetcher) FetchStepImage(ctx context.Context, title string) recipe.ImageResult {
	args := m.Called(ctx, title)
	return args.Get(0).(recipe.ImageResult)
}

type fetchCall struct {
	title string
	start time.Time
	end   time.Time
}

// fakeFetcher answers from a title→url table after an optional latency and
// records timing and concurrency of every call.
type fakeFetcher struct {
	mu          sync.Mutex
	urls        map[string]string
	latency     time.Duration
	calls       []fetchCall
	inFlight    int
	maxInFlight int
}

func newFakeFetcher(latency time.Duration, urls map[string]string) *fakeFetcher {
	return &fakeFetcher{urls: urls, latency: latency}
}

func (f *fakeFetcher) FetchStepImage(ctx context.Context, title string) recipe.ImageResult {
	f.mu.Lock()
	f.inFlight++
	if f.inFlight > f.maxInFlight {
		f.maxInFlight = f.inFlight
	}
	start := time.Now()
	f.mu.Unlock()

	if f.latency > 0 {
		select {
		case <-time.After(f.latency):
		case <-ctx.Done():
		}
	}

	f.mu.Lock()
	f.inFlight--
	f.calls = append(f.calls, fetchCall{title: title, start: start, end: time.Now()})
	url, ok := f.urls[title]
	f.mu.Unlock()

	if ctx.Err() != nil || !ok {
		return recipe.Absent
	}
	return recipe.Present(url)
}

func (f *fakeFetcher) Calls() []fetchCall {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]fetchCall(nil), f.calls...)
}

func (f *fakeFetcher) MaxInFlight() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.maxInFlight
}

type panicFetcher struct {
	panicOn string
	inner   ImageFetcher
}

func (p *panicFetcher) FetchStepImage(ctx context.Context, title string) recipe.ImageResult {
	if title == p.panicOn {
		panic("transport exploded")
	}
	return p.inner.FetchStepImage(ctx, title)
}

type recordingPublisher struct {
	mu       sync.Mutex
	progress []Progress
	done     map[string]error
	panics   int
}

func newRecordingPublisher() *recordingPublisher {
	return &recordingPublisher{done: make(map[string]error)}
}

func (p *recordingPublisher) PublishProgress(pr Progress) {
	p.mu.Lock()
	if p.panics > 0 {
		p.panics--
		p.mu.Unlock()
		panic("display crashed")
	}
	p.progress = append(p.progress, pr)
	p.mu.Unlock()
}

func (p *recordingPublisher) PublishDone(runID string, err error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.done[runID] = err
}

func (p *recordingPublisher) Progress() []Progress {
	p.mu.Lock()
	defer p.mu.Unlock()
	return append([]Progress(nil), p.progress...)
}

func (p *recordingPublisher) Done() map[string]error {
	p.mu.Lock()
	defer p.mu.Unlock()
	out := make(map[string]error, len(p.done))
	for k, v := range p.done {
		out[k] = v
	}
	return out
}

func instructions(prefix string, n int) []recipe.Instruction {
	out := make([]recipe.Instruction, n)
	for i := range out {
		out[i] = recipe.Instruction{
			Step:    i + 1,
			Title:   fmt.Sprintf("%s-%d", prefix, i),
			Details: []string{"detail"},
		}
	}
	return out
}

func urlsFor(prefix string, n int) map[string]string {
	urls := make(map[string]string, n)
	for i := 0; i < n; i++ {
		urls[fmt.Sprintf("%s-%d", prefix, i)] = fmt.Sprintf("http://img/%s/%d.png", prefix, i)
	}
	return urls
}

func waitResult(t *testing.T, ch <-chan error) error {
	t.Helper()
	select {
	case err := <-ch:
		return err
	case <-time.After(5 * time.Second):
		t.Fatal("timed out waiting for run result")
		return nil
	}
}
