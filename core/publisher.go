package core

import "github.com/santiagomed/chef/recipe"

// Progress is emitted once per attempted step, in index order.
type Progress struct {
	RunID     string
	Index     int
	Step      int
	Completed int
	Total     int
	Result    recipe.ImageResult
}

// Done reports whether this was the last step of the run.
func (p Progress) Done() bool {
	return p.Completed >= p.Total
}

// Ratio is the completed fraction in [0, 1].
func (p Progress) Ratio() float64 {
	if p.Total == 0 {
		return 1
	}
	return float64(p.Completed) / float64(p.Total)
}

type ProgressPublisher interface {
	PublishProgress(p Progress)
	PublishDone(runID string, err error)
}

type DefaultProgressPublisher struct{}

func (p *DefaultProgressPublisher) PublishProgress(Progress) {}

func (p *DefaultProgressPublisher) PublishDone(string, error) {}
