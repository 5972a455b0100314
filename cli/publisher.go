package cli

import (
	"fmt"

	"github.com/santiagomed/chef/core"
	"github.com/santiagomed/chef/logger"
)

type runDoneMsg struct {
	runID string
	err   error
}

type CliProgressPublisher struct {
	progressChan chan core.Progress
	doneChan     chan runDoneMsg
	logger       logger.Logger
}

func NewCliProgressPublisher(logger logger.Logger) *CliProgressPublisher {
	return &CliProgressPublisher{
		progressChan: make(chan core.Progress, 100), // Buffer size of 100
		doneChan:     make(chan runDoneMsg, 10),     // Buffer size of 10
		logger:       logger,
	}
}

func (p *CliProgressPublisher) PublishProgress(progress core.Progress) {
	select {
	case p.progressChan <- progress:
		p.logger.Debug(fmt.Sprintf("Published progress %d/%d for run %s", progress.Completed, progress.Total, progress.RunID))
	default:
		p.logger.Warn(fmt.Sprintf("Failed to publish progress %d/%d. Channel full.", progress.Completed, progress.Total))
	}
}

func (p *CliProgressPublisher) PublishDone(runID string, err error) {
	select {
	case p.doneChan <- runDoneMsg{runID: runID, err: err}:
		p.logger.Debug(fmt.Sprintf("Published completion of run %s", runID))
	default:
		p.logger.Warn(fmt.Sprintf("Failed to publish completion of run %s. Channel full.", runID))
	}
}
