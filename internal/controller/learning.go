package controller

import (
	"context"
	"fmt"
	"io"
	"sync"
	"time"

	"github.com/webhydra/console/internal/model"
	"github.com/webhydra/console/internal/view"
)

// trainingTicks is the number of discrete steps a training run takes.
const trainingTicks = 20

// Learning drives the model-training page. A run advances in trainingTicks
// steps, each appending one log line; completion bumps the model confidence.
// Only one run may be active at a time, enforced by the model.
type Learning struct {
	model *model.DataModel
	view  LearningView
	out   io.Writer
	tick  time.Duration

	mu     sync.Mutex
	stopCh chan struct{}
	doneCh chan struct{}
}

// NewLearning builds the learning page controller. tick is the interval
// between training steps.
func NewLearning(m *model.DataModel, v LearningView, out io.Writer, tick time.Duration) *Learning {
	return &Learning{model: m, view: v, out: out, tick: tick}
}

// Init renders the idle page and binds the train command.
func (c *Learning) Init(_ context.Context, bind Binder) {
	c.Render()
	bind.Bind("train", c.handleTrain)
}

// handleTrain starts a run. Starting while one is active is a no-op.
func (c *Learning) handleTrain(_ context.Context, args []string) {
	if len(args) != 1 || args[0] != "start" {
		view.Errorf(c.out, "usage: train start")
		return
	}
	if !c.model.StartTraining() {
		view.Statusf(c.out, "training is already in progress")
		return
	}

	c.mu.Lock()
	c.stopCh = make(chan struct{})
	c.doneCh = make(chan struct{})
	go c.run(c.stopCh, c.doneCh)
	c.mu.Unlock()

	c.Render()
}

// run advances the training session one step per tick until it completes or
// the page is destroyed.
func (c *Learning) run(stopCh, doneCh chan struct{}) {
	defer close(doneCh)
	ticker := time.NewTicker(c.tick)
	defer ticker.Stop()

	for step := 1; step <= trainingTicks; step++ {
		select {
		case <-stopCh:
			c.model.AbortTraining()
			return
		case <-ticker.C:
		}
		c.model.UpdateTraining(
			step*100/trainingTicks,
			fmt.Sprintf("Epoch %d/%d: refining detection boundaries", step, trainingTicks),
		)
		c.Render()
	}
	c.model.CompleteTraining()
	c.Render()
}

// Render shows the progress bar, log lines, and current confidence.
func (c *Learning) Render() {
	c.view.RenderTraining(c.model.Training(), c.model.KPIs().ModelConfidence)
}

// Destroy aborts a run in flight and waits for its goroutine to exit.
func (c *Learning) Destroy() {
	c.mu.Lock()
	stopCh, doneCh := c.stopCh, c.doneCh
	c.stopCh, c.doneCh = nil, nil
	c.mu.Unlock()
	if stopCh == nil {
		return
	}
	select {
	case <-stopCh:
	default:
		close(stopCh)
	}
	<-doneCh
}
