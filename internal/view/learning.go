package view

import (
	"fmt"
	"io"
	"strings"

	"github.com/webhydra/console/internal/model"
)

// progressWidth is the character width of the training progress bar.
const progressWidth = 40

// Learning renders the model-training page.
type Learning struct {
	Out io.Writer
}

// NewLearning returns a learning view writing to out.
func NewLearning(out io.Writer) *Learning {
	return &Learning{Out: out}
}

// RenderTraining prints the training progress bar and the accumulated log
// lines.
func (v *Learning) RenderTraining(state model.TrainingState, confidence float64) {
	title(v.Out, "Model Training")
	fmt.Fprintf(v.Out, "  Model Confidence  %s\n", colorGreen(fmt.Sprintf("%.1f%%", confidence*100)))

	if !state.InProgress && state.Progress == 0 {
		fmt.Fprintln(v.Out, "  no training in progress")
		fmt.Fprintln(v.Out, "Commands: train start")
		return
	}

	filled := state.Progress * progressWidth / 100
	if filled > progressWidth {
		filled = progressWidth
	}
	bar := strings.Repeat("█", filled) + strings.Repeat("░", progressWidth-filled)
	status := colorGreen("complete")
	if state.InProgress {
		status = colorYellow("running")
	}
	fmt.Fprintf(v.Out, "  [%s] %3d%% %s\n", bar, state.Progress, status)

	for _, line := range state.Logs {
		fmt.Fprintf(v.Out, "  %s\n", line)
	}
}
