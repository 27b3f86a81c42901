package progress

import (
	"context"
	"fmt"
	"io"
	"os"
	"sync"
	"time"

	"github.com/briandowns/spinner"
	"github.com/fatih/color"
	"github.com/trebuchet-org/treb-roles/internal/usecase"
)

// Stage names emitted by the reconciliation use case
const (
	StageResolve  = "resolve"
	StageObserve  = "observe"
	StageExecute  = "execute"
	StageComplete = "complete"
)

// SpinnerProgressReporter implements progress reporting with a spinner
type SpinnerProgressReporter struct {
	mu             sync.Mutex
	spinner        *spinner.Spinner
	out            io.Writer
	stages         []stageInfo
	currentStage   string
	stageStartTime time.Time
}

type stageInfo struct {
	Stage     string
	StartTime time.Time
	EndTime   time.Time
	Status    string
	Message   string
}

// NewSpinnerProgressReporter creates a new spinner-based progress reporter.
// It writes to stderr so stdout stays clean for --json output.
func NewSpinnerProgressReporter() *SpinnerProgressReporter {
	s := spinner.New(spinner.CharSets[14], 100*time.Millisecond, spinner.WithWriter(os.Stderr))
	s.HideCursor = false

	return &SpinnerProgressReporter{
		spinner: s,
		out:     os.Stderr,
		stages:  []stageInfo{},
	}
}

// OnProgress handles progress events
func (r *SpinnerProgressReporter) OnProgress(ctx context.Context, event usecase.ProgressEvent) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if event.Stage != "" && event.Stage != r.currentStage {
		r.enterStage(event.Stage)
	}

	if event.Spinner {
		if !r.spinner.Active() {
			r.spinner.Start()
		}
		r.spinner.Lock()
		r.spinner.Suffix = " " + r.stageLine() + " " + counter(event) + event.Message
		r.spinner.Unlock()
	} else if r.spinner.Active() {
		r.spinner.Stop()
	}

	if len(r.stages) > 0 {
		r.stages[len(r.stages)-1].Message = event.Message
	}
}

// Info prints an info message
func (r *SpinnerProgressReporter) Info(message string) {
	r.printPaused(color.New(color.FgCyan), message)
}

// Error prints an error message
func (r *SpinnerProgressReporter) Error(message string) {
	r.printPaused(color.New(color.FgRed), message)
}

func (r *SpinnerProgressReporter) printPaused(c *color.Color, message string) {
	r.mu.Lock()
	defer r.mu.Unlock()

	// Stop spinner temporarily
	wasActive := r.spinner.Active()
	if wasActive {
		r.spinner.Stop()
	}

	_, _ = c.Fprintln(r.out, message)

	if wasActive {
		r.spinner.Start()
	}
}

// enterStage completes the running stage and records a new one
func (r *SpinnerProgressReporter) enterStage(stage string) {
	if len(r.stages) > 0 {
		idx := len(r.stages) - 1
		r.stages[idx].EndTime = time.Now()
		r.stages[idx].Status = "completed"
	}

	r.currentStage = stage
	r.stageStartTime = time.Now()
	status := "running"
	if stage == StageComplete {
		status = "completed"
		r.spinner.Stop()
	}
	r.stages = append(r.stages, stageInfo{
		Stage:     stage,
		StartTime: r.stageStartTime,
		Status:    status,
	})
}

// stageLine renders the stage trail, e.g. "✓ Resolving → ● Reading"
func (r *SpinnerProgressReporter) stageLine() string {
	var display string
	for i, stage := range r.stages {
		name := stageName(stage.Stage)
		if name == "" {
			continue
		}

		var icon string
		var stageColor *color.Color
		switch stage.Status {
		case "completed":
			icon = "✓"
			stageColor = color.New(color.FgGreen)
		case "running":
			icon = "●"
			stageColor = color.New(color.FgYellow)
		default:
			icon = "○"
			stageColor = color.New(color.FgWhite)
		}

		duration := ""
		if !stage.EndTime.IsZero() {
			duration = fmt.Sprintf(" (%s)", stage.EndTime.Sub(stage.StartTime).Round(time.Millisecond))
		}

		if i > 0 {
			display += " → "
		}
		display += fmt.Sprintf("%s %s%s", icon, stageColor.Sprint(name), duration)
	}
	return display
}

func stageName(stage string) string {
	switch stage {
	case StageResolve:
		return "Resolving"
	case StageObserve:
		return "Reading"
	case StageExecute:
		return "Applying"
	case StageComplete:
		return "Done"
	default:
		return ""
	}
}

func counter(event usecase.ProgressEvent) string {
	if event.Total == 0 || event.Current == 0 {
		return ""
	}
	return fmt.Sprintf("[%d/%d] ", event.Current, event.Total)
}

// Ensure SpinnerProgressReporter implements ProgressSink
var _ usecase.ProgressSink = (*SpinnerProgressReporter)(nil)
