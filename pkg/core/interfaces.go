package core

import (
	"context"
	"io"
)

// Experiment coordinates the running of experiments
type Experiment interface {
	// Run executes the experiment, writing progress to w
	Run(ctx context.Context, w io.Writer) error
	// GetStatus returns current experiment status
	GetStatus() ExperimentStatus
}
