package apierrors

import (
	"fmt"

	"github.com/pkg/errors"
)

// Sentinels for synchronous request failures. Wrap them with context:
// errors.Wrap(ErrNotFound, "no contract 42").
var (
	ErrNotFound   = errors.New("no data")
	ErrValidation = errors.New("bad request")
	ErrInternal   = errors.New("internal error")
)

// QueueError means enqueueing a job failed: the job never started and
// any optimistic entity-state change was reverted.
type QueueError struct {
	Err error
}

func (e QueueError) Error() string {
	return fmt.Sprintf("queue error: %s", e.Err)
}

func (e QueueError) Cause() error {
	return e.Err
}

// DependencyError is a failure of one of the analyzer capability
// providers inside the analysis worker.
type DependencyError struct {
	Dependency string
	Err        error
}

func (e DependencyError) Error() string {
	return fmt.Sprintf("dependency %s failed: %s", e.Dependency, e.Err)
}

func (e DependencyError) Cause() error {
	return e.Err
}

// RenderError is a failure of one specific report format; it fails the
// whole report job.
type RenderError struct {
	Format string
	Err    error
}

func (e RenderError) Error() string {
	return fmt.Sprintf("can't render %s report: %s", e.Format, e.Err)
}

func (e RenderError) Cause() error {
	return e.Err
}
