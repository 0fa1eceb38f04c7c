// Package progress narrows the teacher's direct clicky/task usage down to
// the single protocol this system needs (spec 4.12): start a named unit of
// work, push progress/description updates as it runs, finish with a
// result or error. Callers (downloader, orchestrator) depend only on the
// Task/Reporter interfaces here, never on clicky directly, so a headless
// test run can swap in Noop without a terminal attached.
package progress

import (
	flanksourceContext "github.com/flanksource/commons/context"

	"github.com/flanksource/clicky"
	"github.com/flanksource/clicky/task"
)

// Task is the subset of clicky's *task.Task this system drives.
type Task interface {
	SetProgress(current, total int64)
	SetDescription(desc string)
	Infof(format string, args ...interface{})
	Warnf(format string, args ...interface{})
	Name() string
}

// Reporter runs a named unit of work, handing the implementation's Task
// to fn so it can report progress as it goes.
type Reporter interface {
	Run(name string, fn func(Task) (interface{}, error)) (interface{}, error)
	// Wait blocks until every Run call started through this Reporter has
	// finished, mirroring clicky.WaitForGlobalCompletion's role in the
	// teacher's cmd layer.
	Wait()
}

// TaskReporter renders progress through clicky's terminal task tree, the
// same mechanism the teacher's cmd/*.go and pkg/installer use.
type TaskReporter struct{}

func NewTaskReporter() *TaskReporter { return &TaskReporter{} }

func (TaskReporter) Run(name string, fn func(Task) (interface{}, error)) (interface{}, error) {
	var result interface{}
	var runErr error
	task.StartTask(name, func(_ flanksourceContext.Context, t *task.Task) (interface{}, error) {
		result, runErr = fn(taskAdapter{t})
		return result, runErr
	})
	return result, runErr
}

func (TaskReporter) Wait() {
	clicky.WaitForGlobalCompletion()
}

type taskAdapter struct{ t *task.Task }

func (a taskAdapter) SetProgress(current, total int64) { a.t.SetProgress(int(current), int(total)) }
func (a taskAdapter) SetDescription(desc string)        { a.t.SetDescription(desc) }
func (a taskAdapter) Infof(format string, args ...interface{}) { a.t.Infof(format, args...) }
func (a taskAdapter) Warnf(format string, args ...interface{}) { a.t.V(1).Infof(format, args...) }
func (a taskAdapter) Name() string                      { return a.t.Name() }

// NoopReporter runs fn synchronously against a Task that discards every
// update, for non-interactive invocations (--quiet, tests, CI logs).
type NoopReporter struct{}

func NewNoopReporter() *NoopReporter { return &NoopReporter{} }

func (NoopReporter) Run(name string, fn func(Task) (interface{}, error)) (interface{}, error) {
	return fn(noopTask{name: name})
}

func (NoopReporter) Wait() {}

type noopTask struct{ name string }

func (noopTask) SetProgress(current, total int64)         {}
func (noopTask) SetDescription(desc string)               {}
func (noopTask) Infof(format string, args ...interface{}) {}
func (noopTask) Warnf(format string, args ...interface{}) {}
func (n noopTask) Name() string                            { return n.name }
