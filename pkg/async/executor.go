package async

import (
	"context"
	"fmt"
	"runtime/debug"
	"sync"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
)

// Task is a unit of background work with optional continuations.
//
// Run performs the work. When it returns nil, OnSuccess fires; when it
// returns an error (or panics), OnFailure fires with that error.
// Continuations run on the worker goroutine, after Run has returned and
// before the job is marked done.
type Task struct {
	// Name identifies the task in logs and job handles.
	Name string

	// Run performs the work. Required.
	Run func(ctx context.Context) error

	// OnSuccess runs after Run returns nil. Optional.
	OnSuccess func(ctx context.Context)

	// OnFailure runs after Run returns an error or panics. Optional.
	OnFailure func(ctx context.Context, err error)
}

// Job is a handle to a submitted task.
type Job struct {
	// ID uniquely identifies this job.
	ID string

	// Name is the task name the job was submitted with.
	Name string

	done chan struct{}
	err  error
}

// Done returns a channel that closes when the job finishes, continuations
// included.
func (j *Job) Done() <-chan struct{} {
	return j.done
}

// Err returns the job's terminal error. Only valid after Done is closed;
// nil means the task ran to completion.
func (j *Job) Err() error {
	select {
	case <-j.done:
		return j.err
	default:
		return nil
	}
}

// Wait blocks until the job finishes or ctx is cancelled.
func (j *Job) Wait(ctx context.Context) error {
	select {
	case <-j.done:
		return j.err
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Executor runs tasks on their own goroutines and tracks them so callers
// can drain in-flight work before exiting.
type Executor struct {
	log *logrus.Logger

	mu     sync.Mutex
	closed bool
	wg     sync.WaitGroup
}

// NewExecutor creates an executor. A nil logger falls back to the logrus
// standard logger.
func NewExecutor(log *logrus.Logger) *Executor {
	if log == nil {
		log = logrus.New()
	}
	return &Executor{log: log}
}

// Submit schedules t on a new goroutine and returns a handle to it.
// The context is handed to Run and both continuations, so it must outlive
// the work; submissions after Shutdown are rejected.
func (e *Executor) Submit(ctx context.Context, t Task) (*Job, error) {
	if t.Run == nil {
		return nil, fmt.Errorf("task %q has no Run function", t.Name)
	}

	e.mu.Lock()
	if e.closed {
		e.mu.Unlock()
		return nil, fmt.Errorf("executor is shut down, rejecting task %q", t.Name)
	}
	e.wg.Add(1)
	e.mu.Unlock()

	job := &Job{
		ID:   uuid.New().String(),
		Name: t.Name,
		done: make(chan struct{}),
	}

	go e.run(ctx, t, job)
	return job, nil
}

func (e *Executor) run(ctx context.Context, t Task, job *Job) {
	defer e.wg.Done()
	defer close(job.done)

	err := e.invoke(ctx, t)
	job.err = err

	if err != nil {
		e.log.WithField("job_id", job.ID).
			WithField("task", t.Name).
			WithError(err).
			Warn("background task failed")
		if t.OnFailure != nil {
			t.OnFailure(ctx, err)
		}
		return
	}

	if t.OnSuccess != nil {
		t.OnSuccess(ctx)
	}
}

// invoke runs the task body, converting a panic into an error so one bad
// task cannot take down the host process.
func (e *Executor) invoke(ctx context.Context, t Task) (err error) {
	defer func() {
		if r := recover(); r != nil {
			e.log.WithField("panic", r).
				WithField("stack", string(debug.Stack())).
				WithField("task", t.Name).
				Error("PANIC recovered in background task")
			err = fmt.Errorf("task %q panicked: %v", t.Name, r)
		}
	}()
	return t.Run(ctx)
}

// Wait blocks until every job submitted so far has finished. New
// submissions remain allowed.
func (e *Executor) Wait() {
	e.wg.Wait()
}

// Shutdown stops accepting new tasks and waits for in-flight jobs to
// finish. It returns ctx.Err when the context expires first; the
// remaining jobs keep running to completion on their own goroutines.
func (e *Executor) Shutdown(ctx context.Context) error {
	e.mu.Lock()
	e.closed = true
	e.mu.Unlock()

	drained := make(chan struct{})
	go func() {
		e.wg.Wait()
		close(drained)
	}()

	select {
	case <-drained:
		return nil
	case <-ctx.Done():
		return fmt.Errorf("shutdown interrupted with jobs still in flight: %w", ctx.Err())
	}
}
