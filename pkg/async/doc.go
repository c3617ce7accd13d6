// Package async provides safe concurrent execution for fire-and-forget
// background tasks.
//
// # Overview
//
// This package handles goroutine lifecycle management with panic recovery,
// explicit success and failure continuations, and draining of in-flight
// work before process exit. Use it instead of bare `go func()` so a
// misbehaving task cannot crash the host or leak past shutdown.
//
// # Key Functions
//
// Executor.Submit: run a task on its own goroutine and get a Job handle
//
//	job, err := exec.Submit(ctx, async.Task{
//	    Name: "save preferences",
//	    Run: func(ctx context.Context) error {
//	        return store.Flush(ctx)
//	    },
//	    OnFailure: func(ctx context.Context, err error) {
//	        log.WithError(err).Warn("preferences not persisted")
//	    },
//	})
//
// Job.Wait: block on a single job
//
//	if err := job.Wait(ctx); err != nil {
//	    return err
//	}
//
// Executor.Shutdown: stop accepting tasks and drain what is in flight
//
//	exec.Shutdown(ctx)
//
// # Features
//
// Panic Recovery: Captures panics with stack traces
// Continuations: OnSuccess and OnFailure run on the worker goroutine
// Context Cancellation: Respects context cancellation in Wait and Shutdown
// Graceful Shutdown: In-flight jobs drain before Shutdown returns
//
// # Use Cases
//
// Asynchronous settings persistence, post-submission bookkeeping
//
// # Related Packages
//
//   - pkg/attribution: submits settings saves through the executor
package async
