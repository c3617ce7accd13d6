package async

import (
	"context"
	"errors"
	"io"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/sirupsen/logrus"
)

func testLogger() *logrus.Logger {
	log := logrus.New()
	log.SetOutput(io.Discard)
	return log
}

func TestExecutor_Success(t *testing.T) {
	exec := NewExecutor(testLogger())
	ran := atomic.Bool{}
	succeeded := atomic.Bool{}

	job, err := exec.Submit(context.Background(), Task{
		Name: "test task",
		Run: func(ctx context.Context) error {
			ran.Store(true)
			return nil
		},
		OnSuccess: func(ctx context.Context) {
			succeeded.Store(true)
		},
		OnFailure: func(ctx context.Context, err error) {
			t.Errorf("OnFailure fired for a successful task: %v", err)
		},
	})
	if err != nil {
		t.Fatalf("Submit failed: %v", err)
	}

	if err := job.Wait(context.Background()); err != nil {
		t.Errorf("Expected nil job error, got %v", err)
	}
	if !ran.Load() {
		t.Error("Task did not run")
	}
	if !succeeded.Load() {
		t.Error("OnSuccess did not fire")
	}
	if job.ID == "" {
		t.Error("Job has no ID")
	}
}

func TestExecutor_Failure(t *testing.T) {
	exec := NewExecutor(testLogger())
	wantErr := errors.New("test error")
	var gotErr atomic.Value

	job, err := exec.Submit(context.Background(), Task{
		Name: "test task",
		Run: func(ctx context.Context) error {
			return wantErr
		},
		OnSuccess: func(ctx context.Context) {
			t.Error("OnSuccess fired for a failed task")
		},
		OnFailure: func(ctx context.Context, err error) {
			gotErr.Store(err)
		},
	})
	if err != nil {
		t.Fatalf("Submit failed: %v", err)
	}

	if err := job.Wait(context.Background()); !errors.Is(err, wantErr) {
		t.Errorf("Expected job error %v, got %v", wantErr, err)
	}
	if got, _ := gotErr.Load().(error); !errors.Is(got, wantErr) {
		t.Errorf("OnFailure received %v, want %v", got, wantErr)
	}
}

func TestExecutor_PanicRecovery(t *testing.T) {
	exec := NewExecutor(testLogger())
	failed := atomic.Bool{}

	job, err := exec.Submit(context.Background(), Task{
		Name: "test task",
		Run: func(ctx context.Context) error {
			panic("test panic")
		},
		OnFailure: func(ctx context.Context, err error) {
			failed.Store(true)
		},
	})
	if err != nil {
		t.Fatalf("Submit failed: %v", err)
	}

	err = job.Wait(context.Background())
	if err == nil {
		t.Fatal("Expected an error from a panicking task")
	}
	if !strings.Contains(err.Error(), "panicked") {
		t.Errorf("Error does not mention the panic: %v", err)
	}
	if !failed.Load() {
		t.Error("OnFailure did not fire after panic")
	}
}

func TestExecutor_NilRun(t *testing.T) {
	exec := NewExecutor(testLogger())
	if _, err := exec.Submit(context.Background(), Task{Name: "empty"}); err == nil {
		t.Error("Expected error for task with nil Run")
	}
}

func TestExecutor_WaitDrains(t *testing.T) {
	exec := NewExecutor(testLogger())
	executed := atomic.Int32{}

	for i := 0; i < 10; i++ {
		_, err := exec.Submit(context.Background(), Task{
			Name: "test task",
			Run: func(ctx context.Context) error {
				executed.Add(1)
				return nil
			},
		})
		if err != nil {
			t.Fatalf("Submit failed: %v", err)
		}
	}

	exec.Wait()
	if executed.Load() != 10 {
		t.Errorf("Expected 10 executions after Wait, got %d", executed.Load())
	}
}

func TestExecutor_SubmitAfterShutdown(t *testing.T) {
	exec := NewExecutor(testLogger())
	if err := exec.Shutdown(context.Background()); err != nil {
		t.Fatalf("Shutdown failed: %v", err)
	}

	_, err := exec.Submit(context.Background(), Task{
		Name: "late task",
		Run:  func(ctx context.Context) error { return nil },
	})
	if err == nil {
		t.Error("Expected error when submitting after shutdown")
	}
}

func TestExecutor_ShutdownTimeout(t *testing.T) {
	exec := NewExecutor(testLogger())
	release := make(chan struct{})

	_, err := exec.Submit(context.Background(), Task{
		Name: "slow task",
		Run: func(ctx context.Context) error {
			<-release
			return nil
		},
	})
	if err != nil {
		t.Fatalf("Submit failed: %v", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()
	if err := exec.Shutdown(ctx); err == nil {
		t.Error("Expected shutdown to report jobs still in flight")
	}

	close(release)
	exec.Wait()
}

func TestJob_ErrBeforeDone(t *testing.T) {
	exec := NewExecutor(testLogger())
	release := make(chan struct{})

	job, err := exec.Submit(context.Background(), Task{
		Name: "slow task",
		Run: func(ctx context.Context) error {
			<-release
			return errors.New("late error")
		},
	})
	if err != nil {
		t.Fatalf("Submit failed: %v", err)
	}

	if err := job.Err(); err != nil {
		t.Errorf("Err before completion should be nil, got %v", err)
	}

	close(release)
	if err := job.Wait(context.Background()); err == nil {
		t.Error("Expected the task error after completion")
	}
}

func TestJob_WaitContextCancelled(t *testing.T) {
	exec := NewExecutor(testLogger())
	release := make(chan struct{})
	defer close(release)

	job, err := exec.Submit(context.Background(), Task{
		Name: "slow task",
		Run: func(ctx context.Context) error {
			<-release
			return nil
		},
	})
	if err != nil {
		t.Fatalf("Submit failed: %v", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if err := job.Wait(ctx); !errors.Is(err, context.Canceled) {
		t.Errorf("Expected context.Canceled, got %v", err)
	}
}
