package periodic

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/go-kratos/kratos/v2/log"
)

func TestTask_RunsAndStops(t *testing.T) {
	var runs atomic.Int32
	task := NewTask("test", 10*time.Millisecond, func(ctx context.Context) error {
		runs.Add(1)
		return nil
	}, log.NewStdLogger(testWriter{t}))

	task.Start()
	time.Sleep(100 * time.Millisecond)
	task.Stop()

	got := runs.Load()
	if got == 0 {
		t.Fatal("task never ran")
	}

	time.Sleep(50 * time.Millisecond)
	if runs.Load() != got {
		t.Error("task kept running after Stop")
	}
}

func TestTask_ErrorDoesNotStopSchedule(t *testing.T) {
	var runs atomic.Int32
	task := NewTask("failing", 10*time.Millisecond, func(ctx context.Context) error {
		runs.Add(1)
		return errors.New("boom")
	}, log.NewStdLogger(testWriter{t}))

	task.Start()
	time.Sleep(60 * time.Millisecond)
	task.Stop()

	if runs.Load() < 2 {
		t.Errorf("task ran %d times; want at least 2 despite errors", runs.Load())
	}
}

func TestTask_StopIdempotent(t *testing.T) {
	task := NewTask("idem", 10*time.Millisecond, func(ctx context.Context) error {
		return nil
	}, log.NewStdLogger(testWriter{t}))

	task.Start()
	task.Stop()
	task.Stop() // must not panic or block
}

func TestTask_StartTwice(t *testing.T) {
	var runs atomic.Int32
	task := NewTask("twice", 10*time.Millisecond, func(ctx context.Context) error {
		runs.Add(1)
		return nil
	}, log.NewStdLogger(testWriter{t}))

	task.Start()
	task.Start() // no second goroutine
	time.Sleep(35 * time.Millisecond)
	task.Stop()

	if runs.Load() > 5 {
		t.Errorf("task ran %d times; double Start should not double the schedule", runs.Load())
	}
}

type testWriter struct{ t *testing.T }

func (w testWriter) Write(p []byte) (int, error) {
	w.t.Log(string(p))
	return len(p), nil
}
