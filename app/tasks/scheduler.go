package tasks

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"runtime/debug"
	"sync"
	"time"

	"github.com/lysyi3m/rss-monitor/app/notify"
)

const DefaultPollInterval = 300 * time.Second

type SchedulerState string

const (
	StateIdle    SchedulerState = "idle"
	StateRunning SchedulerState = "running"
	StateStopped SchedulerState = "stopped"
)

type Status struct {
	State          SchedulerState
	Cycles         int64
	LastStartedAt  *time.Time
	LastFinishedAt *time.Time
	LastError      string
	LastStats      *CycleStats
	NextRunAt      *time.Time
}

var _ TaskSchedulerInterface = (*Scheduler)(nil)

// Scheduler runs polling cycles one at a time. The first cycle starts
// immediately; each following one starts interval after the previous one
// finished.
type Scheduler struct {
	newTask  func() TaskInterface
	interval time.Duration
	ctx      context.Context
	cancel   context.CancelFunc
	wg       sync.WaitGroup
	trigger  chan struct{}

	startOnce sync.Once
	stopOnce  sync.Once

	mu     sync.RWMutex
	status Status
}

func NewScheduler(sources SourceLister, keywords KeywordLister, articles ArticleRecorder,
	fetcher FeedFetcher, notifier notify.Notifier, interval time.Duration) *Scheduler {
	return newScheduler(func() TaskInterface {
		return NewPollTask(sources, keywords, articles, fetcher, notifier)
	}, interval)
}

func newScheduler(newTask func() TaskInterface, interval time.Duration) *Scheduler {
	if interval <= 0 {
		interval = DefaultPollInterval
	}

	ctx, cancel := context.WithCancel(context.Background())

	return &Scheduler{
		newTask:  newTask,
		interval: interval,
		ctx:      ctx,
		cancel:   cancel,
		trigger:  make(chan struct{}, 1),
		status:   Status{State: StateIdle},
	}
}

func (s *Scheduler) Start() {
	s.startOnce.Do(func() {
		s.wg.Add(1)
		go s.run()
	})
}

// Stop interrupts the running cycle, if any, and waits for the loop to exit.
func (s *Scheduler) Stop() {
	s.stopOnce.Do(func() {
		s.cancel()
		s.wg.Wait()

		s.mu.Lock()
		s.status.State = StateStopped
		s.status.NextRunAt = nil
		s.mu.Unlock()
	})
}

// TriggerNow asks for a cycle as soon as the loop is free. Requests made
// while one is already pending are merged into it.
func (s *Scheduler) TriggerNow() bool {
	if s.ctx.Err() != nil {
		return false
	}

	select {
	case s.trigger <- struct{}{}:
		return true
	default:
		return false
	}
}

func (s *Scheduler) Status() Status {
	s.mu.RLock()
	defer s.mu.RUnlock()

	status := s.status
	if s.status.LastStats != nil {
		stats := *s.status.LastStats
		status.LastStats = &stats
	}
	return status
}

func (s *Scheduler) run() {
	defer s.wg.Done()

	timer := time.NewTimer(0)
	defer timer.Stop()

	for {
		select {
		case <-s.ctx.Done():
			return
		case <-timer.C:
		case <-s.trigger:
			timer.Stop()
		}

		s.runCycle()

		if s.ctx.Err() != nil {
			return
		}

		timer.Reset(s.interval)

		next := time.Now().Add(s.interval)
		s.mu.Lock()
		s.status.NextRunAt = &next
		s.mu.Unlock()
	}
}

func (s *Scheduler) runCycle() {
	task := s.newTask()
	task.Start()

	started := time.Now()
	s.mu.Lock()
	s.status.State = StateRunning
	s.status.LastStartedAt = &started
	s.status.NextRunAt = nil
	s.mu.Unlock()

	var err error
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("panic: %v", r)
			slog.Error("Task panicked", "type", string(task.GetType()), "id", task.GetID(), "panic", r, "stack", string(debug.Stack()))
		}
		s.finishCycle(task, err)
	}()

	err = task.Execute(s.ctx)
	if err != nil && !errors.Is(err, context.Canceled) {
		slog.Error("Task execution failed", "type", string(task.GetType()), "id", task.GetID(), "duration", task.GetDuration(), "error", err)
	}
}

func (s *Scheduler) finishCycle(task TaskInterface, err error) {
	finished := time.Now()

	s.mu.Lock()
	defer s.mu.Unlock()

	s.status.State = StateIdle
	s.status.Cycles++
	s.status.LastFinishedAt = &finished
	s.status.LastError = ""
	if err != nil {
		s.status.LastError = err.Error()
	}

	if st, ok := task.(interface{ Stats() CycleStats }); ok {
		stats := st.Stats()
		s.status.LastStats = &stats
	}
}
