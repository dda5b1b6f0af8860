// Package task defines the cooperative suspension model used by the whole
// engine. A Task is polled exactly once per driver tick until it reports
// completion; there are no goroutines and no locks, only one logical
// execution point advancing at a time.
package task

import (
	"context"
	"time"
)

// Task is a resumable unit of work. Poll is called at most once per driver
// tick; a Task reports done=true when it has finished. After reporting done
// a Task is never polled again unless its owner re-creates it.
type Task interface {
	Poll(ctx context.Context) (done bool, err error)
}

// Func adapts a one-shot function into a Task that completes on its first poll.
type Func func(ctx context.Context) error

// Poll implements Task.
func (f Func) Poll(ctx context.Context) (bool, error) {
	return true, f(ctx)
}

// ValueTask is a Task that produces a result value. Value is only
// meaningful after Poll has reported done.
type ValueTask interface {
	Task
	Value() any
}

// valued pairs a Task with a result accessor.
type valued struct {
	Task
	value func() any
}

func (v *valued) Value() any { return v.value() }

// WithValue wraps t so its callers can read a result once it completes.
func WithValue(t Task, value func() any) ValueTask {
	return &valued{Task: t, value: value}
}

// waitTask suspends for a fixed duration. The deadline is armed on the
// first poll, not at construction, so tasks created at build time do not
// start their clock until the program reaches them.
type waitTask struct {
	d        time.Duration
	armed    bool
	deadline time.Time
}

func (w *waitTask) Poll(ctx context.Context) (bool, error) {
	now := time.Now()
	if !w.armed {
		w.armed = true
		w.deadline = now.Add(w.d)
	}
	return !now.Before(w.deadline), nil
}

// Wait returns a Task that suspends for the given duration.
func Wait(d time.Duration) Task {
	return &waitTask{d: d}
}

// untilTask suspends until cond reports true, re-checking at most once per
// interval. A zero interval checks on every tick.
type untilTask struct {
	cond      func() bool
	interval  time.Duration
	nextCheck time.Time
}

func (u *untilTask) Poll(ctx context.Context) (bool, error) {
	now := time.Now()
	if now.Before(u.nextCheck) {
		return false, nil
	}
	u.nextCheck = now.Add(u.interval)
	return u.cond(), nil
}

// Until returns a Task that suspends until cond reports true.
func Until(cond func() bool, interval time.Duration) Task {
	return &untilTask{cond: cond, interval: interval}
}

// sequence runs its tasks in order, one completion at a time.
type sequence struct {
	tasks []Task
	index int
}

func (s *sequence) Poll(ctx context.Context) (bool, error) {
	for s.index < len(s.tasks) {
		done, err := s.tasks[s.index].Poll(ctx)
		if err != nil {
			return true, err
		}
		if !done {
			return false, nil
		}
		s.index++
	}
	return true, nil
}

// Sequence returns a Task that runs the given tasks in order. Tasks that
// complete immediately are chained within a single tick, mirroring how
// synchronous work between two suspension points runs without yielding.
func Sequence(tasks ...Task) Task {
	return &sequence{tasks: tasks}
}
