// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package presentation

import (
	"sort"
	"sync"
	"time"
)

// Timer is a scheduled task.
type Timer interface {
	// Stop cancels the task. It never blocks and is safe to call twice.
	Stop()
}

// Scheduler runs callbacks after a delay or periodically. Callbacks never
// run inside Every or After, so callers may hold their own locks there.
type Scheduler interface {
	Every(d time.Duration, fn func()) Timer
	After(d time.Duration, fn func()) Timer
}

// =============================================================================
// REAL SCHEDULER
// =============================================================================

// RealScheduler uses the wall clock.
type RealScheduler struct{}

type tickerTimer struct {
	once sync.Once
	stop chan struct{}
}

func (t *tickerTimer) Stop() {
	t.once.Do(func() { close(t.stop) })
}

// Every runs fn every d until stopped.
func (RealScheduler) Every(d time.Duration, fn func()) Timer {
	t := &tickerTimer{stop: make(chan struct{})}
	ticker := time.NewTicker(d)
	go func() {
		defer ticker.Stop()
		for {
			select {
			case <-t.stop:
				return
			case <-ticker.C:
				fn()
			}
		}
	}()
	return t
}

type afterTimer struct{ t *time.Timer }

func (a afterTimer) Stop() { a.t.Stop() }

// After runs fn once after d.
func (RealScheduler) After(d time.Duration, fn func()) Timer {
	return afterTimer{time.AfterFunc(d, fn)}
}

// =============================================================================
// MANUAL SCHEDULER
// =============================================================================

// ManualScheduler is a virtual clock. Nothing runs until Advance.
type ManualScheduler struct {
	mu    sync.Mutex
	now   time.Duration
	seq   int
	tasks []*manualTask
}

type manualTask struct {
	s       *ManualScheduler
	due     time.Duration
	period  time.Duration // 0 for one-shot
	seq     int
	fn      func()
	stopped bool
}

func (t *manualTask) Stop() {
	t.s.mu.Lock()
	t.stopped = true
	t.s.mu.Unlock()
}

// NewManualScheduler creates a clock at zero.
func NewManualScheduler() *ManualScheduler {
	return &ManualScheduler{}
}

func (m *ManualScheduler) schedule(d, period time.Duration, fn func()) Timer {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.seq++
	t := &manualTask{s: m, due: m.now + d, period: period, seq: m.seq, fn: fn}
	m.tasks = append(m.tasks, t)
	return t
}

// Every schedules fn every d of virtual time.
func (m *ManualScheduler) Every(d time.Duration, fn func()) Timer {
	return m.schedule(d, d, fn)
}

// After schedules fn once after d of virtual time.
func (m *ManualScheduler) After(d time.Duration, fn func()) Timer {
	return m.schedule(d, 0, fn)
}

// Advance moves the clock forward by d, running due tasks in time order on
// the caller's goroutine. Tasks scheduled by callbacks run if they fall due
// within the window.
func (m *ManualScheduler) Advance(d time.Duration) {
	m.mu.Lock()
	target := m.now + d
	m.mu.Unlock()

	for {
		m.mu.Lock()
		next := m.nextDueLocked(target)
		if next == nil {
			m.now = target
			m.mu.Unlock()
			return
		}
		m.now = next.due
		if next.period > 0 {
			next.due += next.period
		} else {
			next.stopped = true
		}
		fn := next.fn
		m.mu.Unlock()

		fn()
	}
}

func (m *ManualScheduler) nextDueLocked(target time.Duration) *manualTask {
	live := m.tasks[:0]
	for _, t := range m.tasks {
		if !t.stopped {
			live = append(live, t)
		}
	}
	m.tasks = live

	sort.SliceStable(m.tasks, func(i, j int) bool {
		if m.tasks[i].due != m.tasks[j].due {
			return m.tasks[i].due < m.tasks[j].due
		}
		return m.tasks[i].seq < m.tasks[j].seq
	})
	if len(m.tasks) == 0 || m.tasks[0].due > target {
		return nil
	}
	return m.tasks[0]
}

// Now returns the virtual time elapsed since creation.
func (m *ManualScheduler) Now() time.Duration {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.now
}

// Pending returns the number of live tasks.
func (m *ManualScheduler) Pending() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	n := 0
	for _, t := range m.tasks {
		if !t.stopped {
			n++
		}
	}
	return n
}
