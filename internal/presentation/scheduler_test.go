// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package presentation

import (
	"testing"
	"time"
)

func TestManualScheduler_Order(t *testing.T) {
	s := NewManualScheduler()
	var got []string

	s.After(3*time.Second, func() { got = append(got, "c") })
	s.After(time.Second, func() { got = append(got, "a") })
	s.Every(2*time.Second, func() { got = append(got, "tick") })

	s.Advance(4 * time.Second)

	want := []string{"a", "tick", "c", "tick"}
	if len(got) != len(want) {
		t.Fatalf("got %v, want %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("got %v, want %v", got, want)
		}
	}
	if s.Now() != 4*time.Second {
		t.Errorf("Now() = %v", s.Now())
	}
}

func TestManualScheduler_Stop(t *testing.T) {
	s := NewManualScheduler()
	n := 0
	timer := s.Every(time.Second, func() { n++ })

	s.Advance(2 * time.Second)
	timer.Stop()
	timer.Stop()
	s.Advance(5 * time.Second)

	if n != 2 {
		t.Errorf("ticks = %d, want 2", n)
	}
	if s.Pending() != 0 {
		t.Errorf("Pending() = %d, want 0", s.Pending())
	}
}

func TestManualScheduler_ScheduleFromCallback(t *testing.T) {
	s := NewManualScheduler()
	fired := false
	s.After(time.Second, func() {
		s.After(time.Second, func() { fired = true })
	})

	s.Advance(2 * time.Second)
	if !fired {
		t.Error("task scheduled inside the window did not run")
	}
}

func TestRealScheduler_Stop(t *testing.T) {
	var s RealScheduler
	ch := make(chan struct{}, 100)
	timer := s.Every(5*time.Millisecond, func() { ch <- struct{}{} })

	select {
	case <-ch:
	case <-time.After(time.Second):
		t.Fatal("ticker never fired")
	}
	timer.Stop()
	timer.Stop()

	after := s.After(time.Hour, func() { t.Error("should not fire") })
	after.Stop()
}
