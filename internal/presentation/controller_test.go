// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package presentation

import (
	"errors"
	"io"
	"log"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jeranaias/mediguard/internal/model"
)

var quiet = log.New(io.Discard, "", 0)

func newTestController(t *testing.T, opts ...Option) (*Controller, *Document, *ManualScheduler) {
	t.Helper()
	doc := NewDocument()
	sched := NewManualScheduler()
	opts = append([]Option{WithScheduler(sched), WithLogger(quiet)}, opts...)
	c := New(doc, opts...)
	t.Cleanup(c.Close)
	return c, doc, sched
}

// =============================================================================
// TRANSITIONS
// =============================================================================

func TestController_UnconditionalTransitions(t *testing.T) {
	events := []struct {
		ev   Event
		want Effect
	}{
		{EventMonochrome, EffectMonochrome},
		{EventNeon, EffectNeon},
		{EventModal, EffectModal},
	}
	starts := []Event{EventMonochrome, EventNeon, EventModal, EventCountdown, EventClear}

	for _, start := range starts {
		for _, tc := range events {
			t.Run(string(start)+"->"+string(tc.ev), func(t *testing.T) {
				c, _, sched := newTestController(t)
				require.NoError(t, c.Trigger(start))
				require.NoError(t, c.Trigger(tc.ev))
				assert.Equal(t, tc.want, c.State().Effect)
				assert.Equal(t, 0, sched.Pending(), "no timers should survive leaving countdown")
			})
		}
	}
}

func TestController_ClearResetsHindiLocale(t *testing.T) {
	c, _, _ := newTestController(t)

	require.NoError(t, c.Trigger(EventHindi))
	require.NoError(t, c.Trigger(EventNeon))
	assert.Equal(t, model.HindiLanguage, c.State().Locale)
	assert.Equal(t, EffectNeon, c.State().Effect, "hindi does not change the effect")

	require.NoError(t, c.Trigger(EventClear))
	st := c.State()
	assert.Equal(t, EffectNone, st.Effect)
	assert.Equal(t, model.DefaultLanguage, st.Locale)
}

func TestController_ClearKeepsOtherLocale(t *testing.T) {
	c, _, _ := newTestController(t, WithLocale("te"))
	require.NoError(t, c.Trigger(EventClear))
	assert.Equal(t, "te", c.State().Locale)
}

func TestController_HindiIdempotent(t *testing.T) {
	c, doc, _ := newTestController(t)
	require.NoError(t, c.Trigger(EventMonochrome))
	require.NoError(t, c.Trigger(EventHindi))
	first := c.State()
	snap := doc.Snapshot()

	require.NoError(t, c.Trigger(EventHindi))
	assert.Equal(t, first, c.State())
	assert.Equal(t, snap, doc.Snapshot())
}

func TestController_Dismiss(t *testing.T) {
	c, _, _ := newTestController(t)

	assert.False(t, c.Dismiss(), "nothing to dismiss")

	require.NoError(t, c.Trigger(EventHindi))
	require.NoError(t, c.Trigger(EventModal))
	assert.True(t, c.Dismiss())
	st := c.State()
	assert.Equal(t, EffectNone, st.Effect)
	assert.Equal(t, model.HindiLanguage, st.Locale, "dismiss leaves the locale alone")
}

func TestController_UnknownEvent(t *testing.T) {
	c, _, _ := newTestController(t)
	err := c.Trigger(Event("confetti"))
	assert.True(t, errors.Is(err, ErrUnknownEvent))
	assert.Equal(t, EffectNone, c.State().Effect)
}

func TestParseEvent(t *testing.T) {
	tests := map[string]Event{
		"neon": EventNeon, "BW": EventMonochrome, "bomb": EventCountdown,
		"thanks": EventModal, " clear ": EventClear, "hindi": EventHindi,
	}
	for in, want := range tests {
		got, err := ParseEvent(in)
		require.NoError(t, err, in)
		assert.Equal(t, want, got, in)
	}
	_, err := ParseEvent("nope")
	assert.ErrorIs(t, err, ErrUnknownEvent)
}

// =============================================================================
// COUNTDOWN
// =============================================================================

func TestController_CountdownExpires(t *testing.T) {
	c, _, sched := newTestController(t)

	require.NoError(t, c.Trigger(EventCountdown))
	st := c.State()
	assert.Equal(t, EffectCountdown, st.Effect)
	assert.Equal(t, CountdownStart, st.Countdown)

	for want := CountdownStart - 1; want > 0; want-- {
		sched.Advance(TickInterval)
		st = c.State()
		assert.Equal(t, EffectCountdown, st.Effect)
		assert.Equal(t, want, st.Countdown)
		assert.False(t, st.Flash)
	}

	// Fourth tick: expiry.
	sched.Advance(TickInterval)
	st = c.State()
	assert.Equal(t, EffectNone, st.Effect)
	assert.Equal(t, 0, st.Countdown)
	assert.True(t, st.Flash, "flash should start at expiry")

	// Flash clears itself after one second with no further input.
	sched.Advance(FlashDuration - time.Millisecond)
	assert.True(t, c.State().Flash)
	sched.Advance(time.Millisecond)
	assert.False(t, c.State().Flash)
	assert.Equal(t, 0, sched.Pending())
}

func TestController_CountdownCancelledByClear(t *testing.T) {
	c, _, sched := newTestController(t)

	var mu sync.Mutex
	var seen []State
	c.Subscribe(func(st State) {
		mu.Lock()
		seen = append(seen, st)
		mu.Unlock()
	})

	require.NoError(t, c.Trigger(EventCountdown))
	sched.Advance(TickInterval)
	assert.Equal(t, 3, c.State().Countdown)

	require.NoError(t, c.Trigger(EventClear))
	assert.Equal(t, EffectNone, c.State().Effect, "clear takes effect immediately")

	mu.Lock()
	before := len(seen)
	mu.Unlock()

	sched.Advance(10 * TickInterval)

	st := c.State()
	assert.Equal(t, EffectNone, st.Effect)
	assert.Equal(t, 0, st.Countdown)
	assert.False(t, st.Flash, "no flash after a cancelled countdown")
	assert.Equal(t, 0, sched.Pending())

	mu.Lock()
	assert.Equal(t, before, len(seen), "no transitions after clear")
	mu.Unlock()
}

func TestController_CountdownCancelledByOtherEffect(t *testing.T) {
	c, _, sched := newTestController(t)

	require.NoError(t, c.Trigger(EventCountdown))
	require.NoError(t, c.Trigger(EventNeon))
	sched.Advance(10 * TickInterval)

	st := c.State()
	assert.Equal(t, EffectNeon, st.Effect)
	assert.False(t, st.Flash)
}

func TestController_CountdownRestart(t *testing.T) {
	c, _, sched := newTestController(t)

	require.NoError(t, c.Trigger(EventCountdown))
	sched.Advance(2 * TickInterval)
	assert.Equal(t, 2, c.State().Countdown)

	require.NoError(t, c.Trigger(EventCountdown))
	assert.Equal(t, CountdownStart, c.State().Countdown)
	assert.Equal(t, 1, sched.Pending(), "old ticker must be stopped")

	sched.Advance(3 * TickInterval)
	assert.Equal(t, EffectCountdown, c.State().Effect)
	sched.Advance(TickInterval)
	assert.Equal(t, EffectNone, c.State().Effect)
}

func TestController_StaleTickIgnored(t *testing.T) {
	// A tick from a cancelled generation must not decrement, even if the
	// timer fires after the cancel.
	c, _, _ := newTestController(t)

	require.NoError(t, c.Trigger(EventCountdown))
	c.mu.Lock()
	stale := c.countdownGen
	c.mu.Unlock()

	require.NoError(t, c.Trigger(EventCountdown)) // new generation
	c.tick(stale)
	assert.Equal(t, CountdownStart, c.State().Countdown)

	require.NoError(t, c.Trigger(EventClear))
	c.tick(stale + 1)
	assert.Equal(t, EffectNone, c.State().Effect)
	assert.Equal(t, 0, c.State().Countdown)
}

func TestController_CloseStopsTimers(t *testing.T) {
	c, _, sched := newTestController(t)
	require.NoError(t, c.Trigger(EventCountdown))

	c.Close()
	sched.Advance(10 * TickInterval)

	assert.Equal(t, CountdownStart, c.State().Countdown)
	assert.ErrorIs(t, c.Trigger(EventNeon), ErrClosed)
}

// =============================================================================
// ENVIRONMENT
// =============================================================================

func TestController_EnvironmentAttributes(t *testing.T) {
	tests := []struct {
		name      string
		mode      Mode
		event     Event
		wantRoot  []string
		wantBody  []string
		wantMeta  string
		accent    string
		wantStyle string
	}{
		{"light none", ModeLight, EventClear, []string{}, []string{}, "#112233", "#112233", "#112233"},
		{"dark none", ModeDark, EventClear, []string{ClassDark}, []string{}, DarkIndicatorColor, "#112233", "#112233"},
		{"light mono", ModeLight, EventMonochrome, []string{}, []string{ClassMonochrome}, "#112233", "#112233", "#112233"},
		{"dark neon", ModeDark, EventNeon, []string{ClassDark}, []string{ClassNeon}, DarkIndicatorColor, "#112233", "#112233"},
		{"light countdown", ModeLight, EventCountdown, []string{}, []string{}, "#112233", "#112233", "#112233"},
		{"dark modal", ModeDark, EventModal, []string{ClassDark}, []string{}, DarkIndicatorColor, "#112233", "#112233"},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			c, doc, _ := newTestController(t, WithAccent(tc.accent))
			require.NoError(t, c.SetTheme(tc.mode))
			require.NoError(t, c.Trigger(tc.event))

			snap := doc.Snapshot()
			assert.Equal(t, tc.wantRoot, snap.RootClasses)
			assert.Equal(t, tc.wantBody, snap.BodyClasses)
			assert.Equal(t, tc.wantMeta, snap.Meta[MetaThemeColor])
			assert.Equal(t, tc.wantStyle, snap.Styles[StyleAccent])
		})
	}
}

func TestController_NoAttributeLeak(t *testing.T) {
	c, doc, _ := newTestController(t)

	require.NoError(t, c.Trigger(EventMonochrome))
	require.NoError(t, c.Trigger(EventNeon))
	snap := doc.Snapshot()
	assert.Equal(t, []string{ClassNeon}, snap.BodyClasses)

	require.NoError(t, c.Trigger(EventModal))
	assert.Empty(t, doc.Snapshot().BodyClasses)
}

func TestController_ApplyIdempotent(t *testing.T) {
	pairs := []struct {
		mode  Mode
		event Event
	}{
		{ModeLight, EventClear}, {ModeDark, EventMonochrome},
		{ModeLight, EventNeon}, {ModeDark, EventModal}, {ModeDark, EventCountdown},
	}

	for _, p := range pairs {
		t.Run(string(p.mode)+"/"+string(p.event), func(t *testing.T) {
			once, docOnce, _ := newTestController(t)
			require.NoError(t, once.SetTheme(p.mode))
			require.NoError(t, once.Trigger(p.event))

			twice, docTwice, _ := newTestController(t)
			require.NoError(t, twice.SetTheme(p.mode))
			require.NoError(t, twice.Trigger(p.event))
			require.NoError(t, twice.SetTheme(p.mode))
			twice.Reapply()

			assert.Equal(t, docOnce.Snapshot(), docTwice.Snapshot())
		})
	}
}

func TestController_AccentPropagation(t *testing.T) {
	c, doc, _ := newTestController(t)

	snap := doc.Snapshot()
	assert.Equal(t, model.DefaultAccent, snap.Styles[StyleAccent])
	assert.Equal(t, model.DefaultAccent, snap.Meta[MetaThemeColor])

	c.SetAccent("#ff5500")
	snap = doc.Snapshot()
	assert.Equal(t, "#ff5500", snap.Styles[StyleAccent])
	assert.Equal(t, "#ff5500", snap.Meta[MetaThemeColor])

	// Dark mode forces the indicator color but keeps the accent variable.
	assert.Equal(t, ModeDark, c.ToggleTheme())
	snap = doc.Snapshot()
	assert.Equal(t, "#ff5500", snap.Styles[StyleAccent])
	assert.Equal(t, DarkIndicatorColor, snap.Meta[MetaThemeColor])

	assert.Equal(t, ModeLight, c.ToggleTheme())
	c.SetAccent("")
	assert.Equal(t, model.DefaultAccent, doc.Snapshot().Meta[MetaThemeColor])
}

func TestController_DarkIndependentOfEffect(t *testing.T) {
	c, doc, _ := newTestController(t, WithMode(ModeDark))
	for _, ev := range []Event{EventMonochrome, EventNeon, EventCountdown, EventModal, EventClear} {
		require.NoError(t, c.Trigger(ev))
		assert.True(t, doc.Snapshot().HasRootClass(ClassDark), "after %s", ev)
	}
}

func TestController_SetLocale(t *testing.T) {
	c, _, _ := newTestController(t)
	require.NoError(t, c.SetLocale("ta"))
	assert.Equal(t, "ta", c.State().Locale)
	assert.ErrorIs(t, c.SetLocale("klingon"), ErrUnsupportedLocale)
}

func TestParseMode(t *testing.T) {
	m, err := ParseMode("Dark")
	require.NoError(t, err)
	assert.Equal(t, ModeDark, m)
	_, err = ParseMode("sepia")
	assert.Error(t, err)
}

// =============================================================================
// REAL SCHEDULER
// =============================================================================

func TestController_RealSchedulerSmoke(t *testing.T) {
	if testing.Short() {
		t.Skip("uses wall-clock timers")
	}
	c := New(NewDocument(), WithLogger(quiet))
	defer c.Close()

	done := make(chan struct{})
	var once sync.Once
	c.Subscribe(func(st State) {
		if st.Effect == EffectNone && st.Flash {
			once.Do(func() { close(done) })
		}
	})

	require.NoError(t, c.Trigger(EventCountdown))
	select {
	case <-done:
	case <-time.After(CountdownStart*TickInterval + 3*time.Second):
		t.Fatal("countdown did not expire")
	}
}
