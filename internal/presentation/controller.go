// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package presentation

import (
	"errors"
	"fmt"
	"log"
	"strings"
	"sync"
	"time"

	"github.com/jeranaias/mediguard/internal/model"
)

// =============================================================================
// TYPES
// =============================================================================

// Mode is the light/dark theme. It lives in memory only.
type Mode string

const (
	ModeLight Mode = "light"
	ModeDark  Mode = "dark"
)

// ParseMode parses "light" or "dark".
func ParseMode(s string) (Mode, error) {
	switch Mode(strings.ToLower(strings.TrimSpace(s))) {
	case ModeLight:
		return ModeLight, nil
	case ModeDark:
		return ModeDark, nil
	}
	return "", fmt.Errorf("unknown theme mode %q", s)
}

// Effect is the transient visual overlay. It is never persisted.
type Effect string

const (
	EffectNone       Effect = "none"
	EffectMonochrome Effect = "monochrome"
	EffectNeon       Effect = "neon"
	EffectCountdown  Effect = "countdown"
	EffectModal      Effect = "modal"
)

// Event is a named trigger.
type Event string

const (
	EventMonochrome Event = "monochrome"
	EventNeon       Event = "neon"
	EventCountdown  Event = "countdown"
	EventModal      Event = "modal"
	EventClear      Event = "clear"
	EventHindi      Event = "hindi"
)

// eventAliases maps the names used by the credits screen.
var eventAliases = map[string]Event{
	"bw":     EventMonochrome,
	"mono":   EventMonochrome,
	"bomb":   EventCountdown,
	"thanks": EventModal,
}

// ParseEvent parses an event name or one of its aliases.
func ParseEvent(s string) (Event, error) {
	s = strings.ToLower(strings.TrimSpace(s))
	switch ev := Event(s); ev {
	case EventMonochrome, EventNeon, EventCountdown, EventModal, EventClear, EventHindi:
		return ev, nil
	}
	if ev, ok := eventAliases[s]; ok {
		return ev, nil
	}
	return "", fmt.Errorf("%w: %q", ErrUnknownEvent, s)
}

// Timing of the countdown effect.
const (
	CountdownStart = 4
	TickInterval   = time.Second
	FlashDuration  = time.Second
)

var (
	// ErrUnknownEvent is returned for events outside the Event constants.
	ErrUnknownEvent = errors.New("unknown effect event")
	// ErrUnsupportedLocale is returned by SetLocale for unknown locales.
	ErrUnsupportedLocale = errors.New("unsupported locale")
	// ErrClosed is returned after Close.
	ErrClosed = errors.New("presentation controller closed")
)

// State is a snapshot of the controller.
type State struct {
	Mode      Mode
	Effect    Effect
	Countdown int  // remaining ticks while Effect is countdown
	Flash     bool // one-shot flash after countdown expiry
	Locale    string
	Accent    string
}

// =============================================================================
// OPTIONS
// =============================================================================

// Option configures a Controller.
type Option func(*Controller)

// WithScheduler sets the clock. Defaults to RealScheduler.
func WithScheduler(s Scheduler) Option {
	return func(c *Controller) { c.sched = s }
}

// WithLogger sets the logger. Defaults to log.Default().
func WithLogger(l *log.Logger) Option {
	return func(c *Controller) { c.logger = l }
}

// WithMode sets the initial theme mode.
func WithMode(m Mode) Option {
	return func(c *Controller) { c.state.Mode = m }
}

// WithLocale sets the initial locale.
func WithLocale(tag string) Option {
	return func(c *Controller) { c.state.Locale = tag }
}

// WithAccent sets the initial accent color.
func WithAccent(color string) Option {
	return func(c *Controller) { c.state.Accent = color }
}

// =============================================================================
// CONTROLLER
// =============================================================================

// Controller runs the effect state machine and applies derived attributes
// to an Environment. It is safe for concurrent use.
type Controller struct {
	env    Environment
	sched  Scheduler
	logger *log.Logger

	mu     sync.Mutex
	state  State
	closed bool

	// countdownGen increments whenever a countdown starts or is cancelled;
	// a tick carrying an older generation is stale and ignored.
	countdownGen uint64
	ticker       Timer

	flashGen   uint64
	flashTimer Timer

	// notifyMu keeps subscriber notifications in transition order.
	notifyMu sync.Mutex
	subs     []func(State)
}

// New creates a controller and applies the initial state to env.
func New(env Environment, opts ...Option) *Controller {
	c := &Controller{
		env: env,
		state: State{
			Mode:   ModeLight,
			Effect: EffectNone,
			Locale: model.DefaultLanguage,
			Accent: model.DefaultAccent,
		},
	}
	for _, opt := range opts {
		opt(c)
	}
	if c.sched == nil {
		c.sched = RealScheduler{}
	}
	if c.logger == nil {
		c.logger = log.Default()
	}

	c.mu.Lock()
	c.applyLocked()
	c.mu.Unlock()
	return c
}

// Subscribe registers fn to receive the state after every transition.
// fn must not call back into the controller.
func (c *Controller) Subscribe(fn func(State)) {
	c.notifyMu.Lock()
	c.subs = append(c.subs, fn)
	c.notifyMu.Unlock()
}

// State returns the current state.
func (c *Controller) State() State {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state
}

// commit applies the environment, releases c.mu and notifies subscribers
// in order. Callers hold c.mu.
func (c *Controller) commit() {
	c.applyLocked()
	st := c.state
	c.notifyMu.Lock()
	c.mu.Unlock()
	defer c.notifyMu.Unlock()
	for _, fn := range c.subs {
		fn(st)
	}
}

// Trigger fires a named event.
func (c *Controller) Trigger(ev Event) error {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return ErrClosed
	}

	from := c.state.Effect
	switch ev {
	case EventMonochrome:
		c.setEffectLocked(EffectMonochrome)
	case EventNeon:
		c.setEffectLocked(EffectNeon)
	case EventModal:
		c.setEffectLocked(EffectModal)
	case EventCountdown:
		c.startCountdownLocked()
	case EventClear:
		c.setEffectLocked(EffectNone)
		if c.state.Locale == model.HindiLanguage {
			c.state.Locale = model.DefaultLanguage
		}
	case EventHindi:
		c.state.Locale = model.HindiLanguage
	default:
		c.mu.Unlock()
		return fmt.Errorf("%w: %q", ErrUnknownEvent, ev)
	}

	c.logger.Printf("EFFECT_TRIGGER | event=%s from=%s to=%s locale=%s", ev, from, c.state.Effect, c.state.Locale)
	c.commit()
	return nil
}

// Dismiss closes the acknowledgment modal. It reports whether the modal
// was open.
func (c *Controller) Dismiss() bool {
	c.mu.Lock()
	if c.closed || c.state.Effect != EffectModal {
		c.mu.Unlock()
		return false
	}
	c.setEffectLocked(EffectNone)
	c.commit()
	return true
}

// setEffectLocked moves to effect e, cancelling a running countdown.
func (c *Controller) setEffectLocked(e Effect) {
	if c.state.Effect == EffectCountdown {
		c.cancelCountdownLocked()
	}
	c.state.Effect = e
}

func (c *Controller) cancelCountdownLocked() {
	c.countdownGen++
	if c.ticker != nil {
		c.ticker.Stop()
		c.ticker = nil
	}
	c.state.Countdown = 0
}

func (c *Controller) startCountdownLocked() {
	c.setEffectLocked(EffectCountdown)
	c.countdownGen++
	gen := c.countdownGen
	c.state.Countdown = CountdownStart
	c.ticker = c.sched.Every(TickInterval, func() { c.tick(gen) })
}

func (c *Controller) tick(gen uint64) {
	c.mu.Lock()
	if c.closed || gen != c.countdownGen || c.state.Effect != EffectCountdown {
		c.mu.Unlock()
		return
	}

	c.state.Countdown--
	if c.state.Countdown <= 0 {
		c.cancelCountdownLocked()
		c.state.Effect = EffectNone
		c.startFlashLocked()
		c.logger.Printf("EFFECT_COUNTDOWN_EXPIRED | flash=%s", FlashDuration)
	}
	c.commit()
}

func (c *Controller) startFlashLocked() {
	if c.flashTimer != nil {
		c.flashTimer.Stop()
	}
	c.flashGen++
	gen := c.flashGen
	c.state.Flash = true
	c.flashTimer = c.sched.After(FlashDuration, func() { c.endFlash(gen) })
}

func (c *Controller) endFlash(gen uint64) {
	c.mu.Lock()
	if c.closed || gen != c.flashGen || !c.state.Flash {
		c.mu.Unlock()
		return
	}
	c.state.Flash = false
	c.flashTimer = nil
	c.commit()
}

// =============================================================================
// THEME, ACCENT, LOCALE
// =============================================================================

// SetTheme sets the theme mode.
func (c *Controller) SetTheme(m Mode) error {
	if m != ModeLight && m != ModeDark {
		return fmt.Errorf("unknown theme mode %q", m)
	}
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return ErrClosed
	}
	c.state.Mode = m
	c.commit()
	return nil
}

// ToggleTheme flips between light and dark and returns the new mode.
func (c *Controller) ToggleTheme() Mode {
	c.mu.Lock()
	if c.closed {
		m := c.state.Mode
		c.mu.Unlock()
		return m
	}
	if c.state.Mode == ModeDark {
		c.state.Mode = ModeLight
	} else {
		c.state.Mode = ModeDark
	}
	m := c.state.Mode
	c.commit()
	return m
}

// SetAccent sets the profile-derived accent. Empty restores the default.
func (c *Controller) SetAccent(color string) {
	if color == "" {
		color = model.DefaultAccent
	}
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return
	}
	c.state.Accent = color
	c.commit()
}

// SetLocale switches the display locale.
func (c *Controller) SetLocale(tag string) error {
	if _, ok := model.LookupLanguage(tag); !ok {
		return fmt.Errorf("%w: %q", ErrUnsupportedLocale, tag)
	}
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return ErrClosed
	}
	c.state.Locale = tag
	c.commit()
	return nil
}

// Reapply writes the current state to the environment again.
func (c *Controller) Reapply() {
	c.mu.Lock()
	c.applyLocked()
	c.mu.Unlock()
}

// Close stops all timers. Pending ticks and flash clears become no-ops.
func (c *Controller) Close() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return
	}
	c.closed = true
	c.countdownGen++
	c.flashGen++
	if c.ticker != nil {
		c.ticker.Stop()
		c.ticker = nil
	}
	if c.flashTimer != nil {
		c.flashTimer.Stop()
		c.flashTimer = nil
	}
}

// =============================================================================
// ENVIRONMENT
// =============================================================================

// applyLocked derives every environment attribute from the state.
// Exclusive classes are removed before the current ones are added.
func (c *Controller) applyLocked() {
	st := c.state

	c.env.SetRootClass(ClassDark, false)
	c.env.SetBodyClass(ClassMonochrome, false)
	c.env.SetBodyClass(ClassNeon, false)

	if st.Mode == ModeDark {
		c.env.SetRootClass(ClassDark, true)
	}
	switch st.Effect {
	case EffectMonochrome:
		c.env.SetBodyClass(ClassMonochrome, true)
	case EffectNeon:
		c.env.SetBodyClass(ClassNeon, true)
	}

	c.env.SetStyleProperty(StyleAccent, st.Accent)
	c.env.SetMeta(MetaThemeColor, IndicatorColor(st.Mode, st.Accent))
}

// IndicatorColor is the status-bar color for a mode and accent.
func IndicatorColor(m Mode, accent string) string {
	if m == ModeDark {
		return DarkIndicatorColor
	}
	return accent
}
