// Package assistant implements the profile page's chat widget: a small
// state machine that answers canned questions about the profile owner.
//
// A widget is IDLE until a non-empty draft is submitted, then AWAITING_REPLY
// until the reply timer fires and the reply is appended. Submissions while
// awaiting a reply are rejected, so at most one reply is ever in flight.
package assistant

import (
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/jonboulle/clockwork"
)

// DefaultDelay is how long a reply takes to appear after a submission.
const DefaultDelay = 500 * time.Millisecond

// Option configures a Widget.
type Option func(*Widget)

// WithClock sets the clock used to schedule replies.
func WithClock(c clockwork.Clock) Option {
	return func(w *Widget) { w.clock = c }
}

// WithDelay sets the reply delay. Negative values are treated as zero.
func WithDelay(d time.Duration) Option {
	return func(w *Widget) {
		if d < 0 {
			d = 0
		}
		w.delay = d
	}
}

// WithRules replaces the default rule list.
func WithRules(rules []Rule) Option {
	return func(w *Widget) { w.rules = rules }
}

// WithGreeting sets the assistant message that seeds the transcript.
func WithGreeting(text string) Option {
	return func(w *Widget) { w.greeting = text }
}

// WithFallback sets the reply used when no rule matches.
func WithFallback(text string) Option {
	return func(w *Widget) { w.fallback = text }
}

// WithLogger sets the widget logger.
func WithLogger(l *slog.Logger) Option {
	return func(w *Widget) { w.logger = l }
}

// WithObserver registers fn to receive a snapshot after every state change.
// Observers are called one at a time, always with the latest state, and
// must not call back into the widget.
func WithObserver(fn func(State)) Option {
	return func(w *Widget) { w.observers = append(w.observers, fn) }
}

// Widget owns one conversation. All methods are safe for concurrent use;
// each one runs to completion before the next is observed.
type Widget struct {
	src       Source
	rules     []Rule
	fallback  string
	greeting  string
	clock     clockwork.Clock
	delay     time.Duration
	logger    *slog.Logger
	observers []func(State)

	notifyMu sync.Mutex

	mu      sync.Mutex
	state   State
	pending clockwork.Timer
	seq     uint64 // identifies the submission the pending timer answers
	closed  bool
}

// New creates a widget answering from src. A nil src behaves as an empty
// profile.
func New(src Source, opts ...Option) *Widget {
	if src == nil {
		src = emptySource{}
	}
	w := &Widget{
		src:      src,
		rules:    DefaultRules(),
		fallback: DefaultFallback,
		greeting: DefaultGreeting,
		clock:    clockwork.NewRealClock(),
		delay:    DefaultDelay,
		logger:   slog.Default(),
	}
	for _, opt := range opts {
		opt(w)
	}
	w.state.Transcript = []Message{{Sender: Assistant, Text: w.greeting}}
	return w
}

// State returns a snapshot of the widget.
func (w *Widget) State() State {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.state.clone()
}

// ToggleVisibility opens a closed widget and closes an open one.
func (w *Widget) ToggleVisibility() {
	w.mu.Lock()
	if w.closed {
		w.mu.Unlock()
		return
	}
	w.state.Open = !w.state.Open
	w.mu.Unlock()

	w.notify()
}

// UpdateDraft replaces the pending input.
func (w *Widget) UpdateDraft(text string) {
	w.mu.Lock()
	if w.closed {
		w.mu.Unlock()
		return
	}
	w.state.Draft = text
	w.mu.Unlock()

	w.notify()
}

// Submit sends the current draft. It is a no-op returning false when the
// draft is blank, a reply is still pending, or the widget is closed.
// Otherwise it appends the trimmed draft, clears it, schedules the reply
// and returns true without waiting for it.
func (w *Widget) Submit() bool {
	w.mu.Lock()
	text := strings.TrimSpace(w.state.Draft)
	if w.closed || w.state.Busy || text == "" {
		w.mu.Unlock()
		return false
	}

	w.state.Transcript = append(w.state.Transcript, Message{Sender: User, Text: text})
	w.state.Draft = ""
	w.state.Busy = true
	w.seq++
	seq := w.seq
	w.mu.Unlock()

	// Scheduled outside the lock: some clocks run a zero-delay callback
	// before AfterFunc returns.
	timer := w.clock.AfterFunc(w.delay, func() { w.deliver(seq, text) })

	w.mu.Lock()
	switch {
	case w.closed:
		timer.Stop()
	case w.seq == seq && w.state.Busy:
		w.pending = timer
	}
	w.mu.Unlock()

	w.logger.Debug("assistant question submitted", "seq", seq, "length", len(text))
	w.notify()
	return true
}

// deliver appends the reply for submission seq. A timer that lost a race
// with Close finds the widget closed and discards itself.
func (w *Widget) deliver(seq uint64, text string) {
	w.mu.Lock()
	if w.closed || !w.state.Busy || w.seq != seq {
		w.mu.Unlock()
		return
	}

	reply := Respond(w.rules, w.fallback, w.src, text)
	w.state.Transcript = append(w.state.Transcript, Message{Sender: Assistant, Text: reply})
	w.state.Busy = false
	w.pending = nil
	w.mu.Unlock()

	w.logger.Debug("assistant reply delivered", "seq", seq)
	w.notify()
}

// Close destroys the widget. A pending reply is cancelled and never
// appended; every later call is a no-op. Close is idempotent.
func (w *Widget) Close() {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.closed {
		return
	}
	w.closed = true
	if w.pending != nil {
		w.pending.Stop()
		w.pending = nil
		w.logger.Debug("assistant pending reply cancelled", "seq", w.seq)
	}
}

// notify reads the state under notifyMu so observers never see an older
// snapshot after a newer one.
func (w *Widget) notify() {
	if len(w.observers) == 0 {
		return
	}
	w.notifyMu.Lock()
	defer w.notifyMu.Unlock()
	s := w.State()
	for _, fn := range w.observers {
		fn(s.clone())
	}
}
