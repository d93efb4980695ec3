// Package notify holds the queue of transient user-facing messages shown by
// the front end. Messages expire on their own after a duration.
package notify

import (
	"sync"
	"time"

	"github.com/wolfman30/branch-booking/internal/clock"
	"github.com/wolfman30/branch-booking/internal/observability/metrics"
	"github.com/wolfman30/branch-booking/internal/observable"
	"github.com/wolfman30/branch-booking/pkg/logging"
)

// DefaultDuration is used when a message is shown with a zero duration.
const DefaultDuration = 5 * time.Second

// Type classifies a message.
type Type string

const (
	TypeSuccess Type = "success"
	TypeError   Type = "error"
	TypeWarning Type = "warning"
	TypeInfo    Type = "info"
)

// Message is one queued notification. Messages are compared by pointer, so
// two messages with identical content are still distinct.
type Message struct {
	Type      Type
	Title     string
	Content   string
	Duration  time.Duration
	CreatedAt time.Time
}

// Channel is the process-wide message queue.
type Channel struct {
	clock           clock.Clock
	defaultDuration time.Duration
	logger          *logging.Logger
	metrics         *metrics.ClientMetrics

	mu       sync.Mutex
	messages []*Message
	timers   map[*Message]clock.Timer

	publishMu sync.Mutex
	snapshots *observable.Cell[[]*Message]
}

// Option customizes a Channel.
type Option func(*Channel)

// WithClock replaces the wall clock, mainly for tests.
func WithClock(c clock.Clock) Option {
	return func(ch *Channel) {
		if c != nil {
			ch.clock = c
		}
	}
}

// WithDefaultDuration overrides DefaultDuration.
func WithDefaultDuration(d time.Duration) Option {
	return func(ch *Channel) {
		if d > 0 {
			ch.defaultDuration = d
		}
	}
}

// WithLogger sets the logger.
func WithLogger(logger *logging.Logger) Option {
	return func(ch *Channel) {
		if logger != nil {
			ch.logger = logger
		}
	}
}

// WithMetrics counts shown messages by type.
func WithMetrics(m *metrics.ClientMetrics) Option {
	return func(ch *Channel) { ch.metrics = m }
}

// NewChannel creates an empty channel.
func NewChannel(opts ...Option) *Channel {
	ch := &Channel{
		clock:           clock.New(),
		defaultDuration: DefaultDuration,
		logger:          logging.Discard(),
		timers:          make(map[*Message]clock.Timer),
		snapshots:       observable.NewCell[[]*Message](nil),
	}
	for _, opt := range opts {
		opt(ch)
	}
	return ch
}

// Show appends a message and schedules its removal after duration, or the
// default duration when zero.
func (c *Channel) Show(kind Type, content, title string, duration time.Duration) *Message {
	if duration <= 0 {
		duration = c.defaultDuration
	}
	msg := &Message{
		Type:      kind,
		Title:     title,
		Content:   content,
		Duration:  duration,
		CreatedAt: c.clock.Now(),
	}

	c.mu.Lock()
	c.messages = append(c.messages, msg)
	c.timers[msg] = c.clock.AfterFunc(duration, func() { c.Remove(msg) })
	c.mu.Unlock()

	c.logger.Debug("notification shown", "type", string(kind), "content", content)
	c.metrics.ObserveNotification(string(kind))
	c.publish()
	return msg
}

// ShowOption tunes one of the typed helpers.
type ShowOption func(*showOptions)

type showOptions struct {
	title    string
	duration time.Duration
}

// Title sets the message title.
func Title(title string) ShowOption {
	return func(o *showOptions) { o.title = title }
}

// Duration sets how long the message stays queued.
func Duration(d time.Duration) ShowOption {
	return func(o *showOptions) { o.duration = d }
}

func (c *Channel) show(kind Type, content string, defaults showOptions, opts []ShowOption) *Message {
	o := defaults
	for _, opt := range opts {
		opt(&o)
	}
	return c.Show(kind, content, o.title, o.duration)
}

func (c *Channel) Success(content string, opts ...ShowOption) *Message {
	return c.show(TypeSuccess, content, showOptions{}, opts)
}

// Error shows an error message titled "Error" unless a title is given.
func (c *Channel) Error(content string, opts ...ShowOption) *Message {
	return c.show(TypeError, content, showOptions{title: "Error"}, opts)
}

func (c *Channel) Warning(content string, opts ...ShowOption) *Message {
	return c.show(TypeWarning, content, showOptions{}, opts)
}

func (c *Channel) Info(content string, opts ...ShowOption) *Message {
	return c.show(TypeInfo, content, showOptions{}, opts)
}

// Remove drops msg from the queue and cancels its pending expiry. Removing a
// message that is no longer queued does nothing.
func (c *Channel) Remove(msg *Message) bool {
	c.mu.Lock()
	idx := -1
	for i, m := range c.messages {
		if m == msg {
			idx = i
			break
		}
	}
	if idx < 0 {
		c.mu.Unlock()
		return false
	}
	c.messages = append(c.messages[:idx:idx], c.messages[idx+1:]...)
	if t, ok := c.timers[msg]; ok {
		t.Stop()
		delete(c.timers, msg)
	}
	c.mu.Unlock()

	c.publish()
	return true
}

// Clear empties the queue and stops every pending expiry.
func (c *Channel) Clear() {
	c.mu.Lock()
	for m, t := range c.timers {
		t.Stop()
		delete(c.timers, m)
	}
	c.messages = nil
	c.mu.Unlock()

	c.publish()
}

// publish re-reads the queue under publishMu so concurrent changes can never
// leave an older snapshot as the published one.
func (c *Channel) publish() {
	c.publishMu.Lock()
	defer c.publishMu.Unlock()
	c.snapshots.Set(c.Messages())
}

// Messages returns the queued messages in insertion order.
func (c *Channel) Messages() []*Message {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.snapshotLocked()
}

// Subscribe receives the current queue immediately and after every change.
// Listeners must not show or remove messages synchronously.
func (c *Channel) Subscribe(fn func([]*Message)) (unsubscribe func()) {
	return c.snapshots.Subscribe(fn)
}

// Pending reports how many expiry timers are outstanding.
func (c *Channel) Pending() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.timers)
}

func (c *Channel) snapshotLocked() []*Message {
	if len(c.messages) == 0 {
		return nil
	}
	out := make([]*Message, len(c.messages))
	copy(out, c.messages)
	return out
}
