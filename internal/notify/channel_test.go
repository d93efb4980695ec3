package notify

import (
	"sync"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wolfman30/branch-booking/internal/clock"
	"github.com/wolfman30/branch-booking/internal/observability/metrics"
)

func newTestChannel(t *testing.T) (*Channel, *clock.Fake) {
	t.Helper()
	fake := clock.NewFake(time.Date(2026, 5, 4, 10, 0, 0, 0, time.UTC))
	return NewChannel(WithClock(fake)), fake
}

func TestShowExpiresAfterDuration(t *testing.T) {
	ch, fake := newTestChannel(t)
	msg := ch.Show(TypeInfo, "hello", "", 500*time.Millisecond)

	fake.Advance(100 * time.Millisecond)
	assert.Equal(t, []*Message{msg}, ch.Messages())

	fake.Advance(500 * time.Millisecond)
	assert.Empty(t, ch.Messages())
	assert.Zero(t, ch.Pending())
}

func TestShowDefaultDuration(t *testing.T) {
	ch, fake := newTestChannel(t)
	msg := ch.Show(TypeSuccess, "saved", "", 0)
	assert.Equal(t, DefaultDuration, msg.Duration)

	fake.Advance(DefaultDuration - time.Millisecond)
	assert.Len(t, ch.Messages(), 1)
	fake.Advance(time.Millisecond)
	assert.Empty(t, ch.Messages())
}

func TestRemoveByIdentity(t *testing.T) {
	ch, fake := newTestChannel(t)
	a := ch.Info("same")
	b := ch.Info("same")

	require.True(t, ch.Remove(a))
	assert.Equal(t, []*Message{b}, ch.Messages())
	assert.Equal(t, 1, ch.Pending(), "removing a cancels its timer")
	assert.False(t, ch.Remove(a))

	fake.Advance(DefaultDuration)
	assert.Empty(t, ch.Messages())
}

func TestClearStopsTimers(t *testing.T) {
	ch, fake := newTestChannel(t)
	ch.Warning("one")
	ch.Error("two")

	ch.Clear()
	assert.Empty(t, ch.Messages())
	assert.Zero(t, ch.Pending())
	assert.Zero(t, fake.Pending())
}

func TestTypedHelpers(t *testing.T) {
	ch, _ := newTestChannel(t)

	e := ch.Error("boom")
	assert.Equal(t, TypeError, e.Type)
	assert.Equal(t, "Error", e.Title)

	e2 := ch.Error("boom", Title("Payment"))
	assert.Equal(t, "Payment", e2.Title)

	s := ch.Success("ok", Duration(time.Second))
	assert.Equal(t, TypeSuccess, s.Type)
	assert.Empty(t, s.Title)
	assert.Equal(t, time.Second, s.Duration)

	w := ch.Warning("careful")
	assert.Equal(t, TypeWarning, w.Type)
	i := ch.Info("fyi")
	assert.Equal(t, TypeInfo, i.Type)
}

func TestSubscribeSeesSnapshots(t *testing.T) {
	ch, fake := newTestChannel(t)
	var sizes []int
	unsub := ch.Subscribe(func(msgs []*Message) { sizes = append(sizes, len(msgs)) })
	defer unsub()

	ch.Info("a", Duration(time.Second))
	ch.Info("b", Duration(2*time.Second))
	fake.Advance(3 * time.Second)

	assert.Equal(t, []int{0, 1, 2, 1, 0}, sizes)
}

func TestConcurrentShowPublishesLatestQueue(t *testing.T) {
	ch, fake := newTestChannel(t)
	var mu sync.Mutex
	var last []*Message
	unsub := ch.Subscribe(func(msgs []*Message) {
		mu.Lock()
		last = msgs
		mu.Unlock()
	})
	defer unsub()

	var wg sync.WaitGroup
	for i := 0; i < 32; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			msg := ch.Info("hello", Duration(time.Minute))
			if i%2 == 0 {
				ch.Remove(msg)
			}
		}()
	}
	wg.Wait()

	mu.Lock()
	assert.ElementsMatch(t, ch.Messages(), last)
	assert.Len(t, last, 16)
	mu.Unlock()

	fake.Advance(time.Minute)
	mu.Lock()
	assert.Empty(t, last)
	mu.Unlock()
}

func TestShowCountsMetrics(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := metrics.NewClientMetrics(reg)
	ch := NewChannel(WithClock(clock.NewFake(time.Unix(0, 0))), WithMetrics(m), WithDefaultDuration(time.Second))

	msg := ch.Error("x")
	assert.Equal(t, time.Second, msg.Duration)

	families, err := reg.Gather()
	require.NoError(t, err)
	found := false
	for _, f := range families {
		if f.GetName() == "booking_client_notifications_total" {
			found = true
		}
	}
	assert.True(t, found)
}
