package observable

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestCellSubscribeReceivesCurrentValue(t *testing.T) {
	c := NewCell(false)
	var got []bool
	unsub := c.Subscribe(func(v bool) { got = append(got, v) })
	defer unsub()

	c.Set(true)
	c.Set(false)

	assert.Equal(t, []bool{false, true, false}, got)
	assert.False(t, c.Get())
}

func TestCellUnsubscribe(t *testing.T) {
	c := NewCell(0)
	calls := 0
	unsub := c.Subscribe(func(int) { calls++ })
	unsub()
	unsub()

	c.Set(5)
	assert.Equal(t, 1, calls, "only the initial delivery should be observed")
	assert.Equal(t, 5, c.Get())
}

func TestCellListenerOrderAndReentrancy(t *testing.T) {
	c := NewCell("")
	var order []string
	c.Subscribe(func(v string) { order = append(order, "first:"+v) })
	c.Subscribe(func(v string) {
		order = append(order, "second:"+v)
		if v == "a" {
			c.Set("b")
		}
	})

	order = nil
	c.Set("a")

	assert.Equal(t, []string{"first:a", "second:a", "first:b", "second:b"}, order)
}

func TestCellConcurrentSet(t *testing.T) {
	c := NewCell(0)
	var mu sync.Mutex
	seen := 0
	c.Subscribe(func(int) {
		mu.Lock()
		seen++
		mu.Unlock()
	})

	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func(n int) {
			defer wg.Done()
			c.Set(n)
		}(i)
	}
	wg.Wait()

	mu.Lock()
	defer mu.Unlock()
	assert.Equal(t, 51, seen)
}
