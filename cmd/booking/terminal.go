package main

import (
	"fmt"
	"io"
	"sync"

	"github.com/wolfman30/branch-booking/internal/notify"
)

// terminalNavigator turns route changes into hints on stderr and keeps the
// last navigation state for the command that asked for it.
type terminalNavigator struct {
	w       io.Writer
	verbose bool

	mu    sync.Mutex
	last  string
	state any
}

func (n *terminalNavigator) Navigate(route string) {
	n.record(route, nil)
}

func (n *terminalNavigator) Reset(route string) {
	n.record(route, nil)
}

func (n *terminalNavigator) NavigateWithState(route string, state any) {
	n.record(route, state)
}

func (n *terminalNavigator) record(route string, state any) {
	n.mu.Lock()
	n.last = route
	n.state = state
	n.mu.Unlock()
	if n.verbose {
		fmt.Fprintf(n.w, "-> %s\n", route)
	}
}

// takeState returns and forgets the state of the last navigation.
func (n *terminalNavigator) takeState() any {
	n.mu.Lock()
	defer n.mu.Unlock()
	s := n.state
	n.state = nil
	return s
}

// notificationPrinter prints each message once, when it first appears.
type notificationPrinter struct {
	w    io.Writer
	mu   sync.Mutex
	seen map[*notify.Message]struct{}
}

func newNotificationPrinter(w io.Writer) *notificationPrinter {
	return &notificationPrinter{w: w, seen: make(map[*notify.Message]struct{})}
}

func (p *notificationPrinter) print(msgs []*notify.Message) {
	p.mu.Lock()
	defer p.mu.Unlock()
	live := make(map[*notify.Message]struct{}, len(msgs))
	for _, m := range msgs {
		live[m] = struct{}{}
		if _, ok := p.seen[m]; ok {
			continue
		}
		if m.Title != "" {
			fmt.Fprintf(p.w, "[%s] %s: %s\n", m.Type, m.Title, m.Content)
		} else {
			fmt.Fprintf(p.w, "[%s] %s\n", m.Type, m.Content)
		}
	}
	p.seen = live
}

func (n *terminalNavigator) lastRoute() string {
	n.mu.Lock()
	defer n.mu.Unlock()
	return n.last
}
