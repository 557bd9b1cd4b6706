// Package hover tracks the date under the chart pointer and tells observers
// when it changes.
package hover

import (
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/aristath/etfmonitor/internal/domain"
)

// State is the controller state
type State int

const (
	// Idle - no date selected, derivations use the latest date
	Idle State = iota
	// Hovering - a date is selected
	Hovering
)

func (s State) String() string {
	if s == Hovering {
		return "hovering"
	}
	return "idle"
}

// Transition describes a change of selected date. A nil date means Idle.
type Transition struct {
	From *time.Time
	To   *time.Time
}

// State returns the state entered by the transition
func (t Transition) State() State {
	if t.To == nil {
		return Idle
	}
	return Hovering
}

// Controller owns the selected date. Handlers are the only writers.
type Controller struct {
	mu        sync.Mutex
	selected  *time.Time
	observers map[int]func(Transition)
	nextID    int
}

// NewController creates a controller in the Idle state
func NewController() *Controller {
	return &Controller{observers: make(map[int]func(Transition))}
}

// PointerMove selects the date carried by a chart label. Moving onto the date
// already selected is not a transition.
func (c *Controller) PointerMove(label string) error {
	date, err := domain.ParseDate(label)
	if err != nil {
		return fmt.Errorf("pointer move: %w", err)
	}
	c.set(&date)
	return nil
}

// Select is the slider entry point; it behaves like a pointer move.
func (c *Controller) Select(label string) error {
	return c.PointerMove(label)
}

// PointerLeave returns to Idle.
func (c *Controller) PointerLeave() {
	c.set(nil)
}

// Selected returns a copy of the selected date, nil when Idle
func (c *Controller) Selected() *time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return copyDate(c.selected)
}

// State returns the current state
func (c *Controller) State() State {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.selected == nil {
		return Idle
	}
	return Hovering
}

// Subscribe registers fn for every transition and returns a function that
// removes it. Observers run synchronously, in subscription order, after the
// state has changed.
func (c *Controller) Subscribe(fn func(Transition)) func() {
	c.mu.Lock()
	defer c.mu.Unlock()

	id := c.nextID
	c.nextID++
	c.observers[id] = fn

	return func() {
		c.mu.Lock()
		defer c.mu.Unlock()
		delete(c.observers, id)
	}
}

func (c *Controller) set(date *time.Time) {
	c.mu.Lock()
	if sameDate(c.selected, date) {
		c.mu.Unlock()
		return
	}

	tr := Transition{From: copyDate(c.selected), To: copyDate(date)}
	c.selected = copyDate(date)

	ids := make([]int, 0, len(c.observers))
	for id := range c.observers {
		ids = append(ids, id)
	}
	sort.Ints(ids)
	fns := make([]func(Transition), 0, len(ids))
	for _, id := range ids {
		fns = append(fns, c.observers[id])
	}
	c.mu.Unlock()

	for _, fn := range fns {
		fn(tr)
	}
}

func sameDate(a, b *time.Time) bool {
	if a == nil || b == nil {
		return a == nil && b == nil
	}
	return a.Equal(*b)
}

func copyDate(d *time.Time) *time.Time {
	if d == nil {
		return nil
	}
	v := *d
	return &v
}
