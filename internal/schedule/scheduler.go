/*
Copyright (c) 2025 The shopvac Authors

Permission is hereby granted, free of charge, to any person obtaining a copy
of this software and associated documentation files (the "Software"), to deal
in the Software without restriction, including without limitation the rights
to use, copy, modify, merge, publish, distribute, sublicense, and/or sell
copies of the Software, and to permit persons to whom the Software is
furnished to do so, subject to the following conditions:

The above copyright notice and this permission notice shall be included in all
copies or substantial portions of the Software.

THE SOFTWARE IS PROVIDED "AS IS", WITHOUT WARRANTY OF ANY KIND, EXPRESS OR
IMPLIED, INCLUDING BUT NOT LIMITED TO THE WARRANTIES OF MERCHANTABILITY,
FITNESS FOR A PARTICULAR PURPOSE AND NONINFRINGEMENT. IN NO EVENT SHALL THE
AUTHORS OR COPYRIGHT HOLDERS BE LIABLE FOR ANY CLAIM, DAMAGES OR OTHER
LIABILITY, WHETHER IN AN ACTION OF CONTRACT, TORT OR OTHERWISE, ARISING FROM,
OUT OF OR IN CONNECTION WITH THE SOFTWARE OR THE USE OR OTHER DEALINGS IN THE
SOFTWARE.
*/

package schedule

import (
	"context"
	"sync"
	"time"

	metav1 "k8s.io/apimachinery/pkg/apis/meta/v1"
	"k8s.io/apimachinery/pkg/types"
	"k8s.io/utils/clock"
	"sigs.k8s.io/controller-runtime/pkg/event"
	"sigs.k8s.io/controller-runtime/pkg/log"
)

// DefaultEventBuffer is the capacity of the events channel.
const DefaultEventBuffer = 1024

// Option configures a Scheduler.
type Option func(*Scheduler)

// WithClock replaces the wall clock, for tests.
func WithClock(c clock.WithDelayedExecution) Option {
	return func(s *Scheduler) {
		s.clock = c
	}
}

// WithEventBuffer sets the capacity of the events channel.
func WithEventBuffer(n int) Option {
	return func(s *Scheduler) {
		s.buffer = n
	}
}

type armed struct {
	entry *Entry
	timer clock.Timer
}

// Scheduler owns the set of active entries and their timers.
//
// Register, Remove and Fired are meant to be called only from the
// reconciler; timers only read the entry they were armed for.
type Scheduler struct {
	clock  clock.WithDelayedExecution
	buffer int

	mu      sync.Mutex
	entries map[types.NamespacedName]*armed

	events  chan event.GenericEvent
	stopped chan struct{}
	once    sync.Once
}

// NewScheduler creates an empty scheduler.
func NewScheduler(opts ...Option) *Scheduler {
	s := &Scheduler{
		clock:   clock.RealClock{},
		buffer:  DefaultEventBuffer,
		entries: make(map[types.NamespacedName]*armed),
		stopped: make(chan struct{}),
	}
	for _, opt := range opts {
		opt(s)
	}
	s.events = make(chan event.GenericEvent, s.buffer)
	return s
}

// Events returns the channel on which fires are delivered.
func (s *Scheduler) Events() <-chan event.GenericEvent {
	return s.events
}

// Register parses expr and installs a new entry for key, replacing any
// existing one. The first fire is computed with NextFire from lastFired, so
// a schedule that was missed while nobody was watching is due immediately.
// On error nothing is installed and any existing entry is left as is.
func (s *Scheduler) Register(key types.NamespacedName, fingerprint, expr string, lastFired time.Time) (*Entry, error) {
	sched, err := Parse(expr)
	if err != nil {
		return nil, err
	}

	now := s.clock.Now()
	entry := &Entry{
		key:         key,
		fingerprint: fingerprint,
		expr:        expr,
		schedule:    sched,
		next:        NextFire(sched, now, lastFired),
		lastFired:   lastFired,
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.install(entry, now)
	return entry, nil
}

// Fired records that a pass for key ran at firedAt and installs the
// successor entry. It returns false if key has no entry.
func (s *Scheduler) Fired(key types.NamespacedName, firedAt time.Time) (*Entry, bool) {
	now := s.clock.Now()

	s.mu.Lock()
	defer s.mu.Unlock()
	current, ok := s.entries[key]
	if !ok {
		return nil, false
	}
	next := current.entry.successor(firedAt, now)
	s.install(next, now)
	return next, true
}

// Remove drops the entry for key and cancels its timer.
func (s *Scheduler) Remove(key types.NamespacedName) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	current, ok := s.entries[key]
	if !ok {
		return false
	}
	current.timer.Stop()
	delete(s.entries, key)
	return true
}

// Get returns the active entry for key.
func (s *Scheduler) Get(key types.NamespacedName) (*Entry, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	current, ok := s.entries[key]
	if !ok {
		return nil, false
	}
	return current.entry, true
}

// Len returns the number of active entries.
func (s *Scheduler) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.entries)
}

// Start blocks until ctx is done and then cancels every timer. It
// implements manager.Runnable.
func (s *Scheduler) Start(ctx context.Context) error {
	logger := log.FromContext(ctx).WithName("scheduler")
	logger.Info("Starting cron scheduler")

	<-ctx.Done()

	s.once.Do(func() { close(s.stopped) })
	s.mu.Lock()
	for _, a := range s.entries {
		a.timer.Stop()
	}
	s.mu.Unlock()

	logger.Info("Cron scheduler stopped")
	return nil
}

// install must be called with s.mu held.
func (s *Scheduler) install(entry *Entry, now time.Time) {
	if previous, ok := s.entries[entry.key]; ok {
		previous.timer.Stop()
	}

	delay := entry.next.Sub(now)
	if delay < 0 {
		delay = 0
	}
	timer := s.clock.AfterFunc(delay, func() {
		// fake clocks run this while holding their own lock
		go s.fire(entry)
	})
	s.entries[entry.key] = &armed{entry: entry, timer: timer}
}

func (s *Scheduler) fire(entry *Entry) {
	s.mu.Lock()
	current, ok := s.entries[entry.key]
	s.mu.Unlock()
	if !ok || current.entry != entry {
		// replaced or removed after the timer was armed
		return
	}

	ev := event.GenericEvent{Object: &metav1.PartialObjectMetadata{
		ObjectMeta: metav1.ObjectMeta{
			Name:      entry.key.Name,
			Namespace: entry.key.Namespace,
		},
	}}
	select {
	case s.events <- ev:
	case <-s.stopped:
	}
}
