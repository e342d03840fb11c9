// Copyright 2026 The Outline Authors
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     https://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

/*
Package debounce coalesces bursts of events into a single call:

	d := debounce.New(500*time.Millisecond, restart)
	defer d.Stop()  // to prevent a late call
	for range events {
		d.Trigger()  // restart runs once events have been quiet for 500ms
	}
*/
package debounce

import (
	"sync"
	"time"
)

// Debouncer runs a function once calls to [Debouncer.Trigger] have stopped for
// a fixed delay. Each Trigger pushes the deadline back.
//
// Debouncer is safe for concurrent use by multiple goroutines.
type Debouncer struct {
	delay time.Duration
	f     func()

	mu      sync.Mutex
	t       *time.Timer
	gen     uint64
	ddl     time.Time
	stopped bool
}

// New returns a Debouncer that calls f, on its own goroutine, delay after the
// last Trigger.
func New(delay time.Duration, f func()) *Debouncer {
	return &Debouncer{delay: delay, f: f}
}

// Trigger schedules the call for delay from now, replacing any pending one.
// It is a no-op after Stop.
func (d *Debouncer) Trigger() {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.stopped {
		return
	}
	if d.t != nil {
		d.t.Stop()
	}
	// A timer that already fired may still be waiting for mu; the generation
	// keeps it from clearing the state of the timer created here.
	d.gen++
	gen := d.gen
	d.ddl = time.Now().Add(d.delay)
	d.t = time.AfterFunc(d.delay, func() { d.fire(gen) })
}

func (d *Debouncer) fire(gen uint64) {
	d.mu.Lock()
	if gen == d.gen {
		d.t = nil
		d.ddl = time.Time{}
	}
	stopped := d.stopped
	d.mu.Unlock()
	if !stopped {
		d.f()
	}
}

// Deadline returns when the pending call is due, or the zero time if none is
// pending.
func (d *Debouncer) Deadline() time.Time {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.ddl
}

// Stop cancels the pending call and disables the Debouncer.
func (d *Debouncer) Stop() {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.stopped = true
	if d.t != nil {
		d.t.Stop()
		d.t = nil
	}
	d.ddl = time.Time{}
}
