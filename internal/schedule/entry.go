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
	"time"

	"github.com/robfig/cron/v3"
	"k8s.io/apimachinery/pkg/types"
)

// Entry is the schedule of one PodCleaner. Entries are never modified;
// registering a new spec or recording a fire replaces the entry.
type Entry struct {
	key         types.NamespacedName
	fingerprint string
	expr        string
	schedule    cron.Schedule
	next        time.Time
	lastFired   time.Time
}

func (e *Entry) Key() types.NamespacedName { return e.key }
func (e *Entry) Fingerprint() string       { return e.fingerprint }
func (e *Entry) Expr() string              { return e.expr }
func (e *Entry) Next() time.Time           { return e.next }

// LastFired is zero until the entry's schedule has fired once.
func (e *Entry) LastFired() time.Time { return e.lastFired }

// Due reports whether a pass should run at now.
func (e *Entry) Due(now time.Time) bool {
	return !now.Before(e.next)
}

// Until returns how long until the entry is due, never negative.
func (e *Entry) Until(now time.Time) time.Duration {
	if d := e.next.Sub(now); d > 0 {
		return d
	}
	return 0
}

func (e *Entry) successor(firedAt, now time.Time) *Entry {
	return &Entry{
		key:         e.key,
		fingerprint: e.fingerprint,
		expr:        e.expr,
		schedule:    e.schedule,
		next:        Successor(e.schedule, firedAt, now),
		lastFired:   firedAt,
	}
}
