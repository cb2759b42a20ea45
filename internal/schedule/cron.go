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
	"fmt"
	"hash/fnv"
	"strings"
	"time"

	"github.com/robfig/cron/v3"
)

// InvalidScheduleError is returned for cron expressions that cannot be parsed.
type InvalidScheduleError struct {
	Expr string
	Err  error
}

func (e *InvalidScheduleError) Error() string {
	return fmt.Sprintf("invalid schedule %q: %v", e.Expr, e.Err)
}

func (e *InvalidScheduleError) Unwrap() error {
	return e.Err
}

// Parse parses a standard five-field cron expression. Descriptors such as
// @hourly and @every 10m are accepted as well.
func Parse(expr string) (cron.Schedule, error) {
	trimmed := strings.TrimSpace(expr)
	if trimmed == "" {
		return nil, &InvalidScheduleError{Expr: expr, Err: fmt.Errorf("empty expression")}
	}
	sched, err := cron.ParseStandard(trimmed)
	if err != nil {
		return nil, &InvalidScheduleError{Expr: expr, Err: err}
	}
	return sched, nil
}

// NextFire returns when sched is next due.
//
// With no recorded fire the result is the first activation after now. With
// a recorded fire the result is the first activation after lastFired, or now
// if that activation has already passed.
func NextFire(sched cron.Schedule, now, lastFired time.Time) time.Time {
	if lastFired.IsZero() {
		return sched.Next(now)
	}
	next := sched.Next(lastFired)
	if !next.After(now) {
		return now
	}
	return next
}

// Successor returns when sched is due again after a pass fired at firedAt
// finished at now. A slot that came due while the pass was running is due
// immediately, once.
func Successor(sched cron.Schedule, firedAt, now time.Time) time.Time {
	return NextFire(sched, now, firedAt)
}

// Fingerprint hashes the inputs that define an entry. A change in any of
// them means the entry must be replaced.
func Fingerprint(parts ...string) string {
	h := fnv.New64a()
	for _, p := range parts {
		_, _ = h.Write([]byte(p))
		_, _ = h.Write([]byte{0})
	}
	return fmt.Sprintf("%016x", h.Sum64())
}
