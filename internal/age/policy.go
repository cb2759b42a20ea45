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

// Package age decides whether a pod is old enough to be cleaned up.
package age

import (
	"fmt"
	"time"
)

// Day is the unit of PodCleaner.spec.delete_older_than.
const Day = 24 * time.Hour

// Policy holds the minimum age a pod must reach before it is eligible for removal.
type Policy struct {
	MaxAge time.Duration
}

// FromDays returns a policy for a whole number of days. Negative values are
// treated as 0.
func FromDays(days int8) Policy {
	if days < 0 {
		days = 0
	}
	return Policy{MaxAge: time.Duration(days) * Day}
}

// Eligible reports whether now - created >= MaxAge. A zero MaxAge makes every
// pod eligible, including pods whose creation timestamp is ahead of now or
// missing. A missing creation timestamp is otherwise never eligible.
func (p Policy) Eligible(created, now time.Time) bool {
	if p.MaxAge <= 0 {
		return true
	}
	if created.IsZero() {
		return false
	}
	return now.Sub(created) >= p.MaxAge
}

// Cutoff returns the newest creation time that is still eligible at now.
func (p Policy) Cutoff(now time.Time) time.Time {
	return now.Add(-p.MaxAge)
}

func (p Policy) String() string {
	if p.MaxAge%Day == 0 {
		return fmt.Sprintf("%dd", int64(p.MaxAge/Day))
	}
	return p.MaxAge.String()
}
