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

package deletion

import (
	"sort"
	"time"

	"github.com/wseaton/shopvac/internal/candidate"
)

// Failure is the reason a single pod could not be evaluated or removed.
type Failure struct {
	Pod    string
	Reason string
}

// Outcome summarizes one cleanup pass.
type Outcome struct {
	// Found is the number of deletion candidates
	Found int
	// Succeeded counts candidates removed, already gone, or replaced.
	// In dry-run mode it counts the pods that would have been removed.
	Succeeded int
	// Gone counts the part of Succeeded that no longer existed
	Gone int
	// Failed counts pods that could not be removed plus pods whose
	// selector evaluation failed
	Failed   int
	Failures []Failure
	DryRun   bool
	// Time is when the pass started
	Time     time.Time
	Duration time.Duration
}

// OK reports whether the pass had no failures.
func (o *Outcome) OK() bool {
	return o.Failed == 0
}

// AddEvaluationErrors folds pods skipped during resolution into the
// outcome as failures.
func (o *Outcome) AddEvaluationErrors(errs []candidate.EvaluationError) {
	for _, e := range errs {
		o.Failed++
		o.Failures = append(o.Failures, Failure{Pod: e.Pod, Reason: e.Err.Error()})
	}
	o.sortFailures()
}

// FirstFailures returns at most n failures, in pod order.
func (o *Outcome) FirstFailures(n int) []Failure {
	if len(o.Failures) <= n {
		return o.Failures
	}
	return o.Failures[:n]
}

func (o *Outcome) sortFailures() {
	sort.SliceStable(o.Failures, func(i, j int) bool {
		return o.Failures[i].Pod < o.Failures[j].Pod
	})
}
