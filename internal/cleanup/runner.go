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

package cleanup

import (
	"context"
	"fmt"
	"regexp"

	"k8s.io/utils/clock"
	"sigs.k8s.io/controller-runtime/pkg/log"

	"github.com/wseaton/shopvac/internal/age"
	"github.com/wseaton/shopvac/internal/candidate"
	"github.com/wseaton/shopvac/internal/deletion"
	"github.com/wseaton/shopvac/internal/selector"
)

// Pass describes one cleanup pass.
type Pass struct {
	// Key serializes passes; typically the namespace/name of the PodCleaner
	Key string
	// Scope is the namespace to clean, or "" for the whole cluster
	Scope             string
	Selector          *selector.Selector
	Policy            age.Policy
	ExcludeNamespaces *regexp.Regexp
}

// Runner executes cleanup passes.
type Runner struct {
	resolver *candidate.Resolver
	executor *deletion.Executor
	locks    *keyLock
	clock    clock.PassiveClock
}

// RunnerOption configures a Runner.
type RunnerOption func(*Runner)

// WithClock sets the clock pod ages are measured against.
func WithClock(c clock.PassiveClock) RunnerOption {
	return func(r *Runner) {
		r.clock = c
	}
}

// NewRunner creates a runner that resolves candidates with resolver and
// deletes them with executor.
func NewRunner(resolver *candidate.Resolver, executor *deletion.Executor, opts ...RunnerOption) *Runner {
	r := &Runner{
		resolver: resolver,
		executor: executor,
		locks:    newKeyLock(),
		clock:    clock.RealClock{},
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Running reports whether a pass for key is in progress.
func (r *Runner) Running(key string) bool {
	return r.locks.Held(key)
}

// Run performs a single pass, waiting first for any in-flight pass with the
// same key. The returned error wraps candidate.ErrListFailed when the pod
// listing failed, in which case nothing was deleted. Per-pod problems are
// reported in the outcome, not as an error.
func (r *Runner) Run(ctx context.Context, p Pass) (*deletion.Outcome, error) {
	logger := log.FromContext(ctx).WithValues("pass", p.Key)

	if err := r.locks.Lock(ctx, p.Key); err != nil {
		return nil, fmt.Errorf("waiting for in-flight pass: %w", err)
	}
	defer r.locks.Unlock(p.Key)

	start := r.clock.Now()
	logger.V(1).Info("Starting cleanup pass", "scope", p.Scope, "olderThan", p.Policy.String())

	result, err := r.resolver.Resolve(log.IntoContext(ctx, logger), candidate.Request{
		Namespace:         p.Scope,
		Selector:          p.Selector,
		Policy:            p.Policy,
		ExcludeNamespaces: p.ExcludeNamespaces,
		Now:               start,
	})
	if err != nil {
		logger.Error(err, "Cleanup pass aborted, no pods were deleted")
		return nil, err
	}

	outcome := r.executor.Execute(log.IntoContext(ctx, logger), result.Candidates)
	outcome.AddEvaluationErrors(result.Skipped)
	outcome.Time = start
	outcome.Duration = r.clock.Since(start)

	return outcome, nil
}
