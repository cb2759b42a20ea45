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
	"context"
	"fmt"
	"sync"
	"time"

	"golang.org/x/sync/semaphore"
	corev1 "k8s.io/api/core/v1"
	apierrors "k8s.io/apimachinery/pkg/api/errors"
	metav1 "k8s.io/apimachinery/pkg/apis/meta/v1"
	"sigs.k8s.io/controller-runtime/pkg/client"
	"sigs.k8s.io/controller-runtime/pkg/log"

	"github.com/wseaton/shopvac/internal/candidate"
)

// DefaultConcurrency is the default number of concurrent delete calls.
const DefaultConcurrency = 10

// Option configures an Executor.
type Option func(*Executor)

// WithRetry overrides the retry settings.
func WithRetry(cfg RetryConfig) Option {
	return func(e *Executor) {
		e.retry = cfg
	}
}

// WithDryRun makes the executor report what it would delete without
// calling the API server.
func WithDryRun(dryRun bool) Option {
	return func(e *Executor) {
		e.dryRun = dryRun
	}
}

// Executor deletes candidate pods.
type Executor struct {
	client client.Writer
	sem    *semaphore.Weighted
	retry  RetryConfig
	dryRun bool
}

// NewExecutor creates an executor deleting through c. The semaphore bounds
// concurrent delete calls and is meant to be shared by every executor of
// the process; a nil semaphore gets a private one of DefaultConcurrency.
func NewExecutor(c client.Writer, sem *semaphore.Weighted, opts ...Option) *Executor {
	if sem == nil {
		sem = semaphore.NewWeighted(DefaultConcurrency)
	}
	e := &Executor{
		client: c,
		sem:    sem,
		retry:  DefaultRetryConfig(),
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// DryRun reports whether deletes are skipped.
func (e *Executor) DryRun() bool {
	return e.dryRun
}

// Execute deletes every candidate and returns the per-pod results. The
// order in which candidates are processed is unspecified.
func (e *Executor) Execute(ctx context.Context, candidates []candidate.Candidate) *Outcome {
	logger := log.FromContext(ctx)
	start := time.Now()

	outcome := &Outcome{
		Found:  len(candidates),
		DryRun: e.dryRun,
		Time:   start,
	}

	var (
		mu sync.Mutex
		wg sync.WaitGroup
	)
	record := func(c candidate.Candidate, gone bool, err error) {
		mu.Lock()
		defer mu.Unlock()
		if err != nil {
			outcome.Failed++
			outcome.Failures = append(outcome.Failures, Failure{Pod: c.Key(), Reason: err.Error()})
			return
		}
		outcome.Succeeded++
		if gone {
			outcome.Gone++
		}
	}

	for _, c := range candidates {
		if e.dryRun {
			logger.Info("Would delete pod", "pod", c.Key(), "created", c.Created)
			record(c, false, nil)
			continue
		}

		if err := e.sem.Acquire(ctx, 1); err != nil {
			record(c, false, fmt.Errorf("not attempted: %w", err))
			continue
		}

		wg.Add(1)
		go func(c candidate.Candidate) {
			defer wg.Done()
			defer e.sem.Release(1)

			gone, err := e.deletePod(ctx, c)
			record(c, gone, err)
		}(c)
	}
	wg.Wait()

	outcome.sortFailures()
	outcome.Duration = time.Since(start)

	logger.Info("Deletion finished",
		"found", outcome.Found,
		"succeeded", outcome.Succeeded,
		"gone", outcome.Gone,
		"failed", outcome.Failed,
		"dryRun", outcome.DryRun,
		"duration", outcome.Duration.String())

	return outcome
}

// deletePod removes one pod. gone is true when the pod no longer existed
// in the observed form.
func (e *Executor) deletePod(ctx context.Context, c candidate.Candidate) (gone bool, err error) {
	logger := log.FromContext(ctx).WithValues("pod", c.Key())

	pod := &corev1.Pod{
		ObjectMeta: metav1.ObjectMeta{
			Name:      c.Name,
			Namespace: c.Namespace,
		},
	}
	var opts []client.DeleteOption
	if c.UID != "" {
		uid := c.UID
		opts = append(opts, client.Preconditions{UID: &uid})
	}

	attempts, err := e.retry.executeWithRetry(ctx, func() error {
		return e.client.Delete(ctx, pod, opts...)
	})

	switch {
	case err == nil:
		logger.Info("Deleted pod", "attempts", attempts)
		return false, nil
	case apierrors.IsNotFound(err):
		logger.V(1).Info("Pod already gone")
		return true, nil
	case isPreconditionFailure(err):
		logger.V(1).Info("Pod was replaced since it was listed, leaving the new one alone")
		return true, nil
	default:
		logger.Error(err, "Failed to delete pod", "attempts", attempts)
		return false, fmt.Errorf("delete failed after %d attempt(s): %w", attempts, err)
	}
}
