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

// Package candidate lists the pods in a scope and selects the ones a
// cleanup pass should delete.
package candidate

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"time"

	corev1 "k8s.io/api/core/v1"
	"k8s.io/apimachinery/pkg/types"
	"sigs.k8s.io/controller-runtime/pkg/client"
	"sigs.k8s.io/controller-runtime/pkg/log"

	"github.com/wseaton/shopvac/internal/age"
	"github.com/wseaton/shopvac/internal/selector"
)

// DefaultPageSize is the number of pods requested per list call.
const DefaultPageSize = 500

// ErrListFailed marks a pass-fatal listing failure. No candidates are
// returned alongside it.
var ErrListFailed = errors.New("pod listing failed")

// Candidate references a pod observed during one pass.
type Candidate struct {
	Namespace       string
	Name            string
	UID             types.UID
	ResourceVersion string
	Created         time.Time
}

// Key returns namespace/name.
func (c Candidate) Key() string {
	return c.Namespace + "/" + c.Name
}

// EvaluationError records a pod whose selector evaluation failed.
type EvaluationError struct {
	Pod string
	Err error
}

// Request describes what to resolve.
type Request struct {
	// Namespace to list; empty means all namespaces
	Namespace string
	Selector  *selector.Selector
	Policy    age.Policy
	// ExcludeNamespaces drops pods whose namespace matches, in cluster-wide scope only
	ExcludeNamespaces *regexp.Regexp
	// Now defaults to time.Now()
	Now time.Time
}

// Result is the outcome of a successful resolution.
type Result struct {
	Candidates []Candidate
	// Skipped holds pods whose evaluation failed; they are not candidates
	Skipped []EvaluationError
	// Listed is the number of pods returned by the API server
	Listed int
	Pages  int
}

// Resolver lists pods and filters them into deletion candidates.
type Resolver struct {
	reader   client.Reader
	pageSize int64
}

// NewResolver creates a resolver reading pods through reader. The reader
// should not be a cache-backed client: pod state must come from the API
// server on every pass.
func NewResolver(reader client.Reader, pageSize int64) *Resolver {
	if pageSize <= 0 {
		pageSize = DefaultPageSize
	}
	return &Resolver{
		reader:   reader,
		pageSize: pageSize,
	}
}

// Resolve pages through every pod in scope and returns the ones matching
// the selector and age policy. Any failed page aborts the whole resolution
// with an error wrapping ErrListFailed.
func (r *Resolver) Resolve(ctx context.Context, req Request) (*Result, error) {
	logger := log.FromContext(ctx).WithValues("namespace", scopeName(req.Namespace))

	now := req.Now
	if now.IsZero() {
		now = time.Now()
	}
	sel := req.Selector
	if sel == nil {
		sel = selector.Everything()
	}

	result := &Result{}
	continueToken := ""
	for {
		var page corev1.PodList
		if err := r.reader.List(ctx, &page, r.listOptions(req.Namespace, sel, continueToken)...); err != nil {
			// expired continue tokens included
			return nil, fmt.Errorf("%w on page %d: %w", ErrListFailed, result.Pages+1, err)
		}
		result.Pages++
		result.Listed += len(page.Items)

		for i := range page.Items {
			pod := &page.Items[i]
			if req.Namespace == "" && req.ExcludeNamespaces != nil && req.ExcludeNamespaces.MatchString(pod.Namespace) {
				continue
			}

			ok, err := sel.Matches(pod)
			if err != nil {
				logger.Info("Skipping pod, selector evaluation failed", "pod", podKey(pod), "error", err.Error())
				result.Skipped = append(result.Skipped, EvaluationError{Pod: podKey(pod), Err: err})
				continue
			}
			if !ok {
				continue
			}

			if !req.Policy.Eligible(pod.CreationTimestamp.Time, now) {
				continue
			}

			logger.V(1).Info("Found candidate", "pod", podKey(pod),
				"age", now.Sub(pod.CreationTimestamp.Time).Round(time.Second).String())
			result.Candidates = append(result.Candidates, Candidate{
				Namespace:       pod.Namespace,
				Name:            pod.Name,
				UID:             pod.UID,
				ResourceVersion: pod.ResourceVersion,
				Created:         pod.CreationTimestamp.Time,
			})
		}

		if page.Continue == "" {
			break
		}
		continueToken = page.Continue
	}

	logger.Info("Resolved deletion candidates",
		"selector", sel.String(),
		"olderThan", req.Policy.String(),
		"cutoff", req.Policy.Cutoff(now),
		"listed", result.Listed,
		"pages", result.Pages,
		"candidates", len(result.Candidates),
		"skipped", len(result.Skipped))

	return result, nil
}

func (r *Resolver) listOptions(namespace string, sel *selector.Selector, continueToken string) []client.ListOption {
	opts := []client.ListOption{client.Limit(r.pageSize)}
	if namespace != "" {
		opts = append(opts, client.InNamespace(namespace))
	}
	if ls := sel.LabelSelector(); !ls.Empty() {
		opts = append(opts, client.MatchingLabelsSelector{Selector: ls})
	}
	if continueToken != "" {
		opts = append(opts, client.Continue(continueToken))
	}
	return opts
}

func podKey(pod *corev1.Pod) string {
	return pod.Namespace + "/" + pod.Name
}

func scopeName(namespace string) string {
	if namespace == "" {
		return "<all>"
	}
	return namespace
}
