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

// Package selector parses and evaluates the label and field filters of a
// PodCleaner against individual pods.
//
// A Selector is a flat conjunction of clauses. Label clauses compare against
// the pod's labels:
//
//	app=spark               key equals value
//	app!=spark              key absent or different
//	tier in (batch,etl)     key equals one of the values
//	tier notin (web)        key absent or equal to none of the values
//	launched-by             key present
//	!keep                   key absent
//
// Field clauses compare against a dotted path resolved on the pod object,
// using exact string equality of the formatted value:
//
//	status.phase!=Running,status.phase!=Pending
//	spec.nodeName=worker-1
//
// The syntax accepted is exactly the one accepted by the Kubernetes API
// server, because parsing is delegated to k8s.io/apimachinery.
//
// A field path that does not resolve to a scalar on a given pod is reported
// as a *FieldPathError rather than a non-match, so callers can surface it
// instead of silently including or excluding the pod.
//
// Selectors are built once (for example when a PodCleaner is registered)
// and reused for every pod of every pass.
package selector
