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

// Package cleanup runs cleanup passes.
//
// A pass lists the pods in scope, filters them into deletion candidates and
// deletes the candidates, strictly in that order: no delete is issued until
// the listing has completed. A listing failure aborts the pass before any
// pod is touched.
//
// Passes are serialized per key. When a pass is requested while another
// pass for the same key is running, the new one waits for the first to
// finish; waiting passes start in the order they were requested. Passes
// for different keys run concurrently and share only the deletion
// concurrency limit of their executors.
//
// Example usage:
//
//	runner := cleanup.NewRunner(
//		candidate.NewResolver(apiReader, candidate.DefaultPageSize),
//		deletion.NewExecutor(k8sClient, sem),
//	)
//	outcome, err := runner.Run(ctx, cleanup.Pass{
//		Key:      "ns1/spark-cleaner",
//		Scope:    "ns1",
//		Selector: sel,
//		Policy:   age.FromDays(3),
//	})
package cleanup
