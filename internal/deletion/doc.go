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

// Package deletion removes the candidate pods of a cleanup pass.
//
// Every candidate is deleted independently. A pod that is already gone, or
// that was replaced by a new pod with the same name, counts as removed.
// Transient API errors (throttling, conflicts, server timeouts) are retried
// with exponential backoff; any other error, or running out of attempts,
// is recorded as a failure for that pod only.
//
// The number of in-flight delete calls is bounded by a weighted semaphore
// that callers share between passes, so several PodCleaners firing at the
// same time still respect one process-wide limit.
//
// Executors never return an error: the Outcome is the whole result.
package deletion
