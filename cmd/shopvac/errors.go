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

package main

import (
	"errors"
)

// Exit codes of the shopvac command.
const (
	// ExitCodeSuccess means every candidate was removed (or would have been, in dry-run mode).
	ExitCodeSuccess = 0
	// ExitCodeDeleteFailed means at least one pod could not be evaluated or deleted.
	ExitCodeDeleteFailed = 1
	// ExitCodeInvalidInput means a flag or selector could not be parsed.
	ExitCodeInvalidInput = 2
	// ExitCodeListFailed means the pod listing failed and nothing was deleted.
	ExitCodeListFailed = 3
)

// exitError carries the exit code for an error.
type exitError struct {
	code int
	err  error
}

func (e *exitError) Error() string { return e.err.Error() }
func (e *exitError) Unwrap() error { return e.err }

func invalidInput(err error) error {
	return &exitError{code: ExitCodeInvalidInput, err: err}
}

// exitCode maps an error returned by the root command to a process exit code.
func exitCode(err error) int {
	if err == nil {
		return ExitCodeSuccess
	}
	var ee *exitError
	if errors.As(err, &ee) {
		return ee.code
	}
	// cobra flag parsing and anything unclassified
	return ExitCodeInvalidInput
}
