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

package selector

import "fmt"

// ParseError is returned when a selector expression is not valid syntax.
type ParseError struct {
	Kind Kind
	Expr string
	Err  error
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("invalid %s selector %q: %v", e.Kind, e.Expr, e.Err)
}

func (e *ParseError) Unwrap() error {
	return e.Err
}

// FieldPathError is returned when a field clause cannot be resolved on a pod.
type FieldPathError struct {
	Pod    string
	Path   string
	Reason string
}

func (e *FieldPathError) Error() string {
	return fmt.Sprintf("cannot resolve field %q on pod %s: %s", e.Path, e.Pod, e.Reason)
}
