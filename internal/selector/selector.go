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

import (
	"fmt"
	"reflect"
	"sort"
	"strings"

	corev1 "k8s.io/api/core/v1"
	"k8s.io/apimachinery/pkg/apis/meta/v1/unstructured"
	"k8s.io/apimachinery/pkg/fields"
	"k8s.io/apimachinery/pkg/labels"
	"k8s.io/apimachinery/pkg/runtime"
	"k8s.io/apimachinery/pkg/selection"
)

// Kind tells whether a clause targets labels or fields.
type Kind int

const (
	// LabelClause compares against the pod's labels.
	LabelClause Kind = iota
	// FieldClause compares against a dotted field path of the pod.
	FieldClause
)

func (k Kind) String() string {
	if k == FieldClause {
		return "field"
	}
	return "label"
}

// Operator is the comparison performed by a clause.
type Operator string

const (
	// Equals matches a single value.
	Equals Operator = "="
	// NotEquals matches anything but a single value, including a missing key.
	NotEquals Operator = "!="
	// In matches any value of a set.
	In Operator = "in"
	// NotIn matches values outside a set, including a missing key.
	NotIn Operator = "notin"
	// Exists matches when the label key is present.
	Exists Operator = "exists"
	// DoesNotExist matches when the label key is absent.
	DoesNotExist Operator = "!exists"
)

// Clause is a single term of a selector.
type Clause struct {
	Kind   Kind
	Key    string
	Op     Operator
	Values []string
}

func (c Clause) String() string {
	switch c.Op {
	case Exists:
		return c.Key
	case DoesNotExist:
		return "!" + c.Key
	case In, NotIn:
		return fmt.Sprintf("%s %s (%s)", c.Key, c.Op, strings.Join(c.Values, ","))
	default:
		return c.Key + string(c.Op) + c.value()
	}
}

func (c Clause) value() string {
	if len(c.Values) == 0 {
		return ""
	}
	return c.Values[0]
}

func (c Clause) hasValue(v string) bool {
	for _, candidate := range c.Values {
		if candidate == v {
			return true
		}
	}
	return false
}

// Selector is a parsed label and field filter. The zero value matches everything.
type Selector struct {
	clauses []Clause
	labels  labels.Selector
}

// Everything returns a selector with no clauses.
func Everything() *Selector {
	return &Selector{labels: labels.Everything()}
}

// Parse builds a selector from a label selector expression and a field
// selector expression. Either may be empty.
func Parse(labelExpr, fieldExpr string) (*Selector, error) {
	ls, labelClauses, err := parseLabels(labelExpr)
	if err != nil {
		return nil, err
	}
	fieldClauses, err := parseFields(fieldExpr)
	if err != nil {
		return nil, err
	}

	return &Selector{
		clauses: append(labelClauses, fieldClauses...),
		labels:  ls,
	}, nil
}

func parseLabels(expr string) (labels.Selector, []Clause, error) {
	expr = strings.TrimSpace(expr)
	if expr == "" {
		return labels.Everything(), nil, nil
	}

	sel, err := labels.Parse(expr)
	if err != nil {
		return nil, nil, &ParseError{Kind: LabelClause, Expr: expr, Err: err}
	}

	reqs, _ := sel.Requirements()
	clauses := make([]Clause, 0, len(reqs))
	for _, req := range reqs {
		values := req.Values().List()
		c := Clause{Kind: LabelClause, Key: req.Key(), Values: values}
		switch req.Operator() {
		case selection.Equals, selection.DoubleEquals:
			c.Op = Equals
		case selection.NotEquals:
			c.Op = NotEquals
		case selection.In:
			c.Op = In
		case selection.NotIn:
			c.Op = NotIn
		case selection.Exists:
			c.Op = Exists
		case selection.DoesNotExist:
			c.Op = DoesNotExist
		default:
			return nil, nil, &ParseError{
				Kind: LabelClause,
				Expr: expr,
				Err:  fmt.Errorf("unsupported operator %q for key %q", req.Operator(), req.Key()),
			}
		}
		clauses = append(clauses, c)
	}

	return sel, clauses, nil
}

func parseFields(expr string) ([]Clause, error) {
	expr = strings.TrimSpace(expr)
	if expr == "" {
		return nil, nil
	}

	sel, err := fields.ParseSelector(expr)
	if err != nil {
		return nil, &ParseError{Kind: FieldClause, Expr: expr, Err: err}
	}

	reqs := sel.Requirements()
	clauses := make([]Clause, 0, len(reqs))
	for _, req := range reqs {
		c := Clause{Kind: FieldClause, Key: req.Field, Values: []string{req.Value}}
		switch req.Operator {
		case selection.Equals, selection.DoubleEquals:
			c.Op = Equals
		case selection.NotEquals:
			c.Op = NotEquals
		default:
			return nil, &ParseError{
				Kind: FieldClause,
				Expr: expr,
				Err:  fmt.Errorf("unsupported operator %q for field %q", req.Operator, req.Field),
			}
		}
		clauses = append(clauses, c)
	}

	return clauses, nil
}

// Clauses returns a copy of the parsed clauses, labels first.
func (s *Selector) Clauses() []Clause {
	if s == nil {
		return nil
	}
	out := make([]Clause, len(s.clauses))
	copy(out, s.clauses)
	return out
}

// Empty reports whether the selector matches every pod.
func (s *Selector) Empty() bool {
	return s == nil || len(s.clauses) == 0
}

// LabelSelector returns the label part of the selector, suitable for
// server-side filtering of list calls.
func (s *Selector) LabelSelector() labels.Selector {
	if s == nil || s.labels == nil {
		return labels.Everything()
	}
	return s.labels
}

// String renders the selector as "labels; fields" for logging.
func (s *Selector) String() string {
	if s.Empty() {
		return "<everything>"
	}
	var ls, fs []string
	for _, c := range s.clauses {
		if c.Kind == LabelClause {
			ls = append(ls, c.String())
		} else {
			fs = append(fs, c.String())
		}
	}
	sort.Strings(ls)
	sort.Strings(fs)
	return strings.Join(ls, ",") + "; " + strings.Join(fs, ",")
}

// Matches evaluates every clause against the pod and returns true when all
// of them hold. If any field clause cannot be resolved on this pod the
// result is a *FieldPathError, independent of the other clauses.
func (s *Selector) Matches(pod *corev1.Pod) (bool, error) {
	if s.Empty() {
		return true, nil
	}

	var content map[string]interface{}
	matched := true
	for _, c := range s.clauses {
		var ok bool
		switch c.Kind {
		case LabelClause:
			ok = matchLabel(c, pod.Labels)
		case FieldClause:
			if content == nil {
				var err error
				content, err = runtime.DefaultUnstructuredConverter.ToUnstructured(pod)
				if err != nil {
					return false, &FieldPathError{Pod: podName(pod), Path: c.Key, Reason: err.Error()}
				}
			}
			value, err := resolveField(content, c.Key)
			if err != nil {
				return false, &FieldPathError{Pod: podName(pod), Path: c.Key, Reason: err.Error()}
			}
			ok = matchField(c, value)
		}
		if !ok {
			matched = false
		}
	}

	return matched, nil
}

func matchLabel(c Clause, podLabels map[string]string) bool {
	value, present := podLabels[c.Key]
	switch c.Op {
	case Equals:
		return present && value == c.value()
	case NotEquals:
		return !present || value != c.value()
	case In:
		return present && c.hasValue(value)
	case NotIn:
		return !present || !c.hasValue(value)
	case Exists:
		return present
	case DoesNotExist:
		return !present
	}
	return false
}

func matchField(c Clause, value string) bool {
	switch c.Op {
	case Equals:
		return value == c.value()
	case NotEquals:
		return value != c.value()
	}
	return false
}

// resolveField walks a dotted path and formats the scalar found there.
func resolveField(content map[string]interface{}, path string) (string, error) {
	parts := strings.Split(path, ".")
	for _, p := range parts {
		if p == "" {
			return "", fmt.Errorf("malformed field path")
		}
	}

	value, found, err := unstructured.NestedFieldNoCopy(content, parts...)
	if err != nil {
		return "", err
	}
	if !found {
		// zero values are dropped when the pod is rendered; a path the
		// schema defines compares as its zero value, like on the API server
		return zeroValue(parts)
	}

	switch v := value.(type) {
	case string:
		return v, nil
	case bool, int64, int32, int, float64:
		return fmt.Sprint(v), nil
	case nil:
		return "", fmt.Errorf("field is null")
	default:
		return "", fmt.Errorf("field is not a scalar (%T)", value)
	}
}

var podType = reflect.TypeOf(corev1.Pod{})

// zeroValue formats the zero value of the scalar field at path in the Pod
// schema. Paths the schema does not define, or that end in a non-scalar, are
// errors.
func zeroValue(parts []string) (string, error) {
	t := podType
	for _, p := range parts {
		if t.Kind() == reflect.Pointer {
			t = t.Elem()
		}
		if t.Kind() != reflect.Struct {
			return "", fmt.Errorf("field not present")
		}
		next, ok := jsonField(t, p)
		if !ok {
			return "", fmt.Errorf("field not present")
		}
		t = next
	}
	if t.Kind() == reflect.Pointer {
		t = t.Elem()
	}

	switch t.Kind() {
	case reflect.String:
		return "", nil
	case reflect.Bool, reflect.Int, reflect.Int32, reflect.Int64, reflect.Float64:
		return fmt.Sprint(reflect.Zero(t).Interface()), nil
	default:
		return "", fmt.Errorf("field not set")
	}
}

// jsonField finds the field serialized as name, looking through inlined
// embedded structs.
func jsonField(t reflect.Type, name string) (reflect.Type, bool) {
	for i := 0; i < t.NumField(); i++ {
		f := t.Field(i)
		tag, _, _ := strings.Cut(f.Tag.Get("json"), ",")
		if tag == "-" {
			continue
		}
		if tag == "" && f.Anonymous {
			embedded := f.Type
			if embedded.Kind() == reflect.Pointer {
				embedded = embedded.Elem()
			}
			if embedded.Kind() == reflect.Struct {
				if ft, ok := jsonField(embedded, name); ok {
					return ft, true
				}
			}
			continue
		}
		if tag == name {
			return f.Type, true
		}
	}
	return nil, false
}

func podName(pod *corev1.Pod) string {
	if pod.Namespace == "" {
		return pod.Name
	}
	return pod.Namespace + "/" + pod.Name
}
