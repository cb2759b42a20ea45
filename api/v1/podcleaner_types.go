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

package v1

import (
	metav1 "k8s.io/apimachinery/pkg/apis/meta/v1"
)

// PodCleanerState is the lifecycle state of a PodCleaner as seen by the controller.
// +kubebuilder:validation:Enum=Registered;Active;Failed
type PodCleanerState string

const (
	// StateRegistered means a valid schedule is installed but has not fired yet.
	StateRegistered PodCleanerState = "Registered"
	// StateActive means at least one cleanup pass has run for the current spec.
	StateActive PodCleanerState = "Active"
	// StateFailed means the spec is invalid or the last pass could not list pods.
	StateFailed PodCleanerState = "Failed"
)

// ConditionReady is the condition type reflecting whether the cleaner is operating.
const ConditionReady = "Ready"

// MaxReportedFailures bounds the number of per-pod failures kept in status.
const MaxReportedFailures = 10

// PodCleanerSpec defines the desired state of PodCleaner
type PodCleanerSpec struct {
	// Schedule in cron-style syntax (minute hour day-of-month month day-of-week)
	// +kubebuilder:validation:MinLength=1
	Schedule string `json:"schedule"`

	// DeleteOlderThan is the minimum pod age, in days, for a pod to be removed.
	// A value of 0 removes matching pods regardless of age.
	// +kubebuilder:validation:Minimum=0
	// +kubebuilder:validation:Maximum=127
	DeleteOlderThan int8 `json:"delete_older_than"`

	// LabelSelector restricts cleanup to pods matching this label selector
	// +optional
	LabelSelector *string `json:"label_selector,omitempty"`

	// FieldSelector restricts cleanup to pods matching this field selector,
	// for example "status.phase!=Running,status.phase!=Pending"
	// +optional
	FieldSelector *string `json:"field_selector,omitempty"`
}

// PodFailure records why a single pod could not be evaluated or deleted.
type PodFailure struct {
	// Pod is the namespace/name of the pod
	Pod string `json:"pod"`

	// Reason is a human readable description of the failure
	Reason string `json:"reason"`
}

// CleanupOutcome summarizes a single cleanup pass.
type CleanupOutcome struct {
	// Found is the number of deletion candidates found
	Found int32 `json:"found"`

	// Deleted is the number of candidates successfully removed (or already gone)
	Deleted int32 `json:"deleted"`

	// Failed is the number of pods that could not be evaluated or removed
	Failed int32 `json:"failed"`

	// Failures lists the first failures of the pass
	// +optional
	Failures []PodFailure `json:"failures,omitempty"`
}

// PodCleanerStatus defines the observed state of PodCleaner.
type PodCleanerStatus struct {
	// State is the current lifecycle state
	// +optional
	State PodCleanerState `json:"state,omitempty"`

	// LastReconciled is the time of the last completed cleanup pass
	// +optional
	LastReconciled *metav1.Time `json:"lastReconciled,omitempty"`

	// NextFireTime is when the next cleanup pass is scheduled
	// +optional
	NextFireTime *metav1.Time `json:"nextFireTime,omitempty"`

	// LastOutcome holds the counts of the last completed pass
	// +optional
	LastOutcome *CleanupOutcome `json:"lastOutcome,omitempty"`

	// Message carries the last error when State is Failed
	// +optional
	Message string `json:"message,omitempty"`

	// +listType=map
	// +listMapKey=type
	// +optional
	Conditions []metav1.Condition `json:"conditions,omitempty"`

	// ObservedGeneration reflects the generation of the most recently observed spec
	// +optional
	ObservedGeneration int64 `json:"observedGeneration,omitempty"`
}

// +kubebuilder:object:root=true
// +kubebuilder:subresource:status
// +kubebuilder:resource:shortName=pc
// +kubebuilder:printcolumn:name="Schedule",type="string",JSONPath=".spec.schedule"
// +kubebuilder:printcolumn:name="Older Than",type="integer",JSONPath=".spec.delete_older_than"
// +kubebuilder:printcolumn:name="State",type="string",JSONPath=".status.state"
// +kubebuilder:printcolumn:name="Last Run",type="date",JSONPath=".status.lastReconciled"

// PodCleaner is the Schema for the podcleaners API
type PodCleaner struct {
	metav1.TypeMeta `json:",inline"`

	// +optional
	metav1.ObjectMeta `json:"metadata,omitempty,omitzero"`

	// +required
	Spec PodCleanerSpec `json:"spec"`

	// +optional
	Status PodCleanerStatus `json:"status,omitempty,omitzero"`
}

// LabelSelectorString returns the label selector or "" when unset.
func (p *PodCleaner) LabelSelectorString() string {
	if p.Spec.LabelSelector == nil {
		return ""
	}
	return *p.Spec.LabelSelector
}

// FieldSelectorString returns the field selector or "" when unset.
func (p *PodCleaner) FieldSelectorString() string {
	if p.Spec.FieldSelector == nil {
		return ""
	}
	return *p.Spec.FieldSelector
}

// +kubebuilder:object:root=true

// PodCleanerList contains a list of PodCleaner
type PodCleanerList struct {
	metav1.TypeMeta `json:",inline"`
	metav1.ListMeta `json:"metadata,omitempty"`
	Items           []PodCleaner `json:"items"`
}

func init() {
	SchemeBuilder.Register(&PodCleaner{}, &PodCleanerList{})
}
