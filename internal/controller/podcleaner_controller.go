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

package controller

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"sync"
	"time"

	corev1 "k8s.io/api/core/v1"
	apierrors "k8s.io/apimachinery/pkg/api/errors"
	"k8s.io/apimachinery/pkg/api/meta"
	metav1 "k8s.io/apimachinery/pkg/apis/meta/v1"
	"k8s.io/apimachinery/pkg/runtime"
	"k8s.io/apimachinery/pkg/types"
	"k8s.io/client-go/tools/record"
	"k8s.io/utils/clock"
	ctrl "sigs.k8s.io/controller-runtime"
	"sigs.k8s.io/controller-runtime/pkg/builder"
	"sigs.k8s.io/controller-runtime/pkg/client"
	"sigs.k8s.io/controller-runtime/pkg/controller"
	"sigs.k8s.io/controller-runtime/pkg/handler"
	logf "sigs.k8s.io/controller-runtime/pkg/log"
	"sigs.k8s.io/controller-runtime/pkg/predicate"
	"sigs.k8s.io/controller-runtime/pkg/source"

	shopvacv1 "github.com/wseaton/shopvac/api/v1"
	"github.com/wseaton/shopvac/internal/age"
	"github.com/wseaton/shopvac/internal/candidate"
	"github.com/wseaton/shopvac/internal/cleanup"
	"github.com/wseaton/shopvac/internal/deletion"
	"github.com/wseaton/shopvac/internal/schedule"
	"github.com/wseaton/shopvac/internal/selector"
)

// Event reasons
const (
	ReasonPassCompleted = "PassCompleted"
	ReasonPassFailed    = "PassFailed"
	ReasonInvalidSpec   = "InvalidSpec"
	ReasonScheduled     = "Scheduled"
)

// registration is what a PodCleaner spec compiles to.
type registration struct {
	fingerprint string
	pass        cleanup.Pass
}

// PodCleanerReconciler reconciles a PodCleaner object
type PodCleanerReconciler struct {
	client.Client
	Scheme    *runtime.Scheme
	Recorder  record.EventRecorder
	Scheduler *schedule.Scheduler
	Runner    *cleanup.Runner

	// MaxConcurrentPasses bounds how many PodCleaners are reconciled at once
	MaxConcurrentPasses int

	// Clock defaults to the wall clock
	Clock clock.PassiveClock

	mu            sync.Mutex
	registrations map[types.NamespacedName]*registration
}

// +kubebuilder:rbac:groups=shopvac.io,resources=podcleaners,verbs=get;list;watch
// +kubebuilder:rbac:groups=shopvac.io,resources=podcleaners/status,verbs=get;update;patch
// +kubebuilder:rbac:groups="",resources=pods,verbs=list;delete
// +kubebuilder:rbac:groups="",resources=events,verbs=create;patch

// Reconcile keeps the schedule of a PodCleaner in sync with its spec and
// runs a cleanup pass when the schedule is due.
//
// For more details, check Reconcile and its Result here:
// - https://pkg.go.dev/sigs.k8s.io/controller-runtime@v0.22.4/pkg/reconcile
func (r *PodCleanerReconciler) Reconcile(ctx context.Context, req ctrl.Request) (ctrl.Result, error) {
	log := logf.FromContext(ctx)

	var pc shopvacv1.PodCleaner
	if err := r.Get(ctx, req.NamespacedName, &pc); err != nil {
		if apierrors.IsNotFound(err) {
			r.forget(ctx, req.NamespacedName)
			return ctrl.Result{}, nil
		}
		return ctrl.Result{}, err
	}
	if !pc.DeletionTimestamp.IsZero() {
		r.forget(ctx, req.NamespacedName)
		return ctrl.Result{}, nil
	}

	reg, entry, err := r.ensureRegistered(ctx, &pc)
	if err != nil {
		return r.markInvalid(ctx, &pc, err)
	}

	now := r.now()

	if !entry.Due(now) {
		log.V(1).Info("Cleanup pass not due yet", "next", entry.Next())
		return ctrl.Result{RequeueAfter: entry.Until(now)}, nil
	}

	return r.runPass(ctx, &pc, reg, now)
}

// ensureRegistered returns the active registration for pc, compiling the
// spec into a new one when there is none or the spec changed. A new
// registration moves the object to Registered.
func (r *PodCleanerReconciler) ensureRegistered(ctx context.Context, pc *shopvacv1.PodCleaner) (*registration, *schedule.Entry, error) {
	log := logf.FromContext(ctx)
	key := client.ObjectKeyFromObject(pc)
	fingerprint := specFingerprint(pc)

	entry, scheduled := r.Scheduler.Get(key)
	reg := r.registration(key)
	if scheduled && reg != nil && reg.fingerprint == fingerprint && entry.Fingerprint() == fingerprint {
		return reg, entry, nil
	}

	sel, err := selector.Parse(pc.LabelSelectorString(), pc.FieldSelectorString())
	if err != nil {
		return nil, nil, err
	}

	// Only an unchanged spec may catch up on fires missed while no
	// controller was running.
	sameSpec := pc.Status.ObservedGeneration == pc.Generation
	var lastFired time.Time
	if sameSpec && pc.Status.LastReconciled != nil {
		lastFired = pc.Status.LastReconciled.Time
	}

	entry, err = r.Scheduler.Register(key, fingerprint, pc.Spec.Schedule, lastFired)
	if err != nil {
		return nil, nil, err
	}
	reg = &registration{
		fingerprint: fingerprint,
		pass: cleanup.Pass{
			Key:      key.String(),
			Scope:    pc.Namespace,
			Selector: sel,
			Policy:   age.FromDays(pc.Spec.DeleteOlderThan),
		},
	}
	r.setRegistration(key, reg)

	log.Info("Registered cleanup schedule",
		"schedule", pc.Spec.Schedule,
		"selector", sel.String(),
		"olderThan", reg.pass.Policy.String(),
		"next", entry.Next(),
		"catchUp", entry.Due(r.now()))

	state := shopvacv1.StateRegistered
	if sameSpec && pc.Status.State == shopvacv1.StateActive {
		state = shopvacv1.StateActive
	}
	err = r.patchStatus(ctx, pc, func(status *shopvacv1.PodCleanerStatus) {
		status.State = state
		status.Message = ""
		status.NextFireTime = timePtr(entry.Next())
		status.ObservedGeneration = pc.Generation
		meta.SetStatusCondition(&status.Conditions, metav1.Condition{
			Type:               shopvacv1.ConditionReady,
			Status:             metav1.ConditionTrue,
			Reason:             ReasonScheduled,
			Message:            fmt.Sprintf("Next cleanup pass at %s", entry.Next().UTC().Format(time.RFC3339)),
			ObservedGeneration: pc.Generation,
		})
	})
	if err != nil && !apierrors.IsNotFound(err) {
		// the schedule is installed; the status catches up on the next write
		log.Error(err, "Failed to update PodCleaner status after registration")
	}

	return reg, entry, nil
}

// runPass runs one cleanup pass and records its outcome.
func (r *PodCleanerReconciler) runPass(ctx context.Context, pc *shopvacv1.PodCleaner, reg *registration, now time.Time) (ctrl.Result, error) {
	log := logf.FromContext(ctx)
	key := client.ObjectKeyFromObject(pc)

	outcome, passErr := r.Runner.Run(ctx, reg.pass)
	if passErr != nil && !errors.Is(passErr, candidate.ErrListFailed) {
		// interrupted before the pass started, typically on shutdown
		return ctrl.Result{}, passErr
	}

	next, ok := r.Scheduler.Fired(key, now)
	if !ok {
		// removed while the pass was running
		log.Info("PodCleaner schedule removed during pass, discarding outcome")
		return ctrl.Result{}, nil
	}

	if passErr != nil {
		passesTotal.WithLabelValues(pc.Namespace, resultListFailed).Inc()
		r.Recorder.Eventf(pc, corev1.EventTypeWarning, ReasonPassFailed, "Cleanup pass aborted: %v", passErr)

		err := r.patchStatus(ctx, pc, func(status *shopvacv1.PodCleanerStatus) {
			status.State = shopvacv1.StateFailed
			status.Message = passErr.Error()
			status.NextFireTime = timePtr(next.Next())
			status.ObservedGeneration = pc.Generation
			meta.SetStatusCondition(&status.Conditions, metav1.Condition{
				Type:               shopvacv1.ConditionReady,
				Status:             metav1.ConditionFalse,
				Reason:             ReasonPassFailed,
				Message:            passErr.Error(),
				ObservedGeneration: pc.Generation,
			})
		})
		if err := ignoreGone(ctx, err); err != nil {
			return ctrl.Result{}, err
		}
		return ctrl.Result{RequeueAfter: next.Until(r.now())}, nil
	}

	result := resultSucceeded
	if !outcome.OK() {
		result = resultPartial
	}
	passesTotal.WithLabelValues(pc.Namespace, result).Inc()
	podsDeletedTotal.WithLabelValues(pc.Namespace).Add(float64(outcome.Succeeded))
	podFailuresTotal.WithLabelValues(pc.Namespace).Add(float64(outcome.Failed))
	passDuration.Observe(outcome.Duration.Seconds())

	r.Recorder.Eventf(pc, corev1.EventTypeNormal, ReasonPassCompleted,
		"Found %d pod(s), deleted %d, failed %d", outcome.Found, outcome.Succeeded, outcome.Failed)

	err := r.patchStatus(ctx, pc, func(status *shopvacv1.PodCleanerStatus) {
		status.State = shopvacv1.StateActive
		status.Message = failureSummary(outcome)
		status.LastReconciled = timePtr(now)
		status.NextFireTime = timePtr(next.Next())
		status.LastOutcome = toStatusOutcome(outcome)
		status.ObservedGeneration = pc.Generation
		meta.SetStatusCondition(&status.Conditions, metav1.Condition{
			Type:               shopvacv1.ConditionReady,
			Status:             metav1.ConditionTrue,
			Reason:             ReasonPassCompleted,
			Message:            fmt.Sprintf("Last pass deleted %d of %d candidate(s)", outcome.Succeeded, outcome.Found),
			ObservedGeneration: pc.Generation,
		})
	})
	if err := ignoreGone(ctx, err); err != nil {
		return ctrl.Result{}, err
	}

	return ctrl.Result{RequeueAfter: next.Until(r.now())}, nil
}

// markInvalid records a configuration error. The schedule is removed and
// nothing is retried until the spec changes.
func (r *PodCleanerReconciler) markInvalid(ctx context.Context, pc *shopvacv1.PodCleaner, cause error) (ctrl.Result, error) {
	log := logf.FromContext(ctx)
	key := client.ObjectKeyFromObject(pc)

	r.Scheduler.Remove(key)
	r.deleteRegistration(key)
	registeredSchedules.Set(float64(r.Scheduler.Len()))

	if pc.Status.State == shopvacv1.StateFailed &&
		pc.Status.Message == cause.Error() &&
		pc.Status.ObservedGeneration == pc.Generation {
		return ctrl.Result{}, nil
	}

	log.Info("Rejecting PodCleaner spec", "error", cause.Error())
	invalidSpecsTotal.Inc()
	r.Recorder.Event(pc, corev1.EventTypeWarning, ReasonInvalidSpec, cause.Error())

	err := r.patchStatus(ctx, pc, func(status *shopvacv1.PodCleanerStatus) {
		status.State = shopvacv1.StateFailed
		status.Message = cause.Error()
		status.NextFireTime = nil
		status.ObservedGeneration = pc.Generation
		meta.SetStatusCondition(&status.Conditions, metav1.Condition{
			Type:               shopvacv1.ConditionReady,
			Status:             metav1.ConditionFalse,
			Reason:             ReasonInvalidSpec,
			Message:            cause.Error(),
			ObservedGeneration: pc.Generation,
		})
	})
	return ctrl.Result{}, ignoreGone(ctx, err)
}

// forget drops all state kept for a PodCleaner that no longer exists. An
// in-flight pass is left to finish; its outcome is discarded.
func (r *PodCleanerReconciler) forget(ctx context.Context, key types.NamespacedName) {
	removed := r.Scheduler.Remove(key)
	r.deleteRegistration(key)
	registeredSchedules.Set(float64(r.Scheduler.Len()))
	if removed {
		logf.FromContext(ctx).Info("PodCleaner deleted, schedule removed")
	}
}

func (r *PodCleanerReconciler) patchStatus(ctx context.Context, pc *shopvacv1.PodCleaner, mutate func(*shopvacv1.PodCleanerStatus)) error {
	original := pc.DeepCopy()
	mutate(&pc.Status)
	registeredSchedules.Set(float64(r.Scheduler.Len()))
	return r.Status().Patch(ctx, pc, client.MergeFrom(original))
}

func (r *PodCleanerReconciler) now() time.Time {
	if r.Clock == nil {
		return time.Now()
	}
	return r.Clock.Now()
}

func (r *PodCleanerReconciler) registration(key types.NamespacedName) *registration {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.registrations[key]
}

func (r *PodCleanerReconciler) setRegistration(key types.NamespacedName, reg *registration) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.registrations == nil {
		r.registrations = make(map[types.NamespacedName]*registration)
	}
	r.registrations[key] = reg
}

func (r *PodCleanerReconciler) deleteRegistration(key types.NamespacedName) {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.registrations, key)
}

// SetupWithManager sets up the controller with the Manager.
func (r *PodCleanerReconciler) SetupWithManager(mgr ctrl.Manager) error {
	if r.Scheduler == nil {
		return errors.New("scheduler is required")
	}
	if r.Runner == nil {
		return errors.New("runner is required")
	}
	if err := mgr.Add(r.Scheduler); err != nil {
		return fmt.Errorf("failed to add scheduler to manager: %w", err)
	}

	maxConcurrent := r.MaxConcurrentPasses
	if maxConcurrent < 1 {
		maxConcurrent = 1
	}

	return ctrl.NewControllerManagedBy(mgr).
		For(&shopvacv1.PodCleaner{}, builder.WithPredicates(predicate.GenerationChangedPredicate{})).
		WatchesRawSource(source.Channel(r.Scheduler.Events(), &handler.EnqueueRequestForObject{})).
		WithOptions(controller.Options{MaxConcurrentReconciles: maxConcurrent}).
		Named("podcleaner").
		Complete(r)
}

// specFingerprint covers every spec field that affects scheduling or filtering.
func specFingerprint(pc *shopvacv1.PodCleaner) string {
	return schedule.Fingerprint(
		pc.Spec.Schedule,
		pc.LabelSelectorString(),
		pc.FieldSelectorString(),
		strconv.Itoa(int(pc.Spec.DeleteOlderThan)),
	)
}

func toStatusOutcome(o *deletion.Outcome) *shopvacv1.CleanupOutcome {
	out := &shopvacv1.CleanupOutcome{
		Found:   int32(o.Found),
		Deleted: int32(o.Succeeded),
		Failed:  int32(o.Failed),
	}
	for _, f := range o.FirstFailures(shopvacv1.MaxReportedFailures) {
		out.Failures = append(out.Failures, shopvacv1.PodFailure{Pod: f.Pod, Reason: f.Reason})
	}
	return out
}

func failureSummary(o *deletion.Outcome) string {
	if o.OK() {
		return ""
	}
	pods := make([]string, 0, shopvacv1.MaxReportedFailures)
	for _, f := range o.FirstFailures(shopvacv1.MaxReportedFailures) {
		pods = append(pods, f.Pod)
	}
	msg := fmt.Sprintf("%d pod(s) could not be removed: %s", o.Failed, strings.Join(pods, ", "))
	if o.Failed > len(pods) {
		msg += ", ..."
	}
	return msg
}

// ignoreGone drops NotFound errors from status writes: the PodCleaner was
// deleted and its outcome has nowhere to go.
func ignoreGone(ctx context.Context, err error) error {
	if err == nil {
		return nil
	}
	if apierrors.IsNotFound(err) {
		logf.FromContext(ctx).Info("PodCleaner gone before its status could be written, discarding outcome")
		return nil
	}
	return err
}

func timePtr(t time.Time) *metav1.Time {
	mt := metav1.NewTime(t)
	return &mt
}
