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
	"sync"
	"sync/atomic"
	"time"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
	corev1 "k8s.io/api/core/v1"
	apierrors "k8s.io/apimachinery/pkg/api/errors"
	"k8s.io/apimachinery/pkg/api/meta"
	metav1 "k8s.io/apimachinery/pkg/apis/meta/v1"
	"k8s.io/apimachinery/pkg/runtime/schema"
	"k8s.io/apimachinery/pkg/types"
	clocktesting "k8s.io/utils/clock/testing"
	"k8s.io/utils/ptr"
	"sigs.k8s.io/controller-runtime/pkg/client"
	"sigs.k8s.io/controller-runtime/pkg/client/interceptor"
	"sigs.k8s.io/controller-runtime/pkg/reconcile"

	shopvacv1 "github.com/wseaton/shopvac/api/v1"
	"github.com/wseaton/shopvac/internal/age"
)

var _ = Describe("PodCleaner Controller", func() {
	const (
		resourceName = "terminal-pods"
		namespace    = "ns1"
	)

	var (
		ctx   context.Context
		start time.Time

		typeNamespacedName = types.NamespacedName{Name: resourceName, Namespace: namespace}
	)

	newPod := func(name string, phase corev1.PodPhase, ageDays int) *corev1.Pod {
		return &corev1.Pod{
			ObjectMeta: metav1.ObjectMeta{
				Name:              name,
				Namespace:         namespace,
				CreationTimestamp: metav1.NewTime(start.Add(-time.Duration(ageDays) * age.Day)),
			},
			Status: corev1.PodStatus{Phase: phase},
		}
	}

	newPodCleaner := func(schedule string) *shopvacv1.PodCleaner {
		return &shopvacv1.PodCleaner{
			ObjectMeta: metav1.ObjectMeta{
				Name:       resourceName,
				Namespace:  namespace,
				Generation: 1,
			},
			Spec: shopvacv1.PodCleanerSpec{
				Schedule:        schedule,
				DeleteOlderThan: 3,
				FieldSelector:   ptr.To("status.phase!=Running,status.phase!=Pending"),
			},
		}
	}

	scenarioPods := func() []client.Object {
		return []client.Object{
			newPod("a", corev1.PodSucceeded, 5),
			newPod("b", corev1.PodRunning, 10),
			newPod("c", corev1.PodFailed, 1),
		}
	}

	getPodCleaner := func(c client.Client) *shopvacv1.PodCleaner {
		pc := &shopvacv1.PodCleaner{}
		Expect(c.Get(ctx, typeNamespacedName, pc)).To(Succeed())
		return pc
	}

	remainingPods := func(c client.Client) []string {
		var pods corev1.PodList
		Expect(c.List(ctx, &pods, client.InNamespace(namespace))).To(Succeed())
		names := make([]string, 0, len(pods.Items))
		for _, p := range pods.Items {
			names = append(names, p.Name)
		}
		return names
	}

	request := reconcile.Request{NamespacedName: typeNamespacedName}

	BeforeEach(func() {
		ctx = context.Background()
		start = time.Date(2025, 6, 10, 10, 1, 0, 0, time.UTC)
	})

	Describe("Scenario: Reconcile newly created PodCleaner", func() {
		It("registers the schedule without running a pass", func() {
			k8sClient := newFakeClient(nil, append(scenarioPods(), newPodCleaner("*/5 * * * *"))...)
			r, _, recorder := newTestReconciler(k8sClient, start)

			result, err := r.Reconcile(ctx, request)
			Expect(err).NotTo(HaveOccurred())
			Expect(result.RequeueAfter).To(Equal(4 * time.Minute))

			pc := getPodCleaner(k8sClient)
			Expect(pc.Status.State).To(Equal(shopvacv1.StateRegistered))
			Expect(pc.Status.NextFireTime).NotTo(BeNil())
			Expect(pc.Status.NextFireTime.Time.Equal(start.Add(4 * time.Minute))).To(BeTrue())
			Expect(pc.Status.LastReconciled).To(BeNil())
			Expect(meta.IsStatusConditionTrue(pc.Status.Conditions, shopvacv1.ConditionReady)).To(BeTrue())

			_, scheduled := r.Scheduler.Get(typeNamespacedName)
			Expect(scheduled).To(BeTrue())
			Expect(remainingPods(k8sClient)).To(ConsistOf("a", "b", "c"))
			Expect(drainEvents(recorder)).To(BeEmpty())
		})

		It("deletes only old terminal pods when the schedule fires", func() {
			k8sClient := newFakeClient(nil, append(scenarioPods(), newPodCleaner("*/5 * * * *"))...)
			r, clk, recorder := newTestReconciler(k8sClient, start)

			_, err := r.Reconcile(ctx, request)
			Expect(err).NotTo(HaveOccurred())

			By("advancing the clock to the first fire")
			clk.Step(4 * time.Minute)
			Eventually(r.Scheduler.Events()).Should(Receive())

			result, err := r.Reconcile(ctx, request)
			Expect(err).NotTo(HaveOccurred())
			Expect(result.RequeueAfter).To(Equal(5 * time.Minute))

			Expect(remainingPods(k8sClient)).To(ConsistOf("b", "c"))

			pc := getPodCleaner(k8sClient)
			Expect(pc.Status.State).To(Equal(shopvacv1.StateActive))
			Expect(pc.Status.LastReconciled).NotTo(BeNil())
			Expect(pc.Status.LastReconciled.Time.Equal(start.Add(4 * time.Minute))).To(BeTrue())
			Expect(pc.Status.NextFireTime.Time.Equal(start.Add(9 * time.Minute))).To(BeTrue())
			Expect(pc.Status.LastOutcome).To(Equal(&shopvacv1.CleanupOutcome{Found: 1, Deleted: 1, Failed: 0}))
			Expect(pc.Status.Message).To(BeEmpty())

			Expect(drainEvents(recorder)).To(ConsistOf(
				"Normal PassCompleted Found 1 pod(s), deleted 1, failed 0",
			))
		})

		It("does not run a second pass for the same fire", func() {
			k8sClient := newFakeClient(nil, append(scenarioPods(), newPodCleaner("*/5 * * * *"))...)
			r, clk, recorder := newTestReconciler(k8sClient, start)

			_, err := r.Reconcile(ctx, request)
			Expect(err).NotTo(HaveOccurred())
			clk.Step(4 * time.Minute)

			for i := 0; i < 3; i++ {
				_, err := r.Reconcile(ctx, request)
				Expect(err).NotTo(HaveOccurred())
			}

			Expect(drainEvents(recorder)).To(HaveLen(1))
		})
	})

	Describe("Scenario: Reconcile PodCleaner with an invalid spec", func() {
		It("marks an unparsable schedule as Failed without scheduling it", func() {
			k8sClient := newFakeClient(nil, newPodCleaner("every five minutes"))
			r, _, recorder := newTestReconciler(k8sClient, start)

			result, err := r.Reconcile(ctx, request)
			Expect(err).NotTo(HaveOccurred())
			Expect(result).To(Equal(reconcile.Result{}))

			pc := getPodCleaner(k8sClient)
			Expect(pc.Status.State).To(Equal(shopvacv1.StateFailed))
			Expect(pc.Status.Message).To(ContainSubstring("invalid schedule"))

			cond := meta.FindStatusCondition(pc.Status.Conditions, shopvacv1.ConditionReady)
			Expect(cond).NotTo(BeNil())
			Expect(cond.Status).To(Equal(metav1.ConditionFalse))
			Expect(cond.Reason).To(Equal(ReasonInvalidSpec))

			_, scheduled := r.Scheduler.Get(typeNamespacedName)
			Expect(scheduled).To(BeFalse())

			events := drainEvents(recorder)
			Expect(events).To(HaveLen(1))
			Expect(events[0]).To(HavePrefix("Warning InvalidSpec"))
		})

		It("marks an unparsable selector as Failed", func() {
			pc := newPodCleaner("*/5 * * * *")
			pc.Spec.LabelSelector = ptr.To("tier in (batch")
			k8sClient := newFakeClient(nil, pc)
			r, _, _ := newTestReconciler(k8sClient, start)

			_, err := r.Reconcile(ctx, request)
			Expect(err).NotTo(HaveOccurred())

			updated := getPodCleaner(k8sClient)
			Expect(updated.Status.State).To(Equal(shopvacv1.StateFailed))
			Expect(updated.Status.Message).To(ContainSubstring("invalid label selector"))
			Expect(r.Scheduler.Len()).To(Equal(0))
		})

		It("does not repeat the event for an unchanged invalid spec", func() {
			k8sClient := newFakeClient(nil, newPodCleaner("61 * * * *"))
			r, _, recorder := newTestReconciler(k8sClient, start)

			for i := 0; i < 3; i++ {
				_, err := r.Reconcile(ctx, request)
				Expect(err).NotTo(HaveOccurred())
			}
			Expect(drainEvents(recorder)).To(HaveLen(1))
		})

		It("registers the schedule once the spec is fixed", func() {
			k8sClient := newFakeClient(nil, newPodCleaner("every five minutes"))
			r, _, _ := newTestReconciler(k8sClient, start)

			_, err := r.Reconcile(ctx, request)
			Expect(err).NotTo(HaveOccurred())

			By("fixing the schedule")
			pc := getPodCleaner(k8sClient)
			pc.Spec.Schedule = "*/5 * * * *"
			pc.Generation = 2
			Expect(k8sClient.Update(ctx, pc)).To(Succeed())

			_, err = r.Reconcile(ctx, request)
			Expect(err).NotTo(HaveOccurred())

			updated := getPodCleaner(k8sClient)
			Expect(updated.Status.State).To(Equal(shopvacv1.StateRegistered))
			Expect(updated.Status.Message).To(BeEmpty())
			Expect(meta.IsStatusConditionTrue(updated.Status.Conditions, shopvacv1.ConditionReady)).To(BeTrue())
		})
	})

	Describe("Scenario: Controller restarts after missing fires", func() {
		It("runs exactly one catch-up pass", func() {
			pc := newPodCleaner("*/5 * * * *")
			pc.Status = shopvacv1.PodCleanerStatus{
				State:              shopvacv1.StateActive,
				LastReconciled:     ptr.To(metav1.NewTime(start.Add(-48 * time.Hour))),
				ObservedGeneration: 1,
			}
			k8sClient := newFakeClient(nil, append(scenarioPods(), pc)...)
			r, _, recorder := newTestReconciler(k8sClient, start)

			result, err := r.Reconcile(ctx, request)
			Expect(err).NotTo(HaveOccurred())
			Expect(result.RequeueAfter).To(Equal(4 * time.Minute))
			Expect(remainingPods(k8sClient)).To(ConsistOf("b", "c"))

			By("reconciling again before the next slot")
			_, err = r.Reconcile(ctx, request)
			Expect(err).NotTo(HaveOccurred())

			Expect(drainEvents(recorder)).To(HaveLen(1))
			updated := getPodCleaner(k8sClient)
			Expect(updated.Status.LastReconciled.Time.Equal(start)).To(BeTrue())
		})

		It("does not catch up for a spec that changed while it was down", func() {
			pc := newPodCleaner("*/5 * * * *")
			pc.Generation = 2
			pc.Status = shopvacv1.PodCleanerStatus{
				State:              shopvacv1.StateActive,
				LastReconciled:     ptr.To(metav1.NewTime(start.Add(-48 * time.Hour))),
				ObservedGeneration: 1,
			}
			k8sClient := newFakeClient(nil, append(scenarioPods(), pc)...)
			r, _, recorder := newTestReconciler(k8sClient, start)

			_, err := r.Reconcile(ctx, request)
			Expect(err).NotTo(HaveOccurred())

			Expect(remainingPods(k8sClient)).To(ConsistOf("a", "b", "c"))
			Expect(drainEvents(recorder)).To(BeEmpty())
			Expect(getPodCleaner(k8sClient).Status.State).To(Equal(shopvacv1.StateRegistered))
		})
	})

	Describe("Scenario: Pod listing fails during a pass", func() {
		It("marks the PodCleaner Failed, deletes nothing and keeps the schedule", func() {
			var failList atomic.Bool
			failList.Store(true)
			funcs := &interceptor.Funcs{
				List: func(ctx context.Context, c client.WithWatch, list client.ObjectList, opts ...client.ListOption) error {
					if _, ok := list.(*corev1.PodList); ok && failList.Load() {
						return apierrors.NewServiceUnavailable("etcd leader changed")
					}
					return c.List(ctx, list, opts...)
				},
			}
			k8sClient := newFakeClient(funcs, append(scenarioPods(), newPodCleaner("*/5 * * * *"))...)
			r, clk, recorder := newTestReconciler(k8sClient, start)

			_, err := r.Reconcile(ctx, request)
			Expect(err).NotTo(HaveOccurred())
			clk.Step(4 * time.Minute)

			result, err := r.Reconcile(ctx, request)
			Expect(err).NotTo(HaveOccurred())
			Expect(result.RequeueAfter).To(Equal(5 * time.Minute))

			pc := getPodCleaner(k8sClient)
			Expect(pc.Status.State).To(Equal(shopvacv1.StateFailed))
			Expect(pc.Status.Message).To(ContainSubstring("pod listing failed"))
			Expect(pc.Status.LastOutcome).To(BeNil())
			Expect(pc.Status.NextFireTime.Time.Equal(start.Add(9 * time.Minute))).To(BeTrue())

			entry, scheduled := r.Scheduler.Get(typeNamespacedName)
			Expect(scheduled).To(BeTrue())
			Expect(entry.Next().Equal(start.Add(9 * time.Minute))).To(BeTrue())

			events := drainEvents(recorder)
			Expect(events).To(HaveLen(1))
			Expect(events[0]).To(HavePrefix("Warning PassFailed"))

			failList.Store(false)
			Expect(remainingPods(k8sClient)).To(ConsistOf("a", "b", "c"))

			By("running the next scheduled pass once the API recovers")
			clk.Step(5 * time.Minute)
			_, err = r.Reconcile(ctx, request)
			Expect(err).NotTo(HaveOccurred())

			pc = getPodCleaner(k8sClient)
			Expect(pc.Status.State).To(Equal(shopvacv1.StateActive))
			Expect(pc.Status.Message).To(BeEmpty())
			Expect(remainingPods(k8sClient)).To(ConsistOf("b", "c"))
		})
	})

	Describe("Scenario: Deletions fail for some pods", func() {
		It("reports the failures in the outcome without failing the PodCleaner", func() {
			funcs := &interceptor.Funcs{
				Delete: func(ctx context.Context, c client.WithWatch, obj client.Object, opts ...client.DeleteOption) error {
					return apierrors.NewForbidden(schema.GroupResource{Resource: "pods"}, obj.GetName(), errors.New("denied"))
				},
			}
			k8sClient := newFakeClient(funcs, append(scenarioPods(), newPodCleaner("*/5 * * * *"))...)
			r, clk, _ := newTestReconciler(k8sClient, start)

			_, err := r.Reconcile(ctx, request)
			Expect(err).NotTo(HaveOccurred())
			clk.Step(4 * time.Minute)
			_, err = r.Reconcile(ctx, request)
			Expect(err).NotTo(HaveOccurred())

			pc := getPodCleaner(k8sClient)
			Expect(pc.Status.State).To(Equal(shopvacv1.StateActive))
			Expect(pc.Status.LastOutcome.Found).To(Equal(int32(1)))
			Expect(pc.Status.LastOutcome.Failed).To(Equal(int32(1)))
			Expect(pc.Status.LastOutcome.Failures).To(HaveLen(1))
			Expect(pc.Status.LastOutcome.Failures[0].Pod).To(Equal("ns1/a"))
			Expect(pc.Status.Message).To(ContainSubstring("ns1/a"))
		})
	})

	Describe("Scenario: PodCleaner is deleted", func() {
		It("removes the schedule", func() {
			k8sClient := newFakeClient(nil, newPodCleaner("*/5 * * * *"))
			r, clk, _ := newTestReconciler(k8sClient, start)

			_, err := r.Reconcile(ctx, request)
			Expect(err).NotTo(HaveOccurred())
			Expect(r.Scheduler.Len()).To(Equal(1))

			Expect(k8sClient.Delete(ctx, getPodCleaner(k8sClient))).To(Succeed())
			result, err := r.Reconcile(ctx, request)
			Expect(err).NotTo(HaveOccurred())
			Expect(result).To(Equal(reconcile.Result{}))
			Expect(r.Scheduler.Len()).To(Equal(0))

			clk.Step(10 * time.Minute)
			Consistently(r.Scheduler.Events(), 100*time.Millisecond).ShouldNot(Receive())
		})

		It("discards the outcome of a pass whose PodCleaner disappeared", func() {
			funcs := &interceptor.Funcs{
				SubResourcePatch: func(ctx context.Context, c client.Client, subResourceName string, obj client.Object, patch client.Patch, opts ...client.SubResourcePatchOption) error {
					return apierrors.NewNotFound(shopvacv1.GroupVersion.WithResource("podcleaners").GroupResource(), obj.GetName())
				},
			}
			k8sClient := newFakeClient(funcs, append(scenarioPods(), newPodCleaner("*/5 * * * *"))...)
			r, clk, _ := newTestReconciler(k8sClient, start)

			_, err := r.Reconcile(ctx, request)
			Expect(err).NotTo(HaveOccurred())
			clk.Step(4 * time.Minute)

			_, err = r.Reconcile(ctx, request)
			Expect(err).NotTo(HaveOccurred())
			Expect(remainingPods(k8sClient)).To(ConsistOf("b", "c"))
		})
	})

	Describe("Scenario: PodCleaner spec changes", func() {
		It("replaces the schedule entry instead of patching it", func() {
			k8sClient := newFakeClient(nil, newPodCleaner("*/5 * * * *"))
			r, _, _ := newTestReconciler(k8sClient, start)

			_, err := r.Reconcile(ctx, request)
			Expect(err).NotTo(HaveOccurred())
			before, _ := r.Scheduler.Get(typeNamespacedName)

			pc := getPodCleaner(k8sClient)
			pc.Spec.Schedule = "0 * * * *"
			pc.Generation = 2
			Expect(k8sClient.Update(ctx, pc)).To(Succeed())

			result, err := r.Reconcile(ctx, request)
			Expect(err).NotTo(HaveOccurred())
			Expect(result.RequeueAfter).To(Equal(59 * time.Minute))

			after, _ := r.Scheduler.Get(typeNamespacedName)
			Expect(after).NotTo(BeIdenticalTo(before))
			Expect(after.Fingerprint()).NotTo(Equal(before.Fingerprint()))
			Expect(after.Next().Equal(time.Date(2025, 6, 10, 11, 0, 0, 0, time.UTC))).To(BeTrue())
			Expect(getPodCleaner(k8sClient).Status.State).To(Equal(shopvacv1.StateRegistered))
		})

		It("re-registers a PodCleaner that failed listing when only its selector changes", func() {
			funcs := &interceptor.Funcs{
				List: func(ctx context.Context, c client.WithWatch, list client.ObjectList, opts ...client.ListOption) error {
					if _, ok := list.(*corev1.PodList); ok {
						return apierrors.NewServiceUnavailable("etcd leader changed")
					}
					return c.List(ctx, list, opts...)
				},
			}
			k8sClient := newFakeClient(funcs, newPodCleaner("*/5 * * * *"))
			r, clk, _ := newTestReconciler(k8sClient, start)

			_, err := r.Reconcile(ctx, request)
			Expect(err).NotTo(HaveOccurred())
			clk.Step(4 * time.Minute)
			_, err = r.Reconcile(ctx, request)
			Expect(err).NotTo(HaveOccurred())
			Expect(getPodCleaner(k8sClient).Status.State).To(Equal(shopvacv1.StateFailed))
			before, _ := r.Scheduler.Get(typeNamespacedName)

			By("changing only the label selector")
			pc := getPodCleaner(k8sClient)
			pc.Spec.LabelSelector = ptr.To("app=spark")
			pc.Generation = 2
			Expect(k8sClient.Update(ctx, pc)).To(Succeed())

			_, err = r.Reconcile(ctx, request)
			Expect(err).NotTo(HaveOccurred())

			after, scheduled := r.Scheduler.Get(typeNamespacedName)
			Expect(scheduled).To(BeTrue())
			Expect(after).NotTo(BeIdenticalTo(before))
			Expect(after.Fingerprint()).NotTo(Equal(before.Fingerprint()))

			updated := getPodCleaner(k8sClient)
			Expect(updated.Status.State).To(Equal(shopvacv1.StateRegistered))
			Expect(updated.Status.Message).To(BeEmpty())
			Expect(updated.Status.ObservedGeneration).To(Equal(int64(2)))
			Expect(meta.IsStatusConditionTrue(updated.Status.Conditions, shopvacv1.ConditionReady)).To(BeTrue())
		})

		It("applies a new max age on the next pass when only delete_older_than changes", func() {
			k8sClient := newFakeClient(nil, append(scenarioPods(), newPodCleaner("*/5 * * * *"))...)
			r, clk, _ := newTestReconciler(k8sClient, start)

			_, err := r.Reconcile(ctx, request)
			Expect(err).NotTo(HaveOccurred())
			before, _ := r.Scheduler.Get(typeNamespacedName)

			pc := getPodCleaner(k8sClient)
			pc.Spec.DeleteOlderThan = 0
			pc.Generation = 2
			Expect(k8sClient.Update(ctx, pc)).To(Succeed())

			_, err = r.Reconcile(ctx, request)
			Expect(err).NotTo(HaveOccurred())

			after, _ := r.Scheduler.Get(typeNamespacedName)
			Expect(after).NotTo(BeIdenticalTo(before))
			Expect(after.Fingerprint()).NotTo(Equal(before.Fingerprint()))
			Expect(getPodCleaner(k8sClient).Status.State).To(Equal(shopvacv1.StateRegistered))

			clk.Step(4 * time.Minute)
			_, err = r.Reconcile(ctx, request)
			Expect(err).NotTo(HaveOccurred())
			Expect(remainingPods(k8sClient)).To(ConsistOf("b"))
		})
	})

	Describe("Scenario: A pass runs past the next scheduled slot", func() {
		It("runs the overlapped fire right after the pass instead of dropping it", func() {
			var (
				clk      *clocktesting.FakeClock
				stepOnce sync.Once
			)
			funcs := &interceptor.Funcs{
				List: func(ctx context.Context, c client.WithWatch, list client.ObjectList, opts ...client.ListOption) error {
					if _, ok := list.(*corev1.PodList); ok {
						// the first pass takes six minutes
						stepOnce.Do(func() { clk.Step(6 * time.Minute) })
					}
					return c.List(ctx, list, opts...)
				},
			}
			k8sClient := newFakeClient(funcs, append(scenarioPods(), newPodCleaner("*/5 * * * *"))...)
			r, testClock, recorder := newTestReconciler(k8sClient, start)
			clk = testClock

			_, err := r.Reconcile(ctx, request)
			Expect(err).NotTo(HaveOccurred())
			clk.Step(4 * time.Minute)

			By("running the 10:05 pass until 10:11")
			_, err = r.Reconcile(ctx, request)
			Expect(err).NotTo(HaveOccurred())

			pc := getPodCleaner(k8sClient)
			Expect(pc.Status.LastReconciled.Time.Equal(start.Add(4 * time.Minute))).To(BeTrue())
			Expect(pc.Status.NextFireTime.Time.Equal(start.Add(10 * time.Minute))).To(BeTrue())

			entry, _ := r.Scheduler.Get(typeNamespacedName)
			Expect(entry.Due(clk.Now())).To(BeTrue())

			By("running the deferred 10:10 fire")
			result, err := r.Reconcile(ctx, request)
			Expect(err).NotTo(HaveOccurred())
			Expect(result.RequeueAfter).To(Equal(4 * time.Minute))

			pc = getPodCleaner(k8sClient)
			Expect(pc.Status.LastReconciled.Time.Equal(start.Add(10 * time.Minute))).To(BeTrue())
			Expect(pc.Status.NextFireTime.Time.Equal(start.Add(14 * time.Minute))).To(BeTrue())
			Expect(drainEvents(recorder)).To(HaveLen(2))
		})
	})
})
