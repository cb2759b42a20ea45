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
	"testing"
	"time"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
	"golang.org/x/sync/semaphore"
	"k8s.io/apimachinery/pkg/runtime"
	clientgoscheme "k8s.io/client-go/kubernetes/scheme"
	"k8s.io/client-go/tools/record"
	clocktesting "k8s.io/utils/clock/testing"
	"sigs.k8s.io/controller-runtime/pkg/client"
	"sigs.k8s.io/controller-runtime/pkg/client/fake"
	"sigs.k8s.io/controller-runtime/pkg/client/interceptor"
	logf "sigs.k8s.io/controller-runtime/pkg/log"
	"sigs.k8s.io/controller-runtime/pkg/log/zap"

	shopvacv1 "github.com/wseaton/shopvac/api/v1"
	"github.com/wseaton/shopvac/internal/candidate"
	"github.com/wseaton/shopvac/internal/cleanup"
	"github.com/wseaton/shopvac/internal/deletion"
	"github.com/wseaton/shopvac/internal/schedule"
)

var testScheme *runtime.Scheme

func TestControllers(t *testing.T) {
	RegisterFailHandler(Fail)
	RunSpecs(t, "Controller Suite")
}

var _ = BeforeSuite(func() {
	logf.SetLogger(zap.New(zap.WriteTo(GinkgoWriter), zap.UseDevMode(true)))

	testScheme = runtime.NewScheme()
	Expect(clientgoscheme.AddToScheme(testScheme)).To(Succeed())
	Expect(shopvacv1.AddToScheme(testScheme)).To(Succeed())
})

// newFakeClient builds a client holding objs, with the PodCleaner status
// subresource enabled. funcs may be nil.
func newFakeClient(funcs *interceptor.Funcs, objs ...client.Object) client.Client {
	b := fake.NewClientBuilder().
		WithScheme(testScheme).
		WithStatusSubresource(&shopvacv1.PodCleaner{}).
		WithObjects(objs...)
	if funcs != nil {
		b = b.WithInterceptorFuncs(*funcs)
	}
	return b.Build()
}

// newTestReconciler wires a reconciler the way cmd/controller does, on a
// fake clock starting at start.
func newTestReconciler(c client.Client, start time.Time) (*PodCleanerReconciler, *clocktesting.FakeClock, *record.FakeRecorder) {
	clk := clocktesting.NewFakeClock(start)
	recorder := record.NewFakeRecorder(100)

	executor := deletion.NewExecutor(c, semaphore.NewWeighted(deletion.DefaultConcurrency),
		deletion.WithRetry(deletion.RetryConfig{
			MaxAttempts:    3,
			InitialBackoff: time.Millisecond,
			MaxBackoff:     5 * time.Millisecond,
			BackoffFactor:  2,
		}))
	runner := cleanup.NewRunner(candidate.NewResolver(c, candidate.DefaultPageSize), executor, cleanup.WithClock(clk))

	return &PodCleanerReconciler{
		Client:    c,
		Scheme:    testScheme,
		Recorder:  recorder,
		Scheduler: schedule.NewScheduler(schedule.WithClock(clk)),
		Runner:    runner,
		Clock:     clk,
	}, clk, recorder
}

// drainEvents returns every event recorded so far.
func drainEvents(recorder *record.FakeRecorder) []string {
	var events []string
	for {
		select {
		case e := <-recorder.Events:
			events = append(events, e)
		default:
			return events
		}
	}
}
