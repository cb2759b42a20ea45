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
	"github.com/prometheus/client_golang/prometheus"
	"sigs.k8s.io/controller-runtime/pkg/metrics"
)

const (
	resultSucceeded  = "succeeded"
	resultPartial    = "partial"
	resultListFailed = "list_failed"
)

var (
	passesTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "shopvac_cleanup_passes_total",
			Help: "Number of cleanup passes run, by result.",
		},
		[]string{"namespace", "result"},
	)

	podsDeletedTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "shopvac_pods_deleted_total",
			Help: "Number of pods removed by cleanup passes, including pods that were already gone.",
		},
		[]string{"namespace"},
	)

	podFailuresTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "shopvac_pod_failures_total",
			Help: "Number of pods that could not be evaluated or deleted.",
		},
		[]string{"namespace"},
	)

	passDuration = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "shopvac_cleanup_pass_duration_seconds",
			Help:    "Duration of cleanup passes.",
			Buckets: prometheus.ExponentialBuckets(0.05, 2, 12),
		},
	)

	registeredSchedules = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "shopvac_registered_schedules",
			Help: "Number of PodCleaners with an active schedule.",
		},
	)

	invalidSpecsTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "shopvac_invalid_specs_total",
			Help: "Number of times a PodCleaner was rejected for an invalid schedule or selector.",
		},
	)
)

func init() {
	metrics.Registry.MustRegister(
		passesTotal,
		podsDeletedTotal,
		podFailuresTotal,
		passDuration,
		registeredSchedules,
		invalidSpecsTotal,
	)
}
