package metrics

import (
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	. "github.com/smartystreets/goconvey/convey"
)

func TestManagerCreation(t *testing.T) {
	Convey("Given metrics manager creation", t, func() {
		Convey("When creating with default options", func() {
			registry := prometheus.NewRegistry()
			manager := NewManager(WithPrometheusRegistry(registry))

			Convey("Then it should be created successfully", func() {
				So(manager, ShouldNotBeNil)
			})
		})

		Convey("When creating with custom options", func() {
			registry := prometheus.NewRegistry()
			manager := NewManager(
				WithNamespace("test-namespace"),
				WithSubsystem("test-subsystem"),
				WithMetricPrefix("test-prefix"),
				WithHistogramBuckets([]float64{0.1, 0.5, 1.0}),
				WithMetricsEnabled(true),
				WithRefreshInterval(10*time.Second),
				WithCustomLabels(map[string]string{"env": "test"}),
				WithPrometheusRegistry(registry),
			)

			Convey("Then it should be created successfully", func() {
				So(manager, ShouldNotBeNil)
			})
		})

		Convey("When creating with empty option values", func() {
			registry := prometheus.NewRegistry()
			manager := NewManager(
				WithNamespace(""),
				WithSubsystem(""),
				WithHistogramBuckets(nil),
				WithCustomLabels(nil),
				WithRefreshInterval(0),
				WithPrometheusRegistry(registry),
			)

			Convey("Then defaults survive and it is created successfully", func() {
				So(manager, ShouldNotBeNil)
			})
		})
	})
}

func TestDecisionPathRecording(t *testing.T) {
	Convey("Given decision path metrics", t, func() {
		Convey("Then outcome counters should record without panicking", func() {
			So(func() {
				RecordDecision("approve")
				RecordDecision("deny")
				RecordDecision("review")
			}, ShouldNotPanic)
		})

		Convey("And degradation counters should record", func() {
			So(func() {
				RecordDecisionDuplicate()
				RecordDecisionFallback()
				RecordDecisionDegraded()
				RecordDecisionError()
				RecordOracleFailure()
			}, ShouldNotPanic)
		})

		Convey("And latency histograms should observe", func() {
			So(func() {
				RecordDecisionLatency(120.0)
				RecordFeatureFetchLatency(8.0)
				RecordOracleLatency(45.0)
			}, ShouldNotPanic)
		})
	})
}

func TestCaseLifecycleRecording(t *testing.T) {
	Convey("Given case lifecycle metrics", t, func() {
		Convey("Then transition counters should record", func() {
			So(func() {
				RecordCaseOpened()
				RecordCaseTransition("intake", "enriched")
				RecordCaseTransition("assigned", "escalated")
				RecordCaseResolved("fraud")
				RecordCaseResolved("legitimate")
			}, ShouldNotPanic)
		})

		Convey("And escalation counters should record", func() {
			So(func() {
				RecordSLABreach()
				RecordEscalation()
				RecordSeniorRouting()
				RecordStaleTimerFire()
			}, ShouldNotPanic)
		})

		Convey("And gauges should accept any count", func() {
			So(func() {
				UpdateOpenCases(0)
				UpdateOpenCases(50000)
				UpdateArchivedCases(12)
				UpdateReviewQueueDepth(300)
			}, ShouldNotPanic)
		})
	})
}

func TestFeedbackAndMonitorRecording(t *testing.T) {
	Convey("Given feedback and monitor metrics", t, func() {
		Convey("Then feedback counters should record", func() {
			So(func() {
				RecordFeedbackPublished()
				RecordFeedbackDuplicate()
				RecordFeedbackRetry()
				RecordFeedbackDeadLettered()
			}, ShouldNotPanic)
		})

		Convey("And monitor gauges should update", func() {
			So(func() {
				UpdateDriftScore(0.18)
				UpdateWindowLatencyPercentiles(180.0, 240.0)
				RecordMonitorWindow()
				RecordAlert("drift", "warning")
				RecordAlert("latency", "critical")
			}, ShouldNotPanic)
		})
	})
}

func TestQueueAndWorkerRecording(t *testing.T) {
	Convey("Given queue and worker metrics", t, func() {
		Convey("Then per-topic queue metrics should record", func() {
			So(func() {
				UpdateQueueSize("decisions", 1000)
				UpdateQueueCapacity("decisions", 100000)
				RecordQueueEnqueue("decisions")
				RecordQueueDequeue("decisions")
				RecordQueueEnqueueError("decisions", "queue_full")
				RecordQueueEnqueueError("feedback", "closed")
			}, ShouldNotPanic)
		})

		Convey("And worker metrics should record", func() {
			So(func() {
				UpdateWorkerActiveCount(8)
				RecordWorkerProcessingLatency(15.0)
				RecordWorkerError()
			}, ShouldNotPanic)
		})
	})
}

func TestRepositoryAndSystemRecording(t *testing.T) {
	Convey("Given repository and system metrics", t, func() {
		Convey("Then repository metrics should record", func() {
			So(func() {
				UpdateRepositoryRecordsTotal(250000)
				RecordRepositoryUpdateLatency(3.0)
				RecordRepositoryQueryLatency(1.0)
				RecordRepositorySnapshotRebuildDuration(12.0)
				UpdateRepositorySnapshotLastUnix(1.7e9)
				IncrementRepositorySnapshotCount()
				UpdateRepositorySnapshotLastDurationMs(12.0)
			}, ShouldNotPanic)
		})

		Convey("And HTTP and error metrics should record", func() {
			So(func() {
				RecordHTTPRequest("/decisions", "POST", "201")
				RecordHTTPRequestDuration("/decisions", "POST", "201", 12.0)
				RecordErrorByComponent("oracle", "timeout")
				RecordErrorByType("timeout", "error")
				RecordErrorByEndpoint("/decisions", "POST", "timeout")
				RecordErrorLatency("oracle", "timeout", 150.0)
			}, ShouldNotPanic)
		})

		Convey("And system metrics should record", func() {
			So(func() {
				UpdateSystemMemoryUsage(1024 * 1024 * 100)
				UpdateSystemGoroutineCount(200)
				RecordSystemGCPauseTime(1.5)
			}, ShouldNotPanic)
		})
	})
}

func TestConcurrentRecording(t *testing.T) {
	Convey("Given concurrent metric recording", t, func() {
		done := make(chan bool, 10)

		for i := 0; i < 10; i++ {
			go func() {
				for j := 0; j < 100; j++ {
					RecordDecision("review")
					UpdateQueueSize("decisions", j)
					RecordDecisionLatency(float64(j))
					RecordHTTPRequest("/decisions", "POST", "201")
				}
				done <- true
			}()
		}

		for i := 0; i < 10; i++ {
			<-done
		}

		Convey("Then all goroutines finish without panics", func() {
			So(true, ShouldBeTrue)
		})
	})
}

func TestRegistryExposure(t *testing.T) {
	Convey("Given the shared registry", t, func() {
		Convey("Then it should be non-nil and gatherable", func() {
			reg := GetRegistry()
			So(reg, ShouldNotBeNil)

			families, err := reg.Gather()
			So(err, ShouldBeNil)
			So(len(families), ShouldBeGreaterThan, 0)
		})
	})
}
