package metrics

import (
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	. "github.com/smartystreets/goconvey/convey"
)

func TestMetricsManagerCreation(t *testing.T) {
	Convey("Given metrics manager creation", t, func() {
		Convey("When creating with a private registry and custom options", func() {
			registry := prometheus.NewRegistry()
			manager := NewManager(
				WithNamespace("test"),
				WithSubsystem("unit"),
				WithHistogramBuckets([]float64{1, 10, 100}),
				WithConstLabels(map[string]string{"dataset": "fifa"}),
				WithPrometheusRegistry(registry),
			)

			Convey("Then collectors are registered under the namespace", func() {
				So(manager, ShouldNotBeNil)
				manager.compositions.WithLabelValues("done").Inc()
				families, err := registry.Gather()
				So(err, ShouldBeNil)
				names := make([]string, 0, len(families))
				for _, f := range families {
					names = append(names, f.GetName())
				}
				So(names, ShouldContain, "test_unit_compositions_total")
				So(testutil.ToFloat64(manager.compositions.WithLabelValues("done")), ShouldEqual, 1)
			})
		})
	})
}

func TestMetricsRecording(t *testing.T) {
	Convey("Given the global metrics helpers", t, func() {
		Convey("When recording composition outcomes", func() {
			before := testutil.ToFloat64(globalManager.compositions.WithLabelValues("budget_unattainable"))
			RecordComposition("budget_unattainable", 12)
			RecordPruneDeadlock()
			RecordPruneIterations(3)

			Convey("Then the outcome counter moves by one", func() {
				after := testutil.ToFloat64(globalManager.compositions.WithLabelValues("budget_unattainable"))
				So(after-before, ShouldEqual, 1)
			})
		})

		Convey("When updating gauges", func() {
			UpdateTeam(7.25, 81.5)
			RecordGraphBuild("defense", 40, 120, 3400)
			UpdateQueueSize(5)
			UpdateWorkerCount(4)
			UpdateStoredCompositions("done", 9)

			Convey("Then gauges hold the last value", func() {
				So(testutil.ToFloat64(globalManager.teamCost), ShouldEqual, 7.25)
				So(testutil.ToFloat64(globalManager.teamMeanAbility), ShouldEqual, 81.5)
				So(testutil.ToFloat64(globalManager.graphEdges.WithLabelValues("defense")), ShouldEqual, 3400)
				So(testutil.ToFloat64(globalManager.queueSize), ShouldEqual, 5)
				So(testutil.ToFloat64(globalManager.workerCount), ShouldEqual, 4)
				So(testutil.ToFloat64(globalManager.storedResults.WithLabelValues("done")), ShouldEqual, 9)
			})
		})

		Convey("When recording request and HTTP metrics", func() {
			So(func() {
				RecordEnqueue("accepted")
				RecordEnqueue("full")
				RecordRequestDuplicate()
				RecordSelectionCandidates("attack", 17)
				RecordHTTPRequest("compositions", "POST", "202", 3)
				UpdateSystem(1<<20, 12)
			}, ShouldNotPanic)
		})

		Convey("When gathering the custom registry", func() {
			families, err := GetRegistry().Gather()

			Convey("Then it exposes the squad namespace", func() {
				So(err, ShouldBeNil)
				So(len(families), ShouldBeGreaterThan, 0)
				So(families[0].GetName(), ShouldStartWith, "squad_")
			})
		})
	})
}
