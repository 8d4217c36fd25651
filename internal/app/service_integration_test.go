package service

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	. "github.com/smartystreets/goconvey/convey"

	"github.com/okian/vigil/internal/config"
	"github.com/okian/vigil/internal/domain/model"
)

func TestPipelineUnderConcurrentLoad(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping pipeline load test in short mode")
	}

	Convey("Given a running service with an analyst rotation", t, func() {
		cfg := testConfig()
		cfg.DispatchWorkerCount = 8
		svc, stop := newTestService(t, cfg, WithOracle(hintOracle{}))
		defer stop()
		ctx := context.Background()

		Convey("When many transactions are decided concurrently", func() {
			const (
				perBand = 40
				total   = perBand * 3
			)

			var wg sync.WaitGroup
			wg.Add(total)
			submit := func(id string, hint float64) {
				defer wg.Done()
				svc.Decide(ctx, txnWithHint(id, hint))
			}
			for i := 0; i < perBand; i++ {
				go submit(fmt.Sprintf("load-approve-%d", i), 0.1)
				go submit(fmt.Sprintf("load-deny-%d", i), 0.9)
				go submit(fmt.Sprintf("load-review-%d", i), 0.5)
			}
			wg.Wait()

			Convey("Every transaction gets exactly one decision", func() {
				So(svc.decisionLog.Count(ctx), ShouldEqual, total)
			})

			Convey("A case opens for each review decision and none other", func() {
				ok := waitFor(t, 5*time.Second, func() bool {
					return svc.caseStore.OpenCount(ctx) == perBand
				})
				So(ok, ShouldBeTrue)
				So(svc.rq.Len(ctx), ShouldEqual, perBand)

				Convey("And every case was auto-assigned from the rotation", func() {
					ok := waitFor(t, 5*time.Second, func() bool {
						entries, err := svc.QueueTop(ctx, perBand)
						if err != nil {
							return false
						}
						for _, e := range entries {
							if e.Status != model.StatusAssigned {
								return false
							}
						}
						return len(entries) == perBand
					})
					So(ok, ShouldBeTrue)
				})

				Convey("When analysts resolve every case", func() {
					entries, err := svc.QueueTop(ctx, perBand)
					So(err, ShouldBeNil)

					for i, e := range entries {
						c, gerr := svc.GetCase(ctx, e.CaseID)
						So(gerr, ShouldBeNil)

						_, rerr := svc.StartReview(ctx, c.CaseID, c.Assignee, "")
						So(rerr, ShouldBeNil)

						label := model.LabelLegitimate
						if i%2 == 0 {
							label = model.LabelFraud
						}
						resolved, serr := svc.ResolveCase(ctx, c.CaseID, label, c.Assignee, "")
						So(serr, ShouldBeNil)
						So(resolved.Status.Terminal(), ShouldBeTrue)
					}

					Convey("The queue empties and feedback flows exactly once per case", func() {
						So(svc.rq.Len(ctx), ShouldEqual, 0)
						So(svc.caseStore.OpenCount(ctx), ShouldEqual, 0)
						So(svc.caseStore.ArchivedCount(ctx), ShouldEqual, perBand)

						ok := waitFor(t, 5*time.Second, func() bool {
							return svc.feedbackCount.Load() == int64(perBand)
						})
						So(ok, ShouldBeTrue)
						So(svc.deadLetter.Len(ctx), ShouldEqual, 0)
					})
				})
			})
		})
	})
}

func TestServiceStopDrainsCleanly(t *testing.T) {
	Convey("Given a running service with queued work", t, func() {
		ctx, cancel := context.WithCancel(context.Background())
		defer cancel()
		svc := New(ctx, config.NewStore(testConfig()), WithOracle(hintOracle{}))
		svc.Start()

		for i := 0; i < 20; i++ {
			svc.Decide(context.Background(), txnWithHint(fmt.Sprintf("drain-%d", i), 0.5))
		}

		Convey("Stop returns without hanging and workers finish in-flight events", func() {
			stopCtx, stopCancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer stopCancel()

			So(svc.Stop(stopCtx), ShouldBeNil)
			So(svc.bus.IsClosed(), ShouldBeTrue)
		})
	})
}
