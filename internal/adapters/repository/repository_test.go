package repository

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	. "github.com/smartystreets/goconvey/convey"

	"github.com/okian/vigil/internal/domain/model"
)

func newCase(caseID, txnID string, p model.Priority, deadline time.Time) model.Case {
	return model.Case{
		CaseID:        caseID,
		TransactionID: txnID,
		Status:        model.StatusIntake,
		Priority:      p,
		SLADeadline:   deadline,
		OpenedAt:      time.Now(),
		UpdatedAt:     time.Now(),
	}
}

func TestMemCaseStore(t *testing.T) {
	ctx := context.Background()

	Convey("Given an empty case store", t, func() {
		store := NewMemCaseStore()

		Convey("When a case is created", func() {
			c := newCase("case-1", "txn-1", model.PriorityP2, time.Now().Add(time.Hour))
			err := store.Create(ctx, c)

			Convey("Then it should be retrievable by id and by transaction", func() {
				So(err, ShouldBeNil)

				got, err := store.Get(ctx, "case-1")
				So(err, ShouldBeNil)
				So(got.TransactionID, ShouldEqual, "txn-1")

				open, ok := store.OpenByTransaction(ctx, "txn-1")
				So(ok, ShouldBeTrue)
				So(open.CaseID, ShouldEqual, "case-1")
				So(store.OpenCount(ctx), ShouldEqual, 1)
			})

			Convey("Then a second open case for the same transaction should be rejected", func() {
				So(err, ShouldBeNil)

				dup := newCase("case-2", "txn-1", model.PriorityP3, time.Now().Add(time.Hour))
				So(store.Create(ctx, dup), ShouldWrap, ErrDuplicateCase)
				So(store.OpenCount(ctx), ShouldEqual, 1)
			})
		})

		Convey("When an unknown case is fetched", func() {
			_, err := store.Get(ctx, "missing")

			Convey("Then it should report not found", func() {
				So(err, ShouldWrap, ErrCaseNotFound)
			})
		})

		Convey("When a case is updated", func() {
			c := newCase("case-1", "txn-1", model.PriorityP2, time.Now().Add(time.Hour))
			So(store.Create(ctx, c), ShouldBeNil)

			c.Status = model.StatusAssigned
			c.Assignee = "analyst-1"
			err := store.Update(ctx, c)

			Convey("Then the new snapshot should be visible", func() {
				So(err, ShouldBeNil)

				got, err := store.Get(ctx, "case-1")
				So(err, ShouldBeNil)
				So(got.Status, ShouldEqual, model.StatusAssigned)
				So(got.Assignee, ShouldEqual, "analyst-1")
			})
		})

		Convey("When a case is archived", func() {
			c := newCase("case-1", "txn-1", model.PriorityP2, time.Now().Add(time.Hour))
			So(store.Create(ctx, c), ShouldBeNil)

			c.Status = model.StatusResolvedFraud
			err := store.Archive(ctx, c)

			Convey("Then it should leave the open set but stay readable", func() {
				So(err, ShouldBeNil)
				So(store.OpenCount(ctx), ShouldEqual, 0)
				So(store.ArchivedCount(ctx), ShouldEqual, 1)

				got, err := store.Get(ctx, "case-1")
				So(err, ShouldBeNil)
				So(got.Status, ShouldEqual, model.StatusResolvedFraud)
			})

			Convey("Then the transaction should accept a new open case", func() {
				So(err, ShouldBeNil)

				_, ok := store.OpenByTransaction(ctx, "txn-1")
				So(ok, ShouldBeFalse)

				reopened := newCase("case-2", "txn-1", model.PriorityP1, time.Now().Add(time.Hour))
				So(store.Create(ctx, reopened), ShouldBeNil)
			})

			Convey("Then updating the archived case should fail", func() {
				So(err, ShouldBeNil)
				So(store.Update(ctx, c), ShouldWrap, ErrCaseArchived)
				So(store.Archive(ctx, c), ShouldWrap, ErrCaseArchived)
			})
		})

		Convey("When a case is archived from many goroutines at once", func() {
			c := newCase("case-1", "txn-1", model.PriorityP2, time.Now().Add(time.Hour))
			So(store.Create(ctx, c), ShouldBeNil)
			c.Status = model.StatusResolvedLegitimate

			const attempts = 16
			errs := make(chan error, attempts)
			var wg sync.WaitGroup
			for i := 0; i < attempts; i++ {
				wg.Add(1)
				go func() {
					defer wg.Done()
					errs <- store.Archive(ctx, c)
				}()
			}
			wg.Wait()
			close(errs)

			Convey("Then exactly one archive should win and the rest see it archived", func() {
				won, alreadyArchived := 0, 0
				for err := range errs {
					switch {
					case err == nil:
						won++
					case errors.Is(err, ErrCaseArchived):
						alreadyArchived++
					}
				}
				So(won, ShouldEqual, 1)
				So(alreadyArchived, ShouldEqual, attempts-1)
				So(store.OpenCount(ctx), ShouldEqual, 0)
				So(store.ArchivedCount(ctx), ShouldEqual, 1)
			})
		})

		Convey("When many cases spread across shards", func() {
			const total = 200
			for i := 0; i < total; i++ {
				c := newCase(
					fmt.Sprintf("case-%03d", i),
					fmt.Sprintf("txn-%03d", i),
					model.PriorityP3,
					time.Now().Add(time.Hour),
				)
				So(store.Create(ctx, c), ShouldBeNil)
			}

			Convey("Then every case should remain addressable", func() {
				So(store.OpenCount(ctx), ShouldEqual, total)
				for i := 0; i < total; i++ {
					got, err := store.Get(ctx, fmt.Sprintf("case-%03d", i))
					So(err, ShouldBeNil)
					So(got.TransactionID, ShouldEqual, fmt.Sprintf("txn-%03d", i))
				}
			})
		})
	})
}

func TestMemDecisionLog(t *testing.T) {
	ctx := context.Background()

	Convey("Given an empty decision log", t, func() {
		log := NewMemDecisionLog()

		Convey("When a decision is recorded twice for one transaction", func() {
			first := model.Decision{TransactionID: "txn-1", Score: 0.55, Outcome: model.OutcomeReview}
			second := model.Decision{TransactionID: "txn-1", Score: 0.91, Outcome: model.OutcomeDeny}

			stored1, created1 := log.Record(ctx, first)
			stored2, created2 := log.Record(ctx, second)

			Convey("Then the first record should win and the second should replay it", func() {
				So(created1, ShouldBeTrue)
				So(created2, ShouldBeFalse)
				So(stored1.Outcome, ShouldEqual, model.OutcomeReview)
				So(stored2.Outcome, ShouldEqual, model.OutcomeReview)
				So(stored2.Score, ShouldEqual, 0.55)
				So(log.Count(ctx), ShouldEqual, 1)
			})
		})

		Convey("When decisions for distinct transactions are recorded", func() {
			for i := 0; i < 5; i++ {
				_, created := log.Record(ctx, model.Decision{
					TransactionID: fmt.Sprintf("txn-%d", i),
					Outcome:       model.OutcomeApprove,
				})
				So(created, ShouldBeTrue)
			}

			Convey("Then lookups and recency order should match", func() {
				So(log.Count(ctx), ShouldEqual, 5)

				d, ok := log.Get(ctx, "txn-3")
				So(ok, ShouldBeTrue)
				So(d.Outcome, ShouldEqual, model.OutcomeApprove)

				recent := log.Recent(ctx, 2)
				So(recent, ShouldResemble, []string{"txn-4", "txn-3"})
			})
		})

		Convey("When an unknown transaction is looked up", func() {
			_, ok := log.Get(ctx, "missing")

			Convey("Then it should report absence", func() {
				So(ok, ShouldBeFalse)
			})
		})
	})
}

func TestReviewQueue(t *testing.T) {
	ctx := context.Background()
	base := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

	entry := func(caseID string, p model.Priority, deadline time.Time) QueueEntry {
		return QueueEntry{
			CaseID:      caseID,
			Priority:    p,
			SLADeadline: deadline,
			Status:      model.StatusIntake,
		}
	}

	Convey("Given a review queue", t, func() {
		q := NewReviewQueue(ctx, WithSnapshotInterval(10*time.Millisecond))
		defer func() { So(q.Close(), ShouldBeNil) }()

		Convey("When cases with mixed priorities and deadlines are queued", func() {
			q.Upsert(ctx, entry("case-b", model.PriorityP2, base.Add(time.Hour)))
			q.Upsert(ctx, entry("case-a", model.PriorityP1, base.Add(2*time.Hour)))
			q.Upsert(ctx, entry("case-c", model.PriorityP1, base.Add(time.Hour)))
			q.Upsert(ctx, entry("case-d", model.PriorityP4, base.Add(time.Minute)))

			Convey("Then TopN should order by tier first, deadline second", func() {
				got, err := q.TopN(ctx, 10)
				So(err, ShouldBeNil)

				ids := make([]string, len(got))
				for i, e := range got {
					ids[i] = e.CaseID
				}
				So(ids, ShouldResemble, []string{"case-c", "case-a", "case-b", "case-d"})
				So(got[0].Rank, ShouldEqual, 1)
				So(got[3].Rank, ShouldEqual, 4)
			})

			Convey("Then TopN should honor the limit", func() {
				got, err := q.TopN(ctx, 2)
				So(err, ShouldBeNil)
				So(len(got), ShouldEqual, 2)
				So(got[0].CaseID, ShouldEqual, "case-c")
				So(got[1].CaseID, ShouldEqual, "case-a")
			})

			Convey("Then Peek should return the most urgent case", func() {
				top, ok := q.Peek(ctx)
				So(ok, ShouldBeTrue)
				So(top.CaseID, ShouldEqual, "case-c")
			})
		})

		Convey("When deadlines tie", func() {
			q.Upsert(ctx, entry("case-z", model.PriorityP2, base))
			q.Upsert(ctx, entry("case-a", model.PriorityP2, base))

			Convey("Then case id should break the tie deterministically", func() {
				got, err := q.TopN(ctx, 10)
				So(err, ShouldBeNil)
				So(got[0].CaseID, ShouldEqual, "case-a")
				So(got[1].CaseID, ShouldEqual, "case-z")
			})
		})

		Convey("When an escalation re-positions a case", func() {
			q.Upsert(ctx, entry("case-a", model.PriorityP3, base.Add(time.Hour)))
			q.Upsert(ctx, entry("case-b", model.PriorityP2, base.Add(time.Hour)))
			q.Upsert(ctx, entry("case-a", model.PriorityP1, base.Add(30*time.Minute)))

			Convey("Then the case should surface under its new key only", func() {
				So(q.Len(ctx), ShouldEqual, 2)

				got, err := q.TopN(ctx, 10)
				So(err, ShouldBeNil)
				So(got[0].CaseID, ShouldEqual, "case-a")
				So(got[0].Priority, ShouldEqual, model.PriorityP1)
				So(got[1].CaseID, ShouldEqual, "case-b")
			})
		})

		Convey("When a case is removed", func() {
			q.Upsert(ctx, entry("case-a", model.PriorityP1, base))
			q.Upsert(ctx, entry("case-b", model.PriorityP2, base))
			q.Remove(ctx, "case-a")
			q.Remove(ctx, "case-a") // second removal is a noop

			Convey("Then it should no longer appear", func() {
				So(q.Len(ctx), ShouldEqual, 1)

				got, err := q.TopN(ctx, 10)
				So(err, ShouldBeNil)
				So(len(got), ShouldEqual, 1)
				So(got[0].CaseID, ShouldEqual, "case-b")
			})
		})

		Convey("When TopN is called with an invalid limit", func() {
			_, err := q.TopN(ctx, 0)

			Convey("Then it should reject the request", func() {
				So(err, ShouldWrap, ErrInvalidLimit)
			})
		})

		Convey("When the snapshot interval elapses", func() {
			q.Upsert(ctx, entry("case-a", model.PriorityP1, base))
			q.Upsert(ctx, entry("case-b", model.PriorityP2, base))
			time.Sleep(50 * time.Millisecond)

			Convey("Then the published snapshot should reflect the queue", func() {
				snap := q.Snapshot()
				So(snap, ShouldNotBeNil)
				So(len(snap.Entries), ShouldEqual, 2)
				So(snap.Entries[0].CaseID, ShouldEqual, "case-a")
			})
		})

		Convey("When many cases are queued", func() {
			const total = 500
			for i := 0; i < total; i++ {
				p := model.Priority(1 + i%4)
				q.Upsert(ctx, entry(fmt.Sprintf("case-%04d", i), p, base.Add(time.Duration(i)*time.Minute)))
			}

			Convey("Then ordering should hold across the whole queue", func() {
				got, err := q.TopN(ctx, total)
				So(err, ShouldBeNil)
				So(len(got), ShouldEqual, total)
				for i := 1; i < len(got); i++ {
					prev, cur := got[i-1], got[i]
					ordered := prev.Priority < cur.Priority ||
						(prev.Priority == cur.Priority && !prev.SLADeadline.After(cur.SLADeadline))
					So(ordered, ShouldBeTrue)
				}
			})
		})
	})
}
