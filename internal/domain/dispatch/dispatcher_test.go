package dispatch

import (
	"context"
	"testing"
	"time"

	. "github.com/smartystreets/goconvey/convey"

	"github.com/okian/vigil/internal/adapters/mq/queue"
	"github.com/okian/vigil/internal/adapters/repository"
	"github.com/okian/vigil/internal/config"
	"github.com/okian/vigil/internal/domain/caseflow"
	"github.com/okian/vigil/internal/domain/model"
	"github.com/okian/vigil/pkg/logger"
)

func init() {
	if err := logger.Init(); err != nil {
		panic(err)
	}
}

type dispatchFixture struct {
	cfg        *config.Store
	store      *repository.MemCaseStore
	rq         *repository.ReviewQueue
	machine    *caseflow.Machine
	dispatcher *Dispatcher
}

func newDispatchFixture(ctx context.Context) *dispatchFixture {
	cfg := config.New()
	cfg.CaseShardCount = 4

	f := &dispatchFixture{
		cfg:   config.NewStore(cfg),
		store: repository.NewMemCaseStore(),
		rq:    repository.NewReviewQueue(ctx),
	}
	topic := queue.NewInMemory[model.Case]("cases-test")
	f.machine = caseflow.NewMachine(ctx, f.cfg, f.store, f.rq, topic, logger.Get())
	f.dispatcher = NewDispatcher(f.cfg, f.store, f.machine, logger.Get())
	return f
}

func (f *dispatchFixture) close() {
	_ = f.machine.Close()
	_ = f.rq.Close()
}

func reviewEvent(txnID string, score float64) model.DecisionEvent {
	return model.DecisionEvent{
		Decision: model.Decision{
			TransactionID: txnID,
			Score:         score,
			Outcome:       model.OutcomeReview,
			DecidedAt:     time.Now().UTC(),
		},
		Transaction: model.Transaction{
			ID:        txnID,
			AccountID: "acct-1",
			Amount:    250,
			Currency:  "USD",
		},
	}
}

func TestDispatcher(t *testing.T) {
	ctx := context.Background()

	Convey("Given a dispatcher", t, func() {
		f := newDispatchFixture(ctx)
		defer f.close()

		Convey("When a review decision is dispatched", func() {
			c, opened, err := f.dispatcher.Dispatch(ctx, reviewEvent("txn-1", 0.55))

			Convey("Then a case should open and enrich", func() {
				So(err, ShouldBeNil)
				So(opened, ShouldBeTrue)
				So(c.CaseID, ShouldNotBeEmpty)
				So(c.TransactionID, ShouldEqual, "txn-1")
				So(c.Status, ShouldEqual, model.StatusEnriched)
				So(c.SLADeadline.After(time.Now()), ShouldBeTrue)
				So(f.store.OpenCount(ctx), ShouldEqual, 1)
				So(f.rq.Len(ctx), ShouldEqual, 1)
			})
		})

		Convey("When a non-review decision is dispatched", func() {
			ev := reviewEvent("txn-2", 0.1)
			ev.Decision.Outcome = model.OutcomeApprove
			_, opened, err := f.dispatcher.Dispatch(ctx, ev)

			Convey("Then no case should open", func() {
				So(err, ShouldBeNil)
				So(opened, ShouldBeFalse)
				So(f.store.OpenCount(ctx), ShouldEqual, 0)
			})
		})

		Convey("When the same transaction is dispatched twice", func() {
			first, opened, err := f.dispatcher.Dispatch(ctx, reviewEvent("txn-3", 0.6))
			So(err, ShouldBeNil)
			So(opened, ShouldBeTrue)

			second, openedAgain, err := f.dispatcher.Dispatch(ctx, reviewEvent("txn-3", 0.6))

			Convey("Then the second dispatch should return the existing case", func() {
				So(err, ShouldBeNil)
				So(openedAgain, ShouldBeFalse)
				So(second.CaseID, ShouldEqual, first.CaseID)
				So(f.store.OpenCount(ctx), ShouldEqual, 1)
			})
		})
	})
}

func TestBandPriority(t *testing.T) {
	Convey("Given the default review band", t, func() {
		cfg := config.New() // band [0.3, 0.8]

		ev := func(score float64) model.DecisionEvent {
			return model.DecisionEvent{Decision: model.Decision{Score: score, Outcome: model.OutcomeReview}}
		}

		Convey("Then scores should map quartile by quartile", func() {
			So(bandPriority(cfg, ev(0.31)), ShouldEqual, model.PriorityP4)
			So(bandPriority(cfg, ev(0.45)), ShouldEqual, model.PriorityP3)
			So(bandPriority(cfg, ev(0.56)), ShouldEqual, model.PriorityP2)
			So(bandPriority(cfg, ev(0.78)), ShouldEqual, model.PriorityP1)
		})

		Convey("Then a high-risk tag should bump one tier", func() {
			e := ev(0.45)
			e.Transaction.RiskTags = []string{"watchlist"}
			So(bandPriority(cfg, e), ShouldEqual, model.PriorityP2)
		})

		Convey("Then a fallback decision should bump one tier", func() {
			e := ev(0.31)
			e.Decision.Fallback = true
			So(bandPriority(cfg, e), ShouldEqual, model.PriorityP3)
		})

		Convey("Then bumps should saturate at the top tier", func() {
			e := ev(0.79)
			e.Decision.Fallback = true
			e.Transaction.RiskTags = []string{"synthetic_identity"}
			So(bandPriority(cfg, e), ShouldEqual, model.PriorityP1)
		})
	})
}
