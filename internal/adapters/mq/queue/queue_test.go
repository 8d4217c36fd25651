package queue

import (
	"context"
	"testing"
	"time"

	. "github.com/smartystreets/goconvey/convey"
)

func TestInMemoryQueue(t *testing.T) {
	Convey("Given an in-memory topic", t, func() {
		ctx := context.Background()

		Convey("Messages flow through enqueue and dequeue in order", func() {
			q := NewInMemory[string]("test-topic")
			defer q.Close()

			So(q.Topic(), ShouldEqual, "test-topic")
			So(q.Enqueue(ctx, "a"), ShouldBeTrue)
			So(q.Enqueue(ctx, "b"), ShouldBeTrue)
			So(q.Len(ctx), ShouldEqual, 2)

			out := q.Dequeue(ctx)
			So(<-out, ShouldEqual, "a")
			So(<-out, ShouldEqual, "b")
		})

		Convey("Enqueue signals backpressure without blocking", func() {
			q := NewInMemory[int]("tiny", WithCapacity[int](2))
			defer q.Close()

			So(q.Enqueue(ctx, 1), ShouldBeTrue)
			So(q.Enqueue(ctx, 2), ShouldBeTrue)

			start := time.Now()
			So(q.Enqueue(ctx, 3), ShouldBeFalse)
			So(time.Since(start), ShouldBeLessThan, 50*time.Millisecond)
		})

		Convey("TryDequeue never blocks on an empty queue", func() {
			q := NewInMemory[int]("empty")
			defer q.Close()

			_, ok := q.TryDequeue(ctx)
			So(ok, ShouldBeFalse)

			q.Enqueue(ctx, 7)
			v, ok := q.TryDequeue(ctx)
			So(ok, ShouldBeTrue)
			So(v, ShouldEqual, 7)
		})

		Convey("Close stops intake and closes the dequeue channel", func() {
			q := NewInMemory[int]("closing")

			q.Enqueue(ctx, 1)
			So(q.Close(), ShouldBeNil)
			So(q.IsClosed(), ShouldBeTrue)
			So(q.Enqueue(ctx, 2), ShouldBeFalse)

			out := q.Dequeue(ctx)
			So(<-out, ShouldEqual, 1)
			_, open := <-out
			So(open, ShouldBeFalse)

			Convey("And closing twice is a noop", func() {
				So(q.Close(), ShouldBeNil)
			})
		})

		Convey("Drain collects buffered messages up to the limit", func() {
			q := NewInMemory[int]("drain")
			defer q.Close()

			for i := 0; i < 5; i++ {
				q.Enqueue(ctx, i)
			}

			got := q.Drain(ctx, 3, 100*time.Millisecond)
			So(got, ShouldResemble, []int{0, 1, 2})

			rest := q.Drain(ctx, 10, 50*time.Millisecond)
			So(rest, ShouldResemble, []int{3, 4})
		})
	})
}
