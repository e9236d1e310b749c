package events_test

import (
	"context"
	"errors"
	"log/slog"
	"os"
	"sync"
	"time"

	"github.com/frahmantamala/expense-tracker/internal/core/events"
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
)

var _ = Describe("EventBus", func() {
	var (
		bus      *events.EventBus
		snapshot events.ExpenseSnapshot
	)

	BeforeEach(func() {
		logger := slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelError}))
		bus = events.NewEventBus(logger)
		snapshot = events.ExpenseSnapshot{
			ID:     "exp-1",
			User:   events.SubmitterSnapshot{Name: "Asha", Email: "asha@example.com"},
			Total:  2800,
			Status: "Under Review",
		}
	})

	It("delivers async events even after the publishing context is cancelled", func() {
		var (
			mu  sync.Mutex
			got []string
		)
		bus.SubscribeAll(events.ExpenseEventTypes, func(ctx context.Context, e events.Event) error {
			mu.Lock()
			defer mu.Unlock()
			if ctx.Err() == nil {
				got = append(got, e.EventType())
			}
			return nil
		})

		ctx, cancel := context.WithCancel(context.Background())
		Expect(bus.Publish(ctx, events.NewExpenseSubmittedEvent(snapshot))).To(Succeed())
		cancel()

		Eventually(func() []string {
			mu.Lock()
			defer mu.Unlock()
			return append([]string(nil), got...)
		}).Should(Equal([]string{events.EventTypeExpenseNew}))
	})

	It("returns the first handler error when publishing synchronously", func() {
		bus.Subscribe(events.EventTypeExpenseClosed, func(ctx context.Context, e events.Event) error {
			return errors.New("boom")
		})

		err := bus.PublishSync(context.Background(), events.NewExpenseClosedEvent(snapshot, events.StampSnapshot{Name: "Acc"}, 2800))
		Expect(err).To(MatchError(ContainSubstring("boom")))
	})

	It("keeps delivering to other handlers when one panics", func() {
		var delivered sync.WaitGroup
		delivered.Add(1)
		bus.Subscribe(events.EventTypeExpenseNew, func(ctx context.Context, e events.Event) error {
			panic("broken handler")
		})
		bus.Subscribe(events.EventTypeExpenseNew, func(ctx context.Context, e events.Event) error {
			delivered.Done()
			return nil
		})

		Expect(bus.Publish(context.Background(), events.NewExpenseSubmittedEvent(snapshot))).To(Succeed())
		Expect(bus.Drain(context.Background())).To(Succeed())
		delivered.Wait()
	})

	It("reports a panicking handler as an error when publishing synchronously", func() {
		bus.Subscribe(events.EventTypeExpenseNew, func(ctx context.Context, e events.Event) error {
			panic("broken handler")
		})

		err := bus.PublishSync(context.Background(), events.NewExpenseSubmittedEvent(snapshot))
		Expect(err).To(MatchError(ContainSubstring("broken handler")))
	})

	It("waits for running handlers on drain", func() {
		release := make(chan struct{})
		bus.Subscribe(events.EventTypeExpenseNew, func(ctx context.Context, e events.Event) error {
			<-release
			return nil
		})
		Expect(bus.Publish(context.Background(), events.NewExpenseSubmittedEvent(snapshot))).To(Succeed())

		// Given a handler that is still blocked
		ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
		defer cancel()
		Expect(bus.Drain(ctx)).To(MatchError(context.DeadlineExceeded))

		// When it finishes, Then drain returns cleanly
		close(release)
		Expect(bus.Drain(context.Background())).To(Succeed())
	})

	It("ignores events nobody subscribed to", func() {
		Expect(bus.PublishSync(context.Background(), events.NewExpenseSubmittedEvent(snapshot))).To(Succeed())
	})

	Describe("wire payload", func() {
		It("carries the status transition", func() {
			e := events.NewExpenseStatusChangedEvent(snapshot, "Under Review", "Approve", events.StampSnapshot{Name: "Rev", Email: "rev@example.com"})
			p := e.WirePayload()
			Expect(p.Type).To(Equal(events.KindStatusChange))
			Expect(p.OldStatus).To(Equal("Under Review"))
			Expect(p.NewStatus).To(Equal("Approve"))
			Expect(p.ActionBy.Name).To(Equal("Rev"))
			Expect(p.PaidAmount).To(BeNil())
		})

		It("carries the paid amount on close", func() {
			p := events.NewExpenseClosedEvent(snapshot, events.StampSnapshot{Name: "Acc"}, 2800).WirePayload()
			Expect(p.Type).To(Equal(events.KindExpenseClosed))
			Expect(*p.PaidAmount).To(Equal(2800.0))
			Expect(p.ClosedBy.Name).To(Equal("Acc"))
		})
	})
})
