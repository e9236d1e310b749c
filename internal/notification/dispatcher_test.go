package notification_test

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"os"
	"strings"
	"sync"
	"time"

	"github.com/frahmantamala/expense-tracker/internal/core/events"
	"github.com/frahmantamala/expense-tracker/internal/notification"
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
	"github.com/rabbitmq/amqp091-go"
)

type MockSender struct {
	mu     sync.Mutex
	sent   []notification.Message
	failTo string
	delay  time.Duration
	block  bool
}

func (m *MockSender) Send(ctx context.Context, msg notification.Message) error {
	if m.block {
		<-ctx.Done()
		return ctx.Err()
	}
	if m.delay > 0 {
		time.Sleep(m.delay)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.failTo != "" && strings.EqualFold(msg.To, m.failTo) {
		return errors.New("mailbox unavailable")
	}
	m.sent = append(m.sent, msg)
	return nil
}

func (m *MockSender) count() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.sent)
}

type fakeChannel struct {
	exchange string
	key      string
	body     []byte
	err      error
}

func (f *fakeChannel) PublishWithContext(ctx context.Context, exchange, key string, mandatory, immediate bool, msg amqp091.Publishing) error {
	if f.err != nil {
		return f.err
	}
	f.exchange = exchange
	f.key = key
	f.body = msg.Body
	return nil
}

func snapshot() events.ExpenseSnapshot {
	return events.ExpenseSnapshot{
		ID:        "exp-1",
		User:      events.SubmitterSnapshot{Name: "Emp", Email: "emp@company.com", Department: "Sales"},
		Date:      "2026-03-01",
		Purpose:   "Client visit",
		Transport: 100,
		Meals:     50,
		Total:     150,
		Status:    "Under Review",
		CreatedAt: time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC),
	}
}

var _ = Describe("Notification", func() {
	var logger *slog.Logger

	BeforeEach(func() {
		logger = slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelError}))
	})

	Describe("Recipients", func() {
		It("puts the submitter first and removes case-insensitive duplicates", func() {
			got := notification.Recipients("Emp@Company.com", []string{"boss@company.com", "emp@company.com", " ", "BOSS@company.com"})
			Expect(got).To(Equal([]string{"Emp@Company.com", "boss@company.com"}))
		})
	})

	Describe("Compose", func() {
		It("builds a status-change message with old and new status", func() {
			// Given
			event := events.NewExpenseStatusChangedEvent(snapshot(), "Under Review", "Approve",
				events.StampSnapshot{Name: "Rev", Email: "reviewer@company.com"})

			// When
			messages := notification.Compose(event.WirePayload(), []string{"boss@company.com"})

			// Then
			Expect(messages).To(HaveLen(2))
			Expect(messages[0].Subject).To(Equal("Expense status changed to Approve"))
			Expect(messages[0].Body).To(ContainSubstring("Status changed from Under Review to Approve by Rev"))
			Expect(messages[0].Body).To(ContainSubstring("Total: 150.00"))
			Expect(messages[0].Kind).To(Equal(events.KindStatusChange))
		})

		It("includes the paid amount on closure", func() {
			event := events.NewExpenseClosedEvent(snapshot(), events.StampSnapshot{Name: "Acc"}, 150)

			messages := notification.Compose(event.WirePayload(), nil)

			Expect(messages).To(HaveLen(1))
			Expect(messages[0].Subject).To(Equal("Expense closed and paid"))
			Expect(messages[0].Body).To(ContainSubstring("Paid amount: 150.00"))
		})
	})

	Describe("Dispatcher", func() {
		It("keeps sending after one recipient fails", func() {
			// Given
			sender := &MockSender{failTo: "boss@company.com"}
			dispatcher := notification.NewDispatcher(sender, []string{"boss@company.com", "finance@company.com"}, logger)

			// When
			report := dispatcher.Dispatch(context.Background(), events.NewExpenseSubmittedEvent(snapshot()).WirePayload())

			// Then
			Expect(report.Attempted).To(Equal(3))
			Expect(report.Sent).To(Equal(2))
			Expect(report.Failed()).To(BeTrue())
			Expect(report.Failures[0].To).To(Equal("boss@company.com"))
		})

		It("delivers bus events to every recipient", func() {
			// Given
			sender := &MockSender{}
			bus := events.NewEventBus(logger)
			notification.NewDispatcher(sender, []string{"boss@company.com"}, logger).Register(bus)

			// When
			err := bus.Publish(context.Background(), events.NewExpenseSubmittedEvent(snapshot()))

			// Then
			Expect(err).NotTo(HaveOccurred())
			Eventually(sender.count).Should(Equal(2))
		})
	})

	Describe("QueueSender", func() {
		It("publishes the message as JSON on the queue routing key", func() {
			// Given
			channel := &fakeChannel{}
			sender := notification.NewQueueSender(channel, "expense-tracker", "notifications")
			msg := notification.Message{To: "emp@company.com", Subject: "hi", Kind: events.KindNewExpense}

			// When
			err := sender.Send(context.Background(), msg)

			// Then
			Expect(err).NotTo(HaveOccurred())
			Expect(channel.exchange).To(Equal("expense-tracker"))
			Expect(channel.key).To(Equal("notifications"))
			var decoded notification.Message
			Expect(json.Unmarshal(channel.body, &decoded)).To(Succeed())
			Expect(decoded).To(Equal(msg))
		})

		It("returns the broker error", func() {
			sender := notification.NewQueueSender(&fakeChannel{err: errors.New("closed")}, "x", "q")
			Expect(sender.Send(context.Background(), notification.Message{})).To(HaveOccurred())
		})
	})

	Describe("Pool", func() {
		It("delivers enqueued messages in the background", func() {
			// Given
			sender := &MockSender{}
			pool := notification.NewPool(sender, notification.PoolConfig{Workers: 2, QueueSize: 10}, logger)
			defer pool.Shutdown(context.Background())

			// When
			for i := 0; i < 5; i++ {
				Expect(pool.Send(context.Background(), notification.Message{To: "emp@company.com"})).To(Succeed())
			}

			// Then
			Eventually(sender.count).Should(Equal(5))
		})

		It("refuses new messages after shutdown", func() {
			pool := notification.NewPool(&MockSender{}, notification.PoolConfig{}, logger)
			Expect(pool.Shutdown(context.Background())).To(Succeed())

			Expect(pool.Send(context.Background(), notification.Message{})).To(MatchError(notification.ErrPoolClosed))
		})

		It("delivers everything still queued before shutdown returns", func() {
			// Given one slow worker with a full backlog
			sender := &MockSender{delay: 5 * time.Millisecond}
			pool := notification.NewPool(sender, notification.PoolConfig{Workers: 1, QueueSize: 20}, logger)
			for i := 0; i < 20; i++ {
				Expect(pool.Send(context.Background(), notification.Message{To: "emp@company.com"})).To(Succeed())
			}

			// When
			ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			Expect(pool.Shutdown(ctx)).To(Succeed())

			// Then
			Expect(sender.count()).To(Equal(20))
		})

		It("gives up on the backlog when the shutdown deadline passes", func() {
			// Given a sender that blocks until its context ends
			sender := &MockSender{block: true}
			pool := notification.NewPool(sender, notification.PoolConfig{Workers: 1, QueueSize: 5}, logger)
			for i := 0; i < 5; i++ {
				Expect(pool.Send(context.Background(), notification.Message{To: "emp@company.com"})).To(Succeed())
			}

			// When
			ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
			defer cancel()

			// Then
			Expect(pool.Shutdown(ctx)).To(MatchError(context.DeadlineExceeded))
			Expect(sender.count()).To(BeNumerically("<", 5))
		})
	})
})
