package cmd

import (
	"io"
	"log/slog"

	"github.com/frahmantamala/expense-tracker/internal"
	"github.com/frahmantamala/expense-tracker/internal/core/events"
	"github.com/frahmantamala/expense-tracker/internal/notification"
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
)

var _ = Describe("command helpers", func() {
	var cfg *internal.Config

	BeforeEach(func() {
		cfg = &internal.Config{
			Access: internal.AccessConfig{AdminEmails: []string{"Boss@Example.com", "second@example.com"}},
		}
	})

	Describe("systemActor", func() {
		It("acts as the first default admin when no email is given", func() {
			// When
			actor, err := systemActor(cfg, "")

			// Then
			Expect(err).NotTo(HaveOccurred())
			Expect(actor.Email).To(Equal("boss@example.com"))
			Expect(actor.UID).To(Equal("cli:boss@example.com"))
		})

		It("acts as the named user", func() {
			actor, err := systemActor(cfg, " Reviewer@Example.com ")

			Expect(err).NotTo(HaveOccurred())
			Expect(actor.Email).To(Equal("reviewer@example.com"))
		})

		It("fails without a default admin or a named user", func() {
			// Given
			cfg.Access.AdminEmails = nil

			// When
			_, err := systemActor(cfg, "")

			// Then
			Expect(err).To(HaveOccurred())
		})
	})

	Describe("notificationAdmins", func() {
		It("falls back to the default admins", func() {
			Expect(notificationAdmins(cfg)).To(Equal(cfg.Access.AdminEmails))
		})

		It("prefers the notification list when set", func() {
			cfg.Notification.AdminEmails = []string{"ops@example.com"}

			Expect(notificationAdmins(cfg)).To(Equal([]string{"ops@example.com"}))
		})
	})

	Describe("newSender", func() {
		lg := slog.New(slog.NewTextHandler(io.Discard, nil))

		It("logs messages by default", func() {
			sender, closer, err := newSender(cfg, lg)

			Expect(err).NotTo(HaveOccurred())
			Expect(sender).To(BeAssignableToTypeOf(&notification.LogSender{}))
			Expect(closer()).To(Succeed())
		})

		It("builds the SMTP sender", func() {
			cfg.Notification.Transport = internal.NotificationTransportSMTP

			sender, _, err := newSender(cfg, lg)

			Expect(err).NotTo(HaveOccurred())
			Expect(sender).To(BeAssignableToTypeOf(&notification.SMTPSender{}))
		})

		It("rejects an unknown transport", func() {
			cfg.Notification.Transport = "pigeon"

			_, closer, err := newSender(cfg, lg)

			Expect(err).To(HaveOccurred())
			Expect(closer).NotTo(BeNil())
		})
	})

	Describe("sampleEvent", func() {
		It("builds each notification kind", func() {
			for _, kind := range []string{events.KindNewExpense, events.KindStatusChange, events.KindExpenseClosed} {
				event, err := sampleEvent(kind, "employee@example.com")

				Expect(err).NotTo(HaveOccurred())
				Expect(event.WirePayload().Type).To(Equal(kind))
				Expect(event.WirePayload().Expense.User.Email).To(Equal("employee@example.com"))
			}
		})

		It("carries the paid amount on the closed event", func() {
			event, err := sampleEvent(events.KindExpenseClosed, "employee@example.com")

			Expect(err).NotTo(HaveOccurred())
			Expect(event.WirePayload().PaidAmount).NotTo(BeNil())
			Expect(*event.WirePayload().PaidAmount).To(Equal(155.5))
		})

		It("rejects an unknown kind", func() {
			_, err := sampleEvent("birthday", "employee@example.com")

			Expect(err).To(HaveOccurred())
		})
	})
})
