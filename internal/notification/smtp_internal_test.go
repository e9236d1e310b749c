package notification

import (
	"context"
	"errors"
	"net/smtp"
	"strings"

	"github.com/frahmantamala/expense-tracker/internal"
	ginkgo "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
)

var _ = ginkgo.Describe("SMTPSender", func() {
	var (
		calls    int
		captured []byte
		sender   *SMTPSender
	)

	ginkgo.BeforeEach(func() {
		calls = 0
		captured = nil
	})

	withFakeTransport := func(cfg internal.SMTPConfig) *SMTPSender {
		s := NewSMTPSender(cfg, "noreply@company.com")
		s.sendMail = func(addr string, a smtp.Auth, from string, to []string, msg []byte) error {
			calls++
			captured = msg
			return nil
		}
		return s
	}

	ginkgo.It("never contacts the server with placeholder credentials", func() {
		// Given
		sender = withFakeTransport(internal.SMTPConfig{Host: "smtp.example.com", Port: 587, Username: "your-email@example.com", Password: "your-app-password"})

		// When
		err := sender.Send(context.Background(), Message{To: "emp@company.com"})

		// Then
		Expect(errors.Is(err, ErrPlaceholderCredentials)).To(BeTrue())
		Expect(calls).To(BeZero())
	})

	ginkgo.It("renders a plain-text mail with CRLF line endings", func() {
		// Given
		sender = withFakeTransport(internal.SMTPConfig{Host: "mail.company.com", Port: 587, Username: "mailer", Password: "s3cret"})

		// When
		err := sender.Send(context.Background(), Message{To: "emp@company.com", Subject: "Hello", Body: "line one\nline two"})

		// Then
		Expect(err).NotTo(HaveOccurred())
		Expect(calls).To(Equal(1))
		Expect(string(captured)).To(ContainSubstring("Subject: Hello\r\n"))
		Expect(string(captured)).To(ContainSubstring("Content-Type: text/plain"))
		Expect(string(captured)).To(HaveSuffix("line one\r\nline two"))
	})

	ginkgo.It("keeps line breaks in the subject from adding headers", func() {
		// Given a submitter name carrying a header
		sender = withFakeTransport(internal.SMTPConfig{Host: "mail.company.com", Port: 587, Username: "mailer", Password: "s3cret"})
		subject := "New expense submitted by Eve\r\nBcc: x@evil.example"

		// When
		err := sender.Send(context.Background(), Message{To: "emp@company.com", Subject: subject, Body: "hi"})

		// Then
		Expect(err).NotTo(HaveOccurred())
		headers, _, _ := strings.Cut(string(captured), "\r\n\r\n")
		Expect(headers).NotTo(ContainSubstring("\r\nBcc:"))
		Expect(headers).To(ContainSubstring("Subject: New expense submitted by Eve Bcc: x@evil.example\r\n"))
	})

	ginkgo.It("encodes non-ASCII subjects", func() {
		sender = withFakeTransport(internal.SMTPConfig{Host: "mail.company.com", Port: 587, Username: "mailer", Password: "s3cret"})

		Expect(sender.Send(context.Background(), Message{To: "emp@company.com", Subject: "Dépense", Body: "hi"})).To(Succeed())

		Expect(string(captured)).To(ContainSubstring("Subject: =?utf-8?q?"))
	})
})
