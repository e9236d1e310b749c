package notification

import (
	"context"
	"fmt"
	"mime"
	"net"
	"net/smtp"
	"strconv"
	"strings"
	"time"

	"github.com/frahmantamala/expense-tracker/internal"
)

var ErrPlaceholderCredentials = internal.NewExternalError("mail transport is configured with placeholder credentials", internal.ErrCodeServiceNotEnabled)

type sendMailFunc func(addr string, a smtp.Auth, from string, to []string, msg []byte) error

type SMTPSender struct {
	cfg      internal.SMTPConfig
	from     string
	sendMail sendMailFunc
	now      func() time.Time
}

func NewSMTPSender(cfg internal.SMTPConfig, from string) *SMTPSender {
	if from == "" {
		from = cfg.Username
	}
	return &SMTPSender{
		cfg:      cfg,
		from:     from,
		sendMail: smtp.SendMail,
		now:      time.Now,
	}
}

// Send refuses to talk to the server while the credentials are sample values.
func (s *SMTPSender) Send(ctx context.Context, msg Message) error {
	if s.cfg.IsPlaceholder() {
		return ErrPlaceholderCredentials
	}
	if err := ctx.Err(); err != nil {
		return err
	}

	addr := net.JoinHostPort(s.cfg.Host, strconv.Itoa(s.cfg.Port))
	auth := smtp.PlainAuth("", s.cfg.Username, s.cfg.Password, s.cfg.Host)
	if err := s.sendMail(addr, auth, s.from, []string{msg.To}, s.render(msg)); err != nil {
		return fmt.Errorf("smtp send to %s: %w", msg.To, err)
	}
	return nil
}

// headerValue folds line breaks into spaces. Subjects carry submitter
// names, which must never start a header of their own.
func headerValue(v string) string {
	return strings.Join(strings.FieldsFunc(v, func(r rune) bool { return r == '\r' || r == '\n' }), " ")
}

func (s *SMTPSender) render(msg Message) []byte {
	var b strings.Builder
	fmt.Fprintf(&b, "From: %s\r\n", headerValue(s.from))
	fmt.Fprintf(&b, "To: %s\r\n", headerValue(msg.To))
	fmt.Fprintf(&b, "Subject: %s\r\n", mime.QEncoding.Encode("utf-8", headerValue(msg.Subject)))
	fmt.Fprintf(&b, "Date: %s\r\n", s.now().Format(time.RFC1123Z))
	b.WriteString("MIME-Version: 1.0\r\n")
	b.WriteString("Content-Type: text/plain; charset=\"utf-8\"\r\n")
	b.WriteString("\r\n")
	b.WriteString(strings.ReplaceAll(msg.Body, "\n", "\r\n"))
	return []byte(b.String())
}
