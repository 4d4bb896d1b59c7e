// AngelaMos | 2026
// smtp.go

package mail

import (
	"context"
	"crypto/tls"
	"fmt"
	"log/slog"
	"mime"
	"net"
	"net/smtp"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/carterperez-dev/contacts-backend/internal/config"
)

// SMTPSender opens one connection per message. Port 465 style servers are
// reached over implicit TLS, everything else is upgraded with STARTTLS when
// the server offers it.
type SMTPSender struct {
	cfg config.MailConfig
	log *slog.Logger
}

func NewSMTPSender(cfg config.MailConfig, log *slog.Logger) *SMTPSender {
	return &SMTPSender{cfg: cfg, log: log}
}

func (s *SMTPSender) Send(ctx context.Context, msg Message) error {
	if _, ok := ctx.Deadline(); !ok && s.cfg.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.cfg.Timeout)
		defer cancel()
	}

	conn, err := s.dial(ctx)
	if err != nil {
		return fmt.Errorf("dial smtp server: %w", err)
	}

	if deadline, ok := ctx.Deadline(); ok {
		//nolint:errcheck // a failed deadline surfaces on the next write
		_ = conn.SetDeadline(deadline)
	}

	client, err := smtp.NewClient(conn, s.cfg.Host)
	if err != nil {
		if closeErr := conn.Close(); closeErr != nil {
			s.log.Error("failed to close connection", "error", closeErr)
		}
		return fmt.Errorf("create smtp client: %w", err)
	}
	//nolint:errcheck // Quit has already closed the connection on success
	defer client.Close()

	if !s.cfg.ImplicitTLS {
		if ok, _ := client.Extension("STARTTLS"); ok {
			if err := client.StartTLS(s.tlsConfig()); err != nil {
				return fmt.Errorf("start tls: %w", err)
			}
		} else if s.cfg.Username != "" {
			return fmt.Errorf("smtp server does not support STARTTLS")
		}
	}

	if s.cfg.Username != "" {
		auth := smtp.PlainAuth("", s.cfg.Username, s.cfg.Password, s.cfg.Host)
		if err := client.Auth(auth); err != nil {
			return fmt.Errorf("smtp auth: %w", err)
		}
	}

	if err := client.Mail(s.cfg.From); err != nil {
		return fmt.Errorf("smtp mail from: %w", err)
	}
	if err := client.Rcpt(msg.To); err != nil {
		return fmt.Errorf("smtp rcpt to: %w", err)
	}

	wc, err := client.Data()
	if err != nil {
		return fmt.Errorf("smtp data: %w", err)
	}
	if _, err := wc.Write(buildMessage(s.cfg.From, msg, time.Now())); err != nil {
		//nolint:errcheck // the write error is the one worth reporting
		_ = wc.Close()
		return fmt.Errorf("write message: %w", err)
	}
	if err := wc.Close(); err != nil {
		return fmt.Errorf("finish message: %w", err)
	}

	if err := client.Quit(); err != nil {
		return fmt.Errorf("smtp quit: %w", err)
	}

	return nil
}

func (s *SMTPSender) dial(ctx context.Context) (net.Conn, error) {
	dialer := &net.Dialer{Timeout: s.cfg.Timeout}

	if s.cfg.ImplicitTLS {
		tlsDialer := &tls.Dialer{NetDialer: dialer, Config: s.tlsConfig()}
		return tlsDialer.DialContext(ctx, "tcp", s.cfg.Address())
	}

	return dialer.DialContext(ctx, "tcp", s.cfg.Address())
}

func (s *SMTPSender) tlsConfig() *tls.Config {
	return &tls.Config{
		ServerName: s.cfg.Host,
		MinVersion: tls.VersionTLS12,
	}
}

func buildMessage(from string, msg Message, now time.Time) []byte {
	domain := "localhost"
	if at := strings.LastIndex(from, "@"); at >= 0 {
		domain = from[at+1:]
	}

	headers := []string{
		"From: " + stripCRLF(from),
		"To: " + stripCRLF(msg.To),
		"Subject: " + mime.QEncoding.Encode("utf-8", stripCRLF(msg.Subject)),
		"Date: " + now.Format(time.RFC1123Z),
		"Message-ID: <" + uuid.New().String() + "@" + stripCRLF(domain) + ">",
		"MIME-Version: 1.0",
		`Content-Type: text/html; charset="UTF-8"`,
		"",
		msg.HTMLBody,
	}

	return []byte(strings.Join(headers, "\r\n"))
}

func stripCRLF(s string) string {
	return strings.NewReplacer("\r", "", "\n", "").Replace(s)
}
