// AngelaMos | 2026
// mail.go

package mail

import (
	"bytes"
	"context"
	"fmt"
	"html/template"
	"log/slog"
	"net/url"
	"strings"
)

type Message struct {
	To       string
	Subject  string
	HTMLBody string
}

type Sender interface {
	Send(ctx context.Context, msg Message) error
}

// LogSender writes messages to the log instead of delivering them. It is
// used when no SMTP host is configured.
type LogSender struct {
	log *slog.Logger
}

func NewLogSender(log *slog.Logger) *LogSender {
	return &LogSender{log: log}
}

func (s *LogSender) Send(_ context.Context, msg Message) error {
	s.log.Info("mail delivery disabled, message logged",
		"to", msg.To,
		"subject", msg.Subject,
		"body", msg.HTMLBody,
	)
	return nil
}

const verificationSubject = "Verify your email"

var verificationTemplate = template.Must(template.New("verification").Parse(
	`<!DOCTYPE html>
<html>
  <body>
    <p>Thanks for signing up.</p>
    <p><a target="_blank" href="{{.Link}}">Click here to verify your email</a></p>
    <p>If the link does not work, paste this address into your browser:<br>{{.Link}}</p>
  </body>
</html>
`))

// VerificationLink is the address the user follows to confirm ownership of
// the email.
func VerificationLink(baseURL, token string) string {
	return strings.TrimRight(baseURL, "/") +
		"/api/users/verify/" + url.PathEscape(token)
}

func VerificationMessage(to, baseURL, token string) (Message, error) {
	var body bytes.Buffer
	err := verificationTemplate.Execute(&body, struct{ Link string }{
		Link: VerificationLink(baseURL, token),
	})
	if err != nil {
		return Message{}, fmt.Errorf("render verification email: %w", err)
	}

	return Message{
		To:       to,
		Subject:  verificationSubject,
		HTMLBody: body.String(),
	}, nil
}
