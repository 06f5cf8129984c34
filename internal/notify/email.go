package notify

import (
	"context"
	"fmt"
	"net/smtp"
	"strconv"
	"strings"

	"github.com/dev-tams/s3cleanup/internal/config"
)

type sendMailFunc func(addr string, a smtp.Auth, from string, to []string, msg []byte) error

type emailNotifier struct {
	addr string
	from string
	to   []string
	auth smtp.Auth
	send sendMailFunc
}

func NewEmail(d config.NotificationDetails) (Notifier, error) {
	host := strings.TrimSpace(d.SMTPHost)
	from := strings.TrimSpace(d.From)
	if host == "" {
		return nil, fmt.Errorf("config.smtp_host is required")
	}
	if d.SMTPPort <= 0 {
		return nil, fmt.Errorf("config.smtp_port must be > 0")
	}
	if from == "" {
		return nil, fmt.Errorf("config.from is required")
	}

	recipients := splitRecipients(d.To)
	if len(recipients) == 0 {
		return nil, fmt.Errorf("config.to must include at least one recipient")
	}

	username := strings.TrimSpace(d.Username)
	password := strings.TrimSpace(d.Password)
	if (username == "") != (password == "") {
		return nil, fmt.Errorf("config.username and config.password must be set together")
	}

	var auth smtp.Auth
	if username != "" {
		auth = smtp.PlainAuth("", username, password, host)
	}

	return &emailNotifier{
		addr: host + ":" + strconv.Itoa(d.SMTPPort),
		from: from,
		to:   recipients,
		auth: auth,
		send: smtp.SendMail,
	}, nil
}

func (e *emailNotifier) Notify(ctx context.Context, event Event) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	subject := fmt.Sprintf("[s3cleanup] %s: %s", event.Status, event.Bucket)
	if event.DryRun {
		subject += " (dry run)"
	}
	msg := []byte(strings.Join([]string{
		"From: " + e.from,
		"To: " + strings.Join(e.to, ", "),
		"Subject: " + subject,
		"MIME-Version: 1.0",
		"Content-Type: text/plain; charset=UTF-8",
		"",
		buildEmailBody(event),
	}, "\r\n"))

	if err := e.send(e.addr, e.auth, e.from, e.to, msg); err != nil {
		return fmt.Errorf("send mail: %w", err)
	}
	return nil
}

func buildEmailBody(event Event) string {
	lines := []string{
		"Retention cleanup",
		"",
		"run: " + event.RunID,
		"bucket: " + event.Bucket,
		"status: " + event.Status,
		"cutoff: " + event.Cutoff,
		fmt.Sprintf("listed: %d", event.Listed),
		fmt.Sprintf("candidates: %d", event.Candidates),
		fmt.Sprintf("expired: %d", event.Expired),
		fmt.Sprintf("deleted: %d", event.Deleted),
		"duration: " + event.Duration,
	}
	if event.Error != "" {
		lines = append(lines, "error: "+event.Error)
	}
	return strings.Join(lines, "\n")
}

func splitRecipients(raw string) []string {
	var out []string
	for _, p := range strings.Split(raw, ",") {
		if trimmed := strings.TrimSpace(p); trimmed != "" {
			out = append(out, trimmed)
		}
	}
	return out
}
