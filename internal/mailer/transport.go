package mailer

import (
	"context"
	"fmt"
	"net"
	"net/smtp"
	"strings"
	"time"
)

// Transport sends a composed message to a set of recipients.
type Transport interface {
	Send(ctx context.Context, from string, to []string, subject, body string) error
}

// SMTPTransport delivers mail over a plain SMTP connection. The dial and
// the whole conversation share one deadline so a slow server cannot occupy
// a mail worker indefinitely.
type SMTPTransport struct {
	addr    string
	auth    smtp.Auth
	timeout time.Duration
}

// NewSMTPTransport creates a transport for the given server address
// (host:port). auth may be nil for unauthenticated relays.
func NewSMTPTransport(addr string, auth smtp.Auth, timeout time.Duration) *SMTPTransport {
	return &SMTPTransport{
		addr:    addr,
		auth:    auth,
		timeout: timeout,
	}
}

// Send delivers one message. The context deadline, if sooner than the
// configured timeout, wins.
func (t *SMTPTransport) Send(ctx context.Context, from string, to []string, subject, body string) error {
	deadline := time.Now().Add(t.timeout)
	if d, ok := ctx.Deadline(); ok && d.Before(deadline) {
		deadline = d
	}

	conn, err := net.DialTimeout("tcp", t.addr, time.Until(deadline))
	if err != nil {
		return fmt.Errorf("dial smtp server: %w", err)
	}
	if err := conn.SetDeadline(deadline); err != nil {
		conn.Close()
		return fmt.Errorf("set smtp deadline: %w", err)
	}

	host, _, err := net.SplitHostPort(t.addr)
	if err != nil {
		host = t.addr
	}

	client, err := smtp.NewClient(conn, host)
	if err != nil {
		conn.Close()
		return fmt.Errorf("smtp handshake: %w", err)
	}
	defer client.Close()

	if t.auth != nil {
		if err := client.Auth(t.auth); err != nil {
			return fmt.Errorf("smtp auth: %w", err)
		}
	}

	if err := client.Mail(from); err != nil {
		return fmt.Errorf("smtp mail from: %w", err)
	}
	for _, rcpt := range to {
		if err := client.Rcpt(rcpt); err != nil {
			return fmt.Errorf("smtp rcpt %s: %w", rcpt, err)
		}
	}

	w, err := client.Data()
	if err != nil {
		return fmt.Errorf("smtp data: %w", err)
	}
	if _, err := w.Write([]byte(composeMessage(from, to, subject, body))); err != nil {
		return fmt.Errorf("write message: %w", err)
	}
	if err := w.Close(); err != nil {
		return fmt.Errorf("finish message: %w", err)
	}

	return client.Quit()
}

// composeMessage builds the raw RFC 5322 message.
func composeMessage(from string, to []string, subject, body string) string {
	var b strings.Builder
	fmt.Fprintf(&b, "From: %s\r\n", from)
	fmt.Fprintf(&b, "To: %s\r\n", strings.Join(to, ", "))
	fmt.Fprintf(&b, "Subject: %s\r\n", subject)
	b.WriteString("MIME-Version: 1.0\r\n")
	b.WriteString("Content-Type: text/plain; charset=utf-8\r\n")
	b.WriteString("\r\n")
	b.WriteString(body)
	return b.String()
}
