// internal/service/email/service.go
package email

import (
	"crypto/tls"
	"errors"
	"fmt"
	"html"
	"net"
	"net/smtp"
	"strings"
	"time"
)

// ErrNotConfigured is returned when no SMTP host is set.
var ErrNotConfigured = errors.New("smtp is not configured")

// DefaultTimeout bounds the whole SMTP exchange of one message.
const DefaultTimeout = 15 * time.Second

// EmailSender handles outgoing emails via SMTP.
type EmailSender struct {
	smtpHost   string
	smtpPort   string
	username   string
	password   string
	fromName   string
	secure     bool
	systemName string
	timeout    time.Duration
}

// NewEmailSender creates a new SMTP email sender.
func NewEmailSender(host, port, user, pass, fromName string, secure bool, systemName string) *EmailSender {
	return &EmailSender{
		smtpHost:   host,
		smtpPort:   port,
		username:   user,
		password:   pass,
		fromName:   fromName,
		secure:     secure,
		systemName: systemName,
		timeout:    DefaultTimeout,
	}
}

// WithTimeout overrides DefaultTimeout.
func (e *EmailSender) WithTimeout(d time.Duration) *EmailSender {
	if d > 0 {
		e.timeout = d
	}
	return e
}

// Send sends an HTML email wrapped in the system layout.
func (e *EmailSender) Send(to, subject, bodyHTML string) error {
	if e.smtpHost == "" {
		return ErrNotConfigured
	}
	msg := e.buildMessage(to, subject, bodyHTML)
	serverAddr := net.JoinHostPort(e.smtpHost, e.smtpPort)
	tlsConfig := &tls.Config{ServerName: e.smtpHost, MinVersion: tls.VersionTLS12}
	dialer := &net.Dialer{Timeout: e.timeout}

	var conn net.Conn
	var err error
	if e.secure {
		conn, err = tls.DialWithDialer(dialer, "tcp", serverAddr, tlsConfig)
	} else {
		conn, err = dialer.Dial("tcp", serverAddr)
	}
	if err != nil {
		return fmt.Errorf("dial failed: %w", err)
	}
	defer conn.Close()
	if err := conn.SetDeadline(time.Now().Add(e.timeout)); err != nil {
		return fmt.Errorf("set deadline failed: %w", err)
	}

	client, err := smtp.NewClient(conn, e.smtpHost)
	if err != nil {
		return fmt.Errorf("smtp client failed: %w", err)
	}
	defer client.Close()

	if !e.secure {
		if ok, _ := client.Extension("STARTTLS"); ok {
			if err := client.StartTLS(tlsConfig); err != nil {
				return fmt.Errorf("starttls failed: %w", err)
			}
		}
	}
	if ok, _ := client.Extension("AUTH"); ok && e.username != "" {
		if err := client.Auth(smtp.PlainAuth("", e.username, e.password, e.smtpHost)); err != nil {
			return fmt.Errorf("auth failed: %w", err)
		}
	}
	if err := e.sendMail(client, to, msg); err != nil {
		return err
	}
	return client.Quit()
}

func (e *EmailSender) buildMessage(to, subject, bodyHTML string) []byte {
	from := fmt.Sprintf("%s <%s>", e.fromName, e.username)
	return []byte(
		fmt.Sprintf("From: %s\r\n", from) +
			fmt.Sprintf("To: %s\r\n", to) +
			fmt.Sprintf("Subject: %s\r\n", subject) +
			fmt.Sprintf("Date: %s\r\n", time.Now().Format(time.RFC1123Z)) +
			"MIME-Version: 1.0\r\n" +
			"Content-Type: text/html; charset=\"utf-8\"\r\n" +
			"\r\n" +
			e.layout(bodyHTML),
	)
}

func (e *EmailSender) sendMail(client *smtp.Client, to string, msg []byte) error {
	if err := client.Mail(e.username); err != nil {
		return fmt.Errorf("MAIL FROM failed: %w", err)
	}
	if err := client.Rcpt(to); err != nil {
		return fmt.Errorf("RCPT TO failed: %w", err)
	}
	w, err := client.Data()
	if err != nil {
		return fmt.Errorf("DATA failed: %w", err)
	}
	if _, err := w.Write(msg); err != nil {
		return fmt.Errorf("write failed: %w", err)
	}
	if err := w.Close(); err != nil {
		return fmt.Errorf("close failed: %w", err)
	}
	return nil
}

// layout wraps content into the ministry email frame.
func (e *EmailSender) layout(content string) string {
	name := html.EscapeString(e.systemName)
	var b strings.Builder
	b.WriteString(`<!DOCTYPE html>
<html>
<head>
	<meta charset="utf-8" />
	<title>` + name + `</title>
	<style>
		body { font-family: Arial, sans-serif; background-color: #f4f6f8; padding: 30px; }
		.container { max-width: 600px; margin: auto; background: #fff; border-radius: 8px; overflow: hidden; }
		.header { background: #1f3b63; color: #fff; text-align: center; padding: 18px; font-size: 20px; font-weight: bold; }
		.body { padding: 25px; color: #333; line-height: 1.6; }
		.footer { background: #eef1f4; color: #555; text-align: center; padding: 12px; font-size: 12px; }
		a.button { display: inline-block; background: #1f3b63; color: #fff; padding: 10px 20px; border-radius: 4px; text-decoration: none; }
	</style>
</head>
<body>
<div class="container">
	<div class="header">` + name + `</div>
	<div class="body">
`)
	b.WriteString(strings.TrimSpace(content))
	b.WriteString(`
	</div>
	<div class="footer">This is an automated message, please do not reply.</div>
</div>
</body>
</html>`)
	return b.String()
}
