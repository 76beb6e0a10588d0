package mail

import (
	"bytes"
	"context"
	"fmt"
	"mime"
	"net/mail"
	"sort"
	"strings"
	"time"

	"mailmaster/internal/config"
	"mailmaster/internal/utils/logger"

	"github.com/emersion/go-sasl"
	"github.com/emersion/go-smtp"
	"github.com/google/uuid"
)

// Message is a single HTML email.
type Message struct {
	From    string
	To      string
	Subject string
	HTML    string
	Headers map[string]string
}

// Bytes renders the message in RFC 5322 form.
func (m Message) Bytes() []byte {
	var buf bytes.Buffer

	headers := map[string]string{
		"From":                      m.From,
		"To":                        m.To,
		"Subject":                   mime.QEncoding.Encode("utf-8", m.Subject),
		"Date":                      time.Now().Format(time.RFC1123Z),
		"Message-ID":                fmt.Sprintf("<%s@%s>", uuid.New().String(), domainOf(m.From)),
		"MIME-Version":              "1.0",
		"Content-Type":              "text/html; charset=UTF-8",
		"Content-Transfer-Encoding": "8bit",
	}
	for k, v := range m.Headers {
		headers[k] = v
	}

	keys := make([]string, 0, len(headers))
	for k := range headers {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	for _, k := range keys {
		fmt.Fprintf(&buf, "%s: %s\r\n", k, sanitizeHeader(headers[k]))
	}
	buf.WriteString("\r\n")
	buf.WriteString(m.HTML)

	return buf.Bytes()
}

// Mailer delivers messages.
type Mailer interface {
	Send(ctx context.Context, msg Message) error
}

// SMTPMailer sends through an SMTP relay, upgrading with STARTTLS when the
// server offers it.
type SMTPMailer struct {
	config config.SMTPConfig
}

func NewSMTPMailer(cfg config.SMTPConfig) *SMTPMailer {
	return &SMTPMailer{config: cfg}
}

func (m *SMTPMailer) Send(ctx context.Context, msg Message) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	from, err := mail.ParseAddress(msg.From)
	if err != nil {
		return fmt.Errorf("invalid from address %q: %w", msg.From, err)
	}

	var auth sasl.Client
	if m.config.Username != "" {
		auth = sasl.NewPlainClient("", m.config.Username, m.config.Password)
	}

	addr := fmt.Sprintf("%s:%d", m.config.Host, m.config.Port)
	if err := smtp.SendMail(addr, auth, from.Address, []string{msg.To}, bytes.NewReader(msg.Bytes())); err != nil {
		return fmt.Errorf("failed to send email to %s: %w", msg.To, err)
	}

	return nil
}

// LogMailer writes messages to the log instead of sending them. It is used
// when no SMTP relay is configured.
type LogMailer struct {
	logger *logger.Logger
}

func NewLogMailer(log *logger.Logger) *LogMailer {
	return &LogMailer{logger: log}
}

func (m *LogMailer) Send(ctx context.Context, msg Message) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	m.logger.Info("📧 mail to=%s subject=%q bytes=%d", msg.To, msg.Subject, len(msg.HTML))
	return nil
}

// New picks the SMTP mailer when a relay is configured.
func New(cfg config.SMTPConfig, log *logger.Logger) Mailer {
	if cfg.Enabled() {
		return NewSMTPMailer(cfg)
	}
	log.Warn("SMTP_HOST not set, outgoing mail will only be logged")
	return NewLogMailer(log)
}

func domainOf(address string) string {
	if parsed, err := mail.ParseAddress(address); err == nil {
		address = parsed.Address
	}
	if i := strings.LastIndex(address, "@"); i >= 0 {
		return address[i+1:]
	}
	return "localhost"
}

func sanitizeHeader(v string) string {
	return strings.NewReplacer("\r", "", "\n", "").Replace(v)
}
