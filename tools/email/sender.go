package email

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/cockroachdb/errors"
	"github.com/effective-security/xlog"
	"github.com/wneessen/go-mail"
)

//go:generate mockgen -source=sender.go -destination=../../mocks/mockemail/sender_mock.gen.go -package mockemail

// ErrInvalidAddress is returned when the sender or recipient address can not be parsed.
var ErrInvalidAddress = errors.New("invalid address")

// Message is an email to deliver.
type Message struct {
	From    string
	To      string
	Subject string
	Body    string
	// AttachmentPath is the optional file to attach.
	AttachmentPath string
}

// Sender delivers email messages.
type Sender interface {
	Send(ctx context.Context, msg *Message) error
}

// SMTPConfig provides the SMTP server settings.
type SMTPConfig struct {
	Host     string
	Port     int
	Username string
	Password string
	Timeout  time.Duration
}

// SMTPSender delivers messages over SMTP with STARTTLS and PLAIN auth.
type SMTPSender struct {
	cfg SMTPConfig
}

// NewSMTPSender returns a Sender over SMTP.
func NewSMTPSender(cfg SMTPConfig) *SMTPSender {
	if cfg.Port == 0 {
		cfg.Port = 587
	}
	if cfg.Timeout == 0 {
		cfg.Timeout = 10 * time.Second
	}
	return &SMTPSender{cfg: cfg}
}

// Send opens a SMTP session, sends the message and closes the session.
func (s *SMTPSender) Send(ctx context.Context, m *Message) error {
	msg, err := BuildMsg(m)
	if err != nil {
		return err
	}

	client, err := mail.NewClient(s.cfg.Host,
		mail.WithPort(s.cfg.Port),
		mail.WithTLSPolicy(mail.TLSMandatory),
		mail.WithSMTPAuth(mail.SMTPAuthPlain),
		mail.WithUsername(s.cfg.Username),
		mail.WithPassword(s.cfg.Password),
		mail.WithTimeout(s.cfg.Timeout),
	)
	if err != nil {
		return errors.Wrap(err, "failed to create SMTP client")
	}

	if err = client.DialWithContext(ctx); err != nil {
		return errors.Wrap(err, "failed to connect to SMTP server")
	}
	defer func() {
		if cerr := client.Close(); cerr != nil {
			logger.ContextKV(ctx, xlog.DEBUG, "reason", "close", "err", cerr.Error())
		}
	}()

	if err = client.Send(msg); err != nil {
		return errors.Wrap(err, "failed to send message")
	}
	return nil
}

// BuildMsg returns the MIME message. The attachment is added only when
// the path is set, is not "none" and the file exists.
func BuildMsg(m *Message) (*mail.Msg, error) {
	msg := mail.NewMsg()
	if err := msg.From(m.From); err != nil {
		return nil, errors.Mark(errors.Wrap(err, "invalid sender address"), ErrInvalidAddress)
	}
	if err := msg.To(m.To); err != nil {
		return nil, errors.Mark(errors.Wrap(err, "invalid recipient address"), ErrInvalidAddress)
	}
	msg.Subject(m.Subject)
	msg.SetDate()
	msg.SetBodyString(mail.TypeTextPlain, m.Body)

	if HasAttachment(m.AttachmentPath) {
		msg.AttachFile(m.AttachmentPath, mail.WithFileName(filepath.Base(m.AttachmentPath)))
	}
	return msg, nil
}

// HasAttachment returns true if path names an existing regular file.
func HasAttachment(path string) bool {
	if path == "" || strings.EqualFold(path, "none") {
		return false
	}
	fi, err := os.Stat(path)
	return err == nil && fi.Mode().IsRegular()
}
