package mail

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/textproto"
	"slices"

	"github.com/tartampluch/go-greetings/internal/config"
	"gopkg.in/gomail.v2"
)

// Dialer opens an authenticated SMTP connection. *gomail.Dialer satisfies it.
type Dialer interface {
	Dial() (gomail.SendCloser, error)
}

// SMTPTransport sends through an SMTP server with STARTTLS or implicit TLS on 465.
type SMTPTransport struct {
	Dialer Dialer
}

// NewSMTPTransport returns a transport authenticating as username.
func NewSMTPTransport(host string, port int, username, password string) *SMTPTransport {
	return &SMTPTransport{Dialer: gomail.NewDialer(host, port, username, password)}
}

func (t *SMTPTransport) Name() string { return config.TransportSMTP }

// Open dials and authenticates once. The returned session is reused for the run.
func (t *SMTPTransport) Open(ctx context.Context) (Session, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	sc, err := t.dial()
	if err != nil {
		return nil, err
	}
	slog.Info(config.MsgSessionOpen,
		config.LogKeyComponent, config.CompMail,
		config.LogKeyTransport, config.TransportSMTP,
	)
	return &smtpSession{dial: t.dial, sc: sc}, nil
}

func (t *SMTPTransport) dial() (gomail.SendCloser, error) {
	sc, err := t.Dialer.Dial()
	if err != nil {
		return nil, classifySMTP(err)
	}
	return sc, nil
}

// classifySMTP turns credential rejections into AuthenticationError.
func classifySMTP(err error) error {
	var tpErr *textproto.Error
	if errors.As(err, &tpErr) && slices.Contains(config.SMTPAuthFailureCodes, tpErr.Code) {
		return &config.AuthenticationError{Transport: config.TransportSMTP, Cause: err}
	}
	return fmt.Errorf("%s: %w", config.ErrTransportOpen, err)
}

type smtpSession struct {
	dial func() (gomail.SendCloser, error)
	sc   gomail.SendCloser
}

// Send delivers msg. After a failed send the connection may be mid-transaction,
// so it is dropped and redialed before the next message.
func (s *smtpSession) Send(ctx context.Context, msg *gomail.Message) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if s.sc == nil {
		sc, err := s.dial()
		if err != nil {
			return err
		}
		s.sc = sc
	}

	if err := gomail.Send(s.sc, msg); err != nil {
		_ = s.sc.Close()
		s.sc = nil
		slog.Warn(config.MsgSessionReset,
			config.LogKeyComponent, config.CompMail,
			config.LogKeyError, err,
		)
		return fmt.Errorf("%s: %w", config.ErrSend, err)
	}
	return nil
}

func (s *smtpSession) Close() error {
	if s.sc == nil {
		return nil
	}
	err := s.sc.Close()
	s.sc = nil
	slog.Debug(config.MsgSessionClosed,
		config.LogKeyComponent, config.CompMail,
		config.LogKeyTransport, config.TransportSMTP,
	)
	return err
}
