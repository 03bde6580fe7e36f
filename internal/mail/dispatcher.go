package mail

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/tartampluch/go-greetings/internal/config"
	"github.com/tartampluch/go-greetings/internal/roster"
	"gopkg.in/gomail.v2"
)

// Dispatcher sends messages over a session owned by the caller.
type Dispatcher struct {
	Session Session
}

// Deliver sends msg to recipient. A malformed address or a failed send is
// returned as *config.DeliveryError and the session stays usable. An
// authentication failure is returned as is, it ends the run.
func (d *Dispatcher) Deliver(ctx context.Context, msg *gomail.Message, recipient string) error {
	if !roster.ValidEmail(recipient) {
		return &config.DeliveryError{Recipient: recipient, Cause: errors.New(config.ErrRecipient)}
	}

	if err := d.Session.Send(ctx, msg); err != nil {
		var authErr *config.AuthenticationError
		if errors.As(err, &authErr) || ctx.Err() != nil {
			return err
		}
		slog.Warn(config.MsgSendFailed,
			config.LogKeyComponent, config.CompMail,
			config.LogKeyRecipient, recipient,
			config.LogKeyError, err,
		)
		return &config.DeliveryError{Recipient: recipient, Cause: err}
	}

	slog.Info(config.MsgSent,
		config.LogKeyComponent, config.CompMail,
		config.LogKeyRecipient, recipient,
	)
	return nil
}

// CheckConnection opens and closes a session to verify the credentials.
func CheckConnection(ctx context.Context, t Transport) error {
	s, err := t.Open(ctx)
	if err != nil {
		return err
	}
	if err := s.Close(); err != nil {
		return fmt.Errorf("%s: %w", config.ErrTransportOpen, err)
	}
	slog.Info(config.MsgConnectionOK,
		config.LogKeyComponent, config.CompMail,
		config.LogKeyTransport, t.Name(),
	)
	return nil
}

// SendTest opens a session and sends one plain test message to to.
func SendTest(ctx context.Context, t Transport, c *Composer, to string) (err error) {
	s, err := t.Open(ctx)
	if err != nil {
		return err
	}
	defer func() {
		if cerr := s.Close(); cerr != nil && err == nil {
			err = cerr
		}
	}()

	d := &Dispatcher{Session: s}
	if err := d.Deliver(ctx, c.Test(to), to); err != nil {
		return err
	}
	slog.Info(config.MsgTestSent,
		config.LogKeyComponent, config.CompMail,
		config.LogKeyRecipient, to,
	)
	return nil
}
