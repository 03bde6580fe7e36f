// Package mail composes greeting emails and delivers them over one session per run.
package mail

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/tartampluch/go-greetings/internal/config"
	"gopkg.in/gomail.v2"
)

// Session is an open, authenticated connection reused for every message of a run.
type Session interface {
	Send(ctx context.Context, msg *gomail.Message) error
	Close() error
}

// Transport opens sessions. Open fails with *config.AuthenticationError when
// the server rejects the credentials.
type Transport interface {
	Name() string
	Open(ctx context.Context) (Session, error)
}

// NewTransport builds the transport selected by the settings. dryRun swaps in
// a pickup directory under the output directory.
func NewTransport(s *config.Settings, dryRun bool) (Transport, error) {
	if dryRun {
		return NewPickupTransport(filepath.Join(s.OutputDir, config.OutboxDirName)), nil
	}

	switch s.Transport {
	case config.TransportSMTP:
		return NewSMTPTransport(s.TransportHost, s.TransportPort, s.Username, s.Password), nil
	case config.TransportGmail:
		creds, err := gmailCredentials(s.GmailJSON)
		if err != nil {
			return nil, err
		}
		return NewGmailTransport(creds, s.Username), nil
	case config.TransportPickup:
		return NewPickupTransport(filepath.Join(s.OutputDir, config.OutboxDirName)), nil
	default:
		return nil, &config.ConfigurationError{
			Message: config.ErrTransportUnknown,
			Fields:  []string{config.KeyTransport},
			Cause:   fmt.Errorf("%q", s.Transport),
		}
	}
}

// gmailCredentials accepts either the JSON document itself or a path to it.
func gmailCredentials(value string) ([]byte, error) {
	v := strings.TrimSpace(value)
	if strings.HasPrefix(v, "{") {
		return []byte(v), nil
	}
	data, err := os.ReadFile(v)
	if err != nil {
		return nil, &config.ConfigurationError{
			Message: config.ErrGmailCreds,
			Fields:  []string{config.KeyGmailJSON},
			Cause:   err,
		}
	}
	return data, nil
}
