package mail

import (
	"bytes"
	"context"
	"encoding/base64"
	"errors"
	"fmt"
	"log/slog"
	"net/http"

	"github.com/tartampluch/go-greetings/internal/config"
	"golang.org/x/oauth2"
	"golang.org/x/oauth2/google"
	"google.golang.org/api/gmail/v1"
	"google.golang.org/api/googleapi"
	"google.golang.org/api/option"
	"gopkg.in/gomail.v2"
)

// GmailTransport sends through the Gmail API with a service account that
// impersonates the sender mailbox (domain-wide delegation).
type GmailTransport struct {
	Credentials []byte
	Sender      string

	// Endpoint overrides the API base URL.
	Endpoint string
	// HTTPClient skips the service account flow when set.
	HTTPClient *http.Client
}

// NewGmailTransport returns a transport for the service account JSON credentials.
func NewGmailTransport(credentials []byte, sender string) *GmailTransport {
	return &GmailTransport{Credentials: credentials, Sender: sender}
}

func (t *GmailTransport) Name() string { return config.TransportGmail }

// Open fetches an access token up front so rejected credentials surface
// before any message is built.
func (t *GmailTransport) Open(ctx context.Context) (Session, error) {
	client := t.HTTPClient
	if client == nil {
		jwtCfg, err := google.JWTConfigFromJSON(t.Credentials, gmail.GmailSendScope)
		if err != nil {
			return nil, &config.ConfigurationError{
				Message: config.ErrGmailCreds,
				Fields:  []string{config.KeyGmailJSON},
				Cause:   err,
			}
		}
		jwtCfg.Subject = t.Sender

		if _, err := jwtCfg.TokenSource(ctx).Token(); err != nil {
			return nil, classifyGmail(err)
		}
		client = jwtCfg.Client(ctx)
	}

	opts := []option.ClientOption{option.WithHTTPClient(client)}
	if t.Endpoint != "" {
		opts = append(opts, option.WithEndpoint(t.Endpoint))
	}
	svc, err := gmail.NewService(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", config.ErrGmailService, err)
	}

	slog.Info(config.MsgSessionOpen,
		config.LogKeyComponent, config.CompMail,
		config.LogKeyTransport, config.TransportGmail,
		config.LogKeyUser, t.Sender,
	)
	return &gmailSession{svc: svc}, nil
}

// classifyGmail maps rejected grants and 401/403 replies to AuthenticationError.
func classifyGmail(err error) error {
	var retrieveErr *oauth2.RetrieveError
	if errors.As(err, &retrieveErr) {
		return &config.AuthenticationError{Transport: config.TransportGmail, Cause: err}
	}
	var apiErr *googleapi.Error
	if errors.As(err, &apiErr) && (apiErr.Code == http.StatusUnauthorized || apiErr.Code == http.StatusForbidden) {
		return &config.AuthenticationError{Transport: config.TransportGmail, Cause: err}
	}
	return fmt.Errorf("%s: %w", config.ErrTransportOpen, err)
}

type gmailSession struct {
	svc *gmail.Service
}

// Send uploads msg as a raw RFC 5322 message.
func (s *gmailSession) Send(ctx context.Context, msg *gomail.Message) error {
	var buf bytes.Buffer
	if _, err := msg.WriteTo(&buf); err != nil {
		return fmt.Errorf("%s: %w", config.ErrSend, err)
	}

	raw := &gmail.Message{Raw: base64.URLEncoding.EncodeToString(buf.Bytes())}
	if _, err := s.svc.Users.Messages.Send(config.GmailUserMe, raw).Context(ctx).Do(); err != nil {
		var apiErr *googleapi.Error
		if errors.As(err, &apiErr) && (apiErr.Code == http.StatusUnauthorized || apiErr.Code == http.StatusForbidden) {
			return &config.AuthenticationError{Transport: config.TransportGmail, Cause: err}
		}
		return fmt.Errorf("%s: %w", config.ErrSend, err)
	}
	return nil
}

// Close is a no-op: the API client holds no connection of its own.
func (s *gmailSession) Close() error {
	slog.Debug(config.MsgSessionClosed,
		config.LogKeyComponent, config.CompMail,
		config.LogKeyTransport, config.TransportGmail,
	)
	return nil
}
