package mail_test

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"github.com/tartampluch/go-greetings/internal/config"
	"github.com/tartampluch/go-greetings/internal/mail"
	"gopkg.in/gomail.v2"
)

// MockSession records the messages handed to the transport.
type MockSession struct {
	mock.Mock
}

func (m *MockSession) Send(ctx context.Context, msg *gomail.Message) error {
	return m.Called(msg.GetHeader(config.HeaderTo)).Error(0)
}

func (m *MockSession) Close() error {
	return m.Called().Error(0)
}

// MockTransport hands out a prepared session.
type MockTransport struct {
	mock.Mock
}

func (m *MockTransport) Name() string { return "mock" }

func (m *MockTransport) Open(ctx context.Context) (mail.Session, error) {
	args := m.Called()
	if s := args.Get(0); s != nil {
		return s.(mail.Session), args.Error(1)
	}
	return nil, args.Error(1)
}

func TestDispatcher_Deliver(t *testing.T) {
	s := new(MockSession)
	s.On("Send", []string{"ada@example.com"}).Return(nil)
	s.On("Send", []string{"bob@example.com"}).Return(errors.New("550 mailbox unavailable"))

	d := &mail.Dispatcher{Session: s}
	ctx := context.Background()

	require.NoError(t, d.Deliver(ctx, plainMessage("ada@example.com"), "ada@example.com"))

	var delErr *config.DeliveryError
	err := d.Deliver(ctx, plainMessage("bob@example.com"), "bob@example.com")
	require.ErrorAs(t, err, &delErr)
	assert.Equal(t, "bob@example.com", delErr.Recipient)

	err = d.Deliver(ctx, plainMessage("not-an-address"), "not-an-address")
	require.ErrorAs(t, err, &delErr)
	assert.Equal(t, config.ErrRecipient, delErr.Cause.Error())

	s.AssertNumberOfCalls(t, "Send", 2)
}

func TestDispatcher_AuthFailureIsNotADeliveryError(t *testing.T) {
	authErr := &config.AuthenticationError{Transport: config.TransportGmail}
	s := new(MockSession)
	s.On("Send", mock.Anything).Return(authErr)

	err := (&mail.Dispatcher{Session: s}).Deliver(context.Background(), plainMessage("ada@example.com"), "ada@example.com")

	var delErr *config.DeliveryError
	assert.False(t, errors.As(err, &delErr))
	assert.ErrorIs(t, err, authErr)
}

func TestCheckConnection(t *testing.T) {
	s := new(MockSession)
	s.On("Close").Return(nil).Once()
	tr := new(MockTransport)
	tr.On("Open").Return(s, nil)

	require.NoError(t, mail.CheckConnection(context.Background(), tr))
	s.AssertExpectations(t)

	failing := new(MockTransport)
	failing.On("Open").Return(nil, &config.AuthenticationError{Transport: config.TransportSMTP})
	err := mail.CheckConnection(context.Background(), failing)
	assert.Equal(t, config.ExitCodeAuth, config.ExitCode(err))
}

func TestSendTest(t *testing.T) {
	s := new(MockSession)
	s.On("Send", []string{"ops@example.com"}).Return(nil).Once()
	s.On("Close").Return(nil).Once()
	tr := new(MockTransport)
	tr.On("Open").Return(s, nil)

	require.NoError(t, mail.SendTest(context.Background(), tr, composer(), "ops@example.com"))
	s.AssertExpectations(t)
}

func TestPickupTransport(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "outbox")
	tr := mail.NewPickupTransport(dir)
	assert.Equal(t, config.TransportPickup, tr.Name())

	s, err := tr.Open(context.Background())
	require.NoError(t, err)
	require.NoError(t, s.Send(context.Background(), plainMessage("ada@example.com")))
	require.NoError(t, s.Send(context.Background(), plainMessage("bob@example.com")))
	require.NoError(t, s.Close())

	// A second run continues the numbering.
	s, err = tr.Open(context.Background())
	require.NoError(t, err)
	require.NoError(t, s.Send(context.Background(), plainMessage("eve@example.com")))

	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	var names []string
	for _, e := range entries {
		names = append(names, e.Name())
	}
	assert.Equal(t, []string{
		"0001_ada-example-com.eml",
		"0002_bob-example-com.eml",
		"0003_eve-example-com.eml",
	}, names)

	data, err := os.ReadFile(filepath.Join(dir, names[0]))
	require.NoError(t, err)
	assert.True(t, strings.Contains(string(data), "To: ada@example.com"))

	info, err := os.Stat(filepath.Join(dir, names[0]))
	require.NoError(t, err)
	assert.Equal(t, config.FilePermUserRW, info.Mode().Perm())
}

func TestPickupTransport_GapsNeverOverwrite(t *testing.T) {
	dir := t.TempDir()
	kept := filepath.Join(dir, "0002_bob-example-com.eml")
	require.NoError(t, os.WriteFile(kept, []byte("kept"), 0o600))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "notes.txt"), []byte("x"), 0o600))

	s, err := mail.NewPickupTransport(dir).Open(context.Background())
	require.NoError(t, err)
	require.NoError(t, s.Send(context.Background(), plainMessage("bob@example.com")))

	data, err := os.ReadFile(kept)
	require.NoError(t, err)
	assert.Equal(t, "kept", string(data))
	assert.FileExists(t, filepath.Join(dir, "0003_bob-example-com.eml"))
}

func TestNewTransport(t *testing.T) {
	s := &config.Settings{
		Transport:     config.TransportSMTP,
		TransportHost: "smtp.example.com",
		TransportPort: 587,
		Username:      "hr@example.com",
		Password:      "secret",
		OutputDir:     t.TempDir(),
	}

	tr, err := mail.NewTransport(s, false)
	require.NoError(t, err)
	assert.Equal(t, config.TransportSMTP, tr.Name())

	tr, err = mail.NewTransport(s, true)
	require.NoError(t, err)
	pickup, ok := tr.(*mail.PickupTransport)
	require.True(t, ok, "dry runs never send")
	assert.Equal(t, filepath.Join(s.OutputDir, config.OutboxDirName), pickup.Dir)

	s.Transport = config.TransportGmail
	s.GmailJSON = `{"type": "service_account"}`
	tr, err = mail.NewTransport(s, false)
	require.NoError(t, err)
	assert.Equal(t, config.TransportGmail, tr.Name())

	s.GmailJSON = filepath.Join(t.TempDir(), "missing.json")
	_, err = mail.NewTransport(s, false)
	assert.Equal(t, config.ExitCodeConfig, config.ExitCode(err))

	s.Transport = "carrier-pigeon"
	_, err = mail.NewTransport(s, false)
	assert.Equal(t, config.ExitCodeConfig, config.ExitCode(err))
}
