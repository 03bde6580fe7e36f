package mail

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/tartampluch/go-greetings/internal/config"
	"github.com/tartampluch/go-greetings/internal/render"
	"gopkg.in/gomail.v2"
)

const emlExt = ".eml"

// PickupTransport writes every message as an .eml file instead of sending it.
// It backs --dry-run and is handy for inspecting the MIME output.
type PickupTransport struct {
	Dir string
}

func NewPickupTransport(dir string) *PickupTransport {
	return &PickupTransport{Dir: dir}
}

func (t *PickupTransport) Name() string { return config.TransportPickup }

// Open creates the directory. Numbering continues after the highest file
// left by earlier runs.
func (t *PickupTransport) Open(ctx context.Context) (Session, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if err := os.MkdirAll(t.Dir, config.DirPermUserRWX); err != nil {
		return nil, fmt.Errorf("%s: %w", config.ErrCreateDir, err)
	}
	entries, err := os.ReadDir(t.Dir)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", config.ErrTransportOpen, err)
	}
	seq := 0
	for _, e := range entries {
		if e.IsDir() || !strings.HasSuffix(e.Name(), emlExt) {
			continue
		}
		prefix, _, _ := strings.Cut(e.Name(), "_")
		if n, err := strconv.Atoi(prefix); err == nil && n > seq {
			seq = n
		}
	}

	slog.Info(config.MsgSessionOpen,
		config.LogKeyComponent, config.CompMail,
		config.LogKeyTransport, config.TransportPickup,
		config.LogKeyPath, t.Dir,
	)
	return &pickupSession{dir: t.Dir, seq: seq}, nil
}

type pickupSession struct {
	dir string
	seq int
}

func (s *pickupSession) Send(ctx context.Context, msg *gomail.Message) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	s.seq++
	to := strings.Join(msg.GetHeader(config.HeaderTo), ",")
	path := filepath.Join(s.dir, fmt.Sprintf(config.FormatPickupFile, s.seq, render.SanitizeName(to)))

	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_EXCL, config.FilePermUserRW)
	if err != nil {
		return fmt.Errorf("%s: %w", config.ErrPickupWrite, err)
	}
	if _, err := msg.WriteTo(f); err != nil {
		_ = f.Close()
		return fmt.Errorf("%s: %w", config.ErrPickupWrite, err)
	}
	if err := f.Close(); err != nil {
		return fmt.Errorf("%s: %w", config.ErrPickupWrite, err)
	}

	slog.Debug(config.MsgPickupWritten,
		config.LogKeyComponent, config.CompMail,
		config.LogKeyFile, path,
	)
	return nil
}

func (s *pickupSession) Close() error { return nil }
