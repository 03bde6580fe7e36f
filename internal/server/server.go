// Package server publishes upcoming occasions as an iCalendar feed on localhost.
package server

import (
	"bytes"
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net"
	"net/http"
	"sync/atomic"
	"time"

	"github.com/tartampluch/go-greetings/internal/config"
)

// FeedSource renders the calendar served by the feed.
type FeedSource interface {
	Calendar(ctx context.Context) ([]byte, error)
}

// FeedSourceFunc adapts a function to FeedSource.
type FeedSourceFunc func(ctx context.Context) ([]byte, error)

func (f FeedSourceFunc) Calendar(ctx context.Context) ([]byte, error) { return f(ctx) }

// cacheItem stores the rendered calendar and its metadata for HTTP caching.
type cacheItem struct {
	data         []byte
	etag         string
	lastModified string // RFC1123, as HTTP requires
}

// CalendarServer serves the latest calendar and refreshes it from Source.
type CalendarServer struct {
	Port     string
	Source   FeedSource
	Interval time.Duration
	Now      func() time.Time

	// Reads vastly outnumber refreshes, so the item is swapped atomically.
	cache atomic.Pointer[cacheItem]
}

// NewCalendarServer returns a server refreshing from src every hour.
func NewCalendarServer(port string, src FeedSource) *CalendarServer {
	return &CalendarServer{
		Port:     port,
		Source:   src,
		Interval: config.FeedRefreshInterval,
		Now:      time.Now,
	}
}

// Start listens on the loopback interface and blocks until ctx is cancelled.
func (s *CalendarServer) Start(ctx context.Context) error {
	if s.Port == "" {
		return errors.New(config.ErrPortRequired)
	}
	ln, err := net.Listen("tcp", config.LocalhostBindAddr+config.AddrSeparator+s.Port)
	if err != nil {
		return fmt.Errorf("%s: %w", config.ErrServerStartup, err)
	}
	return s.Serve(ctx, ln)
}

// Serve answers on ln, refreshing the calendar in the background, until ctx
// is cancelled. Requests get 503 until the first refresh succeeds.
func (s *CalendarServer) Serve(ctx context.Context, ln net.Listener) error {
	srv := &http.Server{
		Handler:      s.Handler(),
		ReadTimeout:  config.ServerReadTimeout,
		WriteTimeout: config.ServerWriteTimeout,
		IdleTimeout:  config.ServerIdleTimeout,
	}

	serverError := make(chan error, config.ChannelBufferSize)
	go func() {
		slog.Info(config.MsgServerListen,
			config.LogKeyComponent, config.CompServer,
			config.LogKeyURL, "http://"+ln.Addr().String()+config.RouteCalendar,
		)
		if err := srv.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serverError <- err
		}
	}()

	refreshCtx, stopRefresh := context.WithCancel(ctx)
	defer stopRefresh()
	if s.Source != nil {
		go s.refreshLoop(refreshCtx)
	}

	select {
	case <-ctx.Done():
		slog.Info(config.MsgServerStop, config.LogKeyComponent, config.CompServer)
		shutdownCtx, cancel := context.WithTimeout(context.Background(), config.ShutdownTimeout)
		defer cancel()

		if err := srv.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("%s: %w", config.ErrServerShutdown, err)
		}
		return nil

	case err := <-serverError:
		return fmt.Errorf("%s: %w", config.ErrServerStartup, err)
	}
}

func (s *CalendarServer) refreshLoop(ctx context.Context) {
	_ = s.Refresh(ctx)
	if s.Interval <= 0 {
		return
	}
	ticker := time.NewTicker(s.Interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			_ = s.Refresh(ctx)
		}
	}
}

// Refresh rebuilds the calendar from Source. On failure the previous
// calendar keeps being served.
func (s *CalendarServer) Refresh(ctx context.Context) error {
	data, err := s.Source.Calendar(ctx)
	if err != nil {
		slog.Warn(config.MsgFeedRefresh,
			config.LogKeyComponent, config.CompServer,
			config.LogKeyError, err,
		)
		return err
	}
	s.Update(data)
	return nil
}

// Update atomically replaces the served content. Last-Modified only moves
// when the content actually changes.
func (s *CalendarServer) Update(data []byte) {
	hash := sha256.Sum256(data)
	etag := fmt.Sprintf(config.FormatETag, hex.EncodeToString(hash[:]))

	if prev := s.cache.Load(); prev != nil && prev.etag == etag {
		return
	}

	now := time.Now
	if s.Now != nil {
		now = s.Now
	}
	s.cache.Store(&cacheItem{
		data:         data,
		etag:         etag,
		lastModified: now().UTC().Format(http.TimeFormat),
	})

	slog.Debug(config.MsgCacheUpdated,
		config.LogKeyComponent, config.CompServer,
		config.LogKeySizeBytes, len(data),
		config.LogKeyETag, etag,
	)
}

// Handler serves the feed on / and /occasions.ics.
func (s *CalendarServer) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc(config.RouteRoot, s.handleCalendarRequest)
	mux.HandleFunc(config.RouteCalendar, s.handleCalendarRequest)
	return mux
}

// handleCalendarRequest serves the ICS content with HTTP caching support.
func (s *CalendarServer) handleCalendarRequest(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet && r.Method != http.MethodHead {
		w.Header().Set(config.HeaderAllow, config.AllowedMethods)
		http.Error(w, config.HTTPMsgMethodNotAll, http.StatusMethodNotAllowed)
		return
	}
	if r.URL.Path != config.RouteRoot && r.URL.Path != config.RouteCalendar {
		http.NotFound(w, r)
		return
	}

	item := s.cache.Load()
	if item == nil {
		w.Header().Set(config.HeaderRetryAfter, config.RetryAfterSeconds)
		http.Error(w, config.HTTPMsgInitializing, http.StatusServiceUnavailable)
		return
	}

	w.Header().Set(config.HeaderContentType, config.MimeTextCalendar)
	w.Header().Set(config.HeaderXContentType, config.MimeNoSniff)
	w.Header().Set(config.HeaderCacheControl, config.CacheControlPrivate)
	w.Header().Set(config.HeaderETag, item.etag)
	w.Header().Set(config.HeaderLastModified, item.lastModified)

	if match := r.Header.Get(config.HeaderIfNoneMatch); match == item.etag {
		w.WriteHeader(http.StatusNotModified)
		return
	}

	if since := r.Header.Get(config.HeaderIfModifiedSince); since != "" {
		clientTime, err1 := time.Parse(http.TimeFormat, since)
		serverTime, err2 := time.Parse(http.TimeFormat, item.lastModified)
		if err1 == nil && err2 == nil && !serverTime.After(clientTime) {
			w.WriteHeader(http.StatusNotModified)
			return
		}
	}

	if r.Method == http.MethodGet {
		if _, err := io.Copy(w, bytes.NewReader(item.data)); err != nil {
			slog.Error(config.ErrWriteResp,
				config.LogKeyComponent, config.CompServer,
				config.LogKeyError, err,
			)
		}
	}
}
