package live

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"mime"
	"net/http"
	"time"

	"github.com/avast/retry-go/v4"

	"github.com/vbonduro/ecosort/internal/domain"
)

const (
	DefaultAttempts = 5
	DefaultDelay    = 5 * time.Second

	streamPath = "/sse/waste/"
)

// Subscriber keeps a connection to the API's waste event stream and hands
// every received record to a callback.
//
// Reconnection is linear: after a failure it waits a fixed delay and tries
// again, giving up after a bounded number of consecutive failed attempts.
// Any attempt that gets the stream open restores the full budget.
type Subscriber struct {
	url      string
	client   *http.Client
	attempts uint
	delay    time.Duration
	onRecord func(domain.WasteRecord)
	logger   *slog.Logger

	// lastEventID is sent back as Last-Event-ID so the API can replay what
	// was published while disconnected.
	lastEventID string
}

type Option func(*Subscriber)

func WithRetry(attempts uint, delay time.Duration) Option {
	return func(s *Subscriber) {
		s.attempts = attempts
		s.delay = delay
	}
}

func WithHTTPClient(c *http.Client) Option {
	return func(s *Subscriber) { s.client = c }
}

func NewSubscriber(baseURL string, onRecord func(domain.WasteRecord), logger *slog.Logger, opts ...Option) *Subscriber {
	s := &Subscriber{
		url:      baseURL + streamPath,
		client:   &http.Client{},
		attempts: DefaultAttempts,
		delay:    DefaultDelay,
		onRecord: onRecord,
		logger:   logger,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// errStreamClosed marks a stream that was open and then ended. It resets the
// retry budget rather than consuming it.
var errStreamClosed = errors.New("waste stream closed")

// Run blocks until ctx is cancelled or the retry budget is exhausted.
func (s *Subscriber) Run(ctx context.Context) error {
	for {
		err := retry.Do(
			func() error { return s.connect(ctx) },
			retry.Context(ctx),
			retry.Attempts(s.attempts),
			retry.Delay(s.delay),
			retry.DelayType(retry.FixedDelay),
			retry.LastErrorOnly(true),
			retry.RetryIf(func(err error) bool {
				return retry.IsRecoverable(err) && !errors.Is(err, errStreamClosed)
			}),
			retry.OnRetry(func(n uint, err error) {
				if n+1 >= s.attempts {
					return
				}
				s.logger.Warn("waste stream connect failed", "attempt", n+1, "max_attempts", s.attempts, "error", err)
			}),
		)
		if ctx.Err() != nil {
			return ctx.Err()
		}
		if !errors.Is(err, errStreamClosed) {
			s.logger.Error("waste stream giving up", "attempts", s.attempts, "error", err)
			return fmt.Errorf("waste stream: %d attempts failed: %w", s.attempts, err)
		}

		s.logger.Info("waste stream closed, reconnecting", "delay", s.delay)
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(s.delay):
		}
	}
}

// connect opens the stream once and reads it until it ends. It returns
// errStreamClosed when the stream was established, or the connection error
// otherwise.
func (s *Subscriber) connect(ctx context.Context) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, s.url, nil)
	if err != nil {
		return retry.Unrecoverable(fmt.Errorf("failed to create request: %w", err))
	}
	req.Header.Set("Accept", "text/event-stream")
	req.Header.Set("Cache-Control", "no-cache")
	if s.lastEventID != "" {
		req.Header.Set("Last-Event-ID", s.lastEventID)
	}

	resp, err := s.client.Do(req)
	if err != nil {
		return fmt.Errorf("connect waste stream: %w", err)
	}
	defer func() {
		if err := resp.Body.Close(); err != nil {
			s.logger.Debug("failed to close waste stream body", "error", err)
		}
	}()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("waste stream returned status %d", resp.StatusCode)
	}
	if mt, _, err := mime.ParseMediaType(resp.Header.Get("Content-Type")); err != nil || mt != "text/event-stream" {
		return fmt.Errorf("waste stream returned content type %q", resp.Header.Get("Content-Type"))
	}
	s.logger.Info("waste stream connected", "url", s.url)

	err = readEvents(resp.Body, func(ev Event) error {
		if ev.ID != "" {
			s.lastEventID = ev.ID
		}
		if ev.Type != "message" && ev.Type != "waste" {
			return nil
		}
		recs, err := decodeRecords(ev.Data)
		if err != nil {
			s.logger.Warn("skipping malformed waste event", "event_id", ev.ID, "error", err)
			return nil
		}
		for _, rec := range recs {
			s.onRecord(rec)
		}
		return nil
	})
	if err != nil && ctx.Err() == nil {
		s.logger.Warn("waste stream read failed", "error", err)
	}
	return errStreamClosed
}
