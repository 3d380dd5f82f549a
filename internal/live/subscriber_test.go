package live

import (
	"bytes"
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"sync"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vbonduro/ecosort/internal/domain"
)

type recordSink struct {
	mu   sync.Mutex
	recs []domain.WasteRecord
}

func (s *recordSink) add(rec domain.WasteRecord) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.recs = append(s.recs, rec)
}

func (s *recordSink) all() []domain.WasteRecord {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]domain.WasteRecord(nil), s.recs...)
}

// streamServer answers /sse/waste/ with handler and counts requests.
func streamServer(t *testing.T, handler func(n int32, w http.ResponseWriter)) (*httptest.Server, *atomic.Int32) {
	t.Helper()
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != streamPath {
			http.NotFound(w, r)
			return
		}
		handler(calls.Add(1), w)
	}))
	t.Cleanup(srv.Close)
	return srv, &calls
}

func writeEvent(w http.ResponseWriter, id int) {
	w.Header().Set("Content-Type", "text/event-stream")
	w.WriteHeader(http.StatusOK)
	_, _ = fmt.Fprintf(w, "data: {\"id\": %d, \"waste_type\": \"plastic\"}\n\n", id)
	w.(http.Flusher).Flush()
}

func TestSubscriberGivesUpAfterAttempts(t *testing.T) {
	srv, calls := streamServer(t, func(_ int32, w http.ResponseWriter) {
		w.WriteHeader(http.StatusServiceUnavailable)
	})
	sink := &recordSink{}
	sub := NewSubscriber(srv.URL, sink.add, slog.Default(), WithRetry(5, 5*time.Millisecond))

	err := sub.Run(context.Background())

	require.Error(t, err)
	assert.Contains(t, err.Error(), "status 503")
	assert.Equal(t, int32(5), calls.Load())
	assert.Empty(t, sink.all())
}

func TestSubscriberRejectsNonEventStream(t *testing.T) {
	srv, calls := streamServer(t, func(_ int32, w http.ResponseWriter) {
		w.Header().Set("Content-Type", "text/html; charset=utf-8")
		_, _ = fmt.Fprint(w, "<html><body>Sign in</body></html>")
	})
	sub := NewSubscriber(srv.URL, func(domain.WasteRecord) {}, slog.Default(), WithRetry(2, 5*time.Millisecond))

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	err := sub.Run(ctx)

	require.Error(t, err)
	assert.NotErrorIs(t, err, context.DeadlineExceeded)
	assert.Contains(t, err.Error(), "text/html")
	assert.Equal(t, int32(2), calls.Load())
}

func TestSubscriberLogsRetriesOnlyWhenAnotherFollows(t *testing.T) {
	srv, _ := streamServer(t, func(_ int32, w http.ResponseWriter) {
		w.WriteHeader(http.StatusServiceUnavailable)
	})
	var buf bytes.Buffer
	logger := slog.New(slog.NewTextHandler(&buf, nil))
	sub := NewSubscriber(srv.URL, func(domain.WasteRecord) {}, logger, WithRetry(3, time.Millisecond))

	require.Error(t, sub.Run(context.Background()))

	out := buf.String()
	assert.Equal(t, 2, strings.Count(out, "waste stream connect failed"))
	assert.NotContains(t, out, "attempt=3")
	assert.Contains(t, out, "waste stream giving up")
}

func TestSubscriberSendsLastEventIDOnReconnect(t *testing.T) {
	var (
		mu      sync.Mutex
		headers []string
	)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		mu.Lock()
		headers = append(headers, r.Header.Get("Last-Event-ID"))
		n := len(headers)
		mu.Unlock()
		if n > 1 {
			w.WriteHeader(http.StatusServiceUnavailable)
			return
		}
		w.Header().Set("Content-Type", "text/event-stream")
		_, _ = fmt.Fprint(w, "id: 42\ndata: {\"id\": 1}\n\n: keepalive\n\n")
	}))
	t.Cleanup(srv.Close)
	sink := &recordSink{}
	sub := NewSubscriber(srv.URL, sink.add, slog.Default(), WithRetry(2, time.Millisecond))

	require.Error(t, sub.Run(context.Background()))

	mu.Lock()
	defer mu.Unlock()
	require.Len(t, headers, 3)
	assert.Equal(t, []string{"", "42", "42"}, headers)
	assert.Len(t, sink.all(), 1)
}

func TestSubscriberWaitsFixedDelayBetweenAttempts(t *testing.T) {
	srv, calls := streamServer(t, func(_ int32, w http.ResponseWriter) {
		w.WriteHeader(http.StatusBadGateway)
	})
	sub := NewSubscriber(srv.URL, func(domain.WasteRecord) {}, slog.Default(), WithRetry(3, 40*time.Millisecond))

	start := time.Now()
	require.Error(t, sub.Run(context.Background()))

	assert.Equal(t, int32(3), calls.Load())
	// Two waits between three attempts.
	assert.GreaterOrEqual(t, time.Since(start), 80*time.Millisecond)
}

func TestSubscriberSuccessResetsBudget(t *testing.T) {
	srv, calls := streamServer(t, func(n int32, w http.ResponseWriter) {
		if n == 5 {
			writeEvent(w, 42)
			return
		}
		w.WriteHeader(http.StatusServiceUnavailable)
	})
	sink := &recordSink{}
	sub := NewSubscriber(srv.URL, sink.add, slog.Default(), WithRetry(5, time.Millisecond))

	err := sub.Run(context.Background())

	require.Error(t, err)
	// Four failures, one good stream, then a fresh budget of five failures.
	assert.Equal(t, int32(10), calls.Load())
	recs := sink.all()
	require.Len(t, recs, 1)
	assert.Equal(t, int64(42), recs[0].ID)
}

func TestSubscriberReconnectsAfterStreamEnds(t *testing.T) {
	srv, _ := streamServer(t, func(n int32, w http.ResponseWriter) {
		writeEvent(w, int(n))
	})
	sink := &recordSink{}
	sub := NewSubscriber(srv.URL, sink.add, slog.Default(), WithRetry(5, time.Millisecond))

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- sub.Run(ctx) }()

	require.Eventually(t, func() bool { return len(sink.all()) >= 3 }, 2*time.Second, 5*time.Millisecond)
	cancel()

	select {
	case err := <-done:
		assert.ErrorIs(t, err, context.Canceled)
	case <-time.After(2 * time.Second):
		t.Fatal("subscriber did not stop after cancel")
	}
}

func TestSubscriberStopsOnCancelDuringBackoff(t *testing.T) {
	srv, _ := streamServer(t, func(_ int32, w http.ResponseWriter) {
		w.WriteHeader(http.StatusServiceUnavailable)
	})
	sub := NewSubscriber(srv.URL, func(domain.WasteRecord) {}, slog.Default(), WithRetry(5, time.Hour))

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()

	err := sub.Run(ctx)
	assert.ErrorIs(t, err, context.DeadlineExceeded)
}

func TestSubscriberSkipsMalformedEvents(t *testing.T) {
	srv, _ := streamServer(t, func(n int32, w http.ResponseWriter) {
		if n > 1 {
			w.WriteHeader(http.StatusServiceUnavailable)
			return
		}
		w.Header().Set("Content-Type", "text/event-stream")
		_, _ = fmt.Fprint(w, "data: nope\n\nevent: heartbeat\ndata: {}\n\nevent: waste\ndata: {\"id\": 7}\n\n")
	})
	sink := &recordSink{}
	sub := NewSubscriber(srv.URL, sink.add, slog.Default(), WithRetry(1, time.Millisecond))

	require.Error(t, sub.Run(context.Background()))

	recs := sink.all()
	require.Len(t, recs, 1)
	assert.Equal(t, int64(7), recs[0].ID)
}
