package ws

import (
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/splax/cybervault/internal/domain"
)

type recordingSubscriber struct {
	mu       sync.Mutex
	payloads [][]byte
	fail     bool
	closed   bool
	got      chan struct{}
}

func newRecordingSubscriber() *recordingSubscriber {
	return &recordingSubscriber{got: make(chan struct{}, 16)}
}

func (s *recordingSubscriber) Send(payload []byte) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.fail {
		return errors.New("broken pipe")
	}
	s.payloads = append(s.payloads, payload)
	s.got <- struct{}{}
	return nil
}

func (s *recordingSubscriber) Close() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.closed = true
}

func (s *recordingSubscriber) wait(t *testing.T) {
	t.Helper()
	select {
	case <-s.got:
	case <-time.After(2 * time.Second):
		t.Fatalf("timed out waiting for event")
	}
}

func TestTopicOf(t *testing.T) {
	cases := map[string]string{
		domain.EventDIDRegistered:     "did",
		domain.EventDIDStatusUpdated:  "did",
		domain.EventDocumentNotarized: "document",
		"plain":                       "plain",
	}
	for in, want := range cases {
		if got := TopicOf(in); got != want {
			t.Fatalf("TopicOf(%q) = %q, want %q", in, got, want)
		}
	}
}

func TestHubRoutesByTopic(t *testing.T) {
	hub := NewHub(slog.New(slog.NewTextHandler(io.Discard, nil)))
	defer hub.Close()

	dids := newRecordingSubscriber()
	all := newRecordingSubscriber()
	docs := newRecordingSubscriber()
	hub.Register("did", dids)
	hub.Register(TopicAll, all)
	hub.Register("document", docs)

	hub.Publish(domain.Event{Type: domain.EventDIDRegistered, Payload: map[string]string{"did": "did:cyber:alice"}})
	dids.wait(t)
	all.wait(t)

	var decoded domain.Event
	if err := json.Unmarshal(dids.payloads[0], &decoded); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if decoded.Type != domain.EventDIDRegistered {
		t.Fatalf("unexpected event %+v", decoded)
	}

	hub.Publish(domain.Event{Type: domain.EventDocumentNotarized})
	docs.wait(t)
	all.wait(t)

	dids.mu.Lock()
	defer dids.mu.Unlock()
	if len(dids.payloads) != 1 {
		t.Fatalf("did subscriber received %d events", len(dids.payloads))
	}
}

func TestHubDropsFailingSubscribers(t *testing.T) {
	hub := NewHub(slog.New(slog.NewTextHandler(io.Discard, nil)))
	broken := newRecordingSubscriber()
	broken.fail = true
	healthy := newRecordingSubscriber()
	hub.Register(TopicAll, broken)
	hub.Register(TopicAll, healthy)

	hub.Publish(domain.Event{Type: domain.EventDIDRegistered})
	healthy.wait(t)
	hub.Close()

	deadline := time.Now().Add(2 * time.Second)
	for {
		broken.mu.Lock()
		closed := broken.closed
		broken.mu.Unlock()
		if closed {
			break
		}
		if time.Now().After(deadline) {
			t.Fatalf("expected failing subscriber to be closed")
		}
		time.Sleep(10 * time.Millisecond)
	}

	// Publishing after close must not block.
	hub.Publish(domain.Event{Type: domain.EventDIDRegistered})
}

// stalledSubscriber blocks in Send until it is closed.
type stalledSubscriber struct {
	release chan struct{}
	once    sync.Once
}

func (s *stalledSubscriber) Send([]byte) error {
	<-s.release
	return io.EOF
}

func (s *stalledSubscriber) Close() {
	s.once.Do(func() { close(s.release) })
}

func TestHubStalledSubscriberDoesNotBlockPublishers(t *testing.T) {
	hub := NewHub(slog.New(slog.NewTextHandler(io.Discard, nil)))
	defer hub.Close()

	stalled := &stalledSubscriber{release: make(chan struct{})}
	hub.Register(TopicAll, stalled)

	published := make(chan struct{})
	go func() {
		defer close(published)
		for i := 0; i < 200; i++ {
			hub.Publish(domain.Event{Type: domain.EventDocumentNotarized})
		}
	}()
	select {
	case <-published:
	case <-time.After(2 * time.Second):
		t.Fatalf("publishers blocked behind a stalled subscriber")
	}

	select {
	case <-stalled.release:
	case <-time.After(2 * time.Second):
		t.Fatalf("expected stalled subscriber to be evicted and closed")
	}

	healthy := newRecordingSubscriber()
	hub.Register("did", healthy)
	hub.Publish(domain.Event{Type: domain.EventDIDRegistered})
	healthy.wait(t)
}

func TestSSEClientConcurrentWrites(t *testing.T) {
	rec := httptest.NewRecorder()
	client := NewSSEClient(rec, rec, slog.New(slog.NewTextHandler(io.Discard, nil)))

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(2)
		go func() {
			defer wg.Done()
			_ = client.Send([]byte(`{}`))
		}()
		go func() {
			defer wg.Done()
			_ = client.Heartbeat()
		}()
	}
	wg.Wait()

	body := rec.Body.String()
	if got := strings.Count(body, "data: {}\n\n"); got != 8 {
		t.Fatalf("expected 8 data frames, got %d in %q", got, body)
	}
	if got := strings.Count(body, ": ping\n\n"); got != 8 {
		t.Fatalf("expected 8 ping frames, got %d", got)
	}
}

func TestSSEClientFrames(t *testing.T) {
	rec := httptest.NewRecorder()
	client := NewSSEClient(rec, rec, slog.New(slog.NewTextHandler(io.Discard, nil)))

	if err := client.Send([]byte(`{"type":"did.registered"}`)); err != nil {
		t.Fatalf("send: %v", err)
	}
	if err := client.Heartbeat(); err != nil {
		t.Fatalf("heartbeat: %v", err)
	}
	if err := client.Comment("subscribed did"); err != nil {
		t.Fatalf("comment: %v", err)
	}
	body := rec.Body.String()
	if !strings.Contains(body, "data: {\"type\":\"did.registered\"}\n\n") || !strings.Contains(body, ": ping\n\n") || !strings.Contains(body, ": subscribed did\n\n") {
		t.Fatalf("unexpected body %q", body)
	}

	client.Close()
	select {
	case <-client.Done():
	default:
		t.Fatalf("expected done channel closed")
	}
	if err := client.Send([]byte("x")); !errors.Is(err, io.EOF) {
		t.Fatalf("expected EOF after close, got %v", err)
	}
}
