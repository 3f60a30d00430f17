package ws

import (
	"encoding/json"
	"log/slog"
	"strings"
	"sync"

	"github.com/splax/cybervault/internal/domain"
)

// TopicAll receives every event regardless of its record kind.
const TopicAll = "*"

// queueSize bounds the events buffered for one subscriber. A subscriber that
// falls this far behind is evicted.
const queueSize = 16

// Subscriber abstracts a streaming client.
type Subscriber interface {
	Send([]byte) error
	Close()
}

// Hub fans record events out to subscribers grouped by topic. A topic is the
// record kind prefix of an event type, such as "did" or "document". Every
// subscriber is written by its own goroutine, so a stalled consumer never
// holds up the hub or its publishers.
type Hub struct {
	clients   map[string]map[Subscriber]*peer
	register  chan subscription
	unreg     chan subscription
	broadcast chan message
	done      chan struct{}
	closeOnce sync.Once
	log       *slog.Logger
}

type message struct {
	topic   string
	payload []byte
}

type subscription struct {
	topic  string
	client Subscriber
}

// peer owns the send queue of one subscription.
type peer struct {
	sub   Subscriber
	queue chan []byte
}

// NewHub creates a running Hub.
func NewHub(logger *slog.Logger) *Hub {
	if logger == nil {
		logger = slog.Default()
	}
	h := &Hub{
		clients:   make(map[string]map[Subscriber]*peer),
		register:  make(chan subscription),
		unreg:     make(chan subscription),
		broadcast: make(chan message, 64),
		done:      make(chan struct{}),
		log:       logger,
	}
	go h.run()
	return h
}

// TopicOf returns the topic an event type belongs to.
func TopicOf(eventType string) string {
	if i := strings.IndexByte(eventType, '.'); i > 0 {
		return eventType[:i]
	}
	return eventType
}

func (h *Hub) run() {
	for {
		select {
		case <-h.done:
			for _, peers := range h.clients {
				for _, p := range peers {
					close(p.queue)
				}
			}
			h.clients = nil
			return
		case sub := <-h.register:
			peers, ok := h.clients[sub.topic]
			if !ok {
				peers = make(map[Subscriber]*peer)
				h.clients[sub.topic] = peers
			}
			if _, dup := peers[sub.client]; dup {
				continue
			}
			p := &peer{sub: sub.client, queue: make(chan []byte, queueSize)}
			peers[sub.client] = p
			go h.pump(sub.topic, p)
		case sub := <-h.unreg:
			h.drop(sub.topic, sub.client)
		case msg := <-h.broadcast:
			h.deliver(msg.topic, msg.payload)
			if msg.topic != TopicAll {
				h.deliver(TopicAll, msg.payload)
			}
		}
	}
}

// pump writes queued events to one subscriber until its queue is closed or a
// write fails. The subscriber is always closed on exit.
func (h *Hub) pump(topic string, p *peer) {
	defer p.sub.Close()
	for payload := range p.queue {
		if err := p.sub.Send(payload); err != nil {
			h.Unregister(topic, p.sub)
			return
		}
	}
}

func (h *Hub) deliver(topic string, payload []byte) {
	for c, p := range h.clients[topic] {
		select {
		case p.queue <- payload:
		default:
			h.log.Warn("event subscriber evicted", "topic", topic, "queued", len(p.queue))
			h.drop(topic, c)
			// Closing unblocks a write stuck on the connection.
			go c.Close()
		}
	}
}

func (h *Hub) drop(topic string, client Subscriber) {
	peers, ok := h.clients[topic]
	if !ok {
		return
	}
	if p, ok := peers[client]; ok {
		close(p.queue)
		delete(peers, client)
	}
	if len(peers) == 0 {
		delete(h.clients, topic)
	}
}

// Register adds a client to a topic stream.
func (h *Hub) Register(topic string, client Subscriber) {
	select {
	case h.register <- subscription{topic: topic, client: client}:
	case <-h.done:
		client.Close()
	}
}

// Unregister removes a client.
func (h *Hub) Unregister(topic string, client Subscriber) {
	select {
	case h.unreg <- subscription{topic: topic, client: client}:
	case <-h.done:
	}
}

// Publish encodes event and queues it for every subscriber of its topic.
func (h *Hub) Publish(event domain.Event) {
	payload, err := json.Marshal(event)
	if err != nil {
		h.log.Warn("event encode failed", "type", event.Type, "error", err)
		return
	}
	select {
	case h.broadcast <- message{topic: TopicOf(event.Type), payload: payload}:
	case <-h.done:
	}
}

// Close stops the hub and closes every subscriber.
func (h *Hub) Close() {
	h.closeOnce.Do(func() { close(h.done) })
}
