package httpx

import (
	"net/http"
	"strings"
	"time"

	"github.com/splax/cybervault/internal/ws"
)

func eventTopic(req *http.Request) string {
	topic := strings.TrimSpace(req.URL.Query().Get("topic"))
	if topic == "" {
		return ws.TopicAll
	}
	return topic
}

func (r *Router) handleEventsWS(w http.ResponseWriter, req *http.Request) {
	if r.hub == nil {
		writeError(w, http.StatusServiceUnavailable, "event stream unavailable")
		return
	}
	topic := eventTopic(req)
	conn, err := r.upgrader.Upgrade(w, req, nil)
	if err != nil {
		r.logger.Error("websocket upgrade failed", "error", err)
		return
	}
	client := ws.NewClient(conn, r.logger)
	r.hub.Register(topic, client)
	closed := make(chan struct{})
	go func() {
		defer func() {
			close(closed)
			r.hub.Unregister(topic, client)
			client.Close()
		}()
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				break
			}
		}
	}()
	go r.pingWS(client, closed)
}

// pingWS keeps the websocket alive through idle proxies until closed fires
// or a ping fails.
func (r *Router) pingWS(client *ws.Client, closed <-chan struct{}) {
	ticker := time.NewTicker(r.heartbeat)
	defer ticker.Stop()
	for {
		select {
		case <-closed:
			return
		case <-ticker.C:
			if err := client.Ping(); err != nil {
				client.Close()
				return
			}
		}
	}
}

func (r *Router) handleEventsSSE(w http.ResponseWriter, req *http.Request) {
	if r.hub == nil {
		writeError(w, http.StatusServiceUnavailable, "event stream unavailable")
		return
	}
	flusher, ok := w.(http.Flusher)
	if !ok {
		writeError(w, http.StatusInternalServerError, "streaming unsupported")
		return
	}
	topic := eventTopic(req)
	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.Header().Set("X-Accel-Buffering", "no")

	// The response is committed before the client is shared with the hub;
	// afterwards every write goes through the client's lock.
	w.WriteHeader(http.StatusOK)
	flusher.Flush()

	client := ws.NewSSEClient(w, flusher, r.logger)
	r.hub.Register(topic, client)
	defer func() {
		r.hub.Unregister(topic, client)
		client.Close()
	}()
	if err := client.Comment("subscribed " + topic); err != nil {
		return
	}

	ticker := time.NewTicker(r.heartbeat)
	defer ticker.Stop()
	for {
		select {
		case <-req.Context().Done():
			return
		case <-client.Done():
			return
		case <-ticker.C:
			if err := client.Heartbeat(); err != nil {
				return
			}
		}
	}
}
