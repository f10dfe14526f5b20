package ws

import (
	"context"
	"sync"
	"time"

	"pixelcanvas/internal/domain"
	"pixelcanvas/internal/logger"

	"github.com/prometheus/client_golang/prometheus"
)

var (
	wsClients = prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "ws_clients",
		Help: "Connected websocket clients",
	})
	wsBroadcasts = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "ws_broadcasts_total",
			Help: "Realtime events published",
		},
		[]string{"type"},
	)
	wsDropped = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "ws_dropped_clients_total",
		Help: "Clients disconnected because their send buffer was full",
	})
)

func init() {
	prometheus.MustRegister(wsClients, wsBroadcasts, wsDropped)
}

// Publisher forwards frames to every server instance. RedisRelay implements it.
type Publisher interface {
	Publish(ctx context.Context, msg []byte) error
}

// Hub fans realtime events out to the websocket clients of this process.
// With a relay set, events go through the relay and come back via Broadcast on every instance.
type Hub struct {
	mu      sync.RWMutex
	clients map[*Client]struct{}
	relay   Publisher
}

func NewHub() *Hub {
	return &Hub{clients: make(map[*Client]struct{})}
}

// SetRelay routes published events through p. A nil p restores local broadcast.
func (h *Hub) SetRelay(p Publisher) {
	h.mu.Lock()
	h.relay = p
	h.mu.Unlock()
}

func (h *Hub) Register(c *Client) {
	h.mu.Lock()
	h.clients[c] = struct{}{}
	n := len(h.clients)
	h.mu.Unlock()

	wsClients.Inc()
	logger.Debug("ws client registered", "uid", c.UID, "clients", n)
}

func (h *Hub) Unregister(c *Client) {
	h.mu.Lock()
	_, ok := h.clients[c]
	if ok {
		delete(h.clients, c)
		c.closeSend()
	}
	h.mu.Unlock()

	if ok {
		wsClients.Dec()
	}
}

// ClientCount returns the number of locally connected clients.
func (h *Hub) ClientCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}

// Broadcast queues msg for every local client. Clients that cannot keep up are dropped.
func (h *Hub) Broadcast(msg []byte) {
	var slow []*Client

	h.mu.RLock()
	for c := range h.clients {
		select {
		case c.Send <- msg:
		default:
			slow = append(slow, c)
		}
	}
	h.mu.RUnlock()

	for _, c := range slow {
		wsDropped.Inc()
		logger.Warn("ws client too slow, dropping", "uid", c.UID)
		h.Unregister(c)
	}
}

// SendTo queues msg for one registered client without blocking.
func (h *Hub) SendTo(c *Client, msg []byte) bool {
	h.mu.RLock()
	defer h.mu.RUnlock()

	if _, ok := h.clients[c]; !ok {
		return false
	}
	select {
	case c.Send <- msg:
		return true
	default:
		return false
	}
}

func (h *Hub) PublishPixel(p domain.Pixel) {
	h.publish(MsgPixelPlaced, pixelPayload(p))
}

func (h *Hub) PublishChat(m domain.ChatMessage) {
	h.publish(MsgChatMessage, chatPayload(m))
}

func (h *Hub) publish(typ string, data any) {
	msg, err := encode(typ, data)
	if err != nil {
		logger.Error("encode realtime event", "type", typ, "error", err)
		return
	}
	wsBroadcasts.WithLabelValues(typ).Inc()

	h.mu.RLock()
	relay := h.relay
	h.mu.RUnlock()

	if relay != nil {
		ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		err := relay.Publish(ctx, msg)
		cancel()
		if err == nil {
			return
		}
		// local clients still get the event
		logger.Warn("realtime relay publish failed", "type", typ, "error", err)
	}
	h.Broadcast(msg)
}
