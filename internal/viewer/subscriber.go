package viewer

import (
	"context"
	"encoding/json"
	"net/url"
	"time"

	"pixelcanvas/internal/logger"
	"pixelcanvas/internal/ws"

	"github.com/gorilla/websocket"
)

const (
	minBackoff = time.Second
	maxBackoff = 30 * time.Second
)

// Subscriber feeds realtime placements from the websocket stream into a Renderer,
// reconnecting with exponential backoff until its context ends.
type Subscriber struct {
	URL    string
	Token  string
	Dialer *websocket.Dialer

	// OnChat, when set, receives chat messages.
	OnChat func(ws.ChatPayload)
}

func NewSubscriber(wsURL, token string) *Subscriber {
	return &Subscriber{URL: wsURL, Token: token, Dialer: websocket.DefaultDialer}
}

// Run blocks until ctx is done.
func (s *Subscriber) Run(ctx context.Context, r *Renderer) error {
	backoff := minBackoff
	for {
		connected, err := s.session(ctx, r)
		if ctx.Err() != nil {
			return ctx.Err()
		}
		if connected {
			backoff = minBackoff
		}
		logger.Warn("ws stream lost, reconnecting", "error", err, "in", backoff.String())

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(backoff):
		}
		backoff = min(backoff*2, maxBackoff)
	}
}

// session dials once and reads until the connection fails. connected reports whether the dial succeeded.
func (s *Subscriber) session(ctx context.Context, r *Renderer) (connected bool, err error) {
	target := s.URL
	if s.Token != "" {
		u, err := url.Parse(s.URL)
		if err != nil {
			return false, err
		}
		q := u.Query()
		q.Set("token", s.Token)
		u.RawQuery = q.Encode()
		target = u.String()
	}

	conn, _, err := s.Dialer.DialContext(ctx, target, nil)
	if err != nil {
		return false, err
	}
	defer conn.Close()

	stop := context.AfterFunc(ctx, func() { _ = conn.Close() })
	defer stop()

	// deltas sent while disconnected were missed
	r.RequestRefresh()

	for {
		_, msg, err := conn.ReadMessage()
		if err != nil {
			return true, err
		}
		s.dispatch(r, msg)
	}
}

func (s *Subscriber) dispatch(r *Renderer, msg []byte) {
	var env ws.Envelope
	if err := json.Unmarshal(msg, &env); err != nil {
		logger.Debug("ws bad frame", "error", err)
		return
	}

	switch env.Type {
	case ws.MsgPixelPlaced:
		var p ws.PixelPayload
		if err := json.Unmarshal(env.Data, &p); err != nil {
			logger.Debug("ws bad pixel", "error", err)
			return
		}
		r.ApplyDelta(p.X, p.Y, p.Color)
	case ws.MsgChatMessage:
		if s.OnChat == nil {
			return
		}
		var m ws.ChatPayload
		if err := json.Unmarshal(env.Data, &m); err != nil {
			logger.Debug("ws bad chat", "error", err)
			return
		}
		s.OnChat(m)
	}
}
