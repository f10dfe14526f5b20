package ws

import (
	"time"

	"pixelcanvas/internal/domain"
)

// server → client
type PixelPayload struct {
	X     int    `json:"x"`
	Y     int    `json:"y"`
	Color string `json:"color"`
	Owner string `json:"owner"`
}

func pixelPayload(p domain.Pixel) PixelPayload {
	return PixelPayload{X: p.X, Y: p.Y, Color: p.Color, Owner: p.Owner}
}

type ChatPayload struct {
	ID        string    `json:"id"`
	From      string    `json:"from"`
	FromName  string    `json:"fromName"`
	Text      string    `json:"text"`
	CreatedAt time.Time `json:"createdAt"`
}

func chatPayload(m domain.ChatMessage) ChatPayload {
	return ChatPayload{ID: m.ID, From: m.From, FromName: m.FromName, Text: m.Text, CreatedAt: m.CreatedAt}
}
