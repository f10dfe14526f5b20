package ws

import "encoding/json"

const (
	// client - server
	MsgPing = "ping"

	// server - client
	MsgReady       = "ready"
	MsgPong        = "pong"
	MsgPixelPlaced = "pixelPlaced"
	MsgChatMessage = "chatMessage"
)

// Envelope is the frame format in both directions.
type Envelope struct {
	Type string          `json:"type"`
	Data json.RawMessage `json:"data,omitempty"`
}

func encode(typ string, data any) ([]byte, error) {
	raw, err := json.Marshal(data)
	if err != nil {
		return nil, err
	}
	return json.Marshal(Envelope{Type: typ, Data: raw})
}
