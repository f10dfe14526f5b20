package main

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"os"
	"time"

	"pixelcanvas/internal/logger"
	"pixelcanvas/internal/service"
	"pixelcanvas/internal/viewer"
	"pixelcanvas/internal/ws"

	"github.com/gorilla/websocket"
	"github.com/joho/godotenv"
)

// Places one pixel as user A against a running server and checks that user B's socket sees it.
func main() {
	_ = godotenv.Load()
	logger.Init("debug", false)

	jwtSecret := os.Getenv("JWT_SECRET")
	if jwtSecret == "" {
		logger.Fatal("JWT_SECRET not set")
	}
	port := os.Getenv("APP_PORT")
	if port == "" {
		port = "8080"
	}
	// use 127.0.0.1 to prefer IPv4 (avoid resolving to [::1])
	base := "http://127.0.0.1:" + port

	service.InitJWT(jwtSecret)
	tokenA := mustToken(service.Identity{UID: "smokeA", Name: "Smoke A"})
	tokenB := mustToken(service.Identity{UID: "smokeB", Name: "Smoke B"})

	provision(base, tokenA)
	provision(base, tokenB)

	connB, _, err := websocket.DefaultDialer.Dial(fmt.Sprintf("ws://127.0.0.1:%s/ws?token=%s", port, tokenB), nil)
	if err != nil {
		logger.Fatal("dial B", "error", err)
	}
	defer connB.Close()

	// first frame is the ready handshake
	_ = connB.SetReadDeadline(time.Now().Add(2 * time.Second))
	if _, msg, err := connB.ReadMessage(); err != nil {
		logger.Fatal("ready B", "error", err)
	} else {
		logger.Info("B connected", "frame", string(msg))
	}

	x, y, color := int(time.Now().UnixNano()%1000), 7, "#FF00AA"
	api := viewer.NewAPIClient(base, tokenA)
	res, err := api.Place(context.Background(), x, y, color)
	if err != nil {
		logger.Fatal("place A", "error", err)
	}
	logger.Info("A placed", "x", x, "y", y, "cooldown_until", res.CooldownUntil)

	deadline := time.Now().Add(3 * time.Second)
	for time.Now().Before(deadline) {
		_ = connB.SetReadDeadline(deadline)
		_, msg, err := connB.ReadMessage()
		if err != nil {
			logger.Fatal("B read error", "error", err)
		}
		var env ws.Envelope
		if err := json.Unmarshal(msg, &env); err != nil || env.Type != ws.MsgPixelPlaced {
			continue
		}
		var p ws.PixelPayload
		_ = json.Unmarshal(env.Data, &p)
		if p.X == x && p.Y == y && p.Color == color && p.Owner == "smokeA" {
			logger.Info("smoke ok", "pixel", p)
			return
		}
	}
	logger.Fatal("broadcast not observed")
}

func mustToken(id service.Identity) string {
	tok, err := service.GenerateJWT(id)
	if err != nil {
		logger.Fatal("gen token", "uid", id.UID, "error", err)
	}
	return tok
}

func provision(base, token string) {
	req, _ := http.NewRequest(http.MethodPost, base+"/api/users/create", bytes.NewReader([]byte(`{}`)))
	req.Header.Set("Authorization", "Bearer "+token)
	req.Header.Set("Content-Type", "application/json")
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		logger.Fatal("provision", "error", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK && resp.StatusCode != http.StatusCreated {
		logger.Fatal("provision", "status", resp.StatusCode)
	}
}
