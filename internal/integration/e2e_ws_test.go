package integration

import (
	"context"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"pixelcanvas/internal/config"
	httpserver "pixelcanvas/internal/http"
	"pixelcanvas/internal/http/handlers"
	"pixelcanvas/internal/http/middleware"
	"pixelcanvas/internal/repository"
	"pixelcanvas/internal/service"
	"pixelcanvas/internal/viewer"
	"pixelcanvas/internal/ws"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/jonboulle/clockwork"
)

// A placement made over HTTP reaches a second viewer's tile cache through the websocket stream.
func TestE2EPlacementReachesViewer(t *testing.T) {
	pool := openPool(t)
	gin.SetMode(gin.TestMode)
	service.InitJWT("e2e-secret")
	middleware.SetRedisClient(nil)

	clock := clockwork.NewRealClock()
	users := repository.NewUserRepository(pool)
	pixels := repository.NewPixelRepository(pool)
	audit := service.NewAuditService(repository.NewAuditRepository(pool))
	hub := ws.NewHub()

	cfg := &config.Config{
		Cooldown:        10 * time.Second,
		APIRateLimit:    1000,
		APIRateWindow:   time.Minute,
		PlaceRateLimit:  1000,
		PlaceRateWindow: time.Minute,
		ChatRateLimit:   1000,
		ChatRateWindow:  time.Minute,
	}
	h := &handlers.Handler{
		Placement:   service.NewPlacementService(pixels, hub, clock, cfg.Cooldown),
		Pixels:      pixels,
		Leaderboard: service.NewLeaderboardService(repository.NewStatsRepository(pool), users, clock),
		Users:       service.NewUserService(users, audit, 5),
		Chat:        service.NewChatService(repository.NewChatRepository(pool), hub),
		Payments:    service.NewPaymentService(users, nil, audit, service.PriceCatalog{}, clock),
		Admin:       service.NewAdminService(users, repository.NewStatsRepository(pool), audit, clock),
		AppVersion:  "e2e",
	}
	srv := httptest.NewServer(httpserver.NewRouter(httpserver.Deps{
		Handler: h,
		Health:  handlers.NewHealthHandler("e2e", map[string]handlers.Pinger{"database": pool}, hub.ClientCount),
		Hub:     hub,
		Config:  cfg,
	}))
	defer srv.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	uid := "e2e-" + uuid.NewString()
	if _, err := h.Users.Provision(ctx, service.Identity{UID: uid, Name: "E2E"}, service.ProfileUpdate{}); err != nil {
		t.Fatalf("provision: %v", err)
	}
	t.Cleanup(func() { _ = users.Delete(context.Background(), uid) })
	token, err := service.GenerateJWT(service.Identity{UID: uid, Name: "E2E"})
	if err != nil {
		t.Fatalf("token: %v", err)
	}

	x, y := freeCell()

	// the watching viewer is anonymous and centered on the target cell
	watcher := viewer.NewRenderer(viewer.Config{
		Width: 64, Height: 64, Zoom: 1,
		CenterX: float64(x) + 0.5, CenterY: float64(y) + 0.5,
	}, viewer.NewAPIClient(srv.URL, ""), clockwork.NewRealClock())
	defer watcher.Close()
	watcher.RequestFetch()
	watcher.FlushFetch()
	if watcher.CachedTiles() == 0 {
		t.Fatalf("watcher loaded no tiles")
	}

	sub := viewer.NewSubscriber("ws"+strings.TrimPrefix(srv.URL, "http")+"/ws", "")
	subCtx, stopSub := context.WithCancel(ctx)
	defer stopSub()
	go func() { _ = sub.Run(subCtx, watcher) }()

	deadline := time.Now().Add(3 * time.Second)
	for hub.ClientCount() == 0 && time.Now().Before(deadline) {
		time.Sleep(10 * time.Millisecond)
	}
	if hub.ClientCount() == 0 {
		t.Fatalf("subscriber never connected")
	}

	placer := viewer.NewAPIClient(srv.URL, token)
	res, err := placer.Place(ctx, x, y, "#C0FFEE")
	if err != nil {
		t.Fatalf("place: %v", err)
	}
	if res.CooldownUntil == 0 {
		t.Fatalf("missing cooldownUntil")
	}

	for time.Now().Before(deadline.Add(2 * time.Second)) {
		if c, ok := watcher.Cell(x, y); ok && c == "#C0FFEE" {
			return
		}
		time.Sleep(10 * time.Millisecond)
	}
	t.Fatalf("watcher never saw the placement")
}
