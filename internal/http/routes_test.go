package http

import (
	"bytes"
	"context"
	"encoding/json"
	nethttp "net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"pixelcanvas/internal/config"
	"pixelcanvas/internal/domain"
	"pixelcanvas/internal/http/handlers"
	"pixelcanvas/internal/http/middleware"
	"pixelcanvas/internal/repository"
	"pixelcanvas/internal/service"

	"github.com/gin-gonic/gin"
	"github.com/jonboulle/clockwork"
)

type apiFixture struct {
	t      *testing.T
	store  *repository.MemoryStore
	clock  *clockwork.FakeClock
	router *gin.Engine
}

func newAPIFixture(t *testing.T) *apiFixture {
	t.Helper()
	gin.SetMode(gin.TestMode)
	service.InitJWT("routes-test-secret")
	middleware.SetRedisClient(nil)

	clock := clockwork.NewFakeClockAt(time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC))
	store := repository.NewMemoryStore(clock)
	audit := service.NewAuditService(store)

	cfg := &config.Config{
		DevMode:         true,
		Cooldown:        10 * time.Second,
		APIRateLimit:    1000,
		APIRateWindow:   time.Minute,
		PlaceRateLimit:  1000,
		PlaceRateWindow: time.Minute,
		ChatRateLimit:   1000,
		ChatRateWindow:  time.Minute,
	}

	h := &handlers.Handler{
		Placement:   service.NewPlacementService(store, nil, clock, cfg.Cooldown),
		Pixels:      store,
		Leaderboard: service.NewLeaderboardService(store, store, clock),
		Users:       service.NewUserService(store, audit, 1),
		Chat:        service.NewChatService(store, nil),
		Payments:    service.NewPaymentService(store, nil, audit, service.PriceCatalog{}, clock),
		Admin:       service.NewAdminService(store, store, audit, clock),
		DevMode:     true,
		AppVersion:  "test",
	}

	router := NewRouter(Deps{
		Handler: h,
		Health:  handlers.NewHealthHandler("test", nil, nil),
		Config:  cfg,
	})
	return &apiFixture{t: t, store: store, clock: clock, router: router}
}

func (f *apiFixture) token(uid, name string) string {
	f.t.Helper()
	tok, err := service.GenerateJWT(service.Identity{UID: uid, Name: name})
	if err != nil {
		f.t.Fatalf("token: %v", err)
	}
	return tok
}

func (f *apiFixture) do(method, path, token string, body any) *httptest.ResponseRecorder {
	f.t.Helper()
	var buf bytes.Buffer
	if body != nil {
		if err := json.NewEncoder(&buf).Encode(body); err != nil {
			f.t.Fatalf("encode: %v", err)
		}
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	w := httptest.NewRecorder()
	f.router.ServeHTTP(w, req)
	return w
}

func decode[T any](t *testing.T, w *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	if err := json.Unmarshal(w.Body.Bytes(), &v); err != nil {
		t.Fatalf("decode %q: %v", w.Body.String(), err)
	}
	return v
}

func (f *apiFixture) provision(uid, name string) string {
	f.t.Helper()
	tok := f.token(uid, name)
	if w := f.do(nethttp.MethodPost, "/api/users/create", tok, nil); w.Code != nethttp.StatusOK {
		f.t.Fatalf("create %s: %d %s", uid, w.Code, w.Body.String())
	}
	return tok
}

func TestPlaceStatusCodes(t *testing.T) {
	f := newAPIFixture(t)
	tok := f.provision("alice", "Alice")

	if w := f.do(nethttp.MethodPost, "/api/pixels/place", "", gin.H{"x": 1, "y": 1, "color": "#FF0000"}); w.Code != nethttp.StatusUnauthorized {
		t.Fatalf("anonymous = %d", w.Code)
	}

	w := f.do(nethttp.MethodPost, "/api/pixels/place", tok, gin.H{"x": 10, "y": 20, "color": "#FF0000"})
	if w.Code != nethttp.StatusOK {
		t.Fatalf("place = %d %s", w.Code, w.Body.String())
	}
	ok := decode[struct {
		Success       bool  `json:"success"`
		CooldownUntil int64 `json:"cooldownUntil"`
	}](t, w)
	if !ok.Success || ok.CooldownUntil != f.clock.Now().UnixMilli()+10000 {
		t.Fatalf("body = %+v", ok)
	}

	f.clock.Advance(4 * time.Second)
	w = f.do(nethttp.MethodPost, "/api/pixels/place", tok, gin.H{"x": 11, "y": 20, "color": "#FF0000"})
	if w.Code != nethttp.StatusTooManyRequests {
		t.Fatalf("cooldown = %d", w.Code)
	}
	cd := decode[struct {
		Success bool   `json:"success"`
		Error   string `json:"error"`
		WaitMs  int64  `json:"waitMs"`
	}](t, w)
	if cd.Success || cd.Error != "Cooldown" || cd.WaitMs != 6000 {
		t.Fatalf("cooldown body = %+v", cd)
	}

	// one free pixel was provisioned and spent
	f.clock.Advance(10 * time.Second)
	if w := f.do(nethttp.MethodPost, "/api/pixels/place", tok, gin.H{"x": 11, "y": 20, "color": "#FF0000"}); w.Code != nethttp.StatusPaymentRequired {
		t.Fatalf("no balance = %d", w.Code)
	}

	cases := []struct {
		name string
		body gin.H
		want string
	}{
		{"x out of range", gin.H{"x": 10000, "y": 0, "color": "#FF0000"}, "Invalid coordinates"},
		{"negative y", gin.H{"x": 0, "y": -1, "color": "#FF0000"}, "Invalid coordinates"},
		{"missing y", gin.H{"x": 0, "color": "#FF0000"}, "Invalid coordinates"},
		{"bad color", gin.H{"x": 0, "y": 0, "color": "red"}, "Invalid color format. Use #RRGGBB"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			w := f.do(nethttp.MethodPost, "/api/pixels/place", tok, tc.body)
			if w.Code != nethttp.StatusBadRequest {
				t.Fatalf("status = %d", w.Code)
			}
			if got := decode[gin.H](t, w)["error"]; got != tc.want {
				t.Fatalf("error = %v", got)
			}
		})
	}

	if w := f.do(nethttp.MethodPost, "/api/pixels/place", f.token("ghost", ""), gin.H{"x": 0, "y": 0, "color": "#FF0000"}); w.Code != nethttp.StatusNotFound {
		t.Fatalf("unknown user = %d", w.Code)
	}
}

func TestPlaceColorLockedIsForbidden(t *testing.T) {
	f := newAPIFixture(t)
	_, _, err := f.store.CreateIfMissing(context.Background(), &domain.User{
		UID:           "bob",
		FreePixels:    5,
		ColorPack:     domain.ColorPackFree,
		AllowedColors: []string{"#000000"},
	})
	if err != nil {
		t.Fatalf("seed: %v", err)
	}

	w := f.do(nethttp.MethodPost, "/api/pixels/place", f.token("bob", ""), gin.H{"x": 0, "y": 0, "color": "#FFFFFF"})
	if w.Code != nethttp.StatusForbidden {
		t.Fatalf("status = %d %s", w.Code, w.Body.String())
	}
}

func TestPixelsBox(t *testing.T) {
	f := newAPIFixture(t)
	tok := f.provision("alice", "Alice")
	if w := f.do(nethttp.MethodPost, "/api/pixels/place", tok, gin.H{"x": 5, "y": 6, "color": "#123456"}); w.Code != nethttp.StatusOK {
		t.Fatalf("place = %d", w.Code)
	}

	w := f.do(nethttp.MethodGet, "/api/pixels/box?left=0&right=2500", "", nil)
	if w.Code != nethttp.StatusBadRequest || decode[gin.H](t, w)["error"] != "Box too large" {
		t.Fatalf("wide box = %d %s", w.Code, w.Body.String())
	}

	w = f.do(nethttp.MethodGet, "/api/pixels/box?left=0&top=0&right=10&bottom=10", "", nil)
	if w.Code != nethttp.StatusOK {
		t.Fatalf("box = %d", w.Code)
	}
	px := decode[[]domain.Pixel](t, w)
	if len(px) != 1 || px[0].X != 5 || px[0].Y != 6 || px[0].Color != "#123456" || px[0].Owner != "alice" {
		t.Fatalf("pixels = %+v", px)
	}

	// default box is 100 wide from left
	w = f.do(nethttp.MethodGet, "/api/pixels/box?left=200&top=200", "", nil)
	if w.Code != nethttp.StatusOK || strings.TrimSpace(w.Body.String()) != "[]" {
		t.Fatalf("empty box = %d %s", w.Code, w.Body.String())
	}

	if w := f.do(nethttp.MethodGet, "/api/pixels/box?left=-5", "", nil); w.Code != nethttp.StatusBadRequest {
		t.Fatalf("negative left = %d", w.Code)
	}
}

func TestLeaderboardRoutes(t *testing.T) {
	f := newAPIFixture(t)
	tok := f.provision("alice", "Alice")
	f.do(nethttp.MethodPost, "/api/pixels/place", tok, gin.H{"x": 1, "y": 1, "color": "#123456"})

	w := f.do(nethttp.MethodGet, "/api/leaderboard/top?range=month", "", nil)
	if w.Code != nethttp.StatusOK {
		t.Fatalf("top = %d", w.Code)
	}
	top := decode[[]domain.LeaderboardEntry](t, w)
	if len(top) != 1 || top[0].UID != "alice" || top[0].Name != "Alice" || top[0].Count != 1 {
		t.Fatalf("top = %+v", top)
	}

	if w := f.do(nethttp.MethodGet, "/api/leaderboard/top?range=decade", "", nil); w.Code != nethttp.StatusBadRequest {
		t.Fatalf("bad range = %d", w.Code)
	}

	w = f.do(nethttp.MethodGet, "/api/leaderboard/rank?range=today", tok, nil)
	rank := decode[struct {
		Rank  int   `json:"rank"`
		Count int64 `json:"count"`
	}](t, w)
	if rank.Rank != 1 || rank.Count != 1 {
		t.Fatalf("rank = %+v", rank)
	}
}

func TestUserRoutes(t *testing.T) {
	f := newAPIFixture(t)
	alice := f.provision("alice", "Alice")
	f.provision("alfred", "Alfred")

	w := f.do(nethttp.MethodGet, "/api/users/alice", "", nil)
	if w.Code != nethttp.StatusOK || decode[domain.User](t, w).DisplayName != "Alice" {
		t.Fatalf("get = %d %s", w.Code, w.Body.String())
	}
	if w := f.do(nethttp.MethodGet, "/api/users/nobody", "", nil); w.Code != nethttp.StatusNotFound {
		t.Fatalf("missing = %d", w.Code)
	}

	w = f.do(nethttp.MethodGet, "/api/users/search/query?q=al", "", nil)
	if got := decode[[]domain.User](t, w); len(got) != 2 {
		t.Fatalf("search = %+v", got)
	}

	w = f.do(nethttp.MethodGet, "/api/users/me/stats", alice, nil)
	if stats := decode[domain.UserStats](t, w); stats.FreePixels != 1 {
		t.Fatalf("stats = %+v", stats)
	}

	if w := f.do(nethttp.MethodPost, "/api/users/alfred/bio", alice, gin.H{"bio": "hi"}); w.Code != nethttp.StatusForbidden {
		t.Fatalf("foreign bio = %d", w.Code)
	}
	if w := f.do(nethttp.MethodPost, "/api/users/alice/bio", alice, gin.H{"bio": "hi"}); w.Code != nethttp.StatusOK {
		t.Fatalf("own bio = %d", w.Code)
	}
	if w := f.do(nethttp.MethodDelete, "/api/users/alfred", alice, nil); w.Code != nethttp.StatusForbidden {
		t.Fatalf("non-admin delete = %d", w.Code)
	}
}

func TestAdminRoutes(t *testing.T) {
	f := newAPIFixture(t)
	alice := f.provision("alice", "Alice")
	if _, _, err := f.store.CreateIfMissing(context.Background(), &domain.User{UID: "root", Role: domain.RoleAdmin}); err != nil {
		t.Fatal(err)
	}
	root := f.token("root", "Root")

	if w := f.do(nethttp.MethodGet, "/api/admin/stats", alice, nil); w.Code != nethttp.StatusForbidden {
		t.Fatalf("non-admin stats = %d", w.Code)
	}
	if w := f.do(nethttp.MethodGet, "/api/admin/stats", "", nil); w.Code != nethttp.StatusUnauthorized {
		t.Fatalf("anonymous stats = %d", w.Code)
	}

	w := f.do(nethttp.MethodPost, "/api/admin/users/alice/credits", root, gin.H{"amount": 9})
	if w.Code != nethttp.StatusOK {
		t.Fatalf("grant = %d %s", w.Code, w.Body.String())
	}
	granted := decode[struct {
		User domain.User `json:"user"`
	}](t, w)
	if granted.User.FreePixels != 10 {
		t.Fatalf("free pixels = %d", granted.User.FreePixels)
	}
	if w := f.do(nethttp.MethodPost, "/api/admin/users/ghost/credits", root, gin.H{"amount": 1}); w.Code != nethttp.StatusNotFound {
		t.Fatalf("ghost grant = %d", w.Code)
	}

	w = f.do(nethttp.MethodGet, "/api/admin/stats", root, nil)
	if stats := decode[domain.CanvasStats](t, w); stats.TotalUsers != 2 || stats.FreePixelsHeld != 10 {
		t.Fatalf("stats = %+v", stats)
	}

	w = f.do(nethttp.MethodGet, "/api/admin/audit?uid=alice", root, nil)
	if logs := decode[[]domain.AuditLog](t, w); len(logs) != 1 || logs[0].Action != domain.AuditActionAdminGrant {
		t.Fatalf("audit = %s", w.Body.String())
	}
}

func TestChatRoutes(t *testing.T) {
	f := newAPIFixture(t)
	tok := f.provision("alice", "Alice")

	if w := f.do(nethttp.MethodPost, "/api/chat/send", tok, gin.H{"text": "   "}); w.Code != nethttp.StatusBadRequest {
		t.Fatalf("empty = %d", w.Code)
	}
	if w := f.do(nethttp.MethodPost, "/api/chat/send", tok, gin.H{"text": "<b>hi</b>"}); w.Code != nethttp.StatusOK {
		t.Fatalf("send = %d", w.Code)
	}

	w := f.do(nethttp.MethodGet, "/api/chat/recent", "", nil)
	msgs := decode[[]domain.ChatMessage](t, w)
	if len(msgs) != 1 || msgs[0].Text != "&lt;b&gt;hi&lt;/b&gt;" || msgs[0].FromName != "Alice" {
		t.Fatalf("recent = %+v", msgs)
	}
}

func TestPublicEndpoints(t *testing.T) {
	f := newAPIFixture(t)

	w := f.do(nethttp.MethodGet, "/api/does-not-exist", "", nil)
	if w.Code != nethttp.StatusNotFound || decode[gin.H](t, w)["error"] != "Not Found" {
		t.Fatalf("api 404 = %d %s", w.Code, w.Body.String())
	}

	w = f.do(nethttp.MethodGet, "/env.js", "", nil)
	if !strings.HasPrefix(w.Body.String(), "window.env = ") || !strings.Contains(w.Body.String(), `"COOLDOWN_MS":10000`) {
		t.Fatalf("env.js = %s", w.Body.String())
	}

	w = f.do(nethttp.MethodGet, "/version", "", nil)
	if decode[gin.H](t, w)["name"] != "pixelcanvas" {
		t.Fatalf("version = %s", w.Body.String())
	}

	if w := f.do(nethttp.MethodGet, "/readyz", "", nil); w.Code != nethttp.StatusOK {
		t.Fatalf("readyz = %d", w.Code)
	}

	w = f.do(nethttp.MethodPost, "/api/auth/dev", "", gin.H{"uid": "dev-1", "name": "Dev"})
	if w.Code != nethttp.StatusOK || decode[gin.H](t, w)["token"] == "" {
		t.Fatalf("dev auth = %d %s", w.Code, w.Body.String())
	}

	if w := f.do(nethttp.MethodPost, "/webhook/stripe", "", gin.H{}); w.Code != nethttp.StatusServiceUnavailable {
		t.Fatalf("webhook without gateway = %d", w.Code)
	}
	if w := f.do(nethttp.MethodPost, "/api/payments/create-session", f.token("alice", ""), gin.H{"priceId": "p"}); w.Code != nethttp.StatusServiceUnavailable {
		t.Fatalf("checkout without gateway = %d", w.Code)
	}

	w = f.do(nethttp.MethodGet, "/metrics", "", nil)
	if w.Code != nethttp.StatusOK || !strings.Contains(w.Body.String(), `http_requests_total{method="GET",route="/version",status="200"}`) {
		t.Fatalf("metrics missing request counter")
	}
}
