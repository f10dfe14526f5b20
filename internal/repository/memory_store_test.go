package repository

import (
	"context"
	"errors"
	"testing"
	"time"

	"pixelcanvas/internal/domain"
	"pixelcanvas/internal/grid"

	"github.com/jonboulle/clockwork"
)

func newStoreWithUser(t *testing.T, free int64) (*MemoryStore, *clockwork.FakeClock) {
	t.Helper()
	clock := clockwork.NewFakeClockAt(time.Date(2026, 4, 10, 8, 0, 0, 0, time.UTC))
	s := NewMemoryStore(clock)
	if _, created, err := s.CreateIfMissing(context.Background(), &domain.User{UID: "alice", DisplayName: "Alice", FreePixels: free}); err != nil || !created {
		t.Fatalf("create user: created=%v err=%v", created, err)
	}
	return s, clock
}

func TestCreateIfMissingKeepsExisting(t *testing.T) {
	s, _ := newStoreWithUser(t, 5)
	ctx := context.Background()

	u, created, err := s.CreateIfMissing(ctx, &domain.User{UID: "alice", DisplayName: "Other", FreePixels: 100})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if created {
		t.Fatalf("second create must not report created")
	}
	if u.DisplayName != "Alice" || u.FreePixels != 5 {
		t.Fatalf("existing user overwritten: %+v", u)
	}
	if u.Role != domain.RoleUser || u.ColorPack != domain.ColorPackFree {
		t.Fatalf("defaults not applied: %+v", u)
	}
}

func TestApplyPlacementWritesEverything(t *testing.T) {
	s, clock := newStoreWithUser(t, 2)
	ctx := context.Background()
	now := clock.Now()

	res, err := s.ApplyPlacement(ctx, domain.PlacementRequest{UID: "alice", X: 3, Y: 4, Color: "#abcdef", Now: now},
		func(u *domain.User) (domain.BalanceSource, error) {
			src, _ := u.NextSource()
			return src, nil
		})
	if err != nil {
		t.Fatalf("place: %v", err)
	}
	if res.Source != domain.SourceFreePixels || res.User.FreePixels != 1 || res.User.PixelsDrawnAllTime != 1 {
		t.Fatalf("unexpected result: %+v", res)
	}
	if res.User.LastPlacedAt != now.UnixMilli() {
		t.Fatalf("lastPlacedAt = %d", res.User.LastPlacedAt)
	}
	if res.Pixel.OwnerName != "Alice" || res.Pixel.Owner != "alice" {
		t.Fatalf("owner snapshot missing: %+v", res.Pixel)
	}

	px, _ := s.PixelsInBox(ctx, grid.Box{Left: 0, Top: 0, Right: 10, Bottom: 10}, 10)
	if len(px) != 1 || px[0].Color != "#abcdef" {
		t.Fatalf("pixels = %+v", px)
	}

	for _, b := range domain.BucketsFor(now) {
		top, _ := s.TopCounts(ctx, b, 10)
		if len(top) != 1 || top[0].UID != "alice" || top[0].Count != 1 {
			t.Fatalf("bucket %+v = %+v", b, top)
		}
	}
}

func TestApplyPlacementRefusalLeavesNoTrace(t *testing.T) {
	s, clock := newStoreWithUser(t, 1)
	ctx := context.Background()
	refused := errors.New("refused")

	_, err := s.ApplyPlacement(ctx, domain.PlacementRequest{UID: "alice", X: 1, Y: 1, Color: "#000000", Now: clock.Now()},
		func(u *domain.User) (domain.BalanceSource, error) {
			u.FreePixels = 0
			return "", refused
		})
	if !errors.Is(err, refused) {
		t.Fatalf("err = %v", err)
	}

	u, _ := s.GetByUID(ctx, "alice")
	if u.FreePixels != 1 || u.PixelsDrawnAllTime != 0 || u.LastPlacedAt != 0 {
		t.Fatalf("user mutated: %+v", u)
	}
	if px, _ := s.PixelsInBox(ctx, grid.Box{Right: 5, Bottom: 5}, 10); len(px) != 0 {
		t.Fatalf("pixel written: %+v", px)
	}
	if top, _ := s.TopCounts(ctx, domain.BucketFor(domain.PeriodDay, clock.Now()), 10); len(top) != 0 {
		t.Fatalf("stats written: %+v", top)
	}
}

func TestApplyPlacementUnknownUser(t *testing.T) {
	s := NewMemoryStore(clockwork.NewFakeClock())
	_, err := s.ApplyPlacement(context.Background(), domain.PlacementRequest{UID: "ghost"},
		func(*domain.User) (domain.BalanceSource, error) { return domain.SourceFreePixels, nil })
	if !errors.Is(err, domain.ErrUserNotFound) {
		t.Fatalf("err = %v", err)
	}
}

func TestPixelsInBoxOrderAndLimit(t *testing.T) {
	s, clock := newStoreWithUser(t, 10)
	ctx := context.Background()
	admit := func(*domain.User) (domain.BalanceSource, error) { return domain.SourceFreePixels, nil }

	for _, p := range []grid.Point{{X: 2, Y: 1}, {X: 0, Y: 5}, {X: 0, Y: 2}, {X: 50, Y: 50}} {
		if _, err := s.ApplyPlacement(ctx, domain.PlacementRequest{UID: "alice", X: p.X, Y: p.Y, Color: "#111111", Now: clock.Now()}, admit); err != nil {
			t.Fatalf("place %v: %v", p, err)
		}
	}

	got, _ := s.PixelsInBox(ctx, grid.Box{Left: 0, Top: 0, Right: 10, Bottom: 10}, 2)
	if len(got) != 2 {
		t.Fatalf("len = %d", len(got))
	}
	if got[0].X != 0 || got[0].Y != 2 || got[1].X != 0 || got[1].Y != 5 {
		t.Fatalf("order = %+v", got)
	}
}

func TestRankOf(t *testing.T) {
	s := NewMemoryStore(clockwork.NewFakeClock())
	ctx := context.Background()
	b := domain.Bucket{Period: domain.PeriodDay, PeriodID: "2026-01-01"}
	s.stats[b] = map[string]int64{"a": 3, "b": 5, "c": 3}

	cases := map[string]int{"b": 1, "a": 2, "c": 3, "zz": 0}
	for uid, want := range cases {
		rank, _, err := s.RankOf(ctx, b, uid)
		if err != nil || rank != want {
			t.Fatalf("RankOf(%s) = %d, %v; want %d", uid, rank, err, want)
		}
	}
}

func TestRecentMessagesOldestFirst(t *testing.T) {
	s := NewMemoryStore(clockwork.NewFakeClock())
	ctx := context.Background()
	for _, id := range []string{"1", "2", "3"} {
		if err := s.CreateMessage(ctx, &domain.ChatMessage{ID: id, Text: id}); err != nil {
			t.Fatal(err)
		}
	}
	got, _ := s.RecentMessages(ctx, 2)
	if len(got) != 2 || got[0].ID != "2" || got[1].ID != "3" {
		t.Fatalf("got %+v", got)
	}
}

func TestSearchByNameIsCaseInsensitivePrefix(t *testing.T) {
	s := NewMemoryStore(clockwork.NewFakeClock())
	ctx := context.Background()
	for uid, name := range map[string]string{"1": "Bob", "2": "bobby", "3": "Alice"} {
		_, _, _ = s.CreateIfMissing(ctx, &domain.User{UID: uid, DisplayName: name})
	}
	got, _ := s.SearchByName(ctx, "BO", 20)
	if len(got) != 2 || got[0].DisplayName != "Bob" || got[1].DisplayName != "bobby" {
		t.Fatalf("got %+v", got)
	}
}

func TestAuditLogsNewestFirst(t *testing.T) {
	s := NewMemoryStore(clockwork.NewFakeClock())
	ctx := context.Background()
	_ = s.CreateAuditLog(ctx, &domain.AuditLog{UID: "a", Action: "one", Category: domain.AuditCategoryPayment})
	_ = s.CreateAuditLog(ctx, &domain.AuditLog{UID: "b", Action: "other", Category: domain.AuditCategoryAdmin})
	_ = s.CreateAuditLog(ctx, &domain.AuditLog{UID: "a", Action: "two", Category: domain.AuditCategoryPayment})

	logs, _ := s.AuditLogsByUID(ctx, "a", 10)
	if len(logs) != 2 || logs[0].Action != "two" || logs[1].Action != "one" {
		t.Fatalf("logs = %+v", logs)
	}
	admin, _ := s.RecentAuditLogs(ctx, domain.AuditCategoryAdmin, 10)
	if len(admin) != 1 || admin[0].UID != "b" {
		t.Fatalf("admin logs = %+v", admin)
	}
}
