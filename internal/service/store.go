package service

import (
	"context"

	"pixelcanvas/internal/domain"
	"pixelcanvas/internal/grid"
)

// UserStore is implemented by repository.UserRepository and repository.MemoryStore.
type UserStore interface {
	CreateIfMissing(ctx context.Context, u *domain.User) (*domain.User, bool, error)
	GetByUID(ctx context.Context, uid string) (*domain.User, error)
	GetByStripeCustomerID(ctx context.Context, customerID string) (*domain.User, error)
	DisplayNames(ctx context.Context, uids []string) (map[string]string, error)
	UpdateBio(ctx context.Context, uid, bio string) error
	UpdateProfile(ctx context.Context, uid, displayName, avatarURL string) error
	SearchByName(ctx context.Context, prefix string, limit int) ([]*domain.User, error)
	Delete(ctx context.Context, uid string) error
	SetStripeCustomerID(ctx context.Context, uid, customerID string) error
	ApplyEntitlement(ctx context.Context, uid string, ent domain.Entitlement) (*domain.User, error)
}

type PixelStore interface {
	ApplyPlacement(ctx context.Context, req domain.PlacementRequest, admit domain.AdmitFunc) (*domain.PlacementResult, error)
	PixelsInBox(ctx context.Context, box grid.Box, limit int) ([]domain.Pixel, error)
}

type StatsStore interface {
	TopCounts(ctx context.Context, b domain.Bucket, limit int) ([]domain.BucketCount, error)
	RankOf(ctx context.Context, b domain.Bucket, uid string) (int, int64, error)
}

type ChatStore interface {
	CreateMessage(ctx context.Context, m *domain.ChatMessage) error
	RecentMessages(ctx context.Context, limit int) ([]domain.ChatMessage, error)
}

type AuditStore interface {
	CreateAuditLog(ctx context.Context, log *domain.AuditLog) error
	AuditLogsByUID(ctx context.Context, uid string, limit int) ([]*domain.AuditLog, error)
	RecentAuditLogs(ctx context.Context, category string, limit int) ([]*domain.AuditLog, error)
}

// AdminStore aggregates board-wide counters. today selects the day bucket.
type AdminStore interface {
	CanvasStats(ctx context.Context, today domain.Bucket) (*domain.CanvasStats, error)
}

// Broadcaster pushes committed events to realtime subscribers. ws.Hub implements it.
type Broadcaster interface {
	PublishPixel(p domain.Pixel)
	PublishChat(m domain.ChatMessage)
}

type nopBroadcaster struct{}

func (nopBroadcaster) PublishPixel(domain.Pixel)       {}
func (nopBroadcaster) PublishChat(domain.ChatMessage) {}
