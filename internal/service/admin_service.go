package service

import (
	"context"
	"errors"

	"pixelcanvas/internal/domain"
	"pixelcanvas/internal/logger"

	"github.com/jonboulle/clockwork"
)

const maxAuditLimit = 200

// AdminService provides admin statistics and operations. Every call checks the caller's role.
type AdminService struct {
	users UserStore
	stats AdminStore
	audit *AuditService
	clock clockwork.Clock
}

// NewAdminService creates a new admin service
func NewAdminService(users UserStore, stats AdminStore, audit *AuditService, clock clockwork.Clock) *AdminService {
	if clock == nil {
		clock = clockwork.NewRealClock()
	}
	return &AdminService{users: users, stats: stats, audit: audit, clock: clock}
}

func (s *AdminService) requireAdmin(ctx context.Context, caller string) error {
	u, err := s.users.GetByUID(ctx, caller)
	if err != nil {
		if errors.Is(err, domain.ErrUserNotFound) {
			return domain.ErrForbidden
		}
		return err
	}
	if !u.IsAdmin() {
		return domain.ErrForbidden
	}
	return nil
}

// GetStats returns board statistics
func (s *AdminService) GetStats(ctx context.Context, caller string) (*domain.CanvasStats, error) {
	if err := s.requireAdmin(ctx, caller); err != nil {
		return nil, err
	}
	return s.stats.CanvasStats(ctx, domain.BucketFor(domain.PeriodDay, s.clock.Now()))
}

// GrantCredits adds amount (negative to take back) to one balance source of target.
// A balance is never taken below zero.
func (s *AdminService) GrantCredits(ctx context.Context, caller, target string, source domain.BalanceSource, amount int64) (*domain.User, error) {
	if err := s.requireAdmin(ctx, caller); err != nil {
		return nil, err
	}
	if !source.Valid() {
		return nil, domain.NewValidationError("source", "unknown balance source")
	}
	if amount == 0 {
		return nil, domain.NewValidationError("amount", "must not be zero")
	}

	u, err := s.users.GetByUID(ctx, target)
	if err != nil {
		return nil, err
	}
	if u.Balance(source)+amount < 0 {
		return nil, domain.NewValidationError("amount", "balance would go negative")
	}

	ent := domain.Entitlement{Credits: map[domain.BalanceSource]int64{source: amount}}
	updated, err := s.users.ApplyEntitlement(ctx, target, ent)
	if err != nil {
		return nil, err
	}

	s.audit.LogAdminAction(ctx, caller, domain.AuditActionAdminGrant, target, map[string]any{
		"source": string(source),
		"amount": amount,
	})
	logger.Info("admin grant", "by", caller, "uid", target, "source", source, "amount", amount)
	return updated, nil
}

// RecentAudit lists the newest audit entries, optionally for one category or one user.
func (s *AdminService) RecentAudit(ctx context.Context, caller, category, uid string, limit int) ([]*domain.AuditLog, error) {
	if err := s.requireAdmin(ctx, caller); err != nil {
		return nil, err
	}
	if limit <= 0 || limit > maxAuditLimit {
		limit = maxAuditLimit
	}
	if uid != "" {
		return s.audit.GetUserAuditLogs(ctx, uid, limit)
	}
	return s.audit.GetRecentLogs(ctx, category, limit)
}
