package service

import (
	"context"

	"pixelcanvas/internal/domain"
	"pixelcanvas/internal/logger"
)

// AuditService handles audit logging
type AuditService struct {
	repo AuditStore
}

// NewAuditService creates a new audit service
func NewAuditService(repo AuditStore) *AuditService {
	return &AuditService{repo: repo}
}

// Log creates a new audit log entry. Failures are logged, never returned.
func (s *AuditService) Log(ctx context.Context, uid, action, category string, details map[string]any) {
	s.LogWithRequest(ctx, uid, action, category, "", "", details)
}

// LogWithRequest creates an audit log with request info (IP, User-Agent)
func (s *AuditService) LogWithRequest(ctx context.Context, uid, action, category, ip, userAgent string, details map[string]any) {
	if details == nil {
		details = make(map[string]any)
	}
	log := &domain.AuditLog{
		UID:       uid,
		Action:    action,
		Category:  category,
		Details:   details,
		IP:        ip,
		UserAgent: userAgent,
	}

	if err := s.repo.CreateAuditLog(ctx, log); err != nil {
		logger.Error("failed to create audit log", "error", err, "action", action, "uid", uid)
	}
}

// LogEntitlement records a grant or downgrade coming from the payment processor.
func (s *AuditService) LogEntitlement(ctx context.Context, uid, action string, ent domain.Entitlement, details map[string]any) {
	if details == nil {
		details = make(map[string]any)
	}
	if ent.ColorPack != "" {
		details["color_pack"] = ent.ColorPack
	}
	if ent.ColorPackExpiry != nil {
		details["color_pack_expiry"] = ent.ColorPackExpiry.UTC()
	}
	for src, n := range ent.Credits {
		details[string(src)] = n
	}

	s.Log(ctx, uid, action, domain.AuditCategoryPayment, details)
}

// LogAdminAction logs an admin action
func (s *AuditService) LogAdminAction(ctx context.Context, adminUID, action, targetUID string, details map[string]any) {
	if details == nil {
		details = make(map[string]any)
	}
	details["admin_uid"] = adminUID
	details["target_uid"] = targetUID

	s.Log(ctx, targetUID, action, domain.AuditCategoryAdmin, details)
}

// GetUserAuditLogs returns audit logs for a user
func (s *AuditService) GetUserAuditLogs(ctx context.Context, uid string, limit int) ([]*domain.AuditLog, error) {
	return s.repo.AuditLogsByUID(ctx, uid, limit)
}

// GetRecentLogs returns recent audit logs, optionally for one category
func (s *AuditService) GetRecentLogs(ctx context.Context, category string, limit int) ([]*domain.AuditLog, error) {
	return s.repo.RecentAuditLogs(ctx, category, limit)
}
