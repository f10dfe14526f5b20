package domain

import "time"

// AuditLog represents an audit log entry for tracking important actions
type AuditLog struct {
	ID        int64          `db:"id" json:"id"`
	UID       string         `db:"uid" json:"uid"`
	Action    string         `db:"action" json:"action"`
	Category  string         `db:"category" json:"category"`
	Details   map[string]any `db:"details" json:"details"`
	IP        string         `db:"ip" json:"ip,omitempty"`
	UserAgent string         `db:"user_agent" json:"user_agent,omitempty"`
	CreatedAt time.Time      `db:"created_at" json:"created_at"`
}

// Audit action categories
const (
	AuditCategoryPayment = "payment"
	AuditCategoryBalance = "balance"
	AuditCategoryAdmin   = "admin"
)

// Audit actions
const (
	// Payment actions
	AuditActionEntitlementGrant  = "entitlement_grant"
	AuditActionSubscriptionEnd   = "subscription_end"
	AuditActionSubscriptionRenew = "subscription_renew"

	// Admin actions
	AuditActionAdminDeleteUser = "admin_delete_user"
	AuditActionAdminGrant      = "admin_grant"
)
