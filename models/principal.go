package models

import "github.com/google/uuid"

// Principal is the authenticated identity of one request, derived from a verified token.
// It is never persisted and never mutated after construction.
type Principal struct {
	UserID     uuid.UUID `json:"userId"`
	Email      string    `json:"email"`
	TenantID   uuid.UUID `json:"tenantId"`
	TenantSlug string    `json:"tenantSlug"`
	Role       UserRole  `json:"role"`
}
