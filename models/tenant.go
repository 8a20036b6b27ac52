package models

import (
	"time"

	"github.com/google/uuid"
)

// Plan is the subscription plan of a tenant
type Plan string

const (
	PlanFree Plan = "free"
	PlanPro  Plan = "pro"
)

// IsValid reports whether p is a known plan
func (p Plan) IsValid() bool {
	return p == PlanFree || p == PlanPro
}

// Tenant represents an isolated customer account in the multi-tenant system.
// Slugs are immutable once created; plans only move from free to pro.
type Tenant struct {
	ID        uuid.UUID `json:"id" db:"id"`
	Slug      string    `json:"slug" db:"slug"` // URL-friendly identifier
	Name      string    `json:"name" db:"name"`
	Plan      Plan      `json:"plan" db:"plan"`
	CreatedAt time.Time `json:"createdAt" db:"created_at"`
	UpdatedAt time.Time `json:"updatedAt" db:"updated_at"`
}

// NewTenant creates a new free-plan Tenant instance
func NewTenant(name, slug string) *Tenant {
	now := Now()
	return &Tenant{
		ID:        uuid.New(),
		Slug:      slug,
		Name:      name,
		Plan:      PlanFree,
		CreatedAt: now,
		UpdatedAt: now,
	}
}

// IsFree returns true if the tenant is on the free plan
func (t *Tenant) IsFree() bool {
	return t.Plan == PlanFree
}

// Now returns the current UTC time truncated to the precision postgres stores,
// so a freshly created row and the same row read back serialize identically.
func Now() time.Time {
	return time.Now().UTC().Truncate(time.Microsecond)
}
