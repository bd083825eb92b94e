package domain

import "github.com/google/uuid"

// Tier selects worker-pool size and queue binding for a tenant.
type Tier string

const (
	TierFree       Tier = "free"
	TierBasic      Tier = "basic"
	TierPremium    Tier = "premium"
	TierEnterprise Tier = "enterprise"
)

// PoolSize returns the shared extraction/transform worker-pool size for a tier.
func (t Tier) PoolSize() int {
	switch t {
	case TierFree:
		return 1
	case TierBasic:
		return 3
	case TierPremium:
		return 5
	case TierEnterprise:
		return 10
	default:
		return 1
	}
}

// Valid reports whether t is one of the known tiers.
func (t Tier) Valid() bool {
	switch t {
	case TierFree, TierBasic, TierPremium, TierEnterprise:
		return true
	default:
		return false
	}
}

// Tenant is the top-level multi-tenancy boundary. Its tier determines which
// shared queue/pool a tenant's jobs are routed to.
type Tenant struct {
	ID     uuid.UUID
	Tier   Tier
	Active bool
}
