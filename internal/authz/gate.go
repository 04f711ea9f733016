package authz

import (
	"github.com/rddigitech/dashboard-api/internal/tenants"
)

type DenyReason string

const (
	ReasonNone           DenyReason = ""
	ReasonNoEmail        DenyReason = "no_email"
	ReasonUnknownTenant  DenyReason = "unknown_tenant"
	ReasonNotAllowlisted DenyReason = "not_allowlisted"
)

// Decision is the outcome of Authorize. Reason is for operator logs only and
// must never be returned to the caller.
type Decision struct {
	Allowed bool
	Tenant  string
	Reason  DenyReason
}

// Registry is the subset of tenants.Registry the gate needs.
type Registry interface {
	Resolve(rawKey string) (string, error)
	IsAllowed(canonicalKey, email string) bool
}

// Gate decides whether an identity may view a tenant. It never contacts the
// analytics backend.
type Gate struct {
	registry Registry
}

func NewGate(registry Registry) *Gate {
	return &Gate{registry: registry}
}

func (g *Gate) Authorize(id Identity, rawTenantKey string) Decision {
	if g == nil || g.registry == nil {
		return Decision{Reason: ReasonUnknownTenant}
	}

	email := tenants.NormalizeEmail(id.Email)
	if email == "" {
		return Decision{Reason: ReasonNoEmail}
	}

	key, err := g.registry.Resolve(rawTenantKey)
	if err != nil {
		return Decision{Reason: ReasonUnknownTenant}
	}

	if !g.registry.IsAllowed(key, email) {
		return Decision{Tenant: key, Reason: ReasonNotAllowlisted}
	}
	return Decision{Allowed: true, Tenant: key}
}
