package authz_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rddigitech/dashboard-api/internal/authz"
	"github.com/rddigitech/dashboard-api/internal/core"
	"github.com/rddigitech/dashboard-api/internal/tenants"
)

const ownerEmail = "Owner@Example.com"

func newGate(t *testing.T) *authz.Gate {
	t.Helper()
	reg, err := tenants.NewRegistry([]core.TenantConfig{
		{Key: "stepbystep", Aliases: []string{"stepxstep"}, DataSourceID: "properties/111", AllowedEmails: []string{"a@x.com"}},
		{Key: "ksnapstudio", Aliases: []string{"ksnap"}, DataSourceID: "222", AllowedEmails: []string{"b@y.com"}},
		{Key: "empty", DataSourceID: "333"},
	}, ownerEmail)
	require.NoError(t, err)
	return authz.NewGate(reg)
}

func TestAuthorize_AllowlistedEmailAnyCase(t *testing.T) {
	g := newGate(t)

	for _, email := range []string{"a@x.com", "A@X.COM", "  a@X.com "} {
		d := g.Authorize(authz.Identity{Email: email}, "stepbystep")
		assert.True(t, d.Allowed, "email=%q", email)
		assert.Equal(t, "stepbystep", d.Tenant)
		assert.Equal(t, authz.ReasonNone, d.Reason)
	}

	d := g.Authorize(authz.Identity{Email: "a@x.com"}, " StepXStep ")
	assert.True(t, d.Allowed)
	assert.Equal(t, "stepbystep", d.Tenant)
}

func TestAuthorize_OwnerAllowedEverywhere(t *testing.T) {
	g := newGate(t)

	for _, tenant := range []string{"stepbystep", "ksnap", "empty"} {
		for _, email := range []string{"owner@example.com", "OWNER@EXAMPLE.COM"} {
			d := g.Authorize(authz.Identity{Email: email}, tenant)
			assert.True(t, d.Allowed, "tenant=%s email=%s", tenant, email)
		}
	}
}

func TestAuthorize_Deny(t *testing.T) {
	g := newGate(t)

	tests := []struct {
		name   string
		id     authz.Identity
		tenant string
		reason authz.DenyReason
	}{
		{"other tenant's viewer", authz.Identity{Email: "b@y.com"}, "stepbystep", authz.ReasonNotAllowlisted},
		{"unknown tenant", authz.Identity{Email: "a@x.com"}, "unknownclub", authz.ReasonUnknownTenant},
		{"owner on unknown tenant", authz.Identity{Email: ownerEmail}, "unknownclub", authz.ReasonUnknownTenant},
		{"no email", authz.Identity{Subject: "auth0|1"}, "stepbystep", authz.ReasonNoEmail},
		{"blank email", authz.Identity{Email: "   "}, "stepbystep", authz.ReasonNoEmail},
		{"zero identity", authz.Identity{}, "empty", authz.ReasonNoEmail},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			d := g.Authorize(tt.id, tt.tenant)
			assert.False(t, d.Allowed)
			assert.Equal(t, tt.reason, d.Reason)
		})
	}
}

func TestAuthorize_NilGateDenies(t *testing.T) {
	var g *authz.Gate
	d := g.Authorize(authz.Identity{Email: ownerEmail}, "stepbystep")
	assert.False(t, d.Allowed)
}

func TestIdentityFromClaims(t *testing.T) {
	const ns = "https://rddigitech.ca/email"
	names := authz.EmailClaims(ns)
	require.Equal(t, []string{ns, "email"}, names)

	tests := []struct {
		name   string
		claims map[string]interface{}
		want   string
	}{
		{"namespaced wins", map[string]interface{}{ns: "ns@x.com", "email": "std@x.com"}, "ns@x.com"},
		{"falls back to email", map[string]interface{}{"email": "std@x.com"}, "std@x.com"},
		{"blank namespaced skipped", map[string]interface{}{ns: " ", "email": "std@x.com"}, "std@x.com"},
		{"non-string skipped", map[string]interface{}{ns: 42, "email": "std@x.com"}, "std@x.com"},
		{"none", map[string]interface{}{"sub": "auth0|1"}, ""},
		{"nil claims", nil, ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			id := authz.IdentityFromClaims(tt.claims, names...)
			assert.Equal(t, tt.want, id.Email)
		})
	}
}

func TestEmailClaims_NoPrimary(t *testing.T) {
	assert.Equal(t, []string{"email"}, authz.EmailClaims(""))
	assert.Equal(t, []string{"email"}, authz.EmailClaims("email"))
}
