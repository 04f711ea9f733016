package authz

import "strings"

// StandardEmailClaim is the OIDC email claim used when the namespaced claim is absent.
const StandardEmailClaim = "email"

// Identity is the verified caller as seen by the gate.
type Identity struct {
	Subject string
	Email   string
}

// IdentityFromClaims reads the email from the first claim in names that holds a
// non-blank string. A claim that is missing, blank, or not a string is skipped,
// so a blank namespaced claim falls back to the standard "email" claim rather
// than yielding an empty identity.
func IdentityFromClaims(claims map[string]interface{}, names ...string) Identity {
	var id Identity
	if claims == nil {
		return id
	}
	if sub, ok := claims["sub"].(string); ok {
		id.Subject = sub
	}
	for _, name := range names {
		if v, ok := claims[name].(string); ok && strings.TrimSpace(v) != "" {
			id.Email = v
			return id
		}
	}
	return id
}

// EmailClaims returns the lookup order for the email claim: the configured
// namespaced claim first, then the standard one.
func EmailClaims(primary string) []string {
	primary = strings.TrimSpace(primary)
	if primary == "" || primary == StandardEmailClaim {
		return []string{StandardEmailClaim}
	}
	return []string{primary, StandardEmailClaim}
}
