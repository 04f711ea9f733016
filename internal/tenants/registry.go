package tenants

import (
	"errors"
	"fmt"
	"sort"
	"strings"

	"go.uber.org/multierr"

	"github.com/rddigitech/dashboard-api/internal/core"
)

var (
	ErrUnknownTenant        = errors.New("unknown tenant")
	ErrConfigurationMissing = errors.New("tenant configuration missing")
	ErrMalformedDataSource  = errors.New("malformed data source id")
)

const propertyPrefix = "properties/"

// Registry maps tenant aliases to canonical keys and canonical keys to their
// configuration. It is read-only after NewRegistry returns.
type Registry struct {
	aliases map[string]string
	tenants map[string]entry
	owner   string
}

type entry struct {
	dataSource string
	allowed    map[string]struct{}
}

// NewRegistry builds the registry. The canonical key of each tenant is always
// one of its own aliases. An alias claimed by two tenants is an error, as is a
// data source ID that is present but not a GA4 property ID.
func NewRegistry(cfgs []core.TenantConfig, ownerEmail string) (*Registry, error) {
	r := &Registry{
		aliases: make(map[string]string),
		tenants: make(map[string]entry, len(cfgs)),
		owner:   NormalizeEmail(ownerEmail),
	}

	var errs error
	for _, cfg := range cfgs {
		key := NormalizeKey(cfg.Key)
		if key == "" {
			errs = multierr.Append(errs, errors.New("tenant with blank key"))
			continue
		}
		if _, dup := r.tenants[key]; dup {
			errs = multierr.Append(errs, fmt.Errorf("tenant %q configured twice", key))
			continue
		}

		ds, err := normalizeDataSource(cfg.DataSourceID)
		if err != nil {
			errs = multierr.Append(errs, fmt.Errorf("tenant %q: %w", key, err))
		}

		allowed := make(map[string]struct{}, len(cfg.AllowedEmails)+1)
		for _, email := range cfg.AllowedEmails {
			if e := NormalizeEmail(email); e != "" {
				allowed[e] = struct{}{}
			}
		}
		if r.owner != "" {
			allowed[r.owner] = struct{}{}
		}
		r.tenants[key] = entry{dataSource: ds, allowed: allowed}

		for _, alias := range append([]string{key}, cfg.Aliases...) {
			a := NormalizeKey(alias)
			if a == "" {
				continue
			}
			if other, ok := r.aliases[a]; ok && other != key {
				errs = multierr.Append(errs, fmt.Errorf("alias %q maps to both %q and %q", a, other, key))
				continue
			}
			r.aliases[a] = key
		}
	}

	if errs != nil {
		return nil, errs
	}
	return r, nil
}

// Validate reports every tenant whose data source is not configured.
func (r *Registry) Validate() error {
	var errs error
	for _, key := range r.Keys() {
		if r.tenants[key].dataSource == "" {
			errs = multierr.Append(errs, fmt.Errorf("tenant %q: %w", key, ErrConfigurationMissing))
		}
	}
	return errs
}

// Resolve maps a raw tenant key or alias to its canonical key. Matching is
// exact after trimming and lower-casing.
func (r *Registry) Resolve(rawKey string) (string, error) {
	key, ok := r.aliases[NormalizeKey(rawKey)]
	if !ok {
		return "", ErrUnknownTenant
	}
	return key, nil
}

func (r *Registry) DataSourceFor(canonicalKey string) (string, error) {
	t, ok := r.tenants[canonicalKey]
	if !ok {
		return "", ErrUnknownTenant
	}
	if t.dataSource == "" {
		return "", fmt.Errorf("tenant %q: %w", canonicalKey, ErrConfigurationMissing)
	}
	return t.dataSource, nil
}

// AllowlistFor returns a copy of the tenant's allowlist. The owner is always a member.
func (r *Registry) AllowlistFor(canonicalKey string) map[string]struct{} {
	out := make(map[string]struct{})
	if r.owner != "" {
		out[r.owner] = struct{}{}
	}
	if t, ok := r.tenants[canonicalKey]; ok {
		for e := range t.allowed {
			out[e] = struct{}{}
		}
	}
	return out
}

// IsAllowed reports whether the normalized email may view the tenant.
func (r *Registry) IsAllowed(canonicalKey, email string) bool {
	t, ok := r.tenants[canonicalKey]
	if !ok || email == "" {
		return false
	}
	if email == r.owner {
		return true
	}
	_, ok = t.allowed[email]
	return ok
}

// Keys returns the canonical tenant keys in sorted order.
func (r *Registry) Keys() []string {
	keys := make([]string, 0, len(r.tenants))
	for k := range r.tenants {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

func NormalizeKey(v string) string {
	return strings.ToLower(strings.TrimSpace(v))
}

func NormalizeEmail(v string) string {
	return strings.ToLower(strings.TrimSpace(v))
}

func normalizeDataSource(raw string) (string, error) {
	id := strings.TrimSpace(raw)
	id = strings.TrimPrefix(id, propertyPrefix)
	if id == "" {
		return "", nil
	}
	for _, ch := range id {
		if ch < '0' || ch > '9' {
			return "", fmt.Errorf("%w: %q", ErrMalformedDataSource, raw)
		}
	}
	return propertyPrefix + id, nil
}
