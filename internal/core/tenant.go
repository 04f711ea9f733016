package core

// TenantConfig is the immutable configuration of one tenant after alias resolution.
type TenantConfig struct {
	Key          string   `json:"key" mapstructure:"key"`
	Aliases      []string `json:"aliases" mapstructure:"aliases"`
	DataSourceID string   `json:"-" mapstructure:"property_id"`

	// Normalized (trimmed, lower-cased) emails allowed to view this tenant.
	AllowedEmails []string `json:"-" mapstructure:"allowed_emails"`
}
