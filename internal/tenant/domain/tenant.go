package domain

import (
	"bytes"
	"encoding/json"
	"net"
	"regexp"
	"strings"
	"time"
)

// Tenant is one storefront brand: its display payload, the domain it answers on and
// whether it is the platform-wide default (active) brand.
type Tenant struct {
	ID        string            `json:"id"`
	Slug      string            `json:"slug"`
	Name      string            `json:"name"`
	Domain    string            `json:"domain,omitempty"`
	IsActive  bool              `json:"is_active"`
	Config    json.RawMessage   `json:"config"`
	AssetURLs map[string]string `json:"asset_urls,omitempty"`
	CreatedAt time.Time         `json:"created_at"`
	UpdatedAt time.Time         `json:"updated_at"`
	CreatedBy string            `json:"created_by,omitempty"`
	UpdatedBy string            `json:"updated_by,omitempty"`
}

// Clone returns a deep copy so callers cannot mutate records held by a store or cache.
func (t *Tenant) Clone() *Tenant {
	if t == nil {
		return nil
	}
	c := *t
	if t.Config != nil {
		c.Config = append(json.RawMessage(nil), t.Config...)
	}
	if t.AssetURLs != nil {
		c.AssetURLs = make(map[string]string, len(t.AssetURLs))
		for k, v := range t.AssetURLs {
			c.AssetURLs[k] = v
		}
	}
	return &c
}

// Draft holds the fields an administrator supplies when creating a tenant.
type Draft struct {
	Slug      string            `json:"slug"`
	Name      string            `json:"name"`
	Domain    string            `json:"domain,omitempty"`
	Config    json.RawMessage   `json:"config"`
	AssetURLs map[string]string `json:"asset_urls,omitempty"`
	IsActive  bool              `json:"is_active"`
}

// Normalize rewrites slug and domain into their canonical forms.
func (d *Draft) Normalize() {
	d.Slug = NormalizeSlug(d.Slug)
	d.Name = strings.TrimSpace(d.Name)
	d.Domain = NormalizeDomain(d.Domain)
}

// Validate checks the required fields. Call Normalize first.
func (d *Draft) Validate() error {
	if err := validateSlug(d.Slug); err != nil {
		return err
	}
	if d.Name == "" {
		return &ValidationError{Field: "name", Reason: "is required"}
	}
	if err := validateConfig(d.Config); err != nil {
		return err
	}
	return nil
}

// Patch is a partial update; nil fields are left unchanged.
type Patch struct {
	Slug      *string            `json:"slug,omitempty"`
	Name      *string            `json:"name,omitempty"`
	Domain    *string            `json:"domain,omitempty"`
	Config    *json.RawMessage   `json:"config,omitempty"`
	AssetURLs *map[string]string `json:"asset_urls,omitempty"`
	IsActive  *bool              `json:"is_active,omitempty"`
}

// Empty reports whether the patch changes nothing.
func (p *Patch) Empty() bool {
	return p.Slug == nil && p.Name == nil && p.Domain == nil && p.Config == nil && p.AssetURLs == nil && p.IsActive == nil
}

// Apply validates the patch and writes its fields onto t. IsActive is not applied here;
// activation state only changes through the store's activation path.
func (p *Patch) Apply(t *Tenant) error {
	if p.Slug != nil {
		slug := NormalizeSlug(*p.Slug)
		if err := validateSlug(slug); err != nil {
			return err
		}
		t.Slug = slug
	}
	if p.Name != nil {
		name := strings.TrimSpace(*p.Name)
		if name == "" {
			return &ValidationError{Field: "name", Reason: "must not be empty"}
		}
		t.Name = name
	}
	if p.Domain != nil {
		t.Domain = NormalizeDomain(*p.Domain)
	}
	if p.Config != nil {
		if err := validateConfig(*p.Config); err != nil {
			return err
		}
		t.Config = append(json.RawMessage(nil), (*p.Config)...)
	}
	if p.AssetURLs != nil {
		t.AssetURLs = *p.AssetURLs
	}
	return nil
}

var (
	slugSeparators = regexp.MustCompile(`[\s_]+`)
	slugPattern    = regexp.MustCompile(`^[a-z0-9-]+$`)
)

// NormalizeSlug lowercases s and collapses whitespace and underscores into single hyphens.
func NormalizeSlug(s string) string {
	s = strings.ToLower(strings.TrimSpace(s))
	return slugSeparators.ReplaceAllString(s, "-")
}

// NormalizeDomain lowercases a hostname and strips any port and trailing dot.
// Returns "" for blank input.
func NormalizeDomain(s string) string {
	s = strings.TrimSpace(s)
	if s == "" {
		return ""
	}
	if host, _, err := net.SplitHostPort(s); err == nil {
		s = host
	} else if len(s) > 2 && s[0] == '[' && s[len(s)-1] == ']' {
		s = s[1 : len(s)-1]
	}
	s = strings.TrimSuffix(s, ".")
	return strings.ToLower(s)
}

func validateSlug(slug string) error {
	if slug == "" {
		return &ValidationError{Field: "slug", Reason: "is required"}
	}
	if len(slug) > 100 {
		return &ValidationError{Field: "slug", Reason: "must not exceed 100 characters"}
	}
	if !slugPattern.MatchString(slug) {
		return &ValidationError{Field: "slug", Reason: "must contain only lowercase letters, numbers, and hyphens"}
	}
	return nil
}

func validateConfig(raw json.RawMessage) error {
	trimmed := bytes.TrimSpace(raw)
	if len(trimmed) == 0 || bytes.Equal(trimmed, []byte("null")) {
		return &ValidationError{Field: "config", Reason: "is required"}
	}
	if !json.Valid(trimmed) {
		return &ValidationError{Field: "config", Reason: "must be valid JSON"}
	}
	return nil
}
