// Package credentials maps a resolved tenant to the backend data-store project it must use.
package credentials

import (
	"fmt"
	"strings"

	"go.uber.org/zap"

	"storefront/backend/internal/tenant/domain"
)

// Class names a group of tenants that share one backend project.
type Class string

const (
	ClassMain      Class = "main"
	ClassSecondary Class = "secondary"
)

// Source says where routed credentials came from.
type Source string

const (
	// SourceDefault is the main project serving a main-class tenant.
	SourceDefault Source = "default"
	// SourceDedicated is a class's own project.
	SourceDedicated Source = "dedicated"
	// SourceFallback means the tenant's class has no project configured and the main project
	// stands in. Diagnostics surface this as a misconfiguration.
	SourceFallback Source = "fallback"
)

// Project is one backend endpoint and its access key.
type Project struct {
	URL string
	Key string
}

func (p Project) configured() bool {
	return strings.TrimSpace(p.URL) != "" && strings.TrimSpace(p.Key) != ""
}

// Config is read once at startup and never changes for the process lifetime.
type Config struct {
	Main      Project
	Secondary Project
	// SecondaryKeywords identify secondary-class slugs; matching ignores case, hyphens,
	// underscores and spaces, and accepts the keyword anywhere in the slug.
	SecondaryKeywords []string
}

// Credentials are the connection parameters the rest of the request pipeline uses.
type Credentials struct {
	Endpoint string
	Key      string
	Source   Source
	Class    Class
}

// ConfigurationError means no usable backend credentials exist for the request.
type ConfigurationError struct {
	Class  Class
	Reason string
}

func (e *ConfigurationError) Error() string {
	return fmt.Sprintf("credentials: no usable backend project for class %q: %s", e.Class, e.Reason)
}

// Router classifies tenants by slug and returns their project credentials.
type Router struct {
	cfg      Config
	keywords []string
	log      *zap.Logger
}

// NewRouter returns a Router over cfg. log may be nil.
func NewRouter(cfg Config, log *zap.Logger) *Router {
	if log == nil {
		log = zap.NewNop()
	}
	keywords := make([]string, 0, len(cfg.SecondaryKeywords))
	for _, k := range cfg.SecondaryKeywords {
		if c := compact(k); c != "" {
			keywords = append(keywords, c)
		}
	}
	return &Router{cfg: cfg, keywords: keywords, log: log}
}

// Classify returns the credential class for a tenant slug.
func (r *Router) Classify(slug string) Class {
	s := compact(slug)
	if s == "" {
		return ClassMain
	}
	for _, k := range r.keywords {
		if strings.Contains(s, k) {
			return ClassSecondary
		}
	}
	return ClassMain
}

// Route returns the credentials for t. A nil tenant routes to the main project.
// A secondary tenant without its own project falls back to the main project with
// Source set to SourceFallback. Only a missing main project is an error.
func (r *Router) Route(t *domain.Tenant) (Credentials, error) {
	class := ClassMain
	slug := ""
	if t != nil {
		slug = t.Slug
		class = r.Classify(slug)
	}

	if class == ClassSecondary {
		if r.cfg.Secondary.configured() {
			return Credentials{Endpoint: r.cfg.Secondary.URL, Key: r.cfg.Secondary.Key, Source: SourceDedicated, Class: class}, nil
		}
		if !r.cfg.Main.configured() {
			return Credentials{}, &ConfigurationError{Class: class, Reason: "neither secondary nor main project is configured"}
		}
		r.log.Warn("credentials: secondary project not configured, using main project",
			zap.String("tenant_slug", slug),
			zap.String("endpoint", r.cfg.Main.URL),
			zap.String("key", Redact(r.cfg.Main.Key)))
		return Credentials{Endpoint: r.cfg.Main.URL, Key: r.cfg.Main.Key, Source: SourceFallback, Class: class}, nil
	}

	if !r.cfg.Main.configured() {
		return Credentials{}, &ConfigurationError{Class: class, Reason: "main project is not configured"}
	}
	return Credentials{Endpoint: r.cfg.Main.URL, Key: r.cfg.Main.Key, Source: SourceDefault, Class: class}, nil
}

// Diagnostic is the operator-facing view of routed credentials with the key truncated.
type Diagnostic struct {
	Class      Class  `json:"class"`
	Source     Source `json:"source"`
	Endpoint   string `json:"endpoint"`
	KeyPreview string `json:"key_preview"`
	Fallback   bool   `json:"fallback"`
}

// Diagnostic returns c with its secret redacted.
func (c Credentials) Diagnostic() Diagnostic {
	return Diagnostic{
		Class:      c.Class,
		Source:     c.Source,
		Endpoint:   c.Endpoint,
		KeyPreview: Redact(c.Key),
		Fallback:   c.Source == SourceFallback,
	}
}

// String never prints the key in full.
func (c Credentials) String() string {
	return fmt.Sprintf("%s/%s %s key=%s", c.Class, c.Source, c.Endpoint, Redact(c.Key))
}

// Redact keeps at most the first four characters of a secret.
func Redact(secret string) string {
	switch {
	case secret == "":
		return ""
	case len(secret) <= 8:
		return "****"
	default:
		return secret[:4] + "****"
	}
}

func compact(s string) string {
	s = strings.ToLower(strings.TrimSpace(s))
	return strings.NewReplacer("-", "", "_", "", " ", "").Replace(s)
}
