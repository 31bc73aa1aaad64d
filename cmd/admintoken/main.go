// admintoken signs an admin bearer token for local environments. Production tokens come from the
// identity provider. Requires JWT_PRIVATE_KEY (inline PEM or path); iss/aud follow JWT_ISSUER and JWT_AUDIENCE.
package main

import (
	"flag"
	"fmt"
	"os"
	"strings"
	"time"

	"storefront/backend/internal/config"
	"storefront/backend/internal/security"
)

func main() {
	subject := flag.String("sub", "local-admin", "Actor id (sub claim)")
	email := flag.String("email", "", "Actor email, used as the audit label")
	roles := flag.String("roles", "tenant_admin", "Comma-separated roles (tenant_admin, tenant_viewer)")
	ttl := flag.Duration("ttl", time.Hour, "Token lifetime")
	flag.Parse()

	cfg, err := config.Load()
	if err != nil {
		fail(err)
	}
	if cfg.IsProduction() {
		fail(fmt.Errorf("admintoken: refusing to mint tokens with APP_ENV=production"))
	}
	if cfg.JWTPrivateKey == "" {
		fail(fmt.Errorf("admintoken: JWT_PRIVATE_KEY is not set"))
	}
	signer, err := security.ParsePrivateKey(cfg.JWTPrivateKey)
	if err != nil {
		fail(fmt.Errorf("admintoken: JWT_PRIVATE_KEY: %w", err))
	}

	var roleList []string
	for _, r := range strings.Split(*roles, ",") {
		if r = strings.TrimSpace(r); r != "" {
			roleList = append(roleList, r)
		}
	}
	token, exp, err := security.NewTokenIssuer(signer, cfg.JWTIssuer, cfg.JWTAudience).Issue(*subject, *email, roleList, *ttl)
	if err != nil {
		fail(err)
	}
	fmt.Fprintf(os.Stderr, "expires %s\n", exp.Format(time.RFC3339))
	fmt.Println(token)
}

func fail(err error) {
	fmt.Fprintln(os.Stderr, err)
	os.Exit(1)
}
