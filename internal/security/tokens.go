package security

import (
	"crypto"
	"crypto/rand"
	"encoding/hex"
	"errors"
	"slices"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// ErrInvalidToken is returned when a token is malformed, expired, or signed for someone else.
var ErrInvalidToken = errors.New("invalid token")

// AdminClaims are the claims carried by an admin bearer token. Subject is the actor id.
type AdminClaims struct {
	jwt.RegisteredClaims
	Email string   `json:"email,omitempty"`
	Roles []string `json:"roles,omitempty"`
}

// ActorID returns the subject claim.
func (c *AdminClaims) ActorID() string { return c.Subject }

// ActorLabel returns the human-readable actor: the email when present, else the subject.
func (c *AdminClaims) ActorLabel() string {
	if c.Email != "" {
		return c.Email
	}
	return c.Subject
}

// TokenVerifier validates admin bearer tokens signed with RS256 or ES256.
type TokenVerifier struct {
	publicKey crypto.PublicKey
	issuer    string
	audience  string
	leeway    time.Duration
}

// NewTokenVerifier returns a verifier checking signature, exp, iss and aud.
func NewTokenVerifier(publicKey crypto.PublicKey, issuer, audience string) *TokenVerifier {
	return &TokenVerifier{publicKey: publicKey, issuer: issuer, audience: audience, leeway: 30 * time.Second}
}

// Verify parses tokenString (with or without a "Bearer " prefix) and returns its claims.
func (v *TokenVerifier) Verify(tokenString string) (*AdminClaims, error) {
	tokenString = strings.TrimSpace(strings.TrimPrefix(strings.TrimSpace(tokenString), "Bearer "))
	if tokenString == "" || v == nil || v.publicKey == nil {
		return nil, ErrInvalidToken
	}
	alg := KeyAlg(v.publicKey)
	token, err := jwt.ParseWithClaims(tokenString, &AdminClaims{},
		func(*jwt.Token) (any, error) { return v.publicKey, nil },
		jwt.WithValidMethods([]string{alg}),
		jwt.WithIssuer(v.issuer),
		jwt.WithAudience(v.audience),
		jwt.WithExpirationRequired(),
		jwt.WithLeeway(v.leeway),
	)
	if err != nil || !token.Valid {
		return nil, ErrInvalidToken
	}
	claims, ok := token.Claims.(*AdminClaims)
	if !ok || claims.Subject == "" {
		return nil, ErrInvalidToken
	}
	return claims, nil
}

// TokenIssuer signs admin tokens. Production tokens come from the identity provider; the issuer
// backs cmd/admintoken for local environments and tests.
type TokenIssuer struct {
	privateKey crypto.Signer
	issuer     string
	audience   string
}

// NewTokenIssuer returns an issuer signing with privateKey (RSA or ECDSA).
func NewTokenIssuer(privateKey crypto.Signer, issuer, audience string) *TokenIssuer {
	return &TokenIssuer{privateKey: privateKey, issuer: issuer, audience: audience}
}

// Issue signs a token for subject valid for ttl.
func (p *TokenIssuer) Issue(subject, email string, roles []string, ttl time.Duration) (string, time.Time, error) {
	jti, err := generateJTI()
	if err != nil {
		return "", time.Time{}, err
	}
	now := time.Now().UTC()
	expiresAt := now.Add(ttl)
	claims := AdminClaims{
		RegisteredClaims: jwt.RegisteredClaims{
			ID:        jti,
			Subject:   subject,
			Issuer:    p.issuer,
			Audience:  jwt.ClaimStrings{p.audience},
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(expiresAt),
		},
		Email: email,
		Roles: slices.Clone(roles),
	}
	var method jwt.SigningMethod
	switch KeyAlg(p.privateKey.Public()) {
	case "RS256":
		method = jwt.SigningMethodRS256
	case "ES256":
		method = jwt.SigningMethodES256
	default:
		return "", time.Time{}, ErrInvalidKey
	}
	signed, err := jwt.NewWithClaims(method, claims).SignedString(p.privateKey)
	if err != nil {
		return "", time.Time{}, err
	}
	return signed, expiresAt, nil
}

func generateJTI() (string, error) {
	b := make([]byte, 16)
	if _, err := rand.Read(b); err != nil {
		return "", err
	}
	return hex.EncodeToString(b), nil
}
