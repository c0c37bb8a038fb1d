// Package token issues and verifies the signed bearer tokens used for API
// authentication.
package token

import (
	"crypto/rand"
	"encoding/base64"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v4"
	"github.com/smallbiznis/realtyledger/internal/auth/domain"
	"github.com/smallbiznis/realtyledger/internal/clock"
	"github.com/smallbiznis/realtyledger/internal/config"
	"go.uber.org/zap"
)

const (
	issuerName    = "realtyledger"
	minSecretSize = 32
)

// ErrMissingSecret is returned in production when AUTH_JWT_SECRET is unset.
var ErrMissingSecret = errors.New("auth_jwt_secret_required")

// Claims is the JWT payload. The subject is the agent ID or the admin username.
type Claims struct {
	Role domain.Role `json:"role"`
	jwt.RegisteredClaims
}

type Issuer struct {
	secret []byte
	ttl    time.Duration
	clock  clock.Clock
}

// NewIssuer builds an Issuer from config. Outside production a missing secret
// is replaced by a random per-process key.
func NewIssuer(cfg config.Config, clk clock.Clock, log *zap.Logger) (*Issuer, error) {
	secret := strings.TrimSpace(cfg.AuthJWTSecret)
	if secret == "" {
		if cfg.IsProduction() {
			return nil, ErrMissingSecret
		}
		generated, err := randomSecret()
		if err != nil {
			return nil, err
		}
		log.Warn("AUTH_JWT_SECRET not set, using a random signing key; tokens will not survive a restart")
		secret = generated
	} else if len(secret) < minSecretSize {
		log.Warn("AUTH_JWT_SECRET is shorter than recommended", zap.Int("length", len(secret)))
	}

	ttl := cfg.AuthTokenTTL
	if ttl <= 0 {
		ttl = 7 * 24 * time.Hour
	}
	return New([]byte(secret), ttl, clk), nil
}

func New(secret []byte, ttl time.Duration, clk clock.Clock) *Issuer {
	if clk == nil {
		clk = clock.SystemClock{}
	}
	return &Issuer{secret: secret, ttl: ttl, clock: clk}
}

func (i *Issuer) TTL() time.Duration { return i.ttl }

// Issue signs a token for subject with the given role.
func (i *Issuer) Issue(subject string, role domain.Role) (string, time.Time, error) {
	now := i.clock.Now()
	expiresAt := now.Add(i.ttl)
	claims := Claims{
		Role: role,
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    issuerName,
			Subject:   subject,
			IssuedAt:  jwt.NewNumericDate(now),
			NotBefore: jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(expiresAt),
		},
	}

	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(i.secret)
	if err != nil {
		return "", time.Time{}, fmt.Errorf("sign token: %w", err)
	}
	return signed, expiresAt, nil
}

// Parse verifies the signature, expiry and role of raw.
func (i *Issuer) Parse(raw string) (*Claims, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return nil, domain.ErrInvalidToken
	}

	parser := jwt.NewParser(jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}))
	claims := &Claims{}
	parsed, err := parser.ParseWithClaims(raw, claims, func(*jwt.Token) (interface{}, error) {
		return i.secret, nil
	})
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return nil, domain.ErrTokenExpired
		}
		return nil, domain.ErrInvalidToken
	}
	if !parsed.Valid || !claims.Role.Valid() || strings.TrimSpace(claims.Subject) == "" {
		return nil, domain.ErrInvalidToken
	}
	return claims, nil
}

func randomSecret() (string, error) {
	buf := make([]byte, minSecretSize)
	if _, err := rand.Read(buf); err != nil {
		return "", fmt.Errorf("generate signing key: %w", err)
	}
	return base64.RawStdEncoding.EncodeToString(buf), nil
}
