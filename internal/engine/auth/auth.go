package auth

import (
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/m-mizutani/goerr/v2"

	"hotelops/internal/config"
)

// ForbiddenError indicates missing permission.
type ForbiddenError struct {
	Permission string
}

func (e ForbiddenError) Error() string {
	return fmt.Sprintf("permission %s required", e.Permission)
}

// Authorizer resolves roles to permissions from the auth.roles config block.
type Authorizer struct {
	Roles map[string]config.RoleSpec
}

func New(cfg *config.Config) Authorizer {
	if cfg == nil {
		return Authorizer{}
	}
	return Authorizer{Roles: cfg.Auth.Roles}
}

// Permissions returns the sorted union of permissions granted by roles.
func (a Authorizer) Permissions(roles []string) []string {
	seen := map[string]bool{}
	var perms []string
	for _, role := range roles {
		for _, p := range a.Roles[role].Permissions {
			if !seen[p] {
				seen[p] = true
				perms = append(perms, p)
			}
		}
	}
	sort.Strings(perms)
	return perms
}

func (a Authorizer) KnownRole(role string) bool {
	_, ok := a.Roles[role]
	return ok
}

// Require checks perm against explicit grants first, then against roles.
func (a Authorizer) Require(roles, granted []string, perm string) error {
	for _, p := range granted {
		if p == perm {
			return nil
		}
	}
	for _, role := range roles {
		for _, p := range a.Roles[role].Permissions {
			if p == perm {
				return nil
			}
		}
	}
	return ForbiddenError{Permission: perm}
}

// Claims is the HS256 session token payload.
type Claims struct {
	jwt.RegisteredClaims
	Roles       []string `json:"roles,omitempty"`
	Permissions []string `json:"permissions,omitempty"`
}

// IssueToken mints a session token for subject.
func IssueToken(secret, subject string, roles []string, ttl time.Duration, now time.Time) (string, error) {
	if strings.TrimSpace(secret) == "" {
		return "", goerr.New("jwt secret not configured")
	}
	if strings.TrimSpace(subject) == "" {
		return "", goerr.New("subject required")
	}
	claims := Claims{
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:  subject,
			Issuer:   "hotelops",
			IssuedAt: jwt.NewNumericDate(now),
		},
		Roles: roles,
	}
	if ttl > 0 {
		claims.ExpiresAt = jwt.NewNumericDate(now.Add(ttl))
	}
	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(secret))
	if err != nil {
		return "", goerr.Wrap(err, "sign token", goerr.V("subject", subject))
	}
	return signed, nil
}

// ParseToken validates an HS256 token and returns its claims.
func ParseToken(token, secret string) (*Claims, error) {
	if strings.TrimSpace(secret) == "" {
		return nil, errors.New("jwt secret not configured")
	}
	parser := jwt.NewParser(jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}))
	claims := &Claims{}
	parsed, err := parser.ParseWithClaims(token, claims, func(t *jwt.Token) (any, error) {
		return []byte(secret), nil
	})
	if err != nil {
		return nil, err
	}
	if !parsed.Valid {
		return nil, errors.New("invalid token")
	}
	if claims.Subject == "" {
		return nil, errors.New("subject claim required")
	}
	return claims, nil
}
