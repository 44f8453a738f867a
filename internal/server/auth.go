package server

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"path"
	"strings"

	"github.com/danielgtaylor/huma/v2"

	"hotelops/internal/engine/auth"
	"hotelops/internal/logging"
	"hotelops/internal/repo"
)

type AuthConfig struct {
	JWTSecret  string
	Authorizer auth.Authorizer
}

type Principal struct {
	ActorID     string
	Roles       []string
	Permissions []string
	Source      string
}

type principalKey struct{}

func withPrincipal(ctx context.Context, p Principal) context.Context {
	return context.WithValue(ctx, principalKey{}, p)
}

func principalFromContext(ctx context.Context) (Principal, bool) {
	p, ok := ctx.Value(principalKey{}).(Principal)
	return p, ok
}

func principalFromRequest(ctx context.Context) (Principal, huma.StatusError) {
	if p, ok := principalFromContext(ctx); ok && p.ActorID != "" {
		return p, nil
	}
	return Principal{}, newAPIError(http.StatusUnauthorized, "unauthorized", "authentication required", nil)
}

func authenticateJWT(token, secret string) (Principal, error) {
	claims, err := auth.ParseToken(token, secret)
	if err != nil {
		return Principal{}, err
	}
	return Principal{
		ActorID:     claims.Subject,
		Roles:       claims.Roles,
		Permissions: claims.Permissions,
		Source:      "jwt",
	}, nil
}

func authenticateAPIKey(ctx context.Context, r repo.Repo, key string) (Principal, error) {
	if strings.TrimSpace(key) == "" {
		return Principal{}, errors.New("api key required")
	}
	apiKey, err := r.GetAPIKeyByHash(ctx, repo.HashAPIKey(key))
	if err != nil {
		return Principal{}, err
	}
	if apiKey.ActorID == "" {
		return Principal{}, errors.New("api key missing actor")
	}
	return Principal{
		ActorID: apiKey.ActorID,
		Roles:   []string{apiKey.Role},
		Source:  "api_key",
	}, nil
}

func bearerToken(authz string) (string, bool) {
	parts := strings.Fields(authz)
	if len(parts) != 2 || !strings.EqualFold(parts[0], "bearer") {
		return "", false
	}
	return parts[1], true
}

var errInvalidCredentials = newAPIError(http.StatusUnauthorized, "invalid_credentials", "invalid credentials", nil)

// authenticate resolves the caller from a bearer JWT or, failing that, an
// X-Api-Key header. A malformed or rejected credential is never retried
// against the other scheme.
func authenticate(req *http.Request, cfg AuthConfig, r repo.Repo) (Principal, huma.StatusError) {
	logger := logging.From(req.Context())
	if authz := strings.TrimSpace(req.Header.Get("Authorization")); authz != "" {
		token, ok := bearerToken(authz)
		if !ok {
			return Principal{}, errInvalidCredentials
		}
		principal, err := authenticateJWT(token, cfg.JWTSecret)
		if err != nil {
			logger.Debug("rejected bearer token", "error", err.Error())
			return Principal{}, errInvalidCredentials
		}
		return principal, nil
	}
	if key := strings.TrimSpace(req.Header.Get("X-Api-Key")); key != "" {
		principal, err := authenticateAPIKey(req.Context(), r, key)
		if err != nil {
			logger.Debug("rejected api key", "error", err.Error())
			return Principal{}, errInvalidCredentials
		}
		return principal, nil
	}
	return Principal{}, newAPIError(http.StatusUnauthorized, "unauthorized", "authentication required", nil)
}

// newAuthMiddleware guards everything under basePath except health and the
// OpenAPI document.
func newAuthMiddleware(basePath string, cfg AuthConfig, r repo.Repo) func(http.Handler) http.Handler {
	public := map[string]bool{
		path.Join(basePath, "health"):       true,
		path.Join(basePath, "openapi.json"): true,
	}
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, req *http.Request) {
			if !strings.HasPrefix(req.URL.Path, basePath) || public[req.URL.Path] {
				next.ServeHTTP(w, req)
				return
			}
			principal, authErr := authenticate(req, cfg, r)
			if authErr != nil {
				respondStatusError(w, authErr)
				return
			}
			logger := logging.From(req.Context()).With("actor_id", principal.ActorID, "auth", principal.Source)
			next.ServeHTTP(w, req.WithContext(logging.With(withPrincipal(req.Context(), principal), logger)))
		})
	}
}

// authorize checks the caller's roles and token grants against perm and
// returns the caller's actor id.
func authorize(ctx context.Context, cfg AuthConfig, perm string) (string, huma.StatusError) {
	principal, authErr := principalFromRequest(ctx)
	if authErr != nil {
		return "", authErr
	}
	if err := cfg.Authorizer.Require(principal.Roles, principal.Permissions, perm); err != nil {
		return "", handleError(ctx, err)
	}
	return principal.ActorID, nil
}

func respondStatusError(w http.ResponseWriter, err huma.StatusError) {
	status := http.StatusInternalServerError
	if e, ok := err.(interface{ GetStatus() int }); ok {
		status = e.GetStatus()
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(err)
}
