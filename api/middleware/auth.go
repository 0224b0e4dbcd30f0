package middleware

import (
	"net/http"
	"strings"

	"github.com/craftora/backoffice/api/responses"
	pkgauth "github.com/craftora/backoffice/pkg/auth"
	"github.com/craftora/backoffice/pkg/config"
	pkgerrors "github.com/craftora/backoffice/pkg/errors"
	"github.com/craftora/backoffice/pkg/logger"
)

// Auth validates a bearer token and seeds the request context with the
// admin's capability.
func Auth(cfg config.JWTConfig, logg *logger.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			raw := strings.TrimSpace(r.Header.Get("Authorization"))
			if raw == "" {
				responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeUnauthorized, "missing credentials"))
				return
			}

			token := raw
			if strings.HasPrefix(strings.ToLower(token), "bearer ") {
				token = strings.TrimSpace(token[7:])
			}
			if token == "" {
				responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeUnauthorized, "missing credentials"))
				return
			}

			claims, err := pkgauth.ParseAccessToken(cfg, token)
			if err != nil {
				responses.WriteError(r.Context(), logg, w, pkgerrors.Wrap(pkgerrors.CodeUnauthorized, err, "invalid token"))
				return
			}

			capability := pkgauth.CapabilityFromClaims(claims)
			ctx := WithCapability(r.Context(), capability)
			if logg != nil {
				ctx = logg.WithFields(ctx, map[string]any{
					"user_id":    capability.UserID.String(),
					"actor_role": string(capability.Role),
				})
			}

			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// RequireSuperadmin refuses requests whose capability is not privileged.
func RequireSuperadmin(logg *logger.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if !CapabilityFromContext(r.Context()).Privileged {
				responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeForbidden, "superadmin role required"))
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}
