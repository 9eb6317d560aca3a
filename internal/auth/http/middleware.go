package http

import (
	"log/slog"
	"net/http"
	"strings"

	"github.com/gin-contrib/requestid"
	"github.com/gin-gonic/gin"

	authDomain "github.com/allisson/gatekeeper/internal/auth/domain"
	authUseCase "github.com/allisson/gatekeeper/internal/auth/usecase"
	apperrors "github.com/allisson/gatekeeper/internal/errors"
	"github.com/allisson/gatekeeper/internal/httputil"
)

// IdentityMiddleware resolves the request's bearer credential into an
// Identity and stores it in the request context.
//
// Authorization header format: "Bearer <credential>" (case-insensitive).
//
// When authRequired is false and no credential is presented, the request
// proceeds with an anonymous wildcard identity. This exists for local
// development only; a presented credential is still fully validated.
//
// Error handling:
//   - Missing/malformed header with auth required → 401 Unauthorized
//   - Unknown, revoked, or mismatched credential → 403 Forbidden
func IdentityMiddleware(
	authenticator authUseCase.Authenticator,
	authRequired bool,
	logger *slog.Logger,
) gin.HandlerFunc {
	return func(c *gin.Context) {
		credential := bearerCredential(c.GetHeader("Authorization"))

		if credential == "" && !authRequired {
			identity := &authDomain.Identity{
				ActorID:   "anonymous",
				ActorType: authDomain.ActorTypeService,
				Scopes:    []string{authDomain.ScopeWildcard},
			}
			c.Request = c.Request.WithContext(WithIdentity(c.Request.Context(), identity))
			c.Next()
			return
		}

		identity, err := authenticator.Authenticate(c.Request.Context(), credential)
		if err != nil {
			logger.Debug("authentication failed", slog.String("error", err.Error()))
			httputil.HandleErrorGin(c, err, logger)
			c.Abort()
			return
		}

		c.Request = c.Request.WithContext(WithIdentity(c.Request.Context(), identity))

		logger.Debug("authentication successful",
			slog.String("actor_id", identity.ActorID),
			slog.String("actor_type", string(identity.ActorType)))

		c.Next()
	}
}

// EnforcementMiddleware authorizes the identified request at the given access
// level. A denied decision aborts with 403 and a machine-readable reason;
// every decision, allowed or denied, lands on the audit chain via the
// authorizer.
//
// MUST be used after IdentityMiddleware.
func EnforcementMiddleware(
	authorizer authUseCase.Authorizer,
	level authDomain.AccessLevel,
	logger *slog.Logger,
) gin.HandlerFunc {
	return func(c *gin.Context) {
		identity, ok := GetIdentity(c.Request.Context())
		if !ok || identity == nil {
			logger.Error("enforcement middleware: no identity in context")
			httputil.HandleErrorGin(c, apperrors.ErrUnauthorized, logger)
			c.Abort()
			return
		}

		request := authUseCase.AccessRequest{
			Method:      c.Request.Method,
			Path:        c.Request.URL.Path,
			AccessLevel: level,
			Context:     requestContext(c, identity),
		}

		decision, err := authorizer.Authorize(c.Request.Context(), identity, request)
		if err != nil {
			httputil.HandleErrorGin(c, err, logger)
			c.Abort()
			return
		}

		if !decision.Allowed {
			logger.Debug("authorization denied",
				slog.String("actor_id", identity.ActorID),
				slog.String("path", request.Path),
				slog.String("reason", decision.Reason))

			c.JSON(http.StatusForbidden, gin.H{
				"error":  "authorization_denied",
				"reason": decision.Reason,
			})
			c.Abort()
			return
		}

		c.Next()
	}
}

// bearerCredential extracts the credential from a Bearer authorization header.
// Returns "" for missing or malformed headers.
func bearerCredential(header string) string {
	const bearerPrefix = "bearer "
	if len(header) < len(bearerPrefix) ||
		!strings.EqualFold(header[:len(bearerPrefix)], bearerPrefix) {
		return ""
	}
	return header[len(bearerPrefix):]
}

// requestContext builds the opaque evaluation context handed to the policy
// engine and recorded on the audit chain. Tenant/org/team hints come from the
// identity first, then from request headers.
func requestContext(c *gin.Context, identity *authDomain.Identity) map[string]any {
	context := map[string]any{
		"request": map[string]any{
			"method": c.Request.Method,
			"path":   c.Request.URL.Path,
			"id":     requestid.Get(c),
		},
		"actor": map[string]any{
			"id":     identity.ActorID,
			"type":   string(identity.ActorType),
			"scopes": identity.Scopes,
		},
	}

	setHint := func(key, identityValue, header string) {
		if identityValue != "" {
			context[key] = identityValue
		} else if v := c.GetHeader(header); v != "" {
			context[key] = v
		}
	}
	setHint("tenant_id", identity.TenantID, "X-Tenant-ID")
	setHint("org_id", identity.OrgID, "X-Org-ID")
	setHint("team_id", identity.TeamID, "X-Team-ID")
	setHint("user_id", identity.UserID, "X-User-ID")

	return context
}
