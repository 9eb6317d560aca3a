package http

import (
	"log/slog"
	"net/http"

	"github.com/gin-gonic/gin"

	authDomain "github.com/allisson/gatekeeper/internal/auth/domain"
	"github.com/allisson/gatekeeper/internal/auth/http/dto"
	authUseCase "github.com/allisson/gatekeeper/internal/auth/usecase"
	apperrors "github.com/allisson/gatekeeper/internal/errors"
	"github.com/allisson/gatekeeper/internal/httputil"
	customValidation "github.com/allisson/gatekeeper/internal/validation"
)

// AuthorizeHandler exposes the decision endpoint: it evaluates a described
// request against the caller's identity and returns the Decision without
// enforcing it.
type AuthorizeHandler struct {
	authorizer authUseCase.Authorizer
	logger     *slog.Logger
}

// NewAuthorizeHandler creates a new authorize handler.
func NewAuthorizeHandler(authorizer authUseCase.Authorizer, logger *slog.Logger) *AuthorizeHandler {
	return &AuthorizeHandler{authorizer: authorizer, logger: logger}
}

// AuthorizeEndpoint evaluates a described request for the caller's identity.
// POST /v1/authorize - read access.
// Returns 200 OK with the Decision; denials are data here, not HTTP errors.
// The decision lands on the audit chain like any enforced one.
func (h *AuthorizeHandler) AuthorizeEndpoint(c *gin.Context) {
	identity, ok := GetIdentity(c.Request.Context())
	if !ok || identity == nil {
		httputil.HandleErrorGin(c, apperrors.ErrUnauthorized, h.logger)
		return
	}

	// The endpoint itself is read-level: a caller without the read scope is
	// rejected before any evaluation or audit write. The described request's
	// own scope check happens inside the authorizer as part of the decision.
	if !identity.Static() && !identity.HasScope(authDomain.AccessRead.RequiredScope()) {
		httputil.HandleErrorGin(c, apperrors.ErrForbidden, h.logger)
		return
	}

	var req dto.AuthorizeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		httputil.HandleBadRequestGin(c, err, h.logger)
		return
	}
	if err := req.Validate(); err != nil {
		httputil.HandleValidationErrorGin(c, customValidation.WrapValidationError(err), h.logger)
		return
	}

	level := authDomain.AccessLevel(req.AccessLevel)
	if req.AccessLevel == "" {
		level = authDomain.AccessRead
	}

	context := req.Context
	if context == nil {
		context = map[string]any{}
	}
	context["actor"] = map[string]any{
		"id":     identity.ActorID,
		"type":   string(identity.ActorType),
		"scopes": identity.Scopes,
	}

	decision, err := h.authorizer.Authorize(c.Request.Context(), identity, authUseCase.AccessRequest{
		Method:      req.Method,
		Path:        req.Path,
		AccessLevel: level,
		Context:     context,
	})
	if err != nil {
		httputil.HandleErrorGin(c, err, h.logger)
		return
	}

	c.JSON(http.StatusOK, decision)
}
