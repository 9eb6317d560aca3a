package http

import (
	"log/slog"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	authDomain "github.com/allisson/gatekeeper/internal/auth/domain"
	"github.com/allisson/gatekeeper/internal/auth/http/dto"
	authUseCase "github.com/allisson/gatekeeper/internal/auth/usecase"
	"github.com/allisson/gatekeeper/internal/httputil"
	customValidation "github.com/allisson/gatekeeper/internal/validation"
)

// APIKeyHandler handles HTTP requests for the API key admin surface.
type APIKeyHandler struct {
	apiKeyUseCase authUseCase.APIKeyUseCase
	logger        *slog.Logger
}

// NewAPIKeyHandler creates a new API key handler.
func NewAPIKeyHandler(apiKeyUseCase authUseCase.APIKeyUseCase, logger *slog.Logger) *APIKeyHandler {
	return &APIKeyHandler{apiKeyUseCase: apiKeyUseCase, logger: logger}
}

// CreateHandler issues a new API key.
// POST /v1/api-keys - admin access.
// Returns 201 Created with the plain token, shown exactly once.
func (h *APIKeyHandler) CreateHandler(c *gin.Context) {
	var req dto.CreateAPIKeyRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		httputil.HandleBadRequestGin(c, err, h.logger)
		return
	}
	if err := req.Validate(); err != nil {
		httputil.HandleValidationErrorGin(c, customValidation.WrapValidationError(err), h.logger)
		return
	}

	output, err := h.apiKeyUseCase.Create(c.Request.Context(), authDomain.CreateAPIKeyInput{
		Name:        req.Name,
		Description: req.Description,
		TenantID:    req.TenantID,
		OrgID:       req.OrgID,
		Scopes:      req.Scopes,
	}, requestActor(c))
	if err != nil {
		httputil.HandleErrorGin(c, err, h.logger)
		return
	}

	c.JSON(http.StatusCreated, dto.MapAPIKeyToCreateResponse(output))
}

// GetHandler retrieves an API key by id.
// GET /v1/api-keys/:id - admin access.
func (h *APIKeyHandler) GetHandler(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		httputil.HandleBadRequestGin(c, err, h.logger)
		return
	}

	key, err := h.apiKeyUseCase.Get(c.Request.Context(), id)
	if err != nil {
		httputil.HandleErrorGin(c, err, h.logger)
		return
	}

	c.JSON(http.StatusOK, dto.MapAPIKeyToResponse(key))
}

// ListHandler retrieves API keys with pagination support.
// GET /v1/api-keys?offset=0&limit=50 - admin access.
func (h *APIKeyHandler) ListHandler(c *gin.Context) {
	offset, limit, err := httputil.ParsePagination(c)
	if err != nil {
		httputil.HandleBadRequestGin(c, err, h.logger)
		return
	}

	keys, err := h.apiKeyUseCase.List(c.Request.Context(), offset, limit)
	if err != nil {
		httputil.HandleErrorGin(c, err, h.logger)
		return
	}

	items := make([]dto.APIKeyResponse, 0, len(keys))
	for _, key := range keys {
		items = append(items, dto.MapAPIKeyToResponse(key))
	}

	c.JSON(http.StatusOK, dto.APIKeyListResponse{Items: items, Offset: offset, Limit: limit})
}

// RevokeHandler revokes an API key. Revoked keys fail authentication.
// POST /v1/api-keys/:id/revoke - admin access.
// Returns 204 No Content.
func (h *APIKeyHandler) RevokeHandler(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		httputil.HandleBadRequestGin(c, err, h.logger)
		return
	}

	if err := h.apiKeyUseCase.Revoke(c.Request.Context(), id, requestActor(c)); err != nil {
		httputil.HandleErrorGin(c, err, h.logger)
		return
	}

	c.Data(http.StatusNoContent, "application/json", nil)
}

// requestActor derives the audit actor from the request's resolved identity.
func requestActor(c *gin.Context) authUseCase.Actor {
	identity, ok := GetIdentity(c.Request.Context())
	if !ok || identity == nil {
		return authUseCase.Actor{ID: "unknown", Type: string(authDomain.ActorTypeService)}
	}

	actor := authUseCase.Actor{
		ID:   identity.ActorID,
		Type: string(identity.ActorType),
	}

	context := map[string]any{}
	if identity.TenantID != "" {
		context["tenant_id"] = identity.TenantID
	}
	if identity.OrgID != "" {
		context["org_id"] = identity.OrgID
	}
	if len(context) > 0 {
		actor.Context = context
	}

	return actor
}
