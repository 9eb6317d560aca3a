// Package http provides HTTP handlers for policy and rule administration.
package http

import (
	"log/slog"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	authDomain "github.com/allisson/gatekeeper/internal/auth/domain"
	authHTTP "github.com/allisson/gatekeeper/internal/auth/http"
	"github.com/allisson/gatekeeper/internal/httputil"
	policyDomain "github.com/allisson/gatekeeper/internal/policy/domain"
	"github.com/allisson/gatekeeper/internal/policy/http/dto"
	policyUseCase "github.com/allisson/gatekeeper/internal/policy/usecase"
	customValidation "github.com/allisson/gatekeeper/internal/validation"
)

// RuleHandler handles HTTP requests for rule administration.
type RuleHandler struct {
	ruleUseCase policyUseCase.RuleUseCase
	logger      *slog.Logger
}

// NewRuleHandler creates a new rule handler.
func NewRuleHandler(ruleUseCase policyUseCase.RuleUseCase, logger *slog.Logger) *RuleHandler {
	return &RuleHandler{ruleUseCase: ruleUseCase, logger: logger}
}

// CreateHandler creates a new rule.
// POST /v1/rules - write access.
func (h *RuleHandler) CreateHandler(c *gin.Context) {
	var req dto.CreateRuleRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		httputil.HandleBadRequestGin(c, err, h.logger)
		return
	}
	if err := req.Validate(); err != nil {
		httputil.HandleValidationErrorGin(c, customValidation.WrapValidationError(err), h.logger)
		return
	}

	input := policyUseCase.CreateRuleInput{
		Name:        req.Name,
		Description: req.Description,
		Type:        policyDomain.RuleType(req.Type),
		Condition:   req.Condition.ToDomain(),
		Operator:    policyDomain.RuleOperator(req.Operator),
		Enabled:     req.IsEnabled(),
		Priority:    req.Priority,
		Metadata:    req.Metadata,
	}
	if req.ParentRuleID != "" {
		parentID, err := uuid.Parse(req.ParentRuleID)
		if err != nil {
			httputil.HandleBadRequestGin(c, err, h.logger)
			return
		}
		input.ParentRuleID = &parentID
	}

	rule, err := h.ruleUseCase.Create(c.Request.Context(), input, requestActor(c))
	if err != nil {
		httputil.HandleErrorGin(c, err, h.logger)
		return
	}

	c.JSON(http.StatusCreated, dto.MapRuleToResponse(rule))
}

// GetHandler retrieves a rule by id, children included for composites.
// GET /v1/rules/:id - read access.
func (h *RuleHandler) GetHandler(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		httputil.HandleBadRequestGin(c, err, h.logger)
		return
	}

	rule, err := h.ruleUseCase.Get(c.Request.Context(), id)
	if err != nil {
		httputil.HandleErrorGin(c, err, h.logger)
		return
	}

	c.JSON(http.StatusOK, dto.MapRuleToResponse(rule))
}

// ListHandler retrieves rules with pagination support.
// GET /v1/rules?offset=0&limit=50 - read access.
func (h *RuleHandler) ListHandler(c *gin.Context) {
	offset, limit, err := httputil.ParsePagination(c)
	if err != nil {
		httputil.HandleBadRequestGin(c, err, h.logger)
		return
	}

	rules, err := h.ruleUseCase.List(c.Request.Context(), offset, limit)
	if err != nil {
		httputil.HandleErrorGin(c, err, h.logger)
		return
	}

	items := make([]dto.RuleResponse, 0, len(rules))
	for _, rule := range rules {
		items = append(items, dto.MapRuleToResponse(rule))
	}

	c.JSON(http.StatusOK, dto.RuleListResponse{Items: items, Offset: offset, Limit: limit})
}

// UpdateHandler applies partial updates to a rule.
// PATCH /v1/rules/:id - write access.
func (h *RuleHandler) UpdateHandler(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		httputil.HandleBadRequestGin(c, err, h.logger)
		return
	}

	var req dto.UpdateRuleRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		httputil.HandleBadRequestGin(c, err, h.logger)
		return
	}
	if err := req.Validate(); err != nil {
		httputil.HandleValidationErrorGin(c, customValidation.WrapValidationError(err), h.logger)
		return
	}

	rule, err := h.ruleUseCase.Update(c.Request.Context(), id, policyUseCase.UpdateRuleInput{
		Name:        req.Name,
		Description: req.Description,
		Condition:   req.Condition.ToDomain(),
		Enabled:     req.Enabled,
		Priority:    req.Priority,
		Metadata:    req.Metadata,
	}, requestActor(c))
	if err != nil {
		httputil.HandleErrorGin(c, err, h.logger)
		return
	}

	c.JSON(http.StatusOK, dto.MapRuleToResponse(rule))
}

// DeleteHandler soft-deletes a rule. The rule disappears from listings and
// evaluation but stays referenced by the audit chain.
// DELETE /v1/rules/:id - write access.
// Returns 204 No Content.
func (h *RuleHandler) DeleteHandler(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		httputil.HandleBadRequestGin(c, err, h.logger)
		return
	}

	if err := h.ruleUseCase.SoftDelete(c.Request.Context(), id, requestActor(c)); err != nil {
		httputil.HandleErrorGin(c, err, h.logger)
		return
	}

	c.Data(http.StatusNoContent, "application/json", nil)
}

// requestActor derives the audit actor from the request's resolved identity.
func requestActor(c *gin.Context) policyUseCase.Actor {
	identity, ok := authHTTP.GetIdentity(c.Request.Context())
	if !ok || identity == nil {
		return policyUseCase.Actor{ID: "unknown", Type: string(authDomain.ActorTypeService)}
	}

	actor := policyUseCase.Actor{
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
