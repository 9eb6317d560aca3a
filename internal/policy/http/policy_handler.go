package http

import (
	"log/slog"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/allisson/gatekeeper/internal/httputil"
	policyDomain "github.com/allisson/gatekeeper/internal/policy/domain"
	"github.com/allisson/gatekeeper/internal/policy/http/dto"
	policyUseCase "github.com/allisson/gatekeeper/internal/policy/usecase"
	customValidation "github.com/allisson/gatekeeper/internal/validation"
)

// PolicyHandler handles HTTP requests for policy administration.
type PolicyHandler struct {
	policyUseCase policyUseCase.PolicyUseCase
	logger        *slog.Logger
}

// NewPolicyHandler creates a new policy handler.
func NewPolicyHandler(useCase policyUseCase.PolicyUseCase, logger *slog.Logger) *PolicyHandler {
	return &PolicyHandler{policyUseCase: useCase, logger: logger}
}

// CreateHandler creates a new policy with an ordered rule list.
// POST /v1/policies - write access.
func (h *PolicyHandler) CreateHandler(c *gin.Context) {
	var req dto.CreatePolicyRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		httputil.HandleBadRequestGin(c, err, h.logger)
		return
	}
	if err := req.Validate(); err != nil {
		httputil.HandleValidationErrorGin(c, customValidation.WrapValidationError(err), h.logger)
		return
	}

	ruleIDs, err := parseRuleIDs(req.RuleIDs)
	if err != nil {
		httputil.HandleBadRequestGin(c, err, h.logger)
		return
	}

	policy, err := h.policyUseCase.Create(c.Request.Context(), policyUseCase.CreatePolicyInput{
		Name:        req.Name,
		Description: req.Description,
		Scope:       policyDomain.PolicyScope(req.Scope),
		ScopeValue:  req.ScopeValue,
		FailureMode: policyDomain.FailureMode(req.FailureMode),
		Enabled:     req.IsEnabled(),
		RuleIDs:     ruleIDs,
		Metadata:    req.Metadata,
	}, requestActor(c))
	if err != nil {
		httputil.HandleErrorGin(c, err, h.logger)
		return
	}

	c.JSON(http.StatusCreated, dto.MapPolicyToResponse(policy))
}

// GetHandler retrieves a policy by id with its rules in attachment order.
// GET /v1/policies/:id - read access.
func (h *PolicyHandler) GetHandler(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		httputil.HandleBadRequestGin(c, err, h.logger)
		return
	}

	policy, err := h.policyUseCase.Get(c.Request.Context(), id)
	if err != nil {
		httputil.HandleErrorGin(c, err, h.logger)
		return
	}

	c.JSON(http.StatusOK, dto.MapPolicyToResponse(policy))
}

// ListHandler retrieves policies with pagination support.
// GET /v1/policies?offset=0&limit=50 - read access.
func (h *PolicyHandler) ListHandler(c *gin.Context) {
	offset, limit, err := httputil.ParsePagination(c)
	if err != nil {
		httputil.HandleBadRequestGin(c, err, h.logger)
		return
	}

	policies, err := h.policyUseCase.List(c.Request.Context(), offset, limit)
	if err != nil {
		httputil.HandleErrorGin(c, err, h.logger)
		return
	}

	items := make([]dto.PolicyResponse, 0, len(policies))
	for _, policy := range policies {
		items = append(items, dto.MapPolicyToResponse(policy))
	}

	c.JSON(http.StatusOK, dto.PolicyListResponse{Items: items, Offset: offset, Limit: limit})
}

// UpdateHandler applies partial updates to a policy. A present rule_ids list
// replaces the policy's ordered rule attachments.
// PATCH /v1/policies/:id - write access.
func (h *PolicyHandler) UpdateHandler(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		httputil.HandleBadRequestGin(c, err, h.logger)
		return
	}

	var req dto.UpdatePolicyRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		httputil.HandleBadRequestGin(c, err, h.logger)
		return
	}
	if err := req.Validate(); err != nil {
		httputil.HandleValidationErrorGin(c, customValidation.WrapValidationError(err), h.logger)
		return
	}

	input := policyUseCase.UpdatePolicyInput{
		Name:        req.Name,
		Description: req.Description,
		Enabled:     req.Enabled,
		Metadata:    req.Metadata,
	}
	if req.FailureMode != nil {
		mode := policyDomain.FailureMode(*req.FailureMode)
		input.FailureMode = &mode
	}
	if req.RuleIDs != nil {
		ruleIDs, err := parseRuleIDs(req.RuleIDs)
		if err != nil {
			httputil.HandleBadRequestGin(c, err, h.logger)
			return
		}
		input.RuleIDs = ruleIDs
	}

	policy, err := h.policyUseCase.Update(c.Request.Context(), id, input, requestActor(c))
	if err != nil {
		httputil.HandleErrorGin(c, err, h.logger)
		return
	}

	c.JSON(http.StatusOK, dto.MapPolicyToResponse(policy))
}

// DeleteHandler soft-deletes a policy.
// DELETE /v1/policies/:id - write access.
// Returns 204 No Content.
func (h *PolicyHandler) DeleteHandler(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		httputil.HandleBadRequestGin(c, err, h.logger)
		return
	}

	if err := h.policyUseCase.SoftDelete(c.Request.Context(), id, requestActor(c)); err != nil {
		httputil.HandleErrorGin(c, err, h.logger)
		return
	}

	c.Data(http.StatusNoContent, "application/json", nil)
}

// parseRuleIDs converts wire-form rule ids, preserving order.
func parseRuleIDs(raw []string) ([]uuid.UUID, error) {
	if raw == nil {
		return nil, nil
	}
	ids := make([]uuid.UUID, 0, len(raw))
	for _, s := range raw {
		id, err := uuid.Parse(s)
		if err != nil {
			return nil, err
		}
		ids = append(ids, id)
	}
	return ids, nil
}
