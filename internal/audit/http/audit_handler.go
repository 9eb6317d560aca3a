// Package http provides HTTP handlers for the audit chain read surface:
// listings, histories, integrity verification, and checkpoints.
package http

import (
	"fmt"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	auditDomain "github.com/allisson/gatekeeper/internal/audit/domain"
	"github.com/allisson/gatekeeper/internal/audit/http/dto"
	auditUseCase "github.com/allisson/gatekeeper/internal/audit/usecase"
	authDomain "github.com/allisson/gatekeeper/internal/auth/domain"
	authHTTP "github.com/allisson/gatekeeper/internal/auth/http"
	"github.com/allisson/gatekeeper/internal/httputil"
	customValidation "github.com/allisson/gatekeeper/internal/validation"
)

// AuditHandler handles HTTP requests for the audit chain. Entries are only
// ever written through the chain engine; this surface reads, verifies, and
// checkpoints.
type AuditHandler struct {
	chainUseCase auditUseCase.ChainUseCase
	logger       *slog.Logger
}

// NewAuditHandler creates a new audit handler.
func NewAuditHandler(chainUseCase auditUseCase.ChainUseCase, logger *slog.Logger) *AuditHandler {
	return &AuditHandler{chainUseCase: chainUseCase, logger: logger}
}

// ListHandler retrieves audit log entries with pagination support, newest
// first. Soft-deleted entries are excluded.
// GET /v1/audit-logs?offset=0&limit=50 - read access.
func (h *AuditHandler) ListHandler(c *gin.Context) {
	offset, limit, err := httputil.ParsePagination(c)
	if err != nil {
		httputil.HandleBadRequestGin(c, err, h.logger)
		return
	}

	entries, err := h.chainUseCase.List(c.Request.Context(), offset, limit)
	if err != nil {
		httputil.HandleErrorGin(c, err, h.logger)
		return
	}

	c.JSON(http.StatusOK, dto.AuditLogListResponse{
		Items:  dto.MapEntriesToResponse(entries),
		Offset: offset,
		Limit:  limit,
	})
}

// EntityHistoryHandler retrieves the audit history for one entity, newest
// first.
// GET /v1/audit-logs/entity/:entity_type/:entity_id?limit=50 - read access.
func (h *AuditHandler) EntityHistoryHandler(c *gin.Context) {
	entityType := c.Param("entity_type")
	entityID := c.Param("entity_id")

	limit, err := parseLimit(c)
	if err != nil {
		httputil.HandleBadRequestGin(c, err, h.logger)
		return
	}

	entries, err := h.chainUseCase.EntityHistory(c.Request.Context(), entityType, entityID, limit)
	if err != nil {
		httputil.HandleErrorGin(c, err, h.logger)
		return
	}

	c.JSON(http.StatusOK, dto.AuditHistoryResponse{
		Items: dto.MapEntriesToResponse(entries),
		Limit: limit,
	})
}

// ActorHistoryHandler retrieves every action performed by an actor, newest
// first.
// GET /v1/audit-logs/actor/:actor_id?limit=50 - read access.
func (h *AuditHandler) ActorHistoryHandler(c *gin.Context) {
	limit, err := parseLimit(c)
	if err != nil {
		httputil.HandleBadRequestGin(c, err, h.logger)
		return
	}

	entries, err := h.chainUseCase.ActorHistory(c.Request.Context(), c.Param("actor_id"), limit)
	if err != nil {
		httputil.HandleErrorGin(c, err, h.logger)
		return
	}

	c.JSON(http.StatusOK, dto.AuditHistoryResponse{
		Items: dto.MapEntriesToResponse(entries),
		Limit: limit,
	})
}

// VerifyChainHandler walks a chain in creation order, recomputing hashes and
// checking linkage. The walk includes soft-deleted entries and stops at the
// first failure.
// GET /v1/audit-chains/:chain_id/verify?limit=0 - read access.
func (h *AuditHandler) VerifyChainHandler(c *gin.Context) {
	// limit 0 walks the whole chain
	limit := 0
	if raw := c.Query("limit"); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil || parsed < 0 {
			httputil.HandleBadRequestGin(c,
				fmt.Errorf("invalid limit parameter: must be a non-negative integer"), h.logger)
			return
		}
		limit = parsed
	}

	result, err := h.chainUseCase.VerifyChain(c.Request.Context(), c.Param("chain_id"), limit)
	if err != nil {
		httputil.HandleErrorGin(c, err, h.logger)
		return
	}

	c.JSON(http.StatusOK, result)
}

// LatestHashHandler returns a chain's newest entry hash, null for an empty
// chain. Clients anchor external witnesses on this value.
// GET /v1/audit-chains/:chain_id/latest-hash - read access.
func (h *AuditHandler) LatestHashHandler(c *gin.Context) {
	chainID := c.Param("chain_id")

	hash, err := h.chainUseCase.GetLatestHash(c.Request.Context(), chainID)
	if err != nil {
		httputil.HandleErrorGin(c, err, h.logger)
		return
	}

	c.JSON(http.StatusOK, dto.LatestHashResponse{ChainID: chainID, LastEntryHash: hash})
}

// CreateCheckpointHandler snapshots a chain's latest hash into a signed (when
// configured) checkpoint. The chain itself is never mutated.
// POST /v1/audit-checkpoints - write access.
func (h *AuditHandler) CreateCheckpointHandler(c *gin.Context) {
	var req dto.CreateCheckpointRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		httputil.HandleBadRequestGin(c, err, h.logger)
		return
	}
	if err := req.Validate(); err != nil {
		httputil.HandleValidationErrorGin(c, customValidation.WrapValidationError(err), h.logger)
		return
	}

	chainID := req.ChainID
	if chainID == "" {
		chainID = auditDomain.GlobalChainID
	}

	actorID, actorType := requestActor(c)
	checkpoint, err := h.chainUseCase.CreateCheckpoint(
		c.Request.Context(), chainID, actorID, actorType, req.Context)
	if err != nil {
		httputil.HandleErrorGin(c, err, h.logger)
		return
	}

	c.JSON(http.StatusCreated, dto.MapCheckpointToResponse(checkpoint))
}

// ListCheckpointsHandler retrieves a chain's checkpoints, newest first.
// GET /v1/audit-chains/:chain_id/checkpoints?offset=0&limit=50 - read access.
func (h *AuditHandler) ListCheckpointsHandler(c *gin.Context) {
	offset, limit, err := httputil.ParsePagination(c)
	if err != nil {
		httputil.HandleBadRequestGin(c, err, h.logger)
		return
	}

	checkpoints, err := h.chainUseCase.ListCheckpoints(c.Request.Context(), c.Param("chain_id"), offset, limit)
	if err != nil {
		httputil.HandleErrorGin(c, err, h.logger)
		return
	}

	items := make([]dto.CheckpointResponse, 0, len(checkpoints))
	for _, checkpoint := range checkpoints {
		items = append(items, dto.MapCheckpointToResponse(checkpoint))
	}

	c.JSON(http.StatusOK, dto.CheckpointListResponse{Items: items, Offset: offset, Limit: limit})
}

// DeleteEntryHandler soft-deletes an audit entry. The entry disappears from
// listings but keeps its hash fields, so chain verification stays intact.
// DELETE /v1/audit-logs/:id - admin access.
// Returns 204 No Content.
func (h *AuditHandler) DeleteEntryHandler(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		httputil.HandleBadRequestGin(c, err, h.logger)
		return
	}

	if err := h.chainUseCase.SoftDeleteEntry(c.Request.Context(), id); err != nil {
		httputil.HandleErrorGin(c, err, h.logger)
		return
	}

	c.Data(http.StatusNoContent, "application/json", nil)
}

// parseLimit parses the limit query parameter (default: 50, max: 100).
func parseLimit(c *gin.Context) (int, error) {
	raw := c.DefaultQuery("limit", "50")
	limit, err := strconv.Atoi(raw)
	if err != nil || limit < 1 || limit > 100 {
		return 0, fmt.Errorf("invalid limit parameter: must be between 1 and 100")
	}
	return limit, nil
}

// requestActor derives the audit actor from the request's resolved identity.
func requestActor(c *gin.Context) (actorID, actorType string) {
	identity, ok := authHTTP.GetIdentity(c.Request.Context())
	if !ok || identity == nil {
		return "unknown", string(authDomain.ActorTypeService)
	}
	return identity.ActorID, string(identity.ActorType)
}
