package dto

import (
	"time"

	authDomain "github.com/allisson/gatekeeper/internal/auth/domain"
)

// APIKeyResponse is the public representation of an API key. It never
// carries the token hash.
type APIKeyResponse struct {
	ID          string     `json:"id"`
	Name        string     `json:"name"`
	Description string     `json:"description,omitempty"`
	TokenPrefix string     `json:"token_prefix"`
	TenantID    string     `json:"tenant_id,omitempty"`
	OrgID       string     `json:"org_id,omitempty"`
	Scopes      []string   `json:"scopes"`
	RevokedAt   *time.Time `json:"revoked_at,omitempty"`
	LastUsedAt  *time.Time `json:"last_used_at,omitempty"`
	CreatedAt   time.Time  `json:"created_at"`
}

// CreateAPIKeyResponse includes the plain token, shown exactly once.
type CreateAPIKeyResponse struct {
	APIKeyResponse
	PlainToken string `json:"plain_token"`
}

// MapAPIKeyToResponse converts an API key to its public representation.
func MapAPIKeyToResponse(key *authDomain.APIKey) APIKeyResponse {
	return APIKeyResponse{
		ID:          key.ID.String(),
		Name:        key.Name,
		Description: key.Description,
		TokenPrefix: key.TokenPrefix,
		TenantID:    key.TenantID,
		OrgID:       key.OrgID,
		Scopes:      key.Scopes,
		RevokedAt:   key.RevokedAt,
		LastUsedAt:  key.LastUsedAt,
		CreatedAt:   key.CreatedAt,
	}
}

// MapAPIKeyToCreateResponse converts a freshly issued key, including the
// plain token.
func MapAPIKeyToCreateResponse(output *authDomain.CreateAPIKeyOutput) CreateAPIKeyResponse {
	return CreateAPIKeyResponse{
		APIKeyResponse: MapAPIKeyToResponse(output.APIKey),
		PlainToken:     output.PlainToken,
	}
}

// APIKeyListResponse is a paginated list of API keys.
type APIKeyListResponse struct {
	Items  []APIKeyResponse `json:"items"`
	Offset int              `json:"offset"`
	Limit  int              `json:"limit"`
}
