// Package dto provides data transfer objects for authentication HTTP handlers.
package dto

import (
	validation "github.com/jellydator/validation"

	customValidation "github.com/allisson/gatekeeper/internal/validation"
)

// CreateAPIKeyRequest contains the parameters for issuing a new API key.
type CreateAPIKeyRequest struct {
	Name        string   `json:"name"`
	Description string   `json:"description"`
	TenantID    string   `json:"tenant_id"`
	OrgID       string   `json:"org_id"`
	Scopes      []string `json:"scopes"`
}

// Validate checks if the create API key request is valid.
func (r *CreateAPIKeyRequest) Validate() error {
	return validation.ValidateStruct(r,
		validation.Field(&r.Name, validation.Required, customValidation.NotBlank),
		validation.Field(&r.Scopes, validation.Each(
			validation.In("read", "write", "admin", "*"),
		)),
	)
}

// AuthorizeRequest describes a request to evaluate against the caller's
// identity and the applicable policies.
type AuthorizeRequest struct {
	Method      string         `json:"method"`
	Path        string         `json:"path"`
	AccessLevel string         `json:"access_level"`
	Context     map[string]any `json:"context"`
}

// Validate checks if the authorize request is valid.
func (r *AuthorizeRequest) Validate() error {
	return validation.ValidateStruct(r,
		validation.Field(&r.Method, validation.Required, customValidation.NotBlank),
		validation.Field(&r.Path, validation.Required, customValidation.NotBlank),
		validation.Field(&r.AccessLevel, validation.In("read", "write", "admin")),
	)
}
