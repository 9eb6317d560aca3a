// Package dto provides data transfer objects for audit HTTP handlers.
package dto

import (
	validation "github.com/jellydator/validation"

	customValidation "github.com/allisson/gatekeeper/internal/validation"
)

// CreateCheckpointRequest contains the parameters for snapshotting a chain.
// ChainID defaults to "global" when omitted.
type CreateCheckpointRequest struct {
	ChainID string         `json:"chain_id"`
	Context map[string]any `json:"context"`
}

// Validate checks if the create checkpoint request is valid.
func (r *CreateCheckpointRequest) Validate() error {
	return validation.ValidateStruct(r,
		validation.Field(&r.ChainID, customValidation.NotBlank),
	)
}
