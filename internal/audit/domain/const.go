// Package domain defines the tamper-evident audit log domain model.
//
// Every authorization decision and administrative change is recorded as an
// AuditLogEntry on a hash-linked, append-only chain. The exact byte encoding
// that was hashed is stored with each entry so later verification never
// depends on re-serialization.
package domain

// SchemaVersion is the canonical payload schema version ("v" field).
const SchemaVersion = 1

// GlobalChainID is the chain used when no partitioning value is available.
const GlobalChainID = "global"

// AuditAction identifies the kind of event an audit entry records.
type AuditAction string

const (
	ActionCreate     AuditAction = "CREATE"
	ActionUpdate     AuditAction = "UPDATE"
	ActionDelete     AuditAction = "DELETE"      // soft delete
	ActionHardDelete AuditAction = "HARD_DELETE" // permanent delete (rare)
	ActionRestore    AuditAction = "RESTORE"
	ActionRevoke     AuditAction = "REVOKE"
	ActionEvaluate   AuditAction = "EVALUATE"
)

// ChainDimension selects how audit chains are partitioned.
type ChainDimension string

const (
	// DimensionTenant keeps one chain per tenant_id (falls back to org_id, then global).
	DimensionTenant ChainDimension = "tenant"

	// DimensionOrg keeps one chain per org_id (falls back to global).
	DimensionOrg ChainDimension = "org"

	// DimensionGlobal keeps a single chain for the whole deployment.
	DimensionGlobal ChainDimension = "global"
)

// ParseChainDimension maps a configuration string to a ChainDimension,
// defaulting to DimensionTenant for unknown values.
func ParseChainDimension(s string) ChainDimension {
	switch ChainDimension(s) {
	case DimensionOrg:
		return DimensionOrg
	case DimensionGlobal:
		return DimensionGlobal
	default:
		return DimensionTenant
	}
}

// ChainIDFromContext derives the chain partition key from an audit context
// according to the configured dimension.
func ChainIDFromContext(dim ChainDimension, context map[string]any) string {
	tenantID, _ := context["tenant_id"].(string)
	orgID, _ := context["org_id"].(string)

	switch dim {
	case DimensionGlobal:
		return GlobalChainID
	case DimensionOrg:
		if orgID != "" {
			return orgID
		}
		return GlobalChainID
	default:
		if tenantID != "" {
			return tenantID
		}
		if orgID != "" {
			return orgID
		}
		return GlobalChainID
	}
}
