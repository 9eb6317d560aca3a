// Package domain defines authentication and authorization domain models.
//
// Requests authenticate either with a static shared-secret token (granting a
// service identity with the wildcard scope) or with an API key looked up by
// its indexed prefix. Both paths produce a normalized Identity that the
// authorizer checks against capability scopes and applicable policies.
package domain

// ActorType classifies who performed an action.
type ActorType string

const (
	// ActorTypeUser is a human principal.
	ActorTypeUser ActorType = "user"

	// ActorTypeService is a machine principal, including the static-token identity.
	ActorTypeService ActorType = "service"

	// ActorTypeAPIKey is a principal authenticated with an issued API key.
	ActorTypeAPIKey ActorType = "api_key"
)

// Capability scopes granted to an identity.
const (
	ScopeRead     = "read"
	ScopeWrite    = "write"
	ScopeAdmin    = "admin"
	ScopeWildcard = "*"
)

// AccessLevel is the capability a route requires.
type AccessLevel string

const (
	// AccessRead covers safe methods.
	AccessRead AccessLevel = "read"

	// AccessWrite covers mutating methods.
	AccessWrite AccessLevel = "write"

	// AccessAdmin covers key-management routes.
	AccessAdmin AccessLevel = "admin"
)

// RequiredScope maps an access level to the scope an identity must hold.
func (a AccessLevel) RequiredScope() string {
	return string(a)
}

// Identity is a normalized per-request principal. It is produced fresh by the
// identity resolver on every request and never persisted.
type Identity struct {
	ActorID   string
	ActorType ActorType
	TenantID  string
	OrgID     string
	TeamID    string
	UserID    string
	Scopes    []string
}

// Static reports whether this is the static shared-secret identity, which is
// exempt from scope checks.
func (i *Identity) Static() bool {
	return i.ActorType == ActorTypeService && i.HasScope(ScopeWildcard)
}

// HasScope reports whether the identity holds the given scope. The wildcard
// scope satisfies every check.
func (i *Identity) HasScope(scope string) bool {
	for _, s := range i.Scopes {
		if s == ScopeWildcard || s == scope {
			return true
		}
	}
	return false
}
