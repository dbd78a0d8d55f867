package authz

import "context"

// AuthorizationConfig is the complete set of path-scoped authorization
// policies currently in effect. A nil *AuthorizationConfig means the
// configuration container is absent from the store, which is distinct from a
// present container with zero policies: both result in allow, but they are
// reported with different decision reasons.
type AuthorizationConfig struct {
	// Policies is evaluated in ascending Index order, regardless of the
	// order entries are stored or delivered in.
	Policies []Policy `yaml:"policies" json:"policies"`
}

// Policy binds a resource path pattern to a set of role/action grants.
type Policy struct {
	// Index is the unique ordering key. Lower indexes are evaluated first.
	Index int `yaml:"index" json:"index"`

	// Resource is the path pattern this policy governs. See Matches for
	// the supported wildcard syntax.
	Resource string `yaml:"resource" json:"resource"`

	// Description is optional operator-facing text.
	Description string `yaml:"description,omitempty" json:"description,omitempty"`

	// Permissions lists the grants for this resource. An empty list means
	// the policy matches but grants nothing, so every request it governs
	// is denied.
	Permissions []Permission `yaml:"permissions" json:"permissions"`
}

// Permission grants a set of HTTP actions to a single role.
type Permission struct {
	Role string `yaml:"role" json:"role"`

	// Actions holds HTTP method names. Comparison against the request
	// method is case-insensitive.
	Actions []string `yaml:"actions" json:"actions"`
}

// Subject is the authenticated caller. Role membership is a predicate rather
// than an enumerable list because the authentication layer may compute it
// lazily per query.
type Subject interface {
	HasRole(role string) bool
}

// RoleSet is a Subject backed by a fixed set of role names.
type RoleSet map[string]struct{}

// Roles builds a RoleSet from the given role names.
func Roles(names ...string) RoleSet {
	s := make(RoleSet, len(names))
	for _, n := range names {
		s[n] = struct{}{}
	}
	return s
}

// HasRole implements Subject.
func (s RoleSet) HasRole(role string) bool {
	_, ok := s[role]
	return ok
}

// Change is a single configuration transition observed in the store.
type Change struct {
	// Before is the configuration prior to the change, nil if the
	// container did not exist.
	Before *AuthorizationConfig

	// After is the configuration following the change, nil if the
	// container was deleted.
	After *AuthorizationConfig
}

// ChangeBatch is an ordered, non-empty group of consecutive changes
// delivered together. Only the final resulting state matters.
type ChangeBatch []Change

// Final returns the effective configuration after the last change in the
// batch. It returns nil both for a batch whose last change deleted the
// container and for an empty batch.
func (b ChangeBatch) Final() *AuthorizationConfig {
	if len(b) == 0 {
		return nil
	}
	return b[len(b)-1].After
}

// Store supplies the authorization configuration and its change stream.
// Implementations live in the source subpackage.
type Store interface {
	// ReadConfig returns the current configuration, or (nil, nil) when
	// the container is absent.
	ReadConfig(ctx context.Context) (*AuthorizationConfig, error)

	// Watch returns a channel of change batches, delivered in commit
	// order. The channel is closed when ctx is cancelled or the store
	// shuts down.
	Watch(ctx context.Context) (<-chan ChangeBatch, error)
}

// Clone returns a deep copy of the configuration, or nil for nil.
// Stores hand out clones so callers can never mutate shared state.
func (c *AuthorizationConfig) Clone() *AuthorizationConfig {
	if c == nil {
		return nil
	}
	out := &AuthorizationConfig{Policies: make([]Policy, len(c.Policies))}
	for i, p := range c.Policies {
		cp := p
		cp.Permissions = make([]Permission, len(p.Permissions))
		for j, perm := range p.Permissions {
			cp.Permissions[j] = Permission{
				Role:    perm.Role,
				Actions: append([]string(nil), perm.Actions...),
			}
		}
		out.Policies[i] = cp
	}
	return out
}
