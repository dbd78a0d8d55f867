package authz

import (
	"log/slog"
	"sort"
	"strings"
)

// Reason classifies how a decision was reached. Fail-closed infrastructure
// denies carry ReasonReadFailure so they are never confused with
// policy-driven denies in logs, metrics, or the audit trail.
type Reason string

const (
	// ReasonNoConfig means the configuration container is absent, so no
	// restriction is configured.
	ReasonNoConfig Reason = "no_config"

	// ReasonNoPolicies means the container exists but holds no policies.
	ReasonNoPolicies Reason = "no_policies"

	// ReasonUnmatched means no policy governs the request path.
	ReasonUnmatched Reason = "unmatched"

	// ReasonGranted means the terminal policy granted the request.
	ReasonGranted Reason = "granted"

	// ReasonNoGrant means a policy matched the path but no role/action
	// pair granted the request.
	ReasonNoGrant Reason = "no_grant"

	// ReasonReadFailure means the initial configuration fetch failed and
	// the request was denied fail-closed.
	ReasonReadFailure Reason = "read_failure"
)

// Decision is the outcome of evaluating one request.
type Decision struct {
	Allowed bool
	Reason  Reason

	// PolicyIndex is the Index of the terminal policy, or -1 when no
	// policy matched.
	PolicyIndex int

	// Role is the role that granted access, empty unless Reason is
	// ReasonGranted.
	Role string
}

// Evaluator applies the ordered policy algorithm to a configuration
// snapshot. It is stateless and safe for concurrent use.
type Evaluator struct {
	logger *slog.Logger
}

// NewEvaluator creates an evaluator. A nil logger falls back to
// slog.Default.
func NewEvaluator(logger *slog.Logger) *Evaluator {
	if logger == nil {
		logger = slog.Default()
	}
	return &Evaluator{logger: logger.With("component", "authz.evaluator")}
}

// Evaluate decides allow/deny for (path, method, subject) against cfg.
//
// Policies are consulted in ascending Index order. The first policy whose
// resource pattern matches the path is terminal: within it, the first
// permission whose role the subject holds and whose action list contains
// the method (case-insensitively) grants access; if none does, the request
// is denied without consulting later policies. If no policy matches, or no
// configuration is present at all, the request is allowed.
//
// Role membership checks may invoke arbitrary caller logic; Evaluate holds
// no locks, so a slow Subject never stalls snapshot updates.
func (e *Evaluator) Evaluate(cfg *AuthorizationConfig, path, method string, subject Subject) Decision {
	if cfg == nil {
		e.logger.Debug("authorization container absent, allowing", "path", path)
		return Decision{Allowed: true, Reason: ReasonNoConfig, PolicyIndex: -1}
	}
	if len(cfg.Policies) == 0 {
		e.logger.Debug("no authorization policies configured, allowing", "path", path)
		return Decision{Allowed: true, Reason: ReasonNoPolicies, PolicyIndex: -1}
	}

	// Sort a copy so the snapshot itself is never reordered. The sort is
	// stable; relative order among duplicate indexes is implementation-
	// defined and not part of the contract.
	policies := make([]Policy, len(cfg.Policies))
	copy(policies, cfg.Policies)
	sort.SliceStable(policies, func(i, j int) bool {
		return policies[i].Index < policies[j].Index
	})

	for i := range policies {
		policy := &policies[i]
		if !Matches(policy.Resource, path) {
			continue
		}

		// First matching policy is terminal. Later policies are never
		// consulted, even if they would also match and grant.
		e.logger.Debug("policy matched",
			"pattern", policy.Resource,
			"path", path,
			"index", policy.Index,
		)

		for _, perm := range policy.Permissions {
			for _, action := range perm.Actions {
				if !strings.EqualFold(action, method) {
					continue
				}
				if subject != nil && subject.HasRole(perm.Role) {
					return Decision{
						Allowed:     true,
						Reason:      ReasonGranted,
						PolicyIndex: policy.Index,
						Role:        perm.Role,
					}
				}
			}
		}

		e.logger.Debug("matched policy grants no access",
			"path", path,
			"method", method,
			"index", policy.Index,
		)
		return Decision{Allowed: false, Reason: ReasonNoGrant, PolicyIndex: policy.Index}
	}

	// Nothing governs this path: default-allow.
	e.logger.Debug("no policy governs path, allowing", "path", path)
	return Decision{Allowed: true, Reason: ReasonUnmatched, PolicyIndex: -1}
}
