package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/quorumsec/trustd/internal/trust/domain"
	"github.com/quorumsec/trustd/internal/trust/policy"
	"github.com/quorumsec/trustd/pkg/idx"
	"github.com/quorumsec/trustd/pkg/slogx"
)

var ErrForbidden = errors.New("forbidden")

// AuthzService answers access questions in two tiers: a policy engine when
// one is configured and reachable, and a deterministic local rule otherwise.
// Every decision is audited and tagged with the tier that produced it.
// Decisions are computed fresh per call; nothing is cached.
type AuthzService struct {
	Engine policy.Engine // optional; nil means fallback-only
	Audit  policy.AuditSink

	// EvalTimeout bounds each remote evaluation. Defaults to
	// policy.DefaultEvalTimeout.
	EvalTimeout time.Duration

	// Now is the clock, overridable in tests. Defaults to time.Now.
	Now func() time.Time
}

func (s *AuthzService) now() time.Time {
	if s.Now != nil {
		return s.Now()
	}
	return time.Now()
}

func (s *AuthzService) evalTimeout() time.Duration {
	if s.EvalTimeout > 0 {
		return s.EvalTimeout
	}
	return policy.DefaultEvalTimeout
}

// Authorize decides whether user may perform action on resource. Engine
// failures never surface to the caller; they degrade to the local rule so an
// unreachable policy service cannot take authorization down with it.
func (s *AuthzService) Authorize(
	ctx context.Context,
	user domain.UserContext,
	action domain.Action,
	resource domain.Resource,
) (domain.Decision, error) {
	if user.UserID == "" {
		return domain.Decision{}, fmt.Errorf("%w: missing user", ErrForbidden)
	}

	input := domain.PolicyInput{User: user, Action: action, Resource: resource}
	decision := s.evaluate(ctx, input)

	s.audit(ctx, input, decision)
	return decision, nil
}

// Require is Authorize collapsed to an error: nil when allowed, ErrForbidden
// with the decision reason otherwise.
func (s *AuthzService) Require(
	ctx context.Context,
	user domain.UserContext,
	action domain.Action,
	resource domain.Resource,
) error {
	decision, err := s.Authorize(ctx, user, action, resource)
	if err != nil {
		return err
	}
	if !decision.Allow {
		return fmt.Errorf("%w: %s", ErrForbidden, decision.Reason)
	}
	return nil
}

func (s *AuthzService) evaluate(ctx context.Context, input domain.PolicyInput) domain.Decision {
	if s.Engine != nil {
		evalCtx, cancel := context.WithTimeout(ctx, s.evalTimeout())
		decision, err := s.Engine.Evaluate(evalCtx, input)
		cancel()
		if err == nil {
			decision.Source = domain.DecisionSourceRemote
			return decision
		}
		slogx.FromContext(ctx).Warn("policy engine unavailable, using fallback",
			"error", err,
			"user_id", input.User.UserID,
		)
	}
	return fallbackDecision(input)
}

// fallbackDecision is the local tier: a fixed rule over roles, ownership,
// group membership and the role-derived permission strings. It consults no
// external state, so its verdict for a given input never varies.
func fallbackDecision(input domain.PolicyInput) domain.Decision {
	decide := func(allow bool, reason string) domain.Decision {
		return domain.Decision{
			Allow:  allow,
			Reason: reason,
			Source: domain.DecisionSourceFallback,
		}
	}

	if domain.HasRole(input.User.Roles, domain.RoleAdmin) {
		return decide(true, "admin role")
	}
	if input.Resource.Owner != "" && input.Resource.Owner == input.User.UserID {
		return decide(true, "resource owner")
	}
	if input.Action == domain.ActionRead &&
		input.Resource.Group != "" && inGroup(input.User.Groups, input.Resource.Group) {
		return decide(true, "group member read")
	}

	required := fmt.Sprintf("%s:%s", input.Resource.Type, input.Action)
	if hasPermission(input.User.Permissions, input.Resource.Type, string(input.Action)) {
		return decide(true, "permission "+required)
	}
	return decide(false, "missing permission "+required)
}

func inGroup(groups []string, group string) bool {
	for _, g := range groups {
		if g == group {
			return true
		}
	}
	return false
}

// hasPermission matches "{type}:{action}" permission strings, honoring
// wildcards on either side.
func hasPermission(perms []string, resourceType, action string) bool {
	for _, p := range perms {
		t, a, ok := strings.Cut(p, ":")
		if !ok {
			continue
		}
		if (t == "*" || t == resourceType) && (a == "*" || a == action) {
			return true
		}
	}
	return false
}

func (s *AuthzService) audit(ctx context.Context, input domain.PolicyInput, decision domain.Decision) {
	if s.Audit == nil {
		return
	}
	// Detach from the request context so a cancelled caller still leaves an
	// audit trail.
	s.Audit.Record(context.WithoutCancel(ctx), domain.DecisionRecord{
		ID:       idx.New().String(),
		UserID:   input.User.UserID,
		Action:   input.Action,
		Resource: input.Resource,
		Allow:    decision.Allow,
		Reason:   decision.Reason,
		Metadata: decision.Metadata,
		Source:   decision.Source,
		At:       s.now(),
	})
}

// OperationAction maps an API operation kind to the verb the authorization
// model uses: queries read, mutations write, deletions delete.
func OperationAction(kind string) (domain.Action, error) {
	switch strings.ToLower(kind) {
	case "query", "read", "get", "list", "subscription":
		return domain.ActionRead, nil
	case "mutation", "write", "create", "update":
		return domain.ActionWrite, nil
	case "delete":
		return domain.ActionDelete, nil
	default:
		return "", fmt.Errorf("%w: unknown operation kind %q", ErrForbidden, kind)
	}
}

// ResourceFromPath parses "type" or "type/id" references.
func ResourceFromPath(path string) (domain.Resource, error) {
	path = strings.Trim(path, "/")
	if path == "" {
		return domain.Resource{}, fmt.Errorf("%w: empty resource path", ErrForbidden)
	}
	resourceType, id, _ := strings.Cut(path, "/")
	return domain.Resource{Type: resourceType, ID: id}, nil
}
