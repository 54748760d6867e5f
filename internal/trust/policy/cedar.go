package policy

import (
	"context"
	"fmt"

	cedar "github.com/cedar-policy/cedar-go"

	"github.com/quorumsec/trustd/internal/trust/domain"
)

// CedarEngine evaluates requests against an in-process Cedar policy set.
// It serves deployments that want policy-as-code without running a separate
// decision service. Requests map to Cedar as
// User::<id> / Action::<verb> / Resource::<type>, with the caller's roles,
// permissions, groups and the resource attributes in the request context.
type CedarEngine struct {
	policies *cedar.PolicySet
	entities cedar.EntityMap
}

// NewCedarEngine parses the given Cedar policy sources. At least one policy
// is required and any parse failure is fatal.
func NewCedarEngine(policies []string) (*CedarEngine, error) {
	if len(policies) == 0 {
		return nil, fmt.Errorf("%w: no policies", ErrInvalidInput)
	}

	set := cedar.NewPolicySet()
	for i, src := range policies {
		var p cedar.Policy
		if err := p.UnmarshalCedar([]byte(src)); err != nil {
			return nil, fmt.Errorf("%w: policy %d: %w", ErrInvalidInput, i, err)
		}
		set.Add(cedar.PolicyID(fmt.Sprintf("policy%d", i)), &p)
	}

	return &CedarEngine{
		policies: set,
		entities: cedar.EntityMap{},
	}, nil
}

// NewCedarEngineFromSource parses a whole policy document, usually a
// .cedar file with multiple policies.
func NewCedarEngineFromSource(name string, src []byte) (*CedarEngine, error) {
	set, err := cedar.NewPolicySetFromBytes(name, src)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidInput, err)
	}
	return &CedarEngine{
		policies: set,
		entities: cedar.EntityMap{},
	}, nil
}

func (e *CedarEngine) Evaluate(ctx context.Context, input domain.PolicyInput) (domain.Decision, error) {
	if err := ctx.Err(); err != nil {
		return domain.Decision{}, err
	}
	if input.User.UserID == "" {
		return domain.Decision{}, fmt.Errorf("%w: user id is required", ErrInvalidInput)
	}

	req := cedar.Request{
		Principal: cedar.NewEntityUID("User", cedar.String(input.User.UserID)),
		Action:    cedar.NewEntityUID("Action", cedar.String(string(input.Action))),
		Resource:  cedar.NewEntityUID("Resource", cedar.String(input.Resource.Type)),
		Context:   requestContext(input),
	}

	verdict, diagnostic := cedar.Authorize(e.policies, e.entities, req)
	if len(diagnostic.Errors) > 0 {
		return domain.Decision{}, fmt.Errorf("%w: %v", ErrBadResponse, diagnostic.Errors)
	}

	decision := domain.Decision{
		Allow:  verdict == cedar.Allow,
		Source: domain.DecisionSourceRemote,
	}
	if decision.Allow {
		decision.Reason = "cedar policy permit"
	} else {
		decision.Reason = "no cedar policy permits this request"
	}
	return decision, nil
}

func requestContext(input domain.PolicyInput) cedar.Record {
	rec := cedar.RecordMap{
		"roles":       stringSet(domain.RoleStrings(input.User.Roles)),
		"permissions": stringSet(input.User.Permissions),
		"groups":      stringSet(input.User.Groups),
	}
	if input.Resource.ID != "" {
		rec["resource_id"] = cedar.String(input.Resource.ID)
	}
	if input.Resource.Owner != "" {
		rec["owner"] = cedar.String(input.Resource.Owner)
	}
	if input.Resource.Group != "" {
		rec["group"] = cedar.String(input.Resource.Group)
	}
	return cedar.NewRecord(rec)
}

func stringSet(values []string) cedar.Value {
	items := make([]cedar.Value, 0, len(values))
	for _, v := range values {
		items = append(items, cedar.String(v))
	}
	return cedar.NewSet(items...)
}
