package policy

import (
	"context"
	"errors"

	"github.com/quorumsec/trustd/internal/trust/domain"
)

var (
	ErrUnavailable  = errors.New("policy: engine unavailable")
	ErrInvalidInput = errors.New("policy: invalid input")
	ErrBadResponse  = errors.New("policy: malformed engine response")
)

// Engine evaluates a single access request. Implementations must honor ctx
// cancellation; callers bound every evaluation with a deadline and treat any
// error as grounds for local fallback.
type Engine interface {
	Evaluate(ctx context.Context, input domain.PolicyInput) (domain.Decision, error)
}
