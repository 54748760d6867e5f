package policy

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/quorumsec/trustd/internal/trust/domain"
)

const (
	DefaultEvalTimeout = 500 * time.Millisecond
	maxResponseBytes   = 1 << 20
)

// HTTPEngine queries a remote decision service. The request body wraps the
// input under an "input" key and the response carries the verdict under
// "result", the convention OPA-style engines use.
type HTTPEngine struct {
	url     string
	client  *http.Client
	timeout time.Duration
}

type HTTPEngineOption func(*HTTPEngine)

// WithHTTPClient overrides the HTTP client used for evaluation calls.
func WithHTTPClient(client *http.Client) HTTPEngineOption {
	return func(e *HTTPEngine) {
		e.client = client
	}
}

// WithEvalTimeout bounds each evaluation call. Zero or negative values keep
// the default.
func WithEvalTimeout(timeout time.Duration) HTTPEngineOption {
	return func(e *HTTPEngine) {
		if timeout > 0 {
			e.timeout = timeout
		}
	}
}

func NewHTTPEngine(url string, opts ...HTTPEngineOption) *HTTPEngine {
	e := &HTTPEngine{
		url:     url,
		client:  http.DefaultClient,
		timeout: DefaultEvalTimeout,
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

type evalRequest struct {
	Input domain.PolicyInput `json:"input"`
}

type evalResponse struct {
	Result *evalResult `json:"result"`
}

type evalResult struct {
	Allow    bool           `json:"allow"`
	Reason   string         `json:"reason,omitempty"`
	Metadata map[string]any `json:"metadata,omitempty"`
}

// Evaluate posts the input to the decision service and maps the verdict to a
// Decision tagged with SourceRemote. Transport failures, non-200 statuses,
// timeouts and responses without a result all come back as errors so the
// caller can fall back locally.
func (e *HTTPEngine) Evaluate(ctx context.Context, input domain.PolicyInput) (domain.Decision, error) {
	if input.User.UserID == "" {
		return domain.Decision{}, fmt.Errorf("%w: user id is required", ErrInvalidInput)
	}

	ctx, cancel := context.WithTimeout(ctx, e.timeout)
	defer cancel()

	body, err := json.Marshal(evalRequest{Input: input})
	if err != nil {
		return domain.Decision{}, fmt.Errorf("%w: %w", ErrInvalidInput, err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, e.url, bytes.NewReader(body))
	if err != nil {
		return domain.Decision{}, fmt.Errorf("%w: %w", ErrUnavailable, err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := e.client.Do(req)
	if err != nil {
		return domain.Decision{}, fmt.Errorf("%w: %w", ErrUnavailable, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return domain.Decision{}, fmt.Errorf("%w: status %d", ErrUnavailable, resp.StatusCode)
	}

	var out evalResponse
	if err := json.NewDecoder(io.LimitReader(resp.Body, maxResponseBytes)).Decode(&out); err != nil {
		return domain.Decision{}, fmt.Errorf("%w: %w", ErrBadResponse, err)
	}
	if out.Result == nil {
		return domain.Decision{}, fmt.Errorf("%w: missing result", ErrBadResponse)
	}

	return domain.Decision{
		Allow:    out.Result.Allow,
		Reason:   out.Result.Reason,
		Metadata: out.Result.Metadata,
		Source:   domain.DecisionSourceRemote,
	}, nil
}
