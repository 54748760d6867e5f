package policy_test

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/quorumsec/trustd/internal/trust/domain"
	"github.com/quorumsec/trustd/internal/trust/policy"
)

func testInput() domain.PolicyInput {
	return domain.PolicyInput{
		User: domain.UserContext{
			UserID:      "01J0000000000000000000USER",
			Roles:       []domain.Role{domain.RoleMember},
			Permissions: []string{"event:read", "event:write"},
			Groups:      []string{"ops"},
		},
		Action: domain.ActionRead,
		Resource: domain.Resource{
			Type:  "event",
			ID:    "evt-1",
			Owner: "someone-else",
			Group: "ops",
		},
	}
}

func TestHTTPEngine_Evaluate(t *testing.T) {
	var gotInput domain.PolicyInput
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var req struct {
			Input domain.PolicyInput `json:"input"`
		}
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		gotInput = req.Input

		_ = json.NewEncoder(w).Encode(map[string]any{
			"result": map[string]any{
				"allow":    true,
				"reason":   "matched policy p1",
				"metadata": map[string]any{"policy": "p1"},
			},
		})
	}))
	defer srv.Close()

	engine := policy.NewHTTPEngine(srv.URL)
	decision, err := engine.Evaluate(context.Background(), testInput())
	require.NoError(t, err)

	require.True(t, decision.Allow)
	require.Equal(t, "matched policy p1", decision.Reason)
	require.Equal(t, domain.DecisionSourceRemote, decision.Source)
	require.Equal(t, "p1", decision.Metadata["policy"])

	require.Equal(t, "01J0000000000000000000USER", gotInput.User.UserID)
	require.Equal(t, domain.ActionRead, gotInput.Action)
	require.Equal(t, "event", gotInput.Resource.Type)
}

func TestHTTPEngine_Deny(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		_ = json.NewEncoder(w).Encode(map[string]any{
			"result": map[string]any{"allow": false, "reason": "explicit deny"},
		})
	}))
	defer srv.Close()

	decision, err := policy.NewHTTPEngine(srv.URL).Evaluate(context.Background(), testInput())
	require.NoError(t, err)
	require.False(t, decision.Allow)
	require.Equal(t, "explicit deny", decision.Reason)
}

func TestHTTPEngine_Failures(t *testing.T) {
	tests := []struct {
		name    string
		handler http.HandlerFunc
		wantErr error
	}{
		{
			"server error",
			func(w http.ResponseWriter, _ *http.Request) {
				http.Error(w, "boom", http.StatusInternalServerError)
			},
			policy.ErrUnavailable,
		},
		{
			"malformed body",
			func(w http.ResponseWriter, _ *http.Request) {
				_, _ = w.Write([]byte("{not json"))
			},
			policy.ErrBadResponse,
		},
		{
			"missing result",
			func(w http.ResponseWriter, _ *http.Request) {
				_ = json.NewEncoder(w).Encode(map[string]any{})
			},
			policy.ErrBadResponse,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv := httptest.NewServer(tt.handler)
			defer srv.Close()

			_, err := policy.NewHTTPEngine(srv.URL).Evaluate(context.Background(), testInput())
			require.ErrorIs(t, err, tt.wantErr)
		})
	}
}

func TestHTTPEngine_Timeout(t *testing.T) {
	release := make(chan struct{})
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		<-release
		_ = json.NewEncoder(w).Encode(map[string]any{"result": map[string]any{"allow": true}})
	}))
	defer srv.Close()
	defer close(release)

	engine := policy.NewHTTPEngine(srv.URL, policy.WithEvalTimeout(20*time.Millisecond))

	start := time.Now()
	_, err := engine.Evaluate(context.Background(), testInput())
	require.ErrorIs(t, err, policy.ErrUnavailable)
	require.Less(t, time.Since(start), 5*time.Second)
}

func TestHTTPEngine_MissingUser(t *testing.T) {
	engine := policy.NewHTTPEngine("http://127.0.0.1:0")
	input := testInput()
	input.User.UserID = ""

	_, err := engine.Evaluate(context.Background(), input)
	require.ErrorIs(t, err, policy.ErrInvalidInput)
}

func TestCedarEngine(t *testing.T) {
	engine, err := policy.NewCedarEngine([]string{
		`permit (principal, action == Action::"read", resource == Resource::"event");`,
		`permit (principal, action, resource) when { context.roles.contains("admin") };`,
	})
	require.NoError(t, err)

	t.Run("permit by action and resource", func(t *testing.T) {
		decision, err := engine.Evaluate(context.Background(), testInput())
		require.NoError(t, err)
		require.True(t, decision.Allow)
		require.Equal(t, domain.DecisionSourceRemote, decision.Source)
	})

	t.Run("deny unmatched request", func(t *testing.T) {
		input := testInput()
		input.Action = domain.ActionDelete

		decision, err := engine.Evaluate(context.Background(), input)
		require.NoError(t, err)
		require.False(t, decision.Allow)
	})

	t.Run("permit by role in context", func(t *testing.T) {
		input := testInput()
		input.Action = domain.ActionDelete
		input.User.Roles = []domain.Role{domain.RoleAdmin}

		decision, err := engine.Evaluate(context.Background(), input)
		require.NoError(t, err)
		require.True(t, decision.Allow)
	})

	t.Run("cancelled context", func(t *testing.T) {
		ctx, cancel := context.WithCancel(context.Background())
		cancel()

		_, err := engine.Evaluate(ctx, testInput())
		require.ErrorIs(t, err, context.Canceled)
	})
}

func TestNewCedarEngine_Errors(t *testing.T) {
	_, err := policy.NewCedarEngine(nil)
	require.ErrorIs(t, err, policy.ErrInvalidInput)

	_, err = policy.NewCedarEngine([]string{"permit (;"})
	require.ErrorIs(t, err, policy.ErrInvalidInput)
}

func TestMemoryAuditSink(t *testing.T) {
	sink := policy.NewMemoryAuditSink(2)
	ctx := context.Background()

	for _, id := range []string{"a", "b", "c"} {
		sink.Record(ctx, domain.DecisionRecord{ID: id, At: time.Now()})
	}

	records := sink.Records()
	require.Len(t, records, 2)
	require.Equal(t, "b", records[0].ID)
	require.Equal(t, "c", records[1].ID)
}
