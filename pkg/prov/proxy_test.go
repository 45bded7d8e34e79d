package prov

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/rlproxy/rlp-tgbot/pkg/core"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestProxy(t *testing.T, handler http.HandlerFunc) *Proxy {
	t.Helper()

	server := httptest.NewServer(handler)
	t.Cleanup(server.Close)

	return &Proxy{
		baseUrl: server.URL,
		cl:      &http.Client{},
	}
}

func TestNew(t *testing.T) {
	cfg := Config{
		Url: "https://proxy.example.com",
	}

	p := New(cfg)

	assert.NotNil(t, p)
	assert.Equal(t, cfg.Url, p.baseUrl)
	assert.NotNil(t, p.cl)
}

func TestGetProfile(t *testing.T) {
	tests := []struct {
		name            string
		serverResponse  func(w http.ResponseWriter, r *http.Request)
		expectedProfile *core.Profile
		expectedError   string
		expectedErrIs   error
	}{
		{
			name: "success",
			serverResponse: func(w http.ResponseWriter, r *http.Request) {
				assert.Equal(t, http.MethodGet, r.Method)
				assert.Equal(t, "/api/users/profile", r.URL.Path)
				assert.Equal(t, "Bearer session-token", r.Header.Get("Authorization"))

				w.Header().Set("Content-Type", "application/json")
				_ = json.NewEncoder(w).Encode(profileResponse{
					PhoneNumber: "+1000000000",
					APIKey:      "derived-key",
				})
			},
			expectedProfile: &core.Profile{
				PhoneNumber: "+1000000000",
				APIKey:      "derived-key",
			},
		},
		{
			name: "rejected session token",
			serverResponse: func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(http.StatusUnauthorized)
				_ = json.NewEncoder(w).Encode(errorResponse{Message: "invalid token"})
			},
			expectedErrIs: core.ErrUnauthenticated,
		},
		{
			name: "payload without api key rejected",
			serverResponse: func(w http.ResponseWriter, r *http.Request) {
				_ = json.NewEncoder(w).Encode(profileResponse{PhoneNumber: "+1000000000"})
			},
			expectedError: "malformed profile payload",
		},
		{
			name: "invalid response",
			serverResponse: func(w http.ResponseWriter, r *http.Request) {
				_, _ = w.Write([]byte("invalid json"))
			},
			expectedError: "failed to decode response",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := newTestProxy(t, tt.serverResponse)

			prof, err := p.GetProfile(context.Background(), "session-token")

			switch {
			case tt.expectedErrIs != nil:
				assert.ErrorIs(t, err, tt.expectedErrIs)
			case tt.expectedError != "":
				require.Error(t, err)
				assert.Contains(t, err.Error(), tt.expectedError)
			default:
				require.NoError(t, err)
				assert.Equal(t, tt.expectedProfile, prof)
			}
		})
	}
}

func TestListApps(t *testing.T) {
	p := newTestProxy(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodGet, r.Method)
		assert.Equal(t, "/api/apps", r.URL.Path)
		assert.Equal(t, "api-key", r.Header.Get("x-api-key"))

		_ = json.NewEncoder(w).Encode([]appResponse{
			{
				ID:                "rec-1",
				AppID:             "app-1",
				Name:              "first",
				BaseURL:           "https://api.example.com",
				RequestsPerWindow: 100,
				WindowInSeconds:   60,
				RateLimitStrategy: "window",
			},
			{
				ID:                "rec-2",
				AppID:             "app-2",
				Name:              "second",
				BaseURL:           "https://api.example.org",
				RequestsPerWindow: 10,
				WindowInSeconds:   1,
				RateLimitStrategy: "TOKEN_BUCKET",
				Timeout:           5000,
			},
		})
	})

	apps, err := p.ListApps(context.Background(), "api-key")
	require.NoError(t, err)
	require.Len(t, apps, 2)

	assert.Equal(t, "rec-1", apps[0].ID)
	assert.Equal(t, core.StrategyWindow, apps[0].Strategy)

	// Legacy upper-snake strategy casing is normalized on load.
	assert.Equal(t, core.StrategyTokenBucket, apps[1].Strategy)
	assert.Equal(t, 5000, apps[1].Timeout)
}

func TestGetApp(t *testing.T) {
	tests := []struct {
		name           string
		serverResponse func(w http.ResponseWriter, r *http.Request)
		expectedErrIs  error
		expectedError  string
	}{
		{
			name: "success with legacy strategy casing",
			serverResponse: func(w http.ResponseWriter, r *http.Request) {
				assert.Equal(t, "/api/apps/appId/app-1", r.URL.Path)
				assert.Equal(t, "api-key", r.Header.Get("x-api-key"))

				_ = json.NewEncoder(w).Encode(appResponse{
					ID:                "rec-1",
					AppID:             "app-1",
					Name:              "first",
					BaseURL:           "https://api.example.com",
					RequestsPerWindow: 100,
					WindowInSeconds:   60,
					RateLimitStrategy: "WINDOW",
				})
			},
		},
		{
			name: "not found",
			serverResponse: func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(http.StatusNotFound)
				_ = json.NewEncoder(w).Encode(errorResponse{Message: "no such app"})
			},
			expectedErrIs: core.ErrNotFound,
		},
		{
			name: "missing identifiers rejected",
			serverResponse: func(w http.ResponseWriter, r *http.Request) {
				_ = json.NewEncoder(w).Encode(appResponse{
					Name:              "first",
					RequestsPerWindow: 100,
					WindowInSeconds:   60,
					RateLimitStrategy: "window",
				})
			},
			expectedError: "malformed app payload",
		},
		{
			name: "unknown strategy rejected",
			serverResponse: func(w http.ResponseWriter, r *http.Request) {
				_ = json.NewEncoder(w).Encode(appResponse{
					ID:                "rec-1",
					AppID:             "app-1",
					RequestsPerWindow: 100,
					WindowInSeconds:   60,
					RateLimitStrategy: "leaky-bucket",
				})
			},
			expectedError: "unknown rate limit strategy",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := newTestProxy(t, tt.serverResponse)

			app, err := p.GetApp(context.Background(), "api-key", "app-1")

			switch {
			case tt.expectedErrIs != nil:
				assert.ErrorIs(t, err, tt.expectedErrIs)
			case tt.expectedError != "":
				require.Error(t, err)
				assert.Contains(t, err.Error(), tt.expectedError)
			default:
				require.NoError(t, err)
				assert.Equal(t, core.StrategyWindow, app.Strategy)
				assert.Equal(t, "rec-1", app.ID)
				assert.Equal(t, "app-1", app.AppID)
			}
		})
	}
}

func TestCreateApp(t *testing.T) {
	draft := core.AppDraft{
		Name:              "my app",
		BaseURL:           "https://api.example.com",
		RequestsPerWindow: 100,
		WindowInSeconds:   60,
		Strategy:          core.StrategyTokenBucket,
	}

	t.Run("success", func(t *testing.T) {
		p := newTestProxy(t, func(w http.ResponseWriter, r *http.Request) {
			assert.Equal(t, http.MethodPost, r.Method)
			assert.Equal(t, "/api/apps", r.URL.Path)
			assert.Equal(t, "api-key", r.Header.Get("x-api-key"))
			assert.Equal(t, "application/json", r.Header.Get("Content-Type"))

			var body map[string]any
			require.NoError(t, json.NewDecoder(r.Body).Decode(&body))

			// The write contract takes the canonical strategy spelling and
			// never carries identity fields.
			assert.Equal(t, "token-bucket", body["rateLimitStrategy"])
			assert.NotContains(t, body, "id")
			assert.NotContains(t, body, "appId")
			assert.NotContains(t, body, "timeout")

			w.WriteHeader(http.StatusCreated)
			_ = json.NewEncoder(w).Encode(appResponse{
				ID:                "rec-1",
				AppID:             "app-1",
				Name:              draft.Name,
				BaseURL:           draft.BaseURL,
				RequestsPerWindow: draft.RequestsPerWindow,
				WindowInSeconds:   draft.WindowInSeconds,
				RateLimitStrategy: "TOKEN_BUCKET",
			})
		})

		app, err := p.CreateApp(context.Background(), "api-key", draft)
		require.NoError(t, err)
		assert.Equal(t, "app-1", app.AppID)
		assert.Equal(t, core.StrategyTokenBucket, app.Strategy)
	})

	t.Run("remote validation message surfaced", func(t *testing.T) {
		p := newTestProxy(t, func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusBadRequest)
			_ = json.NewEncoder(w).Encode(errorResponse{Message: "baseUrl is not reachable"})
		})

		_, err := p.CreateApp(context.Background(), "api-key", draft)

		var vErr *core.ValidationError
		require.ErrorAs(t, err, &vErr)
		assert.Equal(t, "baseUrl is not reachable", vErr.Message)
	})
}

func TestUpdateApp(t *testing.T) {
	p := newTestProxy(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPut, r.Method)
		assert.Equal(t, "/api/apps/rec-1", r.URL.Path)
		assert.Equal(t, "api-key", r.Header.Get("x-api-key"))

		var body map[string]any
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		assert.NotContains(t, body, "id")
		assert.NotContains(t, body, "appId")
		assert.Equal(t, float64(2500), body["timeout"])

		_ = json.NewEncoder(w).Encode(appResponse{
			ID:                "rec-1",
			AppID:             "app-1",
			Name:              "renamed",
			BaseURL:           "https://api.example.com",
			RequestsPerWindow: 50,
			WindowInSeconds:   30,
			RateLimitStrategy: "window",
			Timeout:           2500,
		})
	})

	app, err := p.UpdateApp(context.Background(), "api-key", "rec-1", core.AppDraft{
		Name:              "renamed",
		BaseURL:           "https://api.example.com",
		RequestsPerWindow: 50,
		WindowInSeconds:   30,
		Strategy:          core.StrategyWindow,
		Timeout:           2500,
	})
	require.NoError(t, err)
	assert.Equal(t, "renamed", app.Name)
	assert.Equal(t, 2500, app.Timeout)
}

func TestDeleteApp(t *testing.T) {
	tests := []struct {
		name          string
		status        int
		expectedErrIs error
		expectedError string
	}{
		{name: "deleted", status: http.StatusNoContent},
		{name: "deleted with body", status: http.StatusOK},
		{name: "already gone", status: http.StatusNotFound, expectedErrIs: core.ErrNotFound},
		{name: "server error", status: http.StatusInternalServerError, expectedError: "unexpected status 500"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := newTestProxy(t, func(w http.ResponseWriter, r *http.Request) {
				assert.Equal(t, http.MethodDelete, r.Method)
				assert.Equal(t, "/api/apps/rec-1", r.URL.Path)
				assert.Equal(t, "api-key", r.Header.Get("x-api-key"))

				w.WriteHeader(tt.status)
			})

			err := p.DeleteApp(context.Background(), "api-key", "rec-1")

			switch {
			case tt.expectedErrIs != nil:
				assert.ErrorIs(t, err, tt.expectedErrIs)
			case tt.expectedError != "":
				require.Error(t, err)
				assert.Contains(t, err.Error(), tt.expectedError)
			default:
				assert.NoError(t, err)
			}
		})
	}
}

func TestInvoke(t *testing.T) {
	p := newTestProxy(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodGet, r.Method)
		assert.Equal(t, "/apis/app-1", r.URL.Path)
		assert.Equal(t, "api-key", r.Header.Get("x-api-key"))

		w.WriteHeader(http.StatusTooManyRequests)
		_, _ = w.Write([]byte(`{"message":"rate limit exceeded"}`))
	})

	// The raw payload is returned regardless of the status code: the probe
	// reports what the proxy answered, it does not interpret it.
	res, err := p.Invoke(context.Background(), "api-key", "app-1")
	require.NoError(t, err)
	assert.Equal(t, http.StatusTooManyRequests, res.Status)
	assert.Contains(t, res.Body, "rate limit exceeded")
}
