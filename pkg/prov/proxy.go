package prov

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/rlproxy/rlp-tgbot/pkg/core"
)

type Config struct {
	Url string `mapstructure:"url"`
}

const apiKeyHeader = "x-api-key"

// Proxy is the typed HTTP client for the rate-limiting proxy service.
// Profile calls authorize with the bearer session token; all App-resource
// calls and test invocations authorize with the API key, uniformly.
type Proxy struct {
	baseUrl string
	cl      *http.Client
}

// New creates and returns a new instance of the Proxy client initialized with the provided configuration.
func New(cfg Config) *Proxy {
	return &Proxy{
		baseUrl: cfg.Url,
		cl: &http.Client{
			Timeout: 10 * time.Second,
		},
	}
}

type profileResponse struct {
	PhoneNumber string `json:"phoneNumber"`
	APIKey      string `json:"apiKey"`
}

type appResponse struct {
	ID                string `json:"id"`
	AppID             string `json:"appId"`
	Name              string `json:"name"`
	BaseURL           string `json:"baseUrl"`
	RequestsPerWindow int    `json:"requestsPerWindow"`
	WindowInSeconds   int    `json:"windowInSeconds"`
	RateLimitStrategy string `json:"rateLimitStrategy"`
	Timeout           int    `json:"timeout,omitempty"`
}

type appRequest struct {
	Name              string `json:"name"`
	BaseURL           string `json:"baseUrl"`
	RequestsPerWindow int    `json:"requestsPerWindow"`
	WindowInSeconds   int    `json:"windowInSeconds"`
	RateLimitStrategy string `json:"rateLimitStrategy"`
	Timeout           int    `json:"timeout,omitempty"`
}

type errorResponse struct {
	Message string `json:"message"`
}

// GetProfile fetches the authenticated user's profile. It is the sole source
// for deriving the API key, so a payload without one is rejected.
func (p *Proxy) GetProfile(ctx context.Context, sessionToken string) (*core.Profile, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, p.baseUrl+"/api/users/profile", http.NoBody)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}

	req.Header.Set("Authorization", "Bearer "+sessionToken)

	resp, err := p.cl.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to send request: %w", err)
	}

	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		return nil, p.decodeError(resp)
	}

	var prof profileResponse
	if err := json.NewDecoder(resp.Body).Decode(&prof); err != nil {
		return nil, fmt.Errorf("failed to decode response: %w", err)
	}

	if prof.APIKey == "" {
		return nil, fmt.Errorf("malformed profile payload: missing apiKey")
	}

	return &core.Profile{
		PhoneNumber: prof.PhoneNumber,
		APIKey:      prof.APIKey,
	}, nil
}

// ListApps fetches the user's App entities in the order the proxy returns them.
func (p *Proxy) ListApps(ctx context.Context, apiKey string) ([]core.App, error) {
	resp, err := p.doApps(ctx, apiKey, http.MethodGet, "/api/apps", nil)
	if err != nil {
		return nil, err
	}

	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		return nil, p.decodeError(resp)
	}

	var payload []appResponse
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		return nil, fmt.Errorf("failed to decode response: %w", err)
	}

	apps := make([]core.App, 0, len(payload))

	for _, a := range payload {
		app, err := a.toApp()
		if err != nil {
			return nil, err
		}

		apps = append(apps, *app)
	}

	return apps, nil
}

// GetApp fetches one App by its external appId.
func (p *Proxy) GetApp(ctx context.Context, apiKey, appID string) (*core.App, error) {
	resp, err := p.doApps(ctx, apiKey, http.MethodGet, "/api/apps/appId/"+appID, nil)
	if err != nil {
		return nil, err
	}

	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		return nil, p.decodeError(resp)
	}

	return decodeApp(resp.Body)
}

// CreateApp registers a new App. The server assigns both identifiers.
func (p *Proxy) CreateApp(ctx context.Context, apiKey string, draft core.AppDraft) (*core.App, error) {
	resp, err := p.doApps(ctx, apiKey, http.MethodPost, "/api/apps", draftPayload(draft))
	if err != nil {
		return nil, err
	}

	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK && resp.StatusCode != http.StatusCreated {
		return nil, p.decodeError(resp)
	}

	return decodeApp(resp.Body)
}

// UpdateApp patches the policy fields of an App addressed by its internal id.
// Identity fields are never part of the payload.
func (p *Proxy) UpdateApp(ctx context.Context, apiKey, id string, draft core.AppDraft) (*core.App, error) {
	resp, err := p.doApps(ctx, apiKey, http.MethodPut, "/api/apps/"+id, draftPayload(draft))
	if err != nil {
		return nil, err
	}

	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		return nil, p.decodeError(resp)
	}

	return decodeApp(resp.Body)
}

// DeleteApp removes an App addressed by its internal id. A missing entity is
// reported as core.ErrNotFound, so repeat deletes stay harmless.
func (p *Proxy) DeleteApp(ctx context.Context, apiKey, id string) error {
	resp, err := p.doApps(ctx, apiKey, http.MethodDelete, "/api/apps/"+id, nil)
	if err != nil {
		return err
	}

	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK && resp.StatusCode != http.StatusNoContent {
		return p.decodeError(resp)
	}

	return nil
}

// Invoke issues a single GET through the proxy's public invocation path and
// returns the raw payload regardless of the target's status code.
func (p *Proxy) Invoke(ctx context.Context, apiKey, appID string) (*core.InvokeResult, error) {
	resp, err := p.doApps(ctx, apiKey, http.MethodGet, "/apis/"+appID, nil)
	if err != nil {
		return nil, err
	}

	defer func() { _ = resp.Body.Close() }()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read response body: %w", err)
	}

	return &core.InvokeResult{
		Status: resp.StatusCode,
		Body:   string(body),
	}, nil
}

// doApps performs an API-key-authorized request with an optional JSON body.
func (p *Proxy) doApps(ctx context.Context, apiKey, method, path string, payload any) (*http.Response, error) {
	var body io.Reader = http.NoBody

	if payload != nil {
		data, err := json.Marshal(payload)
		if err != nil {
			return nil, fmt.Errorf("failed to marshal request: %w", err)
		}

		body = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, p.baseUrl+path, body)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}

	req.Header.Set(apiKeyHeader, apiKey)

	if payload != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := p.cl.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to send request: %w", err)
	}

	return resp, nil
}

// decodeError maps a non-success response to the console error taxonomy,
// keeping the remote-reported message when one is present.
func (p *Proxy) decodeError(resp *http.Response) error {
	var remote errorResponse

	_ = json.NewDecoder(resp.Body).Decode(&remote)

	switch resp.StatusCode {
	case http.StatusUnauthorized:
		return fmt.Errorf("%w: session credential rejected", core.ErrUnauthenticated)
	case http.StatusForbidden:
		return fmt.Errorf("%w: insufficient rights", core.ErrUnauthorized)
	case http.StatusNotFound:
		return fmt.Errorf("%w: entity absent", core.ErrNotFound)
	case http.StatusBadRequest, http.StatusUnprocessableEntity:
		msg := remote.Message
		if msg == "" {
			msg = "the proxy rejected the submitted values"
		}

		return &core.ValidationError{Message: msg}
	default:
		if remote.Message != "" {
			return fmt.Errorf("unexpected status %d: %s", resp.StatusCode, remote.Message)
		}

		return fmt.Errorf("unexpected status %d", resp.StatusCode)
	}
}

func decodeApp(r io.Reader) (*core.App, error) {
	var payload appResponse
	if err := json.NewDecoder(r).Decode(&payload); err != nil {
		return nil, fmt.Errorf("failed to decode response: %w", err)
	}

	return payload.toApp()
}

// toApp normalizes a wire payload into the console's App model, rejecting
// payloads that do not conform to the expected shape.
func (a appResponse) toApp() (*core.App, error) {
	if a.ID == "" || a.AppID == "" {
		return nil, fmt.Errorf("malformed app payload: missing identifiers")
	}

	if a.RequestsPerWindow <= 0 || a.WindowInSeconds <= 0 {
		return nil, fmt.Errorf("malformed app payload: non-positive rate limit values")
	}

	strategy, err := core.ParseStrategy(a.RateLimitStrategy)
	if err != nil {
		return nil, fmt.Errorf("malformed app payload: %w", err)
	}

	return &core.App{
		ID:                a.ID,
		AppID:             a.AppID,
		Name:              a.Name,
		BaseURL:           a.BaseURL,
		RequestsPerWindow: a.RequestsPerWindow,
		WindowInSeconds:   a.WindowInSeconds,
		Strategy:          strategy,
		Timeout:           a.Timeout,
	}, nil
}

// draftPayload builds the wire body for create and update calls. The write
// contract always takes the canonical strategy spelling, never the legacy
// casing the read path may emit.
func draftPayload(draft core.AppDraft) appRequest {
	return appRequest{
		Name:              draft.Name,
		BaseURL:           draft.BaseURL,
		RequestsPerWindow: draft.RequestsPerWindow,
		WindowInSeconds:   draft.WindowInSeconds,
		RateLimitStrategy: string(draft.Strategy),
		Timeout:           draft.Timeout,
	}
}
