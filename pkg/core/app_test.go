package core

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestParseStrategy(t *testing.T) {
	tests := []struct {
		name    string
		input   string
		want    Strategy
		wantErr bool
	}{
		{name: "canonical window", input: "window", want: StrategyWindow},
		{name: "canonical token-bucket", input: "token-bucket", want: StrategyTokenBucket},
		{name: "legacy upper snake window", input: "WINDOW", want: StrategyWindow},
		{name: "legacy upper snake token bucket", input: "TOKEN_BUCKET", want: StrategyTokenBucket},
		{name: "unknown strategy", input: "leaky-bucket", wantErr: true},
		{name: "empty", input: "", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ParseStrategy(tt.input)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			assert.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestAppDraft_Validate(t *testing.T) {
	valid := AppDraft{
		Name:              "my app",
		BaseURL:           "https://api.example.com",
		RequestsPerWindow: 100,
		WindowInSeconds:   60,
		Strategy:          StrategyWindow,
	}

	tests := []struct {
		name    string
		mutate  func(d *AppDraft)
		wantErr string
	}{
		{name: "valid draft", mutate: func(*AppDraft) {}},
		{
			name:    "empty name",
			mutate:  func(d *AppDraft) { d.Name = "" },
			wantErr: "name must not be empty",
		},
		{
			name:    "base url without scheme",
			mutate:  func(d *AppDraft) { d.BaseURL = "api.example.com" },
			wantErr: "base URL must be a valid",
		},
		{
			name:    "base url with unsupported scheme",
			mutate:  func(d *AppDraft) { d.BaseURL = "ftp://api.example.com" },
			wantErr: "base URL must be a valid",
		},
		{
			name:    "zero requests per window",
			mutate:  func(d *AppDraft) { d.RequestsPerWindow = 0 },
			wantErr: "requests per window must be a positive number",
		},
		{
			name:    "negative window",
			mutate:  func(d *AppDraft) { d.WindowInSeconds = -5 },
			wantErr: "window must be a positive number",
		},
		{
			name:    "negative timeout",
			mutate:  func(d *AppDraft) { d.Timeout = -1 },
			wantErr: "timeout must not be negative",
		},
		{
			name:    "unknown strategy",
			mutate:  func(d *AppDraft) { d.Strategy = "leaky-bucket" },
			wantErr: "strategy must be window or token-bucket",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			draft := valid
			tt.mutate(&draft)

			err := draft.Validate()
			if tt.wantErr == "" {
				assert.NoError(t, err)
				return
			}

			var vErr *ValidationError
			assert.ErrorAs(t, err, &vErr)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}

func TestResolveAppFromSelection(t *testing.T) {
	apps := []App{
		{ID: "rec-1", AppID: "abcdefgh1234", Name: "first"},
		{ID: "rec-2", AppID: "zyxwvuts5678", Name: "second"},
	}

	app, err := resolveAppFromSelection(apps, "zyxwvuts (second)")
	assert.NoError(t, err)
	assert.Equal(t, "rec-2", app.ID)

	_, err = resolveAppFromSelection(apps, "missing1 (gone)")
	assert.ErrorIs(t, err, ErrAppNotSelected)
}

func TestResolveAppFromSelection_SharedIDPrefix(t *testing.T) {
	// Both IDs truncate to the same 8-character button prefix; the name part
	// of the label must still tell them apart.
	apps := []App{
		{ID: "rec-1", AppID: "abcdefgh1111", Name: "first"},
		{ID: "rec-2", AppID: "abcdefgh2222", Name: "second"},
	}

	app, err := resolveAppFromSelection(apps, "abcdefgh (second)")
	assert.NoError(t, err)
	assert.Equal(t, "rec-2", app.ID)

	app, err = resolveAppFromSelection(apps, "abcdefgh (first)")
	assert.NoError(t, err)
	assert.Equal(t, "rec-1", app.ID)
}
