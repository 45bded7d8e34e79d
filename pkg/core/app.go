package core

import (
	"fmt"
	"net/url"
	"strconv"
)

// Strategy is the canonical rate-limiting strategy name used by the write contract.
type Strategy string

const (
	StrategyWindow      Strategy = "window"
	StrategyTokenBucket Strategy = "token-bucket"
)

// strategyAliases maps every wire spelling of a strategy to its canonical value.
// The read path of the proxy API is known to emit an upper-snake variant that
// the write path does not accept, so the two directions go through this table
// instead of assuming symmetric casing.
var strategyAliases = map[string]Strategy{
	"window":       StrategyWindow,
	"token-bucket": StrategyTokenBucket,
	"WINDOW":       StrategyWindow,
	"TOKEN_BUCKET": StrategyTokenBucket,
}

// ParseStrategy normalizes a wire strategy name into its canonical value.
func ParseStrategy(s string) (Strategy, error) {
	if st, ok := strategyAliases[s]; ok {
		return st, nil
	}

	return "", fmt.Errorf("unknown rate limit strategy: %q", s)
}

// App is a rate-limiting policy bound to a third-party API.
// ID addresses the entity for update and delete; AppID addresses it for
// fetching and proxy invocation. The two are distinct and never interchangeable.
type App struct {
	ID                string
	AppID             string
	Name              string
	BaseURL           string
	RequestsPerWindow int
	WindowInSeconds   int
	Strategy          Strategy
	Timeout           int // milliseconds, 0 means no override
}

// AppDraft holds the mutable policy fields for create and update calls.
// Identity fields are assigned by the server and never part of a draft.
type AppDraft struct {
	Name              string
	BaseURL           string
	RequestsPerWindow int
	WindowInSeconds   int
	Strategy          Strategy
	Timeout           int
}

// Validate checks the draft for obviously invalid input before any network call.
// The remote side remains authoritative for anything this does not catch.
func (d AppDraft) Validate() error {
	if err := validateName(d.Name); err != nil {
		return err
	}

	if err := validateBaseURL(d.BaseURL); err != nil {
		return err
	}

	if d.RequestsPerWindow <= 0 {
		return &ValidationError{Message: "requests per window must be a positive number"}
	}

	if d.WindowInSeconds <= 0 {
		return &ValidationError{Message: "window must be a positive number of seconds"}
	}

	if d.Timeout < 0 {
		return &ValidationError{Message: "timeout must not be negative"}
	}

	if _, err := ParseStrategy(string(d.Strategy)); err != nil {
		return &ValidationError{Message: "rate limit strategy must be window or token-bucket"}
	}

	return nil
}

// Profile is a read-only projection of the proxy account.
type Profile struct {
	PhoneNumber string `json:"phoneNumber"`
	APIKey      string `json:"apiKey"`
}

// InvokeResult is the raw outcome of a manual test request through the proxy.
type InvokeResult struct {
	Status int
	Body   string
}

func validateName(name string) error {
	if name == "" {
		return &ValidationError{Message: "application name must not be empty"}
	}

	return nil
}

func validateBaseURL(raw string) error {
	u, err := url.Parse(raw)
	if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return &ValidationError{Message: "base URL must be a valid http or https URL"}
	}

	return nil
}

func validatePositiveInt(raw string) (int, error) {
	n, err := strconv.Atoi(raw)
	if err != nil || n <= 0 {
		return 0, &ValidationError{Message: "value must be a positive number"}
	}

	return n, nil
}

func validateNonNegativeInt(raw string) (int, error) {
	n, err := strconv.Atoi(raw)
	if err != nil || n < 0 {
		return 0, &ValidationError{Message: "value must be a non-negative number"}
	}

	return n, nil
}
