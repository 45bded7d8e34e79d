package core

import (
	"context"
	"fmt"
	"unicode/utf8"

	"github.com/rlproxy/rlp-tgbot/pkg/core/conv"
)

const (
	testResultMessage = "🧪 Test result for %s\n\nHTTP %d\n\n%s"
	testFailedMessage = "❌ Test request failed: Could not connect to server.\n\nThe proxy or the target API did not respond. You can retry with /test_app."

	maxTestBodyLen = 3000 // keep the echoed payload within Telegram's message limit
)

// TestApp starts the smoke-test flow: the user picks an app and the console
// issues a single GET probe through the proxy's public invocation path.
func (s *Service) TestApp(ctx context.Context, userID string) (*Response, error) {
	key, err := s.apiKey(ctx, userID)
	if err != nil {
		return nil, err
	}

	apps, err := s.proxy.ListApps(ctx, key)
	if err != nil {
		return nil, fmt.Errorf("failed to list apps: %w", err)
	}

	if len(apps) == 0 {
		return &Response{Message: noAppsMessage}, nil
	}

	q := buildAppSelectionQuestion(apps, "Which API app do you want to test?", fieldAppSelect)

	return s.startSelection(ctx, userID, StateTestApp, q)
}

// handleTestAppResult performs the probe. A failed probe is an answer for the
// user, not an error, and is never retried.
func (s *Service) handleTestAppResult(ctx context.Context, userID string, answers []conv.QuestionAnswer) (*Response, error) {
	if len(answers) != 1 {
		return nil, fmt.Errorf("expected exactly one answer for app selection question, got %d", len(answers))
	}

	key, err := s.apiKey(ctx, userID)
	if err != nil {
		return nil, err
	}

	apps, err := s.proxy.ListApps(ctx, key)
	if err != nil {
		return nil, fmt.Errorf("failed to list apps: %w", err)
	}

	selected, err := resolveAppFromSelection(apps, answers[0].Answer)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve selected app: %w", err)
	}

	res, err := s.proxy.Invoke(ctx, key, selected.AppID)
	if err != nil {
		return &Response{Message: testFailedMessage}, nil
	}

	return &Response{Message: fmt.Sprintf(testResultMessage, selected.Name, res.Status, truncateBody(res.Body))}, nil
}

// truncateBody caps the echoed payload, cutting on a rune boundary so the
// message stays valid UTF-8.
func truncateBody(body string) string {
	if len(body) <= maxTestBodyLen {
		return body
	}

	cut := maxTestBodyLen
	for cut > 0 && !utf8.RuneStart(body[cut]) {
		cut--
	}

	return body[:cut] + "…"
}
