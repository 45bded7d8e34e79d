package core

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/rlproxy/rlp-tgbot/pkg/core/conv"
)

const (
	listAppsHeader = "📦 Your API Apps (%d)\n\n"
	listAppsFooter = "\nUse /new_app to create an app, /edit_app to change one, /delete_app to remove one or /test_app to probe one."
	noAppsMessage  = "You don't have any API apps yet.\n\nUse /new_app to create your first one."

	appIDDisplayLen = 8 // number of app ID characters shown on selection buttons
)

var ErrAppNotSelected = errors.New("selected app not found")

// Apps loads the user's App entities from the proxy and formats them for display.
// The ordering is whatever the remote resource returned.
func (s *Service) Apps(ctx context.Context, userID string) (*Response, error) {
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

	return &Response{Message: formatAppList(apps)}, nil
}

func formatAppList(apps []App) string {
	var sb strings.Builder

	fmt.Fprintf(&sb, listAppsHeader, len(apps))

	for i, a := range apps {
		fmt.Fprintf(&sb, "%d. %s\n", i+1, a.Name)
		fmt.Fprintf(&sb, "   🌐 %s\n", a.BaseURL)
		fmt.Fprintf(&sb, "   ⏱ %d requests per %d seconds (%s)\n", a.RequestsPerWindow, a.WindowInSeconds, a.Strategy)

		if a.Timeout > 0 {
			fmt.Fprintf(&sb, "   ⏳ timeout %dms\n", a.Timeout)
		}

		fmt.Fprintf(&sb, "   🆔 %s\n", a.AppID)
	}

	sb.WriteString(listAppsFooter)

	return sb.String()
}

func formatApp(a *App) string {
	var sb strings.Builder

	fmt.Fprintf(&sb, "%s\n", a.Name)
	fmt.Fprintf(&sb, "🌐 %s\n", a.BaseURL)
	fmt.Fprintf(&sb, "⏱ %d requests per %d seconds (%s)\n", a.RequestsPerWindow, a.WindowInSeconds, a.Strategy)

	if a.Timeout > 0 {
		fmt.Fprintf(&sb, "⏳ timeout %dms\n", a.Timeout)
	}

	fmt.Fprintf(&sb, "🆔 %s", a.AppID)

	return sb.String()
}

// buildAppSelectionQuestion creates a Question that lists the provided apps as
// selectable buttons. The button text is an app ID prefix plus the app name.
func buildAppSelectionQuestion(apps []App, text, field string) conv.Question {
	answers := make([]string, len(apps))
	for i := range apps {
		answers[i] = appSelectionLabel(&apps[i])
	}

	return conv.Question{
		Text:    text,
		Answers: answers,
		Field:   field,
	}
}

func appSelectionLabel(a *App) string {
	return fmt.Sprintf("%s (%s)", displayAppID(a.AppID), a.Name)
}

// resolveAppFromSelection finds the app whose full button label matches the
// text selected by the user. Matching the whole "<prefix> (<name>)" label
// keeps apps with a shared ID prefix apart.
func resolveAppFromSelection(apps []App, buttonText string) (*App, error) {
	for i := range apps {
		if buttonText == appSelectionLabel(&apps[i]) {
			return &apps[i], nil
		}
	}

	return nil, ErrAppNotSelected
}

func displayAppID(id string) string {
	if len(id) > appIDDisplayLen {
		return id[:appIDDisplayLen]
	}

	return id
}
