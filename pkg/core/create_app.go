package core

import (
	"context"
	"errors"
	"fmt"
	"strconv"

	"github.com/rlproxy/rlp-tgbot/pkg/core/conv"
)

const (
	StateNewApp          conv.State = "newApp"
	StateSelectAppToEdit conv.State = "selectAppToEdit"
	StateEditApp         conv.State = "editApp"
	StateDeleteApp       conv.State = "deleteApp"
	StateTestApp         conv.State = "testApp"

	fieldName      = "name"
	fieldBaseURL   = "base_url"
	fieldRequests  = "requests_per_window"
	fieldWindow    = "window_in_seconds"
	fieldStrategy  = "rate_limit_strategy"
	fieldTimeout   = "timeout"
	fieldAppSelect = "app_select"
	fieldConfirm   = "confirm"

	defaultRequestsPerWindow = 100
	defaultWindowInSeconds   = 60

	appCreatedMessage = "✅ API app created\n\n%s\n\nUse /apps to see all your apps or /test_app to probe this one."
)

// NewApp starts the create-app form conversation with documented defaults.
func (s *Service) NewApp(ctx context.Context, userID string) (*Response, error) {
	c, err := s.repo.GetConversation(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to get conversation: %w", err)
	}

	questions := conv.NewQuestions(newAppQuestions())

	if err := c.Start(StateNewApp, questions); err != nil {
		return nil, fmt.Errorf("failed to start questions: %w", err)
	}

	q, _ := c.Current()

	if err := s.repo.SaveConversation(ctx, c); err != nil {
		return nil, fmt.Errorf("failed to save conversation: %w", err)
	}

	return &Response{Message: q.Text, Answers: q.Answers}, nil
}

func newAppQuestions() []conv.Question {
	return []conv.Question{
		{
			Text:  "What is the name of your API app?",
			Field: fieldName,
		},
		{
			Text:  "What is the base URL of the third-party API you want to proxy? (e.g. https://api.example.com)",
			Field: fieldBaseURL,
		},
		{
			Text:    fmt.Sprintf("How many requests are allowed per window? (default %d, send %s to use it)", defaultRequestsPerWindow, conv.KeepAnswer),
			Field:   fieldRequests,
			Default: strconv.Itoa(defaultRequestsPerWindow),
		},
		{
			Text:    fmt.Sprintf("How long is the rate limit window in seconds? (default %d, send %s to use it)", defaultWindowInSeconds, conv.KeepAnswer),
			Field:   fieldWindow,
			Default: strconv.Itoa(defaultWindowInSeconds),
		},
		{
			Text:    "Which rate limiting strategy should apply?",
			Answers: []string{string(StrategyWindow), string(StrategyTokenBucket)},
			Field:   fieldStrategy,
			Default: string(StrategyWindow),
		},
	}
}

// handleNewAppResult submits the completed create form to the proxy.
// On failure the form is restarted pre-seeded with the submitted values,
// so the user's input is never lost.
func (s *Service) handleNewAppResult(ctx context.Context, userID string, answers []conv.QuestionAnswer) (*Response, error) {
	draft, err := draftFromAnswers(answers)
	if err != nil {
		return nil, fmt.Errorf("failed to build app draft: %w", err)
	}

	if err := draft.Validate(); err != nil {
		return nil, fmt.Errorf("invalid app draft: %w", err)
	}

	key, err := s.apiKey(ctx, userID)
	if err != nil {
		return nil, err
	}

	app, err := s.proxy.CreateApp(ctx, key, draft)
	if err != nil {
		return s.reseedForm(ctx, userID, StateNewApp, nil, draft,
			fmt.Sprintf("❌ Failed to create API app: %s", remoteMessage(err)))
	}

	return &Response{Message: fmt.Sprintf(appCreatedMessage, formatApp(app))}, nil
}

// draftFromAnswers maps completed form answers onto an AppDraft.
func draftFromAnswers(answers []conv.QuestionAnswer) (AppDraft, error) {
	var draft AppDraft

	for _, qa := range answers {
		switch qa.Field {
		case fieldName:
			draft.Name = qa.Answer
		case fieldBaseURL:
			draft.BaseURL = qa.Answer
		case fieldRequests:
			n, err := validatePositiveInt(qa.Answer)
			if err != nil {
				return AppDraft{}, err
			}

			draft.RequestsPerWindow = n
		case fieldWindow:
			n, err := validatePositiveInt(qa.Answer)
			if err != nil {
				return AppDraft{}, err
			}

			draft.WindowInSeconds = n
		case fieldStrategy:
			st, err := ParseStrategy(qa.Answer)
			if err != nil {
				return AppDraft{}, err
			}

			draft.Strategy = st
		case fieldTimeout:
			n, err := validateNonNegativeInt(qa.Answer)
			if err != nil {
				return AppDraft{}, err
			}

			draft.Timeout = n
		default:
			return AppDraft{}, fmt.Errorf("unexpected form field: %q", qa.Field)
		}
	}

	return draft, nil
}

// reseedForm restarts a form conversation with the previously submitted draft
// as per-question defaults, prefixing the first question with the failure reason.
func (s *Service) reseedForm(ctx context.Context, userID string, state conv.State, cctx map[string]string, draft AppDraft, reason string) (*Response, error) {
	c, err := s.repo.GetConversation(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to get conversation: %w", err)
	}

	var questions []conv.Question
	if state == StateEditApp {
		questions = editAppQuestions(draft)
	} else {
		questions = seededNewAppQuestions(draft)
	}

	if err := c.Start(state, conv.NewQuestions(questions)); err != nil {
		return nil, fmt.Errorf("failed to start questions: %w", err)
	}

	c.Context = cctx

	q, _ := c.Current()

	if err := s.repo.SaveConversation(ctx, c); err != nil {
		return nil, fmt.Errorf("failed to save conversation: %w", err)
	}

	msg := fmt.Sprintf("%s\n\nYour previous values are kept. Send %s to reuse each one.\n\n%s", reason, conv.KeepAnswer, q.Text)

	return &Response{Message: msg, Answers: q.Answers}, nil
}

func seededNewAppQuestions(draft AppDraft) []conv.Question {
	questions := newAppQuestions()
	for i := range questions {
		questions[i].Default = draftFieldValue(draft, questions[i].Field)
	}

	return questions
}

func draftFieldValue(draft AppDraft, field string) string {
	switch field {
	case fieldName:
		return draft.Name
	case fieldBaseURL:
		return draft.BaseURL
	case fieldRequests:
		return strconv.Itoa(draft.RequestsPerWindow)
	case fieldWindow:
		return strconv.Itoa(draft.WindowInSeconds)
	case fieldStrategy:
		return string(draft.Strategy)
	case fieldTimeout:
		return strconv.Itoa(draft.Timeout)
	default:
		return ""
	}
}

// remoteMessage extracts the user-facing failure reason for a proxy call:
// the remote-reported message when present, a generic one otherwise.
func remoteMessage(err error) string {
	var vErr *ValidationError
	if errors.As(err, &vErr) {
		return vErr.Message
	}

	switch {
	case errors.Is(err, ErrUnauthorized):
		return "You are not allowed to perform this operation"
	case errors.Is(err, ErrNotFound):
		return "The API app no longer exists"
	default:
		return "Could not connect to server"
	}
}
