package conv

import (
	"errors"
	"fmt"
)

var (
	ErrIsNotComplete = errors.New("conversation is not complete")
)

type State string

const (
	StateIdle     State = "idle"
	StateComplete State = "complete"
)

// KeepAnswer is the sentinel a user sends to keep a question's default value.
const KeepAnswer = "-"

type Question struct {
	Text    string   `json:"text"`
	Answers []string `json:"answers,omitempty"`
	Field   string   `json:"field,omitempty"`
	Default string   `json:"default,omitempty"`
}

type QuestionAnswer struct {
	Answer   string   `json:"answer"`
	Field    string   `json:"field,omitempty"`
	Question Question `json:"question"`
}

type Conversation struct {
	ID    string
	State State
	// Kind is the state the conversation was started with. State moves to
	// StateComplete once the last answer is in; Kind keeps identifying which
	// form the answers belong to.
	Kind      State     `json:"kind,omitempty"`
	Questions Questions `json:"Questions"`
	// Context carries opaque key-value pairs tied to the conversation,
	// such as the identifier of the entity a form is editing.
	Context map[string]string `json:"context,omitempty"`
}

func New(id string) *Conversation {
	return &Conversation{
		ID:    id,
		State: StateIdle,
	}
}

// Start initializes a series of questions for the conversation, updating its state and storing the questions provided.
// Returns an error if the conversation is not in the idle state or if an invalid state is supplied.
func (c *Conversation) Start(kind State, questions Questions) error {
	if c.State != StateIdle {
		return errors.New("conversation is not in idle state")
	}

	if kind == StateIdle || kind == StateComplete {
		panic("invalid state for questions, cannot use StateIdle or StateComplete")
	}

	c.State = kind
	c.Kind = kind
	c.Questions = questions

	return nil
}

// Current retrieves the current question in the conversation if it is in an active questions state, else returns an error.
func (c *Conversation) Current() (*Question, error) {
	if c.State == StateIdle || c.State == StateComplete {
		return nil, errors.New("conversation is not in questions state")
	}

	return c.Questions.GetQuestion()
}

// Submit processes the provided answer, advancing the conversation state and tracking completion or errors as appropriate.
func (c *Conversation) Submit(answer string) error {
	if c.State == StateIdle || c.State == StateComplete {
		return errors.New("conversation is not in questions state")
	}

	done, err := c.Questions.ProcessAnswer(answer)
	if err != nil {
		return err
	}

	if done {
		c.State = StateComplete
	}

	return nil
}

// Results retrieves the completed question-answer pairs of a conversation if it is in the complete state,
// returning an error otherwise. The returned state is the kind the conversation was started with, so
// callers can dispatch the answers to the right form handler.
func (c *Conversation) Results() (State, []QuestionAnswer, error) {
	if c.State != StateComplete {
		return "", nil, ErrIsNotComplete
	}

	r, err := c.Questions.GetResults()

	if err != nil {
		return "", nil, fmt.Errorf("failed to get question results: %w", err)
	}

	kind := c.Kind
	c.State = StateIdle
	c.Kind = ""
	c.Context = nil

	return kind, r, nil
}
