package conv

import (
	"errors"
)

var (
	ErrNoMoreQuestions         = errors.New("no more questions")
	ErrQuestionnaireIncomplete = errors.New("questionnaire is incomplete")
	ErrInvalidAnswer           = errors.New("invalid answer")
)

type Questions struct {
	QAPairs  []QuestionAnswer `json:"qa_pairs"`
	Position int              `json:"position"`
}

func NewQuestions(questions []Question) Questions {
	qaPairs := make([]QuestionAnswer, len(questions))
	for i, q := range questions {
		qaPairs[i] = QuestionAnswer{
			Question: q,
			Field:    q.Field,
			Answer:   "",
		}
	}

	return Questions{
		QAPairs:  qaPairs,
		Position: 0,
	}
}

func (f *Questions) GetQuestion() (*Question, error) {
	if f.Position >= len(f.QAPairs) {
		return nil, ErrNoMoreQuestions
	}
	return &f.QAPairs[f.Position].Question, nil
}

// ProcessAnswer records an answer for the current question and advances the position.
// Questions with a fixed answer set only accept one of the listed answers; questions
// without one accept any non-empty text. The KeepAnswer sentinel resolves to the
// question's default value when one is set.
func (f *Questions) ProcessAnswer(answer string) (bool, error) {
	if f.Position >= len(f.QAPairs) {
		return false, ErrNoMoreQuestions
	}

	q := f.QAPairs[f.Position].Question

	if answer == KeepAnswer && q.Default != "" {
		answer = q.Default
	}

	if len(q.Answers) > 0 {
		if !containsAnswer(q.Answers, answer) {
			return false, ErrInvalidAnswer
		}
	} else if answer == "" {
		return false, ErrInvalidAnswer
	}

	f.QAPairs[f.Position].Answer = answer
	f.Position++

	return f.Position >= len(f.QAPairs), nil
}

func (f *Questions) GetResults() ([]QuestionAnswer, error) {
	if f.Position < len(f.QAPairs) {
		return nil, ErrQuestionnaireIncomplete
	}

	return f.QAPairs, nil
}

func containsAnswer(answers []string, answer string) bool {
	for _, a := range answers {
		if a == answer {
			return true
		}
	}

	return false
}
