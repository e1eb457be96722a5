// Package grading decides whether a submitted answer matches a question's
// answer key. Each question type has its own strategy.
package grading

import (
	"encoding/json"
	"errors"
	"fmt"
	"strconv"

	"github.com/stemsi/exstem-assessment/internal/model"
)

var (
	ErrMalformedAnswer = errors.New("malformed answer payload")
	ErrMalformedKey    = errors.New("malformed answer key")
)

// Strategy grades one question type. Validate checks the answer shape
// without looking at the key.
type Strategy interface {
	Correct(key, answer json.RawMessage) (bool, error)
	Validate(answer json.RawMessage) error
}

var strategies = map[model.QuestionType]Strategy{
	model.QuestionTypeSingleChoice:   choiceStrategy{},
	model.QuestionTypeTrueFalse:      choiceStrategy{},
	model.QuestionTypeMultipleChoice: multiChoiceStrategy{},
	model.QuestionTypeNumeric:        numericStrategy{},
	model.QuestionTypeFillBlank:      fillBlankStrategy{},
}

// Evaluate reports whether answer is correct for q.
func Evaluate(q model.QuestionSnapshot, answer json.RawMessage) (bool, error) {
	s, ok := strategies[q.QuestionType]
	if !ok {
		return false, fmt.Errorf("%w: unsupported question type %q", ErrMalformedAnswer, q.QuestionType)
	}
	if len(answer) == 0 || string(answer) == "null" {
		return false, fmt.Errorf("%w: empty answer", ErrMalformedAnswer)
	}
	return s.Correct(q.CorrectAnswer, answer)
}

// ValidateAnswer checks that answer decodes for q's type. The answer key is
// not consulted, so a broken key does not hide a malformed answer.
func ValidateAnswer(q model.QuestionSnapshot, answer json.RawMessage) error {
	s, ok := strategies[q.QuestionType]
	if !ok {
		return fmt.Errorf("%w: unsupported question type %q", ErrMalformedAnswer, q.QuestionType)
	}
	if len(answer) == 0 || string(answer) == "null" {
		return fmt.Errorf("%w: empty answer", ErrMalformedAnswer)
	}
	return s.Validate(answer)
}

// --- strategies ---

type choiceStrategy struct{}

func (choiceStrategy) Correct(key, answer json.RawMessage) (bool, error) {
	want, ok := scalarString(key)
	if !ok {
		return false, ErrMalformedKey
	}
	got, ok := scalarString(answer)
	if !ok {
		return false, fmt.Errorf("%w: expected a single option", ErrMalformedAnswer)
	}
	return got == want, nil
}

func (choiceStrategy) Validate(answer json.RawMessage) error {
	if _, ok := scalarString(answer); !ok {
		return fmt.Errorf("%w: expected a single option", ErrMalformedAnswer)
	}
	return nil
}

type multiChoiceStrategy struct{}

func (multiChoiceStrategy) Correct(key, answer json.RawMessage) (bool, error) {
	var want []string
	if err := json.Unmarshal(key, &want); err != nil || len(want) == 0 {
		return false, ErrMalformedKey
	}
	var got []string
	if err := json.Unmarshal(answer, &got); err != nil {
		return false, fmt.Errorf("%w: expected a list of options", ErrMalformedAnswer)
	}
	return setEqual(toSet(want), toSet(got)), nil
}

func (multiChoiceStrategy) Validate(answer json.RawMessage) error {
	var got []string
	if err := json.Unmarshal(answer, &got); err != nil {
		return fmt.Errorf("%w: expected a list of options", ErrMalformedAnswer)
	}
	return nil
}

type fillBlankStrategy struct{}

func (fillBlankStrategy) Correct(key, answer json.RawMessage) (bool, error) {
	var accepted []string
	if s, ok := scalarString(key); ok {
		accepted = []string{s}
	} else if err := json.Unmarshal(key, &accepted); err != nil || len(accepted) == 0 {
		return false, ErrMalformedKey
	}
	got, ok := scalarString(answer)
	if !ok {
		return false, fmt.Errorf("%w: expected text", ErrMalformedAnswer)
	}
	norm := normalize(got)
	for _, a := range accepted {
		if normalize(a) == norm {
			return true, nil
		}
	}
	return false, nil
}

func (fillBlankStrategy) Validate(answer json.RawMessage) error {
	if _, ok := scalarString(answer); !ok {
		return fmt.Errorf("%w: expected text", ErrMalformedAnswer)
	}
	return nil
}

// --- helpers ---

// scalarString decodes a JSON string, number or bool into its text form.
func scalarString(raw json.RawMessage) (string, bool) {
	var v interface{}
	if err := json.Unmarshal(raw, &v); err != nil {
		return "", false
	}
	switch t := v.(type) {
	case string:
		return t, true
	case bool:
		if t {
			return "true", true
		}
		return "false", true
	case float64:
		return strconv.FormatFloat(t, 'f', -1, 64), true
	default:
		return "", false
	}
}

func toSet(arr []string) map[string]struct{} {
	m := make(map[string]struct{}, len(arr))
	for _, s := range arr {
		m[s] = struct{}{}
	}
	return m
}

func setEqual(a, b map[string]struct{}) bool {
	if len(a) != len(b) {
		return false
	}
	for k := range a {
		if _, ok := b[k]; !ok {
			return false
		}
	}
	return true
}
