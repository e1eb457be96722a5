// Package questionbank adapts the question store and the grading rules to
// the question bank contract the attempt engine consumes.
package questionbank

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/google/uuid"
	"github.com/stemsi/exstem-assessment/internal/grading"
	"github.com/stemsi/exstem-assessment/internal/model"
)

// Source draws questions from a bank.
type Source interface {
	SelectRandom(ctx context.Context, qbankID uuid.UUID, limit int) ([]model.Question, error)
}

// Bank selects questions for a section and grades answers.
type Bank struct {
	src Source
}

// New creates a Bank backed by src.
func New(src Source) *Bank {
	return &Bank{src: src}
}

// SelectQuestions draws up to the section's configured question count.
// Callers must check the returned length against the section requirement.
func (b *Bank) SelectQuestions(ctx context.Context, section model.Section) ([]model.Question, error) {
	if section.TotalQuestions <= 0 {
		return nil, nil
	}
	qs, err := b.src.SelectRandom(ctx, section.QBankID, section.TotalQuestions)
	if err != nil {
		return nil, fmt.Errorf("select questions for section %s: %w", section.ID, err)
	}
	return qs, nil
}

// EvaluateAnswer reports whether answer is correct for q.
func (b *Bank) EvaluateAnswer(q model.QuestionSnapshot, answer json.RawMessage) (bool, error) {
	return grading.Evaluate(q, answer)
}
