package questionbank

import (
	"context"
	"encoding/json"
	"testing"

	"github.com/google/uuid"
	"github.com/stemsi/exstem-assessment/internal/model"
)

type fakeSource struct {
	questions []model.Question
	gotLimit  int
}

func (f *fakeSource) SelectRandom(_ context.Context, _ uuid.UUID, limit int) ([]model.Question, error) {
	f.gotLimit = limit
	if limit < len(f.questions) {
		return f.questions[:limit], nil
	}
	return f.questions, nil
}

func TestSelectQuestionsHonoursSectionCount(t *testing.T) {
	src := &fakeSource{questions: make([]model.Question, 5)}
	b := New(src)

	qs, err := b.SelectQuestions(context.Background(), model.Section{ID: uuid.New(), TotalQuestions: 3})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if src.gotLimit != 3 || len(qs) != 3 {
		t.Fatalf("expected 3 questions with limit 3, got %d (limit %d)", len(qs), src.gotLimit)
	}
}

func TestSelectQuestionsEmptySection(t *testing.T) {
	src := &fakeSource{}
	qs, err := New(src).SelectQuestions(context.Background(), model.Section{TotalQuestions: 0})
	if err != nil || qs != nil {
		t.Fatalf("expected nil, nil; got %v, %v", qs, err)
	}
}

func TestEvaluateAnswerDelegatesToGrading(t *testing.T) {
	q := model.QuestionSnapshot{QuestionType: model.QuestionTypeSingleChoice, CorrectAnswer: json.RawMessage(`"C"`)}
	ok, err := New(&fakeSource{}).EvaluateAnswer(q, json.RawMessage(`"C"`))
	if err != nil || !ok {
		t.Fatalf("expected correct answer, got %v, %v", ok, err)
	}
}
