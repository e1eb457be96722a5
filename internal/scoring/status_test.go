package scoring

import (
	"testing"

	"github.com/stemsi/exstem-assessment/internal/model"
)

func TestToggleReview(t *testing.T) {
	tests := []struct {
		current   model.QuestionStatus
		hasAnswer bool
		want      model.QuestionStatus
	}{
		{model.QuestionAnsweredMarkForReview, true, model.QuestionAnswered},
		{model.QuestionAnsweredMarkForReview, false, model.QuestionAnswered},
		{model.QuestionMarkForReview, true, model.QuestionAnswered},
		{model.QuestionMarkForReview, false, model.QuestionNotAnswered},
		{model.QuestionAnswered, true, model.QuestionAnsweredMarkForReview},
		{model.QuestionAnswered, false, model.QuestionAnsweredMarkForReview},
		{model.QuestionNotAnswered, true, model.QuestionAnsweredMarkForReview},
		{model.QuestionNotAnswered, false, model.QuestionMarkForReview},
		{model.QuestionNotVisited, true, model.QuestionAnsweredMarkForReview},
		{model.QuestionNotVisited, false, model.QuestionMarkForReview},
	}

	for _, tc := range tests {
		name := string(tc.current)
		if tc.hasAnswer {
			name += "/with_answer"
		} else {
			name += "/no_answer"
		}
		t.Run(name, func(t *testing.T) {
			if got := ToggleReview(tc.current, tc.hasAnswer); got != tc.want {
				t.Fatalf("ToggleReview(%s, %v) = %s, want %s", tc.current, tc.hasAnswer, got, tc.want)
			}
		})
	}
}

func TestVisitAndClear(t *testing.T) {
	if got := Visit(model.QuestionNotVisited); got != model.QuestionNotAnswered {
		t.Errorf("Visit(not_visited) = %s", got)
	}
	if got := Visit(model.QuestionAnswered); got != model.QuestionAnswered {
		t.Errorf("Visit(answered) = %s", got)
	}
	if got := Clear(model.QuestionAnsweredMarkForReview); got != model.QuestionMarkForReview {
		t.Errorf("Clear(answered_mark_for_review) = %s", got)
	}
	if got := Clear(model.QuestionAnswered); got != model.QuestionNotAnswered {
		t.Errorf("Clear(answered) = %s", got)
	}
}
