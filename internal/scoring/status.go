package scoring

import "github.com/stemsi/exstem-assessment/internal/model"

type reviewKey struct {
	current   model.QuestionStatus
	hasAnswer bool
}

var reviewToggle = map[reviewKey]model.QuestionStatus{
	{model.QuestionAnsweredMarkForReview, true}:  model.QuestionAnswered,
	{model.QuestionAnsweredMarkForReview, false}: model.QuestionAnswered,
	{model.QuestionMarkForReview, true}:          model.QuestionAnswered,
	{model.QuestionMarkForReview, false}:         model.QuestionNotAnswered,
	{model.QuestionAnswered, true}:               model.QuestionAnsweredMarkForReview,
	{model.QuestionAnswered, false}:              model.QuestionAnsweredMarkForReview,
	{model.QuestionNotAnswered, true}:            model.QuestionAnsweredMarkForReview,
	{model.QuestionNotAnswered, false}:           model.QuestionMarkForReview,
	{model.QuestionNotVisited, true}:             model.QuestionAnsweredMarkForReview,
	{model.QuestionNotVisited, false}:            model.QuestionMarkForReview,
}

// ToggleReview flips the mark-for-review flag of a question.
// Unknown statuses are treated like not_answered.
func ToggleReview(current model.QuestionStatus, hasAnswer bool) model.QuestionStatus {
	if next, ok := reviewToggle[reviewKey{current, hasAnswer}]; ok {
		return next
	}
	return reviewToggle[reviewKey{model.QuestionNotAnswered, hasAnswer}]
}

// Visit is the status after the learner opens a question.
func Visit(current model.QuestionStatus) model.QuestionStatus {
	if current == model.QuestionNotVisited {
		return model.QuestionNotAnswered
	}
	return current
}

// Clear is the status after the learner clears their answer. The review
// flag survives.
func Clear(current model.QuestionStatus) model.QuestionStatus {
	switch current {
	case model.QuestionAnsweredMarkForReview, model.QuestionMarkForReview:
		return model.QuestionMarkForReview
	default:
		return model.QuestionNotAnswered
	}
}
