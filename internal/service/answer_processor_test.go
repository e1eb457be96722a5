package service

import (
	"context"
	"encoding/json"
	"errors"
	"testing"

	"github.com/stemsi/exstem-assessment/internal/model"
)

func TestFixedPenaltyScenario(t *testing.T) {
	f := newFixture()
	// 5 marks per question, 1 mark fixed penalty.
	f.exam.Sections[1].Marking = model.MarkingScheme{CorrectMarks: 5, NegativeMarkingType: model.NegativeMarkingFixed, NegativeMarks: 1}
	s := startSession(t, f)
	ids := f.questionIDs(s.ID, f.sectionB.ID)

	submit(t, f, s, f.sectionB, 0, string(f.keyOf(s.ID, ids[0])))
	submit(t, f, s, f.sectionB, 1, `["A"]`)

	res, err := f.svc.Finish(context.Background(), Identity{UserID: 1}, s.Code, 0)
	if err != nil {
		t.Fatalf("finish: %v", err)
	}
	sections, _ := f.store.ListSections(context.Background(), s.ID)
	b := sections[1].Results
	if b.MarksEarned != 5 || b.MarksDeducted != 1 || b.Score != 4 || b.Correct != 1 || b.Incorrect != 1 {
		t.Fatalf("unexpected section B result %+v", b)
	}
	if res.Score != 4 || res.Unanswered != 3 {
		t.Fatalf("unexpected session result %+v", res)
	}
}

func TestNegativeMarkingDisabled(t *testing.T) {
	f := newFixture()
	f.exam.Exam.Settings.EnableNegativeMarking = false
	s := startSession(t, f)

	submit(t, f, s, f.sectionA, 0, `"Z"`)

	qs, _ := f.store.ListQuestions(context.Background(), s.ID, f.sectionA.ID)
	if qs[0].MarksDeducted != 0 || qs[0].IsCorrect == nil || *qs[0].IsCorrect {
		t.Fatalf("expected wrong answer without deduction, got %+v", qs[0])
	}
}

func TestSubmitRequiresAnsweredStatus(t *testing.T) {
	f := newFixture()
	s := startSession(t, f)
	ids := f.questionIDs(s.ID, f.sectionA.ID)

	_, err := f.svc.SubmitAnswer(context.Background(), Identity{UserID: 1}, SubmitAnswerInput{
		Code: s.Code, SectionID: f.sectionA.ID, QuestionID: ids[0],
		Answer: json.RawMessage(`"A"`), Status: model.QuestionMarkForReview,
	})
	if !errors.Is(err, ErrValidation) {
		t.Fatalf("expected ErrValidation, got %v", err)
	}
}

func TestSubmitTracksTimeAndPosition(t *testing.T) {
	f := newFixture()
	s := startSession(t, f)
	ids := f.questionIDs(s.ID, f.sectionA.ID)
	ctx := context.Background()
	who := Identity{UserID: 1}

	for _, spent := range []int{12, 30, 20} {
		_, err := f.svc.SubmitAnswer(ctx, who, SubmitAnswerInput{
			Code: s.Code, SectionID: f.sectionA.ID, QuestionID: ids[1],
			Answer: json.RawMessage(`"B"`), Status: model.QuestionAnsweredMarkForReview, TimeTaken: spent,
		})
		if err != nil {
			t.Fatalf("submit: %v", err)
		}
	}

	qs, _ := f.store.ListQuestions(ctx, s.ID, f.sectionA.ID)
	if qs[1].TimeTaken != 30 || qs[1].Status != model.QuestionAnsweredMarkForReview {
		t.Fatalf("unexpected question %+v", qs[1])
	}
	stored, _ := f.store.GetByCode(ctx, s.Code)
	if stored.TotalTimeTaken != 30 {
		t.Fatalf("expected session time 30, got %d", stored.TotalTimeTaken)
	}
	if stored.CurrentQuestion == nil || *stored.CurrentQuestion != ids[1] {
		t.Fatalf("cursor not moved to answered question")
	}
}

func TestToggleReview(t *testing.T) {
	f := newFixture()
	s := startSession(t, f)
	ids := f.questionIDs(s.ID, f.sectionA.ID)
	ctx := context.Background()
	who := Identity{UserID: 1}

	out, err := f.svc.ToggleReview(ctx, who, s.Code, f.sectionA.ID, ids[0])
	if err != nil {
		t.Fatalf("toggle: %v", err)
	}
	if out.Status != model.QuestionMarkForReview || out.AnsweredCount != 0 {
		t.Fatalf("unexpected outcome %+v", out)
	}

	submit(t, f, s, f.sectionA, 0, `"A"`)
	out, err = f.svc.ToggleReview(ctx, who, s.Code, f.sectionA.ID, ids[0])
	if err != nil {
		t.Fatalf("toggle: %v", err)
	}
	if out.Status != model.QuestionAnsweredMarkForReview || out.AnsweredCount != 1 {
		t.Fatalf("unexpected outcome %+v", out)
	}

	out, err = f.svc.ToggleReview(ctx, who, s.Code, f.sectionA.ID, ids[0])
	if err != nil {
		t.Fatalf("toggle: %v", err)
	}
	if out.Status != model.QuestionAnswered {
		t.Fatalf("expected answered, got %s", out.Status)
	}
}

func TestClearAnswer(t *testing.T) {
	f := newFixture()
	s := startSession(t, f)
	ids := f.questionIDs(s.ID, f.sectionA.ID)
	ctx := context.Background()
	who := Identity{UserID: 1}

	submit(t, f, s, f.sectionA, 0, `"Z"`)
	out, err := f.svc.ClearAnswer(ctx, who, s.Code, f.sectionA.ID, ids[0])
	if err != nil {
		t.Fatalf("clear: %v", err)
	}
	if out.Status != model.QuestionNotAnswered || out.AnsweredCount != 0 {
		t.Fatalf("unexpected outcome %+v", out)
	}
	qs, _ := f.store.ListQuestions(ctx, s.ID, f.sectionA.ID)
	if qs[0].HasAnswer() || qs[0].IsCorrect != nil || qs[0].MarksDeducted != 0 {
		t.Fatalf("answer not cleared: %+v", qs[0])
	}

	if _, err := f.svc.ToggleReview(ctx, who, s.Code, f.sectionA.ID, ids[1]); err != nil {
		t.Fatalf("toggle: %v", err)
	}
	out, err = f.svc.ClearAnswer(ctx, who, s.Code, f.sectionA.ID, ids[1])
	if err != nil {
		t.Fatalf("clear: %v", err)
	}
	if out.Status != model.QuestionMarkForReview {
		t.Fatalf("review flag lost on clear: %s", out.Status)
	}
}

func TestNavigate(t *testing.T) {
	f := newFixture()
	s := startSession(t, f)
	ids := f.questionIDs(s.ID, f.sectionB.ID)
	ctx := context.Background()

	out, err := f.svc.Navigate(ctx, Identity{UserID: 1}, s.Code, model.Navigation{SectionID: f.sectionB.ID, QuestionID: ids[1], TimeTaken: 45})
	if err != nil {
		t.Fatalf("navigate: %v", err)
	}
	if out.Status != model.QuestionNotAnswered {
		t.Fatalf("expected not_answered, got %s", out.Status)
	}

	sec, _ := f.store.GetSection(ctx, s.ID, f.sectionB.ID)
	if sec.Status != model.SectionVisited || sec.TotalTimeTaken != 45 {
		t.Fatalf("unexpected section %+v", sec)
	}
	stored, _ := f.store.GetByCode(ctx, s.Code)
	if stored.CurrentSection == nil || *stored.CurrentSection != f.sectionB.ID || stored.TotalTimeTaken != 45 {
		t.Fatalf("unexpected session cursor %+v", stored)
	}
}

func TestNavigateUnknownSection(t *testing.T) {
	f := newFixture()
	s := startSession(t, f)
	ids := f.questionIDs(s.ID, f.sectionA.ID)

	_, err := f.svc.Navigate(context.Background(), Identity{UserID: 1}, s.Code, model.Navigation{SectionID: ids[0], QuestionID: ids[0]})
	if !errors.Is(err, ErrValidation) {
		t.Fatalf("expected ErrValidation, got %v", err)
	}
}

func TestSubmitWithMalformedKeyStoresAnswer(t *testing.T) {
	f := newFixture()
	s := startSession(t, f)
	ctx := context.Background()

	f.store.mu.Lock()
	for i := range f.store.questions[s.ID] {
		if f.store.questions[s.ID][i].SectionID == f.sectionA.ID {
			f.store.questions[s.ID][i].OriginalQuestion.CorrectAnswer = json.RawMessage(`{"broken":true}`)
		}
	}
	f.store.mu.Unlock()

	out := submit(t, f, s, f.sectionA, 0, `"A"`)
	if out.AnsweredCount != 1 || out.Completed {
		t.Fatalf("unexpected outcome %+v", out)
	}

	qs, _ := f.store.ListQuestions(ctx, s.ID, f.sectionA.ID)
	q := qs[0]
	if string(q.UserAnswer) != `"A"` || q.Status != model.QuestionAnswered {
		t.Fatalf("answer not stored: %+v", q)
	}
	if q.IsCorrect == nil || *q.IsCorrect || q.MarksEarned != 0 || q.MarksDeducted != 0 {
		t.Fatalf("expected incorrect with no marks, got %+v", q)
	}

	// A malformed answer is still rejected.
	ids := f.questionIDs(s.ID, f.sectionA.ID)
	_, err := f.svc.SubmitAnswer(ctx, Identity{UserID: 1}, SubmitAnswerInput{
		Code: s.Code, SectionID: f.sectionA.ID, QuestionID: ids[1],
		Answer: json.RawMessage(`["A"]`), Status: model.QuestionAnswered,
	})
	if !errors.Is(err, ErrValidation) {
		t.Fatalf("expected ErrValidation, got %v", err)
	}

	res, err := f.svc.Finish(ctx, Identity{UserID: 1}, s.Code, 0)
	if err != nil {
		t.Fatalf("finish: %v", err)
	}
	if res.Unanswered != 4 || res.Incorrect != 1 {
		t.Fatalf("unexpected result %+v", res)
	}
}
