package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stemsi/exstem-assessment/internal/model"
)

func TestStartCreatesSessionWithDeadlines(t *testing.T) {
	f := newFixture()
	ctx := context.Background()

	res, err := f.svc.StartOrResume(ctx, Identity{UserID: 1}, f.exam.Exam.ID, nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if res.Resumed {
		t.Fatal("expected a new session")
	}
	s := res.Session
	if !s.EndsAt.Equal(t0.Add(60 * time.Minute)) {
		t.Errorf("session ends_at = %v, want %v", s.EndsAt, t0.Add(60*time.Minute))
	}

	sections, _ := f.store.ListSections(ctx, s.ID)
	if len(sections) != 2 {
		t.Fatalf("expected 2 sections, got %d", len(sections))
	}
	if !sections[0].EndsAt.Equal(t0.Add(30*time.Minute)) || !sections[1].EndsAt.Equal(t0.Add(20*time.Minute)) {
		t.Errorf("unexpected section deadlines %v / %v", sections[0].EndsAt, sections[1].EndsAt)
	}
	if sections[0].Status != model.SectionNotVisited {
		t.Errorf("expected not_visited section, got %s", sections[0].Status)
	}

	qs, _ := f.store.ListQuestions(ctx, s.ID, f.sectionA.ID)
	if len(qs) != 3 {
		t.Fatalf("expected 3 questions in section A, got %d", len(qs))
	}
	for _, q := range qs {
		if q.Status != model.QuestionNotVisited || q.MarksEarned != 0 || q.MarksDeducted != 0 {
			t.Errorf("unexpected initial question state %+v", q)
		}
		if len(q.OriginalQuestion.CorrectAnswer) == 0 {
			t.Errorf("question snapshot missing answer key")
		}
	}
	if f.events.started != 1 {
		t.Errorf("expected one attempt.started event, got %d", f.events.started)
	}
}

func TestStartResumesExistingSession(t *testing.T) {
	f := newFixture()
	ctx := context.Background()
	who := Identity{UserID: 1}

	first, err := f.svc.StartOrResume(ctx, who, f.exam.Exam.ID, nil)
	if err != nil {
		t.Fatalf("first start: %v", err)
	}
	second, err := f.svc.StartOrResume(ctx, who, f.exam.Exam.ID, nil)
	if err != nil {
		t.Fatalf("second start: %v", err)
	}
	if !second.Resumed || second.Session.Code != first.Session.Code {
		t.Fatalf("expected resume of %s, got %+v", first.Session.Code, second)
	}
	if f.store.count() != 1 {
		t.Fatalf("expected 1 session, got %d", f.store.count())
	}
}

func TestStartResumesAfterExamUnpublished(t *testing.T) {
	for _, status := range []model.ExamStatus{model.ExamStatusArchived, model.ExamStatusDraft} {
		t.Run(string(status), func(t *testing.T) {
			f := newFixture()
			ctx := context.Background()
			who := Identity{UserID: 1}

			first, err := f.svc.StartOrResume(ctx, who, f.exam.Exam.ID, nil)
			if err != nil {
				t.Fatalf("first start: %v", err)
			}
			f.exam.Exam.Status = status

			again, err := f.svc.StartOrResume(ctx, who, f.exam.Exam.ID, nil)
			if err != nil {
				t.Fatalf("resume after exam became %s: %v", status, err)
			}
			if !again.Resumed || again.Session.Code != first.Session.Code {
				t.Fatalf("expected resume of %s, got %+v", first.Session.Code, again)
			}

			// A learner with no started session is still turned away.
			if _, err := f.svc.StartOrResume(ctx, Identity{UserID: 2}, f.exam.Exam.ID, nil); !errors.Is(err, ErrExamNotAvailable) {
				t.Fatalf("fresh start on %s exam: expected ErrExamNotAvailable, got %v", status, err)
			}
		})
	}
}

func TestStartResumesAfterScheduleClosed(t *testing.T) {
	tests := []struct {
		name  string
		close func(f *fixture, sched *model.Schedule)
	}{
		{
			name:  "cancelled",
			close: func(_ *fixture, sched *model.Schedule) { sched.Status = model.ScheduleStatusCancelled },
		},
		{
			name:  "window passed",
			close: func(f *fixture, _ *model.Schedule) { f.clock.Set(t0.Add(30 * time.Minute)) },
		},
		{
			name:  "schedule removed",
			close: func(f *fixture, sched *model.Schedule) { delete(f.catalog.schedules, sched.ID) },
		},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			f := newFixture()
			ctx := context.Background()
			who := Identity{UserID: 1}
			sched := model.Schedule{ID: uuid.New(), ScheduleType: model.ScheduleTypeFixed, StartsAt: t0, GracePeriodMinutes: 15, Status: model.ScheduleStatusActive}
			f.addSchedule(&sched)
			f.clock.Set(t0.Add(5 * time.Minute))

			first, err := f.svc.StartOrResume(ctx, who, f.exam.Exam.ID, &sched.ID)
			if err != nil {
				t.Fatalf("first start: %v", err)
			}
			tc.close(f, &sched)

			again, err := f.svc.StartOrResume(ctx, who, f.exam.Exam.ID, &sched.ID)
			if err != nil {
				t.Fatalf("resume: %v", err)
			}
			if !again.Resumed || again.Session.Code != first.Session.Code {
				t.Fatalf("expected resume of %s, got %+v", first.Session.Code, again)
			}
			if f.store.count() != 1 {
				t.Fatalf("expected 1 session, got %d", f.store.count())
			}
		})
	}
}

func TestStartEnforcesAttemptLimit(t *testing.T) {
	f := newFixture()
	f.exam.Exam.Settings.RestrictAttempts = true
	f.exam.Exam.Settings.NoOfAttempts = 2
	key := model.AttemptKey{UserID: 1, ExamID: f.exam.Exam.ID}
	f.store.seedCompleted(key, 10)
	f.store.seedCompleted(key, 12)

	_, err := f.svc.StartOrResume(context.Background(), Identity{UserID: 1}, f.exam.Exam.ID, nil)
	if !errors.Is(err, ErrAttemptLimitReached) {
		t.Fatalf("expected ErrAttemptLimitReached, got %v", err)
	}
	if f.store.count() != 2 {
		t.Fatalf("expected no new session, store has %d", f.store.count())
	}
}

func TestStartUnrestrictedIgnoresCount(t *testing.T) {
	f := newFixture()
	key := model.AttemptKey{UserID: 1, ExamID: f.exam.Exam.ID}
	for i := 0; i < 5; i++ {
		f.store.seedCompleted(key, 1)
	}
	if _, err := f.svc.StartOrResume(context.Background(), Identity{UserID: 1}, f.exam.Exam.ID, nil); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
}

func TestScheduleWindow(t *testing.T) {
	tests := []struct {
		name    string
		sched   model.Schedule
		at      time.Time
		groups  []int
		wantErr error
	}{
		{
			name:    "fixed after grace",
			sched:   model.Schedule{ScheduleType: model.ScheduleTypeFixed, StartsAt: t0, GracePeriodMinutes: 15, Status: model.ScheduleStatusActive},
			at:      t0.Add(20 * time.Minute),
			wantErr: ErrScheduleClosed,
		},
		{
			name:  "fixed within grace",
			sched: model.Schedule{ScheduleType: model.ScheduleTypeFixed, StartsAt: t0, GracePeriodMinutes: 15, Status: model.ScheduleStatusActive},
			at:    t0.Add(10 * time.Minute),
		},
		{
			name:    "fixed before start",
			sched:   model.Schedule{ScheduleType: model.ScheduleTypeFixed, StartsAt: t0, GracePeriodMinutes: 15, Status: model.ScheduleStatusActive},
			at:      t0.Add(-time.Minute),
			wantErr: ErrScheduleClosed,
		},
		{
			name:    "flexible cancelled inside window",
			sched:   model.Schedule{ScheduleType: model.ScheduleTypeFlexible, StartsAt: t0, EndsAt: ptrTime(t0.Add(48 * time.Hour)), Status: model.ScheduleStatusCancelled},
			at:      t0.Add(time.Hour),
			wantErr: ErrScheduleClosed,
		},
		{
			name:  "flexible open",
			sched: model.Schedule{ScheduleType: model.ScheduleTypeFlexible, StartsAt: t0, EndsAt: ptrTime(t0.Add(48 * time.Hour)), Status: model.ScheduleStatusActive},
			at:    t0.Add(time.Hour),
		},
		{
			name:    "flexible past end",
			sched:   model.Schedule{ScheduleType: model.ScheduleTypeFlexible, StartsAt: t0, EndsAt: ptrTime(t0.Add(time.Hour)), Status: model.ScheduleStatusActive},
			at:      t0.Add(2 * time.Hour),
			wantErr: ErrScheduleClosed,
		},
		{
			name:    "group not eligible",
			sched:   model.Schedule{ScheduleType: model.ScheduleTypeFixed, StartsAt: t0, GracePeriodMinutes: 15, Status: model.ScheduleStatusActive, GroupIDs: []int{7}},
			at:      t0,
			groups:  []int{3},
			wantErr: ErrAccessDenied,
		},
		{
			name:   "group eligible",
			sched:  model.Schedule{ScheduleType: model.ScheduleTypeFixed, StartsAt: t0, GracePeriodMinutes: 15, Status: model.ScheduleStatusActive, GroupIDs: []int{7}},
			at:     t0,
			groups: []int{3, 7},
		},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			f := newFixture()
			sched := tc.sched
			sched.ID = uuid.New()
			f.addSchedule(&sched)
			f.clock.Set(tc.at)

			res, err := f.svc.StartOrResume(context.Background(), Identity{UserID: 1, GroupIDs: tc.groups}, f.exam.Exam.ID, &sched.ID)
			if tc.wantErr != nil {
				if !errors.Is(err, tc.wantErr) {
					t.Fatalf("expected %v, got %v", tc.wantErr, err)
				}
				if f.store.count() != 0 {
					t.Fatalf("gate rejection must not create a session")
				}
				return
			}
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if res.Session.ScheduleID == nil || *res.Session.ScheduleID != sched.ID {
				t.Fatalf("session not bound to schedule")
			}
		})
	}
}

func TestScheduledSessionDeadlineIgnoresGrace(t *testing.T) {
	f := newFixture()
	sched := model.Schedule{ID: uuid.New(), ScheduleType: model.ScheduleTypeFixed, StartsAt: t0, GracePeriodMinutes: 15, Status: model.ScheduleStatusActive}
	f.addSchedule(&sched)
	f.clock.Set(t0.Add(10 * time.Minute))

	res, err := f.svc.StartOrResume(context.Background(), Identity{UserID: 1}, f.exam.Exam.ID, &sched.ID)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	want := t0.Add(10*time.Minute + 60*time.Minute)
	if !res.Session.EndsAt.Equal(want) {
		t.Fatalf("ends_at = %v, want %v", res.Session.EndsAt, want)
	}
}

func TestScheduledAttemptIsSingleShot(t *testing.T) {
	f := newFixture()
	sched := model.Schedule{ID: uuid.New(), ScheduleType: model.ScheduleTypeFixed, StartsAt: t0, GracePeriodMinutes: 15, Status: model.ScheduleStatusActive}
	f.addSchedule(&sched)
	f.store.seedCompleted(model.AttemptKey{UserID: 1, ExamID: f.exam.Exam.ID, ScheduleID: &sched.ID}, 5)

	_, err := f.svc.StartOrResume(context.Background(), Identity{UserID: 1}, f.exam.Exam.ID, &sched.ID)
	if !errors.Is(err, ErrAttemptLimitReached) {
		t.Fatalf("expected ErrAttemptLimitReached, got %v", err)
	}
}

func TestPaidAccess(t *testing.T) {
	tests := []struct {
		name       string
		canRedeem  bool
		subscribed bool
		balance    int
		wantErr    error
		wantDebits int
	}{
		{name: "subscribed", subscribed: true, canRedeem: true, wantDebits: 0},
		{name: "redeem with balance", canRedeem: true, balance: 50, wantDebits: 1},
		{name: "redeem short balance", canRedeem: true, balance: 10, wantErr: ErrInsufficientBalance},
		{name: "not redeemable", canRedeem: false, balance: 500, wantErr: ErrSubscriptionRequired},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			f := newFixture()
			f.exam.Exam.IsPaid = true
			f.exam.Exam.CanRedeem = tc.canRedeem
			f.exam.Exam.PointsRequired = 30
			f.subs.active[1] = tc.subscribed
			f.wallet.balances[1] = tc.balance

			_, err := f.svc.StartOrResume(context.Background(), Identity{UserID: 1}, f.exam.Exam.ID, nil)
			if !errors.Is(err, tc.wantErr) {
				t.Fatalf("expected %v, got %v", tc.wantErr, err)
			}
			if len(f.wallet.debits) != tc.wantDebits {
				t.Fatalf("expected %d debits, got %d", tc.wantDebits, len(f.wallet.debits))
			}
		})
	}
}

func TestRedeemDebitsOnceAcrossResume(t *testing.T) {
	f := newFixture()
	f.exam.Exam.IsPaid = true
	f.exam.Exam.CanRedeem = true
	f.exam.Exam.PointsRequired = 30
	f.wallet.balances[1] = 100
	ctx := context.Background()

	if _, err := f.svc.StartOrResume(ctx, Identity{UserID: 1}, f.exam.Exam.ID, nil); err != nil {
		t.Fatalf("start: %v", err)
	}
	if _, err := f.svc.StartOrResume(ctx, Identity{UserID: 1}, f.exam.Exam.ID, nil); err != nil {
		t.Fatalf("resume: %v", err)
	}
	if len(f.wallet.debits) != 1 || f.wallet.balances[1] != 70 {
		t.Fatalf("expected one debit leaving 70, got %v / %d", f.wallet.debits, f.wallet.balances[1])
	}
}

func TestDebitFailureKeepsSessionAndQueuesRetry(t *testing.T) {
	f := newFixture()
	f.exam.Exam.IsPaid = true
	f.exam.Exam.CanRedeem = true
	f.exam.Exam.PointsRequired = 30
	f.wallet.balances[1] = 100
	f.wallet.debitErr = errLedgerDown

	res, err := f.svc.StartOrResume(context.Background(), Identity{UserID: 1}, f.exam.Exam.ID, nil)
	if err != nil {
		t.Fatalf("debit failure must not fail the start: %v", err)
	}
	if len(f.queue.jobs) != 1 {
		t.Fatalf("expected 1 queued debit, got %d", len(f.queue.jobs))
	}
	job := f.queue.jobs[0]
	if job.SessionCode != res.Session.Code || job.Amount != 30 || job.Memo == "" {
		t.Fatalf("unexpected job %+v", job)
	}
}

func TestQuestionBankExhaustedWritesNothing(t *testing.T) {
	f := newFixture()
	f.bank.byBank[f.sectionB.QBankID] = f.bank.byBank[f.sectionB.QBankID][:1]

	_, err := f.svc.StartOrResume(context.Background(), Identity{UserID: 1}, f.exam.Exam.ID, nil)
	if !errors.Is(err, ErrQuestionBankExhausted) {
		t.Fatalf("expected ErrQuestionBankExhausted, got %v", err)
	}
	if f.store.count() != 0 {
		t.Fatalf("expected no session, got %d", f.store.count())
	}
}

func TestUnpublishedExamIsUnavailable(t *testing.T) {
	f := newFixture()
	f.exam.Exam.Status = model.ExamStatusDraft

	_, err := f.svc.StartOrResume(context.Background(), Identity{UserID: 1}, f.exam.Exam.ID, nil)
	if !errors.Is(err, ErrExamNotAvailable) {
		t.Fatalf("expected ErrExamNotAvailable, got %v", err)
	}
}

func ptrTime(t time.Time) *time.Time { return &t }
