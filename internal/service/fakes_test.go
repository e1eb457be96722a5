package service

import (
	"context"
	"encoding/json"
	"errors"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/stemsi/exstem-assessment/internal/config"
	"github.com/stemsi/exstem-assessment/internal/event"
	"github.com/stemsi/exstem-assessment/internal/grading"
	"github.com/stemsi/exstem-assessment/internal/model"
	"github.com/stemsi/exstem-assessment/internal/repository"
)

// ─── store ─────────────────────────────────────────────────────────

type fakeStore struct {
	mu        sync.Mutex
	order     []uuid.UUID
	sessions  map[uuid.UUID]*model.AttemptSession
	sections  map[uuid.UUID][]model.SectionAttempt
	questions map[uuid.UUID][]model.QuestionAttempt
	computes  int
}

func newFakeStore() *fakeStore {
	return &fakeStore{
		sessions:  map[uuid.UUID]*model.AttemptSession{},
		sections:  map[uuid.UUID][]model.SectionAttempt{},
		questions: map[uuid.UUID][]model.QuestionAttempt{},
	}
}

func sameKey(a, b model.AttemptKey) bool {
	if a.UserID != b.UserID || a.ExamID != b.ExamID {
		return false
	}
	if a.ScheduleID == nil || b.ScheduleID == nil {
		return a.ScheduleID == nil && b.ScheduleID == nil
	}
	return *a.ScheduleID == *b.ScheduleID
}

func (f *fakeStore) FindStarted(_ context.Context, key model.AttemptKey) (*model.AttemptSession, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.findStartedLocked(key)
}

func (f *fakeStore) findStartedLocked(key model.AttemptKey) (*model.AttemptSession, error) {
	for _, s := range f.sessions {
		if s.Status == model.AttemptStatusStarted && sameKey(s.Key(), key) {
			cp := *s
			return &cp, nil
		}
	}
	return nil, repository.ErrNotFound
}

func (f *fakeStore) CountCompleted(_ context.Context, key model.AttemptKey) (int, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.countCompletedLocked(key), nil
}

func (f *fakeStore) countCompletedLocked(key model.AttemptKey) int {
	n := 0
	for _, s := range f.sessions {
		if s.Status == model.AttemptStatusCompleted && sameKey(s.Key(), key) {
			n++
		}
	}
	return n
}

func (f *fakeStore) Create(_ context.Context, draft *model.AttemptDraft, admit repository.AdmitFunc) (*model.AttemptSession, bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	key := draft.Session.Key()
	if existing, err := f.findStartedLocked(key); err == nil {
		return existing, false, nil
	}
	if err := admit(f.countCompletedLocked(key)); err != nil {
		return nil, false, err
	}

	s := draft.Session
	s.CreatedAt = time.Now()
	f.sessions[s.ID] = &s
	f.order = append(f.order, s.ID)
	f.sections[s.ID] = append([]model.SectionAttempt(nil), draft.Sections...)
	f.questions[s.ID] = append([]model.QuestionAttempt(nil), draft.Questions...)
	cp := s
	return &cp, true, nil
}

// seedCompleted inserts a finished session directly.
func (f *fakeStore) seedCompleted(key model.AttemptKey, score float64) {
	f.mu.Lock()
	defer f.mu.Unlock()
	id := uuid.New()
	f.sessions[id] = &model.AttemptSession{
		ID:         id,
		Code:       uuid.NewString(),
		UserID:     key.UserID,
		ExamID:     key.ExamID,
		ScheduleID: key.ScheduleID,
		Status:     model.AttemptStatusCompleted,
		Results:    &model.SessionResult{Score: score},
	}
	f.order = append(f.order, id)
}

func (f *fakeStore) count() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.sessions)
}

func (f *fakeStore) GetByCode(_ context.Context, code string) (*model.AttemptSession, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, s := range f.sessions {
		if s.Code == code {
			cp := *s
			return &cp, nil
		}
	}
	return nil, repository.ErrNotFound
}

func (f *fakeStore) ListByUserExam(_ context.Context, userID int, examID uuid.UUID) ([]model.AttemptSession, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []model.AttemptSession
	for i := len(f.order) - 1; i >= 0; i-- {
		s := f.sessions[f.order[i]]
		if s.UserID == userID && s.ExamID == examID {
			out = append(out, *s)
		}
	}
	return out, nil
}

func (f *fakeStore) ListSections(_ context.Context, sessionID uuid.UUID) ([]model.SectionAttempt, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]model.SectionAttempt(nil), f.sections[sessionID]...), nil
}

func (f *fakeStore) GetSection(_ context.Context, sessionID, sectionID uuid.UUID) (*model.SectionAttempt, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, sa := range f.sections[sessionID] {
		if sa.SectionID == sectionID {
			cp := sa
			return &cp, nil
		}
	}
	return nil, repository.ErrNotFound
}

func (f *fakeStore) ListQuestions(_ context.Context, sessionID, sectionID uuid.UUID) ([]model.QuestionAttempt, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []model.QuestionAttempt
	for _, q := range f.questions[sessionID] {
		if q.SectionID == sectionID {
			out = append(out, q)
		}
	}
	return out, nil
}

func (f *fakeStore) CountAnswered(_ context.Context, sessionID, sectionID uuid.UUID) (int, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.countAnsweredLocked(sessionID, sectionID), nil
}

func (f *fakeStore) countAnsweredLocked(sessionID, sectionID uuid.UUID) int {
	n := 0
	for _, q := range f.questions[sessionID] {
		if q.SectionID == sectionID && q.Status.IsAnswered() {
			n++
		}
	}
	return n
}

func (f *fakeStore) UpdateQuestion(_ context.Context, u repository.QuestionUpdate) (*model.QuestionAttempt, int, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	s, ok := f.sessions[u.SessionID]
	if !ok {
		return nil, 0, repository.ErrNotFound
	}
	if s.IsCompleted() {
		return nil, 0, repository.ErrSessionCompleted
	}

	qs := f.questions[u.SessionID]
	idx := -1
	for i := range qs {
		if qs[i].QuestionID == u.QuestionID && qs[i].SectionID == u.SectionID {
			idx = i
		}
	}
	if idx < 0 {
		return nil, 0, repository.ErrNotFound
	}

	q := qs[idx]
	before := q.TimeTaken
	if err := u.Apply(&q); err != nil {
		return nil, 0, err
	}
	qs[idx] = q

	elapsed := max(q.TimeTaken-before, 0)
	if u.Position != nil {
		elapsed += max(u.Position.TimeTaken, 0)
		sec, qid := u.Position.SectionID, u.Position.QuestionID
		s.CurrentSection, s.CurrentQuestion = &sec, &qid
	}
	s.TotalTimeTaken += elapsed
	for i := range f.sections[u.SessionID] {
		sa := &f.sections[u.SessionID][i]
		if sa.SectionID == u.SectionID {
			sa.TotalTimeTaken += elapsed
			sa.Status = model.SectionVisited
			qid := u.QuestionID
			sa.CurrentQuestion = &qid
		}
	}

	cp := q
	return &cp, f.countAnsweredLocked(u.SessionID, u.SectionID), nil
}

func (f *fakeStore) Finalize(_ context.Context, sessionID uuid.UUID, totalTimeTaken *int, compute repository.FinalizeFunc) (*model.SessionResult, bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	s, ok := f.sessions[sessionID]
	if !ok {
		return nil, false, repository.ErrNotFound
	}
	if s.IsCompleted() {
		return s.Results, false, nil
	}
	if totalTimeTaken != nil && *totalTimeTaken > s.TotalTimeTaken {
		s.TotalTimeTaken = *totalTimeTaken
	}

	sections := f.sections[sessionID]
	res, err := compute(s, sections, append([]model.QuestionAttempt(nil), f.questions[sessionID]...))
	if err != nil {
		return nil, false, err
	}
	f.computes++
	s.Status = model.AttemptStatusCompleted
	s.Results = res
	at := res.CompletedAt
	s.CompletedAt = &at
	return res, true, nil
}

func (f *fakeStore) CompletedBests(_ context.Context, examID uuid.UUID, scheduleID *uuid.UUID, limit int) ([]model.LeaderboardEntry, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	best := map[int]*model.LeaderboardEntry{}
	for _, s := range f.sessions {
		if s.Status != model.AttemptStatusCompleted || s.ExamID != examID || s.Results == nil {
			continue
		}
		if scheduleID != nil && (s.ScheduleID == nil || *s.ScheduleID != *scheduleID) {
			continue
		}
		e, ok := best[s.UserID]
		if !ok {
			e = &model.LeaderboardEntry{UserID: s.UserID, ExamID: examID, ScheduleID: scheduleID, HighScore: s.Results.Score, HighPercentage: s.Results.Percentage}
			best[s.UserID] = e
		}
		e.Attempts++
		e.HighScore = max(e.HighScore, s.Results.Score)
		e.HighPercentage = max(e.HighPercentage, s.Results.Percentage)
	}

	out := make([]model.LeaderboardEntry, 0, len(best))
	for _, e := range best {
		out = append(out, *e)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].HighScore != out[j].HighScore {
			return out[i].HighScore > out[j].HighScore
		}
		return out[i].UserID < out[j].UserID
	})
	for i := range out {
		out[i].Rank = i + 1
	}
	if len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

// ─── collaborators ─────────────────────────────────────────────────

type fakeCatalog struct {
	templates map[uuid.UUID]*model.ExamTemplate
	schedules map[uuid.UUID]*model.Schedule
}

func (c *fakeCatalog) Template(_ context.Context, examID uuid.UUID) (*model.ExamTemplate, error) {
	t, ok := c.templates[examID]
	if !ok {
		return nil, ErrExamNotAvailable
	}
	return t, nil
}

func (c *fakeCatalog) Schedule(_ context.Context, id uuid.UUID) (*model.Schedule, error) {
	s, ok := c.schedules[id]
	if !ok {
		return nil, ErrScheduleClosed
	}
	return s, nil
}

type fakeBank struct {
	byBank map[uuid.UUID][]model.Question
}

func (b *fakeBank) SelectQuestions(_ context.Context, section model.Section) ([]model.Question, error) {
	qs := b.byBank[section.QBankID]
	if len(qs) > section.TotalQuestions {
		qs = qs[:section.TotalQuestions]
	}
	return qs, nil
}

func (b *fakeBank) EvaluateAnswer(q model.QuestionSnapshot, answer json.RawMessage) (bool, error) {
	return grading.Evaluate(q, answer)
}

type fakeWallet struct {
	mu       sync.Mutex
	balances map[int]int
	debitErr error
	debits   []string
}

func (w *fakeWallet) Balance(_ context.Context, userID int) (int, error) {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.balances[userID], nil
}

func (w *fakeWallet) Debit(_ context.Context, userID, amount int, memo string) error {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.debits = append(w.debits, memo)
	if w.debitErr != nil {
		return w.debitErr
	}
	w.balances[userID] -= amount
	return nil
}

type fakeSubs struct {
	active map[int]bool
}

func (s *fakeSubs) IsActive(_ context.Context, userID int, _ *int) (bool, error) {
	return s.active[userID], nil
}

type fakeQueue struct {
	mu   sync.Mutex
	jobs []model.DebitJob
}

func (q *fakeQueue) Enqueue(_ context.Context, job model.DebitJob) error {
	q.mu.Lock()
	defer q.mu.Unlock()
	q.jobs = append(q.jobs, job)
	return nil
}

type fakeEvents struct {
	mu        sync.Mutex
	started   int
	finalized int
}

func (e *fakeEvents) PublishAttemptStarted(context.Context, *event.AttemptStartedEvent) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.started++
	return nil
}

func (e *fakeEvents) PublishAttemptFinalized(context.Context, *event.AttemptFinalizedEvent) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.finalized++
	return nil
}

type fakeBoards struct {
	mu          sync.Mutex
	invalidated [][]string
}

func (b *fakeBoards) Invalidate(_ context.Context, keys ...string) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.invalidated = append(b.invalidated, keys)
}

type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

func (c *fakeClock) Set(t time.Time) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = t
}

// ─── fixture ───────────────────────────────────────────────────────

var errLedgerDown = errors.New("ledger unavailable")

type fixture struct {
	store   *fakeStore
	catalog *fakeCatalog
	bank    *fakeBank
	wallet  *fakeWallet
	subs    *fakeSubs
	queue   *fakeQueue
	events  *fakeEvents
	boards  *fakeBoards
	clock   *fakeClock
	svc     *AttemptService

	exam     *model.ExamTemplate
	sectionA model.Section
	sectionB model.Section
}

var t0 = time.Date(2025, 6, 1, 9, 0, 0, 0, time.UTC)

// newFixture builds a published 60 minute exam with two sections:
// A (30 min, 3 single-choice questions, 4 marks, 50% penalty) and
// B (20 min, 2 multiple-choice questions, 2 marks, 1 mark fixed penalty).
func newFixture() *fixture {
	examID := uuid.New()
	bankA, bankB := uuid.New(), uuid.New()

	sectionA := model.Section{
		ID: uuid.New(), ExamID: examID, SNo: 1, Name: "Physics", QBankID: bankA,
		TotalQuestions: 3, DurationMinutes: 30,
		Marking: model.MarkingScheme{CorrectMarks: 4, NegativeMarkingType: model.NegativeMarkingPercentage, NegativeMarks: 50},
	}
	sectionB := model.Section{
		ID: uuid.New(), ExamID: examID, SNo: 2, Name: "Chemistry", QBankID: bankB,
		TotalQuestions: 2, DurationMinutes: 20,
		Marking: model.MarkingScheme{CorrectMarks: 2, NegativeMarkingType: model.NegativeMarkingFixed, NegativeMarks: 1},
	}

	tmpl := &model.ExamTemplate{
		Exam: model.Exam{
			ID: examID, Title: "Mock Test", DurationMinutes: 60, Status: model.ExamStatusPublished,
			Settings: model.ExamSettings{EnableNegativeMarking: true, ShowLeaderboard: true},
		},
		Sections: []model.Section{sectionA, sectionB},
	}

	bank := &fakeBank{byBank: map[uuid.UUID][]model.Question{
		bankA: {
			question(bankA, model.QuestionTypeSingleChoice, `"A"`),
			question(bankA, model.QuestionTypeSingleChoice, `"B"`),
			question(bankA, model.QuestionTypeSingleChoice, `"C"`),
		},
		bankB: {
			question(bankB, model.QuestionTypeMultipleChoice, `["A","B"]`),
			question(bankB, model.QuestionTypeMultipleChoice, `["C"]`),
		},
	}}

	f := &fixture{
		store:    newFakeStore(),
		catalog:  &fakeCatalog{templates: map[uuid.UUID]*model.ExamTemplate{examID: tmpl}, schedules: map[uuid.UUID]*model.Schedule{}},
		bank:     bank,
		wallet:   &fakeWallet{balances: map[int]int{}},
		subs:     &fakeSubs{active: map[int]bool{}},
		queue:    &fakeQueue{},
		events:   &fakeEvents{},
		boards:   &fakeBoards{},
		clock:    &fakeClock{now: t0},
		exam:     tmpl,
		sectionA: sectionA,
		sectionB: sectionB,
	}
	cfg := &config.Config{ForceFinalizeThreshold: 15 * time.Second}
	f.svc = NewAttemptService(cfg, f.store, f.catalog, f.bank, f.wallet, f.subs, f.queue, f.events, f.boards, f.clock, zerolog.Nop())
	return f
}

func question(bankID uuid.UUID, qt model.QuestionType, key string) model.Question {
	return model.Question{
		ID:            uuid.New(),
		QBankID:       bankID,
		QuestionType:  qt,
		QuestionText:  "q",
		CorrectAnswer: json.RawMessage(key),
		DefaultMarks:  1,
	}
}

func (f *fixture) addSchedule(s *model.Schedule) {
	s.ExamID = f.exam.Exam.ID
	f.catalog.schedules[s.ID] = s
}

// questionIDs returns the question ids of a section in the given session.
func (f *fixture) questionIDs(sessionID, sectionID uuid.UUID) []uuid.UUID {
	qs, _ := f.store.ListQuestions(context.Background(), sessionID, sectionID)
	ids := make([]uuid.UUID, len(qs))
	for i, q := range qs {
		ids[i] = q.QuestionID
	}
	return ids
}

// keyOf returns the answer key of a question in the given session.
func (f *fixture) keyOf(sessionID, questionID uuid.UUID) json.RawMessage {
	f.store.mu.Lock()
	defer f.store.mu.Unlock()
	for _, q := range f.store.questions[sessionID] {
		if q.QuestionID == questionID {
			return q.OriginalQuestion.CorrectAnswer
		}
	}
	return nil
}
