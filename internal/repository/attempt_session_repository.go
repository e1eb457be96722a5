package repository

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/stemsi/exstem-assessment/internal/model"
)

const (
	sessionColumns = `id, code, user_id, exam_id, schedule_id, starts_at, ends_at,
	                  current_section, current_question, total_time_taken, status,
	                  results, completed_at, created_at`
	sectionColumns = `session_id, section_id, sno, name, starts_at, ends_at,
	                  current_question, total_time_taken, status, marking, results`
	questionColumns = `session_id, question_id, section_id, sno, original_question,
	                   user_answer, is_correct, status, time_taken, marks_earned, marks_deducted`
)

// querier is satisfied by both *pgxpool.Pool and pgx.Tx.
type querier interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

// AdmitFunc is consulted inside the create transaction with the number of
// completed sessions for the key. A non-nil error aborts the create.
type AdmitFunc func(completed int) error

// FinalizeFunc computes the result documents of a session. It must set
// Results on every section it is given and return the aggregate.
type FinalizeFunc func(session *model.AttemptSession, sections []model.SectionAttempt, questions []model.QuestionAttempt) (*model.SessionResult, error)

// QuestionUpdate describes one mutation of a question attempt.
type QuestionUpdate struct {
	SessionID  uuid.UUID
	SectionID  uuid.UUID
	QuestionID uuid.UUID
	// Position, when set, moves the session cursor. Its TimeTaken is added to
	// the section and session totals on top of any growth in the question's
	// own time_taken.
	Position *model.Navigation
	Apply    func(q *model.QuestionAttempt) error
}

// AttemptSessionRepository persists the attempt aggregate: the session, its
// section attempts and its question attempts.
type AttemptSessionRepository struct {
	pool *pgxpool.Pool
}

// NewAttemptSessionRepository creates a new AttemptSessionRepository.
func NewAttemptSessionRepository(pool *pgxpool.Pool) *AttemptSessionRepository {
	return &AttemptSessionRepository{pool: pool}
}

// FindStarted returns the started session for the key, or ErrNotFound.
func (r *AttemptSessionRepository) FindStarted(ctx context.Context, key model.AttemptKey) (*model.AttemptSession, error) {
	return findStarted(ctx, r.pool, key)
}

// CountCompleted returns the number of completed sessions for the key.
func (r *AttemptSessionRepository) CountCompleted(ctx context.Context, key model.AttemptKey) (int, error) {
	return countCompleted(ctx, r.pool, key)
}

// Create persists a freshly built attempt in one transaction. The key is
// serialised with an advisory lock so the started-session lookup, the admit
// check and the insert are a single step. If a started session already
// exists it is returned with created=false and nothing is written.
func (r *AttemptSessionRepository) Create(ctx context.Context, draft *model.AttemptDraft, admit AdmitFunc) (*model.AttemptSession, bool, error) {
	var (
		session *model.AttemptSession
		created bool
	)
	key := draft.Session.Key()

	err := pgx.BeginFunc(ctx, r.pool, func(tx pgx.Tx) error {
		if _, err := tx.Exec(ctx, `SELECT pg_advisory_xact_lock(hashtextextended($1, 0))`, lockKey(key)); err != nil {
			return fmt.Errorf("acquire attempt lock: %w", err)
		}

		existing, err := findStarted(ctx, tx, key)
		if err == nil {
			session = existing
			return nil
		}
		if !errors.Is(err, ErrNotFound) {
			return err
		}

		completed, err := countCompleted(ctx, tx, key)
		if err != nil {
			return err
		}
		if err := admit(completed); err != nil {
			return err
		}

		if err := insertDraft(ctx, tx, draft); err != nil {
			return err
		}
		session = &draft.Session
		created = true
		return nil
	})
	if err != nil {
		// A writer outside the advisory lock won the partial unique index.
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23505" {
			existing, findErr := r.FindStarted(ctx, key)
			if findErr == nil {
				return existing, false, nil
			}
		}
		return nil, false, err
	}
	return session, created, nil
}

func insertDraft(ctx context.Context, tx pgx.Tx, draft *model.AttemptDraft) error {
	s := &draft.Session
	err := tx.QueryRow(ctx,
		`INSERT INTO attempt_sessions (id, code, user_id, exam_id, schedule_id, starts_at, ends_at,
		                               current_section, total_time_taken, status)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, 0, $9)
		 RETURNING created_at`,
		s.ID, s.Code, s.UserID, s.ExamID, s.ScheduleID, s.StartsAt, s.EndsAt,
		s.CurrentSection, string(model.AttemptStatusStarted),
	).Scan(&s.CreatedAt)
	if err != nil {
		return fmt.Errorf("insert session: %w", err)
	}
	s.Status = model.AttemptStatusStarted

	_, err = tx.CopyFrom(ctx,
		pgx.Identifier{"section_attempts"},
		[]string{"session_id", "section_id", "sno", "name", "starts_at", "ends_at", "total_time_taken", "status", "marking"},
		pgx.CopyFromSlice(len(draft.Sections), func(i int) ([]any, error) {
			sa := draft.Sections[i]
			return []any{s.ID, sa.SectionID, sa.SNo, sa.Name, sa.StartsAt, sa.EndsAt, 0, string(sa.Status), sa.Marking}, nil
		}),
	)
	if err != nil {
		return fmt.Errorf("insert section attempts: %w", err)
	}

	_, err = tx.CopyFrom(ctx,
		pgx.Identifier{"question_attempts"},
		[]string{"session_id", "question_id", "section_id", "sno", "original_question", "status", "time_taken", "marks_earned", "marks_deducted"},
		pgx.CopyFromSlice(len(draft.Questions), func(i int) ([]any, error) {
			qa := draft.Questions[i]
			return []any{s.ID, qa.QuestionID, qa.SectionID, qa.SNo, qa.OriginalQuestion, string(qa.Status), 0, 0.0, 0.0}, nil
		}),
	)
	if err != nil {
		return fmt.Errorf("insert question attempts: %w", err)
	}
	return nil
}

// GetByCode retrieves a session by its external code.
func (r *AttemptSessionRepository) GetByCode(ctx context.Context, code string) (*model.AttemptSession, error) {
	return scanSession(r.pool.QueryRow(ctx,
		`SELECT `+sessionColumns+` FROM attempt_sessions WHERE code = $1`, code))
}

// ListByUserExam retrieves a user's sessions for an exam, newest first.
func (r *AttemptSessionRepository) ListByUserExam(ctx context.Context, userID int, examID uuid.UUID) ([]model.AttemptSession, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT `+sessionColumns+`
		 FROM attempt_sessions
		 WHERE user_id = $1 AND exam_id = $2
		 ORDER BY created_at DESC`, userID, examID,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var sessions []model.AttemptSession
	for rows.Next() {
		s, err := scanSession(rows)
		if err != nil {
			return nil, err
		}
		sessions = append(sessions, *s)
	}
	return sessions, rows.Err()
}

// ListSections retrieves all section attempts of a session in order.
func (r *AttemptSessionRepository) ListSections(ctx context.Context, sessionID uuid.UUID) ([]model.SectionAttempt, error) {
	return listSections(ctx, r.pool, sessionID)
}

// GetSection retrieves one section attempt.
func (r *AttemptSessionRepository) GetSection(ctx context.Context, sessionID, sectionID uuid.UUID) (*model.SectionAttempt, error) {
	return scanSection(r.pool.QueryRow(ctx,
		`SELECT `+sectionColumns+` FROM section_attempts WHERE session_id = $1 AND section_id = $2`,
		sessionID, sectionID))
}

// ListQuestions retrieves the question attempts of one section in order.
func (r *AttemptSessionRepository) ListQuestions(ctx context.Context, sessionID, sectionID uuid.UUID) ([]model.QuestionAttempt, error) {
	return listQuestions(ctx, r.pool,
		`SELECT `+questionColumns+`
		 FROM question_attempts
		 WHERE session_id = $1 AND section_id = $2
		 ORDER BY sno ASC`, sessionID, sectionID)
}

// CountAnswered returns how many questions of a section carry an answer.
func (r *AttemptSessionRepository) CountAnswered(ctx context.Context, sessionID, sectionID uuid.UUID) (int, error) {
	return countAnswered(ctx, r.pool, sessionID, sectionID)
}

// UpdateQuestion applies a mutation to one question attempt and rolls the
// elapsed time into the section and session counters. The session row is
// held FOR SHARE so a concurrent Finalize waits for the write to land, and
// a write that arrives after finalization fails with ErrSessionCompleted.
// It returns the stored question and the section's answered count.
func (r *AttemptSessionRepository) UpdateQuestion(ctx context.Context, u QuestionUpdate) (*model.QuestionAttempt, int, error) {
	var (
		q        *model.QuestionAttempt
		answered int
	)
	err := pgx.BeginFunc(ctx, r.pool, func(tx pgx.Tx) error {
		if err := lockSessionShared(ctx, tx, u.SessionID); err != nil {
			return err
		}

		var err error
		q, err = scanQuestion(tx.QueryRow(ctx,
			`SELECT `+questionColumns+`
			 FROM question_attempts
			 WHERE session_id = $1 AND question_id = $2 AND section_id = $3
			 FOR UPDATE`, u.SessionID, u.QuestionID, u.SectionID))
		if err != nil {
			return err
		}

		before := q.TimeTaken
		if err := u.Apply(q); err != nil {
			return err
		}
		elapsed := max(q.TimeTaken-before, 0)

		_, err = tx.Exec(ctx,
			`INSERT INTO question_attempts (`+questionColumns+`, updated_at)
			 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, NOW())
			 ON CONFLICT (session_id, question_id) DO UPDATE SET
			     user_answer    = EXCLUDED.user_answer,
			     is_correct     = EXCLUDED.is_correct,
			     status         = EXCLUDED.status,
			     time_taken     = EXCLUDED.time_taken,
			     marks_earned   = EXCLUDED.marks_earned,
			     marks_deducted = EXCLUDED.marks_deducted,
			     updated_at     = NOW()`,
			q.SessionID, q.QuestionID, q.SectionID, q.SNo, q.OriginalQuestion,
			q.UserAnswer, q.IsCorrect, string(q.Status), q.TimeTaken, q.MarksEarned, q.MarksDeducted)
		if err != nil {
			return fmt.Errorf("upsert question attempt: %w", err)
		}

		sectionCursor := u.QuestionID
		var sessionSection, sessionQuestion *uuid.UUID
		if p := u.Position; p != nil {
			elapsed += max(p.TimeTaken, 0)
			if p.SectionID == u.SectionID {
				sectionCursor = p.QuestionID
			}
			sessionSection, sessionQuestion = &p.SectionID, &p.QuestionID
		}

		_, err = tx.Exec(ctx,
			`UPDATE section_attempts
			 SET current_question = $3, total_time_taken = total_time_taken + $4, status = $5
			 WHERE session_id = $1 AND section_id = $2`,
			u.SessionID, u.SectionID, sectionCursor, elapsed, string(model.SectionVisited))
		if err != nil {
			return fmt.Errorf("update section attempt: %w", err)
		}

		_, err = tx.Exec(ctx,
			`UPDATE attempt_sessions
			 SET current_section  = COALESCE($2, current_section),
			     current_question = COALESCE($3, current_question),
			     total_time_taken = total_time_taken + $4
			 WHERE id = $1`,
			u.SessionID, sessionSection, sessionQuestion, elapsed)
		if err != nil {
			return fmt.Errorf("update session: %w", err)
		}

		answered, err = countAnswered(ctx, tx, u.SessionID, u.SectionID)
		return err
	})
	if err != nil {
		return nil, 0, err
	}
	return q, answered, nil
}

// Finalize seals a session exactly once. The session row is locked FOR
// UPDATE and the started→completed transition is a compare-and-set, so of
// two concurrent callers only one computes and writes results. The other
// receives the stored results with won=false.
func (r *AttemptSessionRepository) Finalize(ctx context.Context, sessionID uuid.UUID, totalTimeTaken *int, compute FinalizeFunc) (*model.SessionResult, bool, error) {
	var (
		result *model.SessionResult
		won    bool
	)
	err := pgx.BeginFunc(ctx, r.pool, func(tx pgx.Tx) error {
		s, err := scanSession(tx.QueryRow(ctx,
			`SELECT `+sessionColumns+` FROM attempt_sessions WHERE id = $1 FOR UPDATE`, sessionID))
		if err != nil {
			return err
		}
		if s.IsCompleted() {
			result = s.Results
			return nil
		}
		if totalTimeTaken != nil && *totalTimeTaken > s.TotalTimeTaken {
			s.TotalTimeTaken = *totalTimeTaken
		}

		sections, err := listSections(ctx, tx, sessionID)
		if err != nil {
			return err
		}
		questions, err := listQuestions(ctx, tx,
			`SELECT `+questionColumns+`
			 FROM question_attempts
			 WHERE session_id = $1
			 ORDER BY sno ASC`, sessionID)
		if err != nil {
			return err
		}

		res, err := compute(s, sections, questions)
		if err != nil {
			return err
		}

		batch := &pgx.Batch{}
		for _, sa := range sections {
			batch.Queue(
				`UPDATE section_attempts SET results = $3 WHERE session_id = $1 AND section_id = $2`,
				sessionID, sa.SectionID, sa.Results)
		}
		if err := tx.SendBatch(ctx, batch).Close(); err != nil {
			return fmt.Errorf("store section results: %w", err)
		}

		tag, err := tx.Exec(ctx,
			`UPDATE attempt_sessions
			 SET status = $2, results = $3, completed_at = $4, total_time_taken = $5
			 WHERE id = $1 AND status = $6`,
			sessionID, string(model.AttemptStatusCompleted), res, res.CompletedAt, s.TotalTimeTaken,
			string(model.AttemptStatusStarted))
		if err != nil {
			return fmt.Errorf("complete session: %w", err)
		}
		if tag.RowsAffected() != 1 {
			return ErrSessionCompleted
		}
		result, won = res, true
		return nil
	})
	if errors.Is(err, ErrSessionCompleted) {
		stored, getErr := scanSession(r.pool.QueryRow(ctx,
			`SELECT `+sessionColumns+` FROM attempt_sessions WHERE id = $1`, sessionID))
		if getErr != nil {
			return nil, false, getErr
		}
		return stored.Results, false, nil
	}
	if err != nil {
		return nil, false, err
	}
	return result, won, nil
}

// CompletedBests ranks users by their best completed score on an exam,
// optionally restricted to one schedule. Best score and best percentage
// are taken independently.
func (r *AttemptSessionRepository) CompletedBests(ctx context.Context, examID uuid.UUID, scheduleID *uuid.UUID, limit int) ([]model.LeaderboardEntry, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT RANK() OVER (ORDER BY MAX((results->>'score')::float8) DESC) AS rank,
		        user_id,
		        MAX((results->>'score')::float8)      AS high_score,
		        MAX((results->>'percentage')::float8) AS high_percentage,
		        COUNT(*)                              AS attempts
		 FROM attempt_sessions
		 WHERE status = 'completed' AND exam_id = $1
		   AND ($2::uuid IS NULL OR schedule_id = $2)
		 GROUP BY user_id
		 ORDER BY high_score DESC, high_percentage DESC, user_id ASC
		 LIMIT $3`, examID, scheduleID, limit,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var entries []model.LeaderboardEntry
	for rows.Next() {
		e := model.LeaderboardEntry{ExamID: examID, ScheduleID: scheduleID}
		if err := rows.Scan(&e.Rank, &e.UserID, &e.HighScore, &e.HighPercentage, &e.Attempts); err != nil {
			return nil, err
		}
		entries = append(entries, e)
	}
	return entries, rows.Err()
}

// ─── helpers ───────────────────────────────────────────────────────

func lockKey(k model.AttemptKey) string {
	schedule := "none"
	if k.ScheduleID != nil {
		schedule = k.ScheduleID.String()
	}
	return fmt.Sprintf("attempt:%d:%s:%s", k.UserID, k.ExamID, schedule)
}

func findStarted(ctx context.Context, q querier, key model.AttemptKey) (*model.AttemptSession, error) {
	return scanSession(q.QueryRow(ctx,
		`SELECT `+sessionColumns+`
		 FROM attempt_sessions
		 WHERE user_id = $1 AND exam_id = $2 AND schedule_id IS NOT DISTINCT FROM $3 AND status = $4`,
		key.UserID, key.ExamID, key.ScheduleID, string(model.AttemptStatusStarted)))
}

func countCompleted(ctx context.Context, q querier, key model.AttemptKey) (int, error) {
	var n int
	err := q.QueryRow(ctx,
		`SELECT COUNT(*)
		 FROM attempt_sessions
		 WHERE user_id = $1 AND exam_id = $2 AND schedule_id IS NOT DISTINCT FROM $3 AND status = $4`,
		key.UserID, key.ExamID, key.ScheduleID, string(model.AttemptStatusCompleted),
	).Scan(&n)
	return n, err
}

func countAnswered(ctx context.Context, q querier, sessionID, sectionID uuid.UUID) (int, error) {
	var n int
	err := q.QueryRow(ctx,
		`SELECT COUNT(*)
		 FROM question_attempts
		 WHERE session_id = $1 AND section_id = $2 AND status IN ($3, $4)`,
		sessionID, sectionID, string(model.QuestionAnswered), string(model.QuestionAnsweredMarkForReview),
	).Scan(&n)
	return n, err
}

func lockSessionShared(ctx context.Context, tx pgx.Tx, sessionID uuid.UUID) error {
	var status model.AttemptStatus
	err := tx.QueryRow(ctx,
		`SELECT status FROM attempt_sessions WHERE id = $1 FOR SHARE`, sessionID,
	).Scan(&status)
	if err != nil {
		return notFound(err)
	}
	if status == model.AttemptStatusCompleted {
		return ErrSessionCompleted
	}
	return nil
}

func scanSession(row pgx.Row) (*model.AttemptSession, error) {
	s := &model.AttemptSession{}
	err := row.Scan(&s.ID, &s.Code, &s.UserID, &s.ExamID, &s.ScheduleID, &s.StartsAt, &s.EndsAt,
		&s.CurrentSection, &s.CurrentQuestion, &s.TotalTimeTaken, &s.Status,
		&s.Results, &s.CompletedAt, &s.CreatedAt)
	if err != nil {
		return nil, notFound(err)
	}
	return s, nil
}

func scanSection(row pgx.Row) (*model.SectionAttempt, error) {
	sa := &model.SectionAttempt{}
	err := row.Scan(&sa.SessionID, &sa.SectionID, &sa.SNo, &sa.Name, &sa.StartsAt, &sa.EndsAt,
		&sa.CurrentQuestion, &sa.TotalTimeTaken, &sa.Status, &sa.Marking, &sa.Results)
	if err != nil {
		return nil, notFound(err)
	}
	return sa, nil
}

func scanQuestion(row pgx.Row) (*model.QuestionAttempt, error) {
	q := &model.QuestionAttempt{}
	err := row.Scan(&q.SessionID, &q.QuestionID, &q.SectionID, &q.SNo, &q.OriginalQuestion,
		&q.UserAnswer, &q.IsCorrect, &q.Status, &q.TimeTaken, &q.MarksEarned, &q.MarksDeducted)
	if err != nil {
		return nil, notFound(err)
	}
	return q, nil
}

func listSections(ctx context.Context, q querier, sessionID uuid.UUID) ([]model.SectionAttempt, error) {
	rows, err := q.Query(ctx,
		`SELECT `+sectionColumns+`
		 FROM section_attempts
		 WHERE session_id = $1
		 ORDER BY sno ASC`, sessionID,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var sections []model.SectionAttempt
	for rows.Next() {
		sa, err := scanSection(rows)
		if err != nil {
			return nil, err
		}
		sections = append(sections, *sa)
	}
	return sections, rows.Err()
}

func listQuestions(ctx context.Context, q querier, sql string, args ...any) ([]model.QuestionAttempt, error) {
	rows, err := q.Query(ctx, sql, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var questions []model.QuestionAttempt
	for rows.Next() {
		qa, err := scanQuestion(rows)
		if err != nil {
			return nil, err
		}
		questions = append(questions, *qa)
	}
	return questions, rows.Err()
}
