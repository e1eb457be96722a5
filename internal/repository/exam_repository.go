package repository

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/stemsi/exstem-assessment/internal/model"
)

// ExamRepository reads exam templates. Exams are authored elsewhere, so
// this repository is read-only.
type ExamRepository struct {
	pool *pgxpool.Pool
}

// NewExamRepository creates a new ExamRepository.
func NewExamRepository(pool *pgxpool.Pool) *ExamRepository {
	return &ExamRepository{pool: pool}
}

// GetByID retrieves an exam by its UUID.
func (r *ExamRepository) GetByID(ctx context.Context, id uuid.UUID) (*model.Exam, error) {
	e := &model.Exam{}
	err := r.pool.QueryRow(ctx,
		`SELECT id, title, category_id, total_questions, total_marks, duration_minutes,
		        pass_percentage, settings, is_paid, can_redeem, points_required,
		        status, created_at, updated_at
		 FROM exams WHERE id = $1`, id,
	).Scan(&e.ID, &e.Title, &e.CategoryID, &e.TotalQuestions, &e.TotalMarks, &e.DurationMinutes,
		&e.PassPercentage, &e.Settings, &e.IsPaid, &e.CanRedeem, &e.PointsRequired,
		&e.Status, &e.CreatedAt, &e.UpdatedAt)
	if err != nil {
		return nil, notFound(err)
	}
	return e, nil
}

// ListSections retrieves the ordered section templates of an exam.
func (r *ExamRepository) ListSections(ctx context.Context, examID uuid.UUID) ([]model.Section, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT id, exam_id, sno, name, qbank_id, total_questions, duration_minutes,
		        correct_marks, negative_marking_type, negative_marks, section_cutoff
		 FROM exam_sections
		 WHERE exam_id = $1
		 ORDER BY sno ASC`, examID,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var sections []model.Section
	for rows.Next() {
		var s model.Section
		if err := rows.Scan(&s.ID, &s.ExamID, &s.SNo, &s.Name, &s.QBankID, &s.TotalQuestions, &s.DurationMinutes,
			&s.Marking.CorrectMarks, &s.Marking.NegativeMarkingType, &s.Marking.NegativeMarks, &s.Marking.SectionCutoff,
		); err != nil {
			return nil, err
		}
		sections = append(sections, s)
	}
	return sections, rows.Err()
}

// GetTemplate retrieves an exam together with its sections.
func (r *ExamRepository) GetTemplate(ctx context.Context, examID uuid.UUID) (*model.ExamTemplate, error) {
	exam, err := r.GetByID(ctx, examID)
	if err != nil {
		return nil, err
	}
	sections, err := r.ListSections(ctx, examID)
	if err != nil {
		return nil, fmt.Errorf("list sections: %w", err)
	}
	return &model.ExamTemplate{Exam: *exam, Sections: sections}, nil
}
