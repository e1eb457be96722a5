package repository

import (
	"context"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/stemsi/exstem-assessment/internal/model"
)

// QuestionRepository reads question bank entries.
type QuestionRepository struct {
	pool *pgxpool.Pool
}

// NewQuestionRepository creates a new QuestionRepository.
func NewQuestionRepository(pool *pgxpool.Pool) *QuestionRepository {
	return &QuestionRepository{pool: pool}
}

// SelectRandom draws up to limit live questions from a bank in random order.
func (r *QuestionRepository) SelectRandom(ctx context.Context, qbankID uuid.UUID, limit int) ([]model.Question, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT id, qbank_id, question_type, question_text, options, correct_answer, default_marks
		 FROM questions
		 WHERE qbank_id = $1 AND deleted_at IS NULL
		 ORDER BY random()
		 LIMIT $2`, qbankID, limit,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var questions []model.Question
	for rows.Next() {
		var q model.Question
		if err := rows.Scan(&q.ID, &q.QBankID, &q.QuestionType, &q.QuestionText, &q.Options, &q.CorrectAnswer, &q.DefaultMarks); err != nil {
			return nil, err
		}
		questions = append(questions, q)
	}
	return questions, rows.Err()
}
