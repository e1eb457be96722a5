package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/stemsi/exstem-assessment/internal/config"
	"github.com/stemsi/exstem-assessment/internal/database"
	"github.com/stemsi/exstem-assessment/internal/logger"
	"github.com/stemsi/exstem-assessment/internal/model"
)

type seedQuestion struct {
	kind    model.QuestionType
	text    string
	options any
	key     any
}

type seedSection struct {
	name     string
	minutes  int
	correct  float64
	negative float64
	cutoff   *float64
	bank     []seedQuestion
}

func main() {
	learners := flag.Int("learners", 50, "number of learner wallets to fund, user ids 1..n")
	points := flag.Int("points", 20, "wallet balance per learner")
	flag.Parse()

	cfg := config.Load()
	log := logger.Setup(cfg.LogLevel, cfg.LogFormat)
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Minute)
	defer cancel()

	pool, err := database.NewPostgresPool(ctx, cfg, log)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to connect to PostgreSQL")
	}
	defer pool.Close()

	fmt.Println("=== Seeding demo exam ===")

	tx, err := pool.Begin(ctx)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to begin transaction")
	}
	defer tx.Rollback(ctx)

	examID, err := seedExam(ctx, tx)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to seed exam")
	}
	fmt.Printf("Created exam %s\n", examID)

	var scheduleID uuid.UUID
	err = tx.QueryRow(ctx, `
		INSERT INTO schedules (exam_id, schedule_type, starts_at, ends_at, grace_period_minutes, status)
		VALUES ($1, $2, NOW(), NOW() + INTERVAL '7 days', 5, $3)
		RETURNING id`,
		examID, model.ScheduleTypeFlexible, model.ScheduleStatusActive,
	).Scan(&scheduleID)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to seed schedule")
	}
	fmt.Printf("Created flexible schedule %s (open for 7 days)\n", scheduleID)

	for i := 1; i <= *learners; i++ {
		_, err := tx.Exec(ctx, `
			INSERT INTO wallet_accounts (user_id, balance) VALUES ($1, $2)
			ON CONFLICT (user_id) DO UPDATE SET balance = EXCLUDED.balance, updated_at = NOW()`,
			i, *points,
		)
		if err != nil {
			log.Fatal().Err(err).Int("user_id", i).Msg("Failed to fund wallet")
		}
		if i%10 == 0 {
			fmt.Printf("Funded %d wallets...\n", i)
		}
	}

	if err := tx.Commit(ctx); err != nil {
		log.Fatal().Err(err).Msg("Failed to commit seed")
	}

	fmt.Printf("\nSeed completed! exam_id=%s schedule_id=%s learners=1..%d\n", examID, scheduleID, *learners)
}

func seedExam(ctx context.Context, tx pgx.Tx) (uuid.UUID, error) {
	cutoff := 2.0
	sections := []seedSection{
		{
			name: "Quantitative", minutes: 20, correct: 2, negative: 0.5, cutoff: &cutoff,
			bank: []seedQuestion{
				{model.QuestionTypeSingleChoice, "What is 7 x 8?", []string{"54", "56", "58", "64"}, "56"},
				{model.QuestionTypeNumeric, "Compute 1.5 + 2.25.", nil, 3.75},
				{model.QuestionTypeMultipleChoice, "Which numbers are prime?", []string{"2", "4", "7", "9"}, []string{"2", "7"}},
				{model.QuestionTypeTrueFalse, "Zero is an even number.", []string{"true", "false"}, "true"},
				{model.QuestionTypeNumeric, "What is 15% of 80?", nil, 12},
			},
		},
		{
			name: "Verbal", minutes: 15, correct: 1,
			bank: []seedQuestion{
				{model.QuestionTypeFillBlank, "The opposite of 'ancient' is ____.", nil, []string{"modern", "new"}},
				{model.QuestionTypeSingleChoice, "Pick the synonym of 'rapid'.", []string{"slow", "quick", "late"}, "quick"},
				{model.QuestionTypeTrueFalse, "'Their' and 'there' mean the same.", []string{"true", "false"}, "false"},
				{model.QuestionTypeFillBlank, "A group of lions is called a ____.", nil, []string{"pride"}},
			},
		},
	}

	settings, _ := json.Marshal(model.ExamSettings{
		AutoGrading:           true,
		EnableNegativeMarking: true,
		ShowLeaderboard:       true,
		RestrictAttempts:      true,
		NoOfAttempts:          3,
	})

	var (
		totalQuestions int
		totalMarks     float64
		duration       int
	)
	for _, s := range sections {
		n := len(s.bank) - 1
		totalQuestions += n
		totalMarks += float64(n) * s.correct
		duration += s.minutes
	}

	var examID uuid.UUID
	err := tx.QueryRow(ctx, `
		INSERT INTO exams (title, total_questions, total_marks, duration_minutes, pass_percentage,
			settings, is_paid, can_redeem, points_required, status)
		VALUES ($1, $2, $3, $4, 40, $5, TRUE, TRUE, 4, $6)
		RETURNING id`,
		"Demo Aptitude Test", totalQuestions, totalMarks, duration, settings, model.ExamStatusPublished,
	).Scan(&examID)
	if err != nil {
		return uuid.Nil, fmt.Errorf("insert exam: %w", err)
	}

	for i, s := range sections {
		qbankID := uuid.New()
		_, err := tx.Exec(ctx, `
			INSERT INTO exam_sections (exam_id, sno, name, qbank_id, total_questions, duration_minutes,
				correct_marks, negative_marking_type, negative_marks, section_cutoff)
			VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)`,
			examID, i+1, s.name, qbankID, len(s.bank)-1, s.minutes, s.correct, model.NegativeMarkingFixed, s.negative, s.cutoff,
		)
		if err != nil {
			return uuid.Nil, fmt.Errorf("insert section %q: %w", s.name, err)
		}

		// One more question than drawn so each attempt gets a different subset.
		for _, q := range s.bank {
			var options []byte
			if q.options != nil {
				options, _ = json.Marshal(q.options)
			}
			key, _ := json.Marshal(q.key)
			_, err := tx.Exec(ctx, `
				INSERT INTO questions (qbank_id, question_type, question_text, options, correct_answer, default_marks)
				VALUES ($1, $2, $3, $4, $5, 1)`,
				qbankID, q.kind, q.text, options, key,
			)
			if err != nil {
				return uuid.Nil, fmt.Errorf("insert question: %w", err)
			}
		}
		fmt.Printf("Created section %d %q with %d bank questions\n", i+1, s.name, len(s.bank))
	}
	return examID, nil
}
