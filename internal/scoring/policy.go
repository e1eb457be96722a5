// Package scoring holds the pure marking rules of the attempt engine.
// Nothing here touches storage or the clock.
package scoring

import (
	"github.com/stemsi/exstem-assessment/internal/model"
)

// Config is the marking context of one question.
type Config struct {
	AutoGrading           bool
	EnableNegativeMarking bool
	Marking               model.MarkingScheme
}

// ConfigFor assembles the marking context from exam settings and the
// section's frozen marking scheme.
func ConfigFor(settings model.ExamSettings, marking model.MarkingScheme) Config {
	return Config{
		AutoGrading:           settings.AutoGrading,
		EnableNegativeMarking: settings.EnableNegativeMarking,
		Marking:               marking,
	}
}

// Outcome is the marks awarded for one answered question.
type Outcome struct {
	IsCorrect     bool
	MarksEarned   float64
	MarksDeducted float64
}

// QuestionMarks is what a correct answer is worth.
func QuestionMarks(cfg Config, q model.QuestionSnapshot) float64 {
	if cfg.AutoGrading {
		return q.DefaultMarks
	}
	return cfg.Marking.CorrectMarks
}

// Score applies the marking rules to an already-evaluated answer.
func Score(cfg Config, q model.QuestionSnapshot, isCorrect bool) (Outcome, error) {
	marks := QuestionMarks(cfg, q)
	if isCorrect {
		return Outcome{IsCorrect: true, MarksEarned: marks}, nil
	}
	if !cfg.EnableNegativeMarking {
		return Outcome{}, nil
	}
	p, err := PenaltyFor(cfg.Marking)
	if err != nil {
		return Outcome{}, err
	}
	return Outcome{MarksDeducted: Deduction(p, marks)}, nil
}
