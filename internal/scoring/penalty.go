package scoring

import (
	"fmt"
	"math"

	"github.com/stemsi/exstem-assessment/internal/model"
)

// Penalty is the negative-marking policy of a section: FixedPenalty or
// PercentagePenalty. The interface is sealed; Deduction handles every case.
type Penalty interface {
	isPenalty()
}

// FixedPenalty deducts a flat number of marks.
type FixedPenalty struct {
	Marks float64
}

// PercentagePenalty deducts a percentage of the question's marks.
type PercentagePenalty struct {
	Percent float64
}

func (FixedPenalty) isPenalty()      {}
func (PercentagePenalty) isPenalty() {}

// PenaltyFor decodes the stored marking columns into a Penalty.
func PenaltyFor(m model.MarkingScheme) (Penalty, error) {
	switch m.NegativeMarkingType {
	case model.NegativeMarkingFixed, "":
		return FixedPenalty{Marks: m.NegativeMarks}, nil
	case model.NegativeMarkingPercentage:
		return PercentagePenalty{Percent: m.NegativeMarks}, nil
	default:
		return nil, fmt.Errorf("unknown negative marking type %q", m.NegativeMarkingType)
	}
}

// Deduction returns the marks taken away for a wrong answer worth marks.
func Deduction(p Penalty, marks float64) float64 {
	switch p := p.(type) {
	case FixedPenalty:
		return p.Marks
	case PercentagePenalty:
		return Round2(marks * p.Percent / 100)
	default:
		panic(fmt.Sprintf("scoring: unhandled penalty %T", p))
	}
}

// Round2 rounds half away from zero to two decimal places.
func Round2(v float64) float64 {
	return math.Round(v*100) / 100
}
