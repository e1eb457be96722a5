package grading

import (
	"encoding/json"
	"fmt"
	"math"
	"strconv"
	"strings"
)

// numericKey accepts either a bare number or {"value": 3.14, "tolerance": 0.01}.
type numericKey struct {
	Value     float64 `json:"value"`
	Tolerance float64 `json:"tolerance"`
}

type numericStrategy struct{}

func (numericStrategy) Correct(key, answer json.RawMessage) (bool, error) {
	k, err := parseNumericKey(key)
	if err != nil {
		return false, err
	}
	v, err := parseNumericAnswer(answer)
	if err != nil {
		return false, err
	}
	return math.Abs(v-k.Value) <= k.Tolerance, nil
}

func (numericStrategy) Validate(answer json.RawMessage) error {
	_, err := parseNumericAnswer(answer)
	return err
}

func parseNumericAnswer(answer json.RawMessage) (float64, error) {
	text, ok := scalarString(answer)
	if !ok {
		return 0, fmt.Errorf("%w: expected a number", ErrMalformedAnswer)
	}
	v, err := strconv.ParseFloat(strings.TrimSpace(text), 64)
	if err != nil {
		return 0, fmt.Errorf("%w: expected a number", ErrMalformedAnswer)
	}
	return v, nil
}

func parseNumericKey(raw json.RawMessage) (numericKey, error) {
	if text, ok := scalarString(raw); ok {
		v, err := strconv.ParseFloat(strings.TrimSpace(text), 64)
		if err != nil {
			return numericKey{}, ErrMalformedKey
		}
		return numericKey{Value: v}, nil
	}
	var k numericKey
	if err := json.Unmarshal(raw, &k); err != nil || k.Tolerance < 0 {
		return numericKey{}, ErrMalformedKey
	}
	return k, nil
}
