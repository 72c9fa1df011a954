package domain

import (
	"fmt"

	"github.com/go-playground/validator/v10"

	"checkout-trainer/internal/darts"
)

var validate = validator.New()

// Validate checks a bank entry: tag constraints first, then the solution
// must add up to the target, fit the dart count and end on a double. A
// no-outshot entry must name a score that really cannot be finished.
func (q Question) Validate() error {
	if err := validate.Struct(q); err != nil {
		return fmt.Errorf("%w %d: %v", ErrInvalidQuestion, q.ID, err)
	}
	if q.IsNoOutshot() {
		if darts.HasCheckout(q.TargetScore, darts.MaxDarts) {
			return fmt.Errorf("%w %d: %d marked no outshot but can be finished", ErrInvalidQuestion, q.ID, q.TargetScore)
		}
		return nil
	}
	if len(q.Values) != q.DartCount {
		return fmt.Errorf("%w %d: %d values for %d darts", ErrInvalidQuestion, q.ID, len(q.Values), q.DartCount)
	}
	sum := 0
	for _, v := range q.Values {
		sum += v
	}
	if sum != q.TargetScore {
		return fmt.Errorf("%w %d: values add up to %d, not %d", ErrInvalidQuestion, q.ID, sum, q.TargetScore)
	}
	if last := q.Values[len(q.Values)-1]; !darts.IsFinishingValue(last) {
		return fmt.Errorf("%w %d: last dart %d is not a finishing double", ErrInvalidQuestion, q.ID, last)
	}
	return nil
}

// ValidQuestions drops entries that fail Validate and returns the rest with
// the errors found.
func ValidQuestions(questions []Question) ([]Question, []error) {
	valid := make([]Question, 0, len(questions))
	var errs []error
	for _, q := range questions {
		if err := q.Validate(); err != nil {
			errs = append(errs, err)
			continue
		}
		valid = append(valid, q)
	}
	return valid, errs
}
