package darts

import (
	"fmt"
	"sort"
)

// MaxDarts is the number of darts in a visit.
const MaxDarts = 3

// Result is the verdict on a checkout attempt. Reason is empty when Valid.
type Result struct {
	Valid  bool   `json:"valid"`
	Reason string `json:"reason,omitempty"`
}

// Validate decides whether throws check out target: one to three darts,
// summing exactly to target, with the last dart a double. Each dart's value
// is recomputed from its segment and ring.
func Validate(target int, throws []Throw) Result {
	if len(throws) == 0 {
		return Result{Reason: "no darts thrown"}
	}
	if len(throws) > MaxDarts {
		return Result{Reason: fmt.Sprintf("maximum %d darts allowed", MaxDarts)}
	}
	for i, t := range throws {
		v, err := Value(t.Segment, t.Multiplier)
		if err != nil {
			return Result{Reason: fmt.Sprintf("dart %d: %v", i+1, err)}
		}
		if v != t.Value {
			return Result{Reason: fmt.Sprintf("dart %d: value %d does not match %s", i+1, t.Value, t.Notation())}
		}
	}
	if total := Total(throws); total != target {
		return Result{Reason: fmt.Sprintf("total %d does not match target %d", total, target)}
	}
	if !throws[len(throws)-1].IsDouble() {
		return Result{Reason: "must finish on a double"}
	}
	return Result{Valid: true}
}

// MatchValues compares a numeric answer with the canonical solution values.
// Zero padding is ignored on both sides; the remaining values must form the
// same multiset and the answer must add up to target.
func MatchValues(answer, solution []int, target int) bool {
	got := normalizeValues(answer)
	want := normalizeValues(solution)
	if len(got) == 0 || len(got) != len(want) {
		return false
	}
	sum := 0
	for i := range got {
		if got[i] != want[i] {
			return false
		}
		sum += got[i]
	}
	return sum == target
}

func normalizeValues(values []int) []int {
	out := make([]int, 0, len(values))
	for _, v := range values {
		if v > 0 {
			out = append(out, v)
		}
	}
	sort.Sort(sort.Reverse(sort.IntSlice(out)))
	return out
}
