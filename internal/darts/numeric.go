package darts

import (
	"strconv"
	"strings"
)

// FormatValue labels a raw point value the way answer logs show it:
// Bull, Outer Bull, D{n} for doubles, T{n} for trebles, else the number.
func FormatValue(value int) string {
	switch {
	case value == 50:
		return "Bull"
	case value == 25:
		return "Outer Bull"
	case value >= 2 && value <= 40 && value%2 == 0:
		return "D" + strconv.Itoa(value/2)
	case value >= 3 && value <= 60 && value%3 == 0:
		return "T" + strconv.Itoa(value/3)
	}
	return strconv.Itoa(value)
}

// FormatValues joins FormatValue labels with commas.
func FormatValues(values []int) string {
	labels := make([]string, len(values))
	for i, v := range values {
		labels[i] = FormatValue(v)
	}
	return strings.Join(labels, ", ")
}

// ThrowsFromValues guesses a dart path for raw point values. The values must
// add up to target and the last one must be a finishing double.
func ThrowsFromValues(values []int, target int) ([]Throw, bool) {
	if len(values) == 0 || len(values) > MaxDarts {
		return nil, false
	}
	total := 0
	for _, v := range values {
		total += v
	}
	if total != target {
		return nil, false
	}

	throws := make([]Throw, 0, len(values))
	for _, v := range values[:len(values)-1] {
		t, ok := throwForValue(v)
		if !ok {
			return nil, false
		}
		throws = append(throws, t)
	}
	finish, ok := finishingDouble(values[len(values)-1])
	if !ok {
		return nil, false
	}
	return append(throws, finish), true
}

// throwForValue prefers a single, then a double, then a treble.
func throwForValue(v int) (Throw, bool) {
	switch {
	case v >= 1 && v <= 20:
		return MustThrow(v, Single), true
	case v == 25:
		return MustThrow(Bull, Single), true
	case v == 50:
		return MustThrow(Bull, Double), true
	case v <= 40 && v%2 == 0:
		return MustThrow(v/2, Double), true
	case v <= 60 && v%3 == 0:
		return MustThrow(v/3, Triple), true
	}
	return Throw{}, false
}
