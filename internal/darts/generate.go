package darts

import (
	"sort"
	"strconv"
	"sync"

	"golang.org/x/sync/singleflight"
)

const (
	// MinCheckout is the lowest finish (double 1).
	MinCheckout = 2
	// MaxCheckout is the highest three-dart finish (T20 T20 Bull).
	MaxCheckout = 170
)

// Generate lists every sequence of 1..maxDarts darts that checks out target,
// shortest first. It returns an empty slice when no checkout exists.
func Generate(target, maxDarts int) [][]Throw {
	checkouts := [][]Throw{}
	if target < MinCheckout || target > MaxCheckout {
		return checkouts
	}
	if maxDarts > MaxDarts {
		maxDarts = MaxDarts
	}
	setup := setupThrows()
	var walk func(remaining int, used []Throw, left int)
	walk = func(remaining int, used []Throw, left int) {
		if left == 1 {
			if finish, ok := finishingDouble(remaining); ok {
				seq := make([]Throw, len(used)+1)
				copy(seq, used)
				seq[len(used)] = finish
				checkouts = append(checkouts, seq)
			}
			return
		}
		for _, t := range setup {
			if t.Value < remaining {
				walk(remaining-t.Value, append(used, t), left-1)
			}
		}
	}
	for n := 1; n <= maxDarts; n++ {
		walk(target, make([]Throw, 0, n), n)
	}
	return checkouts
}

// HasCheckout reports whether target can be finished within maxDarts.
func HasCheckout(target, maxDarts int) bool {
	return len(Generate(target, maxDarts)) > 0
}

// IsFinishingValue reports whether a single dart worth value points is a
// double that can end a leg.
func IsFinishingValue(value int) bool {
	_, ok := finishingDouble(value)
	return ok
}

func finishingDouble(remaining int) (Throw, bool) {
	if remaining == 50 {
		return MustThrow(Bull, Double), true
	}
	if remaining >= 2 && remaining <= 40 && remaining%2 == 0 {
		return MustThrow(remaining/2, Double), true
	}
	return Throw{}, false
}

// setupThrows is every legal dart in segment-major order.
func setupThrows() []Throw {
	throws := make([]Throw, 0, 62)
	for _, segment := range Segments() {
		for _, m := range multipliers {
			if t, err := NewThrow(segment, m); err == nil {
				throws = append(throws, t)
			}
		}
	}
	return throws
}

// recommended holds the finishes most professionals go for.
var recommended = map[int][]string{
	32:  {"S16", "D8"},
	36:  {"S20", "D8"},
	40:  {"S8", "D16"},
	50:  {"S10", "D20"},
	60:  {"S20", "S20", "D10"},
	61:  {"T15", "D8"},
	62:  {"T10", "D16"},
	80:  {"T20", "D10"},
	81:  {"T19", "D12"},
	100: {"T20", "S20", "D10"},
	120: {"T20", "S20", "D20"},
	130: {"T20", "T20", "D5"},
	141: {"T20", "T19", "D12"},
	158: {"T20", "T20", "D19"},
	160: {"T20", "T20", "D20"},
	161: {"T20", "T17", "DBull"},
	164: {"T20", "T18", "DBull"},
	167: {"T20", "T19", "DBull"},
	170: {"T20", "T20", "DBull"},
}

// Recommended returns the curated finish for target, falling back to the
// first generated checkout. ok is false when the score cannot be finished.
func Recommended(target int) ([]Throw, bool) {
	if codes, ok := recommended[target]; ok {
		throws, err := ParseNotations(codes)
		if err == nil {
			return throws, true
		}
	}
	checkouts := Generate(target, MaxDarts)
	if len(checkouts) == 0 {
		return nil, false
	}
	return checkouts[0], true
}

// RecommendedScores lists the targets with a curated finish.
func RecommendedScores() []int {
	scores := make([]int, 0, len(recommended))
	for score := range recommended {
		scores = append(scores, score)
	}
	sort.Ints(scores)
	return scores
}

// Cache memoizes Generate per (target, darts). Callers receive copies.
type Cache struct {
	sf singleflight.Group

	mu      sync.RWMutex
	entries map[cacheKey][][]Throw
}

type cacheKey struct {
	target int
	darts  int
}

func NewCache() *Cache {
	return &Cache{entries: make(map[cacheKey][][]Throw)}
}

// Checkouts returns Generate(target, maxDarts), computing it at most once.
func (c *Cache) Checkouts(target, maxDarts int) [][]Throw {
	if maxDarts > MaxDarts || maxDarts <= 0 {
		maxDarts = MaxDarts
	}
	key := cacheKey{target: target, darts: maxDarts}

	c.mu.RLock()
	if entry, ok := c.entries[key]; ok {
		c.mu.RUnlock()
		return cloneSequences(entry)
	}
	c.mu.RUnlock()

	result, _, _ := c.sf.Do(strconv.Itoa(target)+"/"+strconv.Itoa(maxDarts), func() (interface{}, error) {
		c.mu.RLock()
		if entry, ok := c.entries[key]; ok {
			c.mu.RUnlock()
			return entry, nil
		}
		c.mu.RUnlock()

		generated := Generate(target, maxDarts)
		c.mu.Lock()
		c.entries[key] = generated
		c.mu.Unlock()
		return generated, nil
	})
	return cloneSequences(result.([][]Throw))
}

func cloneSequences(in [][]Throw) [][]Throw {
	out := make([][]Throw, len(in))
	for i, seq := range in {
		out[i] = append([]Throw(nil), seq...)
	}
	return out
}
