// Package darts models dart throws and the checkout rules built on them:
// notation, validation of finishing sequences and checkout generation.
package darts

import (
	"errors"
	"fmt"
	"regexp"
	"strconv"
	"strings"
)

// Bull is the segment number used for both the outer and inner bull.
const Bull = 25

var (
	// ErrInvalidSegment is returned for segments outside 1-20 and 25.
	ErrInvalidSegment = errors.New("invalid dart segment")
	// ErrInvalidMultiplier is returned for multipliers other than single, double or triple.
	ErrInvalidMultiplier = errors.New("invalid multiplier")
	// ErrInvalidCombination is returned for a triple bull.
	ErrInvalidCombination = errors.New("invalid segment and multiplier combination")
	// ErrUnrecognizedNotation is returned when a notation code cannot be parsed.
	ErrUnrecognizedNotation = errors.New("unrecognized dart notation")
)

// Multiplier is the ring a dart lands in.
type Multiplier int

const (
	Single Multiplier = 1
	Double Multiplier = 2
	Triple Multiplier = 3
)

// multipliers lists the rings in search order.
var multipliers = []Multiplier{Single, Double, Triple}

// Valid reports whether m is one of the three rings.
func (m Multiplier) Valid() bool {
	return m == Single || m == Double || m == Triple
}

// Letter returns the notation prefix: S, D or T.
func (m Multiplier) Letter() string {
	switch m {
	case Single:
		return "S"
	case Double:
		return "D"
	case Triple:
		return "T"
	default:
		return "?"
	}
}

func (m Multiplier) String() string {
	switch m {
	case Single:
		return "Single"
	case Double:
		return "Double"
	case Triple:
		return "Triple"
	default:
		return "Multiplier(" + strconv.Itoa(int(m)) + ")"
	}
}

// ParseMultiplier maps S, D or T (any case) to a Multiplier.
func ParseMultiplier(letter string) (Multiplier, error) {
	switch strings.ToUpper(letter) {
	case "S":
		return Single, nil
	case "D":
		return Double, nil
	case "T":
		return Triple, nil
	}
	return 0, fmt.Errorf("%w: %q", ErrInvalidMultiplier, letter)
}

// Segments returns the scoring segments of a board, bull last.
func Segments() []int {
	segments := make([]int, 0, 21)
	for s := 1; s <= 20; s++ {
		segments = append(segments, s)
	}
	return append(segments, Bull)
}

// ValidSegment reports whether segment exists on a board.
func ValidSegment(segment int) bool {
	return (segment >= 1 && segment <= 20) || segment == Bull
}

// Throw is one dart's contribution to a visit.
type Throw struct {
	Segment    int        `json:"segment"`
	Multiplier Multiplier `json:"multiplier"`
	Value      int        `json:"value"`
}

// Value returns the points scored by a dart in segment and ring m.
func Value(segment int, m Multiplier) (int, error) {
	if !ValidSegment(segment) {
		return 0, fmt.Errorf("%w: %d", ErrInvalidSegment, segment)
	}
	if !m.Valid() {
		return 0, fmt.Errorf("%w: %d", ErrInvalidMultiplier, int(m))
	}
	if segment == Bull {
		switch m {
		case Single:
			return 25, nil
		case Double:
			return 50, nil
		default:
			return 0, fmt.Errorf("%w: triple bull", ErrInvalidCombination)
		}
	}
	return segment * int(m), nil
}

// NewThrow builds a Throw with its derived value.
func NewThrow(segment int, m Multiplier) (Throw, error) {
	v, err := Value(segment, m)
	if err != nil {
		return Throw{}, err
	}
	return Throw{Segment: segment, Multiplier: m, Value: v}, nil
}

// MustThrow is NewThrow for static tables; it panics on an illegal dart.
func MustThrow(segment int, m Multiplier) Throw {
	t, err := NewThrow(segment, m)
	if err != nil {
		panic(err)
	}
	return t
}

// IsDouble reports whether the dart can finish a leg.
func (t Throw) IsDouble() bool {
	return t.Multiplier == Double
}

// Notation returns the machine code for the throw, e.g. T20 or DBull.
func (t Throw) Notation() string {
	return FormatNotation(t.Segment, t.Multiplier)
}

// Display returns the human label for the throw.
func (t Throw) Display() string {
	return Display(t.Segment, t.Multiplier)
}

func (t Throw) String() string {
	return t.Notation()
}

var notationPattern = regexp.MustCompile(`(?i)^([SDT])(\d{1,2}|bull)$`)

// ParseNotation parses codes such as S20, D8, T19, DBull and SBull.
func ParseNotation(code string) (Throw, error) {
	match := notationPattern.FindStringSubmatch(strings.TrimSpace(code))
	if match == nil {
		return Throw{}, fmt.Errorf("%w: %q", ErrUnrecognizedNotation, code)
	}
	m, err := ParseMultiplier(match[1])
	if err != nil {
		return Throw{}, err
	}
	segment := Bull
	if !strings.EqualFold(match[2], "bull") {
		segment, err = strconv.Atoi(match[2])
		if err != nil {
			return Throw{}, fmt.Errorf("%w: %q", ErrUnrecognizedNotation, code)
		}
	}
	t, err := NewThrow(segment, m)
	if err != nil {
		return Throw{}, fmt.Errorf("%w: %q: %v", ErrUnrecognizedNotation, code, err)
	}
	return t, nil
}

// ParseNotations parses a list of codes, failing on the first bad one.
func ParseNotations(codes []string) ([]Throw, error) {
	throws := make([]Throw, 0, len(codes))
	for _, code := range codes {
		t, err := ParseNotation(code)
		if err != nil {
			return nil, err
		}
		throws = append(throws, t)
	}
	return throws, nil
}

// FormatNotation is the inverse of ParseNotation.
func FormatNotation(segment int, m Multiplier) string {
	if segment == Bull {
		return m.Letter() + "Bull"
	}
	return m.Letter() + strconv.Itoa(segment)
}

// Display renders a dart for people: "Triple 20", "Bull", "Outer Bull".
func Display(segment int, m Multiplier) string {
	if segment == Bull {
		if m == Double {
			return "Bull"
		}
		return "Outer Bull"
	}
	return m.String() + " " + strconv.Itoa(segment)
}

// Notations renders a sequence of throws as machine codes.
func Notations(throws []Throw) []string {
	out := make([]string, len(throws))
	for i, t := range throws {
		out[i] = t.Notation()
	}
	return out
}

// Values returns the point value of each throw.
func Values(throws []Throw) []int {
	out := make([]int, len(throws))
	for i, t := range throws {
		out[i] = t.Value
	}
	return out
}

// Total sums the throws.
func Total(throws []Throw) int {
	total := 0
	for _, t := range throws {
		total += t.Value
	}
	return total
}
