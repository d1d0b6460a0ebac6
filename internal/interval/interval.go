// Package interval classifies semitone offsets into consonance classes for
// display. Classification is pure and symmetric: an interval below the
// melody is grouped like the same interval above it.
package interval

// Class is the consonance class of a semitone offset.
type Class int

const (
	// Unison is the zero offset, the original voice.
	Unison Class = iota

	// Perfect covers the intervals that blend almost transparently with
	// the original: major third, fifth, and octave.
	Perfect

	// Imperfect covers intervals that blend with audible colour: minor
	// third, fourth, and the sixths.
	Imperfect

	// Dissonant covers every remaining interval, seconds, sevenths, and
	// the tritone among them.
	Dissonant
)

// Classify maps a semitone offset to its consonance class. The sign of the
// offset does not matter.
func Classify(semitones int) Class {
	n := semitones
	if n < 0 {
		n = -n
	}
	switch n {
	case 0:
		return Unison
	case 4, 7, 12:
		return Perfect
	case 3, 5, 8, 9:
		return Imperfect
	default:
		return Dissonant
	}
}

// String returns a lower-case name for the class.
func (c Class) String() string {
	switch c {
	case Unison:
		return "unison"
	case Perfect:
		return "perfect"
	case Imperfect:
		return "imperfect"
	case Dissonant:
		return "dissonant"
	default:
		return "unknown"
	}
}

// Color returns a hex display colour for the class, used by the terminal
// grid to hint at how an offset will blend before it is auditioned.
func (c Class) Color() string {
	switch c {
	case Unison:
		return "#9e9e9e"
	case Perfect:
		return "#4caf50"
	case Imperfect:
		return "#2196f3"
	default:
		return "#f44336"
	}
}
