package notes

import (
	"fmt"
	"strings"
)

// Symbol is one of the nine notes of the Highland bagpipe chanter
type Symbol uint8

const (
	LowG Symbol = iota
	LowA
	B
	C
	D
	E
	F
	HighG
	HighA

	numSymbols
)

// All lists every symbol, low to high
var All = [numSymbols]Symbol{LowG, LowA, B, C, D, E, F, HighG, HighA}

// DroneFrequency is the pitch of the A drone in Hz
const DroneFrequency = 240.0

// Sequence is an ordered list of notes as composed by the user
type Sequence []Symbol

// Valid reports whether s is one of the nine catalog symbols
func (s Symbol) Valid() bool {
	return s < numSymbols
}

// Frequency returns the chanter pitch in Hz. The values are fixed
// approximations, not derived from any temperament.
func Frequency(s Symbol) float64 {
	switch s {
	case LowG:
		return 414
	case LowA:
		return 466
	case B:
		return 524
	case C:
		return 583
	case D:
		return 629
	case E:
		return 699
	case F:
		return 777
	case HighG:
		return 839
	case HighA:
		return 932
	}
	panic(fmt.Sprintf("notes: invalid symbol %d", s))
}

// Label returns the display name
func Label(s Symbol) string {
	switch s {
	case LowG:
		return "Low G"
	case LowA:
		return "Low A"
	case B:
		return "B"
	case C:
		return "C"
	case D:
		return "D"
	case E:
		return "E"
	case F:
		return "F"
	case HighG:
		return "High G"
	case HighA:
		return "High A"
	}
	panic(fmt.Sprintf("notes: invalid symbol %d", s))
}

// ShortLabel splits "Low G" / "High A" over two lines for button grids
func ShortLabel(s Symbol) string {
	label := Label(s)
	if rest, ok := strings.CutPrefix(label, "Low "); ok {
		return "Low\n" + rest
	}
	if rest, ok := strings.CutPrefix(label, "High "); ok {
		return "High\n" + rest
	}
	return label
}

// Letter returns the home-row letter used both as the keyboard shortcut and
// as the share-code character
func Letter(s Symbol) byte {
	switch s {
	case LowG:
		return 'a'
	case LowA:
		return 's'
	case B:
		return 'd'
	case C:
		return 'f'
	case D:
		return 'g'
	case E:
		return 'h'
	case F:
		return 'j'
	case HighG:
		return 'k'
	case HighA:
		return 'l'
	}
	panic(fmt.Sprintf("notes: invalid symbol %d", s))
}

// FromLetter is the inverse of Letter. Letters are case-sensitive here; the
// share code is always lowercase.
func FromLetter(c byte) (Symbol, bool) {
	switch c {
	case 'a':
		return LowG, true
	case 's':
		return LowA, true
	case 'd':
		return B, true
	case 'f':
		return C, true
	case 'g':
		return D, true
	case 'h':
		return E, true
	case 'j':
		return F, true
	case 'k':
		return HighG, true
	case 'l':
		return HighA, true
	}
	return 0, false
}

// FromKey maps a key press (as bubbletea reports it) to a symbol. Case is
// ignored so caps lock does not break note entry.
func FromKey(key string) (Symbol, bool) {
	if len(key) != 1 {
		return 0, false
	}
	return FromLetter(strings.ToLower(key)[0])
}

// Key returns the single-character storage key ("G" for Low G, "g" for
// High G, ...)
func Key(s Symbol) string {
	switch s {
	case LowG:
		return "G"
	case LowA:
		return "A"
	case B:
		return "B"
	case C:
		return "C"
	case D:
		return "D"
	case E:
		return "E"
	case F:
		return "F"
	case HighG:
		return "g"
	case HighA:
		return "a"
	}
	panic(fmt.Sprintf("notes: invalid symbol %d", s))
}

// ParseKey is the inverse of Key
func ParseKey(k string) (Symbol, bool) {
	for _, s := range All {
		if Key(s) == k {
			return s, true
		}
	}
	return 0, false
}

func (s Symbol) String() string {
	if !s.Valid() {
		return fmt.Sprintf("Symbol(%d)", uint8(s))
	}
	return Label(s)
}

// MarshalText stores a symbol by its key so saved tunes read ["G","A","B"]
func (s Symbol) MarshalText() ([]byte, error) {
	if !s.Valid() {
		return nil, fmt.Errorf("invalid symbol %d", uint8(s))
	}
	return []byte(Key(s)), nil
}

func (s *Symbol) UnmarshalText(b []byte) error {
	sym, ok := ParseKey(string(b))
	if !ok {
		return fmt.Errorf("unknown note key %q", b)
	}
	*s = sym
	return nil
}

// Clone returns a copy that callers may modify freely
func (seq Sequence) Clone() Sequence {
	if seq == nil {
		return nil
	}
	out := make(Sequence, len(seq))
	copy(out, seq)
	return out
}

// Append returns a new sequence with s added at the end
func (seq Sequence) Append(s Symbol) Sequence {
	out := make(Sequence, len(seq), len(seq)+1)
	copy(out, seq)
	return append(out, s)
}

// RemoveAt returns a new sequence without the note at index i. Out of range
// indexes return an unchanged copy.
func (seq Sequence) RemoveAt(i int) Sequence {
	out := make(Sequence, 0, len(seq))
	for j, s := range seq {
		if j != i {
			out = append(out, s)
		}
	}
	return out
}

// Equal reports whether both sequences hold the same notes in the same order
func (seq Sequence) Equal(other Sequence) bool {
	if len(seq) != len(other) {
		return false
	}
	for i := range seq {
		if seq[i] != other[i] {
			return false
		}
	}
	return true
}

func (seq Sequence) String() string {
	labels := make([]string, len(seq))
	for i, s := range seq {
		labels[i] = s.String()
	}
	return strings.Join(labels, " ")
}
