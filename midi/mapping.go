package midi

import (
	"math"

	"pipedream/notes"
)

// NoteFor returns the MIDI note nearest to the symbol's frequency
func NoteFor(s notes.Symbol) uint8 {
	return FreqToNote(notes.Frequency(s))
}

// FreqToNote returns the nearest MIDI note number for a frequency in Hz,
// clamped to 0-127
func FreqToNote(hz float64) uint8 {
	if hz <= 0 {
		return 0
	}
	n := math.Round(69 + 12*math.Log2(hz/440))
	return uint8(max(0, min(127, n)))
}

// SymbolFor maps any MIDI note onto the scale. The pitch class decides
// first (so a keyboard works in every octave), then the nearest octave.
func SymbolFor(note uint8) notes.Symbol {
	best := notes.LowG
	bestPC, bestAbs := 13, 128
	for _, s := range notes.All {
		diff := int(note) - int(NoteFor(s))
		pc := ((diff%12)+12)%12
		if pc > 6 {
			pc = 12 - pc
		}
		abs := diff
		if abs < 0 {
			abs = -abs
		}
		if pc < bestPC || (pc == bestPC && abs < bestAbs) {
			best, bestPC, bestAbs = s, pc, abs
		}
	}
	return best
}
