package midi

// MIDI message types
const (
	NoteOn  uint8 = 0x90
	NoteOff uint8 = 0x80
	CC      uint8 = 0xB0
)

// Event is an outgoing MIDI message
type Event struct {
	Type     uint8 // NoteOn, NoteOff, CC
	Channel  uint8
	Note     uint8 // controller number for CC
	Velocity uint8 // value for CC
}

// allNotesOff is CC 123
const allNotesOff uint8 = 123
