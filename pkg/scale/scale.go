// Package scale implements the Note/Scale/Key model: parsing, MIDI/Hz
// conversion and octave-range expansion used by the autotune orchestrator
// to snap a measured pitch contour onto a musical key.
package scale

import (
	"fmt"
	"math"
	"sort"
	"strconv"
	"strings"
)

// Note is one of the twelve chromatic pitch classes.
type Note int

const (
	C Note = iota
	Cs
	D
	Ds
	E
	F
	Fs
	G
	Gs
	A
	As
	B
)

var noteNames = [12]string{"C", "C#", "D", "D#", "E", "F", "F#", "G", "G#", "A", "A#", "B"}

func (n Note) String() string {
	if n < 0 || int(n) >= len(noteNames) {
		return fmt.Sprintf("Note(%d)", int(n))
	}
	return noteNames[n]
}

// Semitone returns the note's offset from C, in [0, 11].
func (n Note) Semitone() int {
	return int(n)
}

var noteAliases = map[string]Note{
	"c": C, "c#": Cs, "db": Cs,
	"d": D, "d#": Ds, "eb": Ds,
	"e": E,
	"f": F, "f#": Fs, "gb": Fs,
	"g": G, "g#": Gs, "ab": Gs,
	"a": A, "a#": As, "bb": As,
	"b": B,
}

// ParseNote parses a bare note name ("C", "F#", "Bb"), case-insensitively.
func ParseNote(s string) (Note, error) {
	n, ok := noteAliases[strings.ToLower(s)]
	if !ok {
		return 0, fmt.Errorf("%w: %q", ErrInvalidNoteName, s)
	}
	return n, nil
}

// Scale is a tagged variant of fixed semitone offsets from a key's root.
type Scale int

const (
	Major Scale = iota
	Minor
	Blues
	Pentatonic
	Chromatic
)

func (s Scale) String() string {
	switch s {
	case Major:
		return "Major"
	case Minor:
		return "Minor"
	case Blues:
		return "Blues"
	case Pentatonic:
		return "Pentatonic"
	case Chromatic:
		return "Chromatic"
	default:
		return fmt.Sprintf("Scale(%d)", int(s))
	}
}

// Offsets returns the scale's ordered semitone offsets from the root.
func (s Scale) Offsets() []int {
	switch s {
	case Major:
		return []int{0, 2, 4, 5, 7, 9, 11}
	case Minor:
		return []int{0, 2, 3, 5, 7, 8, 10}
	case Blues:
		return []int{0, 3, 5, 6, 7, 10}
	case Pentatonic:
		return []int{0, 2, 4, 7, 9}
	case Chromatic:
		return []int{0, 1, 2, 3, 4, 5, 6, 7, 8, 9, 10, 11}
	default:
		return nil
	}
}

// Key is a (root note, scale) pair.
type Key struct {
	Root  Note
	Scale Scale
}

// NewKey constructs a Key.
func NewKey(root Note, scale Scale) Key {
	return Key{Root: root, Scale: scale}
}

// ScaleMIDI produces, in ascending order, every MIDI pitch of the key in the
// inclusive octave range [o1,o2] (o1,o2 need not be ordered), clamped to
// [0,127] and deduplicated.
func (k Key) ScaleMIDI(o1, o2 int) []int {
	if o1 > o2 {
		o1, o2 = o2, o1
	}
	offsets := k.Scale.Offsets()
	seen := make(map[int]struct{})
	var out []int
	for o := o1; o <= o2; o++ {
		base := 12*(o+1) + k.Root.Semitone()
		for _, d := range offsets {
			m := base + d
			if m < 0 || m > 127 {
				continue
			}
			if _, ok := seen[m]; ok {
				continue
			}
			seen[m] = struct{}{}
			out = append(out, m)
		}
	}
	sort.Ints(out)
	return out
}

// ScaleFrequencies applies MIDIToFrequency pointwise over ScaleMIDI(o1,o2).
func (k Key) ScaleFrequencies(o1, o2 int) []float64 {
	midi := k.ScaleMIDI(o1, o2)
	freqs := make([]float64, len(midi))
	for i, m := range midi {
		freqs[i] = MIDIToFrequency(float64(m))
	}
	return freqs
}

// NoteName renders a MIDI pitch as a display name such as "F#3".
func NoteName(midi int) string {
	noteIndex := ((midi % 12) + 12) % 12
	octave := midi/12 - 1
	return fmt.Sprintf("%s%d", noteNames[noteIndex], octave)
}

// FrequencyToMIDI converts a frequency in Hz to a (fractional) MIDI pitch,
// equal-tempered with A4 = MIDI 69 = 440 Hz.
func FrequencyToMIDI(freqHz float64) float64 {
	return 69 + 12*math.Log2(freqHz/440)
}

// MIDIToFrequency converts a (fractional) MIDI pitch to Hz.
func MIDIToFrequency(midi float64) float64 {
	return 440 * math.Pow(2, (midi-69)/12)
}

var noteLetterSemitone = map[byte]int{
	'C': 0, 'D': 2, 'E': 4, 'F': 5, 'G': 7, 'A': 9, 'B': 11,
}

// ParseNoteName parses strings of the form "<LETTER>[#|b]<OCTAVE>", e.g.
// "F#3", "Bb-1", returning a whole-number MIDI value. The octave is read as
// a full signed integer, not a single character; a result outside [0,127]
// (such as "C10" = 132) fails with ErrInvalidNoteName.
func ParseNoteName(name string) (int, error) {
	if len(name) < 2 {
		return 0, fmt.Errorf("%w: %q", ErrInvalidNoteName, name)
	}
	letter := byte(strings.ToUpper(name[:1])[0])
	semitone, ok := noteLetterSemitone[letter]
	if !ok {
		return 0, fmt.Errorf("%w: %q", ErrInvalidNoteName, name)
	}

	rest := name[1:]
	accidental := 0
	if len(rest) > 0 && (rest[0] == '#' || rest[0] == 'b' || rest[0] == 'B') {
		switch rest[0] {
		case '#':
			accidental = 1
		default:
			accidental = -1
		}
		rest = rest[1:]
	}

	if rest == "" {
		return 0, fmt.Errorf("%w: missing octave in %q", ErrInvalidNoteName, name)
	}
	octave, err := strconv.Atoi(rest)
	if err != nil {
		return 0, fmt.Errorf("%w: invalid octave in %q", ErrInvalidNoteName, name)
	}

	midi := (octave+1)*12 + semitone + accidental
	if midi < 0 || midi > 127 {
		return 0, fmt.Errorf("%w: MIDI note out of range for %q", ErrInvalidNoteName, name)
	}
	return midi, nil
}
