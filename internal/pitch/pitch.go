// Package pitch parses scientific pitch names such as "G4" or "Bb3".
package pitch

import (
	"fmt"
	"math"
	"strconv"
	"strings"
)

var noteNames = [12]string{"C", "C#", "D", "D#", "E", "F", "F#", "G", "G#", "A", "A#", "B"}

var naturals = map[byte]int{'C': 0, 'D': 2, 'E': 4, 'F': 5, 'G': 7, 'A': 9, 'B': 11}

// Note is a MIDI note number.
type Note int

// Parse converts names like "C4", "g#3" or "Bb2" into a Note.
func Parse(name string) (Note, error) {
	trimmed := strings.TrimSpace(name)
	if len(trimmed) < 2 {
		return 0, fmt.Errorf("invalid pitch %q", name)
	}

	semitone, ok := naturals[byte(strings.ToUpper(trimmed[:1])[0])]
	if !ok {
		return 0, fmt.Errorf("invalid pitch %q: unknown note letter", name)
	}

	rest := trimmed[1:]
	switch rest[0] {
	case '#':
		semitone++
		rest = rest[1:]
	case 'b':
		semitone--
		rest = rest[1:]
	}

	octave, err := strconv.Atoi(rest)
	if err != nil {
		return 0, fmt.Errorf("invalid pitch %q: bad octave", name)
	}
	if octave < 0 || octave > 8 {
		return 0, fmt.Errorf("invalid pitch %q: octave out of range", name)
	}

	return Note((octave+1)*12 + semitone), nil
}

// Frequency returns the equal-tempered frequency with A4 = 440 Hz.
func (n Note) Frequency() float64 {
	return 440 * math.Pow(2, float64(int(n)-69)/12)
}

func (n Note) String() string {
	if n < 0 {
		return fmt.Sprintf("?%d", int(n))
	}
	return fmt.Sprintf("%s%d", noteNames[int(n)%12], int(n)/12-1)
}
