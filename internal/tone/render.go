package tone

import (
	"encoding/binary"
	"math"
	"time"

	"mitherapy/internal/pitch"
)

// Render synthesizes a mono triangle tone as signed 16-bit little-endian PCM.
// The buffer holds length plus the release tail.
func Render(pitchName string, length time.Duration, cfg Config) ([]byte, error) {
	note, err := pitch.Parse(pitchName)
	if err != nil {
		return nil, err
	}

	freq := note.Frequency()
	rate := float64(cfg.SampleRate)
	held := int(length.Seconds() * rate)
	release := int(cfg.Release.Seconds() * rate)
	attack := int(cfg.Attack.Seconds() * rate)

	total := held + release
	out := make([]byte, total*2)
	for i := 0; i < total; i++ {
		phase := math.Mod(float64(i)*freq/rate, 1)
		sample := 4*math.Abs(phase-0.5) - 1
		sample *= envelope(i, attack, held, release) * cfg.Volume
		binary.LittleEndian.PutUint16(out[i*2:], uint16(int16(clamp(sample)*math.MaxInt16)))
	}
	return out, nil
}

func envelope(i, attack, held, release int) float64 {
	switch {
	case attack > 0 && i < attack:
		return float64(i) / float64(attack)
	case i < held:
		return 1
	case release > 0:
		return 1 - float64(i-held)/float64(release)
	default:
		return 0
	}
}

func clamp(v float64) float64 {
	if v > 1 {
		return 1
	}
	if v < -1 {
		return -1
	}
	return v
}
