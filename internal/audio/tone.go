package audio

import (
	"bytes"
	"encoding/binary"
	"fmt"
	"io"
	"math"
	"time"

	"github.com/macman10536/Adsb-alert/internal/alert"
)

// Tone is a beep pattern: Count beeps of Duration separated by Gap
type Tone struct {
	FreqHz   float64
	Duration time.Duration
	Count    int
	Gap      time.Duration
}

// Tones maps each alert category to its cue
var Tones = map[alert.Category]Tone{
	alert.CategoryCaution:   {FreqHz: 880, Duration: 120 * time.Millisecond, Count: 1},
	alert.CategoryWarning:   {FreqHz: 1100, Duration: 150 * time.Millisecond, Count: 2, Gap: 60 * time.Millisecond},
	alert.CategoryDanger:    {FreqHz: 1400, Duration: 180 * time.Millisecond, Count: 3, Gap: 50 * time.Millisecond},
	alert.CategoryOrbit:     {FreqHz: 660, Duration: 200 * time.Millisecond, Count: 1},
	alert.CategoryWatchlist: {FreqHz: 990, Duration: 120 * time.Millisecond, Count: 2, Gap: 80 * time.Millisecond},
}

// wavHeader is the canonical 44 byte header of a PCM WAV file
type wavHeader struct {
	RIFF            [4]byte
	OverallSize     uint32
	WAVE            [4]byte
	FmtChunkMarker  [4]byte
	LengthOfFmt     uint32
	FormatType      uint16
	Channels        uint16
	SampleRate      uint32
	ByteRate        uint32
	BlockAlign      uint16
	BitsPerSample   uint16
	DataChunkHeader [4]byte
	DataSize        uint32
}

// Synthesize renders the tone as 16 bit mono samples. Each beep fades in and
// out over min(200, n/4) samples to avoid clicks.
func (t Tone) Synthesize(sampleRate int, amplitude float64) []int16 {
	beepLen := max(1, int(float64(sampleRate)*t.Duration.Seconds()))
	gapLen := int(float64(sampleRate) * t.Gap.Seconds())
	count := max(1, t.Count)

	fade := min(200, beepLen/4)
	beep := make([]int16, beepLen)
	for i := range beep {
		v := amplitude * math.Sin(2*math.Pi*t.FreqHz*float64(i)/float64(sampleRate))
		if i < fade {
			v *= float64(i) / float64(fade)
		}
		if j := beepLen - 1 - i; j < fade {
			v *= float64(j) / float64(fade)
		}
		beep[i] = int16(v)
	}

	out := make([]int16, 0, count*beepLen+(count-1)*gapLen)
	for n := 0; n < count; n++ {
		if n > 0 {
			out = append(out, make([]int16, gapLen)...)
		}
		out = append(out, beep...)
	}
	return out
}

// WriteWAV writes samples as a mono 16 bit PCM WAV stream
func WriteWAV(w io.Writer, samples []int16, sampleRate int) error {
	const bitsPerSample = 16
	dataSize := uint32(len(samples) * bitsPerSample / 8)

	var header wavHeader
	copy(header.RIFF[:], "RIFF")
	header.OverallSize = 36 + dataSize
	copy(header.WAVE[:], "WAVE")
	copy(header.FmtChunkMarker[:], "fmt ")
	header.LengthOfFmt = 16
	header.FormatType = 1 // PCM
	header.Channels = 1
	header.SampleRate = uint32(sampleRate)
	header.ByteRate = uint32(sampleRate) * uint32(header.Channels) * bitsPerSample / 8
	header.BlockAlign = header.Channels * bitsPerSample / 8
	header.BitsPerSample = bitsPerSample
	copy(header.DataChunkHeader[:], "data")
	header.DataSize = dataSize

	var buf bytes.Buffer
	buf.Grow(44 + int(dataSize))
	if err := binary.Write(&buf, binary.LittleEndian, &header); err != nil {
		return fmt.Errorf("failed to encode wav header: %w", err)
	}
	if err := binary.Write(&buf, binary.LittleEndian, samples); err != nil {
		return fmt.Errorf("failed to encode wav samples: %w", err)
	}
	if _, err := w.Write(buf.Bytes()); err != nil {
		return fmt.Errorf("failed to write wav: %w", err)
	}
	return nil
}
