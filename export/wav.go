// Package export renders tunes to WAV files and moves saved-tune libraries
// in and out of the app as JSON or YAML.
package export

import (
	"fmt"
	"io"
	"math"
	"os"

	"github.com/go-audio/audio"
	"github.com/go-audio/wav"

	"pipedream/notes"
	"pipedream/synth"
)

// BitDepth of exported WAV files
const BitDepth = 16

// WriteWAV encodes mono float samples in [-1, 1] as 16-bit PCM
func WriteWAV(w io.WriteSeeker, samples []float32, sampleRate int) error {
	enc := wav.NewEncoder(w, sampleRate, BitDepth, 1, 1)
	buf := &audio.IntBuffer{
		Format: &audio.Format{
			NumChannels: 1,
			SampleRate:  sampleRate,
		},
		Data:           make([]int, len(samples)),
		SourceBitDepth: BitDepth,
	}
	for i, s := range samples {
		buf.Data[i] = int(math.Round(float64(max(-1, min(1, s))) * math.MaxInt16))
	}
	if err := enc.Write(buf); err != nil {
		return fmt.Errorf("write wav: %w", err)
	}
	if err := enc.Close(); err != nil {
		return fmt.Errorf("finish wav: %w", err)
	}
	return nil
}

// RenderWAV renders seq offline and writes it to path
func RenderWAV(path string, seq notes.Sequence, opts synth.RenderOptions) error {
	if len(seq) == 0 {
		return fmt.Errorf("nothing to render: the tune is empty")
	}
	samples := synth.Render(seq, opts)
	if samples == nil {
		return fmt.Errorf("render produced no audio (sample rate %d)", opts.SampleRate)
	}

	f, err := os.Create(path)
	if err != nil {
		return err
	}
	if err := WriteWAV(f, samples, opts.SampleRate); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}
