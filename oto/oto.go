// Package oto plays synth voices through github.com/ebitengine/oto/v3
package oto

import (
	"fmt"
	"io"

	"github.com/ebitengine/oto/v3"

	"pipedream/synth"
)

// Context adapts an oto context to synth.Context
type Context struct {
	ctx        *oto.Context
	ready      chan struct{}
	sampleRate int
}

// NewContext opens the audio device: stereo float32 at sampleRate. oto
// allows one context per process.
func NewContext(sampleRate int) (*Context, error) {
	ctx, ready, err := oto.NewContext(&oto.NewContextOptions{
		SampleRate:   sampleRate,
		ChannelCount: 2,
		Format:       oto.FormatFloat32LE,
	})
	if err != nil {
		return nil, fmt.Errorf("cannot create oto context: %w", err)
	}
	return &Context{ctx: ctx, ready: ready, sampleRate: sampleRate}, nil
}

// Opener returns a synth.Opener that calls NewContext
func Opener(sampleRate int) synth.Opener {
	return func() (synth.Context, error) {
		c, err := NewContext(sampleRate)
		if err != nil {
			return nil, err
		}
		return c, nil
	}
}

// NewPlayer implements synth.Context
func (c *Context) NewPlayer(r io.Reader) synth.Player {
	return c.ctx.NewPlayer(r)
}

// Ready implements synth.Context
func (c *Context) Ready() <-chan struct{} {
	return c.ready
}

// SampleRate implements synth.Context
func (c *Context) SampleRate() int {
	return c.sampleRate
}
