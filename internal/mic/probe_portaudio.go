//go:build portaudio

package mic

import (
	"context"
	"fmt"

	"github.com/gordonklaus/portaudio"
)

const (
	probeSampleRate = 16000
	probeFrames     = 320
)

// Probe opens the default input device and releases it immediately. No
// audio is kept.
func Probe(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if err := portaudio.Initialize(); err != nil {
		return fmt.Errorf("portaudio init: %w", err)
	}
	defer portaudio.Terminate()

	dev, err := portaudio.DefaultInputDevice()
	if err != nil || dev == nil || dev.MaxInputChannels < 1 {
		return ErrNoInput
	}

	buf := make([]int16, probeFrames)
	stream, err := portaudio.OpenDefaultStream(1, 0, probeSampleRate, probeFrames, buf)
	if err != nil {
		return fmt.Errorf("open microphone: %w", err)
	}
	defer stream.Close()

	if err := stream.Start(); err != nil {
		return fmt.Errorf("start microphone: %w", err)
	}
	return stream.Stop()
}
