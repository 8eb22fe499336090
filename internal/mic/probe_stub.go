//go:build !portaudio

package mic

import "context"

// Probe is a no-op without PortAudio; access problems surface when the
// recognizer starts instead. Build with '-tags portaudio' to probe.
func Probe(ctx context.Context) error {
	return ctx.Err()
}
