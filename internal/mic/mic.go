// Package mic probes microphone access before recording starts.
package mic

import "errors"

// ErrNoInput means the host has no usable input device.
var ErrNoInput = errors.New("no microphone input device")
