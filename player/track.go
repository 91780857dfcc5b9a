package player

import (
	"time"
)

// Track is the resolved, immutable descriptor of one playable piece of audio.
// Instances are created by a Resolver and never mutated afterwards.
type Track struct {
	// Locator is the opaque playable reference handed to the Engine,
	// typically a canonical watch URL.
	Locator   string
	Title     string
	Duration  time.Duration // 0 = unknown
	Thumbnail string        // optional artwork URL
}

// DurationSeconds returns the track length in whole seconds, 0 when unknown.
func (t Track) DurationSeconds() int {
	return int(t.Duration / time.Second)
}
