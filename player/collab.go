package player

import (
	"context"

	"github.com/disgoorg/snowflake/v2"
)

// Engine is the streaming collaborator. Begin/End/Pause/Resume calls may be
// slow; they are only ever issued from the owning session's actor goroutine,
// so an engine implementation does not need to serialize per chat itself.
type Engine interface {
	// BeginTransmission starts streaming the locator into the chat's voice
	// channel. It returns once the transmission is established.
	BeginTransmission(ctx context.Context, chatID snowflake.ID, locator string) error

	// EndTransmission stops the chat's active transmission. Returns
	// ErrNotActive when there is none. An engine must NOT report a
	// transmission ended this way as a streamEnded event.
	EndTransmission(chatID snowflake.ID) error

	// Pause and Resume return ErrNoActiveStream when the chat has no
	// stream in the matching state.
	Pause(chatID snowflake.ID) error
	Resume(chatID snowflake.ID) error
}

// Gateway is the messaging collaborator used for outbound notifications.
type Gateway interface {
	SendNotification(chatID snowflake.ID, text string)
}

// Resolver turns a free-text query or URL into a playable Track.
// Resolution is side-effect-free on session state and may be slow; callers
// must never invoke it while holding session ordering (the dispatcher
// resolves before handing the track to the System).
type Resolver interface {
	Resolve(ctx context.Context, query string) (Track, error)
}
