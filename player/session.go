package player

import (
	"context"
	"errors"
	"fmt"

	"github.com/disgoorg/snowflake/v2"

	"github.com/sorakane/hibiki/sys"
)

// State is the playback state of one session.
type State int

const (
	StateIdle State = iota
	StateTransitioning
	StatePlaying
	StatePaused
)

func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateTransitioning:
		return "transitioning"
	case StatePlaying:
		return "playing"
	case StatePaused:
		return "paused"
	default:
		return "unknown"
	}
}

// Session owns the queue and playback state for one chat. All commands and
// engine events enter the same ordered inbox and are drained by a single
// actor goroutine, so operations for one chat never interleave. Sessions
// for different chats run fully independently.
type Session struct {
	ChatID snowflake.ID

	sys   *System
	queue Queue
	state State

	inbox   chan func()
	closed  chan struct{}
	closing bool

	ctx    context.Context
	cancel context.CancelFunc
}

func newSession(system *System, chatID snowflake.ID) *Session {
	ctx, cancel := context.WithCancel(context.Background())
	return &Session{
		ChatID: chatID,
		sys:    system,
		queue:  Queue{limit: system.MaxQueueLength},
		inbox:  make(chan func(), 16),
		closed: make(chan struct{}),
		ctx:    ctx,
		cancel: cancel,
	}
}

// run drains the inbox until an operation marks the session closing.
func (s *Session) run() {
	for {
		fn := <-s.inbox
		fn()
		if s.closing {
			close(s.closed)
			return
		}
	}
}

func (s *Session) isClosed() bool {
	select {
	case <-s.closed:
		return true
	default:
		return false
	}
}

// do posts an operation to the actor and waits for its result.
func (s *Session) do(ctx context.Context, fn func() error) error {
	errc := make(chan error, 1)
	select {
	case s.inbox <- func() { errc <- fn() }:
	case <-s.closed:
		return ErrSessionClosed
	case <-ctx.Done():
		return ctx.Err()
	}
	select {
	case err := <-errc:
		return err
	case <-s.closed:
		// The closing operation sends its result before the inbox loop
		// exits, so prefer a pending result over the closed signal.
		select {
		case err := <-errc:
			return err
		default:
			return ErrSessionClosed
		}
	}
}

// post submits a fire-and-forget operation (engine events). Ordering with
// respect to commands is preserved by the shared inbox.
func (s *Session) post(fn func()) {
	select {
	case s.inbox <- fn:
	case <-s.closed:
	}
}

func (s *Session) notify(text string) {
	s.sys.Gateway.SendNotification(s.ChatID, text)
}

// --- Operations (each body runs inside the actor) ---

// Enqueue appends a resolved track and starts playback when idle.
func (s *Session) Enqueue(ctx context.Context, t Track) error {
	return s.do(ctx, func() error {
		if err := s.queue.Enqueue(t); err != nil {
			s.notify(fmt.Sprintf("❌ Queue is full (max %d tracks)", s.queue.limit))
			return err
		}
		if s.state == StateIdle {
			s.advance()
			return nil
		}
		s.notify(fmt.Sprintf("✅ Added to queue: %s", t.Title))
		return nil
	})
}

// Pause suspends the current transmission.
func (s *Session) Pause(ctx context.Context) error {
	return s.do(ctx, func() error {
		if s.state != StatePlaying {
			s.notify("❌ No music is playing")
			return ErrNoActiveStream
		}
		if err := s.sys.Engine.Pause(s.ChatID); err != nil {
			if errors.Is(err, ErrNoActiveStream) {
				s.notify("❌ No music is playing")
				return err
			}
			s.notify(fmt.Sprintf("❌ Pause failed: %v", err))
			return err
		}
		s.state = StatePaused
		s.notify("⏸️ Music paused")
		return nil
	})
}

// Resume continues a paused transmission.
func (s *Session) Resume(ctx context.Context) error {
	return s.do(ctx, func() error {
		if s.state != StatePaused {
			s.notify("❌ No music is paused")
			return ErrNoActiveStream
		}
		if err := s.sys.Engine.Resume(s.ChatID); err != nil {
			if errors.Is(err, ErrNoActiveStream) {
				s.notify("❌ No music is paused")
				return err
			}
			s.notify(fmt.Sprintf("❌ Resume failed: %v", err))
			return err
		}
		s.state = StatePlaying
		s.notify("▶️ Music resumed")
		return nil
	})
}

// Skip force-advances past the current track.
func (s *Session) Skip(ctx context.Context) error {
	return s.do(ctx, func() error {
		if s.queue.Current() == nil {
			s.notify("❌ No music is playing")
			return ErrNoActiveStream
		}
		s.stopTransmission()
		s.queue.SetCurrent(nil)
		s.advance()
		return nil
	})
}

// End stops playback, clears the queue and tears the session down.
func (s *Session) End(ctx context.Context) error {
	return s.do(ctx, func() error {
		s.stopTransmission()
		s.queue.Clear()
		s.state = StateIdle
		s.notify("🛑 Music stopped and queue cleared")
		s.shutdown()
		return nil
	})
}

// Snapshot returns a consistent view of the current and pending tracks.
func (s *Session) Snapshot(ctx context.Context) (*Track, []Track, error) {
	var cur *Track
	var pending []Track
	err := s.do(ctx, func() error {
		cur, pending = s.queue.Snapshot()
		return nil
	})
	return cur, pending, err
}

// State reports the playback state as observed between operations.
func (s *Session) State(ctx context.Context) (State, error) {
	st := StateIdle
	err := s.do(ctx, func() error {
		st = s.state
		return nil
	})
	return st, err
}

// streamEnded handles the engine's natural end-of-stream event. A racing
// skip or end already cleared the current slot, in which case this is a
// no-op rather than a double advance.
func (s *Session) streamEnded() {
	s.post(func() {
		if s.queue.Current() == nil {
			sys.LogPlayer("Stale stream-end event for chat %s ignored", s.ChatID)
			return
		}
		s.queue.SetCurrent(nil)
		s.advance()
	})
}

// channelClosed handles the platform tearing down the voice channel.
// Cleanup only, no user notification.
func (s *Session) channelClosed() {
	s.post(func() {
		s.stopTransmission()
		s.queue.Clear()
		s.state = StateIdle
		s.shutdown()
	})
}

// terminate is the silent process-shutdown path.
func (s *Session) terminate() {
	s.post(func() {
		s.stopTransmission()
		s.queue.Clear()
		s.state = StateIdle
		s.shutdown()
	})
}

// --- Internals (actor-only) ---

// advance pops pending tracks until one begins transmitting or the queue
// is exhausted. Shared by play-on-idle, skip and stream-end.
func (s *Session) advance() {
	s.state = StateTransitioning
	for {
		t, ok := s.queue.DequeueNext()
		if !ok {
			s.queue.SetCurrent(nil)
			s.state = StateIdle
			s.notify("✅ Queue finished")
			return
		}
		if err := s.sys.Engine.BeginTransmission(s.ctx, s.ChatID, t.Locator); err != nil {
			sys.LogPlayer("Transmission failed for %q in chat %s: %v", t.Title, s.ChatID, err)
			s.notify(fmt.Sprintf("❌ Error playing: %s", t.Title))
			continue
		}
		s.queue.SetCurrent(&t)
		s.state = StatePlaying
		s.notify(fmt.Sprintf("🎵 Now Playing: %s (%ds)", t.Title, t.DurationSeconds()))
		sys.LogPlayer("Now playing in chat %s: %s [%s]", s.ChatID, t.Title, t.Duration)
		if s.sys.OnTrackStart != nil {
			s.sys.OnTrackStart(s.ChatID, t)
		}
		return
	}
}

// stopTransmission stops the engine best-effort. Already-idle errors are
// expected when racing a natural stream end.
func (s *Session) stopTransmission() {
	if err := s.sys.Engine.EndTransmission(s.ChatID); err != nil && !errors.Is(err, ErrNotActive) {
		sys.LogPlayer("End transmission failed for chat %s: %v", s.ChatID, err)
	}
}

// shutdown marks the session closing and detaches it from the registry.
// The inbox loop closes s.closed right after the current operation returns.
func (s *Session) shutdown() {
	s.closing = true
	s.cancel()
	s.sys.remove(s.ChatID, s)
}
