package player

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/disgoorg/snowflake/v2"

	"github.com/sorakane/hibiki/sys"
)

// System is the session registry: one Session per chat, created lazily on
// the first play and discarded on end or channel teardown. The registry
// map is the only structure shared across chats; each Session's state is
// touched only by its own actor.
type System struct {
	Engine  Engine
	Gateway Gateway

	// MaxQueueLength caps pending tracks per chat. 0 = unbounded.
	MaxQueueLength int

	// OnTrackStart, when set, is invoked from the session actor for every
	// track that successfully begins transmitting (history recording).
	OnTrackStart func(chatID snowflake.ID, t Track)

	mu       sync.Mutex
	sessions map[snowflake.ID]*Session
}

func NewSystem(engine Engine, gateway Gateway) *System {
	return &System{
		Engine:   engine,
		Gateway:  gateway,
		sessions: make(map[snowflake.ID]*Session),
	}
}

// getOrCreate returns the chat's live session, replacing one that finished
// tearing down. Atomic under concurrent calls for the same chat.
func (ps *System) getOrCreate(chatID snowflake.ID) *Session {
	ps.mu.Lock()
	defer ps.mu.Unlock()
	if s, ok := ps.sessions[chatID]; ok && !s.isClosed() {
		return s
	}
	s := newSession(ps, chatID)
	ps.sessions[chatID] = s
	go s.run()
	return s
}

func (ps *System) get(chatID snowflake.ID) *Session {
	ps.mu.Lock()
	defer ps.mu.Unlock()
	return ps.sessions[chatID]
}

// remove detaches a session, but only while the registry still holds that
// exact instance. A teardown completing late can never detach a fresh
// session created for the same chat in the meantime.
func (ps *System) remove(chatID snowflake.ID, s *Session) {
	ps.mu.Lock()
	defer ps.mu.Unlock()
	if cur, ok := ps.sessions[chatID]; ok && cur == s {
		delete(ps.sessions, chatID)
	}
}

// Play enqueues an already-resolved track, creating the session on demand.
// Retries once when the enqueue raced a session teardown.
func (ps *System) Play(ctx context.Context, chatID snowflake.ID, t Track) error {
	for range 2 {
		s := ps.getOrCreate(chatID)
		err := s.Enqueue(ctx, t)
		if !errors.Is(err, ErrSessionClosed) {
			return err
		}
	}
	return ErrSessionClosed
}

func (ps *System) Pause(ctx context.Context, chatID snowflake.ID) error {
	s := ps.get(chatID)
	if s == nil {
		ps.Gateway.SendNotification(chatID, "❌ No music is playing")
		return ErrNoActiveStream
	}
	err := s.Pause(ctx)
	if errors.Is(err, ErrSessionClosed) {
		ps.Gateway.SendNotification(chatID, "❌ No music is playing")
		return ErrNoActiveStream
	}
	return err
}

func (ps *System) Resume(ctx context.Context, chatID snowflake.ID) error {
	s := ps.get(chatID)
	if s == nil {
		ps.Gateway.SendNotification(chatID, "❌ No music is paused")
		return ErrNoActiveStream
	}
	err := s.Resume(ctx)
	if errors.Is(err, ErrSessionClosed) {
		ps.Gateway.SendNotification(chatID, "❌ No music is paused")
		return ErrNoActiveStream
	}
	return err
}

func (ps *System) Skip(ctx context.Context, chatID snowflake.ID) error {
	s := ps.get(chatID)
	if s == nil {
		ps.Gateway.SendNotification(chatID, "❌ No music is playing")
		return ErrNoActiveStream
	}
	err := s.Skip(ctx)
	if errors.Is(err, ErrSessionClosed) {
		ps.Gateway.SendNotification(chatID, "❌ No music is playing")
		return ErrNoActiveStream
	}
	return err
}

// End stops playback and discards the chat's session. Ending a chat with
// no session still confirms to the user, matching the command's
// unconditional contract.
func (ps *System) End(ctx context.Context, chatID snowflake.ID) error {
	s := ps.get(chatID)
	if s == nil {
		ps.Gateway.SendNotification(chatID, "🛑 Music stopped and queue cleared")
		return nil
	}
	if err := s.End(ctx); err != nil && !errors.Is(err, ErrSessionClosed) {
		return err
	}
	return nil
}

// Snapshot returns the chat's current track and pending queue, or empties
// when the chat has no session.
func (ps *System) Snapshot(ctx context.Context, chatID snowflake.ID) (*Track, []Track, error) {
	s := ps.get(chatID)
	if s == nil {
		return nil, nil, nil
	}
	cur, pending, err := s.Snapshot(ctx)
	if errors.Is(err, ErrSessionClosed) {
		return nil, nil, nil
	}
	return cur, pending, err
}

// State reports the chat's playback state, StateIdle when absent.
func (ps *System) State(ctx context.Context, chatID snowflake.ID) (State, error) {
	s := ps.get(chatID)
	if s == nil {
		return StateIdle, nil
	}
	st, err := s.State(ctx)
	if errors.Is(err, ErrSessionClosed) {
		return StateIdle, nil
	}
	return st, err
}

// StreamEnded is the engine's signal that the chat's current track finished
// naturally. Safe to deliver for unknown chats and idempotent against a
// racing skip or end.
func (ps *System) StreamEnded(chatID snowflake.ID) {
	if s := ps.get(chatID); s != nil {
		s.streamEnded()
	}
}

// ChannelClosed is the platform's signal that the chat's voice channel no
// longer exists. Unconditional cleanup, idempotent.
func (ps *System) ChannelClosed(chatID snowflake.ID) {
	if s := ps.get(chatID); s != nil {
		sys.LogPlayer("Voice channel closed in chat %s, discarding session", chatID)
		s.channelClosed()
	}
}

// Shutdown silently tears down every session and waits for their actors
// to drain, bounded by a short deadline per the caller's context.
func (ps *System) Shutdown(ctx context.Context) {
	ps.mu.Lock()
	sessions := make([]*Session, 0, len(ps.sessions))
	for _, s := range ps.sessions {
		sessions = append(sessions, s)
	}
	ps.mu.Unlock()

	for _, s := range sessions {
		s.terminate()
	}
	deadline := time.After(5 * time.Second)
	for _, s := range sessions {
		select {
		case <-s.closed:
		case <-ctx.Done():
			return
		case <-deadline:
			return
		}
	}
}
