package player_test

import (
	"context"
	"testing"
	"time"

	"github.com/disgoorg/snowflake/v2"
	"github.com/stretchr/testify/require"

	"github.com/sorakane/hibiki/player"
)

func TestControlsWithoutSessionNotify(t *testing.T) {
	e := newFakeEngine()
	g := newFakeGateway()
	ps := player.NewSystem(e, g)
	chat := snowflake.ID(300)
	ctx := context.Background()

	require.ErrorIs(t, ps.Pause(ctx, chat), player.ErrNoActiveStream)
	require.ErrorIs(t, ps.Resume(ctx, chat), player.ErrNoActiveStream)
	require.ErrorIs(t, ps.Skip(ctx, chat), player.ErrNoActiveStream)
	require.Equal(t, []string{
		"❌ No music is playing",
		"❌ No music is paused",
		"❌ No music is playing",
	}, g.all(chat))

	st, err := ps.State(ctx, chat)
	require.NoError(t, err)
	require.Equal(t, player.StateIdle, st)
}

func TestShutdownDrainsAllSessions(t *testing.T) {
	e := newFakeEngine()
	g := newFakeGateway()
	ps := player.NewSystem(e, g)
	ctx := context.Background()
	a, b := snowflake.ID(301), snowflake.ID(302)

	require.NoError(t, ps.Play(ctx, a, tr("s1", "Song1", 180)))
	require.NoError(t, ps.Play(ctx, b, tr("s2", "Song2", 200)))
	notesA, notesB := g.all(a), g.all(b)

	shutdownCtx, cancel := context.WithTimeout(ctx, time.Second)
	defer cancel()
	ps.Shutdown(shutdownCtx)

	// Teardown is silent and stops every transmission.
	require.Equal(t, notesA, g.all(a))
	require.Equal(t, notesB, g.all(b))
	require.Equal(t, 2, e.endedCount())

	st, err := ps.State(ctx, a)
	require.NoError(t, err)
	require.Equal(t, player.StateIdle, st)
}

func TestLateEventsAfterTeardownAreDropped(t *testing.T) {
	e := newFakeEngine()
	g := newFakeGateway()
	ps := player.NewSystem(e, g)
	chat := snowflake.ID(303)
	ctx := context.Background()

	require.NoError(t, ps.Play(ctx, chat, tr("s1", "Song1", 180)))
	require.NoError(t, ps.End(ctx, chat))
	before := g.all(chat)

	// Engine events arriving after the session is gone must not revive it
	// or notify anyone.
	ps.StreamEnded(chat)
	ps.ChannelClosed(chat)
	time.Sleep(20 * time.Millisecond)
	require.Equal(t, before, g.all(chat))
}
