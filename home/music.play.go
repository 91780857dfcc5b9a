package home

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/disgoorg/disgo/events"

	"github.com/sorakane/hibiki/player"
	"github.com/sorakane/hibiki/sys"
)

func init() {
	sys.RegisterCommand("play", handlePlay)
}

// handlePlay resolves the query, joins the caller's voice channel and hands
// the track to the playback system. Resolution happens here, before the
// session sees anything, so a slow lookup never blocks the chat's queue.
func handlePlay(event *events.MessageCreate, args string) {
	chatID, ok := beginCommand(event)
	if !ok {
		return
	}
	if args == "" {
		reply(event, "❌ Usage: /play <song name or URL>")
		return
	}
	channelID, inVoice := callerVoiceChannel(event)
	if !inVoice {
		reply(event, "❌ Join a voice channel first")
		return
	}

	progress := reply(event, "🔍 Searching...")

	ctx, cancel := context.WithTimeout(sys.AppContext, 60*time.Second)
	defer cancel()

	track, err := resolver.Resolve(ctx, args)
	if err != nil {
		if errors.Is(err, player.ErrNotFound) {
			editOrReply(event, progress, "❌ No results found")
		} else {
			sys.LogResolver("Resolution failed in chat %s: %v", chatID, err)
			editOrReply(event, progress, "❌ Search failed, try again later")
		}
		return
	}
	editOrReply(event, progress, fmt.Sprintf("✅ Found: %s", track.Title))

	if err := engine.Connect(ctx, chatID, channelID); err != nil {
		sys.LogVoice("Join failed in chat %s: %v", chatID, err)
		reply(event, "❌ Could not join your voice channel")
		return
	}

	if err := system.Play(ctx, chatID, track); err != nil {
		sys.LogPlayer("Play failed in chat %s: %v", chatID, err)
	}
}
