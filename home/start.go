package home

import (
	"github.com/disgoorg/disgo/events"

	"github.com/sorakane/hibiki/sys"
)

const startText = `🎵 Music Bot

/play <song or URL> - Play or queue a song
/pause - Pause playback
/resume - Resume playback
/skip - Skip the current song
/queue - Show the queue
/history - Recently played songs
/end - Stop playback and clear the queue`

func init() {
	sys.RegisterCommand("start", handleStart)
	sys.RegisterCommand("help", handleStart)
}

func handleStart(event *events.MessageCreate, _ string) {
	if _, ok := beginCommand(event); !ok {
		return
	}
	reply(event, startText)
}
