package home

import (
	"github.com/disgoorg/disgo/events"

	"github.com/sorakane/hibiki/sys"
)

// Pause, resume, skip and end all delegate straight to the playback system;
// the owning session emits the outcome notification.
func init() {
	sys.RegisterCommand("pause", handlePause)
	sys.RegisterCommand("resume", handleResume)
	sys.RegisterCommand("skip", handleSkip)
	sys.RegisterCommand("end", handleEnd)
}

func handlePause(event *events.MessageCreate, _ string) {
	chatID, ok := beginCommand(event)
	if !ok {
		return
	}
	_ = system.Pause(sys.AppContext, chatID)
}

func handleResume(event *events.MessageCreate, _ string) {
	chatID, ok := beginCommand(event)
	if !ok {
		return
	}
	_ = system.Resume(sys.AppContext, chatID)
}

func handleSkip(event *events.MessageCreate, _ string) {
	chatID, ok := beginCommand(event)
	if !ok {
		return
	}
	_ = system.Skip(sys.AppContext, chatID)
}

func handleEnd(event *events.MessageCreate, _ string) {
	chatID, ok := beginCommand(event)
	if !ok {
		return
	}
	_ = system.End(sys.AppContext, chatID)
	engine.Disconnect(chatID)
}
