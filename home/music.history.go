package home

import (
	"fmt"
	"strings"

	"github.com/disgoorg/disgo/events"

	"github.com/sorakane/hibiki/sys"
)

const historyLimit = 10

func init() {
	sys.RegisterCommand("history", handleHistory)
}

func handleHistory(event *events.MessageCreate, _ string) {
	chatID, ok := beginCommand(event)
	if !ok {
		return
	}
	entries, err := sys.GetRecentHistory(sys.AppContext, chatID, historyLimit)
	if err != nil {
		sys.LogDatabase("History lookup failed for chat %s: %v", chatID, err)
		reply(event, "❌ Could not load history")
		return
	}
	if len(entries) == 0 {
		reply(event, "📭 No playback history yet")
		return
	}

	var b strings.Builder
	b.WriteString("🕘 Recently played:\n")
	for i, e := range entries {
		fmt.Fprintf(&b, "%d. %s (%ds)\n", i+1, e.Title, e.DurationSeconds)
	}
	reply(event, strings.TrimRight(b.String(), "\n"))
}
