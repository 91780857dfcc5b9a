package home

import (
	"fmt"
	"strings"

	"github.com/disgoorg/disgo/events"

	"github.com/sorakane/hibiki/sys"
)

func init() {
	sys.RegisterCommand("queue", handleQueue)
}

// handleQueue renders the chat's current track and pending queue. Read-only,
// so it replies directly instead of going through the session.
func handleQueue(event *events.MessageCreate, _ string) {
	chatID, ok := beginCommand(event)
	if !ok {
		return
	}
	cur, pending, err := system.Snapshot(sys.AppContext, chatID)
	if err != nil {
		sys.LogPlayer("Snapshot failed in chat %s: %v", chatID, err)
		return
	}
	if cur == nil && len(pending) == 0 {
		reply(event, "📭 Queue is empty")
		return
	}

	var b strings.Builder
	if cur != nil {
		fmt.Fprintf(&b, "🎵 Now Playing: %s (%ds)\n", cur.Title, cur.DurationSeconds())
	}
	if len(pending) > 0 {
		b.WriteString("\n📋 Up Next:\n")
		for i, t := range pending {
			fmt.Fprintf(&b, "%d. %s (%ds)\n", i+1, t.Title, t.DurationSeconds())
		}
	}
	reply(event, strings.TrimRight(b.String(), "\n"))
}
