// Package home hosts the chat command surface. Each command file registers
// itself through sys.RegisterCommand in init(); the shared playback wiring
// happens once the gateway reports ready.
package home

import (
	"context"
	"sync"

	"github.com/disgoorg/disgo/bot"
	"github.com/disgoorg/disgo/discord"
	"github.com/disgoorg/disgo/events"
	"github.com/disgoorg/snowflake/v2"
	"golang.org/x/time/rate"

	"github.com/sorakane/hibiki/player"
	"github.com/sorakane/hibiki/resolve"
	"github.com/sorakane/hibiki/sys"
	"github.com/sorakane/hibiki/voice"
)

var (
	botClient *bot.Client
	system    *player.System
	engine    *voice.Discord
	resolver  *resolve.YouTube
	gateway   *messageGateway

	limiterMu sync.Mutex
	limiters  = map[snowflake.ID]*rate.Limiter{}
)

func init() {
	sys.OnClientReady(func(ctx context.Context, client *bot.Client) {
		botClient = client

		engine = voice.NewDiscord(client, sys.GlobalConfig.Proxy)
		resolver = resolve.New(sys.GlobalConfig.Proxy)
		gateway = &messageGateway{
			client:   client,
			channels: make(map[snowflake.ID]snowflake.ID),
		}

		system = player.NewSystem(engine, gateway)
		system.MaxQueueLength = sys.GlobalConfig.MaxQueueLength
		system.OnTrackStart = func(chatID snowflake.ID, t player.Track) {
			if err := sys.AddPlayHistory(sys.AppContext, chatID, t.Locator, t.Title, t.DurationSeconds()); err != nil {
				sys.LogDatabase("Failed to record play history for chat %s: %v", chatID, err)
			}
		}

		engine.OnStreamEnd = system.StreamEnded
		engine.OnChannelClosed = system.ChannelClosed

		sys.LogGateway("Command surface wired, prefix %q", sys.CommandPrefix)
	})

	sys.RegisterVoiceStateUpdateHandler(func(event *events.GuildVoiceStateUpdate) {
		if engine != nil {
			engine.HandleVoiceStateUpdate(event)
		}
	})
}

// Shutdown drains every playback session and leaves voice.
func Shutdown(ctx context.Context) {
	if system != nil {
		system.Shutdown(ctx)
	}
	if engine != nil {
		engine.Shutdown()
	}
}

// messageGateway posts player notifications into the text channel the chat
// last issued a command from.
type messageGateway struct {
	client *bot.Client

	mu       sync.Mutex
	channels map[snowflake.ID]snowflake.ID
}

func (g *messageGateway) bind(chatID, channelID snowflake.ID) {
	g.mu.Lock()
	g.channels[chatID] = channelID
	g.mu.Unlock()
}

func (g *messageGateway) SendNotification(chatID snowflake.ID, text string) {
	g.mu.Lock()
	channelID, ok := g.channels[chatID]
	g.mu.Unlock()
	if !ok {
		sys.LogGateway("No bound channel for chat %s, dropping: %s", chatID, text)
		return
	}
	if _, err := g.client.Rest.CreateMessage(channelID, discord.NewMessageCreate().WithContent(text)); err != nil {
		sys.LogGateway("Failed to notify chat %s: %v", chatID, err)
	}
}

// allowCommand throttles command handling per chat.
func allowCommand(chatID snowflake.ID) bool {
	limiterMu.Lock()
	l, ok := limiters[chatID]
	if !ok {
		l = rate.NewLimiter(rate.Limit(4), 10)
		limiters[chatID] = l
	}
	limiterMu.Unlock()
	return l.Allow()
}

// beginCommand does the shared per-command bookkeeping: rate limiting and
// binding the notification channel. Returns false when the command should
// be dropped.
func beginCommand(event *events.MessageCreate) (snowflake.ID, bool) {
	if system == nil || event.GuildID == nil {
		return 0, false
	}
	chatID := *event.GuildID
	if !allowCommand(chatID) {
		sys.LogDebug("Rate limited command in chat %s", chatID)
		return 0, false
	}
	gateway.bind(chatID, event.ChannelID)
	return chatID, true
}

func reply(event *events.MessageCreate, text string) *discord.Message {
	msg, err := botClient.Rest.CreateMessage(event.ChannelID, discord.NewMessageCreate().WithContent(text))
	if err != nil {
		sys.LogGateway("Failed to reply in channel %s: %v", event.ChannelID, err)
		return nil
	}
	return msg
}

// editOrReply updates an earlier progress message, falling back to a fresh
// reply when there is none.
func editOrReply(event *events.MessageCreate, msg *discord.Message, text string) {
	if msg == nil {
		reply(event, text)
		return
	}
	if _, err := botClient.Rest.UpdateMessage(msg.ChannelID, msg.ID, discord.NewMessageUpdate().WithContent(text)); err != nil {
		sys.LogGateway("Failed to edit message %s: %v", msg.ID, err)
	}
}

// callerVoiceChannel returns the voice channel the author currently sits in.
func callerVoiceChannel(event *events.MessageCreate) (snowflake.ID, bool) {
	vs, ok := botClient.Caches.VoiceState(*event.GuildID, event.Message.Author.ID)
	if !ok || vs.ChannelID == nil {
		return 0, false
	}
	return *vs.ChannelID, true
}
