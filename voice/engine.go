// Package voice streams audio into Discord voice channels. It implements
// player.Engine on top of disgo's voice manager, with yt-dlp extracting
// direct audio URLs and ffmpeg transcoding them to Ogg/Opus.
package voice

import (
	"bufio"
	"context"
	"fmt"
	"os/exec"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/disgoorg/disgo/bot"
	"github.com/disgoorg/disgo/events"
	"github.com/disgoorg/disgo/voice"
	"github.com/disgoorg/snowflake/v2"
	"github.com/lrstanley/go-ytdlp"

	"github.com/sorakane/hibiki/player"
	"github.com/sorakane/hibiki/sys"
)

// Discord is the streaming engine. One voice connection per chat; at most
// one active stream per connection.
type Discord struct {
	client *bot.Client

	// Proxy is forwarded to yt-dlp for stream URL extraction.
	Proxy string

	// OnStreamEnd receives natural end-of-stream events. It is never fired
	// for transmissions stopped through EndTransmission or Disconnect.
	OnStreamEnd func(chatID snowflake.ID)

	// OnChannelClosed fires when the bot is dropped from a voice channel by
	// an external event (kick, channel deleted).
	OnChannelClosed func(chatID snowflake.ID)

	mu    sync.Mutex
	conns map[snowflake.ID]*guildStream
}

type guildStream struct {
	conn      voice.Conn
	channelID snowflake.ID
	active    *stream
}

type stream struct {
	cancel   context.CancelFunc
	cmd      *exec.Cmd
	provider *oggProvider

	// stopped marks a user-initiated stop so the supervisor never reports
	// it as a natural end.
	stopped atomic.Bool
}

func NewDiscord(client *bot.Client, proxy string) *Discord {
	return &Discord{
		client: client,
		Proxy:  proxy,
		conns:  make(map[snowflake.ID]*guildStream),
	}
}

// Connect joins the chat's voice channel, moving if already connected
// elsewhere. No-op when already on the requested channel.
func (d *Discord) Connect(ctx context.Context, chatID, channelID snowflake.ID) error {
	d.mu.Lock()
	if g, ok := d.conns[chatID]; ok {
		if g.channelID == channelID {
			d.mu.Unlock()
			return nil
		}
		d.mu.Unlock()
		d.Disconnect(chatID)
		d.mu.Lock()
	}
	conn := d.client.VoiceManager.CreateConn(chatID)
	g := &guildStream{conn: conn, channelID: channelID}
	d.conns[chatID] = g
	d.mu.Unlock()

	openCtx, cancel := context.WithTimeout(ctx, 15*time.Second)
	defer cancel()
	if err := conn.Open(openCtx, channelID, false, false); err != nil {
		d.mu.Lock()
		if d.conns[chatID] == g {
			delete(d.conns, chatID)
		}
		d.mu.Unlock()
		return fmt.Errorf("voice connect failed: %w", err)
	}
	sys.LogVoice("Connected to channel %s in chat %s", channelID, chatID)
	return nil
}

// Disconnect stops any active stream and leaves the chat's voice channel.
func (d *Discord) Disconnect(chatID snowflake.ID) {
	_ = d.EndTransmission(chatID)

	d.mu.Lock()
	g, ok := d.conns[chatID]
	if ok {
		delete(d.conns, chatID)
	}
	d.mu.Unlock()
	if !ok {
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	g.conn.Close(ctx)
	sys.LogVoice("Disconnected from voice in chat %s", chatID)
}

// Shutdown leaves every connected voice channel.
func (d *Discord) Shutdown() {
	d.mu.Lock()
	ids := make([]snowflake.ID, 0, len(d.conns))
	for id := range d.conns {
		ids = append(ids, id)
	}
	d.mu.Unlock()
	for _, id := range ids {
		d.Disconnect(id)
	}
}

// BeginTransmission implements player.Engine. It extracts a direct audio URL
// for the locator, spawns ffmpeg and starts feeding Opus frames into the
// chat's voice connection. Returns once frames are flowing to the gateway.
func (d *Discord) BeginTransmission(ctx context.Context, chatID snowflake.ID, locator string) error {
	d.mu.Lock()
	g, ok := d.conns[chatID]
	d.mu.Unlock()
	if !ok {
		return fmt.Errorf("not connected to a voice channel in chat %s", chatID)
	}

	// A leftover stream means the caller raced a teardown; clear it first.
	_ = d.EndTransmission(chatID)

	streamURL, err := d.extractStreamURL(ctx, locator)
	if err != nil {
		return err
	}

	sctx, cancel := context.WithCancel(context.Background())
	cmd := exec.CommandContext(sctx, "ffmpeg", ffmpegArgs(streamURL)...)
	stdout, err := cmd.StdoutPipe()
	if err != nil {
		cancel()
		return err
	}
	stderr, _ := cmd.StderrPipe()
	if err := cmd.Start(); err != nil {
		cancel()
		return fmt.Errorf("ffmpeg start: %w", err)
	}

	go func() {
		scanner := bufio.NewScanner(stderr)
		for scanner.Scan() {
			sys.LogDebug("ffmpeg [%s]: %s", chatID, scanner.Text())
		}
	}()

	st := &stream{cancel: cancel, cmd: cmd}
	done := make(chan struct{})
	st.provider = newOggProvider(stdout, func() { close(done) })

	d.mu.Lock()
	g.active = st
	d.mu.Unlock()

	g.conn.SetOpusFrameProvider(st.provider)
	if err := g.conn.SetSpeaking(ctx, voice.SpeakingFlagMicrophone); err != nil {
		sys.LogVoice("SetSpeaking failed in chat %s: %v", chatID, err)
	}
	sys.LogVoice("Transmission started in chat %s: %s", chatID, locator)

	go d.supervise(chatID, g, st, done, sctx)
	return nil
}

// supervise waits for the stream to drain, reaps ffmpeg and reports natural
// ends. A stream detached by EndTransmission only gets reaped.
func (d *Discord) supervise(chatID snowflake.ID, g *guildStream, st *stream, done <-chan struct{}, sctx context.Context) {
	select {
	case <-done:
		time.Sleep(100 * time.Millisecond)
	case <-sctx.Done():
	}

	if st.cmd.Process != nil {
		_ = st.cmd.Process.Kill()
	}
	_ = st.cmd.Wait()
	st.cancel()

	d.mu.Lock()
	mine := g.active == st
	if mine {
		g.active = nil
	}
	d.mu.Unlock()
	if !mine {
		return
	}

	g.conn.SetOpusFrameProvider(nil)
	_ = g.conn.SetSpeaking(context.Background(), 0)

	if !st.stopped.Load() && d.OnStreamEnd != nil {
		sys.LogVoice("Stream ended naturally in chat %s", chatID)
		d.OnStreamEnd(chatID)
	}
}

// EndTransmission implements player.Engine. Stops the chat's active stream
// without emitting a stream-end event.
func (d *Discord) EndTransmission(chatID snowflake.ID) error {
	d.mu.Lock()
	g, ok := d.conns[chatID]
	var st *stream
	if ok {
		st = g.active
		g.active = nil
	}
	d.mu.Unlock()
	if st == nil {
		return player.ErrNotActive
	}

	st.stopped.Store(true)
	st.cancel()
	if st.cmd.Process != nil {
		_ = st.cmd.Process.Kill()
	}
	g.conn.SetOpusFrameProvider(nil)
	_ = g.conn.SetSpeaking(context.Background(), 0)
	sys.LogVoice("Transmission stopped in chat %s", chatID)
	return nil
}

// Pause implements player.Engine.
func (d *Discord) Pause(chatID snowflake.ID) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	g, ok := d.conns[chatID]
	if !ok || g.active == nil {
		return player.ErrNoActiveStream
	}
	g.active.provider.setPaused(true)
	return nil
}

// Resume implements player.Engine.
func (d *Discord) Resume(chatID snowflake.ID) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	g, ok := d.conns[chatID]
	if !ok || g.active == nil {
		return player.ErrNoActiveStream
	}
	g.active.provider.setPaused(false)
	return nil
}

// HandleVoiceStateUpdate watches for the bot being dropped from voice by an
// external event and tears the chat's connection down.
func (d *Discord) HandleVoiceStateUpdate(event *events.GuildVoiceStateUpdate) {
	if event.VoiceState.UserID != event.Client().ID() {
		return
	}
	chatID := event.VoiceState.GuildID

	if event.VoiceState.ChannelID == nil {
		d.mu.Lock()
		_, known := d.conns[chatID]
		d.mu.Unlock()
		if !known {
			return
		}
		sys.LogVoice("Dropped from voice in chat %s by external event", chatID)
		d.Disconnect(chatID)
		if d.OnChannelClosed != nil {
			d.OnChannelClosed(chatID)
		}
		return
	}

	// Track moves so Connect compares against the real channel.
	d.mu.Lock()
	if g, ok := d.conns[chatID]; ok && g.channelID != *event.VoiceState.ChannelID {
		sys.LogVoice("Moved from %s to %s in chat %s", g.channelID, *event.VoiceState.ChannelID, chatID)
		g.channelID = *event.VoiceState.ChannelID
	}
	d.mu.Unlock()
}

// extractStreamURL asks yt-dlp for a direct bestaudio URL without
// downloading anything.
func (d *Discord) extractStreamURL(ctx context.Context, locator string) (string, error) {
	cmd := ytdlp.New().
		Quiet().
		NoWarnings().
		IgnoreConfig().
		Format("bestaudio/best").
		Print("%(url)s")
	if d.Proxy != "" {
		cmd.Proxy(d.Proxy)
	}
	res, err := cmd.Run(ctx,
		"--no-playlist",
		"--no-check-certificates",
		"--extractor-args", "youtube:player_client=android,web",
		"--socket-timeout", "30",
		locator,
	)
	if err != nil {
		return "", fmt.Errorf("stream url extraction failed: %w", err)
	}
	for _, l := range strings.Split(strings.TrimSpace(res.Stdout), "\n") {
		if l = strings.TrimSpace(l); strings.HasPrefix(l, "http") {
			return l, nil
		}
	}
	return "", fmt.Errorf("no playable stream for %s", locator)
}

func ffmpegArgs(input string) []string {
	args := []string{
		"-i", input,
		"-map", "0:a",
		"-acodec", "libopus",
		"-b:a", "128k",
		"-vbr", "on",
		"-compression_level", "10",
		"-analyzeduration", "0",
		"-probesize", "32",
		"-f", "opus",
		"pipe:1",
	}
	if strings.HasPrefix(input, "http") {
		args = append([]string{
			"-reconnect", "1",
			"-reconnect_streamed", "1",
			"-reconnect_delay_max", "2",
			"-user_agent", "Mozilla/5.0",
		}, args...)
	}
	return args
}
