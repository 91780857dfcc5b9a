// Package resolve turns free-text queries and URLs into playable tracks
// using YouTube search and yt-dlp metadata extraction.
package resolve

import (
	"context"
	"fmt"
	"regexp"
	"strings"
	"sync"
	"time"

	"github.com/lrstanley/go-ytdlp"
	"github.com/ppalone/ytsearch"
	"github.com/raitonoberu/ytmusic"

	"github.com/sorakane/hibiki/player"
	"github.com/sorakane/hibiki/sys"
)

var videoIDRegex = regexp.MustCompile(`(?:\?|&)v=([^&]+)`)

const searchTimeout = 2600 * time.Millisecond

// YouTube resolves queries against YouTube Music and YouTube, with yt-dlp
// filling in duration and artwork. Resolution never touches session state.
type YouTube struct {
	// Proxy is passed through to yt-dlp when set.
	Proxy string
}

func New(proxy string) *YouTube {
	return &YouTube{Proxy: proxy}
}

// Resolve implements player.Resolver. URL-shaped queries resolve directly;
// anything else is searched and the first match wins.
func (r *YouTube) Resolve(ctx context.Context, query string) (player.Track, error) {
	query = strings.TrimSpace(query)
	if IsURL(query) {
		return r.resolveURL(ctx, query)
	}
	return r.resolveSearch(ctx, query)
}

// IsURL reports whether the query should be treated as a direct locator.
func IsURL(query string) bool {
	return strings.HasPrefix(query, "http://") || strings.HasPrefix(query, "https://")
}

func extractVideoID(u string) string {
	if m := videoIDRegex.FindStringSubmatch(u); len(m) == 2 {
		return m[1]
	}
	return ""
}

func (r *YouTube) newYtdlp() *ytdlp.Command {
	cmd := ytdlp.New().
		Quiet().
		NoWarnings()

	if r.Proxy != "" {
		cmd.Proxy(r.Proxy)
	}
	return cmd
}

func ytdlpArgs() []string {
	return []string{
		"--no-playlist",
		"--no-check-certificates",
		"--no-warnings",
		"--extractor-args", "youtube:player_client=android,web",
		"--socket-timeout", "30",
	}
}

// resolveURL fetches title, duration and artwork for a direct locator.
func (r *YouTube) resolveURL(ctx context.Context, u string) (player.Track, error) {
	args := append(ytdlpArgs(), "--skip-download")
	res, err := r.newYtdlp().
		Print("%(title)s\t%(duration)s\t%(id)s\t%(thumbnail)s").
		NoSimulate().
		IgnoreConfig().
		NoWarnings().
		Run(ctx, append(args, u)...)
	if err != nil {
		sys.LogResolver("Metadata resolution failed for %s: %v", u, err)
		return player.Track{}, fmt.Errorf("%w: %v", player.ErrUpstream, err)
	}

	for _, l := range strings.Split(strings.TrimSpace(res.Stdout), "\n") {
		ps := strings.Split(l, "\t")
		if len(ps) < 3 {
			continue
		}
		d, _ := time.ParseDuration(ps[1] + "s")
		locator := u
		if id := ps[2]; id != "" && extractVideoID(u) == "" {
			locator = "https://www.youtube.com/watch?v=" + id
		}
		thumb := ""
		if len(ps) >= 4 {
			thumb = ps[3]
		}
		return player.Track{
			Locator:   locator,
			Title:     ps[0],
			Duration:  d,
			Thumbnail: thumb,
		}, nil
	}
	return player.Track{}, player.ErrNotFound
}

// resolveSearch runs YouTube Music and YouTube search concurrently with a
// shared deadline and takes the first hit, preferring the music index.
func (r *YouTube) resolveSearch(ctx context.Context, query string) (player.Track, error) {
	sctx, cancel := context.WithTimeout(ctx, searchTimeout)
	defer cancel()

	var mu sync.Mutex
	var ytmURL, ytmTitle string
	var ytURL, ytTitle string
	var ytmErr, ytErr error

	var wg sync.WaitGroup
	wg.Add(2)
	go func() {
		defer wg.Done()
		s := ytmusic.TrackSearch(query)
		res, err := s.Next()
		mu.Lock()
		defer mu.Unlock()
		if err != nil {
			ytmErr = err
			return
		}
		for _, v := range res.Tracks {
			if v.VideoID == "" {
				continue
			}
			ytmURL = "https://www.youtube.com/watch?v=" + v.VideoID
			ytmTitle = v.Title
			if len(v.Artists) > 0 {
				ytmTitle = v.Title + " - " + v.Artists[0].Name
			}
			return
		}
	}()
	go func() {
		defer wg.Done()
		c := ytsearch.NewClient(sys.HttpClient)
		res, err := c.Search(sctx, query)
		mu.Lock()
		defer mu.Unlock()
		if err != nil {
			ytErr = err
			return
		}
		for _, v := range res.Results {
			if v.VideoID == "" {
				continue
			}
			ytURL = "https://www.youtube.com/watch?v=" + v.VideoID
			ytTitle = v.Title
			return
		}
	}()

	done := make(chan struct{})
	go func() {
		wg.Wait()
		close(done)
	}()
	select {
	case <-done:
	case <-sctx.Done():
	}

	mu.Lock()
	locator, title := ytmURL, ytmTitle
	if locator == "" {
		locator, title = ytURL, ytTitle
	}
	bothFailed := ytmErr != nil && ytErr != nil
	mu.Unlock()

	if locator == "" {
		if bothFailed {
			sys.LogResolver("Search failed for %q: ytm=%v yt=%v", query, ytmErr, ytErr)
			return player.Track{}, fmt.Errorf("%w: search backends unavailable", player.ErrUpstream)
		}
		return player.Track{}, player.ErrNotFound
	}

	sys.LogResolver("Search hit for %q: %s (%s)", query, title, locator)

	// Enrichment is best-effort: a search hit without duration or artwork
	// still plays.
	if t, err := r.resolveURL(ctx, locator); err == nil {
		if t.Title == "" {
			t.Title = title
		}
		return t, nil
	}
	return player.Track{Locator: locator, Title: title}, nil
}
