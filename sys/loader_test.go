package sys

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestParseCommand(t *testing.T) {
	cases := []struct {
		content  string
		wantName string
		wantArgs string
		wantOK   bool
	}{
		{"/play never gonna give you up", "play", "never gonna give you up", true},
		{"/PLAY  Song  ", "play", "Song", true},
		{"/skip", "skip", "", true},
		{"  /queue  ", "queue", "", true},
		{"/play https://www.youtube.com/watch?v=abc", "play", "https://www.youtube.com/watch?v=abc", true},
		{"hello there", "", "", false},
		{"/", "", "", false},
		{"", "", "", false},
	}
	for _, c := range cases {
		name, args, ok := parseCommand(c.content)
		require.Equal(t, c.wantOK, ok, "content %q", c.content)
		require.Equal(t, c.wantName, name, "content %q", c.content)
		require.Equal(t, c.wantArgs, args, "content %q", c.content)
	}
}
