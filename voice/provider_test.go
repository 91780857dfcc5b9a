package voice

import (
	"bytes"
	"io"
	"testing"

	"github.com/stretchr/testify/require"
)

// oggPage builds a single Ogg page with one segment per packet. Only valid
// for packets shorter than 255 bytes.
func oggPage(packets ...[]byte) []byte {
	header := make([]byte, 27)
	copy(header, "OggS")
	header[26] = byte(len(packets))

	page := header
	for _, p := range packets {
		page = append(page, byte(len(p)))
	}
	for _, p := range packets {
		page = append(page, p...)
	}
	return page
}

func TestProviderExtractsOpusPackets(t *testing.T) {
	var buf bytes.Buffer
	buf.Write(oggPage([]byte("OpusHead........"), []byte("OpusTags........")))
	buf.Write(oggPage([]byte("frameAAAA"), []byte("frameBBBB")))

	ended := false
	p := newOggProvider(&buf, func() { ended = true })

	f, err := p.ProvideOpusFrame()
	require.NoError(t, err)
	require.Equal(t, []byte("frameAAAA"), f)

	f, err = p.ProvideOpusFrame()
	require.NoError(t, err)
	require.Equal(t, []byte("frameBBBB"), f)

	_, err = p.ProvideOpusFrame()
	require.ErrorIs(t, err, io.EOF)
	require.True(t, ended)
}

func TestProviderSkipsGarbageBetweenPages(t *testing.T) {
	var buf bytes.Buffer
	buf.WriteString("junk")
	buf.Write(oggPage([]byte("frameAAAA")))

	p := newOggProvider(&buf, nil)
	f, err := p.ProvideOpusFrame()
	require.NoError(t, err)
	require.Equal(t, []byte("frameAAAA"), f)
}

func TestProviderPauseYieldsSilence(t *testing.T) {
	var buf bytes.Buffer
	buf.Write(oggPage([]byte("frameAAAA")))

	p := newOggProvider(&buf, nil)
	p.setPaused(true)

	// While paused the source is never consumed.
	for i := 0; i < 3; i++ {
		f, err := p.ProvideOpusFrame()
		require.NoError(t, err)
		require.Equal(t, opusSilence, f)
	}

	p.setPaused(false)
	f, err := p.ProvideOpusFrame()
	require.NoError(t, err)
	require.Equal(t, []byte("frameAAAA"), f)
}

func TestProviderEOFFiresOnce(t *testing.T) {
	fired := 0
	p := newOggProvider(bytes.NewReader(nil), func() { fired++ })

	_, err := p.ProvideOpusFrame()
	require.ErrorIs(t, err, io.EOF)
	_, err = p.ProvideOpusFrame()
	require.ErrorIs(t, err, io.EOF)
	require.Equal(t, 1, fired)
}
