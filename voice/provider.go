package voice

import (
	"bufio"
	"bytes"
	"io"
	"sync"
	"sync/atomic"
)

// opusSilence keeps the send cadence alive while a stream is paused.
var opusSilence = []byte{0xF8, 0xFF, 0xFE}

// oggProvider implements voice.OpusFrameProvider by parsing Opus packets out
// of an Ogg container, typically ffmpeg stdout.
type oggProvider struct {
	src     *bufio.Reader
	header  []byte
	segTab  []byte
	packet  bytes.Buffer
	pending [][]byte

	paused atomic.Bool

	// onEOF fires exactly once when the source runs out.
	onEOF func()
	once  sync.Once
}

func newOggProvider(r io.Reader, onEOF func()) *oggProvider {
	return &oggProvider{
		src:    bufio.NewReaderSize(r, 16384),
		header: make([]byte, 27),
		segTab: make([]byte, 255),
		onEOF:  onEOF,
	}
}

func (p *oggProvider) Close() {}

func (p *oggProvider) setPaused(v bool) {
	p.paused.Store(v)
}

func (p *oggProvider) finish() {
	p.once.Do(func() {
		if p.onEOF != nil {
			p.onEOF()
		}
	})
}

// ProvideOpusFrame returns the next Opus packet, or a silence frame while
// paused so the transmission stays warm without consuming the source.
func (p *oggProvider) ProvideOpusFrame() ([]byte, error) {
	if p.paused.Load() {
		return opusSilence, nil
	}

	if len(p.pending) > 0 {
		f := p.pending[0]
		p.pending = p.pending[1:]
		return f, nil
	}

	for {
		sig, err := p.src.Peek(4)
		if err != nil {
			p.finish()
			return nil, err
		}
		if string(sig) != "OggS" {
			_, _ = p.src.Discard(1)
			continue
		}
		if _, err := io.ReadFull(p.src, p.header); err != nil {
			p.finish()
			return nil, err
		}

		segTable := p.segTab[:int(p.header[26])]
		if _, err := io.ReadFull(p.src, segTable); err != nil {
			p.finish()
			return nil, err
		}

		for _, segLen := range segTable {
			n := int(segLen)
			if _, err := io.CopyN(&p.packet, p.src, int64(n)); err != nil {
				p.finish()
				return nil, err
			}
			if n == 255 {
				// Packet continues in the next segment.
				continue
			}
			f := make([]byte, p.packet.Len())
			copy(f, p.packet.Bytes())
			p.packet.Reset()

			// Skip metadata packets (OpusHead/OpusTags).
			if len(f) > 8 && (string(f[:8]) == "OpusHead" || string(f[:8]) == "OpusTags") {
				continue
			}
			p.pending = append(p.pending, f)
		}

		if len(p.pending) > 0 {
			f := p.pending[0]
			p.pending = p.pending[1:]
			return f, nil
		}
	}
}
