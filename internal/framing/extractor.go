package framing

import (
	"bytes"
	"errors"
	"fmt"
	"regexp"

	"github.com/kestrelworks/streamlink/internal/decode"
)

// DefaultBufferCeiling is the buffer size above which unframeable data
// is discarded to bound memory and recover from stream corruption.
const DefaultBufferCeiling = 2000

var ErrBufferOverflow = errors.New("framing: buffer ceiling exceeded with no frame boundary")

// Known firmware quirk: a trailing comma may precede a closing brace or
// bracket. Stripped before decode.
var (
	trailingCommaObject = regexp.MustCompile(`,\s*}`)
	trailingCommaArray  = regexp.MustCompile(`,\s*\]`)
)

// Result is one outcome of an ingest pass: either a decoded sample or
// the error produced while framing/decoding it.
type Result struct {
	Sample decode.Sample
	Err    error
}

// Extractor owns the raw receive buffer and turns incoming byte chunks
// into decoded samples. It is single-owner state: only the engine's
// read loop may call Ingest/Reset.
type Extractor struct {
	buf     []byte
	ceiling int
}

func NewExtractor(ceiling int) *Extractor {
	if ceiling <= 0 {
		ceiling = DefaultBufferCeiling
	}
	return &Extractor{ceiling: ceiling}
}

// Reset discards all buffered bytes. Called on engine start so a fresh
// session never inherits a stale partial frame.
func (x *Extractor) Reset() {
	x.buf = x.buf[:0]
}

// Buffered reports how many bytes are waiting for a frame boundary.
func (x *Extractor) Buffered() int {
	return len(x.buf)
}

// Ingest appends a chunk to the receive buffer and extracts every
// complete frame it now contains, in arrival order. Invalid UTF-8
// sequences are dropped rather than failing the chunk. Malformed frames
// surface as Results carrying a decode error; they are discarded, never
// re-queued. When the buffer grows past the ceiling with no boundary
// found, it is cleared entirely and a single ErrBufferOverflow result
// is returned.
func (x *Extractor) Ingest(p []byte) []Result {
	x.buf = append(x.buf, bytes.ToValidUTF8(p, nil)...)

	frames := x.scan()
	if len(frames) == 0 {
		if len(x.buf) > x.ceiling {
			dropped := len(x.buf)
			x.buf = x.buf[:0]
			return []Result{{Err: fmt.Errorf("%w: dropped %d bytes", ErrBufferOverflow, dropped)}}
		}
		return nil
	}

	results := make([]Result, 0, len(frames))
	for _, frame := range frames {
		sample, err := decode.Decode(repairTrailingCommas(frame))
		if err != nil {
			results = append(results, Result{Err: err})
			continue
		}
		results = append(results, Result{Sample: sample})
	}
	return results
}

// scan walks the opening/closing brace index lists pairwise. A frame
// boundary is confirmed each time an opening brace appears after a
// closing brace: the closing brace belongs to the current object. A
// final trailing candidate (last opening brace with enough closing
// braces after it) is captured as well, so a lone complete object is
// emitted without waiting for the next one to begin.
func (x *Extractor) scan() [][]byte {
	opens := indexAll(x.buf, '{')
	closes := indexAll(x.buf, '}')
	if len(opens) == 0 || len(closes) == 0 || opens[0] > closes[0] {
		// Nothing frameable yet; a leading stray '}' stays until the
		// ceiling clears it.
		return nil
	}

	var frames [][]byte
	start := opens[0]
	consumed := 0
	for i := 1; i < len(opens) && i <= len(closes); i++ {
		if opens[i] > closes[i-1] {
			end := closes[i-1]
			frames = append(frames, bytes.Clone(x.buf[start:end+1]))
			consumed = end + 1
			start = opens[i]
		}
	}

	// Trailing candidate. Braces interleave in well-formed input, so an
	// object whose last opening brace is opens[i] closes at closes[i].
	last := len(opens) - 1
	if last < len(closes) && opens[last] < closes[last] {
		end := closes[last]
		frames = append(frames, bytes.Clone(x.buf[start:end+1]))
		consumed = end + 1
	}

	if consumed > 0 {
		x.buf = append(x.buf[:0], x.buf[consumed:]...)
	}
	return frames
}

func repairTrailingCommas(frame []byte) []byte {
	frame = trailingCommaObject.ReplaceAll(frame, []byte("}"))
	return trailingCommaArray.ReplaceAll(frame, []byte("]"))
}

func indexAll(p []byte, c byte) []int {
	var idx []int
	off := 0
	for {
		i := bytes.IndexByte(p[off:], c)
		if i < 0 {
			return idx
		}
		idx = append(idx, off+i)
		off += i + 1
	}
}
