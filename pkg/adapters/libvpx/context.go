// Package libvpx binds the libvpx VP8 decoder as a ports.Engine through
// purego. Input is an IVF frame stream; the "DKIF" file header is skipped
// when present, so whole files can be fed in arbitrary chunks.
package libvpx

import (
	"errors"
	"fmt"

	"github.com/user/decodebridge/pkg/adapters/ivfsource"
	"github.com/user/decodebridge/pkg/ports"
)

// ErrUnavailable is returned when the shared library cannot be loaded.
var ErrUnavailable = errors.New("libvpx: library not available")

// LibPathEnv overrides the shared library location.
const LibPathEnv = "LIBVPX_LIB_PATH"

// vpx_codec_err_t values, plus bridge codes above 1000.
const (
	codeOK                = 0
	codeABIMismatch       = 3
	codeUnsupBitstream    = 5
	codeTruncated         = 1001
	codeUnsupportedFormat = 1002
)

var (
	statusOK         = ports.Status{Kind: ports.StatusOK, Code: codeOK, Text: "no error"}
	statusNeedInput  = ports.Status{Kind: ports.StatusNeedMoreInput, Code: codeOK, Text: "waiting for input data"}
	statusBufferFull = ports.Status{Kind: ports.StatusBufferFull, Code: codeOK, Text: "decoded picture not yet consumed"}
)

// backend is one initialized vpx_codec_ctx_t.
type backend interface {
	// decode runs vpx_codec_decode on one compressed frame.
	decode(frame []byte) int
	// nextImage returns the frame produced by the last decode, or nil.
	// An error reports an image the bridge cannot output.
	nextImage() (ports.Picture, error)
	errorText(code int) string
	close()
}

// decoderContext implements ports.EngineContext over a backend. libvpx
// keeps a single output image that the next decode call overwrites, so at
// most one picture is queued.
type decoderContext struct {
	open func(threads int) (backend, error)

	be       backend
	queue    frameQueue
	current  ports.Picture
	inFlight []byte
	warnings []ports.Status
	eos      bool
}

func (c *decoderContext) StartWorkers(n int) error {
	if c.be != nil {
		return errors.New("libvpx: decoder already initialized")
	}
	be, err := c.open(n)
	if err != nil {
		return err
	}
	c.be = be
	return nil
}

func (c *decoderContext) Push(data []byte) ports.Status {
	if c.be == nil {
		return ports.Status{Kind: ports.StatusError, Code: -1, Text: "decoder not initialized"}
	}
	c.queue.push(data)
	return statusOK
}

// Decode decodes buffered frames until one yields a visible picture. more
// reports whether another whole frame is buffered.
func (c *decoderContext) Decode() (ports.Status, bool) {
	if c.be == nil {
		return ports.Status{Kind: ports.StatusError, Code: -1, Text: "decoder not initialized"}, false
	}
	if c.current != nil {
		return statusBufferFull, c.queue.ready()
	}
	for {
		frame, ok, err := c.queue.next()
		if err != nil {
			return ports.Status{Kind: ports.StatusError, Code: codeUnsupBitstream, Text: err.Error()}, false
		}
		if !ok {
			if c.eos && c.queue.pending() > 0 {
				c.warnings = append(c.warnings, ports.Status{
					Kind: ports.StatusOK,
					Code: codeTruncated,
					Text: fmt.Sprintf("discarded %d bytes of a truncated frame", c.queue.discard()),
				})
			}
			return statusNeedInput, false
		}
		if len(frame) == 0 {
			continue
		}

		c.inFlight = frame
		if code := c.be.decode(frame); code != codeOK {
			return ports.Status{Kind: ports.StatusError, Code: code, Text: c.be.errorText(code)}, false
		}
		pic, err := c.be.nextImage()
		if err != nil {
			return ports.Status{Kind: ports.StatusError, Code: codeUnsupportedFormat, Text: err.Error()}, false
		}
		if pic != nil {
			c.current = pic
			return statusOK, c.queue.ready()
		}
	}
}

func (c *decoderContext) EndOfStream() ports.Status {
	c.eos = true
	return statusOK
}

func (c *decoderContext) NextWarning() (ports.Status, bool) {
	if len(c.warnings) == 0 {
		return ports.Status{}, false
	}
	w := c.warnings[0]
	c.warnings = c.warnings[1:]
	return w, true
}

func (c *decoderContext) PeekPicture() ports.Picture {
	return c.current
}

func (c *decoderContext) NextPicture() ports.Picture {
	pic := c.current
	c.current = nil
	return pic
}

func (c *decoderContext) Free() {
	c.current = nil
	if c.be == nil {
		return
	}
	c.be.close()
	c.be = nil
}

var _ ports.EngineContext = (*decoderContext)(nil)

// frameQueue buffers pushed bytes and cuts them into IVF frame payloads.
type frameQueue struct {
	buf     []byte
	started bool
}

func (q *frameQueue) push(data []byte) {
	q.buf = append(q.buf, data...)
}

// next returns the next complete frame payload. The slice stays valid
// until the following push.
func (q *frameQueue) next() ([]byte, bool, error) {
	if !q.skipFileHeader() {
		return nil, false, nil
	}
	frame, rest, ok, err := ivfsource.SplitFrame(q.buf)
	if err != nil || !ok {
		return nil, false, err
	}
	q.buf = rest
	return frame, true, nil
}

// skipFileHeader drops a leading "DKIF" header. It returns false while too
// few bytes are buffered to tell.
func (q *frameQueue) skipFileHeader() bool {
	if q.started {
		return true
	}
	sig := ivfsource.Signature
	if len(q.buf) < len(sig) {
		return false
	}
	if string(q.buf[:len(sig)]) == sig {
		if len(q.buf) < ivfsource.FileHeaderSize {
			return false
		}
		q.buf = q.buf[ivfsource.FileHeaderSize:]
	}
	q.started = true
	return true
}

// ready reports whether a whole frame record is buffered.
func (q *frameQueue) ready() bool {
	buf := q.buf
	if !q.started {
		if len(buf) >= len(ivfsource.Signature) && string(buf[:len(ivfsource.Signature)]) == ivfsource.Signature {
			if len(buf) < ivfsource.FileHeaderSize {
				return false
			}
			buf = buf[ivfsource.FileHeaderSize:]
		}
	}
	_, _, ok, _ := ivfsource.SplitFrame(buf)
	return ok
}

func (q *frameQueue) pending() int { return len(q.buf) }

func (q *frameQueue) discard() int {
	n := len(q.buf)
	q.buf = nil
	return n
}
