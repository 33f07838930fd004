//go:build darwin || linux

package libvpx

import (
	"fmt"
	"os"
	"runtime"
	"sync"
	"unsafe"

	"github.com/ebitengine/purego"

	"github.com/user/decodebridge/pkg/ports"
)

var (
	libOnce    sync.Once
	libHandle  uintptr
	libInitErr error
)

// libvpx function pointers
var (
	vpxCodecVP8Dx       func() uintptr
	vpxCodecDecInitVer  func(ctx, iface, cfg uintptr, flags int64, ver int32) int32
	vpxCodecDecode      func(ctx, data uintptr, size uint32, userPriv uintptr, deadline int64) int32
	vpxCodecGetFrame    func(ctx, iter uintptr) uintptr
	vpxCodecDestroy     func(ctx uintptr) int32
	vpxCodecError       func(ctx uintptr) uintptr
	vpxCodecErrorDetail func(ctx uintptr) uintptr
	vpxCodecErrToString func(code int32) uintptr
	vpxCodecVersionStr  func() uintptr
)

// VPX_DECODER_ABI_VERSION of libvpx >= 1.8 and of 1.6/1.7.
var decoderABIVersions = []int32{12, 10}

func load() error {
	libOnce.Do(func() {
		libInitErr = loadLib()
	})
	return libInitErr
}

func loadLib() error {
	var lastErr error
	for _, path := range libPaths() {
		handle, err := purego.Dlopen(path, purego.RTLD_NOW|purego.RTLD_GLOBAL)
		if err != nil {
			lastErr = err
			continue
		}
		libHandle = handle
		registerSymbols()
		return nil
	}
	if lastErr != nil {
		return fmt.Errorf("%w: %v", ErrUnavailable, lastErr)
	}
	return ErrUnavailable
}

func libPaths() []string {
	var paths []string
	if p := os.Getenv(LibPathEnv); p != "" {
		paths = append(paths, p)
	}
	if runtime.GOOS == "darwin" {
		return append(paths,
			"libvpx.dylib",
			"/opt/homebrew/lib/libvpx.dylib",
			"/usr/local/lib/libvpx.dylib",
		)
	}
	return append(paths,
		"libvpx.so.9",
		"libvpx.so.8",
		"libvpx.so.7",
		"libvpx.so.6",
		"libvpx.so",
	)
}

func registerSymbols() {
	purego.RegisterLibFunc(&vpxCodecVP8Dx, libHandle, "vpx_codec_vp8_dx")
	purego.RegisterLibFunc(&vpxCodecDecInitVer, libHandle, "vpx_codec_dec_init_ver")
	purego.RegisterLibFunc(&vpxCodecDecode, libHandle, "vpx_codec_decode")
	purego.RegisterLibFunc(&vpxCodecGetFrame, libHandle, "vpx_codec_get_frame")
	purego.RegisterLibFunc(&vpxCodecDestroy, libHandle, "vpx_codec_destroy")
	purego.RegisterLibFunc(&vpxCodecError, libHandle, "vpx_codec_error")
	purego.RegisterLibFunc(&vpxCodecErrorDetail, libHandle, "vpx_codec_error_detail")
	purego.RegisterLibFunc(&vpxCodecErrToString, libHandle, "vpx_codec_err_to_string")
	purego.RegisterLibFunc(&vpxCodecVersionStr, libHandle, "vpx_codec_version_str")
}

// Available reports whether the shared library can be loaded.
func Available() bool {
	return load() == nil
}

// Version returns the library version string, or "" when unavailable.
func Version() string {
	if load() != nil {
		return ""
	}
	return goString(vpxCodecVersionStr())
}

// Engine creates VP8 decoder contexts.
type Engine struct{}

// New loads the library and returns an engine.
func New() (*Engine, error) {
	if err := load(); err != nil {
		return nil, err
	}
	return &Engine{}, nil
}

// Name implements ports.Engine.
func (e *Engine) Name() string {
	return "libvpx-vp8"
}

// NewContext implements ports.Engine. The codec is initialized by
// StartWorkers, which knows the thread count.
func (e *Engine) NewContext() (ports.EngineContext, error) {
	return &decoderContext{open: openCodec}, nil
}

var _ ports.Engine = (*Engine)(nil)

// codecCtx is storage for vpx_codec_ctx_t (56 bytes on 64-bit targets).
// Like the other output parameters it lives on the heap, never on a
// goroutine stack, while libvpx holds its address.
type codecCtx [16]uint64

// decCfg mirrors vpx_codec_dec_cfg_t.
type decCfg struct {
	threads uint32
	w       uint32
	h       uint32
}

type codec struct {
	ctx  *codecCtx
	cfg  *decCfg
	iter *uintptr
}

func openCodec(threads int) (backend, error) {
	c := &codec{ctx: new(codecCtx), cfg: &decCfg{threads: uint32(threads)}, iter: new(uintptr)}
	iface := vpxCodecVP8Dx()
	if iface == 0 {
		return nil, fmt.Errorf("libvpx: built without the VP8 decoder")
	}

	code := int32(codeABIMismatch)
	for _, ver := range decoderABIVersions {
		code = vpxCodecDecInitVer(c.ptr(), iface, uintptr(unsafe.Pointer(c.cfg)), 0, ver)
		if code != codeABIMismatch {
			break
		}
	}
	if code != codeOK {
		return nil, fmt.Errorf("libvpx: init decoder with %d threads: %s (code=%d)", threads, goString(vpxCodecErrToString(code)), code)
	}
	return c, nil
}

func (c *codec) ptr() uintptr {
	return uintptr(unsafe.Pointer(c.ctx))
}

func (c *codec) decode(frame []byte) int {
	code := vpxCodecDecode(c.ptr(), uintptr(unsafe.Pointer(&frame[0])), uint32(len(frame)), 0, 0)
	runtime.KeepAlive(frame)
	*c.iter = 0
	return int(code)
}

func (c *codec) nextImage() (ports.Picture, error) {
	img := vpxCodecGetFrame(c.ptr(), uintptr(unsafe.Pointer(c.iter)))
	if img == 0 {
		return nil, nil
	}
	pic, err := newPicture((*vpxImage)(unsafe.Pointer(img)))
	if err != nil {
		return nil, err
	}
	return pic, nil
}

func (c *codec) errorText(code int) string {
	text := goString(vpxCodecError(c.ptr()))
	if text == "" {
		text = goString(vpxCodecErrToString(int32(code)))
	}
	if detail := goString(vpxCodecErrorDetail(c.ptr())); detail != "" {
		text += ": " + detail
	}
	return text
}

func (c *codec) close() {
	vpxCodecDestroy(c.ptr())
}

// vpxImage mirrors the leading fields of vpx_image_t.
type vpxImage struct {
	fmt          int32
	cs           int32
	colorRange   int32
	w            uint32
	h            uint32
	bitDepth     uint32
	dw           uint32
	dh           uint32
	rw           uint32
	rh           uint32
	xChromaShift uint32
	yChromaShift uint32
	planes       [4]uintptr
	stride       [4]int32
}

// vpx_img_fmt_t for planar 4:2:0.
const imgFmtI420 = 0x102

// picture snapshots the geometry of a vpx_image_t. Plane memory belongs to
// the decoder and is overwritten by the next decode call.
type picture struct {
	widths  [3]int
	heights [3]int
	strides [3]int
	planes  [3]uintptr
}

func newPicture(img *vpxImage) (*picture, error) {
	if img.fmt != imgFmtI420 {
		return nil, fmt.Errorf("libvpx: unsupported image format 0x%x", img.fmt)
	}
	p := &picture{}
	for i := 0; i < 3; i++ {
		w, h := int(img.dw), int(img.dh)
		if i > 0 {
			w = (w + int(img.xChromaShift)) >> img.xChromaShift
			h = (h + int(img.yChromaShift)) >> img.yChromaShift
		}
		p.widths[i] = w
		p.heights[i] = h
		p.strides[i] = int(img.stride[i])
		p.planes[i] = img.planes[i]
	}
	return p, nil
}

func (p *picture) Width(plane int) int  { return p.widths[plane] }
func (p *picture) Height(plane int) int { return p.heights[plane] }
func (p *picture) Stride(plane int) int { return p.strides[plane] }

func (p *picture) Plane(plane int) []byte {
	if p.planes[plane] == 0 || p.strides[plane] <= 0 {
		return nil
	}
	return unsafe.Slice((*byte)(unsafe.Pointer(p.planes[plane])), p.strides[plane]*p.heights[plane])
}

// goString converts a NUL terminated C string.
func goString(ptr uintptr) string {
	if ptr == 0 {
		return ""
	}
	n := 0
	for *(*byte)(unsafe.Add(unsafe.Pointer(ptr), n)) != 0 {
		n++
		if n > 1024 {
			break
		}
	}
	return string(unsafe.Slice((*byte)(unsafe.Pointer(ptr)), n))
}
