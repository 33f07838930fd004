//go:build darwin || linux

package libde265

import (
	"errors"
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

// libde265 function pointers
var (
	de265NewDecoder         func() uintptr
	de265StartWorkerThreads func(ctx uintptr, threads int32) int32
	de265FreeDecoder        func(ctx uintptr) int32
	de265PushData           func(ctx uintptr, data uintptr, length int32, pts int64, userData uintptr) int32
	de265FlushData          func(ctx uintptr) int32
	de265Decode             func(ctx uintptr, more uintptr) int32
	de265GetWarning         func(ctx uintptr) int32
	de265PeekNextPicture    func(ctx uintptr) uintptr
	de265GetNextPicture     func(ctx uintptr) uintptr
	de265GetImageWidth      func(img uintptr, channel int32) int32
	de265GetImageHeight     func(img uintptr, channel int32) int32
	de265GetImagePlane      func(img uintptr, channel int32, stride uintptr) uintptr
	de265GetErrorText       func(code int32) uintptr
	de265GetVersion         func() uintptr
)

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
			"libde265.dylib",
			"libde265.0.dylib",
			"/opt/homebrew/lib/libde265.dylib",
			"/usr/local/lib/libde265.dylib",
		)
	}
	return append(paths,
		"libde265.so.0",
		"libde265.so",
		"/usr/lib/x86_64-linux-gnu/libde265.so.0",
		"/usr/lib/aarch64-linux-gnu/libde265.so.0",
		"/usr/local/lib/libde265.so",
	)
}

func registerSymbols() {
	purego.RegisterLibFunc(&de265NewDecoder, libHandle, "de265_new_decoder")
	purego.RegisterLibFunc(&de265StartWorkerThreads, libHandle, "de265_start_worker_threads")
	purego.RegisterLibFunc(&de265FreeDecoder, libHandle, "de265_free_decoder")
	purego.RegisterLibFunc(&de265PushData, libHandle, "de265_push_data")
	purego.RegisterLibFunc(&de265FlushData, libHandle, "de265_flush_data")
	purego.RegisterLibFunc(&de265Decode, libHandle, "de265_decode")
	purego.RegisterLibFunc(&de265GetWarning, libHandle, "de265_get_warning")
	purego.RegisterLibFunc(&de265PeekNextPicture, libHandle, "de265_peek_next_picture")
	purego.RegisterLibFunc(&de265GetNextPicture, libHandle, "de265_get_next_picture")
	purego.RegisterLibFunc(&de265GetImageWidth, libHandle, "de265_get_image_width")
	purego.RegisterLibFunc(&de265GetImageHeight, libHandle, "de265_get_image_height")
	purego.RegisterLibFunc(&de265GetImagePlane, libHandle, "de265_get_image_plane")
	purego.RegisterLibFunc(&de265GetErrorText, libHandle, "de265_get_error_text")
	purego.RegisterLibFunc(&de265GetVersion, libHandle, "de265_get_version")
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
	return goString(de265GetVersion())
}

// Engine creates libde265 decoder contexts.
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
	return "libde265"
}

// NewContext implements ports.Engine.
func (e *Engine) NewContext() (ports.EngineContext, error) {
	handle := de265NewDecoder()
	if handle == 0 {
		return nil, errors.New("libde265: de265_new_decoder returned NULL")
	}
	return &decoderContext{handle: handle}, nil
}

var _ ports.Engine = (*Engine)(nil)

type decoderContext struct {
	handle uintptr
	// more is heap allocated; output parameters must not live on a
	// goroutine stack during the foreign call.
	more *int32
}

func errorText(code int) string {
	return goString(de265GetErrorText(int32(code)))
}

func (c *decoderContext) StartWorkers(n int) error {
	if code := int(de265StartWorkerThreads(c.handle, int32(n))); classify(code) != ports.StatusOK {
		return fmt.Errorf("libde265: start %d worker threads: %s (code=%d)", n, errorText(code), code)
	}
	return nil
}

func (c *decoderContext) Push(data []byte) ports.Status {
	if len(data) == 0 {
		return ports.Status{Kind: ports.StatusOK}
	}
	code := int(de265PushData(c.handle, uintptr(unsafe.Pointer(&data[0])), int32(len(data)), 0, 0))
	runtime.KeepAlive(data)
	return newStatus(code, errorText)
}

// Decode implements ports.EngineContext. de265_decode sets more whenever it
// wants another call, including while it waits for input data.
func (c *decoderContext) Decode() (ports.Status, bool) {
	if c.more == nil {
		c.more = new(int32)
	}
	*c.more = 0
	code := int(de265Decode(c.handle, uintptr(unsafe.Pointer(c.more))))
	return newStatus(code, errorText), *c.more != 0
}

func (c *decoderContext) EndOfStream() ports.Status {
	return newStatus(int(de265FlushData(c.handle)), errorText)
}

func (c *decoderContext) NextWarning() (ports.Status, bool) {
	code := int(de265GetWarning(c.handle))
	if code == codeOK {
		return ports.Status{}, false
	}
	return ports.Status{Kind: ports.StatusOK, Code: code, Text: errorText(code)}, true
}

func (c *decoderContext) PeekPicture() ports.Picture {
	return newPicture(de265PeekNextPicture(c.handle))
}

func (c *decoderContext) NextPicture() ports.Picture {
	return newPicture(de265GetNextPicture(c.handle))
}

func (c *decoderContext) Free() {
	if c.handle == 0 {
		return
	}
	de265FreeDecoder(c.handle)
	c.handle = 0
}

var _ ports.EngineContext = (*decoderContext)(nil)

// picture wraps a const de265_image*. Plane data is read lazily and stays
// owned by the decoder.
type picture struct {
	img     uintptr
	loaded  bool
	strides [3]int
	planes  [3][]byte
}

func newPicture(img uintptr) ports.Picture {
	if img == 0 {
		return nil
	}
	return &picture{img: img}
}

func (p *picture) Width(plane int) int {
	return int(de265GetImageWidth(p.img, int32(plane)))
}

func (p *picture) Height(plane int) int {
	return int(de265GetImageHeight(p.img, int32(plane)))
}

func (p *picture) Plane(plane int) []byte {
	p.load()
	return p.planes[plane]
}

func (p *picture) Stride(plane int) int {
	p.load()
	return p.strides[plane]
}

func (p *picture) load() {
	if p.loaded {
		return
	}
	stride := new(int32)
	for ch := 0; ch < 3; ch++ {
		*stride = 0
		ptr := de265GetImagePlane(p.img, int32(ch), uintptr(unsafe.Pointer(stride)))
		height := p.Height(ch)
		if ptr == 0 || *stride <= 0 || height <= 0 {
			continue
		}
		p.strides[ch] = int(*stride)
		p.planes[ch] = unsafe.Slice((*byte)(unsafe.Pointer(ptr)), int(*stride)*height)
	}
	p.loaded = true
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
