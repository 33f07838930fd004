// Package mocks provides mock implementations for testing.
package mocks

import (
	"github.com/user/decodebridge/pkg/ports"
)

// Engine is a mock implementation of ports.Engine.
type Engine struct {
	NameValue      string
	Context        *EngineContext
	NewContextFunc func() (ports.EngineContext, error)

	// Created counts NewContext calls.
	Created int
}

func (m *Engine) Name() string {
	if m.NameValue != "" {
		return m.NameValue
	}
	return "mock"
}

func (m *Engine) NewContext() (ports.EngineContext, error) {
	m.Created++
	if m.NewContextFunc != nil {
		return m.NewContextFunc()
	}
	if m.Context == nil {
		m.Context = &EngineContext{}
	}
	return m.Context, nil
}

var _ ports.Engine = (*Engine)(nil)

// EngineContext is a mock implementation of ports.EngineContext. Without
// overrides it accepts every push, decodes to StatusOK and serves Pictures
// and Warnings in FIFO order.
type EngineContext struct {
	Pictures []ports.Picture
	Warnings []ports.Status

	StartWorkersFunc func(n int) error
	PushFunc         func(data []byte) ports.Status
	DecodeFunc       func() (ports.Status, bool)
	EndOfStreamFunc  func() ports.Status

	// Recorded calls.
	Workers     int
	Pushed      [][]byte
	DecodeCalls int
	Pulled      int
	Freed       int
	EOS         bool
}

func (m *EngineContext) StartWorkers(n int) error {
	m.Workers = n
	if m.StartWorkersFunc != nil {
		return m.StartWorkersFunc(n)
	}
	return nil
}

func (m *EngineContext) Push(data []byte) ports.Status {
	m.Pushed = append(m.Pushed, append([]byte(nil), data...))
	if m.PushFunc != nil {
		return m.PushFunc(data)
	}
	return ports.Status{Kind: ports.StatusOK}
}

func (m *EngineContext) Decode() (ports.Status, bool) {
	m.DecodeCalls++
	if m.DecodeFunc != nil {
		return m.DecodeFunc()
	}
	return ports.Status{Kind: ports.StatusOK}, false
}

func (m *EngineContext) EndOfStream() ports.Status {
	m.EOS = true
	if m.EndOfStreamFunc != nil {
		return m.EndOfStreamFunc()
	}
	return ports.Status{Kind: ports.StatusOK}
}

func (m *EngineContext) NextWarning() (ports.Status, bool) {
	if len(m.Warnings) == 0 {
		return ports.Status{}, false
	}
	w := m.Warnings[0]
	m.Warnings = m.Warnings[1:]
	return w, true
}

func (m *EngineContext) PeekPicture() ports.Picture {
	if len(m.Pictures) == 0 {
		return nil
	}
	return m.Pictures[0]
}

func (m *EngineContext) NextPicture() ports.Picture {
	if len(m.Pictures) == 0 {
		return nil
	}
	p := m.Pictures[0]
	m.Pictures = m.Pictures[1:]
	m.Pulled++
	return p
}

func (m *EngineContext) Free() {
	m.Freed++
}

// QueuePictures appends pictures to the output queue.
func (m *EngineContext) QueuePictures(pics ...ports.Picture) {
	m.Pictures = append(m.Pictures, pics...)
}

// PushedBytes returns the total number of bytes pushed.
func (m *EngineContext) PushedBytes() int {
	n := 0
	for _, p := range m.Pushed {
		n += len(p)
	}
	return n
}

var _ ports.EngineContext = (*EngineContext)(nil)

// Picture is a fixed in-memory ports.Picture.
type Picture struct {
	Widths  [3]int
	Heights [3]int
	Strides [3]int
	Planes  [3][]byte
}

// PaddingByte fills the bytes between a row's end and its stride.
const PaddingByte = 0xEE

// NewPicture builds a 4:2:0 picture whose rows are padded by pad bytes.
// Pixel values are seed + plane*64 + row + column, truncated to a byte.
func NewPicture(width, height, pad int, seed byte) *Picture {
	p := &Picture{}
	cw, ch := (width+1)/2, (height+1)/2
	for plane := 0; plane < 3; plane++ {
		w, h := width, height
		if plane > 0 {
			w, h = cw, ch
		}
		stride := w + pad
		data := make([]byte, stride*h)
		for row := 0; row < h; row++ {
			for col := 0; col < stride; col++ {
				if col < w {
					data[row*stride+col] = seed + byte(plane*64+row+col)
				} else {
					data[row*stride+col] = PaddingByte
				}
			}
		}
		p.Widths[plane] = w
		p.Heights[plane] = h
		p.Strides[plane] = stride
		p.Planes[plane] = data
	}
	return p
}

func (p *Picture) Width(plane int) int { return p.Widths[plane] }
func (p *Picture) Height(plane int) int { return p.Heights[plane] }
func (p *Picture) Plane(plane int) []byte { return p.Planes[plane] }
func (p *Picture) Stride(plane int) int { return p.Strides[plane] }

// Packed returns the expected tightly packed I420 bytes of the picture.
func (p *Picture) Packed() []byte {
	var out []byte
	for plane := 0; plane < 3; plane++ {
		for row := 0; row < p.Heights[plane]; row++ {
			start := row * p.Strides[plane]
			out = append(out, p.Planes[plane][start:start+p.Widths[plane]]...)
		}
	}
	return out
}

var _ ports.Picture = (*Picture)(nil)
