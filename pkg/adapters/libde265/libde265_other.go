//go:build !darwin && !linux

package libde265

import "github.com/user/decodebridge/pkg/ports"

// Available reports whether the shared library can be loaded.
func Available() bool { return false }

// Version returns "" on platforms without dlopen support.
func Version() string { return "" }

// Engine is unavailable on this platform.
type Engine struct{}

// New always fails on this platform.
func New() (*Engine, error) {
	return nil, ErrUnavailable
}

func (e *Engine) Name() string { return "libde265" }

func (e *Engine) NewContext() (ports.EngineContext, error) {
	return nil, ErrUnavailable
}

var _ ports.Engine = (*Engine)(nil)
