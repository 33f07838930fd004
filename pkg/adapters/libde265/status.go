// Package libde265 binds the libde265 HEVC decoder as a ports.Engine. The
// shared library is loaded at runtime with purego, so no cgo toolchain is
// needed; hosts without the library get ErrUnavailable.
package libde265

import (
	"errors"

	"github.com/user/decodebridge/pkg/ports"
)

// ErrUnavailable is returned when the shared library cannot be loaded.
var ErrUnavailable = errors.New("libde265: library not available")

// de265_error values the bridge distinguishes.
const (
	codeOK                  = 0
	codeImageBufferFull     = 9
	codeWaitingForInputData = 13
	firstWarningCode        = 1000
)

// LibPathEnv overrides the shared library location.
const LibPathEnv = "LIBDE265_LIB_PATH"

// classify maps a de265_error to a status kind. Warning codes count as
// success, as de265_isOK does.
func classify(code int) ports.StatusKind {
	switch {
	case code == codeOK || code >= firstWarningCode:
		return ports.StatusOK
	case code == codeImageBufferFull:
		return ports.StatusBufferFull
	case code == codeWaitingForInputData:
		return ports.StatusNeedMoreInput
	default:
		return ports.StatusError
	}
}

func newStatus(code int, text func(int) string) ports.Status {
	s := ports.Status{Kind: classify(code), Code: code}
	if text != nil {
		s.Text = text(code)
	}
	return s
}
