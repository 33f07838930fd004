//go:build darwin || linux

package libvpx

import (
	"testing"

	"github.com/user/decodebridge/pkg/adapters/ivfsource"
	"github.com/user/decodebridge/pkg/ports"
)

func TestEngine_GarbageFrame(t *testing.T) {
	if !Available() {
		t.Skip("libvpx not installed")
	}
	t.Logf("libvpx %s", Version())

	engine, err := New()
	if err != nil {
		t.Fatalf("New failed: %v", err)
	}
	ctx, err := engine.NewContext()
	if err != nil {
		t.Fatalf("NewContext failed: %v", err)
	}
	defer ctx.Free()

	if err := ctx.StartWorkers(1); err != nil {
		t.Fatalf("StartWorkers failed: %v", err)
	}

	status, _ := ctx.Decode()
	if status.Kind != ports.StatusNeedMoreInput {
		t.Errorf("expected waiting for input, got %s (%d %s)", status.Kind, status.Code, status.Text)
	}

	// A VP8 key frame header with an invalid start code.
	ctx.Push(ivfsource.AppendFrame(nil, 0, []byte{0x10, 0x02, 0x00, 0x00, 0x00, 0x00, 0x10, 0x00, 0x10, 0x00}))
	status, _ = ctx.Decode()
	if status.Kind != ports.StatusError {
		t.Errorf("expected a decode error, got %s", status.Kind)
	}
	if status.Text == "" {
		t.Error("expected error text from libvpx")
	}
	if ctx.PeekPicture() != nil {
		t.Error("expected no picture")
	}
}
