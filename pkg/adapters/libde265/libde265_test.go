//go:build darwin || linux

package libde265

import (
	"testing"

	"github.com/user/decodebridge/pkg/ports"
)

func TestEngine_EmptyContext(t *testing.T) {
	if !Available() {
		t.Skip("libde265 not installed")
	}
	t.Logf("libde265 %s", Version())

	engine, err := New()
	if err != nil {
		t.Fatalf("New failed: %v", err)
	}
	ctx, err := engine.NewContext()
	if err != nil {
		t.Fatalf("NewContext failed: %v", err)
	}
	defer ctx.Free()

	if err := ctx.StartWorkers(2); err != nil {
		t.Fatalf("StartWorkers failed: %v", err)
	}

	// libde265 sets more on an empty decoder as well; only the status says
	// that nothing can be done.
	status, _ := ctx.Decode()
	if status.Kind != ports.StatusNeedMoreInput {
		t.Errorf("expected waiting for input, got %s (%d %s)", status.Kind, status.Code, status.Text)
	}
	if ctx.PeekPicture() != nil {
		t.Error("expected no picture")
	}
	if _, ok := ctx.NextWarning(); ok {
		t.Error("expected no warning")
	}
}

func TestEngine_FreeTwice(t *testing.T) {
	if !Available() {
		t.Skip("libde265 not installed")
	}
	engine, err := New()
	if err != nil {
		t.Fatal(err)
	}
	ctx, err := engine.NewContext()
	if err != nil {
		t.Fatal(err)
	}
	ctx.Free()
	ctx.Free()
}
