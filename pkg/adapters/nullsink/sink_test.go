package nullsink

import (
	"context"
	"testing"

	"github.com/user/decodebridge/pkg/pipeline"
)

func TestSink_Counts(t *testing.T) {
	s := New()
	ctx := context.Background()

	if err := s.Renegotiate(ctx, pipeline.Geometry{Width: 4, Height: 2}); err != nil {
		t.Fatalf("Renegotiate failed: %v", err)
	}
	for i := 0; i < 3; i++ {
		if err := s.PushFrame(ctx, pipeline.Frame{Index: i, Data: make([]byte, 12)}); err != nil {
			t.Fatalf("PushFrame failed: %v", err)
		}
	}
	if s.Frames() != 3 || s.Bytes() != 36 {
		t.Errorf("counted %d frames and %d bytes", s.Frames(), s.Bytes())
	}
	if err := s.Close(); err != nil {
		t.Errorf("Close failed: %v", err)
	}
}
