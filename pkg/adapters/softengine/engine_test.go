package softengine

import (
	"bytes"
	"testing"

	"github.com/user/decodebridge/pkg/ports"
)

func newContext(t *testing.T, opts ...Option) ports.EngineContext {
	t.Helper()
	ctx, err := New(opts...).NewContext()
	if err != nil {
		t.Fatalf("NewContext failed: %v", err)
	}
	if err := ctx.StartWorkers(2); err != nil {
		t.Fatalf("StartWorkers failed: %v", err)
	}
	return ctx
}

func countPictures(ctx ports.EngineContext) int {
	n := 0
	for ctx.NextPicture() != nil {
		n++
	}
	return n
}

func TestEscape_NoStartCodeInPayload(t *testing.T) {
	// 256x1 encodes as 46 01 00 00 01, which contains a start code prefix.
	unit := GeometryUnit(256, 1)
	escaped := escape(unit)
	if findStartCode(escaped, 0) >= 0 {
		t.Fatalf("escaped unit %x still contains a start code", escaped)
	}
	if got := unescape(escaped); !bytes.Equal(got, unit) {
		t.Errorf("unescape(escape(%x)) = %x", unit, got)
	}
}

func TestDecode_LastUnitWaitsForEndOfStream(t *testing.T) {
	ctx := newContext(t)
	ctx.Push(EncodeAnnexB(Stream(64, 48, 3)...))

	status, more := ctx.Decode()
	if status.Kind != ports.StatusOK {
		t.Fatalf("expected ok, got %s (%d)", status.Kind, status.Code)
	}
	if !more {
		t.Error("expected undecoded input to remain")
	}
	if n := countPictures(ctx); n != 2 {
		t.Errorf("expected 2 pictures before end of stream, got %d", n)
	}

	ctx.EndOfStream()
	status, more = ctx.Decode()
	if status.Kind != ports.StatusOK || more {
		t.Fatalf("expected ok without more input, got %s more=%v", status.Kind, more)
	}
	if n := countPictures(ctx); n != 1 {
		t.Errorf("expected the last picture after end of stream, got %d", n)
	}

	status, _ = ctx.Decode()
	if status.Kind != ports.StatusNeedMoreInput || status.Code != CodeWaitingForInput {
		t.Errorf("expected waiting for input, got %s (%d)", status.Kind, status.Code)
	}
}

func TestDecode_BufferFull(t *testing.T) {
	ctx := newContext(t, WithQueueCapacity(2))
	ctx.Push(EncodeAnnexB(Stream(16, 16, 5)...))
	ctx.EndOfStream()

	var kinds []ports.StatusKind
	var counts []int
	for i := 0; i < 4; i++ {
		status, _ := ctx.Decode()
		kinds = append(kinds, status.Kind)
		counts = append(counts, countPictures(ctx))
	}

	wantKinds := []ports.StatusKind{ports.StatusBufferFull, ports.StatusBufferFull, ports.StatusOK, ports.StatusNeedMoreInput}
	wantCounts := []int{2, 2, 1, 0}
	for i := range wantKinds {
		if kinds[i] != wantKinds[i] || counts[i] != wantCounts[i] {
			t.Errorf("decode %d: got %s with %d pictures, want %s with %d", i, kinds[i], counts[i], wantKinds[i], wantCounts[i])
		}
	}
}

func TestDecode_ChunkedInputPreservesOrder(t *testing.T) {
	ctx := newContext(t, WithQueueCapacity(64))
	stream := EncodeAnnexB(Stream(8, 8, 20)...)

	var seeds []byte
	collect := func() {
		for pic := ctx.NextPicture(); pic != nil; pic = ctx.NextPicture() {
			seeds = append(seeds, pic.Plane(0)[0])
		}
	}
	for off := 0; off < len(stream); off += 3 {
		end := min(off+3, len(stream))
		ctx.Push(stream[off:end])
		if status, _ := ctx.Decode(); status.Kind == ports.StatusError {
			t.Fatalf("decode failed: %s", status.Text)
		}
		collect()
	}
	ctx.EndOfStream()
	ctx.Decode()
	collect()

	if len(seeds) != 20 {
		t.Fatalf("expected 20 pictures, got %d", len(seeds))
	}
	for i, s := range seeds {
		if s != byte(i) {
			t.Fatalf("picture %d has seed %d", i, s)
		}
	}
}

func TestPicture_Layout(t *testing.T) {
	ctx := newContext(t)
	ctx.Push(EncodeAnnexB(GeometryUnit(33, 7), PictureUnit(5)))
	ctx.EndOfStream()
	ctx.Decode()

	pic := ctx.PeekPicture()
	if pic == nil {
		t.Fatal("expected a picture")
	}
	if pic.Width(0) != 33 || pic.Height(0) != 7 {
		t.Errorf("luma %dx%d", pic.Width(0), pic.Height(0))
	}
	if pic.Width(1) != 17 || pic.Height(2) != 4 {
		t.Errorf("chroma %dx%d", pic.Width(1), pic.Height(2))
	}
	if pic.Stride(0) != 64 || pic.Stride(1) != 32 {
		t.Errorf("strides %d %d, want 64 32", pic.Stride(0), pic.Stride(1))
	}
	if len(pic.Plane(0)) != 64*7 {
		t.Errorf("luma plane has %d bytes", len(pic.Plane(0)))
	}
	if got := pic.Plane(0)[1*64+2]; got != 5+3 {
		t.Errorf("luma(2,1) = %d, want 8", got)
	}
	if pic.Plane(0)[40] != 0 {
		t.Error("row padding should be zero")
	}
	if pic.Plane(1)[0] != 133 || pic.Plane(2)[0] != 123 {
		t.Errorf("chroma values %d %d", pic.Plane(1)[0], pic.Plane(2)[0])
	}
}

func TestDecode_Warnings(t *testing.T) {
	ctx := newContext(t)
	ctx.Push(EncodeAnnexB(PictureUnit(1), WarningUnit(1234), GeometryUnit(0, 4), GeometryUnit(4, 4), PictureUnit(2)))
	ctx.EndOfStream()

	status, _ := ctx.Decode()
	if status.Kind != ports.StatusOK {
		t.Fatalf("expected ok, got %s", status.Kind)
	}

	var codes []int
	for w, ok := ctx.NextWarning(); ok; w, ok = ctx.NextWarning() {
		codes = append(codes, w.Code)
	}
	want := []int{CodeNoGeometry, 1234, CodeInvalidGeometry}
	if len(codes) != len(want) {
		t.Fatalf("warnings %v, want %v", codes, want)
	}
	for i := range want {
		if codes[i] != want[i] {
			t.Errorf("warning %d = %d, want %d", i, codes[i], want[i])
		}
	}
	if n := countPictures(ctx); n != 1 {
		t.Errorf("expected 1 picture, got %d", n)
	}
}

func TestDecode_CorruptUnit(t *testing.T) {
	ctx := newContext(t)
	ctx.Push(EncodeAnnexB(GeometryUnit(4, 4), CorruptUnit(), PictureUnit(0)))
	ctx.EndOfStream()

	status, more := ctx.Decode()
	if status.Kind != ports.StatusError || status.Code != CodeUnspecifiedError {
		t.Fatalf("expected error 18, got %s (%d)", status.Kind, status.Code)
	}
	if more {
		t.Error("no input should remain after a fatal error")
	}
}

func TestDecode_RequiresWorkers(t *testing.T) {
	ctx, _ := New().NewContext()
	if err := ctx.StartWorkers(0); err == nil {
		t.Error("expected error for zero workers")
	}
	ctx.Push(EncodeAnnexB(Stream(4, 4, 1)...))
	ctx.EndOfStream()
	if status, _ := ctx.Decode(); status.Kind != ports.StatusError {
		t.Errorf("expected error without workers, got %s", status.Kind)
	}
}

func TestEncodePacketized(t *testing.T) {
	units := Stream(4, 4, 2)
	packed := EncodePacketized(units...)
	annexb := EncodeAnnexB(units...)
	if len(packed) != len(annexb) {
		t.Fatalf("packetized and annex-b sizes differ: %d vs %d", len(packed), len(annexb))
	}
	if !bytes.Equal(packed[:4], []byte{0, 0, 0, 6}) {
		t.Errorf("first length field %x", packed[:4])
	}
}

func TestFree(t *testing.T) {
	ctx := newContext(t)
	ctx.Free()
	ctx.Free()
	if status := ctx.Push([]byte{0, 0, 0, 1}); status.Kind != ports.StatusError {
		t.Errorf("push after free returned %s", status.Kind)
	}
}
