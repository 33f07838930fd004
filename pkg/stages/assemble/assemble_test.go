package assemble

import (
	"bytes"
	"context"
	"errors"
	"testing"

	"github.com/user/decodebridge/pkg/adapters/logger"
	"github.com/user/decodebridge/pkg/mocks"
	"github.com/user/decodebridge/pkg/pipeline"
)

func TestStage_PlaneLayout(t *testing.T) {
	tests := []struct {
		name          string
		width, height int
		pad           int
	}{
		{"tight", 8, 4, 0},
		{"padded stride", 8, 4, 24},
		{"odd dimensions", 7, 5, 3},
		{"single pixel", 1, 1, 31},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			pic := mocks.NewPicture(tt.width, tt.height, tt.pad, 10)
			s := NewStage(mocks.NewDownstream(), pipeline.Fraction{}, logger.NewNoop())

			frame, err := s.Execute(context.Background(), pic)
			if err != nil {
				t.Fatalf("Execute failed: %v", err)
			}

			want := pic.Packed()
			if !bytes.Equal(frame.Data, want) {
				t.Errorf("frame data mismatch:\n got %v\nwant %v", frame.Data, want)
			}
			if len(frame.Data) != frame.Geometry.FrameSize() {
				t.Errorf("frame size %d, want %d", len(frame.Data), frame.Geometry.FrameSize())
			}
			if bytes.IndexByte(frame.Data, mocks.PaddingByte) >= 0 {
				t.Error("stride padding leaked into the frame")
			}
		})
	}
}

func TestStage_KnownFixture(t *testing.T) {
	// 2x2 luma with stride 4, 1x1 chroma with stride 2.
	pic := &mocks.Picture{
		Widths:  [3]int{2, 1, 1},
		Heights: [3]int{2, 1, 1},
		Strides: [3]int{4, 2, 2},
		Planes: [3][]byte{
			{1, 2, 0xEE, 0xEE, 3, 4, 0xEE, 0xEE},
			{5, 0xEE},
			{6, 0xEE},
		},
	}
	s := NewStage(mocks.NewDownstream(), pipeline.Fraction{}, logger.NewNoop())

	frame, err := s.Execute(context.Background(), pic)
	if err != nil {
		t.Fatal(err)
	}
	want := []byte{1, 2, 3, 4, 5, 6}
	if !bytes.Equal(frame.Data, want) {
		t.Errorf("got %v, want %v", frame.Data, want)
	}
	if !bytes.Equal(frame.Plane(1), []byte{5}) || !bytes.Equal(frame.Plane(2), []byte{6}) {
		t.Errorf("chroma planes: %v %v", frame.Plane(1), frame.Plane(2))
	}
}

func TestStage_Renegotiation(t *testing.T) {
	down := mocks.NewDownstream()
	rate := pipeline.Fraction{Num: 25, Den: 1}
	s := NewStage(down, rate, logger.NewNoop())
	ctx := context.Background()

	sizes := [][2]int{{16, 8}, {16, 8}, {32, 16}, {32, 16}, {32, 18}}
	for i, size := range sizes {
		frame, err := s.Execute(ctx, mocks.NewPicture(size[0], size[1], 0, byte(i)))
		if err != nil {
			t.Fatalf("picture %d: %v", i, err)
		}
		if frame.Index != i {
			t.Errorf("picture %d has index %d", i, frame.Index)
		}
		if frame.Geometry.Width != size[0] || frame.Geometry.Height != size[1] {
			t.Errorf("picture %d geometry %s", i, frame.Geometry)
		}
	}

	if len(down.Geometries) != 3 {
		t.Fatalf("expected 3 renegotiations, got %d", len(down.Geometries))
	}
	if s.Renegotiations() != 3 {
		t.Errorf("Renegotiations() = %d", s.Renegotiations())
	}
	want := []pipeline.Geometry{
		{Width: 16, Height: 8, Format: pipeline.FormatI420, FrameRate: rate},
		{Width: 32, Height: 16, Format: pipeline.FormatI420, FrameRate: rate},
		{Width: 32, Height: 18, Format: pipeline.FormatI420, FrameRate: rate},
	}
	for i := range want {
		if down.Geometries[i] != want[i] {
			t.Errorf("renegotiation %d: got %s, want %s", i, down.Geometries[i], want[i])
		}
	}
}

func TestStage_ResetRenegotiates(t *testing.T) {
	down := mocks.NewDownstream()
	s := NewStage(down, pipeline.Fraction{}, logger.NewNoop())
	ctx := context.Background()

	if _, err := s.Execute(ctx, mocks.NewPicture(4, 4, 0, 0)); err != nil {
		t.Fatal(err)
	}
	s.Reset()
	if s.Geometry().Width != -1 {
		t.Errorf("expected geometry to be forgotten, got %s", s.Geometry())
	}
	if _, err := s.Execute(ctx, mocks.NewPicture(4, 4, 0, 0)); err != nil {
		t.Fatal(err)
	}
	if len(down.Geometries) != 2 {
		t.Errorf("expected 2 renegotiations, got %d", len(down.Geometries))
	}
}

func TestStage_RenegotiationRejected(t *testing.T) {
	down := mocks.NewDownstream()
	down.RenegotiateFunc = func(context.Context, pipeline.Geometry) error {
		return errors.New("not supported")
	}
	s := NewStage(down, pipeline.Fraction{}, logger.NewNoop())

	_, err := s.Execute(context.Background(), mocks.NewPicture(4, 4, 0, 0))
	if !errors.Is(err, ErrRenegotiationRejected) {
		t.Fatalf("expected ErrRenegotiationRejected, got %v", err)
	}
	if s.Geometry().Width != -1 {
		t.Error("rejected geometry must not be recorded")
	}
}

func TestStage_InvalidPictures(t *testing.T) {
	short := mocks.NewPicture(4, 4, 0, 0)
	short.Planes[2] = short.Planes[2][:3]

	narrow := mocks.NewPicture(4, 4, 0, 0)
	narrow.Strides[0] = 2

	tests := []struct {
		name string
		pic  *mocks.Picture
		want error
	}{
		{"short chroma", short, ErrShortPlane},
		{"stride below width", narrow, ErrShortPlane},
		{"empty", &mocks.Picture{}, ErrEmptyPicture},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := NewStage(mocks.NewDownstream(), pipeline.Fraction{}, logger.NewNoop())
			if _, err := s.Execute(context.Background(), tt.pic); !errors.Is(err, tt.want) {
				t.Errorf("expected %v, got %v", tt.want, err)
			}
		})
	}
}
