// Package summarizer renders a report of one decode session.
package summarizer

import "time"

// Summary contains everything collected during a decode session.
type Summary struct {
	GeneratedAt time.Time

	Stream   StreamInfo
	Output   OutputInfo
	Counters Counters

	Duration time.Duration

	// Error is the terminal stream error, empty on success.
	Error string
}

// StreamInfo describes the input side.
type StreamInfo struct {
	ID          string
	Input       string
	InputFormat string
	Framing     string
	Engine      string
	Threads     int
}

// OutputInfo describes the last negotiated output.
type OutputInfo struct {
	Width     int
	Height    int
	Format    string
	FrameRate string
	Path      string
	Snapshots int
}

// Counters are the loop counters of the session.
type Counters struct {
	Chunks         int
	BytesIn        int64
	BytesFed       int64
	Frames         int
	Renegotiations int
	Warnings       int
	FramingErrors  int
	BacklogEvents  int
	Flushes        int
	Discarded      int
}

// NewSummary creates a new Summary stamped with the current time.
func NewSummary() *Summary {
	return &Summary{
		GeneratedAt: time.Now(),
	}
}

// FramesPerSecond returns the decode throughput, or 0 for an empty session.
func (s *Summary) FramesPerSecond() float64 {
	if s.Duration <= 0 {
		return 0
	}
	return float64(s.Counters.Frames) / s.Duration.Seconds()
}

// Builder provides a fluent interface for building a Summary.
type Builder struct {
	summary *Summary
}

// NewBuilder creates a new Builder.
func NewBuilder() *Builder {
	return &Builder{
		summary: NewSummary(),
	}
}

// WithStream sets input information.
func (b *Builder) WithStream(stream StreamInfo) *Builder {
	b.summary.Stream = stream
	return b
}

// WithOutput sets output information.
func (b *Builder) WithOutput(output OutputInfo) *Builder {
	b.summary.Output = output
	return b
}

// WithCounters sets the loop counters.
func (b *Builder) WithCounters(counters Counters) *Builder {
	b.summary.Counters = counters
	return b
}

// WithDuration sets the wall-clock session duration.
func (b *Builder) WithDuration(d time.Duration) *Builder {
	b.summary.Duration = d
	return b
}

// WithError records a terminal error. A nil error leaves the summary clean.
func (b *Builder) WithError(err error) *Builder {
	if err != nil {
		b.summary.Error = err.Error()
	}
	return b
}

// Build returns the constructed Summary.
func (b *Builder) Build() *Summary {
	return b.summary
}
