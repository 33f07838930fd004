package summarizer

import (
	"fmt"
	"strings"
	"time"

	"github.com/ideamans/go-l10n"
)

// MarkdownFormatter renders a Summary as a Markdown document.
type MarkdownFormatter struct{}

// NewMarkdownFormatter creates a new MarkdownFormatter.
func NewMarkdownFormatter() *MarkdownFormatter {
	return &MarkdownFormatter{}
}

// Format implements Formatter.
func (f *MarkdownFormatter) Format(s *Summary) string {
	var b strings.Builder

	fmt.Fprintf(&b, "# %s\n\n", l10n.T("Decode Summary"))
	fmt.Fprintf(&b, "%s: %s\n\n", l10n.T("Generated"), s.GeneratedAt.Format(time.RFC3339))

	if s.Error != "" {
		fmt.Fprintf(&b, "> **%s:** %s\n\n", l10n.T("Stream failed"), s.Error)
	}

	section(&b, "Input")
	header(&b, "Item")
	row(&b, l10n.T("Stream"), s.Stream.ID)
	row(&b, l10n.T("Input"), s.Stream.Input)
	row(&b, l10n.T("Format"), s.Stream.InputFormat)
	row(&b, l10n.T("Framing"), s.Stream.Framing)
	row(&b, l10n.T("Engine"), s.Stream.Engine)
	if s.Stream.Threads > 0 {
		row(&b, l10n.T("Threads"), fmt.Sprintf("%d", s.Stream.Threads))
	}
	b.WriteString("\n")

	section(&b, "Output")
	header(&b, "Item")
	if s.Output.Width > 0 && s.Output.Height > 0 {
		row(&b, l10n.T("Geometry"), fmt.Sprintf("%dx%d %s", s.Output.Width, s.Output.Height, s.Output.Format))
	} else {
		row(&b, l10n.T("Geometry"), l10n.T("not negotiated"))
	}
	row(&b, l10n.T("Frame rate"), s.Output.FrameRate)
	row(&b, l10n.T("Output"), s.Output.Path)
	if s.Output.Snapshots > 0 {
		row(&b, l10n.T("Snapshots"), fmt.Sprintf("%d", s.Output.Snapshots))
	}
	b.WriteString("\n")

	c := s.Counters
	section(&b, "Counters")
	header(&b, "Counter")
	row(&b, l10n.T("Chunks"), fmt.Sprintf("%d", c.Chunks))
	row(&b, l10n.T("Bytes in"), formatBytes(c.BytesIn))
	row(&b, l10n.T("Bytes fed"), formatBytes(c.BytesFed))
	row(&b, l10n.T("Frames"), fmt.Sprintf("%d", c.Frames))
	row(&b, l10n.T("Renegotiations"), fmt.Sprintf("%d", c.Renegotiations))
	row(&b, l10n.T("Engine warnings"), fmt.Sprintf("%d", c.Warnings))
	row(&b, l10n.T("Framing errors"), fmt.Sprintf("%d", c.FramingErrors))
	row(&b, l10n.T("Backlog events"), fmt.Sprintf("%d", c.BacklogEvents))
	row(&b, l10n.T("Flushes"), l10n.F("%d (%d pictures discarded)", c.Flushes, c.Discarded))
	b.WriteString("\n")

	section(&b, "Timing")
	fmt.Fprintf(&b, "- %s: %d ms\n", l10n.T("Duration"), s.Duration.Milliseconds())
	fmt.Fprintf(&b, "- %s: %.1f frames/s\n", l10n.T("Throughput"), s.FramesPerSecond())

	return b.String()
}

func section(b *strings.Builder, title string) {
	fmt.Fprintf(b, "## %s\n\n", l10n.T(title))
}

func header(b *strings.Builder, first string) {
	fmt.Fprintf(b, "| %s | %s |\n|---|---|\n", l10n.T(first), l10n.T("Value"))
}

func row(b *strings.Builder, key, value string) {
	if value == "" {
		value = "-"
	}
	fmt.Fprintf(b, "| %s | %s |\n", key, value)
}

func formatBytes(n int64) string {
	const unit = 1024
	switch {
	case n >= unit*unit*unit:
		return fmt.Sprintf("%.2f GB", float64(n)/(unit*unit*unit))
	case n >= unit*unit:
		return fmt.Sprintf("%.2f MB", float64(n)/(unit*unit))
	case n >= unit:
		return fmt.Sprintf("%.2f KB", float64(n)/unit)
	default:
		return fmt.Sprintf("%d B", n)
	}
}

var _ Formatter = (*MarkdownFormatter)(nil)
