package controller

// State is the decode loop state.
type State int

const (
	// StateIdle waits for the next chunk.
	StateIdle State = iota
	// StateFeeding is entered while a chunk is being fed to the engine.
	StateFeeding
	// StateBackloggedDraining means a backlog drain emitted a picture and
	// more pictures are still queued in the engine.
	StateBackloggedDraining
	// StateError is terminal until the next Start.
	StateError
)

func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateFeeding:
		return "feeding"
	case StateBackloggedDraining:
		return "backlogged-draining"
	case StateError:
		return "error"
	default:
		return "unknown"
	}
}

// Outcome tells the caller what a chunk produced.
type Outcome int

const (
	// OutcomeNeedData asks for the next chunk.
	OutcomeNeedData Outcome = iota
	// OutcomeFrameEmitted means one frame was pushed downstream.
	OutcomeFrameEmitted
)

func (o Outcome) String() string {
	if o == OutcomeFrameEmitted {
		return "frame-emitted"
	}
	return "need-data"
}

// Stats counts what a stream did since the last Start.
type Stats struct {
	Chunks         int
	BytesIn        int
	BytesFed       int
	Frames         int
	Renegotiations int
	Warnings       int
	FramingErrors  int
	BacklogEvents  int
	Flushes        int
	Discarded      int
}
