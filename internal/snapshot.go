package internal

import (
	"github.com/google/uuid"
	"github.com/vmihailenco/msgpack/v5"
)

// PoolSnapshot is a point-in-time diagnostic view of a Pool: list lengths,
// per-frame state, and per-frame binding. Non-blocking, not a live view —
// by the time the caller inspects it, list membership may already have
// changed underneath.
type PoolSnapshot struct {
	NumFrames int `msgpack:"num_frames"`
	Free      int `msgpack:"free"`
	Freeable  int `msgpack:"freeable"`
	RentedOut int `msgpack:"rented_out"`
	Evictions int `msgpack:"evictions"`

	Frames []FrameSnapshot `msgpack:"frames"`
}

// FrameSnapshot is one Frame's contribution to a PoolSnapshot.
type FrameSnapshot struct {
	ID       uuid.UUID  `msgpack:"id"`
	State    State      `msgpack:"state"`
	HandleID *uuid.UUID `msgpack:"handle_id,omitempty"`
}

// MarshalMsgpack encodes the snapshot for an out-of-process inspector (a
// CLI tool, a log sink) to consume. This is a pure in-memory encode — the
// pool never performs the I/O itself, so this does not reopen the "no
// persistence, no network I/O" non-goal; it only produces bytes.
func (s PoolSnapshot) MarshalMsgpack() ([]byte, error) {
	type wire PoolSnapshot // avoid infinite recursion through msgpack's Marshaler detection
	return msgpack.Marshal(wire(s))
}

// UnmarshalSnapshot decodes bytes produced by PoolSnapshot.MarshalMsgpack.
func UnmarshalSnapshot(data []byte) (PoolSnapshot, error) {
	type wire PoolSnapshot
	var w wire
	if err := msgpack.Unmarshal(data, &w); err != nil {
		return PoolSnapshot{}, err
	}
	return PoolSnapshot(w), nil
}
