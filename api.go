package framepool

import (
	"context"
	"log/slog"

	"github.com/care/framepool/internal"
)

// Public API — thin re-exports of the internal implementation as a stable
// contract. Implementation lives in internal/ so it can evolve without
// breaking callers.

// State is the lifecycle state of a Frame.
type State = internal.State

const (
	StateFree     = internal.StateFree
	StateLocked   = internal.StateLocked
	StateRendered = internal.StateRendered
	StateFreeable = internal.StateFreeable
)

// Picture is the read-only view a FrameHandle needs of its owning decoded
// picture in order to arm a Frame at lock time: forward/backward motion
// compensation references and their f-code range flags. The
// pixel-producing decoder that writes into the frame is a separate
// collaborator, outside the pool's scope.
type Picture = internal.Picture

// SliceRow is per-macroblock-row decoder scratch state, latched from the
// owning Picture at Frame.lock time and otherwise opaque to the pool.
type SliceRow = internal.SliceRow

// Frame owns a pixel buffer and a state machine. See internal/frame.go.
type Frame = internal.Frame

// Pool owns a fixed-size array of Frames and the two lists (free, freeable)
// that track which ones are currently idle. See internal/pool.go.
type Pool = internal.Pool

// FrameHandle is a per-picture indirection with a reference count. See
// internal/handle.go.
type FrameHandle = internal.FrameHandle

// PoolSnapshot and FrameSnapshot are re-exported diagnostic views.
type PoolSnapshot = internal.PoolSnapshot
type FrameSnapshot = internal.FrameSnapshot

// ErrOutOfFrames is returned by FrameHandle.Acquire (via Pool.GetFreeFrame)
// when both the free and freeable lists are empty.
var ErrOutOfFrames = internal.ErrOutOfFrames

// InvariantViolation is the panic value raised when a state, refcount, or
// binding invariant the pool depends on for correctness is violated. It
// always indicates a bug, never a runtime condition; recover from it only
// at a supervisor boundary about to tear the decoder down.
type InvariantViolation = internal.InvariantViolation

// Option configures a Pool at construction time.
type Option func(*poolOptions)

type poolOptions struct {
	logger *slog.Logger
}

// WithLogger attaches a structured logger the pool uses for a debug log when
// a frame is handed out from the free list and a warning on each eviction.
// Invariant violations are not logged; their diagnostics travel in the
// InvariantViolation panic value. If omitted, slog.Default() is used.
func WithLogger(l *slog.Logger) Option {
	return func(o *poolOptions) { o.logger = l }
}

// New constructs a Pool of numFrames Frames, each mbWidth x mbHeight
// macroblocks (so width = 16*mbWidth, height = 16*mbHeight pixels). Frame
// dimensions are fixed for the pool's lifetime.
func New(numFrames, mbWidth, mbHeight int, opts ...Option) *Pool {
	o := &poolOptions{}
	for _, opt := range opts {
		opt(o)
	}
	return internal.NewPool(numFrames, mbWidth, mbHeight, o.logger)
}

// NewFrameHandle constructs a handle bound to no frame yet, for the given
// picture. picture's accessors are read each time the handle binds a fresh
// frame; a resurrecting Acquire does not re-read them.
func NewFrameHandle(pool *Pool, picture Picture) *FrameHandle {
	return internal.NewFrameHandle(pool, picture)
}

// Drain blocks until every frame in pool is FREE or FREEABLE, or ctx is
// cancelled. Satisfies the resource policy that no frame may still be
// referenced when the pool is torn down.
func Drain(ctx context.Context, pool *Pool) error {
	return pool.Drain(ctx)
}

// Snapshot returns a point-in-time diagnostic view of pool.
func Snapshot(pool *Pool) PoolSnapshot {
	return pool.Snapshot()
}

// UnmarshalSnapshot decodes bytes produced by PoolSnapshot.MarshalMsgpack.
func UnmarshalSnapshot(data []byte) (PoolSnapshot, error) {
	return internal.UnmarshalSnapshot(data)
}
