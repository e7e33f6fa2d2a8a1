package internal

import (
	"context"
	"sync"

	"github.com/google/uuid"
)

// Frame owns a pixel buffer and a state machine.
//
// Architecture:
//   - Fixed-size pixel buffer, allocated once at Frame construction and
//     never reallocated (no allocation on bind).
//   - Four-state machine: FREE, LOCKED, RENDERED, FREEABLE (see State).
//   - Blocking consume via sync.Cond: WaitRendered blocks until pixels are
//     valid, with broadcast wakeup (multiple waiters are legal — several
//     consumers may be waiting on the same reference frame).
//   - prev/next are intrusive list links, owned exclusively by whichever
//     of Pool's two Lists currently holds the frame; they are nil whenever
//     the Frame is rented out (LOCKED or RENDERED).
//
// Thread-safety:
//   - All fields protected by mu, except width/height/pix/id which are
//     immutable after construction.
//   - The transitions into RENDERED (setRendered, relock) broadcast
//     activity, the only state WaitRendered waits for; broadcast rather
//     than signal, since a signal-only port would deadlock a multi-waiter
//     scenario.
type Frame struct {
	id       uuid.UUID
	width    int
	height   int
	mbHeight int
	pix      []byte

	mu     sync.Mutex
	cond   *sync.Cond
	state  State
	rows   []SliceRow
	handle *FrameHandle // non-owning back-pointer to the handle currently bound, if any

	prev, next *Frame // intrusive list links; owned by whichever List holds this frame
}

func newFrame(mbWidth, mbHeight int) *Frame {
	width := 16 * mbWidth
	height := 16 * mbHeight

	f := &Frame{
		id:       uuid.New(),
		width:    width,
		height:   height,
		mbHeight: mbHeight,
		pix:      make([]byte, 3*width*height/2),
		state:    StateFree,
	}
	f.cond = sync.NewCond(&f.mu)
	return f
}

// ID returns the frame's stable diagnostic identifier.
func (f *Frame) ID() uuid.UUID { return f.id }

// Width returns the frame width in pixels (a macroblock-multiple of 16).
func (f *Frame) Width() int { return f.width }

// Height returns the frame height in pixels (a macroblock-multiple of 16).
func (f *Frame) Height() int { return f.height }

// Pix returns the contiguous YCbCr 4:2:0 pixel buffer: Y plane (W*H) followed
// by Cb (W*H/4) then Cr (W*H/4). Only safe to read between a successful
// WaitRendered and the matching release.
func (f *Frame) Pix() []byte { return f.pix }

// State returns the frame's current state. Diagnostics/tests only — by the
// time the caller observes it, it may already be stale.
func (f *Frame) State() State {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.state
}

// Rows returns the per-macroblock-row scratch state latched at the most
// recent lock. Opaque to the pool; read by the pixel-producing decoder.
func (f *Frame) Rows() []SliceRow {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.rows
}

func (f *Frame) handleID() uuid.UUID {
	if f.handle == nil {
		return uuid.UUID{}
	}
	return f.handle.id
}

// lock performs the FREE -> LOCKED transition, binding the frame to handle
// and latching the motion-compensation parameters into every slice row.
// Preconditions: handle == nil, state == FREE.
func (f *Frame) lock(handle *FrameHandle, fCodeFV, fCodeBV int, forward, backward Picture) {
	f.mu.Lock()
	defer f.mu.Unlock()

	if f.handle != nil || f.state != StateFree {
		fatal("Frame.lock", f.state, f.id, f.handleID())
	}

	f.handle = handle
	f.state = StateLocked
	f.rows = newSliceRows(f.mbHeight, fCodeFV, fCodeBV, forward, backward)
}

// SetRendered performs the LOCKED -> RENDERED transition and broadcasts
// activity to every waiter blocked in WaitRendered. Called by the
// pixel-producing decoder once every row has been filled in.
func (f *Frame) SetRendered() {
	f.setRendered()
}

// setRendered is the internal implementation shared by SetRendered.
func (f *Frame) setRendered() {
	f.mu.Lock()
	defer f.mu.Unlock()

	if f.state != StateLocked {
		fatal("Frame.setRendered", f.state, f.id, f.handleID())
	}

	f.state = StateRendered
	f.cond.Broadcast()
}

// relock performs the FREEABLE -> RENDERED resurrection transition.
func (f *Frame) relock() {
	f.mu.Lock()
	defer f.mu.Unlock()

	if f.state != StateFreeable {
		fatal("Frame.relock", f.state, f.id, f.handleID())
	}

	f.state = StateRendered
	f.cond.Broadcast()
}

// setFreeable performs the RENDERED -> FREEABLE transition. Called by the
// owning handle once its lock count falls to zero for a rendered frame.
func (f *Frame) setFreeable() {
	f.mu.Lock()
	defer f.mu.Unlock()

	if f.state != StateRendered {
		fatal("Frame.setFreeable", f.state, f.id, f.handleID())
	}

	f.state = StateFreeable
}

// freeLocked performs the LOCKED -> FREE transition. Called when a handle
// is released before its frame was ever rendered; the binding is abandoned.
func (f *Frame) freeLocked() {
	f.mu.Lock()
	defer f.mu.Unlock()

	if f.state != StateLocked {
		fatal("Frame.freeLocked", f.state, f.id, f.handleID())
	}

	f.handle = nil
	f.state = StateFree
}

// free performs the FREEABLE -> FREE eviction transition. It clears the
// binding here, then notifies the previously-bound handle that it has lost
// its frame via setFrame, which takes that handle's own mutex. Called by
// Pool.GetFreeFrame with the Pool mutex already held.
func (f *Frame) free() {
	f.mu.Lock()
	defer f.mu.Unlock()

	if f.state != StateFreeable {
		fatal("Frame.free", f.state, f.id, f.handleID())
	}

	evicted := f.handle
	f.handle = nil
	f.state = StateFree

	if evicted != nil {
		evicted.setFrame(nil)
	}
}

// WaitRendered blocks until this specific frame reaches RENDERED. Most
// callers should prefer FrameHandle.WaitRendered, which also tolerates the
// frame being evicted and rebound out from under them; this method is for
// a caller that already knows it is looking at a stable frame (e.g. right
// after its own Acquire, before anything else can touch the binding).
func (f *Frame) WaitRendered() {
	f.waitRendered()
}

// WaitRenderedContext is the cancellable variant of WaitRendered.
func (f *Frame) WaitRenderedContext(ctx context.Context) error {
	return f.waitRenderedContext(ctx)
}

// waitRendered blocks while state != RENDERED, tolerating spurious wakeups.
// It does not return on FREEABLE — callers of the handle-level wait guard
// against a frame re-evicted before they consume it (see FrameHandle.WaitRendered).
func (f *Frame) waitRendered() {
	f.mu.Lock()
	defer f.mu.Unlock()

	for f.state != StateRendered {
		f.cond.Wait()
	}
}

// waitRenderedContext is the cancellable variant of waitRendered. It is an
// extension beyond the source (which has no deadline-bearing waits) and
// does not change the core state machine: it polls the condition on every
// wake (either activity or the watchdog below) and honours ctx without
// altering Frame state.
func (f *Frame) waitRenderedContext(ctx context.Context) error {
	done := make(chan struct{})
	defer close(done)

	// sync.Cond has no context-aware wait; wake the waiter if ctx is
	// cancelled by broadcasting from a watchdog goroutine tied to done.
	go func() {
		select {
		case <-ctx.Done():
			f.mu.Lock()
			f.cond.Broadcast()
			f.mu.Unlock()
		case <-done:
		}
	}()

	f.mu.Lock()
	defer f.mu.Unlock()

	for f.state != StateRendered {
		if err := ctx.Err(); err != nil {
			return err
		}
		f.cond.Wait()
	}
	return nil
}
