package internal

import (
	"context"
	"sync"

	"github.com/google/uuid"
)

// FrameHandle is a per-picture indirection with a reference count. On first
// acquisition it pulls a Frame from the pool and arms it with motion
// compensation state; on final release it returns the Frame to free or
// freeable. A handle may lose its Frame (binding cleared by the pool when
// evicting) and later bind a different one.
//
// Thread-safety: mu guards frame and locks together; every change of the
// binding made by Acquire (a fresh bind) or setFrame (eviction) broadcasts
// activity, since more than one goroutine may be blocked in WaitRendered on
// the same handle.
//
// Lock ordering: Handle -> Pool -> Frame -> List (see pool.go). Acquire
// calls into Pool while holding its own handle's mutex; Pool's eviction
// path then calls setFrame on a *different* handle's mutex. That never
// loops back onto the acquiring handle, so no deadlock.
type FrameHandle struct {
	id      uuid.UUID
	pool    *Pool
	picture Picture

	mu    sync.Mutex
	cond  *sync.Cond
	frame *Frame
	locks int
}

// NewFrameHandle constructs a handle bound to no frame yet. picture's
// accessors are read each time the handle binds a fresh frame (at
// Frame.lock); a resurrecting Acquire does not re-read them.
func NewFrameHandle(pool *Pool, picture Picture) *FrameHandle {
	h := &FrameHandle{
		id:      uuid.New(),
		pool:    pool,
		picture: picture,
	}
	h.cond = sync.NewCond(&h.mu)
	return h
}

// ID returns the handle's stable diagnostic identifier.
func (h *FrameHandle) ID() uuid.UUID { return h.id }

// Frame returns the frame currently bound to this handle, or nil.
// Diagnostics/tests only — the binding may change the instant this returns.
func (h *FrameHandle) Frame() *Frame {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.frame
}

// Locks returns the current lock count. Diagnostics/tests only.
func (h *FrameHandle) Locks() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.locks
}

// Acquire bumps the handle's refcount, binding a Frame if the handle has
// none, or resurrecting one from FREEABLE if this is the first acquire
// since the last drop to zero.
func (h *FrameHandle) Acquire() error {
	h.mu.Lock()
	defer h.mu.Unlock()

	if h.frame != nil {
		if h.locks == 0 {
			if h.frame.State() != StateFreeable {
				fatal("FrameHandle.Acquire", h.frame.State(), h.frame.id, h.id)
			}
			h.pool.RemoveFromFreeable(h.frame)
			h.frame.relock()
		}
		h.locks++
		return nil
	}

	if h.locks != 0 {
		fatal("FrameHandle.Acquire", StateFree, uuid.UUID{}, h.id)
	}

	frame, err := h.pool.GetFreeFrame()
	if err != nil {
		return err
	}

	frame.lock(h, h.picture.FCodeFV(), h.picture.FCodeBV(), h.picture.Forward(), h.picture.Backward())
	h.frame = frame
	h.locks = 1
	h.cond.Broadcast()

	return nil
}

// Release drops the handle's refcount by one. At zero, a rendered frame
// moves to freeable (the binding survives, resurrectable by a later
// Acquire); a frame that was locked but never rendered moves straight back
// to free (the binding is abandoned, since its pixels were never produced).
func (h *FrameHandle) Release() error {
	h.mu.Lock()
	defer h.mu.Unlock()

	if h.locks <= 0 {
		fatal("FrameHandle.Release", StateFree, frameIDOrZero(h.frame), h.id)
	}

	h.locks--
	if h.locks > 0 {
		return nil
	}

	switch h.frame.State() {
	case StateRendered:
		h.pool.MakeFreeable(h.frame)
		h.frame.setFreeable()
	case StateLocked:
		h.pool.MakeFree(h.frame)
		h.frame.freeLocked()
		h.frame = nil
	default:
		fatal("FrameHandle.Release", h.frame.State(), h.frame.id, h.id)
	}

	return nil
}

// setFrame stores a new binding (normally nil, from eviction) and
// broadcasts activity. Only ever called with locks == 0 — the pool's way
// of telling a handle its frame has just been taken back.
func (h *FrameHandle) setFrame(newFrame *Frame) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if h.locks != 0 {
		fatal("FrameHandle.setFrame", StateFree, frameIDOrZero(newFrame), h.id)
	}

	h.frame = newFrame
	h.cond.Broadcast()
}

// WaitRendered blocks until a frame is bound to this handle and that frame
// is RENDERED. The handle mutex is released for the duration of the nested
// Frame wait, so eviction of this handle's frame (which reaches in from a
// *different* handle's acquire path via setFrame), Release, and Frame() can
// all proceed while the waiter is parked.
//
// After the nested wait returns, the handle mutex is retaken and the binding
// is re-checked: if the frame we waited on is no longer the one bound to
// this handle (it was evicted while we were asleep), or is no longer
// RENDERED, the outer loop retries rather than handing back stale state.
func (h *FrameHandle) WaitRendered() error {
	return h.waitRendered(nil)
}

// WaitRenderedContext is the cancellable variant of WaitRendered.
func (h *FrameHandle) WaitRenderedContext(ctx context.Context) error {
	return h.waitRendered(ctx)
}

func (h *FrameHandle) waitRendered(ctx context.Context) error {
	h.mu.Lock()
	defer h.mu.Unlock()

	for {
		for h.frame == nil {
			if err := h.waitForBinding(ctx); err != nil {
				return err
			}
		}

		frame := h.frame
		// frame.cond.Wait only releases frame.mu, so h.mu is dropped
		// explicitly here: eviction (setFrame), Release and Frame() all
		// need h.mu and must not be blocked for the whole nested wait.
		h.mu.Unlock()
		var err error
		if ctx != nil {
			err = frame.waitRenderedContext(ctx)
		} else {
			frame.waitRendered()
		}
		h.mu.Lock()
		if err != nil {
			return err
		}

		// Re-check: still bound to the same frame, and it's still
		// RENDERED? While h.mu was released the frame may have been
		// released, evicted, or rebound, in which case the outer loop
		// waits again.
		if h.frame == frame && frame.State() == StateRendered {
			return nil
		}
	}
}

// waitForBinding waits on activity until a frame is bound, or ctx is done.
func (h *FrameHandle) waitForBinding(ctx context.Context) error {
	if ctx == nil {
		h.cond.Wait()
		return nil
	}

	done := make(chan struct{})
	defer close(done)

	go func() {
		select {
		case <-ctx.Done():
			h.mu.Lock()
			h.cond.Broadcast()
			h.mu.Unlock()
		case <-done:
		}
	}()

	h.cond.Wait()
	return ctx.Err()
}

// Close releases any outstanding locks held by this handle. Idempotent and
// safe to call from a defer; mirrors the resource cleanup the original
// decoder's picture-retirement path performed on a handle it was about to
// discard.
func (h *FrameHandle) Close() error {
	for {
		h.mu.Lock()
		locks := h.locks
		h.mu.Unlock()

		if locks == 0 {
			return nil
		}
		if err := h.Release(); err != nil {
			return err
		}
	}
}

func frameIDOrZero(f *Frame) uuid.UUID {
	if f == nil {
		return uuid.UUID{}
	}
	return f.id
}
