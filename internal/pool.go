// Package internal implements the frame buffer pool. Clients MUST use the
// public API in the parent framepool package — this split allows internal
// refactoring without breaking changes.
package internal

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"
)

// errPoolNotDrained is returned by Close when a frame is still LOCKED or
// RENDERED — closing out from under an active lock would leave a consumer
// holding a dangling *Frame.
var errPoolNotDrained = errors.New("framepool: close called with frames still in use")

// Pool owns a fixed-size array of Frames for its entire lifetime, plus the
// two intrusive lists (free, freeable) that track which ones are currently
// idle. Every Frame is, at any instant, on exactly one of those lists or
// rented out to a FrameHandle (on neither).
//
// Thread-safety: mu guards the compound "pop from free, else evict from
// freeable" decision in GetFreeFrame so two concurrent acquirers can never
// evict the same freeable frame. Lock ordering: a caller may hold a
// FrameHandle's mutex across a call into Pool, but Pool itself must never
// call back into the *same* handle's mutex — eviction only ever touches a
// *different* handle, via Frame.free.
type Pool struct {
	mbWidth, mbHeight int

	frames   []*Frame
	free     List
	freeable List

	mu sync.Mutex

	evictions atomic.Uint64

	log *slog.Logger
}

// NewPool constructs a Pool of numFrames Frames, each mbWidth x mbHeight
// macroblocks. All Frames start on the free list.
func NewPool(numFrames, mbWidth, mbHeight int, logger *slog.Logger) *Pool {
	if logger == nil {
		logger = slog.Default()
	}

	p := &Pool{
		mbWidth:  mbWidth,
		mbHeight: mbHeight,
		frames:   make([]*Frame, numFrames),
		log:      logger,
	}

	for i := range p.frames {
		f := newFrame(mbWidth, mbHeight)
		p.frames[i] = f
		p.free.Add(f)
	}

	return p
}

// GetFreeFrame pops a frame from free; if free is empty, it evicts the head
// of freeable (which detaches that frame from whatever handle still holds
// it); if freeable is also empty, it returns ErrOutOfFrames.
//
// The pool mutex is held across the whole test-and-evict sequence so two
// concurrent callers can never race to evict the same freeable frame.
func (p *Pool) GetFreeFrame() (*Frame, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if f := p.free.PopFront(); f != nil {
		p.log.Debug("frame taken from free list", "frame_id", f.id)
		return f, nil
	}

	f := p.freeable.PopFront()
	if f == nil {
		return nil, ErrOutOfFrames
	}

	evictedHandleID := f.handleID()
	f.free() // FREEABLE -> FREE; notifies the evicted handle internally

	p.evictions.Add(1)
	p.log.Warn("evicted freeable frame to satisfy acquire",
		"frame_id", f.id,
		"evicted_handle_id", evictedHandleID,
	)

	return f, nil
}

// MakeFreeable appends frame to the freeable list. The caller has just
// decremented a handle's refcount to zero for a rendered frame.
func (p *Pool) MakeFreeable(frame *Frame) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.freeable.Add(frame)
}

// MakeFree appends frame to the free list. The caller is returning a frame
// that never reached RENDERED.
func (p *Pool) MakeFree(frame *Frame) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.free.Add(frame)
}

// RemoveFromFreeable unlinks frame from the freeable list. The caller is
// resurrecting a frame for a handle whose refcount just went 0 -> 1.
func (p *Pool) RemoveFromFreeable(frame *Frame) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.freeable.Unlink(frame)
}

// Snapshot returns a point-in-time diagnostic view of the pool.
func (p *Pool) Snapshot() PoolSnapshot {
	p.mu.Lock()
	free := p.free.Len()
	freeable := p.freeable.Len()
	evictions := int(p.evictions.Load())
	p.mu.Unlock()

	snap := PoolSnapshot{
		NumFrames: len(p.frames),
		Free:      free,
		Freeable:  freeable,
		RentedOut: len(p.frames) - free - freeable,
		Evictions: evictions,
		Frames:    make([]FrameSnapshot, 0, len(p.frames)),
	}

	for _, f := range p.frames {
		f.mu.Lock()
		fs := FrameSnapshot{ID: f.id, State: f.state}
		if f.handle != nil {
			id := f.handle.id
			fs.HandleID = &id
		}
		f.mu.Unlock()
		snap.Frames = append(snap.Frames, fs)
	}

	return snap
}

// drainPollInterval bounds how long Drain can sleep between idle checks.
// There is no per-frame signal to wait on (a frame going idle doesn't
// broadcast to the pool), so Drain polls; this keeps shutdown latency low
// without busy-spinning.
const drainPollInterval = 5 * time.Millisecond

// Drain blocks until every frame is FREE or FREEABLE (no outstanding lock
// anywhere in the pool), or returns ctx.Err() if ctx is cancelled first.
// Satisfies the resource policy that, on pool destruction, no frame may
// still be referenced.
func (p *Pool) Drain(ctx context.Context) error {
	for {
		if p.allIdle() {
			return nil
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(drainPollInterval):
		}
	}
}

// Close releases the pool's frame array. The pool owns no file descriptors
// or network connections, so there is nothing to flush; this exists for
// symmetry with FrameHandle.Close and as a place for a future caller to
// assert the pool was drained first. It is an error to call Close while any
// frame is still LOCKED or RENDERED.
func (p *Pool) Close() error {
	p.mu.Lock()
	defer p.mu.Unlock()

	if !p.allIdle() {
		return errPoolNotDrained
	}
	p.frames = nil
	return nil
}

func (p *Pool) allIdle() bool {
	for _, f := range p.frames {
		f.mu.Lock()
		s := f.state
		f.mu.Unlock()
		if s == StateLocked || s == StateRendered {
			return false
		}
	}
	return true
}
