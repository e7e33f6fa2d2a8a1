package framepool_test

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/care/framepool"
)

// testPicture is a minimal framepool.Picture with no real references, used
// by every scenario below that doesn't care about motion compensation data.
type testPicture struct {
	fCodeFV, fCodeBV  int
	forward, backward framepool.Picture
}

func (p *testPicture) FCodeFV() int                { return p.fCodeFV }
func (p *testPicture) FCodeBV() int                { return p.fCodeBV }
func (p *testPicture) Forward() framepool.Picture  { return p.forward }
func (p *testPicture) Backward() framepool.Picture { return p.backward }

// --- Scenario 1: Basic rent/render/release cycle ---

// TestAcquireRenderRelease validates the common path: a handle acquires a
// frame, the decoder fills it and marks it rendered, a consumer observes the
// pixels, and the handle releases back to freeable (not free — the binding
// survives a clean release of a rendered frame).
func TestAcquireRenderRelease(t *testing.T) {
	pool := framepool.New(4, 10, 8)
	handle := framepool.NewFrameHandle(pool, &testPicture{})

	if err := handle.Acquire(); err != nil {
		t.Fatalf("Acquire() failed: %v", err)
	}

	frame := handle.Frame()
	if frame == nil {
		t.Fatal("Acquire() left handle unbound")
	}
	if got := frame.State(); got != framepool.StateLocked {
		t.Fatalf("state after Acquire = %v, want LOCKED", got)
	}

	frame.SetRendered()
	if got := frame.State(); got != framepool.StateRendered {
		t.Fatalf("state after SetRendered = %v, want RENDERED", got)
	}

	if err := handle.WaitRendered(); err != nil {
		t.Fatalf("WaitRendered() failed: %v", err)
	}
	if got := len(frame.Pix()); got != 3*frame.Width()*frame.Height()/2 {
		t.Errorf("Pix() length = %d, want %d", got, 3*frame.Width()*frame.Height()/2)
	}

	if err := handle.Release(); err != nil {
		t.Fatalf("Release() failed: %v", err)
	}
	if got := frame.State(); got != framepool.StateFreeable {
		t.Fatalf("state after Release of rendered frame = %v, want FREEABLE", got)
	}

	snap := framepool.Snapshot(pool)
	if snap.Freeable != 1 || snap.Free != 3 {
		t.Errorf("snapshot = %+v, want Freeable=1 Free=3", snap)
	}
}

// --- Scenario 2: Resurrection ---

// TestResurrectionBeforeEviction validates that a FREEABLE frame is still
// bound to its original handle and can be relocked straight back to
// RENDERED by a fresh Acquire, provided nothing evicted it in the meantime.
func TestResurrectionBeforeEviction(t *testing.T) {
	pool := framepool.New(4, 10, 8)
	handle := framepool.NewFrameHandle(pool, &testPicture{})

	if err := handle.Acquire(); err != nil {
		t.Fatalf("first Acquire() failed: %v", err)
	}
	first := handle.Frame()
	first.SetRendered()
	if err := handle.Release(); err != nil {
		t.Fatalf("Release() failed: %v", err)
	}
	if first.State() != framepool.StateFreeable {
		t.Fatalf("state = %v, want FREEABLE", first.State())
	}

	if err := handle.Acquire(); err != nil {
		t.Fatalf("second Acquire() failed: %v", err)
	}
	second := handle.Frame()
	if second != first {
		t.Fatalf("resurrection bound a different frame: %v != %v", second.ID(), first.ID())
	}
	if got := second.State(); got != framepool.StateRendered {
		t.Fatalf("state after resurrection = %v, want RENDERED (no intermediate LOCKED)", got)
	}

	_ = handle.Release()
}

// --- Scenario 3: Eviction under pressure ---

// TestEvictionReclaimsOldestFreeable validates that once the free list is
// exhausted, GetFreeFrame evicts the head (oldest) of the freeable list in
// FIFO order, and that the evicted handle observes its binding cleared.
func TestEvictionReclaimsOldestFreeable(t *testing.T) {
	pool := framepool.New(2, 10, 8)

	oldHandle := framepool.NewFrameHandle(pool, &testPicture{})
	if err := oldHandle.Acquire(); err != nil {
		t.Fatalf("Acquire() failed: %v", err)
	}
	oldFrame := oldHandle.Frame()
	oldFrame.SetRendered()
	if err := oldHandle.Release(); err != nil {
		t.Fatalf("Release() failed: %v", err)
	}

	newHandle := framepool.NewFrameHandle(pool, &testPicture{})
	if err := newHandle.Acquire(); err != nil {
		t.Fatalf("Acquire() failed: %v", err)
	}
	newFrame := newHandle.Frame()
	newFrame.SetRendered()
	if err := newHandle.Release(); err != nil {
		t.Fatalf("Release() failed: %v", err)
	}

	// Pool has 2 frames, both now freeable. A third acquirer must evict the
	// oldest (oldFrame) rather than newFrame.
	evictor := framepool.NewFrameHandle(pool, &testPicture{})
	if err := evictor.Acquire(); err != nil {
		t.Fatalf("Acquire() failed: %v", err)
	}

	if evictor.Frame() != oldFrame {
		t.Fatalf("evicted the wrong frame: got %v, want oldest %v", evictor.Frame().ID(), oldFrame.ID())
	}
	if oldHandle.Frame() != nil {
		t.Errorf("evicted handle still thinks it holds a frame")
	}
	if newHandle.Frame() != newFrame {
		t.Errorf("eviction disturbed the newer freeable frame")
	}

	snap := framepool.Snapshot(pool)
	if snap.Evictions != 1 {
		t.Errorf("Evictions = %d, want 1", snap.Evictions)
	}
}

// --- Scenario 4: Pool exhaustion ---

// TestGetFreeFrameErrOutOfFrames validates ErrOutOfFrames is returned, not
// panicked, when every frame is locked or rendered with no freeable frame to
// evict — a recoverable condition, typically signalling an undersized pool.
func TestGetFreeFrameErrOutOfFrames(t *testing.T) {
	pool := framepool.New(1, 10, 8)

	held := framepool.NewFrameHandle(pool, &testPicture{})
	if err := held.Acquire(); err != nil {
		t.Fatalf("Acquire() failed: %v", err)
	}
	// held's frame is LOCKED (never rendered), so it is not freeable either.

	starved := framepool.NewFrameHandle(pool, &testPicture{})
	err := starved.Acquire()
	if !errors.Is(err, framepool.ErrOutOfFrames) {
		t.Fatalf("Acquire() error = %v, want ErrOutOfFrames", err)
	}
}

// --- Scenario 5: Release before render ---

// TestReleaseBeforeRenderReturnsToFree validates that releasing a handle
// whose frame never reached RENDERED sends the frame straight back to free,
// abandoning the binding rather than offering it up as freeable.
func TestReleaseBeforeRenderReturnsToFree(t *testing.T) {
	pool := framepool.New(2, 10, 8)
	handle := framepool.NewFrameHandle(pool, &testPicture{})

	if err := handle.Acquire(); err != nil {
		t.Fatalf("Acquire() failed: %v", err)
	}
	frame := handle.Frame()

	if err := handle.Release(); err != nil {
		t.Fatalf("Release() failed: %v", err)
	}

	if got := frame.State(); got != framepool.StateFree {
		t.Fatalf("state after early release = %v, want FREE", got)
	}
	if handle.Frame() != nil {
		t.Errorf("handle still bound after abandoning an unrendered frame")
	}

	snap := framepool.Snapshot(pool)
	if snap.Free != 2 || snap.Freeable != 0 {
		t.Errorf("snapshot = %+v, want Free=2 Freeable=0", snap)
	}
}

// --- Scenario 6: Blocking consumer ---

// TestWaitRenderedBlocksUntilSetRendered validates that a consumer calling
// WaitRendered before the decoder calls SetRendered actually blocks, and is
// woken promptly once the frame transitions.
func TestWaitRenderedBlocksUntilSetRendered(t *testing.T) {
	pool := framepool.New(2, 10, 8)
	handle := framepool.NewFrameHandle(pool, &testPicture{})

	if err := handle.Acquire(); err != nil {
		t.Fatalf("Acquire() failed: %v", err)
	}

	done := make(chan error, 1)
	go func() {
		done <- handle.WaitRendered()
	}()

	select {
	case err := <-done:
		t.Fatalf("WaitRendered() returned early (err=%v) before SetRendered was called", err)
	case <-time.After(50 * time.Millisecond):
	}

	handle.Frame().SetRendered()

	select {
	case err := <-done:
		if err != nil {
			t.Fatalf("WaitRendered() returned error: %v", err)
		}
	case <-time.After(time.Second):
		t.Fatal("WaitRendered() did not wake after SetRendered")
	}
}

// TestWaitRenderedContextCancellation validates the cancellable variant
// returns ctx.Err() promptly instead of blocking forever when nothing ever
// renders the frame.
func TestWaitRenderedContextCancellation(t *testing.T) {
	pool := framepool.New(1, 10, 8)
	handle := framepool.NewFrameHandle(pool, &testPicture{})

	if err := handle.Acquire(); err != nil {
		t.Fatalf("Acquire() failed: %v", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()

	err := handle.WaitRenderedContext(ctx)
	if !errors.Is(err, context.DeadlineExceeded) {
		t.Fatalf("WaitRenderedContext() error = %v, want DeadlineExceeded", err)
	}
}

// --- Scenario 7: Concurrent acquirers never double-evict ---

// TestConcurrentAcquireNeverDoubleBinds stresses GetFreeFrame with many
// concurrent acquirers against a small pool. A frame handed to a second
// handle while still bound would trip Frame.lock's InvariantViolation
// panic; the test also requires every frame to settle (Drain) once all
// handles are released (-race catches the rest). A handle whose Acquire
// resurrected its frame finds it already RENDERED, so SetRendered is only
// called on a freshly LOCKED frame.
func TestConcurrentAcquireNeverDoubleBinds(t *testing.T) {
	pool := framepool.New(4, 10, 8)

	const workers = 16
	var wg sync.WaitGroup
	wg.Add(workers)

	for i := 0; i < workers; i++ {
		go func() {
			defer wg.Done()
			h := framepool.NewFrameHandle(pool, &testPicture{})
			for j := 0; j < 20; j++ {
				if err := h.Acquire(); err != nil {
					continue
				}
				if f := h.Frame(); f.State() == framepool.StateLocked {
					f.SetRendered()
				}
				_ = h.Release()
			}
		}()
	}

	wg.Wait()

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	if err := framepool.Drain(ctx, pool); err != nil {
		t.Fatalf("Drain() failed: %v", err)
	}
}

// --- Snapshot wire round-trip ---

// TestSnapshotMarshalRoundTrip validates the msgpack encoding used for
// out-of-process diagnostics round-trips without loss.
func TestSnapshotMarshalRoundTrip(t *testing.T) {
	pool := framepool.New(2, 10, 8)
	handle := framepool.NewFrameHandle(pool, &testPicture{})
	if err := handle.Acquire(); err != nil {
		t.Fatalf("Acquire() failed: %v", err)
	}

	want := framepool.Snapshot(pool)
	data, err := want.MarshalMsgpack()
	if err != nil {
		t.Fatalf("MarshalMsgpack() failed: %v", err)
	}

	got, err := framepool.UnmarshalSnapshot(data)
	if err != nil {
		t.Fatalf("UnmarshalSnapshot() failed: %v", err)
	}

	if got.NumFrames != want.NumFrames || got.RentedOut != want.RentedOut {
		t.Errorf("round trip mismatch: got %+v, want %+v", got, want)
	}
}
