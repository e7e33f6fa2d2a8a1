// Package framepool implements the frame buffer pool at the heart of a
// parallel video decoder: a bounded cache of raster frames that is rented
// to decoder workers, held while a frame is consumed as a reference by
// later pictures, and reclaimed when no consumer still needs it.
//
// # Philosophy
//
// The pool never queues a picture's pixels behind another's. A frame is
// either free, being decoded into, holding valid pixels with at least one
// consumer, or holding valid pixels with none — in which case it is
// resurrectable until something forces the pool to take it back.
//
// # Design Principles
//
//  1. Bounded arena: a fixed-size array of Frames, allocated once.
//  2. Reference counting under concurrency: FrameHandle.Acquire/Release are
//     safe for concurrent callers on distinct handles and frames.
//  3. Broadcast rendezvous: every Frame and FrameHandle uses a
//     sync.Cond with Broadcast, never Signal — more than one consumer may
//     be waiting on the same reference picture.
//  4. FIFO eviction: GetFreeFrame evicts the oldest freeable frame when the
//     free list is exhausted; it is not tuned for locality.
//  5. Resurrection: a frame taken back to FREEABLE is still bound to its
//     handle and can be relocked (FREEABLE -> RENDERED) by a fresh Acquire,
//     provided nothing evicted it first.
//
// # Architecture
//
//	decoder worker --Acquire/Release--> FrameHandle --bind/evict--> Pool
//	                                          |                       |
//	                                     picture refs            free / freeable
//	                                                              (two IntrusiveLists)
//
// # Basic Usage
//
//	pool := framepool.New(numFrames, mbWidth, mbHeight)
//	handle := framepool.NewFrameHandle(pool, picture)
//
//	if err := handle.Acquire(); err != nil {
//	    // framepool.ErrOutOfFrames: pool undersized for this reference window
//	}
//	defer handle.Release()
//
//	// elsewhere, once the pixel-producing decoder has filled every row:
//	handle.Frame().SetRendered()
//
//	// a consumer that only needs pixels:
//	if err := handle.WaitRendered(); err != nil {
//	    return err
//	}
//	pix := handle.Frame().Pix()
//
// # Lock Ordering
//
// Handle mutex, then Pool mutex, then Frame mutex, then List mutex. Pool
// eviction holds the Pool mutex while reaching into a *different* handle's
// mutex (never the acquiring handle's own) to clear its binding — see
// internal/handle.go and internal/pool.go for the reasoning.
//
// # Thread Safety
//
// Every exported method on Pool, Frame, and FrameHandle is safe for
// concurrent use across goroutines, subject to the usual rule that a single
// FrameHandle belongs to one Picture and is not meant to be driven by two
// unrelated decoder stages simultaneously (acquiring and releasing the same
// handle concurrently from unrelated goroutines is supported, but doing so
// gives you no more ordering guarantee than the refcount itself provides).
//
// # Non-goals
//
// No pixel format conversion, no codec logic, no persistence, no network
// I/O, no policy for choosing which picture to decode next. Eviction order
// is FIFO and is not tuned for locality.
package framepool
