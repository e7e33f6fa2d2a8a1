package main

import (
	"context"
	"flag"
	"log"
	"log/slog"
	"math/rand"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/care/framepool"
	"github.com/care/framepool/internal/config"
)

const (
	defaultNumFrames = 16
	defaultMBWidth   = 44 // 704px
	defaultMBHeight  = 36 // 576px
	defaultWorkers   = 4
)

var (
	configPath = flag.String("config", "", "path to a pool config YAML file (overrides the numeric flags below)")
	numFrames  = flag.Int("num-frames", defaultNumFrames, "number of frames in the pool")
	mbWidth    = flag.Int("mb-width", defaultMBWidth, "frame width in macroblocks")
	mbHeight   = flag.Int("mb-height", defaultMBHeight, "frame height in macroblocks")
	workers    = flag.Int("workers", defaultWorkers, "number of simulated decoder workers")
)

// demoPicture is a picture with no real reference frames, enough to drive
// the pool's state machine for a heartbeat demo.
type demoPicture struct{}

func (demoPicture) FCodeFV() int                { return 0 }
func (demoPicture) FCodeBV() int                { return 0 }
func (demoPicture) Forward() framepool.Picture  { return nil }
func (demoPicture) Backward() framepool.Picture { return nil }

func main() {
	flag.Parse()

	nf, mw, mh := *numFrames, *mbWidth, *mbHeight

	if *configPath != "" {
		cfg, err := config.Load(*configPath)
		if err != nil {
			log.Fatalf("fail to load config at %s: %v", *configPath, err)
		}
		nf, mw, mh = cfg.NumFrames, cfg.MBWidth, cfg.MBHeight
		slog.SetLogLoggerLevel(cfg.SlogLevel())
	}

	log.Printf(
		"framepooldemo started: %d frames of %dx%d macroblocks (%dx%d px), %d simulated workers\n",
		nf, mw, mh, 16*mw, 16*mh, *workers,
	)

	ctx, cancel := context.WithCancel(context.Background())
	go func() {
		defer cancel()

		signals := make(chan os.Signal, 1)
		signal.Notify(signals, syscall.SIGINT, syscall.SIGTERM)

		select {
		case <-ctx.Done():
		case sig := <-signals:
			log.Printf("received signal '%v', terminating\n", sig)
		}
	}()

	pool := framepool.New(nf, mw, mh, framepool.WithLogger(slog.Default()))

	var wg sync.WaitGroup
	for i := 0; i < *workers; i++ {
		wg.Add(1)
		go runWorker(ctx, &wg, pool)
	}

	go func() {
		tick := time.NewTicker(3 * time.Second)
		defer tick.Stop()
		for {
			select {
			case <-tick.C:
				snap := framepool.Snapshot(pool)
				log.Printf(
					"[heartbeat] frames=%d free=%d freeable=%d rented_out=%d evictions=%d\n",
					snap.NumFrames, snap.Free, snap.Freeable, snap.RentedOut, snap.Evictions,
				)
			case <-ctx.Done():
				return
			}
		}
	}()

	<-ctx.Done()

	drainCtx, drainCancel := context.WithTimeout(context.Background(), 5*time.Second)
	if err := framepool.Drain(drainCtx, pool); err != nil {
		log.Printf("drain did not complete cleanly: %v\n", err)
	}
	drainCancel()

	wg.Wait()
	log.Println("service terminated")
}

// runWorker simulates a decoder worker decoding one picture per loop
// iteration: a fresh FrameHandle for each simulated picture acquires a
// frame, holds it for a short random interval as if filling in
// macroblocks, marks it rendered, then releases. A handle models one
// Picture's binding. Reusing it across iterations would hit the
// resurrection path on the second Acquire (the frame is still bound,
// FREEABLE) and leave the frame RENDERED already, not LOCKED, so a
// following SetRendered would violate the state machine.
func runWorker(ctx context.Context, wg *sync.WaitGroup, pool *framepool.Pool) {
	defer wg.Done()

	for {
		select {
		case <-ctx.Done():
			return
		default:
		}

		handle := framepool.NewFrameHandle(pool, demoPicture{})

		if err := handle.Acquire(); err != nil {
			log.Printf("[worker] acquire failed: %v\n", err)
			time.Sleep(50 * time.Millisecond)
			continue
		}

		time.Sleep(time.Duration(rand.Intn(20)) * time.Millisecond)
		handle.Frame().SetRendered()

		time.Sleep(time.Duration(rand.Intn(20)) * time.Millisecond)
		if err := handle.Release(); err != nil {
			log.Printf("[worker] release failed: %v\n", err)
		}
		_ = handle.Close()
	}
}
