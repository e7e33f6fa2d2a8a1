package internal

// Picture is the read-only view a FrameHandle needs of its owning decoded
// picture in order to arm a Frame at lock time. The picture/slice decoder
// that actually produces pixels is an external collaborator; the pool only
// ever reads these four accessors, and only once, at Frame.lock.
type Picture interface {
	FCodeFV() int
	FCodeBV() int
	Forward() Picture
	Backward() Picture
}

// SliceRow is per-macroblock-row decoder scratch state tied to a Frame's
// life. It is opaque to the pool beyond being latched at lock time; the
// pixel-producing decoder reads it while filling in a row's macroblocks.
type SliceRow struct {
	FCodeFV, FCodeBV  int
	Forward, Backward Picture
}

func newSliceRows(mbHeight int, fCodeFV, fCodeBV int, forward, backward Picture) []SliceRow {
	rows := make([]SliceRow, mbHeight)
	for i := range rows {
		rows[i] = SliceRow{
			FCodeFV:  fCodeFV,
			FCodeBV:  fCodeBV,
			Forward:  forward,
			Backward: backward,
		}
	}
	return rows
}
