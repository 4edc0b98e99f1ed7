package vad

import (
	"log/slog"
	"sync"
	"sync/atomic"
)

// Dual combines the fast and confirm gates for start-of-speech detection.
// The fast gate runs synchronously on every chunk. When it fires, the
// confirm gate is evaluated on a separate goroutine, at most one evaluation
// in flight, so the capture loop never stalls on model inference.
//
// The confirm result therefore lags the fast result by up to one chunk.
// Active reports speech only when both gates agree.
type Dual struct {
	fast    FastGate
	confirm ConfirmGate
	logger  *slog.Logger

	fastActive    atomic.Bool
	confirmActive atomic.Bool
	confirmBusy   atomic.Bool

	wg sync.WaitGroup
}

// NewDual wires the two gates together.
func NewDual(fast FastGate, confirm ConfirmGate, logger *slog.Logger) *Dual {
	if logger == nil {
		logger = slog.Default()
	}
	return &Dual{fast: fast, confirm: confirm, logger: logger}
}

// Feed evaluates one chunk. It returns the fast gate's verdict; the combined
// verdict is read through Active once the confirm gate catches up.
func (d *Dual) Feed(chunk []byte) bool {
	fastSpeech, err := d.fast.IsSpeech(chunk)
	if err != nil {
		d.logger.Warn("fast vad failed", "error", err)
		fastSpeech = false
	}
	d.fastActive.Store(fastSpeech)

	if !fastSpeech {
		return false
	}

	if d.confirmBusy.CompareAndSwap(false, true) {
		buf := make([]byte, len(chunk))
		copy(buf, chunk)
		d.wg.Add(1)
		go func() {
			defer d.wg.Done()
			defer d.confirmBusy.Store(false)

			speech, err := d.confirm.IsSpeech(buf)
			if err != nil {
				d.logger.Warn("confirm vad failed", "error", err)
				return
			}
			d.confirmActive.Store(speech)
		}()
	}
	return true
}

// Active reports whether both gates currently agree on speech.
func (d *Dual) Active() bool {
	return d.fastActive.Load() && d.confirmActive.Load()
}

// FastActive reports the fast gate's last verdict alone.
func (d *Dual) FastActive() bool {
	return d.fastActive.Load()
}

// Reset clears both verdicts and the confirm model state, waiting out any
// in-flight confirm evaluation first.
func (d *Dual) Reset() {
	d.wg.Wait()
	d.fastActive.Store(false)
	d.confirmActive.Store(false)
	if err := d.confirm.Reset(); err != nil {
		d.logger.Warn("confirm vad reset failed", "error", err)
	}
}

// Close waits for in-flight work and releases both gates.
func (d *Dual) Close() error {
	d.wg.Wait()
	ferr := d.fast.Close()
	cerr := d.confirm.Close()
	if ferr != nil {
		return ferr
	}
	return cerr
}
