// Package progress carries the 0-100 signal a caller observes across the
// validation, transcoding and upload stages of one request. Each stage
// reports its own 0-100 locally; the dispatcher rescales that into the
// stage's reserved band of the caller-visible range.
package progress

import "sync"

// Band is a reserved sub-range of the caller-visible 0-100 signal.
type Band struct {
	Lo, Hi int
}

var (
	// ProcessingBand covers validation plus transcoding.
	ProcessingBand = Band{Lo: 0, Hi: 80}
	// UploadBand is reserved for the object-store put. The store client
	// exposes no byte-level progress, so only its endpoints are reported.
	UploadBand = Band{Lo: 80, Hi: 100}
)

// Rescale maps stage-local progress into a band: lo + stage*(hi-lo)/100,
// truncated. Inputs outside 0-100 are clamped.
func Rescale(stage int, b Band) int {
	if stage < 0 {
		stage = 0
	}
	if stage > 100 {
		stage = 100
	}
	return b.Lo + stage*(b.Hi-b.Lo)/100
}

// Reporter receives caller-visible progress ticks.
type Reporter interface {
	Report(pct int)
}

// Func adapts a plain function to Reporter. A nil Func discards ticks.
type Func func(int)

func (f Func) Report(pct int) {
	if f != nil {
		f(pct)
	}
}

// Discard drops all ticks.
var Discard Reporter = Func(nil)

type banded struct {
	r Reporter
	b Band
}

func (s banded) Report(pct int) {
	s.r.Report(Rescale(pct, s.b))
}

// Scoped returns a Reporter that rescales stage-local progress into band b
// before forwarding.
func Scoped(r Reporter, b Band) Reporter {
	if r == nil {
		r = Discard
	}
	return banded{r: r, b: b}
}

// Throttler suppresses near-duplicate ticks so the consumer is not flooded;
// a tick passes when it moved at least step points, or is terminal.
type Throttler struct {
	step int
	last int
}

func NewThrottler(step int) *Throttler {
	if step <= 0 {
		step = 5
	}
	return &Throttler{step: step, last: -1}
}

func (t *Throttler) Allow(pct int) bool {
	if pct == 100 || pct-t.last >= t.step {
		t.last = pct
		return true
	}
	return false
}

// Stream is a finite, monotonic sequence of progress ticks ending in either
// completion or an error. Ticks are strictly increasing; 100 is delivered at
// most once. It is not restartable.
type Stream struct {
	mu     sync.Mutex
	ticks  chan int
	last   int
	closed bool
	err    error
}

func NewStream() *Stream {
	return &Stream{
		ticks: make(chan int, 128),
		last:  -1,
	}
}

// Report publishes a tick. Regressions and duplicates are dropped, which is
// what makes the observed sequence monotonic regardless of producer
// interleaving. Report never blocks: if the consumer lags behind the buffer,
// the oldest pending tick is evicted.
func (s *Stream) Report(pct int) {
	if pct < 0 {
		pct = 0
	}
	if pct > 100 {
		pct = 100
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed || pct <= s.last {
		return
	}
	s.last = pct

	for {
		select {
		case s.ticks <- pct:
			return
		default:
			select {
			case <-s.ticks:
			default:
			}
		}
	}
}

// Complete publishes the terminal 100 tick and closes the stream.
func (s *Stream) Complete() {
	s.Report(100)
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.closed {
		s.closed = true
		close(s.ticks)
	}
}

// Fail closes the stream with an error; no further ticks are delivered.
func (s *Stream) Fail(err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.closed {
		s.err = err
		s.closed = true
		close(s.ticks)
	}
}

// Ticks is the consumer side; it is closed once the stream completes or
// fails. Check Err after the channel closes.
func (s *Stream) Ticks() <-chan int {
	return s.ticks
}

func (s *Stream) Err() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.err
}

// Last returns the most recent published tick, or -1 before the first.
func (s *Stream) Last() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.last
}
