package audiorx

import "sync"

// sampleRing is a bounded FIFO of float64 samples. When a push would
// exceed capacity the oldest samples are discarded so the newest audio
// always wins, mirroring the latest-value policy of the sensor streams.
type sampleRing struct {
	mu    sync.Mutex
	buf   []float64
	head  int
	size  int
	drops uint64
}

func newSampleRing(capacity int) *sampleRing {
	return &sampleRing{buf: make([]float64, capacity)}
}

func (r *sampleRing) push(samples []float64) {
	r.mu.Lock()
	defer r.mu.Unlock()

	for _, s := range samples {
		if r.size == len(r.buf) {
			r.head = (r.head + 1) % len(r.buf)
			r.size--
			r.drops++
		}
		r.buf[(r.head+r.size)%len(r.buf)] = s
		r.size++
	}
}

// pop moves up to len(out) samples into out and returns the count.
func (r *sampleRing) pop(out []float64) int {
	r.mu.Lock()
	defer r.mu.Unlock()

	n := len(out)
	if n > r.size {
		n = r.size
	}
	for i := 0; i < n; i++ {
		out[i] = r.buf[r.head]
		r.head = (r.head + 1) % len(r.buf)
	}
	r.size -= n
	return n
}

func (r *sampleRing) dropped() uint64 {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.drops
}

func (r *sampleRing) reset() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.head = 0
	r.size = 0
}
