package tunif

import (
	"errors"
	"sync"
)

// Fake is an in-memory Device for tests: writes are appended to an
// inspectable buffer, and Read returns packets enqueued via Feed.
type Fake struct {
	mu      sync.Mutex
	name    string
	written [][]byte
	queue   [][]byte
	readCh  chan struct{}
	closed  bool
}

// NewFake returns a ready-to-use Fake device.
func NewFake(name string) *Fake {
	return &Fake{name: name, readCh: make(chan struct{}, 1)}
}

func (f *Fake) Name() string { return f.name }

func (f *Fake) Write(b []byte) (int, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.closed {
		return 0, errors.New("tunif: fake device closed")
	}
	cp := append([]byte(nil), b...)
	f.written = append(f.written, cp)
	return len(b), nil
}

// Feed enqueues a packet to be returned by the next Read.
func (f *Fake) Feed(b []byte) {
	f.mu.Lock()
	f.queue = append(f.queue, append([]byte(nil), b...))
	f.mu.Unlock()
	select {
	case f.readCh <- struct{}{}:
	default:
	}
}

func (f *Fake) Read(b []byte) (int, error) {
	for {
		f.mu.Lock()
		if f.closed {
			f.mu.Unlock()
			return 0, errors.New("tunif: fake device closed")
		}
		if len(f.queue) > 0 {
			pkt := f.queue[0]
			f.queue = f.queue[1:]
			f.mu.Unlock()
			n := copy(b, pkt)
			return n, nil
		}
		f.mu.Unlock()
		<-f.readCh
	}
}

func (f *Fake) Close() error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.closed = true
	select {
	case f.readCh <- struct{}{}:
	default:
	}
	return nil
}

// Written returns every buffer passed to Write so far.
func (f *Fake) Written() [][]byte {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([][]byte, len(f.written))
	copy(out, f.written)
	return out
}
