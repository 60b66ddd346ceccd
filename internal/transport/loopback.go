package transport

import (
	"bytes"
	"sync"
)

// Loopback is an in-memory Transport. Tests and the simulator feed
// device bytes with Feed and inspect outbound writes with Sent.
type Loopback struct {
	mu       sync.Mutex
	open     bool
	pending  bytes.Buffer
	outbound bytes.Buffer

	// MaxChunk caps bytes returned per ReadAvailable call; zero means
	// drain everything pending. Tests use it to force chunk splits.
	MaxChunk int
}

func NewLoopback() *Loopback {
	return &Loopback{}
}

func (l *Loopback) Open() error {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.open {
		return ErrAlreadyOpen
	}
	l.open = true
	return nil
}

func (l *Loopback) Close() error {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.open = false
	return nil
}

func (l *Loopback) IsOpen() bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.open
}

func (l *Loopback) ReadAvailable() ([]byte, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if !l.open {
		return nil, ErrNotOpen
	}
	n := l.pending.Len()
	if n == 0 {
		return nil, nil
	}
	if l.MaxChunk > 0 && n > l.MaxChunk {
		n = l.MaxChunk
	}
	out := make([]byte, n)
	_, _ = l.pending.Read(out)
	return out, nil
}

func (l *Loopback) Write(p []byte) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	if !l.open {
		return ErrNotOpen
	}
	l.outbound.Write(p)
	return nil
}

// Feed queues device-to-host bytes for delivery on later reads. Bytes
// may be fed while closed; they sit until the link opens.
func (l *Loopback) Feed(p []byte) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.pending.Write(p)
}

// Sent returns a copy of everything written to the device so far.
func (l *Loopback) Sent() []byte {
	l.mu.Lock()
	defer l.mu.Unlock()
	return bytes.Clone(l.outbound.Bytes())
}

// Drained reports whether all fed bytes have been read.
func (l *Loopback) Drained() bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.pending.Len() == 0
}
