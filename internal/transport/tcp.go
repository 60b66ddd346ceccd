package transport

import (
	"errors"
	"fmt"
	"io"
	"net"
	"sync"
	"time"
)

// TCPConfig describes a serial-over-network endpoint (ser2net and
// friends, or the bundled simulator).
type TCPConfig struct {
	Address     string
	DialTimeout time.Duration
	PollTimeout time.Duration
}

func (c TCPConfig) WithDefaults() TCPConfig {
	if c.DialTimeout <= 0 {
		c.DialTimeout = 5 * time.Second
	}
	if c.PollTimeout <= 0 {
		c.PollTimeout = 5 * time.Millisecond
	}
	return c
}

// TCPLink is the Transport over a TCP connection. A peer hangup closes
// the link; the engine's retry policy decides what happens next.
type TCPLink struct {
	cfg TCPConfig

	mu   sync.Mutex
	conn net.Conn

	readBuf [readChunkSize]byte
}

func NewTCPLink(cfg TCPConfig) *TCPLink {
	return &TCPLink{cfg: cfg.WithDefaults()}
}

func (l *TCPLink) Open() error {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.conn != nil {
		return ErrAlreadyOpen
	}
	if l.cfg.Address == "" {
		return errors.New("transport: tcp address required")
	}
	conn, err := net.DialTimeout("tcp", l.cfg.Address, l.cfg.DialTimeout)
	if err != nil {
		return fmt.Errorf("tcp dial %s: %w", l.cfg.Address, err)
	}
	l.conn = conn
	return nil
}

func (l *TCPLink) Close() error {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.closeLocked()
}

func (l *TCPLink) closeLocked() error {
	if l.conn == nil {
		return nil
	}
	err := l.conn.Close()
	l.conn = nil
	if err != nil {
		return fmt.Errorf("tcp close: %w", err)
	}
	return nil
}

func (l *TCPLink) IsOpen() bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.conn != nil
}

func (l *TCPLink) ReadAvailable() ([]byte, error) {
	l.mu.Lock()
	conn := l.conn
	l.mu.Unlock()
	if conn == nil {
		return nil, ErrNotOpen
	}
	if err := conn.SetReadDeadline(time.Now().Add(l.cfg.PollTimeout)); err != nil {
		return nil, fmt.Errorf("tcp read deadline: %w", err)
	}
	n, err := conn.Read(l.readBuf[:])
	if err != nil {
		var nerr net.Error
		if errors.As(err, &nerr) && nerr.Timeout() {
			// Idle link, nothing pending.
			if n == 0 {
				return nil, nil
			}
		} else if errors.Is(err, io.EOF) {
			l.mu.Lock()
			_ = l.closeLocked()
			l.mu.Unlock()
			return nil, fmt.Errorf("tcp peer closed: %w", err)
		} else {
			return nil, fmt.Errorf("tcp read: %w", err)
		}
	}
	if n == 0 {
		return nil, nil
	}
	out := make([]byte, n)
	copy(out, l.readBuf[:n])
	return out, nil
}

func (l *TCPLink) Write(p []byte) error {
	l.mu.Lock()
	conn := l.conn
	l.mu.Unlock()
	if conn == nil {
		return ErrNotOpen
	}
	if _, err := conn.Write(p); err != nil {
		return fmt.Errorf("tcp write: %w", err)
	}
	return nil
}
