package transport

import (
	"fmt"
	"sync"
	"time"

	"go.bug.st/serial"
)

const readChunkSize = 4096

// SerialConfig describes the physical port. The device speaks 8N1; only
// the port path, baud rate and read poll deadline vary.
type SerialConfig struct {
	Port        string
	BaudRate    int
	PollTimeout time.Duration
}

func DefaultSerialConfig() SerialConfig {
	return SerialConfig{
		Port:        "/dev/ttyUSB0",
		BaudRate:    460800,
		PollTimeout: 5 * time.Millisecond,
	}
}

func (c SerialConfig) WithDefaults() SerialConfig {
	def := DefaultSerialConfig()
	if c.Port == "" {
		c.Port = def.Port
	}
	if c.BaudRate <= 0 {
		c.BaudRate = def.BaudRate
	}
	if c.PollTimeout <= 0 {
		c.PollTimeout = def.PollTimeout
	}
	return c
}

// SerialPort is the Transport over a physical serial port. ReadAvailable
// rides the port read timeout: a read that hits the deadline returns
// zero bytes, which the contract reports as an idle link.
type SerialPort struct {
	cfg SerialConfig

	mu   sync.Mutex
	port serial.Port

	readBuf [readChunkSize]byte
}

func NewSerialPort(cfg SerialConfig) *SerialPort {
	return &SerialPort{cfg: cfg.WithDefaults()}
}

func (s *SerialPort) Open() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.port != nil {
		return ErrAlreadyOpen
	}
	mode := &serial.Mode{
		BaudRate: s.cfg.BaudRate,
		DataBits: 8,
		Parity:   serial.NoParity,
		StopBits: serial.OneStopBit,
	}
	port, err := serial.Open(s.cfg.Port, mode)
	if err != nil {
		return fmt.Errorf("serial open %s: %w", s.cfg.Port, err)
	}
	if err := port.SetReadTimeout(s.cfg.PollTimeout); err != nil {
		_ = port.Close()
		return fmt.Errorf("serial read timeout: %w", err)
	}
	s.port = port
	return nil
}

func (s *SerialPort) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.port == nil {
		return nil
	}
	err := s.port.Close()
	s.port = nil
	if err != nil {
		return fmt.Errorf("serial close: %w", err)
	}
	return nil
}

func (s *SerialPort) IsOpen() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.port != nil
}

func (s *SerialPort) ReadAvailable() ([]byte, error) {
	s.mu.Lock()
	port := s.port
	s.mu.Unlock()
	if port == nil {
		return nil, ErrNotOpen
	}
	n, err := port.Read(s.readBuf[:])
	if err != nil {
		return nil, fmt.Errorf("serial read: %w", err)
	}
	if n == 0 {
		return nil, nil
	}
	out := make([]byte, n)
	copy(out, s.readBuf[:n])
	return out, nil
}

func (s *SerialPort) Write(p []byte) error {
	s.mu.Lock()
	port := s.port
	s.mu.Unlock()
	if port == nil {
		return ErrNotOpen
	}
	if _, err := port.Write(p); err != nil {
		return fmt.Errorf("serial write: %w", err)
	}
	if err := port.Drain(); err != nil {
		return fmt.Errorf("serial drain: %w", err)
	}
	return nil
}
