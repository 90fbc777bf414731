package serialmux

import (
	"bytes"
	"errors"
	"strings"
	"sync"
)

var errPortClosed = errors.New("serial port closed")

// FakePort stands in for the sensor bridge in tests. Lines queued with
// AddLines are returned by Read; commands written by the mux are captured.
type FakePort struct {
	mu   sync.Mutex
	cond *sync.Cond
	in   bytes.Buffer
	out  bytes.Buffer

	// BlockReads makes Read wait for queued data instead of returning EOF.
	BlockReads bool
	// ReadError and WriteError fail the next call once.
	ReadError  error
	WriteError error
	// Closed reports whether Close was called.
	Closed bool
}

// NewFakePort returns an empty FakePort.
func NewFakePort() *FakePort {
	p := &FakePort{}
	p.cond = sync.NewCond(&p.mu)
	return p
}

func (p *FakePort) Read(b []byte) (int, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if err := p.ReadError; err != nil {
		p.ReadError = nil
		return 0, err
	}
	for p.BlockReads && !p.Closed && p.in.Len() == 0 {
		p.cond.Wait()
	}
	if p.Closed {
		return 0, errPortClosed
	}
	return p.in.Read(b)
}

func (p *FakePort) Write(b []byte) (int, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.Closed {
		return 0, errPortClosed
	}
	if err := p.WriteError; err != nil {
		p.WriteError = nil
		return 0, err
	}
	return p.out.Write(b)
}

func (p *FakePort) Close() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.Closed = true
	p.cond.Broadcast()
	return nil
}

// AddLines queues newline-terminated bridge lines for subsequent reads.
func (p *FakePort) AddLines(lines ...string) {
	p.mu.Lock()
	defer p.mu.Unlock()
	for _, l := range lines {
		p.in.WriteString(l)
		p.in.WriteByte('\n')
	}
	p.cond.Broadcast()
}

// Written returns everything the mux has written to the port.
func (p *FakePort) Written() string {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.out.String()
}

// Commands returns the commands written so far, without line terminators.
func (p *FakePort) Commands() []string {
	raw := strings.TrimSuffix(p.Written(), "\n")
	if raw == "" {
		return nil
	}
	return strings.Split(raw, "\n")
}
