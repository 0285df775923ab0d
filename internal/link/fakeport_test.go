package link

import (
	"errors"
	"sync"
	"sync/atomic"
	"time"

	"go.bug.st/serial"
)

// readResult is one scripted Read outcome.
type readResult struct {
	data string
	err  error
}

type fakePort struct {
	mu      sync.Mutex
	reads   []readResult
	idle    readResult // returned once the script is exhausted
	delay   time.Duration
	written []string
	closed  bool
	timeout time.Duration

	calls *atomic.Int64 // counts Read calls when set

	// Write signals entered and then waits on release when both are set.
	entered chan struct{}
	release chan struct{}
}

func (p *fakePort) Read(b []byte) (int, error) {
	if p.calls != nil {
		p.calls.Add(1)
	}
	if p.delay > 0 {
		time.Sleep(p.delay)
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.closed {
		return 0, errors.New("port closed")
	}
	r := p.idle
	if len(p.reads) > 0 {
		r = p.reads[0]
		p.reads = p.reads[1:]
	}
	if r.err != nil {
		return 0, r.err
	}
	return copy(b, r.data), nil
}

func (p *fakePort) Write(b []byte) (int, error) {
	if p.entered != nil && p.release != nil {
		p.entered <- struct{}{}
		<-p.release
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	p.written = append(p.written, string(b))
	return len(b), nil
}

func (p *fakePort) Close() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.closed = true
	return nil
}

func (p *fakePort) SetReadTimeout(t time.Duration) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.timeout = t
	return nil
}

// fakeFactory hands out ports per path and counts opens.
type fakeFactory struct {
	mu     sync.Mutex
	ports  map[string]func() *fakePort
	opened []string
	last   *fakePort
	fail   error
}

func (f *fakeFactory) open(path string, _ *serial.Mode) (Port, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.opened = append(f.opened, path)
	if f.fail != nil {
		return nil, f.fail
	}
	mk, ok := f.ports[path]
	if !ok {
		return nil, errors.New("no such port")
	}
	f.last = mk()
	return f.last, nil
}

func (f *fakeFactory) opens() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.opened)
}

func (f *fakeFactory) current() *fakePort {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.last
}
