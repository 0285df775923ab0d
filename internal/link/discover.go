package link

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/jonboulle/clockwork"
	"go.bug.st/serial"
)

var ErrNoPortFound = errors.New("no port produced a recognizable frame")

// Prober checks candidate endpoints for the heater's frame signature.
type Prober struct {
	Factory  PortFactory
	Mode     *serial.Mode
	Clock    clockwork.Clock
	Attempts int
	Delay    time.Duration
	Timeout  time.Duration
}

// LooksLikeFrame reports whether line carries the mode, relay and temperature tags.
func LooksLikeFrame(line string) bool {
	return strings.Contains(line, "M") && strings.Contains(line, "H") && strings.Contains(line, "T")
}

// Discover returns the first candidate whose output looks like a frame.
func (p Prober) Discover(ctx context.Context, candidates []string) (string, error) {
	for _, path := range candidates {
		if ctx.Err() != nil {
			return "", ctx.Err()
		}
		if p.probe(ctx, path) {
			return path, nil
		}
	}
	return "", ErrNoPortFound
}

func (p Prober) probe(ctx context.Context, path string) bool {
	port, err := p.Factory(path, p.Mode)
	if err != nil {
		return false
	}
	defer port.Close()

	readTimeout := p.Delay
	if readTimeout <= 0 || readTimeout > p.Timeout {
		readTimeout = p.Timeout
	}
	if err := port.SetReadTimeout(readTimeout); err != nil {
		return false
	}

	deadline := p.Clock.Now().Add(p.Timeout)
	var pending string
	buf := make([]byte, 256)
	for i := 0; i < p.Attempts && p.Clock.Now().Before(deadline); i++ {
		n, err := port.Read(buf)
		if err != nil {
			return false
		}
		pending += string(buf[:n])
		for {
			line, rest, ok := popLine(pending)
			if !ok {
				break
			}
			pending = rest
			if LooksLikeFrame(line) {
				return true
			}
		}
		if len(pending) > maxLineBuffer {
			pending = ""
		}
		if !sleepWithContext(ctx, p.Clock, p.Delay) {
			return false
		}
	}
	return false
}
