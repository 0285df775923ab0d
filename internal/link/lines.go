package link

import (
	"context"
	"strings"
	"time"

	"github.com/jonboulle/clockwork"
)

// maxLineBuffer caps a partial line so a stream without newlines cannot grow forever.
const maxLineBuffer = 4096

// popLine splits the first complete line off buf. A run of \r and \n counts as one terminator.
func popLine(buf string) (line, rest string, ok bool) {
	idx := strings.IndexAny(buf, "\r\n")
	if idx < 0 {
		return "", buf, false
	}

	line = buf[:idx]
	j := idx
	for j < len(buf) {
		if buf[j] != '\r' && buf[j] != '\n' {
			break
		}
		j++
	}
	return line, buf[j:], true
}

func sleepWithContext(ctx context.Context, clock clockwork.Clock, d time.Duration) bool {
	if d <= 0 {
		return ctx.Err() == nil
	}
	t := clock.NewTimer(d)
	defer t.Stop()

	select {
	case <-ctx.Done():
		return false
	case <-t.Chan():
		return true
	}
}
