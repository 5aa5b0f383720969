package log

import (
	"bytes"
	"fmt"
	"io"
	"sync"
	"time"
)

// RawLogger dumps raw pipeline artefacts, such as the unmodified generator
// output, with optional file output.
type RawLogger interface {
	Log(name string, data []byte)
}

// rawLogger implements RawLogger with thread-safe log.
type rawLogger struct {
	w  io.Writer
	mu sync.Mutex
}

// NewRaw creates a new RawLogger. If writer is nil, returns a no-op logger.
func NewRaw(w io.Writer) RawLogger {
	return &rawLogger{w: w}
}

// Log writes a timestamped header line followed by data verbatim.
func (r *rawLogger) Log(name string, data []byte) {
	if len(data) == 0 {
		return
	}
	if r.w == nil {
		return
	}

	var buf bytes.Buffer
	fmt.Fprintf(&buf, "%s %s: %d bytes\n",
		time.Now().Format("2006/01/02 15:04:05"),
		name,
		len(data))
	buf.Write(data)
	if data[len(data)-1] != '\n' {
		buf.WriteByte('\n')
	}

	r.mu.Lock()
	_, _ = r.w.Write(buf.Bytes())
	r.mu.Unlock()
}
