// Package trace collects human-readable activity lines from drones and the
// dispatcher and persists them in the background.
package trace

import (
	"bufio"
	"context"
	"io"
	"os"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"fireops-sim/internal/queue"
)

// Line is one trace entry.
type Line struct {
	Time time.Time
	Role string
	Text string
}

// Emitter accepts trace lines. Implementations must not block.
type Emitter interface {
	Emit(role, text string)
}

// Nop discards every line.
type Nop struct{}

func (Nop) Emit(string, string) {}

// Sink buffers lines in a queue; a Flusher drains it.
type Sink struct {
	lines *queue.Queue[Line]
	now   func() time.Time
}

// NewSink returns an empty sink.
func NewSink() *Sink {
	return &Sink{lines: queue.New[Line](), now: time.Now}
}

// Emit records a line. It never blocks on persistence.
func (s *Sink) Emit(role, text string) {
	s.lines.Push(Line{Time: s.now().UTC(), Role: role, Text: text})
}

// Backlog returns the number of lines waiting to be flushed.
func (s *Sink) Backlog() int { return s.lines.Len() }

// Close stops accepting lines; the flusher exits after draining.
func (s *Sink) Close() { s.lines.Close() }

// Flusher writes sink lines with zerolog and flushes the buffer periodically.
type Flusher struct {
	sink     *Sink
	buf      *bufio.Writer
	log      zerolog.Logger
	interval time.Duration
	closer   io.Closer
	mu       sync.Mutex
	written  int
}

// NewFlusher writes to w, flushing at least every interval.
func NewFlusher(sink *Sink, w io.Writer, interval time.Duration) *Flusher {
	if interval <= 0 {
		interval = time.Second
	}
	buf := bufio.NewWriter(w)
	return &Flusher{
		sink:     sink,
		buf:      buf,
		log:      zerolog.New(buf),
		interval: interval,
	}
}

// OpenFile creates a flusher appending to path. An empty path writes to STDOUT.
func OpenFile(sink *Sink, path string, interval time.Duration) (*Flusher, error) {
	if path == "" {
		return NewFlusher(sink, os.Stdout, interval), nil
	}
	f, err := os.OpenFile(path, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o644)
	if err != nil {
		return nil, err
	}
	fl := NewFlusher(sink, f, interval)
	fl.closer = f
	return fl, nil
}

// Run drains the sink until it is closed and empty or ctx is done.
func (f *Flusher) Run(ctx context.Context) error {
	last := time.Now()
	for {
		popCtx, cancel := context.WithTimeout(ctx, f.interval)
		l, ok := f.sink.lines.Pop(popCtx)
		cancel()
		if ok {
			f.write(l)
		}
		if !ok || time.Since(last) >= f.interval {
			if err := f.Flush(); err != nil {
				return err
			}
			last = time.Now()
		}
		if !ok && (ctx.Err() != nil || f.sink.lines.Closed()) {
			return f.finish()
		}
	}
}

func (f *Flusher) write(l Line) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.log.Log().Time("ts", l.Time).Str("role", l.Role).Msg(l.Text)
	f.written++
}

func (f *Flusher) finish() error {
	// drain whatever is left without waiting
	for {
		l, ok := f.sink.lines.TryPop()
		if !ok {
			break
		}
		f.write(l)
	}
	err := f.Flush()
	if f.closer != nil {
		if cerr := f.closer.Close(); cerr != nil && err == nil {
			err = cerr
		}
	}
	return err
}

// Flush writes buffered lines to the underlying writer.
func (f *Flusher) Flush() error {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.buf.Flush()
}

// Written returns the number of lines handed to the writer so far.
func (f *Flusher) Written() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.written
}
