// Package progress reports how far a transfer has got.
//
// A Reader counts bytes as they are consumed and converts them into whole
// percentages; an Emitter carries the resulting Events to whoever displays
// them.
package progress

import (
	"io"
	"sync"
	"time"
)

// Status indicates the state of a transfer.
type Status string

const (
	StatusRunning Status = "running"
	StatusDone    Status = "done"
	StatusError   Status = "error"
)

// Terminal reports whether no further events follow an event with this status.
func (s Status) Terminal() bool {
	return s == StatusDone || s == StatusError
}

// Event is one progress update for the transfer identified by Key.
type Event struct {
	Key       string
	Percent   int
	Status    Status
	Message   string
	Timestamp time.Time
}

// Emitter receives progress events.
type Emitter interface {
	Emit(Event)
}

// ChanEmitter emits events to a channel.
// Running events are dropped when the channel is full; terminal events block
// until delivered so the receiver always learns how the transfer ended.
type ChanEmitter struct {
	Ch chan<- Event
}

// Emit sends the event to the channel.
func (e *ChanEmitter) Emit(ev Event) {
	if ev.Timestamp.IsZero() {
		ev.Timestamp = time.Now()
	}
	if ev.Status.Terminal() {
		e.Ch <- ev
		return
	}
	select {
	case e.Ch <- ev:
	default:
		// Channel full; a later event supersedes this one.
	}
}

// Reader wraps an io.Reader of known size and calls OnPercent each time the
// whole percentage of bytes read increases. 100 is reported exactly once, at
// EOF, even for empty inputs.
type Reader struct {
	r         io.Reader
	total     int64
	onPercent func(int)

	mu   sync.Mutex
	read int64
	last int
	done bool
}

// NewReader returns a Reader over r, which is expected to yield total bytes.
func NewReader(r io.Reader, total int64, onPercent func(int)) *Reader {
	return &Reader{r: r, total: total, onPercent: onPercent, last: -1}
}

// Read implements io.Reader.
func (p *Reader) Read(b []byte) (int, error) {
	n, err := p.r.Read(b)

	p.mu.Lock()
	p.read += int64(n)
	var report []int
	if err == io.EOF {
		if !p.done {
			p.done = true
			p.last = 100
			report = append(report, 100)
		}
	} else if pct := p.percentLocked(); pct > p.last {
		p.last = pct
		report = append(report, pct)
	}
	p.mu.Unlock()

	if p.onPercent != nil {
		for _, pct := range report {
			p.onPercent(pct)
		}
	}
	return n, err
}

// percentLocked never reports 100 before EOF; the last byte and the EOF can
// arrive in separate reads.
func (p *Reader) percentLocked() int {
	if p.total <= 0 {
		return 0
	}
	pct := int(p.read * 100 / p.total)
	if pct >= 100 {
		pct = 99
	}
	return pct
}
