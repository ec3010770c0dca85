package supervisor

import (
	"bytes"
	"regexp"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/aki/weblaunch/internal/core/logger"
)

// readyPattern matches an HTTP(S) URL on a loopback-family host.
var readyPattern = regexp.MustCompile(`(https?)://(localhost|127\.0\.0\.1|0\.0\.0\.0):(\d+)`)

const (
	tailSize  = 8 * 1024
	carrySize = 512
	// settleDelay is how long a URL ending at the end of the output waits
	// for more port digits before it is accepted as is.
	settleDelay = 150 * time.Millisecond
)

// FindServiceURL returns the first loopback URL in text, with the wildcard
// address rewritten to localhost. complete is false when the port runs to
// the end of text and more digits may follow in a later chunk.
func FindServiceURL(text []byte) (url string, complete bool, ok bool) {
	m := readyPattern.FindSubmatchIndex(text)
	if m == nil {
		return "", false, false
	}
	scheme := string(text[m[2]:m[3]])
	host := string(text[m[4]:m[5]])
	port := string(text[m[6]:m[7]])
	if host == "0.0.0.0" {
		host = "localhost"
	}
	return scheme + "://" + host + ":" + port, m[1] < len(text), true
}

// tailBuffer keeps the most recent bytes written to it.
type tailBuffer struct {
	mu  sync.Mutex
	buf []byte
	max int
}

func newTailBuffer(max int) *tailBuffer {
	return &tailBuffer{max: max}
}

func (t *tailBuffer) Write(p []byte) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.buf = append(t.buf, p...)
	if over := len(t.buf) - t.max; over > 0 {
		t.buf = append(t.buf[:0], t.buf[over:]...)
	}
}

func (t *tailBuffer) String() string {
	t.mu.Lock()
	defer t.mu.Unlock()
	return string(t.buf)
}

// readyGate delivers the first URL found on any stream.
type readyGate struct {
	fired atomic.Bool
	ch    chan string
}

func newReadyGate() *readyGate {
	return &readyGate{ch: make(chan string, 1)}
}

func (g *readyGate) offer(url string) bool {
	if !g.fired.CompareAndSwap(false, true) {
		return false
	}
	g.ch <- url
	return true
}

// streamWriter receives one output stream of the child. os/exec calls
// Write from a single goroutine per stream; mu also guards the settle timer.
type streamWriter struct {
	name   string
	tail   *tailBuffer
	gate   *readyGate
	logger logger.Logger

	mu     sync.Mutex
	carry  []byte
	settle *time.Timer
	gen    uint64
}

func (w *streamWriter) Write(p []byte) (int, error) {
	w.tail.Write(p)
	if line := strings.TrimRight(string(p), "\r\n"); line != "" {
		w.logger.Debug("server output", "stream", w.name, "text", line)
	}
	if w.gate.fired.Load() {
		return len(p), nil
	}

	w.mu.Lock()
	defer w.mu.Unlock()
	w.stopSettle()

	scan := append(w.carry, p...)
	url, complete, ok := FindServiceURL(scan)
	if ok && complete {
		w.fire(url)
		w.carry = nil
		return len(p), nil
	}

	// keep the unterminated tail so a URL split across writes still matches
	if i := bytes.LastIndexByte(scan, '\n'); i >= 0 {
		scan = scan[i+1:]
	}
	if len(scan) > carrySize {
		scan = scan[len(scan)-carrySize:]
	}
	w.carry = append(w.carry[:0:0], scan...)

	if ok {
		gen := w.gen
		w.settle = time.AfterFunc(settleDelay, func() { w.settled(gen) })
	}
	return len(p), nil
}

// settled accepts a URL that ended the output when nothing followed it.
func (w *streamWriter) settled(gen uint64) {
	w.mu.Lock()
	defer w.mu.Unlock()
	if gen != w.gen {
		return
	}
	w.settle = nil
	if url, _, ok := FindServiceURL(w.carry); ok {
		w.fire(url)
		w.carry = nil
	}
}

func (w *streamWriter) stopSettle() {
	w.gen++
	if w.settle != nil {
		w.settle.Stop()
		w.settle = nil
	}
}

func (w *streamWriter) fire(url string) {
	if w.gate.offer(url) {
		w.logger.Debug("readiness signal", "stream", w.name, "url", url)
	}
}
