package transport

import (
	"net"
	"sync"
	"time"

	"github.com/mellonka/vipipe-go/internal/logger"
	"github.com/mellonka/vipipe-go/internal/vperrors"
)

type writerState int

const (
	writerIdle writerState = iota
	writerStarted
	writerStopped
)

// Writer is the publish/push side of the bounded multipart channel.
// Per original_source's ZeroMQWriter, the writer always binds; readers
// always connect, in both publish and push mode.
type Writer struct {
	opts WriterOptions

	mu       sync.Mutex
	state    writerState
	listener net.Listener
	peers    []net.Conn
	rr       int

	outbound chan [][]byte
	done     chan struct{}
	wg       sync.WaitGroup
}

// NewWriter validates opts and constructs a Writer. Start still must be
// called before any I/O.
func NewWriter(opts WriterOptions) (*Writer, error) {
	if opts.SocketMode != ModePublish && opts.SocketMode != ModePush {
		return nil, &vperrors.ConfigError{Op: "transport.NewWriter", Err: badWriterModeError{opts.SocketMode}}
	}
	if opts.Conflate {
		return nil, &vperrors.ConfigError{Op: "transport.NewWriter", Err: conflateMultipartError{}}
	}
	if _, err := parseAddress("transport.NewWriter", opts.Address); err != nil {
		return nil, err
	}
	return &Writer{opts: opts}, nil
}

// Start binds the socket (per its mode) and begins accepting peers. Must be
// called exactly once.
func (w *Writer) Start() (err error) {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.state != writerIdle {
		return &vperrors.InvalidState{Op: "writer.Start", Err: doubleStartError{}}
	}

	resolved, err := parseAddress("writer.Start", w.opts.Address)
	if err != nil {
		return err
	}

	listener, err := listen(resolved)
	if err != nil {
		return &vperrors.TransportError{Op: "writer.Start", Err: err}
	}
	// Scope-guard: unwind the listener if anything after this point fails.
	defer func() {
		if err != nil {
			_ = listener.Close()
		}
	}()

	depth := defaultInt(w.opts.OutboundQueueDepth, 10)
	w.listener = listener
	w.outbound = make(chan [][]byte, depth)
	w.done = make(chan struct{})
	w.state = writerStarted

	w.wg.Add(2)
	go w.acceptLoop()
	go w.dispatchLoop()
	return nil
}

// Stop releases all resources; idempotent under concurrent calls.
func (w *Writer) Stop() error {
	w.mu.Lock()
	if w.state != writerStarted {
		w.state = writerStopped
		w.mu.Unlock()
		return nil
	}
	w.state = writerStopped
	listener := w.listener
	peers := append([]net.Conn(nil), w.peers...)
	w.mu.Unlock()

	linger := w.opts.LingerMs
	if linger != 0 {
		deadline := time.Duration(linger) * time.Millisecond
		if linger < 0 {
			deadline = 24 * time.Hour // "wait indefinitely", bounded defensively
		}
		drainTimer := time.NewTimer(deadline)
		defer drainTimer.Stop()
	drain:
		for {
			select {
			case <-drainTimer.C:
				break drain
			default:
				if len(w.outbound) == 0 {
					break drain
				}
				time.Sleep(time.Millisecond)
			}
		}
	}

	close(w.done)
	_ = listener.Close()
	for _, c := range peers {
		_ = c.Close()
	}
	w.wg.Wait()
	return nil
}

func (w *Writer) acceptLoop() {
	defer w.wg.Done()
	for {
		conn, err := w.listener.Accept()
		if err != nil {
			return
		}
		if tc, ok := conn.(*net.TCPConn); ok && w.opts.OSSendBufferBytes > 0 {
			_ = tc.SetWriteBuffer(w.opts.OSSendBufferBytes)
		}
		w.mu.Lock()
		if w.state != writerStarted {
			w.mu.Unlock()
			_ = conn.Close()
			return
		}
		w.peers = append(w.peers, conn)
		w.mu.Unlock()
	}
}

func (w *Writer) peerCount() int {
	w.mu.Lock()
	defer w.mu.Unlock()
	return len(w.peers)
}

func (w *Writer) dispatchLoop() {
	defer w.wg.Done()
	for {
		// Leave frames queued while no peer is connected, so that without
		// Immediate they stay buffered up to OutboundQueueDepth.
		if w.peerCount() == 0 {
			select {
			case <-w.done:
				return
			case <-time.After(time.Millisecond):
			}
			continue
		}
		select {
		case <-w.done:
			return
		case parts := <-w.outbound:
			w.deliver(parts)
		}
	}
}

func (w *Writer) deliver(parts [][]byte) {
	w.mu.Lock()
	peers := w.peers
	w.mu.Unlock()
	if len(peers) == 0 {
		return
	}

	timeout := time.Duration(defaultTimeoutMs(w.opts.SendTimeoutMs, 100)) * time.Millisecond

	switch w.opts.SocketMode {
	case ModePublish:
		live := peers[:0]
		w.mu.Lock()
		for _, c := range w.peers {
			_ = c.SetWriteDeadline(time.Now().Add(timeout))
			if err := writeMultipartFrame(c, parts); err != nil {
				logger.Logger().Warn("writer: dropping dead subscriber", "error", err)
				_ = c.Close()
				continue
			}
			live = append(live, c)
		}
		w.peers = live
		w.mu.Unlock()
	case ModePush:
		w.mu.Lock()
		if len(w.peers) == 0 {
			w.mu.Unlock()
			return
		}
		w.rr = (w.rr + 1) % len(w.peers)
		target := w.peers[w.rr]
		idx := w.rr
		w.mu.Unlock()
		_ = target.SetWriteDeadline(time.Now().Add(timeout))
		if err := writeMultipartFrame(target, parts); err != nil {
			logger.Logger().Warn("writer: push target failed", "error", err)
			w.mu.Lock()
			if idx < len(w.peers) && w.peers[idx] == target {
				w.peers = append(w.peers[:idx], w.peers[idx+1:]...)
			}
			w.mu.Unlock()
			_ = target.Close()
		}
	}
}

// WriteMultipart enqueues parts for delivery. Returns normally once
// enqueued; under NonBlocking or Immediate-with-no-peer it may instead
// return WouldBlock, a soft failure the caller may ignore or log.
func (w *Writer) WriteMultipart(parts [][]byte) error {
	w.mu.Lock()
	started := w.state == writerStarted
	w.mu.Unlock()
	if !started {
		return &vperrors.InvalidState{Op: "writer.WriteMultipart", Err: notStartedError{}}
	}

	if w.opts.Immediate && w.peerCount() == 0 {
		return &vperrors.WouldBlock{Op: "writer.WriteMultipart"}
	}

	if w.opts.NonBlocking {
		select {
		case w.outbound <- parts:
			return nil
		default:
			return &vperrors.WouldBlock{Op: "writer.WriteMultipart"}
		}
	}

	timeout := time.Duration(defaultTimeoutMs(w.opts.SendTimeoutMs, 100)) * time.Millisecond
	timer := time.NewTimer(timeout)
	defer timer.Stop()
	select {
	case w.outbound <- parts:
		return nil
	case <-timer.C:
		return &vperrors.WouldBlock{Op: "writer.WriteMultipart"}
	}
}

func listen(addr resolvedAddress) (net.Listener, error) {
	if addr.network == "inproc" {
		return inprocListen(addr.addr)
	}
	return net.Listen(addr.network, addr.addr)
}

type badWriterModeError struct{ mode SocketMode }

func (e badWriterModeError) Error() string {
	return "writer socket mode must be publish or push, got " + e.mode.String()
}

type conflateMultipartError struct{}

func (conflateMultipartError) Error() string {
	return "conflate=true is not supported for this multipart protocol"
}

type doubleStartError struct{}

func (doubleStartError) Error() string { return "start called more than once" }

type notStartedError struct{}

func (notStartedError) Error() string { return "I/O before start or after stop" }
