package transport

import (
	"bytes"
	"net"
	"sync"
	"time"

	"github.com/mellonka/vipipe-go/internal/logger"
	"github.com/mellonka/vipipe-go/internal/vperrors"
)

type readerState int

const (
	readerIdle readerState = iota
	readerStarted
	readerStopped
)

// Reader is the subscribe/pull side of the bounded multipart channel.
// Per the writer-binds/reader-connects convention it always dials.
type Reader struct {
	opts ReaderOptions

	mu    sync.Mutex
	state readerState
	conns []net.Conn

	inbound chan [][]byte
	done    chan struct{}
	wg      sync.WaitGroup
}

// NewReader validates opts and constructs a Reader.
func NewReader(opts ReaderOptions) (*Reader, error) {
	if opts.SocketMode != ModeSubscribe && opts.SocketMode != ModePull {
		return nil, &vperrors.ConfigError{Op: "transport.NewReader", Err: badReaderModeError{opts.SocketMode}}
	}
	if opts.Conflate {
		return nil, &vperrors.ConfigError{Op: "transport.NewReader", Err: conflateMultipartError{}}
	}
	if len(opts.Topic) > 0 && opts.SocketMode != ModeSubscribe {
		return nil, &vperrors.ConfigError{Op: "transport.NewReader", Err: topicRequiresSubscribeError{opts.SocketMode}}
	}
	if _, err := parseAddress("transport.NewReader", opts.Address); err != nil {
		return nil, err
	}
	return &Reader{opts: opts}, nil
}

// Start dials the peer and begins filling the inbound queue.
func (r *Reader) Start() (err error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.state != readerIdle {
		return &vperrors.InvalidState{Op: "reader.Start", Err: doubleStartError{}}
	}

	resolved, err := parseAddress("reader.Start", r.opts.Address)
	if err != nil {
		return err
	}

	conn, err := dial(resolved)
	if err != nil {
		return &vperrors.TransportError{Op: "reader.Start", Err: err}
	}
	defer func() {
		if err != nil {
			_ = conn.Close()
		}
	}()

	if tc, ok := conn.(*net.TCPConn); ok && r.opts.OSRecvBufferBytes > 0 {
		_ = tc.SetReadBuffer(r.opts.OSRecvBufferBytes)
	}

	depth := defaultInt(r.opts.InboundQueueDepth, 10)
	r.conns = []net.Conn{conn}
	r.inbound = make(chan [][]byte, depth)
	r.done = make(chan struct{})
	r.state = readerStarted

	r.wg.Add(1)
	go r.readLoop(conn)
	return nil
}

// Stop releases all resources; idempotent under concurrent calls.
func (r *Reader) Stop() error {
	r.mu.Lock()
	if r.state != readerStarted {
		r.state = readerStopped
		r.mu.Unlock()
		return nil
	}
	r.state = readerStopped
	conns := append([]net.Conn(nil), r.conns...)
	r.mu.Unlock()

	close(r.done)
	for _, c := range conns {
		_ = c.Close()
	}
	r.wg.Wait()
	return nil
}

func (r *Reader) readLoop(conn net.Conn) {
	defer r.wg.Done()
	for {
		select {
		case <-r.done:
			return
		default:
		}

		_ = conn.SetReadDeadline(time.Now().Add(200 * time.Millisecond))
		frame, err := readMultipartFrame(conn)
		if err != nil {
			if ne, ok := err.(net.Error); ok && ne.Timeout() {
				continue
			}
			if isClosedConnErr(err) {
				return
			}
			logger.Logger().Warn("reader: frame read failed, stopping feed", "error", err)
			return
		}

		if r.opts.SocketMode == ModeSubscribe && len(r.opts.Topic) > 0 {
			if len(frame) == 0 || !bytes.HasPrefix(frame[0], r.opts.Topic) {
				continue
			}
		}

		r.enqueue(frame)
	}
}

// enqueue applies the inbound high-water mark by dropping the oldest queued
// frame to make room, mirroring a pub/sub socket's HWM-drop behavior rather
// than blocking the network read loop.
func (r *Reader) enqueue(frame [][]byte) {
	for {
		select {
		case r.inbound <- frame:
			return
		default:
		}
		select {
		case <-r.inbound:
		default:
			return
		}
	}
}

// ReadOutcome is the three-valued receive contract: exactly one of a frame,
// Empty (nothing queued within the wait), or Closed (the reader was stopped
// and nothing is left queued) holds. Losing the peer connection is not
// reported as Closed: reads keep returning Empty.
type ReadOutcome int

const (
	OutcomeGot ReadOutcome = iota
	OutcomeEmpty
	OutcomeClosed
)

// ReadMultipart returns the next queued frame, or reports Empty/Closed per
// the three-valued contract. It never blocks past ReadTimeoutMs, and never
// blocks at all when NonBlocking is set.
func (r *Reader) ReadMultipart() ([][]byte, ReadOutcome, error) {
	r.mu.Lock()
	started := r.state == readerStarted
	r.mu.Unlock()
	if !started {
		return nil, OutcomeClosed, &vperrors.InvalidState{Op: "reader.ReadMultipart", Err: notStartedError{}}
	}

	if r.opts.NonBlocking {
		select {
		case frame := <-r.inbound:
			return frame, OutcomeGot, nil
		case <-r.done:
			return r.drainOrClosed()
		default:
			return nil, OutcomeEmpty, nil
		}
	}

	timeout := time.Duration(defaultTimeoutMs(r.opts.ReadTimeoutMs, 100)) * time.Millisecond
	timer := time.NewTimer(timeout)
	defer timer.Stop()
	select {
	case frame := <-r.inbound:
		return frame, OutcomeGot, nil
	case <-r.done:
		return r.drainOrClosed()
	case <-timer.C:
		return nil, OutcomeEmpty, nil
	}
}

func (r *Reader) drainOrClosed() ([][]byte, ReadOutcome, error) {
	select {
	case frame := <-r.inbound:
		return frame, OutcomeGot, nil
	default:
		return nil, OutcomeClosed, nil
	}
}

func dial(addr resolvedAddress) (net.Conn, error) {
	if addr.network == "inproc" {
		return inprocDial(addr.addr)
	}
	return net.Dial(addr.network, addr.addr)
}

type badReaderModeError struct{ mode SocketMode }

func (e badReaderModeError) Error() string {
	return "reader socket mode must be subscribe or pull, got " + e.mode.String()
}

type topicRequiresSubscribeError struct{ mode SocketMode }

func (e topicRequiresSubscribeError) Error() string {
	return "topic is only meaningful for subscribe mode, got " + e.mode.String()
}
