package transport

import (
	"net"
	"sync"

	"github.com/mellonka/vipipe-go/internal/vperrors"
)

// inproc implements the inproc:// scheme: a net.Pipe-backed rendezvous keyed
// by name, used mainly by this module's own tests (the teacher's tests
// favor direct io.Pipe fakes — bifaci/io_test.go).
var inprocRegistry = struct {
	mu        sync.Mutex
	listeners map[string]*inprocListener
}{listeners: make(map[string]*inprocListener)}

type inprocListener struct {
	name    string
	conns   chan net.Conn
	closed  chan struct{}
	closeMu sync.Once
}

func inprocListen(name string) (*inprocListener, error) {
	inprocRegistry.mu.Lock()
	defer inprocRegistry.mu.Unlock()
	if _, exists := inprocRegistry.listeners[name]; exists {
		return nil, &vperrors.TransportError{Op: "inproc.listen", Err: addressInUseError{name}}
	}
	l := &inprocListener{name: name, conns: make(chan net.Conn), closed: make(chan struct{})}
	inprocRegistry.listeners[name] = l
	return l, nil
}

func (l *inprocListener) Accept() (net.Conn, error) {
	select {
	case c := <-l.conns:
		return c, nil
	case <-l.closed:
		return nil, &vperrors.TransportError{Op: "inproc.accept", Err: listenerClosedError{}}
	}
}

func (l *inprocListener) Close() error {
	l.closeMu.Do(func() {
		inprocRegistry.mu.Lock()
		delete(inprocRegistry.listeners, l.name)
		inprocRegistry.mu.Unlock()
		close(l.closed)
	})
	return nil
}

func (l *inprocListener) Addr() net.Addr { return inprocAddr(l.name) }

type inprocAddr string

func (a inprocAddr) Network() string { return "inproc" }
func (a inprocAddr) String() string  { return string(a) }

func inprocDial(name string) (net.Conn, error) {
	inprocRegistry.mu.Lock()
	l, ok := inprocRegistry.listeners[name]
	inprocRegistry.mu.Unlock()
	if !ok {
		return nil, &vperrors.TransportError{Op: "inproc.dial", Err: connectionRefusedError{name}}
	}
	client, server := net.Pipe()
	select {
	case l.conns <- server:
		return client, nil
	case <-l.closed:
		return nil, &vperrors.TransportError{Op: "inproc.dial", Err: connectionRefusedError{name}}
	}
}

type addressInUseError struct{ name string }

func (e addressInUseError) Error() string { return "inproc address already in use: " + e.name }

type listenerClosedError struct{}

func (listenerClosedError) Error() string { return "inproc listener closed" }

type connectionRefusedError struct{ name string }

func (e connectionRefusedError) Error() string { return "inproc connection refused: " + e.name }
