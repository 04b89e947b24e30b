package runtime

import (
	"context"
	"net"
	"strconv"
	"sync"
	"time"

	"github.com/pkg/errors"
	"k8s.io/klog/v2"
)

type ConnectionState int8

const (
	Disconnected ConnectionState = iota
	Connecting
	Connected
)

var ConnectionStateToString = map[ConnectionState]string{
	Disconnected: "disconnected",
	Connecting:   "connecting",
	Connected:    "connected",
}

// Tunnel owns exactly one physical link to the rs485 bus. The protocol has no
// request correlation, so every request/response exchange must hold the
// exclusive gate for its full duration.
type Tunnel interface {
	Connect(timeout time.Duration) error
	EnsureConnected() error
	Disconnect()
	State() ConnectionState

	// Acquire takes the exclusive exchange gate, failing rather than blocking
	// forever. Release must be called exactly once per successful Acquire.
	Acquire(ctx context.Context) error
	Release()

	// Ask writes one frame and performs a single deadline-bounded read of the
	// response. The caller must hold the gate.
	Ask(request []byte, response []byte) (int, error)
	// Listen performs a bare deadline-bounded read without writing, used while
	// waiting for the provisioning broadcast. The caller must hold the gate.
	Listen(response []byte, timeout time.Duration) (int, error)
}

var _ Tunnel = (*TcpTunnel)(nil)

type TcpTunnel struct {
	Address        string
	ConnectTimeout time.Duration
	RequestTimeout time.Duration
	AcquireTimeout time.Duration

	mu    sync.Mutex
	conn  net.Conn
	state ConnectionState
	gate  chan struct{}

	dial func(address string, timeout time.Duration) (net.Conn, error)
}

func NewTcpTunnel(host string, port int) *TcpTunnel {
	return &TcpTunnel{
		Address:        net.JoinHostPort(host, strconv.Itoa(port)),
		ConnectTimeout: DefaultConnectTimeout,
		RequestTimeout: DefaultRequestTimeout,
		AcquireTimeout: DefaultAcquireTimeout,
		gate:           make(chan struct{}, 1),
		dial: func(address string, timeout time.Duration) (net.Conn, error) {
			return net.DialTimeout("tcp", address, timeout)
		},
	}
}

func (t *TcpTunnel) State() ConnectionState {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.state
}

func (t *TcpTunnel) Connect(timeout time.Duration) error {
	t.mu.Lock()
	switch t.state {
	case Connected:
		t.mu.Unlock()
		return nil
	case Connecting:
		// another caller is already dialing, wait for its outcome with a
		// capped poll instead of opening a duplicate socket
		t.mu.Unlock()
		return t.waitConnected(timeout)
	}
	t.state = Connecting
	t.mu.Unlock()

	conn, err := t.dial(t.Address, timeout)

	t.mu.Lock()
	defer t.mu.Unlock()
	if err != nil {
		t.state = Disconnected
		klog.V(2).InfoS("Failed to connect dooya bus", "address", t.Address, "err", err)
		return errors.Wrapf(ErrBadConn, "dial %s: %v", t.Address, err)
	}
	t.conn = conn
	t.state = Connected
	klog.V(3).InfoS("Succeed to connect dooya bus", "address", t.Address)
	return nil
}

func (t *TcpTunnel) waitConnected(timeout time.Duration) error {
	deadline := time.Now().Add(timeout)
	for time.Now().Before(deadline) {
		time.Sleep(ConnectPollInterval)
		t.mu.Lock()
		state := t.state
		t.mu.Unlock()
		switch state {
		case Connected:
			return nil
		case Disconnected:
			return ErrBadConn
		}
	}
	return ErrBadConn
}

func (t *TcpTunnel) EnsureConnected() error {
	if t.State() == Connected {
		return nil
	}
	return t.Connect(t.ConnectTimeout)
}

// Disconnect closes the socket with a bounded flush grace and always clears
// the internal state, calling it twice is harmless.
func (t *TcpTunnel) Disconnect() {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.conn != nil {
		_ = t.conn.SetDeadline(time.Now().Add(DisconnectGracePeriod))
		if err := t.conn.Close(); err != nil {
			klog.V(3).InfoS("Failed to close dooya bus connection", "address", t.Address, "err", err)
		}
	}
	t.conn = nil
	t.state = Disconnected
}

func (t *TcpTunnel) Acquire(ctx context.Context) error {
	select {
	case t.gate <- struct{}{}:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	case <-time.After(t.AcquireTimeout):
		return ErrAcquireTimeout
	}
}

func (t *TcpTunnel) Release() {
	select {
	case <-t.gate:
	default:
	}
}

func (t *TcpTunnel) Ask(request []byte, response []byte) (int, error) {
	conn := t.current()
	if conn == nil {
		return 0, ErrBadConn
	}

	if _, err := conn.Write(request); err != nil {
		klog.V(2).InfoS("Failed to write dooya frame", "err", err)
		return 0, ErrBadConn
	}

	if err := conn.SetReadDeadline(time.Now().Add(t.RequestTimeout)); err != nil {
		return 0, ErrBadConn
	}
	n, err := conn.Read(response)
	if err != nil {
		if ne, ok := err.(net.Error); ok && ne.Timeout() {
			return 0, ErrNoResponse
		}
		klog.V(2).InfoS("Failed to read dooya response", "err", err)
		return 0, ErrBadConn
	}
	if n == 0 {
		return 0, ErrNoResponse
	}
	return n, nil
}

func (t *TcpTunnel) Listen(response []byte, timeout time.Duration) (int, error) {
	conn := t.current()
	if conn == nil {
		return 0, ErrBadConn
	}

	if err := conn.SetReadDeadline(time.Now().Add(timeout)); err != nil {
		return 0, ErrBadConn
	}
	n, err := conn.Read(response)
	if err != nil {
		if ne, ok := err.(net.Error); ok && ne.Timeout() {
			return 0, ErrNoResponse
		}
		return 0, ErrBadConn
	}
	return n, nil
}

func (t *TcpTunnel) current() net.Conn {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.conn
}
