package runtime

import (
	"context"
	"errors"
	"net"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.bug.st/serial"
	"go.uber.org/atomic"
)

func pipeDial(dials *atomic.Int32, delay time.Duration) func(string, time.Duration) (net.Conn, error) {
	return func(address string, timeout time.Duration) (net.Conn, error) {
		dials.Inc()
		time.Sleep(delay)
		client, _ := net.Pipe()
		return client, nil
	}
}

func TestConnectCoalescesConcurrentDials(t *testing.T) {
	dials := atomic.NewInt32(0)
	tunnel := NewTcpTunnel("192.168.1.50", 8899)
	tunnel.dial = pipeDial(dials, 50*time.Millisecond)

	var wg sync.WaitGroup
	errs := make([]error, 4)
	for i := 0; i < 4; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			errs[i] = tunnel.Connect(time.Second)
		}(i)
	}
	wg.Wait()

	for _, err := range errs {
		assert.NoError(t, err)
	}
	assert.Equal(t, int32(1), dials.Load())
	assert.Equal(t, Connected, tunnel.State())
}

func TestConnectReportsBadConn(t *testing.T) {
	tunnel := NewTcpTunnel("192.168.1.50", 8899)
	tunnel.dial = func(address string, timeout time.Duration) (net.Conn, error) {
		return nil, errors.New("connection refused")
	}

	err := tunnel.Connect(time.Second)
	assert.ErrorIs(t, err, ErrBadConn)
	assert.Equal(t, Disconnected, tunnel.State())
}

func TestDisconnectIsIdempotentAndEnsureRedials(t *testing.T) {
	dials := atomic.NewInt32(0)
	tunnel := NewTcpTunnel("192.168.1.50", 8899)
	tunnel.dial = pipeDial(dials, 0)

	require.NoError(t, tunnel.Connect(time.Second))
	require.Equal(t, Connected, tunnel.State())

	tunnel.Disconnect()
	tunnel.Disconnect()
	assert.Equal(t, Disconnected, tunnel.State())

	require.NoError(t, tunnel.EnsureConnected())
	assert.Equal(t, Connected, tunnel.State())
	assert.Equal(t, int32(2), dials.Load())
}

func TestAcquireTimesOutWhileGateHeld(t *testing.T) {
	tunnel := NewTcpTunnel("192.168.1.50", 8899)
	tunnel.AcquireTimeout = 20 * time.Millisecond

	require.NoError(t, tunnel.Acquire(context.Background()))

	err := tunnel.Acquire(context.Background())
	assert.ErrorIs(t, err, ErrAcquireTimeout)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	assert.ErrorIs(t, tunnel.Acquire(ctx), context.Canceled)

	tunnel.Release()
	assert.NoError(t, tunnel.Acquire(context.Background()))
	tunnel.Release()
}

func TestAskExchangesOneFrame(t *testing.T) {
	client, server := net.Pipe()
	defer server.Close()

	tunnel := NewTcpTunnel("192.168.1.50", 8899)
	tunnel.RequestTimeout = 200 * time.Millisecond
	tunnel.dial = func(address string, timeout time.Duration) (net.Conn, error) {
		return client, nil
	}
	require.NoError(t, tunnel.Connect(time.Second))

	go func() {
		buf := make([]byte, MaxFrameLength)
		if _, err := server.Read(buf); err != nil {
			return
		}
		_, _ = server.Write([]byte{0x55, 0x01})
	}()

	resp := make([]byte, MaxFrameLength)
	n, err := tunnel.Ask([]byte{0x55, 0x01, 0x00, 0x01, 0x02, 0x01}, resp)
	require.NoError(t, err)
	assert.Equal(t, 2, n)
	assert.Equal(t, []byte{0x55, 0x01}, resp[:n])
}

func TestAskSilentBusReadsAsNoResponse(t *testing.T) {
	client, server := net.Pipe()
	defer server.Close()

	tunnel := NewTcpTunnel("192.168.1.50", 8899)
	tunnel.RequestTimeout = 50 * time.Millisecond
	tunnel.dial = func(address string, timeout time.Duration) (net.Conn, error) {
		return client, nil
	}
	require.NoError(t, tunnel.Connect(time.Second))

	// drain the request but never answer
	go func() {
		buf := make([]byte, MaxFrameLength)
		_, _ = server.Read(buf)
	}()

	resp := make([]byte, MaxFrameLength)
	_, err := tunnel.Ask([]byte{0x55, 0x01, 0x00, 0x01, 0x02, 0x01}, resp)
	assert.ErrorIs(t, err, ErrNoResponse)
}

func TestAskWithoutConnection(t *testing.T) {
	tunnel := NewTcpTunnel("192.168.1.50", 8899)

	resp := make([]byte, MaxFrameLength)
	_, err := tunnel.Ask([]byte{0x55}, resp)
	assert.ErrorIs(t, err, ErrBadConn)
}

type fakePort struct {
	serial.Port
	data   []byte
	writes int
	closed int
}

func (p *fakePort) Write(b []byte) (int, error) {
	p.writes++
	return len(b), nil
}

// Read hands out the prepared bytes once, afterwards it behaves like the
// library's timeout, a zero-length read.
func (p *fakePort) Read(b []byte) (int, error) {
	if len(p.data) == 0 {
		return 0, nil
	}
	n := copy(b, p.data)
	p.data = nil
	return n, nil
}

func (p *fakePort) SetReadTimeout(d time.Duration) error { return nil }

func (p *fakePort) Close() error {
	p.closed++
	return nil
}

func TestSerialTunnelExchangeAndTimeout(t *testing.T) {
	port := &fakePort{data: []byte{0x55, 0x01}}
	opens := 0
	tunnel := NewSerialTunnel("/dev/ttyUSB0", 0, 0)
	tunnel.open = func(portName string, mode *serial.Mode) (serial.Port, error) {
		opens++
		return port, nil
	}

	require.NoError(t, tunnel.EnsureConnected())
	assert.Equal(t, 1, opens)
	assert.Equal(t, 9600, tunnel.Mode.BaudRate)
	assert.Equal(t, 8, tunnel.Mode.DataBits)

	resp := make([]byte, MaxFrameLength)
	n, err := tunnel.Ask([]byte{0x55, 0x01, 0x00, 0x01, 0x02, 0x01}, resp)
	require.NoError(t, err)
	assert.Equal(t, 2, n)
	assert.Equal(t, 1, port.writes)

	// port stays quiet now
	_, err = tunnel.Ask([]byte{0x55, 0x01, 0x00, 0x01, 0x02, 0x01}, resp)
	assert.ErrorIs(t, err, ErrNoResponse)
}

func TestSerialTunnelDisconnectIsIdempotent(t *testing.T) {
	port := &fakePort{}
	tunnel := NewSerialTunnel("/dev/ttyUSB0", 0, 0)
	tunnel.open = func(portName string, mode *serial.Mode) (serial.Port, error) {
		return port, nil
	}

	require.NoError(t, tunnel.Connect(time.Second))

	tunnel.Disconnect()
	tunnel.Disconnect()
	assert.Equal(t, 1, port.closed)
	assert.Equal(t, Disconnected, tunnel.State())

	resp := make([]byte, MaxFrameLength)
	_, err := tunnel.Listen(resp, 10*time.Millisecond)
	assert.ErrorIs(t, err, ErrBadConn)
}
