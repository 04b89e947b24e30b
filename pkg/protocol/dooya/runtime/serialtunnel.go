package runtime

import (
	"context"
	"sync"
	"time"

	"github.com/pkg/errors"
	"go.bug.st/serial"
	"k8s.io/klog/v2"
)

var _ Tunnel = (*SerialTunnel)(nil)

// SerialTunnel drives a motor over a directly attached rs485 adapter instead
// of a tcp converter. The variable-length responses mean a single read per
// exchange, same as the tcp path.
type SerialTunnel struct {
	PortName       string
	Mode           *serial.Mode
	RequestTimeout time.Duration
	AcquireTimeout time.Duration

	mu    sync.Mutex
	port  serial.Port
	state ConnectionState
	gate  chan struct{}

	open func(portName string, mode *serial.Mode) (serial.Port, error)
}

func NewSerialTunnel(portName string, baudRate int, dataBits int) *SerialTunnel {
	if baudRate == 0 {
		baudRate = 9600
	}
	if dataBits == 0 {
		dataBits = 8
	}
	return &SerialTunnel{
		PortName: portName,
		Mode: &serial.Mode{
			BaudRate: baudRate,
			DataBits: dataBits,
			Parity:   serial.NoParity,
			StopBits: serial.OneStopBit,
		},
		RequestTimeout: DefaultRequestTimeout,
		AcquireTimeout: DefaultAcquireTimeout,
		gate:           make(chan struct{}, 1),
		open:           serial.Open,
	}
}

func (s *SerialTunnel) State() ConnectionState {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

func (s *SerialTunnel) Connect(timeout time.Duration) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.state == Connected {
		return nil
	}

	port, err := s.open(s.PortName, s.Mode)
	if err != nil {
		s.state = Disconnected
		klog.V(2).InfoS("Failed to open serial port", "port", s.PortName, "err", err)
		return errors.Wrapf(ErrBadConn, "open %s: %v", s.PortName, err)
	}
	s.port = port
	s.state = Connected
	klog.V(3).InfoS("Succeed to open serial port", "port", s.PortName)
	return nil
}

func (s *SerialTunnel) EnsureConnected() error {
	if s.State() == Connected {
		return nil
	}
	return s.Connect(DefaultConnectTimeout)
}

func (s *SerialTunnel) Disconnect() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.port != nil {
		if err := s.port.Close(); err != nil {
			klog.V(3).InfoS("Failed to close serial port", "port", s.PortName, "err", err)
		}
	}
	s.port = nil
	s.state = Disconnected
}

func (s *SerialTunnel) Acquire(ctx context.Context) error {
	select {
	case s.gate <- struct{}{}:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	case <-time.After(s.AcquireTimeout):
		return ErrAcquireTimeout
	}
}

func (s *SerialTunnel) Release() {
	select {
	case <-s.gate:
	default:
	}
}

func (s *SerialTunnel) Ask(request []byte, response []byte) (int, error) {
	port := s.currentPort()
	if port == nil {
		return 0, ErrBadConn
	}

	if _, err := port.Write(request); err != nil {
		klog.V(2).InfoS("Failed to write byte to serial port", "err", err)
		return 0, ErrBadConn
	}

	return s.read(port, response, s.RequestTimeout)
}

func (s *SerialTunnel) Listen(response []byte, timeout time.Duration) (int, error) {
	port := s.currentPort()
	if port == nil {
		return 0, ErrBadConn
	}
	return s.read(port, response, timeout)
}

func (s *SerialTunnel) read(port serial.Port, response []byte, timeout time.Duration) (int, error) {
	if err := port.SetReadTimeout(timeout); err != nil {
		return 0, ErrBadConn
	}
	n, err := port.Read(response)
	if err != nil {
		klog.V(2).InfoS("Failed to read byte from serial port", "err", err)
		return 0, ErrBadConn
	}
	// the serial library reports a timeout as a zero-length read
	if n == 0 {
		return 0, ErrNoResponse
	}
	return n, nil
}

func (s *SerialTunnel) currentPort() serial.Port {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.port
}
