package dooya

import (
	"context"
	"sync"
	"testing"
	"time"

	dooya "dooyagateway/pkg/protocol/dooya/runtime"
	"dooyagateway/pkg/runtime"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/atomic"
)

type fakeTunnel struct {
	mu          sync.Mutex
	askCalls    int
	listenCalls int
	connects    int
	disconnects int

	askFn    func(call int, request []byte, response []byte) (int, error)
	listenFn func(call int, response []byte) (int, error)
}

func (f *fakeTunnel) Connect(timeout time.Duration) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.connects++
	return nil
}

func (f *fakeTunnel) EnsureConnected() error { return nil }

func (f *fakeTunnel) Disconnect() {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.disconnects++
}

func (f *fakeTunnel) State() dooya.ConnectionState { return dooya.Connected }

func (f *fakeTunnel) Acquire(ctx context.Context) error { return nil }

func (f *fakeTunnel) Release() {}

func (f *fakeTunnel) Ask(request []byte, response []byte) (int, error) {
	f.mu.Lock()
	f.askCalls++
	call := f.askCalls
	f.mu.Unlock()
	if f.askFn == nil {
		return 0, dooya.ErrNoResponse
	}
	return f.askFn(call, request, response)
}

func (f *fakeTunnel) Listen(response []byte, timeout time.Duration) (int, error) {
	f.mu.Lock()
	f.listenCalls++
	call := f.listenCalls
	f.mu.Unlock()
	if f.listenFn == nil {
		return 0, dooya.ErrNoResponse
	}
	return f.listenFn(call, response)
}

func newTestBroker(tunnel dooya.Tunnel) *DooyaBroker {
	device := &dooya.DooyaDevice{
		CollectorCycle: 1,
		DeviceAddress:  &dooya.DeviceAddress{Low: 0x01, High: 0x00},
	}
	device.ID = "cover-under-test"
	return &DooyaBroker{
		Device:              device,
		Tunnel:              tunnel,
		ExitCh:              make(chan struct{}, 0),
		PollCh:              make(chan struct{}, 1),
		CoverCh:             make(chan *runtime.ParseCoverResult, 1),
		CanCollect:          true,
		ConsecutiveFailures: atomic.NewInt32(0),
		ListenWindow:        50 * time.Millisecond,
		ConfirmTimeout:      50 * time.Millisecond,
		RetryInterval:       0,
	}
}

// answer writes a well-formed single-register read response for the register
// named in the request, carrying the given data byte.
func answer(request []byte, response []byte, data byte) int {
	register := request[4]
	frame := dooya.BuildFrame(dooya.DeviceAddress{Low: request[1], High: request[2]},
		[]byte{byte(dooya.ReadRegister), register, data})
	copy(response, frame)
	return len(frame)
}

func TestExecuteGivesUpAfterBoundedRetries(t *testing.T) {
	tunnel := &fakeTunnel{
		askFn: func(call int, request []byte, response []byte) (int, error) {
			return 0, dooya.ErrNoResponse
		},
	}
	broker := newTestBroker(tunnel)

	_, err := broker.execute(context.Background(), dooya.ReadPdu(dooya.RegisterPercent))
	assert.ErrorIs(t, err, dooya.ErrManyRetry)
	assert.Equal(t, dooya.MaxRetry, tunnel.askCalls)
	// each silent attempt tears the link down before the next one
	assert.Equal(t, dooya.MaxRetry, tunnel.disconnects)
}

func TestExecuteRecoversWithinRetryBudget(t *testing.T) {
	tunnel := &fakeTunnel{}
	tunnel.askFn = func(call int, request []byte, response []byte) (int, error) {
		if call == 1 {
			return 0, dooya.ErrNoResponse
		}
		return answer(request, response, 0x32), nil
	}
	broker := newTestBroker(tunnel)

	buf, err := broker.execute(context.Background(), dooya.ReadPdu(dooya.RegisterPercent))
	require.NoError(t, err)
	assert.Equal(t, 2, tunnel.askCalls)

	data, err := dooya.DataByte(buf)
	require.NoError(t, err)
	assert.Equal(t, byte(0x32), data)
}

func TestExecuteRejectsTamperedResponse(t *testing.T) {
	tunnel := &fakeTunnel{}
	tunnel.askFn = func(call int, request []byte, response []byte) (int, error) {
		n := answer(request, response, 0x32)
		response[n-1] ^= 0xFF
		return n, nil
	}
	broker := newTestBroker(tunnel)

	_, err := broker.execute(context.Background(), dooya.ReadPdu(dooya.RegisterPercent))
	assert.ErrorIs(t, err, dooya.ErrManyRetry)
	assert.Equal(t, dooya.MaxRetry, tunnel.askCalls)
}

func TestDeliverActionUnsupported(t *testing.T) {
	tunnel := &fakeTunnel{}
	broker := newTestBroker(tunnel)

	err := broker.DeliverAction(context.Background(), "tilt", 0)
	assert.Error(t, err)
	assert.Equal(t, 0, tunnel.askCalls)
}

func TestDeliverActionPositionOutOfRange(t *testing.T) {
	tunnel := &fakeTunnel{}
	broker := newTestBroker(tunnel)

	err := broker.DeliverAction(context.Background(), "setPosition", 101)
	assert.Error(t, err)
	assert.Equal(t, 0, tunnel.askCalls)
}

func TestDeliverActionSchedulesRefresh(t *testing.T) {
	tunnel := &fakeTunnel{}
	tunnel.askFn = func(call int, request []byte, response []byte) (int, error) {
		// control acknowledgement is status-only
		response[0] = 0x55
		response[1] = 0x00
		return 2, nil
	}
	broker := newTestBroker(tunnel)

	err := broker.DeliverAction(context.Background(), "open", 0)
	require.NoError(t, err)

	select {
	case <-broker.PollCh:
	default:
		t.Fatal("expected an immediate refresh to be scheduled")
	}
}

func TestPollFailureCeiling(t *testing.T) {
	tunnel := &fakeTunnel{
		askFn: func(call int, request []byte, response []byte) (int, error) {
			return 0, dooya.ErrNoResponse
		},
	}
	broker := newTestBroker(tunnel)
	ctx := context.Background()

	for i := 1; i < dooya.MaxConsecutiveFailures; i++ {
		require.True(t, broker.poll(ctx))
		result := <-broker.CoverCh
		assert.Empty(t, result.Err, "cycle %d should fall back to the previous result", i)
	}

	require.True(t, broker.poll(ctx))
	result := <-broker.CoverCh
	assert.NotEmpty(t, result.Err)
}

func TestPollSuccessResetsFailures(t *testing.T) {
	tunnel := &fakeTunnel{}
	failing := true
	tunnel.askFn = func(call int, request []byte, response []byte) (int, error) {
		if failing {
			return 0, dooya.ErrNoResponse
		}
		return answer(request, response, 0x00), nil
	}
	broker := newTestBroker(tunnel)
	ctx := context.Background()

	for i := 1; i < dooya.MaxConsecutiveFailures; i++ {
		require.True(t, broker.poll(ctx))
		<-broker.CoverCh
	}

	failing = false
	require.True(t, broker.poll(ctx))
	result := <-broker.CoverCh
	require.NotNil(t, result.Result)
	assert.Equal(t, int32(0), broker.ConsecutiveFailures.Load())

	failing = true
	require.True(t, broker.poll(ctx))
	result = <-broker.CoverCh
	// one more failure reuses the last complete reading instead of erroring
	assert.Empty(t, result.Err)
	require.NotNil(t, result.Result)
	require.NotNil(t, result.Result.Position)
	assert.Equal(t, 0, *result.Result.Position)
}

func TestProgramAddressRejectsReservedBytes(t *testing.T) {
	broker := newTestBroker(&fakeTunnel{})

	assert.ErrorIs(t, broker.ProgramAddress(context.Background(), 0x00, 0x01), dooya.ErrAddressByteInvalid)
	assert.ErrorIs(t, broker.ProgramAddress(context.Background(), 0x01, 0xFF), dooya.ErrAddressByteInvalid)
}

func TestProgramAddressNoBroadcastNoWrite(t *testing.T) {
	tunnel := &fakeTunnel{}
	broker := newTestBroker(tunnel)

	err := broker.ProgramAddress(context.Background(), 0x05, 0x01)
	assert.ErrorIs(t, err, dooya.ErrProgramListen)
	// the address write must never hit the bus without a broadcast first
	assert.Equal(t, 0, tunnel.askCalls)
	assert.Equal(t, byte(0x01), broker.Device.DeviceAddress.Low)
}

func TestProgramAddressSucceeds(t *testing.T) {
	tunnel := &fakeTunnel{}
	tunnel.listenFn = func(call int, response []byte) (int, error) {
		return copy(response, dooya.BroadcastPrefix()), nil
	}
	tunnel.askFn = func(call int, request []byte, response []byte) (int, error) {
		// confirmation echoes the write frame
		return copy(response, request), nil
	}
	broker := newTestBroker(tunnel)

	err := broker.ProgramAddress(context.Background(), 0x05, 0x01)
	require.NoError(t, err)
	assert.Equal(t, byte(0x05), broker.Device.DeviceAddress.Low)
	assert.Equal(t, byte(0x01), broker.Device.DeviceAddress.High)
}

func TestProgramAddressConfirmTimeout(t *testing.T) {
	tunnel := &fakeTunnel{}
	tunnel.listenFn = func(call int, response []byte) (int, error) {
		if call == 1 {
			return copy(response, dooya.BroadcastPrefix()), nil
		}
		return 0, dooya.ErrNoResponse
	}
	broker := newTestBroker(tunnel)

	err := broker.ProgramAddress(context.Background(), 0x05, 0x01)
	assert.ErrorIs(t, err, dooya.ErrProgramConfirm)
	// failed provisioning must not touch the configured address
	assert.Equal(t, byte(0x01), broker.Device.DeviceAddress.Low)
}
