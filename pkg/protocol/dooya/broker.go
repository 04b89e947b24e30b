package dooya

import (
	"bytes"
	"context"
	"errors"
	"time"

	"dooyagateway/pkg/apis/response"
	dooya "dooyagateway/pkg/protocol/dooya/runtime"
	"dooyagateway/pkg/runtime"
	"go.uber.org/atomic"
	"k8s.io/klog/v2"
)

/**
dooya rs485 报文
0x55 | 地址低字节 | 地址高字节 | 功能码 | 数据... | crc低字节 | crc高字节
总线上没有请求标识 一问一答 同一时刻只能有一个请求在途
*/

var _ runtime.Broker = (*DooyaBroker)(nil)

// pollRegisters 每个采集周期读取的寄存器
var pollRegisters = []dooya.Register{
	dooya.RegisterPercent,
	dooya.RegisterMotorStatus,
	dooya.RegisterActiveSwitch,
	dooya.RegisterPassiveSwitch,
	dooya.RegisterHandle,
}

type DooyaBroker struct {
	ExitCh              chan struct{}
	PollCh              chan struct{}
	Device              *dooya.DooyaDevice
	Tunnel              dooya.Tunnel
	CoverCh             chan *runtime.ParseCoverResult
	CanCollect          bool
	ConsecutiveFailures *atomic.Int32
	ListenWindow        time.Duration
	ConfirmTimeout      time.Duration
	RetryInterval       time.Duration
	lastResult          *runtime.PollResult
}

func NewBroker(d runtime.Device) (runtime.Broker, chan *runtime.ParseCoverResult, error) {
	device, ok := d.(*dooya.DooyaDevice)
	if !ok {
		klog.V(2).InfoS("Failed to new dooya device,device type not supported")
		return nil, nil, dooya.ErrDeviceType
	}

	var tunnel dooya.Tunnel
	switch dooya.StringToDooyaModel[device.DeviceModel] {
	case dooya.Rs485OverTcp:
		tunnel = dooya.NewTcpTunnel(device.Address.Location, device.Address.Option.Port)
	case dooya.Rs485Serial:
		tunnel = dooya.NewSerialTunnel(device.Address.Location, device.Address.Option.BaudRate, device.Address.Option.DataBits)
	default:
		return nil, nil, dooya.ErrDeviceType
	}

	if err := tunnel.Connect(dooya.DefaultConnectTimeout); err != nil {
		klog.V(2).InfoS("Failed to connect dooya motor", "deviceId", device.ID, "error", err)
		return nil, nil, err
	}

	broker := &DooyaBroker{
		Device:              device,
		Tunnel:              tunnel,
		ExitCh:              make(chan struct{}, 0),
		PollCh:              make(chan struct{}, 1),
		CoverCh:             make(chan *runtime.ParseCoverResult, 1),
		CanCollect:          true,
		ConsecutiveFailures: atomic.NewInt32(0),
		ListenWindow:        dooya.ProgramListenWindow,
		ConfirmTimeout:      dooya.ProgramConfirmTimeout,
		RetryInterval:       dooya.RetryInterval,
	}

	// best effort, both registers are static per install
	if direction, err := broker.ReadDirection(context.Background()); err == nil {
		device.Direction = &direction
	}
	if firmware, err := broker.ReadVersion(context.Background()); err == nil {
		device.FirmwareVersion = &firmware
	}

	return broker, broker.CoverCh, nil
}

func (broker *DooyaBroker) Destroy(ctx context.Context) {
	broker.ExitCh <- struct{}{}
	broker.Tunnel.Disconnect()
	close(broker.CoverCh)
}

func (broker *DooyaBroker) Collect(ctx context.Context) {
	if broker.CanCollect {
		go func() {
			for {
				start := time.Now().Unix()
				if !broker.poll(ctx) {
					return
				}
				select {
				case <-broker.ExitCh:
					return
				case <-broker.PollCh:
					// command issued, refresh status without waiting out the cycle
				default:
					end := time.Now().Unix()
					elapsed := end - start
					if elapsed < int64(broker.Device.CollectorCycle) {
						select {
						case <-broker.ExitCh:
							return
						case <-broker.PollCh:
						case <-time.After(time.Duration(int64(broker.Device.CollectorCycle)) * time.Second):
						}
					}
				}
			}
		}()
	}
}

// PollNow schedules an immediate status refresh, coalescing with any refresh
// already pending.
func (broker *DooyaBroker) PollNow() {
	select {
	case broker.PollCh <- struct{}{}:
	default:
	}
}

func (broker *DooyaBroker) poll(ctx context.Context) bool {
	select {
	case <-broker.ExitCh:
		return false
	default:
		result, errs := broker.readAll(ctx)
		if len(errs) > 0 && result.Empty() {
			failures := broker.ConsecutiveFailures.Inc()
			if failures >= dooya.MaxConsecutiveFailures {
				broker.ConsecutiveFailures.Store(dooya.MaxConsecutiveFailures)
				klog.V(2).InfoS("Failed to collect from dooya motor", "deviceId", broker.Device.ID, "consecutiveFailures", failures)
				broker.CoverCh <- &runtime.ParseCoverResult{Err: errs}
				return true
			}
			// 读失败 复用上一次完整结果
			if broker.lastResult != nil {
				broker.CoverCh <- &runtime.ParseCoverResult{Result: broker.lastResult}
			} else {
				broker.CoverCh <- &runtime.ParseCoverResult{Result: result}
			}
			return true
		}

		broker.ConsecutiveFailures.Store(0)
		broker.lastResult = result
		broker.CoverCh <- &runtime.ParseCoverResult{Result: result, Err: errs}
		return true
	}
}

// readAll performs the five independent register reads of one cycle. Each read
// fails on its own, a cycle only counts as failed when all of them do.
func (broker *DooyaBroker) readAll(ctx context.Context) (*runtime.PollResult, []error) {
	result := &runtime.PollResult{}
	errs := make([]error, 0)

	for _, register := range pollRegisters {
		data, err := broker.readRegister(ctx, register)
		if err != nil {
			errs = append(errs, err)
			continue
		}
		switch register {
		case dooya.RegisterPercent:
			result.Position = dooya.ParsePosition(data)
		case dooya.RegisterMotorStatus:
			status := runtime.MotorStatus(data)
			result.MotorStatus = &status
		case dooya.RegisterActiveSwitch:
			status := runtime.SwitchStatus(data)
			result.ActiveSwitch = &status
		case dooya.RegisterPassiveSwitch:
			status := runtime.SwitchStatus(data)
			result.PassiveSwitch = &status
		case dooya.RegisterHandle:
			status := runtime.HandleStatus(data)
			result.Handle = &status
		}
	}
	return result, errs
}

func (broker *DooyaBroker) readRegister(ctx context.Context, register dooya.Register) (byte, error) {
	buf, err := broker.execute(ctx, dooya.ReadPdu(register))
	if err != nil {
		return 0, err
	}
	return dooya.DataByte(buf)
}

// ReadDirection exposes the rotation direction register for the device surface.
func (broker *DooyaBroker) ReadDirection(ctx context.Context) (byte, error) {
	return broker.readRegister(ctx, dooya.RegisterDirection)
}

// ReadVersion exposes the firmware version register for the device surface.
func (broker *DooyaBroker) ReadVersion(ctx context.Context) (byte, error) {
	return broker.readRegister(ctx, dooya.RegisterVersion)
}

func (broker *DooyaBroker) DeliverAction(ctx context.Context, action string, position int) error {
	var pdu []byte
	switch action {
	case "open":
		pdu = dooya.ControlPdu(dooya.ControlOpen)
	case "close":
		pdu = dooya.ControlPdu(dooya.ControlClose)
	case "stop":
		pdu = dooya.ControlPdu(dooya.ControlStop)
	case "setPosition":
		if position < 0 || position > int(dooya.MaxPercent) {
			return response.ErrPositionOutOfRange(position)
		}
		pdu = dooya.ControlPdu(dooya.ControlPercent, byte(position))
	case "reset":
		pdu = dooya.ControlPdu(dooya.ControlReset)
	case "delete":
		pdu = dooya.ControlPdu(dooya.ControlDelete)
	default:
		return response.ErrActionUnSupported(action)
	}

	if _, err := broker.execute(ctx, pdu); err != nil {
		return err
	}
	broker.PollNow()
	return nil
}

// execute sends one frame and reads its response under the bus gate, retrying
// a bounded number of times. After the attempts run out the outcome on the
// motor side is unknown, the caller must not assume the command failed.
func (broker *DooyaBroker) execute(ctx context.Context, pdu []byte) ([]byte, error) {
	if err := broker.Tunnel.EnsureConnected(); err != nil {
		return nil, err
	}
	if err := broker.Tunnel.Acquire(ctx); err != nil {
		return nil, err
	}
	defer broker.Tunnel.Release()

	request := dooya.BuildFrame(*broker.Device.DeviceAddress, pdu)
	resp := make([]byte, dooya.MaxFrameLength)

	for i := 0; i < dooya.MaxRetry; i++ {
		if i > 0 {
			time.Sleep(broker.RetryInterval)
		}
		n, err := broker.Tunnel.Ask(request, resp)
		if err != nil {
			klog.V(2).InfoS("Failed to ask dooya motor", "deviceId", broker.Device.ID, "attempt", i+1, "error", err)
			if errors.Is(err, dooya.ErrBadConn) || errors.Is(err, dooya.ErrNoResponse) {
				broker.Tunnel.Disconnect()
				if connErr := broker.Tunnel.Connect(dooya.DefaultConnectTimeout); connErr != nil {
					continue
				}
			}
			continue
		}
		buf, err := dooya.ValidateResponse(resp[:n])
		if err != nil {
			klog.V(2).InfoS("Failed to validate dooya response", "deviceId", broker.Device.ID, "attempt", i+1, "error", err)
			continue
		}
		return buf, nil
	}
	return nil, dooya.ErrManyRetry
}

// ProgramAddress assigns a new bus address to a motor held in programming
// mode. It listens for the motor's broadcast first and only then writes the
// new address, confirmation makes the assignment effective.
func (broker *DooyaBroker) ProgramAddress(ctx context.Context, newIdL byte, newIdH byte) error {
	if !dooya.ValidAddressByte(newIdL) || !dooya.ValidAddressByte(newIdH) {
		return dooya.ErrAddressByteInvalid
	}

	if err := broker.Tunnel.EnsureConnected(); err != nil {
		return err
	}
	if err := broker.Tunnel.Acquire(ctx); err != nil {
		return err
	}
	defer broker.Tunnel.Release()

	if err := broker.listenBroadcast(ctx); err != nil {
		return err
	}

	// 写新地址 目标地址固定为0x0000
	request := dooya.BuildFrame(dooya.DeviceAddress{Low: 0x00, High: 0x00}, dooya.WriteAddressPdu(newIdL, newIdH))
	confirm := make([]byte, dooya.MaxFrameLength)

	n, err := broker.confirmWrite(request, confirm)
	if err != nil || n == 0 {
		klog.V(2).InfoS("Failed to confirm dooya address write", "deviceId", broker.Device.ID, "error", err)
		return dooya.ErrProgramConfirm
	}

	// 确认成功后更新设备地址
	broker.Device.DeviceAddress.Low = newIdL
	broker.Device.DeviceAddress.High = newIdH
	klog.V(2).InfoS("Succeed to program dooya address", "deviceId", broker.Device.ID, "low", newIdL, "high", newIdH)
	return nil
}

func (broker *DooyaBroker) listenBroadcast(ctx context.Context) error {
	prefix := dooya.BroadcastPrefix()
	buf := make([]byte, dooya.MaxFrameLength)
	deadline := time.Now().Add(broker.ListenWindow)

	for time.Now().Before(deadline) {
		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
		}
		n, err := broker.Tunnel.Listen(buf, dooya.ProgramListenReadTimeout)
		if err != nil {
			if errors.Is(err, dooya.ErrNoResponse) {
				continue
			}
			return err
		}
		if n >= len(prefix) && bytes.HasPrefix(buf[:n], prefix) {
			klog.V(3).InfoS("Heard dooya address broadcast", "deviceId", broker.Device.ID)
			return nil
		}
	}
	return dooya.ErrProgramListen
}

// confirmWrite sends the address write once and accepts any non-empty read
// within the confirm window. The motor echoes the write frame but some
// firmware revisions answer with a bare acknowledgement instead, so the
// content is not inspected.
func (broker *DooyaBroker) confirmWrite(request []byte, confirm []byte) (int, error) {
	deadline := time.Now().Add(broker.ConfirmTimeout)

	n, err := broker.Tunnel.Ask(request, confirm)
	if err == nil && n > 0 {
		return n, nil
	}
	if err != nil && !errors.Is(err, dooya.ErrNoResponse) {
		return 0, err
	}

	for time.Now().Before(deadline) {
		remaining := time.Until(deadline)
		if remaining <= 0 {
			break
		}
		if remaining > dooya.ProgramListenReadTimeout {
			remaining = dooya.ProgramListenReadTimeout
		}
		n, err := broker.Tunnel.Listen(confirm, remaining)
		if err == nil && n > 0 {
			return n, nil
		}
		if err != nil && !errors.Is(err, dooya.ErrNoResponse) {
			return 0, err
		}
	}
	return 0, dooya.ErrProgramConfirm
}
