package runtime

import (
	"errors"
	"time"
)

// 报文格式
// 0x55 | 地址低字节 | 地址高字节 | 功能码 | 数据... | crc低字节 | crc高字节
const StartCode byte = 0x55

type FunctionCode byte

const (
	ReadRegister  FunctionCode = 0x01
	WriteRegister FunctionCode = 0x02
	ControlDevice FunctionCode = 0x03
	// AddressBroadcast is only ever sent by the motor itself, after the
	// operator holds the setting button, to announce it accepts a new address.
	AddressBroadcast FunctionCode = 0x04
)

type ControlCode byte

const (
	ControlOpen    ControlCode = 0x01
	ControlClose   ControlCode = 0x02
	ControlStop    ControlCode = 0x03
	ControlPercent ControlCode = 0x04
	ControlDelete  ControlCode = 0x07
	ControlReset   ControlCode = 0x08
)

type Register byte

const (
	RegisterAddrLow       Register = 0x00
	RegisterAddrHigh      Register = 0x01
	RegisterPercent       Register = 0x02
	RegisterDirection     Register = 0x03
	RegisterHandle        Register = 0x04
	RegisterMotorStatus   Register = 0x05
	RegisterPassiveSwitch Register = 0x27
	RegisterActiveSwitch  Register = 0x28
	RegisterVersion       Register = 0xFE
)

const (
	// StrokeNotSet 行程未设置
	StrokeNotSet byte = 0xFF
	MaxPercent   byte = 0x64

	// BroadcastAddrByte is both bytes of the factory-default bus address.
	BroadcastAddrByte byte = 0xFE
)

const (
	// data byte position in a single-register read response:
	// start + addr(2) + function + register + length
	DataByteIndex = 5

	MinStatusResponseLength = 2
	MinDataResponseLength   = 6
	MaxFrameLength          = 32
)

const (
	MaxRetry               = 3
	MaxConsecutiveFailures = 5

	DefaultConnectTimeout = 5 * time.Second
	DefaultRequestTimeout = 5 * time.Second
	DefaultAcquireTimeout = 10 * time.Second
	RetryInterval         = 500 * time.Millisecond
	ConnectPollInterval   = 100 * time.Millisecond
	DisconnectGracePeriod = 1 * time.Second

	ProgramListenWindow      = 10 * time.Second
	ProgramListenReadTimeout = 1 * time.Second
	ProgramConfirmTimeout    = 5 * time.Second
)

var (
	ErrDeviceType         = errors.New("unsupported device type")
	ErrBadConn            = errors.New("dooya bus bad connection")
	ErrNoResponse         = errors.New("no response within read deadline")
	ErrMessageTooShort    = errors.New("response message too short")
	ErrCrc16Error         = errors.New("response crc16 check failed")
	ErrStatusOnly         = errors.New("status-only response where data was expected")
	ErrManyRetry          = errors.New("command failed after retrying")
	ErrAcquireTimeout     = errors.New("timed out acquiring bus access")
	ErrAddressByteInvalid = errors.New("address byte must be within 0x01-0xFE")
	ErrProgramListen      = errors.New("no address broadcast heard within listen window")
	ErrProgramConfirm     = errors.New("no confirmation for address write")
)
