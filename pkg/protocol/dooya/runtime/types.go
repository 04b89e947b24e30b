package runtime

import (
	"dooyagateway/pkg/runtime"
)

type DooyaModel int8

const (
	Rs485OverTcp DooyaModel = iota
	Rs485Serial
)

var StringToDooyaModel = map[string]DooyaModel{
	"rs485OverTcp": Rs485OverTcp,
	"rs485Serial":  Rs485Serial,
}

var DooyaModelToString = map[DooyaModel]string{
	Rs485OverTcp: "rs485OverTcp",
	Rs485Serial:  "rs485Serial",
}

// DeviceAddress 设备总线地址
type DeviceAddress struct {
	Low  byte `json:"low"`
	High byte `json:"high"`
}

// Broadcast reports whether the address is the factory default 0xFEFE pair.
func (a DeviceAddress) Broadcast() bool {
	return a.Low == BroadcastAddrByte && a.High == BroadcastAddrByte
}

// ValidAddressByte reports whether b may be assigned during provisioning.
// 0x00 and 0xFF are reserved.
func ValidAddressByte(b byte) bool {
	return b >= 0x01 && b <= 0xFE
}

type DooyaDevice struct {
	runtime.DeviceMeta
	// CollectorCycle 采集周期 单位秒
	CollectorCycle uint           `json:"collectorCycle"`
	Address        *Address       `json:"address"`
	DeviceAddress  *DeviceAddress `json:"deviceAddress"`
	// 采集开始时读取 安装后不变
	Direction       *byte `json:"direction,omitempty"`
	FirmwareVersion *byte `json:"firmwareVersion,omitempty"`
}

type Address struct {
	Location string  `json:"location"` // 地址路径 host 或者串口路径
	Option   *Option `json:"option"`
}

type Option struct {
	Port     int `json:"port,omitempty"`
	BaudRate int `json:"baudRate,omitempty"`
	DataBits int `json:"dataBits,omitempty"`
}
