package runtime

import (
	"context"
	"time"
)

type LabeledCloser struct {
	Label  string
	Closer func(context.Context) error
}

type ResponseModel struct {
	Covers interface{} `json:"covers,omitempty"`
}

// ParseCoverResult 一次轮询的聚合结果
type ParseCoverResult struct {
	Result *PollResult
	Err    []error
}

// PollResult holds one polling cycle's raw register readings. A failed
// sub-read leaves its field nil, it is never backfilled from an older cycle.
type PollResult struct {
	Position      *int          `json:"position,omitempty"`
	MotorStatus   *MotorStatus  `json:"motorStatus,omitempty"`
	ActiveSwitch  *SwitchStatus `json:"activeSwitch,omitempty"`
	PassiveSwitch *SwitchStatus `json:"passiveSwitch,omitempty"`
	Handle        *HandleStatus `json:"handle,omitempty"`
	Direction     *byte         `json:"direction,omitempty"`
}

func (pr *PollResult) Empty() bool {
	return pr.Position == nil && pr.MotorStatus == nil && pr.ActiveSwitch == nil &&
		pr.PassiveSwitch == nil && pr.Handle == nil
}

type MotorStatus byte

const (
	MotorStopped MotorStatus = 0x00
	MotorRunning MotorStatus = 0x01
	MotorError   MotorStatus = 0x02
)

var MotorStatusToString = map[MotorStatus]string{
	MotorStopped: "stopped",
	MotorRunning: "running",
	MotorError:   "error",
}

func (m MotorStatus) String() string {
	if s, ok := MotorStatusToString[m]; ok {
		return s
	}
	return "unknown"
}

type SwitchStatus byte

const (
	SwitchNormal    SwitchStatus = 0x00
	SwitchTriggered SwitchStatus = 0x01
)

type HandleStatus byte

const (
	HandleNormal   HandleStatus = 0x00
	HandleOperated HandleStatus = 0x01
)

type CollectStatus int8

const (
	Collecting CollectStatus = iota
	CollectingError
	Unconnected
	Stopped
)

var CollectStatusToString = map[CollectStatus]string{
	Collecting:      "collecting",
	CollectingError: "collectingError",
	Unconnected:     "unconnected",
	Stopped:         "stopped",
}

var StringToCollectStatus = map[string]CollectStatus{
	"collecting":      Collecting,
	"collectingError": CollectingError,
	"unconnected":     Unconnected,
	"stopped":         Stopped,
}

type DeviceStatusCh int8

const (
	Start DeviceStatusCh = iota
	Stop
	Restart
)

var StringToDeviceStatusCh = map[string]DeviceStatusCh{
	"start":   Start,
	"stop":    Stop,
	"restart": Restart,
}

type ObjectMeta struct {
	Name    string    `json:"name"`
	ID      string    `json:"id"`
	Version string    `json:"eTag"`
	ModTime time.Time `json:"modTime"`
}

type DeviceMeta struct {
	PublishMeta
	ObjectMeta
	DeviceCode    string `json:"deviceCode"`
	DeviceType    string `json:"deviceType"`
	DeviceModel   string `json:"deviceModel"`
	CollectStatus string `json:"collectStatus"`
}

type PublishMeta struct {
	Topic string `json:"topic"`
}

func (d *DeviceMeta) GetDeviceCode() string       { return d.DeviceCode }
func (d *DeviceMeta) SetDeviceCode(s string)      { d.DeviceCode = s }
func (d *DeviceMeta) GetDeviceType() string       { return d.DeviceType }
func (d *DeviceMeta) SetDeviceType(s string)      { d.DeviceType = s }
func (d *DeviceMeta) GetDeviceModel() string      { return d.DeviceModel }
func (d *DeviceMeta) SetDeviceModel(model string) { d.DeviceModel = model }
func (d *DeviceMeta) GetCollectStatus() string    { return d.CollectStatus }
func (d *DeviceMeta) SetCollectStatus(s string)   { d.CollectStatus = s }
func (d *DeviceMeta) GetTopic() string            { return d.Topic }
func (d *DeviceMeta) SetTopic(topic string)       { d.Topic = topic }

// PublishData MQTT上报的数据
type PublishData struct {
	Payload Payload `json:"payload"`
}

type Payload struct {
	Data []TimeSeriesData `json:"data"`
}

type TimeSeriesData struct {
	Timestamp string      `json:"timestamp"`
	Values    []PointData `json:"values"`
}

type PointData struct {
	DataPointId string      `json:"dataPointId"`
	Value       interface{} `json:"value"`
}
