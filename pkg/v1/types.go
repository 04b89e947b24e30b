package v1

type DeviceType interface {
	GetDeviceType() string
}

// DeviceMeta 设备公共字段
// DeviceModel 决定总线接入方式 rs485OverTcp 或 rs485Serial
type DeviceMeta struct {
	PublishMeta
	Name        string `json:"name" binding:"required,min=1,max=64,excludesall=\u002F\u005C"`
	DeviceCode  string `json:"deviceCode" binding:"required,min=1,max=32,excludesall=\u002F\u005C"`
	DeviceType  string `json:"deviceType" binding:"required,min=1,max=32,excludesall=\u002F\u005C"`
	DeviceModel string `json:"deviceModel" binding:"required,min=1,max=32,excludesall=\u002F\u005C"`
}

// PublishMeta 上报配置 Topic为空时默认 data/{gatewayId}/v1/{deviceId}
type PublishMeta struct {
	Topic string `json:"topic"`
}

func (d *DeviceMeta) GetDeviceType() string {
	return d.DeviceType
}
