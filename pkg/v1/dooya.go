package v1

// dooya
type DooyaDevice struct {
	DeviceMeta
	CollectorCycle uint          `json:"collectorCycle" binding:"required"`             // 采集周期
	Address        *DooyaAddress `json:"address" binding:"required"`                    // IP地址\串口地址
	DeviceIdLow    *uint8        `json:"deviceIdLow" binding:"required,gte=1,lte=254"`  // 总线地址低字节
	DeviceIdHigh   *uint8        `json:"deviceIdHigh" binding:"required,gte=1,lte=254"` // 总线地址高字节
}

type DooyaAddress struct {
	Location string              `json:"location"` // 地址路径
	Option   *DooyaAddressOption `json:"option"`   // 地址其他参数
}

type DooyaAddressOption struct {
	Port     int `json:"port,omitempty"`     // 端口号
	BaudRate int `json:"baudRate,omitempty"` // 波特率
	DataBits int `json:"dataBits,omitempty"` // 数据位
}
