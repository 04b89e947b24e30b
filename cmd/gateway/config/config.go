package config

import (
	"dooyagateway/pkg/device"
	"dooyagateway/pkg/gateway"
)

type Config struct {
	DeviceMgr  *device.Manager
	GatewayMgr *gateway.Manager
	CertFile   string
	KeyFile    string
}
