package v1

var DeviceTypeMap = map[string]func() DeviceType{
	"dooyaCurtain": func() DeviceType { return &DooyaDevice{} },
}
