package device

import (
	"time"

	"dooyagateway/pkg/protocol/dooya"
	"dooyagateway/pkg/runtime"
	"k8s.io/apimachinery/pkg/types"
	"k8s.io/apimachinery/pkg/util/sets"
)

var DeviceManagers = map[string]DeviceManager{
	"dooyaCurtain": &dooya.DooyaDeviceManager{},
}

var DeviceTypeBrokerMap = map[string]func(device runtime.Device) (runtime.Broker, chan *runtime.ParseCoverResult, error){
	"dooyaCurtain": dooya.NewBroker,
}

var patchTypes = sets.NewString(string(types.JSONPatchType), string(types.MergePatchType))

const (
	maxJSONPatchOperations = 1000
	mqttTimeout            = 1 * time.Second
	heartBeatTimeInterval  = 15 * time.Second
)
