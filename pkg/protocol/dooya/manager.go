package dooya

import (
	"strconv"
	"time"

	dooya "dooyagateway/pkg/protocol/dooya/runtime"
	"dooyagateway/pkg/runtime"
	"dooyagateway/pkg/utils/randutil"
	"dooyagateway/pkg/utils/uuidutil"
	v1 "dooyagateway/pkg/v1"
	"k8s.io/klog/v2"
)

type DooyaDeviceManager struct {
}

func (m *DooyaDeviceManager) CreateDevice(deviceType v1.DeviceType) (runtime.Device, error) {
	dooyaDevice, ok := deviceType.(*v1.DooyaDevice)
	if !ok {
		klog.V(2).InfoS("Unsupported device,type not Dooya")
		return nil, dooya.ErrDeviceType
	}

	d := &dooya.DooyaDevice{
		DeviceMeta: runtime.DeviceMeta{
			PublishMeta: runtime.PublishMeta{Topic: dooyaDevice.Topic},
			ObjectMeta: runtime.ObjectMeta{
				Name:    dooyaDevice.Name,
				ID:      uuidutil.UUID(),
				Version: strconv.FormatUint(randutil.Uint64n(), 10),
				ModTime: time.Now(),
			},
			DeviceCode:    dooyaDevice.DeviceCode,
			DeviceType:    dooyaDevice.DeviceType,
			DeviceModel:   dooyaDevice.DeviceModel,
			CollectStatus: runtime.CollectStatusToString[runtime.Stopped],
		},
		CollectorCycle: dooyaDevice.CollectorCycle,
		Address: &dooya.Address{
			Location: dooyaDevice.Address.Location,
		},
		DeviceAddress: &dooya.DeviceAddress{
			Low:  *dooyaDevice.DeviceIdLow,
			High: *dooyaDevice.DeviceIdHigh,
		},
	}
	if dooyaDevice.Address.Option != nil {
		d.Address.Option = &dooya.Option{
			Port:     dooyaDevice.Address.Option.Port,
			BaudRate: dooyaDevice.Address.Option.BaudRate,
			DataBits: dooyaDevice.Address.Option.DataBits,
		}
	} else {
		d.Address.Option = &dooya.Option{}
	}
	return d, nil
}

func (m *DooyaDeviceManager) DeleteDevice(device runtime.Device) (runtime.Device, error) {
	return &dooya.DooyaDevice{DeviceMeta: runtime.DeviceMeta{
		ObjectMeta:  runtime.ObjectMeta{ID: device.GetID(), Version: device.GetVersion()},
		DeviceType:  device.GetDeviceType(),
		DeviceCode:  device.GetDeviceCode(),
		DeviceModel: device.GetDeviceModel(),
	}}, nil
}

func (m *DooyaDeviceManager) UpdateValidation(deviceType v1.DeviceType, device runtime.Device) error {
	return nil
}

func (m *DooyaDeviceManager) UpdateDevice(id string, deviceType v1.DeviceType, device runtime.Device) (runtime.Device, error) {
	dooyaDevice, ok := deviceType.(*v1.DooyaDevice)
	if !ok {
		klog.V(2).InfoS("Unsupported device,type not Dooya")
		return nil, dooya.ErrDeviceType
	}

	copyDevice, _ := device.(*dooya.DooyaDevice)
	copyDevice.DeviceMeta.PublishMeta.Topic = dooyaDevice.Topic
	copyDevice.DeviceMeta.ObjectMeta.Name = dooyaDevice.Name
	copyDevice.DeviceMeta.DeviceCode = dooyaDevice.DeviceCode
	copyDevice.DeviceMeta.DeviceType = dooyaDevice.DeviceType
	copyDevice.DeviceMeta.DeviceModel = dooyaDevice.DeviceModel

	copyDevice.CollectorCycle = dooyaDevice.CollectorCycle
	copyDevice.Address.Location = dooyaDevice.Address.Location
	if dooyaDevice.Address.Option != nil {
		copyDevice.Address.Option.Port = dooyaDevice.Address.Option.Port
		copyDevice.Address.Option.BaudRate = dooyaDevice.Address.Option.BaudRate
		copyDevice.Address.Option.DataBits = dooyaDevice.Address.Option.DataBits
	}
	copyDevice.DeviceAddress.Low = *dooyaDevice.DeviceIdLow
	copyDevice.DeviceAddress.High = *dooyaDevice.DeviceIdHigh

	return copyDevice, nil
}
