package dooya

import (
	"testing"

	dooya "dooyagateway/pkg/protocol/dooya/runtime"
	"dooyagateway/pkg/runtime"
	v1 "dooyagateway/pkg/v1"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func uint8Ptr(v uint8) *uint8 { return &v }

func newCoverDTO() *v1.DooyaDevice {
	d := &v1.DooyaDevice{
		CollectorCycle: 5,
		Address: &v1.DooyaAddress{
			Location: "192.168.1.50",
			Option:   &v1.DooyaAddressOption{Port: 8899},
		},
		DeviceIdLow:  uint8Ptr(0x01),
		DeviceIdHigh: uint8Ptr(0xFE),
	}
	d.Name = "living room curtain"
	d.DeviceCode = "curtain-01"
	d.DeviceType = "dooyaCurtain"
	d.DeviceModel = "rs485OverTcp"
	return d
}

func TestCreateDevice(t *testing.T) {
	m := &DooyaDeviceManager{}

	created, err := m.CreateDevice(newCoverDTO())
	require.NoError(t, err)

	device, ok := created.(*dooya.DooyaDevice)
	require.True(t, ok)
	assert.NotEmpty(t, device.ID)
	assert.NotEmpty(t, device.Version)
	assert.Equal(t, runtime.CollectStatusToString[runtime.Stopped], device.CollectStatus)
	assert.Equal(t, uint(5), device.CollectorCycle)
	assert.Equal(t, "192.168.1.50", device.Address.Location)
	assert.Equal(t, 8899, device.Address.Option.Port)
	assert.Equal(t, byte(0x01), device.DeviceAddress.Low)
	assert.Equal(t, byte(0xFE), device.DeviceAddress.High)
}

func TestCreateDeviceRejectsWrongType(t *testing.T) {
	m := &DooyaDeviceManager{}

	_, err := m.CreateDevice(&v1.DeviceMeta{})
	assert.ErrorIs(t, err, dooya.ErrDeviceType)
}

func TestUpdateDevice(t *testing.T) {
	m := &DooyaDeviceManager{}
	created, err := m.CreateDevice(newCoverDTO())
	require.NoError(t, err)

	dto := newCoverDTO()
	dto.Name = "bedroom curtain"
	dto.CollectorCycle = 10
	dto.DeviceIdLow = uint8Ptr(0x02)

	updated, err := m.UpdateDevice(created.GetID(), dto, created)
	require.NoError(t, err)

	device := updated.(*dooya.DooyaDevice)
	assert.Equal(t, "bedroom curtain", device.Name)
	assert.Equal(t, uint(10), device.CollectorCycle)
	assert.Equal(t, byte(0x02), device.DeviceAddress.Low)
}
