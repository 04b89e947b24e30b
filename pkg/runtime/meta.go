package runtime

import (
	"context"
	"fmt"
	"time"
)

var (
	ErrNotObject = fmt.Errorf("object does not implement the Object interfaces")
)

type Object interface {
	GetName() string
	SetName(string)
	GetID() string
	SetID(string)
	GetVersion() string
	SetVersion(string)
	GetModTime() time.Time
	SetModTime(time.Time)
}

type Device interface {
	Object
	GetDeviceCode() string
	SetDeviceCode(string)
	GetDeviceType() string
	SetDeviceType(string)
	GetDeviceModel() string
	SetDeviceModel(string)
	GetCollectStatus() string
	SetCollectStatus(string)
	GetTopic() string
	SetTopic(string)
}

// Broker drives one curtain motor: the polling loop plus user-issued commands,
// all funneled through the device's single bus link.
type Broker interface {
	Collect(ctx context.Context)
	Destroy(ctx context.Context)
	// DeliverAction executes one control command. position is only meaningful
	// for the setPosition action.
	DeliverAction(ctx context.Context, action string, position int) error
	// ProgramAddress runs the operator-assisted address provisioning handshake.
	ProgramAddress(ctx context.Context, newIdL byte, newIdH byte) error
	// PollNow requests an immediate polling cycle without waiting for the cadence.
	PollNow()
}

func (o *ObjectMeta) GetName() string           { return o.Name }
func (o *ObjectMeta) SetName(name string)       { o.Name = name }
func (o *ObjectMeta) GetID() string             { return o.ID }
func (o *ObjectMeta) SetID(id string)           { o.ID = id }
func (o *ObjectMeta) GetVersion() string        { return o.Version }
func (o *ObjectMeta) SetVersion(version string) { o.Version = version }
func (o *ObjectMeta) GetModTime() time.Time     { return o.ModTime }
func (o *ObjectMeta) SetModTime(t time.Time)    { o.ModTime = t }

func AccessorDevice(obj interface{}) (Device, error) {
	switch t := obj.(type) {
	case Device:
		return t, nil
	default:
		return nil, ErrNotObject
	}
}
