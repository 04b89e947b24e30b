package device

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"sync"
	"time"

	"dooyagateway/pkg/apis"
	"dooyagateway/pkg/apis/response"
	"dooyagateway/pkg/gateway"
	dooyaruntime "dooyagateway/pkg/protocol/dooya/runtime"
	"dooyagateway/pkg/runtime"
	"dooyagateway/pkg/utils/randutil"
	v1 "dooyagateway/pkg/v1"
	mqtt "github.com/eclipse/paho.mqtt.golang"
	"k8s.io/klog/v2"
)

type Option func(*Manager)

type Manager struct {
	gatewayMeta      *gateway.GatewayMeta
	mqttClient       mqtt.Client
	mu               *sync.Mutex
	deviceManager    map[string]DeviceManager
	devices          *sync.Map
	heartBeatDevices *sync.Map
	brokers          map[string]runtime.Broker
	brokerReturnCh   map[string]chan *runtime.ParseCoverResult
	coverStates      map[string]*runtime.CoverState
	stopCh           <-chan struct{}
	deviceStatusCh   chan string
	closers          []runtime.LabeledCloser
}

func NewManager(mqttClient mqtt.Client, gatewayMeta *gateway.GatewayMeta, stop <-chan struct{}, opts ...Option) *Manager {
	m := &Manager{
		gatewayMeta:      gatewayMeta,
		mqttClient:       mqttClient,
		mu:               &sync.Mutex{},
		devices:          &sync.Map{},
		heartBeatDevices: &sync.Map{},
		deviceManager:    DeviceManagers,
		brokers:          make(map[string]runtime.Broker, 0),
		brokerReturnCh:   make(map[string]chan *runtime.ParseCoverResult, 0),
		coverStates:      make(map[string]*runtime.CoverState, 0),
		stopCh:           stop,
		deviceStatusCh:   make(chan string, 0),
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

func (m *Manager) Init() {
	go m.heartBeatDetection()
	go m.listeningDeviceStatusCh()
}

func (m *Manager) CreateDevice(object v1.DeviceType) (runtime.Device, error) {
	dm, ok := m.deviceManager[object.GetDeviceType()]
	if !ok {
		return nil, dooyaruntime.ErrDeviceType
	}
	device, err := dm.CreateDevice(object)
	if err != nil {
		klog.V(2).InfoS("Failed to create device", "error", err)
		return nil, err
	}

	m.devices.Store(device.GetID(), device)

	if err = m.readyCollect(device); err != nil {
		if errors.Is(err, dooyaruntime.ErrBadConn) {
			// 开启探测协程 15S一次
			m.heartBeatDevices.Store(device.GetID(), device)
		} else {
			klog.V(2).InfoS("Failed to start process collect device data", "deviceId", device.GetID())
			return nil, err
		}
	}

	return device, nil
}

func (m *Manager) DeleteDevice(id string, version string) (runtime.Device, error) {
	device, err := m.GetDeviceById(id, false)
	if err != nil {
		return nil, err
	}

	if device.GetVersion() != version {
		return nil, apis.ErrMismatch
	}

	if _, err := m.deviceManager[device.GetDeviceType()].DeleteDevice(device); err != nil {
		klog.V(2).InfoS("Failed to delete device", "error", err)
		return nil, err
	}

	klog.V(2).InfoS("Deleted device", "deviceId", device.GetID())

	go func() {
		if err := m.cancelCollect(device); err != nil {
			klog.V(2).InfoS("Failed to cancel collect process", "deviceId", device.GetID())
		}
	}()

	m.devices.Delete(device.GetID())
	return device, nil
}

func (m *Manager) UpdateDeviceById(id string, version string, newObj v1.DeviceType) (runtime.Device, error) {
	d, err := m.GetDeviceById(id, true)
	if err != nil {
		return nil, err
	}

	if version != d.GetVersion() {
		return nil, apis.ErrMismatch
	}

	if err = m.deviceManager[d.GetDeviceType()].UpdateValidation(newObj, d); err != nil {
		return nil, err
	}

	device, err := m.deviceManager[d.GetDeviceType()].UpdateDevice(id, newObj, d)
	if err != nil {
		klog.V(2).InfoS("Failed to update device", "error", err)
		return nil, err
	}

	device.SetVersion(strconv.FormatUint(randutil.Uint64n(), 10))
	device.SetModTime(time.Now())
	m.devices.Store(device.GetID(), device)

	return device, nil
}

func (m *Manager) ListDevices(filter *runtime.DeviceFilter, exploded bool) ([]runtime.Device, error) {
	rds := make([]runtime.Device, 0)
	predicates := runtime.ParseTypeFilter(filter)

	// descend
	byModTime := func(d1, d2 runtime.Device) bool { return d1.GetModTime().Before(d2.GetModTime()) }
	sorter := runtime.ByDevice(byModTime)

	m.devices.Range(func(key, value interface{}) bool {
		isMatch := true
		v := value.(runtime.Device)
		for _, p := range predicates {
			if !p(v) {
				isMatch = false
				break
			}
		}
		if isMatch {
			rds = sorter.Insert(rds, v)
		}
		return true
	})

	if !exploded {
		for i := range rds {
			rds[i] = m.foldDevice(rds[i])
		}
	}

	return rds, nil
}

func (m *Manager) GetDeviceById(id string, exploded bool) (runtime.Device, error) {
	d, isExist := m.devices.Load(id)
	if !isExist {
		return nil, os.ErrNotExist
	}
	device, _ := d.(runtime.Device)
	if !exploded {
		return m.foldDevice(device), nil
	}
	return device, nil
}

func (m *Manager) SwitchDeviceStatus(id string, status string) error {
	if _, err := m.GetDeviceById(id, true); err != nil {
		klog.V(2).InfoS("Failed to find device", "deviceId", id)
		return err
	}
	if _, ok := runtime.StringToDeviceStatusCh[status]; !ok {
		klog.V(2).InfoS("Unsupported device status", "status", status)
		return response.ErrDeviceOperatorUnSupported(status)
	}
	dsc := id + "-" + status
	m.deviceStatusCh <- dsc
	return nil
}

// DeliverAction forwards one control command to the motor and primes the
// state machine with the implied target so the very next status reads as a
// transition rather than a stale settled state.
func (m *Manager) DeliverAction(id string, action *v1.CoverAction) error {
	device, err := m.GetDeviceById(id, true)
	if err != nil {
		klog.V(2).InfoS("Failed to find device", "deviceId", id)
		return response.NewMultiError(response.ErrDeviceNotFound(id))
	}

	if device.GetCollectStatus() == runtime.CollectStatusToString[runtime.Unconnected] {
		klog.V(2).InfoS("Failed to connect device", "deviceId", id)
		return response.NewMultiError(response.ErrDeviceNotConnect(id))
	}

	m.mu.Lock()
	broker, ok := m.brokers[id]
	m.mu.Unlock()
	if !ok {
		return response.NewMultiError(response.ErrDeviceNotConnect(id))
	}

	position := 0
	if action.Action == "setPosition" {
		if action.Position == nil {
			return response.NewMultiError(response.ErrRequestBody)
		}
		position = *action.Position
		if position < 0 || position > 100 {
			return response.NewMultiError(response.ErrPositionOutOfRange(position))
		}
	}

	if err := broker.DeliverAction(context.Background(), action.Action, position); err != nil {
		if errors.Is(err, dooyaruntime.ErrManyRetry) {
			// outcome unknown, the poller will reveal what the motor did
			return response.NewMultiError(response.ErrDeviceNoResponse(id))
		}
		return err
	}

	m.mu.Lock()
	state, stateOk := m.coverStates[id]
	m.mu.Unlock()
	if stateOk {
		switch action.Action {
		case "open":
			state.SetTarget(100)
		case "close":
			state.SetTarget(0)
		case "setPosition":
			state.SetTarget(position)
		default:
			state.ClearTarget()
		}
	}
	return nil
}

// ProgramAddress runs the provisioning handshake and, once the motor holds
// its new address, updates the stored device so later commands reach it.
func (m *Manager) ProgramAddress(id string, newIdL uint8, newIdH uint8) error {
	device, err := m.GetDeviceById(id, true)
	if err != nil {
		klog.V(2).InfoS("Failed to find device", "deviceId", id)
		return response.NewMultiError(response.ErrDeviceNotFound(id))
	}

	if !dooyaruntime.ValidAddressByte(newIdL) || !dooyaruntime.ValidAddressByte(newIdH) {
		return response.NewMultiError(response.ErrAddressByteInvalid)
	}

	m.mu.Lock()
	broker, ok := m.brokers[id]
	m.mu.Unlock()
	if !ok {
		return response.NewMultiError(response.ErrDeviceNotConnect(id))
	}

	if err := broker.ProgramAddress(context.Background(), newIdL, newIdH); err != nil {
		return err
	}

	device.SetVersion(strconv.FormatUint(randutil.Uint64n(), 10))
	device.SetModTime(time.Now())
	return nil
}

func (m *Manager) GetCoverStatus(id string) (*runtime.CoverStatus, error) {
	if _, err := m.GetDeviceById(id, true); err != nil {
		return nil, response.NewMultiError(response.ErrDeviceNotFound(id))
	}
	m.mu.Lock()
	state, ok := m.coverStates[id]
	m.mu.Unlock()
	if !ok {
		return nil, response.NewMultiError(response.ErrDeviceNotConnect(id))
	}
	return state.Snapshot(), nil
}

func (m *Manager) cancelCollect(obj runtime.Device) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	// switch status
	obj.SetCollectStatus(runtime.CollectStatusToString[runtime.Stopped])
	// delete heartBeat devices if exist
	if _, exist := m.heartBeatDevices.Load(obj.GetID()); exist {
		m.heartBeatDevices.Delete(obj.GetID())
	}
	if v, ok := m.brokers[obj.GetID()]; ok {
		v.Destroy(context.Background())
		delete(m.brokers, obj.GetID())
		delete(m.brokerReturnCh, obj.GetID())
		delete(m.coverStates, obj.GetID())
	}
	return nil
}

func (m *Manager) readyCollect(obj runtime.Device) error {
	newBroker, ok := DeviceTypeBrokerMap[obj.GetDeviceType()]
	if !ok {
		return dooyaruntime.ErrDeviceType
	}
	broker, results, err := newBroker(obj)
	if err != nil {
		if errors.Is(err, dooyaruntime.ErrBadConn) {
			obj.SetCollectStatus(runtime.CollectStatusToString[runtime.Unconnected])
			return err
		}
		return err
	}
	obj.SetCollectStatus(runtime.CollectStatusToString[runtime.Collecting])
	klog.V(2).InfoS("Succeed to collect data", "deviceId", obj.GetID())
	m.mu.Lock()
	defer m.mu.Unlock()
	m.brokers[obj.GetID()] = broker
	m.brokerReturnCh[obj.GetID()] = results
	state := runtime.NewCoverState()
	m.coverStates[obj.GetID()] = state

	topic := obj.GetTopic()
	if len(topic) == 0 {
		topic = fmt.Sprintf("data/%s/v1/%s", m.gatewayMeta.ID, obj.GetID())
		obj.SetTopic(topic)
	}

	broker.Collect(context.Background())
	go func(deviceId string, topic string, state *runtime.CoverState, results chan *runtime.ParseCoverResult) {
		for {
			select {
			case _, ok := <-m.stopCh:
				if !ok {
					return
				}
			case pcr, ok := <-results:
				if !ok {
					klog.V(2).InfoS("Stopped to collect data", "deviceId", deviceId)
					return
				}
				v, exist := m.devices.Load(deviceId)
				if !exist {
					klog.V(2).InfoS("Failed to load device", "deviceId", deviceId)
					continue
				}
				device := v.(runtime.Device)
				if pcr.Result == nil {
					device.SetCollectStatus(runtime.CollectStatusToString[runtime.CollectingError])
					continue
				}
				if device.GetCollectStatus() != runtime.CollectStatusToString[runtime.Collecting] {
					device.SetCollectStatus(runtime.CollectStatusToString[runtime.Collecting])
				}
				state.Apply(pcr.Result)
				m.publishCoverStatus(topic, state.Snapshot())
			}
		}
	}(obj.GetID(), topic, state, results)
	return nil
}

func (m *Manager) publishCoverStatus(topic string, status *runtime.CoverStatus) {
	pds := make([]runtime.PointData, 0, 6)
	pds = append(pds, runtime.PointData{DataPointId: "movement", Value: string(status.Movement)})
	if status.ReportedPosition != nil {
		pds = append(pds, runtime.PointData{DataPointId: "position", Value: *status.ReportedPosition})
	}
	if status.Raw != nil {
		if status.Raw.MotorStatus != nil {
			pds = append(pds, runtime.PointData{DataPointId: "motorStatus", Value: status.Raw.MotorStatus.String()})
		}
		if status.Raw.ActiveSwitch != nil {
			pds = append(pds, runtime.PointData{DataPointId: "activeSwitch", Value: uint8(*status.Raw.ActiveSwitch)})
		}
		if status.Raw.PassiveSwitch != nil {
			pds = append(pds, runtime.PointData{DataPointId: "passiveSwitch", Value: uint8(*status.Raw.PassiveSwitch)})
		}
		if status.Raw.Handle != nil {
			pds = append(pds, runtime.PointData{DataPointId: "handle", Value: uint8(*status.Raw.Handle)})
		}
	}

	publishData := runtime.PublishData{Payload: runtime.Payload{Data: []runtime.TimeSeriesData{{
		Timestamp: time.Now().UTC().Format("2006-01-02T15:04:05.000Z"),
		Values:    pds,
	}}}}

	marshal, _ := json.Marshal(publishData)
	token := m.mqttClient.Publish(topic, 1, false, marshal)
	if token.WaitTimeout(mqttTimeout) && token.Error() == nil {
		klog.V(5).InfoS("Succeed to publish MQTT", "topic", topic, "data", publishData)
	} else {
		klog.V(1).InfoS("Failed to publish MQTT", "topic", topic, "err", token.Error())
	}
}

func (m *Manager) Shutdown(context context.Context) error {
	for _, c := range m.brokers {
		c.Destroy(context)
	}

	m.mqttClient.Disconnect(2000)
	var errs []string
	for i := len(m.closers); i > 0; i-- {
		lc := m.closers[i-1]
		if err := lc.Closer(context); err != nil {
			klog.V(2).InfoS("Failed to stopped Dependencies service", "service", lc.Label)
			errs = append(errs, err.Error())
		}
	}
	if len(errs) > 0 {
		return fmt.Errorf("Failed to shutdown server: [%s]\n", strings.Join(errs, ","))
	}
	return nil
}

func (m *Manager) foldDevice(device runtime.Device) runtime.Device {
	return &runtime.DeviceMeta{
		ObjectMeta: runtime.ObjectMeta{
			Name:    device.GetName(),
			ID:      device.GetID(),
			Version: device.GetVersion(),
			ModTime: device.GetModTime(),
		},
		DeviceModel:   device.GetDeviceModel(),
		DeviceCode:    device.GetDeviceCode(),
		DeviceType:    device.GetDeviceType(),
		CollectStatus: device.GetCollectStatus(),
	}
}

func (m *Manager) heartBeatDetection() {
	tick := time.Tick(heartBeatTimeInterval)
	for {
		select {
		case _, ok := <-m.stopCh:
			if !ok {
				return
			}
		case <-tick:
			resumeDevices := make([]string, 0, 0)
			m.heartBeatDevices.Range(func(key, value any) bool {
				d := value.(runtime.Device)
				if err := m.readyCollect(d); err == nil {
					resumeDevices = append(resumeDevices, key.(string))
					return true
				}
				return false
			})
			if len(resumeDevices) > 0 {
				for _, deviceId := range resumeDevices {
					m.heartBeatDevices.Delete(deviceId)
				}
			}
		}
	}
}

func (m *Manager) listeningDeviceStatusCh() {
	for {
		select {
		case _, ok := <-m.stopCh:
			if !ok {
				return
			}
		case statusCh, ok := <-m.deviceStatusCh:
			if !ok {
				return
			}
			split := strings.Split(statusCh, "-")
			deviceId := split[0]
			status := split[1]
			d, exist := m.devices.Load(deviceId)
			if !exist {
				klog.V(2).InfoS("Failed to find device", "deviceId", deviceId)
				continue
			}
			m.switchDeviceStatus(d.(runtime.Device), status)
		}
	}
}

func (m *Manager) switchDeviceStatus(device runtime.Device, status string) {
	cs := device.GetCollectStatus()
	switch runtime.StringToCollectStatus[cs] {
	case runtime.Collecting:
		switch runtime.StringToDeviceStatusCh[status] {
		case runtime.Start:
			return
		case runtime.Restart:
			_ = m.cancelCollect(device)
			m.resumeCollect(device)
			return
		case runtime.Stop:
			_ = m.cancelCollect(device)
			return
		}
	case runtime.CollectingError, runtime.Unconnected:
		switch runtime.StringToDeviceStatusCh[status] {
		case runtime.Restart, runtime.Start:
			_ = m.cancelCollect(device)
			m.resumeCollect(device)
			return
		case runtime.Stop:
			_ = m.cancelCollect(device)
			return
		}
	case runtime.Stopped:
		switch runtime.StringToDeviceStatusCh[status] {
		case runtime.Restart, runtime.Start:
			m.resumeCollect(device)
			return
		case runtime.Stop:
			return
		}
	}
}

func (m *Manager) resumeCollect(device runtime.Device) {
	if err := m.readyCollect(device); err != nil {
		if errors.Is(err, dooyaruntime.ErrBadConn) {
			m.heartBeatDevices.Store(device.GetID(), device)
		} else {
			klog.V(2).InfoS("Failed to start process collect device data", "deviceId", device.GetID())
		}
	}
}
